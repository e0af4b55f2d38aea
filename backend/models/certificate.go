package models

import "time"

// Certificate ссылается на пользователя, курс и тест, но не владеет ими
type Certificate struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"index;not null" json:"-"`
	User          User      `json:"-"`
	CourseID      uint      `gorm:"index;not null" json:"-"`
	Course        Course    `json:"-"`
	QuizID        *uint     `json:"quiz"`
	Filename      string    `gorm:"not null" json:"filename"`
	URL           string    `gorm:"not null" json:"url"`
	MimeType      string    `json:"mimeType"`
	CertificateID *string   `gorm:"size:64;uniqueIndex" json:"certificateId"`
	CreatedAt     time.Time `json:"createdAt"`
}

// AllModels список всех моделей для миграции
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Course{},
		&CourseContent{},
		&CourseRating{},
		&Enrollment{},
		&CourseCompletion{},
		&Bookmark{},
		&Quiz{},
		&Question{},
		&Certificate{},
	}
}
