package models

import (
	"math"
	"time"

	"gorm.io/datatypes"
)

type Course struct {
	ID               uint                        `gorm:"primaryKey" json:"id"`
	Title            string                      `gorm:"not null" json:"title"`
	Description      string                      `gorm:"type:text;not null" json:"description"`
	ShortDescription string                      `gorm:"size:200" json:"shortDescription"`
	Category         string                      `gorm:"not null" json:"category"`
	Thumbnail        string                      `json:"thumbnail"`
	InstructorID     uint                        `gorm:"index;not null" json:"-"`
	Instructor       User                        `gorm:"foreignKey:InstructorID" json:"-"`
	Content          []CourseContent             `json:"content"`
	Prerequisites    datatypes.JSONSlice[string] `json:"prerequisites"`
	RatingCount      int                         `gorm:"not null;default:0" json:"-"`
	RatingAverage    int                         `gorm:"not null;default:0" json:"-"`
	Ratings          []CourseRating              `json:"-"`
	IsPublished      bool                        `gorm:"not null" json:"isPublished"`
	CreatedAt        time.Time                   `json:"createdAt"`
	UpdatedAt        time.Time                   `json:"updatedAt"`
}

type CourseContent struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	CourseID uint   `gorm:"index;not null" json:"-"`
	Title    string `json:"title"`
	Type     string `gorm:"size:20;not null" json:"type"` // video, document, quiz, text
	URL      string `json:"url"`
	Duration int    `json:"duration"`
	Order    int    `gorm:"column:sort_order" json:"order"`
}

// CourseRating одна оценка на пользователя, хранится последнее значение
type CourseRating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CourseID  uint      `gorm:"uniqueIndex:idx_course_rating_user;not null" json:"courseId"`
	UserID    uint      `gorm:"uniqueIndex:idx_course_rating_user;not null" json:"userId"`
	Rating    int       `gorm:"not null" json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type RatingSummary struct {
	Count   int `json:"count"`
	Average int `json:"average"`
}

// ComputeRating считает агрегат заново по всем оценкам
func ComputeRating(ratings []int) RatingSummary {
	if len(ratings) == 0 {
		return RatingSummary{}
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return RatingSummary{
		Count:   len(ratings),
		Average: int(math.Round(float64(sum) / float64(len(ratings)))),
	}
}
