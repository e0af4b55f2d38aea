package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
)

// IsValidRole проверяет, что роль входит в известный набор
func IsValidRole(role string) bool {
	switch role {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"not null" json:"name"`
	Email          string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash   string    `gorm:"not null" json:"-"`
	Role           string    `gorm:"size:20;index;not null" json:"role"`
	ProfilePicture string    `json:"profilePicture"`
	IsActive       bool      `gorm:"not null" json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Enrollment одна строка на пару курс-студент. Это и список студентов
// курса, и список курсов студента.
type Enrollment struct {
	CourseID  uint `gorm:"primaryKey;autoIncrement:false"`
	UserID    uint `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time
}

type CourseCompletion struct {
	UserID    uint `gorm:"primaryKey;autoIncrement:false"`
	CourseID  uint `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time
}

type Bookmark struct {
	UserID    uint `gorm:"primaryKey;autoIncrement:false"`
	CourseID  uint `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time
}
