package services

import (
	"path/filepath"
	"strconv"
	"testing"

	"potatolearn/backend/certificates"
	"potatolearn/backend/config"
	"potatolearn/backend/models"
	"potatolearn/backend/utils"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := &config.Config{DBDriver: "sqlite", DBPath: filepath.Join(t.TempDir(), "test.db")}
	db, err := utils.InitDB(cfg, utils.DiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = utils.CloseDB(db) })
	return db
}

func createUser(t *testing.T, db *gorm.DB, email, role string) *models.User {
	t.Helper()
	user := &models.User{Name: email, Email: email, Role: role, IsActive: true}
	require.NoError(t, user.SetPassword("password123"))
	require.NoError(t, db.Create(user).Error)
	return user
}

func createCourse(t *testing.T, db *gorm.DB, owner *models.User, title string, published bool) *models.Course {
	t.Helper()
	course := &models.Course{
		Title:         title,
		Description:   title + " description",
		Category:      "Testing",
		InstructorID:  owner.ID,
		Prerequisites: datatypes.JSONSlice[string]{},
		IsPublished:   published,
	}
	require.NoError(t, db.Create(course).Error)
	return course
}

func enroll(t *testing.T, db *gorm.DB, course *models.Course, user *models.User) {
	t.Helper()
	require.NoError(t, db.Create(&models.Enrollment{CourseID: course.ID, UserID: user.ID}).Error)
}

// createQuiz два вопроса по одному баллу, правильные ответы 0 и 1
func createQuiz(t *testing.T, db *gorm.DB, course *models.Course, passingScore float64) *models.Quiz {
	t.Helper()
	quiz := &models.Quiz{
		Title:        "Quiz: " + course.Title,
		CourseID:     course.ID,
		TimeLimit:    models.DefaultTimeLimit,
		PassingScore: passingScore,
		MaxAttempts:  models.DefaultMaxAttempts,
		Questions: []models.Question{
			{Position: 0, QuestionText: "First?", Options: datatypes.NewJSONSlice([]string{"a", "b", "c", "d"}), CorrectAnswer: 0, Points: 1},
			{Position: 1, QuestionText: "Second?", Options: datatypes.NewJSONSlice([]string{"a", "b", "c", "d"}), CorrectAnswer: 1, Points: 1},
		},
	}
	require.NoError(t, db.Create(quiz).Error)
	return quiz
}

// correctAnswers ответы на вопросы из createQuiz
func correctAnswers() []models.Answer {
	return []models.Answer{
		{QuestionIndex: 0, AnswerIndex: 0},
		{QuestionIndex: 1, AnswerIndex: 1},
	}
}

func newIssuer(t *testing.T, db *gorm.DB) (*certificates.Issuer, *certificates.DiskStore) {
	t.Helper()
	store, err := certificates.NewDiskStore(t.TempDir())
	require.NoError(t, err)
	return certificates.NewIssuer(db, store, certificates.DefaultChain(), utils.DiscardLogger()), store
}

func requireAppError(t *testing.T, err error, status int, message string) {
	t.Helper()
	var appErr *utils.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, status, appErr.Status)
	assert.Equal(t, message, appErr.Message)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
