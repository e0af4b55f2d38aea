package database

import (
	"bytes"
	"context"
	"log"
	"path/filepath"
	"testing"

	"potatolearn/backend/config"
	"potatolearn/backend/models"
	"potatolearn/backend/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*gorm.DB, *config.Config) {
	t.Helper()
	cfg := &config.Config{
		DBDriver:      "sqlite",
		DBPath:        filepath.Join(t.TempDir(), "seed.db"),
		AdminEmail:    "admin@potatolearn.com",
		AdminPassword: "admin123",
	}
	db, err := utils.InitDB(cfg, utils.DiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = utils.CloseDB(db) })
	return db, cfg
}

func count(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestSeedEmptyDatabase(t *testing.T) {
	db, cfg := setup(t)
	var logs bytes.Buffer

	require.NoError(t, Seed(context.Background(), db, cfg, log.New(&logs, "", 0)))

	var admin models.User
	require.NoError(t, db.Where("email = ?", cfg.AdminEmail).First(&admin).Error)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.True(t, admin.IsActive)
	assert.True(t, admin.CheckPassword("admin123"))

	var courses []models.Course
	require.NoError(t, db.Preload("Content").Find(&courses).Error)
	require.Len(t, courses, 3)
	for _, course := range courses {
		assert.Equal(t, admin.ID, course.InstructorID)
		assert.True(t, course.IsPublished)
		assert.Len(t, course.Content, 3)
	}

	var quizzes []models.Quiz
	require.NoError(t, db.Preload("Questions").Find(&quizzes).Error)
	require.Len(t, quizzes, 3)
	for _, quiz := range quizzes {
		assert.Len(t, quiz.Questions, 2)
		assert.False(t, quiz.IsMalformed())
		assert.EqualValues(t, 50, quiz.PassingScore)
	}

	assert.Contains(t, logs.String(), "default admin created")
	assert.Contains(t, logs.String(), "created 3 sample quizzes")
}

func TestSeedIsIdempotent(t *testing.T) {
	db, cfg := setup(t)
	ctx := context.Background()

	require.NoError(t, Seed(ctx, db, cfg, utils.DiscardLogger()))
	require.NoError(t, Seed(ctx, db, cfg, utils.DiscardLogger()))

	assert.EqualValues(t, 1, count(t, db, &models.User{}))
	assert.EqualValues(t, 3, count(t, db, &models.Course{}))
	assert.EqualValues(t, 3, count(t, db, &models.Quiz{}))
}

func TestSeedAddsQuizToCourseWithoutOne(t *testing.T) {
	db, cfg := setup(t)
	ctx := context.Background()

	owner := models.User{Name: "Tutor", Email: "tutor@test.com", Role: models.RoleInstructor, IsActive: true}
	require.NoError(t, owner.SetPassword("password123"))
	require.NoError(t, db.Create(&owner).Error)
	course := models.Course{Title: "Existing", Description: "d", Category: "c", InstructorID: owner.ID, IsPublished: true}
	require.NoError(t, db.Create(&course).Error)

	require.NoError(t, Seed(ctx, db, cfg, utils.DiscardLogger()))

	// база не пустая: ни админа, ни демо-курсов
	assert.EqualValues(t, 1, count(t, db, &models.User{}))
	assert.EqualValues(t, 1, count(t, db, &models.Course{}))

	var quiz models.Quiz
	require.NoError(t, db.Where("course_id = ?", course.ID).First(&quiz).Error)
	assert.Equal(t, "Quiz: Existing", quiz.Title)
}
