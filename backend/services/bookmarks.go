package services

import (
	"context"

	"potatolearn/backend/models"
	"potatolearn/backend/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookmarkService struct {
	db *gorm.DB
}

func NewBookmarkService(db *gorm.DB) *BookmarkService {
	return &BookmarkService{db: db}
}

func (s *BookmarkService) List(ctx context.Context, userID uint) ([]CourseSummary, error) {
	return coursesVia(ctx, s.db, "bookmarks", userID)
}

func (s *BookmarkService) Add(ctx context.Context, userID, courseID uint) ([]CourseSummary, error) {
	if _, err := findCourse(ctx, s.db, courseID, false); err != nil {
		return nil, err
	}

	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Bookmark{UserID: userID, CourseID: courseID})
	if result.Error != nil {
		return nil, utils.ErrInternal(result.Error, "saving bookmark")
	}
	if result.RowsAffected == 0 {
		return nil, utils.ErrValidation("Course already bookmarked")
	}
	return s.List(ctx, userID)
}

// Remove убирает закладку, отсутствие закладки ошибкой не считается
func (s *BookmarkService) Remove(ctx context.Context, userID, courseID uint) ([]CourseSummary, error) {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Delete(&models.Bookmark{}).Error
	if err != nil {
		return nil, utils.ErrInternal(err, "removing bookmark")
	}
	return s.List(ctx, userID)
}
