package services

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"potatolearn/backend/models"
	"potatolearn/backend/utils"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InstructorRef id или email преподавателя, в JSON может прийти числом или строкой
type InstructorRef string

func (r *InstructorRef) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*r = InstructorRef(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*r = InstructorRef(strings.TrimSpace(s))
	return nil
}

type ContentInput struct {
	Title    string `json:"title" validate:"required"`
	Type     string `json:"type" validate:"omitempty,oneof=video document quiz text"`
	URL      string `json:"url"`
	Duration int    `json:"duration" validate:"gte=0"`
	Order    int    `json:"order"`
}

type CreateCourseInput struct {
	Title            string         `json:"title" validate:"required"`
	Description      string         `json:"description" validate:"required"`
	ShortDescription string         `json:"shortDescription" validate:"max=200"`
	Category         string         `json:"category" validate:"required"`
	Thumbnail        string         `json:"thumbnail"`
	Content          []ContentInput `json:"content" validate:"dive"`
	Prerequisites    []string       `json:"prerequisites"`
	IsPublished      bool           `json:"isPublished"`
	Instructor       InstructorRef  `json:"instructor"`
}

type UpdateCourseInput struct {
	Title            *string         `json:"title" validate:"omitempty,min=1"`
	Description      *string         `json:"description" validate:"omitempty,min=1"`
	ShortDescription *string         `json:"shortDescription" validate:"omitempty,max=200"`
	Category         *string         `json:"category" validate:"omitempty,min=1"`
	Thumbnail        *string         `json:"thumbnail"`
	Content          *[]ContentInput `json:"content" validate:"omitempty,dive"`
	Prerequisites    *[]string       `json:"prerequisites"`
	IsPublished      *bool           `json:"isPublished"`
	Instructor       *InstructorRef  `json:"instructor"`
}

type CourseFilter struct {
	InstructorID       uint
	Search             string
	IncludeUnpublished bool
}

type InstructorView struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CourseView курс в том виде, в каком его отдает API
type CourseView struct {
	models.Course
	Instructor       *InstructorView      `json:"instructor"`
	EnrolledStudents []uint               `json:"enrolledStudents"`
	Rating           models.RatingSummary `json:"rating"`
}

type RateResult struct {
	Rating     models.RatingSummary `json:"rating"`
	UserRating int                  `json:"userRating"`
}

type CourseService struct {
	db *gorm.DB
}

func NewCourseService(db *gorm.DB) *CourseService {
	return &CourseService{db: db}
}

func (s *CourseService) List(ctx context.Context, filter CourseFilter) ([]CourseView, error) {
	query := s.db.WithContext(ctx).Model(&models.Course{})
	if filter.InstructorID != 0 {
		query = query.Where("instructor_id = ?", filter.InstructorID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where("LOWER(title) LIKE ? ESCAPE '!'", containsPattern(search))
	}
	if !filter.IncludeUnpublished {
		query = query.Where("is_published = ?", true)
	}

	var courses []models.Course
	if err := preloadCourse(query).Order("created_at DESC").Find(&courses).Error; err != nil {
		return nil, utils.ErrInternal(err, "listing courses")
	}

	return s.views(ctx, s.db, courses)
}

// Get отдает курс и оценку вызывающего (nil, если он не оценивал)
func (s *CourseService) Get(ctx context.Context, id uint, viewer *models.User) (*CourseView, *int, error) {
	course, err := findCourse(ctx, s.db, id, true)
	if err != nil {
		return nil, nil, err
	}

	views, err := s.views(ctx, s.db, []models.Course{*course})
	if err != nil {
		return nil, nil, err
	}

	var userRating *int
	if viewer != nil {
		for _, r := range course.Ratings {
			if r.UserID == viewer.ID {
				value := r.Rating
				userRating = &value
				break
			}
		}
	}

	return &views[0], userRating, nil
}

func (s *CourseService) Create(ctx context.Context, actor *models.User, in CreateCourseInput) (*CourseView, error) {
	var created models.Course
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ownerID := actor.ID
		if in.Instructor != "" {
			instructor, err := resolveInstructor(tx, in.Instructor)
			if err != nil {
				return err
			}
			if !actor.IsAdmin() && instructor.ID != actor.ID {
				return utils.ErrForbidden("Only admins can assign another instructor")
			}
			ownerID = instructor.ID
		}

		created = models.Course{
			Title:            strings.TrimSpace(in.Title),
			Description:      in.Description,
			ShortDescription: in.ShortDescription,
			Category:         in.Category,
			Thumbnail:        in.Thumbnail,
			InstructorID:     ownerID,
			Content:          buildContent(in.Content),
			Prerequisites:    datatypes.NewJSONSlice(nonNil(in.Prerequisites)),
			IsPublished:      in.IsPublished,
		}
		if err := tx.Create(&created).Error; err != nil {
			return utils.ErrInternal(err, "creating course")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	view, _, err := s.Get(ctx, created.ID, nil)
	return view, err
}

func (s *CourseService) Update(ctx context.Context, actor *models.User, id uint, in UpdateCourseInput) (*CourseView, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		course, err := findCourse(ctx, tx, id, false)
		if err != nil {
			return err
		}
		if course.InstructorID != actor.ID && !actor.IsAdmin() {
			return utils.ErrForbidden("Not authorized to update this course")
		}

		updates := map[string]interface{}{}
		if in.Title != nil {
			updates["title"] = strings.TrimSpace(*in.Title)
		}
		if in.Description != nil {
			updates["description"] = *in.Description
		}
		if in.ShortDescription != nil {
			updates["short_description"] = *in.ShortDescription
		}
		if in.Category != nil {
			updates["category"] = *in.Category
		}
		if in.Thumbnail != nil {
			updates["thumbnail"] = *in.Thumbnail
		}
		if in.Prerequisites != nil {
			updates["prerequisites"] = datatypes.NewJSONSlice(nonNil(*in.Prerequisites))
		}
		if in.IsPublished != nil {
			updates["is_published"] = *in.IsPublished
		}
		if in.Instructor != nil {
			if !actor.IsAdmin() {
				return utils.ErrForbidden("Only admins can reassign the instructor")
			}
			instructor, err := resolveInstructor(tx, *in.Instructor)
			if err != nil {
				return err
			}
			updates["instructor_id"] = instructor.ID
		}

		if len(updates) > 0 {
			if err := tx.Model(course).Updates(updates).Error; err != nil {
				return utils.ErrInternal(err, "updating course")
			}
		}

		if in.Content != nil {
			if err := tx.Where("course_id = ?", course.ID).Delete(&models.CourseContent{}).Error; err != nil {
				return utils.ErrInternal(err, "replacing course content")
			}
			content := buildContent(*in.Content)
			for i := range content {
				content[i].CourseID = course.ID
			}
			if len(content) > 0 {
				if err := tx.Create(&content).Error; err != nil {
					return utils.ErrInternal(err, "replacing course content")
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	view, _, err := s.Get(ctx, id, nil)
	return view, err
}

// Delete удаляет курс вместе со всем, чем он владеет. Сертификаты остаются.
func (s *CourseService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		course, err := findCourse(ctx, tx, id, false)
		if err != nil {
			return err
		}

		var quizIDs []uint
		if err := tx.Model(&models.Quiz{}).Where("course_id = ?", course.ID).Pluck("id", &quizIDs).Error; err != nil {
			return utils.ErrInternal(err, "deleting course")
		}
		if len(quizIDs) > 0 {
			if err := tx.Where("quiz_id IN ?", quizIDs).Delete(&models.Question{}).Error; err != nil {
				return utils.ErrInternal(err, "deleting course quizzes")
			}
			if err := tx.Where("id IN ?", quizIDs).Delete(&models.Quiz{}).Error; err != nil {
				return utils.ErrInternal(err, "deleting course quizzes")
			}
		}

		owned := []interface{}{
			&models.CourseContent{},
			&models.CourseRating{},
			&models.Enrollment{},
			&models.CourseCompletion{},
			&models.Bookmark{},
		}
		for _, model := range owned {
			if err := tx.Where("course_id = ?", course.ID).Delete(model).Error; err != nil {
				return utils.ErrInternal(err, "deleting course")
			}
		}

		if err := tx.Delete(course).Error; err != nil {
			return utils.ErrInternal(err, "deleting course")
		}
		return nil
	})
}

// Enroll записывает студента на курс. Одна строка enrollments служит
// обеим сторонам связи, поэтому запись атомарна.
func (s *CourseService) Enroll(ctx context.Context, actor *models.User, courseID uint) error {
	if actor.Role != models.RoleStudent {
		return utils.ErrForbidden("Only students can enroll in courses")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findCourse(ctx, tx, courseID, false); err != nil {
			return err
		}

		enrolled, err := isEnrolled(tx, courseID, actor.ID)
		if err != nil {
			return err
		}
		if enrolled {
			return utils.ErrValidation("Already enrolled in this course")
		}

		result := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Enrollment{CourseID: courseID, UserID: actor.ID})
		if result.Error != nil {
			return utils.ErrInternal(result.Error, "enrolling student")
		}
		// Параллельный запрос успел раньше
		if result.RowsAffected == 0 {
			return utils.ErrValidation("Already enrolled in this course")
		}
		return nil
	})
}

// Rate добавляет или обновляет оценку пользователя и пересчитывает агрегат
func (s *CourseService) Rate(ctx context.Context, actor *models.User, courseID uint, rating int) (*RateResult, error) {
	if rating < 1 || rating > 5 {
		return nil, utils.ErrValidation("Rating must be an integer between 1 and 5")
	}

	var summary models.RatingSummary
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findCourse(ctx, tx, courseID, false); err != nil {
			return err
		}

		if actor.Role == models.RoleStudent {
			enrolled, err := isEnrolled(tx, courseID, actor.ID)
			if err != nil {
				return err
			}
			if !enrolled {
				return utils.ErrForbidden("You must be enrolled in this course to rate it")
			}
		}

		record := models.CourseRating{CourseID: courseID, UserID: actor.ID, Rating: rating}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "course_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating", "updated_at"}),
		}).Create(&record).Error
		if err != nil {
			return utils.ErrInternal(err, "saving rating")
		}

		summary, err = recomputeRating(tx, courseID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &RateResult{Rating: summary, UserRating: rating}, nil
}

// RecomputeAllRatings переписывает сохраненные агрегаты всех курсов
func (s *CourseService) RecomputeAllRatings(ctx context.Context) (int, error) {
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&models.Course{}).Pluck("id", &ids).Error; err != nil {
		return 0, errors.Wrap(err, "listing courses")
	}
	for _, id := range ids {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			_, err := recomputeRating(tx, id)
			return err
		})
		if err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

func (s *CourseService) views(ctx context.Context, db *gorm.DB, courses []models.Course) ([]CourseView, error) {
	ids := make([]uint, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}

	members := map[uint][]uint{}
	if len(ids) > 0 {
		var enrollments []models.Enrollment
		if err := db.WithContext(ctx).Where("course_id IN ?", ids).Order("created_at").Find(&enrollments).Error; err != nil {
			return nil, utils.ErrInternal(err, "loading enrollments")
		}
		for _, e := range enrollments {
			members[e.CourseID] = append(members[e.CourseID], e.UserID)
		}
	}

	views := make([]CourseView, 0, len(courses))
	for _, c := range courses {
		values := make([]int, 0, len(c.Ratings))
		for _, r := range c.Ratings {
			values = append(values, r.Rating)
		}
		if c.Content == nil {
			c.Content = []models.CourseContent{}
		}
		if c.Prerequisites == nil {
			c.Prerequisites = datatypes.JSONSlice[string]{}
		}

		view := CourseView{
			Course:           c,
			EnrolledStudents: nonNil(members[c.ID]),
			Rating:           models.ComputeRating(values),
		}
		if c.Instructor.ID != 0 {
			view.Instructor = &InstructorView{ID: c.Instructor.ID, Name: c.Instructor.Name, Email: c.Instructor.Email}
		}
		views = append(views, view)
	}
	return views, nil
}

func preloadCourse(query *gorm.DB) *gorm.DB {
	return query.
		Preload("Instructor").
		Preload("Ratings").
		Preload("Content", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order, id")
		})
}

func findCourse(ctx context.Context, db *gorm.DB, id uint, withRelations bool) (*models.Course, error) {
	query := db.WithContext(ctx)
	if withRelations {
		query = preloadCourse(query)
	}
	var course models.Course
	if err := query.First(&course, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrNotFound("Course not found")
		}
		return nil, utils.ErrInternal(err, "loading course")
	}
	return &course, nil
}

func isEnrolled(db *gorm.DB, courseID, userID uint) (bool, error) {
	var count int64
	err := db.Model(&models.Enrollment{}).
		Where("course_id = ? AND user_id = ?", courseID, userID).
		Count(&count).Error
	if err != nil {
		return false, utils.ErrInternal(err, "checking enrollment")
	}
	return count > 0, nil
}

func recomputeRating(tx *gorm.DB, courseID uint) (models.RatingSummary, error) {
	var values []int
	if err := tx.Model(&models.CourseRating{}).Where("course_id = ?", courseID).Pluck("rating", &values).Error; err != nil {
		return models.RatingSummary{}, utils.ErrInternal(err, "loading ratings")
	}
	summary := models.ComputeRating(values)

	err := tx.Model(&models.Course{}).Where("id = ?", courseID).Updates(map[string]interface{}{
		"rating_count":   summary.Count,
		"rating_average": summary.Average,
	}).Error
	if err != nil {
		return models.RatingSummary{}, utils.ErrInternal(err, "saving rating aggregate")
	}
	return summary, nil
}

func resolveInstructor(db *gorm.DB, ref InstructorRef) (*models.User, error) {
	value := strings.TrimSpace(string(ref))
	var user models.User
	var err error
	if id, convErr := strconv.ParseUint(value, 10, 64); convErr == nil {
		err = db.First(&user, uint(id)).Error
	} else {
		err = db.Where("LOWER(email) = ?", strings.ToLower(value)).First(&user).Error
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrNotFound("Instructor not found")
		}
		return nil, utils.ErrInternal(err, "resolving instructor")
	}
	if user.Role != models.RoleInstructor {
		return nil, utils.ErrValidation("Assigned user must have the instructor role")
	}
	return &user, nil
}

func buildContent(items []ContentInput) []models.CourseContent {
	content := make([]models.CourseContent, 0, len(items))
	for i, item := range items {
		kind := item.Type
		if kind == "" {
			kind = "text"
		}
		order := item.Order
		if order == 0 {
			order = i + 1
		}
		content = append(content, models.CourseContent{
			Title:    item.Title,
			Type:     kind,
			URL:      item.URL,
			Duration: item.Duration,
			Order:    order,
		})
	}
	return content
}

// containsPattern шаблон LIKE для подстроки без учета регистра; %, _ и ! ищутся буквально
func containsPattern(search string) string {
	escaped := likeEscaper.Replace(strings.ToLower(search))
	return "%" + escaped + "%"
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
