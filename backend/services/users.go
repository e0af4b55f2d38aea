package services

import (
	"context"
	"strings"

	"potatolearn/backend/models"
	"potatolearn/backend/utils"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type RegisterInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateUserInput struct {
	Name            *string `json:"name" validate:"omitempty,min=1"`
	ProfilePicture  *string `json:"profilePicture"`
	Role            *string `json:"role"`
	Password        string  `json:"password"`
	ConfirmPassword string  `json:"confirmPassword"`
}

type UserFilter struct {
	Role   string
	Search string
}

// CourseSummary короткая карточка курса для профиля и закладок
type CourseSummary struct {
	ID               uint            `json:"id"`
	Title            string          `json:"title"`
	ShortDescription string          `json:"shortDescription"`
	Category         string          `json:"category"`
	Thumbnail        string          `json:"thumbnail"`
	Instructor       *InstructorView `json:"instructor,omitempty"`
}

type Profile struct {
	models.User
	EnrolledCourses  []CourseSummary `json:"enrolledCourses"`
	CompletedCourses []CourseSummary `json:"completedCourses"`
	Bookmarks        []CourseSummary `json:"bookmarks"`
}

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// Register создает аккаунт. Роль admin при регистрации недоступна.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := normalizeEmail(in.Email)

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, utils.ErrInternal(err, "checking email")
	}
	if count > 0 {
		return nil, utils.ErrValidation("User already exists")
	}

	role := models.RoleStudent
	if in.Role == models.RoleInstructor {
		role = models.RoleInstructor
	}

	user := models.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    email,
		Role:     role,
		IsActive: true,
	}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, utils.ErrInternal(err, "hashing password")
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, utils.ErrInternal(err, "creating user")
	}
	return &user, nil
}

func (s *UserService) Authenticate(ctx context.Context, in LoginInput) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(in.Email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrUnauthorized("Invalid credentials")
		}
		return nil, utils.ErrInternal(err, "loading user")
	}

	if !user.CheckPassword(in.Password) {
		return nil, utils.ErrUnauthorized("Invalid credentials")
	}
	if !user.IsActive {
		return nil, utils.ErrForbidden("Account is deactivated")
	}
	return &user, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrNotFound("User not found")
		}
		return nil, utils.ErrInternal(err, "loading user")
	}
	return &user, nil
}

// Profile пользователь со всеми тремя наборами курсов
func (s *UserService) Profile(ctx context.Context, id uint) (*Profile, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	profile := &Profile{User: *user}
	sets := []struct {
		table string
		out   *[]CourseSummary
	}{
		{"enrollments", &profile.EnrolledCourses},
		{"course_completions", &profile.CompletedCourses},
		{"bookmarks", &profile.Bookmarks},
	}
	for _, set := range sets {
		courses, err := coursesVia(ctx, s.db, set.table, id)
		if err != nil {
			return nil, err
		}
		*set.out = courses
	}
	return profile, nil
}

func (s *UserService) List(ctx context.Context, filter UserFilter) ([]models.User, error) {
	query := s.db.WithContext(ctx).Model(&models.User{})
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern)
	}

	var users []models.User
	if err := query.Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, utils.ErrInternal(err, "listing users")
	}
	return users, nil
}

// Update меняет профиль. Email не меняется, роль меняет только админ.
func (s *UserService) Update(ctx context.Context, actor *models.User, id uint, in UpdateUserInput) (*models.User, error) {
	if actor.ID != id && !actor.IsAdmin() {
		return nil, utils.ErrForbidden("Not authorized to update this user")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = strings.TrimSpace(*in.Name)
	}
	if in.ProfilePicture != nil {
		updates["profile_picture"] = *in.ProfilePicture
	}
	if in.Role != nil && actor.IsAdmin() {
		if !models.IsValidRole(*in.Role) {
			return nil, utils.ErrValidation("Invalid role")
		}
		updates["role"] = *in.Role
	}
	if in.Password != "" || in.ConfirmPassword != "" {
		if in.Password != in.ConfirmPassword {
			return nil, utils.ErrValidation("New passwords do not match")
		}
		if len(in.Password) < 6 {
			return nil, utils.ErrValidation("Password must be at least 6 characters")
		}
		if err := user.SetPassword(in.Password); err != nil {
			return nil, utils.ErrInternal(err, "hashing password")
		}
		updates["password_hash"] = user.PasswordHash
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
			return nil, utils.ErrInternal(err, "updating user")
		}
	}
	return s.Get(ctx, id)
}

// SetActive включает или выключает аккаунт, пользователи не удаляются физически
func (s *UserService) SetActive(ctx context.Context, id uint, active bool) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("is_active", active).Error; err != nil {
		return nil, utils.ErrInternal(err, "updating user status")
	}
	user.IsActive = active
	return user, nil
}

// coursesVia читает курсы через одну из таблиц связей пользователя
func coursesVia(ctx context.Context, db *gorm.DB, table string, userID uint) ([]CourseSummary, error) {
	var courses []models.Course
	err := db.WithContext(ctx).
		Preload("Instructor").
		Joins("JOIN "+table+" ON "+table+".course_id = courses.id").
		Where(table+".user_id = ?", userID).
		Order(table + ".created_at").
		Find(&courses).Error
	if err != nil {
		return nil, utils.ErrInternal(err, "loading "+table)
	}

	summaries := make([]CourseSummary, 0, len(courses))
	for _, c := range courses {
		summary := CourseSummary{
			ID:               c.ID,
			Title:            c.Title,
			ShortDescription: c.ShortDescription,
			Category:         c.Category,
			Thumbnail:        c.Thumbnail,
		}
		if c.Instructor.ID != 0 {
			summary.Instructor = &InstructorView{ID: c.Instructor.ID, Name: c.Instructor.Name, Email: c.Instructor.Email}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
