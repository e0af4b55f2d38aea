package database

import (
	"context"
	"log"

	"potatolearn/backend/config"
	"potatolearn/backend/models"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type sampleCourse struct {
	Title            string
	Description      string
	ShortDescription string
	Category         string
	Lessons          []string
}

var sampleCourses = []sampleCourse{
	{
		Title:            "Introduction to Web Development",
		Description:      "Learn the fundamentals of web development including HTML, CSS, and JavaScript. Perfect for beginners who want to start their coding journey.",
		ShortDescription: "Learn HTML, CSS, and JavaScript basics",
		Category:         "Web Development",
		Lessons:          []string{"HTML Basics", "CSS Styling", "JavaScript Fundamentals"},
	},
	{
		Title:            "React.js Crash Course",
		Description:      "Master React fundamentals and build modern web applications. Learn components, state management, and hooks.",
		ShortDescription: "Master React fundamentals",
		Category:         "Web Development",
		Lessons:          []string{"React Components", "State and Props", "React Hooks"},
	},
	{
		Title:            "Node.js Backend Development",
		Description:      "Build server-side applications with Node.js and Express. Learn REST APIs, authentication, and database integration.",
		ShortDescription: "Build server-side applications",
		Category:         "Backend Development",
		Lessons:          []string{"Node.js Basics", "Express Framework", "MongoDB Integration"},
	},
}

func sampleQuestions() []models.Question {
	return []models.Question{
		{
			Position:      0,
			QuestionText:  "What does HTML stand for?",
			Options:       datatypes.NewJSONSlice([]string{"HyperText Markup Language", "HighText Machine Language", "Hyperlinks and Text Markup", "Home Tool Markup Language"}),
			CorrectAnswer: 0,
			Points:        1,
		},
		{
			Position:      1,
			QuestionText:  "Which company developed React?",
			Options:       datatypes.NewJSONSlice([]string{"Google", "Facebook", "Microsoft", "Mozilla"}),
			CorrectAnswer: 1,
			Points:        1,
		},
	}
}

// Seed заполняет пустую базу: админ, демо-курсы и по тесту на каждый курс без тестов
func Seed(ctx context.Context, db *gorm.DB, cfg *config.Config, logger *log.Logger) error {
	db = db.WithContext(ctx)

	var userCount, courseCount int64
	if err := db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		return errors.Wrap(err, "counting users")
	}
	if err := db.Model(&models.Course{}).Count(&courseCount).Error; err != nil {
		return errors.Wrap(err, "counting courses")
	}
	logger.Printf("database has %d users and %d courses", userCount, courseCount)

	if userCount == 0 {
		admin := models.User{
			Name:     "Admin User",
			Email:    cfg.AdminEmail,
			Role:     models.RoleAdmin,
			IsActive: true,
		}
		if err := admin.SetPassword(cfg.AdminPassword); err != nil {
			return errors.Wrap(err, "hashing admin password")
		}
		if err := db.Create(&admin).Error; err != nil {
			return errors.Wrap(err, "creating admin")
		}
		logger.Printf("default admin created: %s", admin.Email)
	}

	if courseCount == 0 {
		var admin models.User
		if err := db.Where("email = ?", cfg.AdminEmail).First(&admin).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				logger.Printf("no admin %s found to own sample courses", cfg.AdminEmail)
				return nil
			}
			return errors.Wrap(err, "loading admin")
		}

		for _, sample := range sampleCourses {
			course := models.Course{
				Title:            sample.Title,
				Description:      sample.Description,
				ShortDescription: sample.ShortDescription,
				Category:         sample.Category,
				InstructorID:     admin.ID,
				Prerequisites:    datatypes.JSONSlice[string]{},
				IsPublished:      true,
			}
			for i, lesson := range sample.Lessons {
				course.Content = append(course.Content, models.CourseContent{Title: lesson, Type: "text", Order: i + 1})
			}
			if err := db.Create(&course).Error; err != nil {
				return errors.Wrapf(err, "creating sample course %q", sample.Title)
			}
		}
		logger.Printf("created %d sample courses", len(sampleCourses))
	}

	created, err := ensureQuizzes(db, logger)
	if err != nil {
		return err
	}
	if created > 0 {
		logger.Printf("created %d sample quizzes", created)
	}
	return nil
}

// ensureQuizzes добавляет демо-тест каждому курсу, у которого тестов нет
func ensureQuizzes(db *gorm.DB, logger *log.Logger) (int, error) {
	var courses []models.Course
	err := db.Where("NOT EXISTS (SELECT 1 FROM quizzes WHERE quizzes.course_id = courses.id)").Find(&courses).Error
	if err != nil {
		return 0, errors.Wrap(err, "finding courses without quizzes")
	}

	created := 0
	for _, course := range courses {
		quiz := models.Quiz{
			Title:        "Quiz: " + course.Title,
			CourseID:     course.ID,
			Questions:    sampleQuestions(),
			TimeLimit:    10,
			PassingScore: 50,
			MaxAttempts:  models.DefaultMaxAttempts,
		}
		if err := db.Create(&quiz).Error; err != nil {
			logger.Printf("sample quiz for course %q not created: %v", course.Title, err)
			continue
		}
		created++
	}
	return created, nil
}
