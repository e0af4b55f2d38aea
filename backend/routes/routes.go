package routes

import (
	"potatolearn/backend/config"
	"potatolearn/backend/controllers"
	"potatolearn/backend/middleware"
	"potatolearn/backend/models"
	"potatolearn/backend/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Services всё, что нужно ручкам, собирается в main
type Services struct {
	Users        *services.UserService
	Courses      *services.CourseService
	Bookmarks    *services.BookmarkService
	Quizzes      *services.QuizService
	Certificates *services.CertificateService
}

func NewServices(db *gorm.DB, quizzes *services.QuizService, certs *services.CertificateService) Services {
	return Services{
		Users:        services.NewUserService(db),
		Courses:      services.NewCourseService(db),
		Bookmarks:    services.NewBookmarkService(db),
		Quizzes:      quizzes,
		Certificates: certs,
	}
}

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, svc Services) {
	api := app.Group("/api")

	api.Get("/test", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "message": "API is working"})
	})

	// Middleware
	protect := middleware.Protect(db, cfg)
	optionalAuth := middleware.OptionalAuth(db, cfg)
	adminOnly := middleware.Authorize(models.RoleAdmin)
	staff := middleware.Authorize(models.RoleInstructor, models.RoleAdmin)
	studentOnly := middleware.Authorize(models.RoleStudent)

	// Auth routes
	authController := controllers.NewAuthController(svc.Users, cfg)
	auth := api.Group("/auth")
	auth.Post("/register", authController.Register)
	auth.Post("/login", authController.Login)
	auth.Get("/me", protect, authController.Me)
	auth.Post("/logout", authController.Logout)

	// User routes
	userController := controllers.NewUserController(svc.Users)
	users := api.Group("/users", protect)
	users.Get("/", adminOnly, userController.GetUsers)
	users.Get("/:id", adminOnly, userController.GetUser)
	users.Put("/:id", userController.UpdateUser)
	users.Delete("/:id", adminOnly, userController.DeactivateUser)
	users.Patch("/:id/active", adminOnly, userController.SetActive)

	// Courses routes
	coursesController := controllers.NewCoursesController(svc.Courses)
	courses := api.Group("/courses")
	courses.Get("/", optionalAuth, coursesController.GetCourses)
	courses.Get("/:id", optionalAuth, coursesController.GetCourse)
	courses.Post("/", protect, staff, coursesController.CreateCourse)
	courses.Put("/:id", protect, staff, coursesController.UpdateCourse)
	courses.Delete("/:id", protect, adminOnly, coursesController.DeleteCourse)
	courses.Post("/:id/enroll", protect, studentOnly, coursesController.Enroll)
	courses.Post("/:id/rate", protect, coursesController.Rate)

	// Quiz routes
	quizController := controllers.NewQuizController(svc.Quizzes)
	quizzes := api.Group("/quizzes", protect)
	quizzes.Get("/course/:courseId", quizController.GetCourseQuizzes)
	quizzes.Get("/:id", quizController.GetQuiz)
	quizzes.Post("/", staff, quizController.CreateQuiz)
	quizzes.Post("/:id/submit", studentOnly, quizController.SubmitQuiz)

	// Bookmarks routes
	bookmarksController := controllers.NewBookmarksController(svc.Bookmarks)
	bookmarks := api.Group("/bookmarks", protect)
	bookmarks.Get("/", bookmarksController.GetBookmarks)
	bookmarks.Post("/:courseId", bookmarksController.AddBookmark)
	bookmarks.Delete("/:courseId", bookmarksController.RemoveBookmark)

	// Certificates routes
	certificatesController := controllers.NewCertificatesController(svc.Certificates)
	certs := api.Group("/certificates", protect)
	certs.Get("/", certificatesController.GetCertificates)
	certs.Get("/:id/download", certificatesController.DownloadCertificate)
	certs.Delete("/:id", certificatesController.DeleteCertificate)

	// Debug routes (admin)
	debugController := controllers.NewDebugController(svc.Quizzes)
	debug := api.Group("/debug", protect, adminOnly)
	debug.Get("/quizzes", debugController.ListQuizzes)
	debug.Post("/quizzes/repair", debugController.RepairQuizzes)

	// сертификаты читаются из Store (диск или GridFS), остальное из статики
	app.Get("/uploads/certificates/:filename", certificatesController.ServeFile)
	app.Static("/uploads", cfg.UploadDir)
}
