package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"potatolearn/backend/certificates"
	"potatolearn/backend/config"
	"potatolearn/backend/database"
	"potatolearn/backend/maintenance"
	"potatolearn/backend/middleware"
	"potatolearn/backend/routes"
	"potatolearn/backend/services"
	"potatolearn/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize logger
	logger := utils.InitLogger(utils.LoggerConfig{
		Format:       cfg.LogFormat,
		EnableColors: cfg.LogColors,
	})

	// Initialize database
	db, err := utils.InitDB(cfg, logger)
	if err != nil {
		logger.Fatalf("Error initializing database: %v", err)
	}
	defer utils.CloseDB(db)

	if cfg.SeedOnStart {
		if err := database.Seed(context.Background(), db, cfg, logger); err != nil {
			logger.Fatalf("Error seeding database: %v", err)
		}
	}

	// Хранилище файлов сертификатов
	var store certificates.Store
	switch cfg.CertificateStore {
	case "gridfs":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		gridfs, err := certificates.NewGridFSStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
		cancel()
		if err != nil {
			logger.Fatalf("Error connecting to MongoDB: %v", err)
		}
		defer gridfs.Close(context.Background())
		store = gridfs
	default:
		disk, err := certificates.NewDiskStore(cfg.UploadDir)
		if err != nil {
			logger.Fatalf("Error preparing upload dir: %v", err)
		}
		store = disk
	}

	issuer := certificates.NewIssuer(db, store, certificates.DefaultChain(), logger)
	quizzes := services.NewQuizService(db, issuer)
	certs := services.NewCertificateService(db, store, logger)
	svc := routes.NewServices(db, quizzes, certs)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Potato Learn",
		ErrorHandler: utils.ErrorHandler(logger),
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))
	app.Use(middleware.LoggingMiddleware(logger))

	// Setup routes
	routes.SetupRoutes(app, db, cfg, svc)

	if cfg.MaintenanceEnabled {
		scheduler := maintenance.NewScheduler(svc.Courses, certs, logger)
		if err := scheduler.Start(cfg.MaintenanceSchedule); err != nil {
			logger.Fatalf("Error starting maintenance: %v", err)
		}
		defer scheduler.Stop()
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Println("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Printf("shutdown: %v", err)
		}
	}()

	// Start server
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		logger.Printf("server stopped: %v", err)
	}
}
