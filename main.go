package main

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"wushuacademy_go/config"
	"wushuacademy_go/controllers"
	"wushuacademy_go/database"
	"wushuacademy_go/database/seeders"
	"wushuacademy_go/middleware"
	"wushuacademy_go/routes"
	"wushuacademy_go/services/invoice"
	"wushuacademy_go/services/livefeed"
	"wushuacademy_go/services/mailer"
	"wushuacademy_go/services/registration"
	"wushuacademy_go/services/stats"
	"wushuacademy_go/storage"
	"wushuacademy_go/store/gormstore"
	"wushuacademy_go/store/jsonfile"
)

func init() {
	setupLogging()

	config.LoadConfig()

	database.Connect()

	if db := database.GetDB(); db != nil {
		if err := seeders.SeedAdminUsers(db); err != nil {
			log.Printf("Warning: admin seeding failed: %v", err)
		}
	}
}

func main() {
	// Pick the registration store backing
	var store registration.Store
	switch config.AppConfig.StoreBackend {
	case "jsonfile":
		js, err := jsonfile.Open(config.AppConfig.JSONStorePath)
		if err != nil {
			log.Fatal("Failed to open JSON store:", err)
		}
		store = js
	case "mysql":
		store = gormstore.New(database.GetDB())
	default:
		log.Fatalf("Unknown STORE_BACKEND %q (expected mysql or jsonfile)", config.AppConfig.StoreBackend)
	}

	regService := registration.NewService(store)
	mailService := mailer.NewService()
	hub := livefeed.NewHub()

	var storageService *storage.StorageService
	if config.AppConfig.EnableReceiptArchive {
		var err error
		storageService, err = storage.NewStorageService()
		if err != nil {
			log.Printf("Warning: receipt archiving disabled: %v", err)
		}
	}

	// Background workers
	if config.AppConfig.UseRedisEmailQueue {
		stopMail := make(chan struct{})
		go mailService.StartWorker(stopMail)
	}
	if db := database.GetDB(); db != nil {
		statsService := stats.NewService(db)
		statsService.StartScheduler()
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    25 * 1024 * 1024, // signature + receipt + PDF data URIs
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(middleware.LoggerMiddleware())

	ctrl := routes.Controllers{
		Registrations: controllers.NewRegistrationController(regService, mailService, hub, storageService),
		Invoices:      controllers.NewInvoiceController(regService, invoice.NewHTMLRenderer()),
		Export:        controllers.NewExportController(regService),
		WebSocket:     controllers.NewWebSocketController(hub),
	}
	if db := database.GetDB(); db != nil {
		ctrl.Stats = controllers.NewStatsController(stats.NewService(db))
	} else {
		ctrl.Stats = controllers.NewStatsController(nil)
	}

	routes.SetupRoutes(app, ctrl)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "Route not found",
			"path":    c.Path(),
			"method":  c.Method(),
		})
	})

	log.Printf("Server starting on port %s (env=%s, store=%s)",
		config.AppConfig.Port, config.AppConfig.AppEnv, config.AppConfig.StoreBackend)

	if err := app.Listen(":" + config.AppConfig.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// setupLogging configures the logging system
func setupLogging() {
	if err := os.MkdirAll("logs", 0755); err != nil {
		log.Printf("Warning: Could not create logs directory: %v", err)
	}

	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	if os.Getenv("APP_ENV") == "development" {
		logrus.SetOutput(os.Stdout)
	} else {
		file, err := os.OpenFile("logs/app.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			logrus.SetOutput(file)
		}
	}
}

// customErrorHandler handles application errors
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	logrus.WithFields(logrus.Fields{
		"error":  err.Error(),
		"path":   c.Path(),
		"method": c.Method(),
		"ip":     c.IP(),
		"status": code,
	}).Error("Request error")

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   message,
		"code":    code,
	})
}
