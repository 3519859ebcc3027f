package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"schooldesk_go/config"
	"schooldesk_go/controllers"
	"schooldesk_go/database"
	"schooldesk_go/database/seeders"
	"schooldesk_go/handlers"
	"schooldesk_go/middleware"
	"schooldesk_go/routes"
	"schooldesk_go/services/activity"
	"schooldesk_go/services/attendance"
	"schooldesk_go/services/earlyleave"
	"schooldesk_go/services/feedback"
	"schooldesk_go/services/fees"
	"schooldesk_go/services/health"
	"schooldesk_go/services/leaves"
	"schooldesk_go/services/marks"
	"schooldesk_go/services/messaging"
	"schooldesk_go/services/notifications"
	"schooldesk_go/services/people"
	"schooldesk_go/services/scheduler"
	"schooldesk_go/services/stats"
	"schooldesk_go/services/websocket"
	"schooldesk_go/storage"
	"schooldesk_go/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

func main() {
	config.LoadConfig()
	cfg := config.AppConfig
	setupLogging(cfg)

	if err := database.Connect(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.Close()

	ctx := context.Background()
	repo := store.NewGormStore(database.DB)
	rdb := database.GetRedisClient()
	stop := make(chan struct{})

	gateway := messaging.NewGatewayFromConfig(cfg)

	hub := websocket.NewHub()
	go hub.Run(stop)

	notifService := notifications.NewService(repo, rdb, cfg.UseRedisNotifications, hub)
	notifService.StartWorker(stop)

	peopleService := people.NewService(repo, cfg.PhoneCountryCode)
	feeEngine := fees.NewEngine(repo, gateway,
		fees.WithRetryLimit(cfg.PaymentRetryLimit),
		fees.WithNotifyTimeout(cfg.NotificationTimeout),
	)
	earlyLeaveService := earlyleave.NewService(repo, gateway, earlyleave.WithNotifyTimeout(cfg.NotificationTimeout))
	recorder := activity.NewRecorder(repo, rdb)

	var objects activity.ObjectStore
	if cfg.S3BucketName != "" {
		if s3Store, err := activity.NewS3Store(ctx, cfg.AWSRegion, cfg.S3BucketName); err != nil {
			logrus.WithError(err).Warn("Log archive storage unavailable; archiving disabled")
		} else {
			objects = s3Store
		}
	}
	archiver := activity.NewArchiver(repo, objects)

	var photos controllers.PhotoUploader
	if cfg.S3BucketName != "" {
		if svc, err := storage.NewStorageService(cfg.AWSRegion, cfg.S3BucketName); err != nil {
			logrus.WithError(err).Warn("Photo storage unavailable; uploads disabled")
		} else {
			photos = svc
		}
	}

	auth := middleware.NewAuth(cfg.JWTSecret, cfg.JWTExpiresIn, repo, middleware.NewTokenBlacklist(rdb))

	var lineWebhook *handlers.LineWebhookHandler
	if cfg.LineChannelSecret != "" && cfg.LineChannelToken != "" {
		if replier, err := handlers.NewBotReplier(cfg.LineChannelSecret, cfg.LineChannelToken); err != nil {
			logrus.WithError(err).Warn("LINE webhook disabled")
		} else {
			lineWebhook = handlers.NewLineWebhookHandler(cfg.LineChannelSecret, peopleService, replier)
		}
	}

	seeders.SeedAll(ctx, cfg, peopleService)

	schedules := scheduler.NewScheduleManager(time.Local)
	var logArchiver scheduler.LogArchiver
	if objects != nil {
		logArchiver = archiver
	}
	for _, job := range scheduler.MaintenanceJobs(feeEngine, recorder, logArchiver, cfg.LogArchiveDays) {
		if err := schedules.Register(job); err != nil {
			logrus.WithError(err).WithField("job", job.Name).Fatal("Failed to register job")
		}
	}
	schedules.Start()

	app := fiber.New(fiber.Config{
		ErrorHandler: controllers.ErrorHandler,
		BodyLimit:    int(storage.MaxPhotoSize) * 2,
	})

	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Request-ID",
	}))
	app.Use(middleware.RequestID())
	app.Use(middleware.LoggerMiddleware())

	routes.SetupRoutes(app, routes.Deps{
		Auth:          auth,
		People:        peopleService,
		Fees:          feeEngine,
		Attendance:    attendance.NewService(repo),
		Marks:         marks.NewService(repo),
		Leaves:        leaves.NewService(repo, notifService),
		Feedback:      feedback.NewService(repo, notifService),
		EarlyLeave:    earlyLeaveService,
		Stats:         stats.NewService(repo),
		Notifications: notifService,
		Recorder:      recorder,
		Archiver:      archiver,
		Hub:           hub,
		Health:        health.NewChecker("SchoolDesk API", cfg.AppEnv, database.DB, rdb, cfg.UseRedisNotifications, hub),
		Photos:        photos,
		LineWebhook:   lineWebhook,
		ArchiveDays:   cfg.LogArchiveDays,
	})

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":  "Route not found",
			"path":   c.Path(),
			"method": c.Method(),
		})
	})

	go func() {
		logrus.WithFields(logrus.Fields{"port": cfg.Port, "env": cfg.AppEnv}).Info("Server starting")
		if err := app.Listen(":" + cfg.Port); err != nil {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown incomplete")
	}
	close(stop)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	schedules.Stop(shutdownCtx)
	if n, err := recorder.Flush(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("Final activity log flush failed")
	} else if n > 0 {
		logrus.WithField("count", n).Info("Flushed cached activity logs")
	}
}

// setupLogging logs JSON to stdout in development and to LogFile elsewhere.
func setupLogging(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}
	if cfg.AppEnv == "development" || cfg.LogFile == "" {
		logrus.SetOutput(os.Stdout)
		return
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		logrus.WithError(err).Warn("Could not create log directory")
		return
	}
	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		logrus.WithError(err).Warn("Could not open log file, logging to stdout")
		return
	}
	logrus.SetOutput(file)
}

