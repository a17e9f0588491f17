package main

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"mailpilot/config"
	controller "mailpilot/controllers"
	"mailpilot/engine"
	"mailpilot/middleware"
	"mailpilot/routes"
	"mailpilot/store"
	"mailpilot/utils"
	"mailpilot/worker"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.WithError(err).Warn("Sentry initialization failed")
		}
		defer sentry.Flush(2 * time.Second)
	}

	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Shared services
	clock := engine.SystemClock()
	gormStore := store.NewGormStore(config.DB)
	mailer := utils.NewMailer(&config.AppConfig)
	llm := utils.NewLLMClient(&config.AppConfig)

	followUpService := engine.NewFollowUpService(gormStore, clock)
	insightGenerator := engine.NewInsightGenerator(gormStore, clock)
	sequenceEngine := engine.NewSequenceEngine(gormStore, mailer, clock, logger)

	hub := controller.NewProgressHub()
	sequenceEngine.SetNotifier(hub.Notify)

	// Background workers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.NewSequenceWorker(sequenceEngine, config.AppConfig.SequenceTickInterval, logger).Start(ctx)
	go worker.NewInsightWorker(config.DB, insightGenerator, config.AppConfig.InsightInterval, logger).Start(ctx)
	go worker.NewInboxWorker(config.DB, config.AppConfig.InboxSyncInterval, logger).Start(ctx)

	app := fiber.New()
	app.Use(recover.New())
	app.Use(middleware.CORS())

	routes.SetupRoutes(app, config.DB, routes.Deps{
		FollowUps: followUpService,
		Insights:  insightGenerator,
		Clock:     clock,
		LLM:       llm,
		Hub:       hub,
	})

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	logger.Infof("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
