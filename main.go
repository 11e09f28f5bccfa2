package main

import (
	"fmt"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/citasalud/citas-server/internal/config"
	"github.com/citasalud/citas-server/internal/middleware"
	"github.com/citasalud/citas-server/internal/models"
	"github.com/citasalud/citas-server/internal/notifier"
	"github.com/citasalud/citas-server/internal/reminders"
	"github.com/citasalud/citas-server/internal/routes"
	"github.com/citasalud/citas-server/internal/store"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "citas-server").Logger()

	// Load environment variables; a missing .env just means the environment
	// is already set (containers, CI).
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg("no .env file loaded")
	}

	// Initialize configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("error loading config")
	}

	// Initialize database connection
	db, err := models.InitDB(models.DatabaseConfig{DSN: cfg.Database.DSN})
	if err != nil {
		logger.Fatal().Err(err).Msg("error connecting to database")
	}

	st := store.NewGormStore(db)
	n := notifier.New(cfg.WebhookURL, logger)
	if !n.Enabled() {
		logger.Info().Msg("webhook dispatch disabled: WEBHOOK_URL not set")
	}

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestLogger(logger), gin.Recovery())

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	// Set up routes
	routes.SetupRoutes(router, st, n)

	// Start the reminder sweep when scheduled
	if cfg.ReminderSweepCron != "" {
		sweeper := reminders.New(st, n, logger)
		cronJob, err := sweeper.Start(cfg.ReminderSweepCron)
		if err != nil {
			logger.Fatal().Err(err).Str("cron", cfg.ReminderSweepCron).Msg("invalid reminder sweep schedule")
		}
		defer cronJob.Stop()
		logger.Info().Str("cron", cfg.ReminderSweepCron).Msg("reminder sweep scheduled")
	}

	// Start server
	serverAddr := fmt.Sprintf(":%s", cfg.Port)
	logger.Info().Str("port", cfg.Port).Msg("server running")
	if err := router.Run(serverAddr); err != nil {
		logger.Fatal().Err(err).Msg("failed to start server")
	}
}
