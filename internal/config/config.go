package config

import (
	"fmt"
	"os"
)

// Config holds all configuration for our application
type Config struct {
	Port        string
	Origin      string
	Environment string
	Database    DatabaseConfig
	// WebhookURL is the external automation endpoint lifecycle events are
	// posted to. Empty disables dispatch.
	WebhookURL string
	// ReminderSweepCron schedules the reminder sweep job. Empty disables it.
	ReminderSweepCron string
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "3306"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "citas"),
	}

	// Build DSN (Data Source Name) for MySQL connection
	dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)

	return &Config{
		Port:              getEnv("PORT", "3001"),
		Origin:            getEnv("ORIGIN", "http://localhost:4200"),
		Environment:       getEnv("NODE_ENV", "development"),
		Database:          dbConfig,
		WebhookURL:        getEnv("WEBHOOK_URL", ""),
		ReminderSweepCron: getEnv("REMINDER_SWEEP_CRON", ""),
	}, nil
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
