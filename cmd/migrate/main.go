package main

import (
	"github.com/plogger/backend/internal/config"
	"github.com/plogger/backend/internal/db"
	"github.com/plogger/backend/internal/logger"
)

func main() {
	cfg, dotenv, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}
	logger.Initialize(cfg.LogLevel, "")
	if !dotenv {
		logger.Warn("No .env file found, using system environment variables", nil)
	}

	conn, err := db.Connect(cfg.DatabaseURL, cfg.DBLogLevel)
	if err != nil {
		logger.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}
	defer db.Close(conn)

	logger.Info("Running database migrations...", nil)
	if err := db.AutoMigrate(conn); err != nil {
		logger.Fatal("Migration failed", map[string]interface{}{"error": err.Error()})
	}
	logger.Info("Database migrations completed successfully", nil)
}
