package db

import (
	"fmt"
	"strings"

	"github.com/plogger/backend/internal/logger"
	"github.com/plogger/backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect opens the postgres connection pool.
func Connect(dsn, logLevel string) (*gorm.DB, error) {
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(parseLogLevel(logLevel)),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Info("Database connected successfully", nil)
	return conn, nil
}

func parseLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "warn":
		return gormlogger.Warn
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Error
	}
}

// AutoMigrate enables pgvector, migrates the schema and builds the similarity index.
func AutoMigrate(conn *gorm.DB) error {
	if err := conn.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("failed to enable pgvector extension: %w", err)
	}
	logger.Info("pgvector extension ready", nil)

	if err := conn.AutoMigrate(&models.User{}); err != nil {
		return fmt.Errorf("user migration failed: %w", err)
	}
	logger.Info("User table migrated successfully", nil)

	if err := conn.AutoMigrate(&models.LogEntry{}); err != nil {
		return fmt.Errorf("log entry migration failed: %w", err)
	}
	logger.Info("LogEntry table migrated successfully", nil)

	if err := conn.Exec(embeddingIndexSQL).Error; err != nil {
		return fmt.Errorf("failed to create embedding index: %w", err)
	}
	logger.Info("All database migrations completed successfully", nil)
	return nil
}

// Cosine distance matches the `<=>` operator used by the retrieval query.
const embeddingIndexSQL = `CREATE INDEX IF NOT EXISTS idx_logs_embedding_hnsw ON logs USING hnsw (embedding vector_cosine_ops)`

// Ping reports whether the connection pool can reach the database.
func Ping(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("database connection not initialized")
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close releases the underlying connection pool.
func Close(conn *gorm.DB) error {
	if conn == nil {
		return nil
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
