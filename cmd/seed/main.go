package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/plogger/backend/internal/config"
	"github.com/plogger/backend/internal/db"
	"github.com/plogger/backend/internal/logger"
	"github.com/plogger/backend/internal/models"
	"github.com/plogger/backend/internal/services"
	"github.com/plogger/backend/internal/store"
	"golang.org/x/crypto/bcrypt"
)

const defaultSeedFile = "data/seed.json"

// SeedUser is a demo account. ID is optional; logs reference accounts by it.
type SeedUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// SeedData is the layout of the seed file.
type SeedData struct {
	Users []SeedUser         `json:"users"`
	Logs  []models.LogRecord `json:"logs"`
}

type accountStore interface {
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
}

type logIngester interface {
	Ingest(ctx context.Context, batchID string, batch []models.LogRecord) error
}

func main() {
	cfg, dotenv, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}
	logger.Initialize(cfg.LogLevel, "")
	if !dotenv {
		logger.Warn("No .env file found, using system environment variables", nil)
	}

	path := defaultSeedFile
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	data, err := loadSeedData(path)
	if err != nil {
		logger.Fatal("Failed to read seed file", map[string]interface{}{"path": path, "error": err.Error()})
	}

	conn, err := db.Connect(cfg.DatabaseURL, cfg.DBLogLevel)
	if err != nil {
		logger.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}
	defer db.Close(conn)

	if err := db.AutoMigrate(conn); err != nil {
		logger.Fatal("Migration failed", map[string]interface{}{"error": err.Error()})
	}

	logStore := store.NewLogStore(conn)
	embeddings := services.NewEmbeddingProvider(
		services.NewLangchainEmbedderLoader(cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModel),
		models.EmbeddingDimension,
		cfg.EmbeddingTimeout,
	)
	pipeline, err := services.NewIngestionPipeline(logStore, embeddings, 1, 0)
	if err != nil {
		logger.Fatal("Failed to create ingestion pipeline", map[string]interface{}{"error": err.Error()})
	}
	defer pipeline.Release(0)

	ctx := context.Background()
	created, err := seedAccounts(ctx, logStore, data.Users)
	if err != nil {
		logger.Fatal("Failed to seed accounts", map[string]interface{}{"error": err.Error()})
	}
	if err := seedLogs(ctx, pipeline, data.Logs); err != nil {
		logger.Fatal("Failed to seed logs", map[string]interface{}{"error": err.Error()})
	}

	logger.Info("Database seeding completed successfully", map[string]interface{}{
		"accounts_created": created,
		"logs":             len(data.Logs),
	})
}

func loadSeedData(path string) (*SeedData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data SeedData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("invalid seed file: %w", err)
	}
	return &data, nil
}

// seedAccounts creates every account whose username is not taken yet.
func seedAccounts(ctx context.Context, accounts accountStore, users []SeedUser) (int, error) {
	created := 0
	for _, u := range users {
		if _, err := accounts.FindUserByUsername(ctx, u.Username); err == nil {
			logger.Info("User already exists", map[string]interface{}{"username": u.Username})
			continue
		} else if !errors.Is(err, store.ErrNotFound) {
			return created, err
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return created, fmt.Errorf("hashing password for %s: %w", u.Username, err)
		}

		id := u.ID
		if id == "" {
			id = uuid.NewString()
		}
		username := u.Username
		user := models.User{ID: id, Username: &username, PasswordHash: string(hashedPassword)}
		if err := accounts.CreateUser(ctx, &user); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				continue
			}
			return created, fmt.Errorf("creating user %s: %w", u.Username, err)
		}
		created++
		logger.Info("Created user", map[string]interface{}{"username": u.Username, "user_id": id})
	}
	return created, nil
}

// seedLogs ingests the sample logs synchronously as one batch.
func seedLogs(ctx context.Context, ingester logIngester, records []models.LogRecord) error {
	if len(records) == 0 {
		return nil
	}
	return ingester.Ingest(ctx, "seed-"+uuid.NewString(), records)
}
