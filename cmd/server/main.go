package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/plogger/backend/internal/config"
	"github.com/plogger/backend/internal/controllers"
	"github.com/plogger/backend/internal/db"
	"github.com/plogger/backend/internal/logger"
	"github.com/plogger/backend/internal/middleware"
	"github.com/plogger/backend/internal/models"
	"github.com/plogger/backend/internal/routes"
	"github.com/plogger/backend/internal/scheduler"
	"github.com/plogger/backend/internal/services"
	"github.com/plogger/backend/internal/store"
)

const (
	shutdownGrace      = 30 * time.Second
	ingestDrainTimeout = 30 * time.Second
)

func main() {
	cfg, dotenv, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	logger.Initialize(cfg.LogLevel, cfg.LogFile)
	if !dotenv {
		logger.Warn("No .env file found, using environment variables", nil)
	}

	conn, err := db.Connect(cfg.DatabaseURL, cfg.DBLogLevel)
	if err != nil {
		logger.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}
	if err := db.AutoMigrate(conn); err != nil {
		logger.Fatal("Failed to migrate database", map[string]interface{}{"error": err.Error()})
	}

	logStore := store.NewLogStore(conn)

	// The embedding model loads on the first ingestion or query.
	embeddings := services.NewEmbeddingProvider(
		services.NewLangchainEmbedderLoader(cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModel),
		models.EmbeddingDimension,
		cfg.EmbeddingTimeout,
	)
	llmService := services.NewLLMService(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTemperature, cfg.LLMTimeout)

	pipeline, err := services.NewIngestionPipeline(logStore, embeddings, cfg.IngestWorkers, cfg.IngestQueue)
	if err != nil {
		logger.Fatal("Failed to create ingestion pipeline", map[string]interface{}{"error": err.Error()})
	}
	retriever, err := services.NewRetriever(logStore, cfg.RetrievalTopK)
	if err != nil {
		logger.Fatal("Failed to create retriever", map[string]interface{}{"error": err.Error()})
	}
	sessions := services.NewSessionStore()
	chatService, err := services.NewChatService(sessions, embeddings, retriever, llmService, cfg.RetrievalTopK)
	if err != nil {
		logger.Fatal("Failed to create chat service", map[string]interface{}{"error": err.Error()})
	}

	sched := scheduler.New()
	if err := sched.Every(cfg.SessionSweepInterval, "session-eviction", func(ctx context.Context) {
		sessions.Sweep(cfg.SessionTTL)
	}); err != nil {
		logger.Fatal("Failed to schedule session eviction", map[string]interface{}{"error": err.Error()})
	}
	sched.Start()

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CustomLoggerMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.CORSOrigin))
	r.Use(gin.Recovery())

	routes.SetupRoutes(r, routes.Handlers{
		Health:    controllers.NewHealthController(func() error { return db.Ping(conn) }),
		Auth:      controllers.NewAuthController(logStore, cfg.JWTSecret, cfg.JWTTTL),
		Ingestion: controllers.NewIngestionController(pipeline),
		Chat:      controllers.NewChatController(chatService),
		Admin:     controllers.NewAdminController(llmService, pipeline, sessions),
	}, cfg.JWTSecret)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	logger.Info("Starting PLogger backend server", map[string]interface{}{
		"port":            cfg.Port,
		"gin_mode":        gin.Mode(),
		"ingest_workers":  cfg.IngestWorkers,
		"session_ttl":     cfg.SessionTTL.String(),
		"embedding_model": cfg.EmbeddingModel,
		"llm_model":       cfg.LLMModel,
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan
	logger.Info("Shutting down server gracefully...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	}

	sched.Stop()

	if err := pipeline.Release(ingestDrainTimeout); err != nil {
		logger.Warn("Ingestion workers did not finish in time", map[string]interface{}{"error": err.Error()})
	}
	if err := db.Close(conn); err != nil {
		logger.Warn("Failed to close database", map[string]interface{}{"error": err.Error()})
	}

	logger.Info("Server exited gracefully", nil)
}
