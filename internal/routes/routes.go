package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/plogger/backend/internal/controllers"
	"github.com/plogger/backend/internal/middleware"
)

// Handlers groups the controllers served by the router.
type Handlers struct {
	Health    *controllers.HealthController
	Auth      *controllers.AuthController
	Ingestion *controllers.IngestionController
	Chat      *controllers.ChatController
	Admin     *controllers.AdminController
}

// SetupRoutes configures all application routes
func SetupRoutes(r *gin.Engine, h Handlers, jwtSecret string) {
	r.GET("/health", h.Health.Health)

	// Ingestion is called by the client SDK; each record names its owner.
	r.POST("/logs/ingest", h.Ingestion.IngestLogs)

	auth := r.Group("/auth")
	{
		auth.POST("/signup", h.Auth.Signup)
		auth.POST("/login", h.Auth.Login)
		auth.PATCH("/reset-password", h.Auth.ResetPassword)
		auth.GET("/me", middleware.AuthMiddleware(jwtSecret), h.Auth.Me)
	}

	chat := r.Group("/chat")
	{
		chat.POST("/query", middleware.AuthMiddleware(jwtSecret), h.Chat.Query)
		chat.DELETE("/session/:session_id", h.Chat.ClearSession)
	}

	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(jwtSecret))
	{
		admin.GET("/llm-api-calls", h.Admin.GetLLMAPICalls)
		admin.DELETE("/llm-api-calls", h.Admin.ClearLLMAPICalls)
		admin.GET("/ingestion/stats", h.Admin.GetIngestionStats)
		admin.GET("/sessions/stats", h.Admin.GetSessionStats)
	}
}
