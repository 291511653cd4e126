package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/plogger/backend/internal/logger"
	"github.com/plogger/backend/internal/middleware"
	"github.com/plogger/backend/internal/services"
)

// statusClientClosedRequest is written when the caller disconnected mid-turn.
const statusClientClosedRequest = 499

// ChatAnswerer runs conversation turns and tears down sessions.
type ChatAnswerer interface {
	Answer(ctx context.Context, userID, sessionID, query string) (*services.ChatResponse, error)
	ClearSession(sessionID string)
}

type ChatController struct {
	chat ChatAnswerer
}

func NewChatController(chat ChatAnswerer) *ChatController {
	return &ChatController{chat: chat}
}

type QueryRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Query     string `json:"query" binding:"required"`
}

// Query answers a question about the caller's own logs.
func (cc *ChatController) Query(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := cc.chat.Answer(c.Request.Context(), userID, req.SessionID, req.Query)
	if err != nil {
		status, message := chatErrorStatus(err)
		if status == statusClientClosedRequest {
			c.AbortWithStatus(status)
			return
		}
		c.JSON(status, gin.H{"error": message})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ClearSession drops a session's memory. Unknown ids succeed too.
func (cc *ChatController) ClearSession(c *gin.Context) {
	sessionID := c.Param("session_id")
	cc.chat.ClearSession(sessionID)
	logger.Debug("Session clear requested", map[string]interface{}{"session_id": sessionID})
	c.Status(http.StatusNoContent)
}

func chatErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "The model did not answer in time"
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest, ""
	case errors.Is(err, services.ErrModelUnavailable):
		return http.StatusServiceUnavailable, "Embedding model is unavailable"
	case errors.Is(err, services.ErrGenerationFailure), errors.Is(err, services.ErrEmbeddingFailure):
		return http.StatusBadGateway, "Upstream model request failed"
	default:
		return http.StatusInternalServerError, "Failed to answer query"
	}
}
