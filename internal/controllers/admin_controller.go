package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/plogger/backend/internal/services"
)

// APICallTracker exposes the completion service's call history.
type APICallTracker interface {
	GetAPICalls() []services.LLMAPICall
	ClearAPICalls()
}

// IngestionStatsSource reports pipeline counters.
type IngestionStatsSource interface {
	Stats() services.IngestionStats
}

// SessionCounter reports the number of live conversation sessions.
type SessionCounter interface {
	Len() int
}

type AdminController struct {
	llm       APICallTracker
	ingestion IngestionStatsSource
	sessions  SessionCounter
}

func NewAdminController(llm APICallTracker, ingestion IngestionStatsSource, sessions SessionCounter) *AdminController {
	return &AdminController{llm: llm, ingestion: ingestion, sessions: sessions}
}

// GetLLMAPICalls returns recent completion calls
func (ac *AdminController) GetLLMAPICalls(c *gin.Context) {
	calls := ac.llm.GetAPICalls()
	c.JSON(http.StatusOK, gin.H{
		"calls": calls,
		"total": len(calls),
	})
}

// ClearLLMAPICalls clears the completion call history
func (ac *AdminController) ClearLLMAPICalls(c *gin.Context) {
	ac.llm.ClearAPICalls()
	c.JSON(http.StatusOK, gin.H{"message": "LLM API calls cleared"})
}

func (ac *AdminController) GetIngestionStats(c *gin.Context) {
	c.JSON(http.StatusOK, ac.ingestion.Stats())
}

func (ac *AdminController) GetSessionStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"activeSessions": ac.sessions.Len()})
}
