package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/plogger/backend/internal/models"
	"github.com/plogger/backend/internal/services"
)

// BatchSubmitter schedules a log batch for background ingestion.
type BatchSubmitter interface {
	Submit(batch []models.LogRecord) (string, error)
}

type IngestionController struct {
	pipeline BatchSubmitter
}

func NewIngestionController(pipeline BatchSubmitter) *IngestionController {
	return &IngestionController{pipeline: pipeline}
}

// IngestLogs validates a batch and queues it; processing happens after the response.
func (ic *IngestionController) IngestLogs(c *gin.Context) {
	var batch []models.LogRecord
	if err := c.ShouldBindJSON(&batch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(batch) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Log batch cannot be empty"})
		return
	}

	batchID, err := ic.pipeline.Submit(batch)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrIngestionClosed):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Ingestion is shutting down, retry later"})
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Ingestion is at capacity, retry later"})
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "accepted",
		"batchId": batchID,
		"message": fmt.Sprintf("Queued %d logs for background processing", len(batch)),
	})
}
