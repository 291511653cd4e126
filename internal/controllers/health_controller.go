package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const serviceVersion = "1.0.0"

type HealthController struct {
	pingDB func() error
}

func NewHealthController(pingDB func() error) *HealthController {
	return &HealthController{pingDB: pingDB}
}

// Health reports database connectivity; 503 when the database is unreachable.
func (hc *HealthController) Health(c *gin.Context) {
	dbStatus := "ok"
	dbError := ""
	if err := hc.pingDB(); err != nil {
		dbStatus = "error"
		dbError = err.Error()
	}

	overallStatus := "ok"
	statusCode := http.StatusOK
	if dbStatus != "ok" {
		overallStatus = "error"
		statusCode = http.StatusServiceUnavailable
	}

	database := gin.H{"status": dbStatus}
	if dbError != "" {
		database["error"] = dbError
	}

	c.JSON(statusCode, gin.H{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   serviceVersion,
		"services": gin.H{
			"database": database,
		},
	})
}
