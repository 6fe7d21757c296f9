// Package api exposes the HTTP trigger surface. A single endpoint starts one
// processing run and reports its outcome; scheduling is left to the caller
// (cron, uptime pinger, or the daemon's own ticker).
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alexkarev/pricewatch/internal/logger"
	"github.com/alexkarev/pricewatch/internal/models"
)

// Runner starts one processing run.
type Runner interface {
	Run(ctx context.Context) (models.RunSummary, error)
}

// Handler serves the trigger endpoints.
type Handler struct {
	runner Runner
}

// NewHandler creates a Handler around the given runner.
func NewHandler(runner Runner) *Handler {
	return &Handler{runner: runner}
}

// Register mounts the trigger routes on the engine.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/api/cron", h.TriggerRun)
	r.GET("/healthz", h.Health)
}

// TriggerRun starts one run and reports the structured outcome.
func (h *Handler) TriggerRun(c *gin.Context) {
	summary, err := h.runner.Run(c.Request.Context())
	if err != nil {
		logger.Error("Triggered run failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if summary.Total == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "No products fetched"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Ok",
		"data":    "Processing completed",
	})
}

// Health is a liveness probe.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
