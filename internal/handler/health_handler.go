package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ChunkCounter interface {
	Count(ctx context.Context) (int, error)
}

type HealthHandler struct {
	store ChunkCounter
}

func NewHealthHandler(store ChunkCounter) *HealthHandler {
	return &HealthHandler{store: store}
}

func (h *HealthHandler) Healthz(c *gin.Context) {
	count, err := h.store.Count(c.Request.Context())
	if err != nil {
		requestLogger(c).Error("count chunks failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "vector store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "chunks": count})
}
