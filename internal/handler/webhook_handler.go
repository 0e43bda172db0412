package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

const (
	maxWebhookBody  = 1 << 20
	headerSignature = "X-Line-Signature"
)

type WebhookService interface {
	HandleWebhook(ctx context.Context, body []byte, signature string) error
}

type WebhookHandler struct {
	chat WebhookService
}

func NewWebhookHandler(chat WebhookService) *WebhookHandler {
	return &WebhookHandler{chat: chat}
}

// Receive answers the platform with the status codes it expects; the
// common response envelope is not used here.
func (h *WebhookHandler) Receive(c *gin.Context) {
	logger := requestLogger(c)
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		logger.Warn("read webhook body failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	err = h.chat.HandleWebhook(c.Request.Context(), body, c.GetHeader(headerSignature))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true})
	case appErr.IsUnauthorized(err):
		logger.Warn("webhook signature rejected", zap.String("ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
	default:
		logger.Error("webhook handling failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *WebhookHandler) Probe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
