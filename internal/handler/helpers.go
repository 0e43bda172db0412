package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docqa/internal/middleware"
	"github.com/xxxsen/docqa/internal/pkg/errcode"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
	"github.com/xxxsen/docqa/internal/pkg/response"
)

func requestLogger(c *gin.Context) *zap.Logger {
	return logutil.GetLogger(c.Request.Context()).With(
		zap.String("request_id", c.GetString(middleware.ContextRequestIDKey)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
	)
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestLogger(c).Error("request failed", zap.Error(err))
	switch {
	case appErr.IsUnauthorized(err):
		response.Error(c, errcode.ErrUnauthorized, "unauthorized")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, err.Error())
	case errors.Is(err, appErr.ErrIngestRunning):
		response.Error(c, errcode.ErrConflict, "ingestion already running")
	case errors.Is(err, appErr.ErrEmbeddingUnavailable), errors.Is(err, appErr.ErrGenerationFailed):
		response.Error(c, errcode.ErrAIUnavailable, "ai provider unavailable")
	case errors.Is(err, appErr.ErrMessagingDelivery):
		response.Error(c, errcode.ErrMessagingFailed, err.Error())
	case appErr.IsConfiguration(err):
		response.Error(c, errcode.ErrInternal, "service misconfigured")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
