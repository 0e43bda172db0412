package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/docqa/internal/metrics"
	"github.com/xxxsen/docqa/internal/middleware"
)

const adminRateWindow = 2 * time.Second

type RouterDeps struct {
	Webhook *WebhookHandler
	Health  *HealthHandler
	// Admin routes are registered only when both are set.
	Admin     *AdminHandler
	JWTSecret []byte
}

// RegisterRoutes mounts /metrics on root and everything else under /api.
func RegisterRoutes(root *gin.RouterGroup, deps RouterDeps) {
	root.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := root.Group("/api")
	api.POST("/line/webhook", deps.Webhook.Receive)
	api.GET("/line/webhook", deps.Webhook.Probe)
	api.GET("/healthz", deps.Health.Healthz)

	if deps.Admin == nil || len(deps.JWTSecret) == 0 {
		return
	}
	admin := api.Group("/admin")
	admin.Use(middleware.AdminAuth(deps.JWTSecret))
	admin.POST("/ingest", deps.Admin.StartIngest)
	admin.GET("/ingest", deps.Admin.IngestStatus)
	admin.POST("/ask", middleware.RateLimit(adminRateWindow), deps.Admin.Ask)
	admin.POST("/push", deps.Admin.Push)
}
