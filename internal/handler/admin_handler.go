package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xxxsen/docqa/internal/model"
	"github.com/xxxsen/docqa/internal/pkg/errcode"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
	"github.com/xxxsen/docqa/internal/pkg/response"
	"github.com/xxxsen/docqa/internal/service"
)

type Ingestor interface {
	Start(ctx context.Context) (string, error)
	State() service.IngestState
	LastReport() *service.IngestReport
}

type Asker interface {
	Answer(ctx context.Context, question string) (*model.Answer, error)
}

type Pusher interface {
	Push(ctx context.Context, to, text string) error
}

type AdminHandler struct {
	ingest Ingestor
	asker  Asker
	pusher Pusher
}

func NewAdminHandler(ingest Ingestor, asker Asker, pusher Pusher) *AdminHandler {
	return &AdminHandler{ingest: ingest, asker: asker, pusher: pusher}
}

type askRequest struct {
	Question string `json:"question"`
}

type pushRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// StartIngest launches an asynchronous run.
func (h *AdminHandler) StartIngest(c *gin.Context) {
	runID, err := h.ingest.Start(c.Request.Context())
	if errors.Is(err, appErr.ErrIngestRunning) {
		c.JSON(http.StatusConflict, gin.H{"error": "ingestion already running", "state": h.ingest.State()})
		return
	}
	if err != nil {
		handleError(c, err)
		return
	}
	requestLogger(c).Info("ingestion triggered", zap.String("run_id", runID))
	c.JSON(http.StatusAccepted, gin.H{"run_id": runID})
}

func (h *AdminHandler) IngestStatus(c *gin.Context) {
	response.Success(c, gin.H{
		"state":       h.ingest.State(),
		"last_report": h.ingest.LastReport(),
	})
}

func (h *AdminHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		response.Error(c, errcode.ErrInvalid, "question is required")
		return
	}
	ans, err := h.asker.Answer(c.Request.Context(), req.Question)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, ans)
}

func (h *AdminHandler) Push(c *gin.Context) {
	var req pushRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.To) == "" || strings.TrimSpace(req.Text) == "" {
		response.Error(c, errcode.ErrInvalid, "to and text are required")
		return
	}
	if err := h.pusher.Push(c.Request.Context(), req.To, req.Text); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"sent": true})
}
