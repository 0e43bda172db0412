package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docqa/internal/ai"
	"github.com/xxxsen/docqa/internal/metrics"
	"github.com/xxxsen/docqa/internal/model"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

const DefaultNoAnswerMessage = "ขออภัย ไม่พบข้อมูลที่เกี่ยวข้องในเอกสาร"

type ChunkRetriever interface {
	Retrieve(ctx context.Context, question string, k int) ([]model.ScoredChunk, error)
}

type AnswerConfig struct {
	TopK            int
	NoAnswerMessage string
	Timeout         time.Duration
}

type AnswerService struct {
	retriever ChunkRetriever
	generator ai.IGenerator
	cfg       AnswerConfig
}

func NewAnswerService(retriever ChunkRetriever, generator ai.IGenerator, cfg AnswerConfig) *AnswerService {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if strings.TrimSpace(cfg.NoAnswerMessage) == "" {
		cfg.NoAnswerMessage = DefaultNoAnswerMessage
	}
	return &AnswerService{retriever: retriever, generator: generator, cfg: cfg}
}

// Answer retrieves the closest chunks and asks the model to answer from them
// only. An empty corpus yields the no-information answer without a model call.
func (s *AnswerService) Answer(ctx context.Context, question string) (*model.Answer, error) {
	start := time.Now()
	defer func() {
		metrics.AnswerDuration(time.Since(start))
	}()
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: empty question", appErr.ErrInvalid)
	}
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	logger := logutil.GetLogger(ctx)

	chunks, err := s.retriever.Retrieve(ctx, question, s.cfg.TopK)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		logger.Info("no chunks retrieved, returning fallback answer")
		return &model.Answer{Text: s.cfg.NoAnswerMessage, Sources: []string{}}, nil
	}

	raw, err := s.generator.Generate(ctx, BuildPrompt(question, chunks))
	if err != nil {
		return nil, err
	}
	text := RenderPlainText(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: empty answer", appErr.ErrGenerationFailed)
	}
	sources := uniqueSources(chunks)
	logger.Info("question answered",
		zap.Int("chunks", len(chunks)),
		zap.Strings("sources", sources),
		zap.Duration("duration", time.Since(start)))
	return &model.Answer{Text: text, Sources: sources}, nil
}
