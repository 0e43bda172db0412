package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xxxsen/docqa/internal/ai"
	"github.com/xxxsen/docqa/internal/chunker"
	"github.com/xxxsen/docqa/internal/docsource"
	"github.com/xxxsen/docqa/internal/loader"
	"github.com/xxxsen/docqa/internal/metrics"
	"github.com/xxxsen/docqa/internal/model"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
	"github.com/xxxsen/docqa/internal/vectorstore"
)

type IngestState string

const (
	IngestIdle      IngestState = "idle"
	IngestScanning  IngestState = "scanning"
	IngestLoading   IngestState = "loading"
	IngestSplitting IngestState = "splitting"
	IngestEmbedding IngestState = "embedding"
	IngestClearing  IngestState = "clearing"
	IngestWriting   IngestState = "writing"
	IngestDone      IngestState = "done"
	IngestFailed    IngestState = "failed"
)

const progressEvery = 10

type IngestReport struct {
	RunID       string        `json:"run_id"`
	State       IngestState   `json:"state"`
	Source      string        `json:"source"`
	FirstRun    bool          `json:"first_run"`
	Files       int           `json:"files"`
	FilesLoaded int           `json:"files_loaded"`
	FilesFailed int           `json:"files_failed"`
	Chunks      int           `json:"chunks"`
	Succeeded   int           `json:"succeeded"`
	Failed      int           `json:"failed"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
}

// Partial reports a finished run in which some chunks could not be embedded.
func (r *IngestReport) Partial() bool {
	return r.State == IngestDone && r.Failed > 0
}

type IngestConfig struct {
	Workers       int
	BatchSize     int
	RatePerSecond float64
}

type IngestService struct {
	source   docsource.Source
	loaders  *loader.Registry
	chunker  *chunker.Chunker
	embedder ai.IEmbedder
	store    vectorstore.VectorStore
	cfg      IngestConfig

	running atomic.Bool
	mu      sync.RWMutex
	state   IngestState
	last    *IngestReport
}

func NewIngestService(
	source docsource.Source,
	loaders *loader.Registry,
	chk *chunker.Chunker,
	embedder ai.IEmbedder,
	store vectorstore.VectorStore,
	cfg IngestConfig,
) *IngestService {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	return &IngestService{
		source:   source,
		loaders:  loaders,
		chunker:  chk,
		embedder: embedder,
		store:    store,
		cfg:      cfg,
		state:    IngestIdle,
	}
}

func (s *IngestService) State() IngestState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// LastReport returns a copy of the most recent finished run, or nil.
func (s *IngestService) LastReport() *IngestReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil
	}
	cp := *s.last
	return &cp
}

// Run executes one ingestion and blocks until it finishes.
func (s *IngestService) Run(ctx context.Context) (*IngestReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, appErr.ErrIngestRunning
	}
	defer s.running.Store(false)
	return s.execute(ctx, uuid.NewString())
}

// Start launches a run in the background and returns its id.
func (s *IngestService) Start(ctx context.Context) (string, error) {
	if !s.running.CompareAndSwap(false, true) {
		return "", appErr.ErrIngestRunning
	}
	runID := uuid.NewString()
	bg := context.WithoutCancel(ctx)
	go func() {
		defer s.running.Store(false)
		_, _ = s.execute(bg, runID)
	}()
	return runID, nil
}

func (s *IngestService) execute(ctx context.Context, runID string) (*IngestReport, error) {
	report := &IngestReport{
		RunID:     runID,
		Source:    s.source.Location(),
		StartedAt: time.Now(),
	}
	logger := logutil.GetLogger(ctx).With(zap.String("run_id", runID))
	logger.Info("ingestion started", zap.String("source", report.Source))

	err := s.run(ctx, report)
	report.Duration = time.Since(report.StartedAt)
	if err != nil {
		report.Error = err.Error()
		s.setState(ctx, report, IngestFailed)
		logger.Error("ingestion failed", zap.Error(err), zap.Duration("duration", report.Duration))
	} else {
		s.setState(ctx, report, IngestDone)
		logger.Info("ingestion finished",
			zap.Bool("first_run", report.FirstRun),
			zap.Int("files", report.Files),
			zap.Int("files_failed", report.FilesFailed),
			zap.Int("chunks", report.Chunks),
			zap.Int("succeeded", report.Succeeded),
			zap.Int("failed", report.Failed),
			zap.Bool("partial", report.Partial()),
			zap.Duration("duration", report.Duration),
		)
	}
	metrics.IngestRun(string(report.State))
	metrics.IngestChunks(report.Succeeded, report.Failed)

	s.mu.Lock()
	cp := *report
	s.last = &cp
	s.mu.Unlock()
	return report, err
}

func (s *IngestService) setState(ctx context.Context, report *IngestReport, state IngestState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	report.State = state
	logutil.GetLogger(ctx).Debug("ingestion state", zap.String("state", string(state)))
}

func (s *IngestService) run(ctx context.Context, report *IngestReport) error {
	logger := logutil.GetLogger(ctx)
	if s.embedder.Dimension() != s.store.Dimension() {
		return fmt.Errorf("%w: embedder %s produces %d values, store expects %d",
			appErr.ErrConfiguration, s.embedder.ModelName(), s.embedder.Dimension(), s.store.Dimension())
	}

	s.setState(ctx, report, IngestScanning)
	listed, err := s.source.List(ctx)
	if err != nil {
		return err
	}
	report.Files = len(listed.Files)
	if listed.FirstRun {
		report.FirstRun = true
		logger.Info("documents location created, add .pdf or .txt files and run again", zap.String("source", report.Source))
		return nil
	}
	if len(listed.Files) == 0 {
		return fmt.Errorf("%w in %s", appErr.ErrNoDocumentsFound, report.Source)
	}

	s.setState(ctx, report, IngestLoading)
	docs := s.loadAll(ctx, listed.Files, report)
	if len(docs) == 0 {
		return appErr.ErrNoDocumentsLoadable
	}

	s.setState(ctx, report, IngestSplitting)
	chunks := s.chunker.Split(docs)
	report.Chunks = len(chunks)
	logger.Info("documents split", zap.Int("documents", len(docs)), zap.Int("chunks", len(chunks)))
	if len(chunks) == 0 {
		return fmt.Errorf("%w: documents contain no text", appErr.ErrNoDocumentsLoadable)
	}

	s.setState(ctx, report, IngestEmbedding)
	embedded, err := s.embedAll(ctx, chunks)
	if err != nil {
		return err
	}
	report.Succeeded = len(embedded)
	report.Failed = len(chunks) - len(embedded)
	if len(embedded) == 0 {
		return fmt.Errorf("%w: all %d chunks failed, store left unchanged", appErr.ErrEmbeddingUnavailable, len(chunks))
	}

	s.setState(ctx, report, IngestClearing)
	s.setState(ctx, report, IngestWriting)
	if err := s.store.Replace(ctx, embedded); err != nil {
		if errors.Is(err, appErr.ErrDimensionMismatch) {
			return fmt.Errorf("%w: %w", appErr.ErrConfiguration, err)
		}
		return err
	}
	return nil
}

func (s *IngestService) loadAll(ctx context.Context, files []string, report *IngestReport) []model.Document {
	logger := logutil.GetLogger(ctx)
	docs := make([]model.Document, 0, len(files))
	for _, name := range files {
		doc, err := s.loadOne(ctx, name)
		if err != nil {
			report.FilesFailed++
			logger.Warn("load document failed", zap.String("file", name), zap.Error(err))
			continue
		}
		report.FilesLoaded++
		logger.Info("document loaded", zap.String("file", name), zap.String("type", string(doc.Type)), zap.Int("pages", len(doc.Pages)))
		docs = append(docs, *doc)
	}
	return docs
}

func (s *IngestService) loadOne(ctx context.Context, name string) (*model.Document, error) {
	rc, err := s.source.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return s.loaders.Load(ctx, name, rc)
}

// embedAll embeds every chunk and returns the successful ones in input
// order. Only a dimension mismatch or a cancelled context is fatal.
func (s *IngestService) embedAll(ctx context.Context, chunks []model.Chunk) ([]model.Chunk, error) {
	logger := logutil.GetLogger(ctx)
	vecs := make([][]float32, len(chunks))
	var limiter *rate.Limiter
	if s.cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.cfg.RatePerSecond), 1)
	}
	var done atomic.Int64
	total := int64(len(chunks))
	progress := func(n int) {
		cur := done.Add(int64(n))
		if cur/progressEvery != (cur-int64(n))/progressEvery || cur == total {
			logger.Info("embedding progress", zap.Int64("done", cur), zap.Int64("total", total))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for start := 0; start < len(chunks); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		start, end := start, end
		g.Go(func() error {
			defer progress(end - start)
			return s.embedRange(gctx, limiter, chunks, vecs, start, end)
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, appErr.ErrDimensionMismatch) {
			return nil, fmt.Errorf("%w: %w", appErr.ErrConfiguration, err)
		}
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]model.Chunk, 0, len(chunks))
	for i, ch := range chunks {
		if vecs[i] == nil {
			continue
		}
		ch.Embedding = vecs[i]
		out = append(out, ch)
	}
	return out, nil
}

func (s *IngestService) embedRange(ctx context.Context, limiter *rate.Limiter, chunks []model.Chunk, vecs [][]float32, start, end int) error {
	if end-start > 1 {
		if err := wait(ctx, limiter); err != nil {
			return err
		}
		texts := make([]string, 0, end-start)
		for _, ch := range chunks[start:end] {
			texts = append(texts, ch.Content)
		}
		res, err := s.embedder.EmbedBatch(ctx, texts)
		if err == nil {
			copy(vecs[start:end], res)
			return nil
		}
		if errors.Is(err, appErr.ErrDimensionMismatch) {
			return err
		}
		logutil.GetLogger(ctx).Warn("batch embedding failed, retrying chunks one by one",
			zap.Int("from", start), zap.Int("to", end), zap.Error(err))
	}
	for i := start; i < end; i++ {
		if err := wait(ctx, limiter); err != nil {
			return err
		}
		vec, err := s.embedder.Embed(ctx, chunks[i].Content)
		if err != nil {
			if errors.Is(err, appErr.ErrDimensionMismatch) {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logutil.GetLogger(ctx).Warn("embed chunk failed",
				zap.String("source", chunks[i].Metadata.Source),
				zap.Int("ordinal", chunks[i].Metadata.Ordinal),
				zap.Error(err))
			continue
		}
		vecs[i] = vec
	}
	return nil
}

func wait(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return ctx.Err()
	}
	return limiter.Wait(ctx)
}
