package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/xxxsen/docqa/internal/model"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

type MemoryOption func(*MemoryStore)

// WithSnapshot keeps the store content in a JSON file that is loaded at open
// and rewritten after every mutation.
func WithSnapshot(path string) MemoryOption {
	return func(s *MemoryStore) {
		s.snapshot = path
	}
}

type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	nextID    int64
	chunks    []model.Chunk
	snapshot  string
}

type memorySnapshot struct {
	Dimension int           `json:"dimension"`
	NextID    int64         `json:"next_id"`
	Chunks    []model.Chunk `json:"chunks"`
}

func NewMemoryStore(dimension int, opts ...MemoryOption) (*MemoryStore, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: invalid dimension %d", appErr.ErrConfiguration, dimension)
	}
	s := &MemoryStore{dimension: dimension, nextID: 1}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MemoryStore) load() error {
	if s.snapshot == "" {
		return nil
	}
	data, err := os.ReadFile(s.snapshot)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read snapshot: %w", appErr.ErrStoreUnavailable, err)
	}
	var snap memorySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("%w: decode snapshot: %w", appErr.ErrStoreUnavailable, err)
	}
	if snap.Dimension != s.dimension {
		return fmt.Errorf("%w: snapshot dimension %d, configured %d", appErr.ErrConfiguration, snap.Dimension, s.dimension)
	}
	if err := validateChunks(s.dimension, snap.Chunks); err != nil {
		return err
	}
	s.chunks = snap.Chunks
	s.nextID = snap.NextID
	return nil
}

func (s *MemoryStore) persist(chunks []model.Chunk, nextID int64) error {
	if s.snapshot == "" {
		return nil
	}
	data, err := json.Marshal(memorySnapshot{Dimension: s.dimension, NextID: nextID, Chunks: chunks})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.snapshot), 0o755); err != nil {
		return fmt.Errorf("%w: %w", appErr.ErrStoreUnavailable, err)
	}
	tmp := s.snapshot + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: write snapshot: %w", appErr.ErrStoreUnavailable, err)
	}
	if err := os.Rename(tmp, s.snapshot); err != nil {
		return fmt.Errorf("%w: replace snapshot: %w", appErr.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *MemoryStore) Dimension() int {
	return s.dimension
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	return s.Replace(ctx, nil)
}

func (s *MemoryStore) Insert(ctx context.Context, chunk model.Chunk) error {
	return s.InsertBatch(ctx, []model.Chunk{chunk})
}

func (s *MemoryStore) InsertBatch(ctx context.Context, chunks []model.Chunk) error {
	_ = ctx
	if err := validateChunks(s.dimension, chunks); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]model.Chunk, len(s.chunks), len(s.chunks)+len(chunks))
	copy(next, s.chunks)
	next, nextID := appendWithIDs(next, chunks, s.nextID)
	if err := s.persist(next, nextID); err != nil {
		return err
	}
	s.chunks, s.nextID = next, nextID
	return nil
}

func (s *MemoryStore) Replace(ctx context.Context, chunks []model.Chunk) error {
	_ = ctx
	if err := validateChunks(s.dimension, chunks); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next, nextID := appendWithIDs(make([]model.Chunk, 0, len(chunks)), chunks, s.nextID)
	if err := s.persist(next, nextID); err != nil {
		return err
	}
	s.chunks, s.nextID = next, nextID
	return nil
}

func appendWithIDs(dst, chunks []model.Chunk, nextID int64) ([]model.Chunk, int64) {
	for _, ch := range chunks {
		ch.ID = nextID
		ch.Embedding = append([]float32(nil), ch.Embedding...)
		nextID++
		dst = append(dst, ch)
	}
	return dst, nextID
}

func (s *MemoryStore) Query(ctx context.Context, vec []float32, k int) ([]model.ScoredChunk, error) {
	_ = ctx
	if err := validateQuery(s.dimension, vec); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	scored := make([]model.ScoredChunk, 0, len(s.chunks))
	for _, ch := range s.chunks {
		scored = append(scored, model.ScoredChunk{Chunk: ch, Score: Cosine(vec, ch.Embedding)})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	for i := range scored {
		scored[i].Chunk.Embedding = append([]float32(nil), scored[i].Chunk.Embedding...)
	}
	return scored, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}
