// Package vectorstore persists embedded chunks and ranks them by cosine
// similarity to a query vector. Results are ordered by descending score;
// equal scores keep insertion order.
package vectorstore

import (
	"context"
	"fmt"
	"math"

	"github.com/jmoiron/sqlx"

	"github.com/xxxsen/docqa/internal/config"
	"github.com/xxxsen/docqa/internal/model"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

type VectorStore interface {
	Dimension() int
	Clear(ctx context.Context) error
	Insert(ctx context.Context, chunk model.Chunk) error
	InsertBatch(ctx context.Context, chunks []model.Chunk) error
	// Replace swaps the whole corpus for chunks in one step.
	Replace(ctx context.Context, chunks []model.Chunk) error
	Query(ctx context.Context, vec []float32, k int) ([]model.ScoredChunk, error)
	Count(ctx context.Context) (int, error)
}

// New opens the configured store. db may be nil for the memory store.
func New(ctx context.Context, cfg config.VectorStoreConfig, db *sqlx.DB) (VectorStore, error) {
	switch cfg.Type {
	case config.VectorStoreMemory:
		return NewMemoryStore(cfg.Dimension, WithSnapshot(cfg.Snapshot))
	case config.VectorStorePgvector:
		if db == nil {
			return nil, fmt.Errorf("%w: pgvector store needs a database", appErr.ErrConfiguration)
		}
		s := NewPgStore(db, cfg.Dimension)
		if err := s.VerifySchema(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unsupported vector store: %s", appErr.ErrConfiguration, cfg.Type)
	}
}

func validateChunks(dimension int, chunks []model.Chunk) error {
	for i, ch := range chunks {
		if len(ch.Embedding) != dimension {
			return fmt.Errorf("%w: chunk %d (%s#%d) has %d values, store expects %d",
				appErr.ErrDimensionMismatch, i, ch.Metadata.Source, ch.Metadata.Ordinal, len(ch.Embedding), dimension)
		}
	}
	return nil
}

func validateQuery(dimension int, vec []float32) error {
	if len(vec) != dimension {
		return fmt.Errorf("%w: query has %d values, store expects %d", appErr.ErrDimensionMismatch, len(vec), dimension)
	}
	return nil
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a
// zero vector.
func Cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
