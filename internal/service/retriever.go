package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xxxsen/docqa/internal/ai"
	"github.com/xxxsen/docqa/internal/model"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
	"github.com/xxxsen/docqa/internal/vectorstore"
)

const DefaultTopK = 4

type Retriever struct {
	embedder ai.IEmbedder
	store    vectorstore.VectorStore
	topK     int
}

// NewRetriever uses the same embedder as ingestion so query and chunk
// vectors share model and dimension.
func NewRetriever(embedder ai.IEmbedder, store vectorstore.VectorStore, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{embedder: embedder, store: store, topK: topK}
}

func (r *Retriever) Retrieve(ctx context.Context, question string, k int) ([]model.ScoredChunk, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: empty question", appErr.ErrInvalid)
	}
	if k <= 0 {
		k = r.topK
	}
	if r.embedder.Dimension() != r.store.Dimension() {
		return nil, fmt.Errorf("%w: embedder %s produces %d values, store expects %d",
			appErr.ErrConfiguration, r.embedder.ModelName(), r.embedder.Dimension(), r.store.Dimension())
	}
	vec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, asConfiguration(err)
	}
	res, err := r.store.Query(ctx, vec, k)
	if err != nil {
		return nil, asConfiguration(err)
	}
	if res == nil {
		res = []model.ScoredChunk{}
	}
	return res, nil
}

func asConfiguration(err error) error {
	if errors.Is(err, appErr.ErrDimensionMismatch) && !appErr.IsConfiguration(err) {
		return fmt.Errorf("%w: %w", appErr.ErrConfiguration, err)
	}
	return err
}
