package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docqa/internal/ai"
	"github.com/xxxsen/docqa/internal/model"
)

// Store persists embeddings keyed by model and content hash.
type Store interface {
	Get(ctx context.Context, modelName, contentHash string) ([]float32, bool, error)
	Save(ctx context.Context, item *model.EmbeddingCache) error
}

// WrapDB makes re-ingestion of unchanged chunks free. Cache read and write
// failures are logged and fall through to the wrapped embedder.
func WrapDB(e ai.IEmbedder, store Store) ai.IEmbedder {
	if e == nil || store == nil {
		return e
	}
	return &dbEmbedder{next: e, store: store, now: time.Now}
}

type dbEmbedder struct {
	next  ai.IEmbedder
	store Store
	now   func() time.Time
}

func (d *dbEmbedder) lookup(ctx context.Context, text string) ([]float32, bool) {
	_, contentHash := buildCacheKey(d.next.ModelName(), text)
	values, ok, err := d.store.Get(ctx, d.next.ModelName(), contentHash)
	if err != nil {
		logutil.GetLogger(ctx).Warn("read embedding cache failed", zap.Error(err))
		return nil, false
	}
	if !ok || len(values) != d.next.Dimension() {
		return nil, false
	}
	return values, true
}

func (d *dbEmbedder) save(ctx context.Context, text string, values []float32) {
	_, contentHash := buildCacheKey(d.next.ModelName(), text)
	if err := d.store.Save(ctx, &model.EmbeddingCache{
		ModelName:   d.next.ModelName(),
		ContentHash: contentHash,
		Embedding:   values,
		Ctime:       d.now().Unix(),
	}); err != nil {
		logutil.GetLogger(ctx).Warn("failed to cache embedding", zap.Error(err))
	}
}

func (d *dbEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if values, ok := d.lookup(ctx, text); ok {
		logutil.GetLogger(ctx).Debug("embedding cache hit (db)")
		return values, nil
	}
	res, err := d.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	d.save(ctx, text, res)
	return res, nil
}

func (d *dbEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		if values, ok := d.lookup(ctx, text); ok {
			out[i] = values
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missTexts) == 0 {
		return out, nil
	}
	res, err := d.next.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, idx := range missIdx {
		d.save(ctx, missTexts[j], res[j])
		out[idx] = res[j]
	}
	return out, nil
}

func (d *dbEmbedder) ModelName() string {
	return d.next.ModelName()
}

func (d *dbEmbedder) Dimension() int {
	return d.next.Dimension()
}

func buildCacheKey(modelName, text string) (string, string) {
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		modelName = "unknown"
	}
	hash := sha256.Sum256([]byte(text))
	contentHash := hex.EncodeToString(hash[:])
	return "embed:" + modelName + ":" + contentHash, contentHash
}
