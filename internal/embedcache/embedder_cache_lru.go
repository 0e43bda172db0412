package embedcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docqa/internal/ai"
)

// WrapLRU caches query embeddings in memory. Webhook traffic repeats the
// same short questions often.
func WrapLRU(e ai.IEmbedder, size int, ttl time.Duration) ai.IEmbedder {
	if e == nil || size <= 0 || ttl <= 0 {
		return e
	}
	return &lruEmbedder{
		next:  e,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

type lruEmbedder struct {
	next  ai.IEmbedder
	cache *expirable.LRU[string, []float32]
}

func (l *lruEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key, _ := buildCacheKey(l.next.ModelName(), text)
	if cached, ok := l.cache.Get(key); ok {
		logutil.GetLogger(ctx).Debug("embedding cache hit (lru)", zap.Int("dimension", len(cached)))
		return cloneEmbedding(cached), nil
	}
	res, err := l.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	l.cache.Add(key, cloneEmbedding(res))
	return res, nil
}

func (l *lruEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		key, _ := buildCacheKey(l.next.ModelName(), text)
		if cached, ok := l.cache.Get(key); ok {
			out[i] = cloneEmbedding(cached)
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	logutil.GetLogger(ctx).Debug("embedding batch lookup (lru)",
		zap.Int("hits", len(texts)-len(missTexts)), zap.Int("misses", len(missTexts)))
	if len(missTexts) == 0 {
		return out, nil
	}
	res, err := l.next.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, idx := range missIdx {
		key, _ := buildCacheKey(l.next.ModelName(), missTexts[j])
		l.cache.Add(key, cloneEmbedding(res[j]))
		out[idx] = res[j]
	}
	return out, nil
}

func (l *lruEmbedder) ModelName() string {
	return l.next.ModelName()
}

func (l *lruEmbedder) Dimension() int {
	return l.next.Dimension()
}

func cloneEmbedding(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}
