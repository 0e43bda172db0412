package embedcache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docqa/internal/model"
)

type countingEmbedder struct {
	mu    sync.Mutex
	calls int
	texts []string
}

func (c *countingEmbedder) vector(text string) []float32 {
	return []float32{float32(len(text)), 1}
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.texts = append(c.texts, text)
	return c.vector(text), nil
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.texts = append(c.texts, texts...)
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		out = append(out, c.vector(text))
	}
	return out, nil
}

func (c *countingEmbedder) ModelName() string { return "fake/model" }
func (c *countingEmbedder) Dimension() int    { return 2 }

type memStore struct {
	items   map[string][]float32
	saveErr error
}

func (m *memStore) Get(ctx context.Context, modelName, contentHash string) ([]float32, bool, error) {
	v, ok := m.items[modelName+contentHash]
	return v, ok, nil
}

func (m *memStore) Save(ctx context.Context, item *model.EmbeddingCache) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.items[item.ModelName+item.ContentHash] = item.Embedding
	return nil
}

func TestLRUReturnsCachedCopy(t *testing.T) {
	next := &countingEmbedder{}
	e := WrapLRU(next, 10, time.Minute)

	first, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	first[0] = 99
	second, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, []float32{5, 1}, second)
	require.Equal(t, 1, next.calls)
}

func TestLRUBatchServesHitsFromCache(t *testing.T) {
	next := &countingEmbedder{}
	e := WrapLRU(next, 10, time.Minute)

	_, err := e.Embed(context.Background(), "b")
	require.NoError(t, err)
	out, err := e.EmbedBatch(context.Background(), []string{"aa", "b"})
	require.NoError(t, err)
	require.Equal(t, [][]float32{{2, 1}, {1, 1}}, out)
	require.Equal(t, []string{"b", "aa"}, next.texts)

	out, err = e.EmbedBatch(context.Background(), []string{"aa", "b"})
	require.NoError(t, err)
	require.Equal(t, [][]float32{{2, 1}, {1, 1}}, out)
	require.Equal(t, 2, next.calls)
}

func TestLRUDisabledReturnsInner(t *testing.T) {
	next := &countingEmbedder{}
	require.Same(t, next, WrapLRU(next, 0, time.Minute))
}

func TestDBBatchOnlyEmbedsMisses(t *testing.T) {
	next := &countingEmbedder{}
	store := &memStore{items: map[string][]float32{}}
	e := WrapDB(next, store)

	_, err := e.Embed(context.Background(), "b")
	require.NoError(t, err)

	out, err := e.EmbedBatch(context.Background(), []string{"aa", "b", "cccc"})
	require.NoError(t, err)
	require.Equal(t, [][]float32{{2, 1}, {1, 1}, {4, 1}}, out)
	require.Equal(t, []string{"b", "aa", "cccc"}, next.texts)
}

func TestDBSaveFailureDoesNotFailEmbedding(t *testing.T) {
	next := &countingEmbedder{}
	e := WrapDB(next, &memStore{items: map[string][]float32{}, saveErr: errors.New("db down")})
	out, err := e.Embed(context.Background(), "abc")
	require.NoError(t, err)
	require.Equal(t, []float32{3, 1}, out)
}
