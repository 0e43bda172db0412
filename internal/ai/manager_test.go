package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

type fakeEmbedProvider struct {
	vecs [][]float32
	err  error
}

func (f *fakeEmbedProvider) Name() string { return "fake" }

func (f *fakeEmbedProvider) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	return f.vecs, f.err
}

type funcGenerator func(ctx context.Context, prompt string) (string, error)

func (f funcGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func TestEmbedderRejectsWrongDimension(t *testing.T) {
	emb := NewEmbedder(&fakeEmbedProvider{vecs: [][]float32{{1, 2, 3}}}, "m", 4)
	_, err := emb.Embed(context.Background(), "x")
	require.ErrorIs(t, err, appErr.ErrDimensionMismatch)
}

func TestEmbedderRejectsEmptyVector(t *testing.T) {
	emb := NewEmbedder(&fakeEmbedProvider{vecs: [][]float32{{}}}, "m", 4)
	_, err := emb.Embed(context.Background(), "x")
	require.ErrorIs(t, err, appErr.ErrEmbeddingUnavailable)
}

func TestEmbedderRejectsShortBatch(t *testing.T) {
	emb := NewEmbedder(&fakeEmbedProvider{vecs: [][]float32{{1}}}, "m", 1)
	_, err := emb.EmbedBatch(context.Background(), []string{"a", "b"})
	require.ErrorIs(t, err, appErr.ErrEmbeddingUnavailable)
}

func TestGroupGeneratorFallsBack(t *testing.T) {
	gen := NewGroupGenerator([]GeneratorEntry{
		{Name: "broken", Generator: funcGenerator(func(ctx context.Context, prompt string) (string, error) {
			return "", errors.New("boom")
		})},
		{Name: "ok", Generator: funcGenerator(func(ctx context.Context, prompt string) (string, error) {
			return "fine", nil
		})},
	})
	out, err := gen.Generate(context.Background(), "p")
	require.NoError(t, err)
	require.Equal(t, "fine", out)
}

func TestManagerGenerateTimesOut(t *testing.T) {
	slow := funcGenerator(func(ctx context.Context, prompt string) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(5 * time.Second):
			return "late", nil
		}
	})
	m := NewManager(slow, nil, ManagerConfig{Timeout: 1})
	start := time.Now()
	_, err := m.Generate(context.Background(), "p")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 3*time.Second)
}

func TestManagerRejectsEmptyOutput(t *testing.T) {
	m := NewManager(funcGenerator(func(ctx context.Context, prompt string) (string, error) {
		return "  \n", nil
	}), nil, ManagerConfig{})
	_, err := m.Generate(context.Background(), "p")
	require.ErrorIs(t, err, appErr.ErrGenerationFailed)
}
