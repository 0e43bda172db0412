package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

func TestOpenAIEmbedBatchKeepsInputOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var req openAIEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "text-embedding-3-small", req.Model)
		require.Equal(t, []string{"a", "b"}, req.Input)
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}]}`))
	}))
	defer srv.Close()

	p, err := NewEmbedProvider("openai", map[string]interface{}{"api_key": "sk-test", "base_url": srv.URL})
	require.NoError(t, err)
	emb := NewEmbedder(p, "text-embedding-3-small", 2)

	vecs, err := emb.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
	require.Equal(t, "openai/text-embedding-3-small", emb.ModelName())
	require.Equal(t, 2, emb.Dimension())
}

func TestOpenAIEmbedFailuresAreUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	p, err := NewEmbedProvider("openai", map[string]interface{}{"api_key": "sk-test", "base_url": srv.URL})
	require.NoError(t, err)
	_, err = NewEmbedder(p, "m", 2).Embed(context.Background(), "hello")
	require.ErrorIs(t, err, appErr.ErrEmbeddingUnavailable)
	require.Contains(t, err.Error(), "429")
}

func TestOpenAIEmbedHonoursTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	p, err := NewEmbedProvider("openai", map[string]interface{}{"api_key": "sk-test", "base_url": srv.URL, "timeout": 1})
	require.NoError(t, err)
	start := time.Now()
	_, err = NewEmbedder(p, "m", 2).EmbedBatch(context.Background(), []string{"hello"})
	require.ErrorIs(t, err, appErr.ErrEmbeddingUnavailable)
	require.Less(t, time.Since(start), 10*time.Second)
}

func TestProviderDefaultTimeout(t *testing.T) {
	require.Equal(t, defaultProviderTimeout, newHTTPClient(0).Timeout)
	require.Equal(t, 5*time.Second, newHTTPClient(5).Timeout)

	p, err := newOpenAIProvider(map[string]interface{}{"api_key": "sk-test"})
	require.NoError(t, err)
	require.Equal(t, defaultProviderTimeout, p.client.Timeout)
}

func TestOpenAIGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		var req openAIChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		require.Equal(t, "question?", req.Messages[0].Content)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  answer  "}}]}`))
	}))
	defer srv.Close()

	p, err := NewProvider("OpenAI", map[string]interface{}{"api_key": "sk-test", "base_url": srv.URL + "/"})
	require.NoError(t, err)
	out, err := NewGenerator(p, "gpt-4o-mini").Generate(context.Background(), "question?")
	require.NoError(t, err)
	require.Equal(t, "answer", out)
}

func TestProviderFactoriesRequireAPIKey(t *testing.T) {
	_, err := NewProvider("openai", map[string]interface{}{})
	require.ErrorIs(t, err, appErr.ErrConfiguration)
	_, err = NewProvider("openrouter", map[string]interface{}{"api_key": " "})
	require.ErrorIs(t, err, appErr.ErrConfiguration)
	_, err = NewEmbedProvider("gemini", nil)
	require.ErrorIs(t, err, appErr.ErrConfiguration)
	_, err = NewEmbedProvider("openrouter", map[string]interface{}{"api_key": "k"})
	require.ErrorIs(t, err, appErr.ErrConfiguration)
	_, err = NewProvider("", nil)
	require.ErrorIs(t, err, appErr.ErrConfiguration)
}
