package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/xxxsen/docqa/internal/model"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
	"github.com/xxxsen/docqa/internal/vectorstore"
)

type fakeEmbedder struct {
	dim      int
	vectors  map[string][]float32
	failOn   map[string]bool
	batchErr error
	block    chan struct{}

	mu         sync.Mutex
	calls      int
	batchCalls int
}

func newFakeEmbedder(dim int) *fakeEmbedder {
	return &fakeEmbedder{dim: dim, vectors: map[string][]float32{}, failOn: map[string]bool{}}
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.failOn[text] {
		return nil, fmt.Errorf("%w: provider down", appErr.ErrEmbeddingUnavailable)
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return hashVector(text, f.dim), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.batchCalls++
	f.mu.Unlock()
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeEmbedder) ModelName() string { return "fake/embed" }
func (f *fakeEmbedder) Dimension() int    { return f.dim }

func hashVector(text string, dim int) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	sum := h.Sum64()
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = float32((sum>>(uint(i%8)*8))&0xff) + 1
	}
	return vec
}

type fakeGenerator struct {
	reply   string
	err     error
	prompts []string
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

type fakeAnswerer struct {
	failOn    map[string]error
	panicOn   string
	questions []string
}

func (a *fakeAnswerer) Answer(ctx context.Context, question string) (*model.Answer, error) {
	a.questions = append(a.questions, question)
	if question == a.panicOn && a.panicOn != "" {
		panic("boom")
	}
	if err, ok := a.failOn[question]; ok {
		return nil, err
	}
	return &model.Answer{Text: "answer: " + question, Sources: []string{"faq.txt"}}, nil
}

type sentMessage struct {
	target string
	text   string
}

type fakeMessenger struct {
	replyErr   error
	panicToken string
	replies    []sentMessage
	pushes     []sentMessage
}

func (m *fakeMessenger) Reply(ctx context.Context, replyToken string, messages []model.TextMessage) error {
	if replyToken != "" && replyToken == m.panicToken {
		panic("reply exploded")
	}
	if m.replyErr != nil {
		return m.replyErr
	}
	for _, msg := range messages {
		m.replies = append(m.replies, sentMessage{target: replyToken, text: msg.Text})
	}
	return nil
}

func (m *fakeMessenger) Push(ctx context.Context, to string, messages []model.TextMessage) error {
	for _, msg := range messages {
		m.pushes = append(m.pushes, sentMessage{target: to, text: msg.Text})
	}
	return nil
}

// recordingStore captures what ingestion hands to Replace.
type recordingStore struct {
	*vectorstore.MemoryStore
	mu       sync.Mutex
	replaced [][]model.Chunk
}

func (r *recordingStore) Replace(ctx context.Context, chunks []model.Chunk) error {
	r.mu.Lock()
	r.replaced = append(r.replaced, append([]model.Chunk(nil), chunks...))
	r.mu.Unlock()
	return r.MemoryStore.Replace(ctx, chunks)
}

func (r *recordingStore) last() []model.Chunk {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.replaced) == 0 {
		return nil
	}
	return r.replaced[len(r.replaced)-1]
}
