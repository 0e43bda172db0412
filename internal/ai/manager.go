package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/docqa/internal/config"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

type ManagerConfig struct {
	Timeout int
}

// Manager owns the configured generator chain and embedder.
type Manager struct {
	generator IGenerator
	embedder  IEmbedder
	cfg       ManagerConfig
}

func NewManager(generator IGenerator, embedder IEmbedder, cfg ManagerConfig) *Manager {
	return &Manager{generator: generator, embedder: embedder, cfg: cfg}
}

// BuildEmbedder creates the single embedder used for both ingestion and
// queries. There is no fallback chain: vectors from different models are not
// comparable.
func BuildEmbedder(mc config.ModelConfig, dimension int) (IEmbedder, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: embedding dimension must be positive", appErr.ErrConfiguration)
	}
	p, err := NewEmbedProvider(mc.Provider, mc.Data)
	if err != nil {
		return nil, err
	}
	return NewEmbedder(p, mc.Model, dimension), nil
}

func BuildGenerator(items []config.ModelConfig) (IGenerator, error) {
	entries := make([]GeneratorEntry, 0, len(items))
	for _, mc := range items {
		p, err := NewProvider(mc.Provider, mc.Data)
		if err != nil {
			return nil, err
		}
		entries = append(entries, GeneratorEntry{
			Name:      p.Name() + "/" + mc.Model,
			Generator: NewGenerator(p, mc.Model),
		})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: at least one generator is required", appErr.ErrConfiguration)
	}
	return NewGroupGenerator(entries), nil
}

// Generate runs one model call bounded by the configured timeout.
func (m *Manager) Generate(ctx context.Context, prompt string) (string, error) {
	if m.generator == nil {
		return "", fmt.Errorf("%w: generator not configured", appErr.ErrConfiguration)
	}
	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(m.cfg.Timeout)*time.Second)
		defer cancel()
	}
	resp, err := m.generator.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp)
	if text == "" {
		return "", fmt.Errorf("%w: empty ai response", appErr.ErrGenerationFailed)
	}
	return text, nil
}

func (m *Manager) Embedder() IEmbedder {
	return m.embedder
}

func (m *Manager) EmbeddingModelName() string {
	if m.embedder == nil {
		return ""
	}
	return m.embedder.ModelName()
}
