package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

type IProvider interface {
	Name() string
	Generate(ctx context.Context, model string, prompt string) (string, error)
}

type IEmbedProvider interface {
	Name() string
	Embed(ctx context.Context, model string, texts []string) ([][]float32, error)
}

type IGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type IEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
	Dimension() int
}

type ProviderFactory func(args interface{}) (IProvider, error)

type EmbedProviderFactory func(args interface{}) (IEmbedProvider, error)

var (
	registry      = map[string]ProviderFactory{}
	embedRegistry = map[string]EmbedProviderFactory{}
)

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func Register(name string, factory ProviderFactory) {
	key := normalizeName(name)
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func RegisterEmbed(name string, factory EmbedProviderFactory) {
	key := normalizeName(name)
	if key == "" || factory == nil {
		return
	}
	embedRegistry[key] = factory
}

func NewProvider(name string, args interface{}) (IProvider, error) {
	key := normalizeName(name)
	if key == "" {
		return nil, fmt.Errorf("%w: ai provider is required", appErr.ErrConfiguration)
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("%w: unsupported ai provider: %s", appErr.ErrConfiguration, name)
	}
	return factory(args)
}

func NewEmbedProvider(name string, args interface{}) (IEmbedProvider, error) {
	key := normalizeName(name)
	if key == "" {
		return nil, fmt.Errorf("%w: embedding provider is required", appErr.ErrConfiguration)
	}
	factory := embedRegistry[key]
	if factory == nil {
		return nil, fmt.Errorf("%w: unsupported embedding provider: %s", appErr.ErrConfiguration, name)
	}
	return factory(args)
}

type generator struct {
	provider IProvider
	model    string
}

func NewGenerator(p IProvider, model string) IGenerator {
	return &generator{provider: p, model: model}
}

func (g *generator) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := g.provider.Generate(ctx, g.model, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %s/%s: %w", appErr.ErrGenerationFailed, g.provider.Name(), g.model, err)
	}
	return out, nil
}

type embedder struct {
	provider  IEmbedProvider
	model     string
	dimension int
}

// NewEmbedder binds a provider to one model. Every vector it returns has
// exactly dimension values.
func NewEmbedder(p IEmbedProvider, model string, dimension int) IEmbedder {
	return &embedder{provider: p, model: model, dimension: dimension}
}

func (e *embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := e.provider.Embed(ctx, e.model, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %w", appErr.ErrEmbeddingUnavailable, e.provider.Name(), e.model, err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: %s returned %d embeddings for %d inputs", appErr.ErrEmbeddingUnavailable, e.provider.Name(), len(vecs), len(texts))
	}
	for _, vec := range vecs {
		if len(vec) == 0 {
			return nil, fmt.Errorf("%w: %s returned an empty embedding", appErr.ErrEmbeddingUnavailable, e.provider.Name())
		}
		if len(vec) != e.dimension {
			return nil, fmt.Errorf("%w: model %s returned %d values, store expects %d", appErr.ErrDimensionMismatch, e.model, len(vec), e.dimension)
		}
	}
	return vecs, nil
}

func (e *embedder) ModelName() string {
	return e.provider.Name() + "/" + e.model
}

func (e *embedder) Dimension() int {
	return e.dimension
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("%w: ai provider config is required", appErr.ErrConfiguration)
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode ai provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: decode ai provider config: %v", appErr.ErrConfiguration, err)
	}
	return nil
}

func requireAPIKey(provider, key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: %s api_key is required", appErr.ErrConfiguration, provider)
	}
	return nil
}
