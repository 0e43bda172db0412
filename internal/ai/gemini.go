package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const geminiDocumentTask = "RETRIEVAL_DOCUMENT"

type geminiConfig struct {
	APIKey   string `json:"api_key"`
	TaskType string `json:"task_type"`
}

type geminiProvider struct {
	apiKey   string
	taskType string
}

func (p *geminiProvider) Name() string {
	return "gemini"
}

func (p *geminiProvider) client(ctx context.Context) (*genai.Client, error) {
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

func (p *geminiProvider) Generate(ctx context.Context, model string, prompt string) (string, error) {
	client, err := p.client(ctx)
	if err != nil {
		return "", err
	}
	resp, err := client.Models.GenerateContent(
		ctx,
		model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		nil,
	)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

func (p *geminiProvider) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	client, err := p.client(ctx)
	if err != nil {
		return nil, err
	}
	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: text}}})
	}
	var config *genai.EmbedContentConfig
	if p.taskType != "" {
		config = &genai.EmbedContentConfig{TaskType: p.taskType}
	}
	resp, err := client.Models.EmbedContent(ctx, model, contents, config)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("no embedding values returned")
	}
	vecs := make([][]float32, 0, len(resp.Embeddings))
	for _, item := range resp.Embeddings {
		if item == nil {
			return nil, fmt.Errorf("nil embedding returned")
		}
		vecs = append(vecs, item.Values)
	}
	return vecs, nil
}

func newGeminiProvider(args interface{}) (*geminiProvider, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if err := requireAPIKey("gemini", cfg.APIKey); err != nil {
		return nil, err
	}
	taskType := strings.TrimSpace(cfg.TaskType)
	if taskType == "" {
		taskType = geminiDocumentTask
	}
	return &geminiProvider{apiKey: strings.TrimSpace(cfg.APIKey), taskType: taskType}, nil
}

func createGeminiFactory(args interface{}) (IProvider, error) {
	return newGeminiProvider(args)
}

func createGeminiEmbedFactory(args interface{}) (IEmbedProvider, error) {
	return newGeminiProvider(args)
}

func init() {
	Register("gemini", createGeminiFactory)
	RegisterEmbed("gemini", createGeminiEmbedFactory)
}
