package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

const (
	defaultOpenAIBaseURL   = "https://api.openai.com/v1"
	defaultProviderTimeout = 60 * time.Second
)

type openAIConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	Timeout int64  `json:"timeout"` // seconds
}

type openAIProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type openAIChatRequest struct {
	Model    string          `json:"model"`
	Messages []openAIChatMsg `json:"messages"`
	Stream   bool            `json:"stream"`
}

type openAIChatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type openAIEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (p *openAIProvider) Name() string {
	return "openai"
}

func (p *openAIProvider) Generate(ctx context.Context, model string, prompt string) (string, error) {
	reqBody := openAIChatRequest{
		Model:    model,
		Messages: []openAIChatMsg{{Role: "user", Content: prompt}},
	}
	var out openAIChatResponse
	if err := postJSON(ctx, p.client, p.Name(), p.baseURL+"/chat/completions", p.headers(), reqBody, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openai response has no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func (p *openAIProvider) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	reqBody := openAIEmbedRequest{Model: model, Input: texts}
	var out openAIEmbedResponse
	if err := postJSON(ctx, p.client, p.Name(), p.baseURL+"/embeddings", p.headers(), reqBody, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("openai response has no embeddings")
	}
	sort.SliceStable(out.Data, func(i, j int) bool { return out.Data[i].Index < out.Data[j].Index })
	vecs := make([][]float32, 0, len(out.Data))
	for _, item := range out.Data {
		vecs = append(vecs, item.Embedding)
	}
	return vecs, nil
}

func (p *openAIProvider) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + p.apiKey}
}

func newHTTPClient(seconds int64) *http.Client {
	timeout := defaultProviderTimeout
	if seconds > 0 {
		timeout = time.Duration(seconds) * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func postJSON(ctx context.Context, client *http.Client, provider, endpoint string, headers map[string]string, in interface{}, out interface{}) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s request failed: %s: %s", provider, resp.Status, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", provider, err)
	}
	return nil
}

func newOpenAIProvider(args interface{}) (*openAIProvider, error) {
	cfg := &openAIConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if err := requireAPIKey("openai", cfg.APIKey); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &openAIProvider{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newHTTPClient(cfg.Timeout),
	}, nil
}

func createOpenAIFactory(args interface{}) (IProvider, error) {
	return newOpenAIProvider(args)
}

func createOpenAIEmbedFactory(args interface{}) (IEmbedProvider, error) {
	return newOpenAIProvider(args)
}

func init() {
	Register("openai", createOpenAIFactory)
	RegisterEmbed("openai", createOpenAIEmbedFactory)
}
