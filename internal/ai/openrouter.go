package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

type openrouterConfig struct {
	APIKey      string `json:"api_key"`
	BaseURL     string `json:"base_url"`
	HTTPReferer string `json:"http_referer"`
	XTitle      string `json:"x_title"`
	Timeout     int64  `json:"timeout"` // seconds
}

type openrouterProvider struct {
	apiKey      string
	baseURL     string
	httpReferer string
	xTitle      string
	client      *http.Client
}

func (p *openrouterProvider) Name() string {
	return "openrouter"
}

func (p *openrouterProvider) Generate(ctx context.Context, model string, prompt string) (string, error) {
	reqBody := openAIChatRequest{
		Model:    model,
		Messages: []openAIChatMsg{{Role: "user", Content: prompt}},
	}
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}
	if p.httpReferer != "" {
		headers["HTTP-Referer"] = p.httpReferer
	}
	if p.xTitle != "" {
		headers["X-Title"] = p.xTitle
	}
	var out openAIChatResponse
	if err := postJSON(ctx, p.client, p.Name(), p.baseURL+"/chat/completions", headers, reqBody, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openrouter response has no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func createOpenRouterFactory(args interface{}) (IProvider, error) {
	cfg := &openrouterConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if err := requireAPIKey("openrouter", cfg.APIKey); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	return &openrouterProvider{
		apiKey:      strings.TrimSpace(cfg.APIKey),
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpReferer: strings.TrimSpace(cfg.HTTPReferer),
		xTitle:      strings.TrimSpace(cfg.XTitle),
		client:      newHTTPClient(cfg.Timeout),
	}, nil
}

func init() {
	Register("openrouter", createOpenRouterFactory)
}
