// Package line is a minimal LINE Messaging API client.
package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xxxsen/docqa/internal/model"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

const (
	DefaultBaseURL = "https://api.line.me"
	// MaxTextRunes is the longest text a single LINE text message may carry.
	MaxTextRunes = 5000
)

// DeliveryError is returned when the platform answers with a non-2xx status.
type DeliveryError struct {
	Op     string
	Status int
	Body   string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("line %s failed: status %d: %s", e.Op, e.Status, e.Body)
}

func (e *DeliveryError) Unwrap() error {
	return appErr.ErrMessagingDelivery
}

type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u = strings.TrimSpace(u); u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

func NewClient(accessToken string, opts ...Option) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type replyRequest struct {
	ReplyToken string              `json:"replyToken"`
	Messages   []model.TextMessage `json:"messages"`
}

type pushRequest struct {
	To       string              `json:"to"`
	Messages []model.TextMessage `json:"messages"`
}

// Reply answers an event with its one-time reply token.
func (c *Client) Reply(ctx context.Context, replyToken string, messages []model.TextMessage) error {
	if replyToken == "" {
		return fmt.Errorf("%w: reply token is empty", appErr.ErrInvalid)
	}
	return c.post(ctx, "reply", "/v2/bot/message/reply", replyRequest{ReplyToken: replyToken, Messages: messages})
}

// Push sends messages to a user, group or room id without a reply token.
func (c *Client) Push(ctx context.Context, to string, messages []model.TextMessage) error {
	if to == "" {
		return fmt.Errorf("%w: push target is empty", appErr.ErrInvalid)
	}
	return c.post(ctx, "push", "/v2/bot/message/push", pushRequest{To: to, Messages: messages})
}

func (c *Client) post(ctx context.Context, op, path string, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: line %s: %w", appErr.ErrMessagingDelivery, op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &DeliveryError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// TruncateText cuts text to the platform's per-message limit.
func TruncateText(text string) string {
	r := []rune(text)
	if len(r) <= MaxTextRunes {
		return text
	}
	return string(r[:MaxTextRunes])
}
