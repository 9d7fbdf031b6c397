// Package llm provides a thin pass-through client for the OpenRouter
// chat-completion API. The client performs no retries: a failed upstream call
// is reported once to the caller, preserving the upstream status code.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNoAPIKey is returned when the client is constructed without a key.
var ErrNoAPIKey = errors.New("OpenRouter API key is not configured")

// Message is a single role/content turn in a conversation.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// Choice is one completion alternative in an upstream response.
type Choice struct {
	Message Message `json:"message"`
}

// Completion is the normalized upstream chat-completion payload. Raw carries
// the unmodified upstream body for callers that pass it through verbatim.
type Completion struct {
	ID      string          `json:"id"`
	Model   string          `json:"model"`
	Choices []Choice        `json:"choices"`
	Raw     json.RawMessage `json:"-"`
}

// FirstContent returns the first choice's message content, or "".
func (c *Completion) FirstContent() string {
	if c == nil || len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].Message.Content
}

// UpstreamError carries a non-2xx upstream response so handlers can forward
// the original status code and details.
type UpstreamError struct {
	Status int
	Body   string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("openrouter: upstream returned %d: %s", e.Status, e.Body)
}

// Client calls the OpenRouter HTTP API.
type Client struct {
	apiKey       string
	baseURL      string
	defaultModel string
	httpClient   *http.Client
	referer      string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithReferer sets the HTTP-Referer header OpenRouter uses for app attribution.
func WithReferer(ref string) Option {
	return func(c *Client) { c.referer = ref }
}

// NewClient constructs a Client. An empty API key is allowed here; calls
// will fail with ErrNoAPIKey so handlers can map it to a 500.
func NewClient(apiKey, baseURL, defaultModel string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		apiKey:       apiKey,
		baseURL:      strings.TrimRight(baseURL, "/"),
		defaultModel: defaultModel,
		httpClient:   &http.Client{Timeout: timeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

// DefaultModel returns the model id used when the caller does not name one.
func (c *Client) DefaultModel() string { return c.defaultModel }

// ChatCompletion forwards messages to the chat-completions endpoint and
// returns the upstream payload. A non-2xx upstream response is returned as
// *UpstreamError with the original status and body.
func (c *Client) ChatCompletion(ctx context.Context, messages []Message, model string) (*Completion, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if model == "" {
		model = c.defaultModel
	}

	payload := map[string]any{
		"model":    model,
		"messages": messages,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("openrouter: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openrouter: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openrouter: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openrouter: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Status: resp.StatusCode, Body: string(raw)}
	}

	var out Completion
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("openrouter: decode response: %w", err)
	}
	out.Raw = raw
	return &out, nil
}

// ListModels fetches the upstream model catalog and returns how many models
// are available. Used by the connectivity-check endpoint.
func (c *Client) ListModels(ctx context.Context) (int, error) {
	if c.apiKey == "" {
		return 0, ErrNoAPIKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return 0, fmt.Errorf("openrouter: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("openrouter: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("openrouter: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, &UpstreamError{Status: resp.StatusCode, Body: string(raw)}
	}

	var out struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return 0, fmt.Errorf("openrouter: decode response: %w", err)
	}
	return len(out.Data), nil
}
