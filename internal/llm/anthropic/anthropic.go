package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/efebarandurmaz/bestiary/internal/llm"
)

const (
	defaultBaseURL   = "https://api.anthropic.com/v1"
	defaultMaxTokens = 2500
	apiVersion       = "2023-06-01"
)

// Client implements llm.Provider for the Anthropic Messages wire format.
// The same client talks to a same-origin proxy that forwards that format.
type Client struct {
	name     string
	apiKey   string
	model    string
	endpoint string
	http     *http.Client
}

// New creates an Anthropic provider that posts to <baseURL>/messages.
func New(apiKey, model, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		name:     "anthropic",
		apiKey:   apiKey,
		model:    model,
		endpoint: strings.TrimRight(baseURL, "/") + "/messages",
		http:     &http.Client{},
	}
}

// NewProxy creates a provider that posts the Messages body verbatim to
// endpoint. The API key is optional; proxies usually hold their own.
func NewProxy(endpoint, apiKey, model string) *Client {
	return &Client{
		name:     "proxy",
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
		http:     &http.Client{},
	}
}

// WithTimeout sets a per-request timeout on the underlying HTTP client.
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.http.Timeout = d
	return c
}

func (c *Client) Name() string { return c.name }

// Endpoint returns the URL requests are posted to.
func (c *Client) Endpoint() string { return c.endpoint }

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Usage      *struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error json.RawMessage `json:"error"`
}

func (c *Client) Complete(ctx context.Context, prompt *llm.Prompt, opts *llm.RequestOptions) (*llm.Response, error) {
	model := c.model
	maxTokens := defaultMaxTokens
	if opts != nil {
		if opts.Model != "" {
			model = opts.Model
		}
		if opts.MaxTokens != nil {
			maxTokens = *opts.MaxTokens
		}
	}

	body := map[string]any{
		"model":      model,
		"max_tokens": maxTokens,
	}
	if prompt.SystemPrompt != "" {
		body["system"] = prompt.SystemPrompt
	}

	msgs := make([]map[string]string, len(prompt.Messages))
	for i, m := range prompt.Messages {
		msgs[i] = map[string]string{"role": string(m.Role), "content": m.Content}
	}
	body["messages"] = msgs

	if opts != nil {
		if opts.Temperature != nil {
			body["temperature"] = *opts.Temperature
		}
		if opts.TopP != nil {
			body["top_p"] = *opts.TopP
		}
		if len(opts.StopSeqs) > 0 {
			body["stop_sequences"] = opts.StopSeqs
		}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("anthropic-version", apiVersion)
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var result messagesResponse
	decodeErr := json.Unmarshal(respBody, &result)

	if decodeErr == nil {
		if msg, ok := errorMessage(result.Error); ok {
			return nil, &llm.UpstreamError{Provider: c.name, StatusCode: resp.StatusCode, Message: msg}
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &llm.UpstreamError{
			Provider:   c.name,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s: %s", resp.Status, bytes.TrimSpace(respBody)),
		}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%s: decoding response: %w", c.name, decodeErr)
	}

	var text strings.Builder
	for _, block := range result.Content {
		text.WriteString(block.Text)
	}

	out := &llm.Response{
		Content:    text.String(),
		Model:      result.Model,
		StopReason: result.StopReason,
	}
	if result.Usage != nil {
		out.InputTokens = result.Usage.InputTokens
		out.OutputTokens = result.Usage.OutputTokens
	}
	return out, nil
}

// errorMessage extracts the endpoint's error text. Proxies send a plain
// string; the Messages API sends {"type": ..., "message": ...}.
func errorMessage(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte("false")) {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return "", false
		}
		return s, true
	}

	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return obj.Message, true
	}
	return string(raw), true
}
