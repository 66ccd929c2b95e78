package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/efebarandurmaz/bestiary/internal/llm"
)

func okHandler(captured *map[string]any, headers *http.Header) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if headers != nil {
			*headers = r.Header
		}
		if captured != nil {
			bodyBytes, _ := io.ReadAll(r.Body)
			json.Unmarshal(bodyBytes, captured)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": "response"}},
			"model":   "claude-sonnet-4-20250514",
			"usage":   map[string]int{"input_tokens": 10, "output_tokens": 20},
		})
	}
}

func userPrompt() *llm.Prompt {
	return llm.NewPrompt("", "test")
}

func TestNew_SetsDefaults(t *testing.T) {
	client := New("test-key", "test-model", "")

	if client.apiKey != "test-key" {
		t.Errorf("expected apiKey 'test-key', got %q", client.apiKey)
	}
	if client.model != "test-model" {
		t.Errorf("expected model 'test-model', got %q", client.model)
	}
	if client.Endpoint() != defaultBaseURL+"/messages" {
		t.Errorf("expected default endpoint, got %q", client.Endpoint())
	}
	if client.Name() != "anthropic" {
		t.Errorf("expected name 'anthropic', got %q", client.Name())
	}
}

func TestNewProxy_UsesEndpointVerbatim(t *testing.T) {
	client := NewProxy("http://localhost:5173/api/generate", "", "m")
	if client.Endpoint() != "http://localhost:5173/api/generate" {
		t.Errorf("unexpected endpoint %q", client.Endpoint())
	}
	if client.Name() != "proxy" {
		t.Errorf("expected name 'proxy', got %q", client.Name())
	}
}

func TestComplete_CorrectHeaders(t *testing.T) {
	var headers http.Header
	server := httptest.NewServer(okHandler(nil, &headers))
	defer server.Close()

	client := New("test-api-key", "model", server.URL)
	if _, err := client.Complete(context.Background(), userPrompt(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if headers.Get("x-api-key") != "test-api-key" {
		t.Errorf("expected x-api-key 'test-api-key', got %q", headers.Get("x-api-key"))
	}
	if headers.Get("anthropic-version") != apiVersion {
		t.Errorf("expected anthropic-version %q, got %q", apiVersion, headers.Get("anthropic-version"))
	}
	if headers.Get("Content-Type") != "application/json" {
		t.Errorf("expected Content-Type 'application/json', got %q", headers.Get("Content-Type"))
	}
}

func TestComplete_ProxyOmitsEmptyAPIKey(t *testing.T) {
	var headers http.Header
	server := httptest.NewServer(okHandler(nil, &headers))
	defer server.Close()

	client := NewProxy(server.URL+"/api/generate", "", "model")
	if _, err := client.Complete(context.Background(), userPrompt(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := headers["X-Api-Key"]; ok {
		t.Error("expected no x-api-key header for keyless proxy")
	}
}

func TestComplete_CorrectJSONBody(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(okHandler(&body, nil))
	defer server.Close()

	client := New("key", "default-model", server.URL)
	temp := 0.9
	_, err := client.Complete(context.Background(), llm.NewPrompt("Tu es un bestiaire", "Hello"), &llm.RequestOptions{
		Model:       "claude-haiku-4-5-20251001",
		Temperature: &temp,
		StopSeqs:    []string{"STOP"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if body["model"] != "claude-haiku-4-5-20251001" {
		t.Errorf("expected per-request model, got %v", body["model"])
	}
	if body["max_tokens"] != float64(defaultMaxTokens) {
		t.Errorf("expected max_tokens %d, got %v", defaultMaxTokens, body["max_tokens"])
	}
	if body["system"] != "Tu es un bestiaire" {
		t.Errorf("expected system prompt, got %v", body["system"])
	}
	if body["temperature"] != 0.9 {
		t.Errorf("expected temperature 0.9, got %v", body["temperature"])
	}
	messages := body["messages"].([]interface{})
	if len(messages) != 1 {
		t.Errorf("expected 1 message, got %d", len(messages))
	}
	stopSeqs := body["stop_sequences"].([]interface{})
	if len(stopSeqs) != 1 || stopSeqs[0] != "STOP" {
		t.Errorf("expected stop_sequences ['STOP'], got %v", stopSeqs)
	}
}

func TestComplete_ConcatenatesFragmentsInOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"content": [
				{"type": "text", "text": "{\"name\":"},
				{"type": "tool_use", "id": "x"},
				{"type": "text", "text": "\"Ver\"}"}
			],
			"model": "claude-sonnet-4-20250514",
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 100, "output_tokens": 50}
		}`))
	}))
	defer server.Close()

	resp, err := New("key", "model", server.URL).Complete(context.Background(), userPrompt(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != `{"name":"Ver"}` {
		t.Errorf("unexpected content %q", resp.Content)
	}
	if resp.StopReason != "end_turn" {
		t.Errorf("expected stop_reason 'end_turn', got %q", resp.StopReason)
	}
	if resp.InputTokens != 100 || resp.OutputTokens != 50 {
		t.Errorf("unexpected usage %d/%d", resp.InputTokens, resp.OutputTokens)
	}
}

func TestComplete_MissingContentAndUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	resp, err := New("key", "model", server.URL).Complete(context.Background(), userPrompt(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "" || resp.InputTokens != 0 || resp.OutputTokens != 0 {
		t.Errorf("expected zero response, got %+v", resp)
	}
}

func TestComplete_ErrorFieldIsUpstreamError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"proxy string error with 200", http.StatusOK, `{"error": "quota exceeded"}`, "quota exceeded"},
		{"proxy string error with 401", http.StatusUnauthorized, `{"error": "invalid api key"}`, "invalid api key"},
		{"api error object", http.StatusBadRequest, `{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens too large"}}`, "max_tokens too large"},
		{"error object without message", http.StatusOK, `{"error":{"code":7}}`, `{"code":7}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := New("key", "model", server.URL).Complete(context.Background(), userPrompt(), nil)
			var upstream *llm.UpstreamError
			if !errors.As(err, &upstream) {
				t.Fatalf("expected UpstreamError, got %v", err)
			}
			if upstream.Message != tt.want {
				t.Errorf("expected message %q, got %q", tt.want, upstream.Message)
			}
			if upstream.StatusCode != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, upstream.StatusCode)
			}
		})
	}
}

func TestComplete_NullErrorFieldIgnored(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": null, "content": [{"type":"text","text":"ok"}]}`))
	}))
	defer server.Close()

	resp, err := New("key", "model", server.URL).Complete(context.Background(), userPrompt(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("expected 'ok', got %q", resp.Content)
	}
}

func TestComplete_HandlesNon200WithoutErrorField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`upstream down`))
	}))
	defer server.Close()

	_, err := New("key", "model", server.URL).Complete(context.Background(), userPrompt(), nil)
	if err == nil {
		t.Fatal("expected error for non-200 status")
	}
	if !strings.Contains(err.Error(), "502") || !strings.Contains(err.Error(), "upstream down") {
		t.Errorf("expected status and body in error, got: %v", err)
	}
}

func TestComplete_HandlesMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{invalid json`))
	}))
	defer server.Close()

	_, err := New("key", "model", server.URL).Complete(context.Background(), userPrompt(), nil)
	if err == nil {
		t.Fatal("expected error for malformed JSON")
	}
	var upstream *llm.UpstreamError
	if errors.As(err, &upstream) {
		t.Error("malformed body on 200 is a transport error, not an upstream error")
	}
}
