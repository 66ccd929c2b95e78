package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuditEventType categorizes audit events.
type AuditEventType string

const (
	AuditEventGenerationStart AuditEventType = "generation.start"
	AuditEventGenerationEnd   AuditEventType = "generation.end"
	AuditEventLLMError        AuditEventType = "llm.error"
	AuditEventParseError      AuditEventType = "interpret.error"
	AuditEventCollectionAdd   AuditEventType = "collection.add"
	AuditEventCollectionDrop  AuditEventType = "collection.remove"
	AuditEventExport          AuditEventType = "export"
)

// AuditEvent represents a single audit log entry.
type AuditEvent struct {
	Timestamp   time.Time      `json:"timestamp"`
	EventType   AuditEventType `json:"event_type"`
	SessionID   string         `json:"session_id"`
	RequestID   string         `json:"request_id,omitempty"`
	Success     bool           `json:"success"`
	DurationMs  int64          `json:"duration_ms,omitempty"`
	Message     string         `json:"message,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	ErrorDetail string         `json:"error_detail,omitempty"`
}

// AuditLogger writes audit events as JSON lines.
type AuditLogger struct {
	mu        sync.Mutex
	writer    io.Writer
	sessionID string
	enabled   bool
}

// AuditConfig configures the audit logger.
type AuditConfig struct {
	Enabled    bool
	OutputPath string // File path or "stdout"/"stderr"
	SessionID  string
}

// DefaultAuditConfig returns default audit configuration.
func DefaultAuditConfig() *AuditConfig {
	return &AuditConfig{
		Enabled:    false,
		OutputPath: "stderr",
	}
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(config *AuditConfig) (*AuditLogger, error) {
	if config == nil {
		config = DefaultAuditConfig()
	}
	if !config.Enabled {
		return &AuditLogger{enabled: false}, nil
	}

	var writer io.Writer
	switch config.OutputPath {
	case "stdout":
		writer = os.Stdout
	case "stderr", "":
		writer = os.Stderr
	default:
		f, err := os.OpenFile(config.OutputPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		writer = f
	}

	return NewAuditWriter(writer, config.SessionID), nil
}

// NewAuditWriter returns an enabled logger writing to w. An empty sessionID
// gets a random one.
func NewAuditWriter(w io.Writer, sessionID string) *AuditLogger {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return &AuditLogger{writer: w, sessionID: sessionID, enabled: true}
}

// SessionID returns the id stamped on every event.
func (l *AuditLogger) SessionID() string { return l.sessionID }

// Log writes an audit event. A nil or disabled logger drops it.
func (l *AuditLogger) Log(event *AuditEvent) error {
	if l == nil || !l.enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.SessionID == "" {
		event.SessionID = l.sessionID
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	_, err = fmt.Fprintf(l.writer, "%s\n", data)
	return err
}

// LogGenerationStart logs the settings of a generation about to run.
func (l *AuditLogger) LogGenerationStart(requestID, provider, model string, temperature float64) {
	l.Log(&AuditEvent{
		EventType: AuditEventGenerationStart,
		RequestID: requestID,
		Success:   true,
		Message:   fmt.Sprintf("Generation via %s/%s", provider, model),
		Details: map[string]any{
			"provider":    provider,
			"model":       model,
			"temperature": temperature,
		},
	})
}

// LogGenerationEnd logs a completed generation, interpreted or not.
func (l *AuditLogger) LogGenerationEnd(requestID, model, creatureName string, duration time.Duration, inputTokens, outputTokens int, costUSD float64) {
	l.Log(&AuditEvent{
		EventType:  AuditEventGenerationEnd,
		RequestID:  requestID,
		Success:    true,
		DurationMs: duration.Milliseconds(),
		Message:    fmt.Sprintf("Generated %q", creatureName),
		Details: map[string]any{
			"model":         model,
			"creature":      creatureName,
			"input_tokens":  inputTokens,
			"output_tokens": outputTokens,
			"total_tokens":  inputTokens + outputTokens,
			"cost_usd":      costUSD,
		},
	})
}

// LogLLMError logs a failed call to the text endpoint.
func (l *AuditLogger) LogLLMError(requestID, provider, model string, duration time.Duration, err error) {
	l.Log(&AuditEvent{
		EventType:   AuditEventLLMError,
		RequestID:   requestID,
		Success:     false,
		DurationMs:  duration.Milliseconds(),
		Message:     fmt.Sprintf("LLM error from %s/%s", provider, model),
		ErrorDetail: err.Error(),
		Details: map[string]any{
			"provider": provider,
			"model":    model,
		},
	})
}

// LogParseError logs generated text that was not a JSON document.
func (l *AuditLogger) LogParseError(requestID, model string, rawLen int, err error) {
	l.Log(&AuditEvent{
		EventType:   AuditEventParseError,
		RequestID:   requestID,
		Success:     false,
		Message:     "Generated text is not valid JSON",
		ErrorDetail: err.Error(),
		Details: map[string]any{
			"model":     model,
			"raw_bytes": rawLen,
		},
	})
}

// LogCollection logs a creature entering or leaving the collection.
func (l *AuditLogger) LogCollection(eventType AuditEventType, entryID, creatureName string, err error) {
	event := &AuditEvent{
		EventType: eventType,
		Success:   err == nil,
		Message:   creatureName,
		Details:   map[string]any{"entry_id": entryID},
	}
	if err != nil {
		event.ErrorDetail = err.Error()
	}
	l.Log(event)
}

// LogExport logs an export written by the user.
func (l *AuditLogger) LogExport(filename string, count int) {
	l.Log(&AuditEvent{
		EventType: AuditEventExport,
		Success:   true,
		Message:   fmt.Sprintf("Exported %d creature(s) to %s", count, filename),
		Details: map[string]any{
			"filename": filename,
			"count":    count,
		},
	})
}

// Close closes the audit logger (if using a file).
func (l *AuditLogger) Close() error {
	if l == nil {
		return nil
	}
	if closer, ok := l.writer.(io.Closer); ok {
		if closer != os.Stdout && closer != os.Stderr {
			return closer.Close()
		}
	}
	return nil
}
