package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultAuditConfig(t *testing.T) {
	cfg := DefaultAuditConfig()
	if cfg.Enabled {
		t.Fatal("expected audit disabled by default")
	}
	if cfg.OutputPath != "stderr" {
		t.Fatalf("expected stderr, got %s", cfg.OutputPath)
	}
}

func TestAuditLogger_New_File(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.log")

	l, err := NewAuditLogger(&AuditConfig{Enabled: true, OutputPath: logPath})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l.LogExport("bestiaire-cendrebourg.json", 3)
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"event_type":"export"`) {
		t.Fatalf("expected export event, got %s", data)
	}
}

func TestAuditLogger_Disabled(t *testing.T) {
	l, err := NewAuditLogger(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.Log(&AuditEvent{EventType: AuditEventExport}); err != nil {
		t.Fatalf("disabled logger should drop events: %v", err)
	}
}

func TestAuditLogger_NilSafe(t *testing.T) {
	var l *AuditLogger
	l.LogGenerationStart("r", "anthropic", "m", 0.9)
	if err := l.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAuditLogger_SessionID(t *testing.T) {
	var buf bytes.Buffer
	l := NewAuditWriter(&buf, "")
	if len(l.SessionID()) != 36 {
		t.Fatalf("expected uuid session id, got %q", l.SessionID())
	}

	fixed := NewAuditWriter(&buf, "session-1")
	if fixed.SessionID() != "session-1" {
		t.Fatalf("expected session-1, got %q", fixed.SessionID())
	}
}

func decodeEvents(t *testing.T, buf *bytes.Buffer) []AuditEvent {
	t.Helper()
	var events []AuditEvent
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var ev AuditEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		events = append(events, ev)
	}
	return events
}

func TestAuditLogger_GenerationEvents(t *testing.T) {
	var buf bytes.Buffer
	l := NewAuditWriter(&buf, "s")

	l.LogGenerationStart("req-1", "anthropic", "claude-haiku-4-5-20251001", 0.7)
	l.LogGenerationEnd("req-1", "claude-haiku-4-5-20251001", "Goule", 2*time.Second, 100, 200, 0.00088)
	l.LogLLMError("req-2", "anthropic", "m", time.Second, errors.New("overloaded"))
	l.LogParseError("req-3", "m", 12, errors.New("JSON parse error: x"))

	events := decodeEvents(t, &buf)
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}

	want := []AuditEventType{AuditEventGenerationStart, AuditEventGenerationEnd, AuditEventLLMError, AuditEventParseError}
	for i, ev := range events {
		if ev.EventType != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], ev.EventType)
		}
		if ev.SessionID != "s" {
			t.Errorf("event %d: expected session s, got %q", i, ev.SessionID)
		}
		if ev.Timestamp.IsZero() {
			t.Errorf("event %d: missing timestamp", i)
		}
	}

	if events[1].DurationMs != 2000 {
		t.Errorf("expected 2000ms, got %d", events[1].DurationMs)
	}
	if events[1].Details["total_tokens"] != float64(300) {
		t.Errorf("expected 300 total tokens, got %v", events[1].Details["total_tokens"])
	}
	if events[2].Success || events[2].ErrorDetail != "overloaded" {
		t.Errorf("unexpected llm error event: %+v", events[2])
	}
}

func TestAuditLogger_Collection(t *testing.T) {
	var buf bytes.Buffer
	l := NewAuditWriter(&buf, "s")

	l.LogCollection(AuditEventCollectionAdd, "id-1", "Goule", nil)
	l.LogCollection(AuditEventCollectionAdd, "", "Goule", errors.New("duplicate"))

	events := decodeEvents(t, &buf)
	if !events[0].Success || events[1].Success {
		t.Fatalf("unexpected success flags: %+v", events)
	}
	if events[1].ErrorDetail != "duplicate" {
		t.Fatalf("expected error detail, got %q", events[1].ErrorDetail)
	}
}
