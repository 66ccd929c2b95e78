package dashboard

import (
	"time"

	"github.com/efebarandurmaz/bestiary/internal/pricing"
)

// EventType identifies a real-time dashboard event.
type EventType string

const (
	EventConnected             EventType = "connected"
	EventGenerationStarted     EventType = "generation.started"
	EventGenerationCompleted   EventType = "generation.completed"
	EventGenerationParseFailed EventType = "generation.parse_failed"
	EventGenerationFailed      EventType = "generation.failed"
	EventCollectionAdded       EventType = "collection.added"
	EventCollectionRemoved     EventType = "collection.removed"
	EventCollectionCleared     EventType = "collection.cleared"
)

// Outcome classifies a finished generation.
type Outcome string

const (
	OutcomeCreature   Outcome = "creature"
	OutcomeParseError Outcome = "parse_error"
	OutcomeFailed     Outcome = "failed"
)

// HistoryEntry records one finished generation.
type HistoryEntry struct {
	ID           string         `json:"id"`
	Time         time.Time      `json:"time"`
	Model        string         `json:"model"`
	Outcome      Outcome        `json:"outcome"`
	CreatureName string         `json:"creature_name,omitempty"`
	ParseError   string         `json:"parse_error,omitempty"`
	Error        string         `json:"error,omitempty"`
	Usage        *pricing.Usage `json:"usage,omitempty"`
}

// Stats aggregates the retained history.
type Stats struct {
	Generations   int     `json:"generations"`
	Creatures     int     `json:"creatures"`
	ParseFailures int     `json:"parse_failures"`
	Failures      int     `json:"failures"`
	TotalTokens   int     `json:"total_tokens"`
	CostUSD       float64 `json:"cost_usd"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
	Collection    int     `json:"collection"`
}

// Event represents a real-time dashboard event.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// ErrorResponse is the body of every non-2xx API reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
