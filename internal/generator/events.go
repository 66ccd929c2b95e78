package generator

import "time"

// EventType identifies a generation lifecycle event.
type EventType string

const (
	EventStarted     EventType = "generation_started"
	EventCompleted   EventType = "generation_completed"
	EventParseFailed EventType = "generation_parse_failed"
	EventFailed      EventType = "generation_failed"
)

// Event is delivered to observers as a generation progresses.
type Event struct {
	Type      EventType
	RequestID string
	Model     string
	Time      time.Time
	Result    *Result // set for completed and parse-failed events
	Err       error   // set for failed events
}

// Observer receives generation events synchronously.
type Observer func(Event)
