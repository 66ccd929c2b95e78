package dashboard

import (
	"time"

	"github.com/efebarandurmaz/bestiary/internal/collection"
	"github.com/efebarandurmaz/bestiary/internal/generator"
)

// Emitter turns generation and collection activity into history entries
// and SSE events. It is safe to use from multiple goroutines.
type Emitter struct {
	store *Store
	hub   *Hub
}

// NewEmitter creates a new event emitter.
func NewEmitter(store *Store, hub *Hub) *Emitter {
	return &Emitter{store: store, hub: hub}
}

// Observe records a generation event. It matches generator.Observer.
func (e *Emitter) Observe(ev generator.Event) {
	switch ev.Type {
	case generator.EventStarted:
		e.broadcast(EventGenerationStarted, ev.RequestID, map[string]string{"model": ev.Model})

	case generator.EventCompleted:
		entry := historyEntry(ev, OutcomeCreature)
		entry.CreatureName = ev.Result.Creature.Name()
		e.store.Add(entry)
		e.broadcast(EventGenerationCompleted, ev.RequestID, entry)

	case generator.EventParseFailed:
		entry := historyEntry(ev, OutcomeParseError)
		entry.ParseError = ev.Result.ParseError.Error()
		e.store.Add(entry)
		e.broadcast(EventGenerationParseFailed, ev.RequestID, entry)

	case generator.EventFailed:
		entry := historyEntry(ev, OutcomeFailed)
		if ev.Err != nil {
			entry.Error = ev.Err.Error()
		}
		e.store.Add(entry)
		e.broadcast(EventGenerationFailed, ev.RequestID, entry)
	}
}

func historyEntry(ev generator.Event, outcome Outcome) HistoryEntry {
	entry := HistoryEntry{
		ID:      ev.RequestID,
		Time:    ev.Time,
		Model:   ev.Model,
		Outcome: outcome,
	}
	if entry.Time.IsZero() {
		entry.Time = time.Now()
	}
	if ev.Result != nil {
		usage := ev.Result.Usage
		entry.Usage = &usage
	}
	return entry
}

// CollectionAdded announces a new collection entry.
func (e *Emitter) CollectionAdded(entry collection.Entry) {
	e.broadcast(EventCollectionAdded, "", entry)
}

// CollectionRemoved announces a removed collection entry.
func (e *Emitter) CollectionRemoved(entry collection.Entry) {
	e.broadcast(EventCollectionRemoved, "", map[string]string{"id": entry.ID, "name": entry.Name()})
}

// CollectionCleared announces that the collection was emptied.
func (e *Emitter) CollectionCleared() {
	e.broadcast(EventCollectionCleared, "", nil)
}

func (e *Emitter) broadcast(t EventType, requestID string, data any) {
	e.hub.Broadcast(&Event{
		Type:      t,
		Timestamp: time.Now(),
		RequestID: requestID,
		Data:      data,
	})
}
