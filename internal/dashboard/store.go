package dashboard

import (
	"sync"
)

// DefaultHistorySize caps the history when no size is configured.
const DefaultHistorySize = 50

// Store keeps the most recent generations in memory, oldest evicted first.
type Store struct {
	mu      sync.RWMutex
	max     int
	history []HistoryEntry
}

// NewStore creates a store holding at most size entries.
func NewStore(size int) *Store {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &Store{
		max:     size,
		history: make([]HistoryEntry, 0, size),
	}
}

// Add appends an entry, evicting the oldest past the cap.
func (s *Store) Add(entry HistoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, entry)
	if len(s.history) > s.max {
		s.history = append(s.history[:0:0], s.history[len(s.history)-s.max:]...)
	}
}

// List returns up to limit entries, most recent first. A limit <= 0
// returns everything.
func (s *Store) List(limit int) []HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]HistoryEntry, 0, n)
	for i := len(s.history) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.history[i])
	}
	return out
}

// Get returns the entry with the given request id.
func (s *Store) Get(id string) (HistoryEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.history {
		if e.ID == id {
			return e, true
		}
	}
	return HistoryEntry{}, false
}

// Len returns the number of retained entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// Stats computes aggregate statistics over the retained history.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats Stats
	var latency int64
	var billed int
	for _, e := range s.history {
		stats.Generations++
		switch e.Outcome {
		case OutcomeCreature:
			stats.Creatures++
		case OutcomeParseError:
			stats.ParseFailures++
		case OutcomeFailed:
			stats.Failures++
		}
		if e.Usage != nil {
			billed++
			latency += e.Usage.LatencyMs
			stats.TotalTokens += e.Usage.TotalTokens
			stats.CostUSD += e.Usage.CostUSD
		}
	}
	if billed > 0 {
		stats.AvgLatencyMs = float64(latency) / float64(billed)
	}
	return stats
}
