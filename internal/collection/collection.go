// Package collection keeps the creatures a user chose to keep during a
// session and exports them as JSON files.
package collection

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/efebarandurmaz/bestiary/internal/creature"
)

var (
	// ErrDuplicate is returned when a creature with the same name is already kept.
	ErrDuplicate = errors.New("collection: a creature with this name is already in the collection")
	// ErrNilCreature is returned when adding nothing.
	ErrNilCreature = errors.New("collection: no creature to add")
	// ErrNotFound is returned for unknown entry ids.
	ErrNotFound = errors.New("collection: entry not found")
)

// Entry is a kept creature.
type Entry struct {
	ID       string             `json:"id"`
	AddedAt  time.Time          `json:"added_at"`
	Creature *creature.Creature `json:"creature"`
}

// Name returns the kept creature's name.
func (e Entry) Name() string { return e.Creature.Name() }

// Collection is an ordered, process-local set of creatures. Names are
// unique; creatures without a name share the empty name.
type Collection struct {
	mu      sync.RWMutex
	entries []Entry
}

// New creates an empty collection.
func New() *Collection {
	return &Collection{}
}

// Add appends c unless a creature with the same name is already kept.
func (c *Collection) Add(cr *creature.Creature) (Entry, error) {
	if cr == nil {
		return Entry{}, ErrNilCreature
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	name := cr.Name()
	for _, e := range c.entries {
		if e.Name() == name {
			return Entry{}, ErrDuplicate
		}
	}

	entry := Entry{
		ID:       uuid.NewString(),
		AddedAt:  time.Now().UTC(),
		Creature: cr,
	}
	c.entries = append(c.entries, entry)
	return entry, nil
}

// Contains reports whether a creature with this name is kept.
func (c *Collection) Contains(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, e := range c.entries {
		if e.Name() == name {
			return true
		}
	}
	return false
}

// Get retrieves an entry by ID.
func (c *Collection) Get(id string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, e := range c.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// List returns the entries in insertion order.
func (c *Collection) List() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Creatures returns the kept creatures in insertion order.
func (c *Collection) Creatures() []*creature.Creature {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*creature.Creature, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Creature
	}
	return out
}

// Remove deletes an entry by ID.
func (c *Collection) Remove(id string) (Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, e := range c.entries {
		if e.ID == id {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}

// Len returns the number of kept creatures.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear empties the collection.
func (c *Collection) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
}
