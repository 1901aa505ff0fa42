// Package store holds the in-memory event collection.
//
// Every mutation builds a fresh immutable snapshot and publishes it with a
// single atomic swap, so readers (grid, filters, HTTP handlers) never see a
// half-applied change and never need a lock.
package store

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	appLog "deskcal/internal/log"
	"deskcal/internal/model"
)

// Snapshot is one published state of the store. It must not be modified.
type Snapshot struct {
	// Version increases by one with every successful mutation.
	Version uint64
	Events  []model.Event
}

// Find returns the event with the given id.
func (s *Snapshot) Find(id string) (model.Event, bool) {
	if i := s.index(id); i >= 0 {
		return s.Events[i], true
	}
	return model.Event{}, false
}

func (s *Snapshot) index(id string) int {
	return slices.IndexFunc(s.Events, func(e model.Event) bool { return e.ID == id })
}

// EventStore owns the ordered event collection. Writers are serialized by
// mu; readers only load the current snapshot pointer.
type EventStore struct {
	mu       sync.Mutex
	current  atomic.Pointer[Snapshot]
	newID    func() string
	onChange func(*Snapshot)
}

// Option configures an EventStore.
type Option func(*EventStore)

// WithIDGenerator overrides how new event ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(s *EventStore) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithOnChange registers a hook that receives every newly published
// snapshot. It runs while the write lock is held and must not call back
// into the store's mutating methods.
func WithOnChange(fn func(*Snapshot)) Option {
	return func(s *EventStore) {
		s.onChange = fn
	}
}

// New returns an empty store.
func New(opts ...Option) *EventStore {
	s := &EventStore{
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(&Snapshot{})
	return s
}

// Snapshot returns the current published state.
func (s *EventStore) Snapshot() *Snapshot {
	return s.current.Load()
}

// List returns a copy of the current events in insertion order.
func (s *EventStore) List() []model.Event {
	return slices.Clone(s.Snapshot().Events)
}

// Get looks up a single event by id.
func (s *EventStore) Get(id string) (model.Event, error) {
	ev, ok := s.Snapshot().Find(id)
	if !ok {
		return model.Event{}, model.ErrNotFound
	}
	return ev, nil
}

// Add normalizes ev, validates it, assigns it a fresh id (any id on ev is
// ignored) and appends it. Normalizing trims surrounding whitespace from the
// title and color and fills an empty color with model.DefaultColor, so the
// stored event equals the input only when the input was already normalized.
// On a validation error the store is unchanged.
func (s *EventStore) Add(ev model.Event) (string, error) {
	ev = ev.Normalized()
	if err := ev.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ev.ID = s.newID()
	cur := s.current.Load()
	next := make([]model.Event, len(cur.Events), len(cur.Events)+1)
	copy(next, cur.Events)
	next = append(next, ev)
	s.publish(cur, next)

	appLog.Debug("store: event added", "id", ev.ID, "date", ev.Date, "version", cur.Version+1)
	return ev.ID, nil
}

// Update replaces every field of the event identified by id with the values
// from patch. The id and the event's position are preserved. It returns
// model.ErrNotFound when id is unknown and a *model.ValidationError when
// patch is invalid; in both cases the store is unchanged.
func (s *EventStore) Update(id string, patch model.Event) (model.Event, error) {
	patch = patch.Normalized()
	if err := patch.Validate(); err != nil {
		return model.Event{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	i := cur.index(id)
	if i < 0 {
		return model.Event{}, model.ErrNotFound
	}

	patch.ID = id
	next := slices.Clone(cur.Events)
	next[i] = patch
	s.publish(cur, next)

	appLog.Debug("store: event updated", "id", id, "version", cur.Version+1)
	return patch, nil
}

// Remove deletes the event with the given id and reports whether one was
// removed. Removing an unknown id is a no-op and does not bump the version.
func (s *EventStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	i := cur.index(id)
	if i < 0 {
		return false
	}

	next := make([]model.Event, 0, len(cur.Events)-1)
	next = append(next, cur.Events[:i]...)
	next = append(next, cur.Events[i+1:]...)
	s.publish(cur, next)

	appLog.Debug("store: event removed", "id", id, "version", cur.Version+1)
	return true
}

// Replace installs a whole collection at once, as done when seeding from a
// bootstrap dataset or restoring a saved state. Events without an id (or
// with an id already seen earlier in events) get a fresh one. Invalid events
// are rejected as a batch and the store is left unchanged.
func (s *EventStore) Replace(events []model.Event) error {
	next := make([]model.Event, 0, len(events))
	for _, ev := range events {
		ev = ev.Normalized()
		if err := ev.Validate(); err != nil {
			return err
		}
		next = append(next, ev)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(next))
	for i := range next {
		if next[i].ID == "" || seen[next[i].ID] {
			next[i].ID = s.newID()
		}
		seen[next[i].ID] = true
	}

	cur := s.current.Load()
	s.publish(cur, next)

	appLog.Info("store: collection replaced", "count", len(next), "version", cur.Version+1)
	return nil
}

// publish must be called with mu held.
func (s *EventStore) publish(cur *Snapshot, events []model.Event) {
	snap := &Snapshot{Version: cur.Version + 1, Events: events}
	s.current.Store(snap)
	if s.onChange != nil {
		s.onChange(snap)
	}
}
