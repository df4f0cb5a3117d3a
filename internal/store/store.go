// Package store holds the current app config document of an editing session.
// All writes go through Update or Replace; each committed write bumps the
// version and is announced to subscribers before the call returns.
package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/soochol/appcfg/internal/document"
	"github.com/soochol/appcfg/internal/yamldoc"
)

// EventType names the kind of change an Event reports.
type EventType string

const (
	EventLoaded    EventType = "loaded"
	EventUpdated   EventType = "updated"
	EventReplaced  EventType = "replaced"
	EventDiscarded EventType = "discarded"
	EventSaved     EventType = "saved"
)

// Event is published after every committed change.
type Event struct {
	Type      EventType `json:"type"`
	Version   uint64    `json:"version"`
	Reason    string    `json:"reason,omitempty"`
	SessionID string    `json:"session_id"`
}

// Store is safe for concurrent use. Writers are serialized; readers always
// see a fully committed document.
type Store struct {
	wmu sync.Mutex // serializes writers, held across commit and publish

	mu      sync.RWMutex
	doc     *yamldoc.Document
	saved   *yamldoc.Document
	version uint64

	sessionID string
	bus       eventBus
}

// New returns a store holding doc as both the current and the saved
// document. A nil doc starts empty.
func New(doc *yamldoc.Document) *Store {
	if doc == nil {
		doc = yamldoc.New()
	}
	return &Store{
		doc:       doc,
		saved:     doc,
		sessionID: uuid.NewString(),
	}
}

// SessionID identifies this store instance in events and revisions.
func (s *Store) SessionID() string { return s.sessionID }

// Document returns a copy of the current document.
func (s *Store) Document() *yamldoc.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

// Snapshot returns a copy of the current document and its version, read
// together.
func (s *Store) Snapshot() (*yamldoc.Document, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone(), s.version
}

// Version counts committed changes since the store was created.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// YAML returns the current document text.
func (s *Store) YAML() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.String()
}

// IsDirty reports whether the current text differs from the last saved text.
func (s *Store) IsDirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.String() != s.saved.String()
}

// Update applies fn to a copy of the current document and commits the copy.
// If fn fails nothing is committed and no event is published.
func (s *Store) Update(reason string, fn document.Mutator) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	next, err := document.Apply(s.Document(), fn)
	if err != nil {
		return err
	}
	s.commit(EventUpdated, reason, next, false)
	return nil
}

// Replace parses text and makes it the current document. A parse error
// leaves the store unchanged.
func (s *Store) Replace(text string) error {
	doc, err := yamldoc.Parse([]byte(text))
	if err != nil {
		return err
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	s.commit(EventReplaced, "", doc, false)
	return nil
}

// Load makes doc both the current and the saved document, as after opening
// a file.
func (s *Store) Load(doc *yamldoc.Document) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	s.commit(EventLoaded, "", doc, true)
}

// Discard restores the last saved document.
func (s *Store) Discard() {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	s.mu.RLock()
	saved := s.saved
	s.mu.RUnlock()
	s.commit(EventDiscarded, "", saved.Clone(), false)
}

// MarkSaved records the current document as the saved one.
func (s *Store) MarkSaved() {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	s.mu.RLock()
	cur := s.doc
	s.mu.RUnlock()
	s.commit(EventSaved, "", cur, true)
}

// MarkSavedAt records doc, an earlier snapshot, as the saved document. Changes
// committed after it stay current and keep the store dirty.
func (s *Store) MarkSavedAt(doc *yamldoc.Document) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	s.mu.Lock()
	s.saved = doc
	cur := s.doc
	s.mu.Unlock()
	s.commit(EventSaved, "", cur, false)
}

// commit swaps in doc and publishes the event. Callers hold wmu.
func (s *Store) commit(typ EventType, reason string, doc *yamldoc.Document, saved bool) {
	s.mu.Lock()
	s.doc = doc
	if saved {
		s.saved = doc
	}
	s.version++
	ev := Event{Type: typ, Version: s.version, Reason: reason, SessionID: s.sessionID}
	s.mu.Unlock()

	s.bus.publish(ev)
}

// Subscribe registers handler for all future events and returns a function
// that removes it.
func (s *Store) Subscribe(handler EventHandler) func() {
	return s.bus.subscribe(handler)
}

// Channel delivers events on a buffered channel that is closed when ctx is
// done.
func (s *Store) Channel(ctx context.Context, bufSize int) <-chan Event {
	return s.bus.channel(ctx, bufSize)
}
