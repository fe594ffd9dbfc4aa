package transcript

import (
	"sync"

	"appforge/protocol"
)

// Store holds one session's transcript. It is constructor-injected into
// whatever owns the conversation view; there is deliberately no package
// level instance, so independent sessions (tabs, tests) never share state.
//
// During a run the store is written only by that run's stream session;
// between runs only by hydration. Both paths go through the pure Reduce
// fold, so a snapshot taken at any point stays valid.
type Store struct {
	mu       sync.RWMutex
	messages []Message
}

func NewStore() *Store {
	return &Store{}
}

// Hydrate replaces the transcript with persisted messages. Only called when
// no run is active for the session.
func (s *Store) Hydrate(msgs []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append([]Message(nil), msgs...)
}

// Snapshot returns the current message list. The slice is shared with the
// store but its messages are never edited in place, so it is safe to render
// from.
func (s *Store) Snapshot() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.messages
}

// AppendUser records the submitted prompt synchronously, before the run
// starts.
func (s *Store) AppendUser(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := append([]Message(nil), s.messages...)
	s.messages = append(next, NewUserMessage(content))
}

// Apply folds one stream event into the transcript and reports its
// side-channel effects.
func (s *Store) Apply(event protocol.Event) Effects {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, fx := Reduce(s.messages, event)
	s.messages = next
	return fx
}

// CloseRun seals the in-progress assistant message, if any.
func (s *Store) CloseRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = CloseRun(s.messages)
}

// Clear drops the transcript, used when its session is deleted.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}
