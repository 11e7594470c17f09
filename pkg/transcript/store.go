// Package transcript holds the ordered log of exchanged messages for one
// chat session.
package transcript

import (
	"errors"
	"fmt"
	"sync"
)

// ErrOutOfRange is returned when an index does not address an existing message.
var ErrOutOfRange = errors.New("transcript index out of range")

// Store is an append-only sequence of messages. Entries are never removed;
// existing ones can only be patched in place.
type Store struct {
	mu       sync.RWMutex
	messages []Message
}

func NewStore() *Store {
	return &Store{}
}

// Append adds msg to the end of the transcript and returns its index.
func (s *Store) Append(msg Message) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, msg)
	return len(s.messages) - 1
}

// PatchAt merges p into the message at index.
func (s *Store) PatchAt(index int, p Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.messages) {
		return fmt.Errorf("%w: %d (len %d)", ErrOutOfRange, index, len(s.messages))
	}
	s.messages[index] = p.apply(s.messages[index])
	return nil
}

// PatchWhere merges p into every message matching predicate and returns the
// number of messages touched.
func (s *Store) PatchWhere(predicate func(Message) bool, p Patch) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for i, msg := range s.messages {
		if predicate(msg) {
			s.messages[i] = p.apply(msg)
			count++
		}
	}
	return count
}

func (s *Store) Get(index int) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index < 0 || index >= len(s.messages) {
		return Message{}, false
	}
	return s.messages[index], true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.messages)
}

// All returns a copy of the transcript.
func (s *Store) All() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]Message(nil), s.messages...)
}

// PendingCount returns how many messages are still waiting for a reply.
func (s *Store) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, msg := range s.messages {
		if msg.Pending() {
			n++
		}
	}
	return n
}
