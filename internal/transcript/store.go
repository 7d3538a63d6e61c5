// Package transcript holds the ordered, append-only log of conversation
// turns. Append is the only mutator; the render layer consumes snapshots and
// is nudged to scroll to the latest turn after every append.
package transcript

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"mayachat/internal/protocol"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single transcript entry. Component is the assistant's UI
// descriptor when present; user turns never carry one.
type Turn struct {
	ID        string
	Role      Role
	Content   string
	Component *protocol.UIComponent
	Time      time.Time
}

// Store is the append-only transcript. Safe for use from the Update loop and
// background command goroutines.
type Store struct {
	mu     sync.RWMutex
	turns  []Turn
	notify func()
}

// New builds an empty store. notify is called after every append so the
// presentation layer can scroll to the latest turn; nil is allowed.
func New(notify func()) *Store {
	return &Store{notify: notify}
}

// Append adds a turn, assigning its id and timestamp, and fires the
// scroll-to-latest notification. Returns the stored turn.
func (s *Store) Append(role Role, content string, component *protocol.UIComponent) Turn {
	s.mu.Lock()
	turn := Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Component: component,
		Time:      time.Now(),
	}
	s.turns = append(s.turns, turn)
	notify := s.notify
	s.mu.Unlock()

	if notify != nil {
		notify()
	}
	return turn
}

// All returns a snapshot of the transcript in insertion order.
func (s *Store) All() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of turns.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// Last returns the most recent turn and whether one exists.
func (s *Store) Last() (Turn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.turns) == 0 {
		return Turn{}, false
	}
	return s.turns[len(s.turns)-1], true
}
