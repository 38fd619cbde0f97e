// Package memory holds the two conversation-memory horizons: a per-session
// short-term buffer of recent turns and process-wide long-term usage
// statistics shared by every session.
package memory

import (
	"time"

	"github.com/tanvirhossain/oporichita/internal/textnorm"
)

// ConversationTurn is one completed query/answer exchange. Immutable after
// creation; owned exclusively by the session's short-term memory.
type ConversationTurn struct {
	Query      string
	Language   textnorm.Language
	ContextRef string // ids of the chunks assembled into the prompt
	Answer     string
	Timestamp  time.Time
}

// ShortTerm is a bounded FIFO of recent turns for one session. It is not
// safe for concurrent use; the owning session serializes access.
type ShortTerm struct {
	capacity int
	turns    []ConversationTurn
}

// NewShortTerm creates a buffer holding at most capacity turns.
func NewShortTerm(capacity int) *ShortTerm {
	if capacity < 1 {
		capacity = 1
	}
	return &ShortTerm{capacity: capacity}
}

// Append adds a turn, evicting the oldest one at capacity.
func (s *ShortTerm) Append(turn ConversationTurn) {
	s.turns = append(s.turns, turn)
	if len(s.turns) > s.capacity {
		s.turns = s.turns[1:]
	}
}

// Recent returns the last n turns in chronological order. n larger than the
// buffer returns everything.
func (s *ShortTerm) Recent(n int) []ConversationTurn {
	if n <= 0 {
		return nil
	}
	start := len(s.turns) - n
	if start < 0 {
		start = 0
	}
	out := make([]ConversationTurn, len(s.turns)-start)
	copy(out, s.turns[start:])
	return out
}

// Len returns the number of turns currently held.
func (s *ShortTerm) Len() int { return len(s.turns) }

// Capacity returns the maximum number of turns held.
func (s *ShortTerm) Capacity() int { return s.capacity }
