// Package conversation provides the in-process conversation store.
//
// A conversation is a bounded window of recent user/assistant exchanges,
// keyed by a caller-supplied or server-assigned identifier. State lives in
// process memory only: it survives until Clear or process restart, with no
// idle expiry.
//
// The store is a small injected capability (Resolve/Append/Clear) so it can
// be swapped for a networked store without touching the engine.
package conversation

import (
	"sync"

	"github.com/google/uuid"
)

// Turn is one completed exchange. Turns are immutable once appended.
type Turn struct {
	// User is the user message text.
	User string
	// Assistant is the response recorded for that message.
	Assistant string
}

// DefaultMaxHistory bounds the number of turns kept per conversation.
const DefaultMaxHistory = 10

// Store is an in-memory conversation store.
//
// Store is safe for concurrent use. A single mutex guards the map; append
// plus truncation happens atomically, so the history bound holds under
// concurrent requests against the same conversation.
type Store struct {
	mu            sync.RWMutex
	conversations map[string][]Turn
	maxHistory    int
}

// NewStore creates a Store that keeps at most maxHistory turns per
// conversation. maxHistory <= 0 falls back to DefaultMaxHistory.
func NewStore(maxHistory int) *Store {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Store{
		conversations: make(map[string][]Turn),
		maxHistory:    maxHistory,
	}
}

// Resolve returns the identifier and current history for a conversation.
//
// An empty or unknown id registers a new empty conversation under a fresh
// UUID (for empty id) or under the supplied id itself, so callers keep the
// literal id they asked for. The returned slice is a copy; mutation happens
// only through Append.
func (s *Store) Resolve(id string) (string, []Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	}

	turns, ok := s.conversations[id]
	if !ok {
		s.conversations[id] = nil
		return id, nil
	}

	out := make([]Turn, len(turns))
	copy(out, turns)
	return id, out
}

// Append records one completed exchange at the end of the history, then
// drops turns from the front until the bound holds.
func (s *Store) Append(id string, turn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.conversations[id], turn)
	if excess := len(turns) - s.maxHistory; excess > 0 {
		turns = turns[excess:]
	}
	s.conversations[id] = turns
}

// Clear removes a conversation entirely and reports whether it existed.
// Clearing an unknown id is a normal outcome, not an error.
func (s *Store) Clear(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.conversations[id]
	delete(s.conversations, id)
	return ok
}

// Len returns the number of turns currently stored for id.
func (s *Store) Len(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations[id])
}

// Count returns the number of live conversations.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}
