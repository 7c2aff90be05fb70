// Package conversation holds per-session bounded chat history.
package conversation

import (
	"sync"
	"time"
)

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in a conversation.
type Turn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Store keeps an ordered, bounded history per session. Each session is a
// FIFO queue capped at the configured limit: appending beyond the cap drops
// the oldest turn. Sessions are cleared explicitly by the session layer;
// there is no TTL here.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session
	cap      int
}

type session struct {
	mu    sync.Mutex
	turns []Turn
}

// NewStore creates a store with the given per-session turn cap.
func NewStore(maxTurns int) *Store {
	if maxTurns <= 0 {
		maxTurns = 20
	}
	return &Store{
		sessions: make(map[string]*session),
		cap:      maxTurns,
	}
}

// Append adds a turn to the session, creating it on first use. The history
// length never exceeds the cap after any append.
func (s *Store) Append(sessionID, role, text string) {
	sess := s.getOrCreate(sessionID)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.turns = append(sess.turns, Turn{Role: role, Text: text, Timestamp: time.Now()})
	if n := len(sess.turns); n > s.cap {
		sess.turns = sess.turns[n-s.cap:]
	}
}

// History returns a copy of the session's turns, oldest first.
func (s *Store) History(sessionID string) []Turn {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := make([]Turn, len(sess.turns))
	copy(out, sess.turns)
	return out
}

// Clear removes a session entirely. Returns true if it existed.
func (s *Store) Clear(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return false
	}
	delete(s.sessions, sessionID)
	return true
}

// Sessions returns the number of live sessions.
func (s *Store) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Cap returns the per-session turn limit.
func (s *Store) Cap() int {
	return s.cap
}

func (s *Store) getOrCreate(sessionID string) *session {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok = s.sessions[sessionID]; ok {
		return sess
	}
	sess = &session{}
	s.sessions[sessionID] = sess
	return sess
}
