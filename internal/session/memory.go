// Package session keeps the recent questions and answers of each conversation.
package session

import (
	"sync"
	"time"

	"github.com/paarshan4800/fin-advisor/internal/domain"
)

// DefaultMaxInteractions is how many turns a session remembers.
const DefaultMaxInteractions = 10

// Memory is an in-memory conversation store.
// It is safe for concurrent use. Data is lost on restart.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string][]domain.Interaction
	max      int
}

// NewMemory creates a store keeping the last max interactions per session.
func NewMemory(max int) *Memory {
	if max <= 0 {
		max = DefaultMaxInteractions
	}
	return &Memory{
		sessions: make(map[string][]domain.Interaction),
		max:      max,
	}
}

// Append records an interaction, dropping the oldest beyond the limit.
func (m *Memory) Append(sessionID string, in domain.Interaction) {
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	turns := append(m.sessions[sessionID], in)
	if len(turns) > m.max {
		turns = append([]domain.Interaction(nil), turns[len(turns)-m.max:]...)
	}
	m.sessions[sessionID] = turns
}

// History returns a copy of the session's interactions, oldest first.
func (m *Memory) History(sessionID string) []domain.Interaction {
	m.mu.RLock()
	defer m.mu.RUnlock()

	turns := m.sessions[sessionID]
	out := make([]domain.Interaction, len(turns))
	copy(out, turns)
	return out
}

// Clear forgets a session. It reports whether the session existed.
func (m *Memory) Clear(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	return ok
}

// Key scopes a client-chosen session ID to its account holder so one caller
// can never read another's conversation.
func Key(identity, sessionID string) string {
	if sessionID == "" {
		return ""
	}
	return identity + "/" + sessionID
}
