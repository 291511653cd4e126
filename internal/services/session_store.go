package services

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/plogger/backend/internal/logger"
)

// maxHiddenExcerpts caps the excerpts replayed into the next condensation.
const maxHiddenExcerpts = 5

// Turn is one message of a conversation. Assistant turns carry the visible
// answer followed by the hidden context block.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type sessionMemory struct {
	turns      []Turn
	lastAccess time.Time
}

// SessionStore is the process-wide, in-memory conversation memory keyed by
// client-supplied session id. All methods are safe for concurrent use.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionMemory
	now      func() time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*sessionMemory),
		now:      time.Now,
	}
}

// GetHistory returns a copy of the session's turns, or nil if the session is
// unknown. Reading an existing session refreshes its last-access time.
func (s *SessionStore) GetHistory(sessionID string) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	mem, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	mem.lastAccess = s.now()

	history := make([]Turn, len(mem.turns))
	copy(history, mem.turns)
	return history
}

// AppendTurn records a completed exchange: the user query and the assistant
// answer with the first excerpts attached as a hidden context block.
func (s *SessionStore) AppendTurn(sessionID, query, answer string, excerpts []string) {
	assistant := FormatMemoryBlock(answer, excerpts)

	s.mu.Lock()
	defer s.mu.Unlock()

	mem, ok := s.sessions[sessionID]
	if !ok {
		mem = &sessionMemory{}
		s.sessions[sessionID] = mem
	}
	mem.turns = append(mem.turns,
		Turn{Role: RoleUser, Content: query},
		Turn{Role: RoleAssistant, Content: assistant},
	)
	mem.lastAccess = s.now()
}

// Delete removes a session and reports whether it existed.
func (s *SessionStore) Delete(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return false
	}
	delete(s.sessions, sessionID)
	return true
}

// EvictExpired removes every session idle for longer than ttl and returns their ids.
func (s *SessionStore) EvictExpired(now time.Time, ttl time.Duration) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []string
	for id, mem := range s.sessions {
		if now.Sub(mem.lastAccess) > ttl {
			expired = append(expired, id)
			delete(s.sessions, id)
		}
	}
	return expired
}

// Sweep evicts expired sessions as of now and logs each removal.
func (s *SessionStore) Sweep(ttl time.Duration) int {
	expired := s.EvictExpired(s.now(), ttl)
	for _, id := range expired {
		logger.Info("Removed expired session", map[string]interface{}{"session_id": id})
	}
	return len(expired)
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// FormatMemoryBlock builds the stored assistant text: the visible answer plus a
// block of at most five excerpts that is never shown to the caller.
func FormatMemoryBlock(answer string, excerpts []string) string {
	if len(excerpts) > maxHiddenExcerpts {
		excerpts = excerpts[:maxHiddenExcerpts]
	}
	lines := make([]string, len(excerpts))
	for i, e := range excerpts {
		lines[i] = "- " + e
	}
	return fmt.Sprintf("%s\n\n%s\n%s\n%s", answer, HIDDEN_CONTEXT_HEADER, strings.Join(lines, "\n"), HIDDEN_CONTEXT_FOOTER)
}
