package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/smallnest/marketadvisor/memory"
)

// MemoryStore keeps conversation messages in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]memory.Message
}

var _ memory.Store = (*MemoryStore)(nil)

// New creates an empty MemoryStore.
func New() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]memory.Message)}
}

// Append stores messages. Nothing is stored when any message lacks a session.
func (s *MemoryStore) Append(ctx context.Context, msgs ...memory.Message) error {
	for _, m := range msgs {
		if m.SessionID == "" {
			return memory.ErrEmptySession
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		s.sessions[m.SessionID] = append(s.sessions[m.SessionID], m)
	}
	return nil
}

// History returns a copy of the last limit messages of a session.
func (s *MemoryStore) History(ctx context.Context, sessionID string, limit int) ([]memory.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(memory.Tail(s.sessions[sessionID], limit)), nil
}

// Delete removes a session.
func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
