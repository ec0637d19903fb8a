package bot

import (
	"context"
	"sync"
)

// MemoryStore keeps conversation states in-process. States are lost on
// restart, which only ever costs the user a re-tap.
type MemoryStore struct {
	mu     sync.Mutex
	states map[int64]State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[int64]State)}
}

func (s *MemoryStore) Get(ctx context.Context, tgID int64) (State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[tgID]
	return st, ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, tgID int64, st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[tgID] = st
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, tgID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, tgID)
	return nil
}
