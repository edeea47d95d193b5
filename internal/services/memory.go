package services

import (
	"context"
	"sync"

	"github.com/ytakahashi/zikr-companion/internal/models"
	"github.com/ytakahashi/zikr-companion/internal/tracker"
)

// MemoryStore keeps snapshots in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]*models.TrackerState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]*models.TrackerState)}
}

func (s *MemoryStore) Load(_ context.Context, key string) (*models.TrackerState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[key]
	if !ok {
		return nil, tracker.ErrStateNotFound
	}
	return state.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, key string, state *models.TrackerState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[key] = state.Clone()
	return nil
}
