// Package memory provides an in-process session store.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"c4arch/session"
	"c4arch/workspace"
)

// Store implements session.Store in memory. States are kept encoded, so
// callers never share memory with the store. Safe for concurrent use.
type Store struct {
	data map[string][]byte
	mu   sync.RWMutex
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		data: make(map[string][]byte),
	}
}

// Save persists the state.
func (s *Store) Save(ctx context.Context, sessionID string, state *workspace.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = data
	return nil
}

// Load retrieves a copy of the state.
func (s *Store) Load(ctx context.Context, sessionID string) (*workspace.State, error) {
	s.mu.RLock()
	data, ok := s.data[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, session.ErrSessionNotFound
	}

	var state workspace.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &state, nil
}

// Delete removes the state.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns the stored session ids in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	sort.Strings(sessions)
	return sessions, nil
}
