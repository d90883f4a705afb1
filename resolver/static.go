package resolver

import (
	"context"
	"sync"
)

// Static resolves from an in-memory table keyed by Key. It is used for tests
// and offline runs.
type Static struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewStatic returns an empty Static resolver.
func NewStatic() *Static {
	return &Static{entries: make(map[string]string)}
}

// Add registers uri for the description.
func (s *Static) Add(entityType string, attrs map[string]string, uri string) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[Key(entityType, attrs)] = uri
	return s
}

// Resolve implements Resolver.
func (s *Static) Resolve(_ context.Context, entityType string, attrs map[string]string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uri, ok := s.entries[Key(entityType, attrs)]
	return uri, ok, nil
}
