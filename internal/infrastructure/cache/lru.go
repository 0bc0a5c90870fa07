// Package cache holds the processed-event sets used to drop redelivered webhooks.
package cache

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"FeedbackScanner/internal/ports"
)

// LRUEventSet remembers the most recent event ids in process memory.
type LRUEventSet struct {
	mu    sync.Mutex
	cache *lru.Cache[string, struct{}]
}

var _ ports.EventSet = (*LRUEventSet)(nil)

// NewLRUEventSet keeps up to size ids; the least recently seen is evicted first.
func NewLRUEventSet(size int) (*LRUEventSet, error) {
	c, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, fmt.Errorf("new lru: %w", err)
	}
	return &LRUEventSet{cache: c}, nil
}

// MarkSeen implements ports.EventSet.
func (s *LRUEventSet) MarkSeen(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache.Contains(id) {
		s.cache.Get(id)
		return false, nil
	}
	s.cache.Add(id, struct{}{})
	return true, nil
}

// Len reports how many ids are remembered.
func (s *LRUEventSet) Len() int {
	return s.cache.Len()
}
