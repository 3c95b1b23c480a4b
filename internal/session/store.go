// Package session keeps per-client state in memory with idle expiry.
package session

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Store maps session identifiers to values. Entries expire after ttl
// without access, and the least recently used entry is dropped once the
// store holds maxSessions entries.
type Store[T any] struct {
	mu      sync.Mutex
	cache   *expirable.LRU[string, T]
	newFunc func(id string) T
}

// NewStore creates a store that builds missing values with newFunc.
// onEvict, if set, runs for every expired or evicted entry.
func NewStore[T any](maxSessions int, ttl time.Duration, newFunc func(id string) T, onEvict func(id string, value T)) *Store[T] {
	var cb expirable.EvictCallback[string, T]
	if onEvict != nil {
		cb = onEvict
	}
	return &Store[T]{
		cache:   expirable.NewLRU[string, T](maxSessions, cb, ttl),
		newFunc: newFunc,
	}
}

// GetOrCreate returns the value for id, creating it when absent. The
// second result reports whether a new value was created. Access renews
// the entry's expiry.
func (s *Store[T]) GetOrCreate(id string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.cache.Get(id); ok {
		s.cache.Add(id, v)
		return v, false
	}
	v := s.newFunc(id)
	s.cache.Add(id, v)
	return v, true
}

// Get returns the value for id without creating one. Access renews the
// entry's expiry.
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.cache.Get(id)
	if ok {
		s.cache.Add(id, v)
	}
	return v, ok
}

func (s *Store[T]) Remove(id string) bool {
	return s.cache.Remove(id)
}

func (s *Store[T]) Len() int {
	return s.cache.Len()
}
