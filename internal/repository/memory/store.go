// Package memory provides a generic thread-safe in-memory key-value store
// used by repository adapters. Values keep their first insertion order.
package memory

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by Store when the requested key does not exist.
var ErrNotFound = errors.New("not found")

// Store is a generic thread-safe in-memory key-value store.
type Store[V any] struct {
	mu      sync.RWMutex
	index   map[string]int
	values  []V
	keyFunc func(V) string
}

// New creates a Store with a key extractor function.
func New[V any](keyFunc func(V) string) *Store[V] {
	return &Store[V]{
		index:   make(map[string]int),
		keyFunc: keyFunc,
	}
}

// Set inserts the value, or replaces it in place when its key exists.
func (s *Store[V]) Set(_ context.Context, v V) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.keyFunc(v)
	if i, ok := s.index[key]; ok {
		s.values[i] = v
		return nil
	}
	s.index[key] = len(s.values)
	s.values = append(s.values, v)
	return nil
}

// Get returns the value for key, or ErrNotFound if absent.
func (s *Store[V]) Get(_ context.Context, key string) (V, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[key]
	if !ok {
		var zero V
		return zero, ErrNotFound
	}
	return s.values[i], nil
}

// Filter returns, in insertion order, the values for which pred returns true.
func (s *Store[V]) Filter(_ context.Context, pred func(V) bool) ([]V, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []V
	for _, v := range s.values {
		if pred(v) {
			out = append(out, v)
		}
	}
	return out, nil
}

// Len returns the number of stored values.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
