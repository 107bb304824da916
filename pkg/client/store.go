package client

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Store is a read-only cache of one server collection. It is only ever filled
// from a fetch and never edited in place.
type Store[T any] struct {
	name  string
	fetch func(ctx context.Context) ([]T, error)

	mu        sync.RWMutex
	items     []T
	loaded    bool
	fetchedAt time.Time

	group     singleflight.Group
	onRefresh func()
}

func newStore[T any](name string, fetch func(ctx context.Context) ([]T, error)) *Store[T] {
	return &Store[T]{name: name, fetch: fetch}
}

func (s *Store[T]) Name() string { return s.name }

// Get returns the cached items, fetching them first if the store is empty or invalidated.
func (s *Store[T]) Get(ctx context.Context) ([]T, error) {
	s.mu.RLock()
	if s.loaded {
		items := clone(s.items)
		s.mu.RUnlock()
		return items, nil
	}
	s.mu.RUnlock()

	return s.Refresh(ctx)
}

// Refresh refetches unconditionally. Concurrent callers share one request.
func (s *Store[T]) Refresh(ctx context.Context) ([]T, error) {
	v, err, _ := s.group.Do("refresh", func() (interface{}, error) {
		items, err := s.fetch(ctx)
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = []T{}
		}
		s.set(items, time.Now())
		return items, nil
	})
	if err != nil {
		return nil, err
	}

	if s.onRefresh != nil {
		s.onRefresh()
	}
	return clone(v.([]T)), nil
}

// Invalidate marks the cache stale; the next Get refetches.
func (s *Store[T]) Invalidate() {
	s.mu.Lock()
	s.loaded = false
	s.mu.Unlock()
}

// Items returns whatever is cached without fetching.
func (s *Store[T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.items)
}

func (s *Store[T]) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

func (s *Store[T]) FetchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedAt
}

func (s *Store[T]) set(items []T, at time.Time) {
	s.mu.Lock()
	s.items = items
	s.loaded = true
	s.fetchedAt = at
	s.mu.Unlock()
}

func clone[T any](items []T) []T {
	if items == nil {
		return nil
	}
	return append(make([]T, 0, len(items)), items...)
}
