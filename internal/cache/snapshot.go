// Package cache provides a small TTL memoizer used to shield the domain
// stores from high-frequency dashboard polling.
package cache

import (
	"sync"
	"time"
)

// Snapshot caches one computed value for a fixed TTL. Concurrent callers
// during a recompute serialize on the mutex so the compute function runs
// at most once per expiry.
type Snapshot[T any] struct {
	mu        sync.Mutex
	value     T
	expiresAt time.Time
	ttl       time.Duration
	now       func() time.Time
}

// NewSnapshot creates a memoizer with the given TTL. A non-positive TTL
// disables caching and every Get recomputes.
func NewSnapshot[T any](ttl time.Duration) *Snapshot[T] {
	return &Snapshot[T]{
		ttl: ttl,
		now: time.Now,
	}
}

// Get returns the cached value, recomputing it via compute when expired.
func (s *Snapshot[T]) Get(compute func() T) T {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.ttl > 0 && now.Before(s.expiresAt) {
		return s.value
	}
	s.value = compute()
	s.expiresAt = now.Add(s.ttl)
	return s.value
}

// Invalidate drops the cached value so the next Get recomputes.
func (s *Snapshot[T]) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiresAt = time.Time{}
}
