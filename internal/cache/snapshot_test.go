package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSnapshot_CachesWithinTTL(t *testing.T) {
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewSnapshot[int](time.Second)
	s.now = func() time.Time { return current }

	calls := 0
	compute := func() int {
		calls++
		return calls
	}

	assert.Equal(t, 1, s.Get(compute))
	assert.Equal(t, 1, s.Get(compute))
	assert.Equal(t, 1, calls)

	current = current.Add(2 * time.Second)
	assert.Equal(t, 2, s.Get(compute))
	assert.Equal(t, 2, calls)
}

func TestSnapshot_Invalidate(t *testing.T) {
	s := NewSnapshot[string](time.Minute)

	calls := 0
	compute := func() string {
		calls++
		return "v"
	}

	s.Get(compute)
	s.Invalidate()
	s.Get(compute)
	assert.Equal(t, 2, calls)
}

func TestSnapshot_ZeroTTLAlwaysRecomputes(t *testing.T) {
	s := NewSnapshot[int](0)

	calls := 0
	compute := func() int {
		calls++
		return calls
	}

	s.Get(compute)
	s.Get(compute)
	assert.Equal(t, 2, calls)
}
