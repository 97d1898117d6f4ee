package ratelimit

import (
	"context"
	"sync"
	"time"
)

// reduceFactor is applied to capacity on every Reduce.
const reduceFactor = 0.75

// bucket implements a token bucket.
type bucket struct {
	configured int
	capacity   int
	available  int
	window     time.Duration
	lastRefill time.Time
	reducedAt  time.Time
	reason     string
}

// refill adds tokens based on elapsed time and restores reduced capacity
// after a quiet window.
func (b *bucket) refill(now time.Time) {
	if b.capacity < b.configured && !b.reducedAt.IsZero() && now.Sub(b.reducedAt) >= b.window {
		b.capacity = b.configured
		b.reducedAt = time.Time{}
		b.reason = ""
	}

	elapsed := now.Sub(b.lastRefill)
	if elapsed <= 0 {
		return
	}
	tokens := int(float64(b.capacity) * float64(elapsed) / float64(b.window))
	if tokens > 0 {
		b.available += tokens
		if b.available > b.capacity {
			b.available = b.capacity
		}
		b.lastRefill = now
	}
}

// untilNext returns how long until the next token is due.
func (b *bucket) untilNext(now time.Time) time.Duration {
	per := b.window / time.Duration(b.capacity)
	wait := per - now.Sub(b.lastRefill)
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	return wait
}

// MemoryLimiter is an in-process Limiter. It is safe for concurrent use.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	closed  bool
	done    chan struct{}
	nowFunc func() time.Time
}

// NewMemoryLimiter creates an empty limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		done:    make(chan struct{}),
		nowFunc: time.Now,
	}
}

// SetCapacity configures the rate limit for a resource.
func (m *MemoryLimiter) SetCapacity(resource string, capacity int, window time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	if capacity <= 0 || window <= 0 {
		delete(m.buckets, resource)
		return
	}

	if b, ok := m.buckets[resource]; ok {
		b.configured = capacity
		b.capacity = capacity
		b.window = window
		b.reducedAt = time.Time{}
		if b.available > capacity {
			b.available = capacity
		}
		return
	}
	m.buckets[resource] = &bucket{
		configured: capacity,
		capacity:   capacity,
		available:  capacity,
		window:     window,
		lastRefill: m.nowFunc(),
	}
}

// GetCapacity returns the current capacity info for a resource.
func (m *MemoryLimiter) GetCapacity(resource string) *Capacity {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[resource]
	if !ok {
		return nil
	}
	b.refill(m.nowFunc())

	return &Capacity{
		Resource:   resource,
		Available:  b.available,
		Total:      b.capacity,
		Configured: b.configured,
		Window:     b.window,
		LastReason: b.reason,
	}
}

// take consumes a token if one is ready. Otherwise it returns the wait
// until the next one. Caller must hold m.mu.
func (m *MemoryLimiter) take(resource string) (bool, time.Duration, error) {
	if m.closed {
		return false, 0, ErrClosed
	}
	b, ok := m.buckets[resource]
	if !ok {
		return false, 0, ErrResourceUnknown
	}
	now := m.nowFunc()
	b.refill(now)
	if b.available > 0 {
		b.available--
		return true, 0, nil
	}
	return false, b.untilNext(now), nil
}

// Acquire blocks until a token is available for the resource.
func (m *MemoryLimiter) Acquire(ctx context.Context, resource string) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		m.mu.Lock()
		ok, wait, err := m.take(resource)
		m.mu.Unlock()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-m.done:
			timer.Stop()
			return ErrClosed
		case <-timer.C:
		}
	}
}

// TryAcquire attempts to acquire a token without blocking.
func (m *MemoryLimiter) TryAcquire(resource string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ok, _, err := m.take(resource)
	return ok && err == nil
}

// Reduce cuts the resource's capacity by a quarter, never below one.
func (m *MemoryLimiter) Reduce(resource string, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[resource]
	if !ok || m.closed {
		return
	}

	capacity := int(float64(b.capacity) * reduceFactor)
	if capacity < 1 {
		capacity = 1
	}
	b.capacity = capacity
	if b.available > capacity {
		b.available = capacity
	}
	b.reducedAt = m.nowFunc()
	b.reason = reason
}

// Close shuts down the limiter.
func (m *MemoryLimiter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.closed = true
	close(m.done)
	return nil
}

var _ Limiter = (*MemoryLimiter)(nil)
