package ratelimit

import (
	"context"
	"errors"
	"time"
)

// Common errors.
var (
	ErrClosed          = errors.New("limiter closed")
	ErrResourceUnknown = errors.New("unknown resource")
)

// Limiter throttles calls to named external backends.
type Limiter interface {
	// Acquire blocks until a token is available for the resource.
	// Returns the context error if ctx ends first, ErrResourceUnknown if the
	// resource has no configured capacity and ErrClosed after Close.
	Acquire(ctx context.Context, resource string) error

	// TryAcquire takes a token without blocking and reports whether it did.
	TryAcquire(resource string) bool

	// SetCapacity allows capacity calls per window. A non-positive capacity
	// or window removes the resource.
	SetCapacity(resource string, capacity int, window time.Duration)

	// Reduce lowers the resource's capacity after the backend pushed back
	// (HTTP 429). Capacity recovers once a full window passes without
	// another reduction.
	Reduce(resource string, reason string)

	// GetCapacity returns the current state of a resource, or nil if unknown.
	GetCapacity(resource string) *Capacity

	// Close wakes all waiters and rejects further calls.
	Close() error
}

// Capacity describes the rate limit state of a resource.
type Capacity struct {
	Resource string

	// Available is the current number of tokens.
	Available int

	// Total is the effective tokens per window, possibly reduced.
	Total int

	// Configured is the capacity set with SetCapacity.
	Configured int

	Window time.Duration

	// LastReason is the reason given to the latest Reduce, if any.
	LastReason string
}
