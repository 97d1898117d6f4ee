// Package cache holds recent search responses in memory for a fixed TTL.
//
// Entries are keyed by a hash of the query, mode and source set. Expired
// entries are dropped lazily when looked up. A Cache is not safe for
// concurrent use; callers serialize access.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// DefaultTTL is how long a response stays valid.
const DefaultTTL = 30 * time.Minute

type entry[V any] struct {
	value     V
	createdAt time.Time
}

// Cache maps (query, mode, sources) to a value.
type Cache[V any] struct {
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry[V]
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates a cache. A non-positive ttl uses DefaultTTL.
func New[V any](ttl time.Duration, opts ...Option) *Cache[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache[V]{
		ttl:     ttl,
		now:     o.now,
		entries: make(map[string]entry[V]),
	}
}

// Key hashes the lookup tuple. Source order does not matter.
func Key(query, mode string, sources []string) string {
	sorted := append([]string(nil), sources...)
	sort.Strings(sorted)

	h := sha256.New()
	h.Write([]byte(query))
	h.Write([]byte{'|'})
	h.Write([]byte(mode))
	h.Write([]byte{'|'})
	h.Write([]byte(strings.Join(sorted, ",")))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the value stored for the tuple if it has not expired.
func (c *Cache[V]) Get(query, mode string, sources []string) (V, bool) {
	key := Key(query, mode, sources)
	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().Sub(e.createdAt) >= c.ttl {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value for the tuple, replacing any previous entry.
func (c *Cache[V]) Set(query, mode string, sources []string, value V) {
	c.entries[Key(query, mode, sources)] = entry[V]{value: value, createdAt: c.now()}
}

// Clear drops every entry.
func (c *Cache[V]) Clear() {
	c.entries = make(map[string]entry[V])
}

// Len returns the number of stored entries, expired ones included until
// they are looked up.
func (c *Cache[V]) Len() int {
	return len(c.entries)
}

// TTL returns the entry lifetime.
func (c *Cache[V]) TTL() time.Duration {
	return c.ttl
}
