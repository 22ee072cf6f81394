// Package cache provides a bounded, thread-safe key/value store whose entries
// expire a fixed time after they are set.
package cache

import (
	"slices"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

const (
	DefaultTTL        = time.Hour
	DefaultMaxEntries = 1024
)

// Stats reports cache usage. HitRate is zero when no lookups were made.
type Stats struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	Size    int     `json:"size"`
	HitRate float64 `json:"hitRate"`
}

type entry[V any] struct {
	expiresAt time.Time
	value     V
}

type options struct {
	now        func() time.Time
	maxEntries int
}

// Opt configures a [Cache].
type Opt func(*options)

// WithClock replaces [time.Now] as the source of the current time.
func WithClock(now func() time.Time) Opt {
	return func(o *options) {
		o.now = now
	}
}

// WithMaxEntries bounds the number of entries. The least recently used entry
// is evicted when the bound is exceeded.
func WithMaxEntries(n int) Opt {
	return func(o *options) {
		o.maxEntries = n
	}
}

// Cache is a TTL cache keyed by string. A single mutex guards all state.
type Cache[V any] struct {
	lru    *simplelru.LRU[string, entry[V]]
	now    func() time.Time
	ttl    time.Duration
	hits   uint64
	misses uint64
	mu     sync.Mutex
}

// New creates a [Cache] whose entries expire ttl after being set. A ttl of
// zero or less uses [DefaultTTL].
func New[V any](ttl time.Duration, opts ...Opt) *Cache[V] {
	o := &options{
		now:        time.Now,
		maxEntries: DefaultMaxEntries,
	}
	for _, opt := range opts {
		opt(o)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}

	lru, err := simplelru.NewLRU[string, entry[V]](max(o.maxEntries, 1), nil)
	if err != nil {
		// Only returned for a non-positive size.
		panic(err)
	}

	return &Cache[V]{
		lru: lru,
		now: o.now,
		ttl: ttl,
	}
}

// TTL returns the expiry window of the cache.
func (c *Cache[V]) TTL() time.Duration {
	return c.ttl
}

// Get returns the live value for key. Absent and expired keys are misses.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(key)
	if ok && !c.expired(e) {
		c.hits++

		return e.value, true
	}

	if ok {
		c.lru.Remove(key)
	}

	c.misses++

	var zero V

	return zero, false
}

// Set stores value under key, replacing any existing entry and resetting its
// expiry.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Add(key, entry[V]{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	})
}

// Has reports whether key holds a live entry without affecting statistics
// or recency.
func (c *Cache[V]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Peek(key)

	return ok && !c.expired(e)
}

// Delete removes key and reports whether it was present.
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lru.Remove(key)
}

// Clear removes every entry. Statistics are kept.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Purge()
}

// Keys returns the keys of live entries in lexical order.
func (c *Cache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := c.liveKeys()
	slices.Sort(keys)

	return keys
}

// Prune removes expired entries and returns how many were removed.
func (c *Cache[V]) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0

	for _, k := range c.lru.Keys() {
		if e, ok := c.lru.Peek(k); ok && c.expired(e) {
			c.lru.Remove(k)
			n++
		}
	}

	return n
}

// Stats returns the current statistics.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Hits:   c.hits,
		Misses: c.misses,
		Size:   len(c.liveKeys()),
	}

	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}

	return s
}

func (c *Cache[V]) liveKeys() []string {
	keys := make([]string, 0, c.lru.Len())

	for _, k := range c.lru.Keys() {
		if e, ok := c.lru.Peek(k); ok && !c.expired(e) {
			keys = append(keys, k)
		}
	}

	return keys
}

func (c *Cache[V]) expired(e entry[V]) bool {
	return !c.now().Before(e.expiresAt)
}
