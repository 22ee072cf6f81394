package cache_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/rulecat/pkg/cache"
)

type clock struct {
	now time.Time
	mu  sync.Mutex
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func TestCache_RoundTripAndExpiry(t *testing.T) {
	t.Parallel()

	clk := newClock()
	c := cache.New[string](time.Minute, cache.WithClock(clk.Now))

	c.Set("base/code-quality.md", "body")

	v, ok := c.Get("base/code-quality.md")
	require.True(t, ok)
	assert.Equal(t, "body", v)
	assert.True(t, c.Has("base/code-quality.md"))

	clk.Advance(59 * time.Second)
	_, ok = c.Get("base/code-quality.md")
	assert.True(t, ok)

	clk.Advance(time.Second)
	_, ok = c.Get("base/code-quality.md")
	assert.False(t, ok)
	assert.False(t, c.Has("base/code-quality.md"))

	assert.Equal(t, cache.Stats{Hits: 2, Misses: 1, Size: 0, HitRate: 2.0 / 3.0}, c.Stats())
}

func TestCache_SetRefreshesExpiry(t *testing.T) {
	t.Parallel()

	clk := newClock()
	c := cache.New[int](time.Minute, cache.WithClock(clk.Now))

	c.Set("k", 1)
	clk.Advance(50 * time.Second)
	c.Set("k", 2)
	clk.Advance(50 * time.Second)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestCache_HasDoesNotCount(t *testing.T) {
	t.Parallel()

	c := cache.New[int](time.Minute)

	assert.False(t, c.Has("missing"))
	c.Set("k", 1)
	assert.True(t, c.Has("k"))

	assert.Equal(t, cache.Stats{Size: 1}, c.Stats())
}

func TestCache_DeleteClearKeys(t *testing.T) {
	t.Parallel()

	clk := newClock()
	c := cache.New[int](time.Minute, cache.WithClock(clk.Now))

	c.Set("b", 2)
	c.Set("a", 1)
	c.Set("c", 3)

	assert.Equal(t, []string{"a", "b", "c"}, c.Keys())

	assert.True(t, c.Delete("b"))
	assert.False(t, c.Delete("b"))
	assert.Equal(t, []string{"a", "c"}, c.Keys())

	clk.Advance(time.Hour)
	c.Set("d", 4)
	assert.Equal(t, []string{"d"}, c.Keys())
	assert.Equal(t, 2, c.Prune())

	c.Clear()
	assert.Empty(t, c.Keys())
	assert.Zero(t, c.Stats().Size)
}

func TestCache_Eviction(t *testing.T) {
	t.Parallel()

	c := cache.New[int](time.Minute, cache.WithMaxEntries(2))

	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a")
	c.Set("c", 3)

	assert.True(t, c.Has("a"))
	assert.False(t, c.Has("b"))
	assert.True(t, c.Has("c"))
}

func TestCache_DefaultTTL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, cache.DefaultTTL, cache.New[int](0).TTL())
	assert.Equal(t, time.Second, cache.New[int](time.Second).TTL())
}

func TestCache_HitRateZero(t *testing.T) {
	t.Parallel()

	assert.Zero(t, cache.New[int](time.Minute).Stats().HitRate)
}

func TestCache_Concurrent(t *testing.T) {
	t.Parallel()

	c := cache.New[int](time.Minute)

	var wg sync.WaitGroup

	for i := range 16 {
		wg.Go(func() {
			for j := range 100 {
				key := fmt.Sprintf("k%d", (i+j)%10)
				c.Set(key, j)
				_, _ = c.Get(key)
				_ = c.Has(key)

				if j%25 == 0 {
					c.Delete(key)
				}
			}
		})
	}

	wg.Wait()

	s := c.Stats()
	assert.Equal(t, uint64(1600), s.Hits+s.Misses)
	assert.LessOrEqual(t, s.Size, 10)
}
