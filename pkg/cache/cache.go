package cache

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// DefaultSweepInterval controls how often the background sweep removes
	// expired entries. The sweep is memory reclamation only; Get re-checks
	// expiry on every call.
	DefaultSweepInterval = time.Minute

	defaultCapacity = 4096
)

var (
	hits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "posd_cache_hits_total",
		Help: "Number of cache lookups served from memory.",
	})
	misses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "posd_cache_misses_total",
		Help: "Number of cache lookups that missed or hit an expired entry.",
	})
	evictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "posd_cache_evictions_total",
		Help: "Number of entries evicted for capacity or expiry.",
	})
)

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is a process-local TTL cache with wildcard invalidation. It is never a
// source of truth: callers must tolerate any entry disappearing at any time.
//
// Eviction at capacity removes the oldest-inserted entry, not the least
// recently used one.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]entry
	order    []string
	capacity int
	ttl      time.Duration
	sweep    time.Duration

	stopOnce sync.Once
	stop     chan struct{}
}

// New creates a Cache with the given capacity and default TTL. The background
// sweep does not run until Start is called.
func New(capacity int, defaultTTL time.Duration) *Cache {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	if defaultTTL <= 0 {
		defaultTTL = 30 * time.Second
	}
	return &Cache{
		entries:  make(map[string]entry),
		capacity: capacity,
		ttl:      defaultTTL,
		sweep:    DefaultSweepInterval,
		stop:     make(chan struct{}),
	}
}

// Start launches the sweep loop. It returns once the loop is running; the loop
// exits when ctx is cancelled or Stop is called.
func (c *Cache) Start(ctx context.Context) error {
	if c == nil {
		return errors.New("nil cache")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	go func() {
		ticker := time.NewTicker(c.sweep)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stop:
				return
			case <-ticker.C:
				c.removeExpired()
			}
		}
	}()

	return nil
}

// Stop halts the sweep loop. Safe to call more than once.
func (c *Cache) Stop() {
	if c == nil {
		return
	}
	c.stopOnce.Do(func() { close(c.stop) })
}

// Get returns the value stored under key if present and not expired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		misses.Inc()
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.removeLocked(key)
		misses.Inc()
		evictions.Inc()
		return nil, false
	}

	hits.Inc()
	return e.value, true
}

// Set stores value under key for ttl. A non-positive ttl uses the default.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		if len(c.entries) >= c.capacity {
			c.evictOldestLocked()
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
}

// Delete removes key if present.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
}

// Clear removes every entry whose key matches pattern, where '*' matches any
// run of characters and '?' matches a single character. It returns the number
// of entries removed.
func (c *Cache) Clear(pattern string) int {
	re, err := compilePattern(pattern)
	if err != nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if re.MatchString(key) {
			c.removeLocked(key)
			removed++
		}
	}
	return removed
}

// Len reports the number of live entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) removeExpired() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			c.removeLocked(key)
			evictions.Inc()
		}
	}
}

func (c *Cache) evictOldestLocked() {
	for len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		if _, ok := c.entries[oldest]; ok {
			delete(c.entries, oldest)
			evictions.Inc()
			return
		}
	}
}

func (c *Cache) removeLocked(key string) {
	if _, ok := c.entries[key]; !ok {
		return
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

// InvalidateStore drops every cached aggregate belonging to storeID. Called
// after any write that could stale a cached read for that store.
func InvalidateStore(c *Cache, storeID string) {
	if c == nil || storeID == "" {
		return
	}
	for _, concern := range []string{"logs", "dashboard", "stats", "orders"} {
		c.Clear(fmt.Sprintf("%s:%s:*", concern, storeID))
	}
}
