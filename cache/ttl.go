package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// TTLCacheConfig configures a TTLCache.
type TTLCacheConfig struct {
	// MaxEntries bounds the number of live entries.
	// Default: 1000
	MaxEntries int

	// Policy supplies the default and maximum TTL. Zero fields take the
	// DefaultPolicy() value and MaxTTL is raised to at least DefaultTTL.
	Policy Policy

	// SweepInterval is the period of the background expiry sweep.
	// Default: 1 minute
	SweepInterval time.Duration

	// Clock returns the current time. Default: time.Now
	Clock func() time.Time
}

type ttlEntry struct {
	key         string
	value       any
	createdAt   time.Time
	expiresAt   time.Time
	lastAccess  time.Time
	accessCount int64
}

// TTLCache is an in-memory cache with per-entry expiry and a bounded
// entry count. Entries past their expiry are never returned. When the
// bound is exceeded, expired entries go first, then the least recently
// accessed ones.
type TTLCache struct {
	config TTLCacheConfig
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*list.Element
	// recency holds *ttlEntry values, most recently accessed at the front.
	recency *list.List

	hits        int64
	misses      int64
	evictions   int64
	expirations int64

	stop chan struct{}
	done chan struct{}
}

// NewTTLCache creates a cache with the given configuration.
func NewTTLCache(config TTLCacheConfig) *TTLCache {
	if config.MaxEntries <= 0 {
		config.MaxEntries = 1000
	}
	defaults := DefaultPolicy()
	if config.Policy.DefaultTTL <= 0 {
		config.Policy.DefaultTTL = defaults.DefaultTTL
	}
	if config.Policy.MaxTTL <= 0 {
		config.Policy.MaxTTL = defaults.MaxTTL
	}
	if config.Policy.MaxTTL < config.Policy.DefaultTTL {
		config.Policy.MaxTTL = config.Policy.DefaultTTL
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = time.Minute
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	return &TTLCache{
		config:  config,
		now:     config.Clock,
		entries: make(map[string]*list.Element),
		recency: list.New(),
	}
}

// Get retrieves a value. Expired entries are removed and reported as a miss.
func (c *TTLCache) Get(_ context.Context, key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}

	now := c.now()
	e := elem.Value.(*ttlEntry)
	if now.After(e.expiresAt) {
		c.removeLocked(elem)
		c.expirations++
		c.misses++
		return nil, false
	}

	e.accessCount++
	e.lastAccess = now
	c.recency.MoveToFront(elem)
	c.hits++
	return e.value, true
}

// Has reports whether a live entry exists. It does not count as an access.
func (c *TTLCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return false
	}
	if c.now().After(elem.Value.(*ttlEntry).expiresAt) {
		c.removeLocked(elem)
		c.expirations++
		return false
	}
	return true
}

// Set stores a value. A non-positive ttl uses the policy default; ttl is
// clamped to the policy maximum.
func (c *TTLCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	ttl = c.config.Policy.EffectiveTTL(ttl)
	if ttl <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if elem, ok := c.entries[key]; ok {
		e := elem.Value.(*ttlEntry)
		e.value = value
		e.createdAt = now
		e.expiresAt = now.Add(ttl)
		e.lastAccess = now
		c.recency.MoveToFront(elem)
		return nil
	}

	c.entries[key] = c.recency.PushFront(&ttlEntry{
		key:        key,
		value:      value,
		createdAt:  now,
		expiresAt:  now.Add(ttl),
		lastAccess: now,
	})

	if len(c.entries) > c.config.MaxEntries {
		c.evictLocked(now)
	}
	return nil
}

// Delete removes a value. Idempotent - no error on miss.
func (c *TTLCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.removeLocked(elem)
	}
	return nil
}

// Clear removes every entry.
func (c *TTLCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.recency.Init()
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (c *TTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// SweepReport summarizes one sweep.
type SweepReport struct {
	Expired int
	Evicted int
}

// Sweep removes expired entries, then evicts least recently accessed
// entries until the cache is within MaxEntries.
func (c *TTLCache) Sweep() SweepReport {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.evictLocked(c.now())
}

func (c *TTLCache) evictLocked(now time.Time) SweepReport {
	var report SweepReport

	for elem := c.recency.Back(); elem != nil; {
		prev := elem.Prev()
		if now.After(elem.Value.(*ttlEntry).expiresAt) {
			c.removeLocked(elem)
			c.expirations++
			report.Expired++
		}
		elem = prev
	}

	for len(c.entries) > c.config.MaxEntries {
		c.removeLocked(c.recency.Back())
		c.evictions++
		report.Evicted++
	}

	return report
}

func (c *TTLCache) removeLocked(elem *list.Element) {
	e := c.recency.Remove(elem).(*ttlEntry)
	delete(c.entries, e.key)
}

// Start launches the background sweep. Calling Start on a running cache
// is a no-op.
func (c *TTLCache) Start() {
	c.mu.Lock()
	if c.stop != nil {
		c.mu.Unlock()
		return
	}
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	stop, done := c.stop, c.done
	c.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(c.config.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.Sweep()
			}
		}
	}()
}

// Stop halts the background sweep and waits for it to exit.
func (c *TTLCache) Stop() {
	c.mu.Lock()
	if c.stop == nil {
		c.mu.Unlock()
		return
	}
	close(c.stop)
	done := c.done
	c.stop, c.done = nil, nil
	c.mu.Unlock()

	<-done
}

// Stats returns cache statistics computed from the current entries.
func (c *TTLCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	s := Stats{
		Size:        len(c.entries),
		MaxEntries:  c.config.MaxEntries,
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Expirations: c.expirations,
	}

	for _, elem := range c.entries {
		e := elem.Value.(*ttlEntry)
		s.TotalAccesses += e.accessCount
		if now.After(e.expiresAt) {
			s.Expired++
		}
		if age := now.Sub(e.createdAt); age > s.OldestEntryAge {
			s.OldestEntryAge = age
		}
	}

	s.Utilization = float64(s.Size) / float64(s.MaxEntries)
	if lookups := s.Hits + s.Misses; lookups > 0 {
		s.HitRate = float64(s.Hits) / float64(lookups)
	}
	return s
}

// Stats describes the cache at one point in time.
type Stats struct {
	Size           int
	MaxEntries     int
	Utilization    float64
	Expired        int
	TotalAccesses  int64
	OldestEntryAge time.Duration

	Hits        int64
	Misses      int64
	HitRate     float64
	Evictions   int64
	Expirations int64
}

// Ensure TTLCache implements Cache
var _ Cache = (*TTLCache)(nil)
