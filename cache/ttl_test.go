package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestCache(maxEntries int) (*TTLCache, *fakeClock) {
	clock := newFakeClock()
	c := NewTTLCache(TTLCacheConfig{
		MaxEntries: maxEntries,
		Policy:     Policy{DefaultTTL: time.Minute, MaxTTL: time.Hour},
		Clock:      clock.Now,
	})
	return c, clock
}

func TestNewTTLCache_Defaults(t *testing.T) {
	c := NewTTLCache(TTLCacheConfig{})

	if c.config.MaxEntries != 1000 {
		t.Errorf("MaxEntries = %d, want 1000", c.config.MaxEntries)
	}
	if c.config.Policy != DefaultPolicy() {
		t.Errorf("Policy = %+v, want DefaultPolicy()", c.config.Policy)
	}
	if c.config.SweepInterval != time.Minute {
		t.Errorf("SweepInterval = %v, want 1m", c.config.SweepInterval)
	}
}

func TestNewTTLCache_PartialPolicy(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		want   Policy
	}{
		{"max only", Policy{MaxTTL: time.Hour}, Policy{DefaultTTL: 5 * time.Minute, MaxTTL: time.Hour}},
		{"default only", Policy{DefaultTTL: time.Minute}, Policy{DefaultTTL: time.Minute, MaxTTL: time.Hour}},
		{"max below default", Policy{DefaultTTL: 2 * time.Hour, MaxTTL: time.Minute}, Policy{DefaultTTL: 2 * time.Hour, MaxTTL: 2 * time.Hour}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewTTLCache(TTLCacheConfig{Policy: tt.policy})
			if c.config.Policy != tt.want {
				t.Errorf("Policy = %+v, want %+v", c.config.Policy, tt.want)
			}

			ctx := context.Background()
			if err := c.Set(ctx, "k", "v", 0); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if _, ok := c.Get(ctx, "k"); !ok {
				t.Error("Get() missed an entry stored with the default TTL")
			}
		})
	}
}

func TestTTLCache_GetSetDelete(t *testing.T) {
	c, _ := newTestCache(10)
	ctx := context.Background()

	if _, ok := c.Get(ctx, "missing"); ok {
		t.Error("Get on empty cache should miss")
	}

	if err := c.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, ok := c.Get(ctx, "k")
	if !ok || got != "v" {
		t.Errorf("Get() = %v, %v; want v, true", got, ok)
	}
	if !c.Has("k") {
		t.Error("Has() = false after Set")
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if c.Has("k") {
		t.Error("Has() = true after Delete")
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete on missing key should not error, got %v", err)
	}
}

func TestTTLCache_SetRejectsInvalidKey(t *testing.T) {
	c, _ := newTestCache(10)
	if err := c.Set(context.Background(), "", "v", 0); err != ErrInvalidKey {
		t.Errorf("Set(\"\") error = %v, want ErrInvalidKey", err)
	}
}

func TestTTLCache_Expiry(t *testing.T) {
	c, clock := newTestCache(10)
	ctx := context.Background()
	const ttl = 10 * time.Second

	_ = c.Set(ctx, "a", 1, ttl)
	_ = c.Set(ctx, "b", 2, ttl)

	clock.Advance(ttl - time.Millisecond)
	if got, ok := c.Get(ctx, "a"); !ok || got != 1 {
		t.Errorf("Get at T-ε = %v, %v; want 1, true", got, ok)
	}

	clock.Advance(2 * time.Millisecond)
	if _, ok := c.Get(ctx, "b"); ok {
		t.Error("Get at T+ε should miss")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (expired entry removed by Get)", c.Len())
	}
}

func TestTTLCache_TTLClampedToPolicy(t *testing.T) {
	c, clock := newTestCache(10)
	ctx := context.Background()

	_ = c.Set(ctx, "k", "v", 48*time.Hour)
	clock.Advance(time.Hour + time.Second)

	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("entry should expire at MaxTTL")
	}
}

func TestTTLCache_LRUEviction(t *testing.T) {
	const maxEntries = 3
	c, clock := newTestCache(maxEntries)
	ctx := context.Background()

	for i := 0; i < maxEntries; i++ {
		_ = c.Set(ctx, fmt.Sprintf("k%d", i), i, 0)
		clock.Advance(time.Millisecond)
	}

	// k0 becomes the most recent; k1 is now least recently accessed.
	if _, ok := c.Get(ctx, "k0"); !ok {
		t.Fatal("k0 should be present")
	}

	_ = c.Set(ctx, "k3", 3, 0)

	if c.Len() != maxEntries {
		t.Fatalf("Len() = %d, want %d", c.Len(), maxEntries)
	}
	if c.Has("k1") {
		t.Error("least recently accessed key k1 should be evicted")
	}
	for _, k := range []string{"k0", "k2", "k3"} {
		if !c.Has(k) {
			t.Errorf("%s should still be present", k)
		}
	}
	if s := c.Stats(); s.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", s.Evictions)
	}
}

func TestTTLCache_ExpiredEvictedBeforeLRU(t *testing.T) {
	c, clock := newTestCache(2)
	ctx := context.Background()

	_ = c.Set(ctx, "short", 1, time.Second)
	_ = c.Set(ctx, "long", 2, time.Hour)
	_, _ = c.Get(ctx, "short")

	clock.Advance(2 * time.Second)
	_ = c.Set(ctx, "new", 3, time.Hour)

	if !c.Has("long") {
		t.Error("live entry should survive when an expired entry can be dropped instead")
	}
	if c.Has("short") {
		t.Error("expired entry should be gone")
	}
	if s := c.Stats(); s.Evictions != 0 || s.Expirations != 1 {
		t.Errorf("Stats = %+v, want 0 evictions and 1 expiration", s)
	}
}

func TestTTLCache_Sweep(t *testing.T) {
	c, clock := newTestCache(10)
	ctx := context.Background()

	_ = c.Set(ctx, "a", 1, time.Second)
	_ = c.Set(ctx, "b", 2, time.Second)
	_ = c.Set(ctx, "c", 3, time.Hour)

	clock.Advance(2 * time.Second)
	if s := c.Stats(); s.Expired != 2 {
		t.Errorf("Stats().Expired = %d, want 2 before sweep", s.Expired)
	}

	report := c.Sweep()
	if report.Expired != 2 || report.Evicted != 0 {
		t.Errorf("Sweep() = %+v, want 2 expired", report)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestTTLCache_StartStop(t *testing.T) {
	c := NewTTLCache(TTLCacheConfig{
		Policy:        Policy{DefaultTTL: 5 * time.Millisecond},
		SweepInterval: 5 * time.Millisecond,
	})
	_ = c.Set(context.Background(), "k", "v", 0)

	c.Start()
	c.Start()
	defer c.Stop()

	deadline := time.Now().Add(time.Second)
	for c.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if c.Len() != 0 {
		t.Error("background sweep should remove expired entries")
	}

	c.Stop()
	c.Stop()
}

func TestTTLCache_Stats(t *testing.T) {
	c, clock := newTestCache(4)
	ctx := context.Background()

	_ = c.Set(ctx, "a", 1, 0)
	_ = c.Set(ctx, "b", 2, 0)
	_, _ = c.Get(ctx, "a")
	_, _ = c.Get(ctx, "a")
	_, _ = c.Get(ctx, "b")
	_, _ = c.Get(ctx, "missing")
	clock.Advance(time.Second)

	s := c.Stats()
	if s.Size != 2 || s.MaxEntries != 4 {
		t.Errorf("Size/MaxEntries = %d/%d, want 2/4", s.Size, s.MaxEntries)
	}
	if s.Utilization != 0.5 {
		t.Errorf("Utilization = %f, want 0.5", s.Utilization)
	}
	if s.TotalAccesses != 3 {
		t.Errorf("TotalAccesses = %d, want 3", s.TotalAccesses)
	}
	if s.Hits != 3 || s.Misses != 1 {
		t.Errorf("Hits/Misses = %d/%d, want 3/1", s.Hits, s.Misses)
	}
	if s.HitRate != 0.75 {
		t.Errorf("HitRate = %f, want 0.75", s.HitRate)
	}
	if s.OldestEntryAge != time.Second {
		t.Errorf("OldestEntryAge = %v, want 1s", s.OldestEntryAge)
	}
}

func TestTTLCache_Clear(t *testing.T) {
	c, _ := newTestCache(10)
	ctx := context.Background()
	_ = c.Set(ctx, "a", 1, 0)
	_ = c.Set(ctx, "b", 2, 0)

	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", c.Len())
	}
}

func TestTTLCache_Concurrent(t *testing.T) {
	c := NewTTLCache(TTLCacheConfig{MaxEntries: 50})
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g*200+i)%100)
				_ = c.Set(ctx, key, i, 0)
				_, _ = c.Get(ctx, key)
				if i%10 == 0 {
					c.Sweep()
				}
			}
		}(g)
	}
	wg.Wait()

	if n := c.Len(); n > 50 {
		t.Errorf("Len() = %d, exceeds MaxEntries 50", n)
	}
}
