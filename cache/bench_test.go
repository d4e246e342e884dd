package cache

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func BenchmarkTTLCache_Get_Hit(b *testing.B) {
	c := NewTTLCache(TTLCacheConfig{})
	ctx := context.Background()
	_ = c.Set(ctx, "key", "value", time.Hour)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Get(ctx, "key")
	}
}

func BenchmarkTTLCache_Get_Miss(b *testing.B) {
	c := NewTTLCache(TTLCacheConfig{})
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Get(ctx, "missing")
	}
}

func BenchmarkTTLCache_Set_Evicting(b *testing.B) {
	c := NewTTLCache(TTLCacheConfig{MaxEntries: 100})
	ctx := context.Background()
	keys := make([]string, 1000)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%d", i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Set(ctx, keys[i%len(keys)], i, time.Hour)
	}
}

func BenchmarkTTLCache_Parallel(b *testing.B) {
	c := NewTTLCache(TTLCacheConfig{})
	ctx := context.Background()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			key := fmt.Sprintf("key-%d", i%50)
			if i%4 == 0 {
				_ = c.Set(ctx, key, i, time.Hour)
			} else {
				_, _ = c.Get(ctx, key)
			}
			i++
		}
	})
}

func BenchmarkDefaultKeyer_Key(b *testing.B) {
	k := NewDefaultKeyer()
	params := map[string]any{
		"report": "sales",
		"range":  map[string]any{"from": "2026-01-01", "to": "2026-03-31"},
		"format": "pdf",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = k.Key("reports.render", params)
	}
}
