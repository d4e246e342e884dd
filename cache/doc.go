// Package cache provides a bounded, expiring result cache for remote
// operations.
//
// TTLCache stores arbitrary values with a per-entry lifetime and a cap on
// the number of entries. Reads never return an expired value. When the cap
// is exceeded, expired entries are dropped first and then the least
// recently accessed ones.
//
//	c := cache.NewTTLCache(cache.TTLCacheConfig{MaxEntries: 500})
//	c.Start()
//	defer c.Stop()
//
//	_ = c.Set(ctx, "report:42", report, 10*time.Minute)
//	if v, ok := c.Get(ctx, "report:42"); ok {
//		...
//	}
//
// DefaultKeyer derives stable keys from an operation name and its
// parameters, independent of map ordering.
package cache
