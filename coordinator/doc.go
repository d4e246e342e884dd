// Package coordinator composes the governance components into a single
// entry point for running report-generation operations.
//
// A Coordinator owns a retry executor, a bounded execution pool, a TTL
// result cache, a memory budget and a health registry. Each call to Run
// passes through them in a fixed order:
//
//  1. A cache hit returns the stored result without invoking the operation.
//  2. A memory reservation is taken for the declared size.
//  3. The operation runs inside a pool slot (with retry inside the slot),
//     under retry alone, or directly.
//  4. A successful result is stored in the cache.
//  5. The memory reservation is always released.
//
// Admission rejections (queue full, queue timeout, budget exceeded,
// allocation too large, pool closed) implement IsGovernance and are never
// retried. ErrorKindOf maps any returned error to a stable kind string.
//
// # Lifecycle
//
//	c, err := coordinator.New(coordinator.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	c.Start(ctx)
//	defer c.Destroy()
//
//	report, err := coordinator.Do(ctx, c, buildReport, coordinator.RunOptions{
//		OperationID: "monthly-report",
//		UseCache:    true,
//		CacheKey:    "monthly-report:2026-09",
//		UsePool:     true,
//		UseRetry:    true,
//		MemorySize:  8 << 20,
//	})
//
// Start launches the background cache sweep, memory pressure sweep and
// health cycle. Stop halts them. Destroy additionally closes the pool,
// clears the cache and unregisters metric gauges; the coordinator rejects
// further runs with ErrDestroyed.
package coordinator
