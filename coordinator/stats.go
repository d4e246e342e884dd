package coordinator

import (
	"time"

	"github.com/jonwraymond/reportops/cache"
	"github.com/jonwraymond/reportops/health"
	"github.com/jonwraymond/reportops/memory"
	"github.com/jonwraymond/reportops/resilience"
)

// Statistics is a point-in-time view of every component.
type Statistics struct {
	// Runs counts calls to Run, including cache hits and rejections.
	Runs                 int64
	CacheHits            int64
	Failures             int64
	GovernanceRejections int64

	Retry    map[string]resilience.RetryOutcome
	Breakers map[string]resilience.BreakerSnapshot
	Pool     resilience.PoolStats
	Cache    cache.Stats
	Memory   memory.Stats
	Health   health.Snapshot

	Timestamp time.Time
}

// Statistics returns current statistics. Health reflects the most recent
// probe cycle.
func (c *Coordinator) Statistics() Statistics {
	return Statistics{
		Runs:                 c.runs.Load(),
		CacheHits:            c.cacheHits.Load(),
		Failures:             c.failures.Load(),
		GovernanceRejections: c.governanceRejections.Load(),
		Retry:                c.retry.Outcomes(),
		Breakers:             c.breakers.Snapshots(),
		Pool:                 c.pool.Stats(),
		Cache:                c.cache.Stats(),
		Memory:               c.memory.Stats(),
		Health:               c.health.Snapshot(),
		Timestamp:            c.now(),
	}
}

// ResetRetryStats clears retry outcomes for every operation.
func (c *Coordinator) ResetRetryStats() {
	c.retry.ResetAll()
}
