package coordinator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/reportops/observe"
	"github.com/jonwraymond/reportops/resilience"
)

// Operation is a unit of work run by the coordinator.
type Operation = resilience.OperationFunc

// RunOptions selects the governance applied to one run.
type RunOptions struct {
	// OperationID names the operation for retry outcomes, logs and metrics.
	OperationID string

	// UseCache consults and populates the result cache under CacheKey.
	// Ignored when CacheKey is empty.
	UseCache bool
	CacheKey string
	// CacheParams derives CacheKey from OperationID and these parameters
	// when CacheKey is empty.
	CacheParams any
	// CacheTTL overrides the cache policy's default TTL.
	CacheTTL time.Duration

	// UsePool runs the operation inside a pool slot.
	UsePool bool

	// UseBreaker routes the run through the circuit for OperationID.
	UseBreaker bool

	// UseRetry retries transient failures. Retry overrides the
	// coordinator's policy for this run.
	UseRetry bool
	Retry    *resilience.RetryPolicy

	// MemorySize reserves that many bytes for the duration of the run.
	// MemoryID prefixes the reservation's ledger key. Every run holds its
	// own reservation, so runs sharing a MemoryID are counted separately.
	MemoryID   string
	MemorySize int64

	// Timeout bounds the run. With UsePool it covers queue wait and
	// execution; otherwise it bounds each attempt.
	Timeout time.Duration

	// Coalesce shares one in-flight execution among concurrent runs with
	// the same CacheKey. Ignored when CacheKey is empty.
	Coalesce bool
}

// meta splits a dotted operation ID such as "reports.render" into
// resource and name.
func (o RunOptions) meta() observe.OperationMeta {
	m := observe.OperationMeta{ID: o.OperationID, CacheKey: o.CacheKey}
	if resource, name, ok := strings.Cut(o.OperationID, "."); ok && resource != "" && name != "" {
		m.Resource, m.Name = resource, name
		return m
	}
	m.Name = o.OperationID
	if m.Name == "" {
		m.Name = resilience.AnonymousOperation
	}
	return m
}

// Run executes op under the governance selected by opts.
//
// A cache hit returns the stored value without invoking op. Otherwise the
// memory reservation, circuit check, pool admission and retry are applied
// in that order. A successful result is cached, and the reservation is
// released whether or not op succeeded.
func (c *Coordinator) Run(ctx context.Context, op Operation, opts RunOptions) (any, error) {
	if c.isDestroyed() {
		return nil, ErrDestroyed
	}
	c.runs.Add(1)

	if opts.CacheKey == "" && opts.CacheParams != nil {
		key, err := c.keyer.Key(opts.OperationID, opts.CacheParams)
		if err != nil {
			return c.record(nil, err)
		}
		opts.CacheKey = key
	}
	meta := opts.meta()

	useCache := opts.UseCache && opts.CacheKey != ""
	if useCache {
		if v, ok := c.cache.Get(ctx, opts.CacheKey); ok {
			c.cacheHits.Add(1)
			c.middleware.Metrics().RecordCacheHit(ctx, meta)
			c.debug(ctx, "cache hit", observe.F("operation", meta.Name), observe.F("cache_key", opts.CacheKey))
			return v, nil
		}
		c.debug(ctx, "cache miss", observe.F("operation", meta.Name), observe.F("cache_key", opts.CacheKey))
	}

	run := c.middleware.Wrap(func(ctx context.Context, _ observe.OperationMeta) (any, error) {
		return c.governed(ctx, op, opts)
	})

	if !opts.Coalesce || opts.CacheKey == "" {
		return c.record(run(ctx, meta))
	}

	v, err, shared := c.group.Do(opts.CacheKey, func() (any, error) {
		return run(ctx, meta)
	})
	if shared {
		c.debug(ctx, "coalesced run", observe.F("operation", meta.Name), observe.F("cache_key", opts.CacheKey))
	}
	return c.record(v, err)
}

func (c *Coordinator) record(v any, err error) (any, error) {
	if err != nil {
		c.failures.Add(1)
		if IsGovernance(err) {
			c.governanceRejections.Add(1)
		}
	}
	return v, err
}

// memoryKey returns a ledger key unique to one run.
func memoryKey(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id + "/" + uuid.NewString()
}

func (c *Coordinator) governed(ctx context.Context, op Operation, opts RunOptions) (any, error) {
	if opts.MemorySize > 0 {
		id := memoryKey(opts.MemoryID)
		if err := c.memory.Allocate(id, opts.MemorySize); err != nil {
			c.debug(ctx, "memory reservation rejected", observe.F("memory_id", id), observe.F("size_bytes", opts.MemorySize))
			return nil, err
		}
		c.debug(ctx, "memory reserved", observe.F("memory_id", id), observe.F("size_bytes", opts.MemorySize))
		defer func() {
			c.memory.Deallocate(id)
			c.debug(ctx, "memory released", observe.F("memory_id", id))
		}()
	}

	attempt := op
	if opts.Timeout > 0 && !opts.UsePool {
		attempt = func(ctx context.Context) (any, error) {
			return resilience.ExecuteWithTimeout(ctx, opts.Timeout, op)
		}
	}

	work := attempt
	if opts.UseRetry {
		id := opts.OperationID
		work = func(ctx context.Context) (any, error) {
			if opts.Retry != nil {
				return c.retry.ExecuteWithPolicy(ctx, *opts.Retry, id, attempt)
			}
			return c.retry.Execute(ctx, id, attempt)
		}
	}

	exec := work
	if opts.UsePool {
		exec = func(ctx context.Context) (any, error) {
			return c.pool.Run(ctx, work, resilience.RunOptions{Timeout: opts.Timeout})
		}
	}
	if opts.UseBreaker {
		guarded := exec
		exec = func(ctx context.Context) (any, error) {
			return c.breakers.Execute(ctx, opts.OperationID, guarded)
		}
	}

	result, err := exec(ctx)
	if err != nil {
		return nil, err
	}

	if opts.UseCache && opts.CacheKey != "" {
		if err := c.cache.Set(ctx, opts.CacheKey, result, opts.CacheTTL); err != nil {
			c.logger.Warn(ctx, "cache store failed", observe.F("cache_key", opts.CacheKey), observe.F("error", err))
		} else {
			c.debug(ctx, "cache stored", observe.F("cache_key", opts.CacheKey))
		}
	}
	return result, nil
}

// Do runs fn under c and returns its result as T.
func Do[T any](ctx context.Context, c *Coordinator, fn func(ctx context.Context) (T, error), opts RunOptions) (T, error) {
	var zero T
	v, err := c.Run(ctx, func(ctx context.Context) (any, error) {
		return fn(ctx)
	}, opts)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: got %T", ErrUnexpectedType, v)
	}
	return t, nil
}
