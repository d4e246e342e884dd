// Package resilience provides retry and admission control for remote
// report-server operations.
//
// # Retry
//
// RetryExecutor runs an operation and retries failures whose Category is
// listed in the RetryPolicy. The delay before attempt n+1 is
//
//	min(MaxDelay, BaseDelay * BackoffMultiplier^(n-1))
//
// optionally scaled by a random factor in [0.5, 1.0]. Non-retryable failures
// return at once. When attempts run out the last failure is returned
// unchanged so callers can inspect the original cause. Every attempt is
// counted per operation ID:
//
//	retry := resilience.NewRetryExecutor(resilience.RetryPolicy{
//	    MaxAttempts: 3,
//	    BaseDelay:   100 * time.Millisecond,
//	    MaxDelay:    5 * time.Second,
//	    Jitter:      true,
//	})
//
//	v, err := retry.Execute(ctx, "resources.search", func(ctx context.Context) (any, error) {
//	    return client.Search(ctx, query)
//	})
//
// Collaborators report remote failures as *OperationError (or any error
// with a StatusCode() int method); Classify also recognises connection
// resets, refusals and timeouts from the net and syscall packages.
//
// # Pool
//
// Pool bounds concurrently running operations. Excess requests wait in a
// bounded FIFO queue; a full queue rejects with ErrQueueFull, and a request
// that waits past its timeout fails with ErrQueueTimeout without running:
//
//	pool := resilience.NewPool(resilience.PoolConfig{
//	    MaxConcurrent: 5,
//	    MaxQueueSize:  50,
//	})
//
//	v, err := pool.Run(ctx, op, resilience.RunOptions{Timeout: 10 * time.Second})
//
// # Breakers
//
// Breakers keeps one gobreaker circuit per operation ID. FailureThreshold
// consecutive transient failures open the circuit; while open, runs fail
// with ErrCircuitOpen until ResetTimeout has passed. Then up to
// HalfOpenMaxProbes trial runs decide whether the circuit closes again.
//
// Admission errors implement GovernanceError and are never retried.
package resilience
