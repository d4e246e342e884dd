package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// AnonymousOperation is the outcome key used when no operation ID is given.
const AnonymousOperation = "anonymous"

// OperationFunc is a unit of work governed by this package.
type OperationFunc func(ctx context.Context) (any, error)

// RetryPolicy configures the retry behavior.
type RetryPolicy struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Values below 1 mean a single attempt.
	MaxAttempts int

	// BaseDelay is the delay before the first retry.
	// Default: 100ms
	BaseDelay time.Duration

	// MaxDelay caps the maximum delay between retries.
	// Default: 30s
	MaxDelay time.Duration

	// BackoffMultiplier is the exponential growth factor.
	// Default: 2.0
	BackoffMultiplier float64

	// Jitter scales each delay by a random factor in [0.5, 1.0].
	Jitter bool

	// RetryableCategories lists the failure categories that trigger a retry.
	// Default: DefaultRetryableCategories
	RetryableCategories []Category

	// OnRetry is called before each retry attempt.
	OnRetry func(operationID string, attempt int, err error, delay time.Duration)
}

// DefaultRetryPolicy returns the policy used when nothing else is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       3,
		BaseDelay:         100 * time.Millisecond,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 100 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	if p.BackoffMultiplier < 1 {
		p.BackoffMultiplier = 2.0
	}
	if len(p.RetryableCategories) == 0 {
		p.RetryableCategories = DefaultRetryableCategories
	}
	return p
}

// Delay returns the un-jittered delay before attempt+1, where attempt is
// the 1-based number of the attempt that just failed.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.BaseDelay) * math.Pow(p.BackoffMultiplier, float64(attempt-1))
	if d > float64(p.MaxDelay) || math.IsInf(d, 0) || math.IsNaN(d) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// RetryOutcome holds per-operation attempt counters.
type RetryOutcome struct {
	Successes         int64
	Failures          int64
	TotalAttempts     int64
	LastFailureReason string
	LastAttemptAt     time.Time

	// SuccessRate is the running mean of attempt success, updated
	// incrementally on every attempt.
	SuccessRate float64
}

func (o *RetryOutcome) record(err error, at time.Time) {
	o.TotalAttempts++
	o.LastAttemptAt = at

	x := 0.0
	if err == nil {
		o.Successes++
		x = 1
	} else {
		o.Failures++
		o.LastFailureReason = err.Error()
	}
	o.SuccessRate += (x - o.SuccessRate) / float64(o.TotalAttempts)
}

// RetryExecutor executes operations with classified retries and records
// per-operation outcomes.
type RetryExecutor struct {
	policy RetryPolicy

	mu       sync.Mutex
	outcomes map[string]*RetryOutcome

	// jitter returns a factor in [0.5, 1.0]; replaced in tests.
	jitter func() float64
	now    func() time.Time
}

// NewRetryExecutor creates a retry executor with the given default policy.
func NewRetryExecutor(policy RetryPolicy) *RetryExecutor {
	return &RetryExecutor{
		policy:   policy.withDefaults(),
		outcomes: make(map[string]*RetryOutcome),
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		jitter: func() float64 { return 0.5 + rand.Float64()*0.5 },
		now:    time.Now,
	}
}

// Policy returns the executor's default policy.
func (r *RetryExecutor) Policy() RetryPolicy {
	return r.policy
}

// Execute runs op with the executor's default policy.
func (r *RetryExecutor) Execute(ctx context.Context, operationID string, op OperationFunc) (any, error) {
	return r.run(ctx, r.policy, operationID, op)
}

// ExecuteWithPolicy runs op with an overriding policy.
func (r *RetryExecutor) ExecuteWithPolicy(ctx context.Context, policy RetryPolicy, operationID string, op OperationFunc) (any, error) {
	return r.run(ctx, policy.withDefaults(), operationID, op)
}

func (r *RetryExecutor) run(ctx context.Context, policy RetryPolicy, operationID string, op OperationFunc) (any, error) {
	if operationID == "" {
		operationID = AnonymousOperation
	}

	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		result, err := op(ctx)
		r.record(operationID, err)

		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryable(err, policy.RetryableCategories) {
			return nil, err
		}
		if attempt >= policy.MaxAttempts {
			break
		}

		delay := r.backoff(policy, attempt)
		if policy.OnRetry != nil {
			policy.OnRetry(operationID, attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	// The last failure is returned as-is so callers keep the original cause.
	return nil, lastErr
}

func (r *RetryExecutor) backoff(policy RetryPolicy, attempt int) time.Duration {
	delay := policy.Delay(attempt)
	if policy.Jitter && delay > 0 {
		delay = time.Duration(float64(delay) * r.jitter())
	}
	return delay
}

func (r *RetryExecutor) record(operationID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.outcomes[operationID]
	if !ok {
		o = &RetryOutcome{}
		r.outcomes[operationID] = o
	}
	o.record(err, r.now())
}

// Outcome returns a copy of the counters for an operation ID.
func (r *RetryExecutor) Outcome(operationID string) (RetryOutcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.outcomes[operationID]
	if !ok {
		return RetryOutcome{}, false
	}
	return *o, true
}

// Outcomes returns a copy of all recorded counters.
func (r *RetryExecutor) Outcomes() map[string]RetryOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]RetryOutcome, len(r.outcomes))
	for id, o := range r.outcomes {
		out[id] = *o
	}
	return out
}

// Reset clears the counters for one operation ID.
func (r *RetryExecutor) Reset(operationID string) {
	r.mu.Lock()
	delete(r.outcomes, operationID)
	r.mu.Unlock()
}

// ResetAll clears every counter.
func (r *RetryExecutor) ResetAll() {
	r.mu.Lock()
	r.outcomes = make(map[string]*RetryOutcome)
	r.mu.Unlock()
}
