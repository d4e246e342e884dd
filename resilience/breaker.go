package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerState represents the state of one operation's circuit.
type BreakerState int

const (
	// BreakerClosed means runs pass through normally.
	BreakerClosed BreakerState = iota
	// BreakerOpen means runs are rejected without invoking the operation.
	BreakerOpen
	// BreakerHalfOpen means a limited number of trial runs are let through.
	BreakerHalfOpen
)

// String returns the string representation of the state.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

func breakerState(s gobreaker.State) BreakerState {
	switch s {
	case gobreaker.StateOpen:
		return BreakerOpen
	case gobreaker.StateHalfOpen:
		return BreakerHalfOpen
	default:
		return BreakerClosed
	}
}

// BreakerConfig configures a Breakers set.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive tripping failures
	// that opens a circuit.
	// Default: 5
	FailureThreshold int

	// ResetTimeout is how long a circuit stays open before trial runs.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// HalfOpenMaxProbes is the number of runs admitted while half-open.
	// That many consecutive successes close the circuit.
	// Default: 1
	HalfOpenMaxProbes int

	// TrippingCategories are the failure categories that count toward
	// opening a circuit.
	// Default: DefaultRetryableCategories
	TrippingCategories []Category

	// OnStateChange is called on every transition. It runs while the
	// circuit is locked and must not call back into Breakers.
	OnStateChange func(operationID string, from, to BreakerState)
}

// BreakerSnapshot describes one operation's circuit.
type BreakerSnapshot struct {
	State               BreakerState
	ConsecutiveFailures int
	Trips               int64
	Rejections          int64
	LastFailureAt       time.Time
}

type circuit struct {
	cb          *gobreaker.CircuitBreaker[any]
	trips       atomic.Int64
	rejections  atomic.Int64
	lastFailure atomic.Int64
}

func (c *circuit) snapshot() BreakerSnapshot {
	s := BreakerSnapshot{
		State:               breakerState(c.cb.State()),
		ConsecutiveFailures: int(c.cb.Counts().ConsecutiveFailures),
		Trips:               c.trips.Load(),
		Rejections:          c.rejections.Load(),
	}
	if ns := c.lastFailure.Load(); ns != 0 {
		s.LastFailureAt = time.Unix(0, ns)
	}
	return s
}

// Breakers keeps an independent gobreaker circuit per operation ID.
//
// Only failures in TrippingCategories count against a circuit. Any other
// outcome, governance rejections and cancellations included, counts as a
// success.
type Breakers struct {
	config BreakerConfig

	mu       sync.Mutex
	circuits map[string]*circuit
}

// NewBreakers creates an empty breaker set.
func NewBreakers(config BreakerConfig) *Breakers {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.HalfOpenMaxProbes <= 0 {
		config.HalfOpenMaxProbes = 1
	}
	if len(config.TrippingCategories) == 0 {
		config.TrippingCategories = DefaultRetryableCategories
	}

	return &Breakers{
		config:   config,
		circuits: make(map[string]*circuit),
	}
}

// Execute runs op through the circuit for operationID. An open circuit
// fails fast with ErrCircuitOpen.
func (b *Breakers) Execute(ctx context.Context, operationID string, op OperationFunc) (any, error) {
	if operationID == "" {
		operationID = AnonymousOperation
	}
	c := b.circuit(operationID)

	result, err := c.cb.Execute(func() (any, error) {
		return op(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.rejections.Add(1)
		return nil, ErrCircuitOpen
	}
	if b.trips(err) {
		c.lastFailure.Store(time.Now().UnixNano())
	}
	return result, err
}

func (b *Breakers) trips(err error) bool {
	return err != nil && IsRetryable(err, b.config.TrippingCategories)
}

func (b *Breakers) circuit(id string) *circuit {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.circuits[id]; ok {
		return c
	}

	c := &circuit{}
	threshold := uint32(b.config.FailureThreshold)
	c.cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        id,
		MaxRequests: uint32(b.config.HalfOpenMaxProbes),
		Timeout:     b.config.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return !b.trips(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				c.trips.Add(1)
			}
			if b.config.OnStateChange != nil {
				b.config.OnStateChange(name, breakerState(from), breakerState(to))
			}
		},
	})
	b.circuits[id] = c
	return c
}

func (b *Breakers) lookup(id string) (*circuit, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.circuits[id]
	return c, ok
}

// State returns the current state of the circuit for operationID.
func (b *Breakers) State(operationID string) BreakerState {
	s, _ := b.Snapshot(operationID)
	return s.State
}

// Snapshot returns a copy of one circuit. Unknown IDs report closed.
func (b *Breakers) Snapshot(operationID string) (BreakerSnapshot, bool) {
	c, ok := b.lookup(operationID)
	if !ok {
		return BreakerSnapshot{}, false
	}
	return c.snapshot(), true
}

// Snapshots returns a copy of every circuit.
func (b *Breakers) Snapshots() map[string]BreakerSnapshot {
	b.mu.Lock()
	circuits := make(map[string]*circuit, len(b.circuits))
	for id, c := range b.circuits {
		circuits[id] = c
	}
	b.mu.Unlock()

	out := make(map[string]BreakerSnapshot, len(circuits))
	for id, c := range circuits {
		out[id] = c.snapshot()
	}
	return out
}

// Reset discards the circuit for operationID. The next run starts from a
// fresh closed circuit.
func (b *Breakers) Reset(operationID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.circuits, operationID)
}
