package resilience

import "errors"

// GovernanceError is implemented by errors raised by the governance layer
// itself (admission and budget rejections) rather than by an operation.
// Such errors are never retried.
type GovernanceError interface {
	error
	IsGovernance() bool
}

type governanceError string

func (e governanceError) Error() string { return string(e) }

// IsGovernance reports that the error originates from the governance layer.
func (governanceError) IsGovernance() bool { return true }

// NewGovernanceError creates a sentinel admission error for packages that
// reject work before it runs.
func NewGovernanceError(msg string) error {
	return governanceError(msg)
}

// Admission errors returned by Pool and Breakers.
var (
	// ErrQueueFull is returned when every slot is busy and the wait queue is at capacity.
	ErrQueueFull = NewGovernanceError("resilience: pool queue is full")

	// ErrQueueTimeout is returned when a request waited in the queue longer than its timeout.
	ErrQueueTimeout = NewGovernanceError("resilience: request queued too long")

	// ErrPoolClosed is returned by a pool that has been closed.
	ErrPoolClosed = NewGovernanceError("resilience: pool is closed")

	// ErrCircuitOpen is returned by Breakers while an operation's circuit is open.
	ErrCircuitOpen = NewGovernanceError("resilience: circuit is open")
)

// Execution errors.
var (
	// ErrTimeout is returned when an operation does not complete within its timeout.
	ErrTimeout = errors.New("resilience: operation timed out")
)

// IsGovernance reports whether err, or any error it wraps, was raised by
// the governance layer.
func IsGovernance(err error) bool {
	var ge GovernanceError
	return errors.As(err, &ge) && ge.IsGovernance()
}
