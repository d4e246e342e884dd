package coordinator

import (
	"context"
	"errors"

	"github.com/jonwraymond/reportops/memory"
	"github.com/jonwraymond/reportops/resilience"
)

var (
	// ErrDestroyed is returned by Run after Destroy.
	ErrDestroyed = resilience.NewGovernanceError("coordinator: destroyed")

	// ErrUnexpectedType is returned by Do when a result does not have the
	// requested type.
	ErrUnexpectedType = errors.New("coordinator: unexpected result type")

	// ErrInvalidConfig is returned by New for unusable configuration.
	ErrInvalidConfig = errors.New("coordinator: invalid config")
)

// ErrorKind classifies an error returned by Run.
type ErrorKind string

// Error kinds.
const (
	KindNone               ErrorKind = ""
	KindOperation          ErrorKind = "operation"
	KindQueueFull          ErrorKind = "queue-full"
	KindQueueTimeout       ErrorKind = "queue-timeout"
	KindOperationTimeout   ErrorKind = "operation-timeout"
	KindBudgetExceeded     ErrorKind = "budget-exceeded"
	KindAllocationTooLarge ErrorKind = "allocation-too-large"
	KindPoolClosed         ErrorKind = "pool-closed"
	KindCircuitOpen        ErrorKind = "circuit-open"
	KindCancelled          ErrorKind = "cancelled"
)

// ErrorKindOf returns the kind of err. A nil error has KindNone; any error
// not raised by the governance layer is KindOperation.
func ErrorKindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, resilience.ErrQueueFull):
		return KindQueueFull
	case errors.Is(err, resilience.ErrQueueTimeout):
		return KindQueueTimeout
	case errors.Is(err, resilience.ErrTimeout):
		return KindOperationTimeout
	case errors.Is(err, memory.ErrBudgetExceeded):
		return KindBudgetExceeded
	case errors.Is(err, memory.ErrAllocationTooLarge):
		return KindAllocationTooLarge
	case errors.Is(err, resilience.ErrPoolClosed), errors.Is(err, ErrDestroyed):
		return KindPoolClosed
	case errors.Is(err, resilience.ErrCircuitOpen):
		return KindCircuitOpen
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	default:
		return KindOperation
	}
}

// IsGovernance reports whether err was raised by the governance layer
// rather than by the operation.
func IsGovernance(err error) bool {
	return resilience.IsGovernance(err)
}
