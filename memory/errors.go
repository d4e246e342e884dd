package memory

import (
	"errors"

	"github.com/jonwraymond/reportops/resilience"
)

// Admission errors returned by Budget.Allocate. Both are governance errors
// and are never retried.
var (
	// ErrBudgetExceeded is returned when a reservation would push the tracked total past the ceiling.
	ErrBudgetExceeded = resilience.NewGovernanceError("memory: budget exceeded")

	// ErrAllocationTooLarge is returned when a single reservation exceeds the per-item limit.
	ErrAllocationTooLarge = resilience.NewGovernanceError("memory: allocation exceeds item limit")
)

// ErrInvalidAllocation is returned for an empty ID or a negative size.
var ErrInvalidAllocation = errors.New("memory: invalid allocation")
