package health

import (
	"context"
	"time"
)

// Status represents the health status of a probe.
type Status int

const (
	// StatusHealthy indicates the probe passed.
	StatusHealthy Status = iota
	// StatusDegraded indicates the probed dependency works with issues.
	StatusDegraded
	// StatusUnhealthy indicates the probe failed.
	StatusUnhealthy
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Result contains the outcome of one probe run.
type Result struct {
	// Name is the probe the result belongs to.
	Name string

	// Status is the health status.
	Status Status

	// Message provides additional context about the status.
	Message string

	// Error is the error if the probe failed.
	Error error

	// Details contains arbitrary metadata about the probe.
	Details map[string]any

	// Duration is how long the probe took.
	Duration time.Duration

	// Timestamp is when the probe was performed.
	Timestamp time.Time

	// Critical reports whether the probe affects overall health.
	Critical bool
}

// Healthy creates a healthy result.
func Healthy(message string) Result {
	return Result{
		Status:    StatusHealthy,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Degraded creates a degraded result.
func Degraded(message string) Result {
	return Result{
		Status:    StatusDegraded,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Unhealthy creates an unhealthy result.
func Unhealthy(message string, err error) Result {
	return Result{
		Status:    StatusUnhealthy,
		Message:   message,
		Error:     err,
		Timestamp: time.Now(),
	}
}

// WithDetails adds details to a result.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// WithDuration sets the duration on a result.
func (r Result) WithDuration(d time.Duration) Result {
	r.Duration = d
	return r
}

// Checker is the interface for health probes.
type Checker interface {
	// Name returns the name of this checker.
	Name() string

	// Check performs the probe and returns the result.
	Check(ctx context.Context) Result
}

// CheckerFunc is an adapter to allow ordinary functions to be used as Checkers.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewCheckerFunc creates a new CheckerFunc.
func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

// Name returns the name of this checker.
func (f *CheckerFunc) Name() string {
	return f.name
}

// Check performs the probe.
func (f *CheckerFunc) Check(ctx context.Context) Result {
	return f.fn(ctx)
}

// NewPingChecker adapts a reachability function, such as a lightweight
// request against the remote report server or a repository listing, into
// a Checker. A nil error is healthy; anything else is unhealthy.
func NewPingChecker(name string, ping func(context.Context) error) *CheckerFunc {
	return NewCheckerFunc(name, func(ctx context.Context) Result {
		if err := ping(ctx); err != nil {
			return Unhealthy(name+" unreachable: "+err.Error(), err)
		}
		return Healthy(name + " reachable")
	})
}
