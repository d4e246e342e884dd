package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
)

// Category classifies an operation failure for retry decisions.
type Category int

const (
	// CategoryUnknown is a failure that matched no other category.
	CategoryUnknown Category = iota
	// CategoryConnection covers refused, reset and aborted connections.
	CategoryConnection
	// CategoryTimeout covers transport and server-side timeouts.
	CategoryTimeout
	// CategoryRateLimited covers throttling responses.
	CategoryRateLimited
	// CategoryServer covers 500/502/503/504 responses.
	CategoryServer
	// CategoryClient covers 4xx responses not covered elsewhere.
	CategoryClient
	// CategoryValidation covers rejected input (400, 422).
	CategoryValidation
	// CategoryNotFound covers missing resources (404).
	CategoryNotFound
	// CategoryGovernance covers admission and budget rejections.
	CategoryGovernance
	// CategoryCancelled covers caller cancellation.
	CategoryCancelled
)

// String returns the string representation of the category.
func (c Category) String() string {
	switch c {
	case CategoryConnection:
		return "connection"
	case CategoryTimeout:
		return "timeout"
	case CategoryRateLimited:
		return "rate_limited"
	case CategoryServer:
		return "server"
	case CategoryClient:
		return "client"
	case CategoryValidation:
		return "validation"
	case CategoryNotFound:
		return "not_found"
	case CategoryGovernance:
		return "governance"
	case CategoryCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// DefaultRetryableCategories are the categories retried when a policy does
// not name its own.
var DefaultRetryableCategories = []Category{
	CategoryConnection,
	CategoryTimeout,
	CategoryRateLimited,
	CategoryServer,
}

// OperationError is the error shape collaborators use to report a remote
// failure together with its category or HTTP status.
type OperationError struct {
	// Op names the remote operation, e.g. "resources.search".
	Op string

	// Category is an explicit classification. CategoryUnknown defers to StatusCode.
	Category Category

	// StatusCode is the HTTP status returned by the remote server, if any.
	StatusCode int

	// Err is the underlying cause.
	Err error
}

func (e *OperationError) Error() string {
	msg := e.Op
	if msg == "" {
		msg = "operation"
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// statusCoder is satisfied by transport errors that carry an HTTP status.
type statusCoder interface {
	StatusCode() int
}

// Classify maps an error onto a Category.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}

	if IsGovernance(err) {
		return CategoryGovernance
	}
	if errors.Is(err, context.Canceled) {
		return CategoryCancelled
	}

	var opErr *OperationError
	if errors.As(err, &opErr) {
		if opErr.Category != CategoryUnknown {
			return opErr.Category
		}
		if opErr.StatusCode != 0 {
			return categoryForStatus(opErr.StatusCode)
		}
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		if c := categoryForStatus(sc.StatusCode()); c != CategoryUnknown {
			return c
		}
	}

	switch {
	case errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE):
		return CategoryConnection
	case errors.Is(err, syscall.ETIMEDOUT),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, ErrTimeout):
		return CategoryTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CategoryTimeout
	}

	var netOpErr *net.OpError
	if errors.As(err, &netOpErr) {
		return CategoryConnection
	}

	if errors.Is(err, io.ErrUnexpectedEOF) {
		return CategoryConnection
	}

	return CategoryUnknown
}

func categoryForStatus(code int) Category {
	switch code {
	case http.StatusRequestTimeout:
		return CategoryTimeout
	case http.StatusTooManyRequests:
		return CategoryRateLimited
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return CategoryServer
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return CategoryValidation
	case http.StatusNotFound:
		return CategoryNotFound
	}
	if code >= 400 && code < 500 {
		return CategoryClient
	}
	return CategoryUnknown
}

// IsRetryable reports whether err falls into one of the given categories.
// A nil or empty categories slice means DefaultRetryableCategories.
// Governance and cancellation failures are never retryable.
func IsRetryable(err error, categories []Category) bool {
	if err == nil {
		return false
	}

	c := Classify(err)
	if c == CategoryGovernance || c == CategoryCancelled {
		return false
	}

	if len(categories) == 0 {
		categories = DefaultRetryableCategories
	}
	for _, rc := range categories {
		if rc == c {
			return true
		}
	}
	return false
}
