package health

import (
	"context"
	"fmt"
	"runtime"
)

// HeapCheckerConfig configures the heap usage probe.
type HeapCheckerConfig struct {
	// WarningThreshold is the heap usage ratio that yields degraded.
	// Value should be between 0 and 1. Default: 0.8 (80%)
	WarningThreshold float64

	// CriticalThreshold is the heap usage ratio that yields unhealthy.
	// Value should be between 0 and 1. Default: 0.95 (95%)
	CriticalThreshold float64

	// MaxHeapBytes is the heap size considered full.
	// If zero, the heap reserved from the OS (HeapSys) is used.
	MaxHeapBytes uint64

	// ReadStats reads runtime memory statistics. Default: runtime.ReadMemStats
	ReadStats func(*runtime.MemStats)
}

// HeapChecker reports whether process heap usage is acceptable.
type HeapChecker struct {
	config HeapCheckerConfig
}

// NewHeapChecker creates a heap usage probe.
func NewHeapChecker(config HeapCheckerConfig) *HeapChecker {
	if config.WarningThreshold <= 0 || config.WarningThreshold >= 1 {
		config.WarningThreshold = 0.8
	}
	if config.CriticalThreshold <= 0 || config.CriticalThreshold >= 1 {
		config.CriticalThreshold = 0.95
	}
	if config.CriticalThreshold < config.WarningThreshold {
		config.CriticalThreshold = min(config.WarningThreshold+0.1, 0.99)
	}
	if config.ReadStats == nil {
		config.ReadStats = runtime.ReadMemStats
	}

	return &HeapChecker{config: config}
}

// Name returns the name of this checker.
func (h *HeapChecker) Name() string {
	return "heap"
}

// Check performs the heap usage probe.
func (h *HeapChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Unhealthy("context cancelled", ctx.Err())
	default:
	}

	var stats runtime.MemStats
	h.config.ReadStats(&stats)

	limit := h.config.MaxHeapBytes
	if limit == 0 {
		limit = stats.HeapSys
	}
	if limit == 0 {
		return Healthy("heap stats unavailable")
	}

	ratio := float64(stats.HeapAlloc) / float64(limit)
	details := map[string]any{
		"heap_alloc":    stats.HeapAlloc,
		"heap_limit":    limit,
		"usage_percent": ratio * 100,
		"heap_objects":  stats.HeapObjects,
		"num_gc":        stats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	switch {
	case ratio >= h.config.CriticalThreshold:
		return Unhealthy(fmt.Sprintf("heap usage critical: %.1f%%", ratio*100), ErrCheckFailed).WithDetails(details)
	case ratio >= h.config.WarningThreshold:
		return Degraded(fmt.Sprintf("heap usage high: %.1f%%", ratio*100)).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("heap usage normal: %.1f%%", ratio*100)).WithDetails(details)
	}
}
