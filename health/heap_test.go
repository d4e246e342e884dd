package health

import (
	"context"
	"runtime"
	"testing"
)

func heapStats(alloc, sys uint64) func(*runtime.MemStats) {
	return func(m *runtime.MemStats) {
		m.HeapAlloc = alloc
		m.HeapSys = sys
	}
}

func TestNewHeapChecker_Defaults(t *testing.T) {
	h := NewHeapChecker(HeapCheckerConfig{})

	if h.config.WarningThreshold != 0.8 {
		t.Errorf("WarningThreshold = %v, want 0.8", h.config.WarningThreshold)
	}
	if h.config.CriticalThreshold != 0.95 {
		t.Errorf("CriticalThreshold = %v, want 0.95", h.config.CriticalThreshold)
	}
	if h.Name() != "heap" {
		t.Errorf("Name() = %q, want heap", h.Name())
	}
}

func TestHeapChecker_Thresholds(t *testing.T) {
	tests := []struct {
		name  string
		alloc uint64
		max   uint64
		want  Status
	}{
		{"normal", 50, 100, StatusHealthy},
		{"warning", 85, 100, StatusDegraded},
		{"critical", 97, 100, StatusUnhealthy},
		{"limit from HeapSys", 10, 0, StatusHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHeapChecker(HeapCheckerConfig{
				MaxHeapBytes: tt.max,
				ReadStats:    heapStats(tt.alloc, 100),
			})
			result := h.Check(context.Background())
			if result.Status != tt.want {
				t.Errorf("Status = %v, want %v (%s)", result.Status, tt.want, result.Message)
			}
			if result.Details["heap_alloc"] != tt.alloc {
				t.Errorf("Details[heap_alloc] = %v, want %d", result.Details["heap_alloc"], tt.alloc)
			}
		})
	}
}

func TestHeapChecker_RealStats(t *testing.T) {
	result := NewHeapChecker(HeapCheckerConfig{}).Check(context.Background())
	if result.Message == "" {
		t.Error("Message should not be empty")
	}
}

func TestHeapChecker_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := NewHeapChecker(HeapCheckerConfig{}).Check(ctx)
	if result.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want unhealthy", result.Status)
	}
}
