package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/jonwraymond/reportops/resilience"
)

func TestMetrics_RecordRun(t *testing.T) {
	m, reader := newTestMetrics(t)
	meta := OperationMeta{Resource: "reports", Name: "render"}
	ctx := context.Background()

	m.RecordRun(ctx, meta, 40*time.Millisecond, nil)
	m.RecordRun(ctx, meta, 10*time.Millisecond, &resilience.OperationError{Op: "render", StatusCode: 503, Err: errors.New("unavailable")})

	rm := collect(t, reader)
	if got := sumValue(t, rm, MetricRunTotal); got != 2 {
		t.Errorf("%s = %d, want 2", MetricRunTotal, got)
	}
	if got := sumValue(t, rm, MetricRunErrors); got != 1 {
		t.Errorf("%s = %d, want 1", MetricRunErrors, got)
	}

	errs := findMetric(rm, MetricRunErrors).Data.(metricdata.Sum[int64])
	category, ok := errs.DataPoints[0].Attributes.Value(attribute.Key("error.category"))
	if !ok || category.AsString() != "server" {
		t.Errorf("error.category = %v, want server", category.AsString())
	}

	hist, ok := findMetric(rm, MetricRunDuration).Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("%s is not a float64 histogram", MetricRunDuration)
	}
	if hist.DataPoints[0].Count != 2 {
		t.Errorf("histogram count = %d, want 2", hist.DataPoints[0].Count)
	}
	if hist.DataPoints[0].Sum != 50 {
		t.Errorf("histogram sum = %v, want 50", hist.DataPoints[0].Sum)
	}
}

func TestMetrics_NoErrorsOnSuccess(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordRun(context.Background(), OperationMeta{Name: "list"}, time.Millisecond, nil)

	if got := sumValue(t, collect(t, reader), MetricRunErrors); got != 0 {
		t.Errorf("%s = %d, want 0", MetricRunErrors, got)
	}
}

func TestMetrics_RecordCacheHit(t *testing.T) {
	m, reader := newTestMetrics(t)
	meta := OperationMeta{Name: "render"}

	m.RecordCacheHit(context.Background(), meta)
	m.RecordCacheHit(context.Background(), meta)

	if got := sumValue(t, collect(t, reader), MetricRunCacheHits); got != 2 {
		t.Errorf("%s = %d, want 2", MetricRunCacheHits, got)
	}
}

func TestMetrics_ObserveGauges(t *testing.T) {
	m, reader := newTestMetrics(t)
	running := int64(3)

	reg, err := m.ObserveGauges(GaugeSource{
		PoolRunning:        func() int64 { return running },
		MemoryTrackedBytes: func() int64 { return 4096 },
	})
	if err != nil {
		t.Fatalf("ObserveGauges() error = %v", err)
	}

	rm := collect(t, reader)
	gauge := func(name string) int64 {
		found := findMetric(rm, name)
		if found == nil {
			t.Fatalf("%s not found", name)
		}
		g := found.Data.(metricdata.Gauge[int64])
		return g.DataPoints[0].Value
	}
	if got := gauge(MetricPoolRunning); got != 3 {
		t.Errorf("%s = %d, want 3", MetricPoolRunning, got)
	}
	if got := gauge(MetricMemoryTrackedBytes); got != 4096 {
		t.Errorf("%s = %d, want 4096", MetricMemoryTrackedBytes, got)
	}
	if findMetric(rm, MetricCacheSize) != nil {
		t.Errorf("%s registered without a source", MetricCacheSize)
	}

	if err := reg.Unregister(); err != nil {
		t.Errorf("Unregister() error = %v", err)
	}
}

func TestMetrics_ObserveGaugesEmpty(t *testing.T) {
	m, _ := newTestMetrics(t)

	reg, err := m.ObserveGauges(GaugeSource{})
	if err != nil || reg == nil {
		t.Fatalf("ObserveGauges(empty) = %v, %v", reg, err)
	}
	if err := reg.Unregister(); err != nil {
		t.Errorf("Unregister() error = %v", err)
	}
}

func TestNoopMetrics(t *testing.T) {
	m := NewNoopMetrics()
	m.RecordRun(context.Background(), OperationMeta{Name: "x"}, time.Millisecond, errors.New("x"))
	m.RecordCacheHit(context.Background(), OperationMeta{Name: "x"})
	reg, err := m.ObserveGauges(GaugeSource{PoolRunning: func() int64 { return 1 }})
	if err != nil || reg.Unregister() != nil {
		t.Errorf("noop ObserveGauges should succeed")
	}
}
