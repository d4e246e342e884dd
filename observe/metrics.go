package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/reportops/resilience"
)

// Metrics records run metrics for governed operations.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: recording must not panic.
type Metrics interface {
	// RecordRun records one governed run with its duration and outcome.
	RecordRun(ctx context.Context, meta OperationMeta, duration time.Duration, err error)

	// RecordCacheHit records a run served from cache.
	RecordCacheHit(ctx context.Context, meta OperationMeta)

	// ObserveGauges registers observable gauges read from src at collection time.
	ObserveGauges(src GaugeSource) (metric.Registration, error)
}

// GaugeSource supplies point-in-time component readings. Nil funcs are skipped.
type GaugeSource struct {
	PoolRunning        func() int64
	PoolQueueLength    func() int64
	MemoryTrackedBytes func() int64
	CacheSize          func() int64
}

// Metric names.
const (
	MetricRunTotal           = "reportops.run.total"
	MetricRunErrors          = "reportops.run.errors"
	MetricRunCacheHits       = "reportops.run.cache_hits"
	MetricRunDuration        = "reportops.run.duration_ms"
	MetricPoolRunning        = "reportops.pool.running"
	MetricPoolQueueLength    = "reportops.pool.queue_length"
	MetricMemoryTrackedBytes = "reportops.memory.tracked_bytes"
	MetricCacheSize          = "reportops.cache.size"
)

// metricsImpl is the OpenTelemetry implementation of Metrics.
type metricsImpl struct {
	meter        metric.Meter
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	cacheHits    metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics creates Metrics backed by meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		MetricRunTotal,
		metric.WithDescription("Total number of governed runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		MetricRunErrors,
		metric.WithDescription("Total number of governed runs that failed"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	cacheHits, err := meter.Int64Counter(
		MetricRunCacheHits,
		metric.WithDescription("Total number of runs served from cache"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		MetricRunDuration,
		metric.WithDescription("Governed run duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:        meter,
		totalCount:   totalCount,
		errorCount:   errorCount,
		cacheHits:    cacheHits,
		durationHist: durationHist,
	}, nil
}

func operationAttrs(meta OperationMeta) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("operation.name", meta.Name),
	}
	if meta.Resource != "" {
		attrs = append(attrs, attribute.String("operation.resource", meta.Resource))
	}
	return attrs
}

// RecordRun records metrics for a governed run.
func (m *metricsImpl) RecordRun(ctx context.Context, meta OperationMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(operationAttrs(meta)...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		attrs := append(operationAttrs(meta), attribute.String("error.category", resilience.Classify(err).String()))
		m.errorCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

// RecordCacheHit records a cache-served run.
func (m *metricsImpl) RecordCacheHit(ctx context.Context, meta OperationMeta) {
	m.cacheHits.Add(ctx, 1, metric.WithAttributes(operationAttrs(meta)...))
}

// ObserveGauges registers the component gauges.
func (m *metricsImpl) ObserveGauges(src GaugeSource) (metric.Registration, error) {
	type gauge struct {
		name string
		desc string
		unit string
		read func() int64
	}
	specs := []gauge{
		{MetricPoolRunning, "Operations currently holding a pool slot", "{operation}", src.PoolRunning},
		{MetricPoolQueueLength, "Requests waiting for a pool slot", "{request}", src.PoolQueueLength},
		{MetricMemoryTrackedBytes, "Bytes reserved against the memory budget", "By", src.MemoryTrackedBytes},
		{MetricCacheSize, "Entries held in the result cache", "{entry}", src.CacheSize},
	}

	type observed struct {
		gauge metric.Int64ObservableGauge
		read  func() int64
	}
	var (
		instruments []metric.Observable
		readers     []observed
	)
	for _, s := range specs {
		if s.read == nil {
			continue
		}
		g, err := m.meter.Int64ObservableGauge(s.name, metric.WithDescription(s.desc), metric.WithUnit(s.unit))
		if err != nil {
			return nil, err
		}
		instruments = append(instruments, g)
		readers = append(readers, observed{gauge: g, read: s.read})
	}
	if len(instruments) == 0 {
		return noopRegistration{}, nil
	}

	return m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for _, r := range readers {
			o.ObserveInt64(r.gauge, r.read())
		}
		return nil
	}, instruments...)
}

type noopRegistration struct{ metric.Registration }

func (noopRegistration) Unregister() error { return nil }

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

// NewNoopMetrics returns Metrics that record nothing.
func NewNoopMetrics() Metrics { return noopMetrics{} }

func (noopMetrics) RecordRun(context.Context, OperationMeta, time.Duration, error) {}
func (noopMetrics) RecordCacheHit(context.Context, OperationMeta)                  {}
func (noopMetrics) ObserveGauges(GaugeSource) (metric.Registration, error) {
	return noopRegistration{}, nil
}
