package observe

import (
	"context"
	"time"

	"github.com/jonwraymond/reportops/resilience"
)

// RunFunc is the signature of a governed run that Middleware wraps.
type RunFunc func(ctx context.Context, meta OperationMeta) (any, error)

// Middleware wraps governed runs with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Wrap returns a RunFunc safe for concurrent use.
//   - Errors: errors from the wrapped func are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware. Nil components are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NewNoopTracer()
	}
	if metrics == nil {
		metrics = NewNoopMetrics()
	}
	if logger == nil {
		logger = NewNoopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// Metrics returns the metrics recorder used by the middleware.
func (m *Middleware) Metrics() Metrics { return m.metrics }

// Logger returns the logger used by the middleware.
func (m *Middleware) Logger() Logger { return m.logger }

// Wrap wraps fn with a span, run metrics and a completion log line.
func (m *Middleware) Wrap(fn RunFunc) RunFunc {
	return func(ctx context.Context, meta OperationMeta) (any, error) {
		ctx, span := m.tracer.StartSpan(ctx, meta)
		start := time.Now()

		result, err := fn(ctx, meta)

		duration := time.Since(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordRun(ctx, meta, duration, err)

		log := m.logger.WithOperation(meta)
		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Microseconds()) / 1000},
		}
		if err != nil {
			fields = append(fields,
				Field{Key: "error", Value: err.Error()},
				Field{Key: "error.category", Value: resilience.Classify(err).String()},
			)
			if resilience.IsGovernance(err) {
				log.Warn(ctx, "run rejected", fields...)
			} else {
				log.Error(ctx, "run failed", fields...)
			}
		} else {
			log.Info(ctx, "run completed", fields...)
		}

		return result, err
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
