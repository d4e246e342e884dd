// Package observe provides structured logging, OpenTelemetry tracing and
// run metrics for governed remote operations.
//
// NewObserver builds tracer and meter providers from a Config, with
// exporters chosen by name (see package exporters), and a zerolog-backed
// JSON Logger. Middleware wraps each run with a span, run metrics and a
// completion log line:
//
//	obs, err := observe.NewObserver(ctx, observe.Config{
//	    ServiceName: "report-client",
//	    Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "prometheus"},
//	    Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
//	})
//	mw, err := observe.MiddlewareFromObserver(obs)
//	run := mw.Wrap(func(ctx context.Context, meta observe.OperationMeta) (any, error) {
//	    return client.Render(ctx, id)
//	})
//
// Log fields whose keys appear in RedactedFields are replaced with
// "[REDACTED]".
package observe
