// Package tracing provides OpenTelemetry tracing for trafficwatch.
//
// Validation and refresh ticks each open a root span ("traffic.validate",
// "traffic.refresh") carrying the interface, byte totals and limits.
// Spans are exported over OTLP gRPC; any collector that speaks OTLP
// (Jaeger, Tempo, the OpenTelemetry Collector) can receive them.
//
// # Sampling Strategies
//
//   - always: Sample all ticks
//   - never: Sample nothing
//   - ratio: Sample a fraction of ticks by trace ID
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	monitor, err := traffic.New(monitorCfg, traffic.Dependencies{
//	    Tracer: tracer.Tracer(),
//	    ...
//	})
//
// A disabled tracer hands out noop spans.
package tracing
