// Package telemetry groups the observability packages used by trafficwatch.
//
// # Components
//
//   - logging: slog construction, context fields and the cron logger adapter
//   - metrics: Prometheus collector implementing traffic.Recorder
//   - tracing: OpenTelemetry spans for validation and refresh ticks
//   - health: liveness and readiness checks over the monitor
//
// # Usage
//
//	logger, _ := logging.New(logging.Config{Level: cfg.Telemetry.Logging.Level})
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	tracer, _ := tracing.New(&cfg.Telemetry.Tracing, version)
//	defer tracer.Shutdown(context.Background())
//
//	monitor, _ := traffic.New(monitorCfg, traffic.Dependencies{
//	    Recorder: collector,
//	    Tracer:   tracer.Tracer(),
//	    Logger:   logger,
//	    ...
//	})
//
// The HTTP side is wired by the server package.
package telemetry
