// Package server provides the trafficwatch HTTP endpoint.
//
// Routes:
//
//   - /metrics: Prometheus exposition (path configurable)
//   - /health, /ready, /version: probes from the health package
//   - GET /status: JSON snapshot of the monitor
//   - POST /refresh: reload limits from the store immediately
//
// Every route passes through recovery, request ID and logging middleware.
//
// # Basic Usage
//
//	srv := server.New(&cfg.Server, server.Options{
//	    Monitor:     monitor,
//	    Checker:     checker,
//	    Metrics:     collector.Handler(),
//	    MetricsPath: cfg.Telemetry.Metrics.Path,
//	    Version:     version,
//	})
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//
// Start blocks until ctx is cancelled, then shuts down gracefully within
// the configured timeout.
package server
