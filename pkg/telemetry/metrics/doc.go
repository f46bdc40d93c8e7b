// Package metrics provides Prometheus metrics for trafficwatch.
//
// # Metrics
//
//   - <ns>_validation_ticks_total{outcome}: validation ticks by outcome
//   - <ns>_validation_delta_bytes: bytes observed per validation window
//   - <ns>_validation_duration_seconds: validation tick duration
//   - <ns>_refresh_total{result}: limit refreshes by result
//   - <ns>_refresh_duration_seconds: refresh duration
//   - <ns>_limits_bytes{bound}: currently published min and max
//   - <ns>_alerts_total{delivered}: alerts by delivery result
//   - <ns>_capture_errors_total: capture failures
//   - <ns>_capture_bytes_total: running byte counter, read at scrape time
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	monitor, _ := traffic.New(monitorCfg, traffic.Dependencies{Recorder: collector, ...})
//	collector.ObserveTotal(monitor.State().Counter().Total)
//	mux.Handle("/metrics", collector.Handler())
//
// Each Collector owns its registry, so tests can create as many as they
// need.
package metrics
