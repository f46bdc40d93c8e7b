// Package health provides liveness and readiness endpoints for trafficwatch.
//
// # Endpoints
//
//   - /health: Liveness probe, always 200 while the process serves HTTP
//   - /ready: Readiness probe, runs every registered check
//   - /version: Build information
//
// # Checks
//
// MonitorCheck, CaptureCheck and LimitsCheck read a traffic.Monitor.
// Readiness degrades while the monitor is not running, after the capture
// stream has been given up on, or before any limits were published.
// MemoryCheck reads host memory through gopsutil.
//
// # Usage
//
//	checker := health.New(5 * time.Second)
//	checker.RegisterCheck("monitor", health.MonitorCheck(monitor))
//	checker.RegisterCheck("capture", health.CaptureCheck(monitor))
//	checker.RegisterCheck("limits", health.LimitsCheck(monitor))
//	health.Register(mux, checker, version, commit, buildTime)
//
// Checks run concurrently, each bounded by the checker timeout.
package health
