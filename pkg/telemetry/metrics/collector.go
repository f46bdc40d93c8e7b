package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"mercator-hq/trafficwatch/pkg/config"
)

// Collector records monitor activity. It implements traffic.Recorder.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	validationTicks    *prometheus.CounterVec
	validationDelta    prometheus.Histogram
	validationDuration prometheus.Histogram

	refreshTotal    *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	limits          *prometheus.GaugeVec

	alertsTotal   *prometheus.CounterVec
	captureErrors prometheus.Counter

	totalOnce sync.Once
}

// NewCollector creates a collector and registers its metrics with
// registry. A nil registry gets a fresh one with the Go and process
// collectors.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if cfg == nil {
		cfg = &config.MetricsConfig{}
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	ns := cfg.Namespace
	c := &Collector{
		config:   cfg,
		registry: registry,

		validationTicks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "validation_ticks_total",
				Help:      "Validation ticks by outcome",
			},
			[]string{"outcome"},
		),
		validationDelta: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "validation_delta_bytes",
				Help:      "Bytes observed per validation window",
				Buckets:   prometheus.ExponentialBuckets(1024, 4, 12), // 1KB to 4TB
			},
		),
		validationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "validation_duration_seconds",
				Help:      "Duration of validation ticks in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),

		refreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "refresh_total",
				Help:      "Limit refreshes by result",
			},
			[]string{"result"},
		),
		refreshDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "refresh_duration_seconds",
				Help:      "Duration of limit refreshes in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
		),
		limits: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: ns,
				Name:      "limits_bytes",
				Help:      "Published traffic limits in bytes",
			},
			[]string{"bound"},
		),

		alertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "alerts_total",
				Help:      "Out-of-range alerts by delivery result",
			},
			[]string{"delivered"},
		),
		captureErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "capture_errors_total",
				Help:      "Capture stream failures",
			},
		),
	}

	registry.MustRegister(
		c.validationTicks,
		c.validationDelta,
		c.validationDuration,
		c.refreshTotal,
		c.refreshDuration,
		c.limits,
		c.alertsTotal,
		c.captureErrors,
	)

	return c
}

// Registry returns the registry the collector writes to.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveTotal exposes the running byte counter, read at scrape time.
// Only the first call registers.
func (c *Collector) ObserveTotal(total func() uint64) {
	c.totalOnce.Do(func() {
		c.registry.MustRegister(prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Namespace: c.config.Namespace,
				Name:      "capture_bytes_total",
				Help:      "Bytes observed since process start",
			},
			func() float64 { return float64(total()) },
		))
	})
}

// RecordValidation records one validation tick.
func (c *Collector) RecordValidation(outcome string, delta int64, total uint64, duration time.Duration) {
	c.validationTicks.WithLabelValues(outcome).Inc()
	c.validationDuration.Observe(duration.Seconds())
	if delta >= 0 && outcome != "anomaly" {
		c.validationDelta.Observe(float64(delta))
	}
}

// RecordRefresh records one refresh attempt.
func (c *Collector) RecordRefresh(result string, duration time.Duration) {
	c.refreshTotal.WithLabelValues(result).Inc()
	c.refreshDuration.Observe(duration.Seconds())
}

// SetLimits publishes the active envelope.
func (c *Collector) SetLimits(min, max int64) {
	c.limits.WithLabelValues("min").Set(float64(min))
	c.limits.WithLabelValues("max").Set(float64(max))
}

// RecordAlert records one alert delivery attempt.
func (c *Collector) RecordAlert(delivered bool) {
	c.alertsTotal.WithLabelValues(strconv.FormatBool(delivered)).Inc()
}

// RecordCaptureError counts a capture failure.
func (c *Collector) RecordCaptureError() {
	c.captureErrors.Inc()
}
