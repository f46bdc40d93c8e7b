package config

import (
	"fmt"
	"strings"
	"time"
)

// Capture backends, limit drivers and alert sinks.
const (
	CaptureBackendPcap     = "pcap"
	CaptureBackendCounters = "counters"

	LimitsDriverSQLite   = "sqlite"
	LimitsDriverSQLite3  = "sqlite3"
	LimitsDriverPostgres = "postgres"
	LimitsDriverFile     = "file"
	LimitsDriverStatic   = "static"

	AlertSinkLog   = "log"
	AlertSinkKafka = "kafka"
	AlertSinkRedis = "redis"
)

// Default values for configuration fields.
const (
	// Monitor defaults
	DefaultValidationPeriod = time.Hour
	DefaultRefreshPeriod    = time.Hour
	DefaultShutdownGrace    = time.Minute

	// Capture defaults
	DefaultCaptureBackend      = CaptureBackendPcap
	DefaultCaptureInterface    = "any"
	DefaultCaptureSnapLen      = int32(65536)
	DefaultCaptureReadTimeout  = 10 * time.Millisecond
	DefaultCapturePollInterval = time.Second
	DefaultCaptureMaxReopen    = 1
	DefaultCaptureReopenDelay  = time.Second

	// Limits defaults
	DefaultLimitsDriver      = LimitsDriverSQLite
	DefaultLimitsDSN         = "data/limits.db"
	DefaultLimitsBusyTimeout = 5 * time.Second

	// Alert defaults
	DefaultAlertSink         = AlertSinkLog
	DefaultAlertTemplate     = "Transferred traffic %d bytes is out of range [%d, %d]"
	DefaultAlertEncoding     = "text"
	DefaultKafkaTopic        = "traffic-alerts"
	DefaultKafkaPartitions   = 1
	DefaultKafkaReplication  = 1
	DefaultKafkaBatchTimeout = 100 * time.Millisecond
	DefaultRedisAddress      = "localhost:6379"
	DefaultRedisChannel      = "traffic-alerts"
	DefaultRedisWriteTimeout = 3 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "trafficwatch"
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingServiceName = "trafficwatch"
	DefaultTracingTimeout     = 10 * time.Second

	// Server defaults
	DefaultServerAddress         = "127.0.0.1:9090"
	DefaultServerReadTimeout     = 10 * time.Second
	DefaultServerWriteTimeout    = 10 * time.Second
	DefaultServerShutdownTimeout = 10 * time.Second
)

var timeUnits = map[string]time.Duration{
	"NANOSECONDS":  time.Nanosecond,
	"MICROSECONDS": time.Microsecond,
	"MILLISECONDS": time.Millisecond,
	"SECONDS":      time.Second,
	"MINUTES":      time.Minute,
	"HOURS":        time.Hour,
	"DAYS":         24 * time.Hour,
}

// ParseTimeUnit returns the duration of one unit. Names are matched case
// insensitively and the trailing S is optional.
func ParseTimeUnit(name string) (time.Duration, error) {
	key := strings.ToUpper(strings.TrimSpace(name))
	if !strings.HasSuffix(key, "S") {
		key += "S"
	}
	d, ok := timeUnits[key]
	if !ok {
		return 0, fmt.Errorf("unknown time unit %q", name)
	}
	return d, nil
}

// resolvePeriod converts a value and unit pair into a duration. It returns
// zero when the pair is not set or not valid; Validate reports the latter.
func resolvePeriod(value int64, unit string) time.Duration {
	if value <= 0 || unit == "" {
		return 0
	}
	d, err := ParseTimeUnit(unit)
	if err != nil {
		return 0
	}
	return time.Duration(value) * d
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Monitor defaults
	if cfg.Monitor.ValidationPeriod == 0 {
		cfg.Monitor.ValidationPeriod = resolvePeriod(cfg.Monitor.ValidationValue, cfg.Monitor.ValidationUnit)
	}
	if cfg.Monitor.ValidationPeriod == 0 && cfg.Monitor.ValidationUnit == "" {
		cfg.Monitor.ValidationPeriod = DefaultValidationPeriod
	}
	if cfg.Monitor.RefreshPeriod == 0 {
		cfg.Monitor.RefreshPeriod = resolvePeriod(cfg.Monitor.RefreshValue, cfg.Monitor.RefreshUnit)
	}
	if cfg.Monitor.RefreshPeriod == 0 && cfg.Monitor.RefreshUnit == "" {
		cfg.Monitor.RefreshPeriod = DefaultRefreshPeriod
	}
	if cfg.Monitor.ShutdownGrace == 0 {
		cfg.Monitor.ShutdownGrace = DefaultShutdownGrace
	}

	// Capture defaults
	if cfg.Capture.Backend == "" {
		cfg.Capture.Backend = DefaultCaptureBackend
	}
	if cfg.Capture.Interface == "" {
		cfg.Capture.Interface = DefaultCaptureInterface
	}
	if cfg.Capture.SnapLen == 0 {
		cfg.Capture.SnapLen = DefaultCaptureSnapLen
	}
	if cfg.Capture.ReadTimeout == 0 {
		cfg.Capture.ReadTimeout = DefaultCaptureReadTimeout
	}
	if cfg.Capture.PollInterval == 0 {
		cfg.Capture.PollInterval = DefaultCapturePollInterval
	}
	if cfg.Capture.MaxReopen == nil {
		n := DefaultCaptureMaxReopen
		cfg.Capture.MaxReopen = &n
	}
	if cfg.Capture.ReopenDelay == 0 {
		cfg.Capture.ReopenDelay = DefaultCaptureReopenDelay
	}

	// Limits defaults
	if cfg.Limits.Driver == "" {
		cfg.Limits.Driver = DefaultLimitsDriver
	}
	if cfg.Limits.DSN == "" && (cfg.Limits.Driver == LimitsDriverSQLite || cfg.Limits.Driver == LimitsDriverSQLite3) {
		cfg.Limits.DSN = DefaultLimitsDSN
	}
	if cfg.Limits.BusyTimeout == 0 {
		cfg.Limits.BusyTimeout = DefaultLimitsBusyTimeout
	}

	// Alert defaults
	if cfg.Alert.Sink == "" {
		cfg.Alert.Sink = DefaultAlertSink
	}
	if cfg.Alert.Template == "" {
		cfg.Alert.Template = DefaultAlertTemplate
	}
	if cfg.Alert.Encoding == "" {
		cfg.Alert.Encoding = DefaultAlertEncoding
	}
	if cfg.Alert.Kafka.Topic == "" {
		cfg.Alert.Kafka.Topic = DefaultKafkaTopic
	}
	if cfg.Alert.Kafka.Partitions == 0 {
		cfg.Alert.Kafka.Partitions = DefaultKafkaPartitions
	}
	if cfg.Alert.Kafka.ReplicationFactor == 0 {
		cfg.Alert.Kafka.ReplicationFactor = DefaultKafkaReplication
	}
	if cfg.Alert.Kafka.BatchTimeout == 0 {
		cfg.Alert.Kafka.BatchTimeout = DefaultKafkaBatchTimeout
	}
	if cfg.Alert.Redis.Address == "" {
		cfg.Alert.Redis.Address = DefaultRedisAddress
	}
	if cfg.Alert.Redis.Channel == "" {
		cfg.Alert.Redis.Channel = DefaultRedisChannel
	}
	if cfg.Alert.Redis.WriteTimeout == 0 {
		cfg.Alert.Redis.WriteTimeout = DefaultRedisWriteTimeout
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}

	// Server defaults
	if cfg.Server.Address == "" {
		cfg.Server.Address = DefaultServerAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
