package config

import "time"

// Config is the root configuration structure for trafficwatch.
type Config struct {
	// Monitor contains validation and refresh scheduling.
	Monitor MonitorConfig `yaml:"monitor"`

	// Capture selects and configures the packet source.
	Capture CaptureConfig `yaml:"capture"`

	// Limits selects and configures the limit store.
	Limits LimitsConfig `yaml:"limits"`

	// Alert selects and configures the alert sink.
	Alert AlertConfig `yaml:"alert"`

	// Telemetry contains logging, metrics and tracing configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Server contains the HTTP server for metrics, health and status.
	Server ServerConfig `yaml:"server"`
}

// MonitorConfig contains the periodic task configuration.
type MonitorConfig struct {
	// ValidationPeriod is the validation window length.
	// Default: 1h
	ValidationPeriod time.Duration `yaml:"validation_period"`

	// ValidationValue and ValidationUnit give the window as a count of a
	// time unit. Used only when ValidationPeriod is not set.
	ValidationValue int64  `yaml:"validation_value"`
	ValidationUnit  string `yaml:"validation_unit"`

	// RefreshPeriod is how often limits are fetched from the store.
	// Default: 1h
	RefreshPeriod time.Duration `yaml:"refresh_period"`

	RefreshValue int64  `yaml:"refresh_value"`
	RefreshUnit  string `yaml:"refresh_unit"`

	// ShutdownGrace bounds the wait for in-flight ticks on shutdown.
	// Default: 1m
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`

	// LogPackets emits a debug log record per packet.
	// Default: false
	LogPackets bool `yaml:"log_packets"`
}

// CaptureConfig contains packet source configuration.
type CaptureConfig struct {
	// Backend is the packet source.
	// Options: "pcap", "counters"
	// Default: "pcap"
	Backend string `yaml:"backend"`

	// Interface is the device to capture on.
	// Default: "any"
	Interface string `yaml:"interface"`

	// FilterNet restricts capture to a network, compiled to the BPF
	// expression "net <filter_net>".
	FilterNet string `yaml:"filter_net"`

	// Filter is a raw BPF expression. It takes precedence over FilterNet.
	Filter string `yaml:"filter"`

	// SnapLen is the maximum bytes captured per packet.
	// Default: 65536
	SnapLen int32 `yaml:"snaplen"`

	// DisablePromiscuous turns promiscuous mode off.
	// Default: false
	DisablePromiscuous bool `yaml:"disable_promiscuous"`

	// ReadTimeout is the pcap read timeout.
	// Default: 10ms
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// PollInterval is how often the counters backend samples interface
	// counters.
	// Default: 1s
	PollInterval time.Duration `yaml:"poll_interval"`

	// MaxReopen is how many times a failed capture is reopened.
	// Default: 1
	MaxReopen *int `yaml:"max_reopen"`

	// ReopenDelay is the pause before a reopen attempt.
	// Default: 1s
	ReopenDelay time.Duration `yaml:"reopen_delay"`
}

// LimitsConfig contains limit store configuration.
type LimitsConfig struct {
	// Driver is the store backend.
	// Options: "sqlite", "sqlite3", "postgres", "file", "static"
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// DSN is the SQLite file, PostgreSQL connection string or YAML path.
	// Default: "data/limits.db"
	DSN string `yaml:"dsn"`

	// BusyTimeout is the SQLite lock wait.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// AutoMigrate creates the limits table when missing.
	// Default: false
	AutoMigrate bool `yaml:"auto_migrate"`

	MaxOpenConns int `yaml:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns"`

	// Watch triggers a refresh when the limits file changes (file driver).
	// Default: false
	Watch bool `yaml:"watch"`

	// Static is the fixed envelope used by the static driver.
	Static StaticLimitsConfig `yaml:"static"`
}

// StaticLimitsConfig is a fixed [min, max] envelope in bytes.
type StaticLimitsConfig struct {
	Min int64 `yaml:"min"`
	Max int64 `yaml:"max"`
}

// AlertConfig contains alert sink configuration.
type AlertConfig struct {
	// Sink is the alert destination.
	// Options: "kafka", "redis", "log"
	// Default: "log"
	Sink string `yaml:"sink"`

	// Template renders the alert message from delta, min and max.
	// Default: "Transferred traffic %d bytes is out of range [%d, %d]"
	Template string `yaml:"template"`

	// Encoding is the payload format.
	// Options: "text", "json"
	// Default: "text"
	Encoding string `yaml:"encoding"`

	Kafka KafkaConfig `yaml:"kafka"`
	Redis RedisConfig `yaml:"redis"`
}

// KafkaConfig contains Kafka sink configuration.
type KafkaConfig struct {
	// Brokers lists bootstrap brokers as host:port.
	Brokers []string `yaml:"brokers"`

	// Topic is the alert topic.
	// Default: "traffic-alerts"
	Topic string `yaml:"topic"`

	// CreateTopic provisions the topic on startup when missing.
	// Default: false
	CreateTopic bool `yaml:"create_topic"`

	// Partitions and ReplicationFactor apply to a provisioned topic.
	// Default: 1 and 1
	Partitions        int `yaml:"partitions"`
	ReplicationFactor int `yaml:"replication_factor"`

	// BatchTimeout is the writer's flush interval.
	// Default: 100ms
	BatchTimeout time.Duration `yaml:"batch_timeout"`
}

// RedisConfig contains Redis pub/sub sink configuration.
type RedisConfig struct {
	// Address is host:port.
	// Default: "localhost:6379"
	Address string `yaml:"address"`

	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// Channel is the PUBLISH channel.
	// Default: "traffic-alerts"
	Channel string `yaml:"channel"`

	// WriteTimeout bounds each publish.
	// Default: 3s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	// Path is the HTTP path for the Prometheus endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "trafficwatch"
	Namespace string `yaml:"namespace"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint, e.g. "localhost:4317".
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "trafficwatch"
	ServiceName string `yaml:"service_name"`

	// Insecure disables TLS to the collector.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// ServerConfig contains the HTTP server configuration.
type ServerConfig struct {
	// Address is the listen address.
	// Default: "127.0.0.1:9090"
	Address string `yaml:"address"`

	// ReadTimeout and WriteTimeout bound each request.
	// Default: 10s
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ShutdownTimeout bounds graceful server shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Disabled turns the HTTP server off.
	Disabled bool `yaml:"disabled"`
}
