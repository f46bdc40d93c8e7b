package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TRAFFICWATCH_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. A .env file in the same directory as the
// configuration file is loaded first; it never replaces variables that are
// already set.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Load the .env file
// 4. Apply environment variable overrides
// 5. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	// Overrides go first so a period given through the environment is
	// not replaced by the default.
	applyEnvOverrides(cfg)
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv builds a configuration from defaults and environment
// variables alone.
func LoadFromEnv() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	applyEnvOverrides(cfg)
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

func envString(name string, dst *string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		*dst = val
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envInt64(name string, dst *int64) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			*dst = i
		}
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format TRAFFICWATCH_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Monitor overrides
	envDuration("MONITOR_VALIDATION_PERIOD", &cfg.Monitor.ValidationPeriod)
	envInt64("MONITOR_VALIDATION_VALUE", &cfg.Monitor.ValidationValue)
	envString("MONITOR_VALIDATION_UNIT", &cfg.Monitor.ValidationUnit)
	envDuration("MONITOR_REFRESH_PERIOD", &cfg.Monitor.RefreshPeriod)
	envInt64("MONITOR_REFRESH_VALUE", &cfg.Monitor.RefreshValue)
	envString("MONITOR_REFRESH_UNIT", &cfg.Monitor.RefreshUnit)
	envDuration("MONITOR_SHUTDOWN_GRACE", &cfg.Monitor.ShutdownGrace)
	envBool("MONITOR_LOG_PACKETS", &cfg.Monitor.LogPackets)

	// Capture overrides
	envString("CAPTURE_BACKEND", &cfg.Capture.Backend)
	envString("CAPTURE_INTERFACE", &cfg.Capture.Interface)
	envString("CAPTURE_FILTER_NET", &cfg.Capture.FilterNet)
	envString("CAPTURE_FILTER", &cfg.Capture.Filter)
	envDuration("CAPTURE_POLL_INTERVAL", &cfg.Capture.PollInterval)
	if val := os.Getenv(EnvPrefix + "CAPTURE_MAX_REOPEN"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Capture.MaxReopen = &i
		}
	}

	// Limits overrides
	envString("LIMITS_DRIVER", &cfg.Limits.Driver)
	envString("LIMITS_DSN", &cfg.Limits.DSN)
	envBool("LIMITS_AUTO_MIGRATE", &cfg.Limits.AutoMigrate)
	envBool("LIMITS_WATCH", &cfg.Limits.Watch)
	envInt64("LIMITS_STATIC_MIN", &cfg.Limits.Static.Min)
	envInt64("LIMITS_STATIC_MAX", &cfg.Limits.Static.Max)

	// Alert overrides
	envString("ALERT_SINK", &cfg.Alert.Sink)
	envString("ALERT_TEMPLATE", &cfg.Alert.Template)
	envString("ALERT_ENCODING", &cfg.Alert.Encoding)
	if val := os.Getenv(EnvPrefix + "ALERT_KAFKA_BROKERS"); val != "" {
		cfg.Alert.Kafka.Brokers = splitList(val)
	}
	envString("ALERT_KAFKA_TOPIC", &cfg.Alert.Kafka.Topic)
	envBool("ALERT_KAFKA_CREATE_TOPIC", &cfg.Alert.Kafka.CreateTopic)
	envString("ALERT_REDIS_ADDRESS", &cfg.Alert.Redis.Address)
	envString("ALERT_REDIS_PASSWORD", &cfg.Alert.Redis.Password)
	envInt("ALERT_REDIS_DB", &cfg.Alert.Redis.DB)
	envString("ALERT_REDIS_CHANNEL", &cfg.Alert.Redis.Channel)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}

	// Server overrides
	envString("SERVER_ADDRESS", &cfg.Server.Address)
	envBool("SERVER_DISABLED", &cfg.Server.Disabled)
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
