package config

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "capture.interface").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateMonitor(&cfg.Monitor)...)
	errs = append(errs, validateCapture(&cfg.Capture)...)
	errs = append(errs, validateLimits(&cfg.Limits)...)
	errs = append(errs, validateAlert(&cfg.Alert)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateServer(&cfg.Server)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateMonitor(cfg *MonitorConfig) []FieldError {
	var errs []FieldError

	errs = append(errs, validatePeriod("monitor.validation", cfg.ValidationPeriod, cfg.ValidationValue, cfg.ValidationUnit)...)
	errs = append(errs, validatePeriod("monitor.refresh", cfg.RefreshPeriod, cfg.RefreshValue, cfg.RefreshUnit)...)

	if cfg.ShutdownGrace < 0 {
		errs = append(errs, FieldError{
			Field:   "monitor.shutdown_grace",
			Message: "shutdown grace must not be negative",
		})
	}

	return errs
}

func validatePeriod(prefix string, period time.Duration, value int64, unit string) []FieldError {
	if unit != "" {
		if _, err := ParseTimeUnit(unit); err != nil {
			return []FieldError{{
				Field:   prefix + "_unit",
				Message: fmt.Sprintf("invalid time unit %q: must be one of NANOSECONDS, MICROSECONDS, MILLISECONDS, SECONDS, MINUTES, HOURS, DAYS", unit),
			}}
		}
		if value <= 0 && period <= 0 {
			return []FieldError{{
				Field:   prefix + "_value",
				Message: "value must be positive",
			}}
		}
	}
	if period <= 0 {
		return []FieldError{{
			Field:   prefix + "_period",
			Message: "period must be positive",
		}}
	}
	return nil
}

func validateCapture(cfg *CaptureConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case CaptureBackendPcap, CaptureBackendCounters:
	default:
		errs = append(errs, FieldError{
			Field:   "capture.backend",
			Message: fmt.Sprintf("invalid capture backend %q: must be 'pcap' or 'counters'", cfg.Backend),
		})
	}

	if cfg.FilterNet != "" {
		if _, _, err := net.ParseCIDR(cfg.FilterNet); err != nil && net.ParseIP(cfg.FilterNet) == nil {
			errs = append(errs, FieldError{
				Field:   "capture.filter_net",
				Message: fmt.Sprintf("invalid network %q: must be a CIDR or an IP address", cfg.FilterNet),
			})
		}
	}

	if cfg.SnapLen <= 0 {
		errs = append(errs, FieldError{
			Field:   "capture.snaplen",
			Message: "snaplen must be positive",
		})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "capture.read_timeout",
			Message: "read timeout must not be negative",
		})
	}
	if cfg.PollInterval <= 0 {
		errs = append(errs, FieldError{
			Field:   "capture.poll_interval",
			Message: "poll interval must be positive",
		})
	}
	if cfg.MaxReopen != nil && *cfg.MaxReopen < 0 {
		errs = append(errs, FieldError{
			Field:   "capture.max_reopen",
			Message: "max reopen must not be negative",
		})
	}

	return errs
}

func validateLimits(cfg *LimitsConfig) []FieldError {
	var errs []FieldError

	switch cfg.Driver {
	case LimitsDriverSQLite, LimitsDriverSQLite3, LimitsDriverPostgres, LimitsDriverFile:
		if cfg.DSN == "" {
			errs = append(errs, FieldError{
				Field:   "limits.dsn",
				Message: fmt.Sprintf("dsn is required for driver %q", cfg.Driver),
			})
		}
	case LimitsDriverStatic:
		if cfg.Static.Min < 0 || cfg.Static.Max < 0 {
			errs = append(errs, FieldError{
				Field:   "limits.static",
				Message: "static limits must not be negative",
			})
		} else if cfg.Static.Min > cfg.Static.Max {
			errs = append(errs, FieldError{
				Field:   "limits.static",
				Message: fmt.Sprintf("static min %d exceeds max %d", cfg.Static.Min, cfg.Static.Max),
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "limits.driver",
			Message: fmt.Sprintf("invalid limits driver %q: must be 'sqlite', 'sqlite3', 'postgres', 'file', or 'static'", cfg.Driver),
		})
	}

	if cfg.Watch && cfg.Driver != LimitsDriverFile {
		errs = append(errs, FieldError{
			Field:   "limits.watch",
			Message: "watch is only supported by the file driver",
		})
	}

	return errs
}

func validateAlert(cfg *AlertConfig) []FieldError {
	var errs []FieldError

	switch cfg.Sink {
	case AlertSinkLog:
	case AlertSinkKafka:
		if len(cfg.Kafka.Brokers) == 0 {
			errs = append(errs, FieldError{
				Field:   "alert.kafka.brokers",
				Message: "at least one broker is required for the kafka sink",
			})
		}
		if cfg.Kafka.Partitions <= 0 {
			errs = append(errs, FieldError{
				Field:   "alert.kafka.partitions",
				Message: "partitions must be positive",
			})
		}
		if cfg.Kafka.ReplicationFactor <= 0 {
			errs = append(errs, FieldError{
				Field:   "alert.kafka.replication_factor",
				Message: "replication factor must be positive",
			})
		}
	case AlertSinkRedis:
		if cfg.Redis.Channel == "" {
			errs = append(errs, FieldError{
				Field:   "alert.redis.channel",
				Message: "channel is required for the redis sink",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "alert.sink",
			Message: fmt.Sprintf("invalid alert sink %q: must be 'kafka', 'redis', or 'log'", cfg.Sink),
		})
	}

	if strings.Count(cfg.Template, "%d") != 3 {
		errs = append(errs, FieldError{
			Field:   "alert.template",
			Message: "template must contain exactly three %d placeholders (delta, min, max)",
		})
	}

	if cfg.Encoding != "text" && cfg.Encoding != "json" {
		errs = append(errs, FieldError{
			Field:   "alert.encoding",
			Message: fmt.Sprintf("invalid encoding %q: must be 'text' or 'json'", cfg.Encoding),
		})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json', 'text', or 'console'", cfg.Logging.Format),
		})
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	validSamplers := map[string]bool{"always": true, "never": true, "ratio": true}
	if !validSamplers[cfg.Tracing.Sampler] {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	return errs
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.Disabled {
		return nil
	}

	if _, _, err := net.SplitHostPort(cfg.Address); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.address",
			Message: fmt.Sprintf("invalid listen address %q: %v", cfg.Address, err),
		})
	}
	if cfg.ReadTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		})
	}
	if cfg.WriteTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		})
	}

	return errs
}
