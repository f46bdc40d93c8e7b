package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	configContent := `
monitor:
  validation_period: "30m"
  refresh_period: "5m"

capture:
  backend: "pcap"
  interface: "eth0"
  filter_net: "10.0.0.0/8"

limits:
  driver: "postgres"
  dsn: "postgres://trafficwatch@localhost/trafficwatch"

alert:
  sink: "kafka"
  kafka:
    brokers: ["kafka-1:9092", "kafka-2:9092"]
    topic: "alerts"

telemetry:
  logging:
    level: "debug"
    format: "text"
`
	cfg, err := LoadConfig(writeConfig(t, t.TempDir(), configContent))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Monitor.ValidationPeriod != 30*time.Minute {
		t.Errorf("expected validation period %v, got %v", 30*time.Minute, cfg.Monitor.ValidationPeriod)
	}
	if cfg.Monitor.RefreshPeriod != 5*time.Minute {
		t.Errorf("expected refresh period %v, got %v", 5*time.Minute, cfg.Monitor.RefreshPeriod)
	}
	if cfg.Capture.Interface != "eth0" {
		t.Errorf("expected interface %q, got %q", "eth0", cfg.Capture.Interface)
	}
	if cfg.Capture.SnapLen != DefaultCaptureSnapLen {
		t.Errorf("expected default snaplen %d, got %d", DefaultCaptureSnapLen, cfg.Capture.SnapLen)
	}
	if len(cfg.Alert.Kafka.Brokers) != 2 {
		t.Errorf("expected 2 brokers, got %d", len(cfg.Alert.Kafka.Brokers))
	}
	if cfg.Alert.Template != DefaultAlertTemplate {
		t.Errorf("expected default template, got %q", cfg.Alert.Template)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("expected logging level %q, got %q", "debug", cfg.Telemetry.Logging.Level)
	}
}

// TestLoadConfig_ValueUnitPeriods tests the value and time unit form of periods.
func TestLoadConfig_ValueUnitPeriods(t *testing.T) {
	configContent := `
monitor:
  validation_value: 2
  validation_unit: "HOURS"
  refresh_value: 90
  refresh_unit: "seconds"
`
	cfg, err := LoadConfig(writeConfig(t, t.TempDir(), configContent))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Monitor.ValidationPeriod != 2*time.Hour {
		t.Errorf("expected validation period %v, got %v", 2*time.Hour, cfg.Monitor.ValidationPeriod)
	}
	if cfg.Monitor.RefreshPeriod != 90*time.Second {
		t.Errorf("expected refresh period %v, got %v", 90*time.Second, cfg.Monitor.RefreshPeriod)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "malformed yaml", content: "monitor: [unclosed"},
		{name: "unknown unit", content: "monitor:\n  validation_value: 1\n  validation_unit: FORTNIGHTS\n"},
		{name: "unknown driver", content: "limits:\n  driver: mongodb\n"},
		{name: "kafka without brokers", content: "alert:\n  sink: kafka\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, t.TempDir(), tt.content)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "capture:\n  interface: eth0\n")

	t.Setenv("TRAFFICWATCH_CAPTURE_INTERFACE", "eth1")
	t.Setenv("TRAFFICWATCH_MONITOR_VALIDATION_PERIOD", "10m")
	t.Setenv("TRAFFICWATCH_ALERT_SINK", "kafka")
	t.Setenv("TRAFFICWATCH_ALERT_KAFKA_BROKERS", "a:9092, b:9092")
	t.Setenv("TRAFFICWATCH_CAPTURE_MAX_REOPEN", "3")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Capture.Interface != "eth1" {
		t.Errorf("expected interface %q, got %q", "eth1", cfg.Capture.Interface)
	}
	if cfg.Monitor.ValidationPeriod != 10*time.Minute {
		t.Errorf("expected validation period %v, got %v", 10*time.Minute, cfg.Monitor.ValidationPeriod)
	}
	if len(cfg.Alert.Kafka.Brokers) != 2 || cfg.Alert.Kafka.Brokers[1] != "b:9092" {
		t.Errorf("expected brokers [a:9092 b:9092], got %v", cfg.Alert.Kafka.Brokers)
	}
	if *cfg.Capture.MaxReopen != 3 {
		t.Errorf("expected max reopen 3, got %d", *cfg.Capture.MaxReopen)
	}
}

// TestLoadConfigWithEnvOverrides_DotEnv tests that a .env file next to the
// config is loaded and does not replace variables already set.
func TestLoadConfigWithEnvOverrides_DotEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "limits:\n  driver: sqlite\n")

	dotEnv := "TRAFFICWATCH_LIMITS_DSN=/var/lib/trafficwatch/limits.db\nTRAFFICWATCH_TELEMETRY_LOGGING_LEVEL=debug\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(dotEnv), 0644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}

	t.Setenv("TRAFFICWATCH_TELEMETRY_LOGGING_LEVEL", "warn")
	// Registers cleanup for the variable the .env file is about to set.
	t.Setenv("TRAFFICWATCH_LIMITS_DSN", "")
	os.Unsetenv("TRAFFICWATCH_LIMITS_DSN")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Limits.DSN != "/var/lib/trafficwatch/limits.db" {
		t.Errorf("expected dsn from .env, got %q", cfg.Limits.DSN)
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("expected environment to win over .env, got %q", cfg.Telemetry.Logging.Level)
	}
}

func TestParseTimeUnit(t *testing.T) {
	tests := []struct {
		name    string
		want    time.Duration
		wantErr bool
	}{
		{name: "HOURS", want: time.Hour},
		{name: "minutes", want: time.Minute},
		{name: "Second", want: time.Second},
		{name: "DAYS", want: 24 * time.Hour},
		{name: "MILLISECONDS", want: time.Millisecond},
		{name: "weeks", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimeUnit(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTimeUnit() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
