package config

import (
	"testing"
	"time"
)

func TestApplyDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Monitor.ValidationPeriod != DefaultValidationPeriod {
		t.Errorf("expected validation period %v, got %v", DefaultValidationPeriod, cfg.Monitor.ValidationPeriod)
	}
	if cfg.Monitor.ShutdownGrace != time.Minute {
		t.Errorf("expected shutdown grace %v, got %v", time.Minute, cfg.Monitor.ShutdownGrace)
	}
	if cfg.Capture.Interface != "any" {
		t.Errorf("expected interface %q, got %q", "any", cfg.Capture.Interface)
	}
	if cfg.Capture.ReadTimeout != 10*time.Millisecond {
		t.Errorf("expected read timeout %v, got %v", 10*time.Millisecond, cfg.Capture.ReadTimeout)
	}
	if cfg.Capture.MaxReopen == nil || *cfg.Capture.MaxReopen != 1 {
		t.Errorf("expected max reopen 1, got %v", cfg.Capture.MaxReopen)
	}
	if cfg.Limits.DSN != DefaultLimitsDSN {
		t.Errorf("expected dsn %q, got %q", DefaultLimitsDSN, cfg.Limits.DSN)
	}
	if cfg.Alert.Sink != "log" {
		t.Errorf("expected sink %q, got %q", "log", cfg.Alert.Sink)
	}
}

// TestApplyDefaults_Idempotent tests that a second pass changes nothing.
func TestApplyDefaults_Idempotent(t *testing.T) {
	cfg := &Config{}
	cfg.Capture.Interface = "eth0"
	zero := 0
	cfg.Capture.MaxReopen = &zero

	ApplyDefaults(cfg)
	first := *cfg
	ApplyDefaults(cfg)

	if cfg.Capture.Interface != "eth0" {
		t.Errorf("expected interface to be kept, got %q", cfg.Capture.Interface)
	}
	if *cfg.Capture.MaxReopen != 0 {
		t.Errorf("expected explicit max reopen 0 to be kept, got %d", *cfg.Capture.MaxReopen)
	}
	if cfg.Monitor != first.Monitor || cfg.Server != first.Server {
		t.Error("expected second ApplyDefaults to be a no-op")
	}
}

func TestApplyDefaults_UnitPeriodNotOverridden(t *testing.T) {
	cfg := &Config{}
	cfg.Monitor.ValidationValue = 15
	cfg.Monitor.ValidationUnit = "MINUTES"

	ApplyDefaults(cfg)

	if cfg.Monitor.ValidationPeriod != 15*time.Minute {
		t.Errorf("expected %v, got %v", 15*time.Minute, cfg.Monitor.ValidationPeriod)
	}
	if cfg.Monitor.RefreshPeriod != DefaultRefreshPeriod {
		t.Errorf("expected default refresh period, got %v", cfg.Monitor.RefreshPeriod)
	}
}
