package config

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate_Defaults(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Errorf("expected default config to be valid, got %v", err)
	}
}

func TestValidate_FieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{
			name:   "zero validation period",
			modify: func(c *Config) { c.Monitor.ValidationPeriod = 0 },
			field:  "monitor.validation_period",
		},
		{
			name: "unknown refresh unit",
			modify: func(c *Config) {
				c.Monitor.RefreshPeriod = 0
				c.Monitor.RefreshValue = 1
				c.Monitor.RefreshUnit = "EONS"
			},
			field: "monitor.refresh_unit",
		},
		{
			name:   "unknown capture backend",
			modify: func(c *Config) { c.Capture.Backend = "ebpf" },
			field:  "capture.backend",
		},
		{
			name:   "bad filter network",
			modify: func(c *Config) { c.Capture.FilterNet = "10.0.0.0/33" },
			field:  "capture.filter_net",
		},
		{
			name: "static min above max",
			modify: func(c *Config) {
				c.Limits.Driver = "static"
				c.Limits.Static = StaticLimitsConfig{Min: 4096, Max: 2048}
			},
			field: "limits.static",
		},
		{
			name: "watch without file driver",
			modify: func(c *Config) {
				c.Limits.Watch = true
			},
			field: "limits.watch",
		},
		{
			name:   "template with two slots",
			modify: func(c *Config) { c.Alert.Template = "traffic %d outside %d" },
			field:  "alert.template",
		},
		{
			name:   "unknown sink",
			modify: func(c *Config) { c.Alert.Sink = "smtp" },
			field:  "alert.sink",
		},
		{
			name:   "tracing without endpoint",
			modify: func(c *Config) { c.Telemetry.Tracing.Enabled = true },
			field:  "telemetry.tracing.endpoint",
		},
		{
			name:   "bad server address",
			modify: func(c *Config) { c.Server.Address = "9090" },
			field:  "server.address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			err := Validate(cfg)
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}

			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on field %q, got %v", tt.field, verr.Errors)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{Errors: []FieldError{
		{Field: "a", Message: "first"},
		{Field: "b", Message: "second"},
	}}

	msg := err.Error()
	if !strings.Contains(msg, "2 errors") {
		t.Errorf("expected error count in message, got %q", msg)
	}
	if !strings.Contains(msg, "a: first") || !strings.Contains(msg, "b: second") {
		t.Errorf("expected both field errors in message, got %q", msg)
	}
}

// TestValidate_DisabledServer tests that server fields are ignored when disabled.
func TestValidate_DisabledServer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Disabled = true
	cfg.Server.Address = "not an address"

	if err := Validate(cfg); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}
