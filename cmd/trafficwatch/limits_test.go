package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestLimitsCommands tests init, set and show against a SQLite store.
// The configuration singleton initializes once per process, so every
// command shares one config file.
func TestLimitsCommands(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	content := "limits:\n  driver: sqlite\n  dsn: " + filepath.Join(dir, "limits.db") + "\n" +
		"telemetry:\n  logging:\n    level: error\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	execute := func(args ...string) string {
		t.Helper()
		buf := &bytes.Buffer{}
		rootCmd.SetOut(buf)
		rootCmd.SetErr(buf)
		rootCmd.SetArgs(append(args, "--config", cfgPath))
		if err := rootCmd.Execute(); err != nil {
			t.Fatalf("%v failed: %v\n%s", args, err, buf.String())
		}
		return buf.String()
	}

	if out := execute("limits", "init"); !strings.Contains(out, "initialized") {
		t.Errorf("Expected init confirmation, got %q", out)
	}
	if out := execute("limits", "show"); !strings.Contains(out, "no limits published") {
		t.Errorf("Expected no limits, got %q", out)
	}

	execute("limits", "set", "--min", "1024", "--max", "2048", "--effective", "2026-10-13")
	execute("limits", "set", "--min", "2048", "--max", "4096", "--effective", "2026-10-14")

	out := execute("limits", "show", "--output", "csv")
	if out != "MIN,MAX\n2048,4096\n" {
		t.Errorf("Expected latest limits as CSV, got %q", out)
	}

	out = execute("limits", "show", "--all", "--output", "text")
	if got := strings.Count(out, "\n"); got != 5 {
		t.Errorf("Expected header and 4 records, got %d lines:\n%s", got, out)
	}
	limitsFlags.all = false
	limitsFlags.output = "text"
}
