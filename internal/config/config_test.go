package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Printer.Transport != "spooler" {
		t.Errorf("transport = %q", cfg.Printer.Transport)
	}
	if cfg.Tickets.ColumnWidth != 48 || cfg.Labels.DPI != 203 {
		t.Errorf("tickets/labels defaults = %d/%d", cfg.Tickets.ColumnWidth, cfg.Labels.DPI)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoadOverridesFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: 9090
printer:
  transport: tcp
  connection_timeout: 5s
tickets:
  column_width: 32
logging:
  level: debug
  format: text
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Printer.Transport != "tcp" {
		t.Errorf("transport = %q", cfg.Printer.Transport)
	}
	if cfg.Printer.ConnectionTimeout != 5*time.Second {
		t.Errorf("timeout = %v", cfg.Printer.ConnectionTimeout)
	}
	if cfg.Tickets.ColumnWidth != 32 {
		t.Errorf("column width = %d", cfg.Tickets.ColumnWidth)
	}
	// sections absent from the file keep their defaults
	if cfg.Database.Path != "./data/printbridge.db" {
		t.Errorf("db path = %q", cfg.Database.Path)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"bad transport", func(c *Config) { c.Printer.Transport = "carrier-pigeon" }},
		{"empty db path", func(c *Config) { c.Database.Path = "" }},
		{"zero column width", func(c *Config) { c.Tickets.ColumnWidth = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaults()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PRINTBRIDGE_PORT", "7000")
	t.Setenv("PRINTBRIDGE_TRANSPORT", "tcp")
	t.Setenv("PRINTBRIDGE_LOG_LEVEL", "warn")

	cfg := defaults()
	cfg.LoadFromEnv()

	if cfg.Server.Port != 7000 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Printer.Transport != "tcp" {
		t.Errorf("transport = %q", cfg.Printer.Transport)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("level = %q", cfg.Logging.Level)
	}
}
