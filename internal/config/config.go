package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Printer  PrinterConfig  `yaml:"printer"`
	Tickets  TicketsConfig  `yaml:"tickets"`
	Labels   LabelsConfig   `yaml:"labels"`
	Notify   NotifyConfig   `yaml:"notify"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// PrinterConfig selects how payloads leave the host. Transport is "spooler"
// (system print queues, printers addressed by queue name) or "tcp" (raw
// JetDirect sockets, printers addressed by host or host:port).
type PrinterConfig struct {
	Transport         string        `yaml:"transport"`
	TCPPort           int           `yaml:"tcp_port"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

type TicketsConfig struct {
	ColumnWidth int  `yaml:"column_width"`
	PaperDots   int  `yaml:"paper_dots"`
	Dither      bool `yaml:"dither"`
}

type LabelsConfig struct {
	DPI int `yaml:"dpi"`
}

type NotifyConfig struct {
	URL     string        `yaml:"url"`
	Secret  string        `yaml:"secret"`
	Timeout time.Duration `yaml:"timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "./data/printbridge.db",
		},
		Printer: PrinterConfig{
			Transport:         "spooler",
			TCPPort:           9100,
			ConnectionTimeout: 10 * time.Second,
		},
		Tickets: TicketsConfig{
			ColumnWidth: 48,
			PaperDots:   384,
			Dither:      false,
		},
		Labels: LabelsConfig{
			DPI: 203,
		},
		Notify: NotifyConfig{
			Timeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func Load(configPath string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

func (c *Config) LoadFromEnv() {
	if v := os.Getenv("PRINTBRIDGE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}

	if v := os.Getenv("PRINTBRIDGE_DB_PATH"); v != "" {
		c.Database.Path = v
	}

	if v := os.Getenv("PRINTBRIDGE_TRANSPORT"); v != "" {
		c.Printer.Transport = v
	}

	if v := os.Getenv("PRINTBRIDGE_NOTIFY_URL"); v != "" {
		c.Notify.URL = v
	}

	if v := os.Getenv("PRINTBRIDGE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("server read timeout must be non-negative")
	}

	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server write timeout must be non-negative")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	if c.Printer.Transport != "spooler" && c.Printer.Transport != "tcp" {
		return fmt.Errorf("invalid printer transport: %s (valid: spooler, tcp)", c.Printer.Transport)
	}

	if c.Printer.TCPPort < 1 || c.Printer.TCPPort > 65535 {
		return fmt.Errorf("tcp port must be between 1 and 65535, got %d", c.Printer.TCPPort)
	}

	if c.Printer.ConnectionTimeout < 0 {
		return fmt.Errorf("connection timeout must be non-negative")
	}

	if c.Tickets.ColumnWidth < 1 {
		return fmt.Errorf("ticket column width must be at least 1")
	}

	if c.Tickets.PaperDots < 0 {
		return fmt.Errorf("ticket paper dots must be non-negative")
	}

	if c.Labels.DPI < 1 {
		return fmt.Errorf("label dpi must be at least 1")
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	validFormats := map[string]bool{
		"json": true,
		"text": true,
	}

	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (valid: json, text)", c.Logging.Format)
	}

	return nil
}
