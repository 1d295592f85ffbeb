package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/claude/lightweight/internal/sessions"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	Log       LogConfig       `yaml:"log"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// CORSOrigin is sent as Access-Control-Allow-Origin. Empty means "*".
	CORSOrigin string `yaml:"cors_origin"`
}

// DatabaseConfig selects the store. With driver "sqlite" only Path is used;
// with "postgres" the connection fields are.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type SessionsConfig struct {
	RestThresholdMinutes float64 `yaml:"rest_threshold_minutes"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DSN returns the database/sql connection string for the configured driver.
func (d DatabaseConfig) DSN() string {
	if d.Driver == "postgres" {
		return d.postgresURL()
	}
	return "file:" + d.Path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// MigrationURL returns the golang-migrate database URL.
func (d DatabaseConfig) MigrationURL() string {
	if d.Driver == "postgres" {
		return d.postgresURL()
	}
	return "sqlite://" + d.Path
}

func (d DatabaseConfig) postgresURL() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + sslmode,
	}
	return u.String()
}

// Load reads config from a YAML file, then applies defaults and environment
// variable overrides. Env vars use the prefix LIGHTWEIGHT_:
//
//	LIGHTWEIGHT_SERVER_HOST, LIGHTWEIGHT_SERVER_PORT,
//	LIGHTWEIGHT_DB_DRIVER, LIGHTWEIGHT_DB_PATH,
//	LIGHTWEIGHT_DB_HOST, LIGHTWEIGHT_DB_PORT, LIGHTWEIGHT_DB_NAME,
//	LIGHTWEIGHT_DB_USER, LIGHTWEIGHT_DB_PASSWORD, LIGHTWEIGHT_DB_SSLMODE,
//	LIGHTWEIGHT_REST_THRESHOLD_MINUTES,
//	LIGHTWEIGHT_LOG_LEVEL, LIGHTWEIGHT_LOG_FORMAT, LIGHTWEIGHT_LOG_FILE,
//	LIGHTWEIGHT_TAILSCALE_ENABLED, LIGHTWEIGHT_TAILSCALE_HOSTNAME
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.Driver == "sqlite" && cfg.Database.Path == "" {
		cfg.Database.Path = "lightweight.db"
	}
	if cfg.Sessions.RestThresholdMinutes == 0 {
		cfg.Sessions.RestThresholdMinutes = 15
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Tailscale.Hostname == "" {
		cfg.Tailscale.Hostname = "lightweight"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LIGHTWEIGHT_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("LIGHTWEIGHT_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LIGHTWEIGHT_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("LIGHTWEIGHT_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("LIGHTWEIGHT_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("LIGHTWEIGHT_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("LIGHTWEIGHT_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("LIGHTWEIGHT_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("LIGHTWEIGHT_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("LIGHTWEIGHT_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("LIGHTWEIGHT_REST_THRESHOLD_MINUTES"); v != "" {
		if m, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Sessions.RestThresholdMinutes = m
		}
	}
	if v := os.Getenv("LIGHTWEIGHT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LIGHTWEIGHT_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("LIGHTWEIGHT_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
	if v := os.Getenv("LIGHTWEIGHT_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	if v := os.Getenv("LIGHTWEIGHT_TAILSCALE_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if c.Database.Port == 0 {
			return fmt.Errorf("database.port is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if !sessions.ValidMinutes(c.Sessions.RestThresholdMinutes) {
		return fmt.Errorf("sessions.rest_threshold_minutes must be positive and finite")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
