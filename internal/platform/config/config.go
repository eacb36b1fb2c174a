// Package config loads process configuration from an optional config file
// and COMPLIANCE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment override, e.g. COMPLIANCE_STORE_DSN.
const EnvPrefix = "COMPLIANCE"

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the complete process configuration.
type Config struct {
	Server    Server    `mapstructure:"server"`
	Store     Store     `mapstructure:"store"`
	Log       Log       `mapstructure:"log"`
	Reconcile Reconcile `mapstructure:"reconcile"`
	Metrics   Metrics   `mapstructure:"metrics"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr              string        `mapstructure:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

// Store selects the persistence backend.
type Store struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Reconcile bounds batch reconciliation.
type Reconcile struct {
	Concurrency int `mapstructure:"concurrency"`
	BatchSize   int `mapstructure:"batch_size"`
}

// Metrics toggles the Prometheus endpoint.
type Metrics struct {
	Enabled bool `mapstructure:"enabled"`
}

var defaults = map[string]any{
	"server.addr":                ":8080",
	"server.read_header_timeout": 5 * time.Second,
	"server.shutdown_timeout":    10 * time.Second,
	"store.driver":               DriverMemory,
	"store.dsn":                  "",
	"log.level":                  "info",
	"log.format":                 "text",
	"reconcile.concurrency":      4,
	"reconcile.batch_size":       500,
	"metrics.enabled":            true,
}

// Load reads configuration from path (optional; any format viper supports)
// and the environment, applies defaults and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate fails fast on settings the process cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for driver %q", c.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Reconcile.Concurrency < 1 {
		errs = append(errs, errors.New("reconcile.concurrency must be at least 1"))
	}
	if c.Reconcile.BatchSize < 1 {
		errs = append(errs, errors.New("reconcile.batch_size must be at least 1"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
