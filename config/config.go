// Package config loads process configuration from a YAML file, environment
// variables, and CLI flags, layered the way acdtunes-spacetraders/gobot's
// infrastructure/config package layers its sources (SPEC_FULL.md §10.2).
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the full process configuration for cmd/dpdptw.
type Config struct {
	RoutesCSV    string  `mapstructure:"routes_csv"`
	VehiclesCSV  string  `mapstructure:"vehicles_csv"`
	FactoriesCSV string  `mapstructure:"factories_csv"`
	OrdersCSV    string  `mapstructure:"orders_csv"`
	ReportPath   string  `mapstructure:"report_path"`
	Lambda       float64 `mapstructure:"lambda"`
	Seed         int64   `mapstructure:"seed"`
	SliceSize    float64 `mapstructure:"slice_size"`
	StartFactory int     `mapstructure:"start_factory"`
	LogLevel     string  `mapstructure:"log_level"`
}

// SetDefaults fills cfg's zero-valued fields with the defaults named in
// SPEC_FULL.md §4.6/§10.2 (lambda=1) and the loader's own GCD-derived slice
// size (slice_size=0 means "let the loader compute it").
func SetDefaults(cfg *Config) {
	if cfg.Lambda == 0 {
		cfg.Lambda = 1
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

// Load builds a Config from, in ascending priority: defaults, an optional
// YAML file at configPath, DPDPTW_-prefixed environment variables, and any
// CLI flags already bound onto flags.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configPath, err)
		}
	}

	v.SetEnvPrefix("DPDPTW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("config: bind flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	SetDefaults(&cfg)
	return &cfg, nil
}
