// Package config loads cmd/regimewatch's top-level service configuration:
// vendor endpoint, cache, persistence, and server settings that sit outside
// the pure core. Generalized from internal/config/regime/weights.go's
// WeightsLoader (load-from-file with an in-code default, validate once).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration for cmd/regimewatch.
type Config struct {
	Vendor      VendorConfig      `yaml:"vendor"`
	Cache       CacheConfig       `yaml:"cache"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Server      ServerConfig      `yaml:"server"`
	Calibration CalibrationConfig `yaml:"calibration"`
}

// VendorConfig describes the external quote-vendor CandleSource.
type VendorConfig struct {
	BaseURL        string        `yaml:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps"`
	RateLimitBurst int           `yaml:"rate_limit_burst"`
}

// CacheConfig describes the candle-series cache.
type CacheConfig struct {
	RedisAddr string        `yaml:"redis_addr"`
	TTL       time.Duration `yaml:"ttl"`
}

// PersistenceConfig describes the Postgres report sink.
type PersistenceConfig struct {
	DSN string `yaml:"dsn"`
}

// ServerConfig describes the monitoring HTTP server.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

// CalibrationConfig points at an optional YAML override file for the
// Calibration Registry (internal/calibration.Registry.LoadFromFile).
type CalibrationConfig struct {
	OverridePath string `yaml:"override_path"`
}

// Default returns the built-in configuration used when no file is supplied.
func Default() Config {
	return Config{
		Vendor: VendorConfig{
			BaseURL:        "https://quotes.example.com",
			RequestTimeout: 5 * time.Second,
			RateLimitRPS:   10,
			RateLimitBurst: 20,
		},
		Cache: CacheConfig{
			RedisAddr: "",
			TTL:       30 * time.Second,
		},
		Persistence: PersistenceConfig{
			DSN: "",
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
		},
	}
}

// LoadFromFile reads a YAML configuration file, falling back to Default for
// any field it does not specify by first unmarshaling over a copy of it.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: failed to parse YAML %s: %w", path, err)
	}
	if err := validate(cfg); err != nil {
		return Config{}, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Vendor.RequestTimeout <= 0 {
		return fmt.Errorf("vendor.request_timeout must be positive")
	}
	if cfg.Vendor.RateLimitRPS <= 0 {
		return fmt.Errorf("vendor.rate_limit_rps must be positive")
	}
	if cfg.Server.Port == "" {
		return fmt.Errorf("server.port must be set")
	}
	return nil
}

// DefaultPath returns the conventional configuration file location,
// mirroring GetDefaultConfigPath in internal/config/regime/weights.go.
func DefaultPath() string {
	return filepath.Join("config", "regimewatch.yaml")
}
