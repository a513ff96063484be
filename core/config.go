package core

import (
	"fmt"
	"strings"
	"time"
)

type Environment string

const (
	EnvironmentDevelopment Environment = "development"
	EnvironmentProduction  Environment = "production"
)

type VerifierConfig struct {
	TTL time.Duration `koanf:"ttl" mapstructure:"ttl"`
}

type SessionConfig struct {
	ValidateShopDomain bool `koanf:"validate_shop_domain" mapstructure:"validate_shop_domain"`
}

type RetentionConfig struct {
	Enabled  bool          `koanf:"enabled" mapstructure:"enabled"`
	Interval time.Duration `koanf:"interval" mapstructure:"interval"`
}

type CacheConfig struct {
	Enabled bool          `koanf:"enabled" mapstructure:"enabled"`
	TTL     time.Duration `koanf:"ttl" mapstructure:"ttl"`
}

type Config struct {
	ServiceName string          `koanf:"service_name" mapstructure:"service_name"`
	Environment Environment     `koanf:"environment" mapstructure:"environment"`
	Verifier    VerifierConfig  `koanf:"verifier" mapstructure:"verifier"`
	Sessions    SessionConfig   `koanf:"sessions" mapstructure:"sessions"`
	Retention   RetentionConfig `koanf:"retention" mapstructure:"retention"`
	Cache       CacheConfig     `koanf:"cache" mapstructure:"cache"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "shop-agent",
		Environment: EnvironmentDevelopment,
		Verifier: VerifierConfig{
			TTL: 10 * time.Minute,
		},
		Sessions: SessionConfig{
			ValidateShopDomain: true,
		},
		Retention: RetentionConfig{
			Enabled:  false,
			Interval: 10 * time.Minute,
		},
		Cache: CacheConfig{
			Enabled: false,
			TTL:     30 * time.Second,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	switch c.Environment {
	case EnvironmentDevelopment, EnvironmentProduction:
	default:
		return fmt.Errorf("core: environment must be %q or %q, got %q",
			EnvironmentDevelopment, EnvironmentProduction, c.Environment)
	}
	if c.Verifier.TTL <= 0 {
		return fmt.Errorf("core: verifier ttl must be positive")
	}
	if c.Retention.Enabled && c.Retention.Interval <= 0 {
		return fmt.Errorf("core: retention interval must be positive when retention is enabled")
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return fmt.Errorf("core: cache ttl must be positive when cache is enabled")
	}
	return nil
}
