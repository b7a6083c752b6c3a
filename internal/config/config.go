package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config interface {
	EnvConfig
	TokenConfig
	StorageConfig
	MediaConfig
	CorsConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	IsDev() bool
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Tokens
	Storage
	Media
	Cors
}

// Load reads the process environment once. The returned Config is read-only.
func Load() (Config, error) {
	var cfg mainConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c mainConfig) validate() error {
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return fmt.Errorf("%s and %s must differ", accessSecretVar, refreshSecretVar)
	}
	if c.AccessTokenExpiry <= 0 || c.RefreshTokenExpiry <= 0 {
		return fmt.Errorf("token expiries must be positive")
	}
	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres, StoreSQLite:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("DATABASE_DSN is required for STORE_DRIVER=%s", c.StoreDriver)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.MediaDriver {
	case MediaMemory:
	case MediaS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for MEDIA_DRIVER=%s", c.MediaDriver)
		}
	default:
		return fmt.Errorf("unknown MEDIA_DRIVER %q", c.MediaDriver)
	}
	return nil
}
