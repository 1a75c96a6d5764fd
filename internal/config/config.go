// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	SessionStoreDatabase = "database"
	SessionStoreRedis    = "redis"

	BlobStoreDatabase = "database"
	BlobStoreGCS      = "gcs"
)

// Config holds every setting the server reads at startup.
type Config struct {
	Addr                 string        `mapstructure:"ADDR"`
	DatabaseURL          string        `mapstructure:"DATABASE_URL"`
	Store                string        `mapstructure:"STORE"`
	SessionStore         string        `mapstructure:"SESSION_STORE"`
	RedisAddr            string        `mapstructure:"REDIS_ADDR"`
	RedisPassword        string        `mapstructure:"REDIS_PASSWORD"`
	BlobStore            string        `mapstructure:"BLOB_STORE"`
	GCSBucket            string        `mapstructure:"GCS_BUCKET"`
	SessionTTL           time.Duration `mapstructure:"SESSION_TTL"`
	SessionSweepInterval time.Duration `mapstructure:"SESSION_SWEEP_INTERVAL"`
	FeedFetchConcurrency int           `mapstructure:"FEED_FETCH_CONCURRENCY"`
	MaxUploadBytes       int64         `mapstructure:"MAX_UPLOAD_BYTES"`
	MaxImagePixels       int           `mapstructure:"MAX_IMAGE_PIXELS"`
	LogLevel             string        `mapstructure:"LOG_LEVEL"`
	LogFormat            string        `mapstructure:"LOG_FORMAT"`
	OIDCIssuer           string        `mapstructure:"OIDC_ISSUER"`
	OIDCClientID         string        `mapstructure:"OIDC_CLIENT_ID"`
	OIDCClientSecret     string        `mapstructure:"OIDC_CLIENT_SECRET"`
	OIDCRedirectURL      string        `mapstructure:"OIDC_REDIRECT_URL"`
}

var defaults = map[string]any{
	"ADDR":                   ":8080",
	"DATABASE_URL":           "",
	"STORE":                  StoreMemory,
	"SESSION_STORE":          SessionStoreDatabase,
	"REDIS_ADDR":             "",
	"REDIS_PASSWORD":         "",
	"BLOB_STORE":             BlobStoreDatabase,
	"GCS_BUCKET":             "",
	"SESSION_TTL":            24 * time.Hour,
	"SESSION_SWEEP_INTERVAL": time.Hour,
	"FEED_FETCH_CONCURRENCY": 8,
	"MAX_UPLOAD_BYTES":       int64(10 << 20),
	"MAX_IMAGE_PIXELS":       50_000_000,
	"LOG_LEVEL":              "info",
	"LOG_FORMAT":             "json",
	"OIDC_ISSUER":            "",
	"OIDC_CLIENT_ID":         "",
	"OIDC_CLIENT_SECRET":     "",
	"OIDC_REDIRECT_URL":      "",
}

// Load reads the environment over the defaults and validates the result.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// OIDCEnabled reports whether SSO login is configured.
func (c Config) OIDCEnabled() bool {
	return c.OIDCIssuer != "" && c.OIDCClientID != ""
}

// Validate checks that every selected backend has what it needs.
func (c Config) Validate() error {
	var errs []error
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORE=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE %q", c.Store))
	}
	switch c.SessionStore {
	case SessionStoreDatabase:
	case SessionStoreRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required when SESSION_STORE=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore))
	}
	switch c.BlobStore {
	case BlobStoreDatabase:
	case BlobStoreGCS:
		if c.GCSBucket == "" {
			errs = append(errs, errors.New("GCS_BUCKET is required when BLOB_STORE=gcs"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown BLOB_STORE %q", c.BlobStore))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.SessionSweepInterval <= 0 {
		errs = append(errs, errors.New("SESSION_SWEEP_INTERVAL must be positive"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	if c.MaxImagePixels <= 0 {
		errs = append(errs, errors.New("MAX_IMAGE_PIXELS must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
