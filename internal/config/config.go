package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session store backends.
const (
	StoreFile   = "file"
	StoreMemory = "memory"
	StoreValkey = "valkey"
)

// Defaults
const (
	DefaultAPIURL         = "http://127.0.0.1:8000/api"
	DefaultHTTPTimeout    = 10 * time.Second
	DefaultRefreshTimeout = 10 * time.Second
	DefaultValkeyPrefix   = "taskpulse:"

	// DefaultBulkConcurrency caps in-flight requests of bulk task operations
	DefaultBulkConcurrency = 4
)

// Config holds the resolved client configuration.
type Config struct {
	// APIURL is the base URL of the task API, without trailing slash
	APIURL string

	// HTTPTimeout bounds every task API call
	HTTPTimeout time.Duration

	// RefreshTimeout bounds a single token refresh exchange
	RefreshTimeout time.Duration

	// CoalesceRefresh shares one in-flight refresh between concurrent 401s
	CoalesceRefresh bool

	// BulkConcurrency caps in-flight requests of bulk and multi-id task operations
	BulkConcurrency int

	// SessionStore selects where tokens live: file, memory or valkey
	SessionStore string

	// SessionDir overrides the directory of the file store (default: user cache dir)
	SessionDir string

	// Valkey configures the valkey session store
	Valkey ValkeyConfig

	// LogLevel is one of debug, info, warn, error
	LogLevel string

	// LogFormat is text or json
	LogFormat string
}

// ValkeyConfig holds configuration for the Valkey session store
type ValkeyConfig struct {
	// URL is the Valkey server address (e.g., "valkey.namespace.svc:6379")
	URL string

	// Password is the optional password for Valkey authentication
	Password string

	// TLSEnabled enables TLS for Valkey connections
	TLSEnabled bool

	// KeyPrefix is the prefix for all Valkey keys (default: "taskpulse:")
	KeyPrefix string

	// DB is the Valkey database number (default: 0)
	DB int
}

// Default returns the built-in configuration without consulting the environment.
func Default() Config {
	return Config{
		APIURL:          DefaultAPIURL,
		HTTPTimeout:     DefaultHTTPTimeout,
		RefreshTimeout:  DefaultRefreshTimeout,
		CoalesceRefresh: true,
		BulkConcurrency: DefaultBulkConcurrency,
		SessionStore:    StoreFile,
		Valkey: ValkeyConfig{
			KeyPrefix: DefaultValkeyPrefix,
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load reads .env (if present) and TASKPULSE_* variables on top of Default.
// Malformed values are reported rather than silently ignored.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to read .env: %w", err)
	}
	return FromEnv()
}

// FromEnv applies TASKPULSE_* variables on top of Default.
func FromEnv() (Config, error) {
	cfg := Default()
	var errs []error

	if v := os.Getenv("TASKPULSE_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("TASKPULSE_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TASKPULSE_HTTP_TIMEOUT: %w", err))
		} else {
			cfg.HTTPTimeout = d
		}
	}
	if v := os.Getenv("TASKPULSE_REFRESH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TASKPULSE_REFRESH_TIMEOUT: %w", err))
		} else {
			cfg.RefreshTimeout = d
		}
	}
	if v := os.Getenv("TASKPULSE_COALESCE_REFRESH"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TASKPULSE_COALESCE_REFRESH: %w", err))
		} else {
			cfg.CoalesceRefresh = b
		}
	}
	if v := os.Getenv("TASKPULSE_BULK_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TASKPULSE_BULK_CONCURRENCY: %w", err))
		} else {
			cfg.BulkConcurrency = n
		}
	}
	if v := os.Getenv("TASKPULSE_SESSION_STORE"); v != "" {
		cfg.SessionStore = strings.ToLower(v)
	}
	cfg.SessionDir = os.Getenv("TASKPULSE_SESSION_DIR")

	if v := os.Getenv("TASKPULSE_VALKEY_URL"); v != "" {
		cfg.Valkey.URL = v
	}
	cfg.Valkey.Password = os.Getenv("TASKPULSE_VALKEY_PASSWORD")
	if v := os.Getenv("TASKPULSE_VALKEY_TLS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TASKPULSE_VALKEY_TLS: %w", err))
		} else {
			cfg.Valkey.TLSEnabled = b
		}
	}
	if v := os.Getenv("TASKPULSE_VALKEY_PREFIX"); v != "" {
		cfg.Valkey.KeyPrefix = v
	}
	if v := os.Getenv("TASKPULSE_VALKEY_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TASKPULSE_VALKEY_DB: %w", err))
		} else {
			cfg.Valkey.DB = db
		}
	}

	if v := os.Getenv("TASKPULSE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("TASKPULSE_LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate checks if the configuration is usable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid API URL %q: must be an absolute http(s) URL", c.APIURL)
	}
	c.APIURL = strings.TrimRight(c.APIURL, "/")

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP timeout must be positive, got %s", c.HTTPTimeout)
	}
	if c.RefreshTimeout <= 0 {
		return fmt.Errorf("refresh timeout must be positive, got %s", c.RefreshTimeout)
	}

	if c.BulkConcurrency < 1 {
		return fmt.Errorf("bulk concurrency must be at least 1, got %d", c.BulkConcurrency)
	}

	switch c.SessionStore {
	case StoreFile, StoreMemory:
	case StoreValkey:
		if c.Valkey.URL == "" {
			return fmt.Errorf("valkey URL is required when session store is %q", StoreValkey)
		}
		if c.Valkey.DB < 0 {
			return fmt.Errorf("valkey DB must not be negative, got %d", c.Valkey.DB)
		}
	default:
		return fmt.Errorf("invalid session store %q, must be one of: file, memory, valkey", c.SessionStore)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q, must be text or json", c.LogFormat)
	}

	return nil
}
