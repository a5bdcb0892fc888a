// Package config loads client configuration from defaults, an optional
// YAML file, and NOVADESK_-prefixed environment variables, in increasing
// order of priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	envprovider "github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// DefaultFile is the configuration file consulted when no explicit path
// is given. A missing file is not an error.
const DefaultFile = "novadesk.yaml"

// EnvPrefix is the prefix for environment overrides. Double underscores
// separate nesting levels so key names may themselves contain single
// underscores, e.g. NOVADESK_RETRY__MAX_ATTEMPTS -> retry.max_attempts.
const EnvPrefix = "NOVADESK_"

// Config is the full client configuration.
type Config struct {
	// BaseURL is the API base address; a trailing slash is stripped at
	// client construction.
	BaseURL string `koanf:"base_url" validate:"required,url"`

	// Timeout is the default per-request timeout.
	Timeout time.Duration `koanf:"timeout" validate:"min=0"`

	Retry       RetryConfig       `koanf:"retry"`
	RateLimit   RateLimitConfig   `koanf:"rate_limit"`
	Breaker     BreakerConfig     `koanf:"breaker"`
	Log         LogConfig         `koanf:"log"`
	Credentials CredentialsConfig `koanf:"credentials"`
}

// RetryConfig controls the transient-failure retry budget.
type RetryConfig struct {
	// MaxAttempts is the total attempt count including the first call.
	MaxAttempts int `koanf:"max_attempts" validate:"min=1"`
	// BaseDelay is the backoff base; the wait before attempt n is
	// BaseDelay * 2^(n-2).
	BaseDelay time.Duration `koanf:"base_delay" validate:"min=0"`
}

// RateLimitConfig bounds the outbound request rate. RPS of zero disables
// rate limiting.
type RateLimitConfig struct {
	RPS   float64 `koanf:"rps" validate:"min=0"`
	Burst int     `koanf:"burst" validate:"min=0"`
}

// BreakerConfig controls the optional circuit breaker around request
// attempts.
type BreakerConfig struct {
	Enabled bool `koanf:"enabled"`
	// MaxFailures is the consecutive-failure count that opens the circuit.
	MaxFailures uint32 `koanf:"max_failures" validate:"min=1"`
	// OpenTimeout is how long the circuit stays open before probing.
	OpenTimeout time.Duration `koanf:"open_timeout" validate:"min=0"`
}

// LogConfig controls SDK logging.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Pretty bool   `koanf:"pretty"`
	// Payloads enables logging of request/response headers and bodies.
	Payloads bool `koanf:"payloads"`
	// MaxPayloadBytes caps logged body sizes when Payloads is enabled.
	MaxPayloadBytes int `koanf:"max_payload_bytes" validate:"min=0"`
}

// CredentialsConfig selects the durable credential cache backend.
type CredentialsConfig struct {
	// Cache is one of "none" (memory-only), "file", or "redis".
	Cache string `koanf:"cache" validate:"oneof=none file redis"`
	// File is the credential file path for the file backend.
	File string `koanf:"file" validate:"required_if=Cache file"`
	// Redis configures the redis backend.
	Redis RedisConfig `koanf:"redis"`
}

// RedisConfig holds the redis credential-cache settings. Zero values fall
// back to the backend defaults.
type RedisConfig struct {
	Host         string        `koanf:"host"`
	Port         int           `koanf:"port" validate:"min=0,max=65535"`
	Password     string        `koanf:"password"`
	Database     int           `koanf:"database" validate:"min=0,max=15"`
	KeyPrefix    string        `koanf:"key_prefix"`
	PoolSize     int           `koanf:"pool_size" validate:"min=0"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// Load reads configuration from defaults, the YAML file at path (or
// DefaultFile when path is empty), and environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	optional := path == ""
	if optional {
		path = DefaultFile
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// Only an explicitly requested file must exist.
		if !optional || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	if err := k.Load(envprovider.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	return finish(k)
}

// LoadBytes reads configuration from defaults overlaid with the given
// YAML document. Used by tests and by embedders that manage their own
// files.
func LoadBytes(doc []byte) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(rawbytes.Provider(doc), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	return finish(k)
}

// envTransform maps NOVADESK_RETRY__MAX_ATTEMPTS to retry.max_attempts.
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"base_url": "",
		"timeout":  "30s",

		"retry.max_attempts": 3,
		"retry.base_delay":   "1s",

		"rate_limit.rps":   0.0,
		"rate_limit.burst": 0,

		"breaker.enabled":      false,
		"breaker.max_failures": 5,
		"breaker.open_timeout": "30s",

		"log.level":             "info",
		"log.pretty":            false,
		"log.payloads":          false,
		"log.max_payload_bytes": 2048,

		"credentials.cache":      "none",
		"credentials.file":       "",
		"credentials.redis.host": "",
		"credentials.redis.port": 6379,
	}
	return k.Load(confmap.Provider(defaults, "."), nil)
}

func finish(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
