// Package redis provides a Redis-backed durable store for credentials,
// for service deployments where multiple processes share one credential
// set.
package redis

import (
	"fmt"
	"time"
)

// Config holds Redis-specific configuration options.
type Config struct {
	// Host is the Redis server hostname or IP address.
	Host string `koanf:"host"`

	// Port is the Redis server port (default: 6379).
	Port int `koanf:"port"`

	// Password for Redis authentication (optional).
	Password string `koanf:"password"`

	// Database number to use (default: 0).
	Database int `koanf:"database"`

	// KeyPrefix namespaces the credential keys, so several client
	// deployments can share one Redis instance (optional).
	KeyPrefix string `koanf:"key_prefix"`

	// PoolSize is the maximum number of socket connections (default: 10).
	PoolSize int `koanf:"pool_size"`

	// DialTimeout is the timeout for establishing new connections (default: 5s).
	DialTimeout time.Duration `koanf:"dial_timeout"`

	// ReadTimeout is the timeout for socket reads (default: 3s).
	ReadTimeout time.Duration `koanf:"read_timeout"`

	// WriteTimeout is the timeout for socket writes (default: 3s).
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// withDefaults fills zero values with the package defaults.
func (c *Config) withDefaults() {
	if c.Port == 0 {
		c.Port = 6379
	}
	if c.PoolSize == 0 {
		c.PoolSize = 10
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3 * time.Second
	}
}

// Validate performs fail-fast validation of the Redis configuration.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("redis credentials: host is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("redis credentials: invalid port: %d", c.Port)
	}
	if c.Database < 0 || c.Database > 15 {
		return fmt.Errorf("redis credentials: invalid database number: %d (must be 0-15)", c.Database)
	}
	return nil
}

// Address returns the Redis server address in "host:port" format.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
