package redis

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/novadesk/novadesk-go/credentials"
)

// KV implements the credentials.KV contract on Redis.
type KV struct {
	client *redis.Client
	config *Config
	closed atomic.Bool
}

var _ credentials.KV = (*KV)(nil)

// New validates the configuration, connects, and verifies the connection
// with a PING.
func New(cfg *Config) (*KV, error) {
	cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address(),
		Password:     cfg.Password,
		DB:           cfg.Database,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis credentials: ping %s: %w", cfg.Address(), err)
	}

	return &KV{client: client, config: cfg}, nil
}

// Get retrieves a value. Returns credentials.ErrNotFound when the key
// doesn't exist.
func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	if k.closed.Load() {
		return nil, credentials.ErrClosed
	}
	result, err := k.client.Get(ctx, k.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, credentials.ErrNotFound
		}
		return nil, credentials.NewOperationError("get", key, err)
	}
	return result, nil
}

// Set stores a value without expiration; credentials are invalidated
// explicitly via Delete or Store.Clear, never by TTL.
func (k *KV) Set(ctx context.Context, key string, value []byte) error {
	if k.closed.Load() {
		return credentials.ErrClosed
	}
	if err := k.client.Set(ctx, k.key(key), value, 0).Err(); err != nil {
		return credentials.NewOperationError("set", key, err)
	}
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (k *KV) Delete(ctx context.Context, key string) error {
	if k.closed.Load() {
		return credentials.ErrClosed
	}
	if err := k.client.Del(ctx, k.key(key)).Err(); err != nil {
		return credentials.NewOperationError("delete", key, err)
	}
	return nil
}

// Close closes the Redis client and releases resources. Close is
// idempotent.
func (k *KV) Close() error {
	if !k.closed.CompareAndSwap(false, true) {
		return credentials.ErrClosed
	}
	return k.client.Close()
}

func (k *KV) key(key string) string {
	if k.config.KeyPrefix == "" {
		return key
	}
	return k.config.KeyPrefix + ":" + key
}
