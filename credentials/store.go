package credentials

import (
	"context"
	"errors"
	"sync"

	"github.com/novadesk/novadesk-go/logger"
)

// Store holds the access token, refresh token, and active tenant id shared
// by all requests of one client instance. Reads hit the in-memory state
// first, then lazily fall through to the durable KV; the first non-empty
// value wins and is memoized. All operations are total: durable-store
// failures are logged and treated as a miss or no-op, never surfaced.
type Store struct {
	mu  sync.RWMutex
	kv  KV
	log logger.Logger

	token        string
	refreshToken string
	tenantID     string
}

// NewStore creates a Store over the given durable KV. A nil KV yields a
// memory-only store, the mode used in execution contexts without durable
// storage. A nil logger silences the store.
func NewStore(kv KV, log logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{kv: kv, log: log}
}

// Token returns the current access token, or "" when none is known.
func (s *Store) Token(ctx context.Context) string {
	if v := s.cached(&s.token); v != "" {
		return v
	}
	return s.readThrough(ctx, KeyAuthToken, &s.token)
}

// SetToken stores the access token in memory and in the durable KV.
func (s *Store) SetToken(ctx context.Context, v string) {
	s.write(ctx, KeyAuthToken, &s.token, v)
}

// RefreshToken returns the current refresh token, or "" when none is known.
func (s *Store) RefreshToken(ctx context.Context) string {
	if v := s.cached(&s.refreshToken); v != "" {
		return v
	}
	return s.readThrough(ctx, KeyRefreshToken, &s.refreshToken)
}

// SetRefreshToken stores the refresh token in memory and in the durable KV.
func (s *Store) SetRefreshToken(ctx context.Context, v string) {
	s.write(ctx, KeyRefreshToken, &s.refreshToken, v)
}

// TenantID returns the active tenant id, or "" when none is known. When
// the primary durable key is empty it falls back to the legacy key, so
// resolution stays correct before an external context provider has
// synchronized the primary key.
func (s *Store) TenantID(ctx context.Context) string {
	if v := s.cached(&s.tenantID); v != "" {
		return v
	}
	if v := s.readThrough(ctx, KeyTenantID, &s.tenantID); v != "" {
		return v
	}
	return s.readThrough(ctx, KeyLegacyTenantID, &s.tenantID)
}

// SetTenantID stores the active tenant id in memory and in the durable KV.
func (s *Store) SetTenantID(ctx context.Context, v string) {
	s.write(ctx, KeyTenantID, &s.tenantID, v)
}

// Clear resets memory state and removes all four durable keys, including
// the legacy tenant key.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.token = ""
	s.refreshToken = ""
	s.tenantID = ""
	s.mu.Unlock()

	if s.kv == nil {
		return
	}
	for _, key := range []string{KeyAuthToken, KeyRefreshToken, KeyTenantID, KeyLegacyTenantID} {
		if err := s.kv.Delete(ctx, key); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("credential delete failed")
		}
	}
}

func (s *Store) cached(field *string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *field
}

// readThrough loads a key from the durable KV and memoizes non-empty
// values. Misses and failures both resolve to "".
func (s *Store) readThrough(ctx context.Context, key string, field *string) string {
	if s.kv == nil {
		return ""
	}
	b, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Warn().Err(err).Str("key", key).Msg("credential read failed")
		}
		return ""
	}
	v := string(b)
	if v == "" {
		return ""
	}
	s.mu.Lock()
	*field = v
	s.mu.Unlock()
	return v
}

// write updates memory and mirrors the change to the durable KV. Empty
// values delete the durable key instead of storing an empty string.
func (s *Store) write(ctx context.Context, key string, field *string, v string) {
	s.mu.Lock()
	*field = v
	s.mu.Unlock()

	if s.kv == nil {
		return
	}
	var err error
	if v == "" {
		err = s.kv.Delete(ctx, key)
	} else {
		err = s.kv.Set(ctx, key, []byte(v))
	}
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("credential write failed")
	}
}
