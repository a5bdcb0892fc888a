// Package credentials holds the tokens and tenant identifier attached to
// outbound API calls. The Store keeps them in memory and lazily reads
// through to an optional durable key-value backend, so credentials survive
// process restarts when a backend is configured and degrade gracefully to
// memory-only operation when it is not.
package credentials

import "context"

// Durable key names. KeyLegacyTenantID is written by older deployments
// and is read as a fallback only; the Store never writes it except to
// delete it on Clear.
const (
	KeyAuthToken      = "auth_token"
	KeyRefreshToken   = "refresh_token"
	KeyTenantID       = "tenant_id"
	KeyLegacyTenantID = "current_tenant_id"
)

// KV is the durable backing store contract. Implementations must be safe
// for concurrent use. Get returns ErrNotFound when the key is absent.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
