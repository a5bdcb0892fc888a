// Package tenant implements tenant scoping for outbound API calls: the
// exemption policy deciding which paths carry tenant context, and a
// context carrier for per-call tenant overrides.
package tenant

import (
	"context"
	"regexp"
	"strings"
)

// ctxKey ensures tenant context keys do not collide with external packages.
type ctxKey string

const tenantKey ctxKey = "tenant_id"

// singleTenantPath matches a single-resource tenant lookup such as
// /tenants/t1, which must work before tenant context is established.
var singleTenantPath = regexp.MustCompile(`^/tenants/[^/]+$`)

// WithTenant stores the tenant identifier in the provided context,
// overriding the client's stored tenant for calls issued with it.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	if tenantID == "" {
		return ctx
	}
	return context.WithValue(ctx, tenantKey, tenantID)
}

// FromContext extracts the tenant identifier from the context.
func FromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	tenantID, ok := ctx.Value(tenantKey).(string)
	if !ok || tenantID == "" {
		return "", false
	}
	return tenantID, true
}

// Exempt reports whether the path must function before or without tenant
// context: authentication endpoints, tenant bootstrap/listing, the
// check-code flow, and single-tenant lookup by id. Everything else is
// tenant-scoped. Rules are evaluated in order; query strings and
// fragments are ignored.
func Exempt(path string) bool {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	switch {
	case strings.HasPrefix(path, "/auth/"):
		return true
	case path == "/tenants":
		return true
	case strings.HasPrefix(path, "/tenants/check-code"):
		return true
	case singleTenantPath.MatchString(path):
		return true
	}
	return false
}
