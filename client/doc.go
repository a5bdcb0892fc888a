// Package client implements the NovaDesk request client: it builds
// tenant-scoped URLs and headers, retries transient failures with
// exponential backoff, coordinates single-flight credential refresh on
// authorization failure, and translates responses into typed results and
// errors.
//
// Tenant scoping
//   - Non-exempt paths carry tenant_id as a query parameter and
//     x-tenant-id as a header whenever a tenant id is known.
//   - Auth endpoints, /tenants, /tenants/check-code*, and single-tenant
//     lookups (/tenants/{id}) are exempt; see the tenant package.
//
// Retries
//   - Controlled via Builder.WithRetries(maxAttempts, baseDelay).
//   - Only transport failures and HTTP 5xx responses are retried;
//     everything else surfaces on the first attempt.
//   - Backoff before attempt n is baseDelay * 2^(n-2), no jitter.
//
// Authentication
//   - A 401 on a non-auth path triggers at most one concurrent refresh
//     (concurrent callers share the outcome) and one replay.
//   - An unrecoverable 401 clears credentials and invokes the configured
//     AuthPolicy callback; a 403 invokes the callback but keeps
//     credentials.
//
// Tracing
//   - Every request carries an X-Request-ID, propagated from the context
//     or freshly generated.
//   - W3C Trace Context (traceparent/tracestate) propagation is on by
//     default; disable with Builder.WithW3CTrace(false).
//
// Notes
//   - Request bodies are captured as bytes once per logical request and
//     re-sent on each attempt.
//   - Headers are rebuilt per attempt so a post-refresh replay carries
//     the new token.
//   - Absolute URLs on a foreign origin are allowed but sanitized: no
//     Authorization, tenant header, or tenant query parameter.
package client
