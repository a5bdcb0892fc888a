package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/novadesk/novadesk-go/tenant"
	"github.com/novadesk/novadesk-go/trace"
)

// requestOptions collects the per-call knobs applied on top of the
// client-wide defaults.
type requestOptions struct {
	query           url.Values
	headers         map[string]string
	timeout         time.Duration
	tenantID        string
	omitContentType bool
}

// Option customizes a single call.
type Option func(*requestOptions)

// WithQuery merges the given values into the request query string.
// Multi-value keys repeat the parameter; setting a key replaces any value
// the client injected for it.
func WithQuery(values url.Values) Option {
	return func(ro *requestOptions) {
		if ro.query == nil {
			ro.query = url.Values{}
		}
		for k, vs := range values {
			ro.query[k] = append([]string(nil), vs...)
		}
	}
}

// WithParam adds a single query parameter; repeated values repeat the key.
func WithParam(key string, values ...string) Option {
	return func(ro *requestOptions) {
		if ro.query == nil {
			ro.query = url.Values{}
		}
		ro.query[key] = append([]string(nil), values...)
	}
}

// WithHeader adds a custom header, overriding any default for that key.
func WithHeader(key, value string) Option {
	return func(ro *requestOptions) {
		if ro.headers == nil {
			ro.headers = make(map[string]string)
		}
		ro.headers[key] = value
	}
}

// WithTimeout overrides the client-wide timeout for this call.
func WithTimeout(timeout time.Duration) Option {
	return func(ro *requestOptions) {
		ro.timeout = timeout
	}
}

// WithTenant overrides the tenant id for this call without mutating the
// credential store.
func WithTenant(tenantID string) Option {
	return func(ro *requestOptions) {
		ro.tenantID = tenantID
	}
}

func applyOptions(opts []Option) *requestOptions {
	ro := &requestOptions{}
	for _, opt := range opts {
		opt(ro)
	}
	return ro
}

// target is one fully-resolved request destination.
type target struct {
	url string
	// path is the endpoint path used for tenant-exemption and
	// auth-endpoint checks.
	path string
	// sanitize marks cross-origin absolute URLs whose headers must not
	// carry credentials.
	sanitize bool
}

// buildTarget produces the final URL for an endpoint, applying the
// tenant-injection policy: non-exempt paths receive tenant_id as a query
// parameter when a tenant is known and the caller did not supply one.
// Absolute http(s) endpoints pass through; when their origin differs from
// the base, the sensitive headers and the tenant parameter are withheld.
func (c *Client) buildTarget(ctx context.Context, endpoint string, ro *requestOptions) (*target, error) {
	var u *url.URL
	var err error
	tgt := &target{}

	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		u, err = url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid request URL %q: %w", endpoint, err)
		}
		tgt.sanitize = u.Scheme != c.base.Scheme || u.Host != c.base.Host
	} else {
		if !strings.HasPrefix(endpoint, "/") {
			endpoint = "/" + endpoint
		}
		u, err = url.Parse(c.baseURL + endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid request path %q: %w", endpoint, err)
		}
	}
	tgt.path = pathOf(endpoint)

	query := u.Query()
	// Sanitized cross-origin targets never receive the tenant id, in the
	// query any more than in the headers.
	if id := c.resolveTenant(ctx, ro); id != "" && !tgt.sanitize && !tenant.Exempt(tgt.path) &&
		!query.Has(tenantParam) && !ro.query.Has(tenantParam) {
		query.Set(tenantParam, id)
	}
	for key, values := range ro.query {
		query.Del(key)
		for _, v := range values {
			query.Add(key, v)
		}
	}
	u.RawQuery = query.Encode()

	tgt.url = u.String()
	return tgt, nil
}

// buildHeaders produces the header set for one attempt. Content-Type
// defaults to JSON unless the payload owns it (multipart); caller headers
// override defaults. Sensitive headers (Authorization, tenant) are
// skipped for sanitized cross-origin targets, and the tenant header
// additionally honors the exemption policy.
func (c *Client) buildHeaders(ctx context.Context, path string, ro *requestOptions, sanitize bool) map[string]string {
	headers := make(map[string]string, 4+len(ro.headers))
	if !ro.omitContentType {
		headers[headerContentType] = contentTypeJSON
	}
	for k, v := range ro.headers {
		headers[k] = v
	}
	if _, ok := headers[trace.HeaderXRequestID]; !ok {
		headers[trace.HeaderXRequestID] = trace.EnsureTraceID(ctx)
	}
	if c.w3cTrace {
		if _, ok := headers[trace.HeaderTraceParent]; !ok {
			headers[trace.HeaderTraceParent] = trace.EnsureTraceParent(ctx)
		}
		if ts, ok := trace.StateFromContext(ctx); ok {
			headers[trace.HeaderTraceState] = ts
		}
	}
	if sanitize {
		return headers
	}
	if token := c.store.Token(ctx); token != "" {
		headers[headerAuthorization] = "Bearer " + token
	}
	if id := c.resolveTenant(ctx, ro); id != "" && !tenant.Exempt(path) {
		headers[HeaderTenantID] = id
	}
	return headers
}

// resolveTenant picks the tenant id for a call: per-call option, then
// context carrier, then the credential store.
func (c *Client) resolveTenant(ctx context.Context, ro *requestOptions) string {
	if ro.tenantID != "" {
		return ro.tenantID
	}
	if id, ok := tenant.FromContext(ctx); ok {
		return id
	}
	return c.store.TenantID(ctx)
}

// pathOf strips query and fragment from an endpoint, resolving absolute
// URLs to their path component.
func pathOf(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		if u, err := url.Parse(endpoint); err == nil {
			return u.Path
		}
	}
	if i := strings.IndexAny(endpoint, "?#"); i >= 0 {
		return endpoint[:i]
	}
	return endpoint
}
