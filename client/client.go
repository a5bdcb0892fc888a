package client

import (
	"context"
	"fmt"
	nethttp "net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/novadesk/novadesk-go/config"
	"github.com/novadesk/novadesk-go/credentials"
	credsredis "github.com/novadesk/novadesk-go/credentials/redis"
	"github.com/novadesk/novadesk-go/logger"
)

const (
	// DefaultTimeout is the default request timeout duration.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxAttempts is the default total attempt count per logical
	// request, including the first call.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is the default backoff base between attempts.
	DefaultBaseDelay = 1 * time.Second

	// HeaderTenantID carries the tenant id on non-exempt requests.
	HeaderTenantID = "x-tenant-id"

	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	contentTypeJSON     = "application/json"
	tenantParam         = "tenant_id"
)

// AuthPolicy configures how the client reacts to authentication and
// authorization failures.
type AuthPolicy struct {
	// RefreshEnabled controls whether a 401 on a non-auth path triggers
	// a single-flight token refresh and one replay.
	RefreshEnabled bool
	// OnAuthError is invoked after an unrecoverable 401 (credentials
	// already cleared) and on every 403 (credentials kept). Redirect-style
	// policies are expressed as a callback performing the navigation.
	OnAuthError func(ctx context.Context, err error)
}

// Client issues authenticated, tenant-scoped calls against one API base
// address. It is safe for concurrent use by multiple goroutines.
type Client struct {
	baseURL    string
	base       *url.URL
	httpClient *nethttp.Client
	store      *credentials.Store
	log        logger.Logger

	timeout     time.Duration
	maxAttempts int
	baseDelay   time.Duration

	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	policy  AuthPolicy

	w3cTrace           bool
	logPayloads        bool
	maxPayloadLogBytes int

	refresh   singleflight.Group
	callCount atomic.Int64
}

// Builder provides a fluent interface for configuring the client.
type Builder struct {
	baseURL            string
	log                logger.Logger
	store              *credentials.Store
	httpClient         *nethttp.Client
	timeout            time.Duration
	maxAttempts        int
	baseDelay          time.Duration
	rps                float64
	burst              int
	breakerEnabled     bool
	breakerMaxFailures uint32
	breakerOpenTimeout time.Duration
	policy             AuthPolicy
	w3cTrace           bool
	logPayloads        bool
	maxPayloadLogBytes int
}

// NewBuilder creates a builder for the given API base address with the
// default timeout, retry budget, and a refresh-enabled auth policy.
func NewBuilder(baseURL string) *Builder {
	return &Builder{
		baseURL:     baseURL,
		timeout:     DefaultTimeout,
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		policy:      AuthPolicy{RefreshEnabled: true},
		w3cTrace:    true,
	}
}

// WithLogger sets the logger. The default is a silent logger.
func (b *Builder) WithLogger(log logger.Logger) *Builder {
	b.log = log
	return b
}

// WithCredentialStore sets the credential store shared by all requests of
// this client instance. The default is a memory-only store.
func (b *Builder) WithCredentialStore(store *credentials.Store) *Builder {
	b.store = store
	return b
}

// WithHTTPClient sets the underlying transport client.
func (b *Builder) WithHTTPClient(hc *nethttp.Client) *Builder {
	b.httpClient = hc
	return b
}

// WithTimeout sets the client-wide request timeout.
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	if timeout > 0 {
		b.timeout = timeout
	}
	return b
}

// WithRetries sets the retry budget: total attempts per logical request
// and the exponential backoff base.
func (b *Builder) WithRetries(maxAttempts int, baseDelay time.Duration) *Builder {
	if maxAttempts > 0 {
		b.maxAttempts = maxAttempts
	}
	if baseDelay > 0 {
		b.baseDelay = baseDelay
	}
	return b
}

// WithRateLimit enables client-side rate limiting of request attempts.
func (b *Builder) WithRateLimit(rps float64, burst int) *Builder {
	b.rps = rps
	b.burst = burst
	return b
}

// WithCircuitBreaker enables a circuit breaker around request execution.
// The circuit opens after maxFailures consecutive transient failures and
// probes again after openTimeout.
func (b *Builder) WithCircuitBreaker(maxFailures uint32, openTimeout time.Duration) *Builder {
	b.breakerEnabled = true
	b.breakerMaxFailures = maxFailures
	b.breakerOpenTimeout = openTimeout
	return b
}

// WithW3CTrace controls W3C Trace Context propagation: when enabled (the
// default) every request carries a traceparent header, propagated from
// the context or freshly generated, plus the context's tracestate.
func (b *Builder) WithW3CTrace(enabled bool) *Builder {
	b.w3cTrace = enabled
	return b
}

// WithAuthPolicy sets the authentication failure policy.
func (b *Builder) WithAuthPolicy(policy AuthPolicy) *Builder {
	b.policy = policy
	return b
}

// WithPayloadLogging enables logging of request/response headers and
// bodies, capped at maxBytes per body.
func (b *Builder) WithPayloadLogging(maxBytes int) *Builder {
	b.logPayloads = true
	b.maxPayloadLogBytes = maxBytes
	return b
}

// Build validates the configuration and creates the client.
func (b *Builder) Build() (*Client, error) {
	raw := strings.TrimRight(b.baseURL, "/")
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", b.baseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute http(s)", b.baseURL)
	}

	log := b.log
	if log == nil {
		log = logger.Nop()
	}
	store := b.store
	if store == nil {
		store = credentials.NewStore(nil, log)
	}
	httpClient := b.httpClient
	if httpClient == nil {
		// Deadlines come from the per-attempt context, not the transport.
		httpClient = &nethttp.Client{}
	}

	c := &Client{
		baseURL:            raw,
		base:               base,
		httpClient:         httpClient,
		store:              store,
		log:                log,
		timeout:            b.timeout,
		maxAttempts:        b.maxAttempts,
		baseDelay:          b.baseDelay,
		policy:             b.policy,
		w3cTrace:           b.w3cTrace,
		logPayloads:        b.logPayloads,
		maxPayloadLogBytes: b.maxPayloadLogBytes,
	}

	if b.rps > 0 {
		burst := b.burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(b.rps), burst)
	}

	if b.breakerEnabled {
		maxFailures := b.breakerMaxFailures
		if maxFailures == 0 {
			maxFailures = 5
		}
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "novadesk-client",
			Timeout: b.breakerOpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			// Only transient classes trip the breaker; 4xx responses are
			// the server working as intended.
			IsSuccessful: func(err error) bool {
				return err == nil || !isRetryable(err)
			},
		})
	}

	return c, nil
}

// New creates a client for the given base address with all defaults.
func New(baseURL string) (*Client, error) {
	return NewBuilder(baseURL).Build()
}

// NewFromConfig wires a client from a loaded configuration: logger,
// credential cache backend, timeouts, retries, rate limit, and breaker.
func NewFromConfig(cfg *config.Config) (*Client, error) {
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	kv, err := kvFromConfig(&cfg.Credentials)
	if err != nil {
		return nil, err
	}

	b := NewBuilder(cfg.BaseURL).
		WithLogger(log).
		WithCredentialStore(credentials.NewStore(kv, log)).
		WithTimeout(cfg.Timeout).
		WithRetries(cfg.Retry.MaxAttempts, cfg.Retry.BaseDelay)

	if cfg.RateLimit.RPS > 0 {
		b.WithRateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}
	if cfg.Breaker.Enabled {
		b.WithCircuitBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.OpenTimeout)
	}
	if cfg.Log.Payloads {
		b.WithPayloadLogging(cfg.Log.MaxPayloadBytes)
	}

	return b.Build()
}

func kvFromConfig(cc *config.CredentialsConfig) (credentials.KV, error) {
	switch cc.Cache {
	case "", "none":
		return nil, nil
	case "file":
		return credentials.NewFileKV(cc.File)
	case "redis":
		return credsredis.New(&credsredis.Config{
			Host:         cc.Redis.Host,
			Port:         cc.Redis.Port,
			Password:     cc.Redis.Password,
			Database:     cc.Redis.Database,
			KeyPrefix:    cc.Redis.KeyPrefix,
			PoolSize:     cc.Redis.PoolSize,
			DialTimeout:  cc.Redis.DialTimeout,
			ReadTimeout:  cc.Redis.ReadTimeout,
			WriteTimeout: cc.Redis.WriteTimeout,
		})
	default:
		return nil, fmt.Errorf("unknown credential cache backend %q", cc.Cache)
	}
}

// Credentials exposes the client's credential store for login flows and
// host applications that manage tenant context directly.
func (c *Client) Credentials() *credentials.Store {
	return c.store
}
