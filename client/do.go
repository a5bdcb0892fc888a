package client

import (
	"bytes"
	"context"
	"errors"
	"io"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

// doRequest drives one logical request: URL construction, the bounded
// retry loop, and the 401/403 policy. Within one logical request all
// attempts, including the refresh-triggered replay, run strictly
// sequentially.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body []byte, ro *requestOptions) (*Result, error) {
	tgt, err := c.buildTarget(ctx, endpoint, ro)
	if err != nil {
		return nil, err
	}

	res, err := c.execute(ctx, method, tgt, body, ro, c.maxAttempts)
	if err == nil {
		return res, nil
	}

	if IsAPIStatus(err, nethttp.StatusUnauthorized) && !strings.HasPrefix(tgt.path, "/auth/") {
		res, err = c.recoverAuth(ctx, method, tgt, body, ro, err)
		if err == nil {
			return res, nil
		}
	}
	if IsAPIStatus(err, nethttp.StatusForbidden) {
		// Authorization failure, on the first pass or the post-refresh
		// replay alike: notify the policy, keep credentials.
		c.notifyAuthError(ctx, err)
	}
	return nil, err
}

// execute runs the attempt loop, behind the circuit breaker when one is
// configured. Open-circuit rejections are surfaced as network-class
// failures so callers handle them like any other transport outage.
func (c *Client) execute(ctx context.Context, method string, tgt *target, body []byte, ro *requestOptions, maxAttempts int) (*Result, error) {
	if c.breaker == nil {
		return c.attempts(ctx, method, tgt, body, ro, maxAttempts)
	}
	result, err := c.breaker.Execute(func() (any, error) {
		return c.attempts(ctx, method, tgt, body, ro, maxAttempts)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, NewNetworkError("circuit breaker open", err)
		}
		return nil, err
	}
	return result.(*Result), nil
}

// attempts performs up to maxAttempts sequential calls, backing off
// exponentially before attempts 2..n and retrying only transient failure
// classes. The last failure propagates unchanged on exhaustion.
func (c *Client) attempts(ctx context.Context, method string, tgt *target, body []byte, ro *requestOptions, maxAttempts int) (*Result, error) {
	for attempt := 1; ; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, c.backoffDelay(attempt)); err != nil {
				return nil, err
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		// Headers are rebuilt per attempt so a replay after refresh
		// carries the new token.
		headers := c.buildHeaders(ctx, tgt.path, ro, tgt.sanitize)

		res, err := c.dispatch(ctx, method, tgt.url, headers, body, ro.timeout)
		if err == nil {
			return res, nil
		}
		if attempt >= maxAttempts || !isRetryable(err) {
			return nil, err
		}
		c.log.Warn().
			Err(err).
			Int("attempt", attempt).
			Str("url", tgt.url).
			Msg("retrying after transient failure")
	}
}

// dispatch performs exactly one network attempt. The effective deadline is
// the per-call timeout override or the client default, composed with the
// caller's context: whichever fires first aborts the transport call.
func (c *Client) dispatch(ctx context.Context, method, targetURL string, headers map[string]string, body []byte, timeout time.Duration) (*Result, error) {
	if timeout <= 0 {
		timeout = c.timeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := nethttp.NewRequestWithContext(attemptCtx, method, targetURL, reader)
	if err != nil {
		return nil, NewNetworkError("failed to create HTTP request", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	c.callCount.Add(1)
	c.logRequest(method, targetURL, headers, body)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			// Caller-supplied cancellation propagates untyped.
			return nil, ctx.Err()
		case attemptCtx.Err() != nil:
			return nil, NewTimeoutError("request timeout", timeout)
		default:
			return nil, NewNetworkError("request execution failed", err)
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewNetworkError("failed to read response body", err)
	}

	c.logResponse(resp.StatusCode, time.Since(start), respBody)

	if !IsSuccessStatus(resp.StatusCode) {
		return nil, translateAPIError(resp.StatusCode, respBody)
	}
	return newResult(resp.StatusCode, resp.Header, respBody), nil
}

// backoffDelay returns the wait before the given attempt (n >= 2):
// baseDelay * 2^(n-2).
func (c *Client) backoffDelay(attempt int) time.Duration {
	shift := attempt - 2
	if shift < 0 {
		shift = 0
	}
	if shift > 20 {
		shift = 20
	}
	return c.baseDelay * time.Duration(1<<shift)
}

// sleep waits for d or until the context is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) notifyAuthError(ctx context.Context, err error) {
	if c.policy.OnAuthError != nil {
		c.policy.OnAuthError(ctx, err)
	}
}

// logRequest logs the outgoing request in the client's standard shape.
func (c *Client) logRequest(method, targetURL string, headers map[string]string, body []byte) {
	event := c.log.Info().
		Str("direction", "outbound").
		Str("method", method).
		Str("url", targetURL)

	if c.logPayloads {
		event = event.Interface("headers", headers)
		if len(body) > 0 {
			event = event.Bytes("body", truncate(body, c.maxPayloadLogBytes))
		}
	}

	event.Msg("REST client request")
}

// logResponse logs the incoming response.
func (c *Client) logResponse(status int, elapsed time.Duration, body []byte) {
	event := c.log.Info().
		Str("direction", "inbound").
		Int("status", status).
		Dur("elapsed", elapsed).
		Int64("call_count", c.callCount.Load())

	if c.logPayloads && len(body) > 0 {
		event = event.Bytes("body", truncate(body, c.maxPayloadLogBytes))
	}

	event.Msg("REST client response")
}

func truncate(b []byte, maxBytes int) []byte {
	if maxBytes <= 0 || len(b) <= maxBytes {
		return b
	}
	return b[:maxBytes]
}
