package client

import (
	"context"
	"encoding/json"
	nethttp "net/http"
)

const refreshPath = "/auth/refresh"

// recoverAuth handles a 401 on a non-auth path. With refresh enabled it
// performs a single-flight token refresh and replays the original request
// exactly once; the replay is neither retried nor re-refreshed. When the
// refresh resolves "not refreshed", or the replay hits 401 again, the
// failure is unrecoverable: credentials are cleared, the policy callback
// fires, and the caller receives an auth error.
func (c *Client) recoverAuth(ctx context.Context, method string, tgt *target, body []byte, ro *requestOptions, cause error) (*Result, error) {
	if c.policy.RefreshEnabled && c.refreshCredentials(ctx) {
		res, err := c.execute(ctx, method, tgt, body, ro, 1)
		if err == nil {
			return res, nil
		}
		if !IsAPIStatus(err, nethttp.StatusUnauthorized) {
			// The replay failed for an unrelated reason; surface it as-is.
			return nil, err
		}
		cause = err
	}

	c.store.Clear(ctx)
	authErr := NewAuthError("authentication failed", cause)
	c.notifyAuthError(ctx, authErr)
	return nil, authErr
}

// refreshCredentials coordinates the token refresh: concurrent callers
// that observe a refresh already in flight share its outcome instead of
// issuing a second call, and the flight is cleared on completion so a
// future 401 can trigger a fresh attempt.
func (c *Client) refreshCredentials(ctx context.Context) bool {
	// The flight's outcome is shared by every waiter, so it must not die
	// with the caller that happened to start it: detach its cancellation
	// while keeping the caller's values (tenant, trace ids).
	flightCtx := context.WithoutCancel(ctx)
	outcome, _, _ := c.refresh.Do("refresh", func() (any, error) {
		return c.performRefresh(flightCtx), nil
	})
	refreshed, _ := outcome.(bool)
	return refreshed
}

// performRefresh executes one refresh call. Any failure resolves to
// "not refreshed" without mutating credentials.
func (c *Client) performRefresh(ctx context.Context) bool {
	refreshToken := c.store.RefreshToken(ctx)
	if refreshToken == "" {
		return false
	}

	body, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return false
	}

	ro := &requestOptions{}
	tgt, err := c.buildTarget(ctx, refreshPath, ro)
	if err != nil {
		return false
	}
	headers := c.buildHeaders(ctx, tgt.path, ro, false)

	// One attempt, no retries: a failed refresh must resolve quickly so
	// waiting requests can fail together.
	res, err := c.dispatch(ctx, nethttp.MethodPost, tgt.url, headers, body, 0)
	if err != nil {
		c.log.Warn().Err(err).Msg("token refresh failed")
		return false
	}

	var payload struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := res.Decode(&payload); err != nil || payload.AccessToken == "" {
		c.log.Warn().Msg("token refresh returned unusable payload")
		return false
	}

	c.store.SetToken(ctx, payload.AccessToken)
	if payload.RefreshToken != "" {
		c.store.SetRefreshToken(ctx, payload.RefreshToken)
	}
	return true
}
