package client

import "context"

// Session holds the credentials returned by a successful login.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TenantID     string `json:"tenant_id,omitempty"`
}

// Login authenticates with email and password and stores the returned
// tokens (and tenant id, when the account is bound to one) in the
// credential store.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	res, err := c.Post(ctx, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	var session Session
	if err := res.Decode(&session); err != nil {
		return nil, err
	}
	if session.AccessToken == "" {
		return nil, NewAuthError("login response missing access token", nil)
	}

	c.store.SetToken(ctx, session.AccessToken)
	if session.RefreshToken != "" {
		c.store.SetRefreshToken(ctx, session.RefreshToken)
	}
	if session.TenantID != "" {
		c.store.SetTenantID(ctx, session.TenantID)
	}
	return &session, nil
}

// Logout notifies the API best-effort and always clears the stored
// credentials, whatever the call's outcome.
func (c *Client) Logout(ctx context.Context) {
	if _, err := c.Post(ctx, "/auth/logout", nil); err != nil {
		c.log.Warn().Err(err).Msg("logout request failed")
	}
	c.store.Clear(ctx)
}
