package supabase

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/xid"
	"golang.org/x/oauth2"

	"github.com/avoronov/pasteboard/internal/backend"
	"github.com/avoronov/pasteboard/internal/client/models"
)

// authResponse covers both token grants and bare signups (no autoconfirm).
type authResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	User         *models.User `json:"user"`

	// set when the response is a bare user object
	Id    string `json:"id"`
	Email string `json:"email"`
}

func (r *authResponse) session() *models.Session {
	if r.AccessToken == "" {
		return nil
	}
	exp := time.Time{}
	if r.ExpiresAt > 0 {
		exp = time.Unix(r.ExpiresAt, 0)
	} else if r.ExpiresIn > 0 {
		exp = time.Now().Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	return &models.Session{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    exp,
		User:         r.User,
	}
}

// Events exposes the auth-state notification channel.
func (c *Client) Events() <-chan backend.AuthEvent {
	return c.events
}

// emit delivers an auth event without ever blocking the caller; if nobody is
// draining the channel the event is dropped.
func (c *Client) emit(kind backend.AuthEventKind, s *models.Session) {
	select {
	case c.events <- backend.AuthEvent{Kind: kind, Session: s}:
	default:
		c.log.Warn(context.Background(), "auth event dropped", "kind", string(kind))
	}
}

// RestoreSession seeds the client with a session rehydrated from persisted
// state. No event is emitted; validation happens on the next CurrentSession.
func (c *Client) RestoreSession(s *models.Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

func (c *Client) setSession(s *models.Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

// CurrentSession returns the live session, transparently refreshing an
// expired one. (nil, nil) means nobody is signed in.
func (c *Client) CurrentSession(ctx context.Context) (*models.Session, error) {
	c.mu.RLock()
	s := c.session
	c.mu.RUnlock()

	if s == nil {
		return nil, nil
	}
	if s.Valid(time.Now()) {
		return s, nil
	}
	if s.RefreshToken == "" {
		c.setSession(nil)
		return nil, nil
	}

	refreshed, err := c.refreshSession(ctx, s.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("session refresh failed: %w", err)
	}
	return refreshed, nil
}

func (c *Client) refreshSession(ctx context.Context, refreshToken string) (*models.Session, error) {
	var resp authResponse
	q := url.Values{"grant_type": {"refresh_token"}}
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.do(ctx, "POST", "/auth/v1/token", q, nil, body, &resp); err != nil {
		return nil, err
	}
	s := resp.session()
	c.setSession(s)
	c.emit(backend.AuthEventTokenRefreshed, s)
	return s, nil
}

// CurrentUser fetches the identity behind the current session.
func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, "GET", "/auth/v1/user", nil, nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	var resp authResponse
	q := url.Values{"grant_type": {"password"}}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, "POST", "/auth/v1/token", q, nil, body, &resp); err != nil {
		return nil, fmt.Errorf("sign-in failed: %w", err)
	}
	s := resp.session()
	c.setSession(s)
	c.emit(backend.AuthEventSignedIn, s)
	return s, nil
}

// FederatedSignInURL builds the OAuth redirect URL for the given provider.
func (c *Client) FederatedSignInURL(provider, redirectTo string) (string, error) {
	if provider == "" {
		return "", fmt.Errorf("provider is required")
	}
	cfg := oauth2.Config{
		Endpoint:    oauth2.Endpoint{AuthURL: c.baseURL + "/auth/v1/authorize"},
		RedirectURL: redirectTo,
	}
	return cfg.AuthCodeURL(xid.New().String(), oauth2.SetAuthURLParam("provider", provider)), nil
}

func (c *Client) SignUp(ctx context.Context, email, password, name string) (*models.Session, error) {
	var resp authResponse
	body := map[string]any{"email": email, "password": password}
	if name != "" {
		body["data"] = map[string]string{"name": name}
	}
	if err := c.do(ctx, "POST", "/auth/v1/signup", nil, nil, body, &resp); err != nil {
		return nil, fmt.Errorf("sign-up failed: %w", err)
	}

	s := resp.session()
	if s == nil {
		// email confirmation pending: no session yet
		return nil, nil
	}
	c.setSession(s)
	c.emit(backend.AuthEventSignedIn, s)
	return s, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	err := c.do(ctx, "POST", "/auth/v1/logout", nil, nil, nil, nil)
	// local sign-out happens regardless; the token may already be dead
	c.setSession(nil)
	c.emit(backend.AuthEventSignedOut, nil)
	return err
}

func (c *Client) SendPasswordReset(ctx context.Context, email, redirectTo string) error {
	var q url.Values
	if redirectTo != "" {
		q = url.Values{"redirect_to": {redirectTo}}
	}
	body := map[string]string{"email": email}
	return c.do(ctx, "POST", "/auth/v1/recover", q, nil, body, nil)
}

func (c *Client) UpdatePassword(ctx context.Context, newPassword string) error {
	body := map[string]string{"password": newPassword}
	return c.do(ctx, "PUT", "/auth/v1/user", nil, nil, body, nil)
}
