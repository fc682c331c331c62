package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/homevista/brokerage/client/tokenstore"
)

// User is the profile snapshot the API returns and the client caches.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Username       string    `json:"username"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Phone          string    `json:"phone,omitempty"`
	Role           string    `json:"role"`
	ProfilePicture string    `json:"profile_picture,omitempty"`
	IsActive       bool      `json:"is_active"`
	EmailVerified  bool      `json:"email_verified"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// RegisterInput holds the fields for account creation.
type RegisterInput struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role,omitempty"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

type loginResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type availabilityResponse struct {
	Available bool `json:"available"`
}

// Register creates a new account. The user must verify their email before
// they can log in.
func (c *Client) Register(ctx context.Context, input RegisterInput) (*User, error) {
	var user User
	if err := c.postPublicJSON(ctx, "/auth/register", input, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login authenticates with an email or username. rememberMe selects the
// durable token scope so the session survives restarts; otherwise tokens stay
// in memory. Both tokens and the profile snapshot are written atomically from
// the caller's point of view: a failed login leaves the store untouched.
func (c *Client) Login(ctx context.Context, identifier, password string, rememberMe bool) (*User, error) {
	var out loginResponse
	err := c.postPublicJSON(ctx, "/auth/login", loginRequest{
		Identifier: identifier,
		Password:   password,
		RememberMe: rememberMe,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.AccessToken == "" || out.RefreshToken == "" || out.User == nil {
		return nil, fmt.Errorf("login response missing tokens")
	}

	scope := tokenstore.ScopeSession
	if rememberMe {
		scope = tokenstore.ScopeDurable
	}
	c.tokens.Set(tokenstore.KeyAccessToken, out.AccessToken, scope)
	c.tokens.Set(tokenstore.KeyRefreshToken, out.RefreshToken, scope)
	if err := c.tokens.SetJSON(tokenstore.KeyUser, out.User, scope); err != nil {
		c.logger.Warn("cache user profile", slog.String("error", err.Error()))
	}

	return out.User, nil
}

// Logout revokes the refresh token server-side (best effort) and always
// clears local session state.
func (c *Client) Logout(ctx context.Context) {
	if refreshToken, ok := c.tokens.Get(tokenstore.KeyRefreshToken); ok {
		req, err := c.newJSONRequest(ctx, http.MethodPost, "/auth/logout", refreshRequest{RefreshToken: refreshToken})
		if err == nil {
			if err := c.doPublic(ctx, req, nil); err != nil {
				c.logger.Debug("server-side logout failed", slog.String("error", err.Error()))
			}
		}
	}
	c.tokens.Clear()
}

// Refresh exchanges the stored refresh token for a new pair, preserving the
// storage scope the session was created with. Any failure tears the session
// down; refresh is terminal, never partially retried.
func (c *Client) Refresh(ctx context.Context) error {
	_, err := c.refresh(ctx)
	return err
}

// refresh coalesces concurrent refresh attempts into one network call.
func (c *Client) refresh(ctx context.Context) (string, error) {
	token, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		refreshToken, ok := c.tokens.Get(tokenstore.KeyRefreshToken)
		if !ok {
			c.teardownSession()
			return "", ErrSessionExpired
		}

		scope, _ := c.tokens.ScopeOf(tokenstore.KeyRefreshToken)

		var out tokenPairResponse
		if err := c.postPublicJSON(ctx, "/auth/refresh", refreshRequest{RefreshToken: refreshToken}, &out); err != nil {
			c.teardownSession()
			return "", fmt.Errorf("refresh session: %w", err)
		}
		if out.AccessToken == "" || out.RefreshToken == "" {
			c.teardownSession()
			return "", fmt.Errorf("refresh response missing tokens")
		}

		c.tokens.Set(tokenstore.KeyAccessToken, out.AccessToken, scope)
		c.tokens.Set(tokenstore.KeyRefreshToken, out.RefreshToken, scope)
		return out.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

// teardownSession clears local state and fires the session-expired hook.
func (c *Client) teardownSession() {
	c.tokens.Clear()
	if c.onSessionExpired != nil {
		c.onSessionExpired()
	}
}

// CurrentUser returns the cached profile snapshot, if any.
func (c *Client) CurrentUser() (*User, bool) {
	var user User
	if !c.tokens.GetJSON(tokenstore.KeyUser, &user) {
		return nil, false
	}
	return &user, true
}

// IsAuthenticated reports whether a non-expired access token is stored. The
// token is decoded without signature verification; the server remains the
// authority, this only avoids sending requests that are certain to fail.
// A stored token that is expired or undecodable marks the session as over:
// it is torn down lazily here rather than left to rot in the store.
func (c *Client) IsAuthenticated() bool {
	token, ok := c.tokens.Get(tokenstore.KeyAccessToken)
	if !ok {
		return false
	}
	claims, err := decodeClaims(token)
	if err != nil || !claims.expiresAt().After(time.Now()) {
		c.teardownSession()
		return false
	}
	return true
}

// ValidateSession asks the server whether the current session is still valid
// and returns the fresh profile. Runs through the normal 401-refresh path.
func (c *Client) ValidateSession(ctx context.Context) (*User, error) {
	if !c.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	var user User
	if err := c.getJSON(ctx, "/auth/session", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ForgotPassword requests a password-reset email. The server responds
// identically whether or not the address exists.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.postPublicJSON(ctx, "/auth/forgot-password", map[string]string{"email": email}, nil)
}

// ResetPassword completes a password reset with the emailed token.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	return c.postPublicJSON(ctx, "/auth/reset-password", map[string]string{
		"token":        token,
		"new_password": newPassword,
	}, nil)
}

// ChangePassword rotates the password of the logged-in user.
func (c *Client) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	return c.postJSON(ctx, "/auth/change-password", map[string]string{
		"current_password": currentPassword,
		"new_password":     newPassword,
	}, nil)
}

// VerifyEmail confirms an address with the emailed token.
func (c *Client) VerifyEmail(ctx context.Context, token string) error {
	return c.postPublicJSON(ctx, "/auth/verify-email", map[string]string{"token": token}, nil)
}

// CheckEmail reports whether an email address is free to register.
func (c *Client) CheckEmail(ctx context.Context, email string) (bool, error) {
	return c.checkAvailability(ctx, "/auth/check-email?email="+url.QueryEscape(email))
}

// CheckUsername reports whether a username is free to register.
func (c *Client) CheckUsername(ctx context.Context, username string) (bool, error) {
	return c.checkAvailability(ctx, "/auth/check-username?username="+url.QueryEscape(username))
}

func (c *Client) checkAvailability(ctx context.Context, path string) (bool, error) {
	req, err := c.newJSONRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return false, err
	}
	var out availabilityResponse
	if err := c.doPublic(ctx, req, &out); err != nil {
		return false, err
	}
	return out.Available, nil
}

// tokenClaims is the subset of JWT claims the client inspects.
type tokenClaims struct {
	Subject string  `json:"sub"`
	Role    string  `json:"role"`
	Exp     float64 `json:"exp"`
}

func (t tokenClaims) expiresAt() time.Time {
	return time.Unix(int64(t.Exp), 0)
}

// decodeClaims extracts the payload of a JWT without verifying its signature.
func decodeClaims(token string) (*tokenClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed token")
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decode token payload: %w", err)
	}
	var claims tokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("parse token claims: %w", err)
	}
	return &claims, nil
}

// StartExpiryWatcher refreshes the access token in the background whenever
// its remaining lifetime drops below lowWater. It runs until ctx is canceled.
// Failures are logged, never surfaced; the next authenticated request will
// recover through the 401-refresh path.
func (c *Client) StartExpiryWatcher(ctx context.Context, period, lowWater time.Duration) {
	if period <= 0 {
		period = 12 * time.Hour
	}
	if lowWater <= 0 {
		lowWater = 5 * time.Minute
	}

	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.refreshIfExpiring(ctx, lowWater)
			}
		}
	}()
}

func (c *Client) refreshIfExpiring(ctx context.Context, lowWater time.Duration) {
	token, ok := c.tokens.Get(tokenstore.KeyAccessToken)
	if !ok {
		return
	}
	claims, err := decodeClaims(token)
	if err != nil {
		return
	}
	if time.Until(claims.expiresAt()) > lowWater {
		return
	}
	if _, err := c.refresh(ctx); err != nil {
		c.logger.Warn("background token refresh failed", slog.String("error", err.Error()))
	}
}
