package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// expirySkew treats tokens this close to expiry as already expired.
const expirySkew = 30 * time.Second

// Login exchanges credentials for a bearer token and remembers both.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	c.mu.Lock()
	c.creds.Username, c.creds.Password = username, password
	c.mu.Unlock()
	return c.relogin(ctx)
}

// Token returns the stored token without validating it.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// AuthToken returns a usable token. An expired or missing token is
// replaced by logging in with the stored credentials.
func (c *Client) AuthToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	if token != "" && !c.expired(token) {
		return token, nil
	}
	return c.relogin(ctx)
}

func (c *Client) expired(token string) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		// Opaque token: let the server decide.
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !c.now().Add(expirySkew).Before(exp.Time)
}

func (c *Client) relogin(ctx context.Context) (string, error) {
	c.mu.Lock()
	user, pass := c.creds.Username, c.creds.Password
	c.mu.Unlock()

	if user == "" || pass == "" {
		return "", ErrNoAuth
	}

	form := url.Values{"username": {user}, "password": {pass}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/auth/login",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("login: %w", mapTransportError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", fmt.Errorf("login: %w", ErrUnauthorized)
	}
	if err := checkStatus(resp); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}

	var r struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	if r.AccessToken == "" {
		return "", errors.New("login: empty token")
	}

	c.mu.Lock()
	c.token = r.AccessToken
	c.mu.Unlock()
	c.logger.Info("logged in", "user", user)
	return r.AccessToken, nil
}
