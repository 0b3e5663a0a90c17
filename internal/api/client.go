// Package api is the client for the streaming backend: authentication,
// stream and cover URLs, play history, and library reads.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors.
var (
	ErrNoAuth       = errors.New("not authenticated")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrTemporary    = errors.New("temporary server failure")
)

// StatusError is returned for unexpected HTTP statuses.
type StatusError struct {
	Method string
	Path   string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: http status %d", e.Method, e.Path, e.Code)
}

const defaultTimeout = 15 * time.Second

// Config holds connection settings.
type Config struct {
	BaseURL  string
	Username string
	Password string
}

// Client talks to the backend. It is safe for concurrent use.
type Client struct {
	base   string
	http   *http.Client
	logger *slog.Logger

	mu    sync.Mutex
	creds Config
	token string
	now   func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithToken seeds the client with an existing bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a client for cfg.BaseURL. No request is made until needed.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		base:   strings.TrimRight(cfg.BaseURL, "/"),
		http:   &http.Client{Timeout: defaultTimeout},
		logger: slog.Default(),
		creds:  cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized backend address.
func (c *Client) BaseURL() string { return c.base }

// requestFunc builds a request. It runs again for the retry after a
// re-login, so bodies must not be shared between calls.
type requestFunc func(ctx context.Context) (*http.Request, error)

func (c *Client) jsonRequest(method, path string, body any) requestFunc {
	return func(ctx context.Context) (*http.Request, error) {
		var r io.Reader
		if body != nil {
			b, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("encode %s: %w", path, err)
			}
			r = bytes.NewReader(b)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
		if err != nil {
			return nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}
}

// do sends an authenticated request. A 401 triggers one re-login and retry.
func (c *Client) do(ctx context.Context, build requestFunc) (*http.Response, error) {
	token, err := c.AuthToken(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := c.send(ctx, build, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	resp.Body.Close()

	c.logger.Debug("token rejected, logging in again")
	token, err = c.relogin(ctx)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, build, token)
}

func (c *Client) send(ctx context.Context, build requestFunc, token string) (*http.Response, error) {
	req, err := build(ctx)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", uuid.NewString())
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, mapTransportError(err)
	}
	return resp, nil
}

// call performs the request and decodes a JSON response into out (if non-nil).
func (c *Client) call(ctx context.Context, build requestFunc, out any) error {
	resp, err := c.do(ctx, build)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", resp.Request.URL.Path, err)
	}
	return nil
}

func getOne[T any](ctx context.Context, c *Client, path string) (T, error) {
	var v T
	err := c.call(ctx, c.jsonRequest(http.MethodGet, path, nil), &v)
	return v, err
}

func checkStatus(resp *http.Response) error {
	switch code := resp.StatusCode; {
	case code < 300:
		return nil
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= 500:
		return ErrTemporary
	default:
		return &StatusError{Method: resp.Request.Method, Path: resp.Request.URL.Path, Code: code}
	}
}

func mapTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTemporary, err)
	}
	return err
}

func pathID(id string) string { return url.PathEscape(id) }
