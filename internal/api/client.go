// Package api implements the HTTP client for the No Drake in the House
// backend.
//
// Every request speaks the backend's response envelope and carries the
// session's bearer token. Idempotent requests that fail on the network or
// with a 5xx are retried with exponential backoff; a 401 triggers exactly
// one token refresh before the original request is replayed.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nodrake/ndh/internal/shared"
)

const refreshPath = "/api/v1/auth/refresh"

// SessionStore supplies tokens for request authorization and receives the
// results of refresh attempts. The auth package's file-backed store
// implements it.
type SessionStore interface {
	AccessToken() string
	RefreshToken() string
	StoreTokens(pair TokenPair) error
	// Logout clears the session. The client calls it when a refresh fails
	// or a replayed request is still unauthorized.
	Logout() error
}

// Doer is the request surface exposed to typed services.
type Doer interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
}

// Config carries client construction settings, usually derived from the
// [api] config section.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
}

// Client is the backend HTTP client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    SessionStore
	logger     *log.Logger
	maxRetries int
	backoff    time.Duration

	refreshMu sync.Mutex
}

// NewClient creates a backend client. The session store may be nil for
// unauthenticated use; the logger defaults to stderr.
func NewClient(cfg Config, session SessionStore, logger *log.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:3000"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		session:    session,
		logger:     logger,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.Backoff,
	}
}

// Get performs a GET request and decodes the envelope's data into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post performs a POST request with a JSON body and decodes the envelope's
// data into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Put performs a PUT request with a JSON body and decodes the envelope's
// data into out.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

// Delete performs a DELETE request and decodes the envelope's data into out.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, out)
}

// do runs the request loop: send, then retry on network errors and 5xx for
// idempotent GETs, with at most one refresh-and-replay cycle on 401.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = data
	}

	maxAttempts := 1
	if method == http.MethodGet {
		maxAttempts = c.maxRetries
	}

	refreshed := false
	for attempt := 1; ; attempt++ {
		status, respBody, err := c.send(ctx, method, path, payload)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if attempt < maxAttempts {
				c.logger.Debug("request failed, retrying", "method", method, "path", path, "attempt", attempt, "err", err)
				if err := c.wait(ctx, attempt); err != nil {
					return err
				}
				continue
			}
			return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}

		switch {
		case status == http.StatusUnauthorized && path != refreshPath:
			if refreshed || c.session == nil {
				return c.forceLogout(&Error{Status: status, Message: messageFrom(respBody)})
			}
			refreshed = true
			if err := c.refreshTokens(ctx); err != nil {
				return c.forceLogout(err)
			}
			c.logger.Debug("token refreshed, replaying request", "method", method, "path", path)
			continue

		case status >= 500:
			if attempt < maxAttempts {
				c.logger.Debug("server error, retrying", "method", method, "path", path, "attempt", attempt, "status", status)
				if err := c.wait(ctx, attempt); err != nil {
					return err
				}
				continue
			}
			return &Error{Status: status, Message: messageFrom(respBody)}

		default:
			return decodeResult(status, respBody, out)
		}
	}
}

// send performs one HTTP round trip and returns the status and body.
func (c *Client) send(ctx context.Context, method, path string, payload []byte) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session != nil {
		if token := c.session.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}

// wait sleeps for the exponential backoff delay of the given attempt, or
// returns early when the context is cancelled.
func (c *Client) wait(ctx context.Context, attempt int) error {
	delay := c.backoff * time.Duration(1<<(attempt-1))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// refreshTokens exchanges the refresh token for a new pair. Concurrent
// callers share one flight: whoever wins the lock refreshes, the rest see
// the updated access token and return immediately.
func (c *Client) refreshTokens(ctx context.Context) error {
	stale := c.session.AccessToken()

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if c.session.AccessToken() != stale {
		return nil
	}

	refreshToken := c.session.RefreshToken()
	if refreshToken == "" {
		return shared.ErrNoRefreshToken
	}

	payload, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return fmt.Errorf("failed to encode refresh request: %w", err)
	}

	status, respBody, err := c.send(ctx, http.MethodPost, refreshPath, payload)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	var pair TokenPair
	if err := decodeResult(status, respBody, &pair); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	if pair.AccessToken == "" {
		return fmt.Errorf("%w: empty access token", shared.ErrRefreshFailed)
	}

	return c.session.StoreTokens(pair)
}

// forceLogout clears the session after an unrecoverable auth failure and
// returns the failure wrapped in the auth sentinel.
func (c *Client) forceLogout(cause error) error {
	if c.session != nil {
		if err := c.session.Logout(); err != nil {
			c.logger.Warn("failed to clear session", "err", err)
		}
	}
	c.logger.Warn("session expired, logged out", "cause", cause)
	return fmt.Errorf("%w: %v", shared.ErrTokenExpired, cause)
}

// decodeResult interprets a non-retried response: unwrap the envelope,
// convert failures into *Error, and decode data into out.
func decodeResult(status int, body []byte, out any) error {
	if len(body) == 0 {
		if status >= 200 && status < 300 {
			return nil
		}
		return &Error{Status: status}
	}

	env, err := decodeEnvelope(status, body)
	if err != nil {
		return err
	}

	if status < 200 || status >= 300 || !env.Success {
		if status >= 200 && status < 300 {
			status = http.StatusBadRequest
		}
		return &Error{Status: status, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%w: failed to decode response data: %v", shared.ErrAPIRequest, err)
		}
	}

	return nil
}

// messageFrom extracts the envelope message from a failure body, tolerating
// bodies that are not valid envelopes.
func messageFrom(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	return env.Message
}
