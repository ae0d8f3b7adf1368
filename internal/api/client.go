package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *envelopeError  `json:"error,omitempty"`
}

type envelopeError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// refreshCall is the shared result concurrent 401 handlers wait on, so the
// refresh endpoint is hit exactly once per expiry.
type refreshCall struct {
	done chan struct{}
	err  error
}

// Client is the REST client for the platform API. Every response is expected
// in the {success, data, error} envelope; non-success envelopes surface as a
// typed *Error.
type Client struct {
	baseURL string
	http    *http.Client

	mu            sync.Mutex
	accessToken   string
	refreshToken  string
	refreshing    *refreshCall
	onSessionLoss func()
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// SetTokens installs the session's token pair (after login or resume).
func (c *Client) SetTokens(access, refresh string) {
	c.mu.Lock()
	c.accessToken = access
	c.refreshToken = refresh
	c.mu.Unlock()
}

// OnSessionLoss registers fn, called once when the server rejects a refresh
// attempt and the session cannot be recovered. Transport and decode failures
// do not count; the refresh retries on the next 401.
func (c *Client) OnSessionLoss(fn func()) {
	c.mu.Lock()
	c.onSessionLoss = fn
	c.mu.Unlock()
}

func (c *Client) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

// do runs one API call. A 401 triggers exactly one deduplicated refresh
// attempt and one retry of the original call; a failed refresh propagates the
// original 401.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	stale := c.AccessToken()
	err := c.once(ctx, method, path, body, out)
	apiErr, ok := err.(*Error)
	if !ok || apiErr.Status != http.StatusUnauthorized {
		return err
	}

	c.mu.Lock()
	hasRefresh := c.refreshToken != ""
	c.mu.Unlock()
	if !hasRefresh {
		return err
	}

	if rerr := c.refreshAccess(ctx, stale); rerr != nil {
		return err
	}
	return c.once(ctx, method, path, body, out)
}

// once runs a single request/response cycle with no retry.
func (c *Client) once(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &Error{Code: CodeParseError, Message: err.Error()}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Code: CodeNetworkError, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Code: CodeNetworkError, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Code: CodeNetworkError, Status: resp.StatusCode, Message: err.Error()}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &Error{Code: CodeParseError, Status: resp.StatusCode, Message: "response is not valid JSON"}
	}

	if !env.Success {
		apiErr := &Error{Code: http.StatusText(resp.StatusCode), Status: resp.StatusCode}
		if env.Error != nil {
			if env.Error.Code != "" {
				apiErr.Code = env.Error.Code
			}
			apiErr.Message = env.Error.Message
			apiErr.Details = env.Error.Details
		}
		return apiErr
	}

	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &Error{Code: CodeParseError, Status: resp.StatusCode, Message: err.Error()}
		}
	}
	return nil
}

// refreshAccess rotates the access token. Concurrent callers share one
// in-flight refresh and wait on its result; a caller whose stale token was
// already rotated by an earlier refresh skips the call entirely.
func (c *Client) refreshAccess(ctx context.Context, stale string) error {
	c.mu.Lock()
	if c.accessToken != stale {
		c.mu.Unlock()
		return nil
	}
	if call := c.refreshing; call != nil {
		c.mu.Unlock()
		select {
		case <-call.done:
			return call.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	call := &refreshCall{done: make(chan struct{})}
	c.refreshing = call
	token := c.refreshToken
	c.mu.Unlock()

	var resp struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refreshToken"`
	}
	err := c.once(ctx, http.MethodPost, "/auth/refresh", map[string]string{"refreshToken": token}, &resp)

	c.mu.Lock()
	if err == nil {
		c.accessToken = resp.Token
		if resp.RefreshToken != "" {
			c.refreshToken = resp.RefreshToken
		}
	}
	c.refreshing = nil
	lost := c.onSessionLoss
	c.mu.Unlock()

	if apiErr, ok := err.(*Error); ok &&
		apiErr.Code != CodeNetworkError && apiErr.Code != CodeParseError && lost != nil {
		lost()
	}

	call.err = err
	close(call.done)
	return err
}
