// Package client is a Go client for the session endpoints, plus the
// client-resident monitors that end a session from the device side.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/youthorg/admingate/internal/domain"
	"github.com/youthorg/admingate/internal/security"
)

// APIError is a non-2xx envelope returned by the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// IsRevoked reports whether err says the session no longer exists server-side.
func IsRevoked(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == "SESSION_REVOKED"
}

type Session struct {
	domain.SessionRecord
	IsCurrent bool `json:"isCurrent"`
	IsStale   bool `json:"isStale"`
}

type LoginResult struct {
	Session   domain.SessionToken `json:"session"`
	ExpiresAt time.Time           `json:"expiresAt"`
}

type Client struct {
	baseURL *url.URL
	http    *http.Client

	mu    sync.RWMutex
	token string
}

func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	// Redirects carry meaning (revoked landing), so they are surfaced, not followed.
	hc := *httpClient
	hc.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	return &Client{baseURL: u, http: &hc}, nil
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Login(ctx context.Context, credential string, loc *domain.Location) (*LoginResult, error) {
	body := map[string]any{"credential": credential}
	if !loc.IsZero() {
		body["location"] = loc
	}
	var out LoginResult
	resp, err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &out)
	if err != nil {
		return nil, err
	}
	for _, ck := range resp.Cookies() {
		if ck.Name == security.SessionCookieName && ck.Value != "" {
			c.SetToken(ck.Value)
		}
	}
	return &out, nil
}

// Logout always drops the local token, even when the call fails.
func (c *Client) Logout(ctx context.Context, loc *domain.Location) error {
	var body any
	if !loc.IsZero() {
		body = map[string]any{"location": loc}
	}
	_, err := c.do(ctx, http.MethodPost, "/api/auth/logout", body, nil)
	c.SetToken("")
	return err
}

func (c *Client) SessionStatus(ctx context.Context) (bool, error) {
	var out struct {
		Valid bool `json:"valid"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/api/auth/session-status", nil, &out); err != nil {
		return false, err
	}
	return out.Valid, nil
}

func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	var out struct {
		Sessions []Session `json:"sessions"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/api/admin/sessions", nil, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

func (c *Client) RevokeSession(ctx context.Context, sessionID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/admin/sessions?sessionId="+url.QueryEscape(sessionID), nil, nil)
	return err
}

func (c *Client) UpdateLocation(ctx context.Context, sessionID string, loc domain.Location) (*domain.SessionRecord, error) {
	var out domain.SessionRecord
	path := "/api/admin/sessions/" + url.PathEscape(sessionID) + "/location"
	if _, err := c.do(ctx, http.MethodPatch, path, loc, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Do sends an authenticated request to an arbitrary API path and decodes the
// envelope data into out when it is non-nil.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) (int, error) {
	resp, err := c.do(ctx, method, path, body, out)
	if resp != nil {
		return resp.StatusCode, err
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status, err
	}
	return 0, err
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) (*http.Response, error) {
	rel, err := url.Parse(path)
	if err != nil {
		return nil, err
	}
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.ResolveReference(rel).String(), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNoContent {
		return resp, nil
	}
	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		return resp, &APIError{Status: resp.StatusCode, Code: "REDIRECT", Message: resp.Header.Get("Location")}
	}
	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&env); err != nil {
		return resp, fmt.Errorf("decode response (%s): %w", resp.Status, err)
	}
	if resp.StatusCode >= 400 || !env.Success {
		apiErr := &APIError{Status: resp.StatusCode, Code: "UNKNOWN"}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return resp, apiErr
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return resp, fmt.Errorf("decode data: %w", err)
		}
	}
	return resp, nil
}
