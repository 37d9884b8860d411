// Package control implements the thin HTTP operations mandated by the
// server's auth and sandbox-lifecycle API surface. Every operation here
// is a single request/response pair; none carries channel or transport
// state (§4.10).
package control

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/computesdk/computesdk-sub001/httpapi"
)

// Client issues the auth and sandbox-lifecycle calls.
type Client struct {
	http *httpapi.Client
}

// New wraps an httpapi.Client with the auth/sandbox operation set.
func New(http *httpapi.Client) *Client { return &Client{http: http} }

// SessionToken is a short-lived credential minted for a sandbox session.
type SessionToken struct {
	ID        string    `json:"id"`
	Token     string    `json:"token,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// CreateSessionToken mints a session token. Requires an access token.
func (c *Client) CreateSessionToken(ctx context.Context) (*SessionToken, error) {
	var out SessionToken
	if err := c.http.Request(ctx, "/auth/session_tokens", httpapi.RequestOptions{Method: http.MethodPost, Body: struct{}{}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSessionTokens lists session tokens issued under the access token.
func (c *Client) ListSessionTokens(ctx context.Context) ([]SessionToken, error) {
	var out []SessionToken
	if err := c.http.Request(ctx, "/auth/session_tokens", httpapi.RequestOptions{Method: http.MethodGet}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSessionToken retrieves a single session token by id.
func (c *Client) GetSessionToken(ctx context.Context, id string) (*SessionToken, error) {
	var out SessionToken
	if err := c.http.Request(ctx, "/auth/session_tokens/"+id, httpapi.RequestOptions{Method: http.MethodGet}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RevokeSessionToken deletes a session token by id.
func (c *Client) RevokeSessionToken(ctx context.Context, id string) error {
	return c.http.Request(ctx, "/auth/session_tokens/"+id, httpapi.RequestOptions{Method: http.MethodDelete}, nil)
}

// MagicLink is a short-lived, one-time URL that mints a session token
// and sets a cookie on first visit; it expires on first use or after
// five minutes, per §4.10.
type MagicLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateMagicLink mints a magic link.
func (c *Client) CreateMagicLink(ctx context.Context) (*MagicLink, error) {
	var out MagicLink
	if err := c.http.Request(ctx, "/auth/magic-links", httpapi.RequestOptions{Method: http.MethodPost, Body: struct{}{}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AuthStatus reports whether the caller is authenticated.
type AuthStatus struct {
	Authenticated bool   `json:"authenticated"`
	Scope         string `json:"scope,omitempty"`
}

// Status reports authentication status; unauthenticated access is allowed.
func (c *Client) Status(ctx context.Context) (*AuthStatus, error) {
	var out AuthStatus
	if err := c.http.Request(ctx, "/auth/status", httpapi.RequestOptions{Method: http.MethodGet}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AuthInfo describes the deployment's auth configuration; unauthenticated access is allowed.
type AuthInfo struct {
	Provider string `json:"provider,omitempty"`
}

// Info retrieves auth deployment info; unauthenticated access is allowed.
func (c *Client) Info(ctx context.Context) (*AuthInfo, error) {
	var out AuthInfo
	if err := c.http.Request(ctx, "/auth/info", httpapi.RequestOptions{Method: http.MethodGet}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Sandbox describes a sandbox resource.
type Sandbox struct {
	Subdomain string    `json:"subdomain"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateSandboxOptions configures sandbox creation.
type CreateSandboxOptions struct {
	Template string `json:"template,omitempty"`
}

// CreateSandbox creates a new sandbox.
func (c *Client) CreateSandbox(ctx context.Context, opts CreateSandboxOptions) (*Sandbox, error) {
	var out Sandbox
	if err := c.http.Request(ctx, "/sandboxes", httpapi.RequestOptions{Method: http.MethodPost, Body: opts}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSandboxes lists sandboxes visible to the caller.
func (c *Client) ListSandboxes(ctx context.Context) ([]Sandbox, error) {
	var out []Sandbox
	if err := c.http.Request(ctx, "/sandboxes", httpapi.RequestOptions{Method: http.MethodGet}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSandbox retrieves a sandbox by subdomain.
func (c *Client) GetSandbox(ctx context.Context, subdomain string) (*Sandbox, error) {
	var out Sandbox
	if err := c.http.Request(ctx, "/sandboxes/"+subdomain, httpapi.RequestOptions{Method: http.MethodGet}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteSandbox deletes a sandbox, optionally deleting its files.
func (c *Client) DeleteSandbox(ctx context.Context, subdomain string, deleteFiles bool) error {
	path := "/sandboxes/" + subdomain + "?delete_files=" + strconv.FormatBool(deleteFiles)
	return c.http.Request(ctx, path, httpapi.RequestOptions{Method: http.MethodDelete}, nil)
}

// SignalStatus reports whether the signal service is active for a sandbox.
type SignalStatus struct {
	Active bool `json:"active"`
}

// StartSignals starts the signal service.
func (c *Client) StartSignals(ctx context.Context) error {
	return c.http.Request(ctx, "/signals/start", httpapi.RequestOptions{Method: http.MethodPost, Body: struct{}{}}, nil)
}

// StopSignals stops the signal service.
func (c *Client) StopSignals(ctx context.Context) error {
	return c.http.Request(ctx, "/signals/stop", httpapi.RequestOptions{Method: http.MethodPost, Body: struct{}{}}, nil)
}

// SignalsStatus reports whether the signal service is currently running.
func (c *Client) SignalsStatus(ctx context.Context) (*SignalStatus, error) {
	var out SignalStatus
	if err := c.http.Request(ctx, "/signals/status", httpapi.RequestOptions{Method: http.MethodGet}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PreviewURL derives the externally addressable URL for a port exposed
// by a sandbox, per §4.5: `<first-label>-<port>.<preview-base>`.
func PreviewURL(sandboxHost string, port int, previewBase string) string {
	firstLabel := sandboxHost
	if i := strings.Index(sandboxHost, "."); i >= 0 {
		firstLabel = sandboxHost[:i]
	}
	return "https://" + firstLabel + "-" + strconv.Itoa(port) + "." + previewBase
}
