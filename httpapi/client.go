// Package httpapi implements the single request(path, options) surface
// the sandbox control plane and every resource-create call rides on:
// bearer auth, per-instance timeout, and the shared non-2xx/204
// response conventions.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/computesdk/computesdk-sub001/fserrors"
	"github.com/computesdk/computesdk-sub001/internal/contextutil"
	"github.com/computesdk/computesdk-sub001/internal/defaults"
	"github.com/computesdk/computesdk-sub001/internal/version"
)

// userAgent identifies this SDK build to the server, computed once from
// module build info (no -ldflags values are injected for a library).
var userAgent = "computesdk-go/" + version.String("", "", "")

// Client composes the base URL with a request path, attaches bearer
// auth when a token is present, and aborts after a per-instance timeout.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	hc      *http.Client
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithToken sets the bearer token attached to every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout overrides the default per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient overrides the underlying *http.Client (tests substitute
// one pointed at an httptest.Server).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.hc = hc
		}
	}
}

// New builds a Client rooted at baseURL (trailing slash stripped).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: defaults.RequestTimeout,
		hc: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				DialContext:         (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
				MaxIdleConnsPerHost: 8,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token used by subsequent requests.
func (c *Client) SetToken(token string) { c.token = token }

// RequestOptions configures a single call to Request.
type RequestOptions struct {
	Method string // defaults to GET when Body is nil, POST when Body is set
	Body   any    // marshaled as JSON when non-nil
}

// apiError is the shape of a non-2xx JSON error response.
type apiError struct {
	Error string `json:"error"`
}

// Request composes baseURL+path, issues the call, and decodes the JSON
// response into result (which may be nil). A 204 response yields a nil
// decode with no error. Non-2xx responses are parsed for a JSON `error`
// field; failing that, the HTTP status text is used. Paths under
// /auth/ that return 403 get an actionable hint about the stronger
// access token they require.
func (c *Client) Request(ctx context.Context, path string, opts RequestOptions, result any) error {
	method := opts.Method
	if method == "" {
		if opts.Body != nil {
			method = http.MethodPost
		} else {
			method = http.MethodGet
		}
	}

	var bodyReader io.Reader
	if opts.Body != nil {
		raw, err := json.Marshal(opts.Body)
		if err != nil {
			return fserrors.Wrap(fserrors.PathHTTP, fserrors.StageEncode, fserrors.CodeInvalidInput, err)
		}
		bodyReader = bytes.NewReader(raw)
	}

	// contextutil.WithTimeout leaves ctx untouched when c.timeout is <= 0,
	// rather than firing an immediately-expired context.WithTimeout(ctx, 0).
	reqCtx, cancel := contextutil.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fserrors.Wrap(fserrors.PathHTTP, fserrors.StageRequest, fserrors.CodeInvalidInput, err)
	}
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if opts.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fserrors.Wrap(fserrors.PathHTTP, fserrors.StageRequest, fserrors.ClassifyContextCode(err, fserrors.CodeHTTPStatus), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fserrors.Wrap(fserrors.PathHTTP, fserrors.StageRequest, fserrors.CodeHTTPStatus, err)
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(path, resp.StatusCode, raw)
	}
	if result == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fserrors.Wrap(fserrors.PathHTTP, fserrors.StageDecode, fserrors.CodeInvalidInput, err)
	}
	return nil
}

func (c *Client) statusError(path string, status int, raw []byte) error {
	var apiErr apiError
	message := http.StatusText(status)
	if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
		message = apiErr.Error
	}
	if status == http.StatusForbidden && strings.HasPrefix(path, "/auth/") {
		message = fmt.Sprintf("%s (this endpoint requires an access token; a session token is insufficient)", message)
		return fserrors.Wrap(fserrors.PathHTTP, fserrors.StageRequest, fserrors.CodeAuthScope,
			fmt.Errorf("%d: %s", status, message))
	}
	return fserrors.Wrap(fserrors.PathHTTP, fserrors.StageRequest, fserrors.CodeHTTPStatus,
		fmt.Errorf("%d: %s", status, message))
}
