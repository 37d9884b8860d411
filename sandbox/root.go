// Package sandbox is the client root: it resolves credentials and the
// sandbox endpoint, composes the HTTP and transport layers, and exposes
// the filesystem facade and command-execution convenience methods that
// ride on them (§4.5).
package sandbox

import (
	"context"
	"strings"

	"github.com/computesdk/computesdk-sub001/control"
	"github.com/computesdk/computesdk-sub001/fserrors"
	"github.com/computesdk/computesdk-sub001/httpapi"
	"github.com/computesdk/computesdk-sub001/signalsvc"
	"github.com/computesdk/computesdk-sub001/transport"
)

// Config configures Root construction.
type Config struct {
	// SandboxURL is the explicit endpoint; takes priority over LocationURL/Storage.
	SandboxURL string
	// SessionToken is the explicit credential; takes priority over LocationURL/Storage.
	SessionToken string
	// LocationURL stands in for the page URL a browser client would read
	// sandbox_url/session_token query parameters from.
	LocationURL string
	// Storage persists discovered credentials/endpoint across constructions. Defaults to a no-op.
	Storage Storage
	// Dialer is the pluggable websocket-like constructor; required once Transport() is called.
	Dialer transport.Dialer
	// PreviewBase is the configured second-level domain substitution used by PreviewURL.
	PreviewBase string
	// TransportMode selects the wire encoding; defaults to binary.
	TransportMode transport.Mode
}

// Root is the SDK entry point: credential-resolved HTTP and (lazily)
// transport access, plus the filesystem and execute facades.
type Root struct {
	cfg          Config
	sandboxURL   string
	sessionToken string
	strippedLoc  string
	http         *httpapi.Client
	control      *control.Client
	transport    *transport.Transport
	signals      *signalsvc.Service
}

// New resolves credentials/endpoint per the priority chain in §4.5 and
// builds the HTTP and control-plane clients. The transport itself is
// built lazily by Transport().
func New(cfg Config) (*Root, error) {
	storage := cfg.Storage
	if storage == nil {
		storage = noopStorage{}
	}

	sandboxURL, sessionToken, strippedLoc := resolveCredentials(cfg.SandboxURL, cfg.SessionToken, cfg.LocationURL, storage)
	sandboxURL = stripTrailingSlash(sandboxURL)
	if sandboxURL == "" {
		return nil, fserrors.Wrap(fserrors.PathClient, fserrors.StageValidate, fserrors.CodeInvalidInput, nil)
	}

	httpClient := httpapi.New(sandboxURL, httpapi.WithToken(sessionToken))

	r := &Root{
		cfg:          cfg,
		sandboxURL:   sandboxURL,
		sessionToken: sessionToken,
		strippedLoc:  strippedLoc,
		http:         httpClient,
		control:      control.New(httpClient),
	}
	return r, nil
}

// SandboxURL returns the resolved endpoint.
func (r *Root) SandboxURL() string { return r.sandboxURL }

// SessionToken returns the resolved credential.
func (r *Root) SessionToken() string { return r.sessionToken }

// StrippedLocationURL returns the caller-supplied location URL with any
// discovered credential/endpoint query parameters removed, satisfying
// the credential-hygiene invariant (Testable Property 7).
func (r *Root) StrippedLocationURL() string { return r.strippedLoc }

// HTTP exposes the underlying request layer for channel clients and control calls.
func (r *Root) HTTP() *httpapi.Client { return r.http }

// Control exposes the auth/sandbox-lifecycle operations (C10).
func (r *Root) Control() *control.Client { return r.control }

// Transport lazily builds the shared duplex connection. A nil Dialer in
// Config is a construction-time error: the design treats a missing
// websocket-like constructor as an immediate failure, not a fallback.
func (r *Root) Transport() (*transport.Transport, error) {
	if r.transport != nil {
		return r.transport, nil
	}
	if r.cfg.Dialer == nil {
		return nil, fserrors.Wrap(fserrors.PathClient, fserrors.StageValidate, fserrors.CodeMissingConstructor, nil)
	}
	mode := r.cfg.TransportMode
	if mode == "" {
		mode = transport.ModeBinary
	}
	wsURL := wsURLFromHTTP(r.sandboxURL)
	tr, err := transport.New(
		transport.WithDialer(r.cfg.Dialer),
		transport.WithURL(wsURL),
		transport.WithToken(r.sessionToken),
		transport.WithMode(mode),
	)
	if err != nil {
		return nil, err
	}
	r.transport = tr
	return tr, nil
}

// PreviewURL derives the externally addressable URL for port, per §4.5.
func (r *Root) PreviewURL(port int) string {
	host := strings.TrimPrefix(strings.TrimPrefix(r.sandboxURL, "https://"), "http://")
	return control.PreviewURL(host, port, r.cfg.PreviewBase)
}

// Connect opens the shared transport (idempotent).
func (r *Root) Connect(ctx context.Context) error {
	tr, err := r.Transport()
	if err != nil {
		return err
	}
	return tr.Connect(ctx)
}

// Close tears down the shared transport, if one was built.
func (r *Root) Close() {
	if r.transport != nil {
		r.transport.Disconnect()
	}
}

// wsURLFromHTTP rewrites an http(s) sandbox URL to its ws(s)://.../ws
// connection URL, per §6.3.
func wsURLFromHTTP(sandboxURL string) string {
	scheme := "ws"
	rest := sandboxURL
	switch {
	case strings.HasPrefix(sandboxURL, "https://"):
		scheme = "wss"
		rest = strings.TrimPrefix(sandboxURL, "https://")
	case strings.HasPrefix(sandboxURL, "http://"):
		scheme = "ws"
		rest = strings.TrimPrefix(sandboxURL, "http://")
	}
	return scheme + "://" + rest + "/ws"
}
