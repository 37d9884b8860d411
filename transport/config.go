package transport

import (
	"log/slog"
	"time"

	"github.com/computesdk/computesdk-sub001/fserrors"
	"github.com/computesdk/computesdk-sub001/internal/defaults"
	"github.com/computesdk/computesdk-sub001/internal/wsutil"
	"github.com/computesdk/computesdk-sub001/observability"
)

// Mode selects the wire encoding negotiated at connect time.
type Mode string

const (
	ModeBinary Mode = "binary"
	ModeJSON   Mode = "json"
)

type config struct {
	dialer               Dialer
	url                  string
	token                string
	mode                 Mode
	pingInterval         time.Duration
	reconnectDelay       time.Duration
	reconnectMaxAttempts int
	maxFrameBytes        int
	logger               *slog.Logger
	observer             observability.TransportObserver
}

// Option configures a Transport at construction time.
type Option func(*config) error

func defaultConfig() config {
	return config{
		mode:                 ModeBinary,
		pingInterval:         defaults.PingInterval,
		reconnectDelay:       defaults.ReconnectDelay,
		reconnectMaxAttempts: defaults.ReconnectMaxAttempts,
		maxFrameBytes:        int(wsutil.DefaultMaxFrameBytes),
		logger:               slog.Default(),
		observer:             observability.NoopTransportObserver,
	}
}

// WithDialer supplies the websocket-like constructor. Required.
func WithDialer(d Dialer) Option {
	return func(c *config) error { c.dialer = d; return nil }
}

// WithURL sets the connection URL (scheme ws/wss already resolved by the caller).
func WithURL(url string) Option {
	return func(c *config) error { c.url = url; return nil }
}

// WithToken sets the bearer token sent as a connect-time query parameter.
func WithToken(token string) Option {
	return func(c *config) error { c.token = token; return nil }
}

// WithMode selects the wire encoding.
func WithMode(m Mode) Option {
	return func(c *config) error {
		if m != ModeBinary && m != ModeJSON {
			return fserrors.Wrap(fserrors.PathTransport, fserrors.StageValidate, fserrors.CodeInvalidInput, nil)
		}
		c.mode = m
		return nil
	}
}

// WithPingInterval sets the application ping interval; 0 disables pings.
func WithPingInterval(d time.Duration) Option {
	return func(c *config) error { c.pingInterval = d; return nil }
}

// WithReconnectDelay sets the delay between reconnect attempts.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *config) error { c.reconnectDelay = d; return nil }
}

// WithReconnectMaxAttempts bounds reconnect attempts; 0 means unlimited.
func WithReconnectMaxAttempts(n int) Option {
	return func(c *config) error { c.reconnectMaxAttempts = n; return nil }
}

// WithMaxFrameBytes bounds the size of a single inbound websocket message.
func WithMaxFrameBytes(n int) Option {
	return func(c *config) error { c.maxFrameBytes = n; return nil }
}

// WithLogger injects a structured logger; nil falls back to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) error {
		if l == nil {
			l = slog.Default()
		}
		c.logger = l
		return nil
	}
}

// WithObserver installs a metrics/tracing observer; nil is rejected in
// favor of the no-op implementation already set by defaultConfig.
func WithObserver(o observability.TransportObserver) Option {
	return func(c *config) error {
		if o != nil {
			c.observer = o
		}
		return nil
	}
}
