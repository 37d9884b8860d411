// Package terminal implements the terminal channel clients: a persistent
// PTY mode (C6), opened by CreatePTY, and a two-phase streaming exec mode
// (C7), started by Run. The two modes are separate entry points and types
// (PTY and Command); there is no single client switched by a PTY flag.
package terminal

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/computesdk/computesdk-sub001/fserrors"
	"github.com/computesdk/computesdk-sub001/httpapi"
	"github.com/computesdk/computesdk-sub001/internal/channelid"
	"github.com/computesdk/computesdk-sub001/transport"
	"github.com/computesdk/computesdk-sub001/wire"
)

// PTYState is the lifecycle of a persistent PTY terminal.
type PTYState string

const (
	PTYRunning PTYState = "running"
	PTYStopped PTYState = "stopped"
)

// PTYCreateOptions configures POST /terminals.
type PTYCreateOptions struct {
	Shell    string   `json:"shell,omitempty"`
	Encoding Encoding `json:"encoding,omitempty"`
}

type ptyCreateResponse struct {
	ID       string   `json:"id"`
	Status   string   `json:"status"`
	Channel  string   `json:"channel"`
	WSURL    string   `json:"ws_url"`
	Encoding Encoding `json:"encoding"`
}

// PTY is a persistent interactive shell channel client (C6).
type PTY struct {
	http     *httpapi.Client
	tr       *transport.Transport
	id       string
	channel  string
	encoding Encoding
	logger   *slog.Logger

	state atomic.Value // PTYState

	mu       sync.Mutex
	onOutput []func(text string)
	onError  []func(message string)
	onDone   []func()
}

// CreatePTY opens a new PTY terminal via POST /terminals and subscribes
// its channel on tr.
func CreatePTY(ctx context.Context, httpClient *httpapi.Client, tr *transport.Transport, opts PTYCreateOptions, logger *slog.Logger) (*PTY, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var resp ptyCreateResponse
	body := map[string]any{"shell": opts.Shell, "pty": true, "encoding": opts.Encoding}
	if err := httpClient.Request(ctx, "/terminals", httpapi.RequestOptions{Method: http.MethodPost, Body: body}, &resp); err != nil {
		return nil, err
	}
	enc := resp.Encoding
	if enc == "" {
		enc = EncodingRaw
	}
	channel := channelid.Normalize(resp.Channel)
	if err := channelid.Validate(channel); err != nil {
		return nil, fserrors.Wrap(fserrors.PathChannel, fserrors.StageValidate, fserrors.CodeInvalidInput, err)
	}

	p := &PTY{http: httpClient, tr: tr, id: resp.ID, channel: channel, encoding: enc, logger: logger}
	p.state.Store(normalizePTYState(resp.Status))
	p.install()
	tr.Subscribe(ctx, p.channel)
	return p, nil
}

func normalizePTYState(status string) PTYState {
	// "active" is a source-era synonym for running (§4.6).
	if status == "active" || status == "running" || status == "ready" {
		return PTYRunning
	}
	return PTYState(status)
}

func (p *PTY) install() {
	p.tr.On(p.channel, func(v any) {
		msg, ok := v.(wire.Message)
		if !ok {
			return
		}
		switch msg.Type {
		case "terminal:output":
			p.dispatchOutput(msg)
		case "terminal:error":
			p.dispatchError(msg)
		case "terminal:destroyed":
			p.dispatchDestroyed()
		}
	})
}

func (p *PTY) dispatchOutput(msg wire.Message) {
	if msg.Payload.Kind != wire.PayloadMap {
		return
	}
	text, err := decodeOutput(msg.Payload.Map, p.encoding)
	if err != nil {
		p.logger.Warn("pty output decode failed", "terminal_id", p.id, "error", err)
		return
	}
	p.mu.Lock()
	handlers := append([]func(string){}, p.onOutput...)
	p.mu.Unlock()
	for _, h := range handlers {
		h(text)
	}
}

func (p *PTY) dispatchError(msg wire.Message) {
	message := ""
	if msg.Payload.Kind == wire.PayloadMap {
		message, _ = msg.Payload.Map.GetString("message")
	}
	p.mu.Lock()
	handlers := append([]func(string){}, p.onError...)
	p.mu.Unlock()
	for _, h := range handlers {
		h(message)
	}
}

func (p *PTY) dispatchDestroyed() {
	p.state.Store(PTYStopped)
	p.mu.Lock()
	handlers := append([]func(){}, p.onDone...)
	p.mu.Unlock()
	for _, h := range handlers {
		h()
	}
}

// OnOutput registers a handler for decoded output chunks.
func (p *PTY) OnOutput(h func(text string)) {
	p.mu.Lock()
	p.onOutput = append(p.onOutput, h)
	p.mu.Unlock()
}

// OnError registers a handler for terminal:error frames.
func (p *PTY) OnError(h func(message string)) {
	p.mu.Lock()
	p.onError = append(p.onError, h)
	p.mu.Unlock()
}

// OnDestroyed registers a handler invoked once on terminal:destroyed.
func (p *PTY) OnDestroyed(h func()) {
	p.mu.Lock()
	p.onDone = append(p.onDone, h)
	p.mu.Unlock()
}

// State reports the terminal's current lifecycle state.
func (p *PTY) State() PTYState { return p.state.Load().(PTYState) }

// Write sends input to the PTY. Writes while not running log a warning
// but still proceed (§4.6); the transport layer itself no-ops silently
// if the socket is closed.
func (p *PTY) Write(ctx context.Context, input string) {
	if p.State() != PTYRunning {
		p.logger.Warn("write to non-running pty terminal", "terminal_id", p.id, "state", p.State())
	}
	p.tr.SendTerminalInput(ctx, p.channel, input)
}

// Resize sends a window resize. Resizing a non-running terminal fails loudly (§4.6).
func (p *PTY) Resize(ctx context.Context, cols, rows int) error {
	if p.State() != PTYRunning {
		return fserrors.Wrap(fserrors.PathChannel, fserrors.StageSend, fserrors.CodeNotRunning, nil)
	}
	p.tr.ResizeTerminal(ctx, p.channel, cols, rows)
	return nil
}

// Destroy issues the HTTP delete, then unsubscribes the channel and
// drops handlers. Idempotency is the server's responsibility; Destroy
// attempts the delete on every call (§4.6).
func (p *PTY) Destroy(ctx context.Context) error {
	err := p.http.Request(ctx, "/terminals/"+p.id, httpapi.RequestOptions{Method: http.MethodDelete}, nil)
	p.tr.Unsubscribe(ctx, p.channel)
	p.tr.OffAll(p.channel)
	p.mu.Lock()
	p.onOutput, p.onError, p.onDone = nil, nil, nil
	p.mu.Unlock()
	return err
}

// Channel reports the transport channel this terminal subscribes to (for tests and diagnostics).
func (p *PTY) Channel() string { return p.channel }

// ID reports the server-assigned terminal id.
func (p *PTY) ID() string { return p.id }
