// Package transport implements the duplex connection that every channel
// client rides on: dial, frame send/receive, reconnect with backoff,
// application-level liveness pings, and a subscription set that is
// authoritative across reconnects.
package transport

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/computesdk/computesdk-sub001/eventbus"
	"github.com/computesdk/computesdk-sub001/fserrors"
	"github.com/computesdk/computesdk-sub001/internal/defaults"
	"github.com/computesdk/computesdk-sub001/internal/wsutil"
	"github.com/computesdk/computesdk-sub001/observability"
	"github.com/computesdk/computesdk-sub001/wire"
)

const (
	// EventOpen fires once the socket is open and the subscription set has been replayed.
	EventOpen = "open"
	// EventClose fires when the underlying socket closes, whether manual or not.
	EventClose = "close"
	// EventError fires on a transport-level error that does not itself close the socket.
	EventError = "error"
	// EventReconnectFailed fires when the reconnect attempt ceiling is reached.
	EventReconnectFailed = "reconnect-failed"

	msgTypePing = "ping"
	msgTypePong = "pong"
)

// Transport owns one websocket connection's lifecycle plus the
// channel/msg_type dispatch surface every channel client registers on.
type Transport struct {
	cfg config
	bus *eventbus.Bus

	mu               sync.Mutex
	state            State
	conn             Conn
	subs             *subscriptionSet
	manualClose      bool
	reconnectAttempt int
	lastPong         time.Time
	writeMu          sync.Mutex

	cancelCurrent context.CancelFunc
	loopDone      chan struct{}
}

// New constructs a Transport. A nil Dialer or empty URL is a
// construction-time error per the design's "missing websocket-like
// constructor fails immediately" invariant.
func New(opts ...Option) (*Transport, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.dialer == nil {
		return nil, fserrors.Wrap(fserrors.PathTransport, fserrors.StageValidate, fserrors.CodeMissingConstructor, nil)
	}
	if cfg.url == "" {
		return nil, fserrors.Wrap(fserrors.PathTransport, fserrors.StageValidate, fserrors.CodeInvalidInput, nil)
	}
	t := &Transport{
		cfg:   cfg,
		bus:   eventbus.New(func(event string, r any) { cfg.logger.Error("transport handler panicked", "event", event, "panic", r) }),
		state: StateClosed,
		subs:  newSubscriptionSet(),
	}
	return t, nil
}

// State reports the current connection lifecycle stage.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// TimeSinceLastPong reports how long ago the last pong control message
// was observed, or zero if none has ever been observed.
func (t *Transport) TimeSinceLastPong() time.Duration {
	t.mu.Lock()
	last := t.lastPong
	t.mu.Unlock()
	if last.IsZero() {
		return 0
	}
	return time.Since(last)
}

// On registers handler for event (lifecycle name, inbound msg_type, or channel name).
func (t *Transport) On(event string, handler eventbus.Handler) {
	t.bus.On(event, handler)
}

// OffAll clears every handler registered for event.
func (t *Transport) OffAll(event string) {
	t.bus.OffAll(event)
}

// Connect is idempotent: it returns once the socket is open and every
// channel in the subscription set has been sent a subscribe frame. No
// server acknowledgement is awaited.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.state == StateOpen || t.state == StateConnecting {
		t.mu.Unlock()
		return nil
	}
	t.manualClose = false
	t.state = StateConnecting
	t.mu.Unlock()

	return t.dialAndRun(ctx)
}

// Disconnect sets the manual-close flag, tears down the socket, and
// suppresses reconnection.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	t.manualClose = true
	conn := t.conn
	cancel := t.cancelCurrent
	t.state = StateClosing
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.CloseWithStatus(1000, "manual close")
	}

	t.mu.Lock()
	t.state = StateClosed
	t.conn = nil
	t.mu.Unlock()
	t.cfg.observer.ConnState(false)
	t.cfg.observer.Close(observability.CloseReasonManual)
}

// Subscribe adds channel to the subscription set and, if currently
// open, sends the subscribe frame immediately. Subscriptions survive a
// closed socket and are replayed on the next open.
func (t *Transport) Subscribe(ctx context.Context, channel string) {
	t.mu.Lock()
	added := t.subs.add(channel)
	open := t.state == StateOpen
	n := t.subs.len()
	t.mu.Unlock()
	if added {
		t.cfg.observer.Subscribed(n)
	}
	if open {
		t.sendFrame(ctx, wire.Subscribe(channel))
	}
}

// Unsubscribe removes channel from the subscription set and, if
// currently open, sends the unsubscribe frame immediately.
func (t *Transport) Unsubscribe(ctx context.Context, channel string) {
	t.mu.Lock()
	t.subs.remove(channel)
	open := t.state == StateOpen
	n := t.subs.len()
	t.mu.Unlock()
	t.cfg.observer.Subscribed(n)
	if open {
		t.sendFrame(ctx, wire.Unsubscribe(channel))
	}
}

// Send transmits a data message. If the socket is not open this is a
// no-op that returns false; it never blocks on reconnection and never panics.
func (t *Transport) Send(ctx context.Context, channel, msgType string, payload wire.Payload) bool {
	return t.sendFrame(ctx, wire.Data(channel, msgType, payload))
}

// SendTerminalInput sends a structured terminal:input frame for the PTY channel client.
func (t *Transport) SendTerminalInput(ctx context.Context, channel, text string) bool {
	return t.Send(ctx, channel, "terminal:input", wire.MapPayload(wire.Map(nil).WithString("input", text)))
}

// ResizeTerminal sends a structured terminal:resize frame for the PTY channel client.
func (t *Transport) ResizeTerminal(ctx context.Context, channel string, cols, rows int) bool {
	payload := wire.MapPayload(wire.Map(nil).WithNumber("cols", float64(cols)).WithNumber("rows", float64(rows)))
	return t.Send(ctx, channel, "terminal:resize", payload)
}

func (t *Transport) sendFrame(ctx context.Context, msg wire.Message) bool {
	t.mu.Lock()
	conn := t.conn
	open := t.state == StateOpen
	mode := t.cfg.mode
	t.mu.Unlock()
	if !open || conn == nil {
		t.cfg.observer.SendDropped()
		return false
	}

	var b []byte
	var err error
	if mode == ModeJSON {
		b, err = wire.EncodeJSON(msg)
	} else {
		b, err = wire.EncodeBinary(msg)
	}
	if err != nil {
		t.cfg.logger.Error("encode failed, dropping send", "error", err)
		t.cfg.observer.SendDropped()
		return false
	}

	messageType := websocketBinaryMessage
	if mode == ModeJSON {
		messageType = websocketTextMessage
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := conn.WriteMessage(ctx, messageType, b); err != nil {
		t.cfg.logger.Warn("send failed, dropping", "error", err)
		t.cfg.observer.SendDropped()
		return false
	}
	return true
}

// These mirror gorilla/websocket's TextMessage/BinaryMessage constants
// without importing gorilla directly into this file's symbol namespace.
const (
	websocketTextMessage   = 1
	websocketBinaryMessage = 2
)

func (t *Transport) dialAndRun(ctx context.Context) error {
	connectCtx, cancel := context.WithTimeout(ctx, defaults.ConnectTimeout)
	defer cancel()

	u, err := t.connectURL()
	if err != nil {
		t.mu.Lock()
		t.state = StateClosed
		t.mu.Unlock()
		return err
	}

	conn, err := t.cfg.dialer(connectCtx, u, http.Header{})
	if err != nil {
		t.mu.Lock()
		t.state = StateClosed
		t.mu.Unlock()
		return fserrors.Wrap(fserrors.PathTransport, fserrors.StageDial, fserrors.ClassifyContextCode(err, fserrors.CodeDialFailed), err)
	}
	conn.SetReadLimit(wsutil.ReadLimit(t.cfg.maxFrameBytes))

	runCtx, runCancel := context.WithCancel(context.Background())
	t.mu.Lock()
	t.conn = conn
	t.state = StateOpen
	t.reconnectAttempt = 0
	t.cancelCurrent = runCancel
	subs := t.subs.snapshot()
	t.mu.Unlock()

	t.cfg.observer.ConnState(true)
	t.loopDone = make(chan struct{})
	go t.runConnection(runCtx, conn)

	for _, ch := range subs {
		t.sendFrame(ctx, wire.Subscribe(ch))
	}
	t.bus.Emit(EventOpen, nil)
	return nil
}

func (t *Transport) connectURL() (string, error) {
	parsed, err := url.Parse(t.cfg.url)
	if err != nil {
		return "", fserrors.Wrap(fserrors.PathTransport, fserrors.StageValidate, fserrors.CodeInvalidInput, err)
	}
	q := parsed.Query()
	q.Set("protocol", string(t.cfg.mode))
	if t.cfg.token != "" {
		q.Set("token", t.cfg.token)
	}
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

// runConnection owns the read loop and the ping ticker for one
// connection lifetime. It is the transport's sole reader, so dispatch
// to handlers registered for a given channel happens strictly in
// server-emitted order.
func (t *Transport) runConnection(ctx context.Context, conn Conn) {
	defer close(t.loopDone)

	var pingTicker *time.Ticker
	var pingC <-chan time.Time
	if t.cfg.pingInterval > 0 {
		pingTicker = time.NewTicker(t.cfg.pingInterval)
		pingC = pingTicker.C
		defer pingTicker.Stop()
	}

	readDone := make(chan struct{})
	frames := make(chan inboundFrame, 16)
	go func() {
		defer close(frames)
		defer close(readDone)
		for {
			mt, data, err := conn.ReadMessage(ctx)
			if err != nil {
				select {
				case frames <- inboundFrame{err: err}:
				case <-ctx.Done():
				}
				return
			}
			select {
			case frames <- inboundFrame{messageType: mt, data: data}:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			// Only Disconnect cancels ctx: report the manual close.
			t.bus.Emit(EventClose, ctx.Err())
			return
		case <-pingC:
			t.sendFrame(ctx, wire.Data("", msgTypePing, wire.EmptyPayload))
		case f, ok := <-frames:
			if !ok || (f.err != nil && ctx.Err() != nil) {
				// The reader stopped because Disconnect canceled ctx.
				t.bus.Emit(EventClose, ctx.Err())
				return
			}
			if f.err != nil {
				t.handleConnectionError(f.err)
				return
			}
			t.handleInbound(f.data)
		}
	}
}

type inboundFrame struct {
	messageType int
	data        []byte
	err         error
}

func (t *Transport) handleInbound(data []byte) {
	var msg wire.Message
	var err error
	if t.cfg.mode == ModeJSON {
		msg, err = wire.DecodeJSON(data)
	} else {
		msg, err = wire.DecodeBinary(data)
	}
	if err != nil {
		t.cfg.logger.Warn("dropping undecodable frame", "error", err)
		t.cfg.observer.DecodeError(classifyDecodeFailure(err))
		return
	}

	if msg.Type == msgTypePong {
		t.mu.Lock()
		prev := t.lastPong
		t.lastPong = time.Now()
		t.mu.Unlock()
		if !prev.IsZero() {
			t.cfg.observer.PongLatency(time.Since(prev))
		}
	}

	if msg.Type != "" {
		t.bus.Emit(msg.Type, msg)
	}
	if msg.Channel != "" {
		t.bus.Emit(msg.Channel, msg)
	}
}

func classifyDecodeFailure(err error) observability.DecodeFailure {
	switch {
	case fserrors.Is(err, fserrors.CodeShortBuffer):
		return observability.DecodeFailureShortBuffer
	case fserrors.Is(err, fserrors.CodeUnknownTag):
		return observability.DecodeFailureUnknownTag
	case fserrors.Is(err, fserrors.CodeLengthMismatch):
		return observability.DecodeFailureLengthMismatch
	default:
		return observability.DecodeFailureShortBuffer
	}
}

func (t *Transport) handleConnectionError(err error) {
	t.mu.Lock()
	manual := t.manualClose
	t.state = StateClosed
	t.conn = nil
	t.mu.Unlock()

	t.cfg.observer.ConnState(false)
	t.bus.Emit(EventError, err)

	reason := observability.CloseReasonReadError
	if manual {
		reason = observability.CloseReasonManual
	}
	t.cfg.observer.Close(reason)
	t.bus.Emit(EventClose, err)

	if manual {
		return
	}
	go t.reconnectLoop()
}

func (t *Transport) reconnectLoop() {
	for {
		t.mu.Lock()
		manual := t.manualClose
		attempt := t.reconnectAttempt + 1
		max := t.cfg.reconnectMaxAttempts
		t.mu.Unlock()
		if manual {
			return
		}
		if max > 0 && attempt > max {
			t.bus.Emit(EventReconnectFailed, nil)
			t.cfg.observer.ReconnectFailed()
			return
		}

		time.Sleep(t.cfg.reconnectDelay)

		t.mu.Lock()
		if t.manualClose {
			t.mu.Unlock()
			return
		}
		t.reconnectAttempt = attempt
		t.mu.Unlock()
		t.cfg.observer.ReconnectAttempt(attempt)

		if err := t.dialAndRun(context.Background()); err != nil {
			t.cfg.logger.Warn("reconnect attempt failed", "attempt", attempt, "error", err)
			continue
		}
		t.cfg.observer.Close(observability.CloseReasonReconnected)
		return
	}
}
