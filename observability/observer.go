// Package observability defines the metric surfaces the transport emits
// to, independent of any particular backend. A
// Prometheus-backed implementation lives in observability/prom.
package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// CloseReason classifies why the transport's underlying connection closed.
type CloseReason string

const (
	CloseReasonManual      CloseReason = "manual"
	CloseReasonPeerClosed  CloseReason = "peer_closed"
	CloseReasonReadError   CloseReason = "read_error"
	CloseReasonWriteError  CloseReason = "write_error"
	CloseReasonReconnected CloseReason = "reconnected"
)

// DecodeFailure classifies a dropped inbound frame.
type DecodeFailure string

const (
	DecodeFailureShortBuffer    DecodeFailure = "short_buffer"
	DecodeFailureUnknownTag     DecodeFailure = "unknown_tag"
	DecodeFailureLengthMismatch DecodeFailure = "length_mismatch"
)

// TransportObserver receives transport-level metric events.
type TransportObserver interface {
	ConnState(open bool)
	Subscribed(n int)
	ReconnectAttempt(attempt int)
	ReconnectFailed()
	Close(reason CloseReason)
	DecodeError(reason DecodeFailure)
	SendDropped()
	PongLatency(d time.Duration)
}

type noopTransportObserver struct{}

func (noopTransportObserver) ConnState(bool)            {}
func (noopTransportObserver) Subscribed(int)            {}
func (noopTransportObserver) ReconnectAttempt(int)      {}
func (noopTransportObserver) ReconnectFailed()          {}
func (noopTransportObserver) Close(CloseReason)         {}
func (noopTransportObserver) DecodeError(DecodeFailure) {}
func (noopTransportObserver) SendDropped()               {}
func (noopTransportObserver) PongLatency(time.Duration)  {}

// NoopTransportObserver is a zero-cost observer used when metrics are disabled.
var NoopTransportObserver TransportObserver = noopTransportObserver{}

// AtomicTransportObserver swaps its delegate at runtime, so the transport
// can be constructed before the caller has finished wiring metrics.
type AtomicTransportObserver struct {
	once sync.Once
	v    atomic.Value
}

type transportObserverHolder struct {
	obs TransportObserver
}

// NewAtomicTransportObserver returns an initialized atomic observer defaulting to no-op.
func NewAtomicTransportObserver() *AtomicTransportObserver {
	a := &AtomicTransportObserver{}
	a.init()
	return a
}

func (a *AtomicTransportObserver) init() {
	a.once.Do(func() { a.v.Store(&transportObserverHolder{obs: NoopTransportObserver}) })
}

// Set replaces the delegate, falling back to the no-op observer on nil.
func (a *AtomicTransportObserver) Set(obs TransportObserver) {
	if obs == nil {
		obs = NoopTransportObserver
	}
	a.init()
	a.v.Store(&transportObserverHolder{obs: obs})
}

func (a *AtomicTransportObserver) load() TransportObserver {
	a.init()
	return a.v.Load().(*transportObserverHolder).obs
}

func (a *AtomicTransportObserver) ConnState(open bool)       { a.load().ConnState(open) }
func (a *AtomicTransportObserver) Subscribed(n int)          { a.load().Subscribed(n) }
func (a *AtomicTransportObserver) ReconnectAttempt(n int)    { a.load().ReconnectAttempt(n) }
func (a *AtomicTransportObserver) ReconnectFailed()          { a.load().ReconnectFailed() }
func (a *AtomicTransportObserver) Close(reason CloseReason)  { a.load().Close(reason) }
func (a *AtomicTransportObserver) DecodeError(r DecodeFailure) {
	a.load().DecodeError(r)
}
func (a *AtomicTransportObserver) SendDropped() { a.load().SendDropped() }
func (a *AtomicTransportObserver) PongLatency(d time.Duration) {
	a.load().PongLatency(d)
}
