// Package signalsvc implements the signal-service channel client (C9):
// a fixed subscription to the "signals" channel that routes incoming
// signal variants to typed listeners, and also surfaces every variant
// on a generic listener.
package signalsvc

import (
	"context"
	"sync"

	"github.com/computesdk/computesdk-sub001/internal/channelid"
	"github.com/computesdk/computesdk-sub001/transport"
	"github.com/computesdk/computesdk-sub001/wire"
)

// Channel is the fixed channel name signals are broadcast on.
const Channel = channelid.Signals

// PortSignal is the port/server-ready variant.
type PortSignal struct {
	Port int
	URL  string
	Type string // "open" or "close"; empty if unset
}

// ErrorSignal is the error variant.
type ErrorSignal struct {
	Message string
}

// Service subscribes to the signals channel and routes frames to typed listeners.
type Service struct {
	tr *transport.Transport

	mu       sync.Mutex
	onPort   []func(PortSignal)
	onError  []func(ErrorSignal)
	onSignal []func(wire.Map)
}

// New subscribes to the signals channel on tr and returns a routing client.
func New(ctx context.Context, tr *transport.Transport) *Service {
	s := &Service{tr: tr}
	s.install()
	tr.Subscribe(ctx, Channel)
	return s
}

func (s *Service) install() {
	s.tr.On(Channel, func(v any) {
		msg, ok := v.(wire.Message)
		if !ok || msg.Type != "signal" || msg.Payload.Kind != wire.PayloadMap {
			return
		}
		s.dispatch(msg.Payload.Map)
	})
}

func (s *Service) dispatch(m wire.Map) {
	variant, _ := m.GetString("signal")

	s.mu.Lock()
	generic := append([]func(wire.Map){}, s.onSignal...)
	s.mu.Unlock()
	for _, h := range generic {
		h(m)
	}

	switch variant {
	case "port", "server-ready":
		port := PortSignal{}
		if n, ok := m.GetNumber("port"); ok {
			port.Port = int(n)
		}
		port.URL, _ = m.GetString("url")
		port.Type, _ = m.GetString("type")

		s.mu.Lock()
		handlers := append([]func(PortSignal){}, s.onPort...)
		s.mu.Unlock()
		for _, h := range handlers {
			h(port)
		}
	case "error":
		errSig := ErrorSignal{}
		errSig.Message, _ = m.GetString("message")

		s.mu.Lock()
		handlers := append([]func(ErrorSignal){}, s.onError...)
		s.mu.Unlock()
		for _, h := range handlers {
			h(errSig)
		}
	}
}

// OnPort registers a handler for port and server-ready signals.
func (s *Service) OnPort(h func(PortSignal)) {
	s.mu.Lock()
	s.onPort = append(s.onPort, h)
	s.mu.Unlock()
}

// OnError registers a handler for error signals.
func (s *Service) OnError(h func(ErrorSignal)) {
	s.mu.Lock()
	s.onError = append(s.onError, h)
	s.mu.Unlock()
}

// OnSignal registers a handler invoked with the raw map for every signal variant.
func (s *Service) OnSignal(h func(wire.Map)) {
	s.mu.Lock()
	s.onSignal = append(s.onSignal, h)
	s.mu.Unlock()
}

// Close unsubscribes from the signals channel and drops all handlers.
func (s *Service) Close(ctx context.Context) {
	s.tr.Unsubscribe(ctx, Channel)
	s.tr.OffAll(Channel)
	s.mu.Lock()
	s.onPort, s.onError, s.onSignal = nil, nil, nil
	s.mu.Unlock()
}
