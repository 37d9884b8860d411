package transport

import (
	"context"
	"net/http"
)

// Conn is the narrow websocket surface the transport depends on. It is
// satisfied by *realtime/ws.Conn; tests substitute an in-memory fake.
type Conn interface {
	ReadMessage(ctx context.Context) (messageType int, data []byte, err error)
	WriteMessage(ctx context.Context, messageType int, data []byte) error
	SetReadLimit(n int64)
	Close() error
	CloseWithStatus(code int, text string) error
}

// Dialer opens a Conn to urlStr. New applies no default: the
// design mandates that a websocket-like constructor be supplied
// explicitly and treats its absence as an immediate construction error,
// so New rejects a nil Dialer rather than silently picking one.
// DefaultDialer builds one for callers to pass in.
type Dialer func(ctx context.Context, urlStr string, header http.Header) (Conn, error)
