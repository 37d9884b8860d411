package transport

import (
	"context"
	"net/http"

	"github.com/computesdk/computesdk-sub001/realtime/ws"
)

// DefaultDialer builds a Dialer backed by gorilla/websocket via
// realtime/ws. Callers must still pass it explicitly to New — the
// design treats a missing constructor as a configuration error rather
// than silently defaulting, so this is offered as a convenience
// rather than wired in automatically.
func DefaultDialer() Dialer {
	return func(ctx context.Context, urlStr string, header http.Header) (Conn, error) {
		c, _, err := ws.Dial(ctx, urlStr, ws.DialOptions{Header: header})
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}
