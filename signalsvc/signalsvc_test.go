package signalsvc

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/computesdk/computesdk-sub001/transport"
	"github.com/computesdk/computesdk-sub001/wire"
)

type fakeConn struct {
	mu       sync.Mutex
	inbound  chan []byte
	outbound [][]byte
	closed   bool
}

func newFakeConn() *fakeConn { return &fakeConn{inbound: make(chan []byte, 16)} }

func (c *fakeConn) ReadMessage(ctx context.Context) (int, []byte, error) {
	select {
	case b, ok := <-c.inbound:
		if !ok {
			return 0, nil, context.Canceled
		}
		return 2, b, nil
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
}

func (c *fakeConn) WriteMessage(ctx context.Context, messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outbound = append(c.outbound, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) SetReadLimit(n int64) {}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.inbound)
	}
	return nil
}

func (c *fakeConn) CloseWithStatus(code int, text string) error { return c.Close() }

func newHarness(t *testing.T) (*transport.Transport, *fakeConn) {
	t.Helper()
	conn := newFakeConn()
	dial := func(ctx context.Context, urlStr string, header http.Header) (transport.Conn, error) { return conn, nil }
	tr, err := transport.New(transport.WithDialer(dial), transport.WithURL("wss://example.test/ws"), transport.WithPingInterval(0))
	if err != nil {
		t.Fatalf("transport.New: %v", err)
	}
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return tr, conn
}

// TestPortSignal_RoutesToTypedAndGenericListeners pins scenario S4: a
// port signal frame invokes exactly one typed port-listener call and
// exactly one generic signal-listener call, both carrying the same data.
func TestPortSignal_RoutesToTypedAndGenericListeners(t *testing.T) {
	tr, conn := newHarness(t)
	svc := New(context.Background(), tr)

	portCalls := make(chan PortSignal, 4)
	genericCalls := make(chan wire.Map, 4)
	svc.OnPort(func(p PortSignal) { portCalls <- p })
	svc.OnSignal(func(m wire.Map) { genericCalls <- m })

	msg := wire.Data(Channel, "signal", wire.MapPayload(wire.Map(nil).
		WithString("signal", "port").
		WithNumber("port", 3000).
		WithString("url", "http://localhost:3000").
		WithString("type", "open")))
	b, err := wire.EncodeBinary(msg)
	if err != nil {
		t.Fatalf("EncodeBinary: %v", err)
	}
	conn.inbound <- b

	select {
	case p := <-portCalls:
		if p.Port != 3000 || p.URL != "http://localhost:3000" || p.Type != "open" {
			t.Fatalf("port signal = %+v, want {3000 http://localhost:3000 open}", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for port listener")
	}

	select {
	case m := <-genericCalls:
		if v, _ := m.GetString("signal"); v != "port" {
			t.Fatalf("generic signal map = %+v, want signal=port", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for generic listener")
	}

	select {
	case extra := <-portCalls:
		t.Fatalf("port listener invoked a second time: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestServerReadySignal_RoutesToPortListener(t *testing.T) {
	tr, conn := newHarness(t)
	svc := New(context.Background(), tr)

	portCalls := make(chan PortSignal, 1)
	svc.OnPort(func(p PortSignal) { portCalls <- p })

	msg := wire.Data(Channel, "signal", wire.MapPayload(wire.Map(nil).
		WithString("signal", "server-ready").
		WithNumber("port", 8080).
		WithString("url", "http://localhost:8080")))
	b, _ := wire.EncodeBinary(msg)
	conn.inbound <- b

	select {
	case p := <-portCalls:
		if p.Port != 8080 {
			t.Fatalf("port = %d, want 8080", p.Port)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server-ready routing")
	}
}

func TestErrorSignal_RoutesToErrorListener(t *testing.T) {
	tr, conn := newHarness(t)
	svc := New(context.Background(), tr)

	errCalls := make(chan ErrorSignal, 1)
	svc.OnError(func(e ErrorSignal) { errCalls <- e })

	msg := wire.Data(Channel, "signal", wire.MapPayload(wire.Map(nil).
		WithString("signal", "error").
		WithString("message", "boom")))
	b, _ := wire.EncodeBinary(msg)
	conn.inbound <- b

	select {
	case e := <-errCalls:
		if e.Message != "boom" {
			t.Fatalf("message = %q, want boom", e.Message)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error routing")
	}
}

func TestClose_UnsubscribesAndDropsHandlers(t *testing.T) {
	tr, conn := newHarness(t)
	svc := New(context.Background(), tr)

	var mu sync.Mutex
	count := 0
	svc.OnSignal(func(m wire.Map) { mu.Lock(); count++; mu.Unlock() })

	svc.Close(context.Background())

	msg := wire.Data(Channel, "signal", wire.MapPayload(wire.Map(nil).WithString("signal", "port")))
	b, _ := wire.EncodeBinary(msg)
	conn.inbound <- b

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if count != 0 {
		t.Fatalf("handler invoked %d times after Close, want 0", count)
	}
}
