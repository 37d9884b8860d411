package watcher

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/computesdk/computesdk-sub001/httpapi"
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

func TestCreate_SubscribesReturnedChannel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"w1","channel":"watcher:w1"}`))
	}))
	defer srv.Close()

	tr, conn := newHarness(t)
	httpClient := httpapi.New(srv.URL)

	w, err := Create(context.Background(), httpClient, tr, CreateOptions{Path: "/app"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if w.Channel() != "watcher:w1" {
		t.Fatalf("Channel() = %q, want watcher:w1", w.Channel())
	}

	time.Sleep(20 * time.Millisecond)
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if len(conn.outbound) != 1 {
		t.Fatalf("got %d outbound frames, want 1 subscribe frame", len(conn.outbound))
	}
}

func TestDispatch_DecodesRawAndBase64Content(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"w1","channel":"watcher:w1"}`))
	}))
	defer srv.Close()

	tr, conn := newHarness(t)
	httpClient := httpapi.New(srv.URL)
	w, err := Create(context.Background(), httpClient, tr, CreateOptions{Path: "/app"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	events := make(chan ChangeEvent, 2)
	w.OnChange(func(ev ChangeEvent) { events <- ev })

	rawMsg := wire.Data(w.Channel(), "file:changed", wire.MapPayload(wire.Map(nil).
		WithString("event", "add").WithString("path", "/app/a.txt").WithString("content", "hello")))
	b, _ := wire.EncodeBinary(rawMsg)
	conn.inbound <- b

	encoded := base64.StdEncoding.EncodeToString([]byte("binary-data"))
	b64Msg := wire.Data(w.Channel(), "file:changed", wire.MapPayload(wire.Map(nil).
		WithString("event", "change").WithString("path", "/app/b.bin").
		WithString("content", encoded).WithString("encoding", "base64")))
	b2, _ := wire.EncodeBinary(b64Msg)
	conn.inbound <- b2

	for i, want := range []struct {
		kind    EventKind
		path    string
		content string
	}{
		{EventAdd, "/app/a.txt", "hello"},
		{EventChange, "/app/b.bin", "binary-data"},
	} {
		select {
		case ev := <-events:
			if ev.Kind != want.kind || ev.Path != want.path || string(ev.Content) != want.content {
				t.Fatalf("event %d = %+v, want kind=%s path=%s content=%s", i, ev, want.kind, want.path, want.content)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}

func TestDestroy_SuppressesFurtherEvents(t *testing.T) {
	deleteCalled := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			deleteCalled <- struct{}{}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"w1","channel":"watcher:w1"}`))
	}))
	defer srv.Close()

	tr, conn := newHarness(t)
	httpClient := httpapi.New(srv.URL)
	w, err := Create(context.Background(), httpClient, tr, CreateOptions{Path: "/app"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var mu sync.Mutex
	count := 0
	w.OnChange(func(ev ChangeEvent) { mu.Lock(); count++; mu.Unlock() })

	if err := w.Destroy(context.Background()); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	select {
	case <-deleteCalled:
	case <-time.After(2 * time.Second):
		t.Fatal("DELETE /watchers/{id} was never called")
	}

	msg := wire.Data(w.Channel(), "file:changed", wire.MapPayload(wire.Map(nil).WithString("event", "add").WithString("path", "/x")))
	b, _ := wire.EncodeBinary(msg)
	conn.inbound <- b

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if count != 0 {
		t.Fatalf("destroyed watcher dispatched %d events, want 0", count)
	}
}

func TestRuntimeSetters_IssuePatchRequests(t *testing.T) {
	var mu sync.Mutex
	methods := map[string]string{}
	bodies := map[string]string{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPatch {
			mu.Lock()
			buf := make([]byte, r.ContentLength)
			r.Body.Read(buf)
			methods[r.URL.Path] = r.Method
			bodies[r.URL.Path] = string(buf)
			mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"w1","channel":"watcher:w1"}`))
	}))
	defer srv.Close()

	tr, _ := newHarness(t)
	httpClient := httpapi.New(srv.URL)
	w, err := Create(context.Background(), httpClient, tr, CreateOptions{Path: "/app"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := w.SetIncludeContent(context.Background(), true); err != nil {
		t.Fatalf("SetIncludeContent: %v", err)
	}
	if err := w.SetIgnored(context.Background(), []string{"*.log", "/tmp"}); err != nil {
		t.Fatalf("SetIgnored: %v", err)
	}
	if err := w.SetEncoding(context.Background(), EncodingBase64); err != nil {
		t.Fatalf("SetEncoding: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if methods["/watchers/w1"] != http.MethodPatch {
		t.Fatalf("expected PATCH requests against /watchers/w1, got %v", methods)
	}
	for _, want := range []string{"includeContent", "ignored", "encoding"} {
		found := false
		for _, b := range bodies {
			if strings.Contains(b, want) {
				found = true
			}
		}
		if !found {
			t.Fatalf("no PATCH body contained %q: %v", want, bodies)
		}
	}
}
