package terminal

import (
	"context"
	"net/http"
	"net/http/httptest"
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

func (c *fakeConn) sentMessages(t *testing.T) []wire.Message {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []wire.Message
	for _, b := range c.outbound {
		m, err := wire.DecodeBinary(b)
		if err != nil {
			t.Fatalf("decode recorded frame: %v", err)
		}
		out = append(out, m)
	}
	return out
}

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

// TestRun_SubscribesBeforeSendingStartTrigger pins the two-phase
// streaming order: subscribe must be the first frame sent for the
// command's channel, and command:start (referencing cmd_id) the second
// — so a fast server can never emit output the client isn't listening
// for yet.
func TestRun_SubscribesBeforeSendingStartTrigger(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"cmd_id":"c1","channel":"cmd:c1","status":"pending"}`))
	}))
	defer srv.Close()

	tr, conn := newHarness(t)
	httpClient := httpapi.New(srv.URL)

	cmd, err := Run(context.Background(), httpClient, tr, "echo hi", RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if cmd.CmdID() != "c1" {
		t.Fatalf("CmdID() = %q, want c1", cmd.CmdID())
	}

	time.Sleep(20 * time.Millisecond)
	msgs := conn.sentMessages(t)
	if len(msgs) != 2 {
		t.Fatalf("got %d outbound frames, want 2 (subscribe, command:start): %+v", len(msgs), msgs)
	}
	if msgs[0].Kind != wire.KindSubscribe || msgs[0].Channel != "cmd:c1" {
		t.Fatalf("first frame = %+v, want subscribe cmd:c1", msgs[0])
	}
	if msgs[1].Type != "command:start" {
		t.Fatalf("second frame type = %q, want command:start", msgs[1].Type)
	}
	cmdID, _ := msgs[1].Payload.Map.GetString("cmd_id")
	if cmdID != "c1" {
		t.Fatalf("command:start cmd_id = %q, want c1", cmdID)
	}
}

// TestWait_StartedBeforeExitStillResolves pins scenario S6: a Wait call
// issued immediately after Run (before any frame has arrived) still
// resolves once the exit frame lands, rather than missing it due to a
// registration race.
func TestWait_StartedBeforeExitStillResolves(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"cmd_id":"c1","channel":"cmd:c1","status":"pending"}`))
	}))
	defer srv.Close()

	tr, conn := newHarness(t)
	httpClient := httpapi.New(srv.URL)

	cmd, err := Run(context.Background(), httpClient, tr, "echo hi", RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	waitDone := make(chan *ExitRecord, 1)
	waitErr := make(chan error, 1)
	go func() {
		record, err := cmd.Wait(context.Background(), 0)
		waitErr <- err
		waitDone <- record
	}()

	time.Sleep(10 * time.Millisecond)

	exitMsg := wire.Data("cmd:c1", "command:exit", wire.MapPayload(wire.Map(nil).WithNumber("exit_code", 0).WithNumber("duration_ms", 12)))
	b, _ := wire.EncodeBinary(exitMsg)
	conn.inbound <- b

	select {
	case err := <-waitErr:
		if err != nil {
			t.Fatalf("Wait returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Wait to resolve")
	}
	record := <-waitDone
	if record == nil || record.ExitCode != 0 || record.DurationMs != 12 {
		t.Fatalf("exit record = %+v, want {0 12}", record)
	}
	if cmd.State() != CommandCompleted {
		t.Fatalf("State() = %v, want completed", cmd.State())
	}
}

func TestWait_AlreadyCompletedReturnsImmediately(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"cmd_id":"c1","channel":"cmd:c1","status":"pending"}`))
	}))
	defer srv.Close()

	tr, conn := newHarness(t)
	httpClient := httpapi.New(srv.URL)
	cmd, err := Run(context.Background(), httpClient, tr, "echo hi", RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	exitMsg := wire.Data("cmd:c1", "command:exit", wire.MapPayload(wire.Map(nil).WithNumber("exit_code", 1)))
	b, _ := wire.EncodeBinary(exitMsg)
	conn.inbound <- b
	time.Sleep(20 * time.Millisecond)

	record, err := cmd.Wait(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if record.ExitCode != 1 {
		t.Fatalf("ExitCode = %d, want 1", record.ExitCode)
	}
}

func TestDispatch_StdoutStderrReachHandlersAndMarkRunning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"cmd_id":"c1","channel":"cmd:c1","status":"pending"}`))
	}))
	defer srv.Close()

	tr, conn := newHarness(t)
	httpClient := httpapi.New(srv.URL)
	cmd, err := Run(context.Background(), httpClient, tr, "echo hi", RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	stdout := make(chan string, 1)
	stderr := make(chan string, 1)
	cmd.OnStdout(func(s string) { stdout <- s })
	cmd.OnStderr(func(s string) { stderr <- s })

	outMsg := wire.Data("cmd:c1", "command:stdout", wire.MapPayload(wire.Map(nil).WithString("text", "hi\n")))
	b, _ := wire.EncodeBinary(outMsg)
	conn.inbound <- b

	select {
	case got := <-stdout:
		if got != "hi\n" {
			t.Fatalf("stdout = %q, want %q", got, "hi\n")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stdout dispatch")
	}

	errMsg := wire.Data("cmd:c1", "command:stderr", wire.MapPayload(wire.Map(nil).WithString("text", "oops\n")))
	b, _ = wire.EncodeBinary(errMsg)
	conn.inbound <- b

	select {
	case got := <-stderr:
		if got != "oops\n" {
			t.Fatalf("stderr = %q, want %q", got, "oops\n")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stderr dispatch")
	}
	if cmd.State() != CommandRunning {
		t.Fatalf("State() = %v, want running", cmd.State())
	}
}
