package terminal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/computesdk/computesdk-sub001/fserrors"
	"github.com/computesdk/computesdk-sub001/httpapi"
	"github.com/computesdk/computesdk-sub001/internal/channelid"
	"github.com/computesdk/computesdk-sub001/transport"
	"github.com/computesdk/computesdk-sub001/wire"
)

// CommandState is the lifecycle of a streamed command (§4.7).
type CommandState string

const (
	CommandPending   CommandState = "pending"
	CommandRunning   CommandState = "running"
	CommandCompleted CommandState = "completed"
	CommandFailed    CommandState = "failed"
	CommandTimedOut  CommandState = "timed-out"
)

// RunOptions configures a streamed command submission.
type RunOptions struct {
	Shell      string            `json:"shell,omitempty"`
	Cwd        string            `json:"cwd,omitempty"`
	Env        map[string]string `json:"env,omitempty"`
	Background bool              `json:"background,omitempty"`
}

// ExitRecord is the terminal command:exit frame's payload.
type ExitRecord struct {
	ExitCode   int
	DurationMs int64
}

type streamSubmitResponse struct {
	CmdID     string `json:"cmd_id"`
	Channel   string `json:"channel"`
	Status    string `json:"status"`
	WSTrigger string `json:"ws_trigger"`
}

// Command is a single streamed command execution: the two-phase
// subscribe-then-trigger protocol, its running output, and its final
// exit record. Modeled on a pending-request registry keyed by cmd_id
// (one channel per command, closed to broadcast completion to every
// waiter — Wait may be called more than once or from more than one
// goroutine, and an already-completed command must return immediately).
type Command struct {
	cmdID   string
	channel string
	tr      *transport.Transport

	mu    sync.Mutex
	state CommandState
	exit  *ExitRecord
	err   error
	done  chan struct{}

	onStdout []func(text string)
	onStderr []func(text string)
}

// Run submits command for streamed execution. Per the two-phase
// protocol: the HTTP submission happens first and returns a channel and
// cmd_id, the client subscribes to that channel, and only then sends
// the command:start trigger — in that order, so a very fast server can
// never broadcast output before the client is listening (§4.7, S6).
func Run(ctx context.Context, httpClient *httpapi.Client, tr *transport.Transport, command string, opts RunOptions) (*Command, error) {
	body := map[string]any{
		"command":    command,
		"shell":      opts.Shell,
		"cwd":        opts.Cwd,
		"env":        opts.Env,
		"background": opts.Background,
		"stream":     true,
	}
	var resp streamSubmitResponse
	if err := httpClient.Request(ctx, "/run/command", httpapi.RequestOptions{Method: http.MethodPost, Body: body}, &resp); err != nil {
		return nil, err
	}
	channel := channelid.Normalize(resp.Channel)
	if err := channelid.Validate(channel); err != nil {
		return nil, fserrors.Wrap(fserrors.PathChannel, fserrors.StageValidate, fserrors.CodeInvalidInput, err)
	}

	c := &Command{
		cmdID:   resp.CmdID,
		channel: channel,
		tr:      tr,
		state:   CommandPending,
		done:    make(chan struct{}),
	}
	c.install()

	tr.Subscribe(ctx, c.channel)
	tr.Send(ctx, c.channel, "command:start", wire.MapPayload(wire.Map(nil).WithString("cmd_id", c.cmdID)))

	tr.On(transport.EventClose, func(v any) { c.fail(fserrors.Wrap(fserrors.PathChannel, fserrors.StageWait, fserrors.CodeTransportClosed, nil)) })

	return c, nil
}

func (c *Command) install() {
	c.tr.On(c.channel, func(v any) {
		msg, ok := v.(wire.Message)
		if !ok {
			return
		}
		switch msg.Type {
		case "command:stdout":
			c.dispatchStream(msg, &c.onStdout)
			c.transition(CommandRunning)
		case "command:stderr":
			c.dispatchStream(msg, &c.onStderr)
			c.transition(CommandRunning)
		case "command:exit":
			c.handleExit(msg)
		}
	})
}

func (c *Command) transition(s CommandState) {
	c.mu.Lock()
	if c.state == CommandPending {
		c.state = s
	}
	c.mu.Unlock()
}

func (c *Command) dispatchStream(msg wire.Message, slot *[]func(string)) {
	if msg.Payload.Kind != wire.PayloadMap {
		return
	}
	text, _ := msg.Payload.Map.GetString("text")
	c.mu.Lock()
	handlers := append([]func(string){}, (*slot)...)
	c.mu.Unlock()
	for _, h := range handlers {
		h(text)
	}
}

func (c *Command) handleExit(msg wire.Message) {
	record := ExitRecord{}
	if msg.Payload.Kind == wire.PayloadMap {
		if code, ok := msg.Payload.Map.GetNumber("exit_code"); ok {
			record.ExitCode = int(code)
		}
		if dur, ok := msg.Payload.Map.GetNumber("duration_ms"); ok {
			record.DurationMs = int64(dur)
		}
	}

	c.mu.Lock()
	if c.state == CommandCompleted || c.state == CommandFailed {
		c.mu.Unlock()
		return
	}
	c.exit = &record
	if record.ExitCode < 0 {
		c.state = CommandFailed
	} else {
		c.state = CommandCompleted
	}
	close(c.done)
	c.mu.Unlock()

	c.tr.Unsubscribe(context.Background(), c.channel)
	c.tr.OffAll(c.channel)
}

func (c *Command) fail(err error) {
	c.mu.Lock()
	if c.state == CommandCompleted || c.state == CommandFailed {
		c.mu.Unlock()
		return
	}
	c.err = err
	c.state = CommandFailed
	close(c.done)
	c.mu.Unlock()
}

// OnStdout registers a handler for command:stdout chunks.
func (c *Command) OnStdout(h func(text string)) {
	c.mu.Lock()
	c.onStdout = append(c.onStdout, h)
	c.mu.Unlock()
}

// OnStderr registers a handler for command:stderr chunks.
func (c *Command) OnStderr(h func(text string)) {
	c.mu.Lock()
	c.onStderr = append(c.onStderr, h)
	c.mu.Unlock()
}

// State reports the command's current lifecycle state.
func (c *Command) State() CommandState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CmdID returns the server-assigned command id.
func (c *Command) CmdID() string { return c.cmdID }

// Wait blocks for the exit record, or returns immediately if the
// command already completed. A timeout of 0 means wait indefinitely
// (bounded only by ctx). Canceling a pending wait drops the caller's
// interest without sending a cancel frame — the command keeps running
// server-side (§4.7).
func (c *Command) Wait(ctx context.Context, timeout time.Duration) (*ExitRecord, error) {
	c.mu.Lock()
	if c.exit != nil {
		record := *c.exit
		c.mu.Unlock()
		return &record, nil
	}
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()

	waitCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	select {
	case <-c.done:
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.exit != nil {
			record := *c.exit
			return &record, nil
		}
		return nil, c.err
	case <-waitCtx.Done():
		if timeout > 0 && ctx.Err() == nil {
			c.mu.Lock()
			alreadyDone := c.state == CommandCompleted || c.state == CommandFailed
			c.mu.Unlock()
			if !alreadyDone {
				c.mu.Lock()
				c.state = CommandTimedOut
				c.mu.Unlock()
			}
			return nil, fserrors.Wrap(fserrors.PathChannel, fserrors.StageWait, fserrors.CodeTimeout, waitCtx.Err())
		}
		return nil, fserrors.Wrap(fserrors.PathChannel, fserrors.StageWait, fserrors.CodeCanceled, waitCtx.Err())
	}
}
