package sandbox

import (
	"context"
	"log/slog"

	"github.com/computesdk/computesdk-sub001/signalsvc"
	"github.com/computesdk/computesdk-sub001/terminal"
	"github.com/computesdk/computesdk-sub001/watcher"
)

// CreatePTYTerminal opens a persistent interactive shell channel client (C6).
func (r *Root) CreatePTYTerminal(ctx context.Context, opts terminal.PTYCreateOptions) (*terminal.PTY, error) {
	tr, err := r.Transport()
	if err != nil {
		return nil, err
	}
	return terminal.CreatePTY(ctx, r.http, tr, opts, slog.Default())
}

// RunStreaming submits a two-phase streaming command execution (C7).
func (r *Root) RunStreaming(ctx context.Context, command string, opts terminal.RunOptions) (*terminal.Command, error) {
	tr, err := r.Transport()
	if err != nil {
		return nil, err
	}
	return terminal.Run(ctx, r.http, tr, command, opts)
}

// Watch opens a file-watcher channel client (C8).
func (r *Root) Watch(ctx context.Context, opts watcher.CreateOptions) (*watcher.Watcher, error) {
	tr, err := r.Transport()
	if err != nil {
		return nil, err
	}
	return watcher.Create(ctx, r.http, tr, opts)
}

// Signals subscribes to the fixed signals channel (C9). The returned
// client is cached: repeated calls share one subscription.
func (r *Root) Signals(ctx context.Context) (*signalsvc.Service, error) {
	if r.signals != nil {
		return r.signals, nil
	}
	tr, err := r.Transport()
	if err != nil {
		return nil, err
	}
	r.signals = signalsvc.New(ctx, tr)
	return r.signals, nil
}
