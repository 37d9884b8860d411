package sandbox

import (
	"context"
	"net/http"

	"github.com/computesdk/computesdk-sub001/httpapi"
)

// ExecuteOptions configures a non-streaming command run via POST /run/command.
type ExecuteOptions struct {
	Shell string            `json:"shell,omitempty"`
	Cwd   string            `json:"cwd,omitempty"`
	Env   map[string]string `json:"env,omitempty"`
}

// ExecuteResult is the non-streaming response shape from §6.4.
type ExecuteResult struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitCode   int    `json:"exit_code"`
	DurationMs int64  `json:"duration_ms"`
}

type executeRequestBody struct {
	Command string            `json:"command"`
	Shell   string            `json:"shell,omitempty"`
	Cwd     string            `json:"cwd,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Execute runs command to completion via the non-streaming
// POST /run/command call and returns its collected result.
func (r *Root) Execute(ctx context.Context, command string, opts ExecuteOptions) (*ExecuteResult, error) {
	body := executeRequestBody{Command: command, Shell: opts.Shell, Cwd: opts.Cwd, Env: opts.Env}
	var out ExecuteResult
	if err := r.http.Request(ctx, "/run/command", httpapi.RequestOptions{Method: http.MethodPost, Body: body}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
