// Package fserrors defines the structured error model shared by every
// public surface of the SDK: codec, transport, HTTP, channel clients,
// and auth/sandbox control.
package fserrors

import "fmt"

// Path identifies which top-level surface produced an error.
type Path string

const (
	PathCodec     Path = "codec"
	PathTransport Path = "transport"
	PathHTTP      Path = "http"
	PathChannel   Path = "channel"
	PathAuth      Path = "auth"
	PathClient    Path = "client"
)

// Stage identifies which step within a Path failed.
type Stage string

const (
	StageValidate  Stage = "validate"
	StageEncode    Stage = "encode"
	StageDecode    Stage = "decode"
	StageDial      Stage = "dial"
	StageSend      Stage = "send"
	StageSubscribe Stage = "subscribe"
	StageRequest   Stage = "request"
	StageTimeout   Stage = "timeout"
	StageTeardown  Stage = "teardown"
	StageWait      Stage = "wait"
)

// Code is a stable, programmatic error identifier for user-facing operations.
type Code string

const (
	CodeInvalidInput       Code = "invalid_input"
	CodeShortBuffer        Code = "short_buffer"
	CodeUnknownTag         Code = "unknown_tag"
	CodeLengthMismatch     Code = "length_mismatch"
	CodeNotConnected       Code = "not_connected"
	CodeMissingConstructor Code = "missing_ws_constructor"
	CodeDialFailed         Code = "dial_failed"
	CodeReconnectExhausted Code = "reconnect_exhausted"
	CodeTimeout            Code = "timeout"
	CodeCanceled           Code = "canceled"
	CodeHTTPStatus         Code = "http_status"
	CodeAuthScope          Code = "auth_scope"
	CodeMissingToken       Code = "missing_token"
	CodeNotRunning         Code = "not_running"
	CodeTornDown           Code = "torn_down"
	CodeTransportClosed    Code = "transport_closed"
)

// Error is a structured, programmatically identifiable error.
type Error struct {
	Path  Path
	Stage Stage
	Code  Code
	Err   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s (%s): %v", e.Path, e.Stage, e.Code, e.Err)
	}
	return fmt.Sprintf("%s %s (%s)", e.Path, e.Stage, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap builds a structured Error. err may be nil.
func Wrap(path Path, stage Stage, code Code, err error) error {
	return &Error{Path: path, Stage: stage, Code: code, Err: err}
}

// Is reports whether err is an *Error carrying the given Code.
func Is(err error, code Code) bool {
	var e *Error
	if ok := asError(err, &e); !ok {
		return false
	}
	return e.Code == code
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
