package fserrors

import (
	"context"
	"errors"
)

// ClassifyContextCode maps a context-derived error to Timeout/Canceled,
// falling back to the supplied code for anything else. Transport dial
// and HTTP requests share this classification.
func ClassifyContextCode(err error, fallback Code) Code {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, context.Canceled):
		return CodeCanceled
	default:
		return fallback
	}
}
