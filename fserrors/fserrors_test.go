package fserrors

import (
	"context"
	"errors"
	"testing"
)

func TestErrorString(t *testing.T) {
	err := Wrap(PathCodec, StageDecode, CodeShortBuffer, errors.New("eof"))
	want := "codec decode (short_buffer): eof"
	if got := err.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}

	var noCause *Error
	if e := Wrap(PathCodec, StageDecode, CodeShortBuffer, nil); e.(*Error) == noCause {
		t.Fatalf("unexpected identity")
	}
	bare := Wrap(PathCodec, StageDecode, CodeShortBuffer, nil)
	if got, want := bare.Error(), "codec decode (short_buffer)"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestErrorUnwrapAndIs(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(PathTransport, StageDial, CodeDialFailed, cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to find cause through Unwrap")
	}
	if !Is(err, CodeDialFailed) {
		t.Fatal("expected Is(err, CodeDialFailed) to be true")
	}
	if Is(err, CodeTimeout) {
		t.Fatal("expected Is(err, CodeTimeout) to be false")
	}
	if Is(cause, CodeDialFailed) {
		t.Fatal("expected Is on a plain error to be false")
	}
}

func TestClassifyContextCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Code
	}{
		{"deadline", context.DeadlineExceeded, CodeTimeout},
		{"canceled", context.Canceled, CodeCanceled},
		{"other", errors.New("x"), CodeDialFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyContextCode(tc.err, CodeDialFailed); got != tc.want {
				t.Fatalf("ClassifyContextCode() = %q, want %q", got, tc.want)
			}
		})
	}
}
