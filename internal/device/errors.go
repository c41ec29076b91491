package device

import (
	"errors"
	"fmt"
)

// Code is a native result code reported by a backend.
type Code int

// Result codes. Backends with their own code space implement Coded.
const (
	CodeOK           Code = 0
	CodeFailed       Code = -1
	CodeInvalidArg   Code = -2
	CodeNotOpen      Code = -3
	CodeNotSupported Code = -4
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeFailed:
		return "failed"
	case CodeInvalidArg:
		return "invalid argument"
	case CodeNotOpen:
		return "not open"
	case CodeNotSupported:
		return "not supported"
	default:
		return fmt.Sprintf("code %d", int(c))
	}
}

var (
	// ErrInvalidState reports programming misuse: drawing with a strategy
	// that was never attached, or addressing a key outside 1..KeyCount.
	ErrInvalidState = errors.New("invalid state")

	ErrNotOpen       = errors.New("device is not open")
	ErrInvalidTarget = errors.New("invalid target")
	ErrNotSupported  = errors.New("not supported")
)

// Coded is implemented by backend errors that carry a native result code.
type Coded interface {
	NativeCode() Code
}

// CodeOf extracts the native result code from a backend error.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var c Coded
	if errors.As(err, &c) {
		return c.NativeCode()
	}
	switch {
	case errors.Is(err, ErrNotOpen):
		return CodeNotOpen
	case errors.Is(err, ErrInvalidTarget):
		return CodeInvalidArg
	case errors.Is(err, ErrNotSupported):
		return CodeNotSupported
	}
	return CodeFailed
}

// WriteError is returned when pushing pixels or images to the device fails.
// It is never retried by the core; callers decide the retry policy.
type WriteError struct {
	Op   string
	Code Code
	Err  error
}

// NewWriteError wraps a backend failure for the named operation.
func NewWriteError(op string, err error) *WriteError {
	return &WriteError{Op: op, Code: CodeOf(err), Err: err}
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("device: %s failed (%s): %v", e.Op, e.Code, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// NativeCode implements Coded so re-wrapping keeps the original code.
func (e *WriteError) NativeCode() Code {
	return e.Code
}
