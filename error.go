package relaylog

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	pkgerrors "github.com/pkg/errors"
)

// Code identifies the kind of an Error. FromErrno stores the raw errno
// value as its Code rather than using one of the named constants.
type Code int

const (
	Generic Code = iota
	Group
	Set
	Assert
	Unreachable
	HandlerExit
	IllegalState
	Protocol
	MissingFrame
	RetriesExhausted
	Timeout
	BadLevel
)

// DepthAll renders an error chain to its full depth.
const DepthAll = -1

// Error is a chained error value: a code, a formatted message, an
// optional opaque data payload with custom free/render callbacks, an
// optional cause, and a backtrace captured at creation.
//
// Statically declared errors (allocated == false, created with
// NewStatic) are never freed and never acquire a cause.
type Error struct {
	Code      Code
	Message   string
	Data      interface{}
	Cause     *Error

	freeFn    func(interface{})
	renderFn  func(interface{}) string
	backtrace string
	lastCause *Error
	allocated bool
}

// OK is the distinguished "no error" singleton, compared by identity.
var OK = NewStatic(Generic, "no problem found: everything is ok")

// NewStatic declares an error that is never freed and never chained
// into (the caller owns its lifetime entirely, typically as a package
// level var).
func NewStatic(code Code, message string) *Error {
	return &Error{Code: code, Message: message, allocated: false}
}

// New creates a new Error, capturing a backtrace and formatting the
// message. data/freeFn/renderFn may all be nil when there is no extra
// payload to carry.
func New(code Code, data interface{}, freeFn func(interface{}), renderFn func(interface{}) string, cause *Error, format string, args ...interface{}) *Error {
	return newError(code, data, freeFn, renderFn, cause, fmt.Sprintf(format, args...))
}

// Newf creates a plain Error with no data payload and no cause.
func Newf(code Code, format string, args ...interface{}) *Error {
	return newError(code, nil, nil, nil, nil, fmt.Sprintf(format, args...))
}

// ErrnoErr wraps a syscall-style error, using its errno (when sysErr
// is or wraps a syscall.Errno) as the Code and suffixing the message
// with the underlying OS error string.
func ErrnoErr(sysErr error, format string, args ...interface{}) *Error {
	code := Generic
	var en syscall.Errno
	if errors.As(sysErr, &en) {
		code = Code(en)
	}
	msg := fmt.Sprintf(format, args...)
	if sysErr != nil {
		msg = msg + ": " + sysErr.Error()
	}
	return newError(code, nil, nil, nil, nil, msg)
}

// FromIdx builds an Error whose base message is table[i] (when i is in
// range), suffixed by the formatted detail.
func FromIdx(i int, table []string, format string, args ...interface{}) *Error {
	base := ""
	if i >= 0 && i < len(table) {
		base = table[i]
	}
	msg := base
	if format != "" {
		detail := fmt.Sprintf(format, args...)
		if msg != "" {
			msg = msg + ": " + detail
		} else {
			msg = detail
		}
	}
	return newError(Code(i), nil, nil, nil, nil, msg)
}

func newError(code Code, data interface{}, freeFn func(interface{}), renderFn func(interface{}) string, cause *Error, msg string) *Error {
	e := &Error{
		Code:      code,
		Message:   msg,
		Data:      data,
		Cause:     cause,
		freeFn:    freeFn,
		renderFn:  renderFn,
		allocated: true,
	}
	if cause != nil {
		if cause.lastCause != nil {
			e.lastCause = cause.lastCause
		} else {
			e.lastCause = cause
		}
	}
	e.backtrace = captureBacktrace()
	return e
}

// IsOK reports whether err represents success: nil or the OK singleton.
func (e *Error) IsOK() bool {
	return e == nil || e == OK
}

// IsKO reports whether err represents a failure.
func (e *Error) IsKO() bool {
	return !e.IsOK()
}

// Error implements the standard error interface.
func (e *Error) Error() string {
	if e.IsOK() {
		return e.Message
	}
	return e.Message
}

// Unwrap lets this Error interoperate with errors.Is/errors.As and
// github.com/pkg/errors.Cause.
func (e *Error) Unwrap() error {
	if e == nil || e.Cause == nil {
		return nil
	}
	return e.Cause
}

// Chain appends top under new's tail (O(1) via lastCause) and returns
// new as the outgoing error. If either side is OK, the other side
// passes through unchanged. top == new is a self-chain bug: it is
// reported to stderr and the chain is left unchanged.
func Chain(top, newErr *Error) *Error {
	if newErr.IsOK() {
		return top
	}
	if top.IsOK() {
		return newErr
	}
	if top == newErr {
		loop := Newf(Generic, "self-chain detected: an error was chained to itself")
		fmt.Fprintln(os.Stderr, Render(loop, DepthAll).String())
		return newErr
	}
	if newErr.Cause != nil {
		newErr.lastCause.Cause = top
	} else {
		newErr.Cause = top
	}
	if top.lastCause != nil {
		newErr.lastCause = top.lastCause
	} else {
		newErr.lastCause = top
	}
	return newErr
}

// Depth counts the links in err's chain. OK has depth 0.
func Depth(err *Error) int {
	n := 0
	for e := err; e.IsKO(); e = e.Cause {
		n++
		if e.Cause == nil {
			break
		}
	}
	return n
}

// Destroy recursively releases err's data payload and its cause chain.
// It is a no-op on OK and on statically declared errors.
func Destroy(errp **Error) {
	if errp == nil || *errp == nil {
		return
	}
	e := *errp
	if e == OK || !e.allocated {
		*errp = nil
		return
	}
	if e.Cause != nil {
		Destroy(&e.Cause)
	}
	if e.freeFn != nil && e.Data != nil {
		e.freeFn(e.Data)
		e.Data = nil
	}
	*errp = nil
}

func captureBacktrace() string {
	st, ok := pkgerrors.New("").(interface{ StackTrace() pkgerrors.StackTrace })
	if !ok {
		return ""
	}
	frames := st.StackTrace()
	if len(frames) > 2 {
		frames = frames[2:] // drop captureBacktrace and newError
	}
	var b strings.Builder
	for _, f := range frames {
		fmt.Fprintf(&b, "%+v\n", f)
	}
	return b.String()
}
