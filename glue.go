package relaylog

import (
	"fmt"
	"os"
	"time"
)

// defaultPipeline is the package-level coordinator instance backing
// the convenience functions below. Tests that need isolated lifecycle
// state construct their own *Pipeline with NewPipeline instead of
// touching this one.
var defaultPipeline = NewPipeline()

// Default returns the package-level pipeline.
func Default() *Pipeline { return defaultPipeline }

// Init starts the default pipeline. See Pipeline.Init.
func Init(cfg Config) *Error { return defaultPipeline.Init(cfg) }

// Finalize stops the default pipeline. See Pipeline.Finalize.
func Finalize() *Error { return defaultPipeline.Finalize() }

// Flush flushes the default pipeline. See Pipeline.Flush.
func Flush() *Error { return defaultPipeline.Flush() }

// GetLogger returns a dynamically-owned logger from the default
// pipeline's registry.
func GetLogger(name string) *Logger { return defaultPipeline.GetLogger(name) }

// GetStaticLogger returns a call-site-declared logger from the default
// pipeline's registry, typically held in a package-level var.
func GetStaticLogger(name string) *Logger { return defaultPipeline.GetStaticLogger(name) }

// abort is the process-termination seam Assert/Unreachable call after
// printing their diagnostic; overridable in tests.
var abort = func() { os.Exit(134) } // 128+SIGABRT, the conventional "aborted" exit code

// Assert reports a bug and aborts the process if cond is false: it
// formats an error, prints it to stderr with a backtrace, then abort.
// logger, if non-nil, also receives the rendered message at PANIC
// before the process goes down; logger is best-effort since the
// pipeline may already be in a broken state.
func Assert(cond bool, logger *Logger, format string, args ...interface{}) {
	if cond {
		return
	}
	err := Newf(Assert, format, args...)
	fmt.Fprintln(os.Stderr, Render(err, DepthAll).String())
	if logger != nil {
		logger.Panic("assertion failed: %s", err.Message)
	}
	abort()
}

// Unreachable reports that control flow reached a point the caller
// believed impossible, then aborts.
func Unreachable(logger *Logger, format string, args ...interface{}) {
	err := Newf(Unreachable, format, args...)
	fmt.Fprintln(os.Stderr, Render(err, DepthAll).String())
	if logger != nil {
		logger.Panic("unreachable: %s", err.Message)
	}
	abort()
}

// exitFn is the process-termination seam Exit calls; overridable in
// tests.
var exitFn = os.Exit

// Exit logs the rendered err (if any) to logger at level, sleeps
// briefly to give the handler threads a chance to drain, flushes, and
// terminates the process with code — the recommended termination path
// for business code handling a fatal error.
func Exit(code int, err *Error, logger *Logger, level Level) {
	if err.IsKO() && logger != nil {
		ReportTo(logger, level, err, DepthAll)
	}
	time.Sleep(50 * time.Millisecond)
	_ = Flush()
	exitFn(code)
}
