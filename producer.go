package relaylog

import (
	"fmt"
	"os"
	"time"
)

// pidValue is captured once: the record header carries the process
// id the record was produced in.
var pidValue = int32(os.Getpid())

// nowFunc is a seam for deterministic tests; production code always
// uses time.Now.
var nowFunc = time.Now

const defaultFormatBufSize = 128

// RetriesMax is the default bound on non-blocking send attempts before
// an Endpoint degrades to a blocking send.
const RetriesMax = 3

// Endpoint is the per-goroutine producer handle: a lazily created,
// un-shared set of resources a single goroutine uses to format and
// ship records to every configured handler. Go has no portable
// thread-local storage, so an Endpoint is realized as an explicit
// handle rather than attached to the OS thread (Design Note 9);
// Logger.Logf and friends obtain one from a goroutine-keyed cache so
// callers are not forced to thread it through by hand.
type Endpoint struct {
	pipeline   *Pipeline
	buf        []byte
	tid        int32
	threadRank int64
	oversize   int64 // count of format-buffer overflows requiring a fresh allocation
}

func newEndpoint(p *Pipeline, bufSize int) *Endpoint {
	if bufSize <= 0 {
		bufSize = defaultFormatBufSize
	}
	return &Endpoint{
		pipeline:   p,
		buf:        make([]byte, 0, bufSize),
		tid:        gettid(),
		threadRank: goroutineID(),
	}
}

// OversizeCount reports how many sends on this endpoint overflowed the
// pre-sized format buffer and required an exact-sized allocation.
func (e *Endpoint) OversizeCount() int64 { return e.oversize }

// format renders msg into e's reusable buffer, growing to an
// exactly-sized allocation (and bumping the oversize counter) if the
// pre-sized buffer is too small.
func (e *Endpoint) format(format string, args []interface{}) string {
	if len(args) == 0 {
		return format
	}
	presized := cap(e.buf)
	e.buf = e.buf[:0]
	e.buf = fmt.Appendf(e.buf, format, args...)
	if len(e.buf) > presized {
		e.oversize++
	}
	return string(e.buf)
}

// send builds a Record from a call site and multicasts it to every
// handler configured on e's pipeline.
func (e *Endpoint) send(logger *Logger, level Level, skip int, format string, args []interface{}) *Error {
	return e.dispatch(logger, level, skip, e.format(format, args))
}

// sendRaw skips formatting, used when the caller already has the
// literal message — notably when bridging from another logging
// system.
func (e *Endpoint) sendRaw(logger *Logger, level Level, skip int, msg string) *Error {
	return e.dispatch(logger, level, skip, msg)
}

func (e *Endpoint) dispatch(logger *Logger, level Level, skip int, msg string) *Error {
	ci := captureCaller(skip)

	rec := AcquireRecord()
	rec.Header.Level = level
	now := nowFunc()
	rec.Header.Sec = now.Unix()
	rec.Header.Nsec = int32(now.Nanosecond())
	rec.Header.Pid = pidValue
	rec.Header.Tid = e.tid
	rec.Header.ThreadRank = e.threadRank
	rec.Header.Line = int32(ci.line)
	rec.Filename = ci.file
	rec.Funcname = ci.fn
	rec.LoggerName = logger.name
	rec.Message = msg

	handlers := e.pipeline.handlerRuntimes()
	cfg := e.pipeline.cfg

	var lastErr *Error = OK
	for _, h := range handlers {
		if err := h.bus.SendRecord(rec, cfg.retriesMax(), cfg.retryDelay()); err.IsKO() {
			lastErr = Chain(lastErr, Newf(RetriesExhausted, "send to handler %q failed: %s", h.name, err.Message))
		}
	}
	return lastErr
}

// callerSkip is the frame depth from a *Logger entry point (Logf,
// LogRawStr, or one of the per-level convenience methods below) down
// to dispatch's own runtime.Caller call. Every entry point calls
// logAt/logRawAt directly rather than through one another, so all of
// them sit at the same depth and share this one constant rather than
// each hard-coding its own skip count for a single fixed wrapper.
const callerSkip = 5

func (l *Logger) logAt(level Level, skip int, format string, args ...interface{}) *Error {
	if !l.IsEnabledFor(level) {
		return OK
	}
	p := l.pipeline
	if p == nil || p.State() != StateInitialized {
		return OK
	}
	ep := p.endpointForGoroutine()
	return ep.send(l, level, skip, format, args)
}

func (l *Logger) logRawAt(level Level, skip int, msg string) *Error {
	if !l.IsEnabledFor(level) {
		return OK
	}
	p := l.pipeline
	if p == nil || p.State() != StateInitialized {
		return OK
	}
	ep := p.endpointForGoroutine()
	return ep.sendRaw(l, level, skip, msg)
}

// Logf formats and emits a record at level through logger, if logger
// is currently enabled for level and the owning pipeline is
// INITIALIZED. Outside of that window the call is silently dropped.
func (l *Logger) Logf(level Level, format string, args ...interface{}) *Error {
	return l.logAt(level, callerSkip, format, args...)
}

// LogRawStr emits msg verbatim, skipping the format step.
func (l *Logger) LogRawStr(level Level, msg string) *Error {
	return l.logRawAt(level, callerSkip, msg)
}

func (l *Logger) Panic(format string, args ...interface{}) *Error {
	return l.logAt(PANIC, callerSkip, format, args...)
}
func (l *Logger) Alert(format string, args ...interface{}) *Error {
	return l.logAt(ALERT, callerSkip, format, args...)
}
func (l *Logger) Critical(format string, args ...interface{}) *Error {
	return l.logAt(CRITICAL, callerSkip, format, args...)
}
func (l *Logger) Error(format string, args ...interface{}) *Error {
	return l.logAt(ERROR, callerSkip, format, args...)
}
func (l *Logger) Warning(format string, args ...interface{}) *Error {
	return l.logAt(WARNING, callerSkip, format, args...)
}
func (l *Logger) Notice(format string, args ...interface{}) *Error {
	return l.logAt(NOTICE, callerSkip, format, args...)
}
func (l *Logger) Output(format string, args ...interface{}) *Error {
	return l.logAt(OUTPUT, callerSkip, format, args...)
}
func (l *Logger) Info(format string, args ...interface{}) *Error {
	return l.logAt(INFO, callerSkip, format, args...)
}
func (l *Logger) Debug(format string, args ...interface{}) *Error {
	return l.logAt(DEBUG, callerSkip, format, args...)
}
func (l *Logger) Fine(format string, args ...interface{}) *Error {
	return l.logAt(FINE, callerSkip, format, args...)
}
func (l *Logger) Trace(format string, args ...interface{}) *Error {
	return l.logAt(TRACE, callerSkip, format, args...)
}
