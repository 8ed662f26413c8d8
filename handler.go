package relaylog

// Handler is the contract a concrete handler back-end implements.
// Since Go methods close over their own receiver, a Handler instance
// already is both the callback table and the configuration state a
// C-style API would thread through separately — no extra param type
// is needed to capture the same contract.
//
// Every method may return a non-OK *Error, which the owning handler
// runtime (handler_runtime.go) folds into its ErrorSet. Returning the
// distinguished HandlerExit code from ProcessIErr requests an
// immediate, clean shutdown of the handler.
type Handler interface {
	// Init opens sinks and allocates buffers. Called once, before the
	// handler answers its first "ready?".
	Init() *Error

	// ProcessLog emits one record. The handler is responsible for
	// splitting a multi-line message into per-line output if its
	// format requires that.
	ProcessLog(rec *Record) *Error

	// ProcessIErr is invoked by the handler runtime for every internal
	// error it needs the handler to account for or react to.
	ProcessIErr(err *Error) *Error

	// ProcessImplicitFlush runs on every dispatch-loop wake that found
	// no work (a periodic, best-effort flush).
	ProcessImplicitFlush() *Error

	// ProcessExplicitFlush runs in response to a "flush?" control
	// request and must be synchronous for any handler backed by a
	// durable sink.
	ProcessExplicitFlush() *Error

	// ProcessExit finalizes sinks and reports totals; called once,
	// after the handler has drained its data endpoint in response to
	// "exit?".
	ProcessExit() *Error

	// Destroy releases any resources Init allocated. Called after
	// ProcessExit, even on a handler that failed to initialize.
	Destroy()
}
