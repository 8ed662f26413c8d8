package relaylog

// NullHandler discards every record. It is the handler a test pipeline
// configures when it only cares about the producer/registry path —
// a null sink for tests.
type NullHandler struct {
	processed int64
}

// NewNullHandler creates a discard handler.
func NewNullHandler() *NullHandler { return &NullHandler{} }

func (h *NullHandler) Init() *Error { return OK }

func (h *NullHandler) ProcessLog(rec *Record) *Error {
	h.processed++
	return OK
}

func (h *NullHandler) ProcessIErr(err *Error) *Error { return OK }

func (h *NullHandler) ProcessImplicitFlush() *Error { return OK }

func (h *NullHandler) ProcessExplicitFlush() *Error { return OK }

func (h *NullHandler) ProcessExit() *Error { return OK }

func (h *NullHandler) Destroy() {}

// Processed returns the number of records this handler has seen. Only
// meaningful to read after Finalize, since it is otherwise mutated
// from the handler's own goroutine.
func (h *NullHandler) Processed() int64 { return h.processed }
