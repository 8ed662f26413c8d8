package relaylog

import (
	"strings"
	"sync"
	"testing"
)

// recordingHandler captures every record ProcessLog sees, guarded by a
// mutex since it runs on the handler's own goroutine while the test
// goroutine inspects it after a Flush.
type recordingHandler struct {
	mu      sync.Mutex
	records []*Record
}

func (h *recordingHandler) Init() *Error { return OK }
func (h *recordingHandler) ProcessLog(rec *Record) *Error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, rec)
	return OK
}
func (h *recordingHandler) ProcessIErr(err *Error) *Error { return OK }
func (h *recordingHandler) ProcessImplicitFlush() *Error  { return OK }
func (h *recordingHandler) ProcessExplicitFlush() *Error  { return OK }
func (h *recordingHandler) ProcessExit() *Error           { return OK }
func (h *recordingHandler) Destroy()                      {}

func (h *recordingHandler) snapshot() []*Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Record, len(h.records))
	copy(out, h.records)
	return out
}

func newRecordingPipeline(t *testing.T, filters *FilterSet) (*Pipeline, *recordingHandler) {
	t.Helper()
	if filters == nil {
		filters = NewFilterSet(Filter{Prefix: "", Level: TRACE})
	}
	h := &recordingHandler{}
	p := NewPipeline()
	if err := p.Init(Config{Handlers: []HandlerConfig{{Name: "rec", Handler: h, Filters: filters}}}); err.IsKO() {
		t.Fatalf("Init failed: %s", err.Message)
	}
	t.Cleanup(func() { p.Finalize() })
	return p, h
}

func TestLoggerLevelMethodsCaptureUserCallSite(t *testing.T) {
	p, h := newRecordingPipeline(t, nil)
	logger := p.GetLogger("app")

	logger.Info("via Info")
	if err := p.Flush(); err.IsKO() {
		t.Fatalf("Flush failed: %s", err.Message)
	}

	recs := h.snapshot()
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	rec := recs[0]
	if !strings.HasSuffix(rec.Filename, "producer_test.go") {
		t.Errorf("Filename = %q, want this test file (not producer.go/registry.go)", rec.Filename)
	}
	if rec.Funcname == "" {
		t.Error("Funcname should be populated")
	}
	if rec.Message != "via Info" {
		t.Errorf("Message = %q", rec.Message)
	}
	if rec.Header.Level != INFO {
		t.Errorf("Level = %v, want INFO", rec.Header.Level)
	}
}

func TestLogfDirectCapturesUserCallSite(t *testing.T) {
	p, h := newRecordingPipeline(t, nil)
	logger := p.GetLogger("app")

	logger.Logf(WARNING, "via Logf directly")
	p.Flush()

	recs := h.snapshot()
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if !strings.HasSuffix(recs[0].Filename, "producer_test.go") {
		t.Errorf("Filename = %q, want this test file", recs[0].Filename)
	}
}

func TestLogfDisabledLevelIsSilent(t *testing.T) {
	p, h := newRecordingPipeline(t, NewFilterSet(Filter{Prefix: "", Level: ERROR}))
	logger := p.GetLogger("app")

	if err := logger.Debug("should not format, let alone send"); err.IsKO() {
		t.Errorf("Logf on a disabled level should return OK, got %s", err.Message)
	}
	p.Flush()

	if len(h.snapshot()) != 0 {
		t.Errorf("got %d records, want 0", len(h.snapshot()))
	}
}

func TestLogRawStrSkipsFormatting(t *testing.T) {
	p, h := newRecordingPipeline(t, nil)
	logger := p.GetLogger("app")

	logger.LogRawStr(INFO, "literal %s not a format string")
	p.Flush()

	recs := h.snapshot()
	if len(recs) != 1 || recs[0].Message != "literal %s not a format string" {
		t.Fatalf("records = %+v, message should be passed through verbatim", recs)
	}
}

func TestEndpointFormatOversizeCounter(t *testing.T) {
	ep := newEndpoint(nil, 4) // tiny pre-sized buffer to force overflow
	before := ep.OversizeCount()
	ep.format("a longer message than the tiny buffer can hold: %d", []interface{}{123})
	if ep.OversizeCount() != before+1 {
		t.Errorf("OversizeCount() = %d, want %d", ep.OversizeCount(), before+1)
	}
}

func TestEndpointFormatNoArgsSkipsAppendf(t *testing.T) {
	ep := newEndpoint(nil, 16)
	got := ep.format("plain message, no directives", nil)
	if got != "plain message, no directives" {
		t.Errorf("format() = %q", got)
	}
}

func TestLoggerLevelConvenienceMethodsAllDispatch(t *testing.T) {
	p, h := newRecordingPipeline(t, nil)
	logger := p.GetLogger("app")

	calls := []func(string, ...interface{}) *Error{
		logger.Panic, logger.Alert, logger.Critical, logger.Error,
		logger.Warning, logger.Notice, logger.Output, logger.Info,
		logger.Debug, logger.Fine, logger.Trace,
	}
	for _, call := range calls {
		if err := call("msg"); err.IsKO() {
			t.Errorf("level method returned KO: %s", err.Message)
		}
	}
	p.Flush()
	if got := len(h.snapshot()); got != len(calls) {
		t.Errorf("got %d records, want %d", got, len(calls))
	}
}
