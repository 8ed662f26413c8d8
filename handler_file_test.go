package relaylog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileHandlerWritesAndFlushes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	h := NewFileHandler(FileConfig{Path: path}, nil)
	if err := h.Init(); err.IsKO() {
		t.Fatalf("Init failed: %s", err.Message)
	}
	defer h.Destroy()

	rec := sampleRecord()
	if err := h.ProcessLog(rec); err.IsKO() {
		t.Fatalf("ProcessLog failed: %s", err.Message)
	}
	if h.BytesWritten() == 0 {
		t.Error("BytesWritten() should be non-zero after a write")
	}
	if err := h.ProcessExplicitFlush(); err.IsKO() {
		t.Fatalf("ProcessExplicitFlush failed: %s", err.Message)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %s", err)
	}
	if !strings.Contains(string(data), "connection refused") {
		t.Errorf("file contents missing message: %s", data)
	}
}

func TestFileHandlerDefaultsToPlainEncoder(t *testing.T) {
	h := NewFileHandler(FileConfig{Path: filepath.Join(t.TempDir(), "app.log")}, nil)
	if _, ok := h.encoder.(*PlainEncoder); !ok {
		t.Errorf("default encoder = %T, want *PlainEncoder", h.encoder)
	}
}

func TestFileHandlerInitMissingPathFails(t *testing.T) {
	h := NewFileHandler(FileConfig{}, nil)
	if err := h.Init(); err.IsOK() {
		t.Error("Init with an empty path should fail")
	}
}

func TestFileHandlerProcessExplicitFlushNilWriterIsOK(t *testing.T) {
	h := NewFileHandler(FileConfig{Path: "unused"}, nil)
	if err := h.ProcessExplicitFlush(); err.IsKO() {
		t.Errorf("flush before Init should be a harmless no-op, got %s", err.Message)
	}
}

func TestFileHandlerThroughPipeline(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.log")

	p := NewPipeline()
	err := p.Init(Config{Handlers: []HandlerConfig{
		{Name: "file", Handler: NewFileHandler(FileConfig{Path: path}, nil),
			Filters: NewFilterSet(Filter{Prefix: "", Level: TRACE})},
	}})
	if err.IsKO() {
		t.Fatalf("Init failed: %s", err.Message)
	}

	logger := p.GetLogger("app")
	logger.Info("hello from the pipeline")
	if err := p.Flush(); err.IsKO() {
		t.Fatalf("Flush failed: %s", err.Message)
	}
	if err := p.Finalize(); err.IsKO() {
		t.Fatalf("Finalize failed: %s", err.Message)
	}

	data, rerr := os.ReadFile(path)
	if rerr != nil {
		t.Fatalf("reading log file: %s", rerr)
	}
	if !strings.Contains(string(data), "hello from the pipeline") {
		t.Errorf("file contents missing message: %s", data)
	}
}
