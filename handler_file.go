package relaylog

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileConfig configures a FileHandler's sink: where it writes, and
// under what size/age/count policy it rotates.
type FileConfig struct {
	// Path is the log file path.
	Path string

	// MaxSize is the maximum size in bytes before rotation. Default: 100MB.
	MaxSize int64

	// MaxAge is how long to keep old log files. Default: 7 days, used
	// whenever MaxAge is 0 or negative.
	MaxAge time.Duration

	// MaxBackups is the maximum number of old log files to keep.
	// Default: 5, used whenever MaxBackups is 0 or negative.
	MaxBackups int

	// Compress enables gzip compression of rotated files.
	Compress bool
}

func (c *FileConfig) maxSize() int64 {
	if c.MaxSize > 0 {
		return c.MaxSize
	}
	return 100 * 1024 * 1024 // 100MB
}

func (c *FileConfig) maxAge() time.Duration {
	if c.MaxAge > 0 {
		return c.MaxAge
	}
	return 7 * 24 * time.Hour
}

func (c *FileConfig) maxBackups() int {
	if c.MaxBackups > 0 {
		return c.MaxBackups
	}
	return 5
}

// fileSink is the single-writer-per-file append-only sink backing a
// FileHandler. Unlike a general-purpose byte sink, every write carries
// the Record it came from, so a write failure can be reported with the
// logger/line that produced it rather than a bare byte count, and a
// rotated backup's name records how many log records it held.
//
// fileSink is private to this file: nothing else in the package needs
// a reusable WriteSyncer-style abstraction, so it is not exported.
type fileSink struct {
	cfg FileConfig
	mu  sync.Mutex

	file    *os.File
	size    int64
	records int64 // records written to the current file since it was opened or last rotated
}

func newFileSink(cfg FileConfig) (*fileSink, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("relaylog: file handler requires a non-empty path")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("relaylog: cannot create directory for %s: %w", cfg.Path, err)
	}
	fs := &fileSink{cfg: cfg}
	if err := fs.openFile(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *fileSink) openFile() error {
	f, err := os.OpenFile(fs.cfg.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("relaylog: cannot open log file %s: %w", fs.cfg.Path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("relaylog: cannot stat log file %s: %w", fs.cfg.Path, err)
	}
	fs.file = f
	fs.size = info.Size()
	fs.records = 0
	return nil
}

// writeRecord writes p, the bytes the caller's encoder produced for
// rec, rotating first if the write would overflow the size policy, and
// tallies one more record against the current file.
func (fs *fileSink) writeRecord(rec *Record, p []byte) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.size+int64(len(p)) > fs.cfg.maxSize() {
		if err := fs.rotate(); err != nil {
			return 0, fmt.Errorf("rotating before record from %q: %w", rec.LoggerName, err)
		}
	}

	n, err := fs.file.Write(p)
	fs.size += int64(n)
	fs.records++
	if err != nil {
		return n, fmt.Errorf("writing record from %q: %w", rec.LoggerName, err)
	}
	return n, nil
}

func (fs *fileSink) bytesWritten() int64 {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.size
}

func (fs *fileSink) sync() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.file == nil {
		return nil
	}
	return fs.file.Sync()
}

func (fs *fileSink) close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.file == nil {
		return nil
	}
	return fs.file.Close()
}

// rotate closes the current file, renames it to a timestamped backup
// whose name also records how many log records it held, then reopens
// Path fresh. Compression and retention pruning run in the background
// so the dispatch-loop goroutine that triggered rotation is not
// blocked on them.
func (fs *fileSink) rotate() error {
	if fs.file != nil {
		fs.file.Close()
	}

	ext := filepath.Ext(fs.cfg.Path)
	base := strings.TrimSuffix(fs.cfg.Path, ext)
	backupPath := fmt.Sprintf("%s-%s-%dr%s", base, time.Now().Format("2006-01-02T15-04-05"), fs.records, ext)

	if err := os.Rename(fs.cfg.Path, backupPath); err != nil {
		return err
	}

	if fs.cfg.Compress {
		go compressFile(backupPath)
	}
	go fs.pruneBackups()

	return fs.openFile()
}

// pruneBackups removes rotated backups that are either older than
// MaxAge or, after age-pruning, in excess of MaxBackups (oldest first).
func (fs *fileSink) pruneBackups() {
	ext := filepath.Ext(fs.cfg.Path)
	base := strings.TrimSuffix(fs.cfg.Path, ext)
	pattern := base + "-*" + ext + "*"

	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return
	}

	if maxAge := fs.cfg.maxAge(); maxAge > 0 {
		now := time.Now()
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil {
				continue
			}
			if now.Sub(info.ModTime()) > maxAge {
				os.Remove(m)
			}
		}
		matches, _ = filepath.Glob(pattern)
	}

	if maxBackups := fs.cfg.maxBackups(); maxBackups > 0 && len(matches) > maxBackups {
		sort.Strings(matches) // the embedded RFC3339-ish timestamp sorts lexically by age
		for _, m := range matches[:len(matches)-maxBackups] {
			os.Remove(m)
		}
	}
}

func compressFile(path string) {
	src, err := os.Open(path)
	if err != nil {
		return
	}
	defer src.Close()

	dst, err := os.Create(path + ".gz")
	if err != nil {
		return
	}
	defer dst.Close()

	gz := gzip.NewWriter(dst)
	if _, err := io.Copy(gz, src); err != nil {
		gz.Close()
		os.Remove(path + ".gz")
		return
	}
	gz.Close()
	os.Remove(path)
}

// FileHandler is a single-writer-per-file Handler with an fdatasync
// policy tied to explicit flush: the representative durable sink a
// concrete handler back-end provides.
//
// FileHandler runs exclusively on its owning handler goroutine (the
// runtime never calls two of its methods concurrently), so the
// locking inside fileSink exists only to let BytesWritten be read from
// another goroutine, not to guard against concurrent ProcessLog calls.
// The compress/prune goroutines a rotation starts touch only backup
// files, never the sink's own state.
type FileHandler struct {
	cfg     FileConfig
	encoder Encoder
	sink    *fileSink
}

// NewFileHandler builds a FileHandler. A nil encoder defaults to
// PlainEncoder.
func NewFileHandler(cfg FileConfig, encoder Encoder) *FileHandler {
	if encoder == nil {
		encoder = &PlainEncoder{}
	}
	return &FileHandler{cfg: cfg, encoder: encoder}
}

func (h *FileHandler) Init() *Error {
	fs, err := newFileSink(h.cfg)
	if err != nil {
		return ErrnoErr(err, "opening log file %q", h.cfg.Path)
	}
	h.sink = fs
	return OK
}

func (h *FileHandler) ProcessLog(rec *Record) *Error {
	buf := getBuffer()
	defer putBuffer(buf)
	h.encoder.Encode(buf, rec)
	if _, err := h.sink.writeRecord(rec, buf.Bytes()); err != nil {
		return ErrnoErr(err, "file handler %q", h.cfg.Path)
	}
	return OK
}

func (h *FileHandler) ProcessIErr(err *Error) *Error { return OK }

// ProcessImplicitFlush is a no-op: the OS page cache absorbs writes
// between explicit flushes, and a periodic fsync would defeat the
// point of batching. Explicit flush, not the periodic tick, is the
// durability point for a file sink.
func (h *FileHandler) ProcessImplicitFlush() *Error { return OK }

// ProcessExplicitFlush fsyncs the underlying file, making a file
// sink's explicit flush synchronous.
func (h *FileHandler) ProcessExplicitFlush() *Error {
	if h.sink == nil {
		return OK
	}
	if err := h.sink.sync(); err != nil {
		return ErrnoErr(err, "fsync %q", h.cfg.Path)
	}
	return OK
}

func (h *FileHandler) ProcessExit() *Error {
	return h.ProcessExplicitFlush()
}

func (h *FileHandler) Destroy() {
	if h.sink != nil {
		h.sink.close()
	}
}

// BytesWritten reports the current file's size in bytes: what it held
// when opened plus every byte written since, for diagnostics/tests.
func (h *FileHandler) BytesWritten() int64 {
	if h.sink == nil {
		return 0
	}
	return h.sink.bytesWritten()
}
