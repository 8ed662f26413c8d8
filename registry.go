package relaylog

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Logger is an immutable-named, mutable-level handle producers log
// through. Its effective level is read unsynchronized on the hot
// path: producers tolerate a stale level across one call.
type Logger struct {
	name     string
	nameLen  int
	level    atomic.Int32
	static   bool // true for call-site-declared loggers, never freed by the registry
	pipeline *Pipeline
}

// Name returns the logger's name.
func (l *Logger) Name() string { return l.name }

// Level returns the logger's current effective level.
func (l *Logger) Level() Level { return Level(l.level.Load()) }

// IsEnabledFor reports whether a record at rec would be admitted:
// rec <= l.Level() and rec != OFF.
func (l *Logger) IsEnabledFor(rec Level) bool {
	return l.Level().Admits(rec)
}

func newLogger(name string, static bool, pipeline *Pipeline) *Logger {
	lg := &Logger{name: name, nameLen: len(name), static: static, pipeline: pipeline}
	lg.level.Store(int32(LOWEST))
	return lg
}

// Registry is the process-wide name→Logger map, with one mutex
// guarding mutation; level reads by producers are unsynchronized.
type Registry struct {
	mu       sync.Mutex
	byName   map[string]*Logger
	handlers []*FilterSet // one FilterSet per configured handler, by handler index
	pipeline *Pipeline    // owning coordinator, stamped onto loggers it creates
}

// NewRegistry creates an empty registry owned by pipeline. pipeline may
// be nil for registries used standalone (e.g. in unit tests that never
// exercise Logf).
func NewRegistry(pipeline *Pipeline) *Registry {
	return &Registry{byName: make(map[string]*Logger), pipeline: pipeline}
}

// Add inserts logger into the registry. A duplicate name is a
// diagnostic, not a hard error: both loggers continue to exist, but
// a name lookup thereafter returns the most recently added one.
func (r *Registry) Add(logger *Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byName[logger.name]; dup {
		warnStderr("duplicate logger name %q registered; last one wins on lookup", logger.name)
	}
	r.byName[logger.name] = logger
}

// Del removes logger from the registry.
func (r *Registry) Del(logger *Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.byName[logger.name]; ok && cur == logger {
		delete(r.byName, logger.name)
	}
}

// Get returns the existing logger named name, or creates and registers
// a new dynamic one (level initialized to LOWEST, so nothing is
// filtered until the registry is reconfigured).
func (r *Registry) Get(name string) *Logger {
	r.mu.Lock()
	if lg, ok := r.byName[name]; ok {
		r.mu.Unlock()
		return lg
	}
	lg := newLogger(name, false, r.pipeline)
	r.byName[name] = lg
	r.mu.Unlock()

	r.Reconfigure(lg)
	return lg
}

// GetStatic returns, creating if needed, a statically-declared logger
// — one that is never freed, typically held in a package-level var at
// the call site.
func (r *Registry) GetStatic(name string) *Logger {
	r.mu.Lock()
	if lg, ok := r.byName[name]; ok {
		r.mu.Unlock()
		return lg
	}
	lg := newLogger(name, true, r.pipeline)
	r.byName[name] = lg
	r.mu.Unlock()

	r.Reconfigure(lg)
	return lg
}

// GetAll returns a snapshot of all registered loggers, safe to iterate
// without holding the registry lock.
func (r *Registry) GetAll() []*Logger {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Logger, 0, len(r.byName))
	for _, lg := range r.byName {
		out = append(out, lg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// SetHandlerFilters installs the filter sets used by Reconfigure, one
// per handler, in handler index order.
func (r *Registry) SetHandlerFilters(filters []*FilterSet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = filters
}

// Reconfigure recomputes logger's effective level as the maximum, over
// every configured handler, of that handler's longest-prefix threshold
// for logger's name — so no handler is starved by another's stricter
// filter. While no handler filter sets are installed, logger keeps its
// current level.
func (r *Registry) Reconfigure(logger *Logger) {
	r.mu.Lock()
	handlers := r.handlers
	r.mu.Unlock()
	if len(handlers) == 0 {
		return
	}

	max := OFF
	for _, fs := range handlers {
		if fs == nil {
			continue
		}
		if t := fs.Threshold(logger.name); t > max {
			max = t
		}
	}
	logger.level.Store(int32(max))
}

// ReconfigureAll reconfigures every registered logger against the
// current handler filter sets.
func (r *Registry) ReconfigureAll() {
	for _, lg := range r.GetAll() {
		r.Reconfigure(lg)
	}
}

// Reset drops all filter configuration and every logger's effective
// level reverts to OFF until ReconfigureAll is called again.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.handlers = nil
	r.mu.Unlock()
	for _, lg := range r.GetAll() {
		lg.level.Store(int32(OFF))
	}
}
