package relaylog

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/multierr"
)

// State is one node of the lifecycle coordinator's finite-state
// machine.
type State int32

const (
	StateUnset State = iota
	StateInitializing
	StateInitialized
	StateBroken
	StateFinalizing
	StateFinalized
	StateIllegal
	StateForked
)

func (s State) String() string {
	switch s {
	case StateUnset:
		return "UNSET"
	case StateInitializing:
		return "INITIALIZING"
	case StateInitialized:
		return "INITIALIZED"
	case StateBroken:
		return "BROKEN"
	case StateFinalizing:
		return "FINALIZING"
	case StateFinalized:
		return "FINALIZED"
	case StateIllegal:
		return "ILLEGAL"
	case StateForked:
		return "FORKED"
	default:
		return "UNKNOWN"
	}
}

// HandlerConfig is one handler's configuration, consumed by the
// coordinator's Init: per-handler data/control high-water marks,
// internal-error bound, flush period, and filter set.
type HandlerConfig struct {
	// Name identifies the handler in diagnostics and derives its bus
	// address, so different handlers never alias.
	Name string

	// Handler is the concrete callback implementation.
	Handler Handler

	// Filters is this handler's filter set. Nil defaults to
	// AllOutput().
	Filters *FilterSet

	DataHWM     int
	CtrlHWM     int
	IerrMax     int
	FlushPeriod time.Duration
}

func (c HandlerConfig) effectiveFilters() *FilterSet {
	if c.Filters == nil {
		return AllOutput()
	}
	return c.Filters
}

func (c HandlerConfig) effectiveIerrMax() int {
	if c.IerrMax <= 0 {
		return 10
	}
	return c.IerrMax
}

func (c HandlerConfig) effectiveFlushPeriod() time.Duration {
	if c.FlushPeriod <= 0 {
		return time.Second
	}
	return c.FlushPeriod
}

func (c HandlerConfig) dataHWM() int {
	if c.DataHWM <= 0 {
		return 256
	}
	return c.DataHWM
}

func (c HandlerConfig) ctrlHWM() int {
	if c.CtrlHWM <= 0 {
		return 8
	}
	return c.CtrlHWM
}

// Config is the coordinator constructor's configuration.
type Config struct {
	// Progname names the process for diagnostics.
	Progname string

	// TSDLogBufSize sizes each Endpoint's pre-allocated format buffer.
	// Default: 128 bytes.
	TSDLogBufSize int

	// Handlers is the ordered set of handlers to start.
	Handlers []HandlerConfig

	// RetriesMax bounds a producer's non-blocking send retries before
	// it degrades to a blocking send. Default: RetriesMax (3).
	RetriesMax int

	// RetryDelay is the sleep between non-blocking retry attempts.
	RetryDelay time.Duration

	// ControlTimeout bounds how long the coordinator waits on any
	// single handler's control-plane reply (ready/flush/exit).
	// Default: 500ms.
	ControlTimeout time.Duration
}

func (c Config) retriesMax() int {
	if c.RetriesMax <= 0 {
		return RetriesMax
	}
	return c.RetriesMax
}

func (c Config) retryDelay() time.Duration {
	if c.RetryDelay <= 0 {
		return time.Millisecond
	}
	return c.RetryDelay
}

func (c Config) controlTimeout() time.Duration {
	if c.ControlTimeout <= 0 {
		return 500 * time.Millisecond
	}
	return c.ControlTimeout
}

func (c Config) tsdBufSize() int {
	if c.TSDLogBufSize <= 0 {
		return defaultFormatBufSize
	}
	return c.TSDLogBufSize
}

// Pipeline is the singleton lifecycle coordinator: it owns the
// registry, the global state machine, and the table of live handler
// runtimes. It is exposed as an injectable value rather than hidden
// package globals; glue.go layers the package-level convenience API
// on top of a default instance.
type Pipeline struct {
	mu    sync.Mutex
	state atomic.Int32

	cfg      Config
	registry *Registry
	handlers []*handlerRuntime

	endpoints *endpointCache
}

// NewPipeline creates a coordinator in state UNSET. It does not start
// any handler until Init is called.
func NewPipeline() *Pipeline {
	p := &Pipeline{endpoints: newEndpointCache()}
	p.registry = NewRegistry(p)
	p.state.Store(int32(StateUnset))
	return p
}

// State returns the coordinator's current FSM state.
func (p *Pipeline) State() State { return State(p.state.Load()) }

// Registry returns the coordinator's logger registry.
func (p *Pipeline) Registry() *Registry { return p.registry }

// GetLogger returns (creating if necessary) a dynamically-owned
// logger.
func (p *Pipeline) GetLogger(name string) *Logger { return p.registry.Get(name) }

// GetStaticLogger returns (creating if necessary) a logger declared at
// a call site, never freed by the registry.
func (p *Pipeline) GetStaticLogger(name string) *Logger { return p.registry.GetStatic(name) }

// NewEndpoint creates a fresh producer endpoint bound to this
// pipeline. Most callers do not need this directly: Logger.Logf uses
// a goroutine-keyed cache of endpoints automatically.
func (p *Pipeline) NewEndpoint() *Endpoint {
	return newEndpoint(p, p.cfgSnapshot().tsdBufSize())
}

func (p *Pipeline) endpointForGoroutine() *Endpoint {
	return p.endpoints.get(p)
}

func (p *Pipeline) handlerRuntimes() []*handlerRuntime {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handlers
}

func (p *Pipeline) cfgSnapshot() Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

// Init starts every configured handler and synchronizes with each via
// the ready? handshake. It is legal from UNSET, FINALIZED or BROKEN;
// any other starting state fails with IllegalState. A
// failure during startup moves the pipeline to BROKEN rather than
// leaving it half-initialized; a subsequent Init call tears down
// whatever did start before retrying.
func (p *Pipeline) Init(cfg Config) *Error {
	p.mu.Lock()
	st := p.State()
	if st == StateBroken {
		p.mu.Unlock()
		_ = p.Finalize()
		p.mu.Lock()
		st = p.State()
	}
	if st != StateUnset && st != StateFinalized {
		p.mu.Unlock()
		return Newf(IllegalState, "init called from state %s", st)
	}
	if st == StateFinalized && len(p.handlers) > 0 {
		stale := p.handlers
		p.handlers = nil
		p.mu.Unlock()
		for _, hr := range stale {
			hr.bus.Close()
		}
		p.mu.Lock()
	}
	p.state.Store(int32(StateInitializing))
	p.cfg = cfg
	p.mu.Unlock()

	runtimes := make([]*handlerRuntime, 0, len(cfg.Handlers))
	filterSets := make([]*FilterSet, 0, len(cfg.Handlers))
	for i, hc := range cfg.Handlers {
		bus := NewChanBus(hc.Name, hc.dataHWM(), hc.ctrlHWM())
		hr := newHandlerRuntime(i, hc, bus)
		runtimes = append(runtimes, hr)
		filterSets = append(filterSets, hr.filters)
	}

	p.registry.SetHandlerFilters(filterSets)
	p.registry.ReconfigureAll()

	for _, hr := range runtimes {
		hr.start()
	}

	var initErr *Error = OK
	for _, hr := range runtimes {
		reply, err := hr.bus.ControlCall(ReadyReq, cfg.controlTimeout())
		if err.IsKO() {
			initErr = Chain(initErr, Newf(IllegalState, "handler %q failed ready handshake: %s", hr.name, err.Message))
			continue
		}
		if reply.Err.IsKO() {
			initErr = Chain(initErr, Newf(IllegalState, "handler %q init failed: %s", hr.name, reply.Err.Message))
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = runtimes
	if initErr.IsKO() {
		p.state.Store(int32(StateBroken))
		return initErr
	}
	p.state.Store(int32(StateInitialized))
	return OK
}

// Finalize drains and stops every live handler, joins its goroutine,
// and moves the pipeline to FINALIZED. Legal from INITIALIZED or
// BROKEN.
func (p *Pipeline) Finalize() *Error {
	p.mu.Lock()
	st := p.State()
	if st != StateInitialized && st != StateBroken {
		p.mu.Unlock()
		return Newf(IllegalState, "finalize called from state %s", st)
	}
	p.state.Store(int32(StateFinalizing))
	handlers := p.handlers
	timeout := p.cfg.controlTimeout()
	p.mu.Unlock()

	var group error
	for _, hr := range handlers {
		select {
		case <-hr.done:
			continue // already exited: not live, nothing to ask
		default:
		}
		if _, err := hr.bus.ControlCall(ExitReq, timeout); err.IsKO() {
			group = multierr.Append(group, err)
		}
	}
	for _, hr := range handlers {
		select {
		case <-hr.done:
			// A failed handler Init was already returned by Init.
			if hr.exitErr.IsKO() && hr.initErr.IsOK() {
				group = multierr.Append(group, hr.exitErr)
			}
		case <-time.After(timeout):
			group = multierr.Append(group, fmt.Errorf("handler %q did not exit within %s", hr.name, timeout))
		}
		hr.bus.Close()
	}

	p.mu.Lock()
	p.handlers = nil
	p.state.Store(int32(StateFinalized))
	p.mu.Unlock()

	if group != nil {
		return Newf(Group, "finalize: %s", group.Error())
	}
	return OK
}

// Flush fans "flush?" out to every live handler and collects any
// per-handler failure into a GROUP error. Safe to call concurrently
// from multiple goroutines: each caller's ControlCall gets its own
// reply channel, so concurrent flushes never cross-deliver.
func (p *Pipeline) Flush() *Error {
	p.mu.Lock()
	if p.State() != StateInitialized {
		st := p.State()
		p.mu.Unlock()
		return Newf(IllegalState, "flush called from state %s", st)
	}
	handlers := p.handlers
	timeout := p.cfg.controlTimeout()
	p.mu.Unlock()

	var group error
	for _, hr := range handlers {
		reply, err := hr.bus.ControlCall(FlushReq, timeout)
		if err.IsKO() {
			group = multierr.Append(group, err)
			continue
		}
		if reply.Err.IsKO() {
			group = multierr.Append(group, reply.Err)
		}
	}
	if group != nil {
		return Newf(Group, "flush: %s", group.Error())
	}
	return OK
}

// PreFork is the parent-side pre-fork hook: from INITIALIZED it
// flushes and finalizes, then marks the pipeline FORKED so a
// subsequent PostForkParent can restart it. Forking from INITIALIZING
// or FINALIZING is not fork-safe and aborts the process; this is
// detected defensively rather than left as undefined behavior.
func (p *Pipeline) PreFork() *Error {
	st := p.State()
	if st == StateInitializing || st == StateFinalizing {
		panic("relaylog: fork attempted while pipeline is " + st.String() + "; this is not fork-safe")
	}
	if st != StateInitialized {
		return OK
	}
	if err := p.Flush(); err.IsKO() {
		warnStderr("pre-fork flush failed: %s", err.Message)
	}
	saved := p.cfgSnapshot()
	if err := p.Finalize(); err.IsKO() {
		return err
	}
	p.mu.Lock()
	p.cfg = saved
	p.state.Store(int32(StateForked))
	p.mu.Unlock()
	return OK
}

// PostForkParent is the parent-side post-fork hook: from FORKED it
// re-initializes globals and restarts handlers, restoring
// INITIALIZED.
func (p *Pipeline) PostForkParent() *Error {
	p.mu.Lock()
	if p.State() != StateForked {
		p.mu.Unlock()
		return OK
	}
	cfg := p.cfg
	p.state.Store(int32(StateFinalized))
	p.mu.Unlock()
	return p.Init(cfg)
}

// PostForkChild is the child-side post-fork hook: the child inherits
// no handler goroutines across a fork, so it is simply marked
// FINALIZED; it must call Init itself to log again.
func (p *Pipeline) PostForkChild() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.State() == StateForked {
		p.handlers = nil
		p.state.Store(int32(StateFinalized))
	}
}

// InstallSignalHandler registers a process-wide handler for the given
// signals (SIGINT/SIGTERM if none given) that flushes and finalizes
// the pipeline, then re-raises the signal with its default
// disposition. The returned func cancels the handler without
// re-raising anything.
func (p *Pipeline) InstallSignalHandler(signals ...os.Signal) func() {
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)
	stop := make(chan struct{})

	go func() {
		select {
		case sig := <-ch:
			_ = p.Flush()
			_ = p.Finalize()
			signal.Stop(ch)
			signal.Reset(sig)
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(sig)
			}
		case <-stop:
			signal.Stop(ch)
		}
	}()

	return func() { close(stop) }
}
