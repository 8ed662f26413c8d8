package relaylog

import "time"

// handlerRuntime is one handler's private goroutine state: its bus,
// its filter set, its error accounting, and the rank the coordinator
// assigned it at startup.
type handlerRuntime struct {
	name        string
	rank        int
	handler     Handler
	bus         RecordBus
	filters     *FilterSet
	ierrMax     int
	flushPeriod time.Duration

	errs    *ErrorSet
	initErr *Error
	exitErr *Error
	done    chan struct{}
}

func newHandlerRuntime(rank int, cfg HandlerConfig, bus RecordBus) *handlerRuntime {
	return &handlerRuntime{
		name:        cfg.Name,
		rank:        rank,
		handler:     cfg.Handler,
		bus:         bus,
		filters:     cfg.effectiveFilters(),
		ierrMax:     cfg.effectiveIerrMax(),
		flushPeriod: cfg.effectiveFlushPeriod(),
		errs:        NewErrorSet(),
		done:        make(chan struct{}),
	}
}

// start runs the handler's startup protocol then its dispatch loop,
// in its own goroutine. It returns immediately; the caller synchronizes
// with the handler through the "ready?" control call, and the dispatch
// loop keeps running in the background until "exit?".
func (hr *handlerRuntime) start() {
	go hr.runLoop()
}

func (hr *handlerRuntime) runLoop() {
	defer close(hr.done)

	// Async-signal masking belongs to the OS thread a goroutine
	// happens to run on at any given instant; Go does not expose a
	// per-goroutine signal mask, so this step from the original
	// protocol has no portable equivalent here and is intentionally
	// skipped.
	hr.initErr = hr.handler.Init()

	poll := hr.bus.RecvPoll(0) // block for the initial ready? handshake
	if poll.Kind == PollControl && poll.Request().Kind == ReadyReq {
		reply := ControlReply{Kind: ReadyReq, Rank: hr.rank}
		if hr.initErr.IsKO() {
			reply.Err = hr.initErr
		}
		poll.Reply(reply)
	}

	if hr.initErr.IsKO() {
		hr.exitErr = hr.initErr
		hr.handler.Destroy()
		return
	}

	hr.dispatchLoop()
}

func (hr *handlerRuntime) dispatchLoop() {
	for {
		poll := hr.bus.RecvPoll(hr.flushPeriod)
		switch poll.Kind {
		case PollNone:
			if err := hr.handler.ProcessImplicitFlush(); err.IsKO() {
				if hr.account(err) {
					return
				}
			}

		case PollControl:
			req := poll.Request()
			switch req.Kind {
			case FlushReq:
				hr.drain()
				err := hr.handler.ProcessExplicitFlush()
				poll.Reply(ControlReply{Kind: FlushReq, Err: err})
				if err.IsKO() && hr.account(err) {
					return
				}
			case ExitReq:
				hr.drain()
				exitErr := hr.handler.ProcessExit()
				poll.Reply(ControlReply{Kind: ExitReq, Err: exitErr})
				hr.handler.Destroy()
				hr.finish(exitErr)
				return
			default:
				// ready? was already answered at startup.
			}

		case PollData:
			if hr.processRecord(poll.Record) {
				return
			}
		}
	}
}

// processRecord applies rec to the handler if its filter admits it. It
// returns true if the resulting internal error pushed the handler past
// ierr_max and the dispatch loop must exit.
func (hr *handlerRuntime) processRecord(rec *Record) bool {
	threshold := hr.filters.Threshold(rec.LoggerName)
	if !threshold.Admits(rec.Header.Level) {
		return false
	}
	if err := hr.handler.ProcessLog(rec); err.IsKO() {
		return hr.account(err)
	}
	return false
}

// drain best-effort empties the data endpoint before an explicit flush
// or exit. It stops early if ierr_max trips mid-drain;
// the caller is already on its way to an exit/flush reply in that case.
func (hr *handlerRuntime) drain() {
	for {
		rec, ok := hr.bus.TryRecvData()
		if !ok {
			return
		}
		if hr.processRecord(rec) {
			return
		}
	}
}

// account folds err into the handler's error set. It
// returns true if ierr_max was exceeded and the dispatch loop must
// exit.
func (hr *handlerRuntime) account(err *Error) bool {
	if first := hr.errs.Add(err); first {
		if ierr := hr.handler.ProcessIErr(err); ierr.IsKO() && ierr.Code == HandlerExit {
			hr.finish(ierr)
			return true
		}
	}
	if hr.errs.TotalSeen() > hr.ierrMax {
		hr.finish(Newf(HandlerExit, "handler %q exceeded ierr_max (%d)", hr.name, hr.ierrMax))
		return true
	}
	return false
}

func (hr *handlerRuntime) finish(exitErr *Error) {
	if group := hr.errs.Group(); group.IsKO() {
		hr.exitErr = Chain(group, exitErr)
	} else {
		hr.exitErr = exitErr
	}
}
