package relaylog

import (
	"time"

	"github.com/google/uuid"
)

// ControlKind identifies a control-plane request.
type ControlKind int

const (
	ReadyReq ControlKind = iota
	FlushReq
	ExitReq
)

func (k ControlKind) String() string {
	switch k {
	case ReadyReq:
		return "ready?"
	case FlushReq:
		return "flush?"
	case ExitReq:
		return "exit?"
	default:
		return "unknown?"
	}
}

// ControlRequest is one control-plane message sent by the coordinator
// to a handler.
type ControlRequest struct {
	Kind ControlKind
}

// ControlReply is a handler's answer to a ControlRequest.
type ControlReply struct {
	Kind ControlKind
	Rank int
	Err  *Error
}

// ctrlEnvelope pairs a request with the channel its reply is expected
// on, so the handler-side RecvPoll can answer in place.
type ctrlEnvelope struct {
	req   ControlRequest
	reply chan ControlReply
}

// PollKind identifies what RecvPoll observed.
type PollKind int

const (
	PollNone PollKind = iota
	PollControl
	PollData
)

// PollResult is what the handler's dispatch loop sees on one wake.
type PollResult struct {
	Kind    PollKind
	Record  *Record
	control ctrlEnvelope
}

// Reply answers a control request observed via RecvPoll. Calling Reply
// on a PollResult that isn't PollControl is a no-op.
func (p PollResult) Reply(reply ControlReply) {
	if p.Kind != PollControl || p.control.reply == nil {
		return
	}
	p.control.reply <- reply
}

// Request returns the observed control request (meaningful only when
// Kind == PollControl).
func (p PollResult) Request() ControlRequest {
	return p.control.req
}

// RecordBus is the in-process transport between one producer
// endpoint and one handler: send_record/control_call from the
// producer/coordinator side, recv_poll from the handler side (see
// Design Note 9 — the rewrite abstracts the transport so another
// message-transport implementation can stand in without leaking
// transport details into §4). ChanBus is the only implementation in
// this package; the NATS network handlers in handler_network.go are
// Handlers fed by a ChanBus, not RecordBus implementations.
type RecordBus interface {
	SendRecord(rec *Record, retries int, retryDelay time.Duration) *Error
	ControlCall(kind ControlKind, timeout time.Duration) (ControlReply, *Error)
	RecvPoll(deadline time.Duration) PollResult
	TryRecvData() (*Record, bool)
	Close()
}

// ChanBus is the default in-process RecordBus, backed by buffered Go
// channels. ID is derived from the owning handler's identity so
// distinct handlers never alias.
type ChanBus struct {
	ID   string
	data chan *Record
	ctrl chan ctrlEnvelope
}

// NewChanBus creates a channel-backed bus with the given high-water
// marks for the data and control channels.
func NewChanBus(handlerName string, dataHWM, ctrlHWM int) *ChanBus {
	return &ChanBus{
		ID:   handlerName + "/" + uuid.NewString(),
		data: make(chan *Record, dataHWM),
		ctrl: make(chan ctrlEnvelope, ctrlHWM),
	}
}

// SendRecord is the producer-side send: a bounded number of
// non-blocking retries with a short sleep between them, then a
// blocking send as a last resort ("retry-then-block").
func (b *ChanBus) SendRecord(rec *Record, retries int, retryDelay time.Duration) *Error {
	for i := 0; i < retries; i++ {
		select {
		case b.data <- rec:
			return OK
		default:
			if retryDelay > 0 {
				time.Sleep(retryDelay)
			}
		}
	}
	b.data <- rec
	return OK
}

// ControlCall sends a control request and blocks for its reply, up to
// timeout on each leg.
func (b *ChanBus) ControlCall(kind ControlKind, timeout time.Duration) (ControlReply, *Error) {
	reply := make(chan ControlReply, 1)
	env := ctrlEnvelope{req: ControlRequest{Kind: kind}, reply: reply}
	select {
	case b.ctrl <- env:
	case <-time.After(timeout):
		return ControlReply{}, Newf(Timeout, "control call %s timed out sending request", kind)
	}
	select {
	case r := <-reply:
		return r, OK
	case <-time.After(timeout):
		return ControlReply{}, Newf(Timeout, "control call %s timed out waiting for reply", kind)
	}
}

// RecvPoll is the handler-side wait: control messages take priority
// over data so flush/exit are never starved by a busy producer. A
// deadline <= 0 waits indefinitely, used for the initial "ready?"
// handshake where no implicit-flush tick should fire.
func (b *ChanBus) RecvPoll(deadline time.Duration) PollResult {
	select {
	case env := <-b.ctrl:
		return PollResult{Kind: PollControl, control: env}
	default:
	}

	if deadline <= 0 {
		select {
		case env := <-b.ctrl:
			return PollResult{Kind: PollControl, control: env}
		case rec := <-b.data:
			return PollResult{Kind: PollData, Record: rec}
		}
	}

	timer := time.NewTimer(deadline)
	defer timer.Stop()
	select {
	case env := <-b.ctrl:
		return PollResult{Kind: PollControl, control: env}
	case rec := <-b.data:
		return PollResult{Kind: PollData, Record: rec}
	case <-timer.C:
		return PollResult{Kind: PollNone}
	}
}

// TryRecvData does a single non-blocking data read, used by the
// handler runtime to best-effort drain its data endpoint before an
// explicit flush or exit.
func (b *ChanBus) TryRecvData() (*Record, bool) {
	select {
	case rec := <-b.data:
		return rec, true
	default:
		return nil, false
	}
}

// Close is a no-op for ChanBus: channels are garbage collected once
// unreferenced.
func (b *ChanBus) Close() {}
