package relaylog

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Remote pub/sub synchronization protocol. The reference handshake
// ran over ZeroMQ sockets; this
// rewrite re-expresses it over NATS subjects (DESIGN.md), since the
// pack's domain stack offers NATS rather than a ZeroMQ binding.
const (
	syncFramePrefix = "relaylog-sync|"
	stepPong        = "pong"
	stepReady       = "ready"
	stepAlmost      = "almost"
	stepGo          = "go"
)

func buildSyncFrame(syncSubject string) []byte {
	return []byte(syncFramePrefix + syncSubject)
}

func parseSyncFrame(data []byte) (syncSubject string, ok bool) {
	s := string(data)
	if !strings.HasPrefix(s, syncFramePrefix) {
		return "", false
	}
	return s[len(syncFramePrefix):], true
}

// NetworkPublisherConfig configures a NetworkPublisher.
type NetworkPublisherConfig struct {
	Conn        *nats.Conn
	DataSubject string
	SyncSubject string

	// ExpectedSubscribers is how many distinct subscriber URLs must
	// complete the handshake before the publisher considers the
	// channel established. Default: 1.
	ExpectedSubscribers int

	// HeartbeatPeriod is how often the sync heartbeat is re-published
	// while not yet established. Default: 200ms.
	HeartbeatPeriod time.Duration

	Encoder Encoder
}

// NetworkPublisher is the network-capable handler: it re-serializes
// each record it is given and publishes it on a NATS subject, running
// the subscriber-sync handshake in the background so a slow-starting
// subscriber does not silently miss the start of the stream.
type NetworkPublisher struct {
	cfg     NetworkPublisherConfig
	encoder Encoder

	syncSub *nats.Subscription

	mu          sync.Mutex
	seen        map[string]bool
	established bool
	stop        chan struct{}
	done        chan struct{}
}

// NewNetworkPublisher builds a NetworkPublisher. Init subscribes to
// the sync subject and starts the heartbeat goroutine.
func NewNetworkPublisher(cfg NetworkPublisherConfig) *NetworkPublisher {
	if cfg.ExpectedSubscribers <= 0 {
		cfg.ExpectedSubscribers = 1
	}
	if cfg.HeartbeatPeriod <= 0 {
		cfg.HeartbeatPeriod = 200 * time.Millisecond
	}
	if cfg.Encoder == nil {
		cfg.Encoder = &JSONEncoder{}
	}
	return &NetworkPublisher{cfg: cfg, encoder: cfg.Encoder, seen: make(map[string]bool)}
}

func (p *NetworkPublisher) Init() *Error {
	sub, err := p.cfg.Conn.Subscribe(p.cfg.SyncSubject, p.onSyncRequest)
	if err != nil {
		return ErrnoErr(err, "subscribing to sync subject %q", p.cfg.SyncSubject)
	}
	p.syncSub = sub
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.heartbeatLoop()
	return OK
}

func (p *NetworkPublisher) onSyncRequest(msg *nats.Msg) {
	parts := strings.SplitN(string(msg.Data), "|", 2)
	if len(parts) != 2 {
		return
	}
	step, url := parts[0], parts[1]
	switch step {
	case stepPong:
		p.mu.Lock()
		p.seen[url] = true
		n := len(p.seen)
		p.mu.Unlock()
		_ = msg.Respond([]byte(stepReady))
		if n >= p.cfg.ExpectedSubscribers {
			p.mu.Lock()
			p.established = true
			p.mu.Unlock()
		}
	case stepAlmost:
		_ = msg.Respond([]byte(stepGo))
	}
}

func (p *NetworkPublisher) heartbeatLoop() {
	defer close(p.done)
	ticker := time.NewTicker(p.cfg.HeartbeatPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.mu.Lock()
			established := p.established
			p.mu.Unlock()
			if established {
				continue
			}
			_ = p.cfg.Conn.Publish(p.cfg.DataSubject, buildSyncFrame(p.cfg.SyncSubject))
		}
	}
}

func (p *NetworkPublisher) ProcessLog(rec *Record) *Error {
	buf := getBuffer()
	defer putBuffer(buf)
	p.encoder.Encode(buf, rec)
	if err := p.cfg.Conn.Publish(p.cfg.DataSubject, buf.Bytes()); err != nil {
		return ErrnoErr(err, "publishing record to %q", p.cfg.DataSubject)
	}
	return OK
}

func (p *NetworkPublisher) ProcessIErr(err *Error) *Error { return OK }

func (p *NetworkPublisher) ProcessImplicitFlush() *Error { return OK }

func (p *NetworkPublisher) ProcessExplicitFlush() *Error {
	if err := p.cfg.Conn.Flush(); err != nil {
		return ErrnoErr(err, "flushing NATS connection")
	}
	return OK
}

func (p *NetworkPublisher) ProcessExit() *Error {
	return p.ProcessExplicitFlush()
}

func (p *NetworkPublisher) Destroy() {
	if p.stop != nil {
		close(p.stop)
		<-p.done
	}
	if p.syncSub != nil {
		_ = p.syncSub.Unsubscribe()
	}
}

// NetworkReceiverConfig configures a NetworkReceiver.
type NetworkReceiverConfig struct {
	Conn        *nats.Conn
	DataSubject string

	// ReceiverURL uniquely identifies this receiver in the sync
	// handshake. Default: a random UUID.
	ReceiverURL string

	// HandshakeTimeout bounds each leg of the pong/ready/almost/go
	// exchange. Default: 2s.
	HandshakeTimeout time.Duration

	// OnRecord is called for every successfully decoded record.
	OnRecord func(rec *Record)
}

// NetworkReceiver is the subscriber half of the remote pub/sub pair:
// it decodes records published by a NetworkPublisher and completes
// the sync handshake for each distinct publisher it hears a heartbeat
// from.
type NetworkReceiver struct {
	cfg NetworkReceiverConfig
	sub *nats.Subscription

	mu          sync.Mutex
	established map[string]bool
}

// NewNetworkReceiver builds a NetworkReceiver. Call Start to subscribe.
func NewNetworkReceiver(cfg NetworkReceiverConfig) *NetworkReceiver {
	if cfg.ReceiverURL == "" {
		cfg.ReceiverURL = uuid.NewString()
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 2 * time.Second
	}
	return &NetworkReceiver{cfg: cfg, established: make(map[string]bool)}
}

func (r *NetworkReceiver) Start() *Error {
	sub, err := r.cfg.Conn.Subscribe(r.cfg.DataSubject, r.onMessage)
	if err != nil {
		return ErrnoErr(err, "subscribing to data subject %q", r.cfg.DataSubject)
	}
	r.sub = sub
	return OK
}

func (r *NetworkReceiver) Stop() {
	if r.sub != nil {
		_ = r.sub.Unsubscribe()
	}
}

func (r *NetworkReceiver) onMessage(msg *nats.Msg) {
	if syncSubject, ok := parseSyncFrame(msg.Data); ok {
		r.mu.Lock()
		already := r.established[syncSubject]
		r.mu.Unlock()
		if already {
			// A subscriber that has already responded to a given
			// publisher's sync URL ignores further heartbeats from it.
			return
		}
		go r.handshake(syncSubject)
		return
	}

	rec, err := DecodeJSONRecord(msg.Data)
	if err != nil {
		return
	}
	if r.cfg.OnRecord != nil {
		r.cfg.OnRecord(rec)
	}
}

func (r *NetworkReceiver) handshake(syncSubject string) {
	pong := []byte(stepPong + "|" + r.cfg.ReceiverURL)
	readyMsg, err := r.cfg.Conn.Request(syncSubject, pong, r.cfg.HandshakeTimeout)
	if err != nil || string(readyMsg.Data) != stepReady {
		return
	}

	almost := []byte(stepAlmost + "|" + r.cfg.ReceiverURL)
	goMsg, err := r.cfg.Conn.Request(syncSubject, almost, r.cfg.HandshakeTimeout)
	if err != nil || string(goMsg.Data) != stepGo {
		return
	}

	r.mu.Lock()
	r.established[syncSubject] = true
	r.mu.Unlock()
}
