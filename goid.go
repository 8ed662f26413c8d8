package relaylog

import (
	"runtime"
	"strconv"
	"sync"
)

// goroutineID extracts the calling goroutine's id by parsing the
// "goroutine N [running]:" header runtime.Stack always produces. Go
// has no public API for this and no true thread-local storage; parsing
// runtime.Stack is the well-known idiom the ecosystem falls back to
// when a stable per-goroutine key is needed.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]

	const prefix = "goroutine "
	if len(b) <= len(prefix) || string(b[:len(prefix)]) != prefix {
		return 0
	}
	b = b[len(prefix):]

	end := 0
	for end < len(b) && b[end] >= '0' && b[end] <= '9' {
		end++
	}
	id, err := strconv.ParseInt(string(b[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// endpointCache hands back the same *Endpoint to repeated calls from
// the same goroutine, so the Logger methods don't pay for a fresh
// rank/buffer on every call. Entries are never evicted: a goroutine
// that exits simply stops being looked up, so the cache holds one entry
// for every distinct goroutine that has ever logged through it.
type endpointCache struct {
	mu   sync.RWMutex
	byID map[int64]*Endpoint
}

func newEndpointCache() *endpointCache {
	return &endpointCache{byID: make(map[int64]*Endpoint)}
}

func (c *endpointCache) get(p *Pipeline) *Endpoint {
	id := goroutineID()

	c.mu.RLock()
	ep, ok := c.byID[id]
	c.mu.RUnlock()
	if ok {
		return ep
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if ep, ok := c.byID[id]; ok {
		return ep
	}
	ep = p.NewEndpoint()
	c.byID[id] = ep
	return ep
}
