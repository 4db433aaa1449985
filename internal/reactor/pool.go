// Package reactor implements the single-threaded cooperative event loop
// and the outbound connection pool described in spec.md §4.F: a reactor
// dispatches decoded events to handlers by kind, and a pool caches one
// live connection per peer address. Grounded on the teacher's
// GatewayState.GetConn (gateway/ring.go) — the lazy-dial-then-cache,
// RLock-then-double-checked-Lock shape is kept, retargeted from a
// cached *grpc.ClientConn to a cached *http.Client per spec.md's
// decision to drop the gRPC/protobuf wire stack (see DESIGN.md).
package reactor

import (
	"net/http"
	"sync"
	"time"

	"github.com/jkachika/galileo/internal/model"
)

// ConnectionPool maps a peer address to a cached outbound HTTP client.
// Send is called from the goroutines that handlers spawn for outbound
// I/O, not from the reactor loop itself, so the client map is guarded
// by the lock.
type ConnectionPool struct {
	mu      sync.RWMutex
	clients map[string]*http.Client
	timeout time.Duration
}

func NewConnectionPool(requestTimeout time.Duration) *ConnectionPool {
	return &ConnectionPool{
		clients: make(map[string]*http.Client),
		timeout: requestTimeout,
	}
}

// get returns the cached client for address, dialing (constructing) one
// on first use.
func (p *ConnectionPool) get(address string) *http.Client {
	p.mu.RLock()
	c, ok := p.clients[address]
	p.mu.RUnlock()
	if ok {
		return c
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[address]; ok {
		return c
	}
	c = &http.Client{Timeout: p.timeout}
	p.clients[address] = c
	return c
}

// evict drops address's cached client, forcing the next Send to build a
// fresh one.
func (p *ConnectionPool) evict(address string) {
	p.mu.Lock()
	delete(p.clients, address)
	p.mu.Unlock()
}

// Send executes a request built fresh by newRequest against address's
// cached client. On failure it evicts the cached client and retries
// once with a newly built request (so a body already drained on the
// first attempt does not break the retry); a second failure surfaces as
// IOError (spec.md §4.F).
func (p *ConnectionPool) Send(address string, newRequest func() (*http.Request, error)) (*http.Response, error) {
	req, err := newRequest()
	if err != nil {
		return nil, model.NewIOError("building request to peer "+address, err)
	}
	resp, err := p.get(address).Do(req)
	if err == nil {
		return resp, nil
	}

	p.evict(address)
	retryReq, err := newRequest()
	if err != nil {
		return nil, model.NewIOError("building retry request to peer "+address, err)
	}
	resp, err = p.get(address).Do(retryReq)
	if err != nil {
		return nil, model.NewIOError("sending to peer "+address, err)
	}
	return resp, nil
}
