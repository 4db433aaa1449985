// Package coordinator implements the per-request fan-out/fan-in state
// machine of spec.md §4.G: CREATED -> dispatch() -> WAITING ->
// (reply(n))* -> COMPLETE, tolerating partial peer failure.
package coordinator

import (
	"sync"
	"time"

	"github.com/jkachika/galileo/internal/topology"
)

// State is the coordinator's position in its lifecycle.
type State int

const (
	Created State = iota
	Waiting
	Complete
)

// MergeFunc folds one peer's partial response into the accumulator.
// Response-kind-specific strategies (list-append for feature paths,
// JSON-array-with-per-host-keys otherwise) are supplied by the caller
// rather than hardcoded here, per spec.md §4.G.
type MergeFunc func(accumulator interface{}, hostname string, partial interface{}) interface{}

// Coordinator owns one inflight client request: the set of expected
// peer destinations, the response being merged, and the deadline.
type Coordinator struct {
	mu sync.Mutex

	state        State
	destinations []topology.Node
	outstanding  map[string]bool
	missing      []string
	accumulator  interface{}
	merge        MergeFunc

	deadline time.Time
	timer    *time.Timer

	onComplete func(result interface{}, missing []string)
	completed  bool
}

// New constructs a CREATED coordinator. onComplete fires exactly once,
// when the coordinator transitions to COMPLETE — by last reply,
// timeout, or Cancel.
func New(merge MergeFunc, initial interface{}, onComplete func(result interface{}, missing []string)) *Coordinator {
	return &Coordinator{
		state:       Created,
		outstanding: make(map[string]bool),
		accumulator: initial,
		merge:       merge,
		onComplete:  onComplete,
	}
}

// Dispatch records the expected destinations and starts the deadline
// timer, transitioning CREATED -> WAITING. send is invoked once per
// destination by the caller (the orchestrator, via the connection
// pool) — Dispatch itself only tracks bookkeeping, consistent with
// spec.md §5 placing the loop, not the coordinator, in charge of I/O.
func (c *Coordinator) Dispatch(destinations []topology.Node, timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.destinations = destinations
	for _, d := range destinations {
		c.outstanding[d.String()] = true
	}
	c.state = Waiting

	if len(destinations) == 0 {
		c.completeLocked()
		return
	}

	if timeout > 0 {
		c.deadline = time.Now().Add(timeout)
		c.timer = time.AfterFunc(timeout, c.onDeadline)
	}
}

// Reply merges one peer's partial response and, if it was the last
// outstanding peer, completes the coordinator.
func (c *Coordinator) Reply(hostname string, partial interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Waiting {
		return
	}
	if !c.outstanding[hostname] {
		return
	}

	c.accumulator = c.merge(c.accumulator, hostname, partial)
	delete(c.outstanding, hostname)

	if len(c.outstanding) == 0 {
		c.completeLocked()
	}
}

// Cancel transitions directly to COMPLETE without invoking onComplete,
// per spec.md §4.G's "Cancellation (client disconnect) transitions
// directly to COMPLETE without sending."
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Complete {
		return
	}
	c.state = Complete
	c.completed = true
	if c.timer != nil {
		c.timer.Stop()
	}
}

// onDeadline fires when the coordinator's timeout elapses; every peer
// still outstanding is recorded as missing and the coordinator
// completes with whatever it has accumulated.
func (c *Coordinator) onDeadline() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Waiting {
		return
	}
	c.completeLocked()
}

// completeLocked finalizes the coordinator: every still-outstanding
// destination is recorded in missing[], state becomes COMPLETE, and
// onComplete fires exactly once.
func (c *Coordinator) completeLocked() {
	if c.completed {
		return
	}
	for host := range c.outstanding {
		c.missing = append(c.missing, host)
	}
	c.state = Complete
	c.completed = true
	if c.timer != nil {
		c.timer.Stop()
	}
	if c.onComplete != nil {
		c.onComplete(c.accumulator, c.missing)
	}
}

// State reports the coordinator's current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Missing reports the peers that never replied in time, valid once the
// coordinator has completed.
func (c *Coordinator) Missing() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.missing...)
}
