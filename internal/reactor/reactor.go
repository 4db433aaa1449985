package reactor

import (
	"github.com/sirupsen/logrus"
)

// EventKind names the dispatch key a Reactor routes on (spec.md §4.H's
// ten request/event/response kinds).
type EventKind string

// Event is a decoded unit of work the reactor hands to a Handler. Addr
// identifies the peer connection it arrived on, if any — the reactor
// itself never correlates by request id, only by address (spec.md
// §4.F); that correlation is the coordinator's job.
type Event struct {
	Kind    EventKind
	Addr    string
	Payload interface{}
}

// Handler processes one Event. It must not block on arbitrary I/O
// (spec.md §4.F): a handler that needs an outbound send runs it through
// the ConnectionPool on a goroutine of its own and enqueues the result
// back onto the loop, which is cooperative, not preemptive.
type Handler func(Event)

// Reactor is the single-threaded cooperative event loop: one goroutine
// pulls the next event off a channel and invokes the handler registered
// for its kind. A handler panic is caught, logged, and discarded — the
// loop never dies (spec.md §4.F).
type Reactor struct {
	events   chan Event
	handlers map[EventKind]Handler
	log      *logrus.Entry
	stop     chan struct{}
}

func New(queueDepth int, log *logrus.Entry) *Reactor {
	return &Reactor{
		events:   make(chan Event, queueDepth),
		handlers: make(map[EventKind]Handler),
		log:      log,
		stop:     make(chan struct{}),
	}
}

// Register installs handler for kind, overwriting any prior handler.
func (r *Reactor) Register(kind EventKind, handler Handler) {
	r.handlers[kind] = handler
}

// Enqueue hands ev to the loop. Safe to call from any goroutine,
// including worker-pool completions returning results to the loop
// (spec.md §5's "results return via the event queue").
func (r *Reactor) Enqueue(ev Event) {
	r.events <- ev
}

// Run drives the loop until Stop is called. Intended to run on its own
// goroutine for the lifetime of the node.
func (r *Reactor) Run() {
	for {
		select {
		case ev := <-r.events:
			r.dispatch(ev)
		case <-r.stop:
			return
		}
	}
}

// Stop ends the loop after the current event, if any, finishes.
func (r *Reactor) Stop() {
	close(r.stop)
}

func (r *Reactor) dispatch(ev Event) {
	handler, ok := r.handlers[ev.Kind]
	if !ok {
		r.log.WithField("kind", ev.Kind).Warn("no handler registered for event kind")
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.log.WithFields(logrus.Fields{"kind": ev.Kind, "panic": rec}).
				Error("event handler panicked, loop continues")
		}
	}()
	handler(ev)
}
