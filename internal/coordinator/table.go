package coordinator

import "sync"

// Table is the orchestrator's requestId -> Coordinator map (spec.md
// §4.H). Register and Lookup run on the event loop, but Unregister is
// called from a coordinator's completion callback, which can also run
// on its deadline-timer goroutine, so every access takes the mutex.
type Table struct {
	mu   sync.Mutex
	byID map[string]*Coordinator
}

func NewTable() *Table {
	return &Table{byID: make(map[string]*Coordinator)}
}

// Register installs c under id, replacing any prior entry.
func (t *Table) Register(id string, c *Coordinator) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byID[id] = c
}

// Lookup returns the coordinator for id, if any.
func (t *Table) Lookup(id string) (*Coordinator, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.byID[id]
	return c, ok
}

// Unregister removes id, called when a coordinator completes.
func (t *Table) Unregister(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byID, id)
}
