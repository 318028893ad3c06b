package hold

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Callbacks run on timer goroutines.
type Callbacks struct {
	// OnWarning receives the time left until the deadline.
	OnWarning func(left time.Duration)
	OnExpire  func()
}

type entry struct {
	mu      sync.Mutex
	timers  []*time.Timer
	stopped bool
}

func (e *entry) add(t *time.Timer) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		t.Stop()
		return
	}
	e.timers = append(e.timers, t)
}

func (e *entry) stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopped = true
	for _, t := range e.timers {
		t.Stop()
	}
	e.timers = nil
}

// registry maps a booking id to its armed timers. A callback only runs
// while its entry is still the registered one, so a stopped or replaced
// schedule never fires late.
type registry struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*entry
}

func newRegistry() *registry {
	return &registry{entries: make(map[uuid.UUID]*entry)}
}

func (r *registry) put(id uuid.UUID, e *entry) {
	r.mu.Lock()
	prev := r.entries[id]
	r.entries[id] = e
	r.mu.Unlock()

	if prev != nil {
		prev.stop()
	}
}

func (r *registry) alive(id uuid.UUID, e *entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[id] == e
}

// finish removes e if it is still registered and reports whether it was.
func (r *registry) finish(id uuid.UUID, e *entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entries[id] != e {
		return false
	}
	delete(r.entries, id)
	return true
}

func (r *registry) cancel(id uuid.UUID) {
	r.mu.Lock()
	e := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()

	if e != nil {
		e.stop()
	}
}

func (r *registry) has(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[id]
	return ok
}

func (r *registry) cancelAll() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[uuid.UUID]*entry)
	r.mu.Unlock()

	for _, e := range entries {
		e.stop()
	}
}
