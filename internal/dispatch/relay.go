// Package dispatch moves color commands from the audio producer to the
// fixtures without ever blocking the producer: a single-slot latest-wins
// relay feeds a throttled loop that fans out to a bounded worker pool.
package dispatch

import (
	"sync"

	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/mapper"
)

// Relay is a single-capacity handoff with replace semantics: a new Submit
// overwrites any unconsumed previous value, so the consumer always sees the
// most recent command set and backlog is structurally impossible.
type Relay struct {
	mu     sync.Mutex
	cmds   []mapper.Command
	loaded bool
	notify chan struct{}
}

// NewRelay creates an empty relay.
func NewRelay() *Relay {
	return &Relay{notify: make(chan struct{}, 1)}
}

// Submit stores cmds as the latest value, discarding any unconsumed
// predecessor. It never blocks. The slice is copied so the producer may
// reuse its buffer.
func (r *Relay) Submit(cmds []mapper.Command) {
	cp := make([]mapper.Command, len(cmds))
	copy(cp, cmds)

	r.mu.Lock()
	r.cmds = cp
	r.loaded = true
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Take removes and returns the latest value, reporting false when the slot
// is empty.
func (r *Relay) Take() ([]mapper.Command, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.loaded {
		return nil, false
	}
	cmds := r.cmds
	r.cmds = nil
	r.loaded = false
	return cmds, true
}

// wait returns a channel that fires when a value may be available.
func (r *Relay) wait() <-chan struct{} { return r.notify }
