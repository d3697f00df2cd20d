package telemetry

import (
	"sync"

	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/monitoring"
)

// Recorder buffers telemetry writes behind a channel so the audio loop
// never blocks on the database. When the buffer is full the record is
// dropped and counted.
type Recorder struct {
	store *Store
	ch    chan func() error
	done  chan struct{}

	mu      sync.Mutex
	closed  bool
	dropped uint64
}

// NewRecorder starts a recorder draining into store. Buffer defaults
// to 256 pending writes.
func NewRecorder(store *Store, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = 256
	}
	r := &Recorder{
		store: store,
		ch:    make(chan func() error, buffer),
		done:  make(chan struct{}),
	}
	go r.drain()
	return r
}

func (r *Recorder) drain() {
	defer close(r.done)
	for fn := range r.ch {
		if err := fn(); err != nil {
			monitoring.Logf("telemetry write failed: %v", err)
		}
	}
}

func (r *Recorder) enqueue(fn func() error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.ch <- fn:
	default:
		r.dropped++
	}
}

// Dropped reports how many records were discarded due to a full buffer.
func (r *Recorder) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// ModeEvent records a mode switch without blocking.
func (r *Recorder) ModeEvent(ev ModeEvent) {
	r.enqueue(func() error { return r.store.RecordModeEvent(ev) })
}

// BandSample records a band sample without blocking.
func (r *Recorder) BandSample(bs BandSample) {
	r.enqueue(func() error { return r.store.RecordBandSample(bs) })
}

// Close drains pending writes and stops the recorder. Safe to call more
// than once.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return
	}
	r.closed = true
	r.mu.Unlock()
	close(r.ch)
	<-r.done
}
