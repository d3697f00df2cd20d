package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/mapper"
	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/timeutil"
)

// Sender delivers one color command to one fixture. Implementations should
// return promptly; the pipeline additionally bounds each call with its send
// timeout and abandons calls that overrun it.
type Sender interface {
	Addr() string
	SetColor(ctx context.Context, cmd mapper.Command) error
}

// Config holds dependencies and tuning for the pipeline.
type Config struct {
	Senders []Sender

	Clock        timeutil.Clock
	MinInterval  time.Duration // minimum time between fixture updates, default 35ms
	SendTimeout  time.Duration // per-fixture send bound, default 500ms
	PollInterval time.Duration // consumer wake interval when idle, default 100ms
	LogInterval  time.Duration // drop/throttle accounting interval, default 1m
	StopGrace    time.Duration // how long Stop waits for the loop, default 1s
}

// Pipeline owns the dispatch loop. Submit is safe to call from the producer
// at any rate; the loop throttles to MinInterval and fans each command set
// out to all fixtures concurrently. Per-fixture failures are logged and
// discarded, never propagated.
type Pipeline struct {
	senders      []Sender
	clock        timeutil.Clock
	minInterval  time.Duration
	sendTimeout  time.Duration
	pollInterval time.Duration
	logInterval  time.Duration
	stopGrace    time.Duration

	relay *Relay
	stop  chan struct{}
	done  chan struct{}

	throttled atomic.Uint64
	failed    atomic.Uint64
	timedOut  atomic.Uint64
	sent      atomic.Uint64
}

// New creates a pipeline for the given fixtures.
func New(cfg Config) *Pipeline {
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 35 * time.Millisecond
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 500 * time.Millisecond
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	if cfg.LogInterval <= 0 {
		cfg.LogInterval = time.Minute
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = time.Second
	}
	return &Pipeline{
		senders:      cfg.Senders,
		clock:        cfg.Clock,
		minInterval:  cfg.MinInterval,
		sendTimeout:  cfg.SendTimeout,
		pollInterval: cfg.PollInterval,
		logInterval:  cfg.LogInterval,
		stopGrace:    cfg.StopGrace,
		relay:        NewRelay(),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Submit hands a command set to the dispatch loop, replacing any unconsumed
// prior set. It never blocks.
func (p *Pipeline) Submit(cmds []mapper.Command) {
	p.relay.Submit(cmds)
}

// Stats reports cumulative dispatch counters.
func (p *Pipeline) Stats() (sent, throttled, failed, timedOut uint64) {
	return p.sent.Load(), p.throttled.Load(), p.failed.Load(), p.timedOut.Load()
}

// Run consumes the relay until the context is canceled or Stop is called.
func (p *Pipeline) Run(ctx context.Context) error {
	defer close(p.done)

	var lastDispatch time.Time
	var pending []mapper.Command
	nextLog := p.clock.Now().Add(p.logInterval)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stop:
			return nil
		case <-p.relay.wait():
		case <-p.clock.After(p.pollInterval):
		}

		if now := p.clock.Now(); now.After(nextLog) {
			p.logCounters()
			nextLog = now.Add(p.logInterval)
		}

		// A fresh set replaces anything still waiting out the throttle.
		if cmds, ok := p.relay.Take(); ok && len(cmds) > 0 {
			pending = cmds
		}
		if pending == nil {
			continue
		}

		// Throttle: the pending set is held, not dropped, so a final
		// update still lands once the interval elapses.
		if !lastDispatch.IsZero() && p.clock.Since(lastDispatch) < p.minInterval {
			p.throttled.Add(1)
			continue
		}
		lastDispatch = p.clock.Now()

		p.fanOut(pending)
		pending = nil
	}
}

// Stop signals the loop and waits up to the grace period for it to finish.
func (p *Pipeline) Stop() {
	select {
	case <-p.stop:
	default:
		close(p.stop)
	}
	select {
	case <-p.done:
	case <-p.clock.After(p.stopGrace):
		opsf("dispatch loop did not stop within %v", p.stopGrace)
	}
}

// fanOut sends the command set to every fixture concurrently. When the set
// has one command per fixture they pair up in order; otherwise every
// fixture receives the first command.
func (p *Pipeline) fanOut(cmds []mapper.Command) {
	var wg sync.WaitGroup
	for i, s := range p.senders {
		cmd := cmds[0]
		if len(cmds) == len(p.senders) {
			cmd = cmds[i]
		}
		wg.Add(1)
		go func(s Sender, cmd mapper.Command) {
			defer wg.Done()
			p.sendOne(s, cmd)
		}(s, cmd)
	}
	// Each sendOne is bounded by the send timeout, so this join is too.
	wg.Wait()
}

// sendOne delivers a command to a single fixture, bounded by the send
// timeout. A slow or failed send is counted and logged; it never affects
// sibling fixtures or the loop.
func (p *Pipeline) sendOne(s Sender, cmd mapper.Command) {
	ctx, cancel := context.WithTimeout(context.Background(), p.sendTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- s.SetColor(ctx, cmd) }()

	select {
	case err := <-errCh:
		if err != nil {
			p.failed.Add(1)
			opsf("send to %s failed: %v", s.Addr(), err)
			return
		}
		p.sent.Add(1)
	case <-ctx.Done():
		// Abandon the in-flight send; the goroutine exits on its own once
		// the transport call returns.
		p.timedOut.Add(1)
		opsf("send to %s timed out after %v", s.Addr(), p.sendTimeout)
	}
}

func (p *Pipeline) logCounters() {
	throttled := p.throttled.Load()
	failed := p.failed.Load()
	timedOut := p.timedOut.Load()
	if throttled == 0 && failed == 0 && timedOut == 0 {
		return
	}
	diagf("dispatch stats: sent=%d throttled=%d failed=%d timeout=%d",
		p.sent.Load(), throttled, failed, timedOut)
}
