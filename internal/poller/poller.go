// ABOUTME: Stoppable background loop that runs an action at a fixed interval
// ABOUTME: Restart stops the previous loop first; action panics are recovered

package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MinInterval is the shortest wait between two runs of the action.
const MinInterval = 5 * time.Second

// Poller runs one action repeatedly until stopped. At most one loop runs per
// Poller at any time.
type Poller struct {
	mu          sync.Mutex
	done        chan struct{} // closed to ask the loop to exit
	exited      chan struct{} // closed by the loop on exit
	minInterval time.Duration
	logger      *slog.Logger
}

// Option configures a Poller.
type Option func(*Poller)

// WithMinInterval overrides MinInterval.
func WithMinInterval(d time.Duration) Option {
	return func(p *Poller) {
		p.minInterval = d
	}
}

// New creates a stopped poller. Pass nil logger for default.
func New(logger *slog.Logger, opts ...Option) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Poller{
		minInterval: MinInterval,
		logger:      logger.With("component", "poller"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start runs action immediately and then every max(interval, MinInterval)
// until Stop is called or ctx is done. A loop already running is fully
// stopped first. Stop only takes effect between runs: an action in flight
// always finishes, and it receives ctx unchanged.
//
// Start and Stop must not be called from inside action.
func (p *Poller) Start(ctx context.Context, interval time.Duration, action func(ctx context.Context)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	wait := max(interval, p.minInterval)
	done := make(chan struct{})
	exited := make(chan struct{})
	p.done = done
	p.exited = exited

	p.logger.Info("polling started", "interval", wait)
	go p.loop(ctx, wait, action, done, exited)
}

// Stop ends the loop and waits for it to exit. It is safe to call when
// the poller is not running and to call more than once.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Running reports whether a loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.exited == nil {
		return false
	}
	select {
	case <-p.exited:
		return false
	default:
		return true
	}
}

func (p *Poller) stopLocked() {
	if p.done == nil {
		return
	}
	close(p.done)
	<-p.exited
	p.done = nil
	p.exited = nil
	p.logger.Info("polling stopped")
}

func (p *Poller) loop(ctx context.Context, wait time.Duration, action func(ctx context.Context), done, exited chan struct{}) {
	defer close(exited)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		// a stop that raced the timer wins
		select {
		case <-done:
			return
		default:
		}

		p.runAction(ctx, action)
		timer.Reset(wait)
	}
}

// runAction keeps a panicking action from killing the loop.
func (p *Poller) runAction(ctx context.Context, action func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("poll action panicked", "panic", r)
		}
	}()
	action(ctx)
}
