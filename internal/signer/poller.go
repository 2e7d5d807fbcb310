package signer

import (
	"context"
	"sync"
	"time"
)

// ApprovalPollInterval is how often signer approval is re-checked.
const ApprovalPollInterval = 2000 * time.Millisecond

// Poller re-runs a check on a fixed interval until the check reports done or
// the poller is stopped. It models the signer-approval flow: polling pauses
// while the hosting page is hidden and resumes on visibility, and Stop is
// idempotent so completion cleanup and visibility handlers can both call it.
type Poller struct {
	interval time.Duration
	check    func(ctx context.Context) (done bool, err error)

	mu     sync.Mutex
	paused bool

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
	err      error
}

// NewPoller returns a Poller running check every interval. A zero interval
// defaults to ApprovalPollInterval.
func NewPoller(interval time.Duration, check func(ctx context.Context) (bool, error)) *Poller {
	if interval <= 0 {
		interval = ApprovalPollInterval
	}
	return &Poller{
		interval: interval,
		check:    check,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the polling loop. It returns immediately; use Done to wait.
func (p *Poller) Start(ctx context.Context) {
	go p.run(ctx)
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.doneCh)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.err = ctx.Err()
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.mu.Lock()
			paused := p.paused
			p.mu.Unlock()
			if paused {
				continue
			}
			done, err := p.check(ctx)
			if err != nil {
				p.err = err
				return
			}
			if done {
				return
			}
		}
	}
}

// Pause suspends checks without tearing down the loop.
func (p *Poller) Pause() {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
}

// Resume re-enables checks after Pause.
func (p *Poller) Resume() {
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
}

// Stop tears the loop down. Safe to call any number of times, from any
// goroutine, before or after completion.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
}

// Done is closed when the loop has exited for any reason.
func (p *Poller) Done() <-chan struct{} { return p.doneCh }

// Err reports why the loop exited: nil on Stop or a done check, the check's
// error, or the context error.
func (p *Poller) Err() error {
	select {
	case <-p.doneCh:
		return p.err
	default:
		return nil
	}
}
