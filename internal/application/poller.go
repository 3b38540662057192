package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"hydroponics/internal/domain"
)

const DefaultPollInterval = 2 * time.Second

type PollerStatus string

const (
	PollerIdle    PollerStatus = "idle"
	PollerPolling PollerStatus = "polling"
	PollerStopped PollerStatus = "stopped"
)

// Timer schedules the next tick. It exists so tests can drive the loop
// without waiting on the wall clock.
type Timer func(d time.Duration) <-chan time.Time

// RefreshFunc receives every new DeviceState, successful or not.
type RefreshFunc func(domain.DeviceState)

type Poller struct {
	session  *Session
	interval time.Duration
	timer    Timer
	refresh  RefreshFunc
	notifier Notifier
	logger   *slog.Logger

	mu      sync.RWMutex
	status  PollerStatus
	running bool
	fails   int
}

type PollerOption func(*Poller)

func WithTimer(t Timer) PollerOption {
	return func(p *Poller) { p.timer = t }
}

func WithRefresh(fn RefreshFunc) PollerOption {
	return func(p *Poller) { p.refresh = fn }
}

func WithNotifier(n Notifier) PollerOption {
	return func(p *Poller) { p.notifier = n }
}

func NewPoller(session *Session, interval time.Duration, logger *slog.Logger, opts ...PollerOption) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	p := &Poller{
		session:  session,
		interval: interval,
		timer:    time.After,
		refresh:  func(domain.DeviceState) {},
		notifier: &NoopNotifier{},
		logger:   logger.With("component", "poller"),
		status:   PollerIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Poller) Status() PollerStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// ConsecutiveFailures is the number of failed ticks since the last success.
func (p *Poller) ConsecutiveFailures() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fails
}

// Run waits in Idle until the session has an address, then polls every
// interval until ctx is cancelled. Failed polls never end the loop. Each
// tick is scheduled only after the previous one finished. A second
// concurrent Run returns immediately.
func (p *Poller) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.status = PollerStopped
		p.running = false
		p.mu.Unlock()
		p.logger.Info("poller stopped")
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.session.Ready():
	}

	p.setStatus(PollerPolling)
	p.logger.Info("polling started", "interval", p.interval)

	for {
		p.Tick(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.timer(p.interval):
		}
	}
}

// Tick performs one poll and notifies the refresh callback.
func (p *Poller) Tick(ctx context.Context) domain.DeviceState {
	st := p.session.Poll(ctx)

	p.mu.Lock()
	prev := p.fails
	if st.Kind == domain.StateError {
		p.fails++
	} else {
		p.fails = 0
	}
	fails := p.fails
	p.mu.Unlock()

	switch {
	case fails == 1:
		p.notify(ctx, "Device unreachable: "+st.Err.Error())
	case fails > 1:
		p.logger.Debug("device still unreachable", "consecutive_failures", fails)
	case prev > 0 && st.Ready():
		p.logger.Info("device reachable again", "after_failures", prev)
		p.notify(ctx, "Device reachable again")
	}

	p.refresh(st)
	return st
}

func (p *Poller) notify(ctx context.Context, msg string) {
	if err := p.notifier.Notify(ctx, msg); err != nil {
		p.logger.Error("notifying", "error", err)
	}
}

func (p *Poller) setStatus(s PollerStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = s
}
