package client

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultIdleThreshold = 15 * time.Minute
	DefaultPollInterval  = 15 * time.Second
)

// IdleMonitor fires onIdle once when Touch has not been called for the
// threshold. After firing, or after Stop, it does nothing.
type IdleMonitor struct {
	mu        sync.Mutex
	timer     *time.Timer
	gen       uint64
	threshold time.Duration
	onIdle    func()
	done      bool
}

func NewIdleMonitor(threshold time.Duration, onIdle func()) *IdleMonitor {
	if threshold <= 0 {
		threshold = DefaultIdleThreshold
	}
	m := &IdleMonitor{threshold: threshold, onIdle: onIdle}
	m.mu.Lock()
	m.arm()
	m.mu.Unlock()
	return m
}

// arm starts a countdown tagged with a new generation. Callers hold mu.
func (m *IdleMonitor) arm() {
	m.gen++
	gen := m.gen
	m.timer = time.AfterFunc(m.threshold, func() { m.fire(gen) })
}

// Touch records a qualifying interaction and restarts the countdown.
func (m *IdleMonitor) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done {
		return
	}
	m.timer.Stop()
	m.arm()
}

func (m *IdleMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.done = true
	m.timer.Stop()
}

// fire ignores countdowns superseded by a Touch, including ones whose timer
// had already expired while Touch held the lock.
func (m *IdleMonitor) fire(gen uint64) {
	m.mu.Lock()
	if m.done || gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.done = true
	m.mu.Unlock()
	m.onIdle()
}

// StatusChecker is satisfied by *Client.
type StatusChecker interface {
	SessionStatus(ctx context.Context) (bool, error)
}

// RevocationPoller asks the server whether the session is still live on a
// fixed interval. Only an explicit invalid answer ends the session; network
// and server errors are logged and polling continues.
type RevocationPoller struct {
	checker   StatusChecker
	interval  time.Duration
	onRevoked func()
	logger    *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func NewRevocationPoller(checker StatusChecker, interval time.Duration, onRevoked func(), logger *slog.Logger) *RevocationPoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RevocationPoller{checker: checker, interval: interval, onRevoked: onRevoked, logger: logger}
}

func (p *RevocationPoller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.loop(ctx)
}

func (p *RevocationPoller) loop(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		valid, err := p.checker.SessionStatus(ctx)
		if err != nil {
			if ctx.Err() == nil {
				p.logger.Warn("session status poll failed; keeping session", "error", err)
			}
			continue
		}
		if !valid {
			p.once.Do(p.onRevoked)
			return
		}
	}
}

// Stop cancels polling and waits for the loop to exit.
func (p *RevocationPoller) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
}

// SignalProbe reports whether a required device signal is available. A
// non-nil error means denied or unavailable.
type SignalProbe func(ctx context.Context) error

// LivenessWatch treats loss of a required signal as an explicit sign-out.
type LivenessWatch struct {
	probe    SignalProbe
	interval time.Duration
	onLost   func(err error)

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func NewLivenessWatch(probe SignalProbe, interval time.Duration, onLost func(err error)) *LivenessWatch {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &LivenessWatch{probe: probe, interval: interval, onLost: onLost}
}

// Start checks the signal immediately, then on every interval.
func (w *LivenessWatch) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.loop(ctx)
}

func (w *LivenessWatch) loop(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		if err := w.probe(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			w.once.Do(func() { w.onLost(err) })
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *LivenessWatch) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
}
