package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestIdleMonitorFiresExactlyOnce(t *testing.T) {
	var fired atomic.Int32
	done := make(chan struct{})
	m := NewIdleMonitor(30*time.Millisecond, func() {
		if fired.Add(1) == 1 {
			close(done)
		}
	})
	defer m.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("idle monitor never fired")
	}
	m.Touch()
	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Fatalf("expected exactly one idle logout, got %d", got)
	}
}

func TestIdleMonitorTouchDefersAndStopCancels(t *testing.T) {
	var fired atomic.Int32
	m := NewIdleMonitor(80*time.Millisecond, func() { fired.Add(1) })
	for i := 0; i < 5; i++ {
		time.Sleep(30 * time.Millisecond)
		m.Touch()
	}
	if fired.Load() != 0 {
		t.Fatal("touches should keep the monitor from firing")
	}
	m.Stop()
	time.Sleep(150 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatal("stopped monitor must not fire")
	}
}

func TestIdleMonitorIgnoresCountdownSupersededByTouch(t *testing.T) {
	var fired atomic.Int32
	m := NewIdleMonitor(time.Hour, func() { fired.Add(1) })
	defer m.Stop()

	m.mu.Lock()
	expired := m.gen
	m.mu.Unlock()
	m.Touch()

	// A timer that expired while Touch held the lock runs with the old generation.
	m.fire(expired)
	if fired.Load() != 0 {
		t.Fatal("countdown replaced by a touch must not sign out")
	}

	m.mu.Lock()
	current := m.gen
	m.mu.Unlock()
	m.fire(current)
	m.fire(current)
	if fired.Load() != 1 {
		t.Fatalf("expected the live countdown to fire once, got %d", fired.Load())
	}
}

type scriptedChecker struct {
	mu    sync.Mutex
	steps []func() (bool, error)
	calls int
}

func (c *scriptedChecker) SessionStatus(context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	step := c.steps[min(c.calls, len(c.steps)-1)]
	c.calls++
	return step()
}

func TestRevocationPollerIgnoresErrorsAndFiresOnInvalid(t *testing.T) {
	netErr := func() (bool, error) { return false, errors.New("connection refused") }
	valid := func() (bool, error) { return true, nil }
	invalid := func() (bool, error) { return false, nil }
	checker := &scriptedChecker{steps: []func() (bool, error){netErr, netErr, valid, invalid}}

	var revoked atomic.Int32
	done := make(chan struct{})
	p := NewRevocationPoller(checker, 10*time.Millisecond, func() {
		revoked.Add(1)
		close(done)
	}, nil)
	p.Start(context.Background())
	defer p.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller never observed revocation")
	}
	checker.mu.Lock()
	calls := checker.calls
	checker.mu.Unlock()
	if calls != 4 || revoked.Load() != 1 {
		t.Fatalf("expected revocation on 4th poll, calls=%d revoked=%d", calls, revoked.Load())
	}
}

func TestRevocationPollerFailsOpenOnNetworkErrors(t *testing.T) {
	checker := &scriptedChecker{steps: []func() (bool, error){func() (bool, error) { return false, errors.New("timeout") }}}
	var revoked atomic.Int32
	p := NewRevocationPoller(checker, 5*time.Millisecond, func() { revoked.Add(1) }, nil)
	p.Start(context.Background())
	time.Sleep(60 * time.Millisecond)
	p.Stop()
	if revoked.Load() != 0 {
		t.Fatal("network errors must not end the session")
	}
}

func TestLivenessWatchSignsOutOnLostSignal(t *testing.T) {
	var checks atomic.Int32
	probe := func(context.Context) error {
		if checks.Add(1) >= 3 {
			return errors.New("permission denied")
		}
		return nil
	}
	lost := make(chan error, 1)
	w := NewLivenessWatch(probe, 5*time.Millisecond, func(err error) { lost <- err })
	w.Start(context.Background())
	defer w.Stop()

	select {
	case err := <-lost:
		if err == nil || err.Error() != "permission denied" {
			t.Fatalf("unexpected loss reason: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("liveness watch never reported loss")
	}
}

func TestLivenessWatchStopWithoutLoss(t *testing.T) {
	var lost atomic.Int32
	w := NewLivenessWatch(func(context.Context) error { return nil }, 5*time.Millisecond, func(error) { lost.Add(1) })
	w.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	w.Stop()
	w.Stop()
	if lost.Load() != 0 {
		t.Fatal("healthy signal must not sign out")
	}
}
