// Package clock provides the recurring-timer abstraction the job poller is driven by,
// with a wall-clock implementation and a manual one for deterministic tests.
package clock

import (
	"sync"
	"time"
)

// Timer is a recurring timer armed by a Scheduler.
type Timer interface {
	// Stop disarms the timer. It is safe to call more than once. A callback that is
	// already running is not interrupted.
	Stop()
}

// Scheduler arms recurring timers.
type Scheduler interface {
	// Every calls fn every d until the returned Timer is stopped. Calls to fn from a
	// single timer never overlap.
	Every(d time.Duration, fn func()) Timer
}

// Real is a Scheduler backed by time.Ticker.
type Real struct{}

func (Real) Every(d time.Duration, fn func()) Timer {
	t := &realTimer{ticker: time.NewTicker(d), done: make(chan struct{})}
	go t.run(fn)
	return t
}

type realTimer struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (t *realTimer) run(fn func()) {
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C:
			select {
			case <-t.done:
				return
			default:
			}
			fn()
		}
	}
}

func (t *realTimer) Stop() {
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
	})
}
