// Package schedule provides the cancelable timers used by every component
// that owns periodic or delayed work: alert expiry, the metric simulator tick,
// and per-camera detection polling.
package schedule

import (
	"sync"
	"time"
)

// Timer is a pending callback that can be disarmed.
type Timer interface {
	// Stop prevents the callback from firing. It reports whether the call
	// stopped the timer, false if it already fired or was stopped.
	Stop() bool
}

// Clock creates timers and reports the current time.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// Real returns a Clock backed by the time package.
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// periodic re-arms a one-shot timer after every firing until stopped.
type periodic struct {
	mu       sync.Mutex
	clock    Clock
	interval time.Duration
	fn       func()
	current  Timer
	stopped  bool
}

// Every calls f once per interval until the returned Timer is stopped.
// The first call happens one interval after Every returns.
func Every(clock Clock, interval time.Duration, f func()) Timer {
	p := &periodic{clock: clock, interval: interval, fn: f}
	p.mu.Lock()
	p.current = clock.AfterFunc(interval, p.fire)
	p.mu.Unlock()
	return p
}

func (p *periodic) fire() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.current = p.clock.AfterFunc(p.interval, p.fire)
	p.mu.Unlock()

	p.fn()
}

func (p *periodic) Stop() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return false
	}
	p.stopped = true
	p.current.Stop()
	return true
}
