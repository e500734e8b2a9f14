package signaling

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultHandshakeTimeout is how long a new connection may stay silent
// before it is closed.
const DefaultHandshakeTimeout = 30 * time.Second

// Guard closes connections that never send a first message. Each new
// transport gets one timer; the first frame from it, parseable or not,
// disarms the timer for good.
//
// Arm, Disarm and Expired are called from the hub goroutine. The timer
// callback only reports expiry through onExpire, which must hand the
// transport back to the hub instead of acting on it directly.
type Guard struct {
	timeout  time.Duration
	clock    clockwork.Clock
	onExpire func(Transport)
	timers   map[Transport]clockwork.Timer
}

func NewGuard(timeout time.Duration, clock clockwork.Clock, onExpire func(Transport)) *Guard {
	if timeout <= 0 {
		timeout = DefaultHandshakeTimeout
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Guard{
		timeout:  timeout,
		clock:    clock,
		onExpire: onExpire,
		timers:   make(map[Transport]clockwork.Timer),
	}
}

// Arm starts the grace period for t. Arming an armed transport is a no-op.
func (g *Guard) Arm(t Transport) {
	if _, ok := g.timers[t]; ok {
		return
	}
	g.timers[t] = g.clock.AfterFunc(g.timeout, func() {
		g.onExpire(t)
	})
}

// Disarm cancels the grace period for t. It reports whether t was armed.
func (g *Guard) Disarm(t Transport) bool {
	timer, ok := g.timers[t]
	if !ok {
		return false
	}
	timer.Stop()
	delete(g.timers, t)
	return true
}

// Expired is called when t's timer has fired. It reports whether t was
// still waiting for its first message; a timer that fired after Disarm
// reports false.
func (g *Guard) Expired(t Transport) bool {
	if _, ok := g.timers[t]; !ok {
		return false
	}
	delete(g.timers, t)
	return true
}

// Pending returns the number of armed transports.
func (g *Guard) Pending() int {
	return len(g.timers)
}

// Stop cancels every pending timer.
func (g *Guard) Stop() {
	for t, timer := range g.timers {
		timer.Stop()
		delete(g.timers, t)
	}
}
