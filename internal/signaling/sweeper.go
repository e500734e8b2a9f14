package signaling

import (
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	// DefaultIdleTimeout is how long a room may go without routed traffic.
	DefaultIdleTimeout = 5 * time.Minute

	// DefaultSweepInterval is how often idle rooms are looked for.
	DefaultSweepInterval = 5 * time.Minute
)

// Sweeper evicts idle rooms on a fixed interval. Its ticker only
// signals; the sweep itself runs on the hub goroutine through Sweep.
type Sweeper struct {
	router   *Router
	interval time.Duration
	maxIdle  time.Duration
	clock    clockwork.Clock
	ticker   clockwork.Ticker
}

func NewSweeper(router *Router, interval, maxIdle time.Duration, clock clockwork.Clock) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if maxIdle <= 0 {
		maxIdle = DefaultIdleTimeout
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Sweeper{
		router:   router,
		interval: interval,
		maxIdle:  maxIdle,
		clock:    clock,
	}
}

// Start begins ticking and returns the tick channel.
func (s *Sweeper) Start() <-chan time.Time {
	if s.ticker == nil {
		s.ticker = s.clock.NewTicker(s.interval)
	}
	return s.ticker.Chan()
}

// Stop stops the ticker.
func (s *Sweeper) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
}

// Sweep evicts every idle room and returns how many were removed. With
// no rooms it does nothing.
func (s *Sweeper) Sweep() int {
	return s.router.EvictIdle(s.maxIdle)
}
