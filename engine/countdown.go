package engine

import (
	"sync"
	"time"
)

// Countdown drives a session's auto-submit clock. It calls tick once
// per interval until tick reports done or Stop is called. It is an
// explicit cancellable task scoped to one InProgress session, never a
// free-running interval: stopping it guarantees no further ticks fire
// into a discarded session.
type Countdown struct {
	interval time.Duration
	stop     chan struct{}
	once     sync.Once
}

// NewCountdown starts the ticker. tick runs on the countdown goroutine;
// returning true stops the countdown.
func NewCountdown(interval time.Duration, tick func() bool) *Countdown {
	c := &Countdown{
		interval: interval,
		stop:     make(chan struct{}),
	}
	go c.run(tick)
	return c
}

func (c *Countdown) run(tick func() bool) {
	t := time.NewTicker(c.interval)
	defer t.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-t.C:
			if tick() {
				c.Stop()
				return
			}
		}
	}
}

// Stop cancels the countdown. Safe to call more than once and after
// expiry.
func (c *Countdown) Stop() {
	c.once.Do(func() { close(c.stop) })
}
