package game

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"tag-server/internal/lib/timefmt"
)

const countdownTick = 500 * time.Millisecond

// Countdown tracks a single deadline on a fixed tick and invokes a
// completion callback exactly once when the remaining time drops below
// one second. Re-arming clears the previous tick first, so one Countdown
// can serve consecutive cooldowns without leaking tickers.
type Countdown struct {
	clock clockwork.Clock

	mu       sync.Mutex
	deadline time.Time
	onExpire func()
	fired    bool
	stop     chan struct{}
}

func NewCountdown(clock clockwork.Clock) *Countdown {
	return &Countdown{clock: clock}
}

// Arm starts a fresh count toward deadline. Any previous count is
// cancelled and its callback will not fire.
func (c *Countdown) Arm(deadline time.Time, onExpire func()) {
	c.mu.Lock()
	c.stopLocked()
	c.deadline = deadline
	c.onExpire = onExpire
	c.fired = false
	stop := make(chan struct{})
	c.stop = stop
	c.mu.Unlock()

	go c.run(stop)
}

// Stop cancels the current count. Safe to call whether or not a count is
// running; the callback will not fire afterwards.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// Remaining reports the time left until the deadline, floored at zero.
func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deadline.IsZero() {
		return 0
	}
	remaining := c.deadline.Sub(c.clock.Now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Display renders the remaining time the way the dashboard shows it.
func (c *Countdown) Display() string {
	return timefmt.FormatTime(c.Remaining().Truncate(time.Second).Seconds(), 2)
}

func (c *Countdown) run(stop chan struct{}) {
	ticker := c.clock.NewTicker(countdownTick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			c.mu.Lock()
			if c.stop != stop {
				// superseded by a re-arm
				c.mu.Unlock()
				return
			}
			remaining := c.deadline.Sub(c.clock.Now())
			if remaining >= time.Second || remaining == 0 || c.fired {
				c.mu.Unlock()
				continue
			}
			c.fired = true
			callback := c.onExpire
			c.stopLocked()
			c.mu.Unlock()

			if callback != nil {
				callback()
			}
			return
		}
	}
}

func (c *Countdown) stopLocked() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}
