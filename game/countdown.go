package game

import (
	"sync"
	"time"
)

// Countdown ticks from a start value down to zero, one unit per interval.
//
// All callbacks run with lock held, and Start and Stop must be called with lock
// held. Each Start opens a new generation; Stop ends it. A tick that wakes up
// after Stop sees a stale generation and exits without calling anything, so
// onExpire can never run after Stop.
type Countdown struct {
	lock     sync.Locker
	interval time.Duration

	gen       uint64
	stop      chan struct{}
	remaining int
}

func NewCountdown(lock sync.Locker, interval time.Duration) *Countdown {
	return &Countdown{
		lock:     lock,
		interval: interval,
	}
}

// Start stops any running countdown, reports units through onTick right away,
// then once per interval until zero, where onExpire runs exactly once.
func (c *Countdown) Start(units int, onTick func(remaining int), onExpire func()) {
	c.Stop()

	c.gen++
	gen := c.gen
	stop := make(chan struct{})
	c.stop = stop
	c.remaining = units

	onTick(units)

	go c.run(gen, stop, onTick, onExpire)
}

func (c *Countdown) run(gen uint64, stop <-chan struct{}, onTick func(int), onExpire func()) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		c.lock.Lock()
		if c.gen != gen {
			c.lock.Unlock()
			return
		}

		c.remaining--
		if c.remaining > 0 {
			onTick(c.remaining)
			c.lock.Unlock()
			continue
		}

		c.remaining = 0
		c.gen++
		c.stop = nil
		onTick(0)
		onExpire()
		c.lock.Unlock()
		return
	}
}

// Stop cancels the running countdown, if any. Safe to call repeatedly.
func (c *Countdown) Stop() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	c.gen++
}

// Running reports whether a countdown is in progress.
func (c *Countdown) Running() bool {
	return c.stop != nil
}

// Remaining is the last value reported through onTick.
func (c *Countdown) Remaining() int {
	return c.remaining
}
