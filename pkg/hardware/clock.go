package hardware

import (
	"sync"
	"time"
)

// SystemClock sleeps on the wall clock
type SystemClock struct{}

// Sleep implements the menu clock
func (SystemClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

// SimClock is a virtual clock: Sleep returns immediately after moving the
// time forward. Scripted inputs read Now to decide what the user is doing.
type SimClock struct {
	mu        sync.Mutex
	now       time.Duration
	slept     []time.Duration
	deadlines []simDeadline
}

type simDeadline struct {
	at time.Duration
	fn func()
}

// NewSimClock creates a virtual clock at time zero
func NewSimClock() *SimClock {
	return &SimClock{}
}

// Sleep advances virtual time by d and fires any deadlines passed
func (c *SimClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.now += d
	c.slept = append(c.slept, d)

	var due []func()
	pending := c.deadlines[:0]
	for _, dl := range c.deadlines {
		if dl.at <= c.now {
			due = append(due, dl.fn)
		} else {
			pending = append(pending, dl)
		}
	}
	c.deadlines = pending
	c.mu.Unlock()

	for _, fn := range due {
		fn()
	}
}

// Now returns the virtual time since the clock was created
func (c *SimClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc calls fn once virtual time reaches at
func (c *SimClock) AfterFunc(at time.Duration, fn func()) {
	c.mu.Lock()
	c.deadlines = append(c.deadlines, simDeadline{at: at, fn: fn})
	c.mu.Unlock()
}

// Sleeps returns every duration passed to Sleep, in order
func (c *SimClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.slept...)
}
