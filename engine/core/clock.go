package core

import "time"

// Clock reports the seconds between Start and the latest Update. Elapsed
// only moves when Update is called, so every reader in a frame sees the
// same value.
type Clock struct {
	now     func() time.Time
	started time.Time
	elapsed float64
	running bool
}

func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// Start resets the elapsed time and starts counting.
func (c *Clock) Start() {
	c.started = c.now()
	c.elapsed = 0
	c.running = true
}

// Update samples the time since Start. It does nothing on a stopped clock.
func (c *Clock) Update() {
	if !c.running {
		return
	}
	c.elapsed = c.now().Sub(c.started).Seconds()
}

// Stop freezes the elapsed time until the next Start.
func (c *Clock) Stop() {
	c.running = false
}

func (c *Clock) Elapsed() float64 {
	return c.elapsed
}
