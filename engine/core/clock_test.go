package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClockOnlyMovesOnUpdate(t *testing.T) {
	base := time.Unix(100, 0)
	current := base
	c := &Clock{now: func() time.Time { return current }}

	c.Update()
	assert.Zero(t, c.Elapsed())

	c.Start()
	current = base.Add(1500 * time.Millisecond)
	assert.Zero(t, c.Elapsed())
	c.Update()
	assert.InDelta(t, 1.5, c.Elapsed(), 1e-9)

	c.Stop()
	current = base.Add(3 * time.Second)
	c.Update()
	assert.InDelta(t, 1.5, c.Elapsed(), 1e-9)

	c.Start()
	assert.Zero(t, c.Elapsed())
}
