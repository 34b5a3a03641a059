package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsAverage(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < int(AVG_COUNT); i++ {
		m.Update(0.016)
	}
	assert.InDelta(t, 16.0, m.FrameTime(), 0.001)
	assert.Equal(t, uint64(AVG_COUNT), m.Frames())
}

func TestMetricsFPS(t *testing.T) {
	m := NewMetrics()
	// 70 frames of 16ms cross the one second boundary once.
	for i := 0; i < 70; i++ {
		m.Update(0.016)
	}
	assert.InDelta(t, 62, m.FPS(), 1)
}

func TestParseLogLevel(t *testing.T) {
	for _, in := range []string{"debug", "INFO", "warn", "error", "fatal", ""} {
		_, err := ParseLogLevel(in)
		assert.NoError(t, err, in)
	}
	_, err := ParseLogLevel("verbose")
	assert.Error(t, err)
}
