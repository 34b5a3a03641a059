package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/hybrid/engine/math"
	"github.com/spaghettifunk/hybrid/engine/renderer/metadata"
)

func TestCameraView(t *testing.T) {
	c := NewCamera(math.DegToRad(60), 16.0/9.0, 0.5, 200)
	assert.Equal(t, math.NewMat4Identity(), c.View())

	c.SetPosition(math.NewVec3(0, 0, 5))
	v := c.View()
	assert.InDelta(t, -5, v.Data[14], 1e-5)

	near, far := c.DepthRange()
	assert.Equal(t, float32(0.5), near)
	assert.Equal(t, float32(200), far)
}

func TestCameraPitchClamp(t *testing.T) {
	c := NewCamera(1, 1, 0.1, 10)
	c.Pitch(10)
	assert.InDelta(t, math.DegToRad(89), c.eulerRotation.X, 1e-6)
}

func TestStaticSky(t *testing.T) {
	var s metadata.Scene = NewStatic("empty", nil)
	assert.Nil(t, s.ActiveCamera())
	sp, ok := s.(metadata.SkyProvider)
	require.True(t, ok)
	_, has := sp.Sky()
	assert.False(t, has)

	d := Demo(320, 180)
	sky, has := d.Sky()
	assert.True(t, has)
	assert.Equal(t, "clear", sky.Name)
	assert.Len(t, d.Drawables(), 2)
	assert.NotNil(t, d.ActiveCamera())
}

func TestCameraJitterShiftsProjection(t *testing.T) {
	c := NewCamera(math.DegToRad(45), 2, 0.1, 100)
	plain := c.Projection()

	pattern, err := metadata.NewJitterPattern(metadata.SamplePatternDX11, 16, 8)
	require.NoError(t, err)
	c.SetJitter(pattern)
	c.SetJitterFrame(2)
	x, y := pattern.Offset(2)
	jittered := c.Projection()
	assert.InDelta(t, plain.Data[8]-2*x, jittered.Data[8], 1e-7)
	assert.InDelta(t, plain.Data[9]-2*y, jittered.Data[9], 1e-7)
	assert.Equal(t, plain.Data[0], jittered.Data[0])

	c.SetJitter(nil)
	assert.Equal(t, plain, c.Projection())
}
