package systems

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/hybrid/engine/core"
	"github.com/spaghettifunk/hybrid/engine/renderer/metadata"
)

func TestModeControllerKeepsOrder(t *testing.T) {
	m := NewModeController(8)
	require.NoError(t, m.RequestResize(10, 20))
	require.NoError(t, m.SetAntialiasing(metadata.AntialiasingSpatial))
	require.NoError(t, m.SetSky(true))
	assert.Equal(t, 3, m.Pending())

	changes := m.Drain()
	require.Len(t, changes, 3)
	assert.Equal(t, ChangeResize, changes[0].Kind)
	assert.Equal(t, uint32(20), changes[0].Height)
	assert.Equal(t, metadata.AntialiasingSpatial, changes[1].Antialiasing)
	assert.True(t, changes[2].Enabled)
	assert.Zero(t, m.Pending())
}

func TestModeControllerFull(t *testing.T) {
	m := NewModeController(2)
	require.NoError(t, m.SetSky(true))
	require.NoError(t, m.SetSky(false))
	assert.ErrorIs(t, m.SetAmbientOcclusion(true), core.ErrQueueFull)
	assert.ErrorIs(t, m.RequestResize(0, 1), core.ErrInvalidExtent)
}

func TestModeControllerConcurrentWriters(t *testing.T) {
	m := NewModeController(DefaultChangeQueueCapacity)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 4; j++ {
				assert.NoError(t, m.SetAmbientOcclusion(j%2 == 0))
			}
		}()
	}
	wg.Wait()
	assert.Len(t, m.Drain(), 32)
}
