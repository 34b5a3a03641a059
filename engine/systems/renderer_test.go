package systems

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/hybrid/engine/core"
	"github.com/spaghettifunk/hybrid/engine/math"
	"github.com/spaghettifunk/hybrid/engine/renderer/metadata"
	"github.com/spaghettifunk/hybrid/engine/renderer/software"
	"github.com/spaghettifunk/hybrid/engine/scene"
)

const (
	testWidth  = 32
	testHeight = 16
)

var clearColour = math.Vec4{X: 0.1, Y: 0.2, Z: 0.3, W: 1}

func newSystem(t *testing.T, pipeline metadata.PipelineConfig, opts ...software.Option) (*RendererSystem, *software.Device, *software.Image) {
	t.Helper()
	dev := software.New(opts...)
	sys, err := NewRendererSystem(dev, NewModeController(16), &RendererSystemConfig{
		AppName:     t.Name(),
		Width:       testWidth,
		Height:      testHeight,
		Pipeline:    pipeline,
		Settings:    metadata.DefaultPassSettings(),
		ClearColour: clearColour,
	})
	require.NoError(t, err)
	require.NoError(t, sys.Initialize())
	present, err := dev.CreateSurface(metadata.AttachmentDesc{
		Name: "present", Role: metadata.AttachmentLDRColour, Format: metadata.FormatRGBA8Unorm,
		Width: testWidth, Height: testHeight,
	})
	require.NoError(t, err)
	return sys, dev, present.(*software.Image)
}

func withScene(t *testing.T, sys *RendererSystem) *scene.Static {
	t.Helper()
	s := scene.Demo(testWidth, testHeight)
	require.NoError(t, sys.Modes().SetScene(s))
	return s
}

func TestNewRendererSystemRejectsZeroExtent(t *testing.T) {
	_, err := NewRendererSystem(software.New(), nil, &RendererSystemConfig{Width: 0, Height: 10})
	assert.ErrorIs(t, err, core.ErrInvalidExtent)
	_, err = NewRendererSystem(nil, nil, &RendererSystemConfig{Width: 1, Height: 1})
	assert.ErrorIs(t, err, core.ErrDeviceNotAvailable)
}

func TestNoSceneClearsPresent(t *testing.T) {
	sys, dev, present := newSystem(t, metadata.PipelineConfig{Antialiasing: metadata.AntialiasingTemporal})
	for i := 0; i < 3; i++ {
		require.NoError(t, sys.RenderFrame(present))
	}
	assert.True(t, present.Uniform())
	assert.Equal(t, clearColour, present.At(0, 0))
	assert.Equal(t, StateUninitialized, sys.State())
	assert.True(t, sys.LastFrame().Fallback)
	assert.Empty(t, dev.PassOrder(3))
	assert.Zero(t, sys.Ring().Swaps())
	assert.Zero(t, sys.Pool().Live())
	assert.Equal(t, uint64(3), sys.Metrics().Frames())
}

func TestPassOrderForEveryConfiguration(t *testing.T) {
	for _, cfg := range metadata.AllPipelineConfigs() {
		t.Run(cfg.String(), func(t *testing.T) {
			sys, dev, present := newSystem(t, cfg)
			withScene(t, sys)
			require.NoError(t, sys.RenderFrame(present))
			assert.Equal(t, StateConfigured, sys.State())

			order := dev.PassOrder(1)
			assert.Equal(t, cfg.Passes(), order)
			assert.False(t, contains(order, metadata.PassTemporalAccumulation) && contains(order, metadata.PassSpatialAA))
			assert.Equal(t, order, sys.LastFrame().Passes)

			var kinds []software.TraceKind
			var afterShadow software.TraceKind
			for i, e := range dev.Trace() {
				if e.Frame != 1 {
					continue
				}
				kinds = append(kinds, e.Kind)
				if e.Kind == software.TracePass && e.Pass == metadata.PassShadow {
					afterShadow = dev.Trace()[i+1].Kind
				}
			}
			assert.Equal(t, software.TraceBarrier, afterShadow)
			assert.Equal(t, software.TraceBeginFrame, kinds[0])
			assert.Equal(t, software.TraceBlit, kinds[len(kinds)-2])
			assert.Equal(t, software.TraceEndFrame, kinds[len(kinds)-1])
			assert.False(t, present.Uniform())
		})
	}
}

func contains(ids []metadata.PassID, id metadata.PassID) bool {
	for _, p := range ids {
		if p == id {
			return true
		}
	}
	return false
}

func TestRingSwapsOncePerTemporalFrame(t *testing.T) {
	tests := []struct {
		mode  metadata.AntialiasingMode
		swaps uint64
	}{
		{metadata.AntialiasingNone, 0},
		{metadata.AntialiasingSpatial, 0},
		{metadata.AntialiasingTemporal, 7},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			sys, _, present := newSystem(t, metadata.PipelineConfig{Antialiasing: tt.mode})
			withScene(t, sys)
			for i := 0; i < 7; i++ {
				require.NoError(t, sys.RenderFrame(present))
			}
			assert.Equal(t, tt.swaps, sys.Ring().Swaps())
			assert.Equal(t, tt.swaps > 0, sys.LastFrame().Swapped)
		})
	}
}

func TestHistoryInvalidAfterReconfiguration(t *testing.T) {
	var history []bool
	sys, _, present := newSystem(t, metadata.PipelineConfig{Antialiasing: metadata.AntialiasingTemporal},
		software.WithPassHook(func(inv *metadata.PassInvocation) {
			if inv.Pass == metadata.PassTemporalAccumulation {
				history = append(history, inv.HistoryValid)
			}
		}))
	withScene(t, sys)

	render := func() {
		require.NoError(t, sys.RenderFrame(present))
	}
	render()
	render()
	render()
	require.NoError(t, sys.Modes().RequestResize(24, 12))
	render()
	render()
	require.NoError(t, sys.Modes().SetAntialiasing(metadata.AntialiasingNone))
	render()
	require.NoError(t, sys.Modes().SetAntialiasing(metadata.AntialiasingTemporal))
	render()
	require.NoError(t, sys.Modes().SetScene(scene.Demo(24, 12)))
	render()
	render()

	assert.Equal(t, []bool{false, true, true, false, true, false, false, true}, history)
}

func TestChangeDuringFrameAppliesNextFrame(t *testing.T) {
	var sys *RendererSystem
	var dev *software.Device
	var present *software.Image
	var nested error
	sys, dev, present = newSystem(t, metadata.PipelineConfig{Antialiasing: metadata.AntialiasingTemporal},
		software.WithPassHook(func(inv *metadata.PassInvocation) {
			if inv.Frame == 1 && inv.Pass == metadata.PassLighting {
				require.NoError(t, sys.Modes().RequestResize(16, 8))
				require.NoError(t, sys.Modes().SetAntialiasing(metadata.AntialiasingSpatial))
				nested = sys.RenderFrame(present)
			}
		}))
	withScene(t, sys)

	require.NoError(t, sys.RenderFrame(present))
	assert.ErrorIs(t, nested, core.ErrFrameInProgress)
	for _, e := range dev.Trace() {
		if e.Frame == 1 && e.Kind == software.TracePass {
			assert.Equal(t, uint32(testWidth), e.Width, "%s", e.Pass)
			assert.Equal(t, uint32(testHeight), e.Height, "%s", e.Pass)
		}
	}
	assert.Contains(t, dev.PassOrder(1), metadata.PassTemporalAccumulation)
	assert.Equal(t, 2, sys.Modes().Pending())

	first := sys.LastFrame()
	require.NoError(t, sys.RenderFrame(present))
	second := sys.LastFrame()
	assert.Equal(t, uint32(16), second.Width)
	assert.Equal(t, uint32(8), second.Height)
	assert.Greater(t, second.Epoch, first.Epoch)
	assert.Contains(t, dev.PassOrder(2), metadata.PassSpatialAA)
	assert.NotContains(t, dev.PassOrder(2), metadata.PassTemporalAccumulation)
	for _, e := range dev.Trace() {
		if e.Frame == 2 && e.Kind == software.TracePass {
			assert.Equal(t, uint32(16), e.Width)
		}
	}
}

func TestModeFallsBackWhenTemporalCannotAllocate(t *testing.T) {
	sys, dev, present := newSystem(t, metadata.PipelineConfig{},
		software.WithAllocationFailure(func(d metadata.AttachmentDesc) error {
			if d.Role == metadata.AttachmentMotionVector {
				return software.ErrOutOfMemory
			}
			return nil
		}))
	withScene(t, sys)
	require.NoError(t, sys.RenderFrame(present))

	require.NoError(t, sys.Modes().SetAntialiasing(metadata.AntialiasingTemporal))
	require.NoError(t, sys.RenderFrame(present))
	assert.Equal(t, metadata.AntialiasingNone, sys.Pipeline().Antialiasing)
	assert.Equal(t, metadata.AntialiasingNone, sys.LastFrame().Antialiasing)
	assert.Equal(t, metadata.PipelineConfig{}.Passes(), dev.PassOrder(2))
	assert.Equal(t, StateConfigured, sys.State())
}

func TestResizeFailureKeepsPreviousTargets(t *testing.T) {
	sys, _, present := newSystem(t, metadata.PipelineConfig{Antialiasing: metadata.AntialiasingSpatial},
		software.WithAllocationFailure(func(d metadata.AttachmentDesc) error {
			if d.Width == 999 {
				return software.ErrOutOfMemory
			}
			return nil
		}))
	withScene(t, sys)
	require.NoError(t, sys.RenderFrame(present))
	epoch := sys.Pool().Epoch()
	live := sys.Pool().Live()

	require.NoError(t, sys.Modes().RequestResize(999, 10))
	err := sys.RenderFrame(present)
	assert.ErrorIs(t, err, core.ErrConfiguration)
	assert.ErrorIs(t, err, software.ErrOutOfMemory)
	assert.Equal(t, epoch, sys.Pool().Epoch())
	assert.Equal(t, live, sys.Pool().Live())

	require.NoError(t, sys.RenderFrame(present))
	w, h := sys.Size()
	assert.Equal(t, uint32(testWidth), w)
	assert.Equal(t, uint32(testHeight), h)
	assert.Equal(t, uint32(testWidth), sys.LastFrame().Width)
	assert.Equal(t, metadata.AntialiasingSpatial, sys.Pipeline().Antialiasing)
}

func TestPassFailureDropsFrame(t *testing.T) {
	deviceLost := errors.New("device lost")
	sys, _, present := newSystem(t, metadata.PipelineConfig{Antialiasing: metadata.AntialiasingTemporal},
		software.WithPassFailure(func(inv *metadata.PassInvocation) error {
			if inv.Frame == 3 && inv.Pass == metadata.PassLighting {
				return deviceLost
			}
			return nil
		}))
	withScene(t, sys)
	require.NoError(t, sys.RenderFrame(present))
	require.NoError(t, sys.RenderFrame(present))
	require.True(t, sys.Ring().HistoryValid())

	err := sys.RenderFrame(present)
	assert.ErrorIs(t, err, core.ErrFrameDropped)
	assert.ErrorIs(t, err, deviceLost)
	assert.False(t, sys.Ring().HistoryValid())
	assert.Equal(t, StateConfigured, sys.State())
	assert.Equal(t, uint64(2), sys.Ring().Swaps())

	require.NoError(t, sys.RenderFrame(present))
	assert.Equal(t, uint64(3), sys.Ring().Swaps())
}

func TestSettingsRebuildWithoutReallocating(t *testing.T) {
	sys, dev, present := newSystem(t, metadata.PipelineConfig{})
	withScene(t, sys)
	require.NoError(t, sys.RenderFrame(present))
	epoch := sys.Pool().Epoch()
	surfaces := dev.LiveSurfaces()

	require.NoError(t, sys.Modes().SetToneMapSettings(metadata.ToneMapSettings{Operator: metadata.ToneMapACES, Exposure: 2}))
	require.NoError(t, sys.Modes().SetAmbientOcclusion(true))
	require.NoError(t, sys.Modes().SetSky(true))
	require.NoError(t, sys.RenderFrame(present))

	assert.Equal(t, epoch, sys.Pool().Epoch())
	assert.Equal(t, surfaces, dev.LiveSurfaces())
	assert.Equal(t, metadata.PipelineConfig{AmbientOcclusion: true, Sky: true}.Passes(), dev.PassOrder(2))
	for _, u := range sys.Sequence().Units {
		if u.ID == metadata.PassToneMap {
			assert.Equal(t, metadata.ToneMapACES, u.Params.(metadata.ToneMapSettings).Operator)
		}
	}
}

func TestSceneUnloadReleasesTargets(t *testing.T) {
	sys, dev, present := newSystem(t, metadata.PipelineConfig{Antialiasing: metadata.AntialiasingTemporal})
	withScene(t, sys)
	require.NoError(t, sys.RenderFrame(present))
	assert.Equal(t, 9, sys.Pool().Live())

	require.NoError(t, sys.Modes().SetScene(nil))
	require.NoError(t, sys.RenderFrame(present))
	assert.Equal(t, StateUninitialized, sys.State())
	assert.Zero(t, sys.Pool().Live())
	assert.Equal(t, 1, dev.LiveSurfaces())
	assert.Equal(t, clearColour, present.At(5, 5))

	withScene(t, sys)
	require.NoError(t, sys.RenderFrame(present))
	assert.Equal(t, StateConfigured, sys.State())
	assert.Equal(t, metadata.AntialiasingTemporal, sys.LastFrame().Antialiasing)
}

func TestShutdown(t *testing.T) {
	sys, dev, present := newSystem(t, metadata.PipelineConfig{})
	withScene(t, sys)
	require.NoError(t, sys.RenderFrame(present))
	require.NoError(t, sys.Shutdown())
	assert.Zero(t, dev.LiveSurfaces())
	assert.Equal(t, StateUninitialized, sys.State())
}

func TestSkyNeedsSceneAsset(t *testing.T) {
	sys, dev, present := newSystem(t, metadata.PipelineConfig{Sky: true})
	s := scene.Demo(testWidth, testHeight)
	s.ClearSky()
	require.NoError(t, sys.Modes().SetScene(s))

	require.NoError(t, sys.RenderFrame(present))
	assert.NotContains(t, dev.PassOrder(1), metadata.PassSky)
	assert.Equal(t, metadata.PipelineConfig{}.Passes(), dev.PassOrder(1))
	assert.True(t, sys.Pipeline().Sky)

	s.SetSky(metadata.Sky{Name: "dusk", Colour: math.NewVec3(0.8, 0.4, 0.2), Intensity: 1})
	require.NoError(t, sys.RenderFrame(present))
	assert.Contains(t, dev.PassOrder(2), metadata.PassSky)
	assert.Equal(t, metadata.PipelineConfig{Sky: true}.Passes(), dev.PassOrder(2))

	s.ClearSky()
	require.NoError(t, sys.RenderFrame(present))
	assert.NotContains(t, dev.PassOrder(3), metadata.PassSky)
}

func TestJitterOnlyInTemporalMode(t *testing.T) {
	sys, _, present := newSystem(t, metadata.PipelineConfig{Antialiasing: metadata.AntialiasingTemporal})
	s := withScene(t, sys)
	cam := s.Camera
	plain := scene.Demo(testWidth, testHeight).Camera.Projection()

	require.NoError(t, sys.RenderFrame(present))
	require.NotNil(t, cam.Jitter())
	assert.Equal(t, metadata.SamplePatternHalton, cam.Jitter().(*metadata.SamplePositions).Pattern)
	assert.NotEqual(t, plain, cam.Projection())

	require.NoError(t, sys.Modes().SetAntialiasing(metadata.AntialiasingSpatial))
	require.NoError(t, sys.RenderFrame(present))
	assert.Nil(t, cam.Jitter())
	assert.Equal(t, plain, cam.Projection())

	require.NoError(t, sys.Modes().SetAntialiasing(metadata.AntialiasingNone))
	require.NoError(t, sys.RenderFrame(present))
	assert.Nil(t, cam.Jitter())

	temporal := metadata.DefaultTemporalSettings()
	temporal.SamplePattern = metadata.SamplePatternDX11
	require.NoError(t, sys.Modes().SetTemporalSettings(temporal))
	require.NoError(t, sys.Modes().SetAntialiasing(metadata.AntialiasingTemporal))
	require.NoError(t, sys.RenderFrame(present))
	require.NotNil(t, cam.Jitter())
	assert.Equal(t, metadata.SamplePatternDX11, cam.Jitter().(*metadata.SamplePositions).Pattern)
}

type endFrameFailure struct {
	*software.Device
}

func (d endFrameFailure) EndFrame(frame uint64) error {
	err := d.Device.EndFrame(frame)
	return errors.Join(err, errors.New("end frame lost"))
}

func TestFallbackClearFailureEndsFrame(t *testing.T) {
	dev := software.New()
	sys, err := NewRendererSystem(endFrameFailure{dev}, NewModeController(4), &RendererSystemConfig{
		AppName: t.Name(), Width: testWidth, Height: testHeight,
		Settings: metadata.DefaultPassSettings(), ClearColour: clearColour,
	})
	require.NoError(t, err)
	require.NoError(t, sys.Initialize())
	present, err := dev.CreateSurface(metadata.AttachmentDesc{
		Name: "present", Role: metadata.AttachmentLDRColour, Format: metadata.FormatRGBA8Unorm,
		Width: testWidth, Height: testHeight,
	})
	require.NoError(t, err)
	dev.DestroySurface(present)

	err = sys.RenderFrame(present)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "surface released")
	assert.Contains(t, err.Error(), "end frame lost")
	assert.ErrorIs(t, dev.EndFrame(1), software.ErrNotInFrame)
	assert.NoError(t, dev.BeginFrame(2))
}
