package passes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/hybrid/engine/core"
	"github.com/spaghettifunk/hybrid/engine/math"
	"github.com/spaghettifunk/hybrid/engine/renderer/metadata"
	"github.com/spaghettifunk/hybrid/engine/renderer/software"
	"github.com/spaghettifunk/hybrid/engine/renderer/targets"
)

type testScene struct {
	sky bool
}

func (s *testScene) ActiveCamera() metadata.Camera { return nil }
func (s *testScene) Lights() []metadata.Light {
	return []metadata.Light{{Name: "sun", Direction: math.NewVec3(0, -1, 0), Intensity: 1}}
}
func (s *testScene) Drawables() []metadata.Drawable {
	return []metadata.Drawable{{Name: "floor", Coverage: 1, Depth: 0.5}}
}
func (s *testScene) LightProbes() []metadata.LightProbe {
	return []metadata.LightProbe{{Name: "probe"}}
}
func (s *testScene) Sky() (metadata.Sky, bool) {
	return metadata.Sky{Name: "blue", Intensity: 1}, s.sky
}

func configured(t *testing.T, mode metadata.AntialiasingMode) (*targets.Pool, *targets.Ring, *targets.TargetSet) {
	t.Helper()
	pool := targets.NewPool(software.New())
	set, err := pool.Configure(8, 8, mode)
	require.NoError(t, err)
	ring := targets.NewRing(pool)
	ring.Bind(set)
	return pool, ring, set
}

func TestBuildEveryConfiguration(t *testing.T) {
	for _, cfg := range metadata.AllPipelineConfigs() {
		t.Run(cfg.String(), func(t *testing.T) {
			pool, ring, set := configured(t, cfg.Antialiasing)
			seq := Build(cfg, set, metadata.DefaultPassSettings())
			assert.Equal(t, cfg.Passes(), seq.IDs())
			assert.NoError(t, Validate(cfg, seq.Units))

			for _, u := range seq.Units {
				assert.Equal(t, set.Epoch, u.Epoch)
				assert.Equal(t, u.ID.Program(), u.Program)
				inv, err := u.Invocation(1, &testScene{sky: true}, pool, ring)
				require.NoError(t, err)
				assert.Len(t, inv.Inputs, len(u.Inputs))
				assert.Len(t, inv.Outputs, len(u.Outputs))
			}

			final, err := ResolveBinding(seq.Final, pool, ring)
			require.NoError(t, err)
			assert.Equal(t, metadata.FormatRGBA8Unorm, final.Format())
		})
	}
}

func TestFinalColourFollowsPostChain(t *testing.T) {
	tests := []struct {
		cfg  metadata.PipelineConfig
		kind string
		src  metadata.BindingSource
	}{
		{metadata.PipelineConfig{}, metadata.TargetToneMap, metadata.SourcePool},
		{metadata.PipelineConfig{AmbientOcclusion: true}, metadata.TargetAO, metadata.SourcePool},
		{metadata.PipelineConfig{Antialiasing: metadata.AntialiasingTemporal}, "", metadata.SourceRingActive},
		{metadata.PipelineConfig{Antialiasing: metadata.AntialiasingTemporal, AmbientOcclusion: true}, metadata.TargetAO, metadata.SourcePool},
		{metadata.PipelineConfig{Antialiasing: metadata.AntialiasingSpatial, AmbientOcclusion: true}, metadata.TargetResolve, metadata.SourcePool},
	}
	for _, tt := range tests {
		t.Run(tt.cfg.String(), func(t *testing.T) {
			_, _, set := configured(t, tt.cfg.Antialiasing)
			seq := Build(tt.cfg, set, metadata.DefaultPassSettings())
			assert.Equal(t, tt.src, seq.Final.Source)
			if tt.kind != "" {
				assert.Equal(t, set.Target(tt.kind).MustAttachment(metadata.AttachmentLDRColour), seq.Final.Handle)
			}
		})
	}
}

func TestAOReadsTemporalOutput(t *testing.T) {
	cfg := metadata.PipelineConfig{Antialiasing: metadata.AntialiasingTemporal, AmbientOcclusion: true}
	_, _, set := configured(t, cfg.Antialiasing)
	seq := Build(cfg, set, metadata.DefaultPassSettings())
	ao := seq.Units[len(seq.Units)-1]
	require.Equal(t, metadata.PassAmbientOcclusion, ao.ID)
	assert.Contains(t, ao.Inputs, metadata.Binding{Role: metadata.AttachmentLDRColour, Source: metadata.SourceRingActive})
}

func TestParamsCarrySettings(t *testing.T) {
	cfg := metadata.PipelineConfig{Antialiasing: metadata.AntialiasingTemporal, AmbientOcclusion: true}
	_, _, set := configured(t, cfg.Antialiasing)
	settings := metadata.DefaultPassSettings()
	settings.Shadow.CascadeCount = 9
	settings.Shadow.KernelWidth = 4
	settings.ToneMap.Operator = metadata.ToneMapACES
	settings.Temporal.Alpha = 0.3

	seq := Build(cfg, set, settings)
	byID := map[metadata.PassID]Unit{}
	for _, u := range seq.Units {
		byID[u.ID] = u
	}
	shadow := byID[metadata.PassShadow].Params.(metadata.ShadowSettings)
	assert.Equal(t, metadata.MaxCascadeCount, shadow.CascadeCount)
	assert.Equal(t, uint32(5), shadow.KernelWidth)
	assert.Equal(t, metadata.ToneMapACES, byID[metadata.PassToneMap].Params.(metadata.ToneMapSettings).Operator)
	assert.Equal(t, float32(0.3), byID[metadata.PassTemporalAccumulation].Params.(metadata.TemporalSettings).Alpha)
	assert.Equal(t, settings.AO, byID[metadata.PassAmbientOcclusion].Params)
}

func TestInvocationOnlyCarriesDeclaredSceneData(t *testing.T) {
	cfg := metadata.PipelineConfig{Sky: true}
	pool, ring, set := configured(t, cfg.Antialiasing)
	seq := Build(cfg, set, metadata.DefaultPassSettings())
	scene := &testScene{sky: true}

	for _, u := range seq.Units {
		inv, err := u.Invocation(3, scene, pool, ring)
		require.NoError(t, err)
		switch u.ID {
		case metadata.PassDepth:
			assert.NotEmpty(t, inv.Drawables)
			assert.Empty(t, inv.Lights)
		case metadata.PassShadow:
			assert.NotEmpty(t, inv.Lights)
			assert.Empty(t, inv.Drawables)
		case metadata.PassLighting:
			assert.NotEmpty(t, inv.Probes)
			assert.Nil(t, inv.Sky)
		case metadata.PassSky:
			require.NotNil(t, inv.Sky)
			assert.Equal(t, "blue", inv.Sky.Name)
		case metadata.PassToneMap:
			assert.Empty(t, inv.Drawables)
			_, err := inv.Input(metadata.AttachmentDepth)
			assert.ErrorIs(t, err, core.ErrUndeclaredAccess)
		}
	}
}

func TestInvocationRejectsStaleUnits(t *testing.T) {
	pool, ring, set := configured(t, metadata.AntialiasingNone)
	seq := Build(metadata.PipelineConfig{}, set, metadata.DefaultPassSettings())
	_, err := pool.Configure(16, 16, metadata.AntialiasingNone)
	require.NoError(t, err)
	_, err = seq.Units[0].Invocation(1, nil, pool, ring)
	assert.ErrorIs(t, err, core.ErrStaleHandle)
}

func TestBuildPanicsOnModeMismatch(t *testing.T) {
	_, _, set := configured(t, metadata.AntialiasingNone)
	assert.Panics(t, func() {
		Build(metadata.PipelineConfig{Antialiasing: metadata.AntialiasingTemporal}, set, metadata.DefaultPassSettings())
	})
}
