package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineConfigPasses(t *testing.T) {
	tests := []struct {
		name   string
		config PipelineConfig
		want   []PassID
	}{
		{
			name:   "none without ao",
			config: PipelineConfig{Antialiasing: AntialiasingNone},
			want:   []PassID{PassDepth, PassShadow, PassLighting, PassToneMap},
		},
		{
			name:   "none with sky",
			config: PipelineConfig{Antialiasing: AntialiasingNone, Sky: true},
			want:   []PassID{PassDepth, PassShadow, PassLighting, PassSky, PassToneMap},
		},
		{
			name:   "temporal with ao",
			config: PipelineConfig{Antialiasing: AntialiasingTemporal, AmbientOcclusion: true, Sky: true},
			want:   []PassID{PassDepth, PassShadow, PassLighting, PassSky, PassToneMap, PassTemporalAccumulation, PassAmbientOcclusion},
		},
		{
			name:   "spatial with ao",
			config: PipelineConfig{Antialiasing: AntialiasingSpatial, AmbientOcclusion: true},
			want:   []PassID{PassDepth, PassShadow, PassLighting, PassToneMap, PassAmbientOcclusion, PassSpatialAA},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.config.Passes())
		})
	}
}

func TestAllPipelineConfigsOrdering(t *testing.T) {
	order := map[PassID]int{
		PassDepth: 0, PassShadow: 1, PassLighting: 2, PassSky: 3, PassToneMap: 4,
		PassTemporalAccumulation: 5, PassAmbientOcclusion: 6, PassSpatialAA: 7,
	}
	configs := AllPipelineConfigs()
	require.Len(t, configs, 12)
	for _, c := range configs {
		passes := c.Passes()
		for i := 1; i < len(passes); i++ {
			assert.Less(t, order[passes[i-1]], order[passes[i]], c.String())
		}
		assert.False(t, contains(passes, PassTemporalAccumulation) && contains(passes, PassSpatialAA), c.String())
		assert.Equal(t, c.Sky, contains(passes, PassSky))
		assert.Equal(t, c.AmbientOcclusion, contains(passes, PassAmbientOcclusion))
		assert.Equal(t, []PassID{PassDepth, PassShadow, PassLighting}, passes[:3])
	}
}

func TestAntialiasingModeText(t *testing.T) {
	var m AntialiasingMode
	require.NoError(t, m.UnmarshalText([]byte("TAA")))
	assert.Equal(t, AntialiasingTemporal, m)
	b, err := AntialiasingSpatial.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "spatial", string(b))
	assert.Error(t, m.UnmarshalText([]byte("msaa")))
}

func TestShadowSettingsSanitized(t *testing.T) {
	s := ShadowSettings{CascadeCount: 9, KernelWidth: 4, Filter: ShadowFilter(42)}.Sanitized()
	assert.Equal(t, MaxCascadeCount, s.CascadeCount)
	assert.Equal(t, uint32(5), s.KernelWidth)
	assert.Equal(t, ShadowFilterFixedPCF, s.Filter)
	assert.Equal(t, float32(1000), s.MaxDistance)

	splits := DefaultShadowSettings().CascadeSplits(0.1)
	require.Len(t, splits, 4)
	for i := 1; i < len(splits); i++ {
		assert.Greater(t, splits[i], splits[i-1])
	}
	assert.Equal(t, float32(1000), splits[3])
}

func contains(list []PassID, p PassID) bool {
	for _, v := range list {
		if v == p {
			return true
		}
	}
	return false
}

func TestNeedsResourcesOnlyForAntialiasing(t *testing.T) {
	base := PipelineConfig{Antialiasing: AntialiasingTemporal}
	assert.False(t, base.NeedsResources(PipelineConfig{Antialiasing: AntialiasingTemporal, AmbientOcclusion: true, Sky: true}))
	assert.True(t, base.NeedsResources(PipelineConfig{Antialiasing: AntialiasingSpatial}))
	assert.True(t, base.NeedsResources(PipelineConfig{Antialiasing: AntialiasingNone}))
}
