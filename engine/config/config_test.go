package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/hybrid/engine/core"
	"github.com/spaghettifunk/hybrid/engine/renderer"
	"github.com/spaghettifunk/hybrid/engine/renderer/metadata"
)

const sample = `
[window]
width = 640
height = 360
clear_colour = [0.5, 0.25, 2.0, 1.0]

[pipeline]
antialiasing = "fxaa"
ambient_occlusion = true
sky = false

[shadow]
cascade_count = 7
filter = "evsm"
kernel_width = 2

[tonemap]
operator = "aces"
exposure = 100.0

[temporal]
alpha = 0.0

[engine]
backend = "vulkan"
frames = 120
log_level = "debug"
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, uint32(640), c.Window.Width)
	assert.Equal(t, [4]float32{0.5, 0.25, 1, 1}, c.Window.ClearColour)
	assert.Equal(t, metadata.PipelineConfig{Antialiasing: metadata.AntialiasingSpatial, AmbientOcclusion: true}, c.PipelineConfig())
	assert.Equal(t, metadata.MaxCascadeCount, c.Shadow.CascadeCount)
	assert.Equal(t, metadata.ShadowFilterEVSM, c.Shadow.Filter)
	assert.Equal(t, uint32(3), c.Shadow.KernelWidth)
	assert.Equal(t, float32(1000), c.Shadow.MaxDistance, "unset keys keep their default")
	assert.Equal(t, metadata.ToneMapACES, c.ToneMap.Operator)
	assert.Equal(t, float32(16), c.ToneMap.Exposure)
	assert.Equal(t, float32(0.01), c.Temporal.Alpha)
	assert.Equal(t, metadata.DefaultAOSettings(), c.AO)
	assert.Equal(t, renderer.Vulkan, c.Backend())
	assert.Equal(t, uint64(120), c.Engine.Frames)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"zero width":   "[window]\nwidth = 0",
		"bad aa":       "[pipeline]\nantialiasing = \"msaa\"",
		"bad filter":   "[shadow]\nfilter = \"blurry\"",
		"bad backend":  "[engine]\nbackend = \"metal\"",
		"bad level":    "[engine]\nlog_level = \"loud\"",
		"broken toml":  "[window\nwidth = 1",
		"wrong type":   "[window]\nwidth = \"wide\"",
		"bad operator": "[tonemap]\noperator = \"filmic\"",
		"bad workers":  "[engine]\nworkers = -2",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
	_, err := Parse([]byte("[window]\nheight = 0"))
	assert.ErrorIs(t, err, core.ErrInvalidExtent)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "hybrid.toml")
	require.NoError(t, c.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
}

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, Default(), c)
	assert.Equal(t, renderer.Software, c.Backend())
}

type recorder struct {
	calls []string
	last  *Config
}

func (r *recorder) RequestResize(w, h uint32) error {
	r.calls = append(r.calls, "resize")
	return nil
}
func (r *recorder) SetAntialiasing(metadata.AntialiasingMode) error {
	r.calls = append(r.calls, "aa")
	return nil
}
func (r *recorder) SetAmbientOcclusion(bool) error {
	r.calls = append(r.calls, "ao")
	return nil
}
func (r *recorder) SetSky(bool) error {
	r.calls = append(r.calls, "sky")
	return nil
}
func (r *recorder) SetShadowSettings(metadata.ShadowSettings) error {
	r.calls = append(r.calls, "shadow")
	return nil
}
func (r *recorder) SetToneMapSettings(metadata.ToneMapSettings) error {
	r.calls = append(r.calls, "tonemap")
	return nil
}
func (r *recorder) SetAOSettings(metadata.AOSettings) error {
	r.calls = append(r.calls, "ao-settings")
	return nil
}
func (r *recorder) SetTemporalSettings(metadata.TemporalSettings) error {
	r.calls = append(r.calls, "temporal")
	return nil
}

func TestStageOnlyDifferences(t *testing.T) {
	old := Default()
	updated := Default()
	updated.Window.Width = 800
	updated.Pipeline.Sky = false
	updated.ToneMap.Exposure = 2
	updated.Engine.Frames = 10

	r := &recorder{}
	n, err := Stage(old, updated, r)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"resize", "sky", "tonemap"}, r.calls)

	r.calls = nil
	n, err = Stage(updated, updated, r)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, r.calls)
}
