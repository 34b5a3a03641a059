package metadata

import (
	"fmt"
	"strings"
)

// AntialiasingMode selects the post-processing strategy. Being a single
// value, temporal accumulation and spatial AA can never both be active.
type AntialiasingMode uint8

const (
	AntialiasingNone AntialiasingMode = iota
	AntialiasingTemporal
	AntialiasingSpatial
)

var antialiasingNames = map[AntialiasingMode]string{
	AntialiasingNone:     "none",
	AntialiasingTemporal: "temporal",
	AntialiasingSpatial:  "spatial",
}

func (m AntialiasingMode) String() string {
	if s, ok := antialiasingNames[m]; ok {
		return s
	}
	return fmt.Sprintf("antialiasing(%d)", uint8(m))
}

// ParseAntialiasingMode accepts the config spellings, plus the usual aliases.
func ParseAntialiasingMode(s string) (AntialiasingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "off":
		return AntialiasingNone, nil
	case "temporal", "taa", "temporal-accumulation":
		return AntialiasingTemporal, nil
	case "spatial", "fxaa", "spatial-aa":
		return AntialiasingSpatial, nil
	}
	return AntialiasingNone, fmt.Errorf("unknown antialiasing mode %q", s)
}

func (m AntialiasingMode) MarshalText() ([]byte, error) {
	if _, ok := antialiasingNames[m]; !ok {
		return nil, fmt.Errorf("unknown antialiasing mode %d", uint8(m))
	}
	return []byte(m.String()), nil
}

func (m *AntialiasingMode) UnmarshalText(text []byte) error {
	v, err := ParseAntialiasingMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// PipelineConfig is the whole configuration space of the frame sequence.
type PipelineConfig struct {
	Antialiasing     AntialiasingMode
	AmbientOcclusion bool
	Sky              bool
}

func (c PipelineConfig) String() string {
	return fmt.Sprintf("aa=%s ao=%t sky=%t", c.Antialiasing, c.AmbientOcclusion, c.Sky)
}

// Passes compiles the configuration into the ordered pass list of one frame.
func (c PipelineConfig) Passes() []PassID {
	passes := []PassID{PassDepth, PassShadow, PassLighting}
	if c.Sky {
		passes = append(passes, PassSky)
	}
	passes = append(passes, PassToneMap)
	if c.Antialiasing == AntialiasingTemporal {
		passes = append(passes, PassTemporalAccumulation)
	}
	if c.AmbientOcclusion {
		passes = append(passes, PassAmbientOcclusion)
	}
	if c.Antialiasing == AntialiasingSpatial {
		passes = append(passes, PassSpatialAA)
	}
	return passes
}

// NeedsResources reports whether switching from c to other changes the pool layout.
func (c PipelineConfig) NeedsResources(other PipelineConfig) bool {
	return c.Antialiasing != other.Antialiasing
}

// AllPipelineConfigs enumerates every valid configuration.
func AllPipelineConfigs() []PipelineConfig {
	var out []PipelineConfig
	for _, aa := range []AntialiasingMode{AntialiasingNone, AntialiasingTemporal, AntialiasingSpatial} {
		for _, ao := range []bool{false, true} {
			for _, sky := range []bool{false, true} {
				out = append(out, PipelineConfig{Antialiasing: aa, AmbientOcclusion: ao, Sky: sky})
			}
		}
	}
	return out
}
