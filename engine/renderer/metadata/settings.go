package metadata

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/hybrid/engine/math"
)

// ShadowFilter is the kernel used to filter cascaded shadow maps.
type ShadowFilter uint8

const (
	ShadowFilterPoint ShadowFilter = iota
	ShadowFilterHardwarePCF
	ShadowFilterFixedPCF
	ShadowFilterVSM
	ShadowFilterEVSM
)

var shadowFilterNames = []string{"point", "hw-pcf", "fixed-pcf", "vsm", "evsm"}

func (f ShadowFilter) String() string {
	if int(f) < len(shadowFilterNames) {
		return shadowFilterNames[f]
	}
	return fmt.Sprintf("filter(%d)", uint8(f))
}

func (f ShadowFilter) MarshalText() ([]byte, error) {
	if int(f) >= len(shadowFilterNames) {
		return nil, fmt.Errorf("unknown shadow filter %d", uint8(f))
	}
	return []byte(f.String()), nil
}

func (f *ShadowFilter) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	for i, n := range shadowFilterNames {
		if n == s {
			*f = ShadowFilter(i)
			return nil
		}
	}
	return fmt.Errorf("unknown shadow filter %q", s)
}

// ShadowSettings tune the shadow pass without changing its bindings.
type ShadowSettings struct {
	CascadeCount uint32       `toml:"cascade_count"`
	Filter       ShadowFilter `toml:"filter"`
	KernelWidth  uint32       `toml:"kernel_width"`
	MaxDistance  float32      `toml:"max_distance"`
}

const (
	MaxCascadeCount   uint32 = 4
	MaxPCFKernelWidth uint32 = 7
)

func DefaultShadowSettings() ShadowSettings {
	return ShadowSettings{
		CascadeCount: 4,
		Filter:       ShadowFilterFixedPCF,
		KernelWidth:  5,
		MaxDistance:  1000,
	}
}

// Sanitized clamps the settings into their supported ranges. Kernel widths are odd.
func (s ShadowSettings) Sanitized() ShadowSettings {
	s.CascadeCount = math.Clamp(s.CascadeCount, 1, MaxCascadeCount)
	s.KernelWidth = math.Clamp(s.KernelWidth, 1, MaxPCFKernelWidth)
	if s.KernelWidth%2 == 0 {
		s.KernelWidth++
	}
	if int(s.Filter) >= len(shadowFilterNames) {
		s.Filter = ShadowFilterFixedPCF
	}
	if s.MaxDistance <= 0 {
		s.MaxDistance = DefaultShadowSettings().MaxDistance
	}
	return s
}

// CascadeSplits returns the far distance of each cascade using a
// logarithmic split between near and MaxDistance.
func (s ShadowSettings) CascadeSplits(near float32) []float32 {
	s = s.Sanitized()
	if near <= 0 {
		near = 0.1
	}
	far := s.MaxDistance
	splits := make([]float32, s.CascadeCount)
	ratio := far / near
	for i := uint32(0); i < s.CascadeCount; i++ {
		p := float32(i+1) / float32(s.CascadeCount)
		splits[i] = near * pow(ratio, p)
	}
	splits[len(splits)-1] = far
	return splits
}

// ToneMapOperator selects the HDR to LDR curve.
type ToneMapOperator uint8

const (
	ToneMapLinear ToneMapOperator = iota
	ToneMapReinhard
	ToneMapACES
)

var toneMapNames = []string{"linear", "reinhard", "aces"}

func (o ToneMapOperator) String() string {
	if int(o) < len(toneMapNames) {
		return toneMapNames[o]
	}
	return fmt.Sprintf("operator(%d)", uint8(o))
}

func (o ToneMapOperator) MarshalText() ([]byte, error) {
	if int(o) >= len(toneMapNames) {
		return nil, fmt.Errorf("unknown tonemap operator %d", uint8(o))
	}
	return []byte(o.String()), nil
}

func (o *ToneMapOperator) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	for i, n := range toneMapNames {
		if n == s {
			*o = ToneMapOperator(i)
			return nil
		}
	}
	return fmt.Errorf("unknown tonemap operator %q", s)
}

type ToneMapSettings struct {
	Operator ToneMapOperator `toml:"operator"`
	Exposure float32         `toml:"exposure"`
}

func DefaultToneMapSettings() ToneMapSettings {
	return ToneMapSettings{Operator: ToneMapReinhard, Exposure: 1}
}

type AOSettings struct {
	Radius      float32 `toml:"radius"`
	SampleCount uint32  `toml:"sample_count"`
	Strength    float32 `toml:"strength"`
}

func DefaultAOSettings() AOSettings {
	return AOSettings{Radius: 0.5, SampleCount: 16, Strength: 1}
}

// SamplePattern is the sub-pixel jitter sequence used in temporal mode.
type SamplePattern uint8

const (
	SamplePatternHalton SamplePattern = iota
	SamplePatternDX11
)

var samplePatternNames = []string{"halton", "dx11"}

func (p SamplePattern) String() string {
	if int(p) < len(samplePatternNames) {
		return samplePatternNames[p]
	}
	return fmt.Sprintf("pattern(%d)", uint8(p))
}

func (p SamplePattern) MarshalText() ([]byte, error) {
	if int(p) >= len(samplePatternNames) {
		return nil, fmt.Errorf("unknown sample pattern %d", uint8(p))
	}
	return []byte(p.String()), nil
}

func (p *SamplePattern) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	for i, n := range samplePatternNames {
		if n == s {
			*p = SamplePattern(i)
			return nil
		}
	}
	return fmt.Errorf("unknown sample pattern %q", s)
}

// TemporalSettings controls the history blend and the camera jitter.
// Alpha is the weight of the current frame.
type TemporalSettings struct {
	Alpha         float32       `toml:"alpha"`
	SamplePattern SamplePattern `toml:"sample_pattern"`
}

func DefaultTemporalSettings() TemporalSettings {
	return TemporalSettings{Alpha: 0.1, SamplePattern: SamplePatternHalton}
}

// PassSettings groups every tunable that ends up in Unit.Params.
type PassSettings struct {
	Shadow   ShadowSettings
	ToneMap  ToneMapSettings
	AO       AOSettings
	Temporal TemporalSettings
}

func DefaultPassSettings() PassSettings {
	return PassSettings{
		Shadow:   DefaultShadowSettings(),
		ToneMap:  DefaultToneMapSettings(),
		AO:       DefaultAOSettings(),
		Temporal: DefaultTemporalSettings(),
	}
}
