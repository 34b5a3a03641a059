package metadata

import (
	"fmt"

	"github.com/spaghettifunk/hybrid/engine/core"
)

// PassID identifies one of the fixed GPU work units of a frame.
type PassID uint8

const (
	PassDepth PassID = iota
	PassShadow
	PassLighting
	PassSky
	PassToneMap
	PassTemporalAccumulation
	PassAmbientOcclusion
	PassSpatialAA
)

func (p PassID) String() string {
	switch p {
	case PassDepth:
		return "Depth"
	case PassShadow:
		return "Shadow"
	case PassLighting:
		return "Lighting"
	case PassSky:
		return "Sky"
	case PassToneMap:
		return "ToneMap"
	case PassTemporalAccumulation:
		return "TemporalAccumulation"
	case PassAmbientOcclusion:
		return "AmbientOcclusion"
	case PassSpatialAA:
		return "SpatialAA"
	}
	return fmt.Sprintf("pass(%d)", uint8(p))
}

// Program is the name of the kernel bound to the pass.
func (p PassID) Program() string {
	switch p {
	case PassDepth:
		return "depth_prepass"
	case PassShadow:
		return "cascaded_shadow_visibility"
	case PassLighting:
		return "forward_lighting"
	case PassSky:
		return "skybox"
	case PassToneMap:
		return "tonemapping"
	case PassTemporalAccumulation:
		return "temporal_accumulation"
	case PassAmbientOcclusion:
		return "screen_space_ao"
	case PassSpatialAA:
		return "fxaa"
	}
	return ""
}

// BindingSource says where a binding's surface comes from at execution time.
type BindingSource uint8

const (
	// SourcePool is a fixed handle into the target pool.
	SourcePool BindingSource = iota
	// SourceRingActive is the ring slot written this frame.
	SourceRingActive
	// SourceRingHistory is the ring slot holding the previous frame.
	SourceRingHistory
)

// Binding is a declared input or output of a pass.
type Binding struct {
	Role   AttachmentRole
	Source BindingSource
	Handle Handle
}

// BoundSurface is a binding resolved for the current frame.
type BoundSurface struct {
	Role    AttachmentRole
	Source  BindingSource
	Surface Surface
}

// PassInvocation is what a device receives to run one pass. Only the
// declared surfaces are reachable from it.
type PassInvocation struct {
	Pass    PassID
	Program string
	Frame   uint64
	Epoch   uint64

	Inputs  []BoundSurface
	Outputs []BoundSurface

	Camera    Camera
	Lights    []Light
	Drawables []Drawable
	Probes    []LightProbe
	Sky       *Sky

	// HistoryValid is false when the history slot was reset since the last swap.
	HistoryValid bool
	Params       any
}

func lookup(list []BoundSurface, role AttachmentRole, source BindingSource) (Surface, bool) {
	for _, b := range list {
		if b.Role == role && b.Source == source {
			return b.Surface, true
		}
	}
	return nil, false
}

// Input returns the declared input surface for role.
func (inv *PassInvocation) Input(role AttachmentRole) (Surface, error) {
	return inv.InputFrom(role, SourcePool)
}

// InputFrom returns the declared input for role coming from source.
func (inv *PassInvocation) InputFrom(role AttachmentRole, source BindingSource) (Surface, error) {
	if s, ok := lookup(inv.Inputs, role, source); ok {
		return s, nil
	}
	return nil, fmt.Errorf("%s reading %s: %w", inv.Pass, role, core.ErrUndeclaredAccess)
}

// InputAny returns the first declared input for role, whatever its source.
func (inv *PassInvocation) InputAny(role AttachmentRole) (Surface, error) {
	for _, b := range inv.Inputs {
		if b.Role == role {
			return b.Surface, nil
		}
	}
	return nil, fmt.Errorf("%s reading %s: %w", inv.Pass, role, core.ErrUndeclaredAccess)
}

// Output returns the declared output surface for role.
func (inv *PassInvocation) Output(role AttachmentRole) (Surface, error) {
	for _, b := range inv.Outputs {
		if b.Role == role {
			return b.Surface, nil
		}
	}
	return nil, fmt.Errorf("%s writing %s: %w", inv.Pass, role, core.ErrUndeclaredAccess)
}
