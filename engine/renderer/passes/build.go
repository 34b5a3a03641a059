package passes

import (
	"fmt"

	"github.com/spaghettifunk/hybrid/engine/renderer/metadata"
	"github.com/spaghettifunk/hybrid/engine/renderer/targets"
)

// Sequence is the compiled frame: the units in submission order plus the
// binding holding the colour that gets presented.
type Sequence struct {
	Config metadata.PipelineConfig
	Epoch  uint64
	Units  []Unit
	Final  metadata.Binding
}

// IDs lists the passes of the sequence in order.
func (s *Sequence) IDs() []metadata.PassID {
	out := make([]metadata.PassID, len(s.Units))
	for i := range s.Units {
		out[i] = s.Units[i].ID
	}
	return out
}

func pool(ft *metadata.FrameTarget, role metadata.AttachmentRole) metadata.Binding {
	return metadata.Binding{Role: role, Source: metadata.SourcePool, Handle: ft.MustAttachment(role)}
}

// Build compiles config against the bundles of set. A sequence that
// fails validation is a programming error and panics.
func Build(config metadata.PipelineConfig, set *targets.TargetSet, settings metadata.PassSettings) *Sequence {
	if set == nil {
		panic("passes: build without a target set")
	}
	if config.Antialiasing != set.Antialiasing {
		panic(fmt.Sprintf("passes: %s compiled against targets built for aa=%s", config, set.Antialiasing))
	}
	gbuffer := set.Target(metadata.TargetGBuffer)
	shadow := set.Target(metadata.TargetShadow)
	tonemap := set.Target(metadata.TargetToneMap)
	temporal := config.Antialiasing == metadata.AntialiasingTemporal

	unit := func(id metadata.PassID, scene SceneInput, params any) Unit {
		return Unit{ID: id, Program: id.Program(), Scene: scene, Params: params, Epoch: set.Epoch}
	}
	seq := &Sequence{Config: config, Epoch: set.Epoch}

	for _, id := range config.Passes() {
		var u Unit
		switch id {
		case metadata.PassDepth:
			u = unit(id, SceneCamera|SceneGeometry, nil)
			u.Outputs = []metadata.Binding{pool(gbuffer, metadata.AttachmentDepth)}
		case metadata.PassShadow:
			u = unit(id, SceneCamera|SceneLights, settings.Shadow.Sanitized())
			u.Inputs = []metadata.Binding{pool(shadow, metadata.AttachmentDepth)}
			u.Outputs = []metadata.Binding{pool(shadow, metadata.AttachmentVisibility)}
		case metadata.PassLighting:
			u = unit(id, SceneCamera|SceneGeometry|SceneLights|SceneProbes, nil)
			u.Inputs = []metadata.Binding{
				pool(shadow, metadata.AttachmentVisibility),
				pool(gbuffer, metadata.AttachmentDepth),
			}
			u.Outputs = []metadata.Binding{
				pool(gbuffer, metadata.AttachmentHDRColour),
				pool(gbuffer, metadata.AttachmentNormal),
			}
			if temporal {
				u.Outputs = append(u.Outputs, pool(gbuffer, metadata.AttachmentMotionVector))
			}
		case metadata.PassSky:
			u = unit(id, SceneCamera|SceneSky, nil)
			u.Outputs = []metadata.Binding{pool(gbuffer, metadata.AttachmentHDRColour)}
		case metadata.PassToneMap:
			u = unit(id, 0, settings.ToneMap)
			u.Inputs = []metadata.Binding{pool(gbuffer, metadata.AttachmentHDRColour)}
			u.Outputs = []metadata.Binding{pool(tonemap, metadata.AttachmentLDRColour)}
		case metadata.PassTemporalAccumulation:
			u = unit(id, 0, settings.Temporal)
			u.Inputs = []metadata.Binding{
				pool(tonemap, metadata.AttachmentLDRColour),
				{Role: metadata.AttachmentLDRColour, Source: metadata.SourceRingHistory},
				pool(gbuffer, metadata.AttachmentMotionVector),
			}
			u.Outputs = []metadata.Binding{{Role: metadata.AttachmentLDRColour, Source: metadata.SourceRingActive}}
		case metadata.PassAmbientOcclusion:
			u = unit(id, 0, settings.AO)
			u.Inputs = []metadata.Binding{
				pool(gbuffer, metadata.AttachmentDepth),
				pool(gbuffer, metadata.AttachmentNormal),
				seq.Final,
			}
			u.Outputs = []metadata.Binding{pool(set.Target(metadata.TargetAO), metadata.AttachmentLDRColour)}
		case metadata.PassSpatialAA:
			u = unit(id, 0, nil)
			u.Inputs = []metadata.Binding{seq.Final}
			u.Outputs = []metadata.Binding{pool(set.Target(metadata.TargetResolve), metadata.AttachmentLDRColour)}
		}
		seq.Units = append(seq.Units, u)
		for _, o := range u.Outputs {
			if o.Role == metadata.AttachmentLDRColour {
				seq.Final = o
			}
		}
	}

	if err := Validate(config, seq.Units); err != nil {
		panic(fmt.Sprintf("passes: %v", err))
	}
	return seq
}
