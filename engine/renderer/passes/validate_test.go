package passes

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/hybrid/engine/renderer/metadata"
)

func TestValidateRejectsBrokenSequences(t *testing.T) {
	cfg := metadata.PipelineConfig{Sky: true, AmbientOcclusion: true}
	_, _, set := configured(t, cfg.Antialiasing)
	good := Build(cfg, set, metadata.DefaultPassSettings()).Units

	clone := func() []Unit {
		out := make([]Unit, len(good))
		copy(out, good)
		return out
	}
	index := func(units []Unit, id metadata.PassID) int {
		for i, u := range units {
			if u.ID == id {
				return i
			}
		}
		t.Fatalf("no %s unit", id)
		return -1
	}
	depthOut := good[0].Outputs[0]
	hdrOut := good[index(good, metadata.PassLighting)].Outputs[0]

	tests := []struct {
		name   string
		mutate func([]Unit) []Unit
	}{
		{"missing unit", func(u []Unit) []Unit { return u[:len(u)-1] }},
		{"swapped order", func(u []Unit) []Unit {
			u[0], u[1] = u[1], u[0]
			return u
		}},
		{"shadow writes depth", func(u []Unit) []Unit {
			i := index(u, metadata.PassShadow)
			u[i].Outputs = append([]metadata.Binding{}, depthOut)
			return u
		}},
		{"tonemap writes hdr", func(u []Unit) []Unit {
			i := index(u, metadata.PassToneMap)
			u[i].Outputs = []metadata.Binding{hdrOut}
			return u
		}},
		{"read before write", func(u []Unit) []Unit {
			i := index(u, metadata.PassShadow)
			u[i].Inputs = []metadata.Binding{hdrOut}
			return u
		}},
		{"mixed epochs", func(u []Unit) []Unit {
			u[2].Epoch++
			return u
		}},
		{"history written", func(u []Unit) []Unit {
			i := index(u, metadata.PassAmbientOcclusion)
			u[i].Outputs = []metadata.Binding{{Role: metadata.AttachmentLDRColour, Source: metadata.SourceRingHistory}}
			return u
		}},
	}
	assert.NoError(t, Validate(cfg, good))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, Validate(cfg, tt.mutate(clone())))
		})
	}
}
