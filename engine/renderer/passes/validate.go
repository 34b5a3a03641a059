package passes

import (
	"fmt"

	"github.com/spaghettifunk/hybrid/engine/renderer/metadata"
)

// Validate checks a compiled sequence against the rules every frame relies on:
// the order matches config, only Depth writes depth, only Lighting and Sky
// write HDR colour, every pool input was produced earlier in the frame, and
// all units share one epoch.
func Validate(config metadata.PipelineConfig, units []Unit) error {
	want := config.Passes()
	if len(units) != len(want) {
		return fmt.Errorf("%s: %d units, want %d", config, len(units), len(want))
	}
	written := make(map[metadata.Binding]metadata.PassID)
	for i := range units {
		u := &units[i]
		if u.ID != want[i] {
			return fmt.Errorf("%s: unit %d is %s, want %s", config, i, u.ID, want[i])
		}
		if u.Epoch != units[0].Epoch {
			return fmt.Errorf("%s: %s has epoch %d, sequence has %d", config, u.ID, u.Epoch, units[0].Epoch)
		}
		for _, in := range u.Inputs {
			if in.Source == metadata.SourceRingHistory {
				continue
			}
			if _, ok := written[in]; !ok {
				return fmt.Errorf("%s: %s reads %s before any pass wrote it", config, u.ID, in.Role)
			}
		}
		for _, out := range u.Outputs {
			switch out.Role {
			case metadata.AttachmentDepth:
				if u.ID != metadata.PassDepth {
					return fmt.Errorf("%s: %s writes depth", config, u.ID)
				}
			case metadata.AttachmentHDRColour:
				if u.ID != metadata.PassLighting && u.ID != metadata.PassSky {
					return fmt.Errorf("%s: %s writes HDR colour", config, u.ID)
				}
				if u.ID == metadata.PassSky && written[out] != metadata.PassLighting {
					return fmt.Errorf("%s: sky composites over an HDR target lighting never wrote", config)
				}
			}
			if out.Source == metadata.SourceRingHistory {
				return fmt.Errorf("%s: %s writes the history slot", config, u.ID)
			}
			written[out] = u.ID
		}
	}
	return nil
}
