package metadata

import "fmt"

// JitterPattern yields the sub-pixel camera offset of each frame. Offsets
// are already scaled by the inverse target size, so one pixel is 1/width.
type JitterPattern interface {
	Offset(frame uint64) (x, y float32)
	Len() int
}

// Jitterable is implemented by cameras that accept a temporal jitter. A
// nil pattern removes it.
type Jitterable interface {
	SetJitter(pattern JitterPattern)
	// SetJitterFrame selects the pattern sample used by the frame.
	SetJitterFrame(frame uint64)
	Jitter() JitterPattern
}

// Standard 8x sample positions in 1/16 pixel units.
var dx11Positions = [8][2]float32{
	{1, -3}, {-1, 3}, {5, 1}, {-3, -5},
	{-5, 5}, {-7, -1}, {3, 7}, {7, -7},
}

const haltonSampleCount = 8

// SamplePositions is a fixed, looping list of sub-pixel offsets.
type SamplePositions struct {
	Pattern SamplePattern
	offsets [][2]float32
}

func (s *SamplePositions) Len() int { return len(s.offsets) }

func (s *SamplePositions) Offset(frame uint64) (float32, float32) {
	o := s.offsets[frame%uint64(len(s.offsets))]
	return o[0], o[1]
}

// halton is the radical inverse of index in base.
func halton(index, base uint32) float32 {
	f, r := float32(1), float32(0)
	for index > 0 {
		f /= float32(base)
		r += f * float32(index%base)
		index /= base
	}
	return r
}

// NewJitterPattern builds the offsets of p for a width x height target.
// Every offset lies in [-0.5, 0.5) pixels before scaling.
func NewJitterPattern(p SamplePattern, width, height uint32) (*SamplePositions, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("jitter pattern for %dx%d: empty target", width, height)
	}
	sx, sy := 1/float32(width), 1/float32(height)
	out := &SamplePositions{Pattern: p}
	switch p {
	case SamplePatternHalton:
		for i := uint32(1); i <= haltonSampleCount; i++ {
			out.offsets = append(out.offsets, [2]float32{(halton(i, 2) - 0.5) * sx, (halton(i, 3) - 0.5) * sy})
		}
	case SamplePatternDX11:
		for _, o := range dx11Positions {
			out.offsets = append(out.offsets, [2]float32{o[0] / 16 * sx, o[1] / 16 * sy})
		}
	default:
		return nil, fmt.Errorf("unknown sample pattern %d", uint8(p))
	}
	return out, nil
}
