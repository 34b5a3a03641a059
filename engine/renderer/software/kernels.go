package software

import (
	"fmt"

	"github.com/spaghettifunk/hybrid/engine/math"
	"github.com/spaghettifunk/hybrid/engine/renderer/metadata"
)

// The reference kernels below are simple shading models with deterministic
// output.

const edgeContrast = 0.1

var black = math.Vec4{}

func referenceKernels() map[metadata.PassID]Kernel {
	return map[metadata.PassID]Kernel{
		metadata.PassDepth:                depthKernel,
		metadata.PassShadow:               shadowKernel,
		metadata.PassLighting:             lightingKernel,
		metadata.PassSky:                  skyKernel,
		metadata.PassToneMap:              toneMapKernel,
		metadata.PassTemporalAccumulation: temporalKernel,
		metadata.PassAmbientOcclusion:     ambientOcclusionKernel,
		metadata.PassSpatialAA:            spatialAAKernel,
	}
}

func asImage(s metadata.Surface, err error) (*Image, error) {
	if err != nil {
		return nil, err
	}
	im, ok := s.(*Image)
	if !ok {
		return nil, errForeignSurface(s)
	}
	return im, nil
}

func sameExtent(a, b *Image) error {
	if a.width != b.width || a.height != b.height {
		return fmt.Errorf("extent mismatch %s %dx%d vs %s %dx%d", a.name, a.width, a.height, b.name, b.width, b.height)
	}
	return nil
}

// coveringDrawable returns the nearest drawable covering row y.
func coveringDrawable(drawables []metadata.Drawable, y, height uint32) (metadata.Drawable, bool) {
	var best metadata.Drawable
	found := false
	for _, d := range drawables {
		rows := uint32(math.Saturate(d.Coverage) * float32(height))
		if y >= rows {
			continue
		}
		if !found || d.Depth < best.Depth {
			best, found = d, true
		}
	}
	return best, found
}

func depthKernel(inv *metadata.PassInvocation, rows Rows) error {
	depth, err := asImage(inv.Output(metadata.AttachmentDepth))
	if err != nil {
		return err
	}
	rows(depth.height, func(y uint32) {
		v := float32(1)
		if d, ok := coveringDrawable(inv.Drawables, y, depth.height); ok {
			v = math.Saturate(d.Depth)
		}
		for x := uint32(0); x < depth.width; x++ {
			depth.Set(x, y, math.Vec4{X: v})
		}
	})
	return nil
}

func sunVisibility(lights []metadata.Light) float32 {
	for _, l := range lights {
		if l.Type == metadata.LightDirectional {
			return math.Saturate(-l.Direction.Normalized().Y)
		}
	}
	return 1
}

func shadowKernel(inv *metadata.PassInvocation, rows Rows) error {
	depth, err := asImage(inv.Input(metadata.AttachmentDepth))
	if err != nil {
		return err
	}
	vis, err := asImage(inv.Output(metadata.AttachmentVisibility))
	if err != nil {
		return err
	}
	if err := sameExtent(depth, vis); err != nil {
		return err
	}
	settings := metadata.DefaultShadowSettings()
	if s, ok := inv.Params.(metadata.ShadowSettings); ok {
		settings = s.Sanitized()
	}
	sun := sunVisibility(inv.Lights)
	rows(depth.height, func(y uint32) {
		for x := uint32(0); x < depth.width; x++ {
			v := float32(1)
			if depth.At(x, y).X < 1 {
				v = sun
			}
			vis.Set(x, y, math.Vec4{X: v})
		}
	})
	if settings.Filter != metadata.ShadowFilterPoint && settings.KernelWidth > 1 {
		boxFilterRows(vis, int(settings.KernelWidth/2), rows)
	}
	return nil
}

// boxFilterRows averages the first channel horizontally over 2*r+1 texels.
func boxFilterRows(im *Image, r int, rows Rows) {
	rows(im.height, func(y uint32) {
		row := make([]float32, im.width)
		for x := range row {
			var sum float32
			n := 0
			for dx := -r; dx <= r; dx++ {
				sx := x + dx
				if !im.inside(sx, int(y)) {
					continue
				}
				sum += im.At(uint32(sx), y).X
				n++
			}
			row[x] = sum / float32(n)
		}
		for x, v := range row {
			im.Set(uint32(x), y, math.Vec4{X: v})
		}
	})
}

func directLight(lights []metadata.Light, normal math.Vec3) math.Vec3 {
	out := math.NewVec3Zero()
	for _, l := range lights {
		c := l.Colour.MulScalar(l.Intensity)
		if l.Type == metadata.LightDirectional {
			c = c.MulScalar(math.Saturate(-normal.Dot(l.Direction.Normalized())))
		}
		out = out.Add(c)
	}
	return out
}

func ambientLight(probes []metadata.LightProbe) math.Vec3 {
	out := math.NewVec3Zero()
	if len(probes) == 0 {
		return out
	}
	for _, p := range probes {
		out = out.Add(p.Ambient)
	}
	return out.MulScalar(1 / float32(len(probes)))
}

func lightingKernel(inv *metadata.PassInvocation, rows Rows) error {
	depth, err := asImage(inv.Input(metadata.AttachmentDepth))
	if err != nil {
		return err
	}
	vis, err := asImage(inv.Input(metadata.AttachmentVisibility))
	if err != nil {
		return err
	}
	hdr, err := asImage(inv.Output(metadata.AttachmentHDRColour))
	if err != nil {
		return err
	}
	normals, err := asImage(inv.Output(metadata.AttachmentNormal))
	if err != nil {
		return err
	}
	// motion vectors are only bound in temporal mode
	motion, _ := asImage(inv.Output(metadata.AttachmentMotionVector))

	up := math.NewVec3(0, 1, 0)
	direct := directLight(inv.Lights, up)
	ambient := ambientLight(inv.Probes)
	rows(hdr.height, func(y uint32) {
		d, covered := coveringDrawable(inv.Drawables, y, hdr.height)
		for x := uint32(0); x < hdr.width; x++ {
			if motion != nil {
				motion.Set(x, y, black)
			}
			if !covered || depth.At(x, y).X >= 1 {
				hdr.Set(x, y, black)
				normals.Set(x, y, black)
				continue
			}
			light := direct.MulScalar(vis.At(x, y).X).Add(ambient)
			hdr.Set(x, y, math.Vec4{
				X: d.Albedo.X * light.X,
				Y: d.Albedo.Y * light.Y,
				Z: d.Albedo.Z * light.Z,
				W: 1,
			})
			normals.Set(x, y, math.Vec4{X: up.X, Y: up.Y, Z: up.Z})
		}
	})
	return nil
}

// skyKernel composites the sky behind whatever Lighting left uncovered.
func skyKernel(inv *metadata.PassInvocation, rows Rows) error {
	hdr, err := asImage(inv.Output(metadata.AttachmentHDRColour))
	if err != nil {
		return err
	}
	if inv.Sky == nil {
		return nil
	}
	sky := inv.Sky.Colour.MulScalar(inv.Sky.Intensity)
	rows(hdr.height, func(y uint32) {
		for x := uint32(0); x < hdr.width; x++ {
			c := hdr.At(x, y)
			k := 1 - math.Saturate(c.W)
			hdr.Set(x, y, math.Vec4{X: c.X + sky.X*k, Y: c.Y + sky.Y*k, Z: c.Z + sky.Z*k, W: 1})
		}
	})
	return nil
}

// ToneMap maps one HDR channel to [0, 1].
func ToneMap(v float32, s metadata.ToneMapSettings) float32 {
	if v < 0 {
		v = 0
	}
	v *= s.Exposure
	switch s.Operator {
	case metadata.ToneMapReinhard:
		return v / (1 + v)
	case metadata.ToneMapACES:
		return math.Saturate((v * (2.51*v + 0.03)) / (v*(2.43*v+0.59) + 0.14))
	}
	return math.Saturate(v)
}

func toneMapKernel(inv *metadata.PassInvocation, rows Rows) error {
	hdr, err := asImage(inv.Input(metadata.AttachmentHDRColour))
	if err != nil {
		return err
	}
	ldr, err := asImage(inv.Output(metadata.AttachmentLDRColour))
	if err != nil {
		return err
	}
	if err := sameExtent(hdr, ldr); err != nil {
		return err
	}
	settings := metadata.DefaultToneMapSettings()
	if s, ok := inv.Params.(metadata.ToneMapSettings); ok {
		settings = s
	}
	rows(hdr.height, func(y uint32) {
		for x := uint32(0); x < hdr.width; x++ {
			c := hdr.At(x, y)
			ldr.Set(x, y, math.Vec4{
				X: ToneMap(c.X, settings),
				Y: ToneMap(c.Y, settings),
				Z: ToneMap(c.Z, settings),
				W: 1,
			})
		}
	})
	return nil
}

func temporalKernel(inv *metadata.PassInvocation, rows Rows) error {
	current, err := asImage(inv.Input(metadata.AttachmentLDRColour))
	if err != nil {
		return err
	}
	history, err := asImage(inv.InputFrom(metadata.AttachmentLDRColour, metadata.SourceRingHistory))
	if err != nil {
		return err
	}
	if _, err := inv.Input(metadata.AttachmentMotionVector); err != nil {
		return err
	}
	out, err := asImage(inv.Output(metadata.AttachmentLDRColour))
	if err != nil {
		return err
	}
	if err := sameExtent(current, out); err != nil {
		return err
	}
	alpha := metadata.DefaultTemporalSettings().Alpha
	if s, ok := inv.Params.(metadata.TemporalSettings); ok {
		alpha = math.Saturate(s.Alpha)
	}
	rows(out.height, func(y uint32) {
		for x := uint32(0); x < out.width; x++ {
			c := current.At(x, y)
			if inv.HistoryValid {
				h := history.At(x, y)
				c = math.Vec4{
					X: math.Lerp(h.X, c.X, alpha),
					Y: math.Lerp(h.Y, c.Y, alpha),
					Z: math.Lerp(h.Z, c.Z, alpha),
					W: math.Lerp(h.W, c.W, alpha),
				}
			}
			out.Set(x, y, c)
		}
	})
	return nil
}

func ambientOcclusionKernel(inv *metadata.PassInvocation, rows Rows) error {
	depth, err := asImage(inv.Input(metadata.AttachmentDepth))
	if err != nil {
		return err
	}
	if _, err := inv.Input(metadata.AttachmentNormal); err != nil {
		return err
	}
	colour, err := asImage(inv.InputAny(metadata.AttachmentLDRColour))
	if err != nil {
		return err
	}
	out, err := asImage(inv.Output(metadata.AttachmentLDRColour))
	if err != nil {
		return err
	}
	if err := sameExtent(colour, out); err != nil {
		return err
	}
	settings := metadata.DefaultAOSettings()
	if s, ok := inv.Params.(metadata.AOSettings); ok {
		settings = s
	}
	r := 1 + int(settings.Radius)
	offsets := [4][2]int{{-r, 0}, {r, 0}, {0, -r}, {0, r}}
	rows(out.height, func(y uint32) {
		for x := uint32(0); x < out.width; x++ {
			centre := depth.At(x, y).X
			occluded := 0
			for _, o := range offsets {
				sx, sy := int(x)+o[0], int(y)+o[1]
				if depth.inside(sx, sy) && depth.At(uint32(sx), uint32(sy)).X < centre {
					occluded++
				}
			}
			k := 1 - math.Saturate(settings.Strength)*float32(occluded)/8
			c := colour.At(x, y)
			out.Set(x, y, math.Vec4{X: c.X * k, Y: c.Y * k, Z: c.Z * k, W: c.W})
		}
	})
	return nil
}

func luminance(c math.Vec4) float32 {
	return 0.299*c.X + 0.587*c.Y + 0.114*c.Z
}

func spatialAAKernel(inv *metadata.PassInvocation, rows Rows) error {
	src, err := asImage(inv.InputAny(metadata.AttachmentLDRColour))
	if err != nil {
		return err
	}
	out, err := asImage(inv.Output(metadata.AttachmentLDRColour))
	if err != nil {
		return err
	}
	if err := sameExtent(src, out); err != nil {
		return err
	}
	rows(out.height, func(y uint32) {
		for x := uint32(0); x < out.width; x++ {
			c := src.At(x, y)
			var avg math.Vec4
			n := float32(0)
			for _, o := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
				sx, sy := int(x)+o[0], int(y)+o[1]
				if !src.inside(sx, sy) {
					continue
				}
				s := src.At(uint32(sx), uint32(sy))
				avg = math.Vec4{X: avg.X + s.X, Y: avg.Y + s.Y, Z: avg.Z + s.Z, W: avg.W + s.W}
				n++
			}
			avg = math.Vec4{X: avg.X / n, Y: avg.Y / n, Z: avg.Z / n, W: avg.W / n}
			d := luminance(c) - luminance(avg)
			if d < 0 {
				d = -d
			}
			if d > edgeContrast {
				c = math.Vec4{X: (c.X + avg.X) / 2, Y: (c.Y + avg.Y) / 2, Z: (c.Z + avg.Z) / 2, W: (c.W + avg.W) / 2}
			}
			out.Set(x, y, c)
		}
	})
	return nil
}
