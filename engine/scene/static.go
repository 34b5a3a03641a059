package scene

import (
	"github.com/spaghettifunk/hybrid/engine/math"
	"github.com/spaghettifunk/hybrid/engine/renderer/metadata"
)

// Static is an in-memory scene. It satisfies metadata.Scene and, when a
// sky is set, metadata.SkyProvider.
type Static struct {
	Name      string
	Camera    *Camera
	lights    []metadata.Light
	drawables []metadata.Drawable
	probes    []metadata.LightProbe
	sky       *metadata.Sky
}

func NewStatic(name string, camera *Camera) *Static {
	return &Static{Name: name, Camera: camera}
}

func (s *Static) ActiveCamera() metadata.Camera {
	if s.Camera == nil {
		return nil
	}
	return s.Camera
}

func (s *Static) Lights() []metadata.Light            { return s.lights }
func (s *Static) Drawables() []metadata.Drawable      { return s.drawables }
func (s *Static) LightProbes() []metadata.LightProbe  { return s.probes }
func (s *Static) AddLight(l metadata.Light)           { s.lights = append(s.lights, l) }
func (s *Static) AddDrawable(d metadata.Drawable)     { s.drawables = append(s.drawables, d) }
func (s *Static) AddLightProbe(p metadata.LightProbe) { s.probes = append(s.probes, p) }
func (s *Static) SetSky(sky metadata.Sky)             { s.sky = &sky }
func (s *Static) ClearSky()                           { s.sky = nil }

func (s *Static) Sky() (metadata.Sky, bool) {
	if s.sky == nil {
		return metadata.Sky{}, false
	}
	return *s.sky, true
}

// Demo builds the scene the engine renders when nothing else is loaded:
// a floor and a crate under a sun, one ambient probe, and a blue sky.
func Demo(width, height uint32) *Static {
	cam := NewCamera(math.DegToRad(45), float32(width)/float32(height), 0.1, 1000)
	cam.SetPosition(math.NewVec3(0, 2, 10))
	s := NewStatic("demo", cam)
	s.AddLight(metadata.Light{
		Name:      "sun",
		Type:      metadata.LightDirectional,
		Direction: math.NewVec3(-0.3, -1, -0.2),
		Colour:    math.NewVec3(1, 0.95, 0.9),
		Intensity: 2,
	})
	s.AddDrawable(metadata.Drawable{
		Name:      "floor",
		Transform: math.NewMat4Identity(),
		Albedo:    math.NewVec4Create(0.6, 0.6, 0.6, 1),
		Coverage:  0.4,
		Depth:     0.8,
	})
	s.AddDrawable(metadata.Drawable{
		Name:      "crate",
		Transform: math.NewMat4Translation(math.NewVec3(0, 0.5, 0)),
		Albedo:    math.NewVec4Create(0.7, 0.4, 0.2, 1),
		Coverage:  0.25,
		Depth:     0.5,
	})
	s.AddLightProbe(metadata.LightProbe{Name: "ambient", Ambient: math.NewVec3(0.1, 0.1, 0.12)})
	s.SetSky(metadata.Sky{Name: "clear", Colour: math.NewVec3(0.35, 0.55, 0.9), Intensity: 1})
	return s
}
