package metadata

import (
	gomath "math"

	"github.com/spaghettifunk/hybrid/engine/math"
)

func pow(x, y float32) float32 {
	return float32(gomath.Pow(float64(x), float64(y)))
}

// Camera is the read-only view of the camera collaborator.
type Camera interface {
	View() math.Mat4
	Projection() math.Mat4
	DepthRange() (near, far float32)
	Position() math.Vec3
}

type LightType uint8

const (
	LightDirectional LightType = iota
	LightPoint
)

type Light struct {
	Name      string
	Type      LightType
	Direction math.Vec3
	Position  math.Vec3
	Colour    math.Vec3
	Intensity float32
}

type Drawable struct {
	Name      string
	Transform math.Mat4
	Albedo    math.Vec4
	// Coverage is the fraction of the screen, from the top, the drawable fills.
	Coverage float32
	Depth    float32
}

type LightProbe struct {
	Name     string
	Position math.Vec3
	Ambient  math.Vec3
}

// Scene is provided by the scene-loading collaborator and only read during a frame.
type Scene interface {
	ActiveCamera() Camera
	Lights() []Light
	Drawables() []Drawable
	LightProbes() []LightProbe
}

type Sky struct {
	Name      string
	Colour    math.Vec3
	Intensity float32
}

// SkyProvider is implemented by scenes that carry a sky asset.
type SkyProvider interface {
	Sky() (Sky, bool)
}
