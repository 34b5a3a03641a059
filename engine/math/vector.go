package math

import (
	m "math"
)

// Epsilon is the smallest float32 e with 1+e != 1.
const Epsilon float32 = 1.192092896e-07

// Vec3 is a position, direction or linear RGB colour.
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 is a texel. Colours use X,Y,Z,W as R,G,B,A; single channel formats
// only use X.
type Vec4 struct {
	X, Y, Z, W float32
}

func NewVec3(x, y, z float32) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

func NewVec3Zero() Vec3 {
	return Vec3{}
}

func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

func (v Vec3) Sub(other Vec3) Vec3 {
	return v.Add(other.MulScalar(-1))
}

func (v Vec3) MulScalar(scalar float32) Vec3 {
	return Vec3{X: v.X * scalar, Y: v.Y * scalar, Z: v.Z * scalar}
}

func (v Vec3) Dot(other Vec3) float32 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

func (v Vec3) Length() float32 {
	return float32(m.Sqrt(float64(v.Dot(v))))
}

// Normalized returns a unit-length copy. Vectors shorter than Epsilon are
// returned unchanged.
func (v Vec3) Normalized() Vec3 {
	l := v.Length()
	if l < Epsilon {
		return v
	}
	return v.MulScalar(1 / l)
}

func NewVec4Create(x, y, z, w float32) Vec4 {
	return Vec4{X: x, Y: y, Z: z, W: w}
}

// Compare reports whether every channel of v is within tolerance of other.
func (v Vec4) Compare(other Vec4, tolerance float32) bool {
	near := func(a, b float32) bool {
		return float32(m.Abs(float64(a-b))) <= tolerance
	}
	return near(v.X, other.X) && near(v.Y, other.Y) && near(v.Z, other.Z) && near(v.W, other.W)
}

// DegToRad converts an angle in degrees to radians.
func DegToRad(degrees float32) float32 {
	return degrees * m.Pi / 180
}
