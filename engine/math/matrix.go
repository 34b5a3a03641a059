package math

import (
	m "math"
)

// Mat4 is a 4x4 matrix stored row by row. Translation lives in elements
// 12, 13 and 14.
type Mat4 struct {
	Data [16]float32
}

func NewMat4Identity() Mat4 {
	var out Mat4
	for i := 0; i < 16; i += 5 {
		out.Data[i] = 1
	}
	return out
}

// Mul returns mt * other.
func (mt Mat4) Mul(other Mat4) Mat4 {
	var out Mat4
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			var sum float32
			for i := 0; i < 4; i++ {
				sum += mt.Data[row*4+i] * other.Data[i*4+col]
			}
			out.Data[row*4+col] = sum
		}
	}
	return out
}

// NewMat4Perspective builds a right-handed projection with a vertical field
// of view of fovRadians.
func NewMat4Perspective(fovRadians, aspectRatio, nearClip, farClip float32) Mat4 {
	halfTanFov := float32(m.Tan(float64(fovRadians) / 2))
	depth := farClip - nearClip
	var out Mat4
	out.Data[0] = 1 / (aspectRatio * halfTanFov)
	out.Data[5] = 1 / halfTanFov
	out.Data[10] = -(farClip + nearClip) / depth
	out.Data[11] = -1
	out.Data[14] = -2 * farClip * nearClip / depth
	return out
}

func NewMat4Translation(position Vec3) Mat4 {
	out := NewMat4Identity()
	out.Data[12], out.Data[13], out.Data[14] = position.X, position.Y, position.Z
	return out
}

// rotation returns the rotation of angleRadians about the axis whose
// cosine terms sit at elements a and b.
func rotation(angleRadians float32, a, b int, flip bool) Mat4 {
	sin64, cos64 := m.Sincos(float64(angleRadians))
	c, s := float32(cos64), float32(sin64)
	if flip {
		s = -s
	}
	out := NewMat4Identity()
	out.Data[a*5] = c
	out.Data[b*5] = c
	out.Data[a*4+b] = s
	out.Data[b*4+a] = -s
	return out
}

// NewMat4EulerXYZ rotates about X, then Y, then Z.
func NewMat4EulerXYZ(xRadians, yRadians, zRadians float32) Mat4 {
	rx := rotation(xRadians, 1, 2, false)
	ry := rotation(yRadians, 0, 2, true)
	rz := rotation(zRadians, 0, 1, false)
	return rx.Mul(ry).Mul(rz)
}

// Inverse returns the inverse of mt using cofactor expansion. The result is
// undefined for singular matrices.
func (mt Mat4) Inverse() Mat4 {
	a := mt.Data

	s0 := a[0]*a[5] - a[4]*a[1]
	s1 := a[0]*a[6] - a[4]*a[2]
	s2 := a[0]*a[7] - a[4]*a[3]
	s3 := a[1]*a[6] - a[5]*a[2]
	s4 := a[1]*a[7] - a[5]*a[3]
	s5 := a[2]*a[7] - a[6]*a[3]

	c5 := a[10]*a[15] - a[14]*a[11]
	c4 := a[9]*a[15] - a[13]*a[11]
	c3 := a[9]*a[14] - a[13]*a[10]
	c2 := a[8]*a[15] - a[12]*a[11]
	c1 := a[8]*a[14] - a[12]*a[10]
	c0 := a[8]*a[13] - a[12]*a[9]

	det := s0*c5 - s1*c4 + s2*c3 + s3*c2 - s4*c1 + s5*c0
	inv := 1 / det

	var out Mat4
	o := &out.Data
	o[0] = (a[5]*c5 - a[6]*c4 + a[7]*c3) * inv
	o[1] = (-a[1]*c5 + a[2]*c4 - a[3]*c3) * inv
	o[2] = (a[13]*s5 - a[14]*s4 + a[15]*s3) * inv
	o[3] = (-a[9]*s5 + a[10]*s4 - a[11]*s3) * inv

	o[4] = (-a[4]*c5 + a[6]*c2 - a[7]*c1) * inv
	o[5] = (a[0]*c5 - a[2]*c2 + a[3]*c1) * inv
	o[6] = (-a[12]*s5 + a[14]*s2 - a[15]*s1) * inv
	o[7] = (a[8]*s5 - a[10]*s2 + a[11]*s1) * inv

	o[8] = (a[4]*c4 - a[5]*c2 + a[7]*c0) * inv
	o[9] = (-a[0]*c4 + a[1]*c2 - a[3]*c0) * inv
	o[10] = (a[12]*s4 - a[13]*s2 + a[15]*s0) * inv
	o[11] = (-a[8]*s4 + a[9]*s2 - a[11]*s0) * inv

	o[12] = (-a[4]*c3 + a[5]*c1 - a[6]*c0) * inv
	o[13] = (a[0]*c3 - a[1]*c1 + a[2]*c0) * inv
	o[14] = (-a[12]*s3 + a[13]*s1 - a[14]*s0) * inv
	o[15] = (a[8]*s3 - a[9]*s1 + a[10]*s0) * inv
	return out
}

// Forward is the -Z axis of the matrix.
func (mt Mat4) Forward() Vec3 {
	return Vec3{-mt.Data[2], -mt.Data[6], -mt.Data[10]}.Normalized()
}
