package scene

import (
	"github.com/spaghettifunk/hybrid/engine/math"
	"github.com/spaghettifunk/hybrid/engine/renderer/metadata"
)

/**
 * @brief A perspective camera. The view matrix is rebuilt lazily
 * whenever the position or rotation changed.
 */
type Camera struct {
	position      math.Vec3
	eulerRotation math.Vec3
	isDirty       bool
	viewMatrix    math.Mat4

	fov    float32
	aspect float32
	near   float32
	far    float32

	jitter      metadata.JitterPattern
	jitterFrame uint64
}

const DefaultCameraName string = "default"

var _ metadata.Jitterable = (*Camera)(nil)

func NewCamera(fovRadians, aspect, near, far float32) *Camera {
	c := &Camera{fov: fovRadians, aspect: aspect, near: near, far: far}
	c.Reset()
	return c
}

func (c *Camera) Reset() {
	c.eulerRotation = math.NewVec3Zero()
	c.position = math.NewVec3Zero()
	c.isDirty = false
	c.viewMatrix = math.NewMat4Identity()
}

func (c *Camera) Position() math.Vec3 {
	return c.position
}

func (c *Camera) SetPosition(position math.Vec3) {
	c.position = position
	c.isDirty = true
}

func (c *Camera) SetEulerRotation(rotation math.Vec3) {
	c.eulerRotation = rotation
	c.isDirty = true
}

func (c *Camera) View() math.Mat4 {
	if c.isDirty {
		rotation := math.NewMat4EulerXYZ(c.eulerRotation.X, c.eulerRotation.Y, c.eulerRotation.Z)
		translation := math.NewMat4Translation(c.position)
		c.viewMatrix = rotation.Mul(translation).Inverse()
		c.isDirty = false
	}
	return c.viewMatrix
}

// Projection includes the jitter offset of the current frame, if any.
func (c *Camera) Projection() math.Mat4 {
	p := math.NewMat4Perspective(c.fov, c.aspect, c.near, c.far)
	if c.jitter != nil {
		// one target pixel spans 2/width in NDC
		x, y := c.jitter.Offset(c.jitterFrame)
		p.Data[8] -= 2 * x
		p.Data[9] -= 2 * y
	}
	return p
}

func (c *Camera) SetJitter(pattern metadata.JitterPattern) {
	c.jitter = pattern
}

func (c *Camera) SetJitterFrame(frame uint64) {
	c.jitterFrame = frame
}

func (c *Camera) Jitter() metadata.JitterPattern {
	return c.jitter
}

func (c *Camera) DepthRange() (near, far float32) {
	return c.near, c.far
}

// SetAspect follows the render target size after a resize.
func (c *Camera) SetAspect(width, height uint32) {
	if height == 0 {
		return
	}
	c.aspect = float32(width) / float32(height)
}

func (c *Camera) Forward() math.Vec3 {
	return c.View().Forward()
}

func (c *Camera) MoveForward(amount float32) {
	c.position = c.position.Add(c.Forward().MulScalar(amount))
	c.isDirty = true
}

func (c *Camera) Yaw(amount float32) {
	c.eulerRotation.Y += amount
	c.isDirty = true
}

func (c *Camera) Pitch(amount float32) {
	c.eulerRotation.X += amount

	// Clamp to avoid Gimbal lock.
	limit := math.DegToRad(89)
	c.eulerRotation.X = math.Clamp(c.eulerRotation.X, -limit, limit)

	c.isDirty = true
}
