package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 1, Clamp(0, 1, 4))
	assert.Equal(t, 4, Clamp(9, 1, 4))
	assert.Equal(t, uint32(3), Clamp(uint32(3), 1, 4))
	assert.Equal(t, float32(1), Saturate(float32(1.5)))
	assert.InDelta(t, 0.75, Lerp(0.5, 1.0, 0.5), 1e-9)
}

func TestMat4MulIdentity(t *testing.T) {
	tr := NewMat4Translation(NewVec3(1, 2, 3))
	assert.Equal(t, tr, tr.Mul(NewMat4Identity()))
	assert.Equal(t, tr, NewMat4Identity().Mul(tr))
}

func TestNormalized(t *testing.T) {
	v := NewVec3(3, 0, 4).Normalized()
	assert.InDelta(t, 1.0, v.Length(), 1e-6)
	assert.Equal(t, NewVec3Zero(), NewVec3Zero().Normalized())
}

func TestMat4Inverse(t *testing.T) {
	m := NewMat4EulerXYZ(0.3, -0.7, 1.1).Mul(NewMat4Translation(NewVec3(4, -2, 9)))
	id := m.Mul(m.Inverse())
	want := NewMat4Identity()
	for i := range want.Data {
		assert.InDelta(t, want.Data[i], id.Data[i], 1e-4, "element %d", i)
	}
}

func TestEulerRotatesAxes(t *testing.T) {
	quarter := DegToRad(90)
	rz := NewMat4EulerXYZ(0, 0, quarter)
	assert.InDelta(t, 0, rz.Data[0], 1e-6)
	assert.InDelta(t, 1, rz.Data[1], 1e-6)
	assert.InDelta(t, -1, rz.Data[4], 1e-6)
	assert.Equal(t, float32(1), rz.Data[10])

	ry := NewMat4EulerXYZ(0, quarter, 0)
	assert.InDelta(t, -1, ry.Data[2], 1e-6)
	assert.InDelta(t, 1, ry.Data[8], 1e-6)
	assert.Equal(t, float32(1), ry.Data[5])
}

func TestVec4Compare(t *testing.T) {
	a := NewVec4Create(0.5, 0.5, 0.5, 1)
	assert.True(t, a.Compare(NewVec4Create(0.51, 0.49, 0.5, 1), 0.02))
	assert.False(t, a.Compare(NewVec4Create(0.6, 0.5, 0.5, 1), 0.02))
	assert.Equal(t, NewVec3(1, 1, 1), NewVec3(3, 2, 1).Sub(NewVec3(2, 1, 0)))
}
