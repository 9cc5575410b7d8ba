package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestCamera_Basis(t *testing.T) {
	c := NewCameraState()
	f := c.GetForward()
	assert.InDelta(t, 0, f.X(), 1e-6)
	assert.InDelta(t, -1, f.Z(), 1e-6)

	r := c.GetRight()
	cross := f.Cross(mgl32.Vec3{0, 1, 0})
	assert.InDelta(t, cross.X(), r.X(), 1e-6)
	assert.InDelta(t, cross.Z(), r.Z(), 1e-6)
}

func TestCamera_GPUDepthRange(t *testing.T) {
	c := NewCameraState()
	c.Position = mgl32.Vec3{0, 0, 0}
	c.Near, c.Far = 1, 100
	vp := c.GPUViewProj()

	project := func(p mgl32.Vec3) float32 {
		clip := vp.Mul4x1(p.Vec4(1))
		return clip.Z() / clip.W()
	}
	assert.InDelta(t, 0, project(mgl32.Vec3{0, 0, -1}), 1e-5)
	assert.InDelta(t, 1, project(mgl32.Vec3{0, 0, -100}), 1e-4)

	glClip := c.ViewProj().Mul4x1(mgl32.Vec4{0, 0, -1, 1})
	assert.InDelta(t, -1, glClip.Z()/glClip.W(), 1e-5)
}

func TestCamera_RotateClampsPitch(t *testing.T) {
	c := NewCameraState()
	c.Rotate(0, -1e6)
	assert.InDelta(t, MaxPitch, c.Pitch, 1e-6)
	c.Rotate(0, 1e6)
	assert.InDelta(t, -MaxPitch, c.Pitch, 1e-6)
}

func TestCamera_MoveStaysLevel(t *testing.T) {
	c := NewCameraState()
	c.Pitch = 1.0
	start := c.Position
	c.Move(1, 0, 0, 1)
	assert.InDelta(t, start.Y(), c.Position.Y(), 1e-5)
	assert.InDelta(t, start.Z()-c.Speed, c.Position.Z(), 1e-4)
}
