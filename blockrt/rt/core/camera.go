package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxPitch keeps the camera just short of straight up or down.
const MaxPitch = math.Pi/2 - 0.01

type CameraState struct {
	Position    mgl32.Vec3
	Yaw         float32
	Pitch       float32
	Speed       float32
	Sensitivity float32
	FovDegrees  float32
	Near        float32
	Far         float32
	Aspect      float32
}

func NewCameraState() *CameraState {
	return &CameraState{
		Position:    mgl32.Vec3{8, 80, 8},
		Speed:       12.0,
		Sensitivity: 0.003,
		FovDegrees:  75,
		Near:        0.1,
		Far:         512,
		Aspect:      16.0 / 9.0,
	}
}

func (c *CameraState) GetForward() mgl32.Vec3 {
	// Y-up: yaw 0 looks down -Z
	return mgl32.Vec3{
		float32(math.Cos(float64(c.Pitch)) * math.Sin(float64(c.Yaw))),
		float32(math.Sin(float64(c.Pitch))),
		float32(-math.Cos(float64(c.Pitch)) * math.Cos(float64(c.Yaw))),
	}
}

func (c *CameraState) GetRight() mgl32.Vec3 {
	return mgl32.Vec3{
		float32(math.Cos(float64(c.Yaw))),
		0,
		float32(math.Sin(float64(c.Yaw))),
	}
}

func (c *CameraState) GetViewMatrix() mgl32.Mat4 {
	eye := c.Position
	return mgl32.LookAtV(eye, eye.Add(c.GetForward()), mgl32.Vec3{0, 1, 0})
}

// GetProjectionMatrix uses the GL clip convention (depth -1..1).
func (c *CameraState) GetProjectionMatrix() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FovDegrees), c.Aspect, c.Near, c.Far)
}

// ViewProj is the GL convention view-projection used for frustum extraction.
func (c *CameraState) ViewProj() mgl32.Mat4 {
	return c.GetProjectionMatrix().Mul4(c.GetViewMatrix())
}

// depthRemap maps GL clip depth -1..1 to the 0..1 range WebGPU expects.
var depthRemap = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// GPUViewProj is ViewProj with depth remapped for the GPU.
func (c *CameraState) GPUViewProj() mgl32.Mat4 {
	return depthRemap.Mul4(c.ViewProj())
}

// Rotate applies a mouse delta in pixels.
func (c *CameraState) Rotate(dx, dy float32) {
	c.Yaw += dx * c.Sensitivity
	c.Pitch -= dy * c.Sensitivity
	c.Pitch = mgl32.Clamp(c.Pitch, -MaxPitch, MaxPitch)
}

// Move translates the camera. forward and right move in the horizontal
// plane, up moves along world Y.
func (c *CameraState) Move(forward, right, up, dt float32) {
	f := c.GetForward()
	flat := mgl32.Vec3{f.X(), 0, f.Z()}
	if flat.Len() > 0 {
		flat = flat.Normalize()
	}
	step := c.Speed * dt
	c.Position = c.Position.
		Add(flat.Mul(forward * step)).
		Add(c.GetRight().Mul(right * step)).
		Add(mgl32.Vec3{0, up * step, 0})
}
