// Package cull decides which chunk meshes intersect the view frustum.
package cull

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Frustum holds normalized planes (xyz normal pointing inwards, w distance)
// in the order Left, Right, Bottom, Top, Near, Far.
type Frustum [6]mgl32.Vec4

// ExtractFrustum extracts the 6 planes of the frustum from the view-projection matrix.
// Planes are built from matrix rows (At(row, col)): row3 ± row0, row3 ± row1, row3 ± row2.
// Plane is Ax + By + Cz + D = 0.
func ExtractFrustum(vp mgl32.Mat4) Frustum {
	row := func(r int) mgl32.Vec4 {
		return mgl32.Vec4{vp.At(r, 0), vp.At(r, 1), vp.At(r, 2), vp.At(r, 3)}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	planes := Frustum{
		r3.Add(r0), // Left
		r3.Sub(r0), // Right
		r3.Add(r1), // Bottom
		r3.Sub(r1), // Top
		r3.Add(r2), // Near (GL depth -1..1)
		r3.Sub(r2), // Far
	}

	for i := range planes {
		p := planes[i]
		length := float32(math.Sqrt(float64(p[0]*p[0] + p[1]*p[1] + p[2]*p[2])))
		if length > 0 {
			planes[i] = p.Mul(1.0 / length)
		}
	}
	return planes
}

// Sphere is a world space bounding sphere.
type Sphere struct {
	Center mgl32.Vec3
	Radius float32
}

// BoundingSphere encloses the AABB [lo,hi]; the radius is the half diagonal.
func BoundingSphere(lo, hi mgl32.Vec3) Sphere {
	return Sphere{
		Center: lo.Add(hi).Mul(0.5),
		Radius: hi.Sub(lo).Len() * 0.5,
	}
}

// SphereInFrustum reports whether the sphere is on the inner side of every
// plane within its radius. It stops at the first plane that rejects it.
func SphereInFrustum(s Sphere, planes Frustum) bool {
	for _, p := range planes {
		if p.Vec3().Dot(s.Center)+p.W() < -s.Radius {
			return false
		}
	}
	return true
}

// AABBInFrustum tests the corner of the box furthest along each plane normal.
func AABBInFrustum(aabb [2]mgl32.Vec3, planes Frustum) bool {
	for _, p := range planes {
		var v mgl32.Vec3
		for i := 0; i < 3; i++ {
			if p[i] >= 0 {
				v[i] = aabb[1][i]
			} else {
				v[i] = aabb[0][i]
			}
		}
		if p.Vec3().Dot(v)+p.W() < 0 {
			return false
		}
	}
	return true
}
