// Package mesh turns chunk voxels into indexed quads for the block pipeline.
package mesh

import (
	"encoding/binary"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Mesh is the geometry of one chunk in world space.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32 // relative to the first vertex of the mesh
	Min, Max mgl32.Vec3
}

func (m *Mesh) Empty() bool { return len(m.Indices) == 0 }

func (m *Mesh) Quads() int { return len(m.Vertices) / 4 }

// Validate panics when the quad layout is broken. Meshes are only ever
// produced internally so this is a logic bug, not bad input.
func (m *Mesh) Validate() {
	if len(m.Vertices)%4 != 0 {
		panic(fmt.Sprintf("mesh: %d vertices is not a whole number of quads", len(m.Vertices)))
	}
	if len(m.Indices)%6 != 0 {
		panic(fmt.Sprintf("mesh: %d indices is not a whole number of quads", len(m.Indices)))
	}
	if len(m.Indices)/6 != len(m.Vertices)/4 {
		panic(fmt.Sprintf("mesh: %d quads of indices for %d quads of vertices", len(m.Indices)/6, len(m.Vertices)/4))
	}
}

// VertexBytes packs the vertices into the GPU layout.
func (m *Mesh) VertexBytes() []byte {
	buf := make([]byte, len(m.Vertices)*VertexStride)
	for i, v := range m.Vertices {
		v.put(buf[i*VertexStride:])
	}
	return buf
}

func (m *Mesh) IndexBytes() []byte {
	buf := make([]byte, len(m.Indices)*4)
	for i, idx := range m.Indices {
		binary.LittleEndian.PutUint32(buf[i*4:], idx)
	}
	return buf
}

// Center is the middle of the mesh AABB.
func (m *Mesh) Center() mgl32.Vec3 {
	return m.Min.Add(m.Max).Mul(0.5)
}

func (m *Mesh) grow(p mgl32.Vec3) {
	if len(m.Vertices) == 0 {
		m.Min, m.Max = p, p
		return
	}
	for i := 0; i < 3; i++ {
		m.Min[i] = min(m.Min[i], p[i])
		m.Max[i] = max(m.Max[i], p[i])
	}
}
