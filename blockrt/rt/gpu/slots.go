package gpu

import (
	"fmt"

	"github.com/gekko3d/blockcraft/blockrt/rt/stream"
)

type slot struct {
	vertexOff, vertexCount uint32
	indexOff, indexCount   uint32
}

// MeshSlots tracks where each uploaded chunk mesh lives inside the shared
// vertex and index buffers.
type MeshSlots struct {
	Vertices *Arena
	Indices  *Arena
	live     map[uint64]slot
	nextID   uint64
}

func NewMeshSlots(vertexCap, indexCap uint32) *MeshSlots {
	return &MeshSlots{
		Vertices: NewArena(vertexCap),
		Indices:  NewArena(indexCap),
		live:     make(map[uint64]slot),
	}
}

// Reserve claims room for a mesh. On failure nothing stays allocated.
func (s *MeshSlots) Reserve(vertexCount, indexCount uint32) (stream.GPUMesh, error) {
	vOff, err := s.Vertices.Alloc(vertexCount)
	if err != nil {
		return stream.GPUMesh{}, fmt.Errorf("vertices: %w", err)
	}
	iOff, err := s.Indices.Alloc(indexCount)
	if err != nil {
		s.Vertices.Free(vOff)
		return stream.GPUMesh{}, fmt.Errorf("indices: %w", err)
	}
	s.nextID++
	s.live[s.nextID] = slot{vOff, vertexCount, iOff, indexCount}
	return stream.GPUMesh{
		ID:          s.nextID,
		BaseVertex:  int32(vOff),
		FirstIndex:  iOff,
		IndexCount:  indexCount,
		VertexCount: vertexCount,
	}, nil
}

// Release frees the ranges of h. It reports false for handles that are not
// live, which includes releasing the same handle twice.
func (s *MeshSlots) Release(h stream.GPUMesh) bool {
	sl, ok := s.live[h.ID]
	if !ok {
		return false
	}
	delete(s.live, h.ID)
	s.Vertices.Free(sl.vertexOff)
	s.Indices.Free(sl.indexOff)
	return true
}

func (s *MeshSlots) Live() int { return len(s.live) }
