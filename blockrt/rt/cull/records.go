package cull

import (
	"encoding/binary"
	"math"
	"sync"
	"sync/atomic"
)

// Sizes of the GPU records in bytes.
const (
	ChunkCullDataSize       = 32
	DrawIndexedIndirectSize = 20
	// ParamsSize is 6 planes plus the record count, padded to 16 bytes.
	ParamsSize = 6*16 + 16
	// WorkgroupSize must match @workgroup_size in the cull shader.
	WorkgroupSize = 64
)

// ChunkCullData is the per chunk input of the cull pass.
type ChunkCullData struct {
	Sphere     Sphere
	IndexCount uint32
	BaseVertex int32
	BaseIndex  uint32
}

// Put writes the record in the layout of the cull shader:
// vec4 center_radius, u32 index_count, i32 base_vertex, u32 base_index, u32 pad.
func (d ChunkCullData) Put(buf []byte) {
	le := binary.LittleEndian
	le.PutUint32(buf[0:], math.Float32bits(d.Sphere.Center[0]))
	le.PutUint32(buf[4:], math.Float32bits(d.Sphere.Center[1]))
	le.PutUint32(buf[8:], math.Float32bits(d.Sphere.Center[2]))
	le.PutUint32(buf[12:], math.Float32bits(d.Sphere.Radius))
	le.PutUint32(buf[16:], d.IndexCount)
	le.PutUint32(buf[20:], uint32(d.BaseVertex))
	le.PutUint32(buf[24:], d.BaseIndex)
	le.PutUint32(buf[28:], 0)
}

// DrawIndexedIndirect matches the layout consumed by indexed indirect draws.
type DrawIndexedIndirect struct {
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	BaseVertex    int32
	FirstInstance uint32
}

func (d DrawIndexedIndirect) Put(buf []byte) {
	le := binary.LittleEndian
	le.PutUint32(buf[0:], d.IndexCount)
	le.PutUint32(buf[4:], d.InstanceCount)
	le.PutUint32(buf[8:], d.FirstIndex)
	le.PutUint32(buf[12:], uint32(d.BaseVertex))
	le.PutUint32(buf[16:], d.FirstInstance)
}

func ReadDrawIndexedIndirect(buf []byte) DrawIndexedIndirect {
	le := binary.LittleEndian
	return DrawIndexedIndirect{
		IndexCount:    le.Uint32(buf[0:]),
		InstanceCount: le.Uint32(buf[4:]),
		FirstIndex:    le.Uint32(buf[8:]),
		BaseVertex:    int32(le.Uint32(buf[12:])),
		FirstInstance: le.Uint32(buf[16:]),
	}
}

// Command is the draw a visible record turns into.
func (d ChunkCullData) Command() DrawIndexedIndirect {
	return DrawIndexedIndirect{
		IndexCount:    d.IndexCount,
		InstanceCount: 1,
		FirstIndex:    d.BaseIndex,
		BaseVertex:    d.BaseVertex,
	}
}

// ParamsBytes packs the cull uniform: planes then the record count.
func ParamsBytes(planes Frustum, count uint32) []byte {
	buf := make([]byte, ParamsSize)
	for i, p := range planes {
		for j := 0; j < 4; j++ {
			binary.LittleEndian.PutUint32(buf[i*16+j*4:], math.Float32bits(p[j]))
		}
	}
	binary.LittleEndian.PutUint32(buf[96:], count)
	return buf
}

// FilterVisible is the CPU path: it returns the indices of visible records
// in input order.
func FilterVisible(records []ChunkCullData, planes Frustum) []int {
	out := make([]int, 0, len(records))
	for i, r := range records {
		if SphereInFrustum(r.Sphere, planes) {
			out = append(out, i)
		}
	}
	return out
}

// AppendVisible runs the cull shader's algorithm on the CPU: records are
// tested in parallel workgroups and every visible one claims a slot with a
// single atomic add. The order of the result is unspecified.
func AppendVisible(records []ChunkCullData, planes Frustum) []DrawIndexedIndirect {
	out := make([]DrawIndexedIndirect, len(records))
	var counter atomic.Uint32
	var wg sync.WaitGroup
	for start := 0; start < len(records); start += WorkgroupSize {
		end := min(start+WorkgroupSize, len(records))
		wg.Add(1)
		go func(group []ChunkCullData) {
			defer wg.Done()
			for _, r := range group {
				if !SphereInFrustum(r.Sphere, planes) {
					continue
				}
				slot := counter.Add(1) - 1
				out[slot] = r.Command()
			}
		}(records[start:end])
	}
	wg.Wait()
	return out[:counter.Load()]
}
