package mesh

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/blockcraft/blockrt/rt/block"
)

// VertexStride is the size in bytes of one vertex in the GPU vertex buffer:
// pos vec3<f32>, uv vec2<f32>, ao f32, tex_index u32, light f32.
const VertexStride = 32

// Vertex attribute offsets within the stride.
const (
	OffsetPos      = 0
	OffsetUV       = 12
	OffsetAO       = 20
	OffsetTexIndex = 24
	OffsetLight    = 28
)

// TexIndex bit layout: tile in bits 0-15, face in bits 16-18, liquid flag in bit 19.
const (
	texTileMask   = 0xffff
	texFaceShift  = 16
	texFaceMask   = 0x7
	texLiquidFlag = 1 << 19
)

type Vertex struct {
	Pos      mgl32.Vec3
	UV       [2]float32 // repeat counts, wrapped in the shader
	AO       float32
	TexIndex uint32
	Light    float32
}

// PackTexIndex encodes an atlas tile together with the face and material tag.
func PackTexIndex(tile uint16, f block.Face, liquid bool) uint32 {
	v := uint32(tile) | uint32(f)<<texFaceShift
	if liquid {
		v |= texLiquidFlag
	}
	return v
}

// UnpackTexIndex is the inverse of PackTexIndex.
func UnpackTexIndex(v uint32) (tile uint16, f block.Face, liquid bool) {
	return uint16(v & texTileMask), block.Face(v >> texFaceShift & texFaceMask), v&texLiquidFlag != 0
}

func (v Vertex) put(buf []byte) {
	le := binary.LittleEndian
	le.PutUint32(buf[0:], math.Float32bits(v.Pos[0]))
	le.PutUint32(buf[4:], math.Float32bits(v.Pos[1]))
	le.PutUint32(buf[8:], math.Float32bits(v.Pos[2]))
	le.PutUint32(buf[12:], math.Float32bits(v.UV[0]))
	le.PutUint32(buf[16:], math.Float32bits(v.UV[1]))
	le.PutUint32(buf[20:], math.Float32bits(v.AO))
	le.PutUint32(buf[24:], v.TexIndex)
	le.PutUint32(buf[28:], math.Float32bits(v.Light))
}

// AtlasTileRect returns the atlas-space UV rectangle of tile t in an
// AtlasGrid x AtlasGrid atlas.
func AtlasTileRect(t uint16) (u0, v0, size float32) {
	size = 1.0 / block.AtlasGrid
	u0 = float32(int(t)%block.AtlasGrid) * size
	v0 = float32(int(t)/block.AtlasGrid) * size
	return u0, v0, size
}

// AtlasUV maps a repeat count coordinate into the atlas. The fractional part
// is clamped half a texel away from the tile edge so minified samples never
// bleed into neighbouring tiles. tilePixels is the tile edge in texels.
func AtlasUV(t uint16, uv [2]float32, tilePixels int) [2]float32 {
	u0, v0, size := AtlasTileRect(t)
	half := 0.5 / float32(tilePixels)
	fu := clamp(fract(uv[0]), half, 1-half)
	fv := clamp(fract(uv[1]), half, 1-half)
	return [2]float32{u0 + fu*size, v0 + fv*size}
}

func fract(x float32) float32 {
	return x - float32(math.Floor(float64(x)))
}

func clamp(x, lo, hi float32) float32 {
	return min(max(x, lo), hi)
}
