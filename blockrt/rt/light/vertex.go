package light

import (
	"github.com/gekko3d/blockcraft/blockrt/rt/block"
	"github.com/gekko3d/blockcraft/blockrt/rt/world"
)

// AOLevels maps an ambient occlusion level (0 = fully occluded) to a shade factor.
var AOLevels = [4]float32{0.2, 0.5, 0.75, 1.0}

// CornerUV lists the face corners in emission order as (u,v) steps along the
// face tangents. The order is counter clockwise seen from outside.
var CornerUV = [4][2]int{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

// Sample is the shading of one face corner.
type Sample struct {
	Light float32 // 0..1
	AO    uint8   // index into AOLevels
}

// SampleVertex shades corner (0..3) of the face of the block at world (x,y,z).
//
// Four cells share the vertex in the layer in front of the face: the cell
// directly in front, two side cells and the diagonal corner. Light is the
// average over all four with opaque cells scoring 0. When both sides are
// opaque the corner scores 0 too so light cannot leak diagonally through a
// wall.
func SampleVertex(src world.BlockSource, x, y, z int, f block.Face, corner int) Sample {
	dx, dy, dz := f.Offset()
	front := [3]int{x + dx, y + dy, z + dz}

	u, v := f.Tangents()
	cu := CornerUV[corner]
	var du, dv [3]int
	du[u] = cu[0]*2 - 1
	dv[v] = cu[1]*2 - 1

	s1 := add(front, du)
	s2 := add(front, dv)
	c := add(s1, dv)

	side1 := src.Block(s1[0], s1[1], s1[2]).IsOpaque()
	side2 := src.Block(s2[0], s2[1], s2[2]).IsOpaque()
	cornerOpaque := (side1 && side2) || src.Block(c[0], c[1], c[2]).IsOpaque()

	level := func(p [3]int) float32 {
		if src.Block(p[0], p[1], p[2]).IsOpaque() {
			return 0
		}
		return float32(src.Light(p[0], p[1], p[2]).Max()) / block.MaxLight
	}
	sum := level(front)
	if !side1 {
		sum += level(s1)
	}
	if !side2 {
		sum += level(s2)
	}
	if !cornerOpaque {
		sum += level(c)
	}

	var ao uint8
	if side1 && side2 {
		ao = 0
	} else {
		occ := uint8(0)
		if side1 {
			occ++
		}
		if side2 {
			occ++
		}
		if cornerOpaque {
			occ++
		}
		ao = 3 - occ
	}

	return Sample{Light: sum / 4, AO: ao}
}

func add(a, b [3]int) [3]int { return [3]int{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
