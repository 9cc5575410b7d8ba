package app

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/blockcraft/blockrt/rt/block"
	"github.com/gekko3d/blockcraft/blockrt/rt/world"
)

// ReachDistance is how far the player can break and place blocks.
const ReachDistance = 8

type RayHit struct {
	Block  [3]int // cell that was hit
	Before [3]int // empty cell the ray passed through just before Block
	Face   block.Face
	Kind   block.Block
	Dist   float32
}

// entryFace[axis][step>0] is the face a ray enters through when it crosses
// into a cell along axis.
var entryFace = [3][2]block.Face{
	{block.Right, block.Left},
	{block.Top, block.Bottom},
	{block.Front, block.Back},
}

// Raycast walks the voxel grid cell by cell from origin along dir and
// returns the first targetable block within maxDist. Liquids and air are
// passed through. The cell containing origin is never reported.
func Raycast(src world.BlockSource, origin, dir mgl32.Vec3, maxDist float32) (RayHit, bool) {
	if dir.Len() == 0 {
		return RayHit{}, false
	}
	dir = dir.Normalize()

	var cell, step [3]int
	var tMax, tDelta [3]float32
	for i := 0; i < 3; i++ {
		cell[i] = int(math.Floor(float64(origin[i])))
		switch {
		case dir[i] > 0:
			step[i] = 1
			tDelta[i] = 1 / dir[i]
			tMax[i] = (float32(cell[i]+1) - origin[i]) / dir[i]
		case dir[i] < 0:
			step[i] = -1
			tDelta[i] = -1 / dir[i]
			tMax[i] = (origin[i] - float32(cell[i])) / -dir[i]
		default:
			tDelta[i] = float32(math.Inf(1))
			tMax[i] = float32(math.Inf(1))
		}
	}

	for {
		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}
		t := tMax[axis]
		if t > maxDist {
			return RayHit{}, false
		}
		prev := cell
		cell[axis] += step[axis]
		tMax[axis] += tDelta[axis]

		if cell[1] < 0 && step[1] <= 0 {
			return RayHit{}, false
		}
		b := src.Block(cell[0], cell[1], cell[2])
		if !b.IsSolid() {
			continue
		}
		positive := 0
		if step[axis] > 0 {
			positive = 1
		}
		return RayHit{
			Block:  cell,
			Before: prev,
			Face:   entryFace[axis][positive],
			Kind:   b,
			Dist:   t,
		}, true
	}
}
