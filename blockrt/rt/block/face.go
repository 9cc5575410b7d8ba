package block

import "fmt"

// Face is one of the six axis aligned directions of a block.
type Face uint8

const (
	Top    Face = iota // +Y
	Bottom             // -Y
	Left               // -X
	Right              // +X
	Front              // +Z
	Back               // -Z
)

// Faces lists every face in enum order.
var Faces = [6]Face{Top, Bottom, Left, Right, Front, Back}

type faceDef struct {
	name   string
	offset [3]int
	// Tangent axes u,v with u x v == normal. Corners walk (0,0) (1,0) (1,1) (0,1)
	// in (u,v) which is counter clockwise seen from outside.
	u, v int
}

var faceDefs = [6]faceDef{
	Top:    {"top", [3]int{0, 1, 0}, 2, 0},
	Bottom: {"bottom", [3]int{0, -1, 0}, 0, 2},
	Left:   {"left", [3]int{-1, 0, 0}, 2, 1},
	Right:  {"right", [3]int{1, 0, 0}, 1, 2},
	Front:  {"front", [3]int{0, 0, 1}, 0, 1},
	Back:   {"back", [3]int{0, 0, -1}, 1, 0},
}

func (f Face) def() *faceDef {
	if f > Back {
		panic(fmt.Sprintf("block: invalid face %d", uint8(f)))
	}
	return &faceDefs[f]
}

func (f Face) String() string { return f.def().name }

// Offset is the integer step towards the neighbour across this face.
func (f Face) Offset() (dx, dy, dz int) {
	o := f.def().offset
	return o[0], o[1], o[2]
}

func (f Face) Normal() [3]float32 {
	o := f.def().offset
	return [3]float32{float32(o[0]), float32(o[1]), float32(o[2])}
}

// Axis returns the index (0=X,1=Y,2=Z) of the face normal axis.
func (f Face) Axis() int {
	o := f.def().offset
	for i := range o {
		if o[i] != 0 {
			return i
		}
	}
	return 0
}

// Positive reports whether the face points along the positive axis.
func (f Face) Positive() bool {
	o := f.def().offset
	return o[0]+o[1]+o[2] > 0
}

// Tangents returns the axes spanning the face plane, ordered so that
// u x v points along the outward normal.
func (f Face) Tangents() (u, v int) {
	d := f.def()
	return d.u, d.v
}

func (f Face) Opposite() Face {
	switch f {
	case Top:
		return Bottom
	case Bottom:
		return Top
	case Left:
		return Right
	case Right:
		return Left
	case Front:
		return Back
	case Back:
		return Front
	}
	panic(fmt.Sprintf("block: invalid face %d", uint8(f)))
}
