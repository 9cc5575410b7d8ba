package mesh

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/blockcraft/blockrt/rt/block"
	"github.com/gekko3d/blockcraft/blockrt/rt/light"
	"github.com/gekko3d/blockcraft/blockrt/rt/world"
)

type placed struct {
	x, y, z int
	b       block.Block
}

func buildWorld(blocks ...placed) *world.World {
	w := world.New()
	w.Put(world.NewChunk(world.Coord{}))
	for _, p := range blocks {
		w.SetBlock(p.x, p.y, p.z, p.b)
	}
	light.Propagate(w)
	return w
}

func facesOf(m *Mesh) map[block.Face]int {
	out := map[block.Face]int{}
	for q := 0; q < m.Quads(); q++ {
		_, f, _ := UnpackTexIndex(m.Vertices[q*4].TexIndex)
		out[f]++
	}
	return out
}

// boundaryQuads counts X facing quads lying in the plane x == px.
func boundaryQuads(m *Mesh, px float32) int {
	n := 0
	for q := 0; q < m.Quads(); q++ {
		vs := m.Vertices[q*4 : q*4+4]
		_, f, _ := UnpackTexIndex(vs[0].TexIndex)
		if f.Axis() != 0 {
			continue
		}
		if vs[0].Pos[0] == px && vs[2].Pos[0] == px {
			n++
		}
	}
	return n
}

func TestBuild_FaceCullingPairs(t *testing.T) {
	tests := []struct {
		name     string
		a, b     block.Block
		quads    int
		boundary int
	}{
		{"stone next to air", block.Stone, block.Air, 6, 1},
		{"stone next to stone", block.Stone, block.Stone, 10, 0},
		{"leaves next to air", block.Leaves, block.Air, 6, 1},
		{"leaves next to leaves", block.Leaves, block.Leaves, 10, 0},
		{"stone next to leaves", block.Stone, block.Leaves, 11, 1},
		{"water next to air", block.Water, block.Air, 6, 1},
		{"water next to water", block.Water, block.Water, 10, 0},
		{"stone next to water", block.Stone, block.Water, 11, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := buildWorld(placed{5, 20, 5, tc.a}, placed{6, 20, 5, tc.b})
			naive := Build(w, world.Coord{}, Options{})
			assert.Equal(t, tc.quads, naive.Quads())
			assert.Equal(t, tc.boundary, boundaryQuads(naive, 6))

			greedy := Build(w, world.Coord{}, Options{Greedy: true})
			assert.Equal(t, tc.boundary, boundaryQuads(greedy, 6))
		})
	}
}

func TestBuild_LeavesShowNeighbourFaces(t *testing.T) {
	// Stone behind leaves keeps its face, the leaves face against stone is hidden.
	w := buildWorld(placed{5, 20, 5, block.Leaves}, placed{6, 20, 5, block.Stone})
	m := Build(w, world.Coord{}, Options{})
	f := facesOf(m)
	assert.Equal(t, 2, f[block.Left], "outer leaves face and the stone face behind the leaves")
	assert.Equal(t, 1, f[block.Right], "outer stone face only")
	assert.Equal(t, 1, boundaryQuads(m, 6))
}

func TestBuild_CanopyHasNoInternalFaces(t *testing.T) {
	var blocks []placed
	for x := 5; x < 7; x++ {
		for y := 20; y < 22; y++ {
			for z := 5; z < 7; z++ {
				blocks = append(blocks, placed{x, y, z, block.Leaves})
			}
		}
	}
	w := buildWorld(blocks...)
	m := Build(w, world.Coord{}, Options{})
	assert.Equal(t, 6*4, m.Quads())
	assert.Zero(t, boundaryQuads(m, 6))
}

func TestBuild_WindingIsCounterClockwiseFromOutside(t *testing.T) {
	w := buildWorld(
		placed{5, 20, 5, block.Stone},
		placed{6, 20, 5, block.Grass},
		placed{5, 21, 5, block.Dirt},
		placed{5, 20, 6, block.Stone},
	)
	for _, greedy := range []bool{false, true} {
		m := Build(w, world.Coord{}, Options{Greedy: greedy})
		require.NotZero(t, m.Quads())
		seen := map[block.Face]bool{}
		for tri := 0; tri < len(m.Indices)/3; tri++ {
			i0, i1, i2 := m.Indices[tri*3], m.Indices[tri*3+1], m.Indices[tri*3+2]
			v0 := m.Vertices[i0].Pos
			v1 := m.Vertices[i1].Pos
			v2 := m.Vertices[i2].Pos
			_, f, _ := UnpackTexIndex(m.Vertices[i0].TexIndex)
			seen[f] = true
			n := mgl32.Vec3(f.Normal())
			assert.Greater(t, v1.Sub(v0).Cross(v2.Sub(v0)).Dot(n), float32(0), "face %s greedy=%v", f, greedy)
		}
		assert.Len(t, seen, 6)
	}
}

func TestBuild_QuadCornersFollowTangents(t *testing.T) {
	w := buildWorld(placed{5, 20, 5, block.Stone})
	m := Build(w, world.Coord{}, Options{})
	for q := 0; q < m.Quads(); q++ {
		vs := m.Vertices[q*4 : q*4+4]
		_, f, _ := UnpackTexIndex(vs[0].TexIndex)
		n := mgl32.Vec3(f.Normal())
		// The polygon itself is counter clockwise, independent of the triangulation.
		for i := 0; i < 4; i++ {
			a := vs[i].Pos
			b := vs[(i+1)%4].Pos
			c := vs[(i+2)%4].Pos
			assert.Greater(t, b.Sub(a).Cross(c.Sub(b)).Dot(n), float32(0), f.String())
		}
	}
}

func TestBuild_GreedySlab(t *testing.T) {
	var blocks []placed
	for x := 0; x < 4; x++ {
		for z := 0; z < 4; z++ {
			blocks = append(blocks, placed{x, 0, z, block.Stone})
		}
	}
	w := buildWorld(blocks...)

	naive := Build(w, world.Coord{}, Options{})
	assert.Equal(t, 16*2+4*4, naive.Quads())

	greedy := Build(w, world.Coord{}, Options{Greedy: true})
	f := facesOf(greedy)
	for _, face := range block.Faces {
		assert.Equal(t, 1, f[face], face.String())
	}
	assert.Equal(t, naive.Min, greedy.Min)
	assert.Equal(t, naive.Max, greedy.Max)
}

func TestBuild_GreedyKeepsBlockTypesApart(t *testing.T) {
	w := buildWorld(placed{3, 10, 3, block.Stone}, placed{4, 10, 3, block.Dirt})
	m := Build(w, world.Coord{}, Options{Greedy: true})
	assert.Equal(t, 2, facesOf(m)[block.Top])
}

type shade struct {
	ao    float32
	light float32
}

func quadKey(vs []Vertex) (block.Face, mgl32.Vec3) {
	_, f, _ := UnpackTexIndex(vs[0].TexIndex)
	mn := vs[0].Pos
	for _, v := range vs[1:] {
		for i := 0; i < 3; i++ {
			mn[i] = min(mn[i], v.Pos[i])
		}
	}
	return f, mn
}

func TestBuild_GreedyNeverMergesDifferentShading(t *testing.T) {
	var blocks []placed
	for x := 0; x < 8; x++ {
		for z := 0; z < 8; z++ {
			blocks = append(blocks, placed{x, 10, z, block.Stone})
		}
	}
	blocks = append(blocks,
		placed{3, 11, 3, block.Stone},
		placed{5, 11, 1, block.Torch},
		placed{1, 11, 6, block.Leaves},
	)
	// Roof to get a light gradient on the slab.
	for x := 0; x < 5; x++ {
		for z := 0; z < 8; z++ {
			blocks = append(blocks, placed{x, 13, z, block.Stone})
		}
	}
	w := buildWorld(blocks...)

	naive := Build(w, world.Coord{}, Options{})
	type cellKey struct {
		f   block.Face
		min mgl32.Vec3
	}
	cells := map[cellKey][4]shade{}
	for q := 0; q < naive.Quads(); q++ {
		vs := naive.Vertices[q*4 : q*4+4]
		f, mn := quadKey(vs)
		var s [4]shade
		for i, v := range vs {
			s[i] = shade{v.AO, v.Light}
		}
		cells[cellKey{f, mn}] = s
	}

	greedy := Build(w, world.Coord{}, Options{Greedy: true})
	assert.Less(t, greedy.Quads(), naive.Quads())
	assert.Greater(t, facesOf(greedy)[block.Top], 1)

	covered := 0
	for q := 0; q < greedy.Quads(); q++ {
		vs := greedy.Vertices[q*4 : q*4+4]
		f, mn := quadKey(vs)
		mx := vs[0].Pos
		for _, v := range vs[1:] {
			for i := 0; i < 3; i++ {
				mx[i] = max(mx[i], v.Pos[i])
			}
		}
		u, v := f.Tangents()
		var ref *[4]shade
		for a := mn[u]; a < mx[u]; a++ {
			for b := mn[v]; b < mx[v]; b++ {
				p := mn
				p[u], p[v] = a, b
				s, ok := cells[cellKey{f, p}]
				require.True(t, ok, "greedy quad covers a cell without a naive face")
				if ref == nil {
					ref = &s
				} else {
					assert.Equal(t, *ref, s, "merged cells differ in shading")
				}
				covered++
			}
		}
	}
	assert.Equal(t, naive.Quads(), covered)
}

func TestBuild_ChunkBorderUsesNeighbour(t *testing.T) {
	w := buildWorld(placed{0, 20, 0, block.Stone})
	m := Build(w, world.Coord{}, Options{})
	assert.Equal(t, 1, facesOf(m)[block.Left], "unloaded neighbour counts as air")

	west := world.NewChunk(world.Coord{X: -1})
	west.SetBlock(15, 20, 0, block.Stone)
	w.Put(west)
	light.Propagate(w)
	m = Build(w, world.Coord{}, Options{})
	assert.Equal(t, 0, facesOf(m)[block.Left])
}

func TestBuild_EmptyChunk(t *testing.T) {
	w := buildWorld()
	m := Build(w, world.Coord{}, Options{Greedy: true})
	assert.True(t, m.Empty())
}

func TestBuild_WorldSpacePositions(t *testing.T) {
	w := world.New()
	c := world.Coord{X: 2, Z: -1}
	w.Put(world.NewChunk(c))
	w.SetBlock(33, 5, -16, block.Stone)
	light.Propagate(w)
	m := Build(w, c, Options{})
	assert.Equal(t, mgl32.Vec3{33, 5, -16}, m.Min)
	assert.Equal(t, mgl32.Vec3{34, 6, -15}, m.Max)
	assert.Equal(t, mgl32.Vec3{33.5, 5.5, -15.5}, m.Center())
}

func TestValidate_Panics(t *testing.T) {
	m := &Mesh{Vertices: make([]Vertex, 3)}
	assert.Panics(t, m.Validate)
	m = &Mesh{Vertices: make([]Vertex, 4), Indices: make([]uint32, 5)}
	assert.Panics(t, m.Validate)
	m = &Mesh{Vertices: make([]Vertex, 4), Indices: make([]uint32, 6)}
	assert.NotPanics(t, m.Validate)
}

func TestVertexBytes(t *testing.T) {
	m := &Mesh{Vertices: []Vertex{{
		Pos:      mgl32.Vec3{1, 2, 3},
		UV:       [2]float32{4, 0.5},
		AO:       0.75,
		TexIndex: PackTexIndex(block.TileWater, block.Back, true),
		Light:    0.25,
	}}}
	buf := m.VertexBytes()
	require.Len(t, buf, VertexStride)
	assert.Equal(t, float32(2), math.Float32frombits(binary.LittleEndian.Uint32(buf[OffsetPos+4:])))
	assert.Equal(t, float32(0.75), math.Float32frombits(binary.LittleEndian.Uint32(buf[OffsetAO:])))
	tile, f, liquid := UnpackTexIndex(binary.LittleEndian.Uint32(buf[OffsetTexIndex:]))
	assert.Equal(t, block.TileWater, tile)
	assert.Equal(t, block.Back, f)
	assert.True(t, liquid)
	assert.Equal(t, float32(0.25), math.Float32frombits(binary.LittleEndian.Uint32(buf[OffsetLight:])))
}

func TestAtlasUV(t *testing.T) {
	u0, v0, size := AtlasTileRect(33)
	assert.InDelta(t, 1.0/32, u0, 1e-7)
	assert.InDelta(t, 1.0/32, v0, 1e-7)
	assert.InDelta(t, 1.0/32, size, 1e-7)

	// Repeat count 2.25 wraps to a quarter of the tile.
	uv := AtlasUV(0, [2]float32{2.25, 0.5}, 16)
	assert.InDelta(t, 0.25/32, uv[0], 1e-6)
	assert.InDelta(t, 0.5/32, uv[1], 1e-6)

	// Integer coordinates clamp half a texel inside the tile.
	uv = AtlasUV(1, [2]float32{3, 0.9999}, 16)
	assert.InDelta(t, (1+0.5/16)/32, uv[0], 1e-6)
	assert.InDelta(t, (1-0.5/16)/32, uv[1], 1e-6)
}
