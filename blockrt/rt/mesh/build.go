package mesh

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/blockcraft/blockrt/rt/block"
	"github.com/gekko3d/blockcraft/blockrt/rt/light"
	"github.com/gekko3d/blockcraft/blockrt/rt/world"
)

type Options struct {
	// Greedy merges coplanar faces with identical block and shading.
	Greedy bool
}

var chunkSize = [3]int{world.SizeX, world.Height, world.SizeZ}

// Build meshes chunk c. Neighbour cells across the chunk border are read
// through src, which must already carry up to date light.
func Build(src world.BlockSource, c world.Coord, opts Options) *Mesh {
	m := &Mesh{
		Vertices: make([]Vertex, 0, 4096),
		Indices:  make([]uint32, 0, 6144),
	}
	ox, oz := c.Origin()
	origin := [3]int{ox, 0, oz}
	if opts.Greedy {
		for _, f := range block.Faces {
			buildGreedy(m, src, origin, f)
		}
	} else {
		buildNaive(m, src, origin)
	}
	m.Validate()
	return m
}

type faceCell struct {
	b       block.Block
	samples [4]light.Sample
}

// visibleFace returns the face of the cell at world position p, if drawn.
func visibleFace(src world.BlockSource, p [3]int, f block.Face) (faceCell, bool) {
	b := src.Block(p[0], p[1], p[2])
	if !b.HasGeometry() {
		return faceCell{}, false
	}
	dx, dy, dz := f.Offset()
	if !b.ShowsFace(src.Block(p[0]+dx, p[1]+dy, p[2]+dz)) {
		return faceCell{}, false
	}
	fc := faceCell{b: b}
	for i := range fc.samples {
		fc.samples[i] = light.SampleVertex(src, p[0], p[1], p[2], f, i)
	}
	return fc, true
}

func buildNaive(m *Mesh, src world.BlockSource, origin [3]int) {
	for y := 0; y < world.Height; y++ {
		for z := 0; z < world.SizeZ; z++ {
			for x := 0; x < world.SizeX; x++ {
				p := [3]int{origin[0] + x, y, origin[2] + z}
				for _, f := range block.Faces {
					if fc, ok := visibleFace(src, p, f); ok {
						emitQuad(m, f, p, 1, 1, fc)
					}
				}
			}
		}
	}
}

// uniformU reports whether shading does not change along the u tangent,
// so runs of the cell can be stretched along u without changing the result.
func (fc faceCell) uniformU() bool {
	return fc.samples[0] == fc.samples[1] && fc.samples[3] == fc.samples[2]
}

func (fc faceCell) uniformV() bool {
	return fc.samples[0] == fc.samples[3] && fc.samples[1] == fc.samples[2]
}

// buildGreedy sweeps the chunk one slice at a time along the face normal
// and merges each slice's visible faces into rectangles: scan u then v,
// grow the width while cells match, then grow the height while every cell
// of the next row matches and is unused.
func buildGreedy(m *Mesh, src world.BlockSource, origin [3]int, f block.Face) {
	a := f.Axis()
	u, v := f.Tangents()
	su, sv := chunkSize[u], chunkSize[v]

	mask := make([]faceCell, su*sv)
	has := make([]bool, su*sv)

	for d := 0; d < chunkSize[a]; d++ {
		for j := 0; j < sv; j++ {
			for i := 0; i < su; i++ {
				var p [3]int
				p[a], p[u], p[v] = d, i, j
				p[0] += origin[0]
				p[2] += origin[2]
				k := j*su + i
				mask[k], has[k] = visibleFace(src, p, f)
			}
		}

		for j := 0; j < sv; j++ {
			for i := 0; i < su; {
				k := j*su + i
				if !has[k] {
					i++
					continue
				}
				cur := mask[k]

				w := 1
				if cur.uniformU() {
					for i+w < su && has[k+w] && mask[k+w] == cur {
						w++
					}
				}

				h := 1
				if cur.uniformV() {
				grow:
					for j+h < sv {
						row := (j+h)*su + i
						for x := 0; x < w; x++ {
							if !has[row+x] || mask[row+x] != cur {
								break grow
							}
						}
						h++
					}
				}

				for y := 0; y < h; y++ {
					for x := 0; x < w; x++ {
						has[(j+y)*su+i+x] = false
					}
				}

				var p [3]int
				p[a], p[u], p[v] = d, i, j
				p[0] += origin[0]
				p[2] += origin[2]
				emitQuad(m, f, p, w, h, cur)
				i += w
			}
		}
	}
}

// emitQuad appends a w x h quad (in face tangent units) whose first cell is
// the block at world position p.
func emitQuad(m *Mesh, f block.Face, p [3]int, w, h int, fc faceCell) {
	a := f.Axis()
	u, v := f.Tangents()

	var base mgl32.Vec3
	for i := 0; i < 3; i++ {
		base[i] = float32(p[i])
	}
	if f.Positive() {
		base[a]++
	}

	var ext [3]float32
	ext[u], ext[v] = float32(w), float32(h)

	tex := PackTexIndex(fc.b.Texture(f), f, fc.b.IsLiquid())
	first := uint32(len(m.Vertices))

	for i, cuv := range light.CornerUV {
		var off [3]float32
		off[u] = float32(cuv[0]) * ext[u]
		off[v] = float32(cuv[1]) * ext[v]
		pos := base.Add(mgl32.Vec3(off))
		m.grow(pos)
		s := fc.samples[i]
		m.Vertices = append(m.Vertices, Vertex{
			Pos:      pos,
			UV:       faceUV(f, off, ext),
			AO:       light.AOLevels[s.AO],
			TexIndex: tex,
			Light:    s.Light,
		})
	}

	s := fc.samples
	if int(s[0].AO)+int(s[2].AO) < int(s[1].AO)+int(s[3].AO) {
		// Split along the brighter diagonal to avoid AO anisotropy.
		m.Indices = append(m.Indices, first+1, first+2, first+3, first+1, first+3, first)
	} else {
		m.Indices = append(m.Indices, first, first+1, first+2, first, first+2, first+3)
	}
}

// faceUV keeps textures upright on side faces: v runs down from the top edge.
func faceUV(f block.Face, off, ext [3]float32) [2]float32 {
	switch f {
	case block.Top, block.Bottom:
		return [2]float32{off[0], off[2]}
	case block.Left, block.Right:
		return [2]float32{off[2], ext[1] - off[1]}
	case block.Front, block.Back:
		return [2]float32{off[0], ext[1] - off[1]}
	}
	panic("mesh: invalid face")
}
