// Package light computes sky and block light for chunks.
package light

import (
	"github.com/gekko3d/blockcraft/blockrt/rt/block"
	"github.com/gekko3d/blockcraft/blockrt/rt/world"
)

type cell struct {
	x, y, z int // world coordinates
}

type channel int

const (
	sky channel = iota
	blk
)

func (ch channel) get(l world.Light) uint8 {
	if ch == sky {
		return l.Sky()
	}
	return l.Block()
}

func (ch channel) set(l world.Light, v uint8) world.Light {
	if ch == sky {
		return world.PackLight(v, l.Block())
	}
	return world.PackLight(l.Sky(), v)
}

var steps = [6][3]int{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}}

// Propagate recomputes light for the given chunks, or for every chunk in w
// when none are given. Chunks outside the set are read as fixed light
// sources across the boundary and never written. The result only depends
// on the blocks and the light of the surrounding chunks, so running it
// twice yields identical values.
func Propagate(w *world.World, coords ...world.Coord) {
	if len(coords) == 0 {
		coords = w.Coords()
	}
	set := make(map[world.Coord]*world.Chunk, len(coords))
	for _, c := range coords {
		if ch, ok := w.Chunk(c); ok {
			set[c] = ch
		}
	}
	if len(set) == 0 {
		return
	}

	var skyQ, blkQ []cell
	for _, ch := range set {
		ch.ClearLight()
		skyQ = seedSky(ch, skyQ)
		blkQ = seedBlock(ch, blkQ)
	}
	for c, ch := range set {
		skyQ = seedBorder(w, set, c, ch, sky, skyQ)
		blkQ = seedBorder(w, set, c, ch, blk, blkQ)
	}

	flood(w, set, sky, skyQ)
	flood(w, set, blk, blkQ)
}

// seedSky scans every column top down. Open air above the first
// non-air cell is fully lit; each transparent cell below that filters
// one level. The first opaque cell ends the column.
func seedSky(ch *world.Chunk, q []cell) []cell {
	ox, oz := ch.Coord.Origin()
	for z := 0; z < world.SizeZ; z++ {
		for x := 0; x < world.SizeX; x++ {
			level := uint8(block.MaxLight)
			for y := world.Height - 1; y >= 0; y-- {
				b := ch.Block(x, y, z)
				if b.IsOpaque() {
					break
				}
				if level == 0 {
					break
				}
				ch.SetLight(x, y, z, world.PackLight(level, 0))
				q = append(q, cell{ox + x, y, oz + z})
				if b != block.Air {
					level--
				}
			}
		}
	}
	return q
}

func seedBlock(ch *world.Chunk, q []cell) []cell {
	ox, oz := ch.Coord.Origin()
	for y := 0; y < world.Height; y++ {
		for z := 0; z < world.SizeZ; z++ {
			for x := 0; x < world.SizeX; x++ {
				e := ch.Block(x, y, z).Emission()
				if e == 0 {
					continue
				}
				l := ch.Light(x, y, z)
				ch.SetLight(x, y, z, world.PackLight(l.Sky(), e))
				q = append(q, cell{ox + x, y, oz + z})
			}
		}
	}
	return q
}

// seedBorder queues lit cells of loaded chunks just outside ch that are
// not being recomputed themselves.
func seedBorder(w *world.World, set map[world.Coord]*world.Chunk, c world.Coord, ch *world.Chunk, chn channel, q []cell) []cell {
	ox, oz := c.Origin()
	type side struct {
		dx, dz int32
	}
	for _, s := range []side{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		nc := c.Add(s.dx, s.dz)
		if _, recomputed := set[nc]; recomputed {
			continue
		}
		if _, loaded := w.Chunk(nc); !loaded {
			continue
		}
		for y := 0; y < world.Height; y++ {
			for i := 0; i < world.SizeX; i++ {
				var wx, wz int
				switch {
				case s.dx < 0:
					wx, wz = ox-1, oz+i
				case s.dx > 0:
					wx, wz = ox+world.SizeX, oz+i
				case s.dz < 0:
					wx, wz = ox+i, oz-1
				default:
					wx, wz = ox+i, oz+world.SizeZ
				}
				if chn.get(w.Light(wx, y, wz)) > 1 {
					q = append(q, cell{wx, y, wz})
				}
			}
		}
	}
	return q
}

func flood(w *world.World, set map[world.Coord]*world.Chunk, chn channel, q []cell) {
	for head := 0; head < len(q); head++ {
		p := q[head]
		level := chn.get(w.Light(p.x, p.y, p.z))
		if level <= 1 {
			continue
		}
		next := level - 1
		for _, d := range steps {
			nx, ny, nz := p.x+d[0], p.y+d[1], p.z+d[2]
			if ny < 0 || ny >= world.Height {
				continue
			}
			c, lx, lz := world.ChunkOf(nx, nz)
			ch, ok := set[c]
			if !ok {
				continue
			}
			if ch.Block(lx, ny, lz).IsOpaque() {
				continue
			}
			l := ch.Light(lx, ny, lz)
			if chn.get(l) >= next {
				continue
			}
			ch.SetLight(lx, ny, lz, chn.set(l, next))
			q = append(q, cell{nx, ny, nz})
		}
	}
}
