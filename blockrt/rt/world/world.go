package world

import (
	"github.com/gekko3d/blockcraft/blockrt/rt/block"
)

// BlockSource is read access to blocks and light by world coordinate.
type BlockSource interface {
	Block(wx, wy, wz int) block.Block
	Light(wx, wy, wz int) Light
}

// World is an arena of chunks keyed by coordinate. Chunks never reference
// each other; neighbours are found by coordinate lookup.
// A World is not safe for concurrent use.
type World struct {
	chunks map[Coord]*Chunk
}

func New() *World {
	return &World{chunks: make(map[Coord]*Chunk)}
}

func (w *World) Chunk(c Coord) (*Chunk, bool) {
	ch, ok := w.chunks[c]
	return ch, ok
}

func (w *World) Put(ch *Chunk) { w.chunks[ch.Coord] = ch }

func (w *World) Remove(c Coord) { delete(w.chunks, c) }

func (w *World) Len() int { return len(w.chunks) }

// Coords returns the loaded chunk coordinates in no particular order.
func (w *World) Coords() []Coord {
	out := make([]Coord, 0, len(w.chunks))
	for c := range w.chunks {
		out = append(out, c)
	}
	return out
}

func (w *World) lookup(wx, wy, wz int) (*Chunk, int, int, bool) {
	c, lx, lz := ChunkOf(wx, wz)
	ch, ok := w.chunks[c]
	return ch, lx, lz, ok
}

// Block returns Air for unloaded chunks and for y outside the column.
func (w *World) Block(wx, wy, wz int) block.Block {
	if wy < 0 || wy >= Height {
		return block.Air
	}
	ch, lx, lz, ok := w.lookup(wx, wy, wz)
	if !ok {
		return block.Air
	}
	return ch.blocks[index(lx, wy, lz)]
}

// Light treats unloaded space and the sky above the column as fully sky lit,
// and the void below the column as dark.
func (w *World) Light(wx, wy, wz int) Light {
	if wy < 0 {
		return 0
	}
	if wy >= Height {
		return PackLight(block.MaxLight, 0)
	}
	ch, lx, lz, ok := w.lookup(wx, wy, wz)
	if !ok {
		return PackLight(block.MaxLight, 0)
	}
	return ch.light[index(lx, wy, lz)]
}

// SetBlock writes into a loaded chunk and reports whether it was loaded.
func (w *World) SetBlock(wx, wy, wz int, b block.Block) bool {
	if wy < 0 || wy >= Height {
		return false
	}
	ch, lx, lz, ok := w.lookup(wx, wy, wz)
	if !ok {
		return false
	}
	ch.SetBlock(lx, wy, lz, b)
	return true
}

// Neighborhood copies center and its loaded 8 neighbours into a detached World.
func (w *World) Neighborhood(center Coord) *World {
	out := New()
	for dz := int32(-1); dz <= 1; dz++ {
		for dx := int32(-1); dx <= 1; dx++ {
			if ch, ok := w.chunks[center.Add(dx, dz)]; ok {
				out.Put(ch.Clone())
			}
		}
	}
	return out
}
