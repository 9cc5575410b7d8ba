package world

import (
	"fmt"

	"github.com/gekko3d/blockcraft/blockrt/rt/block"
)

const (
	SizeX  = 16
	SizeZ  = 16
	Height = 128

	volume = SizeX * SizeZ * Height
)

// Coord identifies a chunk column.
type Coord struct {
	X, Z int32
}

func (c Coord) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Z) }

func (c Coord) Add(dx, dz int32) Coord { return Coord{c.X + dx, c.Z + dz} }

// Chebyshev returns max(|dx|,|dz|) between two chunk coordinates.
func (c Coord) Chebyshev(o Coord) int {
	dx := int(c.X - o.X)
	dz := int(c.Z - o.Z)
	if dx < 0 {
		dx = -dx
	}
	if dz < 0 {
		dz = -dz
	}
	return max(dx, dz)
}

// Origin is the world position of the chunk's (0,0,0) cell.
func (c Coord) Origin() (wx, wz int) { return int(c.X) * SizeX, int(c.Z) * SizeZ }

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// ChunkOf returns the chunk holding world column (wx, wz) and the local cell.
func ChunkOf(wx, wz int) (c Coord, lx, lz int) {
	cx := floorDiv(wx, SizeX)
	cz := floorDiv(wz, SizeZ)
	return Coord{int32(cx), int32(cz)}, wx - cx*SizeX, wz - cz*SizeZ
}

// Light packs sky light in the high nibble and block light in the low nibble.
type Light uint8

func PackLight(sky, blk uint8) Light { return Light(sky<<4 | blk&0x0f) }

func (l Light) Sky() uint8   { return uint8(l) >> 4 }
func (l Light) Block() uint8 { return uint8(l) & 0x0f }

// Max is max(sky, block), the level used for shading.
func (l Light) Max() uint8 { return max(l.Sky(), l.Block()) }

// Chunk is a 16x128x16 column of blocks with a parallel light grid.
type Chunk struct {
	Coord   Coord
	blocks  [volume]block.Block
	light   [volume]Light
	version uint64
	dirty   bool
}

func NewChunk(c Coord) *Chunk {
	return &Chunk{Coord: c, dirty: true}
}

func index(x, y, z int) int { return (y*SizeZ+z)*SizeX + x }

// InBounds reports whether local (x,y,z) lies inside a chunk.
func InBounds(x, y, z int) bool {
	return x >= 0 && x < SizeX && y >= 0 && y < Height && z >= 0 && z < SizeZ
}

// Block returns the block at local coordinates, Air outside the chunk.
func (c *Chunk) Block(x, y, z int) block.Block {
	if !InBounds(x, y, z) {
		return block.Air
	}
	return c.blocks[index(x, y, z)]
}

// SetBlock stores b and invalidates the cached mesh. Out of range writes are ignored.
func (c *Chunk) SetBlock(x, y, z int, b block.Block) {
	if !InBounds(x, y, z) {
		return
	}
	i := index(x, y, z)
	if c.blocks[i] == b {
		return
	}
	c.blocks[i] = b
	c.version++
	c.dirty = true
}

func (c *Chunk) Light(x, y, z int) Light {
	if !InBounds(x, y, z) {
		return 0
	}
	return c.light[index(x, y, z)]
}

func (c *Chunk) SetLight(x, y, z int, l Light) {
	if InBounds(x, y, z) {
		c.light[index(x, y, z)] = l
	}
}

// CopyLight replaces the light grid with src's.
func (c *Chunk) CopyLight(src *Chunk) { c.light = src.light }

// ClearLight zeroes the whole light grid.
func (c *Chunk) ClearLight() { c.light = [volume]Light{} }

// Version increments on every block change.
func (c *Chunk) Version() uint64 { return c.version }

// MeshValid reports whether the cached mesh still matches the blocks.
func (c *Chunk) MeshValid() bool { return !c.dirty }

func (c *Chunk) MarkMeshed() { c.dirty = false }
func (c *Chunk) Invalidate() { c.dirty = true }

// Clone returns a deep copy safe to hand to another goroutine.
func (c *Chunk) Clone() *Chunk {
	cp := *c
	return &cp
}

// TopSolid returns the highest y holding a non-air block, or -1.
func (c *Chunk) TopSolid(x, z int) int {
	for y := Height - 1; y >= 0; y-- {
		if c.blocks[index(x, y, z)] != block.Air {
			return y
		}
	}
	return -1
}
