package block

import "fmt"

// Block is a voxel type. The zero value is Air.
type Block uint8

const (
	Air Block = iota
	Grass
	Dirt
	Stone
	Wood
	Leaves
	Snow
	Sand
	Bedrock
	Water
	Cobblestone
	Planks
	CoalOre
	IronOre
	Glass
	Glowstone
	Torch

	Count
)

// MaxLight is the highest sky or block light level.
const MaxLight = 15

// Atlas tiles. A tile index t lives at cell (t%AtlasGrid, t/AtlasGrid).
const (
	TileGrassTop uint16 = iota
	TileGrassSide
	TileDirt
	TileStone
	TileWoodSide
	TileWoodTop
	TileLeaves
	TileSnow
	TileSnowSide
	TileSand
	TileBedrock
	TileWater
	TileCobblestone
	TilePlanks
	TileCoalOre
	TileIronOre
	TileGlass
	TileGlowstone
	TileTorch

	TileCount
)

// AtlasGrid is the number of tiles per atlas row and column.
const AtlasGrid = 32

type flags uint8

const (
	fSolid flags = 1 << iota
	fTransparent
	fLiquid
	fCullsSame
)

type def struct {
	name     string
	flags    flags
	emission uint8
	// top, bottom, side
	tiles [3]uint16
}

var defs = [Count]def{
	Air:         {"air", fTransparent, 0, [3]uint16{}},
	Grass:       {"grass", fSolid, 0, [3]uint16{TileGrassTop, TileDirt, TileGrassSide}},
	Dirt:        {"dirt", fSolid, 0, [3]uint16{TileDirt, TileDirt, TileDirt}},
	Stone:       {"stone", fSolid, 0, [3]uint16{TileStone, TileStone, TileStone}},
	Wood:        {"wood", fSolid, 0, [3]uint16{TileWoodTop, TileWoodTop, TileWoodSide}},
	Leaves:      {"leaves", fSolid | fTransparent | fCullsSame, 0, [3]uint16{TileLeaves, TileLeaves, TileLeaves}},
	Snow:        {"snow", fSolid, 0, [3]uint16{TileSnow, TileDirt, TileSnowSide}},
	Sand:        {"sand", fSolid, 0, [3]uint16{TileSand, TileSand, TileSand}},
	Bedrock:     {"bedrock", fSolid, 0, [3]uint16{TileBedrock, TileBedrock, TileBedrock}},
	Water:       {"water", fTransparent | fLiquid | fCullsSame, 0, [3]uint16{TileWater, TileWater, TileWater}},
	Cobblestone: {"cobblestone", fSolid, 0, [3]uint16{TileCobblestone, TileCobblestone, TileCobblestone}},
	Planks:      {"planks", fSolid, 0, [3]uint16{TilePlanks, TilePlanks, TilePlanks}},
	CoalOre:     {"coal_ore", fSolid, 0, [3]uint16{TileCoalOre, TileCoalOre, TileCoalOre}},
	IronOre:     {"iron_ore", fSolid, 0, [3]uint16{TileIronOre, TileIronOre, TileIronOre}},
	Glass:       {"glass", fSolid | fTransparent | fCullsSame, 0, [3]uint16{TileGlass, TileGlass, TileGlass}},
	Glowstone:   {"glowstone", fSolid, MaxLight, [3]uint16{TileGlowstone, TileGlowstone, TileGlowstone}},
	Torch:       {"torch", fTransparent, MaxLight, [3]uint16{TileTorch, TileTorch, TileTorch}},
}

func (b Block) def() *def {
	if b >= Count {
		panic(fmt.Sprintf("block: invalid block %d", uint8(b)))
	}
	return &defs[b]
}

func (b Block) Valid() bool { return b < Count }

func (b Block) String() string {
	if b >= Count {
		return fmt.Sprintf("Block(%d)", uint8(b))
	}
	return defs[b].name
}

// IsSolid reports whether the block occupies space for collision.
func (b Block) IsSolid() bool { return b.def().flags&fSolid != 0 }

// IsTransparent reports whether the block lets neighbouring faces show.
// Face culling must use this, never IsSolid.
func (b Block) IsTransparent() bool { return b.def().flags&fTransparent != 0 }

func (b Block) IsOpaque() bool { return !b.IsTransparent() }

func (b Block) IsLiquid() bool { return b.def().flags&fLiquid != 0 }

// HasGeometry reports whether the mesher emits faces for the block.
func (b Block) HasGeometry() bool { return b.def().flags&(fSolid|fLiquid) != 0 }

// CullsSameType reports whether faces between two blocks of this type are hidden.
func (b Block) CullsSameType() bool { return b.def().flags&fCullsSame != 0 }

// Emission is the block light level the block emits, 0 for non-emitters.
func (b Block) Emission() uint8 { return b.def().emission }

// Texture returns the atlas tile for the given face of the block.
func (b Block) Texture(f Face) uint16 {
	d := b.def()
	switch f {
	case Top:
		return d.tiles[0]
	case Bottom:
		return d.tiles[1]
	case Left, Right, Front, Back:
		return d.tiles[2]
	}
	panic(fmt.Sprintf("block: invalid face %d", uint8(f)))
}

// ShowsFace reports whether a face of b is visible against neighbour n.
func (b Block) ShowsFace(n Block) bool {
	if !n.IsTransparent() {
		return false
	}
	if n == b && b.CullsSameType() {
		return false
	}
	return true
}

// ByName looks a block up by its lowercase name.
func ByName(name string) (Block, bool) {
	for i := range defs {
		if defs[i].name == name {
			return Block(i), true
		}
	}
	return Air, false
}
