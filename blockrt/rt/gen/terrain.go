package gen

import (
	"math"
	"math/rand"

	"github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"

	"github.com/gekko3d/blockcraft/blockrt/rt/block"
	"github.com/gekko3d/blockcraft/blockrt/rt/world"
)

const (
	SeaLevel   = 20
	baseHeight = 30
	riverWidth = 0.05
	treeMargin = 2
)

type Biome int

const (
	Plains Biome = iota
	Desert
	Snowy
	Forest
)

// FogColor is the sky and fog colour seen from inside the biome. Biomes
// without a tint of their own use base.
func (b Biome) FogColor(base [4]float32) [4]float32 {
	switch b {
	case Desert:
		return [4]float32{0.8, 0.7, 0.5, 1}
	case Snowy:
		return [4]float32{0.9, 0.9, 1, 1}
	}
	return base
}

// Terrain is the default world generator: a fractal simplex height field
// carved by rivers and caves, with perlin driven biomes and tree cover.
type Terrain struct {
	seed   int64
	height opensimplex.Noise32
	river  opensimplex.Noise32
	caves  opensimplex.Noise32
	biomes *perlin.Perlin
	trees  *perlin.Perlin
}

func NewTerrain(seed int64) *Terrain {
	return &Terrain{
		seed:   seed,
		height: opensimplex.New32(seed),
		river:  opensimplex.New32(seed + 1),
		caves:  opensimplex.New32(seed + 2),
		biomes: perlin.NewPerlin(2, 2, 3, seed+42),
		trees:  perlin.NewPerlin(2, 2, 2, seed+7),
	}
}

func (t *Terrain) fractal(x, z float32, amplitude float32, octaves int, lacunarity, persistence, scale float32) float32 {
	var val float32
	for i := 0; i < octaves; i++ {
		val += t.height.Eval2(x/scale, z/scale) * amplitude
		x *= lacunarity
		z *= lacunarity
		amplitude *= persistence
	}
	return val
}

// Height returns the surface height of a world column and whether a river
// carved it.
func (t *Terrain) Height(wx, wz int) (int, bool) {
	h := baseHeight + int(t.fractal(float32(wx), float32(wz), 22, 4, 1.9, 0.5, 96))

	r := t.river.Eval2(float32(wx)/220, float32(wz)/220)
	river := false
	if a := float32(math.Abs(float64(r))); a < riverWidth {
		depth := (riverWidth - a) / riverWidth
		bed := float32(SeaLevel - 2)
		carved := int(float32(h)*(1-depth) + bed*depth)
		if carved < h {
			h, river = carved, true
		}
	}
	return max(1, min(h, world.Height-24)), river
}

// BiomeAt classifies a column from the biome noise and its height.
func (t *Terrain) BiomeAt(wx, wz, height int) Biome {
	v := t.biomes.Noise2D(float64(wx)*0.004, float64(wz)*0.004)
	switch {
	case height > baseHeight+16 || v > 0.3:
		return Snowy
	case v < -0.25:
		return Desert
	case t.trees.Noise2D(float64(wx)*0.02, float64(wz)*0.02) > 0.15:
		return Forest
	}
	return Plains
}

func (t *Terrain) cave(wx, wy, wz int) bool {
	return t.caves.Eval3(float32(wx)/24, float32(wy)/16, float32(wz)/24) > 0.55
}

// cellHash is a stable per cell hash for ore and pocket placement.
func (t *Terrain) cellHash(wx, wy, wz int) uint32 {
	h := uint64(t.seed)
	h ^= uint64(int64(wx)) * 0x9E3779B185EBCA87
	h ^= uint64(int64(wy)) * 0xC2B2AE3D27D4EB4F
	h ^= uint64(int64(wz)) * 0x165667B19E3779F9
	h ^= h >> 33
	h *= 0xFF51AFD7ED558CCD
	h ^= h >> 33
	return uint32(h)
}

func (t *Terrain) Generate(ch *world.Chunk) {
	ox, oz := ch.Coord.Origin()
	rng := rand.New(rand.NewSource(t.seed + int64(ch.Coord.X)*31 + int64(ch.Coord.Z)*17))

	for z := 0; z < world.SizeZ; z++ {
		for x := 0; x < world.SizeX; x++ {
			wx, wz := ox+x, oz+z
			h, river := t.Height(wx, wz)
			biome := t.BiomeAt(wx, wz, h)
			t.column(ch, x, z, wx, wz, h, river, biome)

			if river || biome == Desert || h <= SeaLevel+1 {
				continue
			}
			if x < treeMargin || x >= world.SizeX-treeMargin || z < treeMargin || z >= world.SizeZ-treeMargin {
				continue
			}
			chance := 0.01
			if biome == Forest {
				chance = 0.08
			}
			if rng.Float64() < chance && ch.Block(x, h, z).IsSolid() && ch.Block(x, h+1, z) == block.Air {
				placeTree(ch, x, h+1, z, 4+rng.Intn(3))
			}
		}
	}
}

func (t *Terrain) column(ch *world.Chunk, x, z, wx, wz, h int, river bool, biome Biome) {
	for y := 0; y < world.Height; y++ {
		b := block.Air
		switch {
		case y == 0:
			b = block.Bedrock
		case y <= h-4:
			b = block.Stone
			if t.cave(wx, y, wz) && y > 4 && y < h-5 {
				b = block.Air
				if t.cellHash(wx, y, wz)%600 == 0 {
					b = block.Glowstone
				}
			} else if hs := t.cellHash(wx, y, wz) % 1000; hs < 10 {
				b = block.CoalOre
			} else if hs < 15 && y < 40 {
				b = block.IronOre
			}
		case y <= h:
			b = surface(y, h, river, biome)
		case y <= SeaLevel:
			b = block.Water
		}
		if b != block.Air {
			ch.SetBlock(x, y, z, b)
		}
	}
}

func surface(y, h int, river bool, biome Biome) block.Block {
	switch {
	case river:
		return block.Sand
	case biome == Desert:
		return block.Sand
	case y < h:
		return block.Dirt
	case biome == Snowy:
		return block.Snow
	case h < SeaLevel+2:
		return block.Sand
	}
	return block.Grass
}

func placeTree(ch *world.Chunk, x, y, z, trunk int) {
	top := y + trunk
	if top+2 >= world.Height {
		return
	}
	for dy := top - 2; dy <= top; dy++ {
		r := 2
		if dy == top {
			r = 1
		}
		for dz := -r; dz <= r; dz++ {
			for dx := -r; dx <= r; dx++ {
				if ch.Block(x+dx, dy, z+dz) == block.Air {
					ch.SetBlock(x+dx, dy, z+dz, block.Leaves)
				}
			}
		}
	}
	ch.SetBlock(x, top+1, z, block.Leaves)
	for i := 0; i < trunk; i++ {
		ch.SetBlock(x, y+i, z, block.Wood)
	}
}
