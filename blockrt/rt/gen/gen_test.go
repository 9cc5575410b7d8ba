package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/blockcraft/blockrt/rt/block"
	"github.com/gekko3d/blockcraft/blockrt/rt/world"
)

func generate(g Generator, c world.Coord) *world.Chunk {
	ch := world.NewChunk(c)
	g.Generate(ch)
	return ch
}

func TestTerrain_Deterministic(t *testing.T) {
	c := world.Coord{X: 3, Z: -2}
	a := generate(NewTerrain(99), c)
	b := generate(NewTerrain(99), c)
	for y := 0; y < world.Height; y++ {
		for z := 0; z < world.SizeZ; z++ {
			for x := 0; x < world.SizeX; x++ {
				require.Equal(t, a.Block(x, y, z), b.Block(x, y, z), "cell %d,%d,%d", x, y, z)
			}
		}
	}
}

func TestTerrain_Layers(t *testing.T) {
	tr := NewTerrain(1337)
	c := world.Coord{X: -1, Z: 4}
	ch := generate(tr, c)
	ox, oz := c.Origin()

	for z := 0; z < world.SizeZ; z++ {
		for x := 0; x < world.SizeX; x++ {
			assert.Equal(t, block.Bedrock, ch.Block(x, 0, z))

			h, _ := tr.Height(ox+x, oz+z)
			assert.GreaterOrEqual(t, h, 1)
			assert.Less(t, h, world.Height-20)
			if h < SeaLevel {
				assert.Equal(t, block.Water, ch.Block(x, SeaLevel, z))
			}
			assert.True(t, ch.Block(x, h, z).IsSolid(), "surface at %d,%d", x, z)
		}
	}
}

func TestTerrain_SomeColumnsAboveAndBelowSea(t *testing.T) {
	tr := NewTerrain(5)
	above, below := 0, 0
	for wz := -2000; wz < 2000; wz += 37 {
		for wx := -2000; wx < 2000; wx += 37 {
			if h, _ := tr.Height(wx, wz); h > SeaLevel {
				above++
			} else {
				below++
			}
		}
	}
	assert.Positive(t, above)
	assert.Positive(t, below)
}

func TestFlat(t *testing.T) {
	ch := generate(Flat{Height: 3, Fill: block.Dirt}, world.Coord{})
	assert.Equal(t, block.Bedrock, ch.Block(5, 0, 5))
	assert.Equal(t, block.Dirt, ch.Block(5, 3, 5))
	assert.Equal(t, block.Air, ch.Block(5, 4, 5))
}

func TestGeneratorFunc(t *testing.T) {
	called := 0
	g := GeneratorFunc(func(ch *world.Chunk) { called++ })
	generate(g, world.Coord{})
	assert.Equal(t, 1, called)
}

func TestBiome_FogColor(t *testing.T) {
	base := [4]float32{0.5, 0.8, 0.9, 1}
	assert.Equal(t, base, Plains.FogColor(base))
	assert.Equal(t, base, Forest.FogColor(base))
	assert.Equal(t, [4]float32{0.8, 0.7, 0.5, 1}, Desert.FogColor(base))
	assert.Equal(t, [4]float32{0.9, 0.9, 1, 1}, Snowy.FogColor(base))
}
