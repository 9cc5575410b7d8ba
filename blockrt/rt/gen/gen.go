// Package gen fills chunks with procedural terrain.
package gen

import (
	"github.com/gekko3d/blockcraft/blockrt/rt/block"
	"github.com/gekko3d/blockcraft/blockrt/rt/world"
)

// Generator fills a freshly created chunk. Implementations are called
// from several workers at once and must not share mutable state.
type Generator interface {
	Generate(ch *world.Chunk)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ch *world.Chunk)

func (f GeneratorFunc) Generate(ch *world.Chunk) { f(ch) }

// Flat fills every column up to and including Height with Fill and puts
// bedrock at y=0.
type Flat struct {
	Height int
	Fill   block.Block
}

func (f Flat) Generate(ch *world.Chunk) {
	for z := 0; z < world.SizeZ; z++ {
		for x := 0; x < world.SizeX; x++ {
			ch.SetBlock(x, 0, z, block.Bedrock)
			for y := 1; y <= f.Height && y < world.Height; y++ {
				ch.SetBlock(x, y, z, f.Fill)
			}
		}
	}
}
