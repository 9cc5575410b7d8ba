// Package atlas builds the block texture atlas.
package atlas

import (
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"

	"github.com/gekko3d/blockcraft/blockrt/rt/block"
)

const (
	TilePixels = 16
	Size       = TilePixels * block.AtlasGrid
)

type tileStyle struct {
	base    color.RGBA
	accent  color.RGBA
	density uint32 // accent probability out of 256
	alpha   uint8  // 0 means opaque
	// top rows painted with accent, used for grass and snow sides
	capRows int
}

var styles = map[uint16]tileStyle{
	block.TileGrassTop:    {base: rgb(95, 159, 53), accent: rgb(76, 135, 40), density: 90},
	block.TileGrassSide:   {base: rgb(134, 96, 67), accent: rgb(95, 159, 53), density: 30, capRows: 4},
	block.TileDirt:        {base: rgb(134, 96, 67), accent: rgb(110, 78, 52), density: 70},
	block.TileStone:       {base: rgb(125, 125, 125), accent: rgb(105, 105, 105), density: 80},
	block.TileWoodSide:    {base: rgb(102, 81, 49), accent: rgb(80, 62, 36), density: 60},
	block.TileWoodTop:     {base: rgb(160, 130, 80), accent: rgb(120, 95, 55), density: 60},
	block.TileLeaves:      {base: rgb(58, 120, 38), accent: rgb(0, 0, 0), density: 50, alpha: 1},
	block.TileSnow:        {base: rgb(240, 248, 255), accent: rgb(220, 230, 240), density: 40},
	block.TileSnowSide:    {base: rgb(134, 96, 67), accent: rgb(240, 248, 255), density: 30, capRows: 5},
	block.TileSand:        {base: rgb(219, 206, 160), accent: rgb(200, 188, 140), density: 70},
	block.TileBedrock:     {base: rgb(60, 60, 60), accent: rgb(30, 30, 30), density: 120},
	block.TileWater:       {base: rgb(40, 90, 200), accent: rgb(60, 110, 220), density: 60, alpha: 170},
	block.TileCobblestone: {base: rgb(115, 115, 115), accent: rgb(80, 80, 80), density: 110},
	block.TilePlanks:      {base: rgb(162, 130, 78), accent: rgb(130, 100, 60), density: 40},
	block.TileCoalOre:     {base: rgb(125, 125, 125), accent: rgb(30, 30, 30), density: 40},
	block.TileIronOre:     {base: rgb(125, 125, 125), accent: rgb(216, 175, 147), density: 40},
	block.TileGlass:       {base: rgb(220, 240, 250), accent: rgb(255, 255, 255), density: 20, alpha: 1},
	block.TileGlowstone:   {base: rgb(250, 210, 110), accent: rgb(255, 240, 170), density: 90},
	block.TileTorch:       {base: rgb(255, 200, 60), accent: rgb(120, 80, 40), density: 80},
}

func rgb(r, g, b uint8) color.RGBA { return color.RGBA{r, g, b, 255} }

// hash is a cheap deterministic pixel hash so the atlas is stable.
func hash(tile uint16, x, y int) uint32 {
	h := uint32(tile)*0x9E3779B1 ^ uint32(x)*0x85EBCA6B ^ uint32(y)*0xC2B2AE35
	h ^= h >> 15
	h *= 0x2C1B3C6D
	h ^= h >> 12
	return h
}

// Procedural paints the programmer art atlas.
func Procedural() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, Size, Size))
	for tile := uint16(0); tile < block.TileCount; tile++ {
		paintTile(img, tile, styles[tile])
	}
	return img
}

func paintTile(img *image.RGBA, tile uint16, s tileStyle) {
	tx := int(tile) % block.AtlasGrid * TilePixels
	ty := int(tile) / block.AtlasGrid * TilePixels
	for y := 0; y < TilePixels; y++ {
		for x := 0; x < TilePixels; x++ {
			h := hash(tile, x, y)
			c := s.base
			if y < s.capRows || h&0xff < s.density {
				c = s.accent
			}
			switch {
			case s.alpha == 1:
				// cut-out: accent pixels become holes
				if c == s.accent && y >= s.capRows {
					c = color.RGBA{}
				}
			case s.alpha > 1:
				c.A = s.alpha
			}
			if tile == block.TileGlass {
				edge := x == 0 || y == 0 || x == TilePixels-1 || y == TilePixels-1
				if edge {
					c = rgb(200, 220, 230)
				} else {
					c = color.RGBA{}
				}
			}
			img.SetRGBA(tx+x, ty+y, c)
		}
	}
}

// Load decodes an image file and scales it to the atlas size. The file must
// use the same 32x32 tile grid.
func Load(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open atlas: %w", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode atlas %s: %w", path, err)
	}
	return Fit(src), nil
}

// Fit scales src onto a Size x Size RGBA image. Nearest neighbour keeps the
// pixel art crisp and tiles from bleeding into each other.
func Fit(src image.Image) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, Size, Size))
	if src.Bounds().Dx() == Size && src.Bounds().Dy() == Size {
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
		return dst
	}
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
