package atlas

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/blockcraft/blockrt/rt/block"
)

func TestProcedural(t *testing.T) {
	img := Procedural()
	require.Equal(t, image.Rect(0, 0, Size, Size), img.Bounds())

	// Every tile used by a block is painted.
	for tile := uint16(0); tile < block.TileCount; tile++ {
		tx := int(tile) % block.AtlasGrid * TilePixels
		ty := int(tile) / block.AtlasGrid * TilePixels
		painted := false
		for y := 0; y < TilePixels && !painted; y++ {
			for x := 0; x < TilePixels; x++ {
				if img.RGBAAt(tx+x, ty+y).A != 0 {
					painted = true
					break
				}
			}
		}
		assert.True(t, painted, "tile %d", tile)
	}

	// Water is translucent, stone opaque.
	wx := int(block.TileWater) % block.AtlasGrid * TilePixels
	wy := int(block.TileWater) / block.AtlasGrid * TilePixels
	assert.Less(t, img.RGBAAt(wx+3, wy+3).A, uint8(255))
	sx := int(block.TileStone) % block.AtlasGrid * TilePixels
	assert.Equal(t, uint8(255), img.RGBAAt(sx+3, 3).A)

	// Unused tiles stay empty.
	assert.Equal(t, color.RGBA{}, img.RGBAAt(Size-1, Size-1))
}

func TestLoadScalesToAtlas(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			src.SetRGBA(x, y, color.RGBA{uint8(x * 4), uint8(y * 4), 0, 255})
		}
	}
	path := filepath.Join(t.TempDir(), "atlas.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, src))
	require.NoError(t, f.Close())

	img, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Size, img.Bounds().Dx())
	assert.Equal(t, src.RGBAAt(0, 0), img.RGBAAt(0, 0))
	assert.Equal(t, src.RGBAAt(63, 63), img.RGBAAt(Size-1, Size-1))
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.png"))
	assert.Error(t, err)
}
