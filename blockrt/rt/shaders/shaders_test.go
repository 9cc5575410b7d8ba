package shaders

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gekko3d/blockcraft/blockrt/rt/atlas"
	"github.com/gekko3d/blockcraft/blockrt/rt/block"
	"github.com/gekko3d/blockcraft/blockrt/rt/cull"
)

// The WGSL sources hard code a few values the Go side also owns.
func TestShaderConstantsMatchGo(t *testing.T) {
	assert.Contains(t, CullWGSL, fmt.Sprintf("@workgroup_size(%d)", cull.WorkgroupSize))
	assert.Contains(t, BlockWGSL, fmt.Sprintf("ATLAS_GRID: f32 = %d.0", block.AtlasGrid))
	assert.Contains(t, BlockWGSL, fmt.Sprintf("tile %% %du", block.AtlasGrid))
	assert.Contains(t, BlockWGSL, fmt.Sprintf("TILE_PIXELS: f32 = %d.0", atlas.TilePixels))
}

func TestShaderEntryPoints(t *testing.T) {
	assert.Contains(t, BlockWGSL, "fn vs_main")
	assert.Contains(t, BlockWGSL, "fn fs_main")
	assert.Contains(t, CullWGSL, "fn main")
	assert.Contains(t, CullWGSL, "atomic<u32>")
}
