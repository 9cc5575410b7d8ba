// Package shaders embeds the WGSL sources of the block renderer.
package shaders

import (
	_ "embed"
)

//go:embed block.wgsl
var BlockWGSL string

//go:embed cull.wgsl
var CullWGSL string
