package gpu

import (
	"fmt"
	"image"

	"github.com/cogentcore/webgpu/wgpu"
)

// UploadAtlas creates the block atlas texture and its nearest sampler.
func (m *BufferManager) UploadAtlas(img *image.RGBA) error {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w == 0 || h == 0 {
		return fmt.Errorf("empty atlas image")
	}
	if m.AtlasTexture != nil {
		m.AtlasView.Release()
		m.AtlasTexture.Release()
	}

	tex, err := m.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Block Atlas",
		Size:          wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return fmt.Errorf("failed to create atlas texture: %w", err)
	}
	m.Device.GetQueue().WriteTexture(tex.AsImageCopy(), img.Pix, &wgpu.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  uint32(img.Stride),
		RowsPerImage: uint32(h),
	}, &wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1})

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return fmt.Errorf("failed to create atlas view: %w", err)
	}
	m.AtlasTexture, m.AtlasView = tex, view

	if m.Sampler == nil {
		// Nearest keeps the pixel art crisp; tiles repeat via fract in the shader.
		m.Sampler, err = m.Device.CreateSampler(&wgpu.SamplerDescriptor{
			AddressModeU:  wgpu.AddressModeClampToEdge,
			AddressModeV:  wgpu.AddressModeClampToEdge,
			AddressModeW:  wgpu.AddressModeClampToEdge,
			MinFilter:     wgpu.FilterModeNearest,
			MagFilter:     wgpu.FilterModeNearest,
			MipmapFilter:  wgpu.MipmapFilterModeNearest,
			MaxAnisotropy: 1,
		})
		if err != nil {
			return fmt.Errorf("failed to create atlas sampler: %w", err)
		}
	}
	return nil
}
