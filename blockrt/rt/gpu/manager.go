package gpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/blockcraft"
	"github.com/gekko3d/blockcraft/blockrt/rt/mesh"
	"github.com/gekko3d/blockcraft/blockrt/rt/stream"
	"github.com/gekko3d/blockcraft/blockrt/rt/world"
)

const (
	CameraUniformSize = 64
	SkyUniformSize    = 32

	initialVertices = 1 << 18
	initialIndices  = 1 << 19

	// Default wgpu limit for a single buffer.
	maxBufferBytes = 256 << 20
)

// BufferManager owns the uniforms and the shared chunk geometry buffers of
// the block pipeline. All calls must come from the render thread.
type BufferManager struct {
	Device *wgpu.Device
	log    blockcraft.Logger

	CameraBuf *wgpu.Buffer
	SkyBuf    *wgpu.Buffer
	VertexBuf *wgpu.Buffer
	IndexBuf  *wgpu.Buffer

	AtlasTexture *wgpu.Texture
	AtlasView    *wgpu.TextureView
	Sampler      *wgpu.Sampler

	BindGroup0 *wgpu.BindGroup // atlas
	BindGroup1 *wgpu.BindGroup // camera
	BindGroup2 *wgpu.BindGroup // sky

	Slots *MeshSlots

	// Bookkeeping for leak checks and the debug overlay.
	Uploads  int
	Releases int
}

var _ stream.MeshUploader = (*BufferManager)(nil)

func NewBufferManager(device *wgpu.Device, log blockcraft.Logger) (*BufferManager, error) {
	m := &BufferManager{
		Device: device,
		log:    blockcraft.OrNop(log),
		Slots:  NewMeshSlots(initialVertices, initialIndices),
	}
	ensureBuffer(device, "CameraUB", &m.CameraBuf, make([]byte, CameraUniformSize), wgpu.BufferUsageUniform, 0)
	ensureBuffer(device, "SkyUB", &m.SkyBuf, make([]byte, SkyUniformSize), wgpu.BufferUsageUniform, 0)

	var err error
	m.VertexBuf, err = m.resize("ChunkVB", nil, initialVertices*mesh.VertexStride, wgpu.BufferUsageVertex)
	if err != nil {
		return nil, fmt.Errorf("create vertex buffer: %w", err)
	}
	m.IndexBuf, err = m.resize("ChunkIB", nil, initialIndices*4, wgpu.BufferUsageIndex)
	if err != nil {
		return nil, fmt.Errorf("create index buffer: %w", err)
	}
	return m, nil
}

// ensureBuffer writes data into *buf, first replacing the buffer when it is
// missing or too small. It reports whether the buffer was recreated.
func ensureBuffer(device *wgpu.Device, name string, buf **wgpu.Buffer, data []byte, usage wgpu.BufferUsage, headroom int) bool {
	neededSize := uint64(len(data) + headroom)
	if neededSize%4 != 0 {
		neededSize += 4 - (neededSize % 4)
	}

	current := *buf
	if current != nil && current.GetSize() >= neededSize {
		if len(data) > 0 {
			device.GetQueue().WriteBuffer(*buf, 0, data)
		}
		return false
	}
	if current != nil {
		current.Release()
	}
	newBuf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: name,
		Size:  neededSize,
		Usage: usage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		panic(err)
	}
	*buf = newBuf
	if len(data) > 0 {
		device.GetQueue().WriteBuffer(*buf, 0, data)
	}
	return true
}

// resize creates a buffer of size bytes and copies the contents of old into
// it. old is released.
func (m *BufferManager) resize(label string, old *wgpu.Buffer, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	buf, err := m.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, err
	}
	if old == nil {
		return buf, nil
	}

	encoder, err := m.Device.CreateCommandEncoder(nil)
	if err != nil {
		buf.Release()
		return nil, err
	}
	if err := encoder.CopyBufferToBuffer(old, 0, buf, 0, old.GetSize()); err != nil {
		buf.Release()
		return nil, err
	}
	cmd, err := encoder.Finish(nil)
	if err != nil {
		buf.Release()
		return nil, err
	}
	m.Device.GetQueue().Submit(cmd)
	old.Release()
	return buf, nil
}

// Upload copies a chunk mesh into free ranges of the shared buffers,
// growing them when no range is large enough.
func (m *BufferManager) Upload(c world.Coord, ms *mesh.Mesh) (stream.GPUMesh, error) {
	nv, ni := uint32(len(ms.Vertices)), uint32(len(ms.Indices))
	h, err := m.Slots.Reserve(nv, ni)
	if errors.Is(err, ErrOutOfSpace) {
		if gerr := m.grow(nv, ni); gerr != nil {
			return stream.GPUMesh{}, fmt.Errorf("upload %s: %w", c, gerr)
		}
		h, err = m.Slots.Reserve(nv, ni)
	}
	if err != nil {
		return stream.GPUMesh{}, fmt.Errorf("upload %s: %w", c, err)
	}

	q := m.Device.GetQueue()
	q.WriteBuffer(m.VertexBuf, uint64(h.BaseVertex)*mesh.VertexStride, ms.VertexBytes())
	q.WriteBuffer(m.IndexBuf, uint64(h.FirstIndex)*4, ms.IndexBytes())
	m.Uploads++
	return h, nil
}

func (m *BufferManager) Release(h stream.GPUMesh) {
	if !m.Slots.Release(h) {
		m.log.Warnf("release of unknown mesh %d", h.ID)
		return
	}
	m.Releases++
}

func (m *BufferManager) grow(nv, ni uint32) error {
	if v := m.Slots.Vertices; v.Largest() < nv {
		capacity, err := grownCapacity(v.Capacity(), nv, maxBufferBytes/mesh.VertexStride)
		if err != nil {
			return fmt.Errorf("vertices: %w", err)
		}
		buf, err := m.resize("ChunkVB", m.VertexBuf, uint64(capacity)*mesh.VertexStride, wgpu.BufferUsageVertex)
		if err != nil {
			return fmt.Errorf("grow vertex buffer: %w", err)
		}
		m.VertexBuf = buf
		v.Grow(capacity)
		m.log.Debugf("vertex buffer grown to %d vertices", capacity)
	}
	if ix := m.Slots.Indices; ix.Largest() < ni {
		capacity, err := grownCapacity(ix.Capacity(), ni, maxBufferBytes/4)
		if err != nil {
			return fmt.Errorf("indices: %w", err)
		}
		buf, err := m.resize("ChunkIB", m.IndexBuf, uint64(capacity)*4, wgpu.BufferUsageIndex)
		if err != nil {
			return fmt.Errorf("grow index buffer: %w", err)
		}
		m.IndexBuf = buf
		ix.Grow(capacity)
		m.log.Debugf("index buffer grown to %d indices", capacity)
	}
	return nil
}

// Live is the number of meshes currently resident on the GPU.
func (m *BufferManager) Live() int { return m.Slots.Live() }

func (m *BufferManager) UpdateCamera(viewProj mgl32.Mat4) {
	m.Device.GetQueue().WriteBuffer(m.CameraBuf, 0, CameraBytes(viewProj))
}

func (m *BufferManager) UpdateSky(color [4]float32, time float32, underwater bool) {
	m.Device.GetQueue().WriteBuffer(m.SkyBuf, 0, SkyBytes(color, time, underwater))
}

// CameraBytes packs the camera uniform: a column-major view_proj matrix.
func CameraBytes(viewProj mgl32.Mat4) []byte {
	buf := make([]byte, CameraUniformSize)
	for i, v := range viewProj {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// SkyBytes packs the sky uniform: color vec4, time, underwater flag, two
// padding floats.
func SkyBytes(color [4]float32, time float32, underwater bool) []byte {
	buf := make([]byte, SkyUniformSize)
	for i, v := range color {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint32(buf[16:], math.Float32bits(time))
	flag := float32(0)
	if underwater {
		flag = 1
	}
	binary.LittleEndian.PutUint32(buf[20:], math.Float32bits(flag))
	return buf
}

// Bind sets the shared geometry buffers on a render pass. Call it every
// frame since Upload may have replaced them.
func (m *BufferManager) Bind(pass *wgpu.RenderPassEncoder) {
	pass.SetBindGroup(0, m.BindGroup0, nil)
	pass.SetBindGroup(1, m.BindGroup1, nil)
	pass.SetBindGroup(2, m.BindGroup2, nil)
	pass.SetVertexBuffer(0, m.VertexBuf, 0, m.VertexBuf.GetSize())
	pass.SetIndexBuffer(m.IndexBuf, wgpu.IndexFormatUint32, 0, m.IndexBuf.GetSize())
}

// CreateBindGroups builds the atlas, camera and sky groups of the block
// pipeline. UploadAtlas must have run first.
func (m *BufferManager) CreateBindGroups(pipeline *wgpu.RenderPipeline) error {
	if m.AtlasView == nil || m.Sampler == nil {
		return fmt.Errorf("atlas not uploaded")
	}
	var err error
	m.BindGroup0, err = m.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Atlas BG",
		Layout: pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: m.AtlasView},
			{Binding: 1, Sampler: m.Sampler},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create atlas bind group: %w", err)
	}
	m.BindGroup1, err = m.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "Camera BG",
		Layout:  pipeline.GetBindGroupLayout(1),
		Entries: []wgpu.BindGroupEntry{{Binding: 0, Buffer: m.CameraBuf, Size: wgpu.WholeSize}},
	})
	if err != nil {
		return fmt.Errorf("failed to create camera bind group: %w", err)
	}
	m.BindGroup2, err = m.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "Sky BG",
		Layout:  pipeline.GetBindGroupLayout(2),
		Entries: []wgpu.BindGroupEntry{{Binding: 0, Buffer: m.SkyBuf, Size: wgpu.WholeSize}},
	})
	if err != nil {
		return fmt.Errorf("failed to create sky bind group: %w", err)
	}
	return nil
}
