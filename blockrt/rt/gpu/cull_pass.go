package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/blockcraft/blockrt/rt/cull"
)

// recordHeadroom avoids recreating the cull buffers every time a few chunks
// finish loading.
const recordHeadroom = 256

// CullPass tests chunk bounding spheres against the frustum on the GPU.
// Every visible chunk appends one indexed indirect draw through an atomic
// counter. With MultiDraw the render pass issues a single draw sized by that
// counter; otherwise it draws every slot, and slots nobody wrote stay zeroed
// so they draw nothing.
type CullPass struct {
	Device   *wgpu.Device
	Pipeline *wgpu.ComputePipeline

	// MultiDraw is set when the device has the multi draw indirect count
	// feature.
	MultiDraw bool

	ParamsBGL *wgpu.BindGroupLayout
	DataBGL   *wgpu.BindGroupLayout

	ParamsBuf   *wgpu.Buffer
	RecordsBuf  *wgpu.Buffer
	CommandsBuf *wgpu.Buffer
	CounterBuf  *wgpu.Buffer

	BindGroup0 *wgpu.BindGroup
	BindGroup1 *wgpu.BindGroup

	// Slots is the number of records submitted for the current frame.
	Slots uint32
}

func NewCullPass(device *wgpu.Device, shaderCode string) (*CullPass, error) {
	p := &CullPass{Device: device}

	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Chunk Cull CS",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaderCode},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cull shader module: %w", err)
	}
	defer module.Release()

	p.ParamsBGL, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Cull Params BGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageCompute,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: cull.ParamsSize,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cull params layout: %w", err)
	}

	p.DataBGL, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Cull Data BGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageCompute,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageCompute,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageCompute,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cull data layout: %w", err)
	}

	layout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Cull Pipeline Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.ParamsBGL, p.DataBGL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cull pipeline layout: %w", err)
	}
	p.Pipeline, err = device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  "Chunk Cull Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cull pipeline: %w", err)
	}

	ensureBuffer(device, "CullParamsUB", &p.ParamsBuf, make([]byte, cull.ParamsSize), wgpu.BufferUsageUniform, 0)
	p.BindGroup0, err = device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "Cull Params BG",
		Layout:  p.ParamsBGL,
		Entries: []wgpu.BindGroupEntry{{Binding: 0, Buffer: p.ParamsBuf, Size: wgpu.WholeSize}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cull params bind group: %w", err)
	}
	return p, nil
}

// cullFrame is everything uploaded before one cull dispatch.
type cullFrame struct {
	params   []byte
	records  []byte
	commands []byte // zeroed, one slot per record
	counter  []byte
}

func buildCullFrame(records []cull.ChunkCullData, planes cull.Frustum) cullFrame {
	f := cullFrame{
		params:   cull.ParamsBytes(planes, uint32(len(records))),
		records:  make([]byte, len(records)*cull.ChunkCullDataSize),
		commands: make([]byte, len(records)*cull.DrawIndexedIndirectSize),
		counter:  make([]byte, 4),
	}
	for i, r := range records {
		r.Put(f.records[i*cull.ChunkCullDataSize:])
	}
	return f
}

// workgroups is the dispatch size covering n records.
func workgroups(n uint32) uint32 {
	return (n + cull.WorkgroupSize - 1) / cull.WorkgroupSize
}

// Prepare uploads this frame's records and planes and resets the counter
// and every command slot.
func (p *CullPass) Prepare(records []cull.ChunkCullData, planes cull.Frustum) error {
	p.Slots = uint32(len(records))
	if p.Slots == 0 {
		return nil
	}
	f := buildCullFrame(records, planes)
	p.Device.GetQueue().WriteBuffer(p.ParamsBuf, 0, f.params)

	recreated := ensureBuffer(p.Device, "CullRecords", &p.RecordsBuf, f.records, wgpu.BufferUsageStorage, recordHeadroom*cull.ChunkCullDataSize)
	if ensureBuffer(p.Device, "CullCommands", &p.CommandsBuf, f.commands, wgpu.BufferUsageStorage|wgpu.BufferUsageIndirect, recordHeadroom*cull.DrawIndexedIndirectSize) {
		recreated = true
	}
	if ensureBuffer(p.Device, "CullCounter", &p.CounterBuf, f.counter, wgpu.BufferUsageStorage|wgpu.BufferUsageIndirect, 0) {
		recreated = true
	}
	if !recreated && p.BindGroup1 != nil {
		return nil
	}

	var err error
	p.BindGroup1, err = p.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Cull Data BG",
		Layout: p.DataBGL,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: p.RecordsBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: p.CommandsBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: p.CounterBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create cull data bind group: %w", err)
	}
	return nil
}

func (p *CullPass) Dispatch(encoder *wgpu.CommandEncoder) error {
	if p.Slots == 0 {
		return nil
	}
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(p.Pipeline)
	pass.SetBindGroup(0, p.BindGroup0, nil)
	pass.SetBindGroup(1, p.BindGroup1, nil)
	pass.DispatchWorkgroups(workgroups(p.Slots), 1, 1)
	return pass.End()
}

// indirectEncoder is the part of a render pass the cull draws go through.
type indirectEncoder interface {
	DrawIndexedIndirect(indirectBuffer *wgpu.Buffer, indirectOffset uint64)
	MultiDrawIndexedIndirectCount(encoder *wgpu.RenderPassEncoder, buffer wgpu.Buffer, offset uint64, countBuffer wgpu.Buffer, countBufferOffset uint64, maxCount uint32)
}

// Draw issues the culled draws. Geometry buffers and bind groups must
// already be set on pass.
func (p *CullPass) Draw(pass *wgpu.RenderPassEncoder) {
	p.draw(pass, pass)
}

func (p *CullPass) draw(enc indirectEncoder, pass *wgpu.RenderPassEncoder) {
	if p.Slots == 0 {
		return
	}
	if p.MultiDraw {
		enc.MultiDrawIndexedIndirectCount(pass, *p.CommandsBuf, 0, *p.CounterBuf, 0, p.Slots)
		return
	}
	for i := uint32(0); i < p.Slots; i++ {
		enc.DrawIndexedIndirect(p.CommandsBuf, uint64(i)*cull.DrawIndexedIndirectSize)
	}
}
