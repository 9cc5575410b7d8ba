package app

import (
	"context"
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gekko3d/blockcraft"
	"github.com/gekko3d/blockcraft/blockrt/rt/atlas"
	"github.com/gekko3d/blockcraft/blockrt/rt/block"
	"github.com/gekko3d/blockcraft/blockrt/rt/core"
	"github.com/gekko3d/blockcraft/blockrt/rt/cull"
	"github.com/gekko3d/blockcraft/blockrt/rt/gen"
	"github.com/gekko3d/blockcraft/blockrt/rt/gpu"
	"github.com/gekko3d/blockcraft/blockrt/rt/mesh"
	"github.com/gekko3d/blockcraft/blockrt/rt/shaders"
	"github.com/gekko3d/blockcraft/blockrt/rt/stream"
)

const depthFormat = wgpu.TextureFormatDepth32Float

type App struct {
	Window   *glfw.Window
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Surface  *wgpu.Surface
	Config   *wgpu.SurfaceConfiguration

	BlockPipeline *wgpu.RenderPipeline
	DepthTexture  *wgpu.Texture
	DepthView     *wgpu.TextureView

	BufferManager *gpu.BufferManager
	CullPass      *gpu.CullPass

	Pool     *stream.Pool
	Stream   *stream.Manager
	Camera   *core.CameraState
	Profiler *Profiler

	Settings *blockcraft.Config
	Log      blockcraft.Logger
	Registry prometheus.Registerer

	GPUCull       bool
	MouseCaptured bool
	DebugMode     bool
	Selected      block.Block

	Time       float64
	LastTime   float64
	statsTimer float64

	drawList []stream.Drawable
	terrain  *gen.Terrain
	sky      [4]float32
	cancel   context.CancelFunc
}

func NewApp(window *glfw.Window, cfg *blockcraft.Config, log blockcraft.Logger, reg prometheus.Registerer) *App {
	cam := core.NewCameraState()
	cam.FovDegrees = cfg.Render.FovDegrees
	cam.Near = cfg.Render.Near
	cam.Far = cfg.Render.Far
	return &App{
		Window:    window,
		Camera:    cam,
		Profiler:  NewProfiler(),
		Settings:  cfg,
		Log:       blockcraft.OrNop(log),
		Registry:  reg,
		GPUCull:   cfg.Render.GPUCull,
		DebugMode: cfg.Debug,
		Selected:  block.Cobblestone,
		sky:       cfg.Render.SkyColor,
	}
}

func (a *App) Init() error {
	a.Instance = wgpu.CreateInstance(nil)
	a.Surface = a.Instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(a.Window))

	adapter, err := a.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: a.Surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fmt.Errorf("request adapter: %w", err)
	}
	a.Adapter = adapter

	var features []wgpu.FeatureName
	multiDraw := adapter.HasFeature(wgpu.NativeFeatureMultiDrawIndirectCount)
	if multiDraw {
		features = append(features, wgpu.NativeFeatureMultiDrawIndirectCount)
	}
	a.Device, err = adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:            "Block Device",
		RequiredFeatures: features,
	})
	if err != nil {
		return fmt.Errorf("request device: %w", err)
	}
	a.Queue = a.Device.GetQueue()

	width, height := a.Window.GetFramebufferSize()
	caps := a.Surface.GetCapabilities(adapter)
	a.Config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: presentMode(caps.PresentModes, a.Settings.Render.VSync),
		AlphaMode:   caps.AlphaModes[0],
	}
	a.Surface.Configure(adapter, a.Device, a.Config)
	a.setupDepth(width, height)

	a.BufferManager, err = gpu.NewBufferManager(a.Device, a.Log)
	if err != nil {
		return err
	}
	img := atlas.Procedural()
	if path := a.Settings.Render.AtlasPath; path != "" {
		if img, err = atlas.Load(path); err != nil {
			return err
		}
	}
	if err := a.BufferManager.UploadAtlas(img); err != nil {
		return err
	}

	if err := a.createBlockPipeline(); err != nil {
		return err
	}
	if err := a.BufferManager.CreateBindGroups(a.BlockPipeline); err != nil {
		return err
	}

	a.CullPass, err = gpu.NewCullPass(a.Device, shaders.CullWGSL)
	if err != nil {
		return err
	}
	a.CullPass.MultiDraw = multiDraw
	if !multiDraw {
		a.Log.Warnf("adapter lacks multi draw indirect count, drawing culled chunks one slot at a time")
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	sc := a.Settings.Stream
	poolLog := a.Log
	if dl, ok := a.Log.(*blockcraft.DefaultLogger); ok {
		poolLog = dl.WithPrefix("pool")
	}
	a.terrain = gen.NewTerrain(a.Settings.World.Seed)
	a.Pool = stream.NewPool(ctx, sc.Workers, sc.QueueSize, a.terrain, poolLog)
	a.Stream = stream.NewManager(
		stream.OptionsFromConfig(sc, a.Settings.Render.GreedyMeshing),
		a.Pool,
		a.BufferManager,
		stream.NewMetrics(a.Registry),
		a.Log,
	)

	// Spawn a few blocks above the ground or the sea.
	pos := a.Camera.Position
	h, _ := a.terrain.Height(int(pos.X()), int(pos.Z()))
	a.Camera.Position[1] = float32(max(h, gen.SeaLevel) + 3)

	a.LastTime = glfw.GetTime()
	a.Log.Infof("renderer ready: %dx%d, gpu cull %v, multi draw %v, greedy meshing %v", width, height, a.GPUCull, multiDraw, a.Settings.Render.GreedyMeshing)
	return nil
}

// presentMode honours vsync=false only when the surface offers a mode
// without it.
func presentMode(available []wgpu.PresentMode, vsync bool) wgpu.PresentMode {
	if vsync {
		return wgpu.PresentModeFifo
	}
	for _, want := range []wgpu.PresentMode{wgpu.PresentModeMailbox, wgpu.PresentModeImmediate} {
		for _, m := range available {
			if m == want {
				return m
			}
		}
	}
	return wgpu.PresentModeFifo
}

func (a *App) createBlockPipeline() error {
	module, err := a.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Block VS/FS",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.BlockWGSL},
	})
	if err != nil {
		return fmt.Errorf("failed to create block shader module: %w", err)
	}
	defer module.Release()

	a.BlockPipeline, err = a.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "Block Pipeline",
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: mesh.VertexStride,
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x3, Offset: mesh.OffsetPos, ShaderLocation: 0},
					{Format: wgpu.VertexFormatFloat32x2, Offset: mesh.OffsetUV, ShaderLocation: 1},
					{Format: wgpu.VertexFormatFloat32, Offset: mesh.OffsetAO, ShaderLocation: 2},
					{Format: wgpu.VertexFormatUint32, Offset: mesh.OffsetTexIndex, ShaderLocation: 3},
					{Format: wgpu.VertexFormatFloat32, Offset: mesh.OffsetLight, ShaderLocation: 4},
				},
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    a.Config.Format,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeBack,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            depthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create block pipeline: %w", err)
	}
	return nil
}

func (a *App) setupDepth(w, h int) {
	if w == 0 || h == 0 {
		return
	}
	if a.DepthTexture != nil {
		a.DepthView.Release()
		a.DepthTexture.Release()
	}
	var err error
	a.DepthTexture, err = a.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Depth",
		Size:          wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        depthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		panic(err)
	}
	a.DepthView, err = a.DepthTexture.CreateView(nil)
	if err != nil {
		panic(err)
	}
}

func (a *App) Resize(w, h int) {
	if w > 0 && h > 0 {
		a.Config.Width = uint32(w)
		a.Config.Height = uint32(h)
		a.Surface.Configure(a.Adapter, a.Device, a.Config)
		a.setupDepth(w, h)
	}
}

// Update advances one frame: camera input, streaming, uniforms and culling.
func (a *App) Update() {
	now := glfw.GetTime()
	dt := float32(now - a.LastTime)
	a.LastTime = now
	a.Time += float64(dt)

	a.handleMovement(dt)

	a.Profiler.BeginScope("stream")
	a.Stream.Tick(a.Camera.Position)
	a.Profiler.EndScope("stream")

	a.Camera.Aspect = float32(a.Config.Width) / float32(a.Config.Height)
	if a.Camera.Aspect == 0 || math.IsNaN(float64(a.Camera.Aspect)) {
		a.Camera.Aspect = 1
	}
	a.BufferManager.UpdateCamera(a.Camera.GPUViewProj())
	a.sky = a.skyColor()
	a.BufferManager.UpdateSky(a.sky, float32(a.Time), a.Underwater())

	a.Profiler.BeginScope("cull")
	a.cull()
	a.Profiler.EndScope("cull")

	a.statsTimer += float64(dt)
	if a.DebugMode && a.statsTimer >= 1 {
		a.statsTimer = 0
		st := a.Stream.Stats()
		a.Profiler.SetCount("chunks", st.Entries)
		a.Profiler.SetCount("loaded", st.Loaded)
		a.Profiler.SetCount("failed", st.Failed)
		a.Profiler.SetCount("gpu_meshes", a.BufferManager.Live())
		a.Profiler.SetCount("pending_jobs", st.Pending)
		a.Log.Debugf("%s", a.Profiler)
	}
}

// skyColor tints the configured sky by the biome under the eye.
func (a *App) skyColor() [4]float32 {
	base := a.Settings.Render.SkyColor
	if a.terrain == nil {
		return base
	}
	p := a.Camera.Position
	wx, wz := int(math.Floor(float64(p.X()))), int(math.Floor(float64(p.Z())))
	h, _ := a.terrain.Height(wx, wz)
	return a.terrain.BiomeAt(wx, wz, h).FogColor(base)
}

// Underwater reports whether the eye is inside a liquid block.
func (a *App) Underwater() bool {
	p := a.Camera.Position
	b := a.Stream.World().Block(int(math.Floor(float64(p.X()))), int(math.Floor(float64(p.Y()))), int(math.Floor(float64(p.Z()))))
	return b.IsLiquid()
}

func (a *App) cull() {
	drawables := a.Stream.Visible()
	planes := cull.ExtractFrustum(a.Camera.ViewProj())

	if a.GPUCull {
		records := make([]cull.ChunkCullData, len(drawables))
		for i, d := range drawables {
			records[i] = d.CullData()
		}
		if err := a.CullPass.Prepare(records, planes); err != nil {
			a.Log.Errorf("cull prepare: %v", err)
		}
		a.Profiler.SetCount("submitted", len(records))
		return
	}

	a.drawList = a.drawList[:0]
	for _, d := range drawables {
		if cull.SphereInFrustum(d.Sphere, planes) {
			a.drawList = append(a.drawList, d)
		}
	}
	a.Profiler.SetCount("visible", len(a.drawList))
}

func (a *App) handleMovement(dt float32) {
	if !a.MouseCaptured {
		return
	}
	axis := func(pos, neg glfw.Key) float32 {
		var v float32
		if a.Window.GetKey(pos) == glfw.Press {
			v++
		}
		if a.Window.GetKey(neg) == glfw.Press {
			v--
		}
		return v
	}
	a.Camera.Move(
		axis(glfw.KeyW, glfw.KeyS),
		axis(glfw.KeyD, glfw.KeyA),
		axis(glfw.KeySpace, glfw.KeyLeftShift),
		dt,
	)
}

func (a *App) Render() {
	nextTexture, err := a.Surface.GetCurrentTexture()
	if err != nil {
		a.Log.Errorf("GetCurrentTexture failed: %v", err)
		return
	}
	defer nextTexture.Release()

	view, err := nextTexture.CreateView(nil)
	if err != nil {
		a.Log.Errorf("CreateView failed: %v", err)
		return
	}
	defer view.Release()

	encoder, err := a.Device.CreateCommandEncoder(nil)
	if err != nil {
		a.Log.Errorf("CreateCommandEncoder failed: %v", err)
		return
	}

	a.Profiler.BeginScope("render")
	if a.GPUCull {
		if err := a.CullPass.Dispatch(encoder); err != nil {
			a.Log.Errorf("cull pass End failed: %v", err)
		}
	}

	sky := a.sky
	rPass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: float64(sky[0]), G: float64(sky[1]), B: float64(sky[2]), A: 1},
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            a.DepthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1,
		},
	})
	rPass.SetPipeline(a.BlockPipeline)
	a.BufferManager.Bind(rPass)
	if a.GPUCull {
		a.CullPass.Draw(rPass)
	} else {
		for _, d := range a.drawList {
			rPass.DrawIndexed(d.Mesh.IndexCount, 1, d.Mesh.FirstIndex, d.Mesh.BaseVertex, 0)
		}
	}
	if err := rPass.End(); err != nil {
		a.Log.Errorf("render pass End failed: %v", err)
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		a.Log.Errorf("encoder Finish failed: %v", err)
		return
	}
	a.Queue.Submit(cmd)
	a.Surface.Present()
	a.Profiler.EndScope("render")
}

// HandleClick breaks the targeted block on left click and places the
// selected block against the targeted face on right click.
func (a *App) HandleClick(button glfw.MouseButton, action glfw.Action) {
	if !a.MouseCaptured || action != glfw.Press {
		return
	}
	hit, ok := Raycast(a.Stream.World(), a.Camera.Position, a.Camera.GetForward(), ReachDistance)
	if !ok {
		return
	}

	var err error
	switch button {
	case glfw.MouseButtonLeft:
		if hit.Kind == block.Bedrock {
			return
		}
		err = a.Stream.SetBlock(hit.Block[0], hit.Block[1], hit.Block[2], block.Air)
	case glfw.MouseButtonRight:
		if a.occupiesCamera(hit.Before) {
			return
		}
		err = a.Stream.SetBlock(hit.Before[0], hit.Before[1], hit.Before[2], a.Selected)
	}
	if err != nil {
		a.Log.Warnf("edit at %v: %v", hit.Block, err)
	}
}

func (a *App) occupiesCamera(cell [3]int) bool {
	p := a.Camera.Position
	eye := mgl32.Vec3{float32(cell[0]) + 0.5, float32(cell[1]) + 0.5, float32(cell[2]) + 0.5}
	return eye.Sub(p).Len() < 0.9
}

// CycleSelected steps through the placeable blocks.
func (a *App) CycleSelected(delta int) {
	if delta == 0 {
		return
	}
	n := int(block.Count)
	b := int(a.Selected)
	for {
		b = ((b+delta)%n + n) % n
		if blk := block.Block(b); blk.IsSolid() && blk != block.Bedrock {
			a.Selected = blk
			a.Log.Infof("selected %s", blk)
			return
		}
	}
}

// Close stops the workers and releases GPU meshes.
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.Pool != nil {
		if err := a.Pool.Close(); err != nil {
			a.Log.Warnf("worker pool: %v", err)
		}
	}
	if a.Stream != nil {
		a.Stream.Close()
	}
}
