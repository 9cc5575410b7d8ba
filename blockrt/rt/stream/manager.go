package stream

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/gekko3d/blockcraft"
	"github.com/gekko3d/blockcraft/blockrt/rt/block"
	"github.com/gekko3d/blockcraft/blockrt/rt/cull"
	"github.com/gekko3d/blockcraft/blockrt/rt/mesh"
	"github.com/gekko3d/blockcraft/blockrt/rt/world"
)

var ErrChunkNotLoaded = errors.New("stream: chunk not loaded")

// State is where a chunk coordinate is in its load cycle. Coordinates
// without an entry are unloaded.
type State int

const (
	Queued State = iota
	Generating
	Generated
	Meshing
	Meshed
	Loaded
	Unloading
	Failed
)

var stateNames = [...]string{"queued", "generating", "generated", "meshing", "meshed", "loaded", "unloading", "failed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// GPUMesh is an uploaded chunk mesh inside the shared vertex and index buffers.
type GPUMesh struct {
	ID          uint64
	BaseVertex  int32
	FirstIndex  uint32
	IndexCount  uint32
	VertexCount uint32
}

// MeshUploader owns GPU storage for chunk meshes. It is only called from
// the goroutine driving the Manager.
type MeshUploader interface {
	Upload(c world.Coord, m *mesh.Mesh) (GPUMesh, error)
	Release(h GPUMesh)
}

type Options struct {
	LoadDistance    int
	UnloadDistance  int
	JobsPerTick     int
	ResultsPerFrame int
	UploadsPerFrame int
	MaxRetries      int
	Greedy          bool
}

func OptionsFromConfig(c blockcraft.StreamConfig, greedy bool) Options {
	return Options{
		LoadDistance:    c.LoadDistance,
		UnloadDistance:  c.UnloadDistance,
		JobsPerTick:     c.JobsPerTick,
		ResultsPerFrame: c.ResultsPerFrame,
		UploadsPerFrame: c.UploadsPerFrame,
		MaxRetries:      c.MaxRetries,
		Greedy:          greedy,
	}
}

// Drawable is a loaded chunk ready for culling and drawing.
type Drawable struct {
	Coord  world.Coord
	Mesh   GPUMesh
	Sphere cull.Sphere
}

func (d Drawable) CullData() cull.ChunkCullData {
	return cull.ChunkCullData{
		Sphere:     d.Sphere,
		IndexCount: d.Mesh.IndexCount,
		BaseVertex: d.Mesh.BaseVertex,
		BaseIndex:  d.Mesh.FirstIndex,
	}
}

type entry struct {
	coord   world.Coord
	state   State
	token   uuid.UUID // in-flight job, uuid.Nil when idle
	chunk   *world.Chunk
	mesh    *mesh.Mesh // waiting for upload
	gpu     *GPUMesh
	sphere  cull.Sphere
	retries int
	// dirty asks for a remesh once the current one is uploaded.
	dirty bool
}

func (e *entry) hasMesh() bool {
	return e.state == Meshing || e.state == Meshed || e.state == Loaded
}

// Manager owns every loaded chunk. Other components read blocks through
// World and change them through SetBlock. It is not safe for concurrent
// use; workers only ever see copies.
type Manager struct {
	opts     Options
	pool     *Pool
	uploader MeshUploader
	metrics  *Metrics
	log      blockcraft.Logger

	world   *world.World
	entries map[world.Coord]*entry
	center  world.Coord
}

func NewManager(opts Options, pool *Pool, uploader MeshUploader, metrics *Metrics, log blockcraft.Logger) *Manager {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Manager{
		opts:     opts,
		pool:     pool,
		uploader: uploader,
		metrics:  metrics,
		log:      blockcraft.OrNop(log),
		world:    world.New(),
		entries:  make(map[world.Coord]*entry),
	}
}

// World is a read-only view of the loaded blocks.
func (m *Manager) World() world.BlockSource { return m.world }

func (m *Manager) State(c world.Coord) (State, bool) {
	e, ok := m.entries[c]
	if !ok {
		return 0, false
	}
	return e.state, true
}

// Tick runs one frame of streaming: apply finished jobs, schedule new
// work around pos and upload finished meshes.
func (m *Manager) Tick(pos mgl32.Vec3) {
	m.Drain()
	m.Update(pos)
	m.Upload()
}

// Update moves the streaming window to the viewer at pos, evicts chunks
// beyond the unload distance and submits at most JobsPerTick jobs.
func (m *Manager) Update(pos mgl32.Vec3) {
	m.center, _, _ = world.ChunkOf(int(math.Floor(float64(pos.X()))), int(math.Floor(float64(pos.Z()))))

	for c, e := range m.entries {
		if e.state != Unloading && c.Chebyshev(m.center) > m.opts.UnloadDistance {
			m.evict(e)
		}
	}

	l := int32(m.opts.LoadDistance)
	for dz := -l; dz <= l; dz++ {
		for dx := -l; dx <= l; dx++ {
			c := m.center.Add(dx, dz)
			e, ok := m.entries[c]
			switch {
			case !ok:
				m.entries[c] = &entry{coord: c, state: Queued}
			case e.state == Unloading:
				// Back in range before the old job finished; its result will
				// not match the new token.
				*e = entry{coord: c, state: Queued}
			}
		}
	}

	m.dispatch()
	m.updateLoadedGauge()
}

func (m *Manager) updateLoadedGauge() {
	loaded := 0
	for _, e := range m.entries {
		if e.state == Loaded {
			loaded++
		}
	}
	m.metrics.chunksLoaded.Set(float64(loaded))
}

func (m *Manager) inRange(c world.Coord) bool {
	return c.Chebyshev(m.center) <= m.opts.LoadDistance
}

// byDistance returns entries nearest the viewer first.
func (m *Manager) byDistance() []*entry {
	out := make([]*entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b *entry) int {
		if d := cmp.Compare(a.coord.Chebyshev(m.center), b.coord.Chebyshev(m.center)); d != 0 {
			return d
		}
		if d := cmp.Compare(a.coord.X, b.coord.X); d != 0 {
			return d
		}
		return cmp.Compare(a.coord.Z, b.coord.Z)
	})
	return out
}

func (m *Manager) dispatch() {
	budget := m.opts.JobsPerTick
	for _, e := range m.byDistance() {
		if budget <= 0 {
			return
		}
		if !m.inRange(e.coord) {
			continue
		}
		var err error
		switch {
		case e.state == Queued:
			err = m.submit(e, Job{Kind: JobGenerate, Coord: e.coord}, Generating)
		case m.wantsMesh(e):
			err = m.submit(e, Job{
				Kind:     JobMesh,
				Coord:    e.coord,
				Snapshot: m.world.Neighborhood(e.coord),
				Version:  e.chunk.Version(),
				Options:  mesh.Options{Greedy: m.opts.Greedy},
			}, Meshing)
		default:
			continue
		}
		if errors.Is(err, ErrQueueFull) {
			m.metrics.queueFull.Inc()
			return
		}
		if err != nil {
			m.log.Errorf("submit %s: %v", e.coord, err)
			return
		}
		budget--
	}
}

func (m *Manager) submit(e *entry, j Job, next State) error {
	j.Token = uuid.New()
	if err := m.pool.Submit(j); err != nil {
		return err
	}
	m.metrics.jobsSubmitted.WithLabelValues(j.Kind.String()).Inc()
	e.token = j.Token
	if j.Kind == JobMesh {
		e.dirty = false
	}
	e.state = next
	return nil
}

// wantsMesh holds for chunks that need a (re)mesh and whose neighbours in
// range are generated, so border faces are not built against missing data.
func (m *Manager) wantsMesh(e *entry) bool {
	if !(e.state == Generated || (e.state == Loaded && e.dirty)) {
		return false
	}
	for dz := int32(-1); dz <= 1; dz++ {
		for dx := int32(-1); dx <= 1; dx++ {
			c := e.coord.Add(dx, dz)
			if c == e.coord || !m.inRange(c) {
				continue
			}
			n, ok := m.entries[c]
			if !ok {
				return false
			}
			if n.chunk == nil && n.state != Failed {
				return false
			}
		}
	}
	return true
}

// Drain applies at most ResultsPerFrame finished jobs.
func (m *Manager) Drain() int {
	n := 0
	for n < m.opts.ResultsPerFrame {
		r, ok := m.pool.TryResult()
		if !ok {
			break
		}
		m.apply(r)
		n++
	}
	return n
}

func (m *Manager) discard(r Result, why string) {
	m.metrics.resultsDiscarded.Inc()
	m.log.Debugf("discard %s result for %s: %s", r.Job.Kind, r.Job.Coord, why)
}

func (m *Manager) apply(r Result) {
	e, ok := m.entries[r.Job.Coord]
	if !ok || e.token != r.Job.Token {
		m.discard(r, "stale token")
		return
	}
	e.token = uuid.Nil
	if e.state == Unloading {
		delete(m.entries, e.coord)
		m.discard(r, "chunk unloaded")
		return
	}
	if r.Err != nil {
		m.fail(e, r)
		return
	}

	switch r.Job.Kind {
	case JobGenerate:
		e.chunk = r.Chunk
		e.state = Generated
		e.retries = 0
		m.world.Put(r.Chunk)
		// Neighbours meshed against air on this side.
		for dz := int32(-1); dz <= 1; dz++ {
			for dx := int32(-1); dx <= 1; dx++ {
				if n, ok := m.entries[e.coord.Add(dx, dz)]; ok && n != e && n.hasMesh() {
					n.dirty = true
				}
			}
		}
	case JobMesh:
		if r.Chunk != nil && e.chunk.Version() == r.Job.Version {
			e.chunk.CopyLight(r.Chunk)
			e.chunk.MarkMeshed()
		}
		e.mesh = r.Mesh
		e.state = Meshed
		e.retries = 0
	}
}

func (m *Manager) fail(e *entry, r Result) {
	kind := r.Job.Kind.String()
	m.metrics.jobsFailed.WithLabelValues(kind).Inc()
	e.retries++
	if e.retries > m.opts.MaxRetries {
		m.log.Errorf("chunk %s failed after %d attempts: %v", e.coord, e.retries, r.Err)
		m.metrics.chunksFailed.Inc()
		m.releaseGPU(e)
		e.mesh = nil
		e.state = Failed
		return
	}
	m.log.Warnf("%s job for %s failed (attempt %d): %v", kind, e.coord, e.retries, r.Err)
	switch {
	case r.Job.Kind == JobGenerate:
		e.state = Queued
	case e.gpu != nil:
		e.state = Loaded
		e.dirty = true
	default:
		e.state = Generated
	}
}

// Upload moves at most UploadsPerFrame finished meshes to the GPU. It must
// run on the render thread.
func (m *Manager) Upload() int {
	n := 0
	for _, e := range m.byDistance() {
		if n >= m.opts.UploadsPerFrame {
			break
		}
		if e.state != Meshed {
			continue
		}
		if err := m.upload(e); err != nil {
			m.log.Warnf("upload %s: %v", e.coord, err)
			break
		}
		n++
	}
	if n > 0 {
		m.updateLoadedGauge()
	}
	return n
}

func (m *Manager) upload(e *entry) error {
	var h *GPUMesh
	if !e.mesh.Empty() {
		g, err := m.uploader.Upload(e.coord, e.mesh)
		if err != nil {
			return err
		}
		h = &g
	}
	m.releaseGPU(e)
	if h != nil {
		e.gpu = h
		e.sphere = cull.BoundingSphere(e.mesh.Min, e.mesh.Max)
		m.metrics.gpuMeshes.Inc()
	}
	e.mesh = nil
	e.state = Loaded
	return nil
}

func (m *Manager) releaseGPU(e *entry) {
	if e.gpu == nil {
		return
	}
	m.uploader.Release(*e.gpu)
	e.gpu = nil
	m.metrics.gpuMeshes.Dec()
}

func (m *Manager) evict(e *entry) {
	m.releaseGPU(e)
	m.world.Remove(e.coord)
	e.chunk = nil
	e.mesh = nil
	if e.token != uuid.Nil {
		// Keep the entry until the in-flight result comes back.
		e.state = Unloading
		return
	}
	delete(m.entries, e.coord)
}

// Visible lists every chunk with a mesh on the GPU.
func (m *Manager) Visible() []Drawable {
	out := make([]Drawable, 0, len(m.entries))
	for _, e := range m.entries {
		if e.gpu != nil {
			out = append(out, Drawable{Coord: e.coord, Mesh: *e.gpu, Sphere: e.sphere})
		}
	}
	return out
}

// SetBlock edits a loaded block and schedules remeshes: the edited chunk,
// neighbours sharing the touched border and, when the edit can change
// light, every neighbour since light reaches across the border.
func (m *Manager) SetBlock(wx, wy, wz int, b block.Block) error {
	c, lx, lz := world.ChunkOf(wx, wz)
	e, ok := m.entries[c]
	if !ok || e.chunk == nil || wy < 0 || wy >= world.Height {
		return fmt.Errorf("%w: %d,%d,%d", ErrChunkNotLoaded, wx, wy, wz)
	}
	old := e.chunk.Block(lx, wy, lz)
	if old == b {
		return nil
	}
	e.chunk.SetBlock(lx, wy, lz, b)
	m.markDirty(e)

	lightChanged := old.IsOpaque() != b.IsOpaque() || old.Emission() != b.Emission()
	onEdge := func(d int32, l, size int) bool {
		switch d {
		case -1:
			return l == 0
		case 1:
			return l == size-1
		}
		return true
	}
	for dz := int32(-1); dz <= 1; dz++ {
		for dx := int32(-1); dx <= 1; dx++ {
			if dx == 0 && dz == 0 {
				continue
			}
			if !lightChanged && !(onEdge(dx, lx, world.SizeX) && onEdge(dz, lz, world.SizeZ)) {
				continue
			}
			if n, ok := m.entries[c.Add(dx, dz)]; ok && n.chunk != nil {
				n.chunk.Invalidate()
				m.markDirty(n)
			}
		}
	}
	return nil
}

func (m *Manager) markDirty(e *entry) {
	if e.hasMesh() {
		e.dirty = true
	}
}

// Settled reports whether every chunk in range is loaded (or failed) with
// no remesh outstanding.
func (m *Manager) Settled() bool {
	for c, e := range m.entries {
		if !m.inRange(c) {
			continue
		}
		if e.state != Loaded && e.state != Failed {
			return false
		}
		if e.dirty {
			return false
		}
	}
	return true
}

type Stats struct {
	Entries   int
	Loaded    int
	Failed    int
	GPUMeshes int
	Pending   int
}

func (m *Manager) Stats() Stats {
	s := Stats{Entries: len(m.entries), Pending: m.pool.Pending()}
	for _, e := range m.entries {
		switch e.state {
		case Loaded:
			s.Loaded++
		case Failed:
			s.Failed++
		}
		if e.gpu != nil {
			s.GPUMeshes++
		}
	}
	return s
}

// Close releases every GPU mesh. The pool is owned by the caller.
func (m *Manager) Close() {
	for _, e := range m.entries {
		m.releaseGPU(e)
	}
}
