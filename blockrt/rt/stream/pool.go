// Package stream loads, meshes and evicts chunks around the viewer.
package stream

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/gekko3d/blockcraft"
	"github.com/gekko3d/blockcraft/blockrt/rt/gen"
	"github.com/gekko3d/blockcraft/blockrt/rt/light"
	"github.com/gekko3d/blockcraft/blockrt/rt/mesh"
	"github.com/gekko3d/blockcraft/blockrt/rt/world"
)

var (
	ErrQueueFull  = errors.New("stream: job queue full")
	ErrPoolClosed = errors.New("stream: pool closed")
)

type JobKind int

const (
	JobGenerate JobKind = iota
	JobMesh
)

func (k JobKind) String() string {
	if k == JobMesh {
		return "mesh"
	}
	return "generate"
}

// Job is a unit of work handed to a worker. Everything it references is
// owned by the job until its Result comes back.
type Job struct {
	Kind  JobKind
	Coord world.Coord
	Token uuid.UUID

	// Mesh jobs: a detached copy of the chunk and its neighbours and the
	// block version of the chunk when the copy was taken.
	Snapshot *world.World
	Version  uint64
	Options  mesh.Options
}

type Result struct {
	Job Job
	// Generate: the new chunk. Mesh: the snapshot's copy of the chunk with
	// freshly propagated light.
	Chunk *world.Chunk
	Mesh  *mesh.Mesh
	Err   error
}

// Pool is a fixed set of workers fed through a bounded queue. Submit never
// blocks; completed work is collected with TryResult.
type Pool struct {
	jobs    chan Job
	results chan Result
	gen     gen.Generator
	log     blockcraft.Logger

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
	closed  atomic.Bool
	pending atomic.Int32
}

func NewPool(ctx context.Context, workers, queueSize int, g gen.Generator, log blockcraft.Logger) *Pool {
	workers = max(1, min(workers, blockcraft.MaxWorkers))
	queueSize = max(1, queueSize)

	ctx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(ctx)
	p := &Pool{
		jobs:    make(chan Job, queueSize),
		results: make(chan Result, queueSize+workers),
		gen:     g,
		log:     blockcraft.OrNop(log),
		ctx:     gctx,
		cancel:  cancel,
		group:   group,
	}
	for i := 0; i < workers; i++ {
		group.Go(p.worker)
	}
	return p
}

// Submit queues j or fails with ErrQueueFull when the queue is at capacity.
func (p *Pool) Submit(j Job) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	p.pending.Add(1)
	select {
	case p.jobs <- j:
		return nil
	default:
		p.pending.Add(-1)
		return ErrQueueFull
	}
}

// TryResult returns a finished job without blocking.
func (p *Pool) TryResult() (Result, bool) {
	select {
	case r := <-p.results:
		return r, true
	default:
		return Result{}, false
	}
}

// Pending counts submitted jobs whose results are not yet ready for TryResult.
func (p *Pool) Pending() int { return int(p.pending.Load()) }

// Close stops the workers. Queued jobs are dropped.
func (p *Pool) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	p.cancel()
	err := p.group.Wait()
	p.log.Debugf("worker pool stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (p *Pool) worker() error {
	for {
		select {
		case <-p.ctx.Done():
			return p.ctx.Err()
		case j := <-p.jobs:
			r := p.run(j)
			select {
			case p.results <- r:
				p.pending.Add(-1)
			case <-p.ctx.Done():
				return p.ctx.Err()
			}
		}
	}
}

// run executes one job. A panic becomes the job's error so a broken chunk
// never takes the process down.
func (p *Pool) run(j Job) (r Result) {
	r.Job = j
	defer func() {
		if rec := recover(); rec != nil {
			r.Chunk, r.Mesh = nil, nil
			r.Err = fmt.Errorf("%s job %s panicked: %v", j.Kind, j.Coord, rec)
		}
	}()

	switch j.Kind {
	case JobGenerate:
		ch := world.NewChunk(j.Coord)
		p.gen.Generate(ch)
		r.Chunk = ch
	case JobMesh:
		light.Propagate(j.Snapshot)
		r.Mesh = mesh.Build(j.Snapshot, j.Coord, j.Options)
		r.Chunk, _ = j.Snapshot.Chunk(j.Coord)
	default:
		r.Err = fmt.Errorf("unknown job kind %d", j.Kind)
	}
	return r
}
