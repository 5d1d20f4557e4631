package gpuval

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpuval/internal/parallel"
	"github.com/gogpu/gpuval/tracker"
)

// RHI is a validating wrapper around a Backend. Every call records the
// barrier operations it implies into the calling context's tracker before
// forwarding. Recorded operations are replayed when command lists are
// submitted, or inline in bypass mode.
//
// Thread safety: an RHI is safe for concurrent use. Each Context belongs to
// a single recording goroutine.
type RHI struct {
	engine  *tracker.Engine
	backend Backend
	cfg     tracker.Config
	workers int

	frameID atomic.Uint64

	poolOnce sync.Once
	pool     *parallel.Pool
}

// NewRHI creates a validation layer.
//
// Example:
//
//	rhi, err := gpuval.NewRHI(gpuval.WithFailureHandler(func(f tracker.Failure) {
//		log.Println(f)
//	}))
//	if err != nil {
//		return err
//	}
//	defer rhi.Close()
func NewRHI(opts ...Option) (*RHI, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.backend == nil {
		o.backend = NopBackend{}
	}

	var engineOpts []tracker.Option
	if o.onFailure != nil {
		engineOpts = append(engineOpts, tracker.WithFailureHandler(o.onFailure))
	}
	if o.onBreak != nil {
		engineOpts = append(engineOpts, tracker.WithBreakHandler(o.onBreak))
	}
	engine, err := tracker.NewEngine(o.config, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("gpuval: %w", err)
	}

	Logger().Info("gpuval: validation enabled", "backend", o.backend.Name())
	return &RHI{
		engine:  engine,
		backend: o.backend,
		cfg:     o.config,
		workers: o.workers,
	}, nil
}

// Engine returns the tracker engine.
func (r *RHI) Engine() *tracker.Engine { return r.engine }

// Backend returns the wrapped backend.
func (r *RHI) Backend() Backend { return r.backend }

// Config returns the validation configuration.
func (r *RHI) Config() tracker.Config { return r.cfg }

// Failures returns the unique validation failures reported so far.
func (r *RHI) Failures() []tracker.Failure { return r.engine.Failures() }

// FrameID returns the number of EndFrame calls so far.
func (r *RHI) FrameID() uint64 { return r.frameID.Load() }

// EndFrame advances the frame counter. Non multi-frame uniform buffers
// created before the call are stale afterwards.
func (r *RHI) EndFrame() {
	r.frameID.Add(1)
	r.backend.EndFrame()
}

// Close stops the recording workers. The RHI must not be used afterwards.
func (r *RHI) Close() {
	// A pool that was never started is never started afterwards.
	r.poolOnce.Do(func() {})
	if r.pool != nil {
		r.pool.Close()
	}
}

func (r *RHI) report(kind tracker.Kind, res *tracker.Resource, format string, args ...any) {
	r.engine.Report(kind, res, format, args...)
}

// LockMode selects CPU access for LockBuffer.
type LockMode uint8

const (
	LockReadOnly LockMode = iota
	LockWriteOnly
)

func (m LockMode) String() string {
	if m == LockWriteOnly {
		return "WriteOnly"
	}
	return "ReadOnly"
}

// LockBuffer maps b for CPU access. Non-volatile buffers cannot be locked
// for writing while ctx is inside a render pass.
func (r *RHI) LockBuffer(ctx *Context, b *Buffer, mode LockMode) error {
	if mode == LockWriteOnly && !b.desc.Flags.Has(BufferFlagVolatile) && ctx != nil && ctx.insideRenderPass {
		r.report(tracker.KindFacade, b.res,
			"Locking non-volatile buffers for writing inside a render pass is not allowed. Resource: %s", b.res)
	}
	return r.backend.LockBuffer(b, mode)
}

// BindDebugLabelName renames res in ctx's timeline and forwards the label.
func (r *RHI) BindDebugLabelName(ctx *Context, res Trackable, name string) {
	ctx.tracker.Rename(res.TrackerResource(), name, "")
	r.backend.BindDebugLabelName(res, name)
}

// =============================================================================
// Command lists
// =============================================================================

// CommandList is the finalized work of one context.
type CommandList struct {
	pipeline    tracker.Pipeline
	ops         []tracker.Operation
	breadcrumbs tracker.BreadcrumbRange
	name        string
}

// Pipeline returns the pipeline the list executes on.
func (l *CommandList) Pipeline() tracker.Pipeline { return l.pipeline }

// NumOps returns the number of validation operations the list carries.
func (l *CommandList) NumOps() int { return len(l.ops) }

// Breadcrumbs returns the breadcrumbs the list may begin or end.
func (l *CommandList) Breadcrumbs() tracker.BreadcrumbRange { return l.breadcrumbs }

// Name returns the name of the context the list was recorded on.
func (l *CommandList) Name() string { return l.name }

// FinalizeContext closes the current list of ctx and starts a new one on the
// same context. The list's breadcrumb range starts at the breadcrumb open
// when the list began, or else at the first one created during it.
func (r *RHI) FinalizeContext(ctx *Context) *CommandList {
	list := &CommandList{
		pipeline: ctx.pipeline,
		ops:      ctx.tracker.Finalize(),
		name:     ctx.name,
	}

	first := ctx.anchor
	if first == nil {
		first = ctx.firstNew
	}
	if first != nil {
		list.breadcrumbs = tracker.BreadcrumbRange{First: first, Last: ctx.crumbs.Last()}
	}

	ctx.anchor = ctx.currentBreadcrumb()
	ctx.firstNew = nil
	return list
}

// SubmitCommandLists replays each list on its pipeline's queue, in order,
// then forwards the lists to the backend.
func (r *RHI) SubmitCommandLists(lists ...*CommandList) error {
	for _, l := range lists {
		if l == nil {
			continue
		}
		ops := make([]tracker.Operation, 0, len(l.ops)+1)
		ops = append(ops, tracker.SetBreadcrumbRangeOp(l.breadcrumbs))
		ops = append(ops, l.ops...)
		r.engine.SubmitValidationOps(l.pipeline, ops)
		l.ops = nil
	}
	if err := r.backend.Submit(lists); err != nil {
		return fmt.Errorf("gpuval: submit: %w", err)
	}
	return nil
}

// workerPool starts the pool on first use. It returns nil after Close.
func (r *RHI) workerPool() *parallel.Pool {
	r.poolOnce.Do(func() {
		r.pool = parallel.New(r.workers)
	})
	return r.pool
}
