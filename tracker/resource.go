package tracker

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
)

// Errors returned by resource lifecycle calls.
var (
	// ErrInvalidLayout is returned when a resource is given zero extents.
	ErrInvalidLayout = errors.New("tracker: resource extents must be positive")

	// ErrUnknownInitialAccess is returned when tracking starts in AccessUnknown.
	ErrUnknownInitialAccess = errors.New("tracker: initial access must be known")

	// ErrLayoutMismatch is returned when an initialized resource is checked
	// against a different layout.
	ErrLayoutMismatch = errors.New("tracker: resource layout mismatch")

	// ErrNotInitialized is returned when barrier tracking was never initialized.
	ErrNotInitialized = errors.New("tracker: barrier tracking not initialized")

	// ErrResourceInUse is returned by Destroy while queued operations still
	// reference the resource.
	ErrResourceInUse = errors.New("tracker: resource referenced by pending operations")
)

// LoggingMode controls per-resource diagnostic logging.
type LoggingMode uint8

const (
	// LoggingNone disables logging for the resource.
	LoggingNone LoggingMode = iota
	// LoggingAutomatic was enabled because the debug name is watched.
	LoggingAutomatic
	// LoggingManual was enabled explicitly and survives renames.
	LoggingManual
)

func (m LoggingMode) String() string {
	switch m {
	case LoggingNone:
		return "None"
	case LoggingAutomatic:
		return "Automatic"
	case LoggingManual:
		return "Manual"
	default:
		return "Unknown"
	}
}

// subresourceContainer holds either one whole-resource state or one state
// per subresource. It starts whole, splits on the first partial access and
// collapses back on a whole-resource begin transition.
type subresourceContainer struct {
	whole SubresourceState
	split []SubresourceState
}

func (c *subresourceContainer) isSplit() bool { return c.split != nil }

func (c *subresourceContainer) splitInto(n int) {
	c.split = make([]SubresourceState, n)
	for i := range c.split {
		c.split[i] = c.whole
	}
}

func (c *subresourceContainer) collapse() {
	c.whole = c.split[0]
	c.split = nil
}

// Resource is a trackable GPU object with mips, array slices and planes.
// Its tracked state is only mutated while operations replay.
type Resource struct {
	engine *Engine
	id     uuid.UUID

	debugName   string
	loggingMode LoggingMode
	createTrace *Backtrace

	numMips        int
	numArraySlices int
	numPlanes      int

	states        subresourceContainer
	transient     TransientState
	trackedAccess Access

	opRefs    atomic.Int64
	destroyed atomic.Bool
}

// NewResource creates an untracked resource owned by e. Barrier tracking
// begins with InitBarrierTracking.
func (e *Engine) NewResource(debugName string) *Resource {
	r := &Resource{engine: e, id: uuid.New()}
	r.SetDebugName(debugName, "")
	if e.cfg.CaptureBacktraces && r.loggingMode != LoggingNone {
		r.createTrace = CaptureBacktrace(1)
	}
	return r
}

// ID returns the unique identifier used in diagnostics.
func (r *Resource) ID() uuid.UUID { return r.id }

// DebugName returns the resource's current debug name.
func (r *Resource) DebugName() string { return r.debugName }

// LoggingMode returns the current logging mode.
func (r *Resource) LoggingMode() LoggingMode { return r.loggingMode }

// SetLoggingMode overrides the logging mode. LoggingManual survives renames.
func (r *Resource) SetLoggingMode(m LoggingMode) { r.loggingMode = m }

// CreateTrace returns the creation backtrace, if one was captured.
func (r *Resource) CreateTrace() *Backtrace { return r.createTrace }

// NumMips returns the mip count.
func (r *Resource) NumMips() int { return r.numMips }

// NumArraySlices returns the array slice count.
func (r *Resource) NumArraySlices() int { return r.numArraySlices }

// NumPlanes returns the plane count.
func (r *Resource) NumPlanes() int { return r.numPlanes }

// NumSubresources returns mips * slices * planes.
func (r *Resource) NumSubresources() int { return r.numMips * r.numArraySlices * r.numPlanes }

// TrackedAccess returns the access last declared through SetTrackedAccess or
// initialization. Transitions from AccessUnknown are checked against it.
func (r *Resource) TrackedAccess() Access { return r.trackedAccess }

// Transient returns the aliasing lifecycle state.
func (r *Resource) Transient() *TransientState { return &r.transient }

// MarkTransient declares that the resource's memory is aliased.
func (r *Resource) MarkTransient() { r.transient.transient = true }

// IsTrackingInitialized reports whether InitBarrierTracking succeeded.
func (r *Resource) IsTrackingInitialized() bool { return r.numMips > 0 }

// IsSplit reports whether per-subresource states are allocated.
func (r *Resource) IsSplit() bool { return r.states.isSplit() }

// WholeResourceRange returns the range covering every subresource.
func (r *Resource) WholeResourceRange() SubresourceRange {
	return SubresourceRange{
		NumMips:        r.numMips,
		NumArraySlices: r.numArraySlices,
		NumPlanes:      r.numPlanes,
	}
}

// WholeResource returns the identity covering every subresource.
func (r *Resource) WholeResource() ResourceIdentity {
	return ResourceIdentity{Resource: r, Range: r.WholeResourceRange()}
}

// InitBarrierTracking sets the resource layout and seeds every pipeline slot
// with initialAccess on the graphics pipeline.
func (r *Resource) InitBarrierTracking(numMips, numArraySlices, numPlanes int, initialAccess Access, debugName string) error {
	if numMips <= 0 || numArraySlices <= 0 || numPlanes <= 0 {
		return fmt.Errorf("%w: %d mips, %d slices, %d planes", ErrInvalidLayout, numMips, numArraySlices, numPlanes)
	}
	if initialAccess == AccessUnknown {
		return ErrUnknownInitialAccess
	}
	if r.IsTrackingInitialized() {
		if err := r.CheckValidationLayout(numMips, numArraySlices, numPlanes); err != nil {
			return err
		}
	}

	r.numMips = numMips
	r.numArraySlices = numArraySlices
	r.numPlanes = numPlanes
	r.states.split = nil
	r.states.whole.init(initialAccess)
	r.trackedAccess = initialAccess
	if debugName != "" {
		r.SetDebugName(debugName, "")
	}
	return nil
}

// CheckValidationLayout verifies that a recycled resource still has the
// expected layout.
func (r *Resource) CheckValidationLayout(numMips, numArraySlices, numPlanes int) error {
	if !r.IsTrackingInitialized() {
		return ErrNotInitialized
	}
	if r.numMips != numMips || r.numArraySlices != numArraySlices || r.numPlanes != numPlanes {
		return fmt.Errorf("%w: %s has %d/%d/%d, want %d/%d/%d", ErrLayoutMismatch, r,
			r.numMips, r.numArraySlices, r.numPlanes, numMips, numArraySlices, numPlanes)
	}
	return nil
}

// InitTransient resets a recycled transient resource for a new lifetime.
func (r *Resource) InitTransient(debugName string) {
	r.transient = TransientState{transient: true}
	r.states.split = nil
	r.states.whole.init(AccessDiscard)
	r.trackedAccess = AccessDiscard
	r.SetDebugName(debugName, "")
}

// SetDebugName sets the name to name+suffix. Unless logging is manual, the
// name is matched against the engine watch-list to enable or disable
// automatic logging.
func (r *Resource) SetDebugName(name, suffix string) {
	r.debugName = name + suffix
	if r.loggingMode == LoggingManual {
		return
	}
	if name != "" && r.engine.watch.Match(name) {
		r.loggingMode = LoggingAutomatic
		return
	}
	r.loggingMode = LoggingNone
}

// EnumerateSubresources calls fn for every subresource state in rng. A
// whole-resource range on an unsplit resource visits the single whole state
// with WholeResourceIndex. A whole-resource begin transition collapses split
// states back to whole-resource tracking afterwards.
func (r *Resource) EnumerateSubresources(rng SubresourceRange, fn func(*SubresourceState, SubresourceIndex), beginTransition bool) {
	whole := rng.IsWholeResource(r)
	if whole && !r.states.isSplit() {
		fn(&r.states.whole, WholeResourceIndex())
	} else {
		if !r.states.isSplit() {
			r.states.splitInto(r.NumSubresources())
		}
		lastMip := rng.MipIndex + rng.NumMips
		lastSlice := rng.ArraySlice + rng.NumArraySlices
		lastPlane := rng.PlaneIndex + rng.NumPlanes
		for plane := rng.PlaneIndex; plane < lastPlane; plane++ {
			for mip := rng.MipIndex; mip < lastMip; mip++ {
				for slice := rng.ArraySlice; slice < lastSlice; slice++ {
					i := plane + (mip+slice*r.numMips)*r.numPlanes
					fn(&r.states.split[i], SubresourceIndex{MipIndex: mip, ArraySlice: slice, PlaneIndex: plane})
				}
			}
		}
	}

	if whole && beginTransition && r.states.isSplit() {
		r.states.collapse()
	}
}

// PipelineState returns a copy of the tracked state for one subresource as
// seen by pipe. A whole index reads the whole-resource slot, or subresource
// zero when split.
func (r *Resource) PipelineState(idx SubresourceIndex, pipe Pipeline) PipelineState {
	ss := &r.states.whole
	if r.states.isSplit() {
		i := 0
		if !idx.IsWhole() {
			i = idx.PlaneIndex + (idx.MipIndex+idx.ArraySlice*r.numMips)*r.numPlanes
		}
		ss = &r.states.split[i]
	}
	return ss.States[pipe.Index()]
}

// GetViewIdentity maps a view's mip, slice and plane ranges to an identity.
// A zero count selects every subresource from the start of that dimension.
func (r *Resource) GetViewIdentity(mipIndex, numMips, arraySlice, numArraySlices, planeIndex, numPlanes int) ResourceIdentity {
	if numMips == 0 {
		mipIndex, numMips = 0, r.numMips
	}
	if numArraySlices == 0 {
		arraySlice, numArraySlices = 0, r.numArraySlices
	}
	if numPlanes == 0 {
		planeIndex, numPlanes = 0, r.numPlanes
	}
	numMips = clampCount(mipIndex, numMips, r.numMips)
	numArraySlices = clampCount(arraySlice, numArraySlices, r.numArraySlices)
	numPlanes = clampCount(planeIndex, numPlanes, r.numPlanes)
	return ResourceIdentity{
		Resource: r,
		Range: SubresourceRange{
			MipIndex: mipIndex, NumMips: numMips,
			ArraySlice: arraySlice, NumArraySlices: numArraySlices,
			PlaneIndex: planeIndex, NumPlanes: numPlanes,
		},
	}
}

func clampCount(index, count, extent int) int {
	if index+count > extent {
		return max(extent-index, 0)
	}
	return count
}

// GetTransitionIdentity maps a transition's subresource selector to an
// identity. SubresourceAll in a component selects that whole dimension.
func (r *Resource) GetTransitionIdentity(sel SubresourceIndex) ResourceIdentity {
	rng := SubresourceRange{}
	rng.MipIndex, rng.NumMips = transitionExtent(sel.MipIndex, r.numMips)
	rng.ArraySlice, rng.NumArraySlices = transitionExtent(sel.ArraySlice, r.numArraySlices)
	rng.PlaneIndex, rng.NumPlanes = transitionExtent(sel.PlaneIndex, r.numPlanes)
	return ResourceIdentity{Resource: r, Range: rng}
}

func transitionExtent(index, extent int) (int, int) {
	if index == SubresourceAll || index >= extent {
		return 0, extent
	}
	return index, 1
}

// AcquireOpRef records that a queued operation references the resource.
func (r *Resource) AcquireOpRef() { r.opRefs.Add(1) }

// ReleaseOpRef drops a reference taken by AcquireOpRef.
func (r *Resource) ReleaseOpRef() {
	if n := r.opRefs.Add(-1); n < 0 {
		r.engine.Report(KindProtocol, r, "Operation reference count of resource %s dropped below zero.", r)
		r.opRefs.Store(0)
	}
}

// OpRefs returns the number of unreplayed operations referencing r.
func (r *Resource) OpRefs() int64 { return r.opRefs.Load() }

// Destroy releases the resource. It fails with ErrResourceInUse while
// operations referencing it are still queued.
func (r *Resource) Destroy() error {
	if n := r.opRefs.Load(); n != 0 {
		r.engine.Report(KindProtocol, r, "Resource %s destroyed with %d pending operations.", r, n)
		return fmt.Errorf("%w: %s has %d", ErrResourceInUse, r, n)
	}
	r.destroyed.Store(true)
	return nil
}

// Destroyed reports whether Destroy succeeded.
func (r *Resource) Destroyed() bool { return r.destroyed.Load() }

func (r *Resource) String() string {
	if r == nil {
		return "<nil>"
	}
	name := r.debugName
	if name == "" {
		name = "Unnamed"
	}
	return fmt.Sprintf("%q [%s]", name, r.id.String()[:8])
}

func (r *Resource) logsOps() bool {
	return r.loggingMode != LoggingNone || (r.engine.cfg.LogUnnamedResources && r.debugName == "")
}

// logOp logs one replayed operation for a watched resource and returns the
// backtrace of the replay site when capture is enabled.
func (r *Resource) logOp(idx SubresourceIndex, createTrace *Backtrace, op string, args ...any) *Backtrace {
	var trace *Backtrace
	if r.engine.cfg.CaptureBacktraces {
		trace = CaptureBacktrace(2)
	}
	attrs := []any{
		slog.String("op", op),
		slog.String("resource", r.String()),
		slog.String("subresource", idx.String()),
	}
	if createTrace != nil {
		attrs = append(attrs, slog.String("created", createTrace.Top()))
	}
	Logger().Debug("tracker: replay", append(attrs, args...)...)
	return trace
}
