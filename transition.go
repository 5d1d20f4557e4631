package gpuval

import (
	"fmt"

	"github.com/gogpu/gpuval/tracker"
)

// CommitInfo requests a physical commit of part of a reserved buffer.
type CommitInfo struct {
	SizeInBytes uint64
}

// TransitionInfo describes one resource changing access. Exactly one of
// Texture, Buffer and UAV is set.
type TransitionInfo struct {
	Texture *Texture
	Buffer  *Buffer
	UAV     *UnorderedAccessView

	// Subresource selects texture subresources. Build infos with the
	// constructors so it defaults to the whole texture.
	Subresource tracker.SubresourceIndex

	AccessBefore tracker.Access
	AccessAfter  tracker.Access
	Flags        tracker.TransitionFlags
	Commit       *CommitInfo
}

// TextureTransition transitions every subresource of t.
func TextureTransition(t *Texture, before, after tracker.Access) TransitionInfo {
	return TransitionInfo{Texture: t, Subresource: tracker.WholeResourceIndex(), AccessBefore: before, AccessAfter: after}
}

// BufferTransition transitions b.
func BufferTransition(b *Buffer, before, after tracker.Access) TransitionInfo {
	return TransitionInfo{Buffer: b, Subresource: tracker.WholeResourceIndex(), AccessBefore: before, AccessAfter: after}
}

// UAVTransition transitions the subresources u views.
func UAVTransition(u *UnorderedAccessView, before, after tracker.Access) TransitionInfo {
	return TransitionInfo{UAV: u, Subresource: tracker.WholeResourceIndex(), AccessBefore: before, AccessAfter: after}
}

// WithSubresource narrows a texture transition to one subresource.
// tracker.SubresourceAll keeps a whole dimension.
func (ti TransitionInfo) WithSubresource(mip, slice, plane int) TransitionInfo {
	ti.Subresource = tracker.SubresourceIndex{MipIndex: mip, ArraySlice: slice, PlaneIndex: plane}
	return ti
}

func (ti *TransitionInfo) empty() bool {
	return ti.Texture == nil && ti.Buffer == nil && ti.UAV == nil
}

func (ti *TransitionInfo) identity() tracker.ResourceIdentity {
	switch {
	case ti.Texture != nil:
		return ti.Texture.TransitionIdentity(ti.Subresource)
	case ti.Buffer != nil:
		return ti.Buffer.WholeResourceIdentity()
	default:
		return ti.UAV.identity.ResourceIdentity
	}
}

// AliasingInfo declares that Resource begins (Acquire) its lifetime in
// memory previously used by Overlaps.
type AliasingInfo struct {
	Resource Trackable
	Acquire  bool
	Overlaps []Trackable
}

// TransitionCreateInfo is a batch of transitions between pipeline sets.
type TransitionCreateInfo struct {
	SrcPipelines  tracker.Pipeline
	DstPipelines  tracker.Pipeline
	Flags         tracker.TransitionCreateFlags
	Infos         []TransitionInfo
	AliasingInfos []AliasingInfo
}

// Transition holds the operations a created transition adds to the
// contexts that begin and end it.
type Transition struct {
	info TransitionCreateInfo

	signals [tracker.PipelineCount][]tracker.Operation
	waits   [tracker.PipelineCount][]tracker.Operation

	aliases         []tracker.Operation
	aliasOverlaps   []tracker.Operation
	beginOps        []tracker.Operation
	endOps          []tracker.Operation
	fences          []*tracker.Fence
}

// Info returns the create info.
func (t *Transition) Info() TransitionCreateInfo { return t.info }

// Fences returns the cross-pipeline fences the transition synchronizes with.
func (t *Transition) Fences() []*tracker.Fence { return t.fences }

// CreateTransition builds the validation operations for ci and forwards it
// to the backend. A fence pair is created for every source and destination
// pipeline that differ, NoFence included. If any resource involved is logged, every
// operation shares one captured backtrace.
func (r *RHI) CreateTransition(ci TransitionCreateInfo) (*Transition, error) {
	t := &Transition{info: ci}

	if ci.SrcPipelines != ci.DstPipelines {
		ci.SrcPipelines.Each(func(src tracker.Pipeline) {
			ci.DstPipelines.Each(func(dst tracker.Pipeline) {
				if src != dst {
					t.fences = append(t.fences, r.engine.NewFence(src, dst))
				}
			})
		})
	}

	doTrace := false

	type aliasingPlan struct {
		res      *tracker.Resource
		overlaps []*tracker.Resource
	}
	var plans []aliasingPlan
	for _, ai := range ci.AliasingInfos {
		if ai.Resource == nil {
			continue
		}
		res := ai.Resource.TrackerResource()
		doTrace = doTrace || res.LoggingMode() != tracker.LoggingNone
		if !ai.Acquire {
			continue
		}
		if !res.Transient().IsTransient() {
			return nil, fmt.Errorf("%w: %s", ErrNotTransient, res)
		}
		plan := aliasingPlan{res: res}
		for _, o := range ai.Overlaps {
			if o == nil {
				return nil, fmt.Errorf("%w of %s", ErrNilOverlap, res)
			}
			plan.overlaps = append(plan.overlaps, o.TrackerResource())
		}
		plans = append(plans, plan)
	}

	var ids []tracker.ResourceIdentity
	var infos []TransitionInfo
	for _, ti := range ci.Infos {
		if ti.empty() {
			continue
		}
		if ti.AccessAfter == tracker.AccessUnknown {
			return nil, ErrUnknownAccessAfter
		}
		r.validateCommit(&ti)

		id := ti.identity()
		doTrace = doTrace || id.Resource.LoggingMode() != tracker.LoggingNone
		ids = append(ids, id)
		infos = append(infos, ti)
	}

	var trace *tracker.Backtrace
	if doTrace {
		trace = tracker.CaptureBacktrace(1)
	}

	for _, p := range plans {
		t.aliases = append(t.aliases, tracker.AcquireTransientOp(p.res, trace))
		for _, before := range p.overlaps {
			t.aliasOverlaps = append(t.aliasOverlaps, tracker.AliasingOverlapOp(before, p.res, trace))
		}
	}
	for i, ti := range infos {
		prev := tracker.State{Access: ti.AccessBefore, Pipelines: ci.SrcPipelines}
		next := tracker.State{Access: ti.AccessAfter, Pipelines: ci.DstPipelines}
		t.beginOps = append(t.beginOps, tracker.BeginTransitionOp(ids[i], prev, next, ti.Flags, ci.Flags, trace))
		t.endOps = append(t.endOps, tracker.EndTransitionOp(ids[i], prev, next, trace))
	}
	// The stored operations hold no resource references; each recording
	// on a context retains its own.
	for _, ops := range [][]tracker.Operation{t.aliases, t.aliasOverlaps, t.beginOps, t.endOps} {
		for _, op := range ops {
			op.Release()
		}
	}
	for _, f := range t.fences {
		t.signals[f.SrcPipe.Index()] = append(t.signals[f.SrcPipe.Index()], tracker.SignalOp(f))
		t.waits[f.DstPipe.Index()] = append(t.waits[f.DstPipe.Index()], tracker.WaitOp(f))
	}

	if err := r.backend.CreateTransition(t); err != nil {
		return nil, fmt.Errorf("gpuval: create transition: %w", err)
	}
	return t, nil
}

// validateCommit checks a commit request against the resource it targets.
func (r *RHI) validateCommit(ti *TransitionInfo) {
	if ti.Commit == nil {
		return
	}
	if ti.Buffer == nil {
		r.report(tracker.KindFacade, ti.identity().Resource, "Reserved resource commit is only supported for buffers.")
		return
	}
	b := ti.Buffer
	if !b.desc.Flags.Has(BufferFlagReservedResource) {
		r.report(tracker.KindFacade, b.res, "Commit transitions can only be used with reserved resources. Resource: %s.", b.res)
	}
	if ti.Commit.SizeInBytes > b.desc.Size {
		r.report(tracker.KindFacade, b.res,
			"Buffer commit size request (%d) must not be larger than the size of the buffer itself (%d), as virtual memory allocation cannot be resized. Resource: %s.",
			ti.Commit.SizeInBytes, b.desc.Size, b.res)
	}
}
