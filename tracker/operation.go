package tracker

import "log/slog"

// OpType discriminates the Operation variants.
type OpType uint8

const (
	OpRename OpType = iota
	OpBeginTransition
	OpEndTransition
	OpAliasingOverlap
	OpSetTrackedAccess
	OpAcquireTransient
	OpInitTransient
	OpAssert
	OpSignal
	OpWait
	OpAllUAVsOverlap
	OpSpecificUAVOverlap
	OpBeginBreadcrumb
	OpEndBreadcrumb
	OpSetBreadcrumbRange
)

var opTypeNames = [...]string{
	OpRename:             "Rename",
	OpBeginTransition:    "BeginTransition",
	OpEndTransition:      "EndTransition",
	OpAliasingOverlap:    "AliasingOverlap",
	OpSetTrackedAccess:   "SetTrackedAccess",
	OpAcquireTransient:   "AcquireTransient",
	OpInitTransient:      "InitTransient",
	OpAssert:             "Assert",
	OpSignal:             "Signal",
	OpWait:               "Wait",
	OpAllUAVsOverlap:     "AllUAVsOverlap",
	OpSpecificUAVOverlap: "SpecificUAVOverlap",
	OpBeginBreadcrumb:    "BeginBreadcrumb",
	OpEndBreadcrumb:      "EndBreadcrumb",
	OpSetBreadcrumbRange: "SetBreadcrumbRange",
}

func (t OpType) String() string {
	if int(t) < len(opTypeNames) {
		return opTypeNames[t]
	}
	return "Unknown"
}

// ReplayResult is the outcome of replaying one operation.
type ReplayResult uint8

const (
	// ReplayDone means the operation replayed and can be dropped.
	ReplayDone ReplayResult = iota
	// ReplayBlocked means a wait found its fence unsignaled; the queue stops
	// and retries the same operation later.
	ReplayBlocked
)

// Operation is one recorded tracker operation. Type selects which payload
// Replay reads. Constructors take an op reference on every resource the
// operation names; Replay releases them.
type Operation struct {
	Type OpType
	data any
}

type renameOp struct {
	resource     *Resource
	name, suffix string
}

type transitionOp struct {
	identity    ResourceIdentity
	previous    State
	next        State
	flags       TransitionFlags
	createFlags TransitionCreateFlags
	trace       *Backtrace
}

type aliasingOp struct {
	before, after *Resource
	trace         *Backtrace
}

type trackedAccessOp struct {
	resource *Resource
	access   Access
}

type transientOp struct {
	resource *Resource
	name     string
	trace    *Backtrace
}

type assertOp struct {
	identity ResourceIdentity
	required State
}

type fenceOp struct {
	fence *Fence
}

type overlapOp struct {
	identity ResourceIdentity
	allow    bool
}

type breadcrumbOp struct {
	node *Breadcrumb
	rng  BreadcrumbRange
}

// RenameOp changes a resource's debug name at its point in the timeline.
func RenameOp(r *Resource, name, suffix string) Operation {
	r.AcquireOpRef()
	return Operation{Type: OpRename, data: &renameOp{resource: r, name: name, suffix: suffix}}
}

// BeginTransitionOp opens a transition of id from previous to next.
func BeginTransitionOp(id ResourceIdentity, previous, next State, flags TransitionFlags, createFlags TransitionCreateFlags, trace *Backtrace) Operation {
	id.Resource.AcquireOpRef()
	return Operation{Type: OpBeginTransition, data: &transitionOp{
		identity: id, previous: previous, next: next, flags: flags, createFlags: createFlags, trace: trace,
	}}
}

// EndTransitionOp closes a transition of id to next.
func EndTransitionOp(id ResourceIdentity, previous, next State, trace *Backtrace) Operation {
	id.Resource.AcquireOpRef()
	return Operation{Type: OpEndTransition, data: &transitionOp{
		identity: id, previous: previous, next: next, trace: trace,
	}}
}

// AliasingOverlapOp declares that after now occupies before's memory.
func AliasingOverlapOp(before, after *Resource, trace *Backtrace) Operation {
	before.AcquireOpRef()
	after.AcquireOpRef()
	return Operation{Type: OpAliasingOverlap, data: &aliasingOp{before: before, after: after, trace: trace}}
}

// SetTrackedAccessOp declares an access reached outside the tracker and
// checks every subresource is already in it.
func SetTrackedAccessOp(r *Resource, access Access) Operation {
	r.AcquireOpRef()
	return Operation{Type: OpSetTrackedAccess, data: &trackedAccessOp{resource: r, access: access}}
}

// AcquireTransientOp starts a transient resource's lifetime.
func AcquireTransientOp(r *Resource, trace *Backtrace) Operation {
	r.AcquireOpRef()
	return Operation{Type: OpAcquireTransient, data: &transientOp{resource: r, trace: trace}}
}

// InitTransientOp resets a recycled transient resource.
func InitTransientOp(r *Resource, name string) Operation {
	r.AcquireOpRef()
	return Operation{Type: OpInitTransient, data: &transientOp{resource: r, name: name}}
}

// AssertOp requires id to allow the required state.
func AssertOp(id ResourceIdentity, required State) Operation {
	id.Resource.AcquireOpRef()
	return Operation{Type: OpAssert, data: &assertOp{identity: id, required: required}}
}

// SignalOp signals f on its source pipeline.
func SignalOp(f *Fence) Operation {
	return Operation{Type: OpSignal, data: &fenceOp{fence: f}}
}

// WaitOp waits for f on its destination pipeline.
func WaitOp(f *Fence) Operation {
	return Operation{Type: OpWait, data: &fenceOp{fence: f}}
}

// AllUAVsOverlapOp toggles UAV overlap for every resource on the pipeline.
func AllUAVsOverlapOp(allow bool) Operation {
	return Operation{Type: OpAllUAVsOverlap, data: &overlapOp{allow: allow}}
}

// SpecificUAVOverlapOp toggles UAV overlap for one identity.
func SpecificUAVOverlapOp(id ResourceIdentity, allow bool) Operation {
	id.Resource.AcquireOpRef()
	return Operation{Type: OpSpecificUAVOverlap, data: &overlapOp{identity: id, allow: allow}}
}

// BeginBreadcrumbOp enters node on the replaying pipeline.
func BeginBreadcrumbOp(node *Breadcrumb) Operation {
	return Operation{Type: OpBeginBreadcrumb, data: &breadcrumbOp{node: node}}
}

// EndBreadcrumbOp leaves node on the replaying pipeline.
func EndBreadcrumbOp(node *Breadcrumb) Operation {
	return Operation{Type: OpEndBreadcrumb, data: &breadcrumbOp{node: node}}
}

// SetBreadcrumbRangeOp sets the breadcrumbs valid for the following ops.
func SetBreadcrumbRangeOp(rng BreadcrumbRange) Operation {
	return Operation{Type: OpSetBreadcrumbRange, data: &breadcrumbOp{rng: rng}}
}

// Resources returns the resources the operation holds references on.
func (op Operation) Resources() []*Resource {
	switch d := op.data.(type) {
	case *renameOp:
		return []*Resource{d.resource}
	case *transitionOp:
		return []*Resource{d.identity.Resource}
	case *aliasingOp:
		return []*Resource{d.before, d.after}
	case *trackedAccessOp:
		return []*Resource{d.resource}
	case *transientOp:
		return []*Resource{d.resource}
	case *assertOp:
		return []*Resource{d.identity.Resource}
	case *overlapOp:
		if d.identity.Resource != nil {
			return []*Resource{d.identity.Resource}
		}
	}
	return nil
}

// Fence returns the fence of a Signal or Wait operation.
func (op Operation) Fence() *Fence {
	if d, ok := op.data.(*fenceOp); ok {
		return d.fence
	}
	return nil
}

// Retain takes another reference on every resource the operation names.
// An operation recorded more than once is retained for each recording.
func (op Operation) Retain() {
	for _, r := range op.Resources() {
		r.AcquireOpRef()
	}
}

// Release drops the operation's resource references without replaying it.
func (op Operation) Release() {
	for _, r := range op.Resources() {
		r.ReleaseOpRef()
	}
}

// Replay applies the operation to the resource model on q's pipeline.
func (op Operation) Replay(q *OpQueueState) ReplayResult {
	e := q.engine

	switch op.Type {
	case OpRename:
		d := op.data.(*renameOp)
		d.resource.SetDebugName(d.name, d.suffix)
		d.resource.ReleaseOpRef()

	case OpBeginTransition:
		d := op.data.(*transitionOp)
		r := d.identity.Resource
		r.EnumerateSubresources(d.identity.Range, func(s *SubresourceState, idx SubresourceIndex) {
			s.beginTransition(r, idx, d.previous, d.next, d.flags, d.createFlags, q.pipeline,
				&q.maxAwaitedFenceValues, d.trace, subresourceWeight(r, idx))
		}, true)
		r.ReleaseOpRef()

	case OpEndTransition:
		d := op.data.(*transitionOp)
		r := d.identity.Resource
		r.EnumerateSubresources(d.identity.Range, func(s *SubresourceState, idx SubresourceIndex) {
			s.endTransition(r, idx, d.next, q.pipeline, q.fenceValue, d.trace)
		}, false)
		r.ReleaseOpRef()

	case OpAliasingOverlap:
		d := op.data.(*aliasingOp)
		aliasingOverlap(d.before, d.after, d.trace)
		d.before.ReleaseOpRef()
		d.after.ReleaseOpRef()

	case OpSetTrackedAccess:
		d := op.data.(*trackedAccessOp)
		r := d.resource
		required := State{Access: d.access, Pipelines: q.pipeline}
		r.EnumerateSubresources(r.WholeResourceRange(), func(s *SubresourceState, idx SubresourceIndex) {
			s.assertTracked(r, idx, required)
		}, false)
		r.trackedAccess = d.access
		r.ReleaseOpRef()

	case OpAcquireTransient:
		d := op.data.(*transientOp)
		d.resource.transient.acquire(d.resource, d.trace)
		d.resource.ReleaseOpRef()

	case OpInitTransient:
		d := op.data.(*transientOp)
		d.resource.InitTransient(d.name)
		d.resource.ReleaseOpRef()

	case OpAssert:
		d := op.data.(*assertOp)
		r := d.identity.Resource
		r.EnumerateSubresources(d.identity.Range, func(s *SubresourceState, idx SubresourceIndex) {
			s.assert(r, idx, d.required, q.allowAllUAVsOverlap)
		}, false)
		r.ReleaseOpRef()

	case OpSignal:
		f := op.data.(*fenceOp).fence
		e.check(f.SrcPipe == q.pipeline, KindProtocol, nil,
			"Fence signaled on pipeline %s but its source pipeline is %s.", q.pipeline, f.SrcPipe)
		e.check(!f.Signaled, KindProtocol, nil, "Fence %s -> %s signaled twice.", f.SrcPipe, f.DstPipe)
		q.fenceValue++
		f.Signaled = true
		f.Value = q.fenceValue

	case OpWait:
		f := op.data.(*fenceOp).fence
		e.check(f.DstPipe == q.pipeline, KindProtocol, nil,
			"Fence waited on pipeline %s but its destination pipeline is %s.", q.pipeline, f.DstPipe)
		if !f.Signaled {
			return ReplayBlocked
		}
		e.check(!f.waited, KindProtocol, nil, "Fence %s -> %s waited on more than once.", f.SrcPipe, f.DstPipe)
		f.waited = true
		src := f.SrcPipe.Index()
		q.maxAwaitedFenceValues[src] = max(q.maxAwaitedFenceValues[src], f.Value)

	case OpAllUAVsOverlap:
		d := op.data.(*overlapOp)
		e.check(q.allowAllUAVsOverlap != d.allow, KindOverlapToggle, nil,
			"Mismatched UAV overlap call on pipeline %s: overlap is already %s.", q.pipeline, enabledString(d.allow))
		q.allowAllUAVsOverlap = d.allow

	case OpSpecificUAVOverlap:
		d := op.data.(*overlapOp)
		r := d.identity.Resource
		r.EnumerateSubresources(d.identity.Range, func(s *SubresourceState, idx SubresourceIndex) {
			s.specificUAVOverlap(r, idx, q.pipeline, d.allow)
		}, false)
		r.ReleaseOpRef()

	case OpBeginBreadcrumb:
		q.beginBreadcrumb(op.data.(*breadcrumbOp).node)

	case OpEndBreadcrumb:
		q.endBreadcrumb(op.data.(*breadcrumbOp).node)

	case OpSetBreadcrumbRange:
		q.setBreadcrumbRange(op.data.(*breadcrumbOp).rng)

	default:
		Logger().Warn("tracker: unknown operation", slog.Int("type", int(op.Type)))
	}

	return ReplayDone
}

// subresourceWeight is the number of subresources one enumerated state
// stands for: all of them for the whole-resource slot, otherwise one.
func subresourceWeight(r *Resource, idx SubresourceIndex) int {
	if idx.IsWhole() {
		return r.NumSubresources()
	}
	return 1
}
