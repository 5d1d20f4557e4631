package tracker

// Tracker records operations for one command context on one pipeline.
// Recording does not touch tracked state; operations take effect when the
// finalized list is submitted, or immediately in bypass mode.
//
// A Tracker is owned by a single recording goroutine.
type Tracker struct {
	engine   *Engine
	pipeline Pipeline
	ops      []Operation
	uavs     [uavModeCount]UAVTracker
}

// Pipeline returns the pipeline this tracker records for.
func (t *Tracker) Pipeline() Pipeline { return t.pipeline }

// Engine returns the owning engine.
func (t *Tracker) Engine() *Engine { return t.engine }

// Pending returns the number of recorded, unfinalized operations.
func (t *Tracker) Pending() int { return len(t.ops) }

// AddOp records op. In bypass mode with nothing pending it replays at once
// unless it blocks.
func (t *Tracker) AddOp(op Operation) {
	if t.engine.cfg.Bypass && len(t.ops) == 0 && t.engine.replayInline(t.pipeline, op) {
		return
	}
	t.ops = append(t.ops, op)
}

// AddOps records ops in order.
func (t *Tracker) AddOps(ops []Operation) {
	for _, op := range ops {
		t.AddOp(op)
	}
}

// AddRetainedOps records ops that the caller keeps for recording again,
// taking a fresh resource reference for each.
func (t *Tracker) AddRetainedOps(ops []Operation) {
	for _, op := range ops {
		op.Retain()
		t.AddOp(op)
	}
}

// Finalize returns the recorded operations and starts a new list.
func (t *Tracker) Finalize() []Operation {
	ops := t.ops
	t.ops = nil
	return ops
}

// Assert requires id to allow access on this pipeline.
func (t *Tracker) Assert(id ResourceIdentity, access Access) {
	t.AddOp(AssertOp(id, State{Access: access, Pipelines: t.pipeline}))
}

// AssertTracked declares that r was put in access outside the tracker. Every
// subresource must already be in exactly that access.
func (t *Tracker) AssertTracked(r *Resource, access Access) {
	t.AddOp(SetTrackedAccessOp(r, access))
}

// AssertUAV binds view at slot. The next Draw or Dispatch in mode asserts
// it, once per distinct resource identity.
func (t *Tracker) AssertUAV(view ViewIdentity, mode UAVMode, slot int) {
	t.uavs[mode].Bind(slot, &view)
}

// BeginTransition opens a transition of id from previous to next.
func (t *Tracker) BeginTransition(id ResourceIdentity, previous, next State, flags TransitionFlags, createFlags TransitionCreateFlags, trace *Backtrace) {
	t.AddOp(BeginTransitionOp(id, previous, next, flags, createFlags, trace))
}

// EndTransition closes a transition of id to next.
func (t *Tracker) EndTransition(id ResourceIdentity, previous, next State, trace *Backtrace) {
	t.AddOp(EndTransitionOp(id, previous, next, trace))
}

// AcquireTransientResource starts the lifetime of transient r.
func (t *Tracker) AcquireTransientResource(r *Resource, trace *Backtrace) {
	t.AddOp(AcquireTransientOp(r, trace))
}

// DiscardTransientResource ends the lifetime of transient r by
// transitioning it from previous to Discard on the same pipelines.
func (t *Tracker) DiscardTransientResource(r *Resource, previous State, trace *Backtrace) {
	next := State{Access: AccessDiscard, Pipelines: previous.Pipelines}
	t.BeginTransition(r.WholeResource(), previous, next, TransitionFlagDiscard, TransitionCreateNone, trace)
	t.EndTransition(r.WholeResource(), previous, next, trace)
}

// InitTransientResource resets recycled transient r under a new name.
func (t *Tracker) InitTransientResource(r *Resource, name string) {
	t.AddOp(InitTransientOp(r, name))
}

// AliasingOverlap declares that after now occupies before's memory.
func (t *Tracker) AliasingOverlap(before, after *Resource, trace *Backtrace) {
	t.AddOp(AliasingOverlapOp(before, after, trace))
}

// BeginUAVOverlap allows every UAV write on this pipeline to overlap.
func (t *Tracker) BeginUAVOverlap() { t.AddOp(AllUAVsOverlapOp(true)) }

// EndUAVOverlap ends a BeginUAVOverlap.
func (t *Tracker) EndUAVOverlap() { t.AddOp(AllUAVsOverlapOp(false)) }

// BeginUAVOverlapOn allows UAV writes to the given identities to overlap.
func (t *Tracker) BeginUAVOverlapOn(ids ...ResourceIdentity) {
	for _, id := range ids {
		t.AddOp(SpecificUAVOverlapOp(id, true))
	}
}

// EndUAVOverlapOn ends a BeginUAVOverlapOn.
func (t *Tracker) EndUAVOverlapOn(ids ...ResourceIdentity) {
	for _, id := range ids {
		t.AddOp(SpecificUAVOverlapOp(id, false))
	}
}

// Signal records a signal of f.
func (t *Tracker) Signal(f *Fence) { t.AddOp(SignalOp(f)) }

// Wait records a wait on f.
func (t *Tracker) Wait(f *Fence) { t.AddOp(WaitOp(f)) }

// Rename records a debug name change of r.
func (t *Tracker) Rename(r *Resource, name, suffix string) {
	t.AddOp(RenameOp(r, name, suffix))
}

// BeginBreadcrumb records entering node.
func (t *Tracker) BeginBreadcrumb(node *Breadcrumb) { t.AddOp(BeginBreadcrumbOp(node)) }

// EndBreadcrumb records leaving node.
func (t *Tracker) EndBreadcrumb(node *Breadcrumb) { t.AddOp(EndBreadcrumbOp(node)) }

// Draw asserts every distinct graphics UAV currently bound.
func (t *Tracker) Draw() { t.drawOrDispatch(UAVModeGraphics) }

// Dispatch asserts every distinct compute UAV currently bound.
func (t *Tracker) Dispatch() { t.drawOrDispatch(UAVModeCompute) }

func (t *Tracker) drawOrDispatch(mode UAVMode) {
	for _, id := range t.uavs[mode].Identities() {
		t.Assert(id, mode.access())
	}
}

// ResetUAVState clears the bound UAVs of one mode.
func (t *Tracker) ResetUAVState(mode UAVMode) { t.uavs[mode].Reset() }

// ResetAllUAVState clears the bound UAVs of every mode.
func (t *Tracker) ResetAllUAVState() {
	for i := range t.uavs {
		t.uavs[i].Reset()
	}
}
