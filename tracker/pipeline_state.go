package tracker

// PipelineState is the tracked state of one subresource as seen by one
// pipeline.
type PipelineState struct {
	Current  State
	Previous State
	Flags    TransitionFlags

	createTrace *Backtrace
	beginTrace  *Backtrace

	transitioning bool

	usedWithAllUAVsOverlap      bool
	usedWithExplicitUAVsOverlap bool
	explicitAllowUAVOverlap     bool
}

// Transitioning reports whether a begin transition is awaiting its end.
func (p *PipelineState) Transitioning() bool { return p.transitioning }

// ExplicitUAVOverlap reports whether per-resource UAV overlap is enabled.
func (p *PipelineState) ExplicitUAVOverlap() bool { return p.explicitAllowUAVOverlap }

// SubresourceState holds one PipelineState per pipeline plus the fence value
// at which each pipeline last completed a transition.
type SubresourceState struct {
	States               [PipelineCount]PipelineState
	LastTransitionFences [PipelineCount]uint64
}

func (s *SubresourceState) init(access Access) {
	for i := range s.States {
		s.States[i] = PipelineState{
			Current:  State{Access: access, Pipelines: PipelineGraphics},
			Previous: State{Access: access, Pipelines: PipelineGraphics},
		}
	}
	s.LastTransitionFences = [PipelineCount]uint64{}
}

func hasMatchingPipelines(createFlags TransitionCreateFlags, previous, next Pipeline) bool {
	// Without a fence the transition only has to start from one of the
	// previous pipelines.
	if createFlags.Has(TransitionCreateNoFence) {
		return previous.Has(next)
	}
	return previous == next
}

func (s *SubresourceState) beginTransition(r *Resource, idx SubresourceIndex, fromRHI, target State,
	flags TransitionFlags, createFlags TransitionCreateFlags, exec Pipeline,
	maxAwaited *[PipelineCount]uint64, createTrace *Backtrace, weight int) {
	e := r.engine
	st := &s.States[exec.Index()]

	var beginTrace *Backtrace
	if r.logsOps() {
		beginTrace = r.logOp(idx, createTrace, "BeginTransition",
			"current", st.Current.String(), "new", target.String(), "pipeline", exec.String())
	}

	if r.transient.transient {
		e.check(r.transient.status == TransientAcquired, KindTransientLifecycle, r,
			"Attempted a resource transition for transient resource %s without acquiring it. Transient resources must be acquired before any transitions are begun and discarded after all transitions are complete.", r)
		if target.Access == AccessDiscard {
			r.transient.discard(r, createTrace, fromRHI.Pipelines, weight)
		}
	}

	if createFlags.Has(TransitionCreateNoFence) {
		(st.Previous.Pipelines &^ fromRHI.Pipelines).Each(func(fenced Pipeline) {
			e.check(s.LastTransitionFences[fenced.Index()] < maxAwaited[fenced.Index()], KindProtocol, r,
				"Pipeline %s was not fenced before a NoFence transition of resource %s (%s) began on pipeline %s. The transition is collapsing pipelines without a prior fence.",
				fenced, r, idx, exec)
		})
	}

	e.check(!st.transitioning, KindProtocol, r,
		"Duplicate begin transition for resource %s (%s). Current: (%s) New: (%s).%s",
		r, idx, st.Current, target, traceHint(r, "create", st.createTrace, "begin", beginTrace))

	e.check(fromRHI.Pipelines.Has(exec), KindProtocol, r,
		"Resource %s (%s) transition began on pipeline %s, which is not one of the source pipelines (%s). Current: (%s) New: (%s).",
		r, idx, exec, fromRHI.Pipelines, st.Current, target)

	if fromRHI.Access == AccessUnknown {
		e.check(r.trackedAccess == st.Previous.Access && hasMatchingPipelines(createFlags, st.Previous.Pipelines, fromRHI.Pipelines), KindProtocol, r,
			"Resource %s (%s) transitioned from Unknown but the tracked access (%s) does not match the previous state (%s) for pipelines %s.",
			r, idx, r.trackedAccess, st.Previous, fromRHI.Pipelines)
	} else {
		e.check(fromRHI.Access == st.Previous.Access && hasMatchingPipelines(createFlags, st.Previous.Pipelines, fromRHI.Pipelines), KindProtocol, r,
			"Incorrect previous state for resource %s (%s). Tracked: (%s) Given: (%s).",
			r, idx, st.Previous, fromRHI)
	}

	st.Previous = target
	st.Current = target
	st.Flags = flags
	st.createTrace = createTrace
	st.beginTrace = beginTrace
	st.usedWithAllUAVsOverlap = false
	st.usedWithExplicitUAVsOverlap = false
	st.transitioning = true

	(PipelineAll &^ fromRHI.Pipelines).Each(func(other Pipeline) {
		s.States[other.Index()] = *st
	})
}

func (s *SubresourceState) endTransition(r *Resource, idx SubresourceIndex, target State, exec Pipeline,
	fenceValue uint64, createTrace *Backtrace) {
	e := r.engine
	if r.logsOps() {
		r.logOp(idx, createTrace, "EndTransition", "target", target.String(), "pipeline", exec.String())
	}

	st := &s.States[exec.Index()]

	e.check(st.transitioning, KindProtocol, r,
		"Unsolicited end transition for resource %s (%s) on pipeline %s.", r, idx, exec)
	st.transitioning = false
	st.beginTrace = nil

	e.check(target == st.Current, KindProtocol, r,
		"Mismatched end transition for resource %s (%s). Begin: (%s) End: (%s).", r, idx, st.Current, target)

	PipelineAll.Each(func(other Pipeline) {
		if target.Pipelines&other == 0 {
			s.States[other.Index()] = *st
		}
	})

	s.LastTransitionFences[exec.Index()] = fenceValue
}

func (s *SubresourceState) assert(r *Resource, idx SubresourceIndex, required State, allowAllUAVsOverlap bool) {
	e := r.engine
	if r.logsOps() {
		r.logOp(idx, nil, "Assert", "access", required.Access.String(), "pipeline", required.Pipelines.String())
	}

	st := &s.States[required.Pipelines.Index()]

	e.check(!st.transitioning, KindHazard, r,
		"Resource %s (%s) was accessed as (%s) while a transition to (%s) is in progress.%s",
		r, idx, required, st.Current, traceHint(r, "create", st.createTrace, "begin", st.beginTrace))

	e.check((allowAllUAVsOverlap || !st.usedWithAllUAVsOverlap) && (st.explicitAllowUAVOverlap || !st.usedWithExplicitUAVsOverlap), KindHazard, r,
		"Resource %s (%s) was written as a UAV while UAV overlap was enabled and is now used as (%s) with overlap disabled. A UAV barrier is required.",
		r, idx, required)

	e.check(st.Current.Access.Has(required.Access) && st.Current.Pipelines.Has(required.Pipelines), KindHazard, r,
		"Missing barrier for resource %s (%s). Current: (%s) Required: (%s).", r, idx, st.Current, required)

	e.check(validRequiredAccess(required.Access), KindProtocol, r,
		"Resource %s (%s) asserted with combined access %s; an assert may only require a single access.", r, idx, required.Access)

	st.Previous = st.Current

	if required.Access.IsUAV() {
		if allowAllUAVsOverlap {
			st.usedWithAllUAVsOverlap = true
		}
		if st.explicitAllowUAVOverlap {
			st.usedWithExplicitUAVsOverlap = true
		}
	}

	st.Current.Access = DecayResourceAccess(st.Current.Access, required.Access, allowAllUAVsOverlap || st.explicitAllowUAVOverlap)
}

func (s *SubresourceState) assertTracked(r *Resource, idx SubresourceIndex, required State) {
	e := r.engine
	if r.logsOps() {
		r.logOp(idx, nil, "AssertTracked", "access", required.Access.String(), "pipeline", required.Pipelines.String())
	}

	st := &s.States[required.Pipelines.Index()]

	e.check(!st.transitioning, KindHazard, r,
		"Resource %s (%s) was accessed as (%s) while a transition to (%s) is in progress.%s",
		r, idx, required, st.Current, traceHint(r, "create", st.createTrace, "begin", st.beginTrace))

	e.check(st.Current.Access == required.Access, KindHazard, r,
		"Tracked access for resource %s (%s) was set to %s but the resource is in (%s).", r, idx, required.Access, st.Current)
}

func (s *SubresourceState) specificUAVOverlap(r *Resource, idx SubresourceIndex, pipe Pipeline, allow bool) {
	if r.logsOps() {
		r.logOp(idx, nil, "UAVOverlap", "allow", allow)
	}

	st := &s.States[pipe.Index()]
	r.engine.check(st.explicitAllowUAVOverlap != allow, KindOverlapToggle, r,
		"Mismatched UAV overlap call for resource %s (%s): overlap is already %s.", r, idx, enabledString(allow))
	st.explicitAllowUAVOverlap = allow
}

func enabledString(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}
