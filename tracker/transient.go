package tracker

// TransientStatus is the lifecycle position of a transient resource.
type TransientStatus uint8

const (
	TransientNone TransientStatus = iota
	TransientAcquired
	TransientDiscarded
)

func (s TransientStatus) String() string {
	switch s {
	case TransientNone:
		return "None"
	case TransientAcquired:
		return "Acquired"
	case TransientDiscarded:
		return "Discarded"
	default:
		return "Unknown"
	}
}

// TransientState tracks the acquire, discard and aliasing lifecycle of a
// resource whose memory is shared with other resources.
type TransientState struct {
	transient    bool
	status       TransientStatus
	acquireTrace *Backtrace
	// numAcquired counts subresource-pipeline pairs not yet discarded.
	numAcquired int
	// aliasedBy is set once another resource has been placed in this
	// resource's discarded memory.
	aliasedBy *Resource
}

// IsTransient reports whether the resource takes part in memory aliasing.
func (t *TransientState) IsTransient() bool { return t.transient }

// Status returns the lifecycle status.
func (t *TransientState) Status() TransientStatus { return t.status }

// RemainingAcquired returns the number of subresource-pipeline pairs that
// have not been discarded yet.
func (t *TransientState) RemainingAcquired() int { return t.numAcquired }

func (t *TransientState) acquire(r *Resource, createTrace *Backtrace) {
	e := r.engine
	e.check(t.transient, KindTransientLifecycle, r,
		"Attempted to acquire non-transient resource %s.", r)
	e.check(t.status == TransientNone, KindTransientLifecycle, r,
		"Transient resource %s was acquired more than once.%s", r, traceHint(r, "first acquire", t.acquireTrace, "second acquire", createTrace))

	t.status = TransientAcquired
	if t.acquireTrace == nil {
		t.acquireTrace = createTrace
	}
	t.numAcquired = r.NumSubresources() * PipelineCount

	if r.logsOps() {
		r.logOp(WholeResourceIndex(), createTrace, "Acquire")
	}
}

// discard accounts for weight subresources being discarded from pipes.
// Discarding from every pipe arrives once per pipe; a single-pipe discard
// covers both pipeline slots at once.
func (t *TransientState) discard(r *Resource, createTrace *Backtrace, pipes Pipeline, weight int) {
	e := r.engine
	e.check(t.transient, KindTransientLifecycle, r,
		"Attempted to discard non-transient resource %s.", r)
	e.check(t.status != TransientNone, KindTransientLifecycle, r,
		"Transient resource %s was discarded without being acquired.", r)
	e.check(t.status != TransientDiscarded, KindTransientLifecycle, r,
		"Transient resource %s was discarded more than once.", r)

	derefs := 2
	if pipes == PipelineAll {
		derefs = 1
	}
	// A resource with a single subresource has weight 1: the plain 1 or 2 decrement.
	t.numAcquired -= derefs * weight
	if t.numAcquired > 0 || t.status != TransientAcquired {
		return
	}
	t.numAcquired = 0
	t.status = TransientDiscarded

	if r.logsOps() {
		r.logOp(WholeResourceIndex(), createTrace, "Discard")
	}
}

func aliasingOverlap(before, after *Resource, createTrace *Backtrace) {
	e := before.engine
	tb := &before.transient
	e.check(tb.transient, KindTransientLifecycle, before,
		"Aliasing overlap from non-transient resource %s onto %s.", before, after)
	e.check(tb.status == TransientDiscarded, KindTransientLifecycle, before,
		"Aliasing overlap from resource %s onto %s, but %s has not been fully discarded.%s",
		before, after, before, traceHint(before, "overlap", createTrace))
	if tb.aliasedBy != nil {
		e.check(false, KindTransientLifecycle, before,
			"Aliasing overlap from resource %s onto %s, but its memory was already taken over by %s.",
			before, after, tb.aliasedBy)
	} else if tb.status == TransientDiscarded {
		tb.aliasedBy = after
	}

	if before.logsOps() {
		before.logOp(WholeResourceIndex(), createTrace, "AliasingOverlap", "role", "before", "other", after.String())
	}
	if after.logsOps() {
		after.logOp(WholeResourceIndex(), createTrace, "AliasingOverlap", "role", "after", "other", before.String())
	}
}
