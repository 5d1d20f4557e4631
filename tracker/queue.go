package tracker

type opList struct {
	ops []Operation
	pos int
}

// OpQueueState is the replay queue of one pipeline: a FIFO of submitted
// operation lists plus the per-pipeline GPU timeline state replay reads and
// updates.
type OpQueueState struct {
	engine   *Engine
	pipeline Pipeline
	lists    []*opList

	maxAwaitedFenceValues [PipelineCount]uint64
	allowAllUAVsOverlap   bool
	fenceValue            uint64

	breadcrumbs struct {
		current *Breadcrumb
		rng     BreadcrumbRange
	}
}

func newOpQueueState(e *Engine, pipe Pipeline) *OpQueueState {
	return &OpQueueState{engine: e, pipeline: pipe}
}

// Pipeline returns the pipeline this queue replays.
func (q *OpQueueState) Pipeline() Pipeline { return q.pipeline }

// FenceValue returns the value assigned to the most recent Signal.
func (q *OpQueueState) FenceValue() uint64 { return q.fenceValue }

// MaxAwaitedFenceValue returns the highest fence value from src this queue
// has waited on.
func (q *OpQueueState) MaxAwaitedFenceValue(src Pipeline) uint64 {
	return q.maxAwaitedFenceValues[src.Index()]
}

// AllowAllUAVsOverlap reports whether global UAV overlap is enabled.
func (q *OpQueueState) AllowAllUAVsOverlap() bool { return q.allowAllUAVsOverlap }

// CurrentBreadcrumb returns the innermost open breadcrumb.
func (q *OpQueueState) CurrentBreadcrumb() *Breadcrumb { return q.breadcrumbs.current }

// Blocked reports whether the head operation is a wait on an unsignaled fence.
func (q *OpQueueState) Blocked() bool {
	if len(q.lists) == 0 {
		return false
	}
	head := q.lists[0]
	if head.pos >= len(head.ops) {
		return false
	}
	op := head.ops[head.pos]
	return op.Type == OpWait && !op.data.(*fenceOp).fence.Signaled
}

func (q *OpQueueState) appendOps(ops []Operation) {
	if len(ops) == 0 {
		return
	}
	q.lists = append(q.lists, &opList{ops: ops})
}

func (q *OpQueueState) pending() int {
	n := 0
	for _, l := range q.lists {
		n += len(l.ops) - l.pos
	}
	return n
}

// Execute replays operations front to back until the queue is empty or
// blocked on a fence. It reports whether any operation replayed.
func (q *OpQueueState) Execute() bool {
	if len(q.lists) == 0 {
		return false
	}

	q.engine.replaying.Store(q)
	defer q.engine.replaying.Store(nil)

	progress := false
	for len(q.lists) > 0 {
		list := q.lists[0]
		for ; list.pos < len(list.ops); list.pos++ {
			if list.ops[list.pos].Replay(q) == ReplayBlocked {
				return progress
			}
			progress = true
		}
		q.lists[0] = nil
		q.lists = q.lists[1:]
	}
	return progress
}
