package tracker

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	onFailure func(Failure)
	onBreak   func(Failure)
}

// WithFailureHandler calls fn for the first report of every unique failure.
func WithFailureHandler(fn func(Failure)) Option {
	return func(o *engineOptions) { o.onFailure = fn }
}

// WithBreakHandler installs the hook called instead of a debugger break when
// Config.DebugBreak is set.
func WithBreakHandler(fn func(Failure)) Option {
	return func(o *engineOptions) { o.onBreak = fn }
}

// Engine owns the configuration, the failure reporter and one replay queue
// per pipeline. Resources, trackers and fences are created from it.
type Engine struct {
	cfg   Config
	watch *watchList
	rep   *reporter

	// mu serializes replay across submitting goroutines.
	mu        sync.Mutex
	queues    [PipelineCount]*OpQueueState
	replaying atomic.Pointer[OpQueueState]
}

// NewEngine validates cfg and creates an engine.
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	watch, err := compileWatchList(cfg.AutoLogResources)
	if err != nil {
		return nil, err
	}
	var o engineOptions
	for _, opt := range opts {
		opt(&o)
	}
	e := &Engine{
		cfg:   cfg,
		watch: watch,
		rep:   newReporter(cfg.DebugBreak, o.onFailure, o.onBreak),
	}
	for i := range e.queues {
		e.queues[i] = newOpQueueState(e, PipelineAt(i))
	}
	Logger().Info("tracker: engine created",
		"bypass", cfg.Bypass, "watched", len(cfg.AutoLogResources))
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Bypass reports whether operations replay inline.
func (e *Engine) Bypass() bool { return e.cfg.Bypass }

// IsWatched reports whether name matches the auto-log watch-list.
func (e *Engine) IsWatched(name string) bool { return e.watch.Match(name) }

// Queue returns the replay queue of a single pipeline.
func (e *Engine) Queue(pipe Pipeline) *OpQueueState { return e.queues[pipe.Index()] }

// NewTracker creates a recorder for a command context on pipe.
func (e *Engine) NewTracker(pipe Pipeline) *Tracker {
	return &Tracker{engine: e, pipeline: pipe}
}

// NewFence creates a fence from src to dst.
func (e *Engine) NewFence(src, dst Pipeline) *Fence { return NewFence(src, dst) }

// SubmitValidationOps appends ops to pipe's queue and replays every queue
// until none makes progress. Queues blocked on unsignaled fences stay
// blocked until a later submission signals them.
func (e *Engine) SubmitValidationOps(pipe Pipeline, ops []Operation) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.Queue(pipe).appendOps(ops)
	for progress := true; progress; {
		progress = false
		for _, q := range e.queues {
			if q.Execute() {
				progress = true
			}
		}
	}
}

// Pending returns the number of unreplayed operations queued on pipe.
func (e *Engine) Pending(pipe Pipeline) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Queue(pipe).pending()
}

// replayInline replays op on pipe's queue outside a submission. It reports
// false when op blocks.
func (e *Engine) replayInline(pipe Pipeline, op Operation) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	q := e.Queue(pipe)
	if q.pending() > 0 {
		return false
	}
	e.replaying.Store(q)
	defer e.replaying.Store(nil)
	return op.Replay(q) == ReplayDone
}

// Report records a failure unconditionally through the report-once gate.
func (e *Engine) Report(kind Kind, r *Resource, format string, args ...any) {
	f := Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
	if r != nil {
		f.Resource = r.String()
		f.ResourceID = r.id
	}
	if q := e.replaying.Load(); q != nil {
		f.Breadcrumbs = q.breadcrumbs.current.Path()
	}
	e.rep.report(f)
}

// check reports a failure when cond is false and returns cond. The message
// is only formatted on failure.
func (e *Engine) check(cond bool, kind Kind, r *Resource, format string, args ...any) bool {
	if !cond {
		e.Report(kind, r, format, args...)
	}
	return cond
}

// Failures returns the unique failures reported so far, in order.
func (e *Engine) Failures() []Failure { return e.rep.list() }

// Stats returns report counters.
func (e *Engine) Stats() Stats { return e.rep.stats() }
