package tracker

import (
	"strings"
	"testing"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.DebugBreak = false
	return cfg
}

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e
}

func newTestResource(t *testing.T, e *Engine, name string, mips, slices, planes int, access Access) *Resource {
	t.Helper()
	r := e.NewResource(name)
	if err := r.InitBarrierTracking(mips, slices, planes, access, name); err != nil {
		t.Fatalf("InitBarrierTracking(%s) error = %v", name, err)
	}
	return r
}

func submit(e *Engine, trackers ...*Tracker) {
	for _, tr := range trackers {
		e.SubmitValidationOps(tr.Pipeline(), tr.Finalize())
	}
}

// transition records a full begin/end pair on one tracker.
func transition(tr *Tracker, id ResourceIdentity, from, to State) {
	tr.BeginTransition(id, from, to, TransitionFlagNone, TransitionCreateNone, nil)
	tr.EndTransition(id, from, to, nil)
}

func expectFailures(t *testing.T, e *Engine, want int) []Failure {
	t.Helper()
	got := e.Failures()
	if len(got) != want {
		for _, f := range got {
			t.Logf("  failure: %v", f)
		}
		t.Fatalf("len(Failures()) = %d, want %d", len(got), want)
	}
	return got
}

func expectFailure(t *testing.T, f Failure, kind Kind, substr string) {
	t.Helper()
	if f.Kind != kind {
		t.Errorf("Failure.Kind = %v, want %v (%s)", f.Kind, kind, f.Message)
	}
	if !strings.Contains(f.Message, substr) {
		t.Errorf("Failure.Message = %q, want substring %q", f.Message, substr)
	}
}

func gfx(a Access) State   { return State{Access: a, Pipelines: PipelineGraphics} }
func async(a Access) State { return State{Access: a, Pipelines: PipelineAsyncCompute} }
