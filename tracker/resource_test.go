package tracker

import (
	"errors"
	"testing"
)

func TestResource_InitBarrierTracking(t *testing.T) {
	e := newTestEngine(t, testConfig())
	r := e.NewResource("Tex")

	if err := r.InitBarrierTracking(0, 1, 1, AccessSRVCompute, ""); !errors.Is(err, ErrInvalidLayout) {
		t.Errorf("InitBarrierTracking(0 mips) error = %v, want ErrInvalidLayout", err)
	}
	if err := r.InitBarrierTracking(1, 1, 1, AccessUnknown, ""); !errors.Is(err, ErrUnknownInitialAccess) {
		t.Errorf("InitBarrierTracking(Unknown) error = %v, want ErrUnknownInitialAccess", err)
	}
	if err := r.InitBarrierTracking(4, 2, 1, AccessCopyDest, ""); err != nil {
		t.Fatalf("InitBarrierTracking() error = %v", err)
	}
	if err := r.InitBarrierTracking(3, 2, 1, AccessCopyDest, ""); !errors.Is(err, ErrLayoutMismatch) {
		t.Errorf("re-init with different layout error = %v, want ErrLayoutMismatch", err)
	}

	if r.NumSubresources() != 8 {
		t.Errorf("NumSubresources() = %d, want 8", r.NumSubresources())
	}
	if r.TrackedAccess() != AccessCopyDest {
		t.Errorf("TrackedAccess() = %s, want CopyDest", r.TrackedAccess())
	}
	for _, pipe := range []Pipeline{PipelineGraphics, PipelineAsyncCompute} {
		st := r.PipelineState(WholeResourceIndex(), pipe)
		if st.Current != gfx(AccessCopyDest) || st.Previous != gfx(AccessCopyDest) {
			t.Errorf("%s slot = %v / %v, want CopyDest on Graphics", pipe, st.Current, st.Previous)
		}
	}
}

func TestResource_CheckValidationLayout(t *testing.T) {
	e := newTestEngine(t, testConfig())
	r := e.NewResource("Buf")
	if err := r.CheckValidationLayout(1, 1, 1); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("CheckValidationLayout() before init error = %v", err)
	}
	_ = r.InitBarrierTracking(1, 1, 2, AccessDiscard, "")
	if err := r.CheckValidationLayout(1, 1, 2); err != nil {
		t.Errorf("CheckValidationLayout() error = %v", err)
	}
	if err := r.CheckValidationLayout(1, 1, 1); !errors.Is(err, ErrLayoutMismatch) {
		t.Errorf("CheckValidationLayout(planes=1) error = %v, want ErrLayoutMismatch", err)
	}
}

func TestResource_EnumerateSubresources(t *testing.T) {
	e := newTestEngine(t, testConfig())
	r := newTestResource(t, e, "Tex", 2, 2, 2, AccessSRVCompute)

	var visited []SubresourceIndex
	r.EnumerateSubresources(r.WholeResourceRange(), func(_ *SubresourceState, idx SubresourceIndex) {
		visited = append(visited, idx)
	}, false)
	if len(visited) != 1 || !visited[0].IsWhole() || r.IsSplit() {
		t.Fatalf("whole enumeration visited %v (split %v), want one whole slot", visited, r.IsSplit())
	}

	visited = nil
	partial := SubresourceRange{MipIndex: 1, NumMips: 1, NumArraySlices: 2, NumPlanes: 2}
	r.EnumerateSubresources(partial, func(s *SubresourceState, idx SubresourceIndex) {
		visited = append(visited, idx)
		s.States[0].Current.Access = AccessCopySrc
	}, false)
	if !r.IsSplit() {
		t.Fatal("partial enumeration did not split the resource")
	}
	want := []SubresourceIndex{{1, 0, 0}, {1, 1, 0}, {1, 0, 1}, {1, 1, 1}}
	if len(visited) != len(want) {
		t.Fatalf("visited %v, want %v", visited, want)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Errorf("visit %d = %v, want %v", i, visited[i], want[i])
		}
	}
	if got := r.PipelineState(SubresourceIndex{1, 1, 1}, PipelineGraphics).Current.Access; got != AccessCopySrc {
		t.Errorf("mip 1 state = %s, want CopySrc", got)
	}
	if got := r.PipelineState(SubresourceIndex{0, 1, 1}, PipelineGraphics).Current.Access; got != AccessSRVCompute {
		t.Errorf("mip 0 state = %s, want SRVCompute seeded from whole state", got)
	}

	// Whole-range visits on a split resource go per subresource and only
	// collapse on begin transitions.
	n := 0
	r.EnumerateSubresources(r.WholeResourceRange(), func(*SubresourceState, SubresourceIndex) { n++ }, false)
	if n != 8 || !r.IsSplit() {
		t.Errorf("whole non-begin visit count = %d (split %v), want 8 and split", n, r.IsSplit())
	}
	r.EnumerateSubresources(r.WholeResourceRange(), func(*SubresourceState, SubresourceIndex) {}, true)
	if r.IsSplit() {
		t.Error("whole begin transition did not collapse the resource")
	}
}

func TestResource_GetViewIdentity(t *testing.T) {
	e := newTestEngine(t, testConfig())
	r := newTestResource(t, e, "Tex", 4, 3, 2, AccessSRVCompute)

	id := r.GetViewIdentity(0, 0, 0, 0, 0, 0)
	if !id.Range.IsWholeResource(r) {
		t.Errorf("zero counts range = %v, want whole", id.Range)
	}
	id = r.GetViewIdentity(2, 5, 1, 1, 1, 1)
	want := SubresourceRange{MipIndex: 2, NumMips: 2, ArraySlice: 1, NumArraySlices: 1, PlaneIndex: 1, NumPlanes: 1}
	if id.Range != want {
		t.Errorf("GetViewIdentity() range = %v, want %v", id.Range, want)
	}
}

func TestResource_GetTransitionIdentity(t *testing.T) {
	e := newTestEngine(t, testConfig())
	r := newTestResource(t, e, "Tex", 4, 3, 2, AccessSRVCompute)

	id := r.GetTransitionIdentity(WholeResourceIndex())
	if !id.Range.IsWholeResource(r) {
		t.Errorf("all-subresource range = %v, want whole", id.Range)
	}
	id = r.GetTransitionIdentity(SubresourceIndex{MipIndex: 3, ArraySlice: SubresourceAll, PlaneIndex: 0})
	want := SubresourceRange{MipIndex: 3, NumMips: 1, NumArraySlices: 3, NumPlanes: 1}
	if id.Range != want {
		t.Errorf("GetTransitionIdentity() range = %v, want %v", id.Range, want)
	}
}

// TestResource_RenameWatchList covers round-trip naming and automatic
// logging from the watch-list.
func TestResource_RenameWatchList(t *testing.T) {
	cfg := testConfig()
	cfg.AutoLogResources = []string{"SceneDepth", "GBuffer*"}
	e := newTestEngine(t, cfg)
	r := newTestResource(t, e, "", 1, 1, 1, AccessSRVCompute)
	tr := e.NewTracker(PipelineGraphics)

	tr.Rename(r, "Foo", "")
	submit(e, tr)
	if r.DebugName() != "Foo" {
		t.Errorf("DebugName() = %q, want %q", r.DebugName(), "Foo")
	}
	if r.LoggingMode() != LoggingNone {
		t.Errorf("LoggingMode() = %v, want None", r.LoggingMode())
	}

	tr.Rename(r, "scenedepth", "")
	submit(e, tr)
	if r.LoggingMode() != LoggingAutomatic {
		t.Errorf("LoggingMode() after watched rename = %v, want Automatic", r.LoggingMode())
	}

	tr.Rename(r, "GBufferA", "_Hist")
	submit(e, tr)
	if r.DebugName() != "GBufferA_Hist" || r.LoggingMode() != LoggingAutomatic {
		t.Errorf("after glob rename = %q/%v, want GBufferA_Hist/Automatic", r.DebugName(), r.LoggingMode())
	}

	tr.Rename(r, "Bar", "")
	submit(e, tr)
	if r.LoggingMode() != LoggingNone {
		t.Errorf("LoggingMode() after unwatched rename = %v, want None", r.LoggingMode())
	}

	r.SetLoggingMode(LoggingManual)
	tr.Rename(r, "Baz", "")
	submit(e, tr)
	if r.LoggingMode() != LoggingManual {
		t.Errorf("manual mode overwritten by rename: %v", r.LoggingMode())
	}
	expectFailures(t, e, 0)
}

func TestResource_DestroyWithPendingOps(t *testing.T) {
	e := newTestEngine(t, testConfig())
	r := newTestResource(t, e, "Buf", 1, 1, 1, AccessCopySrc)
	tr := e.NewTracker(PipelineGraphics)

	tr.Assert(r.WholeResource(), AccessCopySrc)
	if r.OpRefs() != 1 {
		t.Fatalf("OpRefs() = %d, want 1", r.OpRefs())
	}
	if err := r.Destroy(); !errors.Is(err, ErrResourceInUse) {
		t.Errorf("Destroy() error = %v, want ErrResourceInUse", err)
	}
	expectFailure(t, expectFailures(t, e, 1)[0], KindProtocol, "pending operations")

	submit(e, tr)
	if r.OpRefs() != 0 {
		t.Errorf("OpRefs() after replay = %d, want 0", r.OpRefs())
	}
	if err := r.Destroy(); err != nil {
		t.Errorf("Destroy() after replay error = %v", err)
	}
	if !r.Destroyed() {
		t.Error("Destroyed() = false")
	}
}
