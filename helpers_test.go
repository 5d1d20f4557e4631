package gpuval

import (
	"strings"
	"sync"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpuval/tracker"
)

// =============================================================================
// Test doubles
// =============================================================================

// recordingBackend records every call it receives.
type recordingBackend struct {
	NopBackend

	mu          sync.Mutex
	calls       []string
	submitted   []*CommandList
	transitions int
	lockErr     error
}

func (b *recordingBackend) record(call string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call)
}

func (b *recordingBackend) Name() string { return "recording" }

func (b *recordingBackend) CreateTexture(t *Texture) error {
	b.record("CreateTexture " + t.Name())
	return nil
}

func (b *recordingBackend) CreateBuffer(buf *Buffer) error {
	b.record("CreateBuffer " + buf.Name())
	return nil
}

func (b *recordingBackend) CreateTransition(*Transition) error {
	b.mu.Lock()
	b.transitions++
	b.mu.Unlock()
	return nil
}

func (b *recordingBackend) LockBuffer(buf *Buffer, mode LockMode) error {
	b.record("LockBuffer " + buf.Name() + " " + mode.String())
	return b.lockErr
}

func (b *recordingBackend) BindDebugLabelName(_ Trackable, name string) {
	b.record("BindDebugLabelName " + name)
}

func (b *recordingBackend) Draw(tracker.Pipeline)     { b.record("Draw") }
func (b *recordingBackend) Dispatch(tracker.Pipeline) { b.record("Dispatch") }

func (b *recordingBackend) Submit(lists []*CommandList) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submitted = append(b.submitted, lists...)
	return nil
}

func (b *recordingBackend) EndFrame() { b.record("EndFrame") }

func (b *recordingBackend) has(call string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.calls {
		if c == call {
			return true
		}
	}
	return false
}

// mockHALTexture is a test double for hal.Texture.
type mockHALTexture struct {
	label   string
	usage   gputypes.TextureUsage
	pending int
}

// Destroy implements hal.Resource.
func (t *mockHALTexture) Destroy() {}

// NativeHandle implements hal.NativeHandle.
func (t *mockHALTexture) NativeHandle() uintptr { return 0 }

// CurrentUsage implements hal.Texture.
func (t *mockHALTexture) CurrentUsage() gputypes.TextureUsage { return t.usage }

func (t *mockHALTexture) AddPendingRef() { t.pending++ }
func (t *mockHALTexture) DecPendingRef() { t.pending-- }

var _ hal.Texture = (*mockHALTexture)(nil)

// mockEncoder collects the barriers written to it.
type mockEncoder struct {
	barriers []hal.TextureBarrier
}

func (e *mockEncoder) TransitionTextures(barriers []hal.TextureBarrier) {
	e.barriers = append(e.barriers, barriers...)
}

// =============================================================================
// Helpers
// =============================================================================

func testConfig() tracker.Config {
	cfg := tracker.DefaultConfig()
	cfg.DebugBreak = false
	return cfg
}

func newTestRHI(t *testing.T, opts ...Option) *RHI {
	t.Helper()
	opts = append([]Option{WithConfig(testConfig())}, opts...)
	rhi, err := NewRHI(opts...)
	if err != nil {
		t.Fatalf("NewRHI() error = %v", err)
	}
	t.Cleanup(rhi.Close)
	return rhi
}

func mustBuffer(t *testing.T, rhi *RHI, desc BufferDesc) *Buffer {
	t.Helper()
	b, err := rhi.CreateBuffer(desc)
	if err != nil {
		t.Fatalf("CreateBuffer(%q) error = %v", desc.Name, err)
	}
	return b
}

func mustTexture(t *testing.T, rhi *RHI, desc TextureDesc) *Texture {
	t.Helper()
	tex, err := rhi.CreateTexture(desc)
	if err != nil {
		t.Fatalf("CreateTexture(%q) error = %v", desc.Name, err)
	}
	return tex
}

func mustTransition(t *testing.T, rhi *RHI, ci TransitionCreateInfo) *Transition {
	t.Helper()
	tr, err := rhi.CreateTransition(ci)
	if err != nil {
		t.Fatalf("CreateTransition() error = %v", err)
	}
	return tr
}

// gfxTransition builds a graphics-to-graphics transition.
func gfxTransition(infos ...TransitionInfo) TransitionCreateInfo {
	return TransitionCreateInfo{
		SrcPipelines: tracker.PipelineGraphics,
		DstPipelines: tracker.PipelineGraphics,
		Infos:        infos,
	}
}

// submit finalizes and submits each context in order.
func submit(t *testing.T, rhi *RHI, contexts ...*Context) {
	t.Helper()
	for _, c := range contexts {
		if err := rhi.SubmitCommandLists(rhi.FinalizeContext(c)); err != nil {
			t.Fatalf("SubmitCommandLists() error = %v", err)
		}
	}
}

func expectFailures(t *testing.T, rhi *RHI, want int) []tracker.Failure {
	t.Helper()
	got := rhi.Failures()
	if len(got) != want {
		for _, f := range got {
			t.Logf("  failure: %v", f)
		}
		t.Fatalf("len(Failures()) = %d, want %d", len(got), want)
	}
	return got
}

func expectFailure(t *testing.T, f tracker.Failure, kind tracker.Kind, substr string) {
	t.Helper()
	if f.Kind != kind {
		t.Errorf("Failure.Kind = %v, want %v (%s)", f.Kind, kind, f.Message)
	}
	if !strings.Contains(f.Message, substr) {
		t.Errorf("Failure.Message = %q, want substring %q", f.Message, substr)
	}
}

func depthTexture(t *testing.T, rhi *RHI, name string) *Texture {
	t.Helper()
	return mustTexture(t, rhi, TextureDesc{
		Name:          name,
		Format:        gputypes.TextureFormatDepth24PlusStencil8,
		Dimension:     gputypes.TextureDimension2D,
		Width:         64,
		Height:        64,
		InitialAccess: tracker.AccessDSVWrite,
	})
}
