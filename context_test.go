package gpuval

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuval/tracker"
)

// =============================================================================
// Draw and dispatch
// =============================================================================

func TestContext_DrawWithoutPSO(t *testing.T) {
	be := &recordingBackend{}
	rhi := newTestRHI(t, WithBackend(be))
	ctx := rhi.NewContext(tracker.PipelineGraphics)

	ctx.Draw()

	expectFailure(t, expectFailures(t, rhi, 1)[0], tracker.KindFacade, "A graphics PSO has to be set")
	if !be.has("Draw") {
		t.Error("Draw was not forwarded to the backend")
	}
}

func TestContext_DispatchWithoutShader(t *testing.T) {
	rhi := newTestRHI(t)
	ctx := rhi.NewContext(tracker.PipelineAsyncCompute)

	ctx.Dispatch()

	expectFailure(t, expectFailures(t, rhi, 1)[0], tracker.KindFacade, "A compute PSO has to be set")
}

func TestContext_DrawAssertsBoundUAVs(t *testing.T) {
	rhi := newTestRHI(t)
	buf := mustBuffer(t, rhi, BufferDesc{Name: "Counters", Size: 64, Stride: 4, InitialAccess: tracker.AccessCopyDest})
	uav := rhi.CreateBufferUAV(buf, BufferViewDesc{Type: BufferTypeStructured})
	ps := NewShader(ShaderDesc{Name: "PS", Stage: gputypes.ShaderStageFragment})
	ctx := rhi.NewContext(tracker.PipelineGraphics)

	if err := ctx.SetGraphicsPipelineState(GraphicsPipelineState{Name: "Main", FragmentShader: ps}); err != nil {
		t.Fatalf("SetGraphicsPipelineState() error = %v", err)
	}
	ctx.SetShaderParameters(ps, ShaderParameter{Index: 0, Resource: uav})
	ctx.Draw()
	submit(t, rhi, ctx)

	f := expectFailures(t, rhi, 1)[0]
	expectFailure(t, f, tracker.KindHazard, "Missing barrier")
	if f.Resource == "" {
		t.Error("Failure.Resource is empty, want the UAV's buffer")
	}
}

func TestContext_PipelineResetsUAVs(t *testing.T) {
	rhi := newTestRHI(t)
	buf := mustBuffer(t, rhi, BufferDesc{Name: "Counters", Size: 64, Stride: 4, InitialAccess: tracker.AccessCopyDest})
	uav := rhi.CreateBufferUAV(buf, BufferViewDesc{Type: BufferTypeStructured})
	ps := NewShader(ShaderDesc{Name: "PS", Stage: gputypes.ShaderStageFragment})
	ctx := rhi.NewContext(tracker.PipelineGraphics)
	pso := GraphicsPipelineState{Name: "Main", FragmentShader: ps}

	if err := ctx.SetGraphicsPipelineState(pso); err != nil {
		t.Fatalf("SetGraphicsPipelineState() error = %v", err)
	}
	ctx.SetShaderParameters(ps, ShaderParameter{Index: 0, Resource: uav})
	if err := ctx.SetGraphicsPipelineState(pso); err != nil {
		t.Fatalf("SetGraphicsPipelineState() error = %v", err)
	}
	ctx.Draw()
	submit(t, rhi, ctx)

	expectFailures(t, rhi, 0)
}

func TestContext_ComputeOnAsync(t *testing.T) {
	rhi := newTestRHI(t)
	buf := mustBuffer(t, rhi, BufferDesc{Name: "Output", Size: 64, Stride: 16, InitialAccess: tracker.AccessCopyDest})
	uav := rhi.CreateBufferUAV(buf, BufferViewDesc{Type: BufferTypeStructured})
	cs := NewShader(ShaderDesc{
		Name:     "Cull",
		Stage:    gputypes.ShaderStageCompute,
		UAVTypes: []TypeBinding{{BindPoint: 0, Type: BindingRWStructuredBuffer}},
	})
	gfx := rhi.NewContext(tracker.PipelineGraphics)
	async := rhi.NewContext(tracker.PipelineAsyncCompute)

	tr := mustTransition(t, rhi, TransitionCreateInfo{
		SrcPipelines: tracker.PipelineGraphics,
		DstPipelines: tracker.PipelineAsyncCompute,
		Infos:        []TransitionInfo{BufferTransition(buf, tracker.AccessCopyDest, tracker.AccessUAVCompute)},
	})
	gfx.BeginTransitions(tr)
	async.EndTransitions(tr)
	async.SetComputeShader(cs)
	async.SetShaderParameters(cs, ShaderParameter{Index: 0, Resource: uav})
	async.Dispatch()
	submit(t, rhi, gfx, async)

	expectFailures(t, rhi, 0)
}

func TestContext_GraphicsOnlyCallsOnAsync(t *testing.T) {
	rhi := newTestRHI(t)
	ctx := rhi.NewContext(tracker.PipelineAsyncCompute)

	if err := ctx.BeginRenderPass("Main"); !errors.Is(err, ErrWrongPipeline) {
		t.Errorf("BeginRenderPass() error = %v, want ErrWrongPipeline", err)
	}
	if err := ctx.SetGraphicsPipelineState(GraphicsPipelineState{Name: "Main"}); !errors.Is(err, ErrWrongPipeline) {
		t.Errorf("SetGraphicsPipelineState() error = %v, want ErrWrongPipeline", err)
	}
}

func TestContext_RenderPassNesting(t *testing.T) {
	rhi := newTestRHI(t)
	ctx := rhi.NewContext(tracker.PipelineGraphics)

	if err := ctx.BeginRenderPass("A"); err != nil {
		t.Fatalf("BeginRenderPass() error = %v", err)
	}
	if err := ctx.BeginRenderPass("B"); err != nil {
		t.Fatalf("BeginRenderPass() error = %v", err)
	}
	ctx.EndRenderPass()
	ctx.EndRenderPass()

	failures := expectFailures(t, rhi, 2)
	expectFailure(t, failures[0], tracker.KindFacade, "still open")
	expectFailure(t, failures[1], tracker.KindFacade, "without an open render pass")
	if ctx.InsideRenderPass() {
		t.Error("InsideRenderPass() = true after EndRenderPass")
	}
}

// =============================================================================
// Copies
// =============================================================================

func TestContext_CopyToStagingBuffer(t *testing.T) {
	tests := []struct {
		name     string
		usage    gputypes.BufferUsage
		validate bool
		initial  tracker.Access
		want     int
	}{
		{"copy source", gputypes.BufferUsageCopySrc, true, tracker.AccessCopySrc, 0},
		{"missing usage", gputypes.BufferUsageStorage, true, tracker.AccessCopySrc, 1},
		{"missing usage unchecked", gputypes.BufferUsageStorage, false, tracker.AccessCopySrc, 0},
		{"wrong state", gputypes.BufferUsageCopySrc, true, tracker.AccessUAVCompute, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rhi := newTestRHI(t, WithBufferSourceCopyValidation(tt.validate))
			buf := mustBuffer(t, rhi, BufferDesc{Name: "Readback", Size: 256, Usage: tt.usage, InitialAccess: tt.initial})
			ctx := rhi.NewContext(tracker.PipelineGraphics)

			ctx.CopyToStagingBuffer(buf, &StagingBuffer{Name: "Staging", Size: 256}, 0, 256)
			submit(t, rhi, ctx)

			expectFailures(t, rhi, tt.want)
		})
	}
}

// =============================================================================
// UAV overlap
// =============================================================================

func TestContext_UAVOverlap(t *testing.T) {
	rhi := newTestRHI(t)
	buf := mustBuffer(t, rhi, BufferDesc{Name: "Accum", Size: 64, Stride: 4, InitialAccess: tracker.AccessCopyDest})
	uav := rhi.CreateBufferUAV(buf, BufferViewDesc{Type: BufferTypeStructured})
	cs := NewShader(ShaderDesc{Name: "Accumulate", Stage: gputypes.ShaderStageCompute})
	ctx := rhi.NewContext(tracker.PipelineGraphics)

	ctx.Transition(mustTransition(t, rhi, gfxTransition(UAVTransition(uav, tracker.AccessCopyDest, tracker.AccessUAVCompute))))
	ctx.SetComputeShader(cs)
	ctx.SetShaderParameters(cs, ShaderParameter{Index: 0, Resource: uav})

	// Back to back dispatches writing the same UAV are fine while overlap
	// is enabled for it.
	ctx.BeginUAVOverlap(uav)
	ctx.Dispatch()
	ctx.Dispatch()
	ctx.EndUAVOverlap(uav)
	submit(t, rhi, ctx)

	expectFailures(t, rhi, 0)
}

func TestContext_UAVWithoutBarrier(t *testing.T) {
	rhi := newTestRHI(t)
	buf := mustBuffer(t, rhi, BufferDesc{Name: "Accum", Size: 64, Stride: 4, InitialAccess: tracker.AccessCopyDest})
	uav := rhi.CreateBufferUAV(buf, BufferViewDesc{Type: BufferTypeStructured})
	cs := NewShader(ShaderDesc{Name: "Accumulate", Stage: gputypes.ShaderStageCompute})
	ctx := rhi.NewContext(tracker.PipelineGraphics)

	ctx.Transition(mustTransition(t, rhi, gfxTransition(UAVTransition(uav, tracker.AccessCopyDest, tracker.AccessUAVCompute))))
	ctx.SetComputeShader(cs)
	ctx.SetShaderParameters(cs, ShaderParameter{Index: 0, Resource: uav})
	ctx.Dispatch()
	ctx.Dispatch()
	submit(t, rhi, ctx)

	expectFailure(t, expectFailures(t, rhi, 1)[0], tracker.KindHazard, "Missing barrier")
}

func TestContext_UAVOverlapMismatch(t *testing.T) {
	rhi := newTestRHI(t)
	ctx := rhi.NewContext(tracker.PipelineGraphics)

	ctx.BeginUAVOverlap()
	ctx.BeginUAVOverlap()
	submit(t, rhi, ctx)

	expectFailure(t, expectFailures(t, rhi, 1)[0], tracker.KindOverlapToggle, "already enabled")
}

// =============================================================================
// Tracked access and breadcrumbs
// =============================================================================

func TestContext_SetTrackedAccess(t *testing.T) {
	rhi := newTestRHI(t)
	buf := mustBuffer(t, rhi, BufferDesc{Name: "External", Size: 64, InitialAccess: tracker.AccessCopyDest})
	ctx := rhi.NewContext(tracker.PipelineGraphics)

	ctx.SetTrackedAccess(buf, tracker.AccessSRVCompute)
	submit(t, rhi, ctx)

	expectFailure(t, expectFailures(t, rhi, 1)[0], tracker.KindHazard, "Tracked access")
}

func TestContext_EndBreadcrumbMismatch(t *testing.T) {
	rhi := newTestRHI(t)
	ctx := rhi.NewContext(tracker.PipelineGraphics)

	outer := ctx.BeginBreadcrumb("Outer")
	ctx.BeginBreadcrumb("Inner")
	ctx.EndBreadcrumb(outer)

	expectFailure(t, expectFailures(t, rhi, 1)[0], tracker.KindBreadcrumb, "innermost open breadcrumb")
}
