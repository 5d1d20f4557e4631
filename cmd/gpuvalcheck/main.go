// Command gpuvalcheck replays the built-in barrier validation scenarios and
// reports whether each produced the expected failures.
//
// Usage:
//
//	gpuvalcheck [-config gpuval.toml] [-log "SceneDepth, GBuffer*"] [-run A,P4] [-v]
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuval"
	"github.com/gogpu/gpuval/tracker"
)

type scenario struct {
	name string
	desc string
	// want is the number of unique failures the scenario must report.
	want int
	run  func(rhi *gpuval.RHI) error
}

var scenarios = []scenario{
	{"A", "transition then assert on one pipeline", 1, scenarioA},
	{"B", "cross-pipeline transition waits for its fence", 0, scenarioB},
	{"C", "transient aliasing consumes the discarded resource", 1, scenarioC},
	{"P1", "barrier necessity", 1, propertyBarrierNecessity},
	{"P2", "no double begin", 1, propertyNoDoubleBegin},
	{"P3", "read asserts decay idempotently", 0, propertyReadDecay},
	{"P4", "UAV writes serialize unless overlapped", 1, propertyUAVSerialization},
	{"P5", "fence gating", 0, propertyFenceGating},
	{"P6", "transient lifecycle", 4, propertyTransientLifecycle},
	{"P7", "round-trip naming", 0, propertyRoundTripNaming},
}

func main() {
	var (
		configPath = flag.String("config", "", "TOML validation config")
		logList    = flag.String("log", "", "comma separated resource names or globs to log")
		run        = flag.String("run", "", "comma separated scenarios to run (default all)")
		verbose    = flag.Bool("v", false, "log replayed operations and lifecycle events")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	gpuval.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := tracker.DefaultConfig()
	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			log.Fatalf("Failed to open config: %v", err)
		}
		cfg, err = tracker.LoadConfig(f)
		f.Close()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	// Failures are expected here; never stop on them.
	cfg.DebugBreak = false

	selected := tracker.ParseAutoLogList(*run)
	failed := 0
	for _, s := range scenarios {
		if len(selected) > 0 && !slices.Contains(selected, s.name) {
			continue
		}
		if !check(s, cfg, tracker.ParseAutoLogList(*logList)) {
			failed++
		}
	}
	if failed > 0 {
		fmt.Printf("FAIL: %d scenario(s)\n", failed)
		os.Exit(1)
	}
	fmt.Println("ok")
}

func check(s scenario, cfg tracker.Config, watch []string) bool {
	rhi, err := gpuval.NewRHI(gpuval.WithConfig(cfg), gpuval.WithAutoLogResources(watch...))
	if err != nil {
		log.Fatalf("Failed to create RHI: %v", err)
	}
	defer rhi.Close()

	err = s.run(rhi)
	failures := rhi.Failures()
	ok := err == nil && len(failures) == s.want

	status := "ok  "
	if !ok {
		status = "FAIL"
	}
	fmt.Printf("%s %-3s %s (%d/%d failures)\n", status, s.name, s.desc, len(failures), s.want)
	if err != nil {
		fmt.Printf("     error: %v\n", err)
	}
	for _, f := range failures {
		fmt.Printf("     %s: %s\n", f.Kind, strings.ReplaceAll(f.Message, "\n", "\n       "))
	}
	return ok
}

// =============================================================================
// Helpers
// =============================================================================

func submit(rhi *gpuval.RHI, contexts ...*gpuval.Context) error {
	for _, c := range contexts {
		if err := rhi.SubmitCommandLists(rhi.FinalizeContext(c)); err != nil {
			return err
		}
	}
	return nil
}

func graphics(infos ...gpuval.TransitionInfo) gpuval.TransitionCreateInfo {
	return gpuval.TransitionCreateInfo{
		SrcPipelines: tracker.PipelineGraphics,
		DstPipelines: tracker.PipelineGraphics,
		Infos:        infos,
	}
}

func transition(rhi *gpuval.RHI, ctx *gpuval.Context, ci gpuval.TransitionCreateInfo) error {
	tr, err := rhi.CreateTransition(ci)
	if err != nil {
		return err
	}
	ctx.Transition(tr)
	return nil
}

func target(alloc *gpuval.TransientAllocator, name string) (*gpuval.Texture, error) {
	return alloc.CreateTexture(gpuval.TextureDesc{
		Name:      name,
		Format:    gputypes.TextureFormatRGBA8Unorm,
		Dimension: gputypes.TextureDimension2D,
		Width:     256,
		Height:    256,
	}, nil)
}

// acquire transitions transient tex out of Discard, taking over the memory
// of overlaps.
func acquire(rhi *gpuval.RHI, ctx *gpuval.Context, tex *gpuval.Texture, after tracker.Access, overlaps ...gpuval.Trackable) error {
	ci := graphics(gpuval.TextureTransition(tex, tracker.AccessDiscard, after))
	ci.AliasingInfos = []gpuval.AliasingInfo{{Resource: tex, Acquire: true, Overlaps: overlaps}}
	return transition(rhi, ctx, ci)
}

// =============================================================================
// Scenarios
// =============================================================================

func scenarioA(rhi *gpuval.RHI) error {
	r, err := rhi.CreateBuffer(gpuval.BufferDesc{Name: "R", Size: 256, InitialAccess: tracker.AccessDiscard})
	if err != nil {
		return err
	}
	ctx := rhi.NewContext(tracker.PipelineGraphics)
	if err := transition(rhi, ctx, graphics(gpuval.BufferTransition(r, tracker.AccessDiscard, tracker.AccessCopyDest))); err != nil {
		return err
	}
	ctx.Tracker().Assert(r.WholeResourceIdentity(), tracker.AccessCopyDest)
	ctx.Tracker().Assert(r.WholeResourceIdentity(), tracker.AccessSRVGraphics)
	return submit(rhi, ctx)
}

func scenarioB(rhi *gpuval.RHI) error {
	r, err := rhi.CreateBuffer(gpuval.BufferDesc{Name: "R", Size: 256, InitialAccess: tracker.AccessCopyDest})
	if err != nil {
		return err
	}
	gfx := rhi.NewContext(tracker.PipelineGraphics)
	async := rhi.NewContext(tracker.PipelineAsyncCompute)

	tr, err := rhi.CreateTransition(gpuval.TransitionCreateInfo{
		SrcPipelines: tracker.PipelineGraphics,
		DstPipelines: tracker.PipelineAsyncCompute,
		Infos:        []gpuval.TransitionInfo{gpuval.BufferTransition(r, tracker.AccessCopyDest, tracker.AccessSRVCompute)},
	})
	if err != nil {
		return err
	}
	gfx.BeginTransitions(tr)
	async.EndTransitions(tr)
	async.Tracker().Assert(r.WholeResourceIdentity(), tracker.AccessSRVCompute)

	if err := submit(rhi, async); err != nil {
		return err
	}
	if rhi.Engine().Pending(tracker.PipelineAsyncCompute) == 0 {
		return errors.New("async compute replayed before its fence was signaled")
	}
	if err := submit(rhi, gfx); err != nil {
		return err
	}
	if n := rhi.Engine().Pending(tracker.PipelineAsyncCompute); n != 0 {
		return fmt.Errorf("async compute still has %d blocked operations", n)
	}
	return nil
}

func scenarioC(rhi *gpuval.RHI) error {
	alloc := rhi.NewTransientAllocator()
	ctx := rhi.NewContext(tracker.PipelineGraphics)

	t, err := target(alloc, "T")
	if err != nil {
		return err
	}
	if err := acquire(rhi, ctx, t, tracker.AccessRTV); err != nil {
		return err
	}
	ctx.Tracker().Assert(t.WholeResourceIdentity(), tracker.AccessRTV)
	if err := transition(rhi, ctx, graphics(gpuval.TextureTransition(t, tracker.AccessRTV, tracker.AccessDiscard))); err != nil {
		return err
	}
	if err := alloc.Deallocate(t); err != nil {
		return err
	}

	u, err := target(alloc, "U")
	if err != nil {
		return err
	}
	if err := acquire(rhi, ctx, u, tracker.AccessRTV, t); err != nil {
		return err
	}
	// T's memory already belongs to U.
	ctx.Tracker().AliasingOverlap(t.TrackerResource(), u.TrackerResource(), nil)
	return submit(rhi, ctx)
}

// =============================================================================
// Properties
// =============================================================================

func propertyBarrierNecessity(rhi *gpuval.RHI) error {
	r, err := rhi.CreateBuffer(gpuval.BufferDesc{Name: "R", Size: 256, InitialAccess: tracker.AccessCopyDest})
	if err != nil {
		return err
	}
	ctx := rhi.NewContext(tracker.PipelineGraphics)
	ctx.Tracker().Assert(r.WholeResourceIdentity(), tracker.AccessSRVCompute)
	if err := transition(rhi, ctx, graphics(gpuval.BufferTransition(r, tracker.AccessCopyDest, tracker.AccessSRVCompute))); err != nil {
		return err
	}
	ctx.Tracker().Assert(r.WholeResourceIdentity(), tracker.AccessSRVCompute)
	return submit(rhi, ctx)
}

func propertyNoDoubleBegin(rhi *gpuval.RHI) error {
	r, err := rhi.CreateBuffer(gpuval.BufferDesc{Name: "R", Size: 256, InitialAccess: tracker.AccessCopyDest})
	if err != nil {
		return err
	}
	tr, err := rhi.CreateTransition(graphics(gpuval.BufferTransition(r, tracker.AccessCopyDest, tracker.AccessCopyDest)))
	if err != nil {
		return err
	}
	ctx := rhi.NewContext(tracker.PipelineGraphics)
	ctx.BeginTransitions(tr)
	ctx.BeginTransitions(tr)
	ctx.EndTransitions(tr)
	return submit(rhi, ctx)
}

func propertyReadDecay(rhi *gpuval.RHI) error {
	r, err := rhi.CreateBuffer(gpuval.BufferDesc{Name: "R", Size: 256, InitialAccess: tracker.AccessSRVGraphics})
	if err != nil {
		return err
	}
	ctx := rhi.NewContext(tracker.PipelineGraphics)
	ctx.Tracker().Assert(r.WholeResourceIdentity(), tracker.AccessSRVGraphics)
	ctx.Tracker().Assert(r.WholeResourceIdentity(), tracker.AccessSRVGraphics)
	return submit(rhi, ctx)
}

func propertyUAVSerialization(rhi *gpuval.RHI) error {
	cs := gpuval.NewShader(gpuval.ShaderDesc{Name: "Accumulate", Stage: gputypes.ShaderStageCompute})
	ctx := rhi.NewContext(tracker.PipelineGraphics)
	ctx.SetComputeShader(cs)

	for _, overlap := range []bool{false, true} {
		name := "Serialized"
		if overlap {
			name = "Overlapped"
		}
		buf, err := rhi.CreateBuffer(gpuval.BufferDesc{Name: name, Size: 256, Stride: 4, InitialAccess: tracker.AccessUAVCompute})
		if err != nil {
			return err
		}
		uav := rhi.CreateBufferUAV(buf, gpuval.BufferViewDesc{Type: gpuval.BufferTypeStructured})
		ctx.SetShaderParameters(cs, gpuval.ShaderParameter{Index: 0, Resource: uav})
		if overlap {
			ctx.BeginUAVOverlap(uav)
		}
		ctx.Dispatch()
		ctx.Dispatch()
		if overlap {
			ctx.EndUAVOverlap(uav)
		}
		ctx.SetComputeShader(cs)
	}
	return submit(rhi, ctx)
}

func propertyFenceGating(rhi *gpuval.RHI) error {
	engine := rhi.Engine()
	r, err := rhi.CreateBuffer(gpuval.BufferDesc{Name: "R", Size: 256, InitialAccess: tracker.AccessSRVCompute})
	if err != nil {
		return err
	}
	// R starts on graphics; hand it to async compute before reading it there.
	handoff, err := rhi.CreateTransition(gpuval.TransitionCreateInfo{
		SrcPipelines: tracker.PipelineGraphics,
		DstPipelines: tracker.PipelineAsyncCompute,
		Infos:        []gpuval.TransitionInfo{gpuval.BufferTransition(r, tracker.AccessSRVCompute, tracker.AccessSRVCompute)},
	})
	if err != nil {
		return err
	}
	fence := engine.NewFence(tracker.PipelineGraphics, tracker.PipelineAsyncCompute)
	gfx := rhi.NewContext(tracker.PipelineGraphics)
	async := rhi.NewContext(tracker.PipelineAsyncCompute)

	async.Tracker().Wait(fence)
	async.EndTransitions(handoff)
	async.Tracker().Assert(r.WholeResourceIdentity(), tracker.AccessSRVCompute)
	async.Tracker().Assert(r.WholeResourceIdentity(), tracker.AccessSRVCompute)
	gfx.BeginTransitions(handoff)
	gfx.Tracker().Signal(fence)

	if err := submit(rhi, async); err != nil {
		return err
	}
	before := engine.Pending(tracker.PipelineAsyncCompute)
	if before == 0 {
		return errors.New("wait replayed before its signal")
	}
	if err := submit(rhi, gfx); err != nil {
		return err
	}
	if n := engine.Pending(tracker.PipelineAsyncCompute); n != 0 {
		return fmt.Errorf("%d of %d blocked operations did not resume", n, before)
	}
	return nil
}

func propertyTransientLifecycle(rhi *gpuval.RHI) error {
	alloc := rhi.NewTransientAllocator()
	ctx := rhi.NewContext(tracker.PipelineGraphics)

	// Discard before acquire: the transition and the discard both fail.
	early, err := target(alloc, "DiscardedEarly")
	if err != nil {
		return err
	}
	if err := transition(rhi, ctx, graphics(gpuval.TextureTransition(early, tracker.AccessDiscard, tracker.AccessDiscard))); err != nil {
		return err
	}

	twice, err := target(alloc, "AcquiredTwice")
	if err != nil {
		return err
	}
	ctx.Tracker().AcquireTransientResource(twice.TrackerResource(), nil)
	ctx.Tracker().AcquireTransientResource(twice.TrackerResource(), nil)

	live, err := target(alloc, "StillLive")
	if err != nil {
		return err
	}
	next, err := target(alloc, "Next")
	if err != nil {
		return err
	}
	if err := acquire(rhi, ctx, live, tracker.AccessRTV); err != nil {
		return err
	}
	if err := acquire(rhi, ctx, next, tracker.AccessRTV, live); err != nil {
		return err
	}
	return submit(rhi, ctx)
}

func propertyRoundTripNaming(rhi *gpuval.RHI) error {
	r, err := rhi.CreateBuffer(gpuval.BufferDesc{Name: "Unnamed", Size: 256, InitialAccess: tracker.AccessCopyDest})
	if err != nil {
		return err
	}
	res := r.TrackerResource()
	watched := rhi.Engine().IsWatched("Foo")

	ctx := rhi.NewContext(tracker.PipelineGraphics)
	rhi.BindDebugLabelName(ctx, r, "Foo")
	if err := submit(rhi, ctx); err != nil {
		return err
	}
	if got := res.DebugName(); got != "Foo" {
		return fmt.Errorf("DebugName() = %q after rename, want %q", got, "Foo")
	}
	if logged := res.LoggingMode() == tracker.LoggingAutomatic; logged != watched {
		return fmt.Errorf("automatic logging = %v after rename, want %v", logged, watched)
	}
	return nil
}
