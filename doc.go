// Package gpuval validates GPU resource barriers recorded through a
// command-list API.
//
// # Overview
//
// gpuval sits between a renderer and its graphics backend. Every resource
// creation, transition and shader binding passes through an RHI, which
// records validation operations per command list and replays them in
// submission order. Mismatched transitions, missing barriers, bad UAV
// overlap toggling and transient aliasing mistakes are reported as
// tracker.Failure values, each reported once.
//
// # Quick Start
//
//	import "github.com/gogpu/gpuval"
//
//	rhi, err := gpuval.NewRHI()
//	if err != nil {
//		return err
//	}
//	defer rhi.Close()
//
//	buf, _ := rhi.CreateBuffer(gpuval.BufferDesc{Name: "Particles", Size: 1024, InitialAccess: tracker.AccessCopyDest})
//	ctx := rhi.NewContext(tracker.PipelineGraphics)
//
//	tr, _ := rhi.CreateTransition(gpuval.TransitionCreateInfo{
//		SrcPipelines: tracker.PipelineGraphics,
//		DstPipelines: tracker.PipelineGraphics,
//		Infos:        []gpuval.TransitionInfo{gpuval.BufferTransition(buf, tracker.AccessCopyDest, tracker.AccessSRVCompute)},
//	})
//	ctx.Transition(tr)
//
//	rhi.SubmitCommandLists(rhi.FinalizeContext(ctx))
//	for _, f := range rhi.Failures() {
//		log.Println(f)
//	}
//
// # Pipelines
//
// Contexts record for the graphics or the async compute pipeline. A
// transition between pipelines creates a fence per pipeline pair; the
// waiting pipeline's operations are held back until the signaling list is
// submitted.
//
// # Architecture
//
// The library is organized into:
//   - Public API: RHI, Context, Texture, Buffer, views, Transition, Shader
//   - tracker: subresource state machine, replay queues, failure reporting
//   - Backends: NopBackend, HALBackend (wgpu hal texture barriers)
//   - Internal: parallel (recording pool), dedupe (failure set)
//
// # Thread Safety
//
// An RHI and its resources may be shared between goroutines. A Context is
// recorded by one goroutine at a time; RecordParallel records several
// contexts concurrently.
package gpuval

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0-alpha.1"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0

	// VersionPrerelease is the prerelease identifier
	VersionPrerelease = "alpha.1"
)
