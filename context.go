package gpuval

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuval/tracker"
)

// Context records validated commands for one pipeline. It is the
// validating counterpart of a command context and is owned by one
// recording goroutine.
type Context struct {
	rhi      *RHI
	pipeline tracker.Pipeline
	name     string
	tracker  *tracker.Tracker

	insideRenderPass bool
	renderPassName   string

	gfxPSOSet     bool
	vertexShader  *Shader
	fragShader    *Shader
	computeShader *Shader

	static StaticUniformBuffers
	bound  BoundUniformBuffers

	crumbs   tracker.BreadcrumbAllocator
	stack    []*tracker.Breadcrumb
	anchor   *tracker.Breadcrumb
	firstNew *tracker.Breadcrumb
}

// NewContext creates a context recording for pipe. pipe must be a single
// pipeline.
func (r *RHI) NewContext(pipe tracker.Pipeline) *Context {
	return &Context{
		rhi:      r,
		pipeline: pipe,
		name:     pipe.String(),
		tracker:  r.engine.NewTracker(pipe),
	}
}

// SetName sets the name command lists finalized from the context carry.
func (c *Context) SetName(name string) { c.name = name }

// Name returns the context name.
func (c *Context) Name() string { return c.name }

// Pipeline returns the pipeline the context records for.
func (c *Context) Pipeline() tracker.Pipeline { return c.pipeline }

// Tracker returns the context's operation recorder.
func (c *Context) Tracker() *tracker.Tracker { return c.tracker }

// InsideRenderPass reports whether a render pass is open.
func (c *Context) InsideRenderPass() bool { return c.insideRenderPass }

// =============================================================================
// Transitions
// =============================================================================

// BeginTransitions starts ts on this context: pending aliasing acquires
// first, then the begin operations, then the signals this pipeline owes.
func (c *Context) BeginTransitions(ts ...*Transition) {
	for _, t := range ts {
		c.tracker.AddRetainedOps(t.aliases)
	}
	for _, t := range ts {
		c.tracker.AddRetainedOps(t.beginOps)
	}
	for _, t := range ts {
		c.tracker.AddOps(t.signals[c.pipeline.Index()])
	}
	c.rhi.backend.BeginTransitions(c.pipeline, ts)
}

// EndTransitions completes ts on this context: waits first, then aliasing
// overlaps, then the end operations.
func (c *Context) EndTransitions(ts ...*Transition) {
	for _, t := range ts {
		c.tracker.AddOps(t.waits[c.pipeline.Index()])
	}
	for _, t := range ts {
		c.tracker.AddRetainedOps(t.aliasOverlaps)
	}
	for _, t := range ts {
		c.tracker.AddRetainedOps(t.endOps)
	}
	c.rhi.backend.EndTransitions(c.pipeline, ts)
}

// Transition begins and ends ts at once.
func (c *Context) Transition(ts ...*Transition) {
	c.BeginTransitions(ts...)
	c.EndTransitions(ts...)
}

// SetTrackedAccess declares that res was put in access by means the
// tracker does not see, such as a pass outside the validated API.
func (c *Context) SetTrackedAccess(res Trackable, access tracker.Access) {
	c.tracker.AssertTracked(res.TrackerResource(), access)
}

// =============================================================================
// Render passes and pipeline state
// =============================================================================

// BeginRenderPass opens a render pass. Render passes exist only on the
// graphics pipeline.
func (c *Context) BeginRenderPass(name string) error {
	if c.pipeline != tracker.PipelineGraphics {
		return fmt.Errorf("%w: render pass %q on %s", ErrWrongPipeline, name, c.pipeline)
	}
	if c.insideRenderPass {
		c.rhi.report(tracker.KindFacade, nil,
			"Render pass %q begun while render pass %q is still open.", name, c.renderPassName)
	}
	c.insideRenderPass = true
	c.renderPassName = name
	return nil
}

// EndRenderPass closes the open render pass.
func (c *Context) EndRenderPass() {
	if !c.insideRenderPass {
		c.rhi.report(tracker.KindFacade, nil, "EndRenderPass called without an open render pass.")
	}
	c.insideRenderPass = false
	c.renderPassName = ""
}

// SetGraphicsPipelineState validates pso and binds its shaders. Uniform
// buffer bindings and graphics UAV bindings are cleared.
func (c *Context) SetGraphicsPipelineState(pso GraphicsPipelineState) error {
	if c.pipeline != tracker.PipelineGraphics {
		return fmt.Errorf("%w: graphics pipeline %q on %s", ErrWrongPipeline, pso.Name, c.pipeline)
	}
	c.rhi.ValidatePipeline(pso)
	c.gfxPSOSet = true
	c.vertexShader = pso.VertexShader
	c.fragShader = pso.FragmentShader
	c.bound.Get(gputypes.ShaderStageVertex).Reset()
	c.bound.Get(gputypes.ShaderStageFragment).Reset()
	c.tracker.ResetUAVState(tracker.UAVModeGraphics)
	return nil
}

// SetComputeShader binds a compute shader. Compute uniform buffer and UAV
// bindings are cleared.
func (c *Context) SetComputeShader(s *Shader) {
	c.computeShader = s
	c.bound.Get(gputypes.ShaderStageCompute).Reset()
	c.tracker.ResetUAVState(tracker.UAVModeCompute)
}

// SetStaticUniformBuffers replaces the uniform buffers bound by static
// slot.
func (c *Context) SetStaticUniformBuffers(ubs ...*UniformBuffer) {
	for _, ub := range ubs {
		if ub != nil {
			c.rhi.validateLifetime(ub)
		}
	}
	c.static.Set(ubs)
}

// SetShaderParameters validates and binds params for shader. Shader
// resources are asserted with the read access of the shader's stage.
func (c *Context) SetShaderParameters(shader *Shader, params ...ShaderParameter) {
	access, mode := tracker.AccessSRVGraphics, tracker.UAVModeGraphics
	if shader.Stage() == gputypes.ShaderStageCompute {
		access, mode = tracker.AccessSRVCompute, tracker.UAVModeCompute
	}
	c.rhi.ValidateShaderParameters(shader, c.tracker, &c.static, c.bound.Get(shader.Stage()), params, access, mode)
}

// =============================================================================
// Work
// =============================================================================

// Draw validates the bound pipeline state and asserts the bound graphics
// UAVs.
func (c *Context) Draw() {
	if !c.gfxPSOSet {
		c.rhi.report(tracker.KindFacade, nil, "A graphics PSO has to be set in order to be able to draw!")
	} else {
		for _, s := range []*Shader{c.vertexShader, c.fragShader} {
			if s != nil {
				c.rhi.ValidateBoundUniformBuffers(s, &c.static, c.bound.Get(s.Stage()))
			}
		}
	}
	c.tracker.Draw()
	c.rhi.backend.Draw(c.pipeline)
}

// Dispatch validates the bound compute shader and asserts the bound
// compute UAVs.
func (c *Context) Dispatch() {
	if c.computeShader == nil {
		c.rhi.report(tracker.KindFacade, nil, "A compute PSO has to be set before dispatching a compute shader.")
	} else {
		c.rhi.ValidateBoundUniformBuffers(c.computeShader, &c.static, c.bound.Get(gputypes.ShaderStageCompute))
	}
	c.tracker.Dispatch()
	c.rhi.backend.Dispatch(c.pipeline)
}

// CopyToStagingBuffer copies part of src into CPU-readable memory. src must
// be in CopySrc.
func (c *Context) CopyToStagingBuffer(src *Buffer, dst *StagingBuffer, offset, size uint64) {
	if c.rhi.cfg.ValidateBufferSourceCopy && src.desc.Usage&gputypes.BufferUsageCopySrc == 0 {
		c.rhi.report(tracker.KindFacade, src.res,
			"Buffers used as copy source need to be created with the CopySrc usage! Resource: %s", src.res)
	}
	c.tracker.Assert(src.WholeResourceIdentity(), tracker.AccessCopySrc)
	c.rhi.backend.CopyToStagingBuffer(src, dst, offset, size)
}

// BeginUAVOverlap allows writes to the given views to overlap without
// barriers. Without views it applies to every UAV on the pipeline.
func (c *Context) BeginUAVOverlap(uavs ...*UnorderedAccessView) {
	if len(uavs) == 0 {
		c.tracker.BeginUAVOverlap()
		return
	}
	c.tracker.BeginUAVOverlapOn(uavIdentities(uavs)...)
}

// EndUAVOverlap ends a BeginUAVOverlap with the same views.
func (c *Context) EndUAVOverlap(uavs ...*UnorderedAccessView) {
	if len(uavs) == 0 {
		c.tracker.EndUAVOverlap()
		return
	}
	c.tracker.EndUAVOverlapOn(uavIdentities(uavs)...)
}

func uavIdentities(uavs []*UnorderedAccessView) []tracker.ResourceIdentity {
	ids := make([]tracker.ResourceIdentity, 0, len(uavs))
	for _, u := range uavs {
		if u != nil {
			ids = append(ids, u.identity.ResourceIdentity)
		}
	}
	return ids
}

// =============================================================================
// Breadcrumbs
// =============================================================================

// BeginBreadcrumb opens a breadcrumb under the current one and returns it.
func (c *Context) BeginBreadcrumb(name string) *tracker.Breadcrumb {
	node := c.crumbs.New(name, c.currentBreadcrumb(), c.pipeline)
	if c.firstNew == nil {
		c.firstNew = node
	}
	c.stack = append(c.stack, node)
	c.tracker.BeginBreadcrumb(node)
	return node
}

// EndBreadcrumb closes node, which must be the innermost open breadcrumb.
func (c *Context) EndBreadcrumb(node *tracker.Breadcrumb) {
	if top := c.currentBreadcrumb(); top != node {
		c.rhi.report(tracker.KindBreadcrumb, nil,
			"EndBreadcrumb(%q) does not match the innermost open breadcrumb %q.", node.Path(), top.Path())
	} else {
		c.stack = c.stack[:len(c.stack)-1]
	}
	c.tracker.EndBreadcrumb(node)
}

func (c *Context) currentBreadcrumb() *tracker.Breadcrumb {
	if len(c.stack) == 0 {
		return nil
	}
	return c.stack[len(c.stack)-1]
}
