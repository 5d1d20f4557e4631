package gpuval

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpuval/tracker"
)

// LoadAction is what a render pass does with a target's contents on begin.
type LoadAction uint8

const (
	LoadActionNone LoadAction = iota
	LoadActionLoad
	LoadActionClear
)

// StoreAction is what a render pass does with a target's contents on end.
type StoreAction uint8

const (
	StoreActionNone StoreAction = iota
	StoreActionStore
	StoreActionMultisampleResolve
)

// GraphicsPipelineState is the pipeline description validation inspects.
type GraphicsPipelineState struct {
	Name           string
	VertexShader   *Shader
	FragmentShader *Shader

	// DepthStencilTargetFormat is the bound depth/stencil target's format,
	// or gputypes.TextureFormatUndefined without one.
	DepthStencilTargetFormat gputypes.TextureFormat
	// DepthStencil is the pipeline's depth/stencil state. Nil disables depth
	// and stencil.
	DepthStencil *hal.DepthStencilState

	DepthTargetLoad    LoadAction
	DepthTargetStore   StoreAction
	StencilTargetLoad  LoadAction
	StencilTargetStore StoreAction
}

// ValidatePipeline checks that the pipeline's depth and stencil usage is
// consistent with the depth/stencil target format.
func (r *RHI) ValidatePipeline(pso GraphicsPipelineState) {
	hasDepth := IsDepthFormat(pso.DepthStencilTargetFormat)
	hasStencil := IsStencilFormat(pso.DepthStencilTargetFormat)
	ds := pso.DepthStencil

	if hasDepth {
		if !hasStencil && ds != nil && (!stencilFaceUnused(ds.StencilFront) || !stencilFaceUnused(ds.StencilBack)) {
			r.report(tracker.KindFacade, nil,
				"Pipeline %q: No stencil render target set, yet PSO wants to use stencil operations!", pso.Name)
		}
		return
	}

	if ds != nil && (ds.DepthWriteEnabled || !compareAlways(ds.DepthCompare)) {
		r.report(tracker.KindFacade, nil,
			"Pipeline %q: No depth render target set, yet PSO wants to use depth operations!", pso.Name)
	}
	if pso.DepthTargetLoad != LoadActionNone || pso.StencilTargetLoad != LoadActionNone {
		r.report(tracker.KindFacade, nil,
			"Pipeline %q: No depth/stencil target set, yet PSO wants to load from it!", pso.Name)
	}
	if pso.DepthTargetStore != StoreActionNone || pso.StencilTargetStore != StoreActionNone {
		r.report(tracker.KindFacade, nil,
			"Pipeline %q: No depth/stencil target set, yet PSO wants to store into it!", pso.Name)
	}
}

// compareAlways treats an unset compare function as always passing.
func compareAlways(c gputypes.CompareFunction) bool {
	return unsetOr(c, gputypes.CompareFunctionAlways)
}

func stencilFaceUnused(f hal.StencilFaceState) bool {
	keep := hal.StencilOperationKeep
	return compareAlways(f.Compare) && unsetOr(f.FailOp, keep) && unsetOr(f.DepthFailOp, keep) && unsetOr(f.PassOp, keep)
}

// unsetOr reports whether v is its zero value or want.
func unsetOr[T comparable](v, want T) bool {
	var unset T
	return v == unset || v == want
}
