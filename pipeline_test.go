package gpuval

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpuval/tracker"
)

func TestValidatePipeline(t *testing.T) {
	stencilOn := &hal.DepthStencilState{
		DepthCompare: gputypes.CompareFunctionAlways,
		StencilFront: hal.StencilFaceState{
			Compare: gputypes.CompareFunctionAlways,
			FailOp:  hal.StencilOperationKeep,
			PassOp:  hal.StencilOperationIncrementWrap,
		},
	}
	depthOn := &hal.DepthStencilState{
		DepthWriteEnabled: true,
		DepthCompare:      gputypes.CompareFunctionAlways,
	}
	depthTest := &hal.DepthStencilState{DepthCompare: gputypes.CompareFunctionNotEqual}

	tests := []struct {
		name   string
		pso    GraphicsPipelineState
		substr []string
	}{
		{
			name: "no target no state",
			pso:  GraphicsPipelineState{},
		},
		{
			name: "depth stencil target with stencil ops",
			pso:  GraphicsPipelineState{DepthStencilTargetFormat: gputypes.TextureFormatDepth24PlusStencil8, DepthStencil: stencilOn},
		},
		{
			name:   "depth only target with stencil ops",
			pso:    GraphicsPipelineState{DepthStencilTargetFormat: gputypes.TextureFormatDepth32Float, DepthStencil: stencilOn},
			substr: []string{"No stencil render target set"},
		},
		{
			name:   "no target with depth write",
			pso:    GraphicsPipelineState{DepthStencil: depthOn},
			substr: []string{"No depth render target set"},
		},
		{
			name:   "no target with depth test",
			pso:    GraphicsPipelineState{DepthStencil: depthTest},
			substr: []string{"No depth render target set"},
		},
		{
			name:   "no target with load and store",
			pso:    GraphicsPipelineState{DepthTargetLoad: LoadActionLoad, StencilTargetStore: StoreActionStore},
			substr: []string{"wants to load", "wants to store"},
		},
		{
			name: "no target with untouched stencil state",
			pso:  GraphicsPipelineState{DepthStencil: &hal.DepthStencilState{}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rhi := newTestRHI(t)
			rhi.ValidatePipeline(tt.pso)

			failures := expectFailures(t, rhi, len(tt.substr))
			for i, s := range tt.substr {
				expectFailure(t, failures[i], tracker.KindFacade, s)
			}
		})
	}
}

func TestIsDepthStencilFormat(t *testing.T) {
	tests := []struct {
		format  gputypes.TextureFormat
		depth   bool
		stencil bool
		planes  int
	}{
		{gputypes.TextureFormatRGBA8Unorm, false, false, 1},
		{gputypes.TextureFormatDepth32Float, true, false, 1},
		{gputypes.TextureFormatDepth24PlusStencil8, true, true, 2},
	}
	for _, tt := range tests {
		if got := IsDepthFormat(tt.format); got != tt.depth {
			t.Errorf("IsDepthFormat(%v) = %v, want %v", tt.format, got, tt.depth)
		}
		if got := IsStencilFormat(tt.format); got != tt.stencil {
			t.Errorf("IsStencilFormat(%v) = %v, want %v", tt.format, got, tt.stencil)
		}
		if got := formatPlanes(tt.format); got != tt.planes {
			t.Errorf("formatPlanes(%v) = %d, want %d", tt.format, got, tt.planes)
		}
	}
}
