package gpuval

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuval/tracker"
)

// Sampler is a sampler binding. Samplers carry no barrier state.
type Sampler struct {
	Name string
}

// ResourceCollection is a bindless table of textures and shader resource
// views.
type ResourceCollection struct {
	Members []Trackable
}

// ShaderParameter binds one resource at Index. Resource is one of *Texture,
// *ShaderResourceView, *UnorderedAccessView, *Sampler, *UniformBuffer or
// *ResourceCollection.
type ShaderParameter struct {
	Index    int
	Resource any
}

// ValidateShaderParameters checks each parameter against the shader's
// reflection data and records the matching tracker calls. Textures and
// shader resource views are asserted with access, unordered access views
// are bound for the next draw or dispatch in mode, and uniform buffers are
// bound into bound after the binding-model checks against static.
func (r *RHI) ValidateShaderParameters(shader *Shader, t *tracker.Tracker, static *StaticUniformBuffers, bound *StageBoundUniformBuffers,
	params []ShaderParameter, access tracker.Access, mode tracker.UAVMode) {
	for _, p := range params {
		switch res := p.Resource.(type) {
		case *Texture:
			if res == nil {
				continue
			}
			r.validateTextureSRV(shader, p.Index, res)
			t.Assert(res.WholeResourceIdentitySRV(), access)

		case *ShaderResourceView:
			if res == nil {
				continue
			}
			r.validateShaderResourceView(shader, p.Index, res)
			t.Assert(res.identity.ResourceIdentity, access)

		case *UnorderedAccessView:
			if res == nil {
				continue
			}
			r.validateUnorderedAccessView(shader, p.Index, res)
			t.AssertUAV(res.identity, mode, p.Index)

		case *Sampler:
			// No validation

		case *UniformBuffer:
			if res == nil {
				continue
			}
			r.validateUniformBuffer(shader, p.Index, res)
			bound.Bind(p.Index, res)
			r.validateSetShaderUniformBuffer(static, res)

		case *ResourceCollection:
			if res == nil {
				continue
			}
			for _, m := range res.Members {
				switch member := m.(type) {
				case *Texture:
					t.Assert(member.WholeResourceIdentitySRV(), access)
				case *ShaderResourceView:
					t.Assert(member.identity.ResourceIdentity, access)
				}
			}

		case nil:

		default:
			r.report(tracker.KindShaderBinding, nil,
				"Shader %s: unhandled resource type %T at bind index %d.", shader.Name(), p.Resource, p.Index)
		}
	}
}

// validateShaderResourceView checks an SRV's stride and type against the
// shader's declaration at bindIndex.
func (r *RHI) validateShaderResourceView(shader *Shader, bindIndex int, srv *ShaderResourceView) {
	name := srv.name()

	if expected, ok := shader.stride(bindIndex); ok {
		if got := srv.identity.Stride; got != expected && srv.bufferType != BufferTypeAccelerationStructure {
			r.report(tracker.KindShaderBinding, srv.TrackerResource(),
				"Shader %s: Buffer stride for %q must match structure size declared in the shader\nBind point: %d, HLSL size: %d, Buffer Size: %d",
				shader.Name(), name, bindIndex, expected, got)
		}
	}

	if len(shader.desc.SRVTypes) == 0 {
		return
	}

	expected, ok := findType(shader.desc.SRVTypes, bindIndex)
	if !ok {
		r.report(tracker.KindShaderBinding, srv.TrackerResource(),
			"Shader %s: No bind point found for SRV %q possible UAV/SRV mismatch\nBind point: %d, Type: %s",
			shader.Name(), name, bindIndex, srv.typeString())
		return
	}
	switch {
	case srv.IsTexture() && !expected.validateDimension(srv.dimension, true):
		r.report(tracker.KindShaderBinding, srv.TrackerResource(),
			"Shader %s: Dimension for SRV %q must match type declared in the shader\nBind point: %d, HLSL Type: %s, Actual Dimension: %s",
			shader.Name(), name, bindIndex, expected, viewDimensionString(srv.dimension))
	case srv.IsBuffer() && !expected.validateBuffer(srv.bufferType, true):
		r.report(tracker.KindShaderBinding, srv.TrackerResource(),
			"Shader %s: Buffer type for SRV %q must match buffer type declared in the shader\nBind point: %d, HLSL Type: %s, Actual Type: %s",
			shader.Name(), name, bindIndex, expected, srv.bufferType)
	}
}

// validateTextureSRV checks a directly bound texture's dimension.
func (r *RHI) validateTextureSRV(shader *Shader, bindIndex int, tex *Texture) {
	if len(shader.desc.SRVTypes) == 0 {
		return
	}
	dim := tex.desc.ViewDimension()
	expected, ok := findType(shader.desc.SRVTypes, bindIndex)
	if !ok {
		r.report(tracker.KindShaderBinding, tex.res,
			"Shader %s: No bind point found at BindIndex %d possible UAV/SRV mismatch\nBind point: %d, Type: %s",
			shader.Name(), bindIndex, bindIndex, viewDimensionString(dim))
		return
	}
	if !expected.validateDimension(dim, true) {
		r.report(tracker.KindShaderBinding, tex.res,
			"Shader %s: Dimension for Texture %s at BindIndex %d must match type declared in the shader\nBind point: %d, HLSL Type: %s, Actual Dimension: %s",
			shader.Name(), tex.Name(), bindIndex, bindIndex, expected, viewDimensionString(dim))
	}
}

// validateUnorderedAccessView checks a UAV's type against the shader's
// declaration at bindIndex.
func (r *RHI) validateUnorderedAccessView(shader *Shader, bindIndex int, uav *UnorderedAccessView) {
	if len(shader.desc.UAVTypes) == 0 {
		return
	}
	name := uav.name()

	expected, ok := findType(shader.desc.UAVTypes, bindIndex)
	if !ok {
		r.report(tracker.KindShaderBinding, uav.TrackerResource(),
			"Shader %s: No bind point found for UAV %q possible UAV/SRV mismatch\nBind point: %d, Type: %s",
			shader.Name(), name, bindIndex, uav.typeString())
		return
	}
	switch {
	case uav.IsTexture() && !expected.validateDimension(uav.dimension, false):
		r.report(tracker.KindShaderBinding, uav.TrackerResource(),
			"Shader %s: Dimension for UAV %q must match type declared in the shader\nBind point: %d, HLSL Type: %s, Actual Dimension: %s",
			shader.Name(), name, bindIndex, expected, viewDimensionString(uav.dimension))
	case uav.IsBuffer() && !expected.validateBuffer(uav.bufferType, false):
		r.report(tracker.KindShaderBinding, uav.TrackerResource(),
			"Shader %s: Buffer type for UAV %q must match buffer type declared in the shader\nBind point: %d, HLSL Type: %s, Actual Type: %s",
			shader.Name(), name, bindIndex, expected, uav.bufferType)
	}
}

// validateUniformBuffer checks ub's layout hash and size against the
// shader's uniform buffer table.
func (r *RHI) validateUniformBuffer(shader *Shader, bindIndex int, ub *UniformBuffer) {
	hashes := shader.desc.LayoutHashes
	if bindIndex >= len(hashes) {
		r.report(tracker.KindShaderBinding, nil,
			"Shader %s: Invalid bind index %d for uniform buffer %q (UB table size: %d)",
			shader.Name(), bindIndex, ub.layout.name, len(hashes))
		return
	}

	if expected, got := hashes[bindIndex], ub.layout.hash; expected != 0 && got != expected {
		r.report(tracker.KindShaderBinding, nil,
			"Shader %s: Invalid layout hash %d for uniform buffer %q at bind index %d, expecting %d",
			shader.Name(), got, ub.layout.name, bindIndex, expected)
	}

	if size, ok := shader.ubSize(bindIndex); ok && size > 0 && size > ub.size {
		r.report(tracker.KindShaderBinding, nil,
			"Shader %s: Uniform buffer %q has unexpected size\nBind point: %d, HLSL size: %d, Actual size: %d",
			shader.Name(), ub.layout.name, bindIndex, size, ub.size)
	}
}

func (v *view) typeString() string {
	if v.IsTexture() {
		return viewDimensionString(v.dimension)
	}
	return v.bufferType.String()
}

func viewDimensionString(dim gputypes.TextureViewDimension) string {
	switch dim {
	case gputypes.TextureViewDimension1D:
		return "Texture1D"
	case gputypes.TextureViewDimension2D:
		return "Texture2D"
	case gputypes.TextureViewDimension2DArray:
		return "Texture2DArray"
	case gputypes.TextureViewDimension3D:
		return "Texture3D"
	case gputypes.TextureViewDimensionCube:
		return "TextureCube"
	case gputypes.TextureViewDimensionCubeArray:
		return "TextureCubeArray"
	}
	return "Unknown"
}
