package gpuval

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
)

// BindingType is the resource type a shader declares at a bind point.
type BindingType uint8

const (
	BindingInvalid BindingType = iota
	BindingTexture2D
	BindingTexture2DMS
	BindingTexture2DArray
	BindingTexture3D
	BindingTextureCube
	BindingTextureCubeArray
	BindingBuffer
	BindingStructuredBuffer
	BindingByteAddressBuffer
	BindingAccelerationStructure
	BindingRWTexture2D
	BindingRWTexture2DArray
	BindingRWTexture3D
	BindingRWTextureCube
	BindingRWBuffer
	BindingRWStructuredBuffer
	BindingRWByteAddressBuffer
)

var bindingTypeNames = [...]string{
	BindingInvalid:               "Invalid",
	BindingTexture2D:             "Texture2D",
	BindingTexture2DMS:           "Texture2DMS",
	BindingTexture2DArray:        "Texture2DArray",
	BindingTexture3D:             "Texture3D",
	BindingTextureCube:           "TextureCube",
	BindingTextureCubeArray:      "TextureCubeArray",
	BindingBuffer:                "Buffer",
	BindingStructuredBuffer:      "StructuredBuffer",
	BindingByteAddressBuffer:     "ByteAddressBuffer",
	BindingAccelerationStructure: "RaytracingAccelerationStructure",
	BindingRWTexture2D:           "RWTexture2D",
	BindingRWTexture2DArray:      "RWTexture2DArray",
	BindingRWTexture3D:           "RWTexture3D",
	BindingRWTextureCube:         "RWTextureCube",
	BindingRWBuffer:              "RWBuffer",
	BindingRWStructuredBuffer:    "RWStructuredBuffer",
	BindingRWByteAddressBuffer:   "RWByteAddressBuffer",
}

func (b BindingType) String() string {
	if int(b) < len(bindingTypeNames) {
		return bindingTypeNames[b]
	}
	return fmt.Sprintf("BindingType(%d)", b)
}

// IsSRV reports whether the binding is read-only.
func (b BindingType) IsSRV() bool { return b >= BindingTexture2D && b < BindingRWTexture2D }

// validateDimension reports whether a texture view of dim may be bound where
// the shader declares b.
func (b BindingType) validateDimension(dim gputypes.TextureViewDimension, srv bool) bool {
	if b == BindingInvalid {
		return true
	}
	if b.IsSRV() != srv {
		return false
	}
	switch b {
	case BindingTexture2D, BindingRWTexture2D, BindingTexture2DMS:
		return dim == gputypes.TextureViewDimension2D
	case BindingTexture2DArray, BindingRWTexture2DArray:
		return dim == gputypes.TextureViewDimension2DArray || dim == gputypes.TextureViewDimensionCube
	case BindingTexture3D, BindingRWTexture3D:
		return dim == gputypes.TextureViewDimension3D
	case BindingTextureCube, BindingRWTextureCube:
		return dim == gputypes.TextureViewDimensionCube
	case BindingTextureCubeArray:
		return dim == gputypes.TextureViewDimensionCubeArray
	}
	return false
}

// validateBuffer reports whether a buffer view of typ may be bound where the
// shader declares b.
func (b BindingType) validateBuffer(typ BufferType, srv bool) bool {
	if b == BindingInvalid {
		return true
	}
	if b.IsSRV() != srv {
		return false
	}
	switch b {
	case BindingByteAddressBuffer, BindingRWByteAddressBuffer:
		return typ == BufferTypeRaw
	case BindingStructuredBuffer, BindingRWStructuredBuffer:
		return typ == BufferTypeStructured || typ == BufferTypeAccelerationStructure
	case BindingBuffer, BindingRWBuffer:
		return typ == BufferTypeTyped
	case BindingAccelerationStructure:
		return typ == BufferTypeAccelerationStructure
	}
	return false
}

// NoStaticSlot marks a uniform buffer bind index without a static slot.
const NoStaticSlot = -1

// StrideBinding is the structure size a shader declares for a buffer.
type StrideBinding struct {
	BindPoint int
	Stride    uint32
}

// TypeBinding is the resource type a shader declares at a bind point.
type TypeBinding struct {
	BindPoint int
	Type      BindingType
}

// SizeBinding is the minimum uniform buffer size a shader reads.
type SizeBinding struct {
	BindPoint int
	Size      uint32
}

// ShaderDesc is the reflection data validation needs from a compiled shader.
type ShaderDesc struct {
	Name  string
	Stage gputypes.ShaderStage

	// LayoutHashes holds the expected uniform buffer layout hash per bind
	// index. Zero entries are not checked.
	LayoutHashes []uint32
	// StaticSlots holds the static slot per bind index. Nil means no bind
	// index has a static slot.
	StaticSlots        []int
	UniformBufferNames []string

	Strides  []StrideBinding
	SRVTypes []TypeBinding
	UAVTypes []TypeBinding
	UBSizes  []SizeBinding
}

// Shader carries the validation data of one shader stage.
type Shader struct {
	desc  ShaderDesc
	spirv []uint32
}

// NewShader creates a shader from reflection data.
func NewShader(desc ShaderDesc) *Shader {
	if desc.StaticSlots == nil && len(desc.LayoutHashes) > 0 {
		desc.StaticSlots = make([]int, len(desc.LayoutHashes))
		for i := range desc.StaticSlots {
			desc.StaticSlots[i] = NoStaticSlot
		}
	}
	desc.LayoutHashes = slices.Clone(desc.LayoutHashes)
	desc.Strides = slices.Clone(desc.Strides)
	desc.SRVTypes = slices.Clone(desc.SRVTypes)
	desc.UAVTypes = slices.Clone(desc.UAVTypes)
	desc.UBSizes = slices.Clone(desc.UBSizes)
	slices.SortFunc(desc.Strides, func(a, b StrideBinding) int { return cmp.Compare(a.BindPoint, b.BindPoint) })
	slices.SortFunc(desc.SRVTypes, func(a, b TypeBinding) int { return cmp.Compare(a.BindPoint, b.BindPoint) })
	slices.SortFunc(desc.UAVTypes, func(a, b TypeBinding) int { return cmp.Compare(a.BindPoint, b.BindPoint) })
	slices.SortFunc(desc.UBSizes, func(a, b SizeBinding) int { return cmp.Compare(a.BindPoint, b.BindPoint) })
	return &Shader{desc: desc}
}

// NewShaderFromWGSL compiles WGSL source to SPIR-V and attaches the given
// reflection data.
func NewShaderFromWGSL(desc ShaderDesc, source string) (*Shader, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("gpuval: compile shader %q: %w", desc.Name, err)
	}

	// SPIR-V is little-endian 32-bit words
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}

	s := NewShader(desc)
	s.spirv = words
	return s, nil
}

// Name returns the shader name.
func (s *Shader) Name() string { return s.desc.Name }

// Stage returns the shader stage.
func (s *Shader) Stage() gputypes.ShaderStage { return s.desc.Stage }

// SPIRV returns the compiled code, or nil for reflection-only shaders.
func (s *Shader) SPIRV() []uint32 { return s.spirv }

// LayoutHashes returns the expected uniform buffer layout hashes.
func (s *Shader) LayoutHashes() []uint32 { return s.desc.LayoutHashes }

func (s *Shader) uniformBufferName(bindIndex int) string {
	if bindIndex < len(s.desc.UniformBufferNames) {
		return s.desc.UniformBufferNames[bindIndex]
	}
	return ""
}

func (s *Shader) stageName() string {
	switch s.desc.Stage {
	case gputypes.ShaderStageVertex:
		return "Vertex"
	case gputypes.ShaderStageFragment:
		return "Pixel"
	case gputypes.ShaderStageCompute:
		return "Compute"
	}
	return "Unknown"
}

func (s *Shader) stride(bindPoint int) (uint32, bool) {
	i, ok := slices.BinarySearchFunc(s.desc.Strides, bindPoint, func(e StrideBinding, bp int) int { return cmp.Compare(e.BindPoint, bp) })
	if !ok {
		return 0, false
	}
	return s.desc.Strides[i].Stride, true
}

func findType(types []TypeBinding, bindPoint int) (BindingType, bool) {
	i, ok := slices.BinarySearchFunc(types, bindPoint, func(e TypeBinding, bp int) int { return cmp.Compare(e.BindPoint, bp) })
	if !ok {
		return BindingInvalid, false
	}
	return types[i].Type, true
}

func (s *Shader) ubSize(bindPoint int) (uint32, bool) {
	i, ok := slices.BinarySearchFunc(s.desc.UBSizes, bindPoint, func(e SizeBinding, bp int) int { return cmp.Compare(e.BindPoint, bp) })
	if !ok {
		return 0, false
	}
	return s.desc.UBSizes[i].Size, true
}
