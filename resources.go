package gpuval

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuval/tracker"
)

// Trackable is implemented by every resource whose barrier state the
// tracker follows.
type Trackable interface {
	TrackerResource() *tracker.Resource
}

// IsDepthFormat reports whether f has a depth or stencil aspect.
func IsDepthFormat(f gputypes.TextureFormat) bool {
	switch f {
	case gputypes.TextureFormatDepth16Unorm,
		gputypes.TextureFormatDepth24Plus,
		gputypes.TextureFormatDepth32Float,
		gputypes.TextureFormatStencil8,
		gputypes.TextureFormatDepth24PlusStencil8,
		gputypes.TextureFormatDepth32FloatStencil8:
		return true
	}
	return false
}

// IsStencilFormat reports whether f has a stencil aspect.
func IsStencilFormat(f gputypes.TextureFormat) bool {
	switch f {
	case gputypes.TextureFormatStencil8,
		gputypes.TextureFormatDepth24PlusStencil8,
		gputypes.TextureFormatDepth32FloatStencil8:
		return true
	}
	return false
}

// formatPlanes returns the number of tracked planes: depth and stencil are
// tracked separately.
func formatPlanes(f gputypes.TextureFormat) int {
	if IsStencilFormat(f) {
		return 2
	}
	return 1
}

// =============================================================================
// Textures
// =============================================================================

// TextureDesc describes a texture to create.
type TextureDesc struct {
	Name      string
	Format    gputypes.TextureFormat
	Dimension gputypes.TextureDimension
	Width     uint32
	Height    uint32
	Depth     uint32

	// NumMips and ArraySize default to 1.
	NumMips   int
	ArraySize int
	// Cube makes every array element six faces.
	Cube bool

	Usage         gputypes.TextureUsage
	InitialAccess tracker.Access
}

func (d *TextureDesc) normalize() error {
	if d.Width == 0 {
		return fmt.Errorf("%w: texture %q has zero width", ErrInvalidDesc, d.Name)
	}
	if d.Height == 0 {
		d.Height = 1
	}
	if d.Depth == 0 {
		d.Depth = 1
	}
	if d.NumMips <= 0 {
		d.NumMips = 1
	}
	if d.ArraySize <= 0 {
		d.ArraySize = 1
	}
	if d.Cube && d.Dimension != gputypes.TextureDimension2D {
		return fmt.Errorf("%w: cube texture %q must be 2D", ErrInvalidDesc, d.Name)
	}
	return nil
}

// ArraySlices returns the tracked slice count: six per element for cubes.
func (d TextureDesc) ArraySlices() int {
	if d.Cube {
		return d.ArraySize * 6
	}
	return d.ArraySize
}

// ViewDimension returns the dimension of a view covering the whole texture.
func (d TextureDesc) ViewDimension() gputypes.TextureViewDimension {
	switch {
	case d.Dimension == gputypes.TextureDimension1D:
		return gputypes.TextureViewDimension1D
	case d.Dimension == gputypes.TextureDimension3D:
		return gputypes.TextureViewDimension3D
	case d.Cube && d.ArraySize > 1:
		return gputypes.TextureViewDimensionCubeArray
	case d.Cube:
		return gputypes.TextureViewDimensionCube
	case d.ArraySize > 1:
		return gputypes.TextureViewDimension2DArray
	default:
		return gputypes.TextureViewDimension2D
	}
}

// Texture is a validated texture.
type Texture struct {
	desc TextureDesc
	res  *tracker.Resource
}

// CreateTexture creates a texture and initializes its barrier tracking.
func (r *RHI) CreateTexture(desc TextureDesc) (*Texture, error) {
	if err := desc.normalize(); err != nil {
		return nil, err
	}
	t := &Texture{desc: desc, res: r.engine.NewResource(desc.Name)}
	if err := t.res.InitBarrierTracking(desc.NumMips, desc.ArraySlices(), formatPlanes(desc.Format), desc.InitialAccess, desc.Name); err != nil {
		return nil, fmt.Errorf("gpuval: create texture %q: %w", desc.Name, err)
	}
	if err := r.backend.CreateTexture(t); err != nil {
		return nil, fmt.Errorf("gpuval: create texture %q: %w", desc.Name, err)
	}
	return t, nil
}

// Desc returns the normalized description.
func (t *Texture) Desc() TextureDesc { return t.desc }

// Name returns the current debug name.
func (t *Texture) Name() string { return t.res.DebugName() }

// TrackerResource implements Trackable.
func (t *Texture) TrackerResource() *tracker.Resource { return t.res }

// WholeResourceIdentity covers every mip, slice and plane.
func (t *Texture) WholeResourceIdentity() tracker.ResourceIdentity { return t.res.WholeResource() }

// WholeResourceIdentitySRV covers every mip and slice of the first plane,
// which is what binding the texture as a shader resource reads.
func (t *Texture) WholeResourceIdentitySRV() tracker.ResourceIdentity {
	return t.res.GetViewIdentity(0, 0, 0, 0, 0, 1)
}

// TransitionIdentity maps a subresource selector to an identity.
func (t *Texture) TransitionIdentity(sel tracker.SubresourceIndex) tracker.ResourceIdentity {
	return t.res.GetTransitionIdentity(sel)
}

// =============================================================================
// Buffers
// =============================================================================

// BufferFlags are creation flags that change validation.
type BufferFlags uint8

const (
	// BufferFlagVolatile buffers may be locked for writing inside a render pass.
	BufferFlagVolatile BufferFlags = 1 << iota
	// BufferFlagReservedResource buffers are virtually allocated and accept
	// commit transitions.
	BufferFlagReservedResource
)

// Has reports whether every flag in g is set.
func (f BufferFlags) Has(g BufferFlags) bool { return f&g == g }

// BufferDesc describes a buffer to create.
type BufferDesc struct {
	Name   string
	Size   uint64
	Stride uint32
	// Usage must include gputypes.BufferUsageCopySrc for the buffer to be a
	// copy source.
	Usage         gputypes.BufferUsage
	Flags         BufferFlags
	InitialAccess tracker.Access
}

// Buffer is a validated buffer.
type Buffer struct {
	desc BufferDesc
	res  *tracker.Resource
}

// CreateBuffer creates a buffer and initializes its barrier tracking.
func (r *RHI) CreateBuffer(desc BufferDesc) (*Buffer, error) {
	if desc.Size == 0 {
		return nil, fmt.Errorf("%w: buffer %q has zero size", ErrInvalidDesc, desc.Name)
	}
	b := &Buffer{desc: desc, res: r.engine.NewResource(desc.Name)}
	if err := b.res.InitBarrierTracking(1, 1, 1, desc.InitialAccess, desc.Name); err != nil {
		return nil, fmt.Errorf("gpuval: create buffer %q: %w", desc.Name, err)
	}
	if err := r.backend.CreateBuffer(b); err != nil {
		return nil, fmt.Errorf("gpuval: create buffer %q: %w", desc.Name, err)
	}
	return b, nil
}

// Desc returns the creation description.
func (b *Buffer) Desc() BufferDesc { return b.desc }

// Name returns the current debug name.
func (b *Buffer) Name() string { return b.res.DebugName() }

// Size returns the size in bytes.
func (b *Buffer) Size() uint64 { return b.desc.Size }

// TrackerResource implements Trackable.
func (b *Buffer) TrackerResource() *tracker.Resource { return b.res }

// WholeResourceIdentity covers the whole buffer.
func (b *Buffer) WholeResourceIdentity() tracker.ResourceIdentity { return b.res.WholeResource() }

// StagingBuffer is a CPU-readable copy destination. It is not tracked.
type StagingBuffer struct {
	Name string
	Size uint64
}

// =============================================================================
// Views
// =============================================================================

// BufferType is how a buffer view interprets its buffer.
type BufferType uint8

const (
	BufferTypeTyped BufferType = iota
	BufferTypeStructured
	BufferTypeRaw
	BufferTypeAccelerationStructure
)

func (t BufferType) String() string {
	switch t {
	case BufferTypeTyped:
		return "Typed"
	case BufferTypeStructured:
		return "Structured"
	case BufferTypeRaw:
		return "Raw"
	case BufferTypeAccelerationStructure:
		return "AccelerationStructure"
	}
	return fmt.Sprintf("BufferType(%d)", t)
}

// TextureViewDesc selects the subresources a texture view covers. Zero
// counts cover the rest of that dimension from index zero. An undefined
// dimension inherits the texture's.
type TextureViewDesc struct {
	MipIndex       int
	NumMips        int
	ArraySlice     int
	NumArraySlices int
	Plane          int
	Dimension      gputypes.TextureViewDimension
}

// BufferViewDesc describes a buffer view. A zero stride inherits the
// buffer's.
type BufferViewDesc struct {
	Type   BufferType
	Stride uint32
}

type view struct {
	identity   tracker.ViewIdentity
	texture    *Texture
	buffer     *Buffer
	dimension  gputypes.TextureViewDimension
	bufferType BufferType
}

func newTextureView(t *Texture, d TextureViewDesc) view {
	dim := d.Dimension
	if dim == gputypes.TextureViewDimensionUndefined {
		dim = t.desc.ViewDimension()
	}
	return view{
		identity: tracker.ViewIdentity{
			ResourceIdentity: t.res.GetViewIdentity(d.MipIndex, d.NumMips, d.ArraySlice, d.NumArraySlices, d.Plane, 1),
		},
		texture:   t,
		dimension: dim,
	}
}

func newBufferView(b *Buffer, d BufferViewDesc) view {
	stride := d.Stride
	if stride == 0 {
		stride = b.desc.Stride
	}
	return view{
		identity:   tracker.ViewIdentity{ResourceIdentity: b.res.WholeResource(), Stride: stride},
		buffer:     b,
		bufferType: d.Type,
	}
}

// ViewIdentity returns the subresources and stride the view covers.
func (v *view) ViewIdentity() tracker.ViewIdentity { return v.identity }

// TrackerResource implements Trackable.
func (v *view) TrackerResource() *tracker.Resource { return v.identity.Resource }

// IsTexture reports whether the view is of a texture.
func (v *view) IsTexture() bool { return v.texture != nil }

// IsBuffer reports whether the view is of a buffer.
func (v *view) IsBuffer() bool { return v.buffer != nil }

// Texture returns the viewed texture or nil.
func (v *view) Texture() *Texture { return v.texture }

// Buffer returns the viewed buffer or nil.
func (v *view) Buffer() *Buffer { return v.buffer }

// Dimension returns the texture view dimension.
func (v *view) Dimension() gputypes.TextureViewDimension { return v.dimension }

// BufferType returns the buffer view type.
func (v *view) BufferType() BufferType { return v.bufferType }

func (v *view) name() string {
	return v.identity.Resource.DebugName()
}

// ShaderResourceView is a read-only view of a texture or buffer.
type ShaderResourceView struct{ view }

// UnorderedAccessView is a read-write view of a texture or buffer.
type UnorderedAccessView struct{ view }

// CreateTextureSRV creates a shader resource view of t.
func (r *RHI) CreateTextureSRV(t *Texture, d TextureViewDesc) *ShaderResourceView {
	return &ShaderResourceView{newTextureView(t, d)}
}

// CreateBufferSRV creates a shader resource view of b.
func (r *RHI) CreateBufferSRV(b *Buffer, d BufferViewDesc) *ShaderResourceView {
	return &ShaderResourceView{newBufferView(b, d)}
}

// CreateTextureUAV creates an unordered access view of t.
func (r *RHI) CreateTextureUAV(t *Texture, d TextureViewDesc) *UnorderedAccessView {
	return &UnorderedAccessView{newTextureView(t, d)}
}

// CreateBufferUAV creates an unordered access view of b.
func (r *RHI) CreateBufferUAV(b *Buffer, d BufferViewDesc) *UnorderedAccessView {
	return &UnorderedAccessView{newBufferView(b, d)}
}
