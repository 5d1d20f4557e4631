package gpuval

import (
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuval/internal/dedupe"
	"github.com/gogpu/gpuval/tracker"
)

// UniformBindingFlags select how a uniform buffer layout may be bound.
type UniformBindingFlags uint8

const (
	UniformBindingShader UniformBindingFlags = 1 << iota
	UniformBindingStatic

	UniformBindingStaticAndShader = UniformBindingShader | UniformBindingStatic
)

// UniformField is one member of a uniform buffer layout.
type UniformField struct {
	Name string
	Size uint32
}

// UniformBufferLayout describes the members of a uniform buffer. Its hash is
// what shaders record per bind index.
type UniformBufferLayout struct {
	name       string
	fields     []UniformField
	size       uint32
	staticSlot int
	flags      UniformBindingFlags
	hash       uint32
}

// NewUniformBufferLayout creates a shader-bindable layout without a static
// slot.
func NewUniformBufferLayout(name string, fields ...UniformField) *UniformBufferLayout {
	l := &UniformBufferLayout{
		name:       name,
		fields:     append([]UniformField(nil), fields...),
		staticSlot: NoStaticSlot,
		flags:      UniformBindingShader,
	}
	var sig strings.Builder
	sig.WriteString(name)
	for _, f := range fields {
		l.size += f.Size
		fmt.Fprintf(&sig, ";%s:%d", f.Name, f.Size)
	}
	h := dedupe.StringHasher(sig.String())
	l.hash = uint32(h ^ h>>32)
	return l
}

// WithStaticSlot assigns a static slot and the given binding flags.
func (l *UniformBufferLayout) WithStaticSlot(slot int, flags UniformBindingFlags) *UniformBufferLayout {
	l.staticSlot = slot
	l.flags = flags
	return l
}

// Name returns the layout debug name.
func (l *UniformBufferLayout) Name() string { return l.name }

// Hash returns the layout hash.
func (l *UniformBufferLayout) Hash() uint32 { return l.hash }

// Size returns the sum of member sizes in bytes.
func (l *UniformBufferLayout) Size() uint32 { return l.size }

// StaticSlot returns the static slot or NoStaticSlot.
func (l *UniformBufferLayout) StaticSlot() int { return l.staticSlot }

// BindingFlags returns how the layout may be bound.
func (l *UniformBufferLayout) BindingFlags() UniformBindingFlags { return l.flags }

// UniformBufferUsage is the lifetime of a uniform buffer's contents.
type UniformBufferUsage uint8

const (
	UniformBufferSingleDraw UniformBufferUsage = iota
	UniformBufferSingleFrame
	UniformBufferMultiFrame
)

// UniformBuffer is a validated uniform buffer.
type UniformBuffer struct {
	layout       *UniformBufferLayout
	usage        UniformBufferUsage
	size         uint32
	nullContents bool
	frameID      uint64
	trace        *tracker.Backtrace
}

// CreateUniformBuffer creates a uniform buffer in the current frame. Nil
// contents must be filled with Update before the buffer is bound.
func (r *RHI) CreateUniformBuffer(layout *UniformBufferLayout, contents []byte, usage UniformBufferUsage) *UniformBuffer {
	ub := &UniformBuffer{
		layout:       layout,
		usage:        usage,
		size:         layout.size,
		nullContents: contents == nil,
		frameID:      r.FrameID(),
	}
	if len(contents) > int(ub.size) {
		ub.size = uint32(len(contents))
	}
	if usage != UniformBufferMultiFrame && r.cfg.CaptureBacktraces {
		ub.trace = tracker.CaptureBacktrace(1)
	}
	return ub
}

// Update replaces the contents.
func (u *UniformBuffer) Update(contents []byte) {
	u.nullContents = false
	if len(contents) > int(u.size) {
		u.size = uint32(len(contents))
	}
}

// Layout returns the buffer layout.
func (u *UniformBuffer) Layout() *UniformBufferLayout { return u.layout }

// Size returns the size in bytes.
func (u *UniformBuffer) Size() uint32 { return u.size }

func (r *RHI) validateLifetime(u *UniformBuffer) {
	if u.nullContents {
		r.report(tracker.KindShaderBinding, nil,
			"Uniform buffer %q created with null contents is now being bound for rendering on an RHI context. The contents must first be updated.",
			u.layout.name)
	}
	if u.usage != UniformBufferMultiFrame && u.frameID < r.FrameID() {
		msg := fmt.Sprintf("Non MultiFrame uniform buffer %q has been allocated in a previous frame (%d, now %d). The data could have been deleted already!",
			u.layout.name, u.frameID, r.FrameID())
		if u.trace != nil {
			msg += "\n    Allocated at: " + u.trace.Top()
		}
		r.report(tracker.KindShaderBinding, nil, "%s", msg)
	}
}

// =============================================================================
// Binding models
// =============================================================================

// StaticUniformBuffers are the uniform buffers bound by static slot for a
// whole pass.
type StaticUniformBuffers struct {
	Bindings []*UniformBuffer
}

// Set replaces the static bindings.
func (s *StaticUniformBuffers) Set(ubs []*UniformBuffer) {
	s.Bindings = append(s.Bindings[:0], ubs...)
}

// Reset clears the static bindings.
func (s *StaticUniformBuffers) Reset() { s.Bindings = s.Bindings[:0] }

// StageBoundUniformBuffers are the uniform buffers bound per bind index on
// one shader stage.
type StageBoundUniformBuffers struct {
	Buffers []*UniformBuffer
}

// Bind sets the buffer at index, growing the table as needed.
func (s *StageBoundUniformBuffers) Bind(index int, ub *UniformBuffer) {
	if index >= len(s.Buffers) {
		s.Buffers = append(s.Buffers, make([]*UniformBuffer, index+1-len(s.Buffers))...)
	}
	s.Buffers[index] = ub
}

// Reset clears every bind index.
func (s *StageBoundUniformBuffers) Reset() { s.Buffers = s.Buffers[:0] }

const numShaderStages = 3

// BoundUniformBuffers holds per-stage bindings.
type BoundUniformBuffers struct {
	stages [numShaderStages]StageBoundUniformBuffers
}

func stageIndex(stage gputypes.ShaderStage) int {
	switch stage {
	case gputypes.ShaderStageFragment:
		return 1
	case gputypes.ShaderStageCompute:
		return 2
	}
	return 0
}

// Get returns the bindings of one stage.
func (b *BoundUniformBuffers) Get(stage gputypes.ShaderStage) *StageBoundUniformBuffers {
	return &b.stages[stageIndex(stage)]
}

// Reset clears every stage.
func (b *BoundUniformBuffers) Reset() {
	for i := range b.stages {
		b.stages[i].Reset()
	}
}

// validateSetShaderUniformBuffer checks a per-shader binding of ub against
// the static binding model.
func (r *RHI) validateSetShaderUniformBuffer(s *StaticUniformBuffers, ub *UniformBuffer) {
	r.validateLifetime(ub)

	l := ub.layout
	if l.flags&UniformBindingShader == 0 {
		r.report(tracker.KindShaderBinding, nil,
			"Uniform buffer %q does not have the 'Shader' binding flag.", l.name)
	}
	if l.staticSlot != NoStaticSlot && l.staticSlot < len(s.Bindings) {
		if l.flags != UniformBindingStaticAndShader {
			r.report(tracker.KindShaderBinding, nil,
				"Uniform buffer %q has static slot %d but is not bindable both statically and per shader.", l.name, l.staticSlot)
		}
		if s.Bindings[l.staticSlot] != nil {
			r.report(tracker.KindShaderBinding, nil,
				"Uniform buffer %q was bound statically and is now being bound on a specific RHI shader. Only one binding model should be used at a time.",
				l.name)
		}
	}
}

// ValidateBoundUniformBuffers checks that every bind index shader expects
// has a uniform buffer of the right layout, static bindings first.
func (r *RHI) ValidateBoundUniformBuffers(shader *Shader, static *StaticUniformBuffers, bound *StageBoundUniformBuffers) {
	hashes := shader.desc.LayoutHashes
	slots := shader.desc.StaticSlots
	if len(hashes) != len(slots) {
		r.report(tracker.KindShaderBinding, nil,
			"Shader %s(%s): The number of layout hashes (%d) is different from the number of static slots (%d).",
			shader.Name(), shader.stageName(), len(hashes), len(slots))
		return
	}

	for bindIndex, expected := range hashes {
		if expected == 0 {
			continue
		}

		var ub *UniformBuffer
		isStatic := false
		if slot := slots[bindIndex]; slot != NoStaticSlot && slot >= 0 && slot < len(static.Bindings) {
			if ub = static.Bindings[slot]; ub != nil {
				isStatic = true
			}
		}
		if ub == nil && bindIndex < len(bound.Buffers) {
			ub = bound.Buffers[bindIndex]
		}

		if ub == nil {
			r.report(tracker.KindShaderBinding, nil,
				"Shader %s(%s): missing uniform buffer %q at index %d.",
				shader.Name(), shader.stageName(), shader.uniformBufferName(bindIndex), bindIndex)
			continue
		}
		if got := ub.layout.hash; got != expected {
			r.report(tracker.KindShaderBinding, nil,
				"Shader %s(%s): Invalid layout hash %d for uniform buffer %q at bind index %d (static: %s). Expecting a buffer called %q, hash %d.",
				shader.Name(), shader.stageName(), got, ub.layout.name, bindIndex, yesNo(isStatic), shader.uniformBufferName(bindIndex), expected)
		}
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
