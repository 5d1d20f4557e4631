package gpuval

import "github.com/gogpu/gpuval/tracker"

// Backend is the graphics implementation validated calls forward to.
//
// Every method is called after validation has recorded its operations, so
// a backend can assume arguments are well formed. Validation failures do
// not stop forwarding: the RHI reports and carries on, like a debug layer.
//
// Implementations must be safe for concurrent use when contexts are
// recorded in parallel.
type Backend interface {
	// Name returns the backend name (e.g., "nop", "hal").
	Name() string

	// CreateTexture is called after the texture's tracking is initialized.
	CreateTexture(t *Texture) error

	// CreateBuffer is called after the buffer's tracking is initialized.
	CreateBuffer(b *Buffer) error

	// CreateTransition is called once the transition's operations are built.
	CreateTransition(t *Transition) error

	// BeginTransitions starts transitions on a context of pipe.
	BeginTransitions(pipe tracker.Pipeline, ts []*Transition)

	// EndTransitions completes transitions on a context of pipe.
	EndTransitions(pipe tracker.Pipeline, ts []*Transition)

	// LockBuffer maps a buffer for CPU access.
	LockBuffer(b *Buffer, mode LockMode) error

	// BindDebugLabelName renames a resource.
	BindDebugLabelName(res Trackable, name string)

	// Draw issues a draw on a context of pipe.
	Draw(pipe tracker.Pipeline)

	// Dispatch issues a compute dispatch on a context of pipe.
	Dispatch(pipe tracker.Pipeline)

	// CopyToStagingBuffer copies size bytes at offset of src into dst.
	CopyToStagingBuffer(src *Buffer, dst *StagingBuffer, offset, size uint64)

	// Submit executes finalized command lists in order.
	Submit(lists []*CommandList) error

	// EndFrame marks the end of the current frame.
	EndFrame()
}

// NopBackend accepts every call and does nothing. It is the default backend,
// for validating recorded work without a device.
type NopBackend struct{}

var _ Backend = NopBackend{}

func (NopBackend) Name() string { return "nop" }
func (NopBackend) CreateTexture(*Texture) error { return nil }
func (NopBackend) CreateBuffer(*Buffer) error { return nil }
func (NopBackend) CreateTransition(*Transition) error { return nil }
func (NopBackend) BeginTransitions(tracker.Pipeline, []*Transition) {}
func (NopBackend) EndTransitions(tracker.Pipeline, []*Transition) {}
func (NopBackend) LockBuffer(*Buffer, LockMode) error { return nil }
func (NopBackend) BindDebugLabelName(Trackable, string) {}
func (NopBackend) Draw(tracker.Pipeline) {}
func (NopBackend) Dispatch(tracker.Pipeline) {}
func (NopBackend) CopyToStagingBuffer(*Buffer, *StagingBuffer, uint64, uint64) {}
func (NopBackend) Submit([]*CommandList) error { return nil }
func (NopBackend) EndFrame() {}
