package gpuval

import "errors"

// Errors returned by facade calls. These describe calls that cannot be
// recorded at all; hazards in well-formed calls are reported as
// tracker.Failure values instead.
var (
	// ErrUnknownAccessAfter is returned when a transition targets AccessUnknown.
	ErrUnknownAccessAfter = errors.New("gpuval: transition AccessAfter cannot be Unknown")

	// ErrNotTransient is returned when an aliasing info acquires a resource
	// that was not created as transient.
	ErrNotTransient = errors.New("gpuval: only transient resources can be acquired")

	// ErrNilOverlap is returned for a nil resource in an aliasing overlap list.
	ErrNilOverlap = errors.New("gpuval: nil resource in aliasing overlaps")

	// ErrWrongPipeline is returned when a graphics-only call is made on an
	// async compute context.
	ErrWrongPipeline = errors.New("gpuval: call not supported on this pipeline")

	// ErrInvalidDesc is returned for a resource description with a zero
	// extent or inconsistent fields.
	ErrInvalidDesc = errors.New("gpuval: invalid resource description")

	// ErrAlreadyAllocated is returned when the transient allocator hands out
	// a resource that is still allocated.
	ErrAlreadyAllocated = errors.New("gpuval: resource already allocated by this allocator")

	// ErrNotAllocated is returned when deallocating a resource the transient
	// allocator does not hold.
	ErrNotAllocated = errors.New("gpuval: resource is not allocated")
)
