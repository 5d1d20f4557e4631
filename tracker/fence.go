package tracker

import "fmt"

// Fence synchronizes a source pipeline with a destination pipeline.
// It is signaled by exactly one Signal replay on SrcPipe and consumed by
// exactly one Wait replay on DstPipe.
type Fence struct {
	SrcPipe  Pipeline
	DstPipe  Pipeline
	Signaled bool
	Value    uint64

	waited bool
}

// NewFence creates an unsignaled fence between two distinct pipelines.
func NewFence(src, dst Pipeline) *Fence {
	return &Fence{SrcPipe: src, DstPipe: dst}
}

func (f *Fence) String() string {
	return fmt.Sprintf("fence %s -> %s (value %d, signaled %t)", f.SrcPipe, f.DstPipe, f.Value, f.Signaled)
}
