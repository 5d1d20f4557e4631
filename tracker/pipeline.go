package tracker

import "strings"

// Pipeline is a bitmask of GPU execution pipelines (hardware queues).
type Pipeline uint8

const (
	PipelineNone         Pipeline = 0
	PipelineGraphics     Pipeline = 1 << 0
	PipelineAsyncCompute Pipeline = 1 << 1

	PipelineAll = PipelineGraphics | PipelineAsyncCompute
)

// PipelineCount is the number of distinct pipelines.
const PipelineCount = 2

// Index returns the slot index of a single-bit pipeline.
// The result is undefined for masks with more than one bit set.
func (p Pipeline) Index() int {
	switch p {
	case PipelineAsyncCompute:
		return 1
	default:
		return 0
	}
}

// PipelineAt returns the single-bit pipeline for a slot index.
func PipelineAt(index int) Pipeline { return Pipeline(1) << index }

// Has reports whether every pipeline in q is in p.
func (p Pipeline) Has(q Pipeline) bool { return p&q == q }

// Each calls fn for every pipeline set in p, in slot order.
func (p Pipeline) Each(fn func(Pipeline)) {
	for i := range PipelineCount {
		if pipe := PipelineAt(i); p&pipe != 0 {
			fn(pipe)
		}
	}
}

// String returns a human-readable pipeline list.
func (p Pipeline) String() string {
	switch p {
	case PipelineNone:
		return "None"
	case PipelineGraphics:
		return "Graphics"
	case PipelineAsyncCompute:
		return "AsyncCompute"
	}
	var names []string
	p.Each(func(pipe Pipeline) { names = append(names, pipe.String()) })
	return strings.Join(names, "|")
}
