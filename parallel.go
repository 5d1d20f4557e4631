package gpuval

import (
	"fmt"

	"github.com/gogpu/gpuval/internal/parallel"
)

// RecordParallel calls fn for every context concurrently on the RHI's
// worker pool and returns the finalized command lists in context order.
// Each context must be recorded only by its fn call. Submit the lists with
// SubmitCommandLists.
//
// Errors returned by fn, and panics inside it, are joined into the returned
// error. A context whose fn failed is still finalized. After Close no
// context runs and every list is nil.
func (r *RHI) RecordParallel(contexts []*Context, fn func(i int, c *Context) error) ([]*CommandList, error) {
	lists := make([]*CommandList, len(contexts))
	jobs := make([]parallel.Job, len(contexts))
	for i, c := range contexts {
		jobs[i] = func() error {
			defer func() { lists[i] = r.FinalizeContext(c) }()
			if err := fn(i, c); err != nil {
				return fmt.Errorf("gpuval: record context %q: %w", c.Name(), err)
			}
			return nil
		}
	}
	pool := r.workerPool()
	if pool == nil {
		return lists, parallel.ErrClosed
	}
	err := pool.Run(jobs)
	return lists, err
}
