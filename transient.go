package gpuval

import (
	"fmt"
	"sync"

	"github.com/gogpu/gpuval/tracker"
)

// TransientAllocator hands out memory-aliased textures and buffers. A
// resource created for the first time gets Discard tracking and is marked
// transient. A recycled resource keeps its layout and is reinitialized
// under its new name by an operation queued for the graphics pipeline,
// which Flush moves into a context.
//
// Thread safety: TransientAllocator is safe for concurrent use.
type TransientAllocator struct {
	rhi *RHI

	mu        sync.Mutex
	allocated map[*tracker.Resource]Trackable
	pending   [tracker.PipelineCount][]tracker.Operation
}

// NewTransientAllocator creates an empty allocator.
func (r *RHI) NewTransientAllocator() *TransientAllocator {
	return &TransientAllocator{rhi: r, allocated: make(map[*tracker.Resource]Trackable)}
}

// CreateTexture allocates a transient texture. Passing a previously
// deallocated texture in recycle reuses it; its layout must match desc.
func (a *TransientAllocator) CreateTexture(desc TextureDesc, recycle *Texture) (*Texture, error) {
	if err := desc.normalize(); err != nil {
		return nil, err
	}
	desc.InitialAccess = tracker.AccessDiscard

	t := recycle
	if t == nil {
		t = &Texture{res: a.rhi.engine.NewResource(desc.Name)}
	}
	err := a.initResource(t, desc.Name, desc.NumMips, desc.ArraySlices(), formatPlanes(desc.Format))
	if err != nil {
		return nil, fmt.Errorf("gpuval: transient texture %q: %w", desc.Name, err)
	}
	t.desc = desc
	if recycle == nil {
		if err := a.rhi.backend.CreateTexture(t); err != nil {
			a.forget(t.res)
			return nil, fmt.Errorf("gpuval: transient texture %q: %w", desc.Name, err)
		}
	}
	return t, nil
}

// CreateBuffer allocates a transient buffer, reusing recycle when given.
func (a *TransientAllocator) CreateBuffer(desc BufferDesc, recycle *Buffer) (*Buffer, error) {
	if desc.Size == 0 {
		return nil, fmt.Errorf("%w: buffer %q has zero size", ErrInvalidDesc, desc.Name)
	}
	desc.InitialAccess = tracker.AccessDiscard

	b := recycle
	if b == nil {
		b = &Buffer{res: a.rhi.engine.NewResource(desc.Name)}
	}
	if err := a.initResource(b, desc.Name, 1, 1, 1); err != nil {
		return nil, fmt.Errorf("gpuval: transient buffer %q: %w", desc.Name, err)
	}
	b.desc = desc
	if recycle == nil {
		if err := a.rhi.backend.CreateBuffer(b); err != nil {
			a.forget(b.res)
			return nil, fmt.Errorf("gpuval: transient buffer %q: %w", desc.Name, err)
		}
	}
	return b, nil
}

func (a *TransientAllocator) initResource(t Trackable, name string, mips, slices, planes int) error {
	res := t.TrackerResource()

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.allocated[res]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyAllocated, res)
	}

	if !res.IsTrackingInitialized() {
		if err := res.InitBarrierTracking(mips, slices, planes, tracker.AccessDiscard, name); err != nil {
			return err
		}
		res.MarkTransient()
	} else {
		if err := res.CheckValidationLayout(mips, slices, planes); err != nil {
			return err
		}
		gfx := tracker.PipelineGraphics.Index()
		a.pending[gfx] = append(a.pending[gfx], tracker.InitTransientOp(res, name))
	}
	a.allocated[res] = t
	return nil
}

func (a *TransientAllocator) forget(res *tracker.Resource) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.allocated, res)
}

// Deallocate returns t to the allocator. Its memory may be aliased by the
// next allocation.
func (a *TransientAllocator) Deallocate(t Trackable) error {
	res := t.TrackerResource()
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.allocated[res]; !ok {
		return fmt.Errorf("%w: %s", ErrNotAllocated, res)
	}
	delete(a.allocated, res)
	return nil
}

// Allocated returns the number of resources currently allocated.
func (a *TransientAllocator) Allocated() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.allocated)
}

// Flush moves the queued operations for each pipeline into the tracker of
// the context recording for it. Pipelines without a context keep their
// operations for a later flush.
func (a *TransientAllocator) Flush(contexts ...*Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, c := range contexts {
		if c == nil {
			continue
		}
		i := c.pipeline.Index()
		c.tracker.AddOps(a.pending[i])
		a.pending[i] = nil
	}
}
