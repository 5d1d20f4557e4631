package gpuval

import (
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpuval/tracker"
)

// BarrierEncoder is the part of a hal command encoder HALBackend needs.
// hal.CommandEncoder satisfies it.
type BarrierEncoder interface {
	TransitionTextures(barriers []hal.TextureBarrier)
}

// HALBackend forwards texture transitions to a hal command encoder as
// texture barriers. Calls without a barrier counterpart are accepted and
// ignored.
//
// Textures must be bound to their hal handle with Bind before transitions
// on them are forwarded; unbound textures are skipped.
type HALBackend struct {
	NopBackend

	mu       sync.Mutex
	encoder  BarrierEncoder
	textures map[*Texture]hal.Texture
}

var _ Backend = (*HALBackend)(nil)

// NewHALBackend creates a backend writing barriers to enc.
func NewHALBackend(enc BarrierEncoder) *HALBackend {
	return &HALBackend{encoder: enc, textures: make(map[*Texture]hal.Texture)}
}

// Name implements Backend.
func (b *HALBackend) Name() string { return "hal" }

// Bind associates t with its hal texture.
func (b *HALBackend) Bind(t *Texture, ht hal.Texture) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.textures[t] = ht
}

// Unbind forgets t.
func (b *HALBackend) Unbind(t *Texture) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.textures, t)
}

// EndTransitions emits one barrier per bound texture whose usage changes.
func (b *HALBackend) EndTransitions(pipe tracker.Pipeline, ts []*Transition) {
	b.mu.Lock()
	var barriers []hal.TextureBarrier
	for _, t := range ts {
		for i := range t.info.Infos {
			ti := &t.info.Infos[i]
			tex := ti.Texture
			if tex == nil && ti.UAV != nil {
				tex = ti.UAV.texture
			}
			if tex == nil {
				continue
			}
			ht, ok := b.textures[tex]
			if !ok {
				continue
			}
			old, next := TextureUsageForAccess(ti.AccessBefore), TextureUsageForAccess(ti.AccessAfter)
			if old == next {
				continue
			}
			barriers = append(barriers, hal.TextureBarrier{
				Texture: ht,
				Usage:   hal.TextureUsageTransition{OldUsage: old, NewUsage: next},
			})
		}
	}
	b.mu.Unlock()

	if len(barriers) == 0 {
		return
	}
	Logger().Debug("gpuval: texture barriers", "pipeline", pipe, "count", len(barriers))
	b.encoder.TransitionTextures(barriers)
}

// TextureUsageForAccess maps a tracker access to the texture usages it
// requires. Accesses without a texture usage map to zero.
func TextureUsageForAccess(a tracker.Access) gputypes.TextureUsage {
	var u gputypes.TextureUsage
	if a.Any(tracker.AccessSRVMask) {
		u |= gputypes.TextureUsageTextureBinding
	}
	if a.Any(tracker.AccessUAVMask) {
		u |= gputypes.TextureUsageStorageBinding
	}
	if a.Any(tracker.AccessRTV | tracker.AccessDSVRead | tracker.AccessDSVWrite | tracker.AccessResolveDst) {
		u |= gputypes.TextureUsageRenderAttachment
	}
	if a.Any(tracker.AccessCopySrc | tracker.AccessResolveSrc) {
		u |= gputypes.TextureUsageCopySrc
	}
	if a.Any(tracker.AccessCopyDest) {
		u |= gputypes.TextureUsageCopyDst
	}
	return u
}
