package tracker

import "fmt"

// State is an access mask paired with the pipelines that access is valid on.
type State struct {
	Access    Access
	Pipelines Pipeline
}

// Equal reports whether both fields match.
func (s State) Equal(o State) bool { return s == o }

// IsSubsetOf reports whether s's access bits and pipelines are all
// contained in o.
func (s State) IsSubsetOf(o State) bool {
	return o.Access.Has(s.Access) && o.Pipelines.Has(s.Pipelines)
}

func (s State) String() string {
	return fmt.Sprintf("Access: %s, Pipelines: %s", s.Access, s.Pipelines)
}

// DecayResourceAccess returns what remains of a resource's current access
// mask after an operation performed the required access.
//
// Write accesses narrow the resource to what the write keeps valid: a
// generic write leaves only itself, a depth write keeps depth read/write,
// a depth read keeps depth and the other read states it coexists with.
// UAV and BVH writes invalidate everything unless UAV overlap is allowed.
// Plain reads leave the mask untouched.
//
// required must have a single bit set. SRVGraphics (pixel and non-pixel) is
// accepted as the lone two-bit exception.
func DecayResourceAccess(current, required Access, allowUAVOverlap bool) Access {
	switch {
	case required.IsUAV():
		if !allowUAVOverlap {
			return AccessNone
		}
		return current
	case required == AccessDSVWrite:
		return current & (AccessDSVRead | AccessDSVWrite)
	case required == AccessDSVRead:
		return current & (AccessDSVRead | AccessDSVWrite | AccessSRVGraphics | AccessSRVCompute | AccessCopySrc)
	case required.Any(AccessWritableMask):
		return required
	default:
		return current
	}
}

// validRequiredAccess reports whether required is a legal argument for
// DecayResourceAccess.
func validRequiredAccess(required Access) bool {
	return required.IsSingle() || required == AccessSRVGraphics
}

// TransitionFlags are per-resource hints carried by a transition.
type TransitionFlags uint8

const (
	TransitionFlagNone                TransitionFlags = 0
	TransitionFlagMaintainCompression TransitionFlags = 1 << 0
	TransitionFlagDiscard             TransitionFlags = 1 << 1
	TransitionFlagClear               TransitionFlags = 1 << 2
)

// TransitionCreateFlags modify how a whole transition batch is built.
type TransitionCreateFlags uint8

const (
	TransitionCreateNone TransitionCreateFlags = 0
	// TransitionCreateNoFence lets the begin skip pipelines that are not
	// participating, provided they already fenced past this pipeline's
	// last transition.
	TransitionCreateNoFence TransitionCreateFlags = 1 << 0
	// TransitionCreateNoSplit requests begin and end in one call.
	TransitionCreateNoSplit TransitionCreateFlags = 1 << 1
)

// Has reports whether every flag in g is set.
func (f TransitionCreateFlags) Has(g TransitionCreateFlags) bool { return f&g == g }
