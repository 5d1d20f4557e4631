package tracker

import (
	"math/bits"
	"strings"
)

// Access is a bitmask of the ways a GPU may access a resource.
type Access uint32

// Access bits.
const (
	AccessUnknown Access = 0
	AccessNone    Access = AccessUnknown

	AccessCPURead             Access = 1 << 0
	AccessPresent             Access = 1 << 1
	AccessIndirectArgs        Access = 1 << 2
	AccessVertexOrIndexBuffer Access = 1 << 3
	AccessSRVCompute          Access = 1 << 4
	AccessSRVGraphicsPixel    Access = 1 << 5
	AccessSRVGraphicsNonPixel Access = 1 << 6
	AccessCopySrc             Access = 1 << 7
	AccessResolveSrc          Access = 1 << 8
	AccessDSVRead             Access = 1 << 9

	AccessUAVCompute        Access = 1 << 10
	AccessUAVGraphics       Access = 1 << 11
	AccessRTV               Access = 1 << 12
	AccessCopyDest          Access = 1 << 13
	AccessResolveDst        Access = 1 << 14
	AccessDSVWrite          Access = 1 << 15
	AccessBVHRead           Access = 1 << 16
	AccessBVHWrite          Access = 1 << 17
	AccessDiscard           Access = 1 << 18
	AccessShadingRateSource Access = 1 << 19

	accessLast = AccessShadingRateSource
)

// Composite access masks.
const (
	AccessSRVGraphics = AccessSRVGraphicsPixel | AccessSRVGraphicsNonPixel
	AccessSRVMask     = AccessSRVCompute | AccessSRVGraphics
	AccessUAVMask     = AccessUAVCompute | AccessUAVGraphics

	// AccessReadOnlyExclusiveMask holds read states that cannot be combined
	// with any write state.
	AccessReadOnlyExclusiveMask = AccessCPURead | AccessPresent | AccessIndirectArgs |
		AccessVertexOrIndexBuffer | AccessSRVGraphics | AccessSRVCompute |
		AccessCopySrc | AccessResolveSrc | AccessBVHRead | AccessShadingRateSource

	// AccessReadOnlyExclusiveComputeMask is the subset usable on async compute.
	AccessReadOnlyExclusiveComputeMask = AccessCPURead | AccessIndirectArgs |
		AccessSRVCompute | AccessCopySrc | AccessBVHRead

	AccessReadOnlyMask = AccessReadOnlyExclusiveMask | AccessDSVRead | AccessShadingRateSource
	AccessReadableMask = AccessReadOnlyMask | AccessUAVMask

	AccessWriteOnlyExclusiveMask = AccessRTV | AccessCopyDest | AccessResolveDst
	AccessWriteOnlyMask          = AccessWriteOnlyExclusiveMask | AccessDSVWrite
	AccessWritableMask           = AccessWriteOnlyMask | AccessUAVMask | AccessBVHWrite
)

var accessNames = [...]string{
	"CPURead",
	"Present",
	"IndirectArgs",
	"VertexOrIndexBuffer",
	"SRVCompute",
	"SRVGraphicsPixel",
	"SRVGraphicsNonPixel",
	"CopySrc",
	"ResolveSrc",
	"DSVRead",
	"UAVCompute",
	"UAVGraphics",
	"RTV",
	"CopyDest",
	"ResolveDst",
	"DSVWrite",
	"BVHRead",
	"BVHWrite",
	"Discard",
	"ShadingRateSource",
}

// String renders the set bits joined by '|', or "Unknown" for zero.
func (a Access) String() string {
	if a == AccessUnknown {
		return "Unknown"
	}
	var sb strings.Builder
	for i, name := range accessNames {
		if a&(1<<i) == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString(name)
	}
	if rest := a &^ (accessLast<<1 - 1); rest != 0 {
		if sb.Len() > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString("Invalid")
	}
	return sb.String()
}

// Has reports whether every bit of b is set in a.
func (a Access) Has(b Access) bool { return a&b == b }

// Any reports whether a and b share at least one bit.
func (a Access) Any(b Access) bool { return a&b != 0 }

// IsUAV reports whether the access is a UAV or BVH write, the accesses
// subject to UAV-overlap rules.
func (a Access) IsUAV() bool { return a.Any(AccessUAVMask | AccessBVHWrite) }

// IsSingle reports whether exactly one access bit is set.
func (a Access) IsSingle() bool { return bits.OnesCount32(uint32(a)) == 1 }

// IsValid reports whether the combination is a legal resource state:
// exclusive read states never combine with writes and write-only states
// never combine with other states.
func (a Access) IsValid() bool {
	if a.Any(AccessReadOnlyExclusiveMask) && a.Any(AccessWritableMask) {
		return false
	}
	return !a.Any(AccessWriteOnlyExclusiveMask) || a.IsSingle()
}
