package tracker

import "fmt"

// SubresourceAll marks a SubresourceIndex component as covering every value.
const SubresourceAll = -1

// SubresourceIndex addresses one (mip, array slice, plane) of a resource,
// or the whole resource when every component is SubresourceAll.
type SubresourceIndex struct {
	MipIndex   int
	ArraySlice int
	PlaneIndex int
}

// WholeResourceIndex returns the index that stands for the whole resource.
func WholeResourceIndex() SubresourceIndex {
	return SubresourceIndex{SubresourceAll, SubresourceAll, SubresourceAll}
}

// IsWhole reports whether the index addresses the whole resource.
func (i SubresourceIndex) IsWhole() bool {
	return i.MipIndex == SubresourceAll && i.ArraySlice == SubresourceAll && i.PlaneIndex == SubresourceAll
}

func (i SubresourceIndex) String() string {
	if i.IsWhole() {
		return "whole resource"
	}
	return fmt.Sprintf("mip %d, slice %d, plane %d", i.MipIndex, i.ArraySlice, i.PlaneIndex)
}

// SubresourceRange is a contiguous block of mips, array slices and planes.
type SubresourceRange struct {
	MipIndex       int
	NumMips        int
	ArraySlice     int
	NumArraySlices int
	PlaneIndex     int
	NumPlanes      int
}

// IsWholeResource reports whether the range covers every subresource of r.
func (s SubresourceRange) IsWholeResource(r *Resource) bool {
	return s.MipIndex == 0 && s.ArraySlice == 0 && s.PlaneIndex == 0 &&
		s.NumMips == r.numMips && s.NumArraySlices == r.numArraySlices && s.NumPlanes == r.numPlanes
}

// Count returns the number of subresources in the range.
func (s SubresourceRange) Count() int { return s.NumMips * s.NumArraySlices * s.NumPlanes }

func (s SubresourceRange) String() string {
	return fmt.Sprintf("mips [%d,+%d) slices [%d,+%d) planes [%d,+%d)",
		s.MipIndex, s.NumMips, s.ArraySlice, s.NumArraySlices, s.PlaneIndex, s.NumPlanes)
}

// ResourceIdentity pairs a resource with the subresources an operation touches.
// It is comparable, so identities can be deduplicated with ==.
type ResourceIdentity struct {
	Resource *Resource
	Range    SubresourceRange
}

// ViewIdentity is a resource identity viewed through a typed view.
type ViewIdentity struct {
	ResourceIdentity
	Stride uint32
}
