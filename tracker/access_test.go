package tracker

import "testing"

func TestAccess_String(t *testing.T) {
	tests := []struct {
		access Access
		want   string
	}{
		{AccessUnknown, "Unknown"},
		{AccessCopySrc, "CopySrc"},
		{AccessSRVCompute | AccessCopySrc, "SRVCompute|CopySrc"},
		{AccessSRVGraphics, "SRVGraphicsPixel|SRVGraphicsNonPixel"},
		{1 << 25, "Invalid"},
	}
	for _, tt := range tests {
		if got := tt.access.String(); got != tt.want {
			t.Errorf("Access(%#x).String() = %q, want %q", uint32(tt.access), got, tt.want)
		}
	}
}

func TestAccess_IsValid(t *testing.T) {
	tests := []struct {
		name   string
		access Access
		want   bool
	}{
		{"single read", AccessSRVCompute, true},
		{"combined reads", AccessSRVMask | AccessCopySrc, true},
		{"read and write", AccessSRVCompute | AccessUAVCompute, false},
		{"depth read and write", AccessDSVRead | AccessDSVWrite, true},
		{"rtv alone", AccessRTV, true},
		{"rtv and copy dest", AccessRTV | AccessCopyDest, false},
		{"rtv and uav", AccessRTV | AccessUAVGraphics, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.access.IsValid(); got != tt.want {
				t.Errorf("IsValid(%s) = %v, want %v", tt.access, got, tt.want)
			}
		})
	}
}

func TestDecayResourceAccess(t *testing.T) {
	readMask := AccessSRVMask | AccessCopySrc | AccessDSVRead
	tests := []struct {
		name     string
		current  Access
		required Access
		overlap  bool
		want     Access
	}{
		{"uav without overlap", AccessUAVCompute, AccessUAVCompute, false, AccessNone},
		{"uav with overlap", AccessUAVCompute | AccessUAVGraphics, AccessUAVCompute, true, AccessUAVCompute | AccessUAVGraphics},
		{"bvh write without overlap", AccessBVHWrite | AccessBVHRead, AccessBVHWrite, false, AccessNone},
		{"dsv write", AccessDSVWrite | AccessDSVRead | AccessSRVGraphics, AccessDSVWrite, false, AccessDSVWrite | AccessDSVRead},
		{"dsv read", readMask | AccessDSVWrite | AccessResolveSrc, AccessDSVRead, false, readMask | AccessDSVWrite},
		{"generic write", AccessRTV | AccessCopyDest, AccessRTV, false, AccessRTV},
		{"copy dest", AccessCopyDest, AccessCopyDest, false, AccessCopyDest},
		{"pure read", readMask, AccessSRVCompute, false, readMask},
		{"srv graphics read", readMask, AccessSRVGraphics, false, readMask},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecayResourceAccess(tt.current, tt.required, tt.overlap); got != tt.want {
				t.Errorf("DecayResourceAccess(%s, %s, %v) = %s, want %s", tt.current, tt.required, tt.overlap, got, tt.want)
			}
		})
	}
}

func TestState_IsSubsetOf(t *testing.T) {
	all := State{Access: AccessSRVMask, Pipelines: PipelineAll}
	if !gfx(AccessSRVCompute).IsSubsetOf(all) {
		t.Error("gfx SRVCompute should be a subset of all-pipe SRVMask")
	}
	if all.IsSubsetOf(gfx(AccessSRVMask)) {
		t.Error("all-pipe state should not be a subset of a graphics-only state")
	}
	if !gfx(AccessCopySrc).Equal(gfx(AccessCopySrc)) {
		t.Error("Equal() = false for identical states")
	}
}

func TestPipeline_Each(t *testing.T) {
	var got []Pipeline
	PipelineAll.Each(func(p Pipeline) { got = append(got, p) })
	if len(got) != 2 || got[0] != PipelineGraphics || got[1] != PipelineAsyncCompute {
		t.Errorf("Each(All) visited %v, want [Graphics AsyncCompute]", got)
	}
	if s := PipelineAll.String(); s != "Graphics|AsyncCompute" {
		t.Errorf("PipelineAll.String() = %q", s)
	}
	if PipelineAsyncCompute.Index() != 1 || PipelineAt(1) != PipelineAsyncCompute {
		t.Error("AsyncCompute index mapping is inconsistent")
	}
}
