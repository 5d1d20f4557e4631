package tracker

// UAVMode selects the graphics or compute UAV binding table.
type UAVMode uint8

const (
	UAVModeGraphics UAVMode = iota
	UAVModeCompute

	uavModeCount = 2
)

func (m UAVMode) String() string {
	if m == UAVModeCompute {
		return "Compute"
	}
	return "Graphics"
}

// access returns the UAV access a draw or dispatch requires in this mode.
func (m UAVMode) access() Access {
	if m == UAVModeCompute {
		return AccessUAVCompute
	}
	return AccessUAVGraphics
}

// UAVTracker remembers the UAVs bound per slot so that each draw or
// dispatch asserts every distinct bound resource once.
type UAVTracker struct {
	slots []*ViewIdentity
}

// Bind records view at slot. A nil view clears the slot.
func (u *UAVTracker) Bind(slot int, view *ViewIdentity) {
	if slot >= len(u.slots) {
		if view == nil {
			return
		}
		grown := make([]*ViewIdentity, slot+1)
		copy(grown, u.slots)
		u.slots = grown
	}
	u.slots[slot] = view
}

// Reset clears every slot.
func (u *UAVTracker) Reset() { u.slots = u.slots[:0] }

// Identities returns the distinct identities currently bound.
func (u *UAVTracker) Identities() []ResourceIdentity {
	var out []ResourceIdentity
	for _, v := range u.slots {
		if v == nil {
			continue
		}
		dup := false
		for _, id := range out {
			if id == v.ResourceIdentity {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v.ResourceIdentity)
		}
	}
	return out
}
