package schedule

// Rotation is the in-memory form of a room's rotation queue: an ordered
// member list whose head is the next assignee. Rotation moves the head
// to the tail after an assignment; membership sync appends joiners at
// the tail so they wait a full cycle before their first turn.
type Rotation struct {
	Order []int64
}

// NewRotation builds a rotation over members, rotated offset times so
// that rooms created together do not all start with the same person at
// the head.
func NewRotation(members []int64, offset int) *Rotation {
	r := &Rotation{Order: append([]int64(nil), members...)}
	if len(r.Order) > 0 {
		for i := 0; i < offset%len(r.Order); i++ {
			r.Rotate()
		}
	}
	return r
}

// PeekNext returns the next assignee. If the head is no longer a
// current member the rotation is synced first. The second return is
// false when no valid assignee exists; callers skip generation for the
// room in that case.
func (r *Rotation) PeekNext(currentMembers []int64) (int64, bool) {
	if len(r.Order) > 0 && containsID(currentMembers, r.Order[0]) {
		return r.Order[0], true
	}
	r.Sync(currentMembers)
	if len(r.Order) == 0 {
		return 0, false
	}
	return r.Order[0], true
}

// Rotate moves the head to the tail. Call exactly once per committed
// assignment, after the assignee has been read.
func (r *Rotation) Rotate() {
	if len(r.Order) < 2 {
		return
	}
	head := r.Order[0]
	copy(r.Order, r.Order[1:])
	r.Order[len(r.Order)-1] = head
}

// Sync reconciles the rotation with the current membership: departed
// members are removed, new members are appended at the tail, and the
// relative order of retained members is preserved. It reports whether
// the order changed.
func (r *Rotation) Sync(currentMembers []int64) bool {
	kept := r.Order[:0:0]
	for _, id := range r.Order {
		if containsID(currentMembers, id) {
			kept = append(kept, id)
		}
	}

	changed := len(kept) != len(r.Order)
	for _, id := range currentMembers {
		if !containsID(kept, id) {
			kept = append(kept, id)
			changed = true
		}
	}

	r.Order = kept
	return changed
}

// Reinitialize discards the current order and restarts from members
// rotated offset times. Used on full schedule reset.
func (r *Rotation) Reinitialize(members []int64, offset int) {
	*r = *NewRotation(members, offset)
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
