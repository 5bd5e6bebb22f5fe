package semantic

// TupleUnpacker accumulates the per-target-slot result of an unpacking
// assignment with a known target arity and star position. Adding several
// shapes (e.g. one per member of a union-typed right-hand side) unions each
// slot across all of them; the slot aligned with a star target is reported as
// a list of its accumulated union.
type TupleUnpacker struct {
	star  int // index of the starred target, or -1
	slots []*UnionBuilder
	err   *ResizeError
}

// NewTupleUnpacker prepares an unpacker for `targets` assignment targets with
// the starred target at index star (-1 for none).
func NewTupleUnpacker(targets, star int) *TupleUnpacker {
	slots := make([]*UnionBuilder, targets)
	for i := range slots {
		slots[i] = NewUnionBuilder()
	}
	return &TupleUnpacker{star: star, slots: slots}
}

// Add folds one right-hand-side tuple shape into the accumulated slots. The
// first arity mismatch is retained and reported by Err.
func (u *TupleUnpacker) Add(spec TupleSpec) {
	if u.star < 0 {
		resized, err := Resize(spec, FixedTarget(len(u.slots)))
		if err != nil {
			if u.err == nil {
				u.err = err
			}
			return
		}
		for i, e := range resized.(FixedLengthTuple).Elements() {
			u.slots[i].Add(e)
		}
		return
	}

	prefix := u.star
	suffix := len(u.slots) - u.star - 1
	resized, err := Resize(spec, VariableTarget(prefix, suffix))
	if err != nil {
		if u.err == nil {
			u.err = err
		}
		return
	}
	switch shape := resized.(type) {
	case VariableLengthTuple:
		for i, e := range shape.Prefix() {
			u.slots[i].Add(e)
		}
		u.slots[u.star].Add(shape.Variable())
		for i, e := range shape.Suffix() {
			u.slots[u.star+1+i].Add(e)
		}
	case FixedLengthTuple:
		// The repeated slot collapsed away: the star target sees no values.
		for i, e := range shape.Elements() {
			slot := i
			if i >= prefix {
				slot = i + 1
			}
			u.slots[slot].Add(e)
		}
	}
}

// Err returns the first arity mismatch encountered, if any.
func (u *TupleUnpacker) Err() *ResizeError { return u.err }

// Types returns the accumulated per-slot types. The starred slot is wrapped
// as a list of its union; a starred slot that never received values is a list
// of Never (an always-empty list).
func (u *TupleUnpacker) Types() []Type {
	out := make([]Type, len(u.slots))
	for i, b := range u.slots {
		t := b.Build()
		if i == u.star {
			t = ListType{Element: t}
		}
		out[i] = t
	}
	return out
}
