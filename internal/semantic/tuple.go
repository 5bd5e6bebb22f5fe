package semantic

import (
	"fmt"
	"strings"
)

// TypeRelation selects which relation a structural comparison checks.
type TypeRelation int

const (
	// Subtyping is the strict relation: dynamic types never satisfy it.
	Subtyping TypeRelation = iota
	// Assignability is the gradual relation: dynamic types are assignable
	// in both directions.
	Assignability
)

// elementRelation decides the relation between two element types. The tuple
// model is parameterized over it so it stays independent of the class model.
type elementRelation func(sub, super Type, rel TypeRelation) bool

// elementDisjoint decides whether two element types are disjoint.
type elementDisjoint func(a, b Type) bool

// TupleSpec is a tuple shape: either fixed-length or variable-length.
type TupleSpec interface {
	fmt.Stringer
	isTupleSpec()

	// Len reports the shape's arity bounds.
	Len() TupleLength
	// AllElements returns every element type mentioned by the shape,
	// including the repeated element of a variable shape.
	AllElements() []Type
}

// TupleLength is an arity report: exact for fixed shapes, a minimum with
// unbounded maximum for variable ones.
type TupleLength struct {
	Min   int
	Exact bool
}

// Matches reports whether a concrete arity n satisfies the length.
func (l TupleLength) Matches(n int) bool {
	if l.Exact {
		return n == l.Min
	}
	return n >= l.Min
}

// FixedLengthTuple is an ordered list of element types.
type FixedLengthTuple struct {
	elements []Type
}

func (FixedLengthTuple) isTupleSpec() {}

// FixedTuple builds a fixed-length shape.
func FixedTuple(elements ...Type) FixedLengthTuple {
	out := make([]Type, len(elements))
	copy(out, elements)
	return FixedLengthTuple{elements: out}
}

// Elements returns the element types in order.
func (t FixedLengthTuple) Elements() []Type { return t.elements }

// Len reports the exact arity.
func (t FixedLengthTuple) Len() TupleLength {
	return TupleLength{Min: len(t.elements), Exact: true}
}

// AllElements returns the element types.
func (t FixedLengthTuple) AllElements() []Type { return t.elements }

func (t FixedLengthTuple) String() string {
	if len(t.elements) == 0 {
		return "tuple[()]"
	}
	parts := make([]string, len(t.elements))
	for i, e := range t.elements {
		parts[i] = e.String()
	}
	return "tuple[" + strings.Join(parts, ", ") + "]"
}

// VariableLengthTuple is prefix + zero-or-more repetitions of Variable +
// suffix.
type VariableLengthTuple struct {
	prefix   []Type
	variable Type
	suffix   []Type
}

func (VariableLengthTuple) isTupleSpec() {}

// VariableTuple builds a variable-length shape. A shape whose repeated
// element is uninhabited admits no repetitions at all and collapses to the
// fixed shape prefix+suffix.
func VariableTuple(prefix []Type, variable Type, suffix []Type) TupleSpec {
	if IsNever(variable) {
		return FixedTuple(append(append([]Type{}, prefix...), suffix...)...)
	}
	return VariableLengthTuple{
		prefix:   append([]Type{}, prefix...),
		variable: variable,
		suffix:   append([]Type{}, suffix...),
	}
}

// HomogeneousTuple is tuple[T, ...].
func HomogeneousTuple(element Type) TupleSpec {
	return VariableTuple(nil, element, nil)
}

// Prefix returns the fixed leading element types.
func (t VariableLengthTuple) Prefix() []Type { return t.prefix }

// Variable returns the repeated element type.
func (t VariableLengthTuple) Variable() Type { return t.variable }

// Suffix returns the fixed trailing element types.
func (t VariableLengthTuple) Suffix() []Type { return t.suffix }

// Len reports the minimum arity; the maximum is unbounded.
func (t VariableLengthTuple) Len() TupleLength {
	return TupleLength{Min: len(t.prefix) + len(t.suffix)}
}

// AllElements returns prefix, repeated element, and suffix types.
func (t VariableLengthTuple) AllElements() []Type {
	out := make([]Type, 0, len(t.prefix)+1+len(t.suffix))
	out = append(out, t.prefix...)
	out = append(out, t.variable)
	out = append(out, t.suffix...)
	return out
}

func (t VariableLengthTuple) String() string {
	var parts []string
	for _, e := range t.prefix {
		parts = append(parts, e.String())
	}
	parts = append(parts, fmt.Sprintf("*tuple[%s, ...]", t.variable))
	for _, e := range t.suffix {
		parts = append(parts, e.String())
	}
	return "tuple[" + strings.Join(parts, ", ") + "]"
}

// prenormalized migrates suffix elements that are equivalent to the repeated
// element into the prefix, so two representations of the same infinite family
// (e.g. tuple[int, *tuple[int, ...]] vs tuple[*tuple[int, ...], int]) compare
// equal. Arity bounds are unchanged by the migration.
func (t VariableLengthTuple) prenormalized() VariableLengthTuple {
	prefix := append([]Type{}, t.prefix...)
	suffix := append([]Type{}, t.suffix...)
	for len(suffix) > 0 && TypesEquivalent(suffix[0], t.variable) {
		prefix = append(prefix, suffix[0])
		suffix = suffix[1:]
	}
	return VariableLengthTuple{prefix: prefix, variable: t.variable, suffix: suffix}
}

// NewTupleType wraps a shape as a Type. A fixed shape containing an
// uninhabited element cannot be instantiated and collapses to Never.
func NewTupleType(spec TupleSpec) Type {
	if fixed, ok := spec.(FixedLengthTuple); ok {
		for _, e := range fixed.elements {
			if IsNever(e) {
				return Never()
			}
		}
	}
	return TupleType{Spec: spec}
}

// IsEquivalentTo reports structural equivalence of two shapes, after
// prenormalizing variable-length operands.
func (t FixedLengthTuple) IsEquivalentTo(other TupleSpec) bool {
	o, ok := other.(FixedLengthTuple)
	if !ok || len(t.elements) != len(o.elements) {
		return false
	}
	for i, e := range t.elements {
		if !TypesEquivalent(e, o.elements[i]) {
			return false
		}
	}
	return true
}

// IsEquivalentTo reports structural equivalence of two shapes, after
// prenormalizing both operands.
func (t VariableLengthTuple) IsEquivalentTo(other TupleSpec) bool {
	o, ok := other.(VariableLengthTuple)
	if !ok {
		return false
	}
	a, b := t.prenormalized(), o.prenormalized()
	if len(a.prefix) != len(b.prefix) || len(a.suffix) != len(b.suffix) {
		return false
	}
	if !TypesEquivalent(a.variable, b.variable) {
		return false
	}
	for i := range a.prefix {
		if !TypesEquivalent(a.prefix[i], b.prefix[i]) {
			return false
		}
	}
	for i := range a.suffix {
		if !TypesEquivalent(a.suffix[i], b.suffix[i]) {
			return false
		}
	}
	return true
}

// tupleSpecsEquivalent dispatches IsEquivalentTo over the shape variants.
func tupleSpecsEquivalent(a, b TupleSpec) bool {
	switch av := a.(type) {
	case FixedLengthTuple:
		return av.IsEquivalentTo(b)
	case VariableLengthTuple:
		return av.IsEquivalentTo(b)
	}
	return false
}

// tupleHasRelation implements shape-aware subtyping and assignability.
func tupleHasRelation(sub, super TupleSpec, rel TypeRelation, elem elementRelation) bool {
	switch subSpec := sub.(type) {
	case FixedLengthTuple:
		switch superSpec := super.(type) {
		case FixedLengthTuple:
			if len(subSpec.elements) != len(superSpec.elements) {
				return false
			}
			for i, e := range subSpec.elements {
				if !elem(e, superSpec.elements[i], rel) {
					return false
				}
			}
			return true
		case VariableLengthTuple:
			return fixedVsVariable(subSpec, superSpec.prenormalized(), rel, elem)
		}
	case VariableLengthTuple:
		switch superSpec := super.(type) {
		case FixedLengthTuple:
			// A variable-length tuple can only satisfy a fixed arity under
			// assignability and only when the repeated element is fully
			// dynamic (tuple[Any, ...] matches any concrete arity).
			if rel != Assignability || !IsDynamic(subSpec.variable) {
				return false
			}
			n := len(superSpec.elements)
			if n < len(subSpec.prefix)+len(subSpec.suffix) {
				return false
			}
			for i, e := range subSpec.prefix {
				if !elem(e, superSpec.elements[i], rel) {
					return false
				}
			}
			for i, e := range subSpec.suffix {
				if !elem(e, superSpec.elements[n-len(subSpec.suffix)+i], rel) {
					return false
				}
			}
			return true
		case VariableLengthTuple:
			return variableVsVariable(subSpec.prenormalized(), superSpec.prenormalized(), rel, elem)
		}
	}
	return false
}

func fixedVsVariable(sub FixedLengthTuple, super VariableLengthTuple, rel TypeRelation, elem elementRelation) bool {
	n := len(sub.elements)
	if n < len(super.prefix)+len(super.suffix) {
		return false
	}
	for i, e := range super.prefix {
		if !elem(sub.elements[i], e, rel) {
			return false
		}
	}
	for i, e := range super.suffix {
		if !elem(sub.elements[n-len(super.suffix)+i], e, rel) {
			return false
		}
	}
	for i := len(super.prefix); i < n-len(super.suffix); i++ {
		if !elem(sub.elements[i], super.variable, rel) {
			return false
		}
	}
	return true
}

func variableVsVariable(sub, super VariableLengthTuple, rel TypeRelation, elem elementRelation) bool {
	// Every arity admitted by sub must be admitted by super.
	if sub.Len().Min < super.Len().Min {
		return false
	}
	// Pair prefixes from the front; extra elements on either side fall back
	// to the other side's repeated element.
	maxPrefix := max(len(sub.prefix), len(super.prefix))
	for i := 0; i < maxPrefix; i++ {
		subElem, superElem := sub.variable, super.variable
		if i < len(sub.prefix) {
			subElem = sub.prefix[i]
		}
		if i < len(super.prefix) {
			superElem = super.prefix[i]
		}
		if !elem(subElem, superElem, rel) {
			return false
		}
	}
	// Suffixes pair from the back.
	maxSuffix := max(len(sub.suffix), len(super.suffix))
	for i := 0; i < maxSuffix; i++ {
		subElem, superElem := sub.variable, super.variable
		if i < len(sub.suffix) {
			subElem = sub.suffix[len(sub.suffix)-1-i]
		}
		if i < len(super.suffix) {
			superElem = super.suffix[len(super.suffix)-1-i]
		}
		if !elem(subElem, superElem, rel) {
			return false
		}
	}
	return elem(sub.variable, super.variable, rel)
}

// tupleDisjoint reports structural disjointness. Incompatible arity bounds
// are disjoint; otherwise any pairwise-disjoint required element (matched
// from the front for prefixes, from the back for suffixes) makes the tuples
// disjoint. The purely repeated portions of two variable shapes are never
// treated as disjoint: the empty repetition is compatible with both.
func tupleDisjoint(a, b TupleSpec, elem elementDisjoint) bool {
	la, lb := a.Len(), b.Len()
	if la.Exact && !lb.Matches(la.Min) {
		return true
	}
	if lb.Exact && !la.Matches(lb.Min) {
		return true
	}

	front, back := requiredParts(a)
	ofront, oback := requiredParts(b)
	for i := 0; i < min(len(front), len(ofront)); i++ {
		if elem(front[i], ofront[i]) {
			return true
		}
	}
	for i := 0; i < min(len(back), len(oback)); i++ {
		if elem(back[len(back)-1-i], oback[len(oback)-1-i]) {
			return true
		}
	}
	return false
}

// requiredParts splits a shape into its required leading and trailing
// element runs. A fixed shape is all required, split at the middle so the
// front comparison runs from the left and the back from the right without
// double-counting against longer opposites.
func requiredParts(spec TupleSpec) (front, back []Type) {
	switch t := spec.(type) {
	case FixedLengthTuple:
		return t.elements, t.elements
	case VariableLengthTuple:
		n := t.prenormalized()
		return n.prefix, n.suffix
	}
	return nil, nil
}

// ResizeErrorKind classifies resize failures.
type ResizeErrorKind int

const (
	// TooFewValues: the source cannot supply the target's required count.
	TooFewValues ResizeErrorKind = iota
	// TooManyValues: the source always has more values than the target holds.
	TooManyValues
)

// ResizeError reports that a shape cannot be converted to a target shape.
// There is no sound fallback shape, so the error propagates to the caller.
type ResizeError struct {
	Kind     ResizeErrorKind
	Expected TupleLength
	Actual   TupleLength
}

func (e *ResizeError) Error() string {
	verb := "not enough"
	if e.Kind == TooManyValues {
		verb = "too many"
	}
	return fmt.Sprintf("%s values to unpack (expected %d, got at least %d)", verb, e.Expected.Min, e.Actual.Min)
}

// TargetShape describes the shape a resize should produce: a fixed arity, or
// a variable shape with the given prefix/suffix split around the repeated
// slot.
type TargetShape struct {
	Fixed  bool
	Size   int // fixed arity
	Prefix int // variable: required leading count
	Suffix int // variable: required trailing count
}

// FixedTarget is a fixed-arity target shape.
func FixedTarget(size int) TargetShape { return TargetShape{Fixed: true, Size: size} }

// VariableTarget is a starred target shape with required prefix and suffix
// counts.
func VariableTarget(prefix, suffix int) TargetShape {
	return TargetShape{Prefix: prefix, Suffix: suffix}
}

// Resize converts a shape to the target shape, moving elements between the
// fixed parts and the repeated middle and unioning any elements folded into
// the repeated slot.
func Resize(spec TupleSpec, target TargetShape) (TupleSpec, *ResizeError) {
	switch t := spec.(type) {
	case FixedLengthTuple:
		return resizeFixed(t, target)
	case VariableLengthTuple:
		return resizeVariable(t, target)
	}
	return nil, &ResizeError{Kind: TooFewValues}
}

func resizeFixed(t FixedLengthTuple, target TargetShape) (TupleSpec, *ResizeError) {
	n := len(t.elements)
	if target.Fixed {
		switch {
		case n < target.Size:
			return nil, &ResizeError{Kind: TooFewValues, Expected: TupleLength{Min: target.Size, Exact: true}, Actual: t.Len()}
		case n > target.Size:
			return nil, &ResizeError{Kind: TooManyValues, Expected: TupleLength{Min: target.Size, Exact: true}, Actual: t.Len()}
		}
		return t, nil
	}

	required := target.Prefix + target.Suffix
	if n < required {
		return nil, &ResizeError{Kind: TooFewValues, Expected: TupleLength{Min: required}, Actual: t.Len()}
	}
	middle := NewUnionBuilder()
	for i := target.Prefix; i < n-target.Suffix; i++ {
		middle.Add(t.elements[i])
	}
	return VariableLengthTuple{
		prefix:   append([]Type{}, t.elements[:target.Prefix]...),
		variable: middle.Build(),
		suffix:   append([]Type{}, t.elements[n-target.Suffix:]...),
	}, nil
}

func resizeVariable(t VariableLengthTuple, target TargetShape) (TupleSpec, *ResizeError) {
	required := len(t.prefix) + len(t.suffix)
	if target.Fixed {
		if target.Size < required {
			return nil, &ResizeError{Kind: TooManyValues, Expected: TupleLength{Min: target.Size, Exact: true}, Actual: t.Len()}
		}
		elements := append([]Type{}, t.prefix...)
		for i := required; i < target.Size; i++ {
			elements = append(elements, t.variable)
		}
		elements = append(elements, t.suffix...)
		return FixedLengthTuple{elements: elements}, nil
	}

	prefix, intoMiddleFront := splitFront(t.prefix, t.variable, target.Prefix)
	suffix, intoMiddleBack := splitBack(t.suffix, t.variable, target.Suffix)
	middle := NewUnionBuilder().Add(t.variable)
	for _, e := range intoMiddleFront {
		middle.Add(e)
	}
	for _, e := range intoMiddleBack {
		middle.Add(e)
	}
	return VariableLengthTuple{prefix: prefix, variable: middle.Build(), suffix: suffix}, nil
}

// splitFront produces a required-count prefix from the source prefix,
// borrowing from the repeated element when the source is short and returning
// any surplus source elements for the repeated slot.
func splitFront(src []Type, variable Type, want int) (kept, surplus []Type) {
	if want <= len(src) {
		return append([]Type{}, src[:want]...), append([]Type{}, src[want:]...)
	}
	kept = append([]Type{}, src...)
	for len(kept) < want {
		kept = append(kept, variable)
	}
	return kept, nil
}

func splitBack(src []Type, variable Type, want int) (kept, surplus []Type) {
	if want <= len(src) {
		cut := len(src) - want
		return append([]Type{}, src[cut:]...), append([]Type{}, src[:cut]...)
	}
	kept = append([]Type{}, src...)
	for len(kept) < want {
		kept = append([]Type{variable}, kept...)
	}
	return kept, nil
}
