package semantic

import (
	"pycheck/internal/memo"
)

// HasRelationTo reports whether sub relates to super under the selected
// relation. Subtyping is the strict relation: dynamic types never satisfy
// it. Assignability is the gradual relation: dynamic types are assignable in
// both directions.
func (p *Project) HasRelationTo(ctx *memo.Ctx, sub, super Type, rel TypeRelation) bool {
	if TypesEquivalent(sub, super) {
		return !IsDynamic(sub) || rel == Assignability
	}
	if rel == Assignability && (IsDynamic(sub) || IsDynamic(super)) {
		return true
	}
	if IsNever(sub) {
		return true
	}

	// Union on the subtype side: every branch must relate.
	if u, ok := sub.(UnionType); ok {
		for _, e := range u.Elements {
			if !p.HasRelationTo(ctx, e, super, rel) {
				return false
			}
		}
		return true
	}
	// Union on the supertype side: some branch must accept.
	if u, ok := super.(UnionType); ok {
		for _, e := range u.Elements {
			if p.HasRelationTo(ctx, sub, e, rel) {
				return true
			}
		}
		return false
	}

	switch superV := super.(type) {
	case InstanceType:
		if subClass, ok := p.classOfValue(ctx, sub); ok {
			return p.IsSubclassOf(ctx, subClass, superV.Class)
		}
		return false
	case TupleType:
		subSpec, ok := p.tupleSpecOf(sub)
		if !ok {
			return false
		}
		return tupleHasRelation(subSpec, superV.Spec, rel, func(a, b Type, r TypeRelation) bool {
			return p.HasRelationTo(ctx, a, b, r)
		})
	case ListType:
		// Lists are invariant in their element.
		subList, ok := sub.(ListType)
		return ok && TypesEquivalent(subList.Element, superV.Element)
	case NoneType:
		_, ok := sub.(NoneType)
		return ok
	}
	return false
}

// classOfValue maps a value type to the class its instances belong to.
func (p *Project) classOfValue(ctx *memo.Ctx, t Type) (*Class, bool) {
	switch v := t.(type) {
	case InstanceType:
		return v.Class, true
	case IntLiteralType:
		return p.KnownClassLiteral(KnownInt)
	case BoolLiteralType:
		return p.KnownClassLiteral(KnownBool)
	case StringLiteralType:
		return p.KnownClassLiteral(KnownStr)
	case TupleType:
		return p.KnownClassLiteral(KnownTuple)
	case ListType:
		return p.KnownClassLiteral(KnownList)
	case NoneType:
		return p.KnownClassLiteral(KnownNoneType)
	case ClassLiteralType:
		// A class object is an instance of its metaclass.
		if meta, ok := p.Metaclass(ctx, v.Class).(ClassLiteralType); ok {
			return meta.Class, true
		}
		return p.KnownClassLiteral(KnownType)
	}
	return nil, false
}

// tupleSpecOf extracts a structural shape from a type, if it has one.
func (p *Project) tupleSpecOf(t Type) (TupleSpec, bool) {
	if tt, ok := t.(TupleType); ok {
		return tt.Spec, true
	}
	return nil, false
}

// IsDisjointFrom reports whether no value can inhabit both types. Dynamic
// types are never disjoint from anything; the uninhabited type is disjoint
// from everything.
func (p *Project) IsDisjointFrom(ctx *memo.Ctx, a, b Type) bool {
	if IsDynamic(a) || IsDynamic(b) {
		return false
	}
	if IsNever(a) || IsNever(b) {
		return true
	}

	if u, ok := a.(UnionType); ok {
		for _, e := range u.Elements {
			if !p.IsDisjointFrom(ctx, e, b) {
				return false
			}
		}
		return true
	}
	if u, ok := b.(UnionType); ok {
		for _, e := range u.Elements {
			if !p.IsDisjointFrom(ctx, a, e) {
				return false
			}
		}
		return true
	}

	// Tuple shapes compare structurally.
	aSpec, aOK := p.tupleSpecOf(a)
	bSpec, bOK := p.tupleSpecOf(b)
	if aOK && bOK {
		return tupleDisjoint(aSpec, bSpec, func(x, y Type) bool {
			return p.IsDisjointFrom(ctx, x, y)
		})
	}

	// Distinct literal values are disjoint; a literal and its own class are
	// not.
	if lit, ok := disjointLiterals(a, b); ok {
		return lit
	}

	aClass, aOK := p.classOfValue(ctx, a)
	bClass, bOK := p.classOfValue(ctx, b)
	if aOK && bOK {
		return !p.IsSubclassOf(ctx, aClass, bClass) && !p.IsSubclassOf(ctx, bClass, aClass)
	}
	return false
}

func disjointLiterals(a, b Type) (bool, bool) {
	switch av := a.(type) {
	case IntLiteralType:
		if bv, ok := b.(IntLiteralType); ok {
			return av.Value != bv.Value, true
		}
	case StringLiteralType:
		if bv, ok := b.(StringLiteralType); ok {
			return av.Value != bv.Value, true
		}
	case BoolLiteralType:
		if bv, ok := b.(BoolLiteralType); ok {
			return av.Value != bv.Value, true
		}
	}
	return false, false
}
