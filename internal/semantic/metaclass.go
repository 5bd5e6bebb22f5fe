package semantic

import (
	"fmt"

	"pycheck/internal/memo"
)

// MetaclassCandidate records which class contributed the currently winning
// metaclass during resolution; it exists only so a conflict diagnostic can
// name both sides.
type MetaclassCandidate struct {
	Metaclass   *Class
	SourceClass *Class
}

// MetaclassErrorKind classifies metaclass resolution failures.
type MetaclassErrorKind int

const (
	// MetaclassConflict: two bases contribute metaclasses with no
	// subclass relationship either way.
	MetaclassConflict MetaclassErrorKind = iota
	// MetaclassNotCallable: the declared metaclass= value cannot be called.
	MetaclassNotCallable
	// MetaclassPartlyNotCallable: a union metaclass= value is callable only
	// for some of its members.
	MetaclassPartlyNotCallable
)

// MetaclassError is a structured metaclass failure; the fallback metaclass is
// the unresolved placeholder, so resolution always remains locally
// recoverable.
type MetaclassError struct {
	Kind       MetaclassErrorKind
	Candidate1 MetaclassCandidate
	Candidate2 MetaclassCandidate
	Culprit    Type // the non-callable value, for the callable kinds
}

func (e *MetaclassError) Error() string {
	switch e.Kind {
	case MetaclassConflict:
		return fmt.Sprintf(
			"metaclass conflict: %s (from %s) and %s (from %s) have no subclass relationship",
			e.Candidate1.Metaclass.Name, e.Candidate1.SourceClass.Name,
			e.Candidate2.Metaclass.Name, e.Candidate2.SourceClass.Name,
		)
	case MetaclassNotCallable:
		return fmt.Sprintf("metaclass value %s is not callable", e.Culprit)
	case MetaclassPartlyNotCallable:
		return fmt.Sprintf("metaclass value %s is not callable for all union members", e.Culprit)
	}
	return "metaclass error"
}

// MetaclassResult pairs the resolved metaclass type with its optional error;
// the type is usable either way (the unresolved placeholder on failure).
type MetaclassResult struct {
	Metaclass Type
	Err       *MetaclassError
}

// TryMetaclass resolves the class's metaclass. An explicit metaclass= wins;
// otherwise the first base's metaclass is the initial candidate and each
// remaining base either refines it (strict descendant), is absorbed by it
// (ancestor-or-equal), or conflicts. Inheritance cycles short-circuit to the
// unresolved placeholder.
func (p *Project) TryMetaclass(ctx *memo.Ctx, c *Class) MetaclassResult {
	return p.metaclassTable.Do(ctx, c, func(ctx *memo.Ctx) MetaclassResult {
		return p.computeMetaclass(ctx, c)
	})
}

// Metaclass returns the usable metaclass type, swallowing the error.
func (p *Project) Metaclass(ctx *memo.Ctx, c *Class) Type {
	return p.TryMetaclass(ctx, c).Metaclass
}

func (p *Project) computeMetaclass(ctx *memo.Ctx, c *Class) MetaclassResult {
	if p.InheritanceCycle(ctx, c) == CycleParticipant {
		return MetaclassResult{Metaclass: UnresolvedType()}
	}

	if explicit := p.explicitMetaclass(ctx, c); explicit != nil {
		return p.applyMetaclassValue(*explicit)
	}

	bases, _ := p.classBases(ctx, c)
	typeClass, _ := p.KnownClassLiteral(KnownType)
	if len(bases) == 0 {
		if typeClass == nil {
			return MetaclassResult{Metaclass: UnresolvedType()}
		}
		return MetaclassResult{Metaclass: ClassLiteralType{Class: typeClass}}
	}

	var candidate *MetaclassCandidate
	for _, base := range bases {
		baseClass, ok := base.Class()
		if !ok {
			// A dynamic base could contribute any metaclass.
			return MetaclassResult{Metaclass: DynamicType{Kind: base.DynamicKind()}}
		}
		meta := p.Metaclass(ctx, baseClass)
		metaLit, ok := meta.(ClassLiteralType)
		if !ok {
			return MetaclassResult{Metaclass: meta}
		}

		next := MetaclassCandidate{Metaclass: metaLit.Class, SourceClass: baseClass}
		if candidate == nil {
			candidate = &next
			continue
		}
		switch {
		case next.Metaclass == candidate.Metaclass:
			// Same metaclass, nothing to refine.
		case p.IsSubclassOf(ctx, next.Metaclass, candidate.Metaclass):
			// A strict descendant replaces the candidate.
			candidate = &next
		case p.IsSubclassOf(ctx, candidate.Metaclass, next.Metaclass):
			// The candidate already is the more derived one.
		default:
			return MetaclassResult{
				Metaclass: UnresolvedType(),
				Err: &MetaclassError{
					Kind:       MetaclassConflict,
					Candidate1: *candidate,
					Candidate2: next,
				},
			}
		}
	}
	return MetaclassResult{Metaclass: ClassLiteralType{Class: candidate.Metaclass}}
}

// explicitMetaclass types the metaclass= keyword value, if written.
func (p *Project) explicitMetaclass(ctx *memo.Ctx, c *Class) *Type {
	if c.IsSynthetic() {
		return nil
	}
	kw := c.Def.Keyword("metaclass")
	if kw == nil {
		return nil
	}
	ix, ok := p.indexes[c.File.Path]
	if !ok {
		return nil
	}
	defScope := p.definingScope(ix, c)
	if defScope == nil {
		return nil
	}
	t := p.ExpressionType(ctx, defScope, kw)
	return &t
}

// applyMetaclassValue interprets a declared metaclass value. A plain class is
// the metaclass. A callable that is not a class is conceptually invoked with
// (name, bases, namespace) and its return type becomes the metaclass; with
// the callable lattice out of scope, that return type is dynamic. A value
// that cannot be called (or can only partly be called across a union) fails.
func (p *Project) applyMetaclassValue(t Type) MetaclassResult {
	switch v := t.(type) {
	case ClassLiteralType:
		return MetaclassResult{Metaclass: v}
	case FunctionLiteralType:
		return MetaclassResult{Metaclass: AnyType()}
	case DynamicType:
		return MetaclassResult{Metaclass: v}
	case UnionType:
		callable := 0
		for _, e := range v.Elements {
			if metaclassCallable(e) {
				callable++
			}
		}
		switch callable {
		case len(v.Elements):
			return MetaclassResult{Metaclass: AnyType()}
		case 0:
			return MetaclassResult{
				Metaclass: UnresolvedType(),
				Err:       &MetaclassError{Kind: MetaclassNotCallable, Culprit: t},
			}
		default:
			return MetaclassResult{
				Metaclass: UnresolvedType(),
				Err:       &MetaclassError{Kind: MetaclassPartlyNotCallable, Culprit: t},
			}
		}
	}
	return MetaclassResult{
		Metaclass: UnresolvedType(),
		Err:       &MetaclassError{Kind: MetaclassNotCallable, Culprit: t},
	}
}

func metaclassCallable(t Type) bool {
	switch t.(type) {
	case ClassLiteralType, FunctionLiteralType, DynamicType:
		return true
	}
	return false
}
