package semantic

import (
	"pycheck/internal/memo"
	"pycheck/internal/scope"
	"pycheck/internal/syntax"
)

// Boundness reports whether a name is guaranteed present or only present on
// some control-flow paths.
type Boundness int

const (
	AlwaysBound Boundness = iota
	PossiblyUnbound
)

// Origin distinguishes declared types (explicit annotations) from inferred
// ones (derived from assignments).
type Origin int

const (
	OriginDeclared Origin = iota
	OriginInferred
)

// WideningMode records whether the gradual-typing guarantee requires the type
// to be unioned with Unknown when read from outside the defining scope.
type WideningMode int

const (
	NoWidening WideningMode = iota
	WidenWithUnknown
)

// Place is the result of resolving a name in a scope: either Undefined, or
// Defined with a type, origin, definedness and widening mode.
type Place struct {
	defined   bool
	Type      Type
	Origin    Origin
	Boundness Boundness
	Widening  WideningMode
}

// UndefinedPlace is the absent resolution.
func UndefinedPlace() Place { return Place{} }

// DefinedPlace builds a present resolution.
func DefinedPlace(t Type, origin Origin, boundness Boundness, widening WideningMode) Place {
	return Place{defined: true, Type: t, Origin: origin, Boundness: boundness, Widening: widening}
}

// IsDefined reports whether the place resolved to anything.
func (p Place) IsDefined() bool { return p.defined }

// IsUndefined reports the opposite of IsDefined.
func (p Place) IsUndefined() bool { return !p.defined }

// WidenedType returns the externally visible type: the resolved type, unioned
// with Unknown when the widening guarantee applies.
func (p Place) WidenedType() Type {
	if !p.defined {
		return Never()
	}
	if p.Widening == WidenWithUnknown {
		return UnionOf(p.Type, UnknownType())
	}
	return p.Type
}

// OrFallBackTo combines a place with a lower-priority lookup, for scope-chain
// resolution (local, enclosing, module, builtins). The fallback thunk is only
// evaluated when it can contribute: an always-defined primary is returned
// unchanged, because evaluating a fallback can trigger expensive nested
// resolution.
func (p Place) OrFallBackTo(fallback func() Place) Place {
	if p.defined && p.Boundness == AlwaysBound {
		return p
	}
	fb := fallback()
	if !p.defined {
		return fb
	}
	if !fb.defined {
		return p
	}
	boundness := PossiblyUnbound
	if fb.Boundness == AlwaysBound {
		boundness = AlwaysBound
	}
	widening := p.Widening
	if fb.Widening == WidenWithUnknown {
		widening = WidenWithUnknown
	}
	return DefinedPlace(UnionOf(p.Type, fb.Type), p.Origin, boundness, widening)
}

// PlaceAndConflicts carries a resolved place together with the list of
// conflicting declared types, when multiple reachable declarations disagree.
// The merged type stays usable whether or not the caller diagnoses the
// conflict.
type PlaceAndConflicts struct {
	Place       Place
	Conflicting []Type
}

// HasConflict reports whether differing declared types were merged.
func (pc PlaceAndConflicts) HasConflict() bool { return len(pc.Conflicting) > 0 }

// PlaceFromDeclarations folds the reachable declarations of a place.
//
// A single declaration yields its annotated type, AlwaysBound when the
// declaration reaches on every path. Multiple declarations with differing
// types merge into a union flagged as conflicting. An @overload declaration
// immediately followed by its implementation is not unioned as a separate
// alternative: the implementation subsumes the overload set.
func (p *Project) PlaceFromDeclarations(ctx *memo.Ctx, s *scope.Scope, decls []scope.Declaration) PlaceAndConflicts {
	decls = collapseOverloads(decls)
	if len(decls) == 0 {
		return PlaceAndConflicts{Place: UndefinedPlace()}
	}

	var types []Type
	boundness := PossiblyUnbound
	for _, d := range decls {
		types = append(types, p.declarationType(ctx, s, d))
		if d.Reachability == scope.AlwaysReaches {
			boundness = AlwaysBound
		}
	}

	first := types[0]
	conflicting := false
	for _, t := range types[1:] {
		if !TypesEquivalent(t, first) {
			conflicting = true
			break
		}
	}

	merged := UnionOf(types...)
	place := DefinedPlace(merged, OriginDeclared, boundness, NoWidening)
	if !conflicting {
		return PlaceAndConflicts{Place: place}
	}
	return PlaceAndConflicts{Place: place, Conflicting: types}
}

// collapseOverloads drops @overload function declarations that are directly
// followed by another function declaration for the same place.
func collapseOverloads(decls []scope.Declaration) []scope.Declaration {
	out := make([]scope.Declaration, 0, len(decls))
	for i, d := range decls {
		if d.Kind == scope.DeclFunction && d.IsOverload &&
			i+1 < len(decls) && decls[i+1].Kind == scope.DeclFunction {
			continue
		}
		out = append(out, d)
	}
	return out
}

func (p *Project) declarationType(ctx *memo.Ctx, s *scope.Scope, d scope.Declaration) Type {
	switch d.Kind {
	case scope.DeclAnnotation:
		return p.annotationType(ctx, s, d.Annotation)
	case scope.DeclFunction:
		return p.functionLiteral(s, d.Node)
	}
	return UnknownType()
}

// PlaceFromBindings folds the reachable bindings of a place.
//
// A name deleted on every path evaluates as undefined; a possible deletion
// blends in as an ambiguous alternative, downgrading boundness without
// removing the previously bound types.
func (p *Project) PlaceFromBindings(ctx *memo.Ctx, s *scope.Scope, bindings []scope.Binding) Place {
	if len(bindings) == 0 {
		return UndefinedPlace()
	}

	builder := NewUnionBuilder()
	boundness := PossiblyUnbound
	bound := false
	for _, b := range bindings {
		if b.Kind == scope.BindDeletion {
			if b.Reachability == scope.AlwaysReaches {
				// Definite deletion: everything before it is gone.
				builder = NewUnionBuilder()
				bound = false
				boundness = PossiblyUnbound
			} else {
				boundness = PossiblyUnbound
			}
			continue
		}
		builder.Add(p.bindingType(ctx, s, b))
		bound = true
		if b.Reachability == scope.AlwaysReaches {
			boundness = AlwaysBound
		} else if boundness != AlwaysBound {
			boundness = PossiblyUnbound
		}
	}

	if !bound {
		return UndefinedPlace()
	}
	return DefinedPlace(builder.Build(), OriginInferred, boundness, NoWidening)
}

func (p *Project) bindingType(ctx *memo.Ctx, s *scope.Scope, b scope.Binding) Type {
	switch b.Kind {
	case scope.BindAssignment:
		if b.Value == nil {
			return UnknownType()
		}
		return p.ExpressionType(ctx, s, b.Value)
	case scope.BindClassDef:
		cd, ok := syntax.AsClassDef(s.File, b.Node)
		if !ok {
			return UnknownType()
		}
		return ClassLiteralType{Class: p.ClassFor(s.File, cd)}
	case scope.BindFunctionDef:
		return p.functionLiteral(s, b.Node)
	case scope.BindImport:
		return p.importType(ctx, s, b)
	case scope.BindParameter:
		// Parameter types come from the declaration side; the binding alone
		// contributes no information.
		return UnknownType()
	}
	return UnknownType()
}

// PlaceByID is the top-level merge of declared and inferred state for one
// place, memoized with divergent-placeholder cycle recovery.
func (p *Project) PlaceByID(ctx *memo.Ctx, key PlaceKey) Place {
	result := p.placeTable.Do(ctx, key, func(ctx *memo.Ctx) Place {
		return p.computePlace(ctx, key)
	})
	return p.collapseDivergent(ctx, result)
}

func (p *Project) computePlace(ctx *memo.Ctx, key PlaceKey) Place {
	ix, ok := p.indexes[key.File]
	if !ok {
		return UndefinedPlace()
	}
	s, ok := ix.ScopeFor(key.Scope)
	if !ok {
		return UndefinedPlace()
	}
	info := s.Place(key.Place)

	declared := p.PlaceFromDeclarations(ctx, s, info.Declarations)
	inferred := p.PlaceFromBindings(ctx, s, info.Bindings)

	if declared.Place.IsDefined() {
		if declared.Place.Boundness == AlwaysBound {
			// A reachable declaration is trusted outright, except a bare
			// Final marker, which carries no type of its own; the inferred
			// binding type is kept so the narrow literal survives.
			if p.isBareFinal(s, info.Declarations) && inferred.IsDefined() {
				return DefinedPlace(inferred.Type, OriginDeclared, AlwaysBound, NoWidening)
			}
			return declared.Place
		}
		// Possibly reachable declaration: union with the inferred type and
		// take the more defined of the two boundnesses.
		if inferred.IsDefined() {
			boundness := PossiblyUnbound
			if declared.Place.Boundness == AlwaysBound || inferred.Boundness == AlwaysBound {
				boundness = AlwaysBound
			}
			return DefinedPlace(UnionOf(declared.Place.Type, inferred.Type), OriginDeclared, boundness, NoWidening)
		}
		return declared.Place
	}

	if inferred.IsUndefined() {
		return UndefinedPlace()
	}

	widening := NoWidening
	if p.widensOnExternalRead(s, info.Name) {
		widening = WidenWithUnknown
	}
	return DefinedPlace(inferred.Type, OriginInferred, inferred.Boundness, widening)
}

// controlSymbols are the dunder names that external code cannot reassign
// meaningfully; they are exempt from external-mutability widening.
var controlSymbols = map[string]bool{
	"__slots__": true,
	"__all__":   true,
}

// widensOnExternalRead decides whether an undeclared symbol must be widened
// with Unknown when read from outside its scope: external writes to public,
// mutable namespaces are invisible to the checker, so the declared guarantee
// has to absorb them.
func (p *Project) widensOnExternalRead(s *scope.Scope, name string) bool {
	if controlSymbols[name] {
		return false
	}
	if len(name) > 0 && name[0] == '_' {
		return false
	}
	if s.Kind == scope.FunctionScope {
		return false
	}
	if s.File.IsStub {
		return false
	}
	return true
}

// isBareFinal reports whether the only annotation is the bare Final marker.
func (p *Project) isBareFinal(s *scope.Scope, decls []scope.Declaration) bool {
	for _, d := range decls {
		if d.Kind != scope.DeclAnnotation || d.Annotation == nil {
			continue
		}
		text := s.File.Text(d.Annotation)
		if text == "Final" || text == "typing.Final" {
			return true
		}
		return false
	}
	return false
}

// mergePlaceIterations is the cycle-recovery policy for place queries: each
// re-iteration widens monotonically by unioning the previous result in, so
// the fixed point is non-decreasing and terminates.
func mergePlaceIterations(prev, next Place) Place {
	if !prev.defined {
		return next
	}
	if !next.defined {
		return prev
	}
	boundness := PossiblyUnbound
	if prev.Boundness == AlwaysBound || next.Boundness == AlwaysBound {
		boundness = AlwaysBound
	}
	widening := next.Widening
	if prev.Widening == WidenWithUnknown {
		widening = WidenWithUnknown
	}
	return DefinedPlace(UnionOf(prev.Type, next.Type), next.Origin, boundness, widening)
}

// collapseDivergent strips converged cycle placeholders out of a result.
// Placeholders whose key is still mid-iteration are kept, so that an
// enclosing fixed point can observe its own provisional value flowing back.
// A place that was nothing but finished placeholders never became reachable
// and collapses back to Undefined rather than leaking into callers.
func (p *Project) collapseDivergent(ctx *memo.Ctx, place Place) Place {
	if !place.defined || !containsDivergent(place.Type) {
		return place
	}
	converged := func(k PlaceKey) bool { return !p.placeTable.Active(ctx, k) }
	stripped := stripDivergent(place.Type, converged)
	if IsNever(stripped) {
		return UndefinedPlace()
	}
	place.Type = stripped
	return place
}
