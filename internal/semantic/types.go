// Package semantic implements the type-resolution core: the class model
// (MRO, metaclass, member lookup), place resolution (declarations vs.
// bindings, definedness, gradual widening), and the structural tuple model.
//
// Everything here is a pure, memoized query over immutable syntax. Cyclic
// definitions (recursive classes, self-referential assignments) are handled
// by the memo substrate's fixed-point iteration; the queries guarantee
// monotonicity by only ever widening results via union.
package semantic

import (
	"fmt"
	"sort"
	"strings"

	"pycheck/internal/scope"
	"pycheck/internal/syntax"
)

// Type is the representation of a Python type. Implementations are immutable
// value types; identity-bearing variants (classes, modules) hold arena-style
// handles rather than pointer graphs.
type Type interface {
	String() string
	isType()
}

// DynamicKind distinguishes the flavors of "statically unknown".
type DynamicKind int

const (
	// DynamicAny is the explicit Any type.
	DynamicAny DynamicKind = iota
	// DynamicUnknown is the gradual-typing widening type: an undeclared,
	// externally mutable symbol reads as declared | Unknown.
	DynamicUnknown
	// DynamicUnresolved stands in for a type that failed to resolve (bad
	// base class, MRO fallback, metaclass fallback).
	DynamicUnresolved
	// DynamicProtocol is the unresolved-protocol placeholder. Member lookup
	// skips it outright instead of degrading the result, so that searches in
	// well-known standard-library hierarchies are not over-approximated.
	DynamicProtocol
)

var dynamicNames = [...]string{"Any", "Unknown", "Unresolved", "UnresolvedProtocol"}

// DynamicType is a statically unknown type.
type DynamicType struct {
	Kind DynamicKind
}

func (DynamicType) isType()          {}
func (d DynamicType) String() string { return dynamicNames[d.Kind] }

// AnyType returns the explicit Any.
func AnyType() Type { return DynamicType{Kind: DynamicAny} }

// UnknownType returns the gradual-widening Unknown.
func UnknownType() Type { return DynamicType{Kind: DynamicUnknown} }

// UnresolvedType returns the failed-resolution placeholder.
func UnresolvedType() Type { return DynamicType{Kind: DynamicUnresolved} }

// IsDynamic reports whether t is any flavor of dynamic type.
func IsDynamic(t Type) bool {
	_, ok := t.(DynamicType)
	return ok
}

// NeverType is the uninhabited type.
type NeverType struct{}

func (NeverType) isType()        {}
func (NeverType) String() string { return "Never" }

// Never returns the uninhabited type.
func Never() Type { return NeverType{} }

// IsNever reports whether t is uninhabited.
func IsNever(t Type) bool {
	_, ok := t.(NeverType)
	return ok
}

// PlaceKey identifies a place query: a named slot in one scope of one file.
// It doubles as the tag on divergent placeholder types so a cycle's
// provisional value can be recognized and stripped once iteration converges.
type PlaceKey struct {
	File  string
	Scope syntax.NodeID
	Place scope.PlaceID
}

// DivergentType is a self-referential place query's provisional type. It is
// replaced by the converged result once fixed-point iteration stabilizes and
// never appears in final results.
type DivergentType struct {
	Key PlaceKey
}

func (DivergentType) isType()          {}
func (d DivergentType) String() string { return "Divergent" }

// InstanceType is an instance of a class.
type InstanceType struct {
	Class *Class
}

func (InstanceType) isType()          {}
func (t InstanceType) String() string { return t.Class.Name }

// ClassLiteralType is the class object itself.
type ClassLiteralType struct {
	Class *Class
}

func (ClassLiteralType) isType() {}
func (t ClassLiteralType) String() string {
	return fmt.Sprintf("type[%s]", t.Class.Name)
}

// IntLiteralType is a known integer value.
type IntLiteralType struct {
	Value int64
}

func (IntLiteralType) isType()          {}
func (t IntLiteralType) String() string { return fmt.Sprintf("Literal[%d]", t.Value) }

// StringLiteralType is a known string value.
type StringLiteralType struct {
	Value string
}

func (StringLiteralType) isType()          {}
func (t StringLiteralType) String() string { return fmt.Sprintf("Literal[%q]", t.Value) }

// BoolLiteralType is a known boolean value.
type BoolLiteralType struct {
	Value bool
}

func (BoolLiteralType) isType() {}
func (t BoolLiteralType) String() string {
	if t.Value {
		return "Literal[True]"
	}
	return "Literal[False]"
}

// NoneType is the None singleton's type.
type NoneType struct{}

func (NoneType) isType()        {}
func (NoneType) String() string { return "None" }

// FunctionLiteralType is a function definition's type. The full callable
// lattice is out of scope; the literal carries enough identity for overload
// collapsing and callability checks.
type FunctionLiteralType struct {
	Name string
	Node syntax.NodeID
}

func (FunctionLiteralType) isType()          {}
func (t FunctionLiteralType) String() string { return fmt.Sprintf("def %s", t.Name) }

// ModuleType is an imported module object.
type ModuleType struct {
	Module *Module
}

func (ModuleType) isType()          {}
func (t ModuleType) String() string { return fmt.Sprintf("module[%s]", t.Module.Name) }

// TupleType is a structural tuple type; see tuple.go for the shape model.
type TupleType struct {
	Spec TupleSpec
}

func (TupleType) isType()          {}
func (t TupleType) String() string { return t.Spec.String() }

// ListType is a homogeneous list; star targets in unpacking assignments
// receive one of these.
type ListType struct {
	Element Type
}

func (ListType) isType()          {}
func (t ListType) String() string { return fmt.Sprintf("list[%s]", t.Element) }

// UnionType is a union of at least two element types. Construct through
// UnionBuilder so elements stay flattened and deduplicated.
type UnionType struct {
	Elements []Type
}

func (UnionType) isType() {}
func (t UnionType) String() string {
	parts := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		parts[i] = e.String()
	}
	return strings.Join(parts, " | ")
}

// UnionBuilder accumulates types into a normalized union: nested unions are
// flattened, Never is dropped, and structurally equivalent elements are
// deduplicated in first-seen order.
type UnionBuilder struct {
	elements []Type
}

// NewUnionBuilder returns an empty builder.
func NewUnionBuilder() *UnionBuilder {
	return &UnionBuilder{}
}

// Add folds t into the union.
func (b *UnionBuilder) Add(t Type) *UnionBuilder {
	switch v := t.(type) {
	case nil:
		return b
	case NeverType:
		return b
	case UnionType:
		for _, e := range v.Elements {
			b.Add(e)
		}
		return b
	}
	for _, e := range b.elements {
		if TypesEquivalent(e, t) {
			return b
		}
	}
	b.elements = append(b.elements, t)
	return b
}

// Build returns the accumulated union: Never when empty, the sole element
// when it has one, and a UnionType otherwise.
func (b *UnionBuilder) Build() Type {
	switch len(b.elements) {
	case 0:
		return Never()
	case 1:
		return b.elements[0]
	default:
		out := make([]Type, len(b.elements))
		copy(out, b.elements)
		return UnionType{Elements: out}
	}
}

// UnionOf builds a normalized union of the given types.
func UnionOf(types ...Type) Type {
	b := NewUnionBuilder()
	for _, t := range types {
		b.Add(t)
	}
	return b.Build()
}

// TypesEquivalent reports structural equivalence. Unions compare
// order-insensitively; tuples are prenormalized before comparison.
func TypesEquivalent(a, b Type) bool {
	switch av := a.(type) {
	case DynamicType:
		bv, ok := b.(DynamicType)
		return ok && av.Kind == bv.Kind
	case NeverType:
		_, ok := b.(NeverType)
		return ok
	case NoneType:
		_, ok := b.(NoneType)
		return ok
	case DivergentType:
		bv, ok := b.(DivergentType)
		return ok && av.Key == bv.Key
	case InstanceType:
		bv, ok := b.(InstanceType)
		return ok && av.Class == bv.Class
	case ClassLiteralType:
		bv, ok := b.(ClassLiteralType)
		return ok && av.Class == bv.Class
	case IntLiteralType:
		bv, ok := b.(IntLiteralType)
		return ok && av.Value == bv.Value
	case StringLiteralType:
		bv, ok := b.(StringLiteralType)
		return ok && av.Value == bv.Value
	case BoolLiteralType:
		bv, ok := b.(BoolLiteralType)
		return ok && av.Value == bv.Value
	case FunctionLiteralType:
		bv, ok := b.(FunctionLiteralType)
		return ok && av.Node == bv.Node
	case ModuleType:
		bv, ok := b.(ModuleType)
		return ok && av.Module == bv.Module
	case ListType:
		bv, ok := b.(ListType)
		return ok && TypesEquivalent(av.Element, bv.Element)
	case TupleType:
		bv, ok := b.(TupleType)
		return ok && tupleSpecsEquivalent(av.Spec, bv.Spec)
	case UnionType:
		bv, ok := b.(UnionType)
		if !ok || len(av.Elements) != len(bv.Elements) {
			return false
		}
		matched := make([]bool, len(bv.Elements))
	outer:
		for _, e := range av.Elements {
			for i, o := range bv.Elements {
				if !matched[i] && TypesEquivalent(e, o) {
					matched[i] = true
					continue outer
				}
			}
			return false
		}
		return true
	case nil:
		return b == nil
	}
	return false
}

// containsDivergent reports whether t mentions any divergent placeholder.
func containsDivergent(t Type) bool {
	switch v := t.(type) {
	case DivergentType:
		return true
	case UnionType:
		for _, e := range v.Elements {
			if containsDivergent(e) {
				return true
			}
		}
	case ListType:
		return containsDivergent(v.Element)
	case TupleType:
		for _, e := range v.Spec.AllElements() {
			if containsDivergent(e) {
				return true
			}
		}
	}
	return false
}

// stripDivergent removes the divergent placeholders selected by drop from t.
// A type that was nothing but dropped placeholders collapses to Never.
func stripDivergent(t Type, drop func(PlaceKey) bool) Type {
	switch v := t.(type) {
	case DivergentType:
		if drop(v.Key) {
			return Never()
		}
		return t
	case UnionType:
		b := NewUnionBuilder()
		for _, e := range v.Elements {
			b.Add(stripDivergent(e, drop))
		}
		return b.Build()
	case ListType:
		return ListType{Element: stripDivergent(v.Element, drop)}
	default:
		return t
	}
}

// sortedTypeNames is a display helper for diagnostics.
func sortedTypeNames(types []Type) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	sort.Strings(names)
	return names
}
