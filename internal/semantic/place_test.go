package semantic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pycheck/internal/memo"
)

func TestLookupName_InferredLiteral(t *testing.T) {
	p, f := projectWithSource(t, `
x = 1
`)
	place := lookup(t, p, f, "x")
	require.True(t, place.IsDefined())
	assert.Equal(t, AlwaysBound, place.Boundness)
	assert.Equal(t, OriginInferred, place.Origin)
	assert.Equal(t, IntLiteralType{Value: 1}, place.Type)
}

func TestLookupName_ConditionalBindingIsPossiblyUnbound(t *testing.T) {
	p, f := projectWithSource(t, `
flag = True
if flag:
    x = 1
`)
	place := lookup(t, p, f, "x")
	require.True(t, place.IsDefined())
	assert.Equal(t, PossiblyUnbound, place.Boundness)
	assert.Equal(t, IntLiteralType{Value: 1}, place.Type)

	// An undeclared public module global can be reassigned from outside, so
	// the externally visible type widens with Unknown.
	assert.Equal(t, WidenWithUnknown, place.Widening)
	assert.Equal(t, UnionOf(IntLiteralType{Value: 1}, UnknownType()), place.WidenedType())
}

func TestLookupName_DeclarationTrumpsInference(t *testing.T) {
	p, f := projectWithSource(t, `
y: int = 2
`)
	place := lookup(t, p, f, "y")
	require.True(t, place.IsDefined())
	assert.Equal(t, OriginDeclared, place.Origin)
	assert.Equal(t, AlwaysBound, place.Boundness)
	assert.Equal(t, "int", place.Type.String())
	// Declared symbols carry their guarantee; no widening.
	assert.Equal(t, NoWidening, place.Widening)
	assert.Equal(t, place.Type, place.WidenedType())
}

func TestLookupName_TupleAnnotationBuildsShape(t *testing.T) {
	p, f := projectWithSource(t, `
pair: tuple[int, str] = (1, "x")
`)
	place := lookup(t, p, f, "pair")
	require.True(t, place.IsDefined())
	assert.Equal(t, OriginDeclared, place.Origin)
	tup, ok := place.Type.(TupleType)
	require.True(t, ok, "got %s", place.Type)
	assert.Equal(t, "tuple[int, str]", tup.String())
}

func TestLookupName_WideningExemptions(t *testing.T) {
	p, f := projectWithSource(t, `
_private = 1
__slots__ = ("a",)
public = 1
`)
	assert.Equal(t, NoWidening, lookup(t, p, f, "_private").Widening)
	assert.Equal(t, NoWidening, lookup(t, p, f, "__slots__").Widening)
	assert.Equal(t, WidenWithUnknown, lookup(t, p, f, "public").Widening)
}

func TestLookupName_StubFileNeverWidens(t *testing.T) {
	p := NewProject()
	f, err := p.AddFile("mod.pyi", []byte("public = 1\n"))
	require.NoError(t, err)
	assert.Equal(t, NoWidening, lookup(t, p, f, "public").Widening)
}

func TestLookupName_BuiltinsFallback(t *testing.T) {
	p, f := projectWithSource(t, `
x = 1
`)
	place := lookup(t, p, f, "int")
	require.True(t, place.IsDefined())
	lit, ok := place.Type.(ClassLiteralType)
	require.True(t, ok)
	assert.Equal(t, KnownInt, lit.Class.Known)
}

func TestLookupName_PossiblyUnboundUnionsWithFallback(t *testing.T) {
	p, f := projectWithSource(t, `
flag = True
if flag:
    int = 1
`)
	// A conditional shadow of a builtin yields both alternatives.
	place := lookup(t, p, f, "int")
	require.True(t, place.IsDefined())
	assert.Equal(t, AlwaysBound, place.Boundness, "the builtin fallback is always bound")
	u, ok := place.Type.(UnionType)
	require.True(t, ok)
	assert.Len(t, u.Elements, 2)
}

func TestOrFallBackTo_LazyWhenAlwaysBound(t *testing.T) {
	primary := DefinedPlace(IntLiteralType{Value: 1}, OriginInferred, AlwaysBound, NoWidening)
	result := primary.OrFallBackTo(func() Place {
		t.Fatal("fallback must not be evaluated for an always-bound place")
		return UndefinedPlace()
	})
	assert.Equal(t, primary, result)
}

func TestOrFallBackTo_UndefinedTakesFallback(t *testing.T) {
	fallback := DefinedPlace(NoneType{}, OriginDeclared, AlwaysBound, NoWidening)
	result := UndefinedPlace().OrFallBackTo(func() Place { return fallback })
	assert.Equal(t, fallback, result)
}

func TestPlace_SelfReferentialAssignmentIsUndefined(t *testing.T) {
	p, f := projectWithSource(t, `
x = x
`)
	// The only binding for x is its own value: the fixed point converges on
	// the divergence placeholder, which collapses to undefined.
	place := lookup(t, p, f, "x")
	assert.True(t, place.IsUndefined())
}

func TestPlace_MutuallyRecursiveAssignments(t *testing.T) {
	p, f := projectWithSource(t, `
a = b
b = a
`)
	// The queried place is the cycle head: its converged value is pure
	// placeholder and collapses to undefined.
	assert.True(t, lookup(t, p, f, "a").IsUndefined())

	// The other participant then reads an undefined name, which types as the
	// unresolved dynamic rather than vanishing.
	b := lookup(t, p, f, "b")
	require.True(t, b.IsDefined())
	assert.Equal(t, UnresolvedType(), b.Type)
}

func TestPlace_ThreeWayCycleCollapsesOnlyAtTheBoundary(t *testing.T) {
	p, f := projectWithSource(t, `
a = b
b = c
c = a
`)
	// The placeholder for the cycle head has to flow through the inner
	// queries while iteration is still running; stripping it early would make
	// the downstream names look resolved and the head spuriously defined.
	assert.True(t, lookup(t, p, f, "a").IsUndefined())
}

func TestPlace_CycleWithConcreteSeedConverges(t *testing.T) {
	p, f := projectWithSource(t, `
x = 1
x = x
`)
	// The second binding re-reads x; iteration grows the union until it
	// stabilizes, and the placeholder is stripped from the converged result.
	place := lookup(t, p, f, "x")
	require.True(t, place.IsDefined())
	assert.Equal(t, IntLiteralType{Value: 1}, place.Type)
	assert.Equal(t, AlwaysBound, place.Boundness)
}

func TestPlace_DefiniteDeletionResetsBindings(t *testing.T) {
	p, f := projectWithSource(t, `
x = 1
del x
`)
	assert.True(t, lookup(t, p, f, "x").IsUndefined())
}

func TestPlace_PossibleDeletionDowngradesBoundness(t *testing.T) {
	p, f := projectWithSource(t, `
flag = True
x = 1
if flag:
    del x
`)
	place := lookup(t, p, f, "x")
	require.True(t, place.IsDefined())
	assert.Equal(t, PossiblyUnbound, place.Boundness)
	assert.Equal(t, IntLiteralType{Value: 1}, place.Type)
}

func TestPlace_ConflictingDeclarations(t *testing.T) {
	p, f := projectWithSource(t, `
flag = True
if flag:
    v: int = 1
else:
    v: str = ""
`)
	ix, ok := p.Index(f.Path)
	require.True(t, ok)
	id, ok := ix.Module.PlaceIDOf("v")
	require.True(t, ok)
	info := ix.Module.Place(id)

	pc := p.PlaceFromDeclarations(memo.NewCtx(), ix.Module, info.Declarations)
	assert.True(t, pc.HasConflict())
	require.Len(t, pc.Conflicting, 2)
	// The merged type remains usable despite the conflict.
	_, isUnion := pc.Place.Type.(UnionType)
	assert.True(t, isUnion)
}

func TestPlace_BareFinalKeepsInferredType(t *testing.T) {
	p, f := projectWithSource(t, `
from typing import Final

LIMIT: Final = 10
`)
	place := lookup(t, p, f, "LIMIT")
	require.True(t, place.IsDefined())
	assert.Equal(t, OriginDeclared, place.Origin)
	// The bare Final marker carries no type; the narrow literal survives.
	assert.Equal(t, IntLiteralType{Value: 10}, place.Type)
}

func TestPlace_OverloadsCollapseIntoImplementation(t *testing.T) {
	p, f := projectWithSource(t, `
from typing import overload

@overload
def f(x: int) -> int: ...

@overload
def f(x: str) -> str: ...

def f(x):
    return x
`)
	place := lookup(t, p, f, "f")
	require.True(t, place.IsDefined())
	// The overload signatures fold into the implementation; the place is a
	// single function, not a union of three.
	fn, ok := place.Type.(FunctionLiteralType)
	require.True(t, ok, "got %s", place.Type)
	assert.Equal(t, "f", fn.Name)
}
