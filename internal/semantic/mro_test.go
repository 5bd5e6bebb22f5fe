package semantic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pycheck/internal/memo"
)

func TestMRO_ImplicitObject(t *testing.T) {
	p, f := projectWithSource(t, `
class A:
    pass
`)
	ctx := memo.NewCtx()
	a := classNamed(t, p, f, "A")

	result := p.TryMRO(ctx, a)
	require.Nil(t, result.Err)
	assert.Equal(t, []string{"A", "object"}, mroNames(result.Mro))
}

func TestMRO_Diamond(t *testing.T) {
	p, f := projectWithSource(t, `
class A:
    pass

class B(A):
    pass

class C(A):
    pass

class D(B, C):
    pass
`)
	ctx := memo.NewCtx()
	d := classNamed(t, p, f, "D")

	result := p.TryMRO(ctx, d)
	require.Nil(t, result.Err)
	assert.Equal(t, []string{"D", "B", "C", "A", "object"}, mroNames(result.Mro))
}

func TestMRO_InconsistentFallsBack(t *testing.T) {
	p, f := projectWithSource(t, `
class X:
    pass

class Y:
    pass

class A(X, Y):
    pass

class B(Y, X):
    pass

class C(A, B):
    pass
`)
	ctx := memo.NewCtx()
	c := classNamed(t, p, f, "C")

	result := p.TryMRO(ctx, c)
	require.NotNil(t, result.Err)
	assert.Equal(t, MroInconsistent, result.Err.Kind)
	// The fallback keeps the class usable: itself plus the unresolved
	// placeholder.
	assert.Equal(t, []string{"C", "Unresolved"}, mroNames(result.Mro))

	// The well-ordered ancestors are unaffected.
	a := classNamed(t, p, f, "A")
	assert.Nil(t, p.TryMRO(ctx, a).Err)
}

func TestMRO_InheritanceCycle(t *testing.T) {
	p, f := projectWithSource(t, `
class A(B):
    pass

class B(A):
    pass
`)
	ctx := memo.NewCtx()
	a := classNamed(t, p, f, "A")
	b := classNamed(t, p, f, "B")

	assert.Equal(t, CycleParticipant, p.InheritanceCycle(ctx, a))
	assert.Equal(t, CycleParticipant, p.InheritanceCycle(ctx, b))

	result := p.TryMRO(ctx, a)
	require.NotNil(t, result.Err)
	assert.Equal(t, MroCycle, result.Err.Kind)
	assert.Equal(t, []string{"A", "Unresolved"}, mroNames(result.Mro))
}

func TestMRO_SelfInheritingClass(t *testing.T) {
	p, f := projectWithSource(t, `
class Loop(Loop):
    pass
`)
	ctx := memo.NewCtx()
	loop := classNamed(t, p, f, "Loop")

	assert.Equal(t, CycleParticipant, p.InheritanceCycle(ctx, loop))

	result := p.TryMRO(ctx, loop)
	require.NotNil(t, result.Err)
	assert.Equal(t, MroCycle, result.Err.Kind)

	// The cycle resolves locally: the metaclass degrades to the unresolved
	// placeholder without reporting a second error.
	meta := p.TryMetaclass(ctx, loop)
	assert.Nil(t, meta.Err)
	assert.Equal(t, UnresolvedType(), meta.Metaclass)
}

func TestMRO_BaseExpressionReadsOwnClass(t *testing.T) {
	p, f := projectWithSource(t, `
class C(C.X):
    pass
`)
	ctx := memo.NewCtx()
	c := classNamed(t, p, f, "C")

	// Evaluating the base expression looks a member up on the class being
	// classified, so the classification query re-enters itself. It must
	// settle on a fixed point rather than abort.
	assert.Equal(t, NoInheritanceCycle, p.InheritanceCycle(ctx, c))

	result := p.TryMRO(ctx, c)
	require.Nil(t, result.Err)
	assert.Equal(t, []string{"C", "Unresolved", "object"}, mroNames(result.Mro))

	meta := p.TryMetaclass(ctx, c)
	assert.Nil(t, meta.Err)
	assert.Equal(t, UnresolvedType(), meta.Metaclass)
}

func TestMRO_CycleInheritedClassifiesSeparately(t *testing.T) {
	p, f := projectWithSource(t, `
class A(B):
    pass

class B(A):
    pass

class C(A):
    pass
`)
	ctx := memo.NewCtx()
	c := classNamed(t, p, f, "C")
	assert.Equal(t, CycleInherited, p.InheritanceCycle(ctx, c))
}

func TestMRO_InvalidBaseKeepsUsableOrder(t *testing.T) {
	p, f := projectWithSource(t, `
class A("surprise"):
    pass
`)
	ctx := memo.NewCtx()
	a := classNamed(t, p, f, "A")

	result := p.TryMRO(ctx, a)
	require.NotNil(t, result.Err)
	assert.Equal(t, MroInvalidBases, result.Err.Kind)
	// The offending base degrades to a placeholder but the order survives.
	assert.Equal(t, []string{"A", "Unresolved", "object"}, mroNames(result.Mro))
}

func TestMRO_UndefinedBaseIsDynamicNotInvalid(t *testing.T) {
	p, f := projectWithSource(t, `
class A(Missing):
    pass
`)
	ctx := memo.NewCtx()
	a := classNamed(t, p, f, "A")

	result := p.TryMRO(ctx, a)
	// An unresolvable name is already a dynamic type, not an invalid base.
	assert.Nil(t, result.Err)
	assert.Equal(t, []string{"A", "Unresolved", "object"}, mroNames(result.Mro))
}

func TestIsSubclassOf_ReflexiveAndTransitive(t *testing.T) {
	p, f := projectWithSource(t, `
class A:
    pass

class B(A):
    pass

class C(B):
    pass
`)
	ctx := memo.NewCtx()
	a := classNamed(t, p, f, "A")
	b := classNamed(t, p, f, "B")
	c := classNamed(t, p, f, "C")

	assert.True(t, p.IsSubclassOf(ctx, a, a))
	assert.True(t, p.IsSubclassOf(ctx, c, b))
	assert.True(t, p.IsSubclassOf(ctx, c, a), "subclassing is transitive")
	assert.False(t, p.IsSubclassOf(ctx, a, c))

	object := p.mustKnown(t, KnownObject)
	assert.True(t, p.IsSubclassOf(ctx, c, object))
}

func TestIsSubclassOf_BuiltinHierarchy(t *testing.T) {
	p := NewProject()
	ctx := memo.NewCtx()

	boolClass := p.mustKnown(t, KnownBool)
	intClass := p.mustKnown(t, KnownInt)
	exc := p.mustKnown(t, KnownException)
	baseExc := p.mustKnown(t, KnownBaseException)

	assert.True(t, p.IsSubclassOf(ctx, boolClass, intClass))
	assert.False(t, p.IsSubclassOf(ctx, intClass, boolClass))
	assert.True(t, p.IsSubclassOf(ctx, exc, baseExc))
}

func TestMroAsTuple(t *testing.T) {
	p, f := projectWithSource(t, `
class A:
    pass
`)
	ctx := memo.NewCtx()
	a := classNamed(t, p, f, "A")

	tup := p.MRO(ctx, a).AsTuple()
	tt, ok := tup.(TupleType)
	require.True(t, ok)
	fixed, ok := tt.Spec.(FixedLengthTuple)
	require.True(t, ok)
	require.Len(t, fixed.Elements(), 2)
	assert.Equal(t, ClassLiteralType{Class: a}, fixed.Elements()[0])
}

func TestIsFinal(t *testing.T) {
	p, f := projectWithSource(t, `
from typing import final

@final
class Sealed:
    pass

class Open:
    pass
`)
	assert.True(t, p.IsFinal(classNamed(t, p, f, "Sealed")))
	assert.False(t, p.IsFinal(classNamed(t, p, f, "Open")))
}
