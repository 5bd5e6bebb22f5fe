package semantic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pycheck/internal/memo"
)

func TestClassMember_OwnBodyWins(t *testing.T) {
	p, f := projectWithSource(t, `
class A:
    x = 1

class B(A):
    x = "s"
`)
	ctx := memo.NewCtx()
	b := classNamed(t, p, f, "B")

	m := p.ClassMember(ctx, b, "x")
	require.True(t, m.Place.IsDefined())
	assert.Equal(t, StringLiteralType{Value: "s"}, m.Place.Type)
	assert.Equal(t, "B", m.Definer.Name)
}

func TestClassMember_WalksAncestry(t *testing.T) {
	p, f := projectWithSource(t, `
class A:
    x = 1

class B(A):
    pass

class C(B):
    pass
`)
	ctx := memo.NewCtx()
	c := classNamed(t, p, f, "C")

	m := p.ClassMember(ctx, c, "x")
	require.True(t, m.Place.IsDefined())
	assert.Equal(t, IntLiteralType{Value: 1}, m.Place.Type)
	assert.Equal(t, "A", m.Definer.Name)

	missing := p.ClassMember(ctx, c, "y")
	assert.True(t, missing.Place.IsUndefined())
	assert.Nil(t, missing.Definer)
}

func TestClassMember_DynamicAncestorFoldsIntoResult(t *testing.T) {
	p, f := projectWithSource(t, `
class A:
    x = 1

class C(Missing, A):
    pass
`)
	ctx := memo.NewCtx()
	c := classNamed(t, p, f, "C")

	// The unresolved base sits ahead of A in the linearization; it could
	// define x with any type, so the concrete answer is widened by it.
	m := p.ClassMember(ctx, c, "x")
	require.True(t, m.Place.IsDefined())
	assert.Equal(t, UnionOf(IntLiteralType{Value: 1}, UnresolvedType()), m.Place.Type)
	assert.Equal(t, "A", m.Definer.Name)

	// With no concrete definer at all, the dynamic ancestor is the answer.
	unknown := p.ClassMember(ctx, c, "y")
	require.True(t, unknown.Place.IsDefined())
	assert.Equal(t, UnresolvedType(), unknown.Place.Type)
	assert.Nil(t, unknown.Definer)
}

func TestInstanceMember_AccumulatesPossiblyUnbound(t *testing.T) {
	p, f := projectWithSource(t, `
flag = 1

class B:
    if flag:
        x = 1

class A(B):
    if flag:
        x = "s"
`)
	ctx := memo.NewCtx()
	a := classNamed(t, p, f, "A")

	// Neither body binds x on every path, so the lookup keeps walking and
	// unions what it finds.
	m := p.InstanceMember(ctx, a, "x")
	require.True(t, m.Place.IsDefined())
	assert.Equal(t, PossiblyUnbound, m.Place.Boundness)
	assert.Equal(t, UnionOf(StringLiteralType{Value: "s"}, IntLiteralType{Value: 1}), m.Place.Type)
	assert.Equal(t, "A", m.Definer.Name)
}

func TestInstanceMember_StopsAtDefiniteBinding(t *testing.T) {
	p, f := projectWithSource(t, `
flag = 1

class B:
    x = 1
    y = 2

class A(B):
    if flag:
        x = "s"
`)
	ctx := memo.NewCtx()
	a := classNamed(t, p, f, "A")

	m := p.InstanceMember(ctx, a, "x")
	require.True(t, m.Place.IsDefined())
	assert.Equal(t, AlwaysBound, m.Place.Boundness)
	assert.Equal(t, UnionOf(StringLiteralType{Value: "s"}, IntLiteralType{Value: 1}), m.Place.Type)
	assert.Equal(t, "A", m.Definer.Name, "the first contributing class is reported")

	// A definite binding found first never reaches the conditional override.
	y := p.InstanceMember(ctx, a, "y")
	assert.Equal(t, AlwaysBound, y.Place.Boundness)
	assert.Equal(t, IntLiteralType{Value: 2}, y.Place.Type)
	assert.Equal(t, "B", y.Definer.Name)
}

func TestInstanceMember_DynamicAncestorIsUnknown(t *testing.T) {
	p, f := projectWithSource(t, `
class C(Missing):
    pass
`)
	ctx := memo.NewCtx()
	c := classNamed(t, p, f, "C")

	m := p.InstanceMember(ctx, c, "anything")
	require.True(t, m.Place.IsDefined())
	assert.Equal(t, UnknownType(), m.Place.Type)
	assert.Equal(t, AlwaysBound, m.Place.Boundness)
	assert.Nil(t, m.Definer)
}

func TestInstanceMember_UndefinedEverywhere(t *testing.T) {
	p, f := projectWithSource(t, `
class A:
    pass
`)
	ctx := memo.NewCtx()
	a := classNamed(t, p, f, "A")

	m := p.InstanceMember(ctx, a, "x")
	assert.True(t, m.Place.IsUndefined())
	assert.Nil(t, m.Definer)
}

func TestOwnClassMember_SyntheticClassesHaveNoMembers(t *testing.T) {
	p := NewProject()
	ctx := memo.NewCtx()
	intClass := p.mustKnown(t, KnownInt)

	assert.True(t, p.OwnClassMember(ctx, intClass, "real").IsUndefined())
}
