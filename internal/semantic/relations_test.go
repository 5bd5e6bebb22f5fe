package semantic

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pycheck/internal/memo"
)

func TestHasRelationTo_NominalSubtyping(t *testing.T) {
	p := NewProject()
	ctx := memo.NewCtx()
	intInst := instance(t, p, KnownInt)
	boolInst := instance(t, p, KnownBool)
	strInst := instance(t, p, KnownStr)
	objInst := instance(t, p, KnownObject)

	assert.True(t, p.HasRelationTo(ctx, boolInst, intInst, Subtyping))
	assert.False(t, p.HasRelationTo(ctx, intInst, boolInst, Subtyping))
	assert.True(t, p.HasRelationTo(ctx, strInst, objInst, Subtyping))
	assert.False(t, p.HasRelationTo(ctx, strInst, intInst, Subtyping))
}

func TestHasRelationTo_LiteralsAgainstInstances(t *testing.T) {
	p := NewProject()
	ctx := memo.NewCtx()
	intInst := instance(t, p, KnownInt)
	strInst := instance(t, p, KnownStr)

	assert.True(t, p.HasRelationTo(ctx, IntLiteralType{Value: 7}, intInst, Subtyping))
	assert.True(t, p.HasRelationTo(ctx, BoolLiteralType{Value: true}, intInst, Subtyping))
	assert.False(t, p.HasRelationTo(ctx, IntLiteralType{Value: 7}, strInst, Subtyping))
	assert.False(t, p.HasRelationTo(ctx, intInst, IntLiteralType{Value: 7}, Subtyping))
}

func TestHasRelationTo_DynamicTypes(t *testing.T) {
	p := NewProject()
	ctx := memo.NewCtx()
	intInst := instance(t, p, KnownInt)

	// Gradual types are assignable in both directions but are never subtypes.
	assert.True(t, p.HasRelationTo(ctx, UnknownType(), intInst, Assignability))
	assert.True(t, p.HasRelationTo(ctx, intInst, UnknownType(), Assignability))
	assert.False(t, p.HasRelationTo(ctx, UnknownType(), intInst, Subtyping))
	assert.False(t, p.HasRelationTo(ctx, intInst, UnknownType(), Subtyping))

	// A dynamic type relates to itself only gradually.
	assert.True(t, p.HasRelationTo(ctx, AnyType(), AnyType(), Assignability))
	assert.False(t, p.HasRelationTo(ctx, AnyType(), AnyType(), Subtyping))
}

func TestHasRelationTo_Never(t *testing.T) {
	p := NewProject()
	ctx := memo.NewCtx()
	intInst := instance(t, p, KnownInt)

	assert.True(t, p.HasRelationTo(ctx, Never(), intInst, Subtyping))
	assert.True(t, p.HasRelationTo(ctx, Never(), NoneType{}, Subtyping))
	assert.False(t, p.HasRelationTo(ctx, intInst, Never(), Subtyping))
}

func TestHasRelationTo_Unions(t *testing.T) {
	p := NewProject()
	ctx := memo.NewCtx()
	intInst := instance(t, p, KnownInt)
	strInst := instance(t, p, KnownStr)
	objInst := instance(t, p, KnownObject)

	// Every branch of a union subtype must relate.
	assert.True(t, p.HasRelationTo(ctx, UnionOf(intInst, strInst), objInst, Subtyping))
	assert.False(t, p.HasRelationTo(ctx, UnionOf(intInst, strInst), intInst, Subtyping))

	// Some branch of a union supertype must accept.
	assert.True(t, p.HasRelationTo(ctx, intInst, UnionOf(intInst, strInst), Subtyping))
	assert.False(t, p.HasRelationTo(ctx, objInst, UnionOf(intInst, strInst), Subtyping))
}

func TestHasRelationTo_NoneAndLists(t *testing.T) {
	p := NewProject()
	ctx := memo.NewCtx()
	intInst := instance(t, p, KnownInt)
	boolInst := instance(t, p, KnownBool)

	assert.True(t, p.HasRelationTo(ctx, NoneType{}, NoneType{}, Subtyping))
	assert.False(t, p.HasRelationTo(ctx, intInst, NoneType{}, Subtyping))

	// Lists are invariant: list[bool] is not a list[int].
	assert.True(t, p.HasRelationTo(ctx, ListType{Element: intInst}, ListType{Element: intInst}, Subtyping))
	assert.False(t, p.HasRelationTo(ctx, ListType{Element: boolInst}, ListType{Element: intInst}, Subtyping))
}

func TestHasRelationTo_ClassLiteralIsInstanceOfMetaclass(t *testing.T) {
	p, f := projectWithSource(t, `
class Meta(type):
    pass

class A(metaclass=Meta):
    pass
`)
	ctx := memo.NewCtx()
	a := classNamed(t, p, f, "A")
	meta := classNamed(t, p, f, "Meta")
	typeInst := instance(t, p, KnownType)

	assert.True(t, p.HasRelationTo(ctx, ClassLiteralType{Class: a}, InstanceType{Class: meta}, Subtyping))
	assert.True(t, p.HasRelationTo(ctx, ClassLiteralType{Class: a}, typeInst, Subtyping))
	assert.False(t, p.HasRelationTo(ctx, InstanceType{Class: a}, InstanceType{Class: meta}, Subtyping))
}

func TestIsDisjointFrom_Literals(t *testing.T) {
	p := NewProject()
	ctx := memo.NewCtx()
	intInst := instance(t, p, KnownInt)

	assert.True(t, p.IsDisjointFrom(ctx, IntLiteralType{Value: 1}, IntLiteralType{Value: 2}))
	assert.False(t, p.IsDisjointFrom(ctx, IntLiteralType{Value: 1}, IntLiteralType{Value: 1}))
	assert.False(t, p.IsDisjointFrom(ctx, IntLiteralType{Value: 1}, intInst), "a literal inhabits its own class")
	assert.True(t, p.IsDisjointFrom(ctx, StringLiteralType{Value: "a"}, StringLiteralType{Value: "b"}))
}

func TestIsDisjointFrom_ClassesAndSpecials(t *testing.T) {
	p := NewProject()
	ctx := memo.NewCtx()
	intInst := instance(t, p, KnownInt)
	boolInst := instance(t, p, KnownBool)
	strInst := instance(t, p, KnownStr)

	assert.True(t, p.IsDisjointFrom(ctx, intInst, strInst))
	assert.False(t, p.IsDisjointFrom(ctx, intInst, boolInst), "subclass instances overlap")

	assert.False(t, p.IsDisjointFrom(ctx, AnyType(), intInst))
	assert.True(t, p.IsDisjointFrom(ctx, Never(), intInst))
	assert.True(t, p.IsDisjointFrom(ctx, NoneType{}, intInst))

	// A union is disjoint only when each branch is.
	assert.True(t, p.IsDisjointFrom(ctx, UnionOf(IntLiteralType{Value: 1}, IntLiteralType{Value: 2}), strInst))
	assert.False(t, p.IsDisjointFrom(ctx, UnionOf(intInst, strInst), strInst))
}
