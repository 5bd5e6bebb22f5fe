package semantic

import (
	"pycheck/internal/memo"
)

// Member is the result of an ancestry-wide member lookup. Definer names the
// class whose body supplied the winning result, which is what IDE-style
// go-to-declaration consumers need; it is nil when the result came from a
// dynamic MRO entry.
type Member struct {
	Place   Place
	Definer *Class
}

// OwnClassMember resolves a name declared or bound directly in the class's
// own body scope.
func (p *Project) OwnClassMember(ctx *memo.Ctx, c *Class, name string) Place {
	if c.IsSynthetic() {
		// Synthesized builtins carry no member tables.
		return UndefinedPlace()
	}
	ix, ok := p.indexes[c.File.Path]
	if !ok {
		return UndefinedPlace()
	}
	body, ok := ix.ScopeFor(c.Def.ID())
	if !ok {
		return UndefinedPlace()
	}
	id, ok := body.PlaceIDOf(name)
	if !ok {
		return UndefinedPlace()
	}
	return p.PlaceByID(ctx, PlaceKey{File: c.File.Path, Scope: body.Node, Place: id})
}

// ClassMember walks the MRO front to back looking up name on the class
// object. The first concrete class that defines the name wins. Dynamic MRO
// entries are remembered rather than stopping the walk, except the
// unresolved-protocol placeholder, which is skipped outright so lookups in
// well-known hierarchies are not over-approximated. Any remembered dynamic
// entry folds into the final type (or replaces it when nothing concrete
// matched): the dynamic ancestor could define the attribute with any type.
func (p *Project) ClassMember(ctx *memo.Ctx, c *Class, name string) Member {
	var dynamic *DynamicType
	for _, entry := range p.MRO(ctx, c) {
		if entry.IsDynamic() {
			if entry.DynamicKind() == DynamicProtocol {
				continue
			}
			if dynamic == nil {
				d := DynamicType{Kind: entry.DynamicKind()}
				dynamic = &d
			}
			continue
		}
		ancestor, _ := entry.Class()
		place := p.OwnClassMember(ctx, ancestor, name)
		if place.IsUndefined() {
			continue
		}
		if dynamic != nil {
			place.Type = UnionOf(place.Type, *dynamic)
		}
		return Member{Place: place, Definer: ancestor}
	}
	if dynamic != nil {
		return Member{Place: DefinedPlace(*dynamic, OriginInferred, AlwaysBound, NoWidening)}
	}
	return Member{Place: UndefinedPlace()}
}

// InstanceMember walks the MRO accumulating a union across every class that
// defines the attribute with possibly-unbound definedness (a field set in
// some overriding initializers but not others), and short-circuits as
// soon as a definitely-bound occurrence is found. Any non-protocol dynamic
// entry degrades the whole lookup to Unknown, because the dynamic ancestor
// could define anything.
func (p *Project) InstanceMember(ctx *memo.Ctx, c *Class, name string) Member {
	builder := NewUnionBuilder()
	var firstDefiner *Class
	seen := false

	for _, entry := range p.MRO(ctx, c) {
		if entry.IsDynamic() {
			if entry.DynamicKind() == DynamicProtocol {
				continue
			}
			return Member{Place: DefinedPlace(UnknownType(), OriginInferred, AlwaysBound, NoWidening)}
		}
		ancestor, _ := entry.Class()
		place := p.OwnClassMember(ctx, ancestor, name)
		if place.IsUndefined() {
			continue
		}
		builder.Add(place.Type)
		seen = true
		if firstDefiner == nil {
			firstDefiner = ancestor
		}
		if place.Boundness == AlwaysBound {
			return Member{
				Place:   DefinedPlace(builder.Build(), place.Origin, AlwaysBound, NoWidening),
				Definer: firstDefiner,
			}
		}
	}

	if !seen {
		return Member{Place: UndefinedPlace()}
	}
	return Member{
		Place:   DefinedPlace(builder.Build(), OriginInferred, PossiblyUnbound, NoWidening),
		Definer: firstDefiner,
	}
}
