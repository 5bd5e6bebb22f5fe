package semantic

import (
	"fmt"
	"strings"

	set "github.com/hashicorp/go-set/v3"

	"pycheck/internal/memo"
	"pycheck/internal/scope"
)

// MroErrorKind classifies MRO resolution failures.
type MroErrorKind int

const (
	// MroInconsistent: the written bases admit no C3 linearization.
	MroInconsistent MroErrorKind = iota
	// MroCycle: the class participates in (or inherits from) an inheritance
	// cycle.
	MroCycle
	// MroInvalidBases: one or more base expressions do not resolve to a
	// class or a dynamic type.
	MroInvalidBases
)

// MroError is a structured MRO failure. It always carries a usable fallback
// linearization so downstream queries can proceed without special-casing.
type MroError struct {
	Kind     MroErrorKind
	Class    *Class
	Bases    []Type // the offending base types, for MroInvalidBases
	Fallback Mro
}

func (e *MroError) Error() string {
	switch e.Kind {
	case MroInconsistent:
		return fmt.Sprintf("cannot create a consistent method resolution order for class %q", e.Class.Name)
	case MroCycle:
		return fmt.Sprintf("cyclic definition of class %q", e.Class.Name)
	case MroInvalidBases:
		return fmt.Sprintf("invalid base(s) for class %q: %s", e.Class.Name, strings.Join(sortedTypeNames(e.Bases), ", "))
	}
	return "mro error"
}

// MroResult pairs an MRO with its optional structured error; the MRO is
// usable either way.
type MroResult struct {
	Mro Mro
	Err *MroError
}

// ExplicitBases returns the types of the written base-class expressions, in
// order, excluding the implicit universal base. Memoized per class; a cycle
// through base-expression typing iterates from the empty list.
func (p *Project) ExplicitBases(ctx *memo.Ctx, c *Class) []Type {
	return p.basesTable.Do(ctx, c, func(ctx *memo.Ctx) []Type {
		if c.IsSynthetic() {
			out := make([]Type, len(c.synthBases))
			for i, b := range c.synthBases {
				out[i] = ClassLiteralType{Class: b}
			}
			return out
		}
		ix, ok := p.indexes[c.File.Path]
		if !ok {
			return nil
		}
		defScope := p.definingScope(ix, c)
		if defScope == nil {
			return nil
		}
		var out []Type
		for _, baseExpr := range c.Def.Bases() {
			out = append(out, p.ExpressionType(ctx, defScope, baseExpr))
		}
		return out
	})
}

// DecoratorTypes returns the types of the class's decorator expressions,
// outermost first.
func (p *Project) DecoratorTypes(ctx *memo.Ctx, c *Class) []Type {
	if c.IsSynthetic() {
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
	var out []Type
	for _, dec := range c.Def.Decorators() {
		out = append(out, p.ExpressionType(ctx, defScope, dec))
	}
	return out
}

// IsFinal reports whether the class is decorated @final.
func (p *Project) IsFinal(c *Class) bool {
	if c.IsSynthetic() {
		return false
	}
	for _, dec := range c.Def.Decorators() {
		text := c.File.Text(dec)
		if text == "final" || strings.HasSuffix(text, ".final") {
			return true
		}
	}
	return false
}

// definingScope returns the scope the class definition statement appears in:
// the parent of the class's own body scope, or the module scope for
// top-level classes.
func (p *Project) definingScope(ix *scope.Index, c *Class) *scope.Scope {
	body, ok := ix.ScopeFor(c.Def.ID())
	if !ok {
		return ix.Module
	}
	if body.Parent != nil {
		return body.Parent
	}
	return ix.Module
}

// classBases converts the explicit base types into MRO entries. Unsupported
// base types map to the unresolved placeholder and are reported.
func (p *Project) classBases(ctx *memo.Ctx, c *Class) (bases []ClassBase, invalid []Type) {
	for _, t := range p.ExplicitBases(ctx, c) {
		switch v := t.(type) {
		case ClassLiteralType:
			bases = append(bases, ClassBaseOf(v.Class))
		case DynamicType:
			bases = append(bases, ClassBase{dynamic: v.Kind})
		default:
			bases = append(bases, DynamicBase(DynamicUnresolved))
			invalid = append(invalid, t)
		}
	}
	return bases, invalid
}

// TryMRO computes the class's linearized ancestry: a C3 merge of the class,
// its bases' MROs, and the base list itself. Linearization failure and
// inheritance cycles produce the degenerate fallback [class, Unresolved]
// along with a structured error. Memoized; cyclic hierarchies iterate from
// the fallback so self-referential definitions terminate.
func (p *Project) TryMRO(ctx *memo.Ctx, c *Class) MroResult {
	return p.mroTable.Do(ctx, c, func(ctx *memo.Ctx) MroResult {
		return p.computeMro(ctx, c)
	})
}

// MRO returns the usable linearization, swallowing the error.
func (p *Project) MRO(ctx *memo.Ctx, c *Class) Mro {
	return p.TryMRO(ctx, c).Mro
}

func (p *Project) computeMro(ctx *memo.Ctx, c *Class) MroResult {
	if p.InheritanceCycle(ctx, c) != NoInheritanceCycle {
		return MroResult{
			Mro: fallbackMro(c),
			Err: &MroError{Kind: MroCycle, Class: c, Fallback: fallbackMro(c)},
		}
	}

	bases, invalid := p.classBases(ctx, c)
	object := p.objectClass()

	if len(bases) == 0 {
		if c.Known == KnownObject {
			return MroResult{Mro: Mro{ClassBaseOf(c)}}
		}
		mro := Mro{ClassBaseOf(c)}
		if object != nil {
			mro = append(mro, ClassBaseOf(object))
		}
		return MroResult{Mro: mro}
	}

	// Sequences to merge: [c], each base's own MRO, and the base list.
	seqs := [][]ClassBase{{ClassBaseOf(c)}}
	for _, b := range bases {
		if base, ok := b.Class(); ok {
			seqs = append(seqs, p.MRO(ctx, base))
			continue
		}
		// A dynamic base contributes itself and the universal base, keeping
		// object last in the merged order.
		dyn := []ClassBase{b}
		if object != nil {
			dyn = append(dyn, ClassBaseOf(object))
		}
		seqs = append(seqs, dyn)
	}
	seqs = append(seqs, append([]ClassBase{}, bases...))

	merged, ok := c3Merge(seqs)
	if !ok {
		return MroResult{
			Mro: fallbackMro(c),
			Err: &MroError{Kind: MroInconsistent, Class: c, Fallback: fallbackMro(c)},
		}
	}
	result := MroResult{Mro: merged}
	if len(invalid) > 0 {
		result.Err = &MroError{Kind: MroInvalidBases, Class: c, Bases: invalid, Fallback: fallbackMro(c)}
	}
	return result
}

// c3Merge linearizes the sequences: at each step it selects the earliest
// head that does not appear in the tail of any sequence, failing when no
// candidate exists (inconsistent base order, duplicate bases).
func c3Merge(seqs [][]ClassBase) (Mro, bool) {
	work := make([][]ClassBase, 0, len(seqs))
	for _, s := range seqs {
		if len(s) > 0 {
			work = append(work, append([]ClassBase{}, s...))
		}
	}

	var out Mro
	for len(work) > 0 {
		var candidate ClassBase
		found := false
	search:
		for _, s := range work {
			head := s[0]
			for _, other := range work {
				for _, entry := range other[1:] {
					if entry == head {
						continue search
					}
				}
			}
			candidate = head
			found = true
			break
		}
		if !found {
			return nil, false
		}

		out = append(out, candidate)
		next := work[:0]
		for _, s := range work {
			if s[0] == candidate {
				s = s[1:]
			}
			if len(s) > 0 {
				next = append(next, s)
			}
		}
		work = next
	}
	return out, true
}

// IsSubclassOf reports whether super (as a concrete class) appears in sub's
// MRO. Dynamic entries never satisfy subclassing; they participate in
// assignability, not subtyping.
func (p *Project) IsSubclassOf(ctx *memo.Ctx, sub, super *Class) bool {
	for _, entry := range p.MRO(ctx, sub) {
		if c, ok := entry.Class(); ok && c == super {
			return true
		}
	}
	return false
}

// InheritanceCycle classifies a class's relationship to inheritance cycles.
type InheritanceCycle int

const (
	// NoInheritanceCycle: no cycle is reachable through the explicit bases.
	NoInheritanceCycle InheritanceCycle = iota
	// CycleParticipant: the walk returned to the queried class itself.
	CycleParticipant
	// CycleInherited: a reachable base lies on a cycle the queried class is
	// not part of.
	CycleInherited
)

// InheritanceCycle walks the explicit-base graph depth-first with an on-stack
// set, distinguishing classes that are on a cycle from classes that merely
// inherit from one.
func (p *Project) InheritanceCycle(ctx *memo.Ctx, c *Class) InheritanceCycle {
	return p.cycleTable.Do(ctx, c, func(ctx *memo.Ctx) InheritanceCycle {
		onStack := set.New[*Class](4)
		visited := set.New[*Class](8)
		result := NoInheritanceCycle

		var visit func(cur *Class)
		visit = func(cur *Class) {
			if onStack.Contains(cur) {
				if cur == c {
					result = CycleParticipant
				} else if result == NoInheritanceCycle {
					result = CycleInherited
				}
				return
			}
			if visited.Contains(cur) {
				return
			}
			visited.Insert(cur)
			onStack.Insert(cur)
			for _, t := range p.ExplicitBases(ctx, cur) {
				if lit, ok := t.(ClassLiteralType); ok {
					visit(lit.Class)
					if result == CycleParticipant {
						break
					}
				}
			}
			onStack.Remove(cur)
		}
		visit(c)
		return result
	})
}
