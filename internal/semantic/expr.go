package semantic

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"pycheck/internal/memo"
	"pycheck/internal/scope"
	"pycheck/internal/syntax"
)

// LookupName resolves a name through the scope chain: the query scope first,
// then enclosing function and module scopes (class scopes are not visible to
// code nested inside them), and finally the builtins module. Fallbacks are
// evaluated lazily through OrFallBackTo.
func (p *Project) LookupName(ctx *memo.Ctx, s *scope.Scope, name string) Place {
	place := p.scopeLocalPlace(ctx, s, name)

	enclosing := s.Parent
	start := s
	return place.OrFallBackTo(func() Place {
		for cur := enclosing; cur != nil; cur = cur.Parent {
			// Python scoping: a class body is not an enclosing scope for the
			// functions (or classes) defined inside it.
			if cur.Kind == scope.ClassScope && cur != start {
				continue
			}
			candidate := p.scopeLocalPlace(ctx, cur, name)
			if candidate.IsDefined() {
				return candidate.OrFallBackTo(func() Place {
					return p.builtinPlace(name)
				})
			}
		}
		return p.builtinPlace(name)
	})
}

func (p *Project) scopeLocalPlace(ctx *memo.Ctx, s *scope.Scope, name string) Place {
	id, ok := s.PlaceIDOf(name)
	if !ok {
		return UndefinedPlace()
	}
	return p.PlaceByID(ctx, PlaceKey{File: s.File.Path, Scope: s.Node, Place: id})
}

func (p *Project) builtinPlace(name string) Place {
	if t, ok := p.builtins.SyntheticMember(name); ok {
		return DefinedPlace(t, OriginDeclared, AlwaysBound, NoWidening)
	}
	return UndefinedPlace()
}

// ModuleMemberPlace resolves a module-level name as seen from outside the
// module; widening applies on the caller's read.
func (p *Project) ModuleMemberPlace(ctx *memo.Ctx, m *Module, name string) Place {
	if m.File == nil {
		if t, ok := m.SyntheticMember(name); ok {
			return DefinedPlace(t, OriginDeclared, AlwaysBound, NoWidening)
		}
		return UndefinedPlace()
	}
	ix, ok := p.indexes[m.File.Path]
	if !ok {
		return UndefinedPlace()
	}
	return p.scopeLocalPlace(ctx, ix.Module, name)
}

// ExpressionType types a definition expression: base-class lists, decorator
// expressions, metaclass keyword values, and assignment right-hand sides.
// Anything beyond the supported forms is dynamic, never an error.
func (p *Project) ExpressionType(ctx *memo.Ctx, s *scope.Scope, expr *sitter.Node) Type {
	if expr == nil {
		return UnknownType()
	}
	switch expr.Type() {
	case "identifier":
		place := p.LookupName(ctx, s, p.text(s, expr))
		if place.IsUndefined() {
			return UnresolvedType()
		}
		return place.Type
	case "none":
		return NoneType{}
	case "true":
		return BoolLiteralType{Value: true}
	case "false":
		return BoolLiteralType{Value: false}
	case "integer":
		if v, err := strconv.ParseInt(strings.ReplaceAll(p.text(s, expr), "_", ""), 0, 64); err == nil {
			return IntLiteralType{Value: v}
		}
		return p.knownInstance(KnownInt)
	case "float":
		return p.knownInstance(KnownFloat)
	case "string":
		return StringLiteralType{Value: stringContent(p.text(s, expr))}
	case "tuple", "expression_list":
		var elements []Type
		for i := 0; i < int(expr.NamedChildCount()); i++ {
			elements = append(elements, p.ExpressionType(ctx, s, expr.NamedChild(i)))
		}
		return NewTupleType(FixedTuple(elements...))
	case "parenthesized_expression":
		if expr.NamedChildCount() > 0 {
			return p.ExpressionType(ctx, s, expr.NamedChild(0))
		}
		return UnknownType()
	case "attribute":
		return p.attributeType(ctx, s, expr)
	case "call", "subscript", "binary_operator", "unary_operator",
		"comparison_operator", "conditional_expression", "list", "dictionary",
		"set", "list_comprehension", "dictionary_comprehension", "await":
		return AnyType()
	}
	return AnyType()
}

func (p *Project) attributeType(ctx *memo.Ctx, s *scope.Scope, expr *sitter.Node) Type {
	object := p.ExpressionType(ctx, s, expr.ChildByFieldName("object"))
	name := p.text(s, expr.ChildByFieldName("attribute"))
	switch obj := object.(type) {
	case ModuleType:
		place := p.ModuleMemberPlace(ctx, obj.Module, name)
		if place.IsUndefined() {
			return UnresolvedType()
		}
		return place.WidenedType()
	case ClassLiteralType:
		member := p.ClassMember(ctx, obj.Class, name)
		if member.Place.IsUndefined() {
			return UnresolvedType()
		}
		return member.Place.Type
	case DynamicType:
		return obj
	}
	return AnyType()
}

// AnnotationType types an annotation expression: class names denote their
// instances, PEP 604 unions are unioned, tuple[...] subscriptions build
// structural tuple shapes, and anything unsupported degrades to Unknown.
func (p *Project) AnnotationType(ctx *memo.Ctx, s *scope.Scope, expr *sitter.Node) Type {
	if expr == nil {
		return UnknownType()
	}
	switch expr.Type() {
	case "type":
		// The grammar wraps the payload of ": T" in a type node.
		if expr.NamedChildCount() > 0 {
			return p.AnnotationType(ctx, s, expr.NamedChild(0))
		}
		return UnknownType()
	case "none":
		return NoneType{}
	case "identifier", "attribute":
		return instanceOf(p.ExpressionType(ctx, s, expr))
	case "binary_operator":
		if op := expr.ChildByFieldName("operator"); op != nil && op.Type() == "|" {
			return UnionOf(
				p.AnnotationType(ctx, s, expr.ChildByFieldName("left")),
				p.AnnotationType(ctx, s, expr.ChildByFieldName("right")),
			)
		}
		return UnknownType()
	case "subscript":
		return p.subscriptAnnotation(ctx, s, expr)
	case "parenthesized_expression":
		if expr.NamedChildCount() > 0 {
			return p.AnnotationType(ctx, s, expr.NamedChild(0))
		}
	}
	return UnknownType()
}

func (p *Project) subscriptAnnotation(ctx *memo.Ctx, s *scope.Scope, expr *sitter.Node) Type {
	value := p.ExpressionType(ctx, s, expr.ChildByFieldName("value"))
	lit, ok := value.(ClassLiteralType)
	if !ok {
		return UnknownType()
	}

	var args []*sitter.Node
	for i := 0; i < int(expr.NamedChildCount()); i++ {
		child := expr.NamedChild(i)
		if child == expr.ChildByFieldName("value") {
			continue
		}
		if child.Type() == "tuple" || child.Type() == "expression_list" {
			for j := 0; j < int(child.NamedChildCount()); j++ {
				args = append(args, child.NamedChild(j))
			}
			continue
		}
		args = append(args, child)
	}

	switch lit.Class.Known {
	case KnownTuple:
		// tuple[T, ...] is the homogeneous family; otherwise fixed-length.
		if len(args) == 2 && args[1].Type() == "ellipsis" {
			return NewTupleType(HomogeneousTuple(p.AnnotationType(ctx, s, args[0])))
		}
		elements := make([]Type, len(args))
		for i, a := range args {
			elements[i] = p.AnnotationType(ctx, s, a)
		}
		return NewTupleType(FixedTuple(elements...))
	case KnownList:
		if len(args) == 1 {
			return ListType{Element: p.AnnotationType(ctx, s, args[0])}
		}
	}
	// Other generics: keep the nominal instance, drop the arguments.
	return InstanceType{Class: lit.Class}
}

// instanceOf maps a class literal to its instance type; dynamic and None pass
// through, anything else is Unknown in annotation position.
func instanceOf(t Type) Type {
	switch v := t.(type) {
	case ClassLiteralType:
		return InstanceType{Class: v.Class}
	case DynamicType, NoneType:
		return t
	}
	return UnknownType()
}

func (p *Project) knownInstance(tag KnownClass) Type {
	c, ok := p.KnownClassLiteral(tag)
	if !ok {
		return UnknownType()
	}
	return InstanceType{Class: c}
}

func (p *Project) functionLiteral(s *scope.Scope, node *sitter.Node) Type {
	fd, ok := syntax.AsFunctionDef(s.File, node)
	if !ok {
		return UnknownType()
	}
	return FunctionLiteralType{Name: fd.Name(), Node: syntax.ID(node)}
}

func (p *Project) importType(ctx *memo.Ctx, s *scope.Scope, b scope.Binding) Type {
	if b.Node == nil || b.Value == nil {
		return UnknownType()
	}
	if b.Node.Type() == "import_from_statement" {
		moduleNode := b.Node.ChildByFieldName("module_name")
		module, ok := p.ModuleByName(p.text(s, moduleNode))
		if !ok {
			return UnknownType()
		}
		place := p.ModuleMemberPlace(ctx, module, p.text(s, b.Value))
		if place.IsUndefined() {
			return UnresolvedType()
		}
		return place.WidenedType()
	}
	// Plain import binds a module object; the bound name is the first dotted
	// segment, which is also how the module registry keys it.
	name := p.text(s, b.Value)
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	if module, ok := p.ModuleByName(name); ok {
		return ModuleType{Module: module}
	}
	return UnknownType()
}

func (p *Project) annotationType(ctx *memo.Ctx, s *scope.Scope, expr *sitter.Node) Type {
	return p.AnnotationType(ctx, s, expr)
}

func (p *Project) text(s *scope.Scope, n *sitter.Node) string {
	return s.File.Text(n)
}

// stringContent strips quoting (including raw/byte/format prefixes and
// triple quotes) from a string literal's source text.
func stringContent(text string) string {
	for len(text) > 0 {
		c := text[0]
		if c == '"' || c == '\'' {
			break
		}
		text = text[1:]
	}
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(text, q) && strings.HasSuffix(text, q) && len(text) >= 2*len(q) {
			return text[len(q) : len(text)-len(q)]
		}
	}
	return text
}
