package scope

import (
	sitter "github.com/smacker/go-tree-sitter"

	"pycheck/internal/syntax"
)

// BuildIndex constructs the scope tree for a parsed file.
//
// Reachability is approximated structurally: a definition at the top level of
// a scope's suite always reaches; anything nested under a conditional
// construct (if, while, for, try, match) only possibly reaches. The
// approximation is conservative in the direction soundness needs: it never
// claims AlwaysReaches for a path-dependent definition.
func BuildIndex(f *syntax.File) *Index {
	ix := &Index{
		File:   f,
		byNode: make(map[syntax.NodeID]*Scope),
	}
	root := f.Root()
	ix.Module = newScope(ModuleScope, f, syntax.ID(root), nil)
	ix.byNode[syntax.ID(root)] = ix.Module

	b := &builder{file: f, index: ix}
	b.suite(ix.Module, root, AlwaysReaches)
	return ix
}

type builder struct {
	file  *syntax.File
	index *Index
}

// suite walks the statements of a block in document order.
func (b *builder) suite(s *Scope, block *sitter.Node, reach Reachability) {
	if block == nil {
		return
	}
	for i := 0; i < int(block.NamedChildCount()); i++ {
		b.statement(s, block.NamedChild(i), reach)
	}
}

func (b *builder) statement(s *Scope, stmt *sitter.Node, reach Reachability) {
	switch stmt.Type() {
	case "expression_statement":
		for i := 0; i < int(stmt.NamedChildCount()); i++ {
			b.expressionChild(s, stmt.NamedChild(i), reach)
		}

	case "decorated_definition":
		if def := stmt.ChildByFieldName("definition"); def != nil {
			b.statement(s, def, reach)
		}

	case "function_definition":
		b.functionDef(s, stmt, reach)

	case "class_definition":
		b.classDef(s, stmt, reach)

	case "if_statement":
		b.suite(s, stmt.ChildByFieldName("consequence"), PossiblyReaches)
		for i := 0; i < int(stmt.NamedChildCount()); i++ {
			child := stmt.NamedChild(i)
			switch child.Type() {
			case "elif_clause":
				b.suite(s, child.ChildByFieldName("consequence"), PossiblyReaches)
			case "else_clause":
				b.suite(s, child.ChildByFieldName("body"), PossiblyReaches)
			}
		}

	case "while_statement", "for_statement":
		if stmt.Type() == "for_statement" {
			b.bindTargets(s, stmt.ChildByFieldName("left"), nil, BindAssignment, PossiblyReaches)
		}
		b.suite(s, stmt.ChildByFieldName("body"), PossiblyReaches)
		for i := 0; i < int(stmt.NamedChildCount()); i++ {
			if child := stmt.NamedChild(i); child.Type() == "else_clause" {
				b.suite(s, child.ChildByFieldName("body"), PossiblyReaches)
			}
		}

	case "try_statement":
		b.suite(s, stmt.ChildByFieldName("body"), PossiblyReaches)
		for i := 0; i < int(stmt.NamedChildCount()); i++ {
			child := stmt.NamedChild(i)
			switch child.Type() {
			case "except_clause", "except_group_clause":
				b.exceptClause(s, child)
			case "else_clause", "finally_clause":
				b.suite(s, child.ChildByFieldName("body"), PossiblyReaches)
			}
		}

	case "with_statement":
		// A with body always executes once entered; the clauses' `as` targets
		// bind with the statement's own reachability.
		if clauses := firstChildOfType(stmt, "with_clause"); clauses != nil {
			for i := 0; i < int(clauses.NamedChildCount()); i++ {
				item := clauses.NamedChild(i)
				if item.Type() != "with_item" {
					continue
				}
				if as := firstChildOfType(item.ChildByFieldName("value"), "as_pattern"); as != nil {
					b.bindTargets(s, as.ChildByFieldName("alias"), nil, BindAssignment, reach)
				}
			}
		}
		b.suite(s, stmt.ChildByFieldName("body"), reach)

	case "match_statement":
		if body := stmt.ChildByFieldName("body"); body != nil {
			for i := 0; i < int(body.NamedChildCount()); i++ {
				if c := body.NamedChild(i); c.Type() == "case_clause" {
					b.suite(s, c.ChildByFieldName("consequence"), PossiblyReaches)
				}
			}
		}

	case "delete_statement":
		for i := 0; i < int(stmt.NamedChildCount()); i++ {
			b.bindTargets(s, stmt.NamedChild(i), nil, BindDeletion, reach)
		}

	case "import_statement", "import_from_statement":
		b.importStatement(s, stmt, reach)
	}
}

func (b *builder) expressionChild(s *Scope, expr *sitter.Node, reach Reachability) {
	switch expr.Type() {
	case "assignment":
		left := expr.ChildByFieldName("left")
		right := expr.ChildByFieldName("right")
		annotation := expr.ChildByFieldName("type")

		if annotation != nil && left != nil && left.Type() == "identifier" {
			p := s.ensure(b.file.Text(left))
			p.Declarations = append(p.Declarations, Declaration{
				Kind:         DeclAnnotation,
				Node:         expr,
				Annotation:   annotation,
				Reachability: reach,
			})
		}
		if right != nil {
			b.bindTargets(s, left, right, BindAssignment, reach)
		}

	case "augmented_assignment":
		b.bindTargets(s, expr.ChildByFieldName("left"), expr.ChildByFieldName("right"), BindAssignment, reach)
	}
}

// bindTargets records bindings for every identifier in an assignment target,
// descending through tuple and list patterns.
func (b *builder) bindTargets(s *Scope, target, value *sitter.Node, kind BindKind, reach Reachability) {
	if target == nil {
		return
	}
	switch target.Type() {
	case "identifier":
		p := s.ensure(b.file.Text(target))
		p.Bindings = append(p.Bindings, Binding{
			Kind:         kind,
			Node:         target,
			Value:        value,
			Reachability: reach,
		})
	case "pattern_list", "tuple_pattern", "list_pattern", "expression_list":
		for i := 0; i < int(target.NamedChildCount()); i++ {
			// Elements of a destructuring target each see the whole RHS; the
			// per-slot types come from the tuple unpacker, not from here.
			b.bindTargets(s, target.NamedChild(i), value, kind, reach)
		}
	case "list_splat_pattern":
		if target.NamedChildCount() > 0 {
			b.bindTargets(s, target.NamedChild(0), value, kind, reach)
		}
	}
	// Attribute and subscript targets do not bind scope-level places.
}

func (b *builder) functionDef(s *Scope, def *sitter.Node, reach Reachability) {
	fd, ok := syntax.AsFunctionDef(b.file, def)
	if !ok {
		return
	}
	name := fd.Name()
	p := s.ensure(name)
	p.Declarations = append(p.Declarations, Declaration{
		Kind:         DeclFunction,
		Node:         def,
		Reachability: reach,
		IsOverload:   fd.HasDecorator("overload"),
	})
	p.Bindings = append(p.Bindings, Binding{
		Kind:         BindFunctionDef,
		Node:         def,
		Reachability: reach,
	})

	fnScope := newScope(FunctionScope, b.file, syntax.ID(def), s)
	b.index.byNode[syntax.ID(def)] = fnScope
	b.parameters(fnScope, fd.Parameters())
	b.suite(fnScope, fd.Body(), AlwaysReaches)
}

func (b *builder) classDef(s *Scope, def *sitter.Node, reach Reachability) {
	cd, ok := syntax.AsClassDef(b.file, def)
	if !ok {
		return
	}
	p := s.ensure(cd.Name())
	p.Bindings = append(p.Bindings, Binding{
		Kind:         BindClassDef,
		Node:         def,
		Reachability: reach,
	})

	classScope := newScope(ClassScope, b.file, syntax.ID(def), s)
	b.index.byNode[syntax.ID(def)] = classScope
	b.suite(classScope, cd.Body(), AlwaysReaches)
}

func (b *builder) parameters(s *Scope, params *sitter.Node) {
	if params == nil {
		return
	}
	for i := 0; i < int(params.NamedChildCount()); i++ {
		param := params.NamedChild(i)
		var ident, annotation *sitter.Node
		switch param.Type() {
		case "identifier":
			ident = param
		case "default_parameter":
			ident = param.ChildByFieldName("name")
		case "typed_parameter", "typed_default_parameter":
			if name := param.ChildByFieldName("name"); name != nil {
				ident = name
			} else if param.NamedChildCount() > 0 {
				ident = param.NamedChild(0)
			}
			annotation = param.ChildByFieldName("type")
		case "list_splat_pattern", "dictionary_splat_pattern":
			if param.NamedChildCount() > 0 {
				ident = param.NamedChild(0)
			}
		}
		if ident == nil || ident.Type() != "identifier" {
			continue
		}
		p := s.ensure(b.file.Text(ident))
		p.Bindings = append(p.Bindings, Binding{
			Kind:         BindParameter,
			Node:         param,
			Reachability: AlwaysReaches,
		})
		if annotation != nil {
			p.Declarations = append(p.Declarations, Declaration{
				Kind:         DeclAnnotation,
				Node:         param,
				Annotation:   annotation,
				Reachability: AlwaysReaches,
			})
		}
	}
}

func (b *builder) exceptClause(s *Scope, clause *sitter.Node) {
	// except E as name: the alias binds possibly (and is unbound after the
	// handler exits, which the possibly-reaching flag already captures).
	for i := 0; i < int(clause.NamedChildCount()); i++ {
		child := clause.NamedChild(i)
		if child.Type() == "as_pattern" {
			b.bindTargets(s, child.ChildByFieldName("alias"), nil, BindAssignment, PossiblyReaches)
		}
	}
	b.suite(s, clause.ChildByFieldName("consequence"), PossiblyReaches)
	if clause.ChildByFieldName("consequence") == nil {
		// Older grammar exposes the handler body as the trailing block child.
		if body := lastChildOfType(clause, "block"); body != nil {
			b.suite(s, body, PossiblyReaches)
		}
	}
}

func (b *builder) importStatement(s *Scope, stmt *sitter.Node, reach Reachability) {
	// Value records what the bound name refers to: the dotted module path for
	// plain imports, the original member name for from-imports.
	bind := func(ident, value *sitter.Node) {
		if ident == nil {
			return
		}
		p := s.ensure(b.file.Text(ident))
		p.Bindings = append(p.Bindings, Binding{
			Kind:         BindImport,
			Node:         stmt,
			Value:        value,
			Reachability: reach,
		})
	}
	fromImport := stmt.Type() == "import_from_statement"
	moduleName := stmt.ChildByFieldName("module_name")
	for i := 0; i < int(stmt.NamedChildCount()); i++ {
		child := stmt.NamedChild(i)
		if child == moduleName {
			continue
		}
		switch child.Type() {
		case "dotted_name":
			if fromImport {
				// from m import a: the dotted name is the member.
				if child.NamedChildCount() == 1 {
					bind(child.NamedChild(0), child.NamedChild(0))
				}
			} else if child.NamedChildCount() > 0 {
				// import a.b binds the first segment.
				bind(child.NamedChild(0), child)
			}
		case "aliased_import":
			bind(child.ChildByFieldName("alias"), child.ChildByFieldName("name"))
		case "identifier":
			bind(child, child)
		}
	}
}

func firstChildOfType(n *sitter.Node, kind string) *sitter.Node {
	if n == nil {
		return nil
	}
	if n.Type() == kind {
		return n
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == kind {
			return c
		}
	}
	return nil
}

func lastChildOfType(n *sitter.Node, kind string) *sitter.Node {
	if n == nil {
		return nil
	}
	var out *sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == kind {
			out = c
		}
	}
	return out
}
