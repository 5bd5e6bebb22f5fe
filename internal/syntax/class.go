package syntax

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// ClassDef is a view over a class_definition node.
type ClassDef struct {
	file *File
	node *sitter.Node
}

// AsClassDef wraps n if it is a class definition.
func AsClassDef(f *File, n *sitter.Node) (ClassDef, bool) {
	if n == nil || n.Type() != "class_definition" {
		return ClassDef{}, false
	}
	return ClassDef{file: f, node: n}, true
}

// ClassDefs collects every class definition in the file, including nested
// ones.
func (f *File) ClassDefs() []ClassDef {
	var out []ClassDef
	Walk(f.Root(), func(n *sitter.Node) bool {
		if cd, ok := AsClassDef(f, n); ok {
			out = append(out, cd)
		}
		return true
	})
	return out
}

// Node returns the underlying class_definition node.
func (c ClassDef) Node() *sitter.Node { return c.node }

// ID returns the class definition's node identity.
func (c ClassDef) ID() NodeID { return ID(c.node) }

// Name returns the declared class name.
func (c ClassDef) Name() string {
	return c.file.Text(c.node.ChildByFieldName("name"))
}

// Body returns the class body block.
func (c ClassDef) Body() *sitter.Node {
	return c.node.ChildByFieldName("body")
}

// Bases returns the written positional base expressions, in order.
func (c ClassDef) Bases() []*sitter.Node {
	args := c.node.ChildByFieldName("superclasses")
	if args == nil {
		return nil
	}
	var out []*sitter.Node
	for i := 0; i < int(args.NamedChildCount()); i++ {
		child := args.NamedChild(i)
		if child.Type() == "keyword_argument" {
			continue
		}
		out = append(out, child)
	}
	return out
}

// Keyword returns the value expression of the named keyword argument in the
// class head (e.g. metaclass=...), or nil if absent.
func (c ClassDef) Keyword(name string) *sitter.Node {
	args := c.node.ChildByFieldName("superclasses")
	if args == nil {
		return nil
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		child := args.NamedChild(i)
		if child.Type() != "keyword_argument" {
			continue
		}
		if c.file.Text(child.ChildByFieldName("name")) == name {
			return child.ChildByFieldName("value")
		}
	}
	return nil
}

// Decorators returns the decorator expressions applied to the class,
// outermost first.
func (c ClassDef) Decorators() []*sitter.Node {
	return decoratorsOf(c.node)
}

// FunctionDef is a view over a function_definition node.
type FunctionDef struct {
	file *File
	node *sitter.Node
}

// AsFunctionDef wraps n if it is a function definition.
func AsFunctionDef(f *File, n *sitter.Node) (FunctionDef, bool) {
	if n == nil || n.Type() != "function_definition" {
		return FunctionDef{}, false
	}
	return FunctionDef{file: f, node: n}, true
}

// Node returns the underlying function_definition node.
func (fd FunctionDef) Node() *sitter.Node { return fd.node }

// Name returns the declared function name.
func (fd FunctionDef) Name() string {
	return fd.file.Text(fd.node.ChildByFieldName("name"))
}

// Body returns the function body block.
func (fd FunctionDef) Body() *sitter.Node {
	return fd.node.ChildByFieldName("body")
}

// Parameters returns the parameter list node.
func (fd FunctionDef) Parameters() *sitter.Node {
	return fd.node.ChildByFieldName("parameters")
}

// Decorators returns the decorator expressions applied to the function,
// outermost first.
func (fd FunctionDef) Decorators() []*sitter.Node {
	return decoratorsOf(fd.node)
}

// HasDecorator reports whether any decorator's trailing path segment equals
// name (so both @overload and @typing.overload match "overload").
func (fd FunctionDef) HasDecorator(name string) bool {
	for _, dec := range fd.Decorators() {
		switch dec.Type() {
		case "identifier":
			if fd.file.Text(dec) == name {
				return true
			}
		case "attribute":
			if fd.file.Text(dec.ChildByFieldName("attribute")) == name {
				return true
			}
		}
	}
	return false
}

func decoratorsOf(def *sitter.Node) []*sitter.Node {
	parent := def.Parent()
	if parent == nil || parent.Type() != "decorated_definition" {
		return nil
	}
	var out []*sitter.Node
	for i := 0; i < int(parent.NamedChildCount()); i++ {
		child := parent.NamedChild(i)
		if child.Type() != "decorator" {
			continue
		}
		if child.NamedChildCount() > 0 {
			out = append(out, child.NamedChild(0))
		}
	}
	return out
}
