// Package scope builds lexical scopes and symbol tables over parsed Python
// syntax. Each scope maps names to place IDs; each place records the ordered
// declarations (annotations, function definitions) and bindings (assignments,
// class/function definitions, imports, parameters, deletions) that target it,
// together with whether each definition always or only possibly reaches the
// end of the scope.
package scope

import (
	sitter "github.com/smacker/go-tree-sitter"

	"pycheck/internal/syntax"
)

// Kind classifies a scope.
type Kind int

const (
	ModuleScope Kind = iota
	ClassScope
	FunctionScope
)

var kindNames = [...]string{"module", "class", "function"}

func (k Kind) String() string { return kindNames[k] }

// PlaceID identifies a place within one scope's table.
type PlaceID int

// Reachability records whether a definition reaches on every control-flow
// path ending at the scope's exit, or only on some.
type Reachability int

const (
	AlwaysReaches Reachability = iota
	PossiblyReaches
)

// DeclKind classifies declarations.
type DeclKind int

const (
	// DeclAnnotation is an explicit type annotation (x: T or x: T = v).
	DeclAnnotation DeclKind = iota
	// DeclFunction is a def statement; the definition declares the name's
	// callable type.
	DeclFunction
)

// Declaration is one declared-type site for a place.
type Declaration struct {
	Kind         DeclKind
	Node         *sitter.Node // the assignment or function_definition node
	Annotation   *sitter.Node // annotation expression, for DeclAnnotation
	Reachability Reachability
	IsOverload   bool // function decorated with @overload
}

// BindKind classifies bindings.
type BindKind int

const (
	BindAssignment BindKind = iota
	BindFunctionDef
	BindClassDef
	BindImport
	BindParameter
	BindDeletion
)

// Binding is one value-assignment site for a place.
type Binding struct {
	Kind         BindKind
	Node         *sitter.Node // the statement or definition node
	Value        *sitter.Node // RHS expression for assignments, else nil
	Reachability Reachability
}

// Place is a name's definition history within one scope.
type Place struct {
	Name         string
	Declarations []Declaration
	Bindings     []Binding
}

// Scope is one lexical scope with its symbol table.
type Scope struct {
	Kind   Kind
	File   *syntax.File
	Node   syntax.NodeID // module root, class_definition, or function_definition
	Parent *Scope

	names  map[string]PlaceID
	places []*Place
}

func newScope(kind Kind, file *syntax.File, node syntax.NodeID, parent *Scope) *Scope {
	return &Scope{
		Kind:   kind,
		File:   file,
		Node:   node,
		Parent: parent,
		names:  make(map[string]PlaceID),
	}
}

// PlaceIDOf returns the place ID for name, if the scope defines it.
func (s *Scope) PlaceIDOf(name string) (PlaceID, bool) {
	id, ok := s.names[name]
	return id, ok
}

// Place returns the place record for id.
func (s *Scope) Place(id PlaceID) *Place {
	return s.places[int(id)]
}

// Names returns every defined name, in first-definition order.
func (s *Scope) Names() []string {
	out := make([]string, len(s.places))
	for i, p := range s.places {
		out[i] = p.Name
	}
	return out
}

func (s *Scope) ensure(name string) *Place {
	if id, ok := s.names[name]; ok {
		return s.places[int(id)]
	}
	p := &Place{Name: name}
	s.names[name] = PlaceID(len(s.places))
	s.places = append(s.places, p)
	return p
}

// Index holds the scope tree of a single file, addressable by defining node.
type Index struct {
	File   *syntax.File
	Module *Scope

	byNode map[syntax.NodeID]*Scope
}

// ScopeFor returns the scope whose defining node has the given identity.
func (ix *Index) ScopeFor(node syntax.NodeID) (*Scope, bool) {
	s, ok := ix.byNode[node]
	return s, ok
}

// Scopes returns every scope in the file, module scope first.
func (ix *Index) Scopes() []*Scope {
	out := []*Scope{ix.Module}
	for _, s := range ix.byNode {
		if s != ix.Module {
			out = append(out, s)
		}
	}
	return out
}
