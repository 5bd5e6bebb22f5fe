// Package syntax wraps tree-sitter parsing of Python source files and exposes
// the small slice of the grammar the semantic layer consumes: class and
// function definitions, assignments, deletions, and imports.
package syntax

import (
	"context"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// File is one parsed source file. The tree and source are immutable after
// parsing; all derived facts are keyed by node identity within the file.
type File struct {
	Path   string
	Source []byte
	Hash   uint64
	IsStub bool

	tree *sitter.Tree
}

// ParseFile parses src as Python. The returned File owns the tree for its
// lifetime.
func ParseFile(path string, src []byte) (*File, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return &File{
		Path:   path,
		Source: src,
		Hash:   Fingerprint(src),
		IsStub: strings.HasSuffix(path, ".pyi"),
		tree:   tree,
	}, nil
}

// Fingerprint hashes source content the way ParseFile does, so callers can
// compare against File.Hash without parsing.
func Fingerprint(src []byte) uint64 { return xxhash.Sum64(src) }

// Root returns the module node.
func (f *File) Root() *sitter.Node {
	return f.tree.RootNode()
}

// Text returns the source text covered by n.
func (f *File) Text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(f.Source)
}

// NodeID is a stable, cheaply comparable identity for a node within its file:
// the byte range is unique because tree-sitter nodes never overlap exactly
// unless one wraps the other with identical extent, in which case the kind
// disambiguates.
type NodeID struct {
	Start uint32
	End   uint32
	Kind  string
}

// ID returns the identity of n.
func ID(n *sitter.Node) NodeID {
	if n == nil {
		return NodeID{}
	}
	return NodeID{Start: n.StartByte(), End: n.EndByte(), Kind: n.Type()}
}

// Position reports the 1-based line and column of n's start.
func Position(n *sitter.Node) (line, col int) {
	if n == nil {
		return 0, 0
	}
	p := n.StartPoint()
	return int(p.Row) + 1, int(p.Column) + 1
}

// Walk visits n and its named descendants in document order. Returning false
// from fn prunes the subtree.
func Walk(n *sitter.Node, fn func(*sitter.Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		Walk(n.NamedChild(i), fn)
	}
}
