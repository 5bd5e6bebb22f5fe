// Package checker walks files and turns semantic query results into
// diagnostics: broken class hierarchies, metaclass conflicts, unbalanced
// unpacking assignments, and possibly-undefined names.
package checker

import (
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"pycheck/internal/memo"
	"pycheck/internal/scope"
	"pycheck/internal/semantic"
	"pycheck/internal/syntax"
)

// Severity grades a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is one reported finding.
type Diagnostic struct {
	File     string   `json:"file"`
	Line     int      `json:"line"`
	Col      int      `json:"col"`
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s [%s] %s", d.File, d.Line, d.Col, d.Severity, d.Code, d.Message)
}

// Checker runs the independent per-file checks against a project.
type Checker struct {
	project *semantic.Project
}

// New returns a checker over the project.
func New(project *semantic.Project) *Checker {
	return &Checker{project: project}
}

// CheckFile produces the diagnostics for one file, ordered by position.
func (c *Checker) CheckFile(path string) []Diagnostic {
	f, ok := c.project.File(path)
	if !ok {
		return nil
	}
	ctx := memo.NewCtx()

	var out []Diagnostic
	out = append(out, c.checkClasses(ctx, f)...)
	out = append(out, c.checkUnpacking(ctx, f)...)
	out = append(out, c.checkReferences(ctx, f)...)

	sort.Slice(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Col < out[j].Col
	})
	return out
}

func (c *Checker) checkClasses(ctx *memo.Ctx, f *syntax.File) []Diagnostic {
	var out []Diagnostic
	for _, def := range f.ClassDefs() {
		class := c.project.ClassFor(f, def)
		line, col := syntax.Position(def.Node())

		if result := c.project.TryMRO(ctx, class); result.Err != nil {
			code := "inconsistent-mro"
			if result.Err.Kind == semantic.MroCycle {
				code = "cyclic-class-definition"
			} else if result.Err.Kind == semantic.MroInvalidBases {
				code = "invalid-base"
			}
			out = append(out, Diagnostic{
				File: f.Path, Line: line, Col: col,
				Code: code, Severity: SeverityError,
				Message: result.Err.Error(),
			})
		}

		if result := c.project.TryMetaclass(ctx, class); result.Err != nil {
			code := "metaclass-conflict"
			if result.Err.Kind != semantic.MetaclassConflict {
				code = "metaclass-not-callable"
			}
			out = append(out, Diagnostic{
				File: f.Path, Line: line, Col: col,
				Code: code, Severity: SeverityError,
				Message: result.Err.Error(),
			})
		}
	}
	return out
}

// checkUnpacking validates destructuring assignments whose right-hand side
// has a known tuple shape.
func (c *Checker) checkUnpacking(ctx *memo.Ctx, f *syntax.File) []Diagnostic {
	ix, ok := c.project.Index(f.Path)
	if !ok {
		return nil
	}

	var out []Diagnostic
	syntax.Walk(f.Root(), func(n *sitter.Node) bool {
		if n.Type() != "assignment" {
			return true
		}
		left := n.ChildByFieldName("left")
		right := n.ChildByFieldName("right")
		if left == nil || right == nil {
			return true
		}
		if left.Type() != "pattern_list" && left.Type() != "tuple_pattern" {
			return true
		}

		targets, star := unpackShape(left)
		if targets == 0 {
			return true
		}

		s := c.enclosingScope(ix, n)
		rhs := c.project.ExpressionType(ctx, s, right)

		unpacker := semantic.NewTupleUnpacker(targets, star)
		added := false
		for _, t := range unionMembers(rhs) {
			if tt, ok := t.(semantic.TupleType); ok {
				unpacker.Add(tt.Spec)
				added = true
			}
		}
		if !added {
			return true
		}
		if err := unpacker.Err(); err != nil {
			line, col := syntax.Position(n)
			out = append(out, Diagnostic{
				File: f.Path, Line: line, Col: col,
				Code: "unbalanced-unpacking", Severity: SeverityError,
				Message: err.Error(),
			})
		}
		return true
	})
	return out
}

// unpackShape counts assignment targets and locates the starred one (-1 when
// absent).
func unpackShape(pattern *sitter.Node) (targets, star int) {
	star = -1
	for i := 0; i < int(pattern.NamedChildCount()); i++ {
		if pattern.NamedChild(i).Type() == "list_splat_pattern" {
			star = i
		}
		targets++
	}
	return targets, star
}

func unionMembers(t semantic.Type) []semantic.Type {
	if u, ok := t.(semantic.UnionType); ok {
		return u.Elements
	}
	return []semantic.Type{t}
}

// checkReferences reports names read in load context that are undefined or
// only possibly defined.
func (c *Checker) checkReferences(ctx *memo.Ctx, f *syntax.File) []Diagnostic {
	ix, ok := c.project.Index(f.Path)
	if !ok {
		return nil
	}

	var out []Diagnostic
	syntax.Walk(f.Root(), func(n *sitter.Node) bool {
		if n.Type() != "identifier" || !isLoadContext(n) {
			return true
		}
		name := f.Text(n)
		s := c.enclosingScope(ix, n)
		place := c.project.LookupName(ctx, s, name)
		line, col := syntax.Position(n)
		switch {
		case place.IsUndefined():
			out = append(out, Diagnostic{
				File: f.Path, Line: line, Col: col,
				Code: "unresolved-reference", Severity: SeverityError,
				Message: fmt.Sprintf("name %q is not defined", name),
			})
		case place.Boundness == semantic.PossiblyUnbound:
			out = append(out, Diagnostic{
				File: f.Path, Line: line, Col: col,
				Code: "possibly-unresolved-reference", Severity: SeverityWarning,
				Message: fmt.Sprintf("name %q may be undefined", name),
			})
		}
		return true
	})
	return out
}

// enclosingScope finds the innermost scope containing n.
func (c *Checker) enclosingScope(ix *scope.Index, n *sitter.Node) *scope.Scope {
	for cur := n.Parent(); cur != nil; cur = cur.Parent() {
		switch cur.Type() {
		case "function_definition", "class_definition":
			if s, ok := ix.ScopeFor(syntax.ID(cur)); ok {
				// A name in a class head or decorator belongs to the scope
				// the definition appears in, not its body.
				if body := cur.ChildByFieldName("body"); body != nil && !covers(body, n) {
					continue
				}
				return s
			}
		}
	}
	return ix.Module
}

func covers(outer, inner *sitter.Node) bool {
	return outer.StartByte() <= inner.StartByte() && inner.EndByte() <= outer.EndByte()
}

// isLoadContext reports whether the identifier is a value read rather than a
// binding target, a definition name, a parameter, an attribute selector, or
// a keyword-argument name.
func isLoadContext(n *sitter.Node) bool {
	parent := n.Parent()
	if parent == nil {
		return false
	}
	switch parent.Type() {
	case "assignment":
		return parent.ChildByFieldName("left") != n
	case "augmented_assignment":
		// x += 1 both reads and writes; treat as a read.
		return true
	case "pattern_list", "tuple_pattern", "list_pattern", "list_splat_pattern":
		return false
	case "function_definition", "class_definition":
		return parent.ChildByFieldName("name") != n
	case "parameters", "default_parameter", "typed_parameter", "typed_default_parameter",
		"lambda_parameters", "dictionary_splat_pattern":
		return false
	case "attribute":
		return parent.ChildByFieldName("object") == n
	case "keyword_argument":
		return parent.ChildByFieldName("name") != n
	case "import_statement", "import_from_statement", "aliased_import", "dotted_name":
		return false
	case "as_pattern", "as_pattern_target":
		return false
	case "for_statement":
		return parent.ChildByFieldName("left") != n
	case "delete_statement":
		return false
	case "global_statement", "nonlocal_statement":
		return false
	case "case_pattern", "capture_pattern":
		return false
	}
	return true
}
