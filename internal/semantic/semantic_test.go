package semantic

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pycheck/internal/memo"
	"pycheck/internal/scope"
	"pycheck/internal/syntax"
)

func projectWithSource(t *testing.T, src string) (*Project, *syntax.File) {
	t.Helper()
	p := NewProject()
	f, err := p.AddFile("main.py", []byte(src))
	require.NoError(t, err)
	return p, f
}

func classNamed(t *testing.T, p *Project, f *syntax.File, name string) *Class {
	t.Helper()
	for _, def := range f.ClassDefs() {
		if def.Name() == name {
			return p.ClassFor(f, def)
		}
	}
	t.Fatalf("no class %q in %s", name, f.Path)
	return nil
}

func moduleScope(t *testing.T, p *Project, f *syntax.File) *scope.Scope {
	t.Helper()
	ix, ok := p.Index(f.Path)
	require.True(t, ok)
	return ix.Module
}

func lookup(t *testing.T, p *Project, f *syntax.File, name string) Place {
	t.Helper()
	return p.LookupName(memo.NewCtx(), moduleScope(t, p, f), name)
}

func mroNames(mro Mro) []string {
	out := make([]string, len(mro))
	for i, b := range mro {
		out[i] = b.String()
	}
	return out
}

func (p *Project) mustKnown(t *testing.T, tag KnownClass) *Class {
	t.Helper()
	c, ok := p.KnownClassLiteral(tag)
	require.True(t, ok, "missing builtin %s", tag.Name())
	return c
}

func instance(t *testing.T, p *Project, tag KnownClass) Type {
	t.Helper()
	return InstanceType{Class: p.mustKnown(t, tag)}
}
