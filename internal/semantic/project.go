package semantic

import (
	"path/filepath"
	"strings"
	"sync"

	"pycheck/internal/memo"
	"pycheck/internal/scope"
	"pycheck/internal/syntax"
)

// Project is the query context: the set of files under analysis plus the
// memoized derived-fact tables. All queries are pure functions over the
// immutable files; results are owned by the tables, shared read-only, and
// replaced wholesale on invalidation.
type Project struct {
	files   map[string]*syntax.File
	indexes map[string]*scope.Index
	modules map[string]*Module

	builtins *Module
	revision memo.Revision

	mu      sync.Mutex
	classes map[classKey]*Class

	basesTable     *memo.Table[*Class, []Type]
	mroTable       *memo.Table[*Class, MroResult]
	metaclassTable *memo.Table[*Class, MetaclassResult]
	cycleTable     *memo.Table[*Class, InheritanceCycle]
	placeTable     *memo.Table[PlaceKey, Place]
}

type classKey struct {
	file string
	node syntax.NodeID
}

// NewProject creates an empty project with a synthesized builtins module.
func NewProject() *Project {
	p := &Project{
		files:    make(map[string]*syntax.File),
		indexes:  make(map[string]*scope.Index),
		modules:  make(map[string]*Module),
		builtins: builtinsModule(),
		revision: memo.NewRevision(),
		classes:  make(map[classKey]*Class),
	}
	p.initTables()
	return p
}

func (p *Project) initTables() {
	p.basesTable = memo.NewCycleTable[*Class, []Type](
		"explicit-bases",
		func(*Class) []Type { return nil },
		nil,
	)
	p.mroTable = memo.NewCycleTable[*Class, MroResult](
		"mro",
		func(c *Class) MroResult {
			return MroResult{Mro: fallbackMro(c), Err: &MroError{Kind: MroCycle, Class: c, Fallback: fallbackMro(c)}}
		},
		nil,
	)
	p.metaclassTable = memo.NewCycleTable[*Class, MetaclassResult](
		"metaclass",
		func(*Class) MetaclassResult { return MetaclassResult{Metaclass: UnresolvedType()} },
		nil,
	)
	// Classifying a class re-enters itself when a base expression reads a
	// member off the class being classified (class C(C.X)). The provisional
	// answer is optimistic; iteration settles on the real classification.
	p.cycleTable = memo.NewCycleTable[*Class, InheritanceCycle](
		"inheritance-cycle",
		func(*Class) InheritanceCycle { return NoInheritanceCycle },
		nil,
	)
	p.placeTable = memo.NewCycleTable[PlaceKey, Place](
		"place",
		func(key PlaceKey) Place {
			return DefinedPlace(DivergentType{Key: key}, OriginInferred, AlwaysBound, NoWidening)
		},
		mergePlaceIterations,
	)
}

// AddFile parses src and registers it under path. The module name is the
// path stem.
func (p *Project) AddFile(path string, src []byte) (*syntax.File, error) {
	f, err := syntax.ParseFile(path, src)
	if err != nil {
		return nil, err
	}
	p.files[path] = f
	p.indexes[path] = scope.BuildIndex(f)
	name := moduleName(path)
	p.modules[name] = &Module{Name: name, File: f}
	return f, nil
}

// RemoveFile drops a file and invalidates every derived fact.
func (p *Project) RemoveFile(path string) {
	if _, ok := p.files[path]; !ok {
		return
	}
	delete(p.files, path)
	delete(p.indexes, path)
	delete(p.modules, moduleName(path))
	p.Invalidate()
}

// Invalidate replaces the revision token and resets every query table.
// Cached results are replaced wholesale, never edited in place.
func (p *Project) Invalidate() {
	p.revision = memo.NewRevision()
	p.mu.Lock()
	p.classes = make(map[classKey]*Class)
	p.mu.Unlock()
	p.initTables()
}

// Revision returns the current invalidation epoch.
func (p *Project) Revision() memo.Revision { return p.revision }

// Paths returns the registered file paths in no particular order.
func (p *Project) Paths() []string {
	out := make([]string, 0, len(p.files))
	for path := range p.files {
		out = append(out, path)
	}
	return out
}

// File returns a registered file by path.
func (p *Project) File(path string) (*syntax.File, bool) {
	f, ok := p.files[path]
	return f, ok
}

// Index returns a file's scope index.
func (p *Project) Index(path string) (*scope.Index, bool) {
	ix, ok := p.indexes[path]
	return ix, ok
}

// ModuleByName returns a registered module, or the builtins module for
// "builtins".
func (p *Project) ModuleByName(name string) (*Module, bool) {
	if name == "builtins" {
		return p.builtins, true
	}
	m, ok := p.modules[name]
	return m, ok
}

// ClassFor interns the semantic class for a class definition.
func (p *Project) ClassFor(f *syntax.File, def syntax.ClassDef) *Class {
	key := classKey{file: f.Path, node: def.ID()}
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.classes[key]; ok {
		return c
	}
	c := &Class{
		Name:  def.Name(),
		File:  f,
		Def:   def,
		Known: knownTagFor(f, def.Name()),
	}
	p.classes[key] = c
	return c
}

// knownTagFor marks classes in stub files whose names collide with the
// well-known set; source classes never get a tag.
func knownTagFor(f *syntax.File, name string) KnownClass {
	if !f.IsStub {
		return KnownNothing
	}
	for tag, n := range knownClassNames {
		if n == name {
			return tag
		}
	}
	return KnownNothing
}

// KnownClassLiteral resolves a well-known class by tag from the builtins
// module, warning once per process when absent.
func (p *Project) KnownClassLiteral(tag KnownClass) (*Class, bool) {
	t, ok := p.builtins.SyntheticMember(tag.Name())
	if !ok {
		warnMissingKnownClass(tag.Name())
		return nil, false
	}
	lit, ok := t.(ClassLiteralType)
	if !ok {
		warnMissingKnownClass(tag.Name())
		return nil, false
	}
	return lit.Class, true
}

// objectClass returns the implicit universal base.
func (p *Project) objectClass() *Class {
	c, _ := p.KnownClassLiteral(KnownObject)
	return c
}

func moduleName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return base
}
