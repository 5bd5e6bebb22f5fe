package semantic

import (
	"fmt"
	"log"
	"sync"

	set "github.com/hashicorp/go-set/v3"

	"pycheck/internal/syntax"
)

// KnownClass tags classes that the checker must recognize structurally, such
// as object, type and the builtin value classes. Zero means "no tag".
type KnownClass int

const (
	KnownNothing KnownClass = iota
	KnownObject
	KnownType
	KnownInt
	KnownFloat
	KnownBool
	KnownStr
	KnownBytes
	KnownTuple
	KnownList
	KnownDict
	KnownNoneType
	KnownBaseException
	KnownException
)

var knownClassNames = map[KnownClass]string{
	KnownObject:        "object",
	KnownType:          "type",
	KnownInt:           "int",
	KnownFloat:         "float",
	KnownBool:          "bool",
	KnownStr:           "str",
	KnownBytes:         "bytes",
	KnownTuple:         "tuple",
	KnownList:          "list",
	KnownDict:          "dict",
	KnownNoneType:      "NoneType",
	KnownBaseException: "BaseException",
	KnownException:     "Exception",
}

// Name returns the class name the tag corresponds to.
func (k KnownClass) Name() string { return knownClassNames[k] }

// Class is a class definition's semantic identity. The struct itself is a
// stable, cheaply comparable handle: one Class is created per defining node
// (or per synthesized builtin) and interned in the project registry, so
// pointer equality is identity. All derived facts (bases, MRO, metaclass,
// members) are memoized queries keyed by this handle, not fields.
type Class struct {
	Name  string
	Known KnownClass

	// Source-backed classes.
	File *syntax.File
	Def  syntax.ClassDef

	// Synthesized builtins carry their ancestry directly instead of syntax.
	synthetic  bool
	synthBases []*Class
}

// IsSynthetic reports whether the class was synthesized (builtins) rather
// than parsed from source.
func (c *Class) IsSynthetic() bool { return c.synthetic }

func (c *Class) String() string { return c.Name }

// BodyScope returns the identity of the class's body scope defining node.
func (c *Class) BodyScope() syntax.NodeID {
	return c.Def.ID()
}

// ClassBase is one entry of an MRO or base list: either a concrete class or
// a dynamic placeholder recording why the entry is not statically known. The
// variant is matched exhaustively at each MRO step so the one dynamic kind
// that must be skipped (DynamicProtocol) stays an explicit, auditable case.
type ClassBase struct {
	class   *Class
	dynamic DynamicKind
}

// ClassBaseOf wraps a concrete class.
func ClassBaseOf(c *Class) ClassBase { return ClassBase{class: c} }

// DynamicBase wraps a dynamic placeholder.
func DynamicBase(kind DynamicKind) ClassBase { return ClassBase{dynamic: kind} }

// Class returns the concrete class, if the base is not dynamic.
func (b ClassBase) Class() (*Class, bool) { return b.class, b.class != nil }

// IsDynamic reports whether the base is a placeholder.
func (b ClassBase) IsDynamic() bool { return b.class == nil }

// DynamicKind returns the placeholder kind; only meaningful when IsDynamic.
func (b ClassBase) DynamicKind() DynamicKind { return b.dynamic }

func (b ClassBase) String() string {
	if b.class != nil {
		return b.class.Name
	}
	return dynamicNames[b.dynamic]
}

// Type returns the base as a type: the class literal, or the placeholder.
func (b ClassBase) Type() Type {
	if b.class != nil {
		return ClassLiteralType{Class: b.class}
	}
	return DynamicType{Kind: b.dynamic}
}

// Mro is a linearized ancestry. The subject class is always first; every
// entry is either a concrete ancestor or a dynamic placeholder.
type Mro []ClassBase

// AsTuple exposes the MRO as a tuple-shaped value.
func (m Mro) AsTuple() Type {
	elements := make([]Type, len(m))
	for i, b := range m {
		elements[i] = b.Type()
	}
	return NewTupleType(FixedTuple(elements...))
}

func (m Mro) String() string {
	parts := make([]string, len(m))
	for i, b := range m {
		parts[i] = b.String()
	}
	return fmt.Sprintf("%v", parts)
}

// fallbackMro is the degenerate MRO used when linearization is impossible or
// a cycle is detected: the class linked directly to the unresolved
// placeholder.
func fallbackMro(c *Class) Mro {
	return Mro{ClassBaseOf(c), DynamicBase(DynamicUnresolved)}
}

// Module is a namespace of top-level places: either a parsed file or the
// synthesized builtins module.
type Module struct {
	Name string
	File *syntax.File

	// Synthesized members, for modules with no backing file.
	synth map[string]Type
}

// SyntheticMember returns a synthesized member type by name.
func (m *Module) SyntheticMember(name string) (Type, bool) {
	t, ok := m.synth[name]
	return t, ok
}

// builtinsModule synthesizes the well-known standard-library classes. The
// hierarchy is fixed: everything roots at object, bool derives int,
// Exception derives BaseException.
func builtinsModule() *Module {
	object := &Class{Name: "object", Known: KnownObject, synthetic: true}
	newClass := func(name string, known KnownClass, bases ...*Class) *Class {
		if len(bases) == 0 {
			bases = []*Class{object}
		}
		return &Class{Name: name, Known: known, synthetic: true, synthBases: bases}
	}

	typ := newClass("type", KnownType)
	intClass := newClass("int", KnownInt)
	baseExc := newClass("BaseException", KnownBaseException)

	classes := []*Class{
		object,
		typ,
		intClass,
		newClass("float", KnownFloat),
		newClass("bool", KnownBool, intClass),
		newClass("str", KnownStr),
		newClass("bytes", KnownBytes),
		newClass("tuple", KnownTuple),
		newClass("list", KnownList),
		newClass("dict", KnownDict),
		newClass("NoneType", KnownNoneType),
		baseExc,
		newClass("Exception", KnownException, baseExc),
	}

	synth := make(map[string]Type, len(classes))
	for _, c := range classes {
		synth[c.Name] = ClassLiteralType{Class: c}
	}
	return &Module{Name: "builtins", synth: synth}
}

// missingClassWarnings deduplicates the once-per-process warning emitted when
// a well-known class cannot be found. It is owned by this one lookup path and
// initialized lazily on first use.
type missingClassWarnings struct {
	mu   sync.Mutex
	seen *set.Set[string]
}

var missingWarnings missingClassWarnings

func warnMissingKnownClass(name string) {
	missingWarnings.mu.Lock()
	defer missingWarnings.mu.Unlock()
	if missingWarnings.seen == nil {
		missingWarnings.seen = set.New[string](4)
	}
	if missingWarnings.seen.Contains(name) {
		return
	}
	missingWarnings.seen.Insert(name)
	log.Printf("warning: well-known class %q not found in builtins", name)
}
