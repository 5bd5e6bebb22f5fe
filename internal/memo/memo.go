// Package memo provides cached, cycle-aware query tables.
//
// A Table memoizes a pure function keyed by a comparable identity. When a
// query re-enters itself (directly or through a chain of other queries), the
// table hands back a provisional value supplied by the table's cycle policy
// and re-runs the query body until two consecutive iterations produce equal
// results. Callers must keep the iteration monotone (results only grow), so
// the fixed point is reached in finitely many steps.
package memo

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// maxIterations bounds fixed-point iteration. A well-behaved monotone query
// converges long before this; hitting the bound indicates a non-monotone
// recovery function, and the last iterate is kept rather than looping forever.
const maxIterations = 64

// Ctx carries the evaluation state of one synchronous query tree. It tracks
// which (table, key) pairs are currently being computed so that re-entrant
// calls can be recognized as cycles. A Ctx is used by a single goroutine.
type Ctx struct {
	active map[activeKey]*frame
	stack  []*frame
}

type activeKey struct {
	table string
	key   any
}

type frame struct {
	depth       int
	provisional any
	hit         bool // a nested call re-entered this frame's key
	tainted     bool // this frame's result depends on a provisional value
}

// NewCtx returns an empty evaluation context.
func NewCtx() *Ctx {
	return &Ctx{active: make(map[activeKey]*frame)}
}

// Table is a memoized query table mapping K to V.
type Table[K comparable, V any] struct {
	name string

	mu      sync.Mutex
	entries map[K]V

	initial func(K) V
	recover func(prev, next V) V
	equal   func(a, b V) bool
}

// NewTable returns a table with no cycle policy: a re-entrant query is a
// programming error and panics.
func NewTable[K comparable, V any](name string) *Table[K, V] {
	return &Table[K, V]{
		name:    name,
		entries: make(map[K]V),
		equal:   func(a, b V) bool { return reflect.DeepEqual(a, b) },
	}
}

// NewCycleTable returns a table whose queries may depend on themselves.
// initial supplies the provisional value handed to re-entrant calls; recover
// combines the previous and current iterates into the next provisional value
// (it must be monotone). A nil recover keeps the current iterate as-is.
func NewCycleTable[K comparable, V any](name string, initial func(K) V, recover func(prev, next V) V) *Table[K, V] {
	t := NewTable[K, V](name)
	t.initial = initial
	t.recover = recover
	return t
}

// WithEqual replaces the convergence test (default reflect.DeepEqual).
func (t *Table[K, V]) WithEqual(eq func(a, b V) bool) *Table[K, V] {
	t.equal = eq
	return t
}

func (t *Table[K, V]) get(key K) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.entries[key]
	return v, ok
}

func (t *Table[K, V]) put(key K, v V) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[key] = v
}

// Active reports whether key is currently being computed somewhere in ctx's
// query tree. Results observed while a key is active may still carry that
// key's provisional value.
func (t *Table[K, V]) Active(ctx *Ctx, key K) bool {
	_, ok := ctx.active[activeKey{table: t.name, key: key}]
	return ok
}

// Invalidate drops the cached result for key, if any.
func (t *Table[K, V]) Invalidate(key K) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key)
}

// Reset drops every cached result.
func (t *Table[K, V]) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[K]V)
}

// Len reports the number of cached results.
func (t *Table[K, V]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Do returns the cached value for key, computing and caching it if absent.
// compute receives the same Ctx so nested queries share cycle detection.
func (t *Table[K, V]) Do(ctx *Ctx, key K, compute func(*Ctx) V) V {
	if v, ok := t.get(key); ok {
		return v
	}

	ak := activeKey{table: t.name, key: key}
	if f, ok := ctx.active[ak]; ok {
		// Re-entrant call: hand back the provisional value and taint every
		// frame above the cycle head so their results are not cached.
		if t.initial == nil {
			panic(fmt.Sprintf("memo: unexpected cycle in table %q on key %v", t.name, key))
		}
		f.hit = true
		for _, above := range ctx.stack[f.depth+1:] {
			above.tainted = true
		}
		return f.provisional.(V)
	}

	f := &frame{depth: len(ctx.stack)}
	if t.initial != nil {
		f.provisional = t.initial(key)
	}
	ctx.active[ak] = f
	ctx.stack = append(ctx.stack, f)
	defer func() {
		delete(ctx.active, ak)
		ctx.stack = ctx.stack[:len(ctx.stack)-1]
	}()

	var result V
	for iter := 0; ; iter++ {
		f.hit = false
		innerTaint := f.tainted
		f.tainted = false
		result = compute(ctx)
		cycled := f.hit
		f.tainted = f.tainted || innerTaint

		if !cycled {
			break
		}

		prev := f.provisional.(V)
		if t.equal(prev, result) {
			break
		}
		next := result
		if t.recover != nil {
			next = t.recover(prev, result)
		}
		f.provisional = next
		if t.equal(prev, next) {
			result = next
			break
		}
		if iter+1 >= maxIterations {
			result = next
			break
		}
	}

	if !f.tainted {
		t.put(key, result)
	}
	return result
}

// Revision is an opaque invalidation epoch. Hosts mint a new revision when
// inputs change and reset their tables; in-flight work from the previous
// revision is simply abandoned.
type Revision struct {
	id uuid.UUID
}

// NewRevision mints a fresh revision token.
func NewRevision() Revision {
	return Revision{id: uuid.New()}
}

func (r Revision) String() string { return r.id.String() }
