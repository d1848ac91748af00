// Package ctxstate implements the structural-inheritance (prototype-chain)
// context used by both the analyzer's static type environment and the
// interpreter's runtime Context.
//
// Re-binding $this/$index/$total/a variable on every "where"/"select"
// iteration is the hottest path in evaluation. Copying a full variable map
// per element would be O(n) per rebind; instead each derived Frame stores
// only the bindings introduced at that layer plus a pointer to its parent,
// so Derive is O(1) and lookup walks at most as many layers as there are
// nested iterators (shallow in practice - FHIRPath expressions rarely
// nest more than a handful of where/select calls).
package ctxstate

// Frame is one immutable layer of a variable-binding chain. The zero value
// is not useful; construct via NewRoot.
type Frame struct {
	parent *Frame
	vars   map[string]any
}

// NewRoot creates the base frame of a chain with the given initial bindings.
func NewRoot(initial map[string]any) *Frame {
	if initial == nil {
		initial = map[string]any{}
	}
	return &Frame{vars: initial}
}

// Derive returns a new Frame that shadows name with value, leaving every
// other binding visible through the parent chain. The receiver is never
// mutated, so a saved Frame reference remains valid after Derive is called.
func (f *Frame) Derive(name string, value any) *Frame {
	return &Frame{parent: f, vars: map[string]any{name: value}}
}

// DeriveMany derives several bindings in one new layer.
func (f *Frame) DeriveMany(bindings map[string]any) *Frame {
	return &Frame{parent: f, vars: bindings}
}

// Lookup walks the chain from f outward (innermost binding wins) and
// returns the first match for name.
func (f *Frame) Lookup(name string) (any, bool) {
	for cur := f; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Depth returns how many Derive layers separate f from the chain root.
func (f *Frame) Depth() int {
	d := 0
	for cur := f; cur != nil && cur.parent != nil; cur = cur.parent {
		d++
	}
	return d
}

// Well-known binding names shared by the analyzer and the interpreter, kept
// here so both sides agree on the key without importing each other.
const (
	KeyThis  = "$this"
	KeyIndex = "$index"
	KeyTotal = "$total"
)
