// Package ast defines the FHIRPath abstract syntax tree.
//
// Nodes live in a flat arena (Tree.Nodes) and refer to each other by index
// rather than by pointer. This keeps parent/child/sibling traversal - needed
// by the analyzer and by LSP-style tooling (hover, completion, outline) -
// free of reference cycles and lets the whole tree be copied or serialized
// as a plain slice.
package ast

import "github.com/fhirpath-go/fhirpath/pkg/fhirpath/token"

// Kind identifies the syntactic shape of a Node.
type Kind int

const (
	// KindInvalid marks the zero Node; index 0 of a Tree is never a real node.
	KindInvalid Kind = iota

	KindLiteral     // null/bool/number/string/date/datetime/time/quantity
	KindThis        // $this
	KindIndexVar    // $index
	KindTotalVar    // $total
	KindVariable    // %name / %resource / %context
	KindIdentifier  // bare member-access name (as a standalone term, e.g. "name")
	KindUnary       // +expr / -expr
	KindBinary      // left Op right
	KindInvocation  // base . member   (member is Children[1]: Identifier/Function/This/Index/Total)
	KindIndexer     // base [ index ]
	KindFunction    // name ( args... )
	KindTypeExpr    // expr is Type / expr as Type
	KindParen       // (expr) - kept only in LSP mode for accurate ranges/trivia
	KindError       // unparsable fragment, produced during recovery
)

// LitKind distinguishes the literal categories folded into KindLiteral.
type LitKind int

const (
	LitNull LitKind = iota
	LitBoolean
	LitNumber
	LitString
	LitDate
	LitDateTime
	LitTime
	LitQuantity
)

// Position mirrors token.Position; duplicated here so ast does not need to
// import lexer internals beyond the token package.
type Position = token.Position

// Range is a half-open [Start, End) source span.
type Range struct {
	Start Position
	End   Position
}

// TypeInfo is the static type the analyzer infers for a node. It is left
// nil by the parser and filled in by a subsequent analyzer pass.
type TypeInfo struct {
	Namespace   string // "System" or "FHIR"
	Name        string // e.g. "String", "Patient", "Quantity"
	Collection  bool   // true if the expression may yield >1 item
	Unresolved  bool   // true if the analyzer could not determine a type
}

func (t *TypeInfo) String() string {
	if t == nil {
		return "<unknown>"
	}
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

// Node is one arena slot. Interpretation of Op/Text/Lit depends on Kind;
// see the Kind constants above for the field meaning of each shape.
type Node struct {
	ID       int
	Kind     Kind
	Range    Range
	Parent   int // -1 for the root
	Children []int

	Op   token.Type // KindUnary, KindBinary, KindTypeExpr operator token
	Text string      // identifier/function/variable name, type name, literal raw text, error message
	Lit  LitKind     // valid when Kind == KindLiteral

	// Raw/Trivia are populated only when the tree was built in LSP mode.
	Raw    string
	Trivia string

	Type *TypeInfo // filled in by the analyzer; nil until then
}

// Tree is the arena holding every Node of a parsed expression. Nodes[0] is
// a sentinel; real nodes start at index 1 so that the zero value of an int
// index reliably means "absent".
type Tree struct {
	Source string
	Nodes  []Node
	Root   int

	// LSPMode indicates the tree retains trivia, parenthesis nodes and
	// full position information for editor tooling. Standard mode omits
	// Paren nodes and trivia text to keep evaluation-only parses lean.
	LSPMode bool
}

// NewTree creates an empty arena with the sentinel node in place.
func NewTree(source string, lspMode bool) *Tree {
	t := &Tree{Source: source, LSPMode: lspMode}
	t.Nodes = append(t.Nodes, Node{Kind: KindInvalid, Parent: -1})
	return t
}

// Add appends a new node and returns its index. Parent is set to -1;
// callers attach children via SetChildren/AddChild which also stamps Parent.
func (t *Tree) Add(n Node) int {
	n.ID = len(t.Nodes)
	n.Parent = -1
	t.Nodes = append(t.Nodes, n)
	return n.ID
}

// AddChild appends childIdx to parentIdx's Children and stamps the child's
// Parent pointer.
func (t *Tree) AddChild(parentIdx, childIdx int) {
	t.Nodes[parentIdx].Children = append(t.Nodes[parentIdx].Children, childIdx)
	t.Nodes[childIdx].Parent = parentIdx
}

// Node returns a pointer to the node at idx. Index 0 (or any out-of-range
// index) returns the sentinel/zero node.
func (t *Tree) Node(idx int) *Node {
	if idx <= 0 || idx >= len(t.Nodes) {
		return &t.Nodes[0]
	}
	return &t.Nodes[idx]
}

// Child returns the n-th child of idx, or 0 (the invalid sentinel) if absent.
func (t *Tree) Child(idx, n int) int {
	node := t.Node(idx)
	if n < 0 || n >= len(node.Children) {
		return 0
	}
	return node.Children[n]
}

// Walk performs a pre-order traversal over the subtree rooted at idx,
// calling visit(nodeIdx) for every node including idx itself. Stops early
// if visit returns false.
func (t *Tree) Walk(idx int, visit func(int) bool) {
	if idx <= 0 || idx >= len(t.Nodes) {
		return
	}
	if !visit(idx) {
		return
	}
	for _, c := range t.Node(idx).Children {
		t.Walk(c, visit)
	}
}

// NodeAtOffset returns the innermost node whose Range contains offset, used
// by cursor-synthesis/completion tooling to locate the expression fragment
// under the editing caret. Returns 0 if nothing matches.
func (t *Tree) NodeAtOffset(offset int) int {
	best := 0
	t.Walk(t.Root, func(idx int) bool {
		n := t.Node(idx)
		if n.Range.Start.Offset <= offset && offset <= n.Range.End.Offset {
			best = idx
		}
		return true
	})
	return best
}

// Siblings returns the full Children slice of idx's parent, i.e. idx and
// its siblings in source order.
func (t *Tree) Siblings(idx int) []int {
	p := t.Node(idx).Parent
	if p <= 0 {
		if idx == t.Root {
			return []int{idx}
		}
		return nil
	}
	return t.Node(p).Children
}

// Depth returns the number of ancestors of idx (0 for the root).
func (t *Tree) Depth(idx int) int {
	d := 0
	for cur := t.Node(idx).Parent; cur > 0; cur = t.Node(cur).Parent {
		d++
	}
	return d
}
