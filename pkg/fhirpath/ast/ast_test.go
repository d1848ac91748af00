package ast

import "testing"

func TestTreeAddAndChild(t *testing.T) {
	tree := NewTree("a.b", false)
	a := tree.Add(Node{Kind: KindIdentifier, Text: "a"})
	b := tree.Add(Node{Kind: KindIdentifier, Text: "b"})
	inv := tree.Add(Node{Kind: KindInvocation})
	tree.AddChild(inv, a)
	tree.AddChild(inv, b)
	tree.Root = inv

	if tree.Child(inv, 0) != a {
		t.Errorf("expected first child to be %d, got %d", a, tree.Child(inv, 0))
	}
	if tree.Child(inv, 1) != b {
		t.Errorf("expected second child to be %d, got %d", b, tree.Child(inv, 1))
	}
	if tree.Child(inv, 2) != 0 {
		t.Error("expected out-of-range child to return the sentinel index 0")
	}
	if tree.Node(a).Parent != inv {
		t.Errorf("expected a's parent to be %d, got %d", inv, tree.Node(a).Parent)
	}
}

func TestTreeNodeSentinel(t *testing.T) {
	tree := NewTree("", false)
	n := tree.Node(0)
	if n.Kind != KindInvalid {
		t.Error("expected index 0 to be the invalid sentinel")
	}
	if tree.Node(999).Kind != KindInvalid {
		t.Error("expected an out-of-range index to return the sentinel")
	}
}

func TestTreeWalk(t *testing.T) {
	tree := NewTree("a+b", false)
	a := tree.Add(Node{Kind: KindIdentifier, Text: "a"})
	b := tree.Add(Node{Kind: KindIdentifier, Text: "b"})
	bin := tree.Add(Node{Kind: KindBinary})
	tree.AddChild(bin, a)
	tree.AddChild(bin, b)
	tree.Root = bin

	var visited []int
	tree.Walk(tree.Root, func(idx int) bool {
		visited = append(visited, idx)
		return true
	})

	if len(visited) != 3 {
		t.Fatalf("expected 3 visited nodes, got %d", len(visited))
	}
	if visited[0] != bin {
		t.Error("expected pre-order walk to visit the root first")
	}
}

func TestTreeWalkStopsEarly(t *testing.T) {
	tree := NewTree("a+b", false)
	a := tree.Add(Node{Kind: KindIdentifier, Text: "a"})
	b := tree.Add(Node{Kind: KindIdentifier, Text: "b"})
	bin := tree.Add(Node{Kind: KindBinary})
	tree.AddChild(bin, a)
	tree.AddChild(bin, b)
	tree.Root = bin

	count := 0
	tree.Walk(tree.Root, func(idx int) bool {
		count++
		return false
	})
	if count != 1 {
		t.Errorf("expected walk to stop after the root, visited %d nodes", count)
	}
}

func TestNodeAtOffset(t *testing.T) {
	tree := NewTree("abc", false)
	n := tree.Add(Node{Kind: KindIdentifier, Text: "abc", Range: Range{
		Start: Position{Offset: 0, Line: 1, Column: 1},
		End:   Position{Offset: 3, Line: 1, Column: 4},
	}})
	tree.Root = n

	if tree.NodeAtOffset(1) != n {
		t.Error("expected offset within the node's range to resolve to it")
	}
	if tree.NodeAtOffset(100) != 0 {
		t.Error("expected an out-of-range offset to resolve to the sentinel")
	}
}

func TestSiblings(t *testing.T) {
	tree := NewTree("a+b", false)
	a := tree.Add(Node{Kind: KindIdentifier, Text: "a"})
	b := tree.Add(Node{Kind: KindIdentifier, Text: "b"})
	bin := tree.Add(Node{Kind: KindBinary})
	tree.AddChild(bin, a)
	tree.AddChild(bin, b)
	tree.Root = bin

	siblings := tree.Siblings(a)
	if len(siblings) != 2 {
		t.Fatalf("expected 2 siblings, got %d", len(siblings))
	}

	rootSiblings := tree.Siblings(bin)
	if len(rootSiblings) != 1 || rootSiblings[0] != bin {
		t.Errorf("expected the root's siblings to be itself alone, got %v", rootSiblings)
	}
}

func TestDepth(t *testing.T) {
	tree := NewTree("a+b", false)
	a := tree.Add(Node{Kind: KindIdentifier, Text: "a"})
	bin := tree.Add(Node{Kind: KindBinary})
	tree.AddChild(bin, a)
	tree.Root = bin

	if tree.Depth(bin) != 0 {
		t.Error("expected the root's depth to be 0")
	}
	if tree.Depth(a) != 1 {
		t.Error("expected a child's depth to be 1")
	}
}

func TestTypeInfoString(t *testing.T) {
	var nilType *TypeInfo
	if nilType.String() != "<unknown>" {
		t.Error("expected a nil TypeInfo to render as <unknown>")
	}

	system := &TypeInfo{Namespace: "System", Name: "Boolean"}
	if system.String() != "System.Boolean" {
		t.Errorf("got %q, want %q", system.String(), "System.Boolean")
	}

	bare := &TypeInfo{Name: "Patient"}
	if bare.String() != "Patient" {
		t.Errorf("got %q, want %q", bare.String(), "Patient")
	}
}
