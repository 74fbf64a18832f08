package nodel

import "testing"

func TestGraphSallocLinksParentAndChild(t *testing.T) {
	g := NewGraph()
	defer g.Kill()

	root := g.Alloc()
	key := NewSym("child")
	child := g.Salloc(root, key)
	if child == NullRef {
		t.Fatal("Salloc of a live parent should not fail")
	}

	got := g.Get(root, key)
	ref, ok := got.Ref()
	if !ok || ref != child {
		t.Fatalf("Get(root, child) = %v, want RefVal(%d)", got, child)
	}
	if g.BackrefSize(child) != 1 || g.BackrefIndex(child, 0) != root {
		t.Fatalf("child should have exactly one back-reference from root")
	}
}

func TestGraphSallocOfDeadParentFails(t *testing.T) {
	g := NewGraph()
	defer g.Kill()

	root := g.Alloc()
	g.Unmark(root)
	g.Clean()

	if g.Live(root) {
		t.Fatal("root should have been collected")
	}
	if child := g.Salloc(root, NewSym("x")); child != NullRef {
		t.Fatal("Salloc against a dead parent should return NullRef")
	}
}

func TestGraphSetMaintainsBackrefsOnOverwrite(t *testing.T) {
	g := NewGraph()
	defer g.Kill()

	root := g.Alloc()
	a := g.Salloc(root, NewSym("dst"))
	b := g.Alloc()

	if err := g.Set(root, NewSym("dst"), RefVal(b)); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	if g.BackrefSize(a) != 0 {
		t.Fatalf("a should lose its back-reference once root stops pointing at it, got %d", g.BackrefSize(a))
	}
	if g.BackrefSize(b) != 1 || g.BackrefIndex(b, 0) != root {
		t.Fatal("b should gain the back-reference root now holds")
	}
}

func TestGraphDelRemovesBackref(t *testing.T) {
	g := NewGraph()
	defer g.Kill()

	root := g.Alloc()
	key := NewSym("dst")
	child := g.Salloc(root, key)

	if err := g.Del(root, key); err != nil {
		t.Fatalf("Del returned error: %v", err)
	}
	if _, ok := g.Get(root, key).Ref(); ok {
		t.Fatal("key should be gone from root")
	}
	if g.BackrefSize(child) != 0 {
		t.Fatal("child's back-reference should be scrubbed by Del")
	}
}

func TestGraphOperationsOnDeadRefAreSafe(t *testing.T) {
	g := NewGraph()
	defer g.Kill()

	dead := Ref(9999)
	if !g.Get(dead, NewSym("x")).IsNone() {
		t.Fatal("Get on a dead ref should return None")
	}
	if err := g.Set(dead, NewSym("x"), Int(1)); err != ErrNoSuchRef {
		t.Fatalf("Set on a dead ref = %v, want ErrNoSuchRef", err)
	}
	if err := g.Del(dead, NewSym("x")); err != ErrNoSuchRef {
		t.Fatalf("Del on a dead ref = %v, want ErrNoSuchRef", err)
	}
}

func TestGraphRootFlags(t *testing.T) {
	g := NewGraph()
	defer g.Kill()

	root := g.Alloc()
	if !g.IsRoot(root) {
		t.Fatal("Alloc should mark the new node as a root")
	}
	g.Unmark(root)
	if g.IsRoot(root) {
		t.Fatal("Unmark should clear the root flag")
	}
	g.Mark(root)
	if !g.IsRoot(root) {
		t.Fatal("Mark should set the root flag")
	}
}
