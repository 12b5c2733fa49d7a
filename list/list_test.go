package list

import "testing"

func TestEmptyList(t *testing.T) {
	var head Node
	head.Init()
	if !head.Empty() {
		t.Fatalf("freshly initialized list should be empty")
	}
	if head.First() != &head || head.Last() != &head {
		t.Fatalf("First/Last of an empty list should be the head itself")
	}
}

func TestInsertHeadTailOrder(t *testing.T) {
	var head Node
	head.Init()

	a := NewNode("a")
	b := NewNode("b")
	c := NewNode("c")

	InsertTail(&head, b)
	InsertHead(&head, a)
	InsertTail(&head, c)

	var got []string
	ForEach(&head, func(n *Node) {
		got = append(got, n.Value().(string))
	})
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if head.Singular() {
		t.Fatalf("list of three elements should not report Singular")
	}
}

func TestRemoveAndUnlink(t *testing.T) {
	var head Node
	head.Init()

	a := NewNode(1)
	b := NewNode(2)
	InsertTail(&head, a)
	InsertTail(&head, b)

	Remove(a)
	if !a.Unlinked() {
		t.Fatalf("removed node should report Unlinked")
	}
	if head.First() != b {
		t.Fatalf("after removing a, head's first element should be b")
	}
	if !head.Singular() {
		t.Fatalf("list of one element should report Singular")
	}
}

func TestPopFirst(t *testing.T) {
	var head Node
	head.Init()

	if PopFirst(&head) != nil {
		t.Fatalf("PopFirst on an empty list should return nil")
	}

	a := NewNode("only")
	InsertTail(&head, a)

	popped := PopFirst(&head)
	if popped != a {
		t.Fatalf("PopFirst should return the inserted node")
	}
	if !head.Empty() {
		t.Fatalf("list should be empty after popping its only element")
	}
	if !popped.Unlinked() {
		t.Fatalf("popped node should be unlinked")
	}
}

func TestInsertAfter(t *testing.T) {
	var head Node
	head.Init()

	a := NewNode("a")
	c := NewNode("c")
	InsertTail(&head, a)
	InsertTail(&head, c)

	b := NewNode("b")
	InsertAfter(b, a)

	var got []string
	ForEach(&head, func(n *Node) { got = append(got, n.Value().(string)) })
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
