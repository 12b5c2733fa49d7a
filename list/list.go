// Package list implements an intrusive circular doubly-linked list, the
// shared low-level primitive used by every wait queue and run queue in this
// module (scheduler run queues, mutex/condvar waiter lists, the timer
// deadline list).
//
// A single Node type serves as both list head and list element, exactly as
// in the C source this module was adapted from: an empty list is a Node
// whose prev and next both point back to itself.
package list

// Node is both a list head and a list element. The zero value is not a
// valid list; call Init before use.
type Node struct {
	prev, next *Node
	v          any
}

// NewNode returns a detached node carrying v, ready to be inserted into a
// list. v is retrieved again with Value after a traversal.
func NewNode(v any) *Node {
	n := &Node{v: v}
	n.Unlink()
	return n
}

// Value returns the payload stored in n.
func (n *Node) Value() any {
	return n.v
}

// Unlink marks n as belonging to no list. A node initialized this way
// reports true from Unlinked.
func (n *Node) Unlink() {
	n.prev = nil
	n.next = nil
}

// Unlinked reports whether n is currently in no list.
func (n *Node) Unlinked() bool {
	return n.prev == nil
}

// Init turns n into an empty list head.
func (n *Node) Init() {
	n.prev = n
	n.next = n
}

// Empty reports whether the list headed by n has no elements.
func (n *Node) Empty() bool {
	return n.next == n
}

// Singular reports whether the list headed by n has exactly one element.
func (n *Node) Singular() bool {
	return !n.Empty() && n.next == n.prev
}

// First returns the first element of the list headed by n, or n itself
// (the end-of-list sentinel) if the list is empty.
func (n *Node) First() *Node {
	return n.next
}

// Last returns the last element of the list headed by n, or n itself if
// the list is empty.
func (n *Node) Last() *Node {
	return n.prev
}

// Next returns the node following n.
func (n *Node) Next() *Node {
	return n.next
}

// Prev returns the node preceding n.
func (n *Node) Prev() *Node {
	return n.prev
}

// End reports whether node denotes the head of list, i.e. traversal should
// stop.
func End(list, node *Node) bool {
	return list == node
}

func insert(prev, next, node *Node) {
	next.prev = node
	node.next = next
	prev.next = node
	node.prev = prev
}

// InsertHead inserts node as the first element of the list headed by head.
func InsertHead(head, node *Node) {
	insert(head, head.next, node)
}

// InsertTail inserts node as the last element of the list headed by head.
func InsertTail(head, node *Node) {
	insert(head.prev, head, node)
}

// InsertBefore inserts node immediately before at.
func InsertBefore(node, at *Node) {
	insert(at.prev, at, node)
}

// InsertAfter inserts node immediately after at.
func InsertAfter(node, at *Node) {
	insert(at, at.next, node)
}

// Remove detaches node from whatever list it belongs to and marks it
// unlinked.
func Remove(node *Node) {
	node.prev.next = node.next
	node.next.prev = node.prev
	node.Unlink()
}

// PopFirst removes and returns the first element of the list headed by
// head, or nil if the list is empty.
func PopFirst(head *Node) *Node {
	if head.Empty() {
		return nil
	}
	n := head.next
	Remove(n)
	return n
}

// ForEach calls fn for every element of the list headed by head, in
// order. fn must not remove nodes other than the one it is called with.
func ForEach(head *Node, fn func(n *Node)) {
	for n := head.next; !End(head, n); n = n.next {
		fn(n)
	}
}
