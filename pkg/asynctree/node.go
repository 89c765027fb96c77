package asynctree

// asyncNode is the tree's bookkeeping shell around an element. It mirrors
// the model structure with the resolution state the model does not hold.
type asyncNode[T any] struct {
	id       uint64
	element  T
	parent   *asyncNode[T]
	children []*asyncNode[T]

	hasChildren bool
	resolved    bool
	stale       bool
	disposed    bool

	// generation increases every time a fetch for this node starts; a
	// fetch result is applied only while it is still the latest.
	generation uint64

	// initialCollapsed is the collapsed state used when the node is first
	// rendered.
	initialCollapsed bool
}

func (n *asyncNode[T]) forEach(fn func(*asyncNode[T])) {
	fn(n)
	for _, child := range n.children {
		child.forEach(fn)
	}
}
