package tree

// TreeNode is the structural unit of a model. The parent owns its children;
// the back-reference to the parent is never owning and nodes are never
// re-parented, only rebuilt. All fields are maintained by the model.
type TreeNode[T any, M any] struct {
	parent       *TreeNode[T, M]
	element      T
	children     []*TreeNode[T, M]
	depth        int
	visibleCount int
	collapsible  bool
	collapsed    bool
	metadata     M
	filtered     bool
}

// Element returns the user payload of the node.
func (n *TreeNode[T, M]) Element() T {
	return n.element
}

// Parent returns the parent node, or nil for the root.
func (n *TreeNode[T, M]) Parent() *TreeNode[T, M] {
	return n.parent
}

// Children returns the ordered children of the node. The slice is owned
// by the model and must not be modified.
func (n *TreeNode[T, M]) Children() []*TreeNode[T, M] {
	return n.children
}

// Depth is 0 for the root and parent depth + 1 for every other node.
func (n *TreeNode[T, M]) Depth() int {
	return n.depth
}

// VisibleCount is the number of rows the node occupies when rendered:
// itself plus, unless collapsed, the visible count of every child.
func (n *TreeNode[T, M]) VisibleCount() int {
	return n.visibleCount
}

// Visible reports whether no ancestor of the node is collapsed.
func (n *TreeNode[T, M]) Visible() bool {
	for p := n.parent; p != nil; p = p.parent {
		if p.collapsed {
			return false
		}
	}
	return true
}

// Collapsible reports whether the node can be collapsed.
func (n *TreeNode[T, M]) Collapsible() bool {
	return n.collapsible
}

// Collapsed reports whether the node hides its descendants.
func (n *TreeNode[T, M]) Collapsed() bool {
	return n.collapsed
}

// Metadata returns the renderer metadata produced by the last filter
// pass. ok is false when the node is unfiltered.
func (n *TreeNode[T, M]) Metadata() (metadata M, ok bool) {
	return n.metadata, n.filtered
}

// Element describes a subtree to insert into a model.
type Element[T any] struct {
	Element T

	// Children are inserted below Element in the given order. During an
	// identity diff splice a nil slice on a retained node keeps the node's
	// current children; an empty non-nil slice removes them.
	Children []Element[T]

	// Collapsible defaults to whether Children is non-empty.
	Collapsible *bool

	// Collapsed defaults to the model's CollapseByDefault option.
	Collapsed *bool
}

// Bool returns a pointer to v, for the optional fields of Element.
func Bool(v bool) *bool {
	return &v
}

// Filter computes renderer metadata for an element. ok false leaves the
// node unfiltered. Filtering never changes structure or visibility.
type Filter[T any, M any] interface {
	Filter(element T) (metadata M, ok bool)
}

// FilterFunc adapts a function to the Filter interface.
type FilterFunc[T any, M any] func(element T) (M, bool)

func (f FilterFunc[T, M]) Filter(element T) (M, bool) {
	return f(element)
}

// Spliceable receives the flattened list of revealed nodes. A model calls
// Splice once per structural change with the position in the flat list,
// the number of rows to remove and the rows to insert there.
type Spliceable[E any] interface {
	Splice(start, deleteCount int, elements []E)
}
