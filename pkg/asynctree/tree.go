package asynctree

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/mattsolo1/grove-outline/pkg/tree"
)

// Tree is an identity-aware tree populated lazily from a ChildrenProvider.
// Structure lives in a MultiTreeModel that mirrors every change into the
// sink; the Tree adds resolution state, refresh coalescing and the discard
// of superseded fetch results.
//
// Tree is safe for concurrent use. GetChildren, HasChildren and
// CollapseByDefault run without the Tree's lock held. Event listeners and
// ChildrenResolver methods run with the lock held and must not call back
// into the Tree.
type Tree[T comparable, M any] struct {
	mu sync.Mutex

	model    *tree.MultiTreeModel[T, M]
	provider ChildrenProvider[T]
	identity tree.IdentityProvider[T]

	root   *asyncNode[T]
	nodes  map[any]*asyncNode[T]
	nextID uint64

	collapsedByDefault bool
	viewState          map[string]bool

	refreshes singleflight.Group
	log       *logrus.Entry
}

// New creates a tree rooted at root. The root must have reference
// identity (a pointer or channel) unless opts.ForcePrimitiveType is set.
// The tree is empty until Refresh is called.
func New[T comparable, M any](sink tree.Spliceable[*tree.TreeNode[T, M]], root T, provider ChildrenProvider[T], opts Options[T, M]) (*Tree[T, M], error) {
	if provider == nil {
		return nil, &tree.TreeError{Op: "new tree", Err: fmt.Errorf("children provider is required: %w", tree.ErrInvalidConfiguration)}
	}
	if !opts.ForcePrimitiveType {
		if err := checkReferenceIdentity(root); err != nil {
			return nil, err
		}
	}

	log := opts.Logger
	if log == nil {
		log = tree.DiscardLogger()
	}

	t := &Tree[T, M]{
		provider:           provider,
		identity:           opts.IdentityProvider,
		nodes:              make(map[any]*asyncNode[T]),
		collapsedByDefault: opts.CollapsedByDefault,
		log:                log,
	}
	if opts.ViewState != nil {
		if opts.IdentityProvider == nil {
			log.Warn("view state ignored: it requires an identity provider")
		} else {
			t.viewState = opts.ViewState.Expanded
		}
	}

	t.model = tree.NewMultiTreeModel(root, sink, tree.MultiTreeModelOptions[T, M]{
		Filter:           opts.Filter,
		IdentityProvider: opts.IdentityProvider,
		OnDidCreateNode:  opts.OnDidCreateNode,
		OnDidDeleteData:  opts.OnDidDeleteData,
		Logger:           log,
	})

	t.root = t.newNode(root, nil)
	t.root.hasChildren = true
	return t, nil
}

func checkReferenceIdentity(root any) error {
	value := reflect.ValueOf(root)
	switch value.Kind() {
	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		if value.IsNil() {
			return &tree.TreeError{Op: "new tree", Err: fmt.Errorf("root is nil: %w", tree.ErrInvalidConfiguration)}
		}
		return nil
	case reflect.Invalid:
		return &tree.TreeError{Op: "new tree", Err: fmt.Errorf("root is nil: %w", tree.ErrInvalidConfiguration)}
	default:
		return &tree.TreeError{Op: "new tree", Err: fmt.Errorf("root of kind %s has no reference identity, set ForcePrimitiveType: %w", value.Kind(), tree.ErrInvalidConfiguration)}
	}
}

func (t *Tree[T, M]) key(element T) any {
	if t.identity != nil {
		return t.identity.GetID(element)
	}
	return element
}

func (t *Tree[T, M]) newNode(element T, parent *asyncNode[T]) *asyncNode[T] {
	t.nextID++
	node := &asyncNode[T]{id: t.nextID, element: element, parent: parent}
	if parent != nil {
		t.nodes[t.key(element)] = node
	}
	return node
}

// lookup returns the async node for element. Callers hold t.mu.
func (t *Tree[T, M]) lookup(op string, element T) (*asyncNode[T], error) {
	key := t.key(element)
	if key == t.key(t.root.element) {
		return t.root, nil
	}
	node, ok := t.nodes[key]
	if !ok {
		return nil, &tree.TreeError{Op: op, Err: fmt.Errorf("item not found in the tree: %v: %w", element, tree.ErrNotFound)}
	}
	return node, nil
}

func (t *Tree[T, M]) dispose(node *asyncNode[T]) {
	resolver, _ := t.provider.(ChildrenResolver[T])
	node.forEach(func(n *asyncNode[T]) {
		n.disposed = true
		if key := t.key(n.element); t.nodes[key] == n {
			delete(t.nodes, key)
		}
		if resolver != nil && n.resolved {
			resolver.ForgetChildren(n.element)
		}
	})
}

func (t *Tree[T, M]) isResolved(node *asyncNode[T]) bool {
	if resolver, ok := t.provider.(ChildrenResolver[T]); ok {
		return resolver.IsChildrenResolved(node.element)
	}
	return node.resolved
}

// Root returns the root element.
func (t *Tree[T, M]) Root() T {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.root.element
}

// Model exposes the underlying element-addressed model. Callers must not
// mutate it.
func (t *Tree[T, M]) Model() *tree.MultiTreeModel[T, M] {
	return t.model
}

// HasNode reports whether element is in the tree.
func (t *Tree[T, M]) HasNode(element T) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.model.Has(element)
}

// GetNode returns the model node holding element.
func (t *Tree[T, M]) GetNode(element T) (*tree.TreeNode[T, M], error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.model.GetNode(element)
}

// Children returns the last fetched children of element.
func (t *Tree[T, M]) Children(element T) ([]T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	node, err := t.lookup("children", element)
	if err != nil {
		return nil, err
	}
	children := make([]T, len(node.children))
	for i, child := range node.children {
		children[i] = child.element
	}
	return children, nil
}

// Size returns the number of nodes below the root.
func (t *Tree[T, M]) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.model.Size()
}

// GetListIndex returns element's row in the flattened list, or -1 when an
// ancestor is collapsed.
func (t *Tree[T, M]) GetListIndex(element T) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.model.GetListIndex(element)
}

// IsCollapsed reports whether element's node is collapsed.
func (t *Tree[T, M]) IsCollapsed(element T) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.model.IsCollapsed(element)
}

// IsCollapsible reports whether element's node can be collapsed.
func (t *Tree[T, M]) IsCollapsible(element T) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.model.IsCollapsible(element)
}

// IsResolved reports whether element's children have been fetched.
func (t *Tree[T, M]) IsResolved(element T) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	node, err := t.lookup("is resolved", element)
	if err != nil {
		return false, err
	}
	return t.isResolved(node), nil
}

// Invalidate marks element's children as needing a fetch. The next
// Expand of element refetches them.
func (t *Tree[T, M]) Invalidate(element T) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	node, err := t.lookup("invalidate", element)
	if err != nil {
		return err
	}
	node.stale = true
	if resolver, ok := t.provider.(ChildrenResolver[T]); ok {
		resolver.ForgetChildren(node.element)
	}
	return nil
}

// Expand expands element's node, fetching its children first when they
// were never fetched or are stale. With recursive every descendant is
// expanded and fetched as needed, including descendants discovered by
// the fetch.
func (t *Tree[T, M]) Expand(ctx context.Context, element T, recursive bool) (bool, error) {
	t.mu.Lock()
	node, err := t.lookup("expand", element)
	if err != nil {
		t.mu.Unlock()
		return false, err
	}
	needsFetch := t.needsFetch(node, recursive)
	t.mu.Unlock()

	refreshed := false
	if needsFetch {
		if err := t.refresh(ctx, node, recursive); err != nil {
			return false, err
		}
		refreshed = true
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if node.disposed {
		return false, &tree.TreeError{Op: "expand", Err: fmt.Errorf("item removed during refresh: %v: %w", element, tree.ErrNotFound)}
	}
	changed, err := t.model.SetCollapsed(node.element, false, recursive)
	if err != nil {
		return false, err
	}
	return changed || refreshed, nil
}

// needsFetch reports whether expanding node requires fetching. Callers
// hold t.mu.
func (t *Tree[T, M]) needsFetch(node *asyncNode[T], recursive bool) bool {
	pending := func(n *asyncNode[T]) bool {
		return n.hasChildren && (!t.isResolved(n) || n.stale)
	}
	if pending(node) {
		return true
	}
	if !recursive {
		return false
	}
	found := false
	node.forEach(func(n *asyncNode[T]) {
		found = found || pending(n)
	})
	return found
}

// Collapse collapses element's node. It never fetches.
func (t *Tree[T, M]) Collapse(element T, recursive bool) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.model.SetCollapsed(element, true, recursive)
}

// ToggleCollapseOrExpand collapses an expanded node and expands a
// collapsed one, fetching like Expand does.
func (t *Tree[T, M]) ToggleCollapseOrExpand(ctx context.Context, element T, recursive bool) (bool, error) {
	collapsed, err := t.IsCollapsed(element)
	if err != nil {
		return false, err
	}
	if collapsed {
		return t.Expand(ctx, element, recursive)
	}
	return t.Collapse(element, recursive)
}

// CollapseAll collapses every collapsible node in one operation.
func (t *Tree[T, M]) CollapseAll() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	changed, _ := t.model.SetCollapsed(t.root.element, true, true)
	return changed
}

// ExpandAll fetches every unresolved node and expands every collapsible
// node.
func (t *Tree[T, M]) ExpandAll(ctx context.Context) (bool, error) {
	return t.Expand(ctx, t.Root(), true)
}

// ExpandTo expands every collapsed ancestor of element.
func (t *Tree[T, M]) ExpandTo(element T) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.model.ExpandTo(element)
}

// OnDidSplice registers fn for structural changes.
func (t *Tree[T, M]) OnDidSplice(fn func(tree.SpliceEvent[T, M])) (unsubscribe func()) {
	return t.model.OnDidSplice(fn)
}

// OnDidChangeCollapseState registers fn for collapse state changes.
func (t *Tree[T, M]) OnDidChangeCollapseState(fn func(tree.CollapseStateChangeEvent[T, M])) (unsubscribe func()) {
	return t.model.OnDidChangeCollapseState(fn)
}

// Refilter recomputes renderer metadata.
func (t *Tree[T, M]) Refilter(visibleOnly bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.model.Refilter(visibleOnly)
}

// SetFilter replaces the filter and recomputes metadata for every node.
func (t *Tree[T, M]) SetFilter(filter tree.Filter[T, M]) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.model.Model().SetFilter(filter)
	return t.model.Refilter(false)
}

// ViewState captures the expanded state of every collapsible node. It is
// empty without an identity provider.
func (t *Tree[T, M]) ViewState() ViewState {
	t.mu.Lock()
	defer t.mu.Unlock()

	state := ViewState{Expanded: make(map[string]bool)}
	if t.identity == nil {
		return state
	}
	var visit func(node *tree.TreeNode[T, M])
	visit = func(node *tree.TreeNode[T, M]) {
		for _, child := range node.Children() {
			if child.Collapsible() {
				state.Expanded[t.identity.GetID(child.Element())] = !child.Collapsed()
			}
			visit(child)
		}
	}
	visit(t.model.Model().RootNode())
	return state
}
