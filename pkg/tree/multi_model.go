package tree

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// IdentityProvider maps an element to a key that stays stable across
// refreshes, even when the element itself is rebuilt.
type IdentityProvider[T any] interface {
	GetID(element T) string
}

// IdentityFunc adapts a function to the IdentityProvider interface.
type IdentityFunc[T any] func(element T) string

func (f IdentityFunc[T]) GetID(element T) string {
	return f(element)
}

// MultiTreeModelOptions configures a MultiTreeModel.
type MultiTreeModelOptions[T any, M any] struct {
	CollapseByDefault bool
	Filter            Filter[T, M]

	// IdentityProvider keys nodes by ID instead of by element value and
	// makes SetChildren reconcile children by ID.
	IdentityProvider IdentityProvider[T]

	OnDidCreateNode func(node *TreeNode[T, M])
	OnDidDeleteData func(element T)

	Logger *logrus.Entry
}

// MultiTreeModel addresses nodes by element. It keeps an element to node
// map that is consistent with the tree whenever a method returns. The
// root element addresses the root and is never stored in the map.
//
// MultiTreeModel is not safe for concurrent use.
type MultiTreeModel[T comparable, M any] struct {
	model    *IndexTreeModel[T, M]
	nodes    map[any]*TreeNode[T, M]
	identity IdentityProvider[T]
	rootKey  any

	onDidCreateNode func(node *TreeNode[T, M])
	onDidDeleteData func(element T)
}

// NewMultiTreeModel creates a model rooted at rootElement.
func NewMultiTreeModel[T comparable, M any](rootElement T, sink Spliceable[*TreeNode[T, M]], opts MultiTreeModelOptions[T, M]) *MultiTreeModel[T, M] {
	m := &MultiTreeModel[T, M]{
		model: NewIndexTreeModel(rootElement, sink, IndexTreeModelOptions[T, M]{
			CollapseByDefault: opts.CollapseByDefault,
			Filter:            opts.Filter,
			Logger:            opts.Logger,
		}),
		nodes:           make(map[any]*TreeNode[T, M]),
		identity:        opts.IdentityProvider,
		onDidCreateNode: opts.OnDidCreateNode,
		onDidDeleteData: opts.OnDidDeleteData,
	}
	m.rootKey = m.key(rootElement)
	return m
}

// Model exposes the underlying location-addressed model.
func (m *MultiTreeModel[T, M]) Model() *IndexTreeModel[T, M] {
	return m.model
}

func (m *MultiTreeModel[T, M]) key(element T) any {
	if m.identity != nil {
		return m.identity.GetID(element)
	}
	return element
}

// Splice deletes deleteCount children of parent from the start and
// inserts children in their place.
func (m *MultiTreeModel[T, M]) Splice(parent T, deleteCount int, children []Element[T], opts *SpliceOptions[T, M]) error {
	location, err := m.location(parent)
	if err != nil {
		return err
	}
	return m.model.Splice(location.Child(0), deleteCount, children, m.wrapOptions(opts))
}

// SetChildren replaces every child of parent. With an identity provider
// the children are reconciled by ID at every depth, so nodes that keep
// their ID keep their collapse state and subtree.
func (m *MultiTreeModel[T, M]) SetChildren(parent T, children []Element[T], opts *SpliceOptions[T, M]) error {
	location, err := m.location(parent)
	if err != nil {
		return err
	}
	node, _ := m.model.GetNode(location)

	if opts == nil {
		opts = &SpliceOptions[T, M]{}
	}
	if m.identity != nil && opts.DiffIdentity == nil {
		identity := m.identity
		withDiff := *opts
		withDiff.DiffIdentity = func(element T) any { return identity.GetID(element) }
		withDiff.DiffDepth = math.MaxInt
		opts = &withDiff
	}
	return m.model.Splice(location.Child(0), len(node.children), children, m.wrapOptions(opts))
}

func (m *MultiTreeModel[T, M]) wrapOptions(opts *SpliceOptions[T, M]) *SpliceOptions[T, M] {
	wrapped := SpliceOptions[T, M]{}
	if opts != nil {
		wrapped = *opts
	}
	onCreate, onDelete, onUpdate := wrapped.OnDidCreateNode, wrapped.OnDidDeleteNode, wrapped.OnDidUpdateNode

	wrapped.OnDidCreateNode = func(node *TreeNode[T, M]) {
		if key := m.key(node.element); key != m.rootKey {
			m.nodes[key] = node
		}
		if m.onDidCreateNode != nil {
			m.onDidCreateNode(node)
		}
		if onCreate != nil {
			onCreate(node)
		}
	}
	wrapped.OnDidDeleteNode = func(node *TreeNode[T, M]) {
		key := m.key(node.element)
		if key == m.rootKey {
			return
		}
		// A node with the same key may already have been inserted elsewhere
		// in the same splice.
		if m.nodes[key] == node {
			delete(m.nodes, key)
		}
		if m.onDidDeleteData != nil {
			m.onDidDeleteData(node.element)
		}
		if onDelete != nil {
			onDelete(node)
		}
	}
	wrapped.OnDidUpdateNode = func(node *TreeNode[T, M], previous T) {
		if oldKey := m.key(previous); m.nodes[oldKey] == node {
			delete(m.nodes, oldKey)
		}
		m.nodes[m.key(node.element)] = node
		if onUpdate != nil {
			onUpdate(node, previous)
		}
	}
	return &wrapped
}

func (m *MultiTreeModel[T, M]) location(element T) (Location, error) {
	key := m.key(element)
	if key == m.rootKey {
		return Root(), nil
	}
	node, ok := m.nodes[key]
	if !ok {
		return nil, &TreeError{Op: "find element", Err: fmt.Errorf("item not found in the tree: %v: %w", element, ErrNotFound)}
	}
	return m.model.GetNodeLocation(node)
}

// Has reports whether element is in the tree. The root element always is.
func (m *MultiTreeModel[T, M]) Has(element T) bool {
	key := m.key(element)
	if key == m.rootKey {
		return true
	}
	_, ok := m.nodes[key]
	return ok
}

// GetNode returns the node holding element.
func (m *MultiTreeModel[T, M]) GetNode(element T) (*TreeNode[T, M], error) {
	key := m.key(element)
	if key == m.rootKey {
		return m.model.RootNode(), nil
	}
	node, ok := m.nodes[key]
	if !ok {
		return nil, &TreeError{Op: "get node", Err: fmt.Errorf("item not found in the tree: %v: %w", element, ErrNotFound)}
	}
	return node, nil
}

// GetNodeLocation returns the current location of element.
func (m *MultiTreeModel[T, M]) GetNodeLocation(element T) (Location, error) {
	return m.location(element)
}

// GetParentElement returns the element of element's parent.
func (m *MultiTreeModel[T, M]) GetParentElement(element T) (T, error) {
	node, err := m.GetNode(element)
	if err != nil {
		var zero T
		return zero, err
	}
	if node.parent == nil {
		var zero T
		return zero, &TreeError{Op: "get parent", Err: fmt.Errorf("root has no parent: %w", ErrNotFound)}
	}
	return node.parent.element, nil
}

// GetListIndex returns element's row in the flat list, or -1 when hidden.
func (m *MultiTreeModel[T, M]) GetListIndex(element T) (int, error) {
	location, err := m.location(element)
	if err != nil {
		return -1, err
	}
	return m.model.GetListIndex(location)
}

// IsCollapsible reports whether element's node can be collapsed.
func (m *MultiTreeModel[T, M]) IsCollapsible(element T) (bool, error) {
	node, err := m.GetNode(element)
	if err != nil {
		return false, err
	}
	return node.collapsible, nil
}

// IsCollapsed reports whether element's node is collapsed.
func (m *MultiTreeModel[T, M]) IsCollapsed(element T) (bool, error) {
	node, err := m.GetNode(element)
	if err != nil {
		return false, err
	}
	return node.collapsed, nil
}

// SetCollapsible changes whether element's node can be collapsed.
func (m *MultiTreeModel[T, M]) SetCollapsible(element T, collapsible bool) (bool, error) {
	location, err := m.location(element)
	if err != nil {
		return false, err
	}
	return m.model.SetCollapsible(location, collapsible)
}

// SetCollapsed collapses or expands element's node.
func (m *MultiTreeModel[T, M]) SetCollapsed(element T, collapsed, recursive bool) (bool, error) {
	location, err := m.location(element)
	if err != nil {
		return false, err
	}
	return m.model.SetCollapsed(location, collapsed, recursive)
}

// ToggleCollapsed flips element's collapsed state.
func (m *MultiTreeModel[T, M]) ToggleCollapsed(element T, recursive bool) (bool, error) {
	location, err := m.location(element)
	if err != nil {
		return false, err
	}
	return m.model.ToggleCollapsed(location, recursive)
}

// ExpandTo expands every collapsed ancestor of element.
func (m *MultiTreeModel[T, M]) ExpandTo(element T) (bool, error) {
	location, err := m.location(element)
	if err != nil {
		return false, err
	}
	return m.model.ExpandTo(location)
}

// Refilter recomputes renderer metadata.
func (m *MultiTreeModel[T, M]) Refilter(visibleOnly bool) int {
	return m.model.Refilter(visibleOnly)
}

// Size returns the number of nodes below the root.
func (m *MultiTreeModel[T, M]) Size() int {
	return m.model.Size()
}

// OnDidSplice registers fn for structural changes.
func (m *MultiTreeModel[T, M]) OnDidSplice(fn func(SpliceEvent[T, M])) (unsubscribe func()) {
	return m.model.OnDidSplice(fn)
}

// OnDidChangeCollapseState registers fn for collapse state changes.
func (m *MultiTreeModel[T, M]) OnDidChangeCollapseState(fn func(CollapseStateChangeEvent[T, M])) (unsubscribe func()) {
	return m.model.OnDidChangeCollapseState(fn)
}
