// Package asynctree builds a tree on demand from a children provider that
// may be slow, reconciling fetched children with existing nodes by
// identity so collapse state and resolved subtrees survive refreshes.
package asynctree

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-outline/pkg/tree"
)

// ChildrenProvider supplies the children of an element. HasChildren must
// agree with whether GetChildren would return a non-empty slice; it
// decides collapsibility without forcing a fetch.
type ChildrenProvider[T any] interface {
	HasChildren(element T) bool
	GetChildren(ctx context.Context, element T) ([]T, error)
}

// CollapseByDefaulter is implemented by providers that pick the initial
// collapsed state of each new element.
type CollapseByDefaulter[T any] interface {
	CollapseByDefault(element T) bool
}

// ChildrenResolver is implemented by providers that track resolution
// themselves. IsChildrenResolved replaces the tree's own resolved flag and
// ForgetChildren is called whenever the tree drops an element's children.
type ChildrenResolver[T any] interface {
	IsChildrenResolved(element T) bool
	ForgetChildren(element T)
}

// ViewState records which nodes are expanded, keyed by identity ID.
type ViewState struct {
	Expanded map[string]bool
}

// Options configures a Tree.
type Options[T any, M any] struct {
	// IdentityProvider matches elements across refreshes when the
	// provider rebuilds them. Without it elements are matched by value.
	IdentityProvider tree.IdentityProvider[T]

	// CollapsedByDefault applies to new elements when the provider has no
	// opinion.
	CollapsedByDefault bool

	// ForcePrimitiveType allows a root of a value kind (numbers, strings,
	// structs) and with it value based keying.
	ForcePrimitiveType bool

	Filter tree.Filter[T, M]

	OnDidCreateNode func(node *tree.TreeNode[T, M])
	OnDidDeleteData func(element T)

	// ViewState sets the initial collapsed state of new nodes whose ID it
	// lists. It requires an IdentityProvider.
	ViewState *ViewState

	Logger *logrus.Entry
}
