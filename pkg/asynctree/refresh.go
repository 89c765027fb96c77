package asynctree

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mattsolo1/grove-outline/pkg/tree"
)

// fetchResult holds the children fetched for one element, and recursively
// for those of its children that will be shown expanded.
type fetchResult[T any] struct {
	// node is nil when the element had no node when the fetch started.
	node       *asyncNode[T]
	element    T
	generation uint64
	children   []fetchedChild[T]
}

type fetchedChild[T any] struct {
	element          T
	hasChildren      bool
	initialCollapsed bool
	nested           *fetchResult[T]
}

// Refresh fetches the children of the root and of every expanded node
// below it, then reconciles the tree with the result.
func (t *Tree[T, M]) Refresh(ctx context.Context) error {
	return t.refresh(ctx, t.root, false)
}

// RefreshElement refreshes the subtree of element. Children of a
// collapsed element are fetched all the same so a later Expand needs no
// fetch.
func (t *Tree[T, M]) RefreshElement(ctx context.Context, element T) error {
	t.mu.Lock()
	node, err := t.lookup("refresh", element)
	t.mu.Unlock()
	if err != nil {
		return err
	}
	return t.refresh(ctx, node, false)
}

// refresh coalesces concurrent refreshes of the same node onto one fetch.
// With expandNew every fetched descendant is fetched too.
//
// The shared fetch runs under the context of the caller that started it.
// A caller whose own context is still live when that fetch is cancelled
// runs the refresh again.
func (t *Tree[T, M]) refresh(ctx context.Context, node *asyncNode[T], expandNew bool) error {
	key := strconv.FormatUint(node.id, 10)
	if expandNew {
		key += ":recursive"
	}
	for {
		_, err, shared := t.refreshes.Do(key, func() (any, error) {
			return nil, t.refreshNode(ctx, node, expandNew)
		})
		if !shared {
			return err
		}
		if isCancellation(err) && ctx.Err() == nil {
			t.log.WithField("node", node.id).Debug("shared refresh cancelled, retrying")
			continue
		}
		t.log.WithField("node", node.id).Debug("shared in-flight refresh")
		return err
	}
}

// isCancellation reports whether err is a context error that did not come
// from the provider.
func isCancellation(err error) bool {
	if err == nil || errors.Is(err, tree.ErrProviderFailure) {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (t *Tree[T, M]) refreshNode(ctx context.Context, node *asyncNode[T], expandNew bool) error {
	t.mu.Lock()
	if node.disposed {
		t.mu.Unlock()
		return &tree.TreeError{Op: "refresh", Err: fmt.Errorf("item removed from the tree: %w", tree.ErrNotFound)}
	}
	element := node.element
	t.mu.Unlock()

	result, err := t.fetch(ctx, node, element, expandNew)

	t.mu.Lock()
	defer t.mu.Unlock()

	if err != nil {
		node.stale = true
		if isCancellation(err) {
			t.log.WithError(err).WithField("node", node.id).Debug("refresh cancelled")
		} else {
			t.log.WithError(err).WithField("node", node.id).Warn("refresh failed")
		}
		return err
	}
	if node.disposed || node.generation != result.generation {
		t.log.WithFields(logrus.Fields{
			"node":       node.id,
			"generation": result.generation,
			"current":    node.generation,
		}).Debug("discarded superseded refresh")
		return nil
	}

	t.apply(node, result)
	if err := t.render(node); err != nil {
		return err
	}

	t.log.WithFields(logrus.Fields{
		"node":     node.id,
		"children": len(node.children),
		"size":     t.model.Size(),
	}).Debug("refreshed")
	return nil
}

// fetch runs without t.mu held except for short bookkeeping sections. It
// never touches the model.
func (t *Tree[T, M]) fetch(ctx context.Context, node *asyncNode[T], element T, expandNew bool) (*fetchResult[T], error) {
	result := &fetchResult[T]{node: node, element: element}
	if node != nil {
		t.mu.Lock()
		node.generation++
		result.generation = node.generation
		t.mu.Unlock()
	}

	elements, err := t.provider.GetChildren(ctx, element)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, &tree.TreeError{Op: "refresh", Err: ctxErr}
	}
	if err != nil {
		return nil, &tree.TreeError{Op: "refresh", Err: fmt.Errorf("get children of %v: %w: %w", element, tree.ErrProviderFailure, err)}
	}

	collapser, _ := t.provider.(CollapseByDefaulter[T])
	result.children = make([]fetchedChild[T], len(elements))
	for i, e := range elements {
		result.children[i] = fetchedChild[T]{
			element:          e,
			hasChildren:      t.provider.HasChildren(e),
			initialCollapsed: t.initialCollapsed(e, collapser, expandNew),
		}
	}

	descend, existing := t.planDescent(node, result.children, expandNew)
	if len(descend) == 0 {
		return result, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, i := range descend {
		g.Go(func() error {
			nested, err := t.fetch(gctx, existing[i], result.children[i].element, expandNew)
			if err != nil {
				return err
			}
			result.children[i].nested = nested
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// planDescent picks the fetched children whose own children are fetched
// in the same refresh: those shown expanded once rendered.
func (t *Tree[T, M]) planDescent(node *asyncNode[T], children []fetchedChild[T], expandNew bool) ([]int, map[int]*asyncNode[T]) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var descend []int
	existing := make(map[int]*asyncNode[T])
	for i, child := range children {
		if !child.hasChildren {
			continue
		}
		current, ok := t.nodes[t.key(child.element)]
		if !ok || node == nil || current.parent != node || current.disposed {
			if expandNew || !child.initialCollapsed {
				descend = append(descend, i)
			}
			continue
		}
		collapsed, err := t.model.IsCollapsed(current.element)
		if err != nil {
			continue
		}
		if expandNew || !collapsed {
			descend = append(descend, i)
			existing[i] = current
		}
	}
	return descend, existing
}

func (t *Tree[T, M]) initialCollapsed(element T, collapser CollapseByDefaulter[T], expandNew bool) bool {
	if expandNew {
		return false
	}
	if t.viewState != nil {
		if expanded, ok := t.viewState[t.identity.GetID(element)]; ok {
			return !expanded
		}
	}
	if collapser != nil {
		return collapser.CollapseByDefault(element)
	}
	return t.collapsedByDefault
}

// apply reconciles node's async children with a fetch result by identity
// key. Callers hold t.mu.
func (t *Tree[T, M]) apply(node *asyncNode[T], result *fetchResult[T]) {
	previous := make(map[any]*asyncNode[T], len(node.children))
	for _, child := range node.children {
		previous[t.key(child.element)] = child
	}

	seen := make(map[any]bool, len(result.children))
	children := make([]*asyncNode[T], 0, len(result.children))
	for _, fetched := range result.children {
		key := t.key(fetched.element)
		if seen[key] {
			t.log.WithField("key", key).Warn("duplicate child skipped")
			continue
		}
		seen[key] = true

		child, retained := previous[key]
		if retained {
			delete(previous, key)
			child.element = fetched.element
		} else {
			child = t.newNode(fetched.element, node)
		}
		child.hasChildren = fetched.hasChildren
		child.initialCollapsed = fetched.initialCollapsed

		switch {
		case fetched.nested != nil:
			nested := fetched.nested
			if (nested.node == child && nested.generation == child.generation) || (nested.node == nil && child.generation == 0) {
				t.apply(child, nested)
			} else {
				t.log.WithField("node", child.id).Debug("discarded superseded nested refresh")
			}
		case !fetched.hasChildren:
			t.disposeChildren(child)
			child.resolved = true
			child.stale = false
		case retained && child.resolved:
			child.stale = true
		}
		children = append(children, child)
	}

	for _, removed := range previous {
		t.dispose(removed)
	}

	node.children = children
	node.resolved = true
	node.stale = false
	if node != t.root {
		node.hasChildren = len(children) > 0
	}
}

func (t *Tree[T, M]) disposeChildren(node *asyncNode[T]) {
	for _, child := range node.children {
		t.dispose(child)
	}
	node.children = nil
}

// render pushes node's async children into the model as one identity diff
// splice. Callers hold t.mu.
func (t *Tree[T, M]) render(node *asyncNode[T]) error {
	opts := &tree.SpliceOptions[T, M]{
		DiffIdentity: func(element T) any { return t.key(element) },
		DiffDepth:    math.MaxInt,
	}
	if err := t.model.SetChildren(node.element, t.elementsFor(node), opts); err != nil {
		return fmt.Errorf("render children: %w", err)
	}

	if node == t.root {
		return nil
	}
	collapsible, err := t.model.IsCollapsible(node.element)
	if err != nil {
		return fmt.Errorf("render children: %w", err)
	}
	if collapsible != node.hasChildren {
		if _, err := t.model.SetCollapsible(node.element, node.hasChildren); err != nil {
			return fmt.Errorf("render children: %w", err)
		}
	}
	return nil
}

// elementsFor describes node's children for the model. Unresolved children
// carry nil Children so the model keeps whatever it holds for them.
func (t *Tree[T, M]) elementsFor(node *asyncNode[T]) []tree.Element[T] {
	elements := make([]tree.Element[T], len(node.children))
	for i, child := range node.children {
		elements[i] = tree.Element[T]{
			Element:     child.element,
			Collapsible: tree.Bool(child.hasChildren),
			Collapsed:   tree.Bool(child.initialCollapsed),
		}
		if child.resolved {
			elements[i].Children = t.elementsFor(child)
		}
	}
	return elements
}
