package tree

import (
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"
)

// IndexTreeModelOptions configures an IndexTreeModel.
type IndexTreeModelOptions[T any, M any] struct {
	// CollapseByDefault is the collapsed state of inserted collapsible
	// elements that do not set Collapsed themselves.
	CollapseByDefault bool

	// Filter computes renderer metadata on insertion and on Refilter.
	Filter Filter[T, M]

	Logger *logrus.Entry
}

// SpliceOptions tunes a single splice.
type SpliceOptions[T any, M any] struct {
	// DiffIdentity switches the splice to the identity diff path. Nodes
	// whose key appears in both the replaced range and the inserted
	// elements are kept: their collapse state and subtree survive and only
	// the element is swapped. Keys must be comparable.
	DiffIdentity func(element T) any

	// DiffDepth is how many levels below the spliced range the identity
	// diff recurses into retained nodes.
	DiffDepth int

	OnDidCreateNode func(node *TreeNode[T, M])
	OnDidDeleteNode func(node *TreeNode[T, M])
	OnDidUpdateNode func(node *TreeNode[T, M], previous T)
}

// SpliceEvent reports the top-level nodes inserted and deleted by one
// structural operation.
type SpliceEvent[T any, M any] struct {
	InsertedNodes []*TreeNode[T, M]
	DeletedNodes  []*TreeNode[T, M]
}

// CollapseStateChangeEvent reports every node whose collapsed or
// collapsible state changed in one operation. Deep is set for recursive
// operations.
type CollapseStateChangeEvent[T any, M any] struct {
	Nodes []*TreeNode[T, M]
	Deep  bool
}

// IndexTreeModel is a tree addressed by Location. It keeps per-node
// visible counts so a location translates to a row of the flattened list
// in O(depth), and it mirrors every structural change into a Spliceable
// sink holding the revealed rows.
//
// IndexTreeModel is not safe for concurrent use.
type IndexTreeModel[T any, M any] struct {
	root              *TreeNode[T, M]
	sink              Spliceable[*TreeNode[T, M]]
	collapseByDefault bool
	filter            Filter[T, M]
	size              int
	log               *logrus.Entry

	onDidSplice              Emitter[SpliceEvent[T, M]]
	onDidChangeCollapseState Emitter[CollapseStateChangeEvent[T, M]]
}

// NewIndexTreeModel creates a model whose root holds rootElement. A nil
// sink discards list updates.
func NewIndexTreeModel[T any, M any](rootElement T, sink Spliceable[*TreeNode[T, M]], opts IndexTreeModelOptions[T, M]) *IndexTreeModel[T, M] {
	if sink == nil {
		sink = nopSink[*TreeNode[T, M]]{}
	}
	return &IndexTreeModel[T, M]{
		root: &TreeNode[T, M]{
			element:      rootElement,
			visibleCount: 1,
		},
		sink:              sink,
		collapseByDefault: opts.CollapseByDefault,
		filter:            opts.Filter,
		log:               loggerOrDiscard(opts.Logger),
	}
}

// OnDidSplice registers fn for structural changes.
func (m *IndexTreeModel[T, M]) OnDidSplice(fn func(SpliceEvent[T, M])) (unsubscribe func()) {
	return m.onDidSplice.Subscribe(fn)
}

// OnDidChangeCollapseState registers fn for collapse state changes.
func (m *IndexTreeModel[T, M]) OnDidChangeCollapseState(fn func(CollapseStateChangeEvent[T, M])) (unsubscribe func()) {
	return m.onDidChangeCollapseState.Subscribe(fn)
}

// RootNode returns the root. It is created with the model and never deleted.
func (m *IndexTreeModel[T, M]) RootNode() *TreeNode[T, M] {
	return m.root
}

// Size returns the number of nodes below the root.
func (m *IndexTreeModel[T, M]) Size() int {
	return m.size
}

// Splice removes deleteCount children of location's parent starting at
// location's last index and inserts toInsert there. Deleting past the end
// of the children is an error, the model is left untouched and nothing is
// clamped.
func (m *IndexTreeModel[T, M]) Splice(location Location, deleteCount int, toInsert []Element[T], opts *SpliceOptions[T, M]) error {
	if opts == nil {
		opts = &SpliceOptions[T, M]{}
	}
	if location.IsRoot() {
		return newError("splice", location, fmt.Errorf("root has no parent: %w", ErrNotFound))
	}
	parent, _, _, err := m.parentWithListIndex(location)
	if err != nil {
		return newError("splice", location, err)
	}
	index := location.Last()
	if deleteCount < 0 || index+deleteCount > len(parent.children) {
		return newError("splice", location, fmt.Errorf("delete %d of %d children from %d: %w", deleteCount, len(parent.children), index, ErrOutOfRange))
	}

	var changes spliceChanges[T, M]
	if opts.DiffIdentity != nil {
		m.spliceSmart(location, deleteCount, toInsert, opts, opts.DiffDepth, &changes)
	} else {
		m.spliceSimple(location, deleteCount, toInsert, opts, &changes)
	}

	m.log.WithFields(logrus.Fields{
		"location": location.String(),
		"inserted": len(changes.event.InsertedNodes),
		"deleted":  len(changes.event.DeletedNodes),
		"size":     m.size,
	}).Debug("spliced tree")

	m.onDidSplice.Fire(changes.event)
	if len(changes.collapse) > 0 {
		m.onDidChangeCollapseState.Fire(CollapseStateChangeEvent[T, M]{Nodes: changes.collapse})
	}
	return nil
}

type spliceChanges[T any, M any] struct {
	event    SpliceEvent[T, M]
	collapse []*TreeNode[T, M]
}

func (m *IndexTreeModel[T, M]) spliceSimple(location Location, deleteCount int, toInsert []Element[T], opts *SpliceOptions[T, M], changes *spliceChanges[T, M]) {
	parent, listIndex, revealed, _ := m.parentWithListIndex(location)
	index := location.Last()

	var rows []*TreeNode[T, M]
	nodes := make([]*TreeNode[T, M], len(toInsert))
	insertedCount := 0
	for i, element := range toInsert {
		nodes[i] = m.createNode(element, parent, revealed, &rows, opts)
		insertedCount += nodes[i].visibleCount
	}

	deleted := slices.Clone(parent.children[index : index+deleteCount])
	parent.children = slices.Replace(parent.children, index, index+deleteCount, nodes...)

	deletedCount := 0
	for _, node := range deleted {
		deletedCount += node.visibleCount
	}

	if !parent.collapsed {
		addVisibleCount(parent, insertedCount-deletedCount)
	}
	if revealed {
		m.sink.Splice(listIndex, deletedCount, rows)
	}

	for _, node := range deleted {
		node.parent = nil
		m.forEachInSubtree(node, func(n *TreeNode[T, M]) {
			m.size--
			if opts.OnDidDeleteNode != nil {
				opts.OnDidDeleteNode(n)
			}
		})
	}

	changes.event.InsertedNodes = append(changes.event.InsertedNodes, nodes...)
	changes.event.DeletedNodes = append(changes.event.DeletedNodes, deleted...)
}

// spliceSmart diffs the replaced range against toInsert by identity and
// only splices the hunks that differ.
func (m *IndexTreeModel[T, M]) spliceSmart(location Location, deleteCount int, toInsert []Element[T], opts *SpliceOptions[T, M], levels int, changes *spliceChanges[T, M]) {
	parent, _, _, _ := m.parentWithListIndex(location)
	index := location.Last()
	prefix := location.Parent()

	original := make([]any, deleteCount)
	for i, node := range parent.children[index : index+deleteCount] {
		original[i] = opts.DiffIdentity(node.element)
	}
	modified := make([]any, len(toInsert))
	for i, element := range toInsert {
		modified[i] = opts.DiffIdentity(element.Element)
	}

	matches, hunks, ok := lcsDiff(original, modified)
	if !ok {
		m.log.WithField("location", location.String()).Debug("diff too large, replacing range")
		m.spliceSimple(location, deleteCount, toInsert, opts, changes)
		return
	}

	// Back to front so earlier offsets stay valid.
	for i := len(hunks) - 1; i >= 0; i-- {
		h := hunks[i]
		m.spliceSimple(
			prefix.Child(index+h.originalStart),
			h.originalLength,
			toInsert[h.modifiedStart:h.modifiedStart+h.modifiedLength],
			opts,
			changes,
		)
	}

	for _, match := range matches {
		childLocation := prefix.Child(index + match.modified)
		node := parent.children[index+match.modified]
		element := toInsert[match.modified]

		previous := node.element
		node.element = element.Element
		m.applyFilter(node)
		if opts.OnDidUpdateNode != nil {
			opts.OnDidUpdateNode(node, previous)
		}

		if element.Collapsible != nil && *element.Collapsible != node.collapsible {
			m.setCollapsible(childLocation, node, *element.Collapsible, element.Collapsed, &changes.collapse)
		}

		if levels > 0 && element.Children != nil {
			m.spliceSmart(childLocation.Child(0), len(node.children), element.Children, opts, levels-1, changes)
		}
	}
}

func (m *IndexTreeModel[T, M]) createNode(element Element[T], parent *TreeNode[T, M], revealed bool, rows *[]*TreeNode[T, M], opts *SpliceOptions[T, M]) *TreeNode[T, M] {
	collapsible := len(element.Children) > 0
	if element.Collapsible != nil {
		collapsible = *element.Collapsible
	}
	collapsed := m.collapseByDefault
	if element.Collapsed != nil {
		collapsed = *element.Collapsed
	}

	node := &TreeNode[T, M]{
		parent:       parent,
		element:      element.Element,
		depth:        parent.depth + 1,
		visibleCount: 1,
		collapsible:  collapsible,
		collapsed:    collapsible && collapsed,
	}
	m.applyFilter(node)

	if revealed {
		*rows = append(*rows, node)
	}

	childRevealed := revealed && !node.collapsed
	node.children = make([]*TreeNode[T, M], 0, len(element.Children))
	for _, childElement := range element.Children {
		child := m.createNode(childElement, node, childRevealed, rows, opts)
		node.children = append(node.children, child)
		if !node.collapsed {
			node.visibleCount += child.visibleCount
		}
	}

	m.size++
	if opts.OnDidCreateNode != nil {
		opts.OnDidCreateNode(node)
	}
	return node
}

func (m *IndexTreeModel[T, M]) applyFilter(node *TreeNode[T, M]) {
	if m.filter == nil {
		var zero M
		node.metadata, node.filtered = zero, false
		return
	}
	node.metadata, node.filtered = m.filter.Filter(node.element)
}

// addVisibleCount adds delta to node and to every ancestor that counts it,
// stopping at the first collapsed ancestor.
func addVisibleCount[T any, M any](node *TreeNode[T, M], delta int) {
	if delta == 0 {
		return
	}
	for n := node; n != nil; n = n.parent {
		n.visibleCount += delta
		if n.parent == nil || n.parent.collapsed {
			return
		}
	}
}

func ownVisibleCount[T any, M any](node *TreeNode[T, M]) int {
	count := 1
	if !node.collapsed {
		for _, child := range node.children {
			count += child.visibleCount
		}
	}
	return count
}

// recomputeVisibleCounts rebuilds the counts of a whole subtree bottom-up.
func recomputeVisibleCounts[T any, M any](node *TreeNode[T, M]) int {
	count := 1
	for _, child := range node.children {
		childCount := recomputeVisibleCounts(child)
		if !node.collapsed {
			count += childCount
		}
	}
	node.visibleCount = count
	return count
}

func (m *IndexTreeModel[T, M]) forEachInSubtree(node *TreeNode[T, M], fn func(*TreeNode[T, M])) {
	for _, child := range node.children {
		m.forEachInSubtree(child, fn)
	}
	fn(node)
}

// revealedRows returns the pre-order rows shown below node, excluding node.
func revealedRows[T any, M any](node *TreeNode[T, M], rows []*TreeNode[T, M]) []*TreeNode[T, M] {
	if node.collapsed {
		return rows
	}
	for _, child := range node.children {
		rows = append(rows, child)
		rows = revealedRows(child, rows)
	}
	return rows
}

// parentWithListIndex walks location and returns the parent of the
// addressed position, the list index the position would occupy and
// whether that position is revealed. The last index may equal the number
// of children, addressing an append.
func (m *IndexTreeModel[T, M]) parentWithListIndex(location Location) (*TreeNode[T, M], int, bool, error) {
	node := m.root
	listIndex := 0
	revealed := true

	for depth, index := range location {
		if index < 0 || index > len(node.children) {
			return nil, 0, false, fmt.Errorf("index %d at depth %d: %w", index, depth, ErrNotFound)
		}
		for i := 0; i < index; i++ {
			listIndex += node.children[i].visibleCount
		}
		revealed = revealed && !node.collapsed
		if depth == len(location)-1 {
			return node, listIndex, revealed, nil
		}
		if index == len(node.children) {
			return nil, 0, false, fmt.Errorf("index %d at depth %d: %w", index, depth, ErrNotFound)
		}
		node = node.children[index]
		listIndex++
	}
	return nil, 0, false, fmt.Errorf("root has no parent: %w", ErrNotFound)
}

// nodeWithListIndex returns the node at location, its row in the flat
// list and whether it is revealed. The root reports row -1.
func (m *IndexTreeModel[T, M]) nodeWithListIndex(location Location) (*TreeNode[T, M], int, bool, error) {
	if location.IsRoot() {
		return m.root, -1, true, nil
	}
	parent, listIndex, revealed, err := m.parentWithListIndex(location)
	if err != nil {
		return nil, 0, false, err
	}
	index := location.Last()
	if index >= len(parent.children) {
		return nil, 0, false, fmt.Errorf("index %d at depth %d: %w", index, len(location)-1, ErrNotFound)
	}
	return parent.children[index], listIndex, revealed, nil
}

// GetNode returns the node at location.
func (m *IndexTreeModel[T, M]) GetNode(location Location) (*TreeNode[T, M], error) {
	node, _, _, err := m.nodeWithListIndex(location)
	if err != nil {
		return nil, newError("get node", location, err)
	}
	return node, nil
}

// HasNode reports whether location addresses an existing node.
func (m *IndexTreeModel[T, M]) HasNode(location Location) bool {
	_, _, _, err := m.nodeWithListIndex(location)
	return err == nil
}

// GetNodeLocation reconstructs the location of node by walking its parent
// chain. Nodes that were deleted are not found.
func (m *IndexTreeModel[T, M]) GetNodeLocation(node *TreeNode[T, M]) (Location, error) {
	if node == nil {
		return nil, newError("get node location", nil, fmt.Errorf("nil node: %w", ErrNotFound))
	}
	var reversed []int
	n := node
	for n.parent != nil {
		index := slices.Index(n.parent.children, n)
		if index < 0 {
			return nil, newError("get node location", nil, ErrNotFound)
		}
		reversed = append(reversed, index)
		n = n.parent
	}
	if n != m.root {
		return nil, newError("get node location", nil, fmt.Errorf("node is detached: %w", ErrNotFound))
	}
	location := make(Location, len(reversed))
	for i, index := range reversed {
		location[len(reversed)-1-i] = index
	}
	return location, nil
}

// GetParentNodeLocation returns the location of the parent of location.
func (m *IndexTreeModel[T, M]) GetParentNodeLocation(location Location) (Location, error) {
	if location.IsRoot() {
		return nil, newError("get parent location", location, ErrNotFound)
	}
	if !m.HasNode(location) {
		return nil, newError("get parent location", location, ErrNotFound)
	}
	return location.Parent(), nil
}

// GetListIndex translates location into its row in the flattened list of
// revealed nodes, or -1 when an ancestor is collapsed. The root is -1.
func (m *IndexTreeModel[T, M]) GetListIndex(location Location) (int, error) {
	_, listIndex, revealed, err := m.nodeWithListIndex(location)
	if err != nil {
		return -1, newError("get list index", location, err)
	}
	if !revealed {
		return -1, nil
	}
	return listIndex, nil
}

// GetListRenderCount returns the number of rows the node at location
// currently occupies in the flat list.
func (m *IndexTreeModel[T, M]) GetListRenderCount(location Location) (int, error) {
	node, _, revealed, err := m.nodeWithListIndex(location)
	if err != nil {
		return 0, newError("get list render count", location, err)
	}
	if node == m.root {
		return node.visibleCount - 1, nil
	}
	if !revealed {
		return 0, nil
	}
	return node.visibleCount, nil
}

// IsCollapsible reports whether the node at location can be collapsed.
func (m *IndexTreeModel[T, M]) IsCollapsible(location Location) (bool, error) {
	node, err := m.GetNode(location)
	if err != nil {
		return false, err
	}
	return node.collapsible, nil
}

// IsCollapsed reports whether the node at location is collapsed.
func (m *IndexTreeModel[T, M]) IsCollapsed(location Location) (bool, error) {
	node, err := m.GetNode(location)
	if err != nil {
		return false, err
	}
	return node.collapsed, nil
}

// SetCollapsible changes whether the node at location can be collapsed.
// Making a collapsed node non-collapsible expands it.
func (m *IndexTreeModel[T, M]) SetCollapsible(location Location, collapsible bool) (bool, error) {
	node, err := m.GetNode(location)
	if err != nil {
		return false, newError("set collapsible", location, err)
	}
	if node.collapsible == collapsible {
		return false, nil
	}

	var changed []*TreeNode[T, M]
	m.setCollapsible(location, node, collapsible, nil, &changed)
	m.onDidChangeCollapseState.Fire(CollapseStateChangeEvent[T, M]{Nodes: changed})
	return true, nil
}

func (m *IndexTreeModel[T, M]) setCollapsible(location Location, node *TreeNode[T, M], collapsible bool, collapsed *bool, changed *[]*TreeNode[T, M]) {
	node.collapsible = collapsible
	*changed = append(*changed, node)

	target := node.collapsed
	if !collapsible {
		target = false
	} else if collapsed != nil {
		target = *collapsed
	}
	if target == node.collapsed {
		return
	}

	_, listIndex, revealed, _ := m.nodeWithListIndex(location)
	node.collapsed = target
	m.afterCollapseChange(node, listIndex, revealed, false)
}

// SetCollapsed sets the collapsed state of the node at location and, when
// recursive, of every collapsible descendant. It reports whether anything
// changed; repeating a call is a no-op that fires no event.
func (m *IndexTreeModel[T, M]) SetCollapsed(location Location, collapsed, recursive bool) (bool, error) {
	node, listIndex, revealed, err := m.nodeWithListIndex(location)
	if err != nil {
		return false, newError("set collapsed", location, err)
	}

	var changed []*TreeNode[T, M]
	if !setCollapsedState(node, collapsed, recursive, &changed) {
		return false, nil
	}
	m.afterCollapseChange(node, listIndex, revealed, recursive)

	m.log.WithFields(logrus.Fields{
		"location":  location.String(),
		"collapsed": collapsed,
		"recursive": recursive,
		"changed":   len(changed),
	}).Debug("changed collapse state")

	m.onDidChangeCollapseState.Fire(CollapseStateChangeEvent[T, M]{Nodes: changed, Deep: recursive})
	return true, nil
}

// ToggleCollapsed flips the collapsed state of the node at location.
func (m *IndexTreeModel[T, M]) ToggleCollapsed(location Location, recursive bool) (bool, error) {
	node, err := m.GetNode(location)
	if err != nil {
		return false, newError("toggle collapsed", location, err)
	}
	return m.SetCollapsed(location, !node.collapsed, recursive)
}

// ExpandTo expands every collapsed ancestor of the node at location so
// the node becomes visible.
func (m *IndexTreeModel[T, M]) ExpandTo(location Location) (bool, error) {
	if _, err := m.GetNode(location); err != nil {
		return false, newError("expand to", location, err)
	}

	var changed []*TreeNode[T, M]
	for ancestor := location.Parent(); ; ancestor = ancestor.Parent() {
		node, listIndex, revealed, _ := m.nodeWithListIndex(ancestor)
		if node.collapsed {
			node.collapsed = false
			changed = append(changed, node)
			m.afterCollapseChange(node, listIndex, revealed, false)
		}
		if ancestor.IsRoot() {
			break
		}
	}

	if len(changed) == 0 {
		return false, nil
	}
	m.onDidChangeCollapseState.Fire(CollapseStateChangeEvent[T, M]{Nodes: changed})
	return true, nil
}

func setCollapsedState[T any, M any](node *TreeNode[T, M], collapsed, recursive bool, changed *[]*TreeNode[T, M]) bool {
	result := false
	if node.collapsible && node.collapsed != collapsed {
		node.collapsed = collapsed
		*changed = append(*changed, node)
		result = true
	}
	if recursive {
		for _, child := range node.children {
			result = setCollapsedState(child, collapsed, recursive, changed) || result
		}
	}
	return result
}

// afterCollapseChange brings visible counts and the sink in line after
// node's collapsed state (and, when recursive, its descendants') changed.
// Only the ancestor chain is touched above node.
func (m *IndexTreeModel[T, M]) afterCollapseChange(node *TreeNode[T, M], listIndex int, revealed, recursive bool) {
	previous := node.visibleCount
	if recursive {
		recomputeVisibleCounts(node)
	} else {
		node.visibleCount = ownVisibleCount(node)
	}
	if node.parent != nil && !node.parent.collapsed {
		addVisibleCount(node.parent, node.visibleCount-previous)
	}
	if revealed {
		m.sink.Splice(listIndex+1, previous-1, revealedRows(node, nil))
	}
}

// Refilter recomputes renderer metadata. With visibleOnly only revealed
// nodes are visited. It returns the number of nodes visited.
func (m *IndexTreeModel[T, M]) Refilter(visibleOnly bool) int {
	count := 0
	var visit func(node *TreeNode[T, M])
	visit = func(node *TreeNode[T, M]) {
		for _, child := range node.children {
			m.applyFilter(child)
			count++
			if !visibleOnly || !child.collapsed {
				visit(child)
			}
		}
	}
	visit(m.root)
	return count
}

// SetFilter replaces the filter. Call Refilter to apply it to existing nodes.
func (m *IndexTreeModel[T, M]) SetFilter(filter Filter[T, M]) {
	m.filter = filter
}
