package asynctree

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"github.com/mattsolo1/grove-outline/pkg/tree"
)

// mapProvider serves int elements from an adjacency map.
type mapProvider struct {
	mu    sync.Mutex
	tree  map[int][]int
	calls map[int]int
}

func newMapProvider(tree map[int][]int) *mapProvider {
	return &mapProvider{tree: tree, calls: make(map[int]int)}
}

func (p *mapProvider) HasChildren(e int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tree[e]) > 0
}

func (p *mapProvider) GetChildren(ctx context.Context, e int) ([]int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[e]++
	return slices.Clone(p.tree[e]), nil
}

func (p *mapProvider) set(e int, children ...int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tree[e] = children
}

func (p *mapProvider) callsFor(e int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[e]
}

func scenarioTree() map[int][]int {
	return map[int][]int{0: {1, 2, 3}, 1: {4, 5}, 2: {6}, 3: {}, 4: {}, 5: {}, 6: {}}
}

type node struct {
	id  int
	rev int
}

func nodeID(n *node) string { return strconv.Itoa(n.id) }

type gate struct {
	started chan struct{}
	release chan struct{}
}

// fakeProvider serves *node elements. With rebuild every call returns new
// instances; otherwise each id maps to one instance.
type fakeProvider struct {
	mu      sync.Mutex
	tree    map[int][]int
	items   map[int]*node
	rebuild bool
	rev     int
	calls   map[int]int
	fail    map[int]error
	gates   map[int]*gate
}

func newFakeProvider(tree map[int][]int) *fakeProvider {
	return &fakeProvider{
		tree:  tree,
		items: make(map[int]*node),
		calls: make(map[int]int),
		fail:  make(map[int]error),
		gates: make(map[int]*gate),
	}
}

func (p *fakeProvider) item(id int) *node {
	if p.rebuild {
		return &node{id: id, rev: p.rev}
	}
	if n, ok := p.items[id]; ok {
		return n
	}
	n := &node{id: id}
	p.items[id] = n
	return n
}

func (p *fakeProvider) get(id int) *node {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.item(id)
}

func (p *fakeProvider) HasChildren(e *node) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tree[e.id]) > 0
}

func (p *fakeProvider) GetChildren(ctx context.Context, e *node) ([]*node, error) {
	p.mu.Lock()
	p.calls[e.id]++
	p.rev++
	err := p.fail[e.id]
	g := p.gates[e.id]
	delete(p.gates, e.id)
	children := make([]*node, 0, len(p.tree[e.id]))
	for _, id := range p.tree[e.id] {
		children = append(children, p.item(id))
	}
	p.mu.Unlock()

	if g != nil {
		close(g.started)
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return children, nil
}

func (p *fakeProvider) set(id int, children ...int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tree[id] = children
}

func (p *fakeProvider) setFail(id int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.fail, id)
		return
	}
	p.fail[id] = err
}

// block makes the next GetChildren of id wait for the gate's release.
func (p *fakeProvider) block(id int) *gate {
	p.mu.Lock()
	defer p.mu.Unlock()
	g := &gate{started: make(chan struct{}), release: make(chan struct{})}
	p.gates[id] = g
	return g
}

func (p *fakeProvider) callsFor(id int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[id]
}

// resolvingProvider tracks resolution itself.
type resolvingProvider struct {
	*fakeProvider

	resMu     sync.Mutex
	resolved  map[int]bool
	forgotten []int
}

func (p *resolvingProvider) GetChildren(ctx context.Context, e *node) ([]*node, error) {
	children, err := p.fakeProvider.GetChildren(ctx, e)
	if err == nil {
		p.resMu.Lock()
		p.resolved[e.id] = true
		p.resMu.Unlock()
	}
	return children, err
}

func (p *resolvingProvider) IsChildrenResolved(e *node) bool {
	p.resMu.Lock()
	defer p.resMu.Unlock()
	return p.resolved[e.id]
}

func (p *resolvingProvider) ForgetChildren(e *node) {
	p.resMu.Lock()
	defer p.resMu.Unlock()
	p.resolved[e.id] = false
	p.forgotten = append(p.forgotten, e.id)
}

// collapsingProvider collapses elements whose id is listed.
type collapsingProvider struct {
	*fakeProvider
	collapsed map[int]bool
}

func (p *collapsingProvider) CollapseByDefault(e *node) bool {
	return p.collapsed[e.id]
}

func sinkRows[T any, M any](list *tree.FlatList[*tree.TreeNode[T, M]]) []T {
	var rows []T
	for _, n := range list.Items() {
		rows = append(rows, n.Element())
	}
	return rows
}
