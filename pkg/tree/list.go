package tree

import (
	"slices"
	"sync"
)

// FlatList is an in-memory Spliceable holding the rows a renderer would
// materialize. It is safe for concurrent use.
type FlatList[E any] struct {
	mu    sync.RWMutex
	items []E
}

// NewFlatList returns an empty list.
func NewFlatList[E any]() *FlatList[E] {
	return &FlatList[E]{}
}

// Splice removes deleteCount rows at start and inserts elements there.
// It panics when the range is outside the list, since that means the
// producer and the list disagree about the rendered rows.
func (l *FlatList[E]) Splice(start, deleteCount int, elements []E) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = slices.Delete(l.items, start, start+deleteCount)
	l.items = slices.Insert(l.items, start, elements...)
}

// Items returns a copy of the current rows.
func (l *FlatList[E]) Items() []E {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.items)
}

// Len returns the number of rows.
func (l *FlatList[E]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// At returns the row at index.
func (l *FlatList[E]) At(index int) E {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.items[index]
}

type nopSink[E any] struct{}

func (nopSink[E]) Splice(int, int, []E) {}
