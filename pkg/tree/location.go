package tree

import (
	"slices"
	"strconv"
	"strings"
)

// Location is a path from the root where each element is a child index at
// that depth. The empty location addresses the root. A location is only
// meaningful against the tree snapshot it was taken from; any splice at or
// above it invalidates it.
type Location []int

// Root returns the location of the root node.
func Root() Location {
	return Location{}
}

// IsRoot reports whether l addresses the root.
func (l Location) IsRoot() bool {
	return len(l) == 0
}

// Parent returns the location of l's parent. The parent of the root is the root.
func (l Location) Parent() Location {
	if len(l) == 0 {
		return Location{}
	}
	return slices.Clone(l[:len(l)-1])
}

// Child returns the location of the index-th child of l.
func (l Location) Child(index int) Location {
	child := make(Location, len(l)+1)
	copy(child, l)
	child[len(l)] = index
	return child
}

// Last returns the final child index of l, or -1 for the root.
func (l Location) Last() int {
	if len(l) == 0 {
		return -1
	}
	return l[len(l)-1]
}

// Clone returns a copy of l that does not share storage.
func (l Location) Clone() Location {
	if l == nil {
		return nil
	}
	return slices.Clone(l)
}

// Equal reports whether l and other address the same node.
func (l Location) Equal(other Location) bool {
	return slices.Equal(l, other)
}

func (l Location) String() string {
	parts := make([]string, len(l))
	for i, index := range l {
		parts[i] = strconv.Itoa(index)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// IsAncestor reports whether a is a strict prefix of b, that is whether the
// node at a is an ancestor of the node at b.
func IsAncestor(a, b Location) bool {
	return len(a) < len(b) && slices.Equal(a, b[:len(a)])
}

// IsAncestorOrSelf reports whether a is a prefix of b or equal to it.
func IsAncestorOrSelf(a, b Location) bool {
	return len(a) <= len(b) && slices.Equal(a, b[:len(a)])
}

// Compare orders locations as a pre-order traversal visits them: an
// ancestor sorts before its descendants and siblings sort by index.
func Compare(a, b Location) int {
	return slices.Compare(a, b)
}
