// Package notebook serves a notebook directory to the outline tree: groups
// are directories and notes are markdown files with YAML frontmatter.
package notebook

import (
	"time"
)

// ItemType categorizes the different kinds of items in the notebook tree.
type ItemType string

const (
	TypeNotebook ItemType = "notebook" // The notebook root directory
	TypeGroup    ItemType = "group"    // A grouping directory, e.g., 'inbox', 'meetings'
	TypePlan     ItemType = "plan"     // A directory below a 'plans' group
	TypeNote     ItemType = "note"
	TypeArtifact ItemType = "artifact" // A generated file below '.artifacts'
	TypeGeneric  ItemType = "generic"  // Any other file, e.g., notes.txt
)

// Item is one node of the notebook tree. Items are rebuilt on every read
// of their directory; Path identifies them across reads.
type Item struct {
	Path    string
	Name    string
	IsDir   bool
	ModTime time.Time
	Type    ItemType
	Title   string
	Tags    []string

	// Metadata holds type-specific data like ID, Created or Extension.
	Metadata map[string]interface{}
}

// ID returns the identity of the item across refreshes.
func (i *Item) ID() string {
	return i.Path
}

// Label is the text shown for the item.
func (i *Item) Label() string {
	if i.Title != "" {
		return i.Title
	}
	return i.Name
}
