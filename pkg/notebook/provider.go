package notebook

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-outline/pkg/tree"
)

// DefaultCollapsedGroups are the groups shown collapsed until expanded.
var DefaultCollapsedGroups = []string{"archive", ".archive", ".artifacts", ".closed"}

// Identity keys items by path so a refresh matches rebuilt items to the
// nodes already in the tree.
var Identity = tree.IdentityFunc[*Item](func(item *Item) string { return item.ID() })

// Options configures a Provider.
type Options struct {
	// ShowHidden includes dot entries. The notebook's own dot directories
	// (.archive, .artifacts, .closed) are always shown.
	ShowHidden bool

	// CollapsedGroups overrides DefaultCollapsedGroups. Names compare
	// case-insensitively.
	CollapsedGroups []string

	Logger *logrus.Entry
}

// Provider reads a notebook directory. It implements the children
// provider of an asynctree.Tree over *Item.
type Provider struct {
	root       string
	showHidden bool
	collapsed  map[string]bool
	log        *logrus.Entry
}

// NewProvider creates a provider for the notebook rooted at dir.
func NewProvider(dir string, opts Options) (*Provider, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve notebook directory: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("open notebook: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open notebook: %s is not a directory", root)
	}

	groups := opts.CollapsedGroups
	if groups == nil {
		groups = DefaultCollapsedGroups
	}
	collapsed := make(map[string]bool, len(groups))
	for _, name := range groups {
		collapsed[strings.ToLower(name)] = true
	}

	log := opts.Logger
	if log == nil {
		log = tree.DiscardLogger()
	}

	return &Provider{
		root:       root,
		showHidden: opts.ShowHidden,
		collapsed:  collapsed,
		log:        log,
	}, nil
}

// Root returns a fresh item for the notebook directory.
func (p *Provider) Root() *Item {
	item := &Item{
		Path:     p.root,
		Name:     filepath.Base(p.root),
		IsDir:    true,
		Type:     TypeNotebook,
		Title:    displayName(filepath.Base(p.root)),
		Metadata: make(map[string]interface{}),
	}
	if info, err := os.Stat(p.root); err == nil {
		item.ModTime = info.ModTime()
	}
	return item
}

// Lookup builds the item at path, which must be inside the notebook.
func (p *Provider) Lookup(path string) (*Item, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	if abs == p.root {
		return p.Root(), nil
	}
	rel, err := filepath.Rel(p.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("%s is outside the notebook %s", abs, p.root)
	}
	info, err := os.Lstat(abs)
	if err != nil {
		return nil, fmt.Errorf("lookup item: %w", err)
	}
	parent := &Item{Path: filepath.Dir(abs), Name: filepath.Base(filepath.Dir(abs)), IsDir: true}
	return p.newItem(abs, info, parent)
}

// Ancestors returns the directory paths from the notebook root down to
// the parent of path.
func (p *Provider) Ancestors(path string) []string {
	var dirs []string
	for dir := filepath.Dir(path); dir != p.root && strings.HasPrefix(dir, p.root); dir = filepath.Dir(dir) {
		dirs = append(dirs, dir)
	}
	slices.Reverse(dirs)
	return dirs
}

func (p *Provider) visible(name string) bool {
	if !strings.HasPrefix(name, ".") || p.showHidden {
		return true
	}
	return p.collapsed[strings.ToLower(name)]
}

// HasChildren reports whether item is a directory with a visible entry.
func (p *Provider) HasChildren(item *Item) bool {
	if !item.IsDir {
		return false
	}
	entries, err := os.ReadDir(item.Path)
	if err != nil {
		return false
	}
	return slices.ContainsFunc(entries, func(entry fs.DirEntry) bool {
		return p.visible(entry.Name())
	})
}

// GetChildren lists item's directory: groups first, then files, each
// sorted by name.
func (p *Provider) GetChildren(ctx context.Context, item *Item) ([]*Item, error) {
	if !item.IsDir {
		return nil, nil
	}
	entries, err := os.ReadDir(item.Path)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", item.Path, err)
	}

	var groups, files []*Item
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !p.visible(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", entry.Name(), err)
		}

		path := filepath.Join(item.Path, entry.Name())
		child, err := p.newItem(path, info, item)
		if err != nil {
			p.log.WithError(err).WithField("path", path).Warn("skipping unreadable entry")
			continue
		}
		if child.IsDir {
			groups = append(groups, child)
		} else {
			files = append(files, child)
		}
	}

	slices.SortFunc(groups, compareItems)
	slices.SortFunc(files, compareItems)

	p.log.WithFields(logrus.Fields{
		"path":   item.Path,
		"groups": len(groups),
		"files":  len(files),
	}).Debug("listed directory")

	return append(groups, files...), nil
}

func compareItems(a, b *Item) int {
	if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
		return c
	}
	return strings.Compare(a.Name, b.Name)
}

// CollapseByDefault collapses archive-style groups.
func (p *Provider) CollapseByDefault(item *Item) bool {
	return item.IsDir && p.collapsed[strings.ToLower(item.Name)]
}
