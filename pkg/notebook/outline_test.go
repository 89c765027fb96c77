package notebook_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-outline/pkg/asynctree"
	"github.com/mattsolo1/grove-outline/pkg/notebook"
	"github.com/mattsolo1/grove-outline/pkg/tree"
)

type row = *tree.TreeNode[*notebook.Item, notebook.Match]

func labels(list *tree.FlatList[row]) []string {
	var out []string
	for _, node := range list.Items() {
		out = append(out, node.Element().Label())
	}
	return out
}

func openOutline(t *testing.T, root string, opts asynctree.Options[*notebook.Item, notebook.Match]) (*notebook.Provider, *asynctree.Tree[*notebook.Item, notebook.Match], *tree.FlatList[row]) {
	t.Helper()
	p, err := notebook.NewProvider(root, notebook.Options{})
	require.NoError(t, err)

	opts.IdentityProvider = notebook.Identity
	list := tree.NewFlatList[row]()
	outline, err := asynctree.New(list, p.Root(), p, opts)
	require.NoError(t, err)
	require.NoError(t, outline.Refresh(context.Background()))
	return p, outline, list
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestOutlineOverNotebook(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "nb")
	write(t, filepath.Join(root, "inbox", "a.md"), "# Alpha\n")
	write(t, filepath.Join(root, "inbox", "b.md"), "# Bravo\n")
	write(t, filepath.Join(root, "archive", "old.md"), "# Old\n")

	p, outline, list := openOutline(t, root, asynctree.Options[*notebook.Item, notebook.Match]{})
	assert.Equal(t, []string{"Archive", "Inbox", "Alpha", "Bravo"}, labels(list))

	archive, err := p.Lookup(filepath.Join(root, "archive"))
	require.NoError(t, err)
	collapsed, err := outline.IsCollapsed(archive)
	require.NoError(t, err)
	assert.True(t, collapsed, "archive starts collapsed")
	resolved, err := outline.IsResolved(archive)
	require.NoError(t, err)
	assert.False(t, resolved, "collapsed groups are not read")

	alphaPath := filepath.Join(root, "inbox", "a.md")
	alpha, err := p.Lookup(alphaPath)
	require.NoError(t, err)
	before, err := outline.GetNode(alpha)
	require.NoError(t, err)

	// Editing a note and adding one keeps the existing node and swaps in
	// the rebuilt item.
	write(t, alphaPath, "# Alpha Renamed\n")
	write(t, filepath.Join(root, "inbox", "c.md"), "# Charlie\n")
	inbox, err := p.Lookup(filepath.Join(root, "inbox"))
	require.NoError(t, err)
	require.NoError(t, outline.RefreshElement(ctx, inbox))

	after, err := outline.GetNode(alpha)
	require.NoError(t, err)
	assert.Same(t, before, after)
	assert.Equal(t, "Alpha Renamed", after.Element().Title)
	assert.Equal(t, []string{"Archive", "Inbox", "Alpha Renamed", "Bravo", "Charlie"}, labels(list))

	_, err = outline.Expand(ctx, archive, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Archive", "Old", "Inbox", "Alpha Renamed", "Bravo", "Charlie"}, labels(list))

	state := outline.ViewState()
	assert.Equal(t, map[string]bool{
		filepath.Join(p.Root().Path, "archive"): true,
		filepath.Join(p.Root().Path, "inbox"):   true,
	}, state.Expanded)

	require.NoError(t, os.RemoveAll(filepath.Join(root, "inbox")))
	require.NoError(t, outline.Refresh(ctx))
	assert.Equal(t, []string{"Archive", "Old"}, labels(list))
	assert.False(t, outline.HasNode(alpha))
}

func TestOutlineViewStateAndFilter(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "nb")
	write(t, filepath.Join(root, "inbox", "meeting-notes.md"), "# Meeting Notes\n")
	write(t, filepath.Join(root, "archive", "old.md"), "# Old Meeting\n")

	abs, err := filepath.Abs(root)
	require.NoError(t, err)
	saved := &asynctree.ViewState{Expanded: map[string]bool{
		filepath.Join(abs, "archive"): true,
		filepath.Join(abs, "inbox"):   false,
	}}

	_, outline, list := openOutline(t, root, asynctree.Options[*notebook.Item, notebook.Match]{
		ViewState: saved,
		Filter:    notebook.FuzzyFilter{Pattern: "meet"},
	})
	assert.Equal(t, []string{"Archive", "Old Meeting", "Inbox"}, labels(list))

	var matched []string
	for _, node := range list.Items() {
		if m, ok := node.Metadata(); ok {
			matched = append(matched, node.Element().Label())
			assert.NotEmpty(t, m.MatchedIndexes)
		}
	}
	assert.Equal(t, []string{"Old Meeting"}, matched)

	_, err = outline.ExpandAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Archive", "Old Meeting", "Inbox", "Meeting Notes"}, labels(list))

	assert.Equal(t, 4, outline.SetFilter(nil), "every node is refiltered")
	for _, node := range list.Items() {
		_, ok := node.Metadata()
		assert.False(t, ok)
	}
}
