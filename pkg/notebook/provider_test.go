package notebook

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// newNotebook lays out a small notebook and returns its root.
func newNotebook(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "my-notebook")

	writeFile(t, filepath.Join(root, "inbox", "a.md"), `---
id: 20250111-alpha
title: Alpha
tags: [ideas, backend]
created: 2025-01-11 10:00:00
modified: 2025-01-11 11:00:00
---

# Ignored Heading
`)
	writeFile(t, filepath.Join(root, "inbox", "b.md"), "intro\n# Bravo Heading\n")
	writeFile(t, filepath.Join(root, "inbox", "c.md"), "no title here\n")
	writeFile(t, filepath.Join(root, "archive", "old.md"), "# Old\n")
	writeFile(t, filepath.Join(root, ".archive", "x.md"), "# X\n")
	writeFile(t, filepath.Join(root, ".hidden", "y.md"), "# Y\n")
	writeFile(t, filepath.Join(root, ".secret.md"), "# Secret\n")
	writeFile(t, filepath.Join(root, "plans", "20240105-big_launch", "plan.md"), "# Plan\n")
	writeFile(t, filepath.Join(root, "zeta.txt"), "plain")
	writeFile(t, filepath.Join(root, "inbox", ".artifacts", "briefing.xml"), "<xml/>")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Meetings"), 0755))
	return root
}

func names(items []*Item) []string {
	var out []string
	for _, item := range items {
		out = append(out, item.Name)
	}
	return out
}

func find(t *testing.T, items []*Item, name string) *Item {
	t.Helper()
	for _, item := range items {
		if item.Name == name {
			return item
		}
	}
	t.Fatalf("item %q not found in %v", name, names(items))
	return nil
}

func TestProviderGetChildren(t *testing.T) {
	ctx := context.Background()
	root := newNotebook(t)
	p, err := NewProvider(root, Options{})
	require.NoError(t, err)

	rootItem := p.Root()
	assert.Equal(t, TypeNotebook, rootItem.Type)
	assert.Equal(t, "My Notebook", rootItem.Title)
	assert.True(t, p.HasChildren(rootItem))

	children, err := p.GetChildren(ctx, rootItem)
	require.NoError(t, err)
	assert.Equal(t, []string{".archive", "archive", "inbox", "Meetings", "plans", "zeta.txt"}, names(children))

	meetings := find(t, children, "Meetings")
	assert.False(t, p.HasChildren(meetings), "empty group has no children")
	assert.Equal(t, TypeGroup, meetings.Type)

	zeta := find(t, children, "zeta.txt")
	assert.Equal(t, TypeGeneric, zeta.Type)
	assert.Equal(t, "txt", zeta.Metadata["Extension"])
	assert.False(t, p.HasChildren(zeta))

	plans, err := p.GetChildren(ctx, find(t, children, "plans"))
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, TypePlan, plans[0].Type)
	assert.Equal(t, "Big Launch", plans[0].Title)

	inbox, err := p.GetChildren(ctx, find(t, children, "inbox"))
	require.NoError(t, err)
	assert.Equal(t, []string{".artifacts", "a.md", "b.md", "c.md"}, names(inbox))

	alpha := find(t, inbox, "a.md")
	assert.Equal(t, TypeNote, alpha.Type)
	assert.Equal(t, "Alpha", alpha.Title)
	assert.Equal(t, []string{"ideas", "backend"}, alpha.Tags)
	assert.Equal(t, "20250111-alpha", alpha.Metadata["ID"])
	assert.Equal(t, time.Date(2025, 1, 11, 10, 0, 0, 0, time.UTC), alpha.Metadata["Created"])
	assert.Equal(t, time.Date(2025, 1, 11, 11, 0, 0, 0, time.UTC), alpha.ModTime)

	assert.Equal(t, "Bravo Heading", find(t, inbox, "b.md").Title)
	assert.Equal(t, "c", find(t, inbox, "c.md").Title)

	artifacts, err := p.GetChildren(ctx, find(t, inbox, ".artifacts"))
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, TypeArtifact, artifacts[0].Type)
	assert.Equal(t, "briefing", artifacts[0].Title)

	leaf, err := p.GetChildren(ctx, alpha)
	require.NoError(t, err)
	assert.Empty(t, leaf)
}

func TestProviderHiddenAndCollapsed(t *testing.T) {
	ctx := context.Background()
	root := newNotebook(t)

	p, err := NewProvider(root, Options{ShowHidden: true})
	require.NoError(t, err)
	children, err := p.GetChildren(ctx, p.Root())
	require.NoError(t, err)
	assert.Equal(t, []string{".archive", ".hidden", "archive", "inbox", "Meetings", "plans", ".secret.md", "zeta.txt"}, names(children))

	tests := []struct {
		name      string
		collapsed bool
	}{
		{name: ".archive", collapsed: true},
		{name: "archive", collapsed: true},
		{name: ".hidden", collapsed: false},
		{name: "inbox", collapsed: false},
		{name: ".secret.md", collapsed: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.collapsed, p.CollapseByDefault(find(t, children, tt.name)))
		})
	}

	custom, err := NewProvider(root, Options{CollapsedGroups: []string{"INBOX"}})
	require.NoError(t, err)
	children, err = custom.GetChildren(ctx, custom.Root())
	require.NoError(t, err)
	assert.True(t, custom.CollapseByDefault(find(t, children, "inbox")))
	assert.False(t, custom.CollapseByDefault(find(t, children, "archive")))
}

func TestProviderCancelled(t *testing.T) {
	root := newNotebook(t)
	p, err := NewProvider(root, Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.GetChildren(ctx, p.Root())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProviderErrors(t *testing.T) {
	root := newNotebook(t)

	_, err := NewProvider(filepath.Join(root, "missing"), Options{})
	assert.Error(t, err)
	_, err = NewProvider(filepath.Join(root, "zeta.txt"), Options{})
	assert.Error(t, err)

	p, err := NewProvider(root, Options{})
	require.NoError(t, err)
	gone := &Item{Path: filepath.Join(root, "gone"), Name: "gone", IsDir: true}
	_, err = p.GetChildren(context.Background(), gone)
	assert.Error(t, err)
	assert.False(t, p.HasChildren(gone))
}

func TestProviderLookup(t *testing.T) {
	root := newNotebook(t)
	p, err := NewProvider(root, Options{})
	require.NoError(t, err)

	item, err := p.Lookup(filepath.Join(root, "inbox", "a.md"))
	require.NoError(t, err)
	assert.Equal(t, "Alpha", item.Title)
	assert.Equal(t, filepath.Join(p.Root().Path, "inbox", "a.md"), Identity.GetID(item))

	item, err = p.Lookup(root)
	require.NoError(t, err)
	assert.Equal(t, TypeNotebook, item.Type)

	_, err = p.Lookup(filepath.Dir(root))
	assert.Error(t, err)

	assert.Equal(t, []string{
		filepath.Join(p.Root().Path, "plans"),
		filepath.Join(p.Root().Path, "plans", "20240105-big_launch"),
	}, p.Ancestors(filepath.Join(p.Root().Path, "plans", "20240105-big_launch", "plan.md")))
	assert.Empty(t, p.Ancestors(filepath.Join(p.Root().Path, "zeta.txt")))
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "inbox", want: "Inbox"},
		{in: "team_meetings", want: "Team Meetings"},
		{in: "20240105-big-launch", want: "Big Launch"},
		{in: ".archive", want: "Archive"},
		{in: "notes-on-the-api", want: "Notes on The Api"},
		{in: "-", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, displayName(tt.in))
		})
	}
}

func TestFuzzyFilter(t *testing.T) {
	alpha := &Item{Name: "a.md", Title: "Alpha"}

	match, ok := FuzzyFilter{Pattern: "lph"}.Filter(alpha)
	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, match.MatchedIndexes)

	_, ok = FuzzyFilter{Pattern: "xyz"}.Filter(alpha)
	assert.False(t, ok)

	_, ok = FuzzyFilter{}.Filter(alpha)
	assert.False(t, ok)

	assert.Equal(t, "a.md", (&Item{Name: "a.md"}).Label())
}
