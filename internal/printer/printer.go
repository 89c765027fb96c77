// Package printer renders the revealed rows of a notebook outline as
// text, one row per line with neotree style connectors.
package printer

import (
	"io"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/mattsolo1/grove-core/tui/theme"

	"github.com/mattsolo1/grove-outline/pkg/notebook"
	"github.com/mattsolo1/grove-outline/pkg/tree"
)

// Row is one revealed node of the outline.
type Row = *tree.TreeNode[*notebook.Item, notebook.Match]

// Styles holds the styles applied to each part of a line.
type Styles struct {
	Prefix lipgloss.Style
	Group  lipgloss.Style
	Note   lipgloss.Style
	Muted  lipgloss.Style
	Match  lipgloss.Style
	Icons  bool
}

// PlainStyles renders text without colours or icons.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{Prefix: plain, Group: plain, Note: plain, Muted: plain, Match: plain}
}

// ColorStyles uses the grove theme.
func ColorStyles() Styles {
	return Styles{
		Prefix: theme.DefaultTheme.Muted,
		Group:  lipgloss.NewStyle().Bold(true).Foreground(theme.DefaultTheme.Colors.Blue),
		Note:   lipgloss.NewStyle(),
		Muted:  theme.DefaultTheme.Muted,
		Match:  lipgloss.NewStyle().Bold(true).Foreground(theme.DefaultTheme.Colors.Orange),
		Icons:  true,
	}
}

// StylesFor picks colour styles when w is a terminal.
func StylesFor(w io.Writer) Styles {
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return ColorStyles()
	}
	return PlainStyles()
}

// Printer renders outline rows.
type Printer struct {
	Styles Styles

	// Filtering mutes rows the filter did not match.
	Filtering bool
}

// New creates a printer styled for w.
func New(w io.Writer) *Printer {
	return &Printer{Styles: StylesFor(w)}
}

// Fprint writes rows to w.
func (p *Printer) Fprint(w io.Writer, rows []Row) error {
	_, err := io.WriteString(w, p.Render(rows))
	return err
}

// Render returns rows as text, each line ending in a newline.
func (p *Printer) Render(rows []Row) string {
	var b strings.Builder
	for i, prefix := range prefixes(rows) {
		b.WriteString(p.Styles.Prefix.Render(prefix))
		b.WriteString(p.renderRow(rows[i]))
		b.WriteString("\n")
	}
	return b.String()
}

func (p *Printer) renderRow(row Row) string {
	item := row.Element()

	var b strings.Builder
	switch {
	case !row.Collapsible():
		b.WriteString("  ")
	case row.Collapsed():
		b.WriteString("▸ ")
	default:
		b.WriteString("▾ ")
	}
	if p.Styles.Icons {
		b.WriteString(icon(item))
		b.WriteString(" ")
	}

	base := p.Styles.Note
	if item.IsDir {
		base = p.Styles.Group
	}
	match, matched := row.Metadata()
	if p.Filtering && !matched {
		base = p.Styles.Muted
	}
	b.WriteString(highlight(item.Label(), match.MatchedIndexes, base, p.Styles.Match))

	if len(item.Tags) > 0 {
		b.WriteString(p.Styles.Muted.Render(" #" + strings.Join(item.Tags, " #")))
	}
	return b.String()
}

// highlight renders label with the bytes at indexes in the match style.
func highlight(label string, indexes []int, base, match lipgloss.Style) string {
	if len(indexes) == 0 {
		return base.Render(label)
	}
	marked := make(map[int]bool, len(indexes))
	for _, i := range indexes {
		marked[i] = true
	}

	var b, run strings.Builder
	runMatched := false
	flush := func() {
		if run.Len() == 0 {
			return
		}
		if runMatched {
			b.WriteString(match.Render(run.String()))
		} else {
			b.WriteString(base.Render(run.String()))
		}
		run.Reset()
	}
	for i, r := range label {
		if marked[i] != runMatched {
			flush()
			runMatched = marked[i]
		}
		run.WriteRune(r)
	}
	flush()
	return b.String()
}

func icon(item *notebook.Item) string {
	switch item.Type {
	case notebook.TypeNotebook, notebook.TypeGroup:
		if slices.Contains(notebook.DefaultCollapsedGroups, strings.ToLower(item.Name)) {
			return theme.IconArchive
		}
		return theme.IconFolder
	case notebook.TypePlan:
		return theme.IconPlan
	case notebook.TypeNote:
		return theme.IconNote
	default:
		return theme.IconDocs
	}
}

// prefixes computes the connector drawn before each row. Top level rows
// get none; deeper rows get one column per ancestor level.
func prefixes(rows []Row) []string {
	out := make([]string, len(rows))
	// lastAtDepth tracks whether the most recent row at a depth was the
	// last among its siblings.
	lastAtDepth := make(map[int]bool)

	for i, row := range rows {
		depth := row.Depth() - 1

		isLast := true
		for j := i + 1; j < len(rows); j++ {
			d := rows[j].Depth() - 1
			if d < depth {
				break
			}
			if d == depth {
				isLast = false
				break
			}
		}

		var b strings.Builder
		for d := 0; d < depth; d++ {
			switch {
			case d == depth-1 && isLast:
				b.WriteString("└ ")
			case d == depth-1:
				b.WriteString("│ ")
			case lastAtDepth[d+1]:
				b.WriteString("  ")
			default:
				b.WriteString("│ ")
			}
		}
		out[i] = b.String()
		lastAtDepth[depth] = isLast
	}
	return out
}
