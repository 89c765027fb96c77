package notebook

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mattsolo1/grove-outline/pkg/frontmatter"
)

// newItem creates an Item for path, determining its type from its
// location and extracting note metadata from frontmatter.
func (p *Provider) newItem(path string, info fs.FileInfo, parent *Item) (*Item, error) {
	item := &Item{
		Path:     path,
		Name:     info.Name(),
		IsDir:    info.IsDir(),
		ModTime:  info.ModTime(),
		Metadata: make(map[string]interface{}),
	}

	if info.IsDir() {
		item.Type = TypeGroup
		if parent != nil && strings.EqualFold(parent.Name, "plans") {
			item.Type = TypePlan
		}
		item.Title = displayName(info.Name())
		return item, nil
	}

	switch {
	case strings.HasSuffix(info.Name(), ".md"):
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		item.Type = TypeNote

		fm, body, err := frontmatter.Parse(string(content))
		if err != nil {
			p.log.WithError(err).WithField("path", path).Debug("ignoring malformed frontmatter")
		}
		if fm != nil {
			item.Title = fm.Title
			item.Tags = fm.Tags
			if fm.ID != "" {
				item.Metadata["ID"] = fm.ID
			}
			if fm.Type != "" {
				item.Metadata["NoteType"] = fm.Type
			}
			if fm.Draft {
				item.Metadata["Draft"] = true
			}
			// Use frontmatter timestamps if available
			if created, err := frontmatter.ParseTimestamp(fm.Created); err == nil {
				item.Metadata["Created"] = created
			}
			if modified, err := frontmatter.ParseTimestamp(fm.Modified); err == nil {
				item.ModTime = modified
			}
		}
		if item.Title == "" {
			item.Title = frontmatter.Heading(body)
		}
		if item.Title == "" {
			item.Title = strings.TrimSuffix(info.Name(), ".md")
		}

	case strings.Contains(path, string(filepath.Separator)+".artifacts"+string(filepath.Separator)):
		item.Type = TypeArtifact
		item.Title = strings.TrimSuffix(info.Name(), filepath.Ext(info.Name()))

	default:
		item.Type = TypeGeneric
		item.Title = info.Name()
		item.Metadata["Extension"] = strings.TrimPrefix(filepath.Ext(info.Name()), ".")
	}

	return item, nil
}

var datePrefix = regexp.MustCompile(`^\d{8}-`)

// displayName turns a directory name like "20240105-team_meetings" into
// "Team Meetings".
func displayName(name string) string {
	title := strings.TrimPrefix(name, ".")
	if datePrefix.MatchString(title) && len(title) > 9 {
		title = title[9:]
	}
	title = strings.NewReplacer("-", " ", "_", " ").Replace(title)

	caser := cases.Title(language.English)
	words := strings.Fields(title)
	for i, word := range words {
		if i == 0 || len(word) > 2 {
			words[i] = caser.String(strings.ToLower(word))
		} else {
			words[i] = strings.ToLower(word)
		}
	}
	return strings.Join(words, " ")
}
