package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-outline/cmd/config"
	"github.com/mattsolo1/grove-outline/internal/printer"
	"github.com/mattsolo1/grove-outline/pkg/asynctree"
	"github.com/mattsolo1/grove-outline/pkg/notebook"
	"github.com/mattsolo1/grove-outline/pkg/tree"
	"github.com/mattsolo1/grove-outline/pkg/viewstate"
)

// Outline is the tree type every command works with.
type Outline = asynctree.Tree[*notebook.Item, notebook.Match]

type sessionOptions struct {
	dir     string
	noState bool
	reset   bool
	filter  string
}

// session is one loaded notebook outline with its persisted view state.
type session struct {
	cfg      *config.Config
	log      *logrus.Entry
	provider *notebook.Provider
	rows     *tree.FlatList[printer.Row]
	outline  *Outline
	store    *viewstate.Store
	saved    map[string]bool
}

// openSession loads the notebook's top level, applying the saved view
// state so previously expanded groups come back expanded.
func openSession(ctx context.Context, opts sessionOptions) (*session, error) {
	config.InitConfig()
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := config.NewLogger()

	dir := opts.dir
	if dir == "" {
		dir = cfg.NotebookDir
	}
	provider, err := notebook.NewProvider(dir, notebook.Options{
		ShowHidden:      cfg.ShowHidden,
		CollapsedGroups: cfg.CollapsedGroups,
		Logger:          log.WithField("component", "notebook"),
	})
	if err != nil {
		return nil, err
	}
	root := provider.Root()

	s := &session{
		cfg:      cfg,
		log:      log,
		provider: provider,
		rows:     tree.NewFlatList[printer.Row](),
		saved:    make(map[string]bool),
	}

	if !opts.noState {
		s.store, err = viewstate.Open(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open view state: %w", err)
		}
		if opts.reset {
			if err := s.store.Clear(root.ID()); err != nil {
				s.store.Close()
				return nil, fmt.Errorf("clear view state: %w", err)
			}
		}
		s.saved, err = s.store.Load(root.ID())
		if err != nil {
			s.store.Close()
			return nil, fmt.Errorf("load view state: %w", err)
		}
		log.WithFields(logrus.Fields{"root": root.ID(), "entries": len(s.saved)}).Debug("loaded view state")
	}

	treeOpts := asynctree.Options[*notebook.Item, notebook.Match]{
		IdentityProvider:   notebook.Identity,
		CollapsedByDefault: cfg.CollapsedByDefault,
		ViewState:          &asynctree.ViewState{Expanded: s.saved},
		Logger:             log.WithField("component", "asynctree"),
	}
	if opts.filter != "" {
		treeOpts.Filter = notebook.FuzzyFilter{Pattern: opts.filter}
	}

	s.outline, err = asynctree.New(s.rows, root, provider, treeOpts)
	if err != nil {
		s.close()
		return nil, err
	}
	if err := s.outline.Refresh(ctx); err != nil {
		s.close()
		return nil, fmt.Errorf("load notebook: %w", err)
	}
	return s, nil
}

// resolve maps a command line path to a notebook item. Relative paths
// are tried against the working directory, then the notebook root.
func (s *session) resolve(path string) (*notebook.Item, error) {
	if !filepath.IsAbs(path) {
		if _, err := os.Stat(path); err != nil {
			path = filepath.Join(s.provider.Root().Path, path)
		}
	}
	return s.provider.Lookup(path)
}

// reveal loads and expands every ancestor of item.
func (s *session) reveal(ctx context.Context, item *notebook.Item) error {
	for _, dir := range s.provider.Ancestors(item.Path) {
		ancestor, err := s.provider.Lookup(dir)
		if err != nil {
			return err
		}
		if _, err := s.outline.Expand(ctx, ancestor, false); err != nil {
			return fmt.Errorf("expand %s: %w", dir, err)
		}
	}
	return nil
}

// refreshDir refreshes the nearest loaded directory at or above dir.
func (s *session) refreshDir(ctx context.Context, dir string) error {
	for {
		item, err := s.provider.Lookup(dir)
		if err == nil {
			if resolved, err := s.outline.IsResolved(item); err == nil && resolved {
				return s.outline.RefreshElement(ctx, item)
			}
		}
		if dir == s.provider.Root().Path {
			return s.outline.Refresh(ctx)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return s.outline.Refresh(ctx)
		}
		dir = parent
	}
}

// saveState merges the outline's current expanded state into the store.
func (s *session) saveState() error {
	if s.store == nil {
		return nil
	}
	for id, expanded := range s.outline.ViewState().Expanded {
		s.saved[id] = expanded
	}
	if err := s.store.Save(s.provider.Root().ID(), s.saved); err != nil {
		return fmt.Errorf("save view state: %w", err)
	}
	return nil
}

func (s *session) close() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.log.WithError(err).Warn("closing view state")
		}
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, tree.ErrNotFound)
}
