package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-outline/cmd/config"
	"github.com/mattsolo1/grove-outline/internal/printer"
)

func NewExpandCmd() *cobra.Command {
	return newFoldCmd("expand", true)
}

func NewCollapseCmd() *cobra.Command {
	return newFoldCmd("collapse", false)
}

// newFoldCmd builds expand and collapse. Both reveal the target first so
// it is loaded, then change its state and persist the result.
func newFoldCmd(name string, expand bool) *cobra.Command {
	var (
		recursive bool
		dir       string
		quiet     bool
	)

	short := "Expand a group and remember it"
	if !expand {
		short = "Collapse a group and remember it"
	}

	cmd := &cobra.Command{
		Use:   name + " <path>",
		Short: short,
		Long: short + `. The path may be relative to the current directory or
to the notebook root. A note path reveals the note.

Examples:
  outline ` + name + ` inbox
  outline ` + name + ` plans -r`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, sessionOptions{dir: dir})
			if err != nil {
				return err
			}
			defer s.close()

			item, err := s.resolve(args[0])
			if err != nil {
				return err
			}
			if err := s.reveal(ctx, item); err != nil {
				return err
			}

			var changed bool
			switch {
			case !item.IsDir:
				changed, err = s.outline.ExpandTo(item)
			case expand:
				changed, err = s.outline.Expand(ctx, item, recursive)
			default:
				changed, err = s.outline.Collapse(item, recursive)
			}
			if err != nil {
				return fmt.Errorf("%s %s: %w", name, item.Path, err)
			}
			s.log.WithField("path", item.Path).WithField("changed", changed).Debug(name)

			if err := s.saveState(); err != nil {
				return err
			}
			if quiet {
				return nil
			}
			return printer.New(cmd.OutOrStdout()).Fprint(cmd.OutOrStdout(), s.rows.Items())
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Apply to every group below the path too")
	cmd.Flags().StringVar(&dir, "notebook", "", "Notebook directory (default from config)")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Do not print the outline")
	config.AddGlobalFlags(cmd)

	return cmd
}
