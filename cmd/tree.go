package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-outline/cmd/config"
	"github.com/mattsolo1/grove-outline/internal/printer"
)

func NewTreeCmd() *cobra.Command {
	var (
		all     bool
		filter  string
		noState bool
		reset   bool
	)

	cmd := &cobra.Command{
		Use:   "tree [dir]",
		Short: "Print the notebook outline",
		Long: `Print the notebook outline. Groups expanded in earlier runs are shown
expanded; archive-style groups start collapsed.

Examples:
  outline tree
  outline tree ~/notebooks/work --all
  outline tree --filter meet`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts := sessionOptions{noState: noState, reset: reset, filter: filter}
			if len(args) == 1 {
				opts.dir = args[0]
			}

			s, err := openSession(ctx, opts)
			if err != nil {
				return err
			}
			defer s.close()

			if all {
				if _, err := s.outline.ExpandAll(ctx); err != nil {
					return fmt.Errorf("expand all: %w", err)
				}
			}

			p := printer.New(cmd.OutOrStdout())
			p.Filtering = filter != ""
			return p.Fprint(cmd.OutOrStdout(), s.rows.Items())
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Expand every group")
	cmd.Flags().StringVar(&filter, "filter", "", "Highlight items fuzzy matching the pattern")
	cmd.Flags().BoolVar(&noState, "no-state", false, "Ignore the saved view state")
	cmd.Flags().BoolVar(&reset, "reset", false, "Forget the saved view state before printing")
	config.AddGlobalFlags(cmd)

	return cmd
}
