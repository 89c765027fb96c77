package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-outline/cmd/config"
	"github.com/mattsolo1/grove-outline/pkg/viewstate"
)

func NewStateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect or clear the saved view state",
	}

	cmd.AddCommand(newStateListCmd())
	cmd.AddCommand(newStateClearCmd())
	config.AddGlobalFlags(cmd)

	return cmd
}

func openStore() (*viewstate.Store, *config.Config, error) {
	config.InitConfig()
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	store, err := viewstate.Open(cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open view state: %w", err)
	}
	return store, cfg, nil
}

func newStateListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List notebooks with saved state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			roots, err := store.Roots()
			if err != nil {
				return err
			}
			for _, root := range roots {
				state, err := store.Load(root)
				if err != nil {
					return err
				}
				expanded := 0
				for _, e := range state {
					if e {
						expanded++
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d expanded\t%d collapsed\n", root, expanded, len(state)-expanded)
			}
			return nil
		},
	}
}

func newStateClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [dir]",
		Short: "Forget the saved state of a notebook",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			dir := cfg.NotebookDir
			if len(args) == 1 {
				dir = args[0]
			}
			root, err := filepath.Abs(dir)
			if err != nil {
				return err
			}
			if err := store.Clear(root); err != nil {
				return fmt.Errorf("clear view state: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared view state for %s\n", root)
			return nil
		},
	}
}
