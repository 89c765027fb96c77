package main

import (
	"os"

	"github.com/mattsolo1/grove-core/cli"
	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-outline/cmd"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := cli.NewStandardCommand(
		"outline",
		"A lazily loaded, incrementally updated outline of a notebook",
	)

	// Add subcommands
	rootCmd.AddCommand(cmd.NewTreeCmd())
	rootCmd.AddCommand(cmd.NewExpandCmd())
	rootCmd.AddCommand(cmd.NewCollapseCmd())
	rootCmd.AddCommand(cmd.NewWatchCmd())
	rootCmd.AddCommand(cmd.NewStateCmd())
	rootCmd.AddCommand(cmd.NewVersionCmd())

	return rootCmd
}
