package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "marketplace-web",
		Short:         "Marketplace web front end",
		Long:          "Serves the B2B marketplace shell and the session-aware JSON API in front of the marketplace backend.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(),
		newVersionCmd(),
	)

	return root
}
