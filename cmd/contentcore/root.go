package main

import (
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "contentcore",
		Short:         "Cached content reads and ownership-checked writes",
		Long:          `Serve ideas, profiles and owner posts with a tag-invalidated read cache and owner-scoped mutations.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd())
	return root
}
