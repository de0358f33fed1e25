// Package turbo is the command-line entry point for the cache archive
// engine: creating and restoring local cache archives, and pushing and
// pulling them from a remote cache.
package turbo

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vercel/turborepo-cache/internal/config"
)

const version = "1.0.0"

// Run executes the CLI and returns a process exit code.
func Run() int {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "turbo-cache",
		Short:         "Content-addressed build cache archiver",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	config.AddPersistentFlags(root)

	root.AddCommand(newArchiveCmd())
	root.AddCommand(newCacheCmd())

	return root
}
