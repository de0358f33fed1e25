package turbo

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vercel/turborepo-cache/internal/cacheitem"
	"github.com/vercel/turborepo-cache/internal/turbopath"
)

func newArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Create and restore local cache archives",
	}
	cmd.AddCommand(newArchiveCreateCmd())
	cmd.AddCommand(newArchiveRestoreCmd())
	return cmd
}

func newArchiveCreateCmd() *cobra.Command {
	var anchor string
	var output string

	cmd := &cobra.Command{
		Use:   "create [flags] FILE...",
		Short: "Archive the given anchor-relative files into a single cache item",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if anchor == "" {
				return fmt.Errorf("--anchor is required")
			}
			if output == "" {
				return fmt.Errorf("--output is required")
			}

			anchorPath := turbopath.AbsoluteSystemPathFromUpstream(anchor)
			outputPath := turbopath.AbsoluteSystemPathFromUpstream(output)

			item, err := cacheitem.Create(outputPath)
			if err != nil {
				return fmt.Errorf("creating archive: %w", err)
			}
			defer func() { _ = item.Close() }()

			for _, file := range args {
				relative := turbopath.AnchoredSystemPathFromUpstream(file)
				if err := item.AddFile(anchorPath, relative); err != nil {
					return fmt.Errorf("adding %s: %w", file, err)
				}
			}

			return item.Close()
		},
	}

	cmd.Flags().StringVar(&anchor, "anchor", "", "directory the file arguments are relative to")
	cmd.Flags().StringVar(&output, "output", "", "path to write the archive to")
	return cmd
}

func newArchiveRestoreCmd() *cobra.Command {
	var anchor string

	cmd := &cobra.Command{
		Use:   "restore [flags] ARCHIVE",
		Short: "Restore a cache item beneath an anchor directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if anchor == "" {
				return fmt.Errorf("--anchor is required")
			}

			anchorPath := turbopath.AbsoluteSystemPathFromUpstream(anchor)
			archivePath := turbopath.AbsoluteSystemPathFromUpstream(args[0])

			item, err := cacheitem.Open(archivePath)
			if err != nil {
				return fmt.Errorf("opening archive: %w", err)
			}
			defer func() { _ = item.Close() }()

			restored, err := item.Restore(anchorPath)
			if err != nil {
				return fmt.Errorf("restoring archive: %w", err)
			}

			for _, file := range restored {
				fmt.Fprintln(cmd.OutOrStdout(), file.ToString())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&anchor, "anchor", "", "directory to restore files beneath")
	return cmd
}
