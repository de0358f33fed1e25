package turbo

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vercel/turborepo-cache/internal/config"
	"github.com/vercel/turborepo-cache/internal/remotecache"
	"github.com/vercel/turborepo-cache/internal/turbopath"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Push and pull cache archives from the remote cache",
	}
	cmd.AddCommand(newCachePushCmd())
	cmd.AddCommand(newCachePullCmd())
	cmd.AddCommand(newCacheExistsCmd())
	return cmd
}

func remoteClientFromConfig(cfg *config.Config) *remotecache.Client {
	return remotecache.New(remotecache.Config{
		APIURL:       cfg.APIUrl,
		Token:        cfg.Token,
		TeamID:       cfg.TeamID,
		TeamSlug:     cfg.TeamSlug,
		Logger:       cfg.Logger,
		UsePreflight: cfg.UsePreflight,
		Signature:    cfg.Signature,
	})
}

func newCachePushCmd() *cobra.Command {
	var durationMs int

	cmd := &cobra.Command{
		Use:   "push HASH ARCHIVE",
		Short: "Upload a local archive to the remote cache under HASH",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New(cmd)
			if err != nil {
				return err
			}

			hash, archive := args[0], args[1]
			archivePath := turbopath.AbsoluteSystemPathFromUpstream(archive)

			client := remoteClientFromConfig(cfg)
			if err := client.Put(hash, archivePath, durationMs); err != nil {
				return fmt.Errorf("pushing %s: %w", hash, err)
			}
			cfg.Logger.Info("pushed artifact", "hash", hash)
			return nil
		},
	}

	cmd.Flags().IntVar(&durationMs, "duration", 0, "build duration in milliseconds to record alongside the artifact")
	return cmd
}

func newCachePullCmd() *cobra.Command {
	var anchor string

	cmd := &cobra.Command{
		Use:   "pull HASH",
		Short: "Fetch HASH from the remote cache and restore it beneath --anchor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if anchor == "" {
				return fmt.Errorf("--anchor is required")
			}

			cfg, err := config.New(cmd)
			if err != nil {
				return err
			}

			hash := args[0]
			anchorPath := turbopath.AbsoluteSystemPathFromUpstream(anchor)

			client := remoteClientFromConfig(cfg)
			result, err := client.Fetch(hash, anchorPath)
			if err != nil {
				return fmt.Errorf("pulling %s: %w", hash, err)
			}
			if !result.Hit {
				return fmt.Errorf("cache miss for %s", hash)
			}

			for _, file := range result.Restored {
				fmt.Fprintln(cmd.OutOrStdout(), file.ToString())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&anchor, "anchor", "", "directory to restore files beneath")
	return cmd
}

func newCacheExistsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exists HASH",
		Short: "Check whether HASH exists in the remote cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New(cmd)
			if err != nil {
				return err
			}

			client := remoteClientFromConfig(cfg)
			exists, err := client.Exists(args[0])
			if err != nil {
				return fmt.Errorf("checking %s: %w", args[0], err)
			}
			if !exists {
				return fmt.Errorf("not found: %s", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), "found")
			return nil
		},
	}
	return cmd
}
