package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rbmmusic/assetcache/internal/assetcache"
)

func init() {
	checkCmd := &cobra.Command{
		Use:   "check <url-or-path>...",
		Short: "Show cache status for assets without downloading them",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCheck,
	}

	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	sys, err := setupCache(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = sys.Close()
	}()

	ctx := cmd.Context()
	if err := sys.cache.Initialize(ctx); err != nil {
		logger.Warn("Cache initialization failed, instant lookups will be empty", "err", err)
	}

	checks := make([]assetcache.URLCheck, 0, len(args))
	for _, ref := range args {
		checks = append(checks, sys.cache.CheckURL(ctx, cfg.ResolveURL(ref)))
	}

	return printJSON(cmd.OutOrStdout(), checks)
}
