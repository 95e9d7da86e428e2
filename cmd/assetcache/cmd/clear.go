package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rbmmusic/assetcache/internal/assetcache"
)

func init() {
	clearCmd := &cobra.Command{
		Use:   "clear [key]",
		Short: "Remove cached assets",
		Long: `Remove every cached asset, or only those whose cache key starts with the given key.
Use --url to derive the key from an asset URL.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runClear,
	}

	clearCmd.Flags().String("url", "", "Clear the asset cached for this URL or path")

	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	var key string
	if len(args) == 1 {
		key = args[0]
	}
	if url, _ := cmd.Flags().GetString("url"); url != "" {
		key = assetcache.CacheKey(cfg.ResolveURL(url))
	}

	sys, err := setupCache(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = sys.Close()
	}()

	if err := sys.cache.ClearCache(cmd.Context(), key); err != nil {
		return err
	}

	if key == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared entries for key %s\n", key)
	}
	return nil
}
