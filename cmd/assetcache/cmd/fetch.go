package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rbmmusic/assetcache/internal/assetcache"
)

func init() {
	fetchCmd := &cobra.Command{
		Use:   "fetch <url-or-path>",
		Short: "Cache a single asset and print its local result",
		Long: `Cache one image or JSON document. Relative paths are resolved against cdn.base_url.
JSON documents are printed to stdout; images print the local file path.`,
		Args: cobra.ExactArgs(1),
		RunE: runFetch,
	}

	fetchCmd.Flags().Bool("force", false, "Bypass the cache and download again")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
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

	force, _ := cmd.Flags().GetBool("force")
	url := cfg.ResolveURL(args[0])
	ctx := cmd.Context()

	if assetcache.ClassifyURL(url) == assetcache.KindJSON {
		res, err := sys.cache.CacheJSON(ctx, url, force)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(res.Data))
		return err
	}

	res, err := sys.cache.CacheImage(ctx, url, force)
	if err != nil {
		return err
	}

	return printJSON(cmd.OutOrStdout(), res)
}
