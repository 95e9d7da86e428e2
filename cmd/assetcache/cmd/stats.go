package cmd

import (
	"github.com/spf13/cobra"
)

func init() {
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache directory and metadata statistics",
		RunE:  runStats,
	}

	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
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

	return printJSON(cmd.OutOrStdout(), sys.cache.Stats(cmd.Context()))
}
