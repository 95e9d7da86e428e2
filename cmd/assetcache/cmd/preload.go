package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	preloadCmd := &cobra.Command{
		Use:   "preload [url-or-path...]",
		Short: "Download a list of images into the cache",
		Long: `Download images in batches. URLs come from the arguments and, with --file,
from a text file holding one URL per line. Without either, warming.image_urls is used.`,
		RunE: runPreload,
	}

	preloadCmd.Flags().String("file", "", "File with one URL per line")
	preloadCmd.Flags().Int("batch-size", 0, "Images per batch (default from cache.preload_batch_size)")

	rootCmd.AddCommand(preloadCmd)
}

func runPreload(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	refs := append([]string(nil), args...)

	if file, _ := cmd.Flags().GetString("file"); file != "" {
		lines, err := readURLFile(file)
		if err != nil {
			return err
		}
		refs = append(refs, lines...)
	}

	if len(refs) == 0 {
		refs = cfg.Warming.ImageURLs
	}
	if len(refs) == 0 {
		return fmt.Errorf("no URLs to preload")
	}

	urls := make([]string, 0, len(refs))
	for _, ref := range refs {
		urls = append(urls, cfg.ResolveURL(ref))
	}

	sys, err := setupCache(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = sys.Close()
	}()

	batchSize, _ := cmd.Flags().GetInt("batch-size")
	results := sys.cache.PreloadImages(cmd.Context(), urls, batchSize)

	failed := 0
	out := cmd.OutOrStdout()
	for _, r := range results {
		if r.Success {
			fmt.Fprintf(out, "ok    %s -> %s\n", r.URL, r.LocalPath)
			continue
		}
		failed++
		fmt.Fprintf(out, "fail  %s: %v\n", r.URL, r.Err)
	}

	fmt.Fprintf(out, "%d/%d images cached\n", len(results)-failed, len(results))

	if failed > 0 {
		return fmt.Errorf("%d images failed to preload", failed)
	}
	return nil
}

// readURLFile reads one URL per line, skipping blanks and # comments.
func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open URL list: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read URL list: %w", err)
	}
	return urls, nil
}
