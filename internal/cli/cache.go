package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/glorpus-work/srcmirror/pkg/cache"
	"github.com/glorpus-work/srcmirror/pkg/logger"
)

// NewCacheCmd creates the cache command with subcommands.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and prune the mirror directories",
		Long:  "Show disk usage of the archive and extraction directories and remove leftovers",
	}

	cmd.AddCommand(
		newCacheCleanCmd(),
		newCacheInfoCmd(),
	)

	return cmd
}

func newCacheCleanCmd() *cobra.Command {
	var options cache.CleanOptions

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove partial downloads, archives or unpacked sources",
		Long: `Remove files from the mirror directories. Without flags only partial
downloads left behind by an interrupted sync are removed.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runCacheClean(options)
		},
	}

	cmd.Flags().BoolVar(&options.Partial, "partial", false, "Remove partial downloads")
	cmd.Flags().BoolVar(&options.Archives, "archives", false, "Remove downloaded archives")
	cmd.Flags().BoolVar(&options.Sources, "sources", false, "Remove unpacked package trees")

	return cmd
}

func newCacheInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show disk usage",
		Long:  "Display the size of the archive and extraction directories",
		Args:  cobra.NoArgs,
		RunE:  runCacheInfo,
	}

	return cmd
}

func loadCacheManager() (*cache.DefaultManager, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return cache.NewManager(cfg.Settings.OutDir, cfg.Settings.ExtractDir)
}

func runCacheClean(options cache.CleanOptions) error {
	cacheManager, err := loadCacheManager()
	if err != nil {
		return err
	}

	result, err := cacheManager.Clean(options)
	if err != nil {
		return err
	}

	if result.PartialFreed > 0 {
		logger.Info("Removed partial downloads", logger.Fields{"size": humanize.IBytes(uint64(result.PartialFreed))})
	}
	if result.ArchivesFreed > 0 {
		logger.Info("Removed archives", logger.Fields{"size": humanize.IBytes(uint64(result.ArchivesFreed))})
	}
	if result.SourcesFreed > 0 {
		logger.Info("Removed unpacked sources", logger.Fields{"size": humanize.IBytes(uint64(result.SourcesFreed))})
	}

	logger.Success("Cache cleaning completed", logger.Fields{"total_freed": humanize.IBytes(uint64(result.TotalFreed))})
	return nil
}

func runCacheInfo(cmd *cobra.Command, _ []string) error {
	cacheManager, err := loadCacheManager()
	if err != nil {
		return err
	}

	info, err := cacheManager.GetInfo()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Archive Directory: %s\n", info.ArchiveDir)
	_, _ = fmt.Fprintf(out, "Archives: %s (%d files)\n", humanize.IBytes(uint64(info.ArchiveSize)), info.ArchiveFiles)
	_, _ = fmt.Fprintf(out, "Partial Downloads: %s (%d files)\n", humanize.IBytes(uint64(info.PartialSize)), info.PartialFiles)
	_, _ = fmt.Fprintf(out, "Extract Directory: %s\n", info.ExtractDir)
	_, _ = fmt.Fprintf(out, "Unpacked Sources: %s (%d packages)\n", humanize.IBytes(uint64(info.ExtractSize)), info.PackageDirs)

	return nil
}
