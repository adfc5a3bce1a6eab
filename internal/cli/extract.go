package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/srcmirror/pkg/archive"
	"github.com/glorpus-work/srcmirror/pkg/logger"
	"github.com/glorpus-work/srcmirror/pkg/orchestrator"
)

// Number of arguments expected by the extract command.
const extractCommandArgs = 2

// NewExtractCmd creates the extract command.
func NewExtractCmd() *cobra.Command {
	var skipHooks []string

	cmd := &cobra.Command{
		Use:   "extract ARCHIVE_DIR OUT_DIR",
		Short: "Unpack source archives that are already on disk",
		Long: `Unpack every source archive found directly in ARCHIVE_DIR into
OUT_DIR/<package>, the package being the part of the filename before the
first underscore.`,
		Args: cobra.ExactArgs(extractCommandArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, args[0], args[1], skipHooks)
		},
	}

	cmd.Flags().StringSliceVar(&skipHooks, "skip-hook", nil, "Do not run the configured hook of this type (post-extract, post-sync)")

	return cmd
}

func runExtract(cmd *cobra.Command, archiveDir, outDir string, skipHooks []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	hookManager, err := loadHookManager(cfg, skipHooks)
	if err != nil {
		return err
	}

	paths, err := archive.ScanDir(archiveDir)
	if err != nil {
		return err
	}
	bar := newCountBar(cmd.ErrOrStderr(), len(paths))

	orch := &orchestrator.Orchestrator{
		Extractor: archive.NewManager(),
		Scripts:   hookManager,
		Hooks: orchestrator.Hooks{OnEvent: func(e orchestrator.Event) {
			logEvent(e)
			bar.Observe(e)
		}},
	}

	res, err := orch.ExtractLocal(cmd.Context(), archiveDir, outDir)
	bar.Finish()
	fields := logger.Fields{"extracted": res.Extracted, "failed": len(res.Failed)}
	if err != nil {
		logger.Error("Extraction finished with errors", fields)
		return fmt.Errorf("extract failed: %w", err)
	}
	logger.Success("Extraction complete", fields)
	return nil
}
