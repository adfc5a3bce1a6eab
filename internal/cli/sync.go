package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/glorpus-work/srcmirror/pkg/logger"
	"github.com/glorpus-work/srcmirror/pkg/model"
	"github.com/glorpus-work/srcmirror/pkg/orchestrator"
	"github.com/glorpus-work/srcmirror/pkg/reconcile"
)

type syncFlags struct {
	yes                 bool
	noVerify            bool
	deleteAfterExtract  bool
	packageFromFilename bool
	latestOnly          bool
	noExtract           bool
	skipHooks           []string
}

// NewSyncCmd creates the sync command.
func NewSyncCmd() *cobra.Command {
	var flags syncFlags

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Download and unpack missing source archives",
		Long: `Fetch the Sources index of the configured mirror, work out which
source archives are missing or stale in the archive directory, download them
and unpack each into <extract_dir>/<package>.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd, flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "Do not ask for confirmation")
	cmd.Flags().BoolVar(&flags.noVerify, "no-verify", false, "Only check that local archives exist, do not re-hash them")
	cmd.Flags().BoolVar(&flags.deleteAfterExtract, "delete-after-extract", false, "Remove each archive once it was unpacked")
	cmd.Flags().BoolVar(&flags.packageFromFilename, "package-from-filename", false, "Name extraction directories after the archive filename")
	cmd.Flags().BoolVar(&flags.latestOnly, "latest-only", false, "Only mirror the newest version of each package")
	cmd.Flags().BoolVar(&flags.noExtract, "no-extract", false, "Download archives without unpacking them")
	cmd.Flags().StringSliceVar(&flags.skipHooks, "skip-hook", nil, "Do not run the configured hook of this type (post-extract, post-sync)")

	return cmd
}

func runSync(cmd *cobra.Command, flags syncFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	orch, err := newOrchestrator(cfg, flags.skipHooks)
	if err != nil {
		return err
	}

	src := sourceFromConfig(cfg)
	opts := optionsFromConfig(cfg)
	applySyncFlags(&src, &opts, flags)

	ctx := cmd.Context()
	items, err := orch.Plan(ctx, src, opts)
	if err != nil {
		return fmt.Errorf("failed to plan sync: %w", err)
	}
	if len(items) == 0 {
		logger.Success("All source archives are up to date")
		return nil
	}

	question := fmt.Sprintf("Download %d archives (%s)?", len(items), humanize.IBytes(uint64(reconcile.TotalSize(items))))
	if !flags.yes {
		ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(), question)
		if err != nil {
			return err
		}
		if !ok {
			logger.Info("Aborted")
			return nil
		}
	}

	sink := newProgressSink(cmd.ErrOrStderr())
	orch.Hooks = orchestrator.Hooks{
		OnEvent:    logEvent,
		OnProgress: sink.Update,
	}

	res, err := orch.Sync(ctx, items, opts)
	sink.Finish()

	fields := logger.Fields{
		"downloaded": res.Downloaded,
		"bytes":      humanize.IBytes(uint64(res.Bytes)),
		"extracted":  res.Extracted,
		"failed":     len(res.Failed),
	}
	if err != nil {
		logger.Error("Sync finished with errors", fields)
		return fmt.Errorf("sync failed: %w", err)
	}
	logger.Success("Sync complete", fields)
	return nil
}

func applySyncFlags(src *orchestrator.Source, opts *orchestrator.Options, flags syncFlags) {
	if flags.noVerify {
		opts.VerifyChecksum = false
	}
	if flags.deleteAfterExtract {
		opts.DeleteAfterExtract = true
	}
	if flags.packageFromFilename {
		opts.PackageSource = model.PackageFromFilenameSource
	}
	if flags.latestOnly {
		src.LatestOnly = true
	}
	if flags.noExtract {
		opts.NoExtract = true
	}
}

func logEvent(e orchestrator.Event) {
	switch e.Phase {
	case orchestrator.PhaseError:
		// already reported by the orchestrator
	case orchestrator.PhaseDownloading, orchestrator.PhaseExtracting:
		logger.Debug(e.Phase, logger.Fields{"archive": e.ID, "target": e.Msg})
	default:
		logger.Debug(e.Phase, logger.Fields{"detail": e.Msg})
	}
}
