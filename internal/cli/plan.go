package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/glorpus-work/srcmirror/pkg/model"
	"github.com/glorpus-work/srcmirror/pkg/reconcile"
)

// NewPlanCmd creates the plan command.
func NewPlanCmd() *cobra.Command {
	var flags syncFlags

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show which source archives a sync would download",
		Long:  "Fetch and parse the Sources index and list the archives that are missing or stale, without downloading anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlan(cmd, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.noVerify, "no-verify", false, "Only check that local archives exist, do not re-hash them")
	cmd.Flags().BoolVar(&flags.packageFromFilename, "package-from-filename", false, "Name extraction directories after the archive filename")
	cmd.Flags().BoolVar(&flags.latestOnly, "latest-only", false, "Only list the newest version of each package")

	return cmd
}

func runPlan(cmd *cobra.Command, flags syncFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	orch, err := newOrchestrator(cfg, nil)
	if err != nil {
		return err
	}

	src := sourceFromConfig(cfg)
	opts := optionsFromConfig(cfg)
	applySyncFlags(&src, &opts, flags)

	items, err := orch.Plan(cmd.Context(), src, opts)
	if err != nil {
		return fmt.Errorf("failed to plan sync: %w", err)
	}

	return printPlan(cmd, items)
}

func printPlan(cmd *cobra.Command, items []model.WorkItem) error {
	out := cmd.OutOrStdout()
	if len(items) == 0 {
		_, _ = fmt.Fprintln(out, "Nothing to download.")
		return nil
	}

	tabWriter := tabwriter.NewWriter(out, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tabWriter, "ARCHIVE\tPACKAGE\tSIZE\tCHECKSUM")
	for _, it := range items {
		_, _ = fmt.Fprintf(tabWriter, "%s\t%s\t%s\t%s\n",
			it.Record.Filename, it.Package, humanize.IBytes(uint64(it.Record.Size)), checksumColumn(it.Record))
	}
	if err := tabWriter.Flush(); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "\n%d archives, %s total\n", len(items), humanize.IBytes(uint64(reconcile.TotalSize(items))))
	return nil
}

func checksumColumn(rec model.ArchiveRecord) string {
	if !rec.HasChecksum() {
		return "-"
	}
	return rec.Algorithm.String() + ":" + rec.ChecksumHex()
}
