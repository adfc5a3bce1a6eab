package orchestrator

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glorpus-work/srcmirror/pkg/archive"
	"github.com/glorpus-work/srcmirror/pkg/download"
	"github.com/glorpus-work/srcmirror/pkg/errors"
	"github.com/glorpus-work/srcmirror/pkg/fsutil"
	"github.com/glorpus-work/srcmirror/pkg/hooks"
	"github.com/glorpus-work/srcmirror/pkg/index"
	"github.com/glorpus-work/srcmirror/pkg/logger"
	"github.com/glorpus-work/srcmirror/pkg/model"
	"github.com/glorpus-work/srcmirror/pkg/reconcile"
)

func emit(h Hooks, e Event) {
	if h.OnEvent != nil {
		h.OnEvent(e)
	}
}

// LoadRecords fetches and parses the index of every component in src, in
// order. A malformed index aborts the whole load.
func (o *Orchestrator) LoadRecords(ctx context.Context, src Source) ([]model.ArchiveRecord, error) {
	if o.Index == nil {
		return nil, fmt.Errorf("index source is not configured")
	}

	var records []model.ArchiveRecord
	for _, component := range src.Components {
		emit(o.Hooks, Event{Phase: PhaseIndexing, Msg: src.Dist + "/" + component})
		text, err := o.Index.FetchSources(ctx, src.BaseURL, src.Dist, component)
		if err != nil {
			return nil, err
		}
		recs, err := index.Parse(bytes.NewReader(text), index.Options{BaseURL: src.BaseURL, Variant: src.Variant})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse index of %s/%s", src.Dist, component)
		}
		logger.Debug("Parsed index", logger.Fields{"component": component, "archives": len(recs)})
		records = append(records, recs...)
	}

	if src.LatestOnly {
		return index.LatestOnly(records)
	}
	return records, nil
}

// Plan loads the index and returns the archives that are missing or stale in
// opts.OutDir.
func (o *Orchestrator) Plan(ctx context.Context, src Source, opts Options) ([]model.WorkItem, error) {
	records, err := o.LoadRecords(ctx, src)
	if err != nil {
		return nil, err
	}

	emit(o.Hooks, Event{Phase: PhasePlanning, Msg: fmt.Sprintf("%d archives listed", len(records))})
	items, err := reconcile.Plan(records, reconcile.NewOSDirState(opts.OutDir), reconcile.PlanOptions{
		OutDir:        opts.OutDir,
		ExtractDir:    opts.ExtractDir,
		Verify:        opts.VerifyChecksum,
		PackageSource: opts.PackageSource,
	})
	if err != nil {
		return nil, err
	}

	for _, it := range items {
		if opts.PackageSource == model.PackageFromIndex && it.Record.Package != it.Package {
			logger.Warn("No usable package name in index, using filename", logger.Fields{
				"archive": it.Record.Filename,
				"package": it.Package,
			})
		}
	}
	return items, nil
}

// Sync downloads and extracts items in order.
//
// A download failure stops the run and is returned as is, wrapping
// errors.ErrFetchFailed. An extraction failure only affects its archive: the
// run goes on and all extraction failures are joined into the returned error.
// Either way the returned Result describes the work that completed.
func (o *Orchestrator) Sync(ctx context.Context, items []model.WorkItem, opts Options) (Result, error) {
	var res Result
	if o.DL == nil {
		return res, fmt.Errorf("download manager is not configured")
	}
	if !opts.NoExtract && o.Extractor == nil {
		return res, fmt.Errorf("extractor is not configured")
	}
	if err := fsutil.EnsureDir(opts.OutDir); err != nil {
		return res, errors.Wrapf(err, "failed to create %s", opts.OutDir)
	}

	var failures []error
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		emit(o.Hooks, Event{Phase: PhaseDownloading, ID: it.Record.Filename, Msg: it.Record.URL})
		n, err := o.DL.FetchToFile(ctx, download.ItemFromRecord(it.Record), it.LocalPath, o.progressFor(it))
		if err != nil {
			emit(o.Hooks, Event{Phase: PhaseError, ID: it.Record.Filename, Msg: err.Error()})
			return res, err
		}
		res.Downloaded++
		res.Bytes += n

		if opts.NoExtract {
			continue
		}
		if err := o.extractItem(ctx, it, opts.DeleteAfterExtract); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			res.Failed = append(res.Failed, it.LocalPath)
			failures = append(failures, err)
			continue
		}
		res.Extracted++
	}

	o.runPostSync(res)
	emit(o.Hooks, Event{Phase: PhaseDone, Msg: fmt.Sprintf("%d downloaded, %d extracted, %d failed", res.Downloaded, res.Extracted, len(res.Failed))})
	return res, stderrors.Join(failures...)
}

// ExtractLocal unpacks every archive found directly in archiveDir into
// outDir/<package>, the package being derived from the archive filename.
// Failures are collected like in Sync.
func (o *Orchestrator) ExtractLocal(ctx context.Context, archiveDir, outDir string) (Result, error) {
	var res Result
	if o.Extractor == nil {
		return res, fmt.Errorf("extractor is not configured")
	}

	paths, err := archive.ScanDir(archiveDir)
	if err != nil {
		return res, err
	}

	var failures []error
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		name := filepath.Base(p)
		pkg := model.PackageFromFilename(name)
		if !model.ValidPackageName(pkg) {
			err := errors.NewExtractFailedError(p, errors.Wrapf(errors.ErrInvalidRecord, "no package name in %q", name))
			logger.Warn("Skipping archive", logger.Fields{"archive": p, "error": err.Error()})
			emit(o.Hooks, Event{Phase: PhaseError, ID: name, Msg: err.Error()})
			res.Failed = append(res.Failed, p)
			failures = append(failures, err)
			continue
		}
		it := model.WorkItem{
			Record:     model.ArchiveRecord{Package: pkg, Filename: name},
			LocalPath:  p,
			Package:    pkg,
			ExtractDir: filepath.Join(outDir, pkg),
		}
		if err := o.extractItem(ctx, it, false); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			res.Failed = append(res.Failed, p)
			failures = append(failures, err)
			continue
		}
		res.Extracted++
	}

	emit(o.Hooks, Event{Phase: PhaseDone, Msg: fmt.Sprintf("%d extracted, %d failed", res.Extracted, len(res.Failed))})
	return res, stderrors.Join(failures...)
}

func (o *Orchestrator) extractItem(ctx context.Context, it model.WorkItem, deleteAfter bool) error {
	emit(o.Hooks, Event{Phase: PhaseExtracting, ID: it.Record.Filename, Msg: it.ExtractDir})
	if err := o.Extractor.Extract(ctx, it.LocalPath, it.ExtractDir); err != nil {
		logger.Warn("Extraction failed", logger.Fields{"archive": it.LocalPath, "error": err.Error()})
		emit(o.Hooks, Event{Phase: PhaseError, ID: it.Record.Filename, Msg: err.Error()})
		return err
	}

	if o.Scripts != nil {
		err := o.Scripts.Execute(hooks.PostExtract, hooks.HookContext{
			PackageName:    it.Package,
			PackageVersion: it.Record.Version,
			ArchivePath:    it.LocalPath,
			ExtractDir:     it.ExtractDir,
		})
		if err != nil {
			logger.Warn("post-extract hook failed", logger.Fields{"package": it.Package, "error": err.Error()})
			return errors.Wrapf(err, "post-extract hook for %s", it.Record.Filename)
		}
	}

	if deleteAfter {
		if err := os.Remove(it.LocalPath); err != nil && !os.IsNotExist(err) {
			logger.Warn("Could not delete archive", logger.Fields{"archive": it.LocalPath, "error": err.Error()})
		}
	}
	return nil
}

func (o *Orchestrator) progressFor(it model.WorkItem) download.ProgressFunc {
	if o.Hooks.OnProgress == nil {
		return nil
	}
	return func(written int64) {
		o.Hooks.OnProgress(it, written)
	}
}

func (o *Orchestrator) runPostSync(res Result) {
	if o.Scripts == nil {
		return
	}
	err := o.Scripts.Execute(hooks.PostSync, hooks.HookContext{
		Vars: map[string]interface{}{
			"downloaded": res.Downloaded,
			"extracted":  res.Extracted,
			"failed":     len(res.Failed),
		},
	})
	if err != nil {
		logger.Warn("post-sync hook failed", logger.Fields{"error": err.Error()})
	}
}
