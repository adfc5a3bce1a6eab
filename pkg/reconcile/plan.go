package reconcile

import (
	"path/filepath"

	"github.com/glorpus-work/srcmirror/pkg/errors"
	"github.com/glorpus-work/srcmirror/pkg/model"
)

// PlanOptions describes the local layout a plan is resolved against.
type PlanOptions struct {
	OutDir        string
	ExtractDir    string
	Verify        bool
	PackageSource model.PackageSource
}

// Plan reconciles records against state and resolves the survivors into
// work items. The extraction package falls back to the filename-derived name
// when the index gave none.
func Plan(records []model.ArchiveRecord, state LocalState, opts PlanOptions) ([]model.WorkItem, error) {
	stale, err := Reconcile(records, state, opts.Verify)
	if err != nil {
		return nil, err
	}

	items := make([]model.WorkItem, 0, len(stale))
	for _, rec := range stale {
		pkg, err := ResolvePackage(rec, opts.PackageSource)
		if err != nil {
			return nil, err
		}
		items = append(items, model.WorkItem{
			Record:     rec,
			LocalPath:  filepath.Join(opts.OutDir, rec.Filename),
			Package:    pkg,
			ExtractDir: filepath.Join(opts.ExtractDir, pkg),
		})
	}
	return items, nil
}

// ResolvePackage picks the extraction package name for rec. It fails with
// ErrInvalidRecord when neither the index nor the filename yields a name that
// stays a single directory below the extraction root.
func ResolvePackage(rec model.ArchiveRecord, source model.PackageSource) (string, error) {
	if source != model.PackageFromFilenameSource && model.ValidPackageName(rec.Package) {
		return rec.Package, nil
	}
	pkg := model.PackageFromFilename(rec.Filename)
	if !model.ValidPackageName(pkg) {
		return "", errors.Wrapf(errors.ErrInvalidRecord, "no package name for %s", rec.Filename)
	}
	return pkg, nil
}

// TotalSize sums the advisory sizes of items.
func TotalSize(items []model.WorkItem) int64 {
	var total int64
	for _, it := range items {
		total += it.Record.Size
	}
	return total
}
