package index

import (
	debversion "github.com/knqyf263/go-deb-version"

	"github.com/glorpus-work/srcmirror/pkg/errors"
	"github.com/glorpus-work/srcmirror/pkg/model"
)

// LatestOnly drops records that belong to an older version of a package
// listed more than once. Order is preserved. Records without a package name
// or version are always kept.
func LatestOnly(records []model.ArchiveRecord) ([]model.ArchiveRecord, error) {
	parsed := make([]debversion.Version, len(records))
	latest := make(map[string]debversion.Version)

	for i, rec := range records {
		if rec.Package == "" || rec.Version == "" {
			continue
		}
		v, err := debversion.NewVersion(rec.Version)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrInvalidVersion, "%s %s: %v", rec.Package, rec.Version, err)
		}
		parsed[i] = v
		if cur, ok := latest[rec.Package]; !ok || v.GreaterThan(cur) {
			latest[rec.Package] = v
		}
	}

	out := make([]model.ArchiveRecord, 0, len(records))
	for i, rec := range records {
		if rec.Package == "" || rec.Version == "" || parsed[i].Equal(latest[rec.Package]) {
			out = append(out, rec)
		}
	}
	return out, nil
}
