// Package reconcile decides which archives of an index still need to be
// downloaded, given what is already present in the output directory.
package reconcile

import (
	"bytes"

	"github.com/glorpus-work/srcmirror/pkg/errors"
	"github.com/glorpus-work/srcmirror/pkg/model"
)

// Reconcile returns the records whose local copy is missing or, when verify
// is set, whose local copy no longer matches the recorded checksum. Records
// without a checksum are only checked for existence. The result keeps index
// order and holds at most one record per filename, the first one listed.
//
// Reconcile never touches the filesystem beyond reading, so calling it again
// after a successful sync yields an empty result.
func Reconcile(records []model.ArchiveRecord, state LocalState, verify bool) ([]model.ArchiveRecord, error) {
	seen := make(map[string]struct{}, len(records))
	out := make([]model.ArchiveRecord, 0, len(records))

	for _, rec := range records {
		if _, dup := seen[rec.Filename]; dup {
			continue
		}
		seen[rec.Filename] = struct{}{}

		stale, err := isStale(rec, state, verify)
		if err != nil {
			return nil, err
		}
		if stale {
			out = append(out, rec)
		}
	}
	return out, nil
}

func isStale(rec model.ArchiveRecord, state LocalState, verify bool) (bool, error) {
	exists, err := state.Stat(rec.Filename)
	if err != nil {
		return false, err
	}
	if !exists {
		return true, nil
	}
	if !verify || !rec.HasChecksum() {
		return false, nil
	}

	sum, err := state.Sum(rec.Filename, rec.Algorithm)
	if err != nil {
		return false, errors.Wrapf(err, "failed to verify %s", rec.Filename)
	}
	return !bytes.Equal(sum, rec.Checksum), nil
}
