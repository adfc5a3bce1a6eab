package archive

import (
	"os"
	"path/filepath"

	"github.com/glorpus-work/srcmirror/pkg/errors"
	"github.com/glorpus-work/srcmirror/pkg/model"
)

// ScanDir lists the tar archives directly inside dir, sorted by name.
// Subdirectories and other files are ignored.
func ScanDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to scan %s", dir)
	}

	var paths []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !model.IsArchive(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}
