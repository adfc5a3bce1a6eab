// Package cache reports on and prunes the directories a mirror writes to:
// the archive directory with its downloads and the extraction root.
package cache

import (
	"os"
	"path/filepath"

	"github.com/glorpus-work/srcmirror/pkg/download"
	"github.com/glorpus-work/srcmirror/pkg/errors"
	"github.com/glorpus-work/srcmirror/pkg/fsutil"
	"github.com/glorpus-work/srcmirror/pkg/model"
)

// DefaultManager implements the Manager interface on the local filesystem.
type DefaultManager struct {
	archiveDir string
	extractDir string
}

// NewManager creates a new cache manager.
func NewManager(archiveDir, extractDir string) (*DefaultManager, error) {
	if archiveDir == "" || extractDir == "" {
		return nil, ErrCacheDirectory
	}
	return &DefaultManager{archiveDir: archiveDir, extractDir: extractDir}, nil
}

// Clean removes files according to the specified options. With no option
// set only partial downloads are removed.
func (cm *DefaultManager) Clean(options CleanOptions) (*CleanResult, error) {
	result := &CleanResult{}

	if !options.Partial && !options.Archives && !options.Sources {
		options.Partial = true
	}

	if options.Partial {
		size, err := removeMatching(cm.archiveDir, isPartial)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to remove partial downloads")
		}
		result.PartialFreed = size
		result.TotalFreed += size
	}

	if options.Archives {
		size, err := removeMatching(cm.archiveDir, model.IsArchive)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to remove archives")
		}
		result.ArchivesFreed = size
		result.TotalFreed += size
	}

	if options.Sources {
		size, err := cleanDirectory(cm.extractDir)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to remove unpacked sources")
		}
		result.SourcesFreed = size
		result.TotalFreed += size
	}

	return result, nil
}

// GetInfo returns information about both directories.
func (cm *DefaultManager) GetInfo() (*Info, error) {
	info := &Info{
		ArchiveDir: cm.archiveDir,
		ExtractDir: cm.extractDir,
	}

	entries, err := os.ReadDir(cm.archiveDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrCacheInfo, "reading %s: %v", cm.archiveDir, err)
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue // removed while listing
		}
		switch {
		case isPartial(entry.Name()):
			info.PartialSize += fi.Size()
			info.PartialFiles++
		case model.IsArchive(entry.Name()):
			info.ArchiveSize += fi.Size()
			info.ArchiveFiles++
		}
	}

	packages, err := os.ReadDir(cm.extractDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrCacheInfo, "reading %s: %v", cm.extractDir, err)
	}
	for _, entry := range packages {
		if entry.IsDir() {
			info.PackageDirs++
		}
	}
	info.ExtractSize, _, err = getDirSizeAndFiles(cm.extractDir)
	if err != nil {
		return nil, err
	}

	return info, nil
}

func isPartial(name string) bool {
	ok, _ := filepath.Match(download.TempPattern, name)
	return ok
}

// removeMatching deletes the regular files directly in dir whose name
// matches and returns the bytes freed.
func removeMatching(dir string, match func(string) bool) (int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	var freed int64
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !match(entry.Name()) {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil && !os.IsNotExist(err) {
			return freed, errors.Wrapf(ErrCacheClean, "removing %s: %v", entry.Name(), err)
		}
		freed += fi.Size()
	}
	return freed, nil
}

// cleanDirectory empties a directory and returns bytes freed.
func cleanDirectory(dir string) (int64, error) {
	size, _, err := getDirSizeAndFiles(dir)
	if err != nil {
		return 0, err
	}
	if _, statErr := os.Stat(dir); os.IsNotExist(statErr) {
		return 0, nil
	}

	if err := os.RemoveAll(dir); err != nil {
		return 0, errors.Wrapf(err, "failed to remove directory %s", dir)
	}
	if err := fsutil.EnsureDir(dir); err != nil {
		return size, errors.Wrapf(err, "failed to recreate directory %s", dir)
	}

	return size, nil
}

// getDirSizeAndFiles calculates directory size and file count.
func getDirSizeAndFiles(dir string) (size int64, count int, err error) {
	if _, err = os.Stat(dir); os.IsNotExist(err) {
		return 0, 0, nil
	}

	err = filepath.Walk(dir, func(_ string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.Mode().IsRegular() {
			size += info.Size()
			count++
		}
		return nil
	})
	if err != nil {
		err = errors.Wrapf(err, "error walking directory %s", dir)
	}
	return size, count, err
}
