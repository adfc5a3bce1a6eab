// Package fsutil provides utility functions and constants for file system operations.
package fsutil

import (
	"os"
	"path/filepath"
	"strings"
)

// EnsureDir creates a directory and all necessary parent directories with default permissions if they don't exist.
// An already existing directory is not an error.
func EnsureDir(path string) error {
	return os.MkdirAll(path, DirModeDefault)
}

// EnsureFileDir creates the parent directory of a file path if it doesn't exist.
func EnsureFileDir(filePath string) error {
	return EnsureDir(filepath.Dir(filePath))
}

// WithinDir reports whether target, once cleaned, stays inside baseDir.
// baseDir itself counts as inside.
func WithinDir(baseDir, target string) bool {
	rel, err := filepath.Rel(filepath.Clean(baseDir), filepath.Clean(target))
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// SafeJoin joins name below baseDir and fails if the result would escape it.
func SafeJoin(baseDir, name string) (string, bool) {
	joined := filepath.Join(baseDir, name)
	if !WithinDir(baseDir, joined) {
		return "", false
	}
	return joined, true
}
