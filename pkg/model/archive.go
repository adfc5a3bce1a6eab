// Package model provides the value types passed between the index parser,
// the reconcile engine and the fetch/extract stages of srcmirror.
package model

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/glorpus-work/srcmirror/pkg/errors"
)

// ArchiveRecord describes one downloadable source archive listed in a
// sources index. Build it with NewArchiveRecord; values are never mutated
// after construction.
type ArchiveRecord struct {
	URL       string        `json:"url" yaml:"url"`
	Package   string        `json:"package" yaml:"package"`
	Version   string        `json:"version,omitempty" yaml:"version,omitempty"`
	Filename  string        `json:"filename" yaml:"filename"`
	Size      int64         `json:"size" yaml:"size"` // advisory, used for progress totals only
	Checksum  []byte        `json:"checksum,omitempty" yaml:"checksum,omitempty"`
	Algorithm HashAlgorithm `json:"algorithm,omitempty" yaml:"algorithm,omitempty"`
}

// WorkItem is an ArchiveRecord selected for download, resolved against the
// local layout.
type WorkItem struct {
	Record     ArchiveRecord
	LocalPath  string // <out_dir>/<filename>
	Package    string // package name used for the extraction directory
	ExtractDir string // <extract_dir>/<package>
}

// PackageSource selects where the extraction directory name comes from.
type PackageSource string

const (
	// PackageFromIndex uses the Package field of the index paragraph.
	PackageFromIndex PackageSource = "index"
	// PackageFromFilenameSource derives the name from the archive filename.
	PackageFromFilenameSource PackageSource = "filename"
)

// ParsePackageSource converts a config or flag value into a PackageSource.
func ParsePackageSource(s string) (PackageSource, error) {
	switch PackageSource(strings.ToLower(strings.TrimSpace(s))) {
	case "", PackageFromIndex:
		return PackageFromIndex, nil
	case PackageFromFilenameSource:
		return PackageFromFilenameSource, nil
	default:
		return "", fmt.Errorf("unknown package source %q (want %q or %q)", s, PackageFromIndex, PackageFromFilenameSource)
	}
}

// NewArchiveRecord validates fields and returns an independent copy.
// It rejects filenames that are not tar archives, filenames with path
// separators or without a usable package prefix, negative sizes, URLs without a scheme and checksums that do not
// match the digest size of the algorithm.
func NewArchiveRecord(fields ArchiveRecord) (ArchiveRecord, error) {
	if fields.Filename == "" || strings.ContainsAny(fields.Filename, `/\`) {
		return ArchiveRecord{}, errors.Wrapf(errors.ErrInvalidRecord, "invalid filename %q", fields.Filename)
	}
	if !IsArchive(fields.Filename) {
		return ArchiveRecord{}, errors.Wrapf(errors.ErrInvalidRecord, "%s is not a tar archive", fields.Filename)
	}
	if !ValidPackageName(PackageFromFilename(fields.Filename)) {
		return ArchiveRecord{}, errors.Wrapf(errors.ErrInvalidRecord, "no package name in filename %q", fields.Filename)
	}
	if fields.Size < 0 {
		return ArchiveRecord{}, errors.Wrapf(errors.ErrInvalidRecord, "negative size %d for %s", fields.Size, fields.Filename)
	}
	u, err := url.Parse(fields.URL)
	if err != nil {
		return ArchiveRecord{}, errors.Wrapf(errors.ErrInvalidRecord, "invalid url %q: %v", fields.URL, err)
	}
	if u.Scheme == "" {
		return ArchiveRecord{}, errors.Wrapf(errors.ErrInvalidRecord, "url %q has no scheme", fields.URL)
	}

	switch {
	case fields.Algorithm == AlgorithmNone && len(fields.Checksum) > 0:
		return ArchiveRecord{}, errors.Wrapf(errors.ErrInvalidRecord, "checksum without algorithm for %s", fields.Filename)
	case fields.Algorithm != AlgorithmNone:
		size, err := fields.Algorithm.Size()
		if err != nil {
			return ArchiveRecord{}, errors.Wrap(errors.ErrInvalidRecord, err.Error())
		}
		if len(fields.Checksum) != size {
			return ArchiveRecord{}, errors.Wrapf(errors.ErrInvalidRecord,
				"%s checksum for %s has %d bytes, want %d", fields.Algorithm, fields.Filename, len(fields.Checksum), size)
		}
	}

	rec := fields
	if fields.Checksum != nil {
		rec.Checksum = append([]byte(nil), fields.Checksum...)
	}
	return rec, nil
}

// HasChecksum reports whether the record carries a digest to verify against.
func (r ArchiveRecord) HasChecksum() bool {
	return r.Algorithm != AlgorithmNone && len(r.Checksum) > 0
}

// ChecksumHex returns the lower-case hex form of the checksum, or "".
func (r ArchiveRecord) ChecksumHex() string {
	return hex.EncodeToString(r.Checksum)
}

// IsArchive reports whether filename names a tar container: its dot-separated
// components must include "tar" as the last or second-to-last component
// (name.tar or name.tar.<anything>).
func IsArchive(filename string) bool {
	exts := strings.Split(filename, ".")
	if len(exts) < 2 {
		return false
	}
	return exts[len(exts)-1] == "tar" || exts[len(exts)-2] == "tar"
}

// PackageFromFilename returns the text before the first underscore, following
// the <package>_<version> naming of source archives.
func PackageFromFilename(filename string) string {
	name, _, _ := strings.Cut(filename, "_")
	return name
}

// ValidPackageName reports whether name can be used as a single directory
// below the extraction root.
func ValidPackageName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}
