// Package archive unpacks source archives: tar files, optionally compressed
// with any codec the archives library can sniff, plus legacy LZMA.
package archive

import (
	"archive/tar"
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mholt/archives"

	"github.com/glorpus-work/srcmirror/pkg/errors"
	"github.com/glorpus-work/srcmirror/pkg/fsutil"
)

// sniffSize is the read-ahead used to identify the container format.
const sniffSize = 64 * 1024

// Manager handles archive extraction.
type Manager struct{}

// NewManager creates a new Manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// Extract unpacks the archive at archivePath into destDir, creating destDir
// if needed. The compression is detected from the content, never from the
// file name. Failures are reported as *errors.ExtractFailedError.
func (am *Manager) Extract(ctx context.Context, archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return errors.NewExtractFailedError(archivePath, err)
	}
	defer func() { _ = f.Close() }()

	if err := am.extract(ctx, f, destDir); err != nil {
		return errors.NewExtractFailedError(archivePath, err)
	}
	return nil
}

// ExtractReader is Extract over a stream. The returned error names destDir.
func (am *Manager) ExtractReader(ctx context.Context, r io.Reader, destDir string) error {
	if err := am.extract(ctx, r, destDir); err != nil {
		return errors.NewExtractFailedError(destDir, err)
	}
	return nil
}

func (am *Manager) extract(ctx context.Context, r io.Reader, destDir string) error {
	if err := fsutil.EnsureDir(destDir); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	// containment is checked against the resolved destination
	root, err := filepath.EvalSymlinks(destDir)
	if err != nil {
		return fmt.Errorf("failed to resolve destination directory: %w", err)
	}

	br := bufio.NewReaderSize(r, sniffSize)
	head, _ := br.Peek(lzmaHeaderLen)
	if isLegacyLZMA(head) {
		return am.extractLZMA(ctx, br, root)
	}

	format, stream, err := archives.Identify(ctx, "", br)
	if err != nil {
		if stderrors.Is(err, archives.NoMatch) {
			return fmt.Errorf("%w: %w", errors.ErrUnsupportedFormat, errors.ErrNotTarArchive)
		}
		return fmt.Errorf("failed to identify archive: %w", err)
	}
	if !isTar(format) {
		return fmt.Errorf("%w: detected %T", errors.ErrNotTarArchive, format)
	}
	ex, ok := format.(archives.Extractor)
	if !ok {
		return fmt.Errorf("%w: %T cannot be extracted", errors.ErrUnsupportedFormat, format)
	}
	return ex.Extract(ctx, stream, am.entryHandler(root))
}

// isTar accepts a bare tar or a compressed tar. Zip, 7z, rar and bare
// compressed streams are refused.
func isTar(format any) bool {
	switch f := format.(type) {
	case archives.Tar, *archives.Tar:
		return true
	case archives.CompressedArchive:
		return isTar(f.Extraction)
	case *archives.CompressedArchive:
		return isTar(f.Extraction)
	default:
		return false
	}
}

// entryHandler writes one archive entry below destDir.
func (am *Manager) entryHandler(destDir string) archives.FileHandler {
	return func(ctx context.Context, f archives.FileInfo) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		targetPath, ok := fsutil.SafeJoin(destDir, f.NameInArchive)
		if !ok {
			return fmt.Errorf("%w: %s", errors.ErrPathTraversal, f.NameInArchive)
		}
		if filepath.Clean(targetPath) == filepath.Clean(destDir) {
			return nil
		}

		if hdr, ok := f.Header.(*tar.Header); ok && hdr.Typeflag == tar.TypeLink {
			return am.writeHardLink(destDir, hdr.Linkname, targetPath)
		}

		switch {
		case f.IsDir():
			if err := checkOnDisk(destDir, targetPath); err != nil {
				return err
			}
			return os.MkdirAll(targetPath, fsutil.DirModeDefault)
		case f.Mode()&fs.ModeSymlink != 0:
			return am.writeSymlink(destDir, f.LinkTarget, targetPath)
		case f.Mode().IsRegular():
			return am.writeRegularFile(destDir, f, targetPath)
		default:
			// devices, fifos and sockets have no place in a source tree
			return nil
		}
	}
}

// writeSymlink creates a symlink at targetPath. Targets that would resolve
// outside destDir are rejected so later entries cannot be written through
// the link.
func (am *Manager) writeSymlink(destDir, linkTarget, targetPath string) error {
	parent := filepath.Dir(targetPath)
	if err := checkOnDisk(destDir, parent); err != nil {
		return err
	}
	if linkEscapes(destDir, parent, linkTarget) {
		return fmt.Errorf("%w: symlink %s -> %s", errors.ErrPathTraversal, targetPath, linkTarget)
	}

	if err := fsutil.EnsureDir(parent); err != nil {
		return fmt.Errorf("failed to create parent directory for symlink %s: %w", targetPath, err)
	}
	if err := removeExisting(targetPath); err != nil {
		return err
	}
	return os.Symlink(linkTarget, targetPath)
}

// linkEscapes reports whether a link in parent pointing at linkTarget leaves
// destDir, both as text and as resolved through links already on disk.
func linkEscapes(destDir, parent, linkTarget string) bool {
	if filepath.IsAbs(linkTarget) {
		return true
	}
	onDisk, err := resolveExisting(parent)
	if err != nil {
		return true
	}
	if !fsutil.WithinDir(destDir, filepath.Join(onDisk, linkTarget)) {
		return true
	}
	// ".." after a symlinked component climbs from the link's target
	if resolved, err := filepath.EvalSymlinks(onDisk + string(filepath.Separator) + linkTarget); err == nil {
		return !fsutil.WithinDir(destDir, resolved)
	}
	return false
}

// checkOnDisk fails when path, following the symlinks that exist on disk,
// is not below destDir.
func checkOnDisk(destDir, path string) error {
	onDisk, err := resolveExisting(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if !fsutil.WithinDir(destDir, onDisk) {
		return fmt.Errorf("%w: %s resolves to %s", errors.ErrPathTraversal, path, onDisk)
	}
	return nil
}

// resolveExisting resolves the longest existing prefix of path through
// symlinks and appends the missing remainder unchanged.
func resolveExisting(path string) (string, error) {
	existing, rest := filepath.Clean(path), ""
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		} else if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			break
		}
		rest = filepath.Join(filepath.Base(existing), rest)
		existing = parent
	}
	onDisk, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", err
	}
	return filepath.Join(onDisk, rest), nil
}

// writeHardLink links targetPath to an entry extracted earlier.
func (am *Manager) writeHardLink(destDir, linkName, targetPath string) error {
	source, ok := fsutil.SafeJoin(destDir, linkName)
	if !ok {
		return fmt.Errorf("%w: hard link %s -> %s", errors.ErrPathTraversal, targetPath, linkName)
	}
	if err := checkOnDisk(destDir, source); err != nil {
		return err
	}
	if err := checkOnDisk(destDir, filepath.Dir(targetPath)); err != nil {
		return err
	}
	if err := fsutil.EnsureFileDir(targetPath); err != nil {
		return fmt.Errorf("failed to create parent directory for link %s: %w", targetPath, err)
	}
	if err := removeExisting(targetPath); err != nil {
		return err
	}
	if err := os.Link(source, targetPath); err != nil {
		// Some filesystems refuse hard links; a copy keeps the content.
		if cerr := fsutil.Copy(source, targetPath); cerr != nil {
			return fmt.Errorf("failed to link %s to %s: %w", targetPath, source, err)
		}
	}
	return nil
}

// writeRegularFile writes a regular file from the archive entry to targetPath and preserves metadata.
func (am *Manager) writeRegularFile(destDir string, f archives.FileInfo, targetPath string) error {
	if err := checkOnDisk(destDir, filepath.Dir(targetPath)); err != nil {
		return err
	}

	srcFile, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open entry %s: %w", f.NameInArchive, err)
	}
	defer func() { _ = srcFile.Close() }()

	if err := fsutil.EnsureFileDir(targetPath); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", targetPath, err)
	}
	if err := removeExisting(targetPath); err != nil {
		return err
	}

	// keep the owner able to rewrite the tree on the next run
	perm := f.Mode().Perm() | 0o600
	dstFile, err := fsutil.CreateFilePerm(targetPath, perm)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", targetPath, err)
	}
	if _, err := io.Copy(dstFile, srcFile); err != nil {
		_ = dstFile.Close()
		return fmt.Errorf("failed to copy file %s: %w", f.NameInArchive, err)
	}
	if err := dstFile.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", targetPath, err)
	}

	if err := os.Chmod(targetPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions for %s: %w", targetPath, err)
	}
	if mtime := f.ModTime(); !mtime.IsZero() {
		if err := os.Chtimes(targetPath, mtime, mtime); err != nil {
			return fmt.Errorf("failed to set modification time for %s: %w", targetPath, err)
		}
	}
	return nil
}

// removeExisting clears a previous file or symlink so it is replaced rather
// than written through.
func removeExisting(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("cannot replace directory %s with a file", path)
	}
	return os.Remove(path)
}
