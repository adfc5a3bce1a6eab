package reconcile

import (
	stderrors "errors"
	"io"
	"io/fs"
	"os"

	"github.com/glorpus-work/srcmirror/pkg/errors"
	"github.com/glorpus-work/srcmirror/pkg/model"
)

// LocalState answers questions about archives already present locally.
type LocalState interface {
	// Stat reports whether a regular file named filename exists.
	Stat(filename string) (bool, error)
	// Sum computes the digest of filename with algo.
	Sum(filename string, algo model.HashAlgorithm) ([]byte, error)
}

// DirState is a LocalState over an fs.FS rooted at the output directory.
type DirState struct {
	fsys fs.FS
}

// NewDirState returns a DirState over fsys.
func NewDirState(fsys fs.FS) *DirState {
	return &DirState{fsys: fsys}
}

// NewOSDirState returns a DirState rooted at dir on the local filesystem.
func NewOSDirState(dir string) *DirState {
	return NewDirState(os.DirFS(dir))
}

// Stat implements LocalState. Directories and other non-regular entries
// report false.
func (s *DirState) Stat(filename string) (bool, error) {
	info, err := fs.Stat(s.fsys, filename)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, errors.Wrapf(err, "failed to stat %s", filename)
	}
	return info.Mode().IsRegular(), nil
}

// Sum implements LocalState.
func (s *DirState) Sum(filename string, algo model.HashAlgorithm) ([]byte, error) {
	h, err := algo.New()
	if err != nil {
		return nil, err
	}

	f, err := s.fsys.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", filename)
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return nil, errors.Wrapf(err, "failed to hash %s", filename)
	}
	return h.Sum(nil), nil
}
