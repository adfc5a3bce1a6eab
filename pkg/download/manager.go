package download

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	pkgerrors "github.com/glorpus-work/srcmirror/pkg/errors"
	"github.com/glorpus-work/srcmirror/pkg/fsutil"
	"github.com/glorpus-work/srcmirror/pkg/model"
)

const (
	// DefaultUserAgent is sent when no user agent is configured.
	DefaultUserAgent = "srcmirror/1.0"

	// TempPattern names in-flight downloads next to their destination.
	TempPattern = ".dl-*.part"
)

// ManagerImpl is a plain HTTP download manager. Downloads are sequential and
// verified inline while the body is streamed.
type ManagerImpl struct {
	client    *http.Client
	userAgent string
}

// NewManager creates a new download manager with the given timeout and user agent.
// A zero timeout means no timeout.
func NewManager(timeout time.Duration, userAgent string) *ManagerImpl {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &ManagerImpl{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Fetch downloads url into memory.
func (m *ManagerImpl) Fetch(ctx context.Context, url string, progress ProgressFunc) ([]byte, error) {
	resp, err := m.doRequest(ctx, url)
	if err != nil {
		return nil, pkgerrors.NewFetchFailedError(url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var buf bytes.Buffer
	if resp.ContentLength > 0 {
		buf.Grow(int(resp.ContentLength))
	}
	if _, err := io.Copy(io.MultiWriter(&buf, newProgressWriter(progress)), resp.Body); err != nil {
		return nil, pkgerrors.NewFetchFailedError(url, pkgerrors.Wrap(err, "could not read body"))
	}
	return buf.Bytes(), nil
}

// FetchToFile downloads item to destPath through a temporary file in the same
// directory. The temporary file is removed on any failure, cancellation
// included.
func (m *ManagerImpl) FetchToFile(ctx context.Context, item Item, destPath string, progress ProgressFunc) (int64, error) {
	n, err := m.fetchToFile(ctx, item, destPath, progress)
	if err != nil {
		return 0, pkgerrors.NewFetchFailedError(item.URL, err)
	}
	return n, nil
}

func (m *ManagerImpl) fetchToFile(ctx context.Context, item Item, destPath string, progress ProgressFunc) (int64, error) {
	if destPath == "" {
		return 0, fmt.Errorf("empty destination: %w", pkgerrors.ErrInvalidPath)
	}

	var h hash.Hash
	if item.Algorithm != model.AlgorithmNone && len(item.Checksum) > 0 {
		var err error
		if h, err = item.Algorithm.New(); err != nil {
			return 0, err
		}
	}

	resp, err := m.doRequest(ctx, item.URL)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	tmpPath, n, err := writeBodyToTemp(resp.Body, destPath, h, progress)
	if err != nil {
		return 0, err
	}

	if h != nil {
		if got := h.Sum(nil); !bytes.Equal(got, item.Checksum) {
			_ = os.Remove(tmpPath)
			return 0, fmt.Errorf("%s: got %s, want %s: %w", item.Algorithm,
				hex.EncodeToString(got), hex.EncodeToString(item.Checksum), pkgerrors.ErrChecksumMismatch)
		}
	}

	if err := finalizeFile(tmpPath, destPath); err != nil {
		_ = os.Remove(tmpPath)
		return 0, err
	}
	return n, nil
}

func (m *ManagerImpl) doRequest(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", m.userAgent)
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "download failed")
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %d", pkgerrors.ErrUnexpectedStatus, resp.StatusCode)
	}
	return resp, nil
}

func writeBodyToTemp(body io.Reader, destPath string, h hash.Hash, progress ProgressFunc) (string, int64, error) {
	if err := fsutil.EnsureFileDir(destPath); err != nil {
		return "", 0, pkgerrors.Wrap(err, "could not create download dir")
	}
	tmp, err := os.CreateTemp(filepath.Dir(destPath), TempPattern)
	if err != nil {
		return "", 0, pkgerrors.Wrap(err, "could not create temp file")
	}
	tmpPath := tmp.Name()
	fail := func(err error, msg string) (string, int64, error) {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", 0, pkgerrors.Wrap(err, msg)
	}

	writers := []io.Writer{tmp, newProgressWriter(progress)}
	if h != nil {
		writers = append(writers, h)
	}
	n, err := io.Copy(io.MultiWriter(writers...), body)
	if err != nil {
		return fail(err, "could not write file")
	}
	if err := tmp.Sync(); err != nil {
		return fail(err, "could not sync file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", 0, pkgerrors.Wrap(err, "could not close file")
	}
	return tmpPath, n, nil
}

func finalizeFile(tmpPath, absPath string) error {
	if err := os.Chmod(tmpPath, fsutil.FileModeDefault); err != nil {
		return pkgerrors.Wrap(err, "could not set permissions")
	}
	if err := fsutil.Move(tmpPath, absPath); err != nil {
		return pkgerrors.Wrap(err, "could not finalize file")
	}
	return nil
}

type progressWriter struct {
	written int64
	fn      ProgressFunc
}

func newProgressWriter(fn ProgressFunc) *progressWriter {
	return &progressWriter{fn: fn}
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))
	if w.fn != nil {
		w.fn(w.written)
	}
	return len(p), nil
}
