// Package testutil builds throwaway Debian-style mirrors for tests.
package testutil

import (
	"archive/tar"
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

// Package is one source package published by a Mirror.
type Package struct {
	Name    string
	Version string
	// Files maps paths inside the orig tarball to their content.
	Files map[string]string
}

// Directory returns the pool directory of the package.
func (p Package) Directory(component string) string {
	return fmt.Sprintf("pool/%s/%s/%s", component, p.Name[:1], p.Name)
}

// Filename returns the orig tarball name of the package.
func (p Package) Filename() string {
	upstream := p.Version
	if i := strings.LastIndex(upstream, "-"); i > 0 {
		upstream = upstream[:i]
	}
	return fmt.Sprintf("%s_%s.orig.tar.gz", p.Name, upstream)
}

// Mirror is a mirror tree on disk served over HTTP.
type Mirror struct {
	Root   string
	Server *httptest.Server
}

// URL returns the base URL of the mirror.
func (m *Mirror) URL() string {
	return m.Server.URL
}

// NewMirror writes packages under dists/<dist>/<component>/source/Sources.gz
// and the pool, and serves the tree until the test ends.
func NewMirror(t *testing.T, dist, component string, packages ...Package) *Mirror {
	t.Helper()
	root := t.TempDir()

	var sources strings.Builder
	for _, p := range packages {
		data := TarGz(t, p.Files)
		dir := filepath.Join(root, filepath.FromSlash(p.Directory(component)))
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, p.Filename()), data, 0o644))

		sum := md5.Sum(data)
		fmt.Fprintf(&sources, "Package: %s\nVersion: %s\nDirectory: %s\nFiles:\n %s %d %s\n %s 12 %s_%s.dsc\n\n",
			p.Name, p.Version, p.Directory(component), hex.EncodeToString(sum[:]), len(data), p.Filename(),
			hex.EncodeToString(sum[:]), p.Name, p.Version)
	}

	indexDir := filepath.Join(root, "dists", dist, component, "source")
	require.NoError(t, os.MkdirAll(indexDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(indexDir, "Sources.gz"), Gzip(t, []byte(sources.String())), 0o644))

	srv := httptest.NewServer(http.FileServer(http.Dir(root)))
	t.Cleanup(srv.Close)

	return &Mirror{Root: root, Server: srv}
}

// TarGz returns a gzip-compressed tar holding files, in name order.
func TarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, name := range names {
		content := files[name]
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	return Gzip(t, buf.Bytes())
}

// Gzip compresses data.
func Gzip(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write(data)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

// WriteConfig writes a configuration for mirror m to path.
func WriteConfig(t *testing.T, path string, m *Mirror, dist, outDir, extractDir string) {
	t.Helper()
	content := fmt.Sprintf(`mirror:
  base_url: %s
  dist: %s
  components: [main]
settings:
  out_dir: %s
  extract_dir: %s
  http_timeout: 30s
  log_level: error
`, m.URL(), dist, outDir, extractDir)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}
