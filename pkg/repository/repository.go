// Package repository locates and retrieves the Sources index of a Debian
// style mirror.
package repository

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"

	"github.com/glorpus-work/srcmirror/pkg/download"
	"github.com/glorpus-work/srcmirror/pkg/errors"
	"github.com/glorpus-work/srcmirror/pkg/index"
	"github.com/glorpus-work/srcmirror/pkg/logger"
)

// Compression is the file suffix of a published Sources index.
type Compression string

// Published index encodings, most compact first.
const (
	CompressionXZ   Compression = ".xz"
	CompressionGzip Compression = ".gz"
	CompressionNone Compression = ""
)

// DefaultCompressions is the order FetchSources tries.
var DefaultCompressions = []Compression{CompressionXZ, CompressionGzip, CompressionNone}

// SourcesURL returns <base>/dists/<dist>/<component>/source/Sources<ext>.
func SourcesURL(base, dist, component string, c Compression) string {
	return index.JoinURL(base, "dists", dist, component, "source", "Sources"+string(c))
}

// Fetcher is the part of download.Manager the client needs.
type Fetcher interface {
	Fetch(ctx context.Context, url string, progress download.ProgressFunc) ([]byte, error)
}

// Client retrieves and decompresses Sources indexes.
type Client struct {
	fetcher      Fetcher
	compressions []Compression
}

// NewClient returns a Client that tries DefaultCompressions in order.
func NewClient(fetcher Fetcher) *Client {
	return &Client{fetcher: fetcher, compressions: DefaultCompressions}
}

// FetchSources downloads the Sources index of one component and returns its
// decompressed text. A variant the mirror does not publish (any non-200
// status) moves on to the next encoding; a transport failure is returned at
// once as *errors.FetchFailedError.
func (c *Client) FetchSources(ctx context.Context, base, dist, component string) ([]byte, error) {
	var lastErr error
	for _, comp := range c.compressions {
		url := SourcesURL(base, dist, component, comp)
		data, err := c.fetcher.Fetch(ctx, url, nil)
		if err != nil {
			if stderrors.Is(err, errors.ErrUnexpectedStatus) {
				logger.Debug("Sources index not available", logger.Fields{"url": url, "error": err.Error()})
				lastErr = err
				continue
			}
			return nil, err
		}

		logger.Debug("Fetched Sources index", logger.Fields{"url": url, "bytes": len(data)})
		text, err := Decompress(data, comp)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decompress %s", url)
		}
		return text, nil
	}
	return nil, fmt.Errorf("%w for %s/%s: %w", errors.ErrIndexNotFound, dist, component, lastErr)
}

// Decompress decodes data according to its published encoding.
func Decompress(data []byte, c Compression) ([]byte, error) {
	var (
		r   io.Reader
		err error
	)
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionXZ:
		r, err = xz.NewReader(bytes.NewReader(data))
	case CompressionGzip:
		var zr *gzip.Reader
		zr, err = gzip.NewReader(bytes.NewReader(data))
		if err == nil {
			defer func() { _ = zr.Close() }()
			r = zr
		}
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnsupportedFormat, string(c))
	}
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}
