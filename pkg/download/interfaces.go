package download

import (
	"context"

	"github.com/glorpus-work/srcmirror/pkg/model"
)

// Manager retrieves remote resources over HTTP. Every failure it returns is
// a *errors.FetchFailedError naming the URL. It never retries.
//
//go:generate mockgen -destination=./mocks/manager.go . Manager
type Manager interface {
	// Fetch downloads url fully into memory.
	Fetch(ctx context.Context, url string, progress ProgressFunc) ([]byte, error)

	// FetchToFile streams item into destPath and returns the number of bytes
	// written. The file only appears at destPath once the body was read in
	// full and, if item carries a checksum, verified.
	FetchToFile(ctx context.Context, item Item, destPath string, progress ProgressFunc) (int64, error)
}

// Item represents one remote archive to download.
type Item struct {
	URL       string
	Checksum  []byte              // optional; verified when Algorithm is set
	Algorithm model.HashAlgorithm // digest used for Checksum
}

// ItemFromRecord builds the download item for an archive record.
func ItemFromRecord(rec model.ArchiveRecord) Item {
	return Item{URL: rec.URL, Checksum: rec.Checksum, Algorithm: rec.Algorithm}
}

// ProgressFunc receives the cumulative number of bytes written for the
// current download.
type ProgressFunc func(written int64)
