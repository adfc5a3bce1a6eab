//go:generate mockgen -destination=./mocks/orchestrator.go . IndexSource,Downloader,Extractor,HookRunner

package orchestrator

import (
	"context"

	"github.com/glorpus-work/srcmirror/pkg/download"
	"github.com/glorpus-work/srcmirror/pkg/hooks"
	"github.com/glorpus-work/srcmirror/pkg/index"
	"github.com/glorpus-work/srcmirror/pkg/model"
)

// IndexSource retrieves the decompressed Sources index of one component.
type IndexSource interface {
	FetchSources(ctx context.Context, base, dist, component string) ([]byte, error)
}

// Downloader is the part of the download manager used to fetch archives.
type Downloader interface {
	FetchToFile(ctx context.Context, item download.Item, destPath string, progress download.ProgressFunc) (int64, error)
}

// Extractor unpacks one archive into a directory.
type Extractor interface {
	Extract(ctx context.Context, archivePath, destDir string) error
}

// HookRunner runs user hook scripts.
type HookRunner interface {
	Execute(hookType hooks.HookType, ctx hooks.HookContext) error
}

// Orchestrator ties the index source, downloader and extractor together.
type Orchestrator struct {
	Index     IndexSource
	DL        Downloader
	Extractor Extractor
	Scripts   HookRunner // optional
	Hooks     Hooks      // Hooks for progress and event notifications
}

// Event represents a simple progress notification.
type Event struct {
	Phase string // indexing|planning|downloading|extracting|done|error
	ID    string // archive filename
	Msg   string
}

// Event phases.
const (
	PhaseIndexing    = "indexing"
	PhasePlanning    = "planning"
	PhaseDownloading = "downloading"
	PhaseExtracting  = "extracting"
	PhaseDone        = "done"
	PhaseError       = "error"
)

// Hooks carries callbacks for progress events.
type Hooks struct {
	OnEvent func(Event)
	// OnProgress receives the cumulative byte count of the archive being downloaded.
	OnProgress func(item model.WorkItem, written int64)
}

// Source names the index to mirror.
type Source struct {
	BaseURL    string
	Dist       string
	Components []string
	Variant    index.Variant
	LatestOnly bool
}

// Options control orchestrator execution.
type Options struct {
	OutDir             string
	ExtractDir         string
	VerifyChecksum     bool
	DeleteAfterExtract bool
	PackageSource      model.PackageSource
	NoExtract          bool
}

// Result summarises a Sync or ExtractLocal run.
type Result struct {
	Downloaded int
	Bytes      int64
	Extracted  int
	Failed     []string // archive paths that could not be extracted
}
