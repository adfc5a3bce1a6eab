package cache

// Manager inspects and prunes the local mirror directories.
type Manager interface {
	Clean(options CleanOptions) (*CleanResult, error)
	GetInfo() (*Info, error)
}

// CleanOptions specifies what to remove.
type CleanOptions struct {
	// Partial removes leftover in-flight downloads from the archive directory.
	Partial bool
	// Archives removes downloaded archives. The next sync fetches them again.
	Archives bool
	// Sources removes every unpacked package tree.
	Sources bool
}

// CleanResult contains information about what was cleaned.
type CleanResult struct {
	TotalFreed    int64
	PartialFreed  int64
	ArchivesFreed int64
	SourcesFreed  int64
}

// Info describes the archive and extraction directories.
type Info struct {
	ArchiveDir   string
	ArchiveSize  int64
	ArchiveFiles int
	PartialSize  int64
	PartialFiles int
	ExtractDir   string
	ExtractSize  int64
	PackageDirs  int
}
