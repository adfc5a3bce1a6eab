package hooks

// HookType names the point in a run at which a hook script is executed.
type HookType string

// Supported hook types.
const (
	// PostExtract runs once per archive after it was unpacked.
	PostExtract HookType = "post-extract"
	// PostSync runs once at the end of a sync run.
	PostSync HookType = "post-sync"
)

// Types returns the supported hook types in the order they run.
func Types() []HookType {
	return []HookType{PostExtract, PostSync}
}

// Valid reports whether t is a supported hook type.
func (t HookType) Valid() bool {
	return t == PostExtract || t == PostSync
}

// Hook is a Tengo script bound to a hook type.
type Hook struct {
	Type    HookType
	Content string
	Source  string // file the script was read from, empty for inline scripts
}

// HookContext contains information passed to hooks.
type HookContext struct {
	PackageName    string
	PackageVersion string
	ArchivePath    string
	ExtractDir     string
	Vars           map[string]interface{}
}
