package hooks

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/srcmirror/pkg/errors"
)

// HookFileExtension is the extension of hook scripts.
const HookFileExtension = ".tengo"

// LoadHookFile registers the script at path as the hook of hookType.
// An empty path is a no-op.
func LoadHookFile(manager HookManager, hookType HookType, path string) error {
	if path == "" {
		return nil
	}
	if !hookType.Valid() {
		return ErrUnsupportedHookType(string(hookType))
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(ErrHookLoad, "error reading hook file %s: %v", path, err)
	}
	return manager.AddHook(Hook{Type: hookType, Content: string(content), Source: path})
}

// LoadHooksFromDir loads <dir>/<hook-type>.tengo for every supported hook
// type. A missing directory is not an error; unknown files are skipped.
func LoadHooksFromDir(manager HookManager, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "failed to read hooks directory %s", dir)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != HookFileExtension {
			continue
		}
		hookType := HookType(strings.TrimSuffix(entry.Name(), HookFileExtension))
		if !hookType.Valid() {
			continue
		}
		if err := LoadHookFile(manager, hookType, filepath.Join(dir, entry.Name())); err != nil {
			return errors.Wrapf(err, "error adding hook %s", hookType)
		}
	}
	return nil
}

// HookTemplate returns a commented starter script for hookType.
func HookTemplate(hookType HookType) string {
	switch hookType {
	case PostExtract:
		return `// Post-extract hook
// This script runs after a source archive was unpacked
// Available variables:
// - packageName: string - package the archive belongs to
// - packageVersion: string - version from the index, may be empty
// - archivePath: string - path of the downloaded archive
// - extractDir: string - directory the archive was unpacked into
// Assign a non-empty string to err to report a failure.

// Example: drop a marker file next to the sources
/*
os := import("os")
f := os.create(extractDir + "/.srcmirror")
if is_error(f) {
    err = "cannot write marker: " + string(f)
} else {
    f.write_string(packageVersion)
    f.close()
}
*/`

	case PostSync:
		return `// Post-sync hook
// This script runs once after all archives were processed
// Available variables:
// - downloaded: int - number of archives fetched in this run
// - extracted: int - number of archives unpacked
// - failed: int - number of archives that failed to unpack

// Example: print a summary
/*
fmt := import("fmt")
fmt.println("synced ", downloaded, " archives")
*/`

	default:
		return "// Unknown hook type: " + string(hookType)
	}
}
