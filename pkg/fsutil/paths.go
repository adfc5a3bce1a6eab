package fsutil

import (
	"os"
	"path/filepath"
)

const (
	// AppName is the name of the application used in paths
	AppName = "srcmirror"
)

// GetConfigDir returns the platform-specific config directory for the application.
// On Linux: ~/.config/srcmirror/
func GetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, AppName), nil
}

// GetDataDir returns the platform-specific data directory for the application.
// XDG_DATA_HOME wins when set; otherwise ~/.local/share/srcmirror.
func GetDataDir() (string, error) {
	if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
		return filepath.Join(xdgDataHome, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", AppName), nil
}

// GetArchiveDir returns the default directory for downloaded archives.
// Format: <data_dir>/archives/
func GetArchiveDir() (string, error) {
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "archives"), nil
}

// GetExtractDir returns the default root for unpacked package trees.
// Format: <data_dir>/sources/
func GetExtractDir() (string, error) {
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "sources"), nil
}
