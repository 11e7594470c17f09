// Package paths resolves the per-user directories plantchat reads and
// writes.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// GetConfigDir returns ~/.config/plantchat, or a directory under the system
// temp dir when the home directory is unknown.
func GetConfigDir() string {
	home := GetHomeDir()
	if home == "" {
		return filepath.Join(os.TempDir(), ".plantchat-config")
	}
	return filepath.Join(home, ".config", "plantchat")
}

// GetDataDir returns ~/.plantchat, used for debug logs and exports.
func GetDataDir() string {
	home := GetHomeDir()
	if home == "" {
		return filepath.Join(os.TempDir(), ".plantchat")
	}
	return filepath.Join(home, ".plantchat")
}

// GetExportDir is where transcripts are exported when no directory is
// configured.
func GetExportDir() string {
	return filepath.Join(GetDataDir(), "exports")
}

// GetHomeDir returns the user's home directory, or "" if it cannot be
// determined.
func GetHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Clean(home)
}

// ExpandHome replaces a leading "~/" with the home directory. Other paths,
// and all paths when the home directory is unknown, are returned unchanged.
func ExpandHome(path string) string {
	if path == "~" {
		if home := GetHomeDir(); home != "" {
			return home
		}
		return path
	}
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home := GetHomeDir()
	if home == "" {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/"))
}
