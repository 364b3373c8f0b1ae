package config

import (
	"os"
	"path/filepath"
	"strings"
)

var dataDirOverride string

const appDirName = "bundlepack"

// SetDataDirOverride routes run history to an explicit directory,
// taking precedence over BUNDLEPACK_DATA_DIR and the XDG default.
func SetDataDirOverride(path string) {
	dataDirOverride = strings.TrimSpace(path)
}

// DataDir resolves where run history lives: the CLI override, then
// BUNDLEPACK_DATA_DIR, then XDG data home.
func DataDir() string {
	if dataDirOverride != "" {
		return dataDirOverride
	}
	if env := strings.TrimSpace(os.Getenv("BUNDLEPACK_DATA_DIR")); env != "" {
		return env
	}
	if xdg := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdg != "" {
		return filepath.Join(xdg, appDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return "." + appDirName
	}
	return filepath.Join(home, ".local", "share", appDirName)
}

// StorePath is the run-history database location under DataDir.
func StorePath() string {
	return filepath.Join(DataDir(), "runs.db")
}
