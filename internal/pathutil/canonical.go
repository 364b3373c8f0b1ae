// Package pathutil normalizes user-supplied filesystem paths.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// Canonical cleans a path and resolves symlinks best-effort. A path that
// does not exist yet resolves through its deepest existing ancestor with
// the missing segments reattached, so a data dir created later still
// canonicalizes the same way (macOS routes /tmp and /var through
// symlinks, which otherwise makes two spellings of one location).
func Canonical(path string) string {
	clean := filepath.Clean(strings.TrimSpace(path))
	if clean == "" || clean == "." {
		return clean
	}
	if resolved, err := filepath.EvalSymlinks(clean); err == nil {
		return filepath.Clean(resolved)
	}

	var missing []string
	prefix := clean
	for {
		if _, err := os.Lstat(prefix); err == nil {
			resolved, err := filepath.EvalSymlinks(prefix)
			if err != nil {
				return clean
			}
			parts := append([]string{resolved}, missing...)
			return filepath.Clean(filepath.Join(parts...))
		}
		parent := filepath.Dir(prefix)
		if parent == prefix {
			return clean
		}
		missing = append([]string{filepath.Base(prefix)}, missing...)
		prefix = parent
	}
}
