package graph

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

type graphFile struct {
	Bundles []RawBundle `json:"bundles"`
}

// LoadFile reads a bundle graph JSON emitted by the external bundler.
// Accepts either {"bundles": [...]} or a bare array. Every record passes
// through Normalize; the result is sorted by name for determinism.
func LoadFile(path string) ([]RawBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file graphFile
	if err := json.Unmarshal(data, &file); err != nil {
		var bare []RawBundle
		if bareErr := json.Unmarshal(data, &bare); bareErr != nil {
			return nil, fmt.Errorf("parse bundle graph %s: %w", path, err)
		}
		file.Bundles = bare
	}
	if len(file.Bundles) == 0 {
		return nil, fmt.Errorf("bundle graph %s contains no bundles", path)
	}
	return normalizeAll(file.Bundles), nil
}

// ScanDir builds a bundle list from an already-built dist directory when no
// graph file is available. Sizes come from the filesystem; dependency lists
// stay empty (only a bundler-supplied graph carries imports), so extraction
// degrades gracefully to a no-op. Exclude patterns are gitignore-style,
// matched against paths relative to dir.
func ScanDir(dir string, excludes []string) ([]RawBundle, error) {
	matcher := ignore.CompileIgnoreLines(excludes...)

	var bundles []RawBundle
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if matcher.MatchesPath(rel) {
			return nil
		}
		if !isBundleFile(rel) {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		bundles = append(bundles, RawBundle{
			Name: filepath.ToSlash(rel),
			Size: info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(bundles) == 0 {
		return nil, fmt.Errorf("no bundle files found under %s", dir)
	}
	return normalizeAll(bundles), nil
}

func isBundleFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".mjs", ".cjs":
		return true
	default:
		return false
	}
}

func normalizeAll(bundles []RawBundle) []RawBundle {
	out := make([]RawBundle, 0, len(bundles))
	for _, b := range bundles {
		out = append(out, Normalize(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
