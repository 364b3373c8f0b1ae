package graph

import (
	"sort"
	"strings"
)

// Bundle kinds as reported by the upstream bundler, after normalization.
const (
	KindMain   = "main"
	KindVendor = "vendor"
	KindChunk  = "chunk"
	KindOther  = "other"
)

// FrameworkUnknown is the fallback when a bundle carries no framework tag
// and none can be detected from its name.
const FrameworkUnknown = "unknown"

// RawBundle is one compiled output unit from the external bundler. It is
// consumed read-only; the pipeline never mutates it.
type RawBundle struct {
	Name         string   `json:"name"`
	Size         int64    `json:"size"`
	Dependencies []string `json:"dependencies"`
	Framework    string   `json:"framework"`
	Kind         string   `json:"kind"`
}

// Normalize applies the documented safe fallbacks for malformed input:
// zero size, empty dependency list, "unknown" framework. A degraded
// optimization beats aborting a build.
func Normalize(b RawBundle) RawBundle {
	b.Name = strings.TrimSpace(b.Name)
	if b.Name == "" {
		b.Name = "unnamed-bundle"
	}
	if b.Size < 0 {
		b.Size = 0
	}
	if b.Dependencies == nil {
		b.Dependencies = []string{}
	}
	deps := make([]string, 0, len(b.Dependencies))
	seen := make(map[string]struct{}, len(b.Dependencies))
	for _, dep := range b.Dependencies {
		dep = strings.TrimSpace(dep)
		if dep == "" {
			continue
		}
		if _, ok := seen[dep]; ok {
			continue
		}
		seen[dep] = struct{}{}
		deps = append(deps, dep)
	}
	sort.Strings(deps)
	b.Dependencies = deps

	b.Framework = strings.ToLower(strings.TrimSpace(b.Framework))
	if b.Framework == "" {
		b.Framework = DetectFramework(b.Name)
	}
	b.Kind = strings.ToLower(strings.TrimSpace(b.Kind))
	switch b.Kind {
	case KindMain, KindVendor, KindChunk, KindOther:
	default:
		b.Kind = DetectKind(b.Name)
	}
	return b
}

// DetectFramework guesses the framework origin from bundler naming
// conventions (react-app.abc123.js, vue-admin.js, ...).
func DetectFramework(name string) string {
	lower := strings.ToLower(name)
	for _, fw := range []string{"react", "vue", "svelte", "angular", "preact"} {
		if strings.Contains(lower, fw) {
			return fw
		}
	}
	return FrameworkUnknown
}

// DetectKind classifies a bundle by its name when the bundler did not tag it.
func DetectKind(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "main") || strings.Contains(lower, "index") || strings.Contains(lower, "app"):
		return KindMain
	case strings.Contains(lower, "vendor") || strings.Contains(lower, "node_modules"):
		return KindVendor
	case strings.Contains(lower, "chunk"):
		return KindChunk
	default:
		return KindOther
	}
}

// TotalSize sums the byte sizes of a bundle list.
func TotalSize(bundles []RawBundle) int64 {
	var total int64
	for _, b := range bundles {
		total += b.Size
	}
	return total
}
