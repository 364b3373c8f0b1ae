// Package optimize converts raw bundles into normalized optimized-bundle
// records, splitting oversized bundles against framework size targets.
package optimize

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"bundlepack/internal/config"
	"bundlepack/internal/extract"
	"bundlepack/internal/graph"
	"bundlepack/internal/sizeutil"
)

// Optimized bundle types.
const (
	TypeCore    = "core"
	TypeAdapter = "adapter"
	TypeUtility = "utility"
	TypeShared  = "shared"
)

// Priority tiers shared with the scheduler.
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityNormal   = "normal"
	PriorityLow      = "low"
)

// OptimizedBundle is the post-processing representation of a raw bundle or
// one of its splits.
type OptimizedBundle struct {
	Name      string `json:"name"`
	Framework string `json:"framework"`
	Type      string `json:"type"`

	// Kind carries the upstream bundler's classification through to the
	// scheduler (main/vendor/chunk/other).
	Kind string `json:"kind"`

	Size           int64 `json:"size"`
	CompressedSize int64 `json:"compressed_size"`

	// Dependencies are the private (non-extracted) imports.
	Dependencies []string `json:"dependencies"`

	// SharedDependencies names the shared chunks this bundle now relies on.
	SharedDependencies []string `json:"shared_dependencies"`

	Hash            string `json:"hash"`
	Priority        string `json:"priority"`
	PreloadStrategy string `json:"preload_strategy"`
	CacheStrategy   string `json:"cache_strategy"`
	HTTP2Priority   int    `json:"http2_priority"`
}

var http2Weights = map[string]int{
	PriorityCritical: 256,
	PriorityHigh:     192,
	PriorityNormal:   128,
	PriorityLow:      64,
}

// Optimize strips extracted dependencies from every bundle and, where the
// framework has configured chunk targets, splits the bundle into core,
// adapter, and utility pieces by the framework's size-breakdown ratios.
// The split is size-based, not content-aware: the ratios approximate where
// framework baseline, glue, and application code usually land, and a
// bundler that reports real per-module breakdowns can override them.
func Optimize(bundles []graph.RawBundle, extraction extract.Result, cfg config.Config) []OptimizedBundle {
	var out []OptimizedBundle
	for _, bundle := range bundles {
		mod := extraction.Modifications[bundle.Name]
		private := privateDependencies(bundle.Dependencies, mod.RemovedDependencies)
		// The extractor caps SizeReduction at the bundle size, so this
		// never goes negative.
		size := bundle.Size - mod.SizeReduction

		fw, hasTargets := cfg.Frameworks[bundle.Framework]
		if !hasTargets || fw.CoreTarget <= 0 {
			out = append(out, newOptimized(bundle, baseName(bundle.Name), TypeCore,
				PriorityNormal, "lazy", "stale-while-revalidate", size, private, mod.CoveringChunks))
			continue
		}
		out = append(out, splitBundle(bundle, fw, size, private, mod.CoveringChunks)...)
	}
	return out
}

func splitBundle(bundle graph.RawBundle, fw config.FrameworkConfig, size int64, private, shared []string) []OptimizedBundle {
	base := baseName(bundle.Name)

	coreSize := int64(float64(size) * fw.CoreRatio)
	if coreSize > fw.CoreTarget {
		coreSize = fw.CoreTarget
	}
	adapterSize := int64(float64(size) * fw.AdapterRatio)
	if fw.AdapterTarget > 0 && adapterSize > fw.AdapterTarget {
		adapterSize = fw.AdapterTarget
	}
	if coreSize+adapterSize > size {
		adapterSize = 0
		if coreSize > size {
			coreSize = size
		}
	}
	remainder := size - coreSize - adapterSize

	var pieces []OptimizedBundle
	pieces = append(pieces, newOptimized(bundle, base+"-core", TypeCore,
		PriorityCritical, "aggressive", "cache-first", coreSize, private, shared))
	if adapterSize > 0 {
		pieces = append(pieces, newOptimized(bundle, base+"-adapter", TypeAdapter,
			PriorityHigh, "moderate", "stale-while-revalidate", adapterSize, nil, shared))
	}

	utilitySize := fw.UtilityChunkSize
	index := 1
	for remainder > 0 {
		piece := remainder
		if piece > utilitySize {
			piece = utilitySize
		}
		pieces = append(pieces, newOptimized(bundle, fmt.Sprintf("%s-utility-%d", base, index),
			TypeUtility, PriorityNormal, "lazy", "stale-while-revalidate", piece, nil, shared))
		remainder -= piece
		index++
	}
	return pieces
}

func newOptimized(bundle graph.RawBundle, name, typ, priority, preload, cache string, size int64, private, shared []string) OptimizedBundle {
	if private == nil {
		private = []string{}
	}
	if shared == nil {
		shared = []string{}
	}
	return OptimizedBundle{
		Name:               name,
		Framework:          bundle.Framework,
		Type:               typ,
		Kind:               bundle.Kind,
		Size:               size,
		CompressedSize:     sizeutil.EstimateCompressedSize(size),
		Dependencies:       private,
		SharedDependencies: shared,
		Hash:               bundleHash(name, size, private),
		Priority:           priority,
		PreloadStrategy:    preload,
		CacheStrategy:      cache,
		HTTP2Priority:      http2Weights[priority],
	}
}

func privateDependencies(deps, removed []string) []string {
	removedSet := make(map[string]struct{}, len(removed))
	for _, dep := range removed {
		removedSet[dep] = struct{}{}
	}
	private := make([]string, 0, len(deps))
	for _, dep := range deps {
		if _, ok := removedSet[dep]; !ok {
			private = append(private, dep)
		}
	}
	return private
}

func baseName(name string) string {
	base := name
	for _, ext := range []string{".js", ".mjs", ".cjs"} {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

func bundleHash(name string, size int64, deps []string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%s", name, size, strings.Join(deps, ","))))
	return hex.EncodeToString(sum[:8])
}

// TotalSize sums the sizes of optimized bundles.
func TotalSize(bundles []OptimizedBundle) int64 {
	var total int64
	for _, b := range bundles {
		total += b.Size
	}
	return total
}
