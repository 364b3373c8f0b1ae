// Package extract selects the dependencies worth sharing across frameworks
// and bin-packs them into size-bounded shared chunks.
package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"bundlepack/internal/analyze"
	"bundlepack/internal/config"
	"bundlepack/internal/graph"
	"bundlepack/internal/sizeutil"
)

// SharedChunk is a group of dependencies packed together and served once
// for every framework that needs any of them. Immutable once built.
type SharedChunk struct {
	Name            string   `json:"name"`
	Dependencies    []string `json:"dependencies"`
	Frameworks      []string `json:"frameworks"`
	TotalSize       int64    `json:"total_size"`
	CompressedSize  int64    `json:"compressed_size"`
	Hash            string   `json:"hash"`
	Priority        string   `json:"priority"`
	CacheStrategy   string   `json:"cache_strategy"`
	LoadingStrategy string   `json:"loading_strategy"`

	// AvgStability is the mean stability score of the member dependencies;
	// the cache stage keys max-age off it.
	AvgStability float64 `json:"avg_stability"`
}

// BundleModification records what extraction did to one raw bundle: which
// dependencies moved out, which chunks now cover them, and the byte
// reduction applied when the bundle is optimized.
type BundleModification struct {
	RemovedDependencies []string `json:"removed_dependencies"`
	CoveringChunks      []string `json:"covering_chunks"`
	SizeReduction       int64    `json:"size_reduction"`
}

// Metrics aggregates what extraction bought.
type Metrics struct {
	TotalSizeReduction int64 `json:"total_size_reduction"`

	// DuplicateCodeEliminated counts bytes that were shipped once per
	// consuming bundle before extraction and are shipped once afterward.
	DuplicateCodeEliminated int64 `json:"duplicate_code_eliminated"`

	CacheEfficiencyImprovement float64 `json:"cache_efficiency_improvement"`
}

type Result struct {
	Chunks        []SharedChunk                 `json:"chunks"`
	Modifications map[string]BundleModification `json:"modifications"`
	Metrics       Metrics                       `json:"metrics"`
}

// Extract picks extraction candidates, packs them greedily by descending
// extraction benefit, and reports the per-bundle fallout. Greedy packing is
// not optimal bin-packing; it trades chunk-count balance for O(n log n)
// and never violates the size bound.
func Extract(records []analyze.DependencyRecord, bundles []graph.RawBundle, cfg config.Config) Result {
	candidates := selectCandidates(records, cfg)

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].ExtractionBenefit != candidates[j].ExtractionBenefit {
			return candidates[i].ExtractionBenefit > candidates[j].ExtractionBenefit
		}
		return candidates[i].Name < candidates[j].Name
	})

	chunks := packChunks(candidates, cfg)
	assertNoDuplicates(chunks)

	covered := make(map[string]string, len(candidates))
	for _, chunk := range chunks {
		for _, dep := range chunk.Dependencies {
			covered[dep] = chunk.Name
		}
	}

	sizeByName := make(map[string]int64, len(records))
	benefitByName := make(map[string]int64, len(records))
	for _, rec := range records {
		sizeByName[rec.Name] = rec.EstimatedSize
		benefitByName[rec.Name] = rec.ExtractionBenefit
	}

	modifications := make(map[string]BundleModification)
	var totalReduction int64
	for _, bundle := range bundles {
		var removed []string
		chunkSet := make(map[string]struct{})
		var reduction int64
		for _, dep := range bundle.Dependencies {
			chunkName, ok := covered[dep]
			if !ok {
				continue
			}
			removed = append(removed, dep)
			chunkSet[chunkName] = struct{}{}
			reduction += sizeByName[dep]
		}
		if len(removed) == 0 {
			continue
		}
		// Dependency sizes are estimates; a bundle never shrinks below
		// zero, and the duplicate-elimination figure stays consistent
		// with the bytes actually removed.
		if reduction > bundle.Size {
			reduction = bundle.Size
		}
		coveringChunks := make([]string, 0, len(chunkSet))
		for name := range chunkSet {
			coveringChunks = append(coveringChunks, name)
		}
		sort.Strings(coveringChunks)
		modifications[bundle.Name] = BundleModification{
			RemovedDependencies: removed,
			CoveringChunks:      coveringChunks,
			SizeReduction:       reduction,
		}
		totalReduction += reduction
	}

	var metrics Metrics
	for dep := range covered {
		metrics.TotalSizeReduction += benefitByName[dep]
	}
	var sharedSize int64
	for _, chunk := range chunks {
		sharedSize += chunk.TotalSize
	}
	// May go slightly negative when size estimates overshoot small
	// bundles; the conservation identity depends on the signed value.
	metrics.DuplicateCodeEliminated = totalReduction - sharedSize
	if total := graph.TotalSize(bundles); total > 0 {
		metrics.CacheEfficiencyImprovement = float64(sharedSize) / float64(total)
	}

	return Result{Chunks: chunks, Modifications: modifications, Metrics: metrics}
}

func selectCandidates(records []analyze.DependencyRecord, cfg config.Config) []analyze.DependencyRecord {
	matchers := make(map[string]*ignore.GitIgnore, len(cfg.Frameworks))
	for name, fw := range cfg.Frameworks {
		if len(fw.Exclude) > 0 {
			matchers[name] = ignore.CompileIgnoreLines(fw.Exclude...)
		}
	}

	var candidates []analyze.DependencyRecord
	for _, rec := range records {
		if cfg.IsPriorityDependency(rec.Name) {
			candidates = append(candidates, rec)
			continue
		}
		if len(rec.Frameworks) < cfg.Extraction.MinSharedCount {
			continue
		}
		if rec.EstimatedSize < cfg.Extraction.MinDependencySize {
			continue
		}
		if excludedByFramework(rec, matchers) {
			continue
		}
		if rec.ExtractionBenefit <= rec.EstimatedSize/2 {
			continue
		}
		candidates = append(candidates, rec)
	}
	return candidates
}

// excludedByFramework reports whether any consuming framework's exclude
// patterns match the dependency; an excluded dependency cannot be shared.
func excludedByFramework(rec analyze.DependencyRecord, matchers map[string]*ignore.GitIgnore) bool {
	for _, fw := range rec.Frameworks {
		if matcher, ok := matchers[fw]; ok && matcher.MatchesPath(rec.Name) {
			return true
		}
	}
	return false
}

func packChunks(candidates []analyze.DependencyRecord, cfg config.Config) []SharedChunk {
	maxSize := cfg.Extraction.MaxSharedChunkSize

	var chunks []SharedChunk
	var members []analyze.DependencyRecord
	var runningSize int64

	flush := func() {
		if len(members) == 0 {
			return
		}
		chunks = append(chunks, buildChunk(len(chunks)+1, members))
		members = nil
		runningSize = 0
	}

	for _, candidate := range candidates {
		if candidate.EstimatedSize > maxSize {
			// A dependency larger than the bound can never satisfy the
			// packing invariant; leave it in its bundles.
			continue
		}
		if runningSize+candidate.EstimatedSize > maxSize {
			flush()
		}
		members = append(members, candidate)
		runningSize += candidate.EstimatedSize
	}
	flush()

	return chunks
}

func buildChunk(index int, members []analyze.DependencyRecord) SharedChunk {
	deps := make([]string, 0, len(members))
	frameworkSet := make(map[string]struct{})
	var totalSize int64
	var stabilitySum float64
	priority := "normal"
	for _, member := range members {
		deps = append(deps, member.Name)
		totalSize += member.EstimatedSize
		stabilitySum += member.Stability
		for _, fw := range member.Frameworks {
			frameworkSet[fw] = struct{}{}
		}
		switch member.Importance {
		case analyze.ImportanceCritical:
			priority = "critical"
		case analyze.ImportanceHigh:
			if priority != "critical" {
				priority = "high"
			}
		}
	}
	sort.Strings(deps)
	frameworks := make([]string, 0, len(frameworkSet))
	for fw := range frameworkSet {
		frameworks = append(frameworks, fw)
	}
	sort.Strings(frameworks)

	avgStability := stabilitySum / float64(len(members))
	cacheStrategy := "stale-while-revalidate"
	if avgStability >= 0.8 {
		cacheStrategy = "cache-first"
	}
	loadingStrategy := "lazy"
	switch priority {
	case "critical":
		loadingStrategy = "eager"
	case "high":
		loadingStrategy = "preload"
	}

	return SharedChunk{
		Name:            fmt.Sprintf("shared-%d", index),
		Dependencies:    deps,
		Frameworks:      frameworks,
		TotalSize:       totalSize,
		CompressedSize:  sizeutil.EstimateCompressedSize(totalSize),
		Hash:            chunkHash(members),
		Priority:        priority,
		CacheStrategy:   cacheStrategy,
		LoadingStrategy: loadingStrategy,
		AvgStability:    avgStability,
	}
}

func chunkHash(members []analyze.DependencyRecord) string {
	parts := make([]string, 0, len(members))
	for _, member := range members {
		parts = append(parts, fmt.Sprintf("%s:%d", member.Name, member.EstimatedSize))
	}
	sort.Strings(parts)
	sum := sha256.Sum256([]byte(strings.Join(parts, ";")))
	return hex.EncodeToString(sum[:8])
}

// assertNoDuplicates panics if a dependency landed in two chunks. That is
// a packing bug, not bad input, and must not be tolerated silently.
func assertNoDuplicates(chunks []SharedChunk) {
	seen := make(map[string]string)
	for _, chunk := range chunks {
		for _, dep := range chunk.Dependencies {
			if prev, ok := seen[dep]; ok {
				panic(fmt.Sprintf("dependency %q packed into both %s and %s", dep, prev, chunk.Name))
			}
			seen[dep] = chunk.Name
		}
	}
}
