// Package analyze builds the cross-bundle dependency usage index that the
// shared-dependency extractor packs from.
package analyze

import (
	"runtime"
	"sort"
	"sync"

	"bundlepack/internal/config"
	"bundlepack/internal/graph"
)

// Importance tiers for a dependency, from most to least load-critical.
const (
	ImportanceCritical = "critical"
	ImportanceHigh     = "high"
	ImportanceMedium   = "medium"
	ImportanceLow      = "low"
)

// DependencyRecord is the per-distinct-dependency aggregate across all raw
// bundles. Built once per run, read-only afterward.
type DependencyRecord struct {
	Name          string   `json:"name"`
	EstimatedSize int64    `json:"estimated_size"`
	Frameworks    []string `json:"frameworks"`
	UsageCount    int      `json:"usage_count"`
	Importance    string   `json:"importance"`
	Stability     float64  `json:"stability"`

	// ExtractionBenefit is the bytes saved by shipping the dependency once
	// instead of once per consuming framework.
	ExtractionBenefit int64 `json:"extraction_benefit"`
}

type usage struct {
	count      int
	frameworks map[string]struct{}
}

// Analyze scans every bundle's import list and aggregates usage counts,
// framework sets, and the derived tiers/scores. Bundles are sharded across
// a bounded worker pool and merged before derivation; output is sorted by
// name so downstream stages are deterministic.
func Analyze(bundles []graph.RawBundle, cfg config.Config) []DependencyRecord {
	merged := countUsage(bundles)

	records := make([]DependencyRecord, 0, len(merged))
	for name, u := range merged {
		frameworks := make([]string, 0, len(u.frameworks))
		for fw := range u.frameworks {
			frameworks = append(frameworks, fw)
		}
		sort.Strings(frameworks)

		size := cfg.SizeFor(name)
		records = append(records, DependencyRecord{
			Name:              name,
			EstimatedSize:     size,
			Frameworks:        frameworks,
			UsageCount:        u.count,
			Importance:        importanceFor(name, u.count, cfg),
			Stability:         cfg.StabilityFor(name),
			ExtractionBenefit: size * int64(len(frameworks)-1),
		})
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records
}

func countUsage(bundles []graph.RawBundle) map[string]*usage {
	workers := runtime.GOMAXPROCS(0)
	if workers > len(bundles) {
		workers = len(bundles)
	}
	if workers <= 1 {
		return countShard(bundles)
	}

	partials := make([]map[string]*usage, workers)
	var wg sync.WaitGroup
	shardSize := (len(bundles) + workers - 1) / workers
	for i := 0; i < workers; i++ {
		start := i * shardSize
		end := start + shardSize
		if end > len(bundles) {
			end = len(bundles)
		}
		wg.Add(1)
		go func(slot int, shard []graph.RawBundle) {
			defer wg.Done()
			partials[slot] = countShard(shard)
		}(i, bundles[start:end])
	}
	wg.Wait()

	merged := partials[0]
	for _, partial := range partials[1:] {
		for name, u := range partial {
			existing, ok := merged[name]
			if !ok {
				merged[name] = u
				continue
			}
			existing.count += u.count
			for fw := range u.frameworks {
				existing.frameworks[fw] = struct{}{}
			}
		}
	}
	return merged
}

func countShard(bundles []graph.RawBundle) map[string]*usage {
	out := make(map[string]*usage)
	for _, bundle := range bundles {
		for _, dep := range bundle.Dependencies {
			u, ok := out[dep]
			if !ok {
				u = &usage{frameworks: make(map[string]struct{}, 2)}
				out[dep] = u
			}
			u.count++
			u.frameworks[bundle.Framework] = struct{}{}
		}
	}
	return out
}

func importanceFor(name string, usageCount int, cfg config.Config) string {
	switch {
	case cfg.IsPriorityDependency(name):
		return ImportanceCritical
	case cfg.IsFrameworkCoreLib(name):
		return ImportanceHigh
	case usageCount > 3:
		return ImportanceMedium
	default:
		return ImportanceLow
	}
}
