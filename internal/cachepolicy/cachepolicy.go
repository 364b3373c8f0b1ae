// Package cachepolicy assigns a cache policy to every optimized bundle and
// shared chunk based on estimated volatility and usage pattern.
package cachepolicy

import (
	"fmt"
	"path"
	"sort"

	"bundlepack/internal/config"
	"bundlepack/internal/extract"
	"bundlepack/internal/graph"
	"bundlepack/internal/optimize"
	"bundlepack/internal/sizeutil"
)

// Cache strategies.
const (
	CacheFirst           = "cache-first"
	NetworkFirst         = "network-first"
	StaleWhileRevalidate = "stale-while-revalidate"
)

// Estimated update frequencies.
const (
	FreqHigh   = "high"
	FreqMedium = "medium"
	FreqLow    = "low"
)

// Usage patterns driving eviction priority.
const (
	UsageCritical   = "critical"
	UsageFrequent   = "frequent"
	UsageOccasional = "occasional"
)

// Assignment is the cache policy for one bundle or chunk.
type Assignment struct {
	Name                 string   `json:"name"`
	Strategy             string   `json:"strategy"`
	MaxAge               int64    `json:"max_age"`
	UpdateStrategy       string   `json:"update_strategy"`
	UpdateFrequency      string   `json:"update_frequency"`
	UsagePattern         string   `json:"usage_pattern"`
	Stability            float64  `json:"stability"`
	InvalidationTriggers []string `json:"invalidation_triggers"`
	StorageQuota         int64    `json:"storage_quota"`
	EvictionPriority     int      `json:"eviction_priority"`
}

// GlobalRules apply to the cache as a whole rather than per entry.
type GlobalRules struct {
	MaxCacheStorage          int64  `json:"max_cache_storage"`
	EvictionPolicy           string `json:"eviction_policy"`
	BackgroundUpdateInterval int64  `json:"background_update_interval"`
	VersioningStrategy       string `json:"versioning_strategy"`
}

// Projections are size-share-weighted estimates across all entries.
type Projections struct {
	HitRate               float64 `json:"hit_rate"`
	LoadTimeReductionMS   int64   `json:"load_time_reduction_ms"`
	BandwidthSavingsBytes int64   `json:"bandwidth_savings_bytes"`
}

type Result struct {
	Strategies      []Assignment `json:"strategies"`
	GlobalRules     GlobalRules  `json:"global_rules"`
	Projections     Projections  `json:"performance_projections"`
	Recommendations []string     `json:"recommendations"`
}

// minCacheStorage is the 50MB floor on the global storage budget.
const minCacheStorage = 50 * 1024 * 1024

type target struct {
	name       string
	size       int64
	compressed int64
	frequency  string
	usage      string
	stability  float64
}

// Optimize derives a cache policy per entry from the frequency/stability
// decision table, plus global rules and size-share-weighted projections.
func Optimize(bundles []optimize.OptimizedBundle, chunks []extract.SharedChunk, cfg config.Config) Result {
	targets := collectTargets(bundles, chunks, cfg)

	var totalSize int64
	for _, t := range targets {
		totalSize += t.size
	}

	assignments := make([]Assignment, 0, len(targets))
	var weightedHit float64
	var loadReduction float64
	var bandwidthSavings int64
	for _, t := range targets {
		a := assign(t, cfg)
		assignments = append(assignments, a)

		hit := hitRateFor(a.Strategy)
		if totalSize > 0 {
			share := float64(t.size) / float64(totalSize)
			weightedHit += hit * share
			loadReduction += hit * float64(sizeutil.EstimateLoadTimeMS(t.compressed)) * share
		}
		bandwidthSavings += int64(hit * float64(t.compressed))
	}

	globalRules := GlobalRules{
		MaxCacheStorage:          maxCacheStorage(totalSize),
		EvictionPolicy:           "priority-based",
		BackgroundUpdateInterval: cfg.Cache.BackgroundUpdateInterval,
		VersioningStrategy:       cfg.Cache.VersioningStrategy,
	}
	projections := Projections{
		HitRate:               weightedHit,
		LoadTimeReductionMS:   int64(loadReduction),
		BandwidthSavingsBytes: bandwidthSavings,
	}

	return Result{
		Strategies:      assignments,
		GlobalRules:     globalRules,
		Projections:     projections,
		Recommendations: recommend(assignments, projections, cfg),
	}
}

func collectTargets(bundles []optimize.OptimizedBundle, chunks []extract.SharedChunk, cfg config.Config) []target {
	targets := make([]target, 0, len(bundles)+len(chunks))
	for _, b := range bundles {
		targets = append(targets, target{
			name:       b.Name,
			size:       b.Size,
			compressed: b.CompressedSize,
			frequency:  estimateFrequency(b),
			usage:      usagePattern(b.Priority, b.Type),
			stability:  bundleStability(b, cfg),
		})
	}
	for _, c := range chunks {
		targets = append(targets, target{
			name:       c.Name,
			size:       c.TotalSize,
			compressed: c.CompressedSize,
			frequency:  FreqLow,
			usage:      usagePattern(c.Priority, optimize.TypeShared),
			stability:  c.AvgStability,
		})
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].name < targets[j].name })
	return targets
}

// estimateFrequency guesses how often a bundle's content changes. Shared
// vendor code and split cores hold framework baseline and barely move;
// utility chunks and unsplit application entries carry product code and
// churn with every release.
func estimateFrequency(b optimize.OptimizedBundle) string {
	switch b.Type {
	case optimize.TypeShared:
		return FreqLow
	case optimize.TypeAdapter:
		return FreqMedium
	case optimize.TypeUtility:
		return FreqHigh
	}
	switch {
	case b.Kind == graph.KindVendor:
		return FreqLow
	case b.Type == optimize.TypeCore && b.Priority == optimize.PriorityCritical:
		// Split product: framework baseline, not product code.
		return FreqLow
	case b.Kind == graph.KindMain:
		return FreqHigh
	default:
		return FreqMedium
	}
}

func usagePattern(priority, typ string) string {
	switch {
	case priority == optimize.PriorityCritical:
		return UsageCritical
	case typ == optimize.TypeShared, typ == optimize.TypeCore, typ == optimize.TypeAdapter:
		return UsageFrequent
	default:
		return UsageOccasional
	}
}

// bundleStability averages the stability of the private dependencies; a
// bundle with no dependency signal gets the configured default.
func bundleStability(b optimize.OptimizedBundle, cfg config.Config) float64 {
	if len(b.Dependencies) == 0 {
		return cfg.DefaultStability
	}
	var sum float64
	for _, dep := range b.Dependencies {
		sum += cfg.StabilityFor(dep)
	}
	return sum / float64(len(b.Dependencies))
}

func assign(t target, cfg config.Config) Assignment {
	strategy, maxAge := strategyTable(t.frequency, t.stability, cfg.Cache.BaseMaxAge)
	if forced, ok := patternOverride(t.name, cfg.Cache.Patterns); ok {
		strategy = forced
	}
	if maxAge > cfg.Cache.MaxAgeCeiling {
		maxAge = cfg.Cache.MaxAgeCeiling
	}

	updateStrategy := "lazy"
	switch {
	case t.usage == UsageCritical || isSharedName(t):
		updateStrategy = "background"
	case t.frequency == FreqHigh:
		updateStrategy = "immediate"
	}

	eviction := 0
	switch t.usage {
	case UsageCritical:
		eviction += 3
	case UsageFrequent:
		eviction += 2
	case UsageOccasional:
		eviction++
	}
	if t.size > cfg.Cache.LargeBundleThreshold {
		eviction--
	}

	triggers := append([]string{}, cfg.Cache.InvalidationRules...)
	if cfg.Cache.VersioningStrategy == "content-hash" {
		triggers = append(triggers, "content-hash-change")
	}

	return Assignment{
		Name:                 t.name,
		Strategy:             strategy,
		MaxAge:               maxAge,
		UpdateStrategy:       updateStrategy,
		UpdateFrequency:      t.frequency,
		UsagePattern:         t.usage,
		Stability:            t.stability,
		InvalidationTriggers: triggers,
		StorageQuota:         2 * t.size,
		EvictionPriority:     eviction,
	}
}

// strategyTable is the frequency x stability decision table. Base is the
// 24h-equivalent reference age; higher stability never yields a smaller
// max-age for the same frequency.
func strategyTable(frequency string, stability float64, base int64) (string, int64) {
	switch frequency {
	case FreqHigh:
		return NetworkFirst, base / 4
	case FreqMedium:
		return StaleWhileRevalidate, base / 2
	default:
		if stability > 0.8 {
			return CacheFirst, base * 7
		}
		return CacheFirst, base
	}
}

func patternOverride(name string, patterns []config.CachePattern) (string, bool) {
	for _, p := range patterns {
		if ok, err := path.Match(p.Pattern, name); err == nil && ok {
			return p.Strategy, true
		}
	}
	return "", false
}

func isSharedName(t target) bool {
	return t.usage == UsageFrequent && t.frequency == FreqLow
}

func hitRateFor(strategy string) float64 {
	switch strategy {
	case CacheFirst:
		return 0.9
	case StaleWhileRevalidate:
		return 0.7
	default:
		return 0.3
	}
}

func maxCacheStorage(totalSize int64) int64 {
	storage := 2 * totalSize
	if storage < minCacheStorage {
		storage = minCacheStorage
	}
	return storage
}

func recommend(assignments []Assignment, projections Projections, cfg config.Config) []string {
	var recs []string
	networkFirst := 0
	for _, a := range assignments {
		if a.Strategy == NetworkFirst {
			networkFirst++
		}
	}
	if networkFirst > 0 {
		recs = append(recs, fmt.Sprintf("%d entr(ies) are network-first; content hashing would let them move to cache-first", networkFirst))
	}
	if projections.HitRate < cfg.Performance.TargetCacheHitRate {
		recs = append(recs, fmt.Sprintf("projected hit rate %.2f is below the %.2f target; extract more stable dependencies into shared chunks",
			projections.HitRate, cfg.Performance.TargetCacheHitRate))
	}
	return recs
}
