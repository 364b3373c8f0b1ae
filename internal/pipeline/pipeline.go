// Package pipeline sequences the optimization stages and merges their
// outputs into one manifest.
package pipeline

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"bundlepack/internal/analyze"
	"bundlepack/internal/cachepolicy"
	"bundlepack/internal/config"
	"bundlepack/internal/extract"
	"bundlepack/internal/graph"
	"bundlepack/internal/http2"
	"bundlepack/internal/manifest"
	"bundlepack/internal/optimize"
)

// StageError reports which stage failed and carries whatever the earlier
// stages already computed, so a failed run does not discard prior work.
type StageError struct {
	Stage   string
	Err     error
	Partial *manifest.OptimizationResult
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Options tune a run without affecting its semantics.
type Options struct {
	// Logger receives per-stage debug events; nil disables logging.
	Logger *zerolog.Logger

	// Now pins the manifest timestamp; zero means time.Now. Everything
	// except GeneratedAt is a pure function of (bundles, config).
	Now time.Time
}

// Run executes the five optimization stages over a bundle graph and
// returns the merged manifest. Config violations are rejected before any
// stage runs; a stage failure is wrapped in a *StageError together with
// the partial result.
func Run(bundles []graph.RawBundle, cfg config.Config, opts Options) (*manifest.OptimizationResult, error) {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	if err := cfg.Validate(); err != nil {
		return nil, &StageError{Stage: "config", Err: err}
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	normalized := make([]graph.RawBundle, 0, len(bundles))
	for _, b := range bundles {
		normalized = append(normalized, graph.Normalize(b))
	}
	result := &manifest.OptimizationResult{
		Version:     manifest.Version,
		GeneratedAt: now,
		InputHash:   manifest.HashBundles(normalized),
	}

	var records []analyze.DependencyRecord
	if err := runStage(logger, "analyze", result, func() {
		records = analyze.Analyze(normalized, cfg)
	}); err != nil {
		return result, err
	}
	logger.Debug().Int("dependencies", len(records)).Msg("dependency analysis complete")

	var extraction extract.Result
	if err := runStage(logger, "extract", result, func() {
		extraction = extract.Extract(records, normalized, cfg)
	}); err != nil {
		return result, err
	}
	result.SharedChunks = extraction.Chunks
	logger.Debug().Int("chunks", len(extraction.Chunks)).
		Int64("duplicate_eliminated", extraction.Metrics.DuplicateCodeEliminated).
		Msg("shared dependency extraction complete")

	var optimized []optimize.OptimizedBundle
	if err := runStage(logger, "optimize", result, func() {
		optimized = optimize.Optimize(normalized, extraction, cfg)
	}); err != nil {
		return result, err
	}
	result.Bundles = optimized
	logger.Debug().Int("bundles", len(optimized)).Msg("bundle optimization complete")

	var schedule http2.Result
	if err := runStage(logger, "http2", result, func() {
		schedule = http2.Schedule(optimized, extraction.Chunks, cfg)
	}); err != nil {
		return result, err
	}
	result.HTTP2Manifest = schedule.ServerPushManifest
	result.LoadingSequences = schedule.LoadingSequences
	result.ResourceHints = schedule.ResourceHints
	logger.Debug().Int("phases", len(schedule.LoadingSequences)).Msg("http2 scheduling complete")

	var cache cachepolicy.Result
	if err := runStage(logger, "cache", result, func() {
		cache = cachepolicy.Optimize(optimized, extraction.Chunks, cfg)
	}); err != nil {
		return result, err
	}
	result.CacheManifest = cacheManifest(cache)
	result.CacheGlobalRules = cache.GlobalRules
	logger.Debug().Int("strategies", len(cache.Strategies)).Msg("cache strategy assignment complete")

	result.Metrics = mergeMetrics(normalized, optimized, extraction, schedule, cache)
	result.Recommendations = consolidate(normalized, schedule, cache, cfg)
	return result, nil
}

// runStage converts a stage panic (an internal invariant violation, e.g.
// a dependency packed twice) into a StageError carrying the partial
// result. Ordinary bad input never panics; it is defaulted at the graph
// boundary.
func runStage(logger zerolog.Logger, name string, partial *manifest.OptimizationResult, fn func()) (err error) {
	start := time.Now()
	defer func() {
		if recovered := recover(); recovered != nil {
			err = &StageError{
				Stage:   name,
				Err:     fmt.Errorf("invariant violation: %v", recovered),
				Partial: partial,
			}
			return
		}
		logger.Debug().Str("stage", name).Dur("elapsed", time.Since(start)).Msg("stage finished")
	}()
	fn()
	return nil
}

func cacheManifest(cache cachepolicy.Result) map[string]manifest.CacheManifestEntry {
	entries := make(map[string]manifest.CacheManifestEntry, len(cache.Strategies))
	for _, a := range cache.Strategies {
		entries[a.Name] = manifest.CacheManifestEntry{
			Strategy:             a.Strategy,
			MaxAge:               a.MaxAge,
			UpdateStrategy:       a.UpdateStrategy,
			InvalidationTriggers: a.InvalidationTriggers,
		}
	}
	return entries
}

func mergeMetrics(bundles []graph.RawBundle, optimized []optimize.OptimizedBundle,
	extraction extract.Result, schedule http2.Result, cache cachepolicy.Result) manifest.Metrics {

	original := graph.TotalSize(bundles)
	optimizedTotal := optimize.TotalSize(optimized)
	var sharedTotal int64
	for _, chunk := range extraction.Chunks {
		sharedTotal += chunk.TotalSize
	}

	// Conservation: splitting and extraction move bytes, they never mint
	// or lose them. A mismatch is a stage bug, not bad input.
	if optimizedTotal+sharedTotal != original-extraction.Metrics.DuplicateCodeEliminated {
		panic(fmt.Sprintf("byte conservation violated: %d + %d != %d - %d",
			optimizedTotal, sharedTotal, original, extraction.Metrics.DuplicateCodeEliminated))
	}

	reduction := original - optimizedTotal - sharedTotal
	var ratio float64
	if original > 0 {
		ratio = float64(reduction) / float64(original)
	}
	return manifest.Metrics{
		OriginalTotalSize:       original,
		OptimizedTotalSize:      optimizedTotal,
		SharedTotalSize:         sharedTotal,
		SizeReduction:           reduction,
		SizeReductionRatio:      ratio,
		DuplicateCodeEliminated: extraction.Metrics.DuplicateCodeEliminated,
		ProjectedLoadTimeMS:     schedule.Projection.HTTP2EstimateMS,
		ProjectedCacheHitRate:   cache.Projections.HitRate,
		HTTP2Improvement:        schedule.Projection.Improvement,
	}
}

// consolidate folds every stage's advice into the three-tier list. Tiers
// come from the underlying data rather than the stages' message strings.
func consolidate(bundles []graph.RawBundle, schedule http2.Result, cache cachepolicy.Result, cfg config.Config) manifest.Recommendations {
	var recs manifest.Recommendations

	var initialPayload int64
	for _, phase := range schedule.LoadingSequences {
		if phase.Phase == optimize.PriorityCritical {
			initialPayload = phase.EstimatedDurationMS
		}
	}
	if original := graph.TotalSize(bundles); original > cfg.Performance.MaxInitialBundleSize*4 {
		recs.Critical = append(recs.Critical,
			fmt.Sprintf("total payload %d bytes is far beyond the %d-byte initial target; enable aggressive splitting",
				original, cfg.Performance.MaxInitialBundleSize))
	}
	for _, note := range schedule.BundleOptimizations {
		recs.Critical = append(recs.Critical, fmt.Sprintf("%s: %s", note.Bundle, note.Suggestion))
	}

	if len(schedule.ServerPushManifest) > 0 {
		recs.Important = append(recs.Important,
			fmt.Sprintf("configure server push for %d route(s)", len(schedule.ServerPushManifest)))
	}
	recs.Important = append(recs.Important, cache.Recommendations...)

	if schedule.Projection.Improvement > 1.0 {
		recs.Optional = append(recs.Optional,
			fmt.Sprintf("phased loading projects %.1fx over HTTP/1.1 (critical phase %dms)",
				schedule.Projection.Improvement, initialPayload))
	}
	if len(schedule.ResourceHints.Preload) > 0 {
		recs.Optional = append(recs.Optional,
			fmt.Sprintf("emit preload hints for %d critical resource(s)", len(schedule.ResourceHints.Preload)))
	}
	return recs
}
