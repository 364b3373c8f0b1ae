package config

import (
	"fmt"
	"strings"
)

// ValidationError aggregates every violation found in a Config so a bad
// file is reported once, completely, before any pipeline stage runs.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 1 {
		return "invalid config: " + e.Violations[0]
	}
	return fmt.Sprintf("invalid config (%d violations):\n  - %s",
		len(e.Violations), strings.Join(e.Violations, "\n  - "))
}

// Validate checks every recognized option and returns a *ValidationError
// listing all violations, or nil.
func (c Config) Validate() error {
	var violations []string
	add := func(format string, args ...any) {
		violations = append(violations, fmt.Sprintf(format, args...))
	}

	if c.Extraction.MinSharedCount < 1 {
		add("extraction.min_shared_count must be >= 1, got %d", c.Extraction.MinSharedCount)
	}
	if c.Extraction.MaxSharedChunkSize <= 0 {
		add("extraction.max_shared_chunk_size must be > 0, got %d", c.Extraction.MaxSharedChunkSize)
	}
	if c.Extraction.MinDependencySize < 0 {
		add("extraction.min_dependency_size must be >= 0, got %d", c.Extraction.MinDependencySize)
	}
	if c.Extraction.MaxSharedChunkSize > 0 && c.Extraction.MinDependencySize > c.Extraction.MaxSharedChunkSize {
		add("extraction.min_dependency_size (%d) exceeds max_shared_chunk_size (%d)",
			c.Extraction.MinDependencySize, c.Extraction.MaxSharedChunkSize)
	}

	for name, fw := range c.Frameworks {
		if fw.CoreRatio < 0 || fw.CoreRatio > 1 {
			add("frameworks.%s.core_ratio must be in [0,1], got %g", name, fw.CoreRatio)
		}
		if fw.AdapterRatio < 0 || fw.AdapterRatio > 1 {
			add("frameworks.%s.adapter_ratio must be in [0,1], got %g", name, fw.AdapterRatio)
		}
		if fw.CoreRatio+fw.AdapterRatio > 1 {
			add("frameworks.%s: core_ratio + adapter_ratio must not exceed 1, got %g",
				name, fw.CoreRatio+fw.AdapterRatio)
		}
		if fw.CoreTarget < 0 || fw.AdapterTarget < 0 || fw.UtilityChunkSize < 0 {
			add("frameworks.%s: chunk targets must be >= 0", name)
		}
		if fw.CoreTarget > 0 && fw.UtilityChunkSize == 0 {
			add("frameworks.%s: utility_chunk_size required when core_target is set", name)
		}
	}

	if c.HTTP2.MaxConcurrentStreams < 1 {
		add("http2.max_concurrent_streams must be >= 1, got %d", c.HTTP2.MaxConcurrentStreams)
	}
	if c.HTTP2.MinChunkSize <= 0 {
		add("http2.min_chunk_size must be > 0, got %d", c.HTTP2.MinChunkSize)
	}
	if c.HTTP2.MinChunkSize > c.HTTP2.OptimalChunkSize {
		add("http2.min_chunk_size (%d) exceeds optimal_chunk_size (%d)",
			c.HTTP2.MinChunkSize, c.HTTP2.OptimalChunkSize)
	}
	if c.HTTP2.OptimalChunkSize > c.HTTP2.MaxChunkSize {
		add("http2.optimal_chunk_size (%d) exceeds max_chunk_size (%d)",
			c.HTTP2.OptimalChunkSize, c.HTTP2.MaxChunkSize)
	}
	if c.HTTP2.Push.Enabled {
		if c.HTTP2.Push.SizeThreshold <= 0 {
			add("http2.push.size_threshold must be > 0 when push is enabled, got %d",
				c.HTTP2.Push.SizeThreshold)
		}
		if c.HTTP2.Push.MaxResources < 1 {
			add("http2.push.max_resources must be >= 1 when push is enabled, got %d",
				c.HTTP2.Push.MaxResources)
		}
	}

	if c.Cache.BaseMaxAge <= 0 {
		add("cache.base_max_age must be > 0, got %d", c.Cache.BaseMaxAge)
	}
	if c.Cache.MaxAgeCeiling < c.Cache.BaseMaxAge {
		add("cache.max_age_ceiling (%d) must be >= base_max_age (%d)",
			c.Cache.MaxAgeCeiling, c.Cache.BaseMaxAge)
	}
	for i, pattern := range c.Cache.Patterns {
		switch pattern.Strategy {
		case "cache-first", "network-first", "stale-while-revalidate":
		default:
			add("cache.patterns[%d]: unknown strategy %q", i, pattern.Strategy)
		}
		if strings.TrimSpace(pattern.Pattern) == "" {
			add("cache.patterns[%d]: empty pattern", i)
		}
	}

	if c.Performance.TargetCacheHitRate < 0 || c.Performance.TargetCacheHitRate > 1 {
		add("performance.target_cache_hit_rate must be in [0,1], got %g", c.Performance.TargetCacheHitRate)
	}
	if c.Performance.MinCompressionRatio <= 0 || c.Performance.MinCompressionRatio > 1 {
		add("performance.min_compression_ratio must be in (0,1], got %g", c.Performance.MinCompressionRatio)
	}

	for name, score := range c.StabilityScores {
		if score < 0 || score > 1 {
			add("stability_scores.%s must be in [0,1], got %g", name, score)
		}
	}
	if c.DefaultStability < 0 || c.DefaultStability > 1 {
		add("default_stability must be in [0,1], got %g", c.DefaultStability)
	}
	if c.DefaultDependencySize < 0 {
		add("default_dependency_size must be >= 0, got %d", c.DefaultDependencySize)
	}

	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}
