package cachepolicy

import (
	"strings"
	"testing"

	"bundlepack/internal/config"
	"bundlepack/internal/extract"
	"bundlepack/internal/graph"
	"bundlepack/internal/optimize"
)

func appBundle(name string, size int64, deps ...string) optimize.OptimizedBundle {
	return optimize.OptimizedBundle{
		Name:           name,
		Framework:      "react",
		Type:           optimize.TypeCore,
		Kind:           graph.KindMain,
		Size:           size,
		CompressedSize: size / 3,
		Dependencies:   deps,
		Priority:       optimize.PriorityNormal,
	}
}

func findAssignment(t *testing.T, result Result, name string) Assignment {
	t.Helper()
	for _, a := range result.Strategies {
		if a.Name == name {
			return a
		}
	}
	t.Fatalf("no assignment for %q", name)
	return Assignment{}
}

func TestHighUpdateFrequencyGetsNetworkFirst(t *testing.T) {
	// An unsplit application entry churns with every release.
	cfg := config.Default()
	result := Optimize([]optimize.OptimizedBundle{appBundle("react-app", 100*1024)}, nil, cfg)

	a := findAssignment(t, result, "react-app")
	if a.UpdateFrequency != FreqHigh {
		t.Fatalf("expected high frequency for app entry, got %q", a.UpdateFrequency)
	}
	if a.Strategy != NetworkFirst {
		t.Fatalf("expected network-first, got %q", a.Strategy)
	}
	if a.MaxAge > cfg.Cache.BaseMaxAge/4 {
		t.Fatalf("expected max-age <= base/4, got %d", a.MaxAge)
	}
	if a.UpdateStrategy != "immediate" {
		t.Fatalf("high-frequency entry should update immediately, got %q", a.UpdateStrategy)
	}
}

func TestStableSharedChunkGetsLongCacheFirst(t *testing.T) {
	cfg := config.Default()
	chunk := extract.SharedChunk{
		Name: "shared-1", TotalSize: 120 * 1024, CompressedSize: 40 * 1024,
		Priority: "high", AvgStability: 0.92,
	}
	result := Optimize(nil, []extract.SharedChunk{chunk}, cfg)

	a := findAssignment(t, result, "shared-1")
	if a.Strategy != CacheFirst {
		t.Fatalf("expected cache-first, got %q", a.Strategy)
	}
	if a.MaxAge != cfg.Cache.BaseMaxAge*7 {
		t.Fatalf("expected base*7 for stable low-churn entry, got %d", a.MaxAge)
	}
	if a.UpdateStrategy != "background" {
		t.Fatalf("shared usage should update in the background, got %q", a.UpdateStrategy)
	}
}

func TestMaxAgeMonotoneInStability(t *testing.T) {
	cfg := config.Default()
	stable := extract.SharedChunk{Name: "shared-stable", TotalSize: 100 * 1024, CompressedSize: 30 * 1024, AvgStability: 0.9}
	shaky := extract.SharedChunk{Name: "shared-shaky", TotalSize: 100 * 1024, CompressedSize: 30 * 1024, AvgStability: 0.6}
	result := Optimize(nil, []extract.SharedChunk{stable, shaky}, cfg)

	high := findAssignment(t, result, "shared-stable")
	low := findAssignment(t, result, "shared-shaky")
	if high.MaxAge < low.MaxAge {
		t.Fatalf("max-age must be monotone in stability: %d < %d", high.MaxAge, low.MaxAge)
	}
}

func TestMaxAgeNeverExceedsCeiling(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.MaxAgeCeiling = cfg.Cache.BaseMaxAge * 2
	chunk := extract.SharedChunk{Name: "shared-1", TotalSize: 100 * 1024, AvgStability: 0.95}
	result := Optimize(nil, []extract.SharedChunk{chunk}, cfg)

	a := findAssignment(t, result, "shared-1")
	if a.MaxAge > cfg.Cache.MaxAgeCeiling {
		t.Fatalf("max-age %d exceeds ceiling %d", a.MaxAge, cfg.Cache.MaxAgeCeiling)
	}
}

func TestPatternOverrideForcesStrategy(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Patterns = []config.CachePattern{{Pattern: "react-*", Strategy: StaleWhileRevalidate}}
	result := Optimize([]optimize.OptimizedBundle{appBundle("react-app", 100*1024)}, nil, cfg)

	a := findAssignment(t, result, "react-app")
	if a.Strategy != StaleWhileRevalidate {
		t.Fatalf("expected pattern override, got %q", a.Strategy)
	}
}

func TestEvictionPriorityPenalizesLargeBundles(t *testing.T) {
	cfg := config.Default()
	small := appBundle("react-small", 50*1024)
	large := appBundle("react-large", cfg.Cache.LargeBundleThreshold+1)
	result := Optimize([]optimize.OptimizedBundle{small, large}, nil, cfg)

	if findAssignment(t, result, "react-large").EvictionPriority >= findAssignment(t, result, "react-small").EvictionPriority {
		t.Fatalf("large bundle should have lower eviction priority")
	}
}

func TestGlobalRulesFloorAndPolicy(t *testing.T) {
	cfg := config.Default()
	result := Optimize([]optimize.OptimizedBundle{appBundle("react-app", 100*1024)}, nil, cfg)

	if result.GlobalRules.MaxCacheStorage != minCacheStorage {
		t.Fatalf("expected the 50MB floor, got %d", result.GlobalRules.MaxCacheStorage)
	}
	if result.GlobalRules.EvictionPolicy != "priority-based" {
		t.Fatalf("expected priority-based eviction, got %q", result.GlobalRules.EvictionPolicy)
	}

	big := appBundle("react-big", 40*1024*1024)
	result = Optimize([]optimize.OptimizedBundle{big}, nil, cfg)
	if result.GlobalRules.MaxCacheStorage != 80*1024*1024 {
		t.Fatalf("expected 2x total size above the floor, got %d", result.GlobalRules.MaxCacheStorage)
	}
}

func TestProjectionsWeightedBySizeShare(t *testing.T) {
	cfg := config.Default()
	// One cache-first chunk (hit 0.9) and one equal-size network-first
	// bundle (hit 0.3): the weighted hit rate lands midway.
	chunk := extract.SharedChunk{Name: "shared-1", TotalSize: 100 * 1024, CompressedSize: 30 * 1024, AvgStability: 0.9}
	app := appBundle("react-app", 100*1024)
	result := Optimize([]optimize.OptimizedBundle{app}, []extract.SharedChunk{chunk}, cfg)

	if result.Projections.HitRate < 0.59 || result.Projections.HitRate > 0.61 {
		t.Fatalf("expected weighted hit rate ~0.6, got %g", result.Projections.HitRate)
	}
	if result.Projections.BandwidthSavingsBytes <= 0 {
		t.Fatalf("expected bandwidth savings")
	}
}

func TestRecommendsWhenBelowTarget(t *testing.T) {
	cfg := config.Default()
	result := Optimize([]optimize.OptimizedBundle{appBundle("react-app", 100*1024)}, nil, cfg)

	found := false
	for _, rec := range result.Recommendations {
		if strings.Contains(rec, "below") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a below-target recommendation, got %v", result.Recommendations)
	}
}

func TestInvalidationTriggersIncludeContentHash(t *testing.T) {
	result := Optimize([]optimize.OptimizedBundle{appBundle("react-app", 100*1024)}, nil, config.Default())
	a := findAssignment(t, result, "react-app")
	found := false
	for _, trigger := range a.InvalidationTriggers {
		if trigger == "content-hash-change" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected content-hash-change trigger, got %v", a.InvalidationTriggers)
	}
}
