package extract

import (
	"sort"
	"testing"

	"bundlepack/internal/analyze"
	"bundlepack/internal/config"
	"bundlepack/internal/graph"
)

func scenarioBundles() []graph.RawBundle {
	return []graph.RawBundle{
		{Name: "react-app", Size: 200 * 1024, Framework: "react", Kind: graph.KindMain,
			Dependencies: []string{"app-code", "react", "react-dom"}},
		{Name: "vue-app", Size: 150 * 1024, Framework: "vue", Kind: graph.KindMain,
			Dependencies: []string{"app-code", "vue"}},
	}
}

func allChunkDeps(chunks []SharedChunk) []string {
	var deps []string
	for _, chunk := range chunks {
		deps = append(deps, chunk.Dependencies...)
	}
	sort.Strings(deps)
	return deps
}

func TestNothingQualifiesWithoutPriorityList(t *testing.T) {
	// app-code (unknown, 10KB estimate) falls under the 20KB extraction
	// floor; react/react-dom/vue are single-framework, so nothing qualifies.
	cfg := config.Default()
	bundles := scenarioBundles()
	records := analyze.Analyze(bundles, cfg)

	result := Extract(records, bundles, cfg)
	if len(result.Chunks) != 0 {
		t.Fatalf("expected zero shared chunks, got %d: %v", len(result.Chunks), result.Chunks)
	}
	if len(result.Modifications) != 0 {
		t.Fatalf("expected no bundle modifications, got %v", result.Modifications)
	}
}

func TestPriorityListForcesExtraction(t *testing.T) {
	cfg := config.Default()
	cfg.Extraction.PriorityDependencies = []string{"react", "vue"}
	bundles := scenarioBundles()
	records := analyze.Analyze(bundles, cfg)

	result := Extract(records, bundles, cfg)
	if len(result.Chunks) == 0 {
		t.Fatalf("expected at least one shared chunk")
	}

	deps := allChunkDeps(result.Chunks)
	want := []string{"react", "react-dom", "vue"}
	if len(deps) != len(want) {
		t.Fatalf("expected combined deps %v, got %v", want, deps)
	}
	for i := range want {
		if deps[i] != want[i] {
			t.Fatalf("expected combined deps %v, got %v", want, deps)
		}
	}

	reactMod, ok := result.Modifications["react-app"]
	if !ok {
		t.Fatalf("expected a modification for react-app")
	}
	for _, dep := range reactMod.RemovedDependencies {
		if dep == "app-code" {
			t.Fatalf("app-code must not be extracted")
		}
	}
	if reactMod.SizeReduction == 0 {
		t.Fatalf("expected a size reduction for react-app")
	}
}

func TestSharedDependencyAcrossFrameworksQualifies(t *testing.T) {
	cfg := config.Default()
	bundles := []graph.RawBundle{
		{Name: "react-app", Size: 300 * 1024, Framework: "react", Dependencies: []string{"lodash", "moment"}},
		{Name: "vue-app", Size: 250 * 1024, Framework: "vue", Dependencies: []string{"lodash", "moment"}},
	}
	records := analyze.Analyze(bundles, cfg)

	result := Extract(records, bundles, cfg)
	deps := allChunkDeps(result.Chunks)
	if len(deps) != 2 || deps[0] != "lodash" || deps[1] != "moment" {
		t.Fatalf("expected lodash+moment extracted, got %v", deps)
	}
	if result.Metrics.DuplicateCodeEliminated != cfg.SizeFor("lodash")+cfg.SizeFor("moment") {
		t.Fatalf("expected duplicate elimination of one copy each, got %d",
			result.Metrics.DuplicateCodeEliminated)
	}
}

func TestBinPackingBound(t *testing.T) {
	cfg := config.Default()
	cfg.Extraction.MaxSharedChunkSize = 100 * 1024

	bundles := []graph.RawBundle{
		{Name: "react-app", Framework: "react", Size: 500 * 1024,
			Dependencies: []string{"lodash", "moment", "rxjs", "date-fns", "axios"}},
		{Name: "vue-app", Framework: "vue", Size: 400 * 1024,
			Dependencies: []string{"lodash", "moment", "rxjs", "date-fns", "axios"}},
	}
	records := analyze.Analyze(bundles, cfg)

	result := Extract(records, bundles, cfg)
	if len(result.Chunks) < 2 {
		t.Fatalf("expected packing to overflow into multiple chunks, got %d", len(result.Chunks))
	}
	for _, chunk := range result.Chunks {
		if chunk.TotalSize > cfg.Extraction.MaxSharedChunkSize {
			t.Fatalf("chunk %s exceeds bound: %d > %d",
				chunk.Name, chunk.TotalSize, cfg.Extraction.MaxSharedChunkSize)
		}
		if chunk.Hash == "" {
			t.Fatalf("chunk %s has no content hash", chunk.Name)
		}
	}
}

func TestNoDependencyInTwoChunks(t *testing.T) {
	cfg := config.Default()
	cfg.Extraction.MaxSharedChunkSize = 80 * 1024
	bundles := []graph.RawBundle{
		{Name: "react-app", Framework: "react", Size: 500 * 1024,
			Dependencies: []string{"lodash", "moment", "rxjs", "date-fns", "axios", "zod"}},
		{Name: "vue-app", Framework: "vue", Size: 400 * 1024,
			Dependencies: []string{"lodash", "moment", "rxjs", "date-fns", "axios", "zod"}},
	}
	records := analyze.Analyze(bundles, cfg)

	result := Extract(records, bundles, cfg)
	seen := map[string]bool{}
	for _, chunk := range result.Chunks {
		for _, dep := range chunk.Dependencies {
			if seen[dep] {
				t.Fatalf("dependency %q appears in two chunks", dep)
			}
			seen[dep] = true
		}
	}
}

func TestOversizeDependencyLeftInPlace(t *testing.T) {
	cfg := config.Default()
	cfg.Extraction.MaxSharedChunkSize = 20 * 1024
	bundles := []graph.RawBundle{
		{Name: "react-app", Framework: "react", Size: 300 * 1024, Dependencies: []string{"lodash"}},
		{Name: "vue-app", Framework: "vue", Size: 250 * 1024, Dependencies: []string{"lodash"}},
	}
	records := analyze.Analyze(bundles, cfg)

	result := Extract(records, bundles, cfg)
	if len(result.Chunks) != 0 {
		t.Fatalf("a dependency above the chunk bound cannot be packed, got %v", result.Chunks)
	}
}

func TestFrameworkExcludePatternBlocksExtraction(t *testing.T) {
	cfg := config.Default()
	fw := cfg.Frameworks["react"]
	fw.Exclude = []string{"moment*"}
	cfg.Frameworks["react"] = fw

	bundles := []graph.RawBundle{
		{Name: "react-app", Framework: "react", Size: 300 * 1024, Dependencies: []string{"lodash", "moment"}},
		{Name: "vue-app", Framework: "vue", Size: 250 * 1024, Dependencies: []string{"lodash", "moment"}},
	}
	records := analyze.Analyze(bundles, cfg)

	result := Extract(records, bundles, cfg)
	for _, dep := range allChunkDeps(result.Chunks) {
		if dep == "moment" {
			t.Fatalf("excluded dependency was extracted")
		}
	}
}

func TestHighestBenefitPackedFirst(t *testing.T) {
	cfg := config.Default()
	cfg.Extraction.MaxSharedChunkSize = 80 * 1024
	bundles := []graph.RawBundle{
		{Name: "react-app", Framework: "react", Size: 500 * 1024, Dependencies: []string{"lodash", "moment"}},
		{Name: "vue-app", Framework: "vue", Size: 400 * 1024, Dependencies: []string{"lodash", "moment"}},
	}
	records := analyze.Analyze(bundles, cfg)

	result := Extract(records, bundles, cfg)
	if len(result.Chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(result.Chunks))
	}
	// lodash (72KB benefit) outranks moment (66KB benefit).
	if result.Chunks[0].Dependencies[0] != "lodash" {
		t.Fatalf("expected lodash in the first chunk, got %v", result.Chunks[0].Dependencies)
	}
}
