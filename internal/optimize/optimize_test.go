package optimize

import (
	"testing"

	"bundlepack/internal/analyze"
	"bundlepack/internal/config"
	"bundlepack/internal/extract"
	"bundlepack/internal/graph"
)

func TestSplitOversizedReactBundle(t *testing.T) {
	cfg := config.Default()
	fw := cfg.Frameworks["react"]
	fw.CoreTarget = 100 * 1024
	cfg.Frameworks["react"] = fw

	bundle := graph.RawBundle{
		Name: "react-app.js", Size: 600 * 1024, Framework: "react", Kind: graph.KindMain,
		Dependencies: []string{},
	}

	optimized := Optimize([]graph.RawBundle{bundle}, extract.Result{}, cfg)

	var core *OptimizedBundle
	utilities := 0
	for i := range optimized {
		switch optimized[i].Type {
		case TypeCore:
			core = &optimized[i]
		case TypeUtility:
			utilities++
			if optimized[i].Priority != PriorityNormal {
				t.Fatalf("utility chunk should be normal priority, got %q", optimized[i].Priority)
			}
		}
	}
	if core == nil {
		t.Fatalf("expected a core bundle")
	}
	if core.Size > 100*1024 {
		t.Fatalf("core bundle exceeds target: %d", core.Size)
	}
	if core.Priority != PriorityCritical {
		t.Fatalf("core bundle should be critical, got %q", core.Priority)
	}
	if core.PreloadStrategy != "aggressive" {
		t.Fatalf("core bundle should preload aggressively, got %q", core.PreloadStrategy)
	}
	if utilities < 1 {
		t.Fatalf("expected at least one utility chunk")
	}
}

func TestSplitConservesBytes(t *testing.T) {
	cfg := config.Default()
	bundle := graph.RawBundle{
		Name: "react-app.js", Size: 600 * 1024, Framework: "react", Kind: graph.KindMain,
	}
	optimized := Optimize([]graph.RawBundle{bundle}, extract.Result{}, cfg)
	if got := TotalSize(optimized); got != bundle.Size {
		t.Fatalf("split pieces must sum to the original size: %d != %d", got, bundle.Size)
	}
}

func TestUnknownFrameworkConvertsOneToOne(t *testing.T) {
	cfg := config.Default()
	bundle := graph.RawBundle{
		Name: "widget.js", Size: 90 * 1024, Framework: graph.FrameworkUnknown, Kind: graph.KindOther,
		Dependencies: []string{"axios"},
	}
	optimized := Optimize([]graph.RawBundle{bundle}, extract.Result{}, cfg)
	if len(optimized) != 1 {
		t.Fatalf("expected one optimized bundle, got %d", len(optimized))
	}
	got := optimized[0]
	if got.Type != TypeCore || got.Priority != PriorityNormal {
		t.Fatalf("expected 1:1 core/normal conversion, got %q/%q", got.Type, got.Priority)
	}
	if got.Size != bundle.Size {
		t.Fatalf("expected size preserved, got %d", got.Size)
	}
	if len(got.Dependencies) != 1 || got.Dependencies[0] != "axios" {
		t.Fatalf("expected private deps preserved, got %v", got.Dependencies)
	}
}

func TestExtractedDependenciesMoveToSharedRefs(t *testing.T) {
	cfg := config.Default()
	cfg.Extraction.PriorityDependencies = []string{"react", "vue"}
	bundles := []graph.RawBundle{
		{Name: "react-app", Size: 200 * 1024, Framework: "react", Kind: graph.KindMain,
			Dependencies: []string{"app-code", "react", "react-dom"}},
		{Name: "vue-app", Size: 150 * 1024, Framework: "vue", Kind: graph.KindMain,
			Dependencies: []string{"app-code", "vue"}},
	}
	records := analyze.Analyze(bundles, cfg)
	extraction := extract.Extract(records, bundles, cfg)

	// Disable splitting so each raw bundle maps to one optimized record.
	cfg.Frameworks = map[string]config.FrameworkConfig{}
	optimized := Optimize(bundles, extraction, cfg)

	for _, bundle := range optimized {
		for _, dep := range bundle.Dependencies {
			if dep == "react" || dep == "react-dom" || dep == "vue" {
				t.Fatalf("extracted dependency %q still private in %s", dep, bundle.Name)
			}
		}
	}
	var reactApp *OptimizedBundle
	for i := range optimized {
		if optimized[i].Name == "react-app" {
			reactApp = &optimized[i]
		}
	}
	if reactApp == nil {
		t.Fatalf("react-app not found")
	}
	if len(reactApp.SharedDependencies) == 0 {
		t.Fatalf("expected shared chunk references on react-app")
	}
	if len(reactApp.Dependencies) != 1 || reactApp.Dependencies[0] != "app-code" {
		t.Fatalf("expected only app-code to stay private, got %v", reactApp.Dependencies)
	}
	if reactApp.Size >= 200*1024 {
		t.Fatalf("expected size reduced by extraction, got %d", reactApp.Size)
	}
}

func TestHashIsDeterministic(t *testing.T) {
	cfg := config.Default()
	bundle := graph.RawBundle{Name: "widget.js", Size: 10 * 1024, Framework: "unknown"}
	first := Optimize([]graph.RawBundle{bundle}, extract.Result{}, cfg)
	second := Optimize([]graph.RawBundle{bundle}, extract.Result{}, cfg)
	if first[0].Hash == "" || first[0].Hash != second[0].Hash {
		t.Fatalf("expected stable non-empty hash, got %q vs %q", first[0].Hash, second[0].Hash)
	}
}
