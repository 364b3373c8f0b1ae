package pipeline

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"bundlepack/internal/config"
	"bundlepack/internal/graph"
)

func demoBundles() []graph.RawBundle {
	return []graph.RawBundle{
		{Name: "react-app.js", Size: 600 * 1024, Framework: "react", Kind: graph.KindMain,
			Dependencies: []string{"react", "react-dom", "lodash", "moment"}},
		{Name: "vue-app.js", Size: 300 * 1024, Framework: "vue", Kind: graph.KindMain,
			Dependencies: []string{"vue", "lodash", "moment"}},
		{Name: "vendor.js", Size: 250 * 1024, Framework: graph.FrameworkUnknown, Kind: graph.KindVendor,
			Dependencies: []string{"axios"}},
	}
}

func TestRunProducesCompleteManifest(t *testing.T) {
	result, err := Run(demoBundles(), config.Default(), Options{})
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if len(result.Bundles) == 0 {
		t.Fatalf("expected optimized bundles")
	}
	if len(result.SharedChunks) == 0 {
		t.Fatalf("expected shared chunks for lodash/moment")
	}
	if len(result.LoadingSequences) == 0 {
		t.Fatalf("expected loading phases")
	}
	if result.InputHash == "" {
		t.Fatalf("expected input hash")
	}

	// Every bundle and chunk carries a cache policy.
	for _, b := range result.Bundles {
		if _, ok := result.CacheManifest[b.Name]; !ok {
			t.Fatalf("bundle %s missing from cache manifest", b.Name)
		}
	}
	for _, c := range result.SharedChunks {
		if _, ok := result.CacheManifest[c.Name]; !ok {
			t.Fatalf("chunk %s missing from cache manifest", c.Name)
		}
	}
}

func TestConservationHoldsEndToEnd(t *testing.T) {
	result, err := Run(demoBundles(), config.Default(), Options{})
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	m := result.Metrics
	if m.OptimizedTotalSize+m.SharedTotalSize != m.OriginalTotalSize-m.DuplicateCodeEliminated {
		t.Fatalf("conservation violated: %d + %d != %d - %d",
			m.OptimizedTotalSize, m.SharedTotalSize, m.OriginalTotalSize, m.DuplicateCodeEliminated)
	}
	if m.OriginalTotalSize != 1150*1024 {
		t.Fatalf("unexpected original total: %d", m.OriginalTotalSize)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	first, err := Run(demoBundles(), config.Default(), Options{Now: now})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := Run(demoBundles(), config.Default(), Options{Now: now})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	firstJSON, err := first.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	secondJSON, err := second.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(firstJSON, secondJSON) {
		t.Fatalf("two runs over unchanged input differ")
	}

	firstFP, err := first.Fingerprint()
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	secondFP, err := second.Fingerprint()
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	if firstFP != secondFP {
		t.Fatalf("fingerprints differ: %s vs %s", firstFP, secondFP)
	}
}

func TestFingerprintIgnoresTimestamp(t *testing.T) {
	first, err := Run(demoBundles(), config.Default(), Options{Now: time.Unix(100, 0).UTC()})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	second, err := Run(demoBundles(), config.Default(), Options{Now: time.Unix(999, 0).UTC()})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	fp1, _ := first.Fingerprint()
	fp2, _ := second.Fingerprint()
	if fp1 != fp2 {
		t.Fatalf("fingerprint must not depend on the timestamp")
	}
}

func TestInvalidConfigRejectedBeforeStages(t *testing.T) {
	cfg := config.Default()
	cfg.Extraction.MaxSharedChunkSize = 0
	_, err := Run(demoBundles(), cfg, Options{})
	if err == nil {
		t.Fatalf("expected config rejection")
	}
	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected *StageError, got %T", err)
	}
	if stageErr.Stage != "config" {
		t.Fatalf("expected config stage, got %q", stageErr.Stage)
	}
	var verr *config.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected wrapped validation error")
	}
}

func TestMalformedBundlesAreDefaultedNotFatal(t *testing.T) {
	bundles := []graph.RawBundle{
		{Name: "", Size: -10},
		{Name: "ok.js", Size: 50 * 1024},
	}
	result, err := Run(bundles, config.Default(), Options{})
	if err != nil {
		t.Fatalf("malformed input must not fail the run: %v", err)
	}
	if len(result.Bundles) != 2 {
		t.Fatalf("expected both bundles optimized, got %d", len(result.Bundles))
	}
}

func TestRecommendationsTiered(t *testing.T) {
	result, err := Run(demoBundles(), config.Default(), Options{})
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	total := len(result.Recommendations.Critical) +
		len(result.Recommendations.Important) +
		len(result.Recommendations.Optional)
	if total == 0 {
		t.Fatalf("expected consolidated recommendations")
	}
}
