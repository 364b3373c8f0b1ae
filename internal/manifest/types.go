// Package manifest defines the serialized output of an optimization run:
// the plain data structure handed to the service-worker generator, the
// server push configuration, and the report printer.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"bundlepack/internal/cachepolicy"
	"bundlepack/internal/extract"
	"bundlepack/internal/graph"
	"bundlepack/internal/http2"
	"bundlepack/internal/optimize"
)

// Version is the manifest schema version.
const Version = "1"

// CacheManifestEntry is the per-resource slice of the cache policy that
// a service worker needs.
type CacheManifestEntry struct {
	Strategy             string   `json:"strategy"`
	MaxAge               int64    `json:"max_age"`
	UpdateStrategy       string   `json:"update_strategy"`
	InvalidationTriggers []string `json:"invalidation_triggers"`
}

// Metrics are the scalar before/after figures for the whole run.
type Metrics struct {
	OriginalTotalSize       int64   `json:"original_total_size"`
	OptimizedTotalSize      int64   `json:"optimized_total_size"`
	SharedTotalSize         int64   `json:"shared_total_size"`
	SizeReduction           int64   `json:"size_reduction"`
	SizeReductionRatio      float64 `json:"size_reduction_ratio"`
	DuplicateCodeEliminated int64   `json:"duplicate_code_eliminated"`
	ProjectedLoadTimeMS     int64   `json:"projected_load_time_ms"`
	ProjectedCacheHitRate   float64 `json:"projected_cache_hit_rate"`
	HTTP2Improvement        float64 `json:"http2_improvement"`
}

// Recommendations is the three-tier consolidated advice list.
type Recommendations struct {
	Critical  []string `json:"critical"`
	Important []string `json:"important"`
	Optional  []string `json:"optional"`
}

// OptimizationResult is the final aggregate of one pipeline run.
type OptimizationResult struct {
	Version     string    `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`

	// InputHash identifies the bundle graph this run consumed; two runs
	// with the same input hash must produce the same fingerprint.
	InputHash string `json:"input_hash"`

	Bundles      []optimize.OptimizedBundle `json:"bundles"`
	SharedChunks []extract.SharedChunk      `json:"shared_chunks"`

	CacheManifest    map[string]CacheManifestEntry `json:"cache_manifest"`
	CacheGlobalRules cachepolicy.GlobalRules       `json:"cache_global_rules"`

	HTTP2Manifest    []http2.PushManifestEntry `json:"http2_manifest"`
	LoadingSequences []http2.LoadingPhase      `json:"loading_sequences"`
	ResourceHints    http2.ResourceHints       `json:"resource_hints"`

	Metrics         Metrics         `json:"metrics"`
	Recommendations Recommendations `json:"recommendations"`
}

// HashBundles fingerprints a normalized bundle graph. The graph loader
// sorts bundles and their dependency lists, so the hash is stable across
// runs over the same input.
func HashBundles(bundles []graph.RawBundle) string {
	hasher := sha256.New()
	for _, b := range bundles {
		fmt.Fprintf(hasher, "%s|%d|%s|%s|%v\n", b.Name, b.Size, b.Framework, b.Kind, b.Dependencies)
	}
	return hex.EncodeToString(hasher.Sum(nil))
}

// Fingerprint hashes everything in the result except the generation
// timestamp; it is the identity used for idempotence checks.
func (r OptimizationResult) Fingerprint() (string, error) {
	clone := r
	clone.GeneratedAt = time.Time{}
	encoded, err := json.Marshal(clone)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}

// Encode renders the manifest as indented JSON.
func (r OptimizationResult) Encode() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
