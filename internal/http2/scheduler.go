// Package http2 assigns priority tiers, parallel-loading phases, and
// server-push candidacy to optimized bundles and shared chunks.
package http2

import (
	"fmt"
	"sort"
	"strings"

	"bundlepack/internal/config"
	"bundlepack/internal/extract"
	"bundlepack/internal/graph"
	"bundlepack/internal/optimize"
	"bundlepack/internal/sizeutil"
)

// LoadingPhase is an ordered group of resources sharing a priority tier.
type LoadingPhase struct {
	Phase               string   `json:"phase"`
	Bundles             []string `json:"bundles"`
	MaxParallel         int      `json:"max_parallel"`
	EstimatedDurationMS int64    `json:"estimated_duration_ms"`
}

// PushManifestEntry maps a route pattern to the resources worth pushing
// before the client asks.
type PushManifestEntry struct {
	Route     string   `json:"route"`
	Resources []string `json:"resources"`
	Priority  string   `json:"priority"`
	Condition string   `json:"condition"`
}

// ResourceHints are the preload/prefetch link hints for the document head.
type ResourceHints struct {
	Preload  []string `json:"preload"`
	Prefetch []string `json:"prefetch"`
}

// BundleNote is a per-bundle sizing observation for the report.
type BundleNote struct {
	Bundle     string `json:"bundle"`
	Suggestion string `json:"suggestion"`
}

// Projection compares a phased HTTP/2 load against a 6-connection HTTP/1.1
// baseline.
type Projection struct {
	TotalRequests   int     `json:"total_requests"`
	HTTP1EstimateMS int64   `json:"http1_estimate_ms"`
	HTTP2EstimateMS int64   `json:"http2_estimate_ms"`
	Improvement     float64 `json:"improvement"`
}

type Result struct {
	LoadingSequences    []LoadingPhase      `json:"loading_sequences"`
	ServerPushManifest  []PushManifestEntry `json:"server_push_manifest"`
	BundleOptimizations []BundleNote        `json:"bundle_optimizations"`
	Projection          Projection          `json:"performance_projection"`
	ResourceHints       ResourceHints       `json:"resource_hints"`
	Recommendations     []string            `json:"recommendations"`
}

// phaseOrder is the total order of tiers: a phase never loads before a
// higher-priority one.
var phaseOrder = []string{
	optimize.PriorityCritical,
	optimize.PriorityHigh,
	optimize.PriorityNormal,
	optimize.PriorityLow,
}

// Parallelism caps per tier. Over-parallelizing the critical tier starves
// bandwidth from the resources that gate first paint, so the caps tighten
// as priority rises; the low tier is bounded only by stream capacity.
var parallelCaps = map[string]int{
	optimize.PriorityCritical: 4,
	optimize.PriorityHigh:     6,
	optimize.PriorityNormal:   8,
}

type entry struct {
	name       string
	size       int64
	compressed int64
	kind       string
	typ        string
	framework  []string
	depCount   int
	tier       string
}

// Schedule computes the full HTTP/2 delivery plan for a set of optimized
// bundles and shared chunks.
func Schedule(bundles []optimize.OptimizedBundle, chunks []extract.SharedChunk, cfg config.Config) Result {
	entries := collectEntries(bundles, chunks)

	phases := buildPhases(entries, cfg)
	push := buildPushManifest(entries, cfg)
	notes := buildNotes(entries, cfg)
	hints := buildHints(entries, cfg)
	projection := project(entries, phases)

	return Result{
		LoadingSequences:    phases,
		ServerPushManifest:  push,
		BundleOptimizations: notes,
		Projection:          projection,
		ResourceHints:       hints,
		Recommendations:     recommend(push, notes, projection),
	}
}

func collectEntries(bundles []optimize.OptimizedBundle, chunks []extract.SharedChunk) []entry {
	entries := make([]entry, 0, len(bundles)+len(chunks))
	for _, b := range bundles {
		e := entry{
			name:       b.Name,
			size:       b.Size,
			compressed: b.CompressedSize,
			kind:       b.Kind,
			typ:        b.Type,
			framework:  []string{b.Framework},
			depCount:   len(b.Dependencies),
		}
		e.tier = assignTier(e, "")
		entries = append(entries, e)
	}
	for _, c := range chunks {
		e := entry{
			name:       c.Name,
			size:       c.TotalSize,
			compressed: c.CompressedSize,
			kind:       graph.KindVendor,
			typ:        optimize.TypeShared,
			framework:  c.Frameworks,
			depCount:   len(c.Dependencies),
		}
		e.tier = assignTier(e, c.Priority)
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })
	return entries
}

// assignTier implements the scheduler's own priority table: main bundles
// and anything named critical load first, vendor/core next, chunks in the
// normal tier, the rest last. Shared chunks keep the tier the extractor
// derived from their members.
func assignTier(e entry, chunkPriority string) string {
	if strings.Contains(strings.ToLower(e.name), "critical") {
		return optimize.PriorityCritical
	}
	if e.typ == optimize.TypeShared {
		switch chunkPriority {
		case optimize.PriorityCritical, optimize.PriorityHigh, optimize.PriorityNormal, optimize.PriorityLow:
			return chunkPriority
		}
		return optimize.PriorityHigh
	}
	switch {
	case e.typ == optimize.TypeAdapter:
		return optimize.PriorityHigh
	case e.typ == optimize.TypeUtility:
		return optimize.PriorityNormal
	case e.kind == graph.KindMain:
		return optimize.PriorityCritical
	case e.kind == graph.KindVendor, e.typ == optimize.TypeCore:
		return optimize.PriorityHigh
	case e.kind == graph.KindChunk:
		return optimize.PriorityNormal
	default:
		return optimize.PriorityLow
	}
}

func buildPhases(entries []entry, cfg config.Config) []LoadingPhase {
	grouped := make(map[string][]entry)
	for _, e := range entries {
		grouped[e.tier] = append(grouped[e.tier], e)
	}

	var phases []LoadingPhase
	for _, tier := range phaseOrder {
		members := grouped[tier]
		if len(members) == 0 {
			continue
		}
		maxParallel, ok := parallelCaps[tier]
		if !ok {
			maxParallel = cfg.HTTP2.MaxConcurrentStreams
		}
		if maxParallel > len(members) {
			maxParallel = len(members)
		}

		names := make([]string, 0, len(members))
		var loadSum int64
		for _, e := range members {
			names = append(names, e.name)
			loadSum += sizeutil.EstimateLoadTimeMS(e.compressed)
		}
		avgLoad := loadSum / int64(len(members))
		waves := sizeutil.CeilDiv(len(members), maxParallel)

		phases = append(phases, LoadingPhase{
			Phase:               tier,
			Bundles:             names,
			MaxParallel:         maxParallel,
			EstimatedDurationMS: int64(waves) * avgLoad,
		})
	}
	return phases
}

func buildPushManifest(entries []entry, cfg config.Config) []PushManifestEntry {
	push := cfg.HTTP2.Push
	if !push.Enabled {
		return nil
	}

	var candidates []entry
	for _, e := range entries {
		if e.tier != optimize.PriorityCritical && e.tier != optimize.PriorityHigh {
			continue
		}
		if e.size > push.SizeThreshold {
			continue
		}
		candidates = append(candidates, e)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].tier != candidates[j].tier {
			return candidates[i].tier == optimize.PriorityCritical
		}
		if candidates[i].size != candidates[j].size {
			return candidates[i].size < candidates[j].size
		}
		return candidates[i].name < candidates[j].name
	})
	if len(candidates) == 0 {
		return nil
	}

	manifest := []PushManifestEntry{buildPushEntry("/", candidates, push.MaxResources)}

	byFramework := make(map[string][]entry)
	for _, e := range candidates {
		for _, fw := range e.framework {
			if fw == "" || fw == graph.FrameworkUnknown {
				continue
			}
			byFramework[fw] = append(byFramework[fw], e)
		}
	}
	frameworks := make([]string, 0, len(byFramework))
	for fw := range byFramework {
		frameworks = append(frameworks, fw)
	}
	sort.Strings(frameworks)
	for _, fw := range frameworks {
		manifest = append(manifest, buildPushEntry("/"+fw+"/", byFramework[fw], push.MaxResources))
	}
	return manifest
}

func buildPushEntry(route string, candidates []entry, maxResources int) PushManifestEntry {
	if maxResources > len(candidates) {
		maxResources = len(candidates)
	}
	resources := make([]string, 0, maxResources)
	priority := optimize.PriorityHigh
	for _, e := range candidates[:maxResources] {
		resources = append(resources, e.name)
		if e.tier == optimize.PriorityCritical {
			priority = optimize.PriorityCritical
		}
	}
	return PushManifestEntry{
		Route:     route,
		Resources: resources,
		Priority:  priority,
		Condition: "first-visit",
	}
}

func buildNotes(entries []entry, cfg config.Config) []BundleNote {
	var notes []BundleNote
	for _, e := range entries {
		switch {
		case e.size > cfg.HTTP2.MaxChunkSize:
			notes = append(notes, BundleNote{
				Bundle:     e.name,
				Suggestion: fmt.Sprintf("exceeds max chunk size (%d > %d); split further", e.size, cfg.HTTP2.MaxChunkSize),
			})
		case e.size < cfg.HTTP2.MinChunkSize && e.typ != optimize.TypeShared:
			notes = append(notes, BundleNote{
				Bundle:     e.name,
				Suggestion: fmt.Sprintf("below min chunk size (%d < %d); merge with a sibling", e.size, cfg.HTTP2.MinChunkSize),
			})
		}
	}
	return notes
}

func buildHints(entries []entry, cfg config.Config) ResourceHints {
	var critical, high []entry
	for _, e := range entries {
		switch e.tier {
		case optimize.PriorityCritical:
			critical = append(critical, e)
		case optimize.PriorityHigh:
			high = append(high, e)
		}
	}

	sort.Slice(critical, func(i, j int) bool {
		if critical[i].size != critical[j].size {
			return critical[i].size < critical[j].size
		}
		return critical[i].name < critical[j].name
	})
	preload := make([]string, 0, 5)
	for _, e := range critical {
		if len(preload) == 5 {
			break
		}
		preload = append(preload, e.name)
	}

	prefetch := make([]string, 0, 3)
	for _, e := range high {
		if len(prefetch) == 3 {
			break
		}
		if parallelScore(e, cfg) > 0.7 {
			prefetch = append(prefetch, e.name)
		}
	}
	return ResourceHints{Preload: preload, Prefetch: prefetch}
}

// parallelScore rewards bundles that multiplex well: few dependencies and
// at or under the optimal chunk size. Oversize bundles hold streams open
// and score down proportionally.
func parallelScore(e entry, cfg config.Config) float64 {
	depFactor := 1.0 / (1.0 + 0.1*float64(e.depCount))
	sizeFactor := 1.0
	if e.size > cfg.HTTP2.OptimalChunkSize && cfg.HTTP2.OptimalChunkSize > 0 {
		sizeFactor = float64(cfg.HTTP2.OptimalChunkSize) / float64(e.size)
	}
	return depFactor * sizeFactor
}

func project(entries []entry, phases []LoadingPhase) Projection {
	if len(entries) == 0 {
		return Projection{}
	}
	var loadSum int64
	for _, e := range entries {
		loadSum += sizeutil.EstimateLoadTimeMS(e.compressed)
	}
	avgLoad := loadSum / int64(len(entries))

	// HTTP/1.1 baseline: 6 concurrent connections, sequential waves.
	http1 := int64(sizeutil.CeilDiv(len(entries), 6)) * avgLoad

	var http2 int64
	for _, phase := range phases {
		http2 += phase.EstimatedDurationMS
	}

	improvement := 1.0
	if http2 > 0 {
		improvement = float64(http1) / float64(http2)
	}
	return Projection{
		TotalRequests:   len(entries),
		HTTP1EstimateMS: http1,
		HTTP2EstimateMS: http2,
		Improvement:     improvement,
	}
}

func recommend(push []PushManifestEntry, notes []BundleNote, projection Projection) []string {
	var recs []string
	if len(push) > 0 {
		recs = append(recs, fmt.Sprintf("server push configured for %d route(s); verify the client cache condition before enabling in production", len(push)))
	}
	oversize := 0
	for _, note := range notes {
		if strings.Contains(note.Suggestion, "split") {
			oversize++
		}
	}
	if oversize > 0 {
		recs = append(recs, fmt.Sprintf("%d bundle(s) exceed the max chunk size and limit multiplexing gains", oversize))
	}
	if projection.Improvement > 1.0 {
		recs = append(recs, fmt.Sprintf("phased HTTP/2 loading projects a %.1fx improvement over HTTP/1.1", projection.Improvement))
	}
	return recs
}
