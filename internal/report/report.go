// Package report renders an optimization manifest as a human-readable
// summary. The JSON manifest is the machine surface; this is the one
// people read.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"bundlepack/internal/manifest"
	"bundlepack/internal/store"
)

// Write prints the full run summary: metrics, optimized bundles, shared
// chunks, loading phases, and tiered recommendations.
func Write(w io.Writer, result *manifest.OptimizationResult) {
	m := result.Metrics
	fmt.Fprintf(w, "Optimization run %s\n", result.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Input graph %s\n\n", shortHash(result.InputHash))

	fmt.Fprintf(w, "Total size      %s -> %s (%s saved, %.1f%%)\n",
		humanize.IBytes(uint64(m.OriginalTotalSize)),
		humanize.IBytes(uint64(m.OptimizedTotalSize+m.SharedTotalSize)),
		humanize.IBytes(uint64(max64(m.SizeReduction, 0))),
		m.SizeReductionRatio*100)
	fmt.Fprintf(w, "Shared chunks   %d (%s)\n", len(result.SharedChunks), humanize.IBytes(uint64(m.SharedTotalSize)))
	fmt.Fprintf(w, "Projected load  %dms over HTTP/2 (%.1fx vs HTTP/1.1)\n", m.ProjectedLoadTimeMS, m.HTTP2Improvement)
	fmt.Fprintf(w, "Cache hit rate  %.0f%% projected\n\n", m.ProjectedCacheHitRate*100)

	writeBundleTable(w, result)
	writeChunkTable(w, result)
	writePhaseTable(w, result)
	writeRecommendations(w, result.Recommendations)
}

// WriteRuns prints the stored run history.
func WriteRuns(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no stored runs")
		return
	}
	table := newTable(w)
	table.SetHeader([]string{"Run", "Created", "Bundles", "Chunks", "Original", "Saved", "Fingerprint"})
	for _, run := range runs {
		table.Append([]string{
			run.ID,
			run.CreatedAt.Format("2006-01-02 15:04"),
			strconv.Itoa(run.BundleCount),
			strconv.Itoa(run.ChunkCount),
			humanize.IBytes(uint64(run.OriginalSize)),
			humanize.IBytes(uint64(max64(run.SizeReduction, 0))),
			shortHash(run.Fingerprint),
		})
	}
	table.Render()
}

func writeBundleTable(w io.Writer, result *manifest.OptimizationResult) {
	if len(result.Bundles) == 0 {
		return
	}
	fmt.Fprintln(w, "Bundles:")
	table := newTable(w)
	table.SetHeader([]string{"Name", "Type", "Priority", "Size", "Gzip", "Cache"})
	for _, b := range result.Bundles {
		table.Append([]string{
			b.Name, b.Type, b.Priority,
			humanize.IBytes(uint64(b.Size)),
			humanize.IBytes(uint64(b.CompressedSize)),
			b.CacheStrategy,
		})
	}
	table.Render()
	fmt.Fprintln(w)
}

func writeChunkTable(w io.Writer, result *manifest.OptimizationResult) {
	if len(result.SharedChunks) == 0 {
		return
	}
	fmt.Fprintln(w, "Shared chunks:")
	table := newTable(w)
	table.SetHeader([]string{"Name", "Dependencies", "Frameworks", "Size", "Priority"})
	for _, c := range result.SharedChunks {
		table.Append([]string{
			c.Name,
			strconv.Itoa(len(c.Dependencies)),
			strconv.Itoa(len(c.Frameworks)),
			humanize.IBytes(uint64(c.TotalSize)),
			c.Priority,
		})
	}
	table.Render()
	fmt.Fprintln(w)
}

func writePhaseTable(w io.Writer, result *manifest.OptimizationResult) {
	if len(result.LoadingSequences) == 0 {
		return
	}
	fmt.Fprintln(w, "Loading phases:")
	table := newTable(w)
	table.SetHeader([]string{"Phase", "Resources", "Parallel", "Est. duration"})
	for _, phase := range result.LoadingSequences {
		table.Append([]string{
			phase.Phase,
			strconv.Itoa(len(phase.Bundles)),
			strconv.Itoa(phase.MaxParallel),
			fmt.Sprintf("%dms", phase.EstimatedDurationMS),
		})
	}
	table.Render()
	fmt.Fprintln(w)
}

func writeRecommendations(w io.Writer, recs manifest.Recommendations) {
	writeTier(w, "Critical", recs.Critical)
	writeTier(w, "Important", recs.Important)
	writeTier(w, "Optional", recs.Optional)
}

func writeTier(w io.Writer, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", label)
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
	fmt.Fprintln(w)
}

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)
	return table
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
