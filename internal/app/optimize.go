package app

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"bundlepack/internal/config"
	"bundlepack/internal/graph"
	"bundlepack/internal/manifest"
	"bundlepack/internal/pathutil"
	"bundlepack/internal/pipeline"
	"bundlepack/internal/report"
	"bundlepack/internal/store"
)

func runOptimize(args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("optimize", flag.ContinueOnError)
	fs.SetOutput(errOut)
	graphPath := fs.String("graph", "", "Bundle graph JSON from the bundler")
	distDir := fs.String("dist", "", "Scan a built dist directory instead of a graph file")
	configPath := fs.String("config", "", "Optimization config TOML")
	outPath := fs.String("out", "", "Write the manifest to a file instead of stdout")
	format := fs.String("format", "json", "Output format: json|report")
	exclude := fs.String("exclude", "", "Comma-separated gitignore-style patterns skipped during --dist scans")
	noStore := fs.Bool("no-store", false, "Skip recording the run in history")
	verbose := fs.Bool("verbose", false, "Log per-stage progress to stderr")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if len(fs.Args()) > 0 {
		fmt.Fprintf(errOut, "unexpected args: %s\n", strings.Join(fs.Args(), " "))
		return 2
	}

	formatValue := strings.ToLower(strings.TrimSpace(*format))
	if formatValue != "json" && formatValue != "report" {
		fmt.Fprintf(errOut, "unsupported format: %s\n", *format)
		return 2
	}
	if (*graphPath == "") == (*distDir == "") {
		fmt.Fprintln(errOut, "exactly one of --graph or --dist is required")
		return 2
	}

	cfg := config.Default()
	if strings.TrimSpace(*configPath) != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(errOut, "config error: %v\n", err)
			return 1
		}
		cfg = loaded
	}

	var bundles []graph.RawBundle
	var err error
	if *graphPath != "" {
		bundles, err = graph.LoadFile(pathutil.Canonical(*graphPath))
	} else {
		bundles, err = graph.ScanDir(pathutil.Canonical(*distDir), splitPatterns(*exclude))
	}
	if err != nil {
		fmt.Fprintf(errOut, "bundle graph error: %v\n", err)
		return 1
	}

	opts := pipeline.Options{}
	if *verbose {
		logger := zerolog.New(zerolog.ConsoleWriter{Out: errOut}).With().Timestamp().Logger()
		opts.Logger = &logger
	}

	result, err := pipeline.Run(bundles, cfg, opts)
	if err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			for _, violation := range verr.Violations {
				fmt.Fprintf(errOut, "config: %s\n", violation)
			}
			return 1
		}
		fmt.Fprintf(errOut, "optimize error: %v\n", err)
		return 1
	}

	if !*noStore {
		if err := recordRun(result, errOut); err != nil {
			fmt.Fprintf(errOut, "warning: run not recorded: %v\n", err)
		}
	}

	if formatValue == "report" {
		report.Write(out, result)
		return 0
	}
	encoded, err := result.Encode()
	if err != nil {
		fmt.Fprintf(errOut, "encode error: %v\n", err)
		return 1
	}
	if strings.TrimSpace(*outPath) != "" {
		if err := os.WriteFile(*outPath, append(encoded, '\n'), 0o644); err != nil {
			fmt.Fprintf(errOut, "write error: %v\n", err)
			return 1
		}
		fmt.Fprintf(out, "manifest written to %s\n", *outPath)
		return 0
	}
	fmt.Fprintln(out, string(encoded))
	return 0
}

// recordRun archives the manifest and warns when a previous run over the
// same input graph produced a different result.
func recordRun(result *manifest.OptimizationResult, errOut io.Writer) error {
	st, err := store.Open(config.StorePath())
	if err != nil {
		return err
	}
	defer st.Close()

	prior, found, err := st.LatestForInput(result.InputHash)
	if err != nil {
		return err
	}
	saved, err := st.SaveRun(result)
	if err != nil {
		return err
	}
	if found && prior.Fingerprint != saved.Fingerprint {
		fmt.Fprintf(errOut, "warning: input %s previously produced fingerprint %s, now %s\n",
			shortHash(result.InputHash), shortHash(prior.Fingerprint), shortHash(saved.Fingerprint))
	}
	return nil
}

func splitPatterns(csv string) []string {
	var patterns []string
	for _, part := range strings.Split(csv, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			patterns = append(patterns, trimmed)
		}
	}
	return patterns
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
