package app

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"bundlepack/internal/config"
	"bundlepack/internal/manifest"
	"bundlepack/internal/report"
	"bundlepack/internal/store"
)

// runReport renders a stored manifest. With no run id it uses the most
// recent run.
func runReport(args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(errOut)
	format := fs.String("format", "report", "Output format: report|json")
	positional, flagArgs, err := splitFlagArgs(args, map[string]flagSpec{
		"format": {RequiresValue: true},
	})
	if err != nil {
		fmt.Fprintln(errOut, err.Error())
		return 2
	}
	if err := fs.Parse(flagArgs); err != nil {
		return 2
	}
	if len(positional) > 1 {
		fmt.Fprintf(errOut, "unexpected args: %s\n", strings.Join(positional[1:], " "))
		return 2
	}
	formatValue := strings.ToLower(strings.TrimSpace(*format))
	if formatValue != "report" && formatValue != "json" {
		fmt.Fprintf(errOut, "unsupported format: %s\n", *format)
		return 2
	}

	st, err := store.Open(config.StorePath())
	if err != nil {
		fmt.Fprintf(errOut, "store error: %v\n", err)
		return 1
	}
	defer st.Close()

	var result *manifest.OptimizationResult
	if len(positional) == 1 {
		result, err = st.GetManifest(strings.TrimSpace(positional[0]))
	} else {
		result, err = latestManifest(st)
	}
	if err != nil {
		fmt.Fprintf(errOut, "report error: %v\n", err)
		return 1
	}

	if formatValue == "json" {
		encoded, err := result.Encode()
		if err != nil {
			fmt.Fprintf(errOut, "encode error: %v\n", err)
			return 1
		}
		fmt.Fprintln(out, string(encoded))
		return 0
	}
	report.Write(out, result)
	return 0
}

func latestManifest(st *store.Store) (*manifest.OptimizationResult, error) {
	runs, err := st.ListRuns(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("no stored runs; run `bpack optimize` first")
	}
	return st.GetManifest(runs[0].ID)
}
