package app

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"bundlepack/internal/config"
	"bundlepack/internal/report"
	"bundlepack/internal/store"
)

func runRuns(args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	fs.SetOutput(errOut)
	limit := fs.Int("limit", 20, "Maximum runs to list")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if len(fs.Args()) > 0 {
		fmt.Fprintf(errOut, "unexpected args: %s\n", strings.Join(fs.Args(), " "))
		return 2
	}

	st, err := store.Open(config.StorePath())
	if err != nil {
		fmt.Fprintf(errOut, "store error: %v\n", err)
		return 1
	}
	defer st.Close()

	runs, err := st.ListRuns(*limit)
	if err != nil {
		fmt.Fprintf(errOut, "runs error: %v\n", err)
		return 1
	}
	report.WriteRuns(out, runs)
	return 0
}
