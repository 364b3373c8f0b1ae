package app

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"bundlepack/internal/config"
)

func runValidate(args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(errOut)
	configPath := fs.String("config", "", "Optimization config TOML")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(*configPath) == "" {
		fmt.Fprintln(errOut, "missing --config")
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(errOut, "config error: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(errOut, "%d violation(s) in %s:\n", len(verr.Violations), *configPath)
			for _, violation := range verr.Violations {
				fmt.Fprintf(errOut, "  - %s\n", violation)
			}
			return 1
		}
		fmt.Fprintf(errOut, "validation error: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "%s is valid\n", *configPath)
	return 0
}
