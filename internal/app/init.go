package app

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"bundlepack/internal/config"
)

// runInit writes the default config TOML so a project can start from the
// documented knobs instead of a blank file.
func runInit(args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(errOut)
	configPath := fs.String("config", "bundlepack.toml", "Where to write the config")
	force := fs.Bool("force", false, "Overwrite an existing config")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if len(fs.Args()) > 0 {
		fmt.Fprintf(errOut, "unexpected args: %s\n", strings.Join(fs.Args(), " "))
		return 2
	}

	path := strings.TrimSpace(*configPath)
	if path == "" {
		fmt.Fprintln(errOut, "missing --config")
		return 2
	}
	if _, err := os.Stat(path); err == nil && !*force {
		fmt.Fprintf(errOut, "%s already exists (use --force to overwrite)\n", path)
		return 1
	}

	if err := config.Default().Save(path); err != nil {
		fmt.Fprintf(errOut, "init error: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "wrote %s\n", path)
	return 0
}
