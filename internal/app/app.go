package app

import (
	"fmt"
	"io"
	"strings"

	"bundlepack/internal/config"
	"bundlepack/internal/pathutil"
)

func Run(args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		writeUsage(out)
		return 2
	}

	parsedArgs, globals, err := splitGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(errOut, err.Error())
		writeUsage(errOut)
		return 2
	}
	if strings.TrimSpace(globals.DataDir) != "" {
		config.SetDataDirOverride(pathutil.Canonical(globals.DataDir))
	}
	args = parsedArgs
	if len(args) == 0 {
		writeUsage(out)
		return 2
	}

	if isVersionCommand(args[0]) {
		fmt.Fprintln(out, VersionString())
		return 0
	}

	cmd := strings.ToLower(args[0])
	switch cmd {
	case "optimize":
		return runOptimize(args[1:], out, errOut)
	case "validate":
		return runValidate(args[1:], out, errOut)
	case "report":
		return runReport(args[1:], out, errOut)
	case "runs":
		return runRuns(args[1:], out, errOut)
	case "init":
		return runInit(args[1:], out, errOut)
	case "help", "-h", "--help":
		writeUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n", cmd)
		writeUsage(errOut)
		return 2
	}
}

func isVersionCommand(arg string) bool {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "version", "--version", "-v":
		return true
	default:
		return false
	}
}
