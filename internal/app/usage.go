package app

import (
	"io"
	"os"
)

func writeUsage(w io.Writer) {
	useColor := shouldColorize(w)
	title := colorize(useColor, "bundlepack - build-time bundle optimization")
	usage := colorize(useColor, "Usage:")
	commands := colorize(useColor, "Commands:")

	io.WriteString(w, title+"\n\n")
	io.WriteString(w, usage+"\n")
	io.WriteString(w, "  bpack [--data-dir <path>] <command> [options]\n\n")
	io.WriteString(w, colorize(useColor, "Global options:")+"\n")
	io.WriteString(w, "  --data-dir <path>  Override run history dir (BUNDLEPACK_DATA_DIR)\n\n")
	io.WriteString(w, "Version:\n")
	io.WriteString(w, "  bpack version | bpack --version | bpack -v\n\n")
	io.WriteString(w, commands+"\n")
	io.WriteString(w, "  optimize        bpack optimize --graph <file>|--dist <dir> [--config <toml>] [--out <file>] [--format json|report] [--no-store] [--verbose]\n")
	io.WriteString(w, "  validate        bpack validate --config <toml>\n")
	io.WriteString(w, "  report          bpack report [<run-id>] [--format json]\n")
	io.WriteString(w, "  runs            bpack runs [--limit 20]\n")
	io.WriteString(w, "  init            bpack init [--config <toml>] [--force]\n")
}

func shouldColorize(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := file.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

func colorize(enabled bool, text string) string {
	if !enabled {
		return text
	}
	const purple = "\x1b[35m"
	const bold = "\x1b[1m"
	const reset = "\x1b[0m"
	return bold + purple + text + reset
}
