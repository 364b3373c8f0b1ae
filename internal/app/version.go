package app

import "fmt"

// Version and Commit can be overridden at build time:
// go build -ldflags "-X bundlepack/internal/app.Version=v0.2.0 -X bundlepack/internal/app.Commit=abcdef0" ./cmd/bpack
var (
	Version = "v0.1.4"
	Commit  = "dev"
)

func VersionString() string {
	return fmt.Sprintf("bundlepack %s (%s)", Version, Commit)
}
