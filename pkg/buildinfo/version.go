// Package buildinfo carries version metadata stamped at build time:
//
//	go build -ldflags "-X piprobe/pkg/buildinfo.Version=v1.0.0 \
//	    -X piprobe/pkg/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	    -X piprobe/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package buildinfo

import "fmt"

var (
	Version = "dev"     // semantic version
	Commit  = "none"    // git commit SHA
	Date    = "unknown" // build timestamp
)

// String formats the build information for human output.
func String() string {
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s", Version, Commit, Date)
}

// Template is the cobra version template.
func Template() string {
	return fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date)
}
