// Package version carries build metadata stamped via -ldflags.
package version

// Set at build time:
//
//	go build -ldflags "-X github.com/veridata/veridata/pkg/version.Version=v1.2.3"
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
