// Package version holds build metadata set through -ldflags.
package version

// Set at build time:
//
//	go build -ldflags "-X github.com/sydlexius/artistlink/internal/version.Version=v1.2.3"
var (
	Version = "dev"
	Commit  = "unknown"
)
