// Package version carries build metadata stamped by the linker.
package version

// Set via -ldflags at release build time; the defaults identify a
// local development build.
var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildDate  = "unknown"
)
