// Package version holds vaultd build metadata, overridden via ldflags in
// release builds.
package version

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
