// Package version holds build-time version information.
package version

var (
	// GitRelease is the release tag, set via ldflags at build time.
	GitRelease = "dev"

	// GitCommit is the commit hash, set via ldflags at build time.
	GitCommit = "unknown"
)
