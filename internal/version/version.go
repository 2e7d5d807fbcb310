// Package version carries build metadata injected at link time.
package version

var (
	// Version is the semantic version of the build, "dev" when unset.
	Version = "dev"
	// BuildSHA is the git commit the binary was built from.
	BuildSHA = "unknown"
	// BuildDate is the build timestamp.
	BuildDate = "unknown"
)
