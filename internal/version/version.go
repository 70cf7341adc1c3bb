// Package version carries build metadata injected via -ldflags.
package version

// Set at release time, e.g.
// go build -ldflags "-X .../internal/version.Version=v0.3.0".
var (
	// Version is the release tag, or "dev" for local builds.
	Version = "dev"
	// GitSHA is the commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is when the binary was built.
	BuildTime = "unknown"
)
