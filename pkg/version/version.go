// Package version exposes build identification for the tai binary,
// injected at link time via -ldflags -X.
package version

// Example: go build -ldflags "-X github.com/Koplal/tai-discord-bot/pkg/version.Version=v1.2.3".
//
//nolint:gochecknoglobals // ldflags injection requires package-level vars
var (
	// Version holds the release tag, or "dev" for local builds.
	Version = "dev"

	// Commit holds the short git SHA the binary was built from.
	Commit = "none"

	// Date holds the UTC build timestamp.
	Date = "unknown"
)
