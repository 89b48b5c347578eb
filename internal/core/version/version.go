// Package version provides build information for the binary
package version

import "fmt"

// BuildInfo holds version information about the build
type BuildInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Set via -ldflags "-X 'srcfingerprint/internal/core/version.Version=v0.1.0'
// -X 'srcfingerprint/internal/core/version.commit=abcd' -X 'srcfingerprint/internal/core/version.date=2026-10-01'"
var (
	Version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Info returns the build information
func Info() BuildInfo {
	return BuildInfo{
		Name:    "src-fingerprint",
		Version: Version,
		Commit:  commit,
		Date:    date,
	}
}

// String renders the one line shown by --version
func (b BuildInfo) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", b.Name, b.Version, b.Commit, b.Date)
}
