// Package buildinfo holds build-time version metadata, overridable via
// -ldflags at release time.
package buildinfo

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
