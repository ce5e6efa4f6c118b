// Package buildinfo carries values stamped into the binary at link time:
//
//	go build -ldflags "-X github.com/YoshitsuguKoike/deequery/internal/buildinfo.Version=v0.3.0 \
//	  -X github.com/YoshitsuguKoike/deequery/internal/buildinfo.Commit=$(git rev-parse --short HEAD)"
package buildinfo

import "runtime/debug"

var (
	// Version is the release tag, "dev" for local builds
	Version = "dev"

	// Commit is the source revision
	Commit = ""
)

// GetVersion returns the current version, with "dev" as default for development builds
func GetVersion() string {
	if Version == "" {
		return "dev"
	}
	return Version
}

// GetCommit returns the stamped revision, falling back to the VCS
// information recorded by the go tool
func GetCommit() string {
	if Commit != "" {
		return Commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				return s.Value[:7]
			}
		}
	}
	return "unknown"
}
