package version

import "runtime"

// Stamped by the release pipeline via -ldflags; defaults cover local runs.
var (
	// Version is the release tag
	Version = "dev"
	// Commit is the git commit SHA
	Commit = "unknown"
	// BuildTime is the ISO 8601 build timestamp
	BuildTime = "unknown"
)

// Info is the payload served on /version and labeled on the build metric.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// Get returns the build information for the running binary.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}
