// Package version holds build metadata injected with -ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Build-time variables set by ldflags, e.g.
// -X github.com/MeKo-Tech/scanprep/internal/version.Version=v1.2.0
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string `json:"version" yaml:"version"`
	GitCommit string `json:"git_commit" yaml:"git_commit"`
	BuildDate string `json:"build_date" yaml:"build_date"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Platform  string `json:"platform" yaml:"platform"`
	// Accelerated reports whether the OpenCV paths were compiled in.
	Accelerated bool `json:"accelerated" yaml:"accelerated"`
}

// Info returns version information
func Info() (string, string, string) {
	return Version, GitCommit, BuildDate
}

// Get returns the build information. accelerated is supplied by the caller
// because only the transform package knows which build tags were set.
func Get(accelerated bool) BuildInfo {
	return BuildInfo{
		Version:     Version,
		GitCommit:   GitCommit,
		BuildDate:   BuildDate,
		GoVersion:   runtime.Version(),
		Platform:    runtime.GOOS + "/" + runtime.GOARCH,
		Accelerated: accelerated,
	}
}

// String formats b on one line.
func (b BuildInfo) String() string {
	return fmt.Sprintf("scanprep %s (commit: %s, built: %s, %s %s)", b.Version, b.GitCommit, b.BuildDate, b.GoVersion, b.Platform)
}
