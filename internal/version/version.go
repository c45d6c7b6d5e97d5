// Package version exposes build metadata injected at link time:
//
//	go build -ldflags "-X github.com/HerbHall/fillwatch/internal/version.Version=v0.2.0"
package version

import (
	"fmt"
	"runtime"
)

// Set via -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Short returns the version string alone.
func Short() string {
	return Version
}

// Info returns a one-line human-readable build description.
func Info() string {
	return fmt.Sprintf("fillwatch %s (commit %s, built %s, %s %s/%s)",
		Version, GitCommit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Map returns build metadata as key/value pairs for JSON responses.
func Map() map[string]string {
	return map[string]string{
		"version":    Version,
		"git_commit": GitCommit,
		"build_date": BuildDate,
		"go_version": runtime.Version(),
	}
}
