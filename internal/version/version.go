// Package version provides build-time version information for the rpy binaries.
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the application version (e.g., git tag or "dev")
	Version = "dev"
	// Commit is the git commit hash
	Commit = "dev"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// Info describes the running build of a single binary.
type Info struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
}

// Get returns the build info for the named service.
func Get(service string) Info {
	return Info{
		Service:   service,
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}

func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s, %s)", i.Service, i.Version, i.Commit, i.BuildTime, i.GoVersion)
}
