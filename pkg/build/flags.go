// SPDX-License-Identifier: MIT
//
// Package build exposes the build metadata linked into the termviz binary:
//
//	go build -ldflags "-X termviz/pkg/build.buildName=termviz \
//	    -X termviz/pkg/build.buildVersion=0.3.0 \
//	    -X termviz/pkg/build.buildCommit=$(git rev-parse --short HEAD) \
//	    -X termviz/pkg/build.buildTime=$(date -u +%FT%TZ)"
//
// Development builds run without the flags; Initialize then reports what is
// missing and the defaults below stay in place.
package build

import "fmt"

// Info is the build metadata shown by --version and in the log header.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// String formats the info as a single log-friendly line.
func (i *Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}

// Populated by -ldflags during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = &Info{
		Name:        "termviz",
		Description: "Real-time terminal audio visualizer",
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "dev",
	}
)

// Initialize copies the ldflags values into the build info. It returns an
// error naming the first missing flag; fields for missing flags keep their
// development defaults.
func Initialize() error {
	if buildName == "" {
		return fmt.Errorf("BuildName is required")
	}
	if buildTime == "" {
		return fmt.Errorf("BuildTime is required")
	}
	if buildCommit == "" {
		return fmt.Errorf("BuildCommit is required")
	}
	if buildVersion == "" {
		return fmt.Errorf("BuildVersion is required")
	}

	buildInfo.Name = buildName
	buildInfo.Time = buildTime
	buildInfo.Commit = buildCommit
	buildInfo.Version = buildVersion

	return nil
}

// GetBuildInfo returns the current build information.
func GetBuildInfo() *Info {
	return buildInfo
}
