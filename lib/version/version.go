// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These variables are set via -ldflags at build time.
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// GitDirty indicates whether there were uncommitted changes.
	GitDirty = "false"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the semantic version. This is set manually for releases.
	Version = "0.1.0-dev"
)

// stamp is the build identity after falling back to the toolchain's
// VCS settings.
type stamp struct {
	commit string
	dirty  bool
	time   string
}

func current() stamp {
	s := stamp{commit: GitCommit, dirty: GitDirty == "true", time: BuildTime}
	if s.commit != "unknown" {
		return s
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return s
	}
	return fromSettings(s, info.Settings)
}

func fromSettings(s stamp, settings []debug.BuildSetting) stamp {
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			s.commit = setting.Value
			if len(s.commit) > 7 {
				s.commit = s.commit[:7]
			}
		case "vcs.modified":
			s.dirty = setting.Value == "true"
		case "vcs.time":
			if s.time == "unknown" {
				s.time = setting.Value
			}
		}
	}
	return s
}

func (s stamp) String() string {
	dirty := ""
	if s.dirty {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, s.commit, dirty, s.time)
}

// Info returns a formatted version string suitable for --version output.
func Info() string {
	return current().String()
}

// Full returns detailed version information including Go version.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Print writes "name info" to stdout for --version flags.
func Print(name string) {
	fmt.Printf("%s %s\n", name, Info())
}

// Short returns just the version number.
func Short() string {
	return Version
}
