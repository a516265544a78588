// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// Set via -ldflags at build time.
var (
	GitCommit = "unknown"
	GitDirty  = "false"
	BuildTime = "unknown"
	Version   = "0.1.0-dev"
)

// Build is a snapshot of the version variables, resolved against the
// embedded build info when the linker left them at their defaults.
type Build struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Dirty     bool   `json:"dirty"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

var (
	readBuildInfo = debug.ReadBuildInfo
	resolveOnce   sync.Once
	resolved      Build
)

// Current returns the running binary's build description.
func Current() Build {
	resolveOnce.Do(func() { resolved = resolve() })
	return resolved
}

func resolve() Build {
	build := Build{
		Version:   Version,
		Commit:    GitCommit,
		Dirty:     GitDirty == "true",
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if build.Commit != "unknown" {
		return build
	}
	info, ok := readBuildInfo()
	if !ok {
		return build
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			build.Commit = shortRevision(setting.Value)
		case "vcs.modified":
			build.Dirty = setting.Value == "true"
		case "vcs.time":
			if build.BuildTime == "unknown" {
				build.BuildTime = setting.Value
			}
		}
	}
	return build
}

func shortRevision(revision string) string {
	if len(revision) > 7 {
		return revision[:7]
	}
	return revision
}

// String formats the build as "0.1.0-dev (abc1234-dirty, 2026-...)".
func (b Build) String() string {
	dirty := ""
	if b.Dirty {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", b.Version, b.Commit, dirty, b.BuildTime)
}

// Info returns the one-line version string for --version output.
func Info() string {
	return Current().String()
}

// Full adds the Go toolchain and platform to [Info].
func Full() string {
	build := Current()
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s", build, build.GoVersion, build.Platform)
}
