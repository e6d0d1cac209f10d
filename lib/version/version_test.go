// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"testing"
)

func TestInfo_LinkerValues(t *testing.T) {
	saved := []string{GitCommit, GitDirty, BuildTime}
	defer func() { GitCommit, GitDirty, BuildTime = saved[0], saved[1], saved[2] }()

	GitCommit, GitDirty, BuildTime = "abc1234", "true", "2026-01-02T03:04:05Z"
	want := Version + " (abc1234-dirty, 2026-01-02T03:04:05Z)"
	if got := Info(); got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}
}

func TestFromSettings(t *testing.T) {
	base := stamp{commit: "unknown", time: "unknown"}
	settings := []debug.BuildSetting{
		{Key: "vcs", Value: "git"},
		{Key: "vcs.revision", Value: "0123456789abcdef"},
		{Key: "vcs.modified", Value: "true"},
		{Key: "vcs.time", Value: "2026-03-04T05:06:07Z"},
	}

	got := fromSettings(base, settings)
	if got.commit != "0123456" {
		t.Errorf("commit = %q, want truncated revision", got.commit)
	}
	if !got.dirty {
		t.Error("expected dirty from vcs.modified")
	}
	if got.time != "2026-03-04T05:06:07Z" {
		t.Errorf("time = %q", got.time)
	}

	// A linker-set build time wins over the VCS commit time.
	withTime := fromSettings(stamp{commit: "unknown", time: "linked"}, settings)
	if withTime.time != "linked" {
		t.Errorf("time = %q, want linked", withTime.time)
	}
}

func TestFull(t *testing.T) {
	full := Full()
	if !strings.HasPrefix(full, Version+" (") {
		t.Errorf("Full() should start with Info(), got %q", full)
	}
	if !strings.Contains(full, runtime.GOOS+"/"+runtime.GOARCH) {
		t.Errorf("Full() missing platform: %q", full)
	}
	if Short() != Version {
		t.Errorf("Short() = %q, want %q", Short(), Version)
	}
}
