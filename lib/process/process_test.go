// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/bureau-foundation/areasearch/lib/testutil"
)

func TestFatal(t *testing.T) {
	code := -1
	exit = func(c int) { code = c }
	defer func() { exit = os.Exit }()

	var buf bytes.Buffer
	fatal(&buf, errors.New("region unreachable"))

	if got := buf.String(); got != "error: region unreachable\n" {
		t.Errorf("output = %q", got)
	}
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)
	logger.Info("hidden")
	logger.Warn("shown", "region", "home")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "region=home") {
		t.Errorf("warn line missing: %q", out)
	}
}

func TestSignalContext(t *testing.T) {
	ctx, stop := SignalContext(context.Background())
	defer stop()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("kill: %v", err)
	}
	testutil.RequireClosed(t, ctx.Done(), 5*time.Second, "context not cancelled by SIGTERM")
}
