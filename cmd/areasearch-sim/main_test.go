// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/areasearch/lib/regionclient"
	"github.com/bureau-foundation/areasearch/lib/testutil"
	"github.com/bureau-foundation/areasearch/lib/world"
)

func TestRun_ServesGrid(t *testing.T) {
	socket := filepath.Join(testutil.SocketDir(t), "sim.sock")
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, []string{"--listen", "unix:" + socket, "--seed", "9", "--grid-size", "1", "--objects", "25", "--log-level", "warn"}, ready)
	}()
	defer func() {
		cancel()
		if err := testutil.RequireReceive(t, done, 5*time.Second, "run exit"); err != nil {
			t.Errorf("run: %v", err)
		}
	}()

	address := testutil.RequireReceive(t, ready, 5*time.Second, "grid ready")
	if address != socket {
		t.Fatalf("listening on %q, want %q", address, socket)
	}

	objects := world.NewObjectList()
	regions := world.NewRegionList()
	client, err := regionclient.Dial(ctx, regionclient.Config{Address: socket, Objects: objects, Regions: regions})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()
	go client.Run(ctx)

	testutil.Eventually(t, 5*time.Second, func() bool {
		_, ok := regions.Current()
		return ok && objects.Count() >= 25
	}, "arrival in the single region")
}

func TestRun_InvalidArguments(t *testing.T) {
	tests := []struct {
		args    []string
		wantErr string
	}{
		{[]string{"--grid-size", "0"}, "must be positive"},
		{[]string{"--drop-every", "-1"}, "must not be negative"},
		{[]string{"--log-level", "loud"}, "log.level"},
		{[]string{"stray"}, "unexpected argument"},
	}
	for _, test := range tests {
		err := run(context.Background(), test.args, nil)
		if err == nil || !strings.Contains(err.Error(), test.wantErr) {
			t.Errorf("run(%v) = %v, want containing %q", test.args, err, test.wantErr)
		}
	}
}

func TestSplitAddress(t *testing.T) {
	tests := []struct{ in, network, address string }{
		{"127.0.0.1:13000", "tcp", "127.0.0.1:13000"},
		{"unix:/tmp/g.sock", "unix", "/tmp/g.sock"},
		{"/tmp/g.sock", "unix", "/tmp/g.sock"},
	}
	for _, test := range tests {
		network, address := splitAddress(test.in)
		if network != test.network || address != test.address {
			t.Errorf("splitAddress(%q) = %s, %s", test.in, network, address)
		}
	}
}
