// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package regionclient_test

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/areasearch/lib/areasearch"
	"github.com/bureau-foundation/areasearch/lib/regionclient"
	"github.com/bureau-foundation/areasearch/lib/simulator"
	"github.com/bureau-foundation/areasearch/lib/testutil"
	"github.com/bureau-foundation/areasearch/lib/wire"
	"github.com/bureau-foundation/areasearch/lib/world"
)

type propertiesReply struct {
	region  world.RegionHandle
	entries []areasearch.Properties
}

type namesReply struct {
	names   []wire.NameEntry
	isGroup bool
}

type fixture struct {
	grid       *simulator.Grid
	client     *regionclient.Client
	objects    *world.ObjectList
	regions    *world.RegionList
	changes    chan struct{}
	properties chan propertiesReply
	names      chan namesReply
}

func startGrid(t *testing.T, grid *simulator.Grid) string {
	t.Helper()
	path := filepath.Join(testutil.SocketDir(t), "grid.sock")
	listener, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- grid.Serve(ctx, listener) }()
	t.Cleanup(func() {
		cancel()
		if err := testutil.RequireReceive(t, served, 5*time.Second, "Serve exit"); err != nil {
			t.Errorf("Serve: %v", err)
		}
	})
	return path
}

func connect(t *testing.T, cfg simulator.Config) *fixture {
	t.Helper()
	f := &fixture{
		grid:       simulator.New(cfg),
		objects:    world.NewObjectList(),
		regions:    world.NewRegionList(),
		changes:    make(chan struct{}, 64),
		properties: make(chan propertiesReply, 64),
		names:      make(chan namesReply, 64),
	}
	address := startGrid(t, f.grid)

	client, err := regionclient.Dial(context.Background(), regionclient.Config{
		Address:         "unix:" + address,
		AgentName:       "tester",
		Objects:         f.objects,
		Regions:         f.regions,
		OnRegionChanged: func() { f.changes <- struct{}{} },
		OnProperties: func(region world.RegionHandle, entries []areasearch.Properties) {
			f.properties <- propertiesReply{region, entries}
		},
		OnNames: func(names []wire.NameEntry, isGroup bool) { f.names <- namesReply{names, isGroup} },
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	f.client = client

	ctx, cancel := context.WithCancel(context.Background())
	exited := make(chan error, 1)
	go func() { exited <- client.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := testutil.RequireReceive(t, exited, 5*time.Second, "Run exit"); err != nil {
			t.Errorf("Run: %v", err)
		}
	})

	testutil.RequireReceive(t, f.changes, 5*time.Second, "arrival")
	return f
}

func (f *fixture) expectedObjects() int {
	total := 0
	for _, r := range f.grid.Regions() {
		if r.Handle == f.grid.Start() || world.Adjacent(r.Handle, f.grid.Start()) {
			total += len(f.grid.Objects(r.Handle))
		}
	}
	return total
}

func TestClientBuildsWorld(t *testing.T) {
	f := connect(t, simulator.Config{Seed: 5, GridSize: 3, ObjectsPerRegion: 25})

	current, ok := f.regions.Current()
	if !ok || current.Handle != f.grid.Start() {
		t.Fatalf("current = %v, %v; want %s", current.Handle, ok, f.grid.Start())
	}
	if got := len(f.regions.Regions()); got != 9 {
		t.Fatalf("regions = %d, want 9", got)
	}
	if got, want := f.objects.Count(), f.expectedObjects(); got != want {
		t.Fatalf("objects = %d, want %d", got, want)
	}
	for _, object := range f.grid.Objects(f.grid.Start()) {
		known := f.objects.FindObject(object.ID)
		if known == nil || *known != object {
			t.Fatalf("object %s not mirrored: %+v", object.ID, known)
		}
	}
}

func TestClientPropertiesAndNames(t *testing.T) {
	f := connect(t, simulator.Config{Seed: 5, GridSize: 1, ObjectsPerRegion: 25, ReplyBatch: 10})
	objects := f.grid.Objects(f.grid.Start())
	target := objects[len(objects)-1]

	if err := f.client.SendSelect("", f.grid.Start(), []uint32{target.LocalID}); err != nil {
		t.Fatalf("SendSelect: %v", err)
	}
	if err := f.client.SendDeselect("", f.grid.Start(), []uint32{target.LocalID}); err != nil {
		t.Fatalf("SendDeselect: %v", err)
	}
	reply := testutil.RequireReceive(t, f.properties, 5*time.Second, "properties")
	want, _ := f.grid.Properties(target.ID)
	if reply.region != f.grid.Start() || len(reply.entries) != 1 {
		t.Fatalf("reply = %+v", reply)
	}
	if entry := reply.entries[0]; entry.ID != target.ID || entry.Name != want.Name || entry.OwnerID != want.OwnerID {
		t.Fatalf("entry = %+v, want %+v", entry, want)
	}

	if err := f.client.RequestNames([]uuid.UUID{want.OwnerID}, false); err != nil {
		t.Fatalf("RequestNames: %v", err)
	}
	names := testutil.RequireReceive(t, f.names, 5*time.Second, "names")
	ownerName, _ := f.grid.AgentName(want.OwnerID)
	if names.isGroup || len(names.names) != 1 || names.names[0].Name != ownerName {
		t.Fatalf("names = %+v, want %q", names, ownerName)
	}
}

func TestClientTeleport(t *testing.T) {
	f := connect(t, simulator.Config{Seed: 5, GridSize: 3, ObjectsPerRegion: 10})
	corner := f.grid.Regions()[0]

	if err := f.client.Teleport(context.Background(), corner.Handle); err != nil {
		t.Fatalf("Teleport: %v", err)
	}
	current, ok := f.regions.Current()
	if !ok || current.Handle != corner.Handle {
		t.Fatalf("current = %s, want %s", current.Handle, corner.Handle)
	}
	testutil.Eventually(t, 5*time.Second, func() bool { return len(f.regions.Regions()) == 4 }, "view shrinks to the corner")
	for _, r := range f.grid.Regions() {
		if world.Adjacent(r.Handle, corner.Handle) || r.Handle == corner.Handle {
			continue
		}
		for _, object := range f.grid.Objects(r.Handle) {
			if f.objects.FindObject(object.ID) != nil {
				t.Fatalf("object of disabled region %s still known", r.Handle)
			}
		}
	}
}

func TestClientTeleportFailureRestoresRegion(t *testing.T) {
	f := connect(t, simulator.Config{Seed: 5, GridSize: 1, ObjectsPerRegion: 5})

	err := f.client.Teleport(context.Background(), world.HandleFromGrid(7, 7))
	if err == nil {
		t.Fatal("teleport to a missing region succeeded")
	}
	current, ok := f.regions.Current()
	if !ok || current.Handle != f.grid.Start() {
		t.Fatalf("current = %v, %v after failed teleport", current.Handle, ok)
	}
}

func TestClientAppliesKills(t *testing.T) {
	f := connect(t, simulator.Config{Seed: 5, GridSize: 1, ObjectsPerRegion: 10})
	victim := f.grid.Objects(f.grid.Start())[4]
	f.grid.RemoveObject(victim.ID)
	testutil.Eventually(t, 5*time.Second, func() bool { return f.objects.FindObject(victim.ID) == nil }, "kill applied")
}

func TestSendAfterClose(t *testing.T) {
	f := connect(t, simulator.Config{Seed: 5, GridSize: 1, ObjectsPerRegion: 5})
	f.client.Close()
	if err := f.client.SendSelect("", f.grid.Start(), []uint32{1}); !errors.Is(err, regionclient.ErrClosed) {
		t.Fatalf("SendSelect after Close = %v, want ErrClosed", err)
	}
	if err := f.client.Teleport(context.Background(), f.grid.Start()); !errors.Is(err, regionclient.ErrClosed) {
		t.Fatalf("Teleport after Close = %v, want ErrClosed", err)
	}
}

func TestDialFailure(t *testing.T) {
	_, err := regionclient.Dial(context.Background(), regionclient.Config{
		Address: filepath.Join(testutil.SocketDir(t), "missing.sock"),
		Objects: world.NewObjectList(),
		Regions: world.NewRegionList(),
	})
	if err == nil {
		t.Fatal("Dial to a missing socket succeeded")
	}
}
