// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package simulator_test

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/areasearch/lib/simulator"
	"github.com/bureau-foundation/areasearch/lib/testutil"
	"github.com/bureau-foundation/areasearch/lib/wire"
	"github.com/bureau-foundation/areasearch/lib/world"
)

func TestGenerationIsDeterministic(t *testing.T) {
	config := simulator.Config{Seed: 42, GridSize: 2, ObjectsPerRegion: 30}
	first := simulator.New(config)
	second := simulator.New(config)
	other := simulator.New(simulator.Config{Seed: 43, GridSize: 2, ObjectsPerRegion: 30})

	regions := first.Regions()
	if len(regions) != 4 {
		t.Fatalf("regions = %d, want 4", len(regions))
	}
	for _, r := range regions {
		a, b := first.Objects(r.Handle), second.Objects(r.Handle)
		if len(a) != len(b) {
			t.Fatalf("region %s: %d vs %d objects", r.Handle, len(a), len(b))
		}
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("region %s object %d differs between identical seeds", r.Handle, i)
			}
		}
		if a[0].Kind != world.KindTerrain {
			t.Fatalf("region %s starts with %s, want terrain", r.Handle, a[0].Kind)
		}
		for _, object := range a {
			if object.ID.Version() != 8 {
				t.Fatalf("object id %s is not version 8", object.ID)
			}
		}
		if other.Objects(r.Handle)[1].ID == a[1].ID {
			t.Fatalf("region %s: different seeds produced the same id", r.Handle)
		}
	}
}

func TestGeneratedMix(t *testing.T) {
	grid := simulator.New(simulator.Config{Seed: 7, GridSize: 1, ObjectsPerRegion: 400})
	objects := grid.Objects(grid.Start())
	var avatars, attachments, children, physical, searchable int
	for i := range objects {
		object := &objects[i]
		switch {
		case object.IsAvatar():
			avatars++
		case object.IsAttachment():
			attachments++
		case !object.IsRoot():
			children++
		}
		if object.IsPhysical() {
			physical++
		}
		if object.IsSelectable() && object.IsRootEdit() && !object.IsAvatar() && !object.IsTerrain() {
			searchable++
		}
	}
	if avatars == 0 || attachments != avatars || children == 0 || physical == 0 {
		t.Fatalf("avatars=%d attachments=%d children=%d physical=%d", avatars, attachments, children, physical)
	}
	if searchable < len(objects)/2 {
		t.Fatalf("only %d of %d objects searchable", searchable, len(objects))
	}
	for _, object := range objects {
		if object.IsAttachment() {
			properties, ok := grid.Properties(object.ID)
			if !ok {
				t.Fatal("no properties for attachment")
			}
			if _, ok := grid.AgentName(properties.OwnerID); !ok {
				t.Fatal("attachment owner is not a known agent")
			}
		}
	}
}

type client struct {
	conn     *wire.Conn
	messages chan wire.Envelope
}

func serve(t *testing.T, grid *simulator.Grid) *client {
	t.Helper()
	path := filepath.Join(testutil.SocketDir(t), "sim.sock")
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

	raw, err := net.Dial("unix", path)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	c := &client{conn: wire.NewConn(raw), messages: make(chan wire.Envelope, 1024)}
	t.Cleanup(func() { c.conn.Close() })
	go func() {
		defer close(c.messages)
		for {
			envelope, err := c.conn.Receive()
			if err != nil {
				return
			}
			c.messages <- envelope
		}
	}()
	return c
}

func (c *client) send(t *testing.T, messageType wire.Type, body any) {
	t.Helper()
	if err := c.conn.Send(messageType, body); err != nil {
		t.Fatalf("Send %s: %v", messageType, err)
	}
}

func (c *client) next(t *testing.T) wire.Envelope {
	t.Helper()
	return testutil.RequireReceive(t, c.messages, 5*time.Second, "next message")
}

// until collects messages up to and including the first of type want.
func (c *client) until(t *testing.T, want wire.Type) []wire.Envelope {
	t.Helper()
	var collected []wire.Envelope
	for {
		envelope := c.next(t)
		collected = append(collected, envelope)
		if envelope.Type == want {
			return collected
		}
	}
}

func count(envelopes []wire.Envelope, messageType wire.Type) int {
	n := 0
	for _, envelope := range envelopes {
		if envelope.Type == messageType {
			n++
		}
	}
	return n
}

func login(t *testing.T, c *client) []wire.Envelope {
	t.Helper()
	c.send(t, wire.TypeUseCircuitCode, wire.UseCircuitCode{AgentID: uuid.New(), Name: "tester"})
	return c.until(t, wire.TypeAgentMovementComplete)
}

func TestSessionLogin(t *testing.T) {
	grid := simulator.New(simulator.Config{Seed: 1, GridSize: 3, ObjectsPerRegion: 20})
	c := serve(t, grid)
	messages := login(t, c)

	if got := count(messages, wire.TypeRegionHandshake); got != 9 {
		t.Fatalf("handshakes = %d, want 9 (centre sees every region)", got)
	}
	var arrival wire.AgentMovementComplete
	if err := messages[len(messages)-1].Decode(&arrival); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if arrival.Region != grid.Start() {
		t.Fatalf("arrived in %s, want %s", arrival.Region, grid.Start())
	}
	objects := 0
	for _, envelope := range messages {
		if envelope.Type != wire.TypeObjectUpdate {
			continue
		}
		var update wire.ObjectUpdate
		if err := envelope.Decode(&update); err != nil {
			t.Fatalf("Decode: %v", err)
		}
		objects += len(update.Objects)
	}
	want := 0
	for _, r := range grid.Regions() {
		want += len(grid.Objects(r.Handle))
	}
	if objects != want {
		t.Fatalf("announced %d objects, want %d", objects, want)
	}
}

func TestSelectRepliesInBatches(t *testing.T) {
	grid := simulator.New(simulator.Config{Seed: 1, GridSize: 1, ObjectsPerRegion: 30, ReplyBatch: 5})
	c := serve(t, grid)
	login(t, c)

	localIDs := make([]uint32, 12)
	for i := range localIDs {
		localIDs[i] = uint32(i + 1)
	}
	localIDs = append(localIDs, 9999)
	c.send(t, wire.TypeObjectSelect, wire.ObjectSelect{Region: grid.Start(), LocalIDs: localIDs})
	c.send(t, wire.TypeObjectDeselect, wire.ObjectDeselect{Region: grid.Start(), LocalIDs: localIDs})

	var sizes []int
	for range 3 {
		envelope := c.next(t)
		if envelope.Type != wire.TypeObjectProperties {
			t.Fatalf("got %s, want ObjectProperties", envelope.Type)
		}
		var reply wire.ObjectProperties
		if err := envelope.Decode(&reply); err != nil {
			t.Fatalf("Decode: %v", err)
		}
		sizes = append(sizes, len(reply.Objects))
	}
	if sizes[0] != 5 || sizes[1] != 5 || sizes[2] != 2 {
		t.Fatalf("batch sizes = %v, want [5 5 2]", sizes)
	}
}

func TestDropEvery(t *testing.T) {
	grid := simulator.New(simulator.Config{Seed: 1, GridSize: 1, ObjectsPerRegion: 10, DropEvery: 2})
	c := serve(t, grid)
	login(t, c)

	selectOne := wire.ObjectSelect{Region: grid.Start(), LocalIDs: []uint32{2}}
	c.send(t, wire.TypeObjectSelect, selectOne)
	if envelope := c.next(t); envelope.Type != wire.TypeObjectProperties {
		t.Fatalf("first select answered with %s", envelope.Type)
	}
	c.send(t, wire.TypeObjectSelect, selectOne)
	c.send(t, wire.TypeUUIDGroupNameRequest, wire.UUIDGroupNameRequest{IDs: []uuid.UUID{uuid.New()}})
	if envelope := c.next(t); envelope.Type != wire.TypeUUIDGroupNameReply {
		t.Fatalf("second select was answered (%s)", envelope.Type)
	}
}

func TestNameRequests(t *testing.T) {
	grid := simulator.New(simulator.Config{Seed: 3, GridSize: 1, ObjectsPerRegion: 10})
	c := serve(t, grid)
	login(t, c)

	objects := grid.Objects(grid.Start())
	properties, _ := grid.Properties(objects[len(objects)-1].ID)
	stranger := uuid.New()
	c.send(t, wire.TypeUUIDNameRequest, wire.UUIDNameRequest{IDs: []uuid.UUID{properties.OwnerID, stranger}})

	envelope := c.next(t)
	var reply wire.UUIDNameReply
	if err := envelope.Decode(&reply); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(reply.Names) != 1 || reply.Names[0].ID != properties.OwnerID {
		t.Fatalf("reply = %+v, want only the known owner", reply.Names)
	}
	if want, _ := grid.AgentName(properties.OwnerID); reply.Names[0].Name != want {
		t.Fatalf("name = %q, want %q", reply.Names[0].Name, want)
	}
}

func TestTeleport(t *testing.T) {
	grid := simulator.New(simulator.Config{Seed: 1, GridSize: 3, ObjectsPerRegion: 5})
	c := serve(t, grid)
	login(t, c)

	corner := grid.Regions()[0].Handle
	c.send(t, wire.TypeTeleportRequest, wire.TeleportRequest{Region: corner})
	messages := c.until(t, wire.TypeAgentMovementComplete)
	if got := count(messages, wire.TypeDisableSimulator); got != 5 {
		t.Fatalf("disabled %d regions, want 5", got)
	}
	if got := count(messages, wire.TypeRegionHandshake); got != 0 {
		t.Fatalf("handshakes = %d, corner view is a subset of the centre's", got)
	}

	c.send(t, wire.TypeTeleportRequest, wire.TeleportRequest{Region: world.HandleFromGrid(1, 1)})
	if envelope := c.next(t); envelope.Type != wire.TypeTeleportFailed {
		t.Fatalf("teleport to a missing region answered with %s", envelope.Type)
	}
}

func TestAddAndRemoveBroadcast(t *testing.T) {
	grid := simulator.New(simulator.Config{Seed: 1, GridSize: 1, ObjectsPerRegion: 5})
	c := serve(t, grid)
	login(t, c)

	id := uuid.New()
	localID, err := grid.AddObject(grid.Start(), world.Object{ID: id, Kind: world.KindPrim, Flags: world.FlagSelectable},
		wire.PropertiesData{Name: "Fresh Crate"})
	if err != nil {
		t.Fatalf("AddObject: %v", err)
	}
	envelope := c.next(t)
	var update wire.ObjectUpdate
	if err := envelope.Decode(&update); err != nil || envelope.Type != wire.TypeObjectUpdate {
		t.Fatalf("got %s (%v), want ObjectUpdate", envelope.Type, err)
	}
	if len(update.Objects) != 1 || update.Objects[0].ID != id || update.Objects[0].LocalID != localID {
		t.Fatalf("update = %+v", update.Objects)
	}

	if !grid.RemoveObject(id) {
		t.Fatal("RemoveObject did not find the object")
	}
	envelope = c.next(t)
	var kill wire.KillObject
	if err := envelope.Decode(&kill); err != nil || envelope.Type != wire.TypeKillObject {
		t.Fatalf("got %s (%v), want KillObject", envelope.Type, err)
	}
	if len(kill.LocalIDs) != 1 || kill.LocalIDs[0] != localID {
		t.Fatalf("kill = %+v", kill)
	}
}
