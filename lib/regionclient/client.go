// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package regionclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/bureau-foundation/areasearch/lib/areasearch"
	"github.com/bureau-foundation/areasearch/lib/wire"
	"github.com/bureau-foundation/areasearch/lib/world"
)

// ErrClosed is returned by sends after the client has closed.
var ErrClosed = errors.New("regionclient: closed")

// Config configures a Client.
type Config struct {
	// Address is host:port for TCP, or a filesystem path (or
	// unix:path) for a Unix socket.
	Address   string
	AgentName string

	Objects *world.ObjectList
	Regions *world.RegionList
	Logger  *slog.Logger

	// OnRegionChanged is called after the current region changes or
	// a region leaves the view.
	OnRegionChanged func()
	// OnProperties receives every ObjectProperties reply.
	OnProperties func(region world.RegionHandle, entries []areasearch.Properties)
	// OnNames receives resolved agent or group names.
	OnNames func(names []wire.NameEntry, isGroup bool)
}

// Client is a connected circuit. Safe for concurrent use.
type Client struct {
	conn    *wire.Conn
	agentID uuid.UUID
	objects *world.ObjectList
	regions *world.RegionList
	logger  *slog.Logger

	onRegionChanged func()
	onProperties    func(world.RegionHandle, []areasearch.Properties)
	onNames         func([]wire.NameEntry, bool)

	mu                sync.Mutex
	closed            bool
	teleportingFrom   world.RegionHandle
	teleportInFlight  bool
	teleportNotifiers []chan error
}

// Dial connects to the grid and opens the circuit.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Objects == nil || cfg.Regions == nil {
		return nil, errors.New("regionclient: Objects and Regions are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	network, address := splitAddress(cfg.Address)

	var dialer net.Dialer
	raw, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("regionclient: dialing %s: %w", cfg.Address, err)
	}

	client := &Client{
		conn:            wire.NewConn(raw),
		agentID:         uuid.New(),
		objects:         cfg.Objects,
		regions:         cfg.Regions,
		logger:          cfg.Logger.With("grid", cfg.Address),
		onRegionChanged: cfg.OnRegionChanged,
		onProperties:    cfg.OnProperties,
		onNames:         cfg.OnNames,
	}
	name := cfg.AgentName
	if name == "" {
		name = "areasearch"
	}
	if err := client.conn.Send(wire.TypeUseCircuitCode, wire.UseCircuitCode{AgentID: client.agentID, Name: name}); err != nil {
		client.conn.Close()
		return nil, fmt.Errorf("regionclient: opening circuit: %w", err)
	}
	client.logger.Info("circuit opened", "agent", client.agentID)
	return client, nil
}

func splitAddress(address string) (network, target string) {
	if path, ok := strings.CutPrefix(address, "unix:"); ok {
		return "unix", path
	}
	if strings.HasPrefix(address, "/") {
		return "unix", address
	}
	return "tcp", address
}

// AgentID returns the id the circuit was opened with.
func (c *Client) AgentID() uuid.UUID { return c.agentID }

// Run reads and applies messages until the grid closes the circuit or
// ctx is done. A clean close by either side returns nil.
func (c *Client) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	for {
		envelope, err := c.conn.Receive()
		if err != nil {
			c.finishTeleport(ErrClosed)
			if errors.Is(err, io.EOF) || ctx.Err() != nil || c.isClosed() {
				c.logger.Info("circuit closed")
				return nil
			}
			return fmt.Errorf("regionclient: reading: %w", err)
		}
		if err := c.apply(envelope); err != nil {
			c.logger.Warn("dropping malformed message", "type", envelope.Type, "error", err)
		}
	}
}

func (c *Client) apply(envelope wire.Envelope) error {
	switch envelope.Type {
	case wire.TypeRegionHandshake:
		var body wire.RegionHandshake
		if err := envelope.Decode(&body); err != nil {
			return err
		}
		c.regions.Add(world.Region{Handle: body.Region, Name: body.Name, Endpoint: body.Endpoint})
		c.logger.Debug("region connected", "region", body.Region, "name", body.Name)

	case wire.TypeAgentMovementComplete:
		var body wire.AgentMovementComplete
		if err := envelope.Decode(&body); err != nil {
			return err
		}
		if !c.regions.SetCurrent(body.Region) {
			return fmt.Errorf("arrived in unknown region %s", body.Region)
		}
		region, _ := c.regions.Current()
		c.logger.Info("agent arrived", "region", body.Region, "name", region.Name)
		c.finishTeleport(nil)
		c.notifyRegionChanged()

	case wire.TypeDisableSimulator:
		var body wire.DisableSimulator
		if err := envelope.Decode(&body); err != nil {
			return err
		}
		removed := c.objects.RemoveRegion(body.Region)
		c.regions.Remove(body.Region)
		c.logger.Debug("region disconnected", "region", body.Region, "objects", removed)
		c.notifyRegionChanged()

	case wire.TypeTeleportFailed:
		var body wire.TeleportFailed
		if err := envelope.Decode(&body); err != nil {
			return err
		}
		c.logger.Warn("teleport failed", "region", body.Region, "reason", body.Reason)
		c.finishTeleport(fmt.Errorf("regionclient: teleport to %s failed: %s", body.Region, body.Reason))

	case wire.TypeObjectUpdate:
		var body wire.ObjectUpdate
		if err := envelope.Decode(&body); err != nil {
			return err
		}
		for _, data := range body.Objects {
			c.objects.Upsert(data.Object(body.Region))
		}

	case wire.TypeKillObject:
		var body wire.KillObject
		if err := envelope.Decode(&body); err != nil {
			return err
		}
		for _, localID := range body.LocalIDs {
			c.objects.RemoveLocal(body.Region, localID)
		}

	case wire.TypeObjectProperties:
		var body wire.ObjectProperties
		if err := envelope.Decode(&body); err != nil {
			return err
		}
		if c.onProperties == nil {
			return nil
		}
		entries := make([]areasearch.Properties, len(body.Objects))
		for i, data := range body.Objects {
			entries[i] = areasearch.Properties{
				ID:          data.ID,
				OwnerID:     data.OwnerID,
				GroupID:     data.GroupID,
				Name:        data.Name,
				Description: data.Description,
				TouchName:   data.TouchName,
				SitName:     data.SitName,
			}
		}
		c.onProperties(body.Region, entries)

	case wire.TypeUUIDNameReply, wire.TypeUUIDGroupNameReply:
		var body wire.UUIDNameReply
		if err := envelope.Decode(&body); err != nil {
			return err
		}
		if c.onNames != nil {
			c.onNames(body.Names, envelope.Type == wire.TypeUUIDGroupNameReply)
		}

	default:
		c.logger.Debug("ignoring message", "type", envelope.Type)
	}
	return nil
}

func (c *Client) notifyRegionChanged() {
	if c.onRegionChanged != nil {
		c.onRegionChanged()
	}
}

func (c *Client) send(messageType wire.Type, body any) error {
	if err := c.conn.Send(messageType, body); err != nil {
		if errors.Is(err, wire.ErrClosed) {
			return ErrClosed
		}
		return fmt.Errorf("regionclient: sending %s: %w", messageType, err)
	}
	return nil
}

// SendSelect asks region for the properties of localIDs.
func (c *Client) SendSelect(endpoint string, region world.RegionHandle, localIDs []uint32) error {
	return c.send(wire.TypeObjectSelect, wire.ObjectSelect{Region: region, LocalIDs: localIDs})
}

// SendDeselect releases a selection.
func (c *Client) SendDeselect(endpoint string, region world.RegionHandle, localIDs []uint32) error {
	return c.send(wire.TypeObjectDeselect, wire.ObjectDeselect{Region: region, LocalIDs: localIDs})
}

// RequestNames asks the grid for agent or group names.
func (c *Client) RequestNames(ids []uuid.UUID, isGroup bool) error {
	if isGroup {
		return c.send(wire.TypeUUIDGroupNameRequest, wire.UUIDGroupNameRequest{IDs: ids})
	}
	return c.send(wire.TypeUUIDNameRequest, wire.UUIDNameRequest{IDs: ids})
}

// Teleport moves the agent to region and waits for the arrival. There
// is no current region while the teleport is in progress; on failure
// the previous region is restored.
func (c *Client) Teleport(ctx context.Context, region world.RegionHandle) error {
	done := make(chan error, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if !c.teleportInFlight {
		current, _ := c.regions.Current()
		c.teleportingFrom = current.Handle
		c.teleportInFlight = true
		c.regions.ClearCurrent()
	}
	c.teleportNotifiers = append(c.teleportNotifiers, done)
	c.mu.Unlock()

	c.logger.Info("teleporting", "region", region)
	if err := c.send(wire.TypeTeleportRequest, wire.TeleportRequest{Region: region}); err != nil {
		c.finishTeleport(err)
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) finishTeleport(err error) {
	c.mu.Lock()
	if !c.teleportInFlight {
		c.mu.Unlock()
		return
	}
	c.teleportInFlight = false
	notifiers := c.teleportNotifiers
	c.teleportNotifiers = nil
	restore := c.teleportingFrom
	c.mu.Unlock()

	if err != nil {
		c.regions.SetCurrent(restore)
		c.notifyRegionChanged()
	}
	for _, done := range notifiers {
		done <- err
	}
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close closes the circuit. Run returns shortly after.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.conn.Close()
}
