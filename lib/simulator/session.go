// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package simulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/bureau-foundation/areasearch/lib/wire"
	"github.com/bureau-foundation/areasearch/lib/world"
)

// Serve accepts sessions on listener until ctx is done. Regions are
// advertised with the listener's address as their endpoint.
func (g *Grid) Serve(ctx context.Context, listener net.Listener) error {
	g.mu.Lock()
	g.endpoint = listener.Addr().String()
	g.mu.Unlock()

	var waitGroup sync.WaitGroup
	defer waitGroup.Wait()

	stop := context.AfterFunc(ctx, func() { listener.Close() })
	defer stop()

	g.logger.Info("simulator listening", "address", listener.Addr().String(), "regions", len(g.regions))
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("simulator: accept: %w", err)
		}
		s := &session{grid: g, conn: wire.NewConn(conn), view: make(map[world.RegionHandle]bool)}
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			closeOnCancel := context.AfterFunc(ctx, func() { s.conn.Close() })
			defer closeOnCancel()
			s.run()
		}()
	}
}

type session struct {
	grid *Grid
	conn *wire.Conn

	mu      sync.Mutex
	view    map[world.RegionHandle]bool
	current world.RegionHandle
}

func (s *session) sees(handle world.RegionHandle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view[handle]
}

func (s *session) send(messageType wire.Type, body any) {
	if err := s.conn.Send(messageType, body); err != nil && !errors.Is(err, wire.ErrClosed) {
		s.grid.logger.Debug("send to session failed", "type", messageType, "error", err)
	}
}

func (s *session) run() {
	logger := s.grid.logger.With("peer", s.conn.RemoteAddr().String())
	defer func() {
		s.grid.mu.Lock()
		delete(s.grid.sessions, s)
		s.grid.mu.Unlock()
		s.conn.Close()
		logger.Debug("session closed")
	}()

	for {
		envelope, err := s.conn.Receive()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Debug("session read failed", "error", err)
			}
			return
		}
		if err := s.handle(envelope); err != nil {
			logger.Warn("bad message from client", "type", envelope.Type, "error", err)
		}
	}
}

func (s *session) handle(envelope wire.Envelope) error {
	switch envelope.Type {
	case wire.TypeUseCircuitCode:
		var body wire.UseCircuitCode
		if err := envelope.Decode(&body); err != nil {
			return err
		}
		s.grid.logger.Info("agent connected", "agent", body.Name)
		s.grid.mu.Lock()
		s.grid.sessions[s] = struct{}{}
		s.grid.mu.Unlock()
		s.moveTo(s.grid.start)

	case wire.TypeObjectSelect:
		var body wire.ObjectSelect
		if err := envelope.Decode(&body); err != nil {
			return err
		}
		if s.grid.shouldDrop() {
			s.grid.logger.Debug("dropping select", "region", body.Region, "objects", len(body.LocalIDs))
			return nil
		}
		found := s.grid.lookupProperties(body.Region, body.LocalIDs)
		for start := 0; start < len(found); start += s.grid.replyBatch {
			end := min(start+s.grid.replyBatch, len(found))
			s.send(wire.TypeObjectProperties, wire.ObjectProperties{Region: body.Region, Objects: found[start:end]})
		}

	case wire.TypeObjectDeselect:

	case wire.TypeUUIDNameRequest, wire.TypeUUIDGroupNameRequest:
		var body wire.UUIDNameRequest
		if err := envelope.Decode(&body); err != nil {
			return err
		}
		if envelope.Type == wire.TypeUUIDGroupNameRequest {
			s.send(wire.TypeUUIDGroupNameReply, wire.UUIDGroupNameReply{Names: s.grid.lookupNames(body.IDs, true)})
		} else {
			s.send(wire.TypeUUIDNameReply, wire.UUIDNameReply{Names: s.grid.lookupNames(body.IDs, false)})
		}

	case wire.TypeTeleportRequest:
		var body wire.TeleportRequest
		if err := envelope.Decode(&body); err != nil {
			return err
		}
		s.grid.mu.Lock()
		_, exists := s.grid.regions[body.Region]
		s.grid.mu.Unlock()
		if !exists {
			s.send(wire.TypeTeleportFailed, wire.TeleportFailed{Region: body.Region, Reason: "no such region"})
			return nil
		}
		s.moveTo(body.Region)

	default:
		return fmt.Errorf("unexpected message type %q", envelope.Type)
	}
	return nil
}

// moveTo places the agent in handle: regions leaving the view are
// disabled, regions entering it are handshaken and populated, and the
// move is confirmed with AgentMovementComplete.
func (s *session) moveTo(handle world.RegionHandle) {
	s.grid.mu.Lock()
	next := s.grid.viewLocked(handle)
	type arrival struct {
		handshake wire.RegionHandshake
		updates   []wire.ObjectUpdate
	}
	var arrivals []arrival
	s.mu.Lock()
	var departures []world.RegionHandle
	for old := range s.view {
		if !next[old] {
			departures = append(departures, old)
		}
	}
	for added := range next {
		if s.view[added] {
			continue
		}
		r := s.grid.regions[added]
		entry := arrival{handshake: wire.RegionHandshake{Region: added, Name: r.info.Name, Endpoint: s.grid.endpoint}}
		entities := r.sorted()
		for start := 0; start < len(entities); start += updateBatch {
			update := wire.ObjectUpdate{Region: added}
			for _, e := range entities[start:min(start+updateBatch, len(entities))] {
				update.Objects = append(update.Objects, wire.ObjectDataFrom(e.object))
			}
			entry.updates = append(entry.updates, update)
		}
		arrivals = append(arrivals, entry)
	}
	s.view = next
	s.current = handle
	s.mu.Unlock()
	s.grid.mu.Unlock()

	for _, gone := range departures {
		s.send(wire.TypeDisableSimulator, wire.DisableSimulator{Region: gone})
	}
	for _, entry := range arrivals {
		s.send(wire.TypeRegionHandshake, entry.handshake)
		for _, update := range entry.updates {
			s.send(wire.TypeObjectUpdate, update)
		}
	}
	s.send(wire.TypeAgentMovementComplete, wire.AgentMovementComplete{Region: handle})
}
