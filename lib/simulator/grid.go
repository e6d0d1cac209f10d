// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package simulator

import (
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/bureau-foundation/areasearch/lib/wire"
	"github.com/bureau-foundation/areasearch/lib/world"
)

const (
	DefaultGridSize         = 3
	DefaultObjectsPerRegion = 200
	DefaultReplyBatch       = 50
	// updateBatch bounds the objects per ObjectUpdate message.
	updateBatch = 100
)

// Config describes the generated grid.
type Config struct {
	Seed             uint64
	GridSize         int
	ObjectsPerRegion int
	// ReplyBatch is the most entries in one ObjectProperties reply.
	ReplyBatch int
	// DropEvery, when positive, leaves every DropEvery-th ObjectSelect
	// unanswered.
	DropEvery int
	Logger    *slog.Logger
}

type region struct {
	info      world.Region
	entities  map[uint32]*entity
	nextLocal uint32
	lastLocal uint32
}

func newRegion(info world.Region) *region {
	return &region{info: info, entities: make(map[uint32]*entity), nextLocal: 1}
}

// add assigns the next local id and stores e.
func (r *region) add(e entity) uint32 {
	e.object.LocalID = r.nextLocal
	e.object.Region = r.info.Handle
	r.entities[e.object.LocalID] = &e
	r.lastLocal = e.object.LocalID
	r.nextLocal++
	return e.object.LocalID
}

func (r *region) last() *entity {
	return r.entities[r.lastLocal]
}

// sorted returns the region's entities in local id order.
func (r *region) sorted() []*entity {
	result := make([]*entity, 0, len(r.entities))
	for _, e := range r.entities {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].object.LocalID < result[j].object.LocalID })
	return result
}

// Grid is a simulated set of regions and the sessions connected to it.
// Safe for concurrent use.
type Grid struct {
	logger     *slog.Logger
	replyBatch int

	mu        sync.Mutex
	regions   map[world.RegionHandle]*region
	start     world.RegionHandle
	agents    map[uuid.UUID]string
	groups    map[uuid.UUID]string
	endpoint  string
	dropEvery int
	selects   int
	sessions  map[*session]struct{}
}

// New generates a grid.
func New(cfg Config) *Grid {
	if cfg.GridSize <= 0 {
		cfg.GridSize = DefaultGridSize
	}
	if cfg.ObjectsPerRegion <= 0 {
		cfg.ObjectsPerRegion = DefaultObjectsPerRegion
	}
	if cfg.ReplyBatch <= 0 {
		cfg.ReplyBatch = DefaultReplyBatch
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	generated := generate(cfg.Seed, cfg.GridSize, cfg.ObjectsPerRegion)
	grid := &Grid{
		logger:     cfg.Logger,
		replyBatch: cfg.ReplyBatch,
		regions:    make(map[world.RegionHandle]*region),
		agents:     generated.agents,
		groups:     generated.groups,
		dropEvery:  cfg.DropEvery,
		sessions:   make(map[*session]struct{}),
	}
	for _, r := range generated.regions {
		grid.regions[r.info.Handle] = r
	}
	grid.start = generated.regions[len(generated.regions)/2].info.Handle
	return grid
}

// Regions returns the grid's regions ordered by handle.
func (g *Grid) Regions() []world.Region {
	g.mu.Lock()
	defer g.mu.Unlock()
	result := make([]world.Region, 0, len(g.regions))
	for _, r := range g.regions {
		info := r.info
		info.Endpoint = g.endpoint
		result = append(result, info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Handle < result[j].Handle })
	return result
}

// Start returns the region new sessions arrive in.
func (g *Grid) Start() world.RegionHandle {
	return g.start
}

// Objects returns a region's objects in local id order.
func (g *Grid) Objects(handle world.RegionHandle) []world.Object {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.regions[handle]
	if !ok {
		return nil
	}
	var result []world.Object
	for _, e := range r.sorted() {
		result = append(result, e.object)
	}
	return result
}

// Properties returns the properties the grid would report for id.
func (g *Grid) Properties(id uuid.UUID) (wire.PropertiesData, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, r := range g.regions {
		for _, e := range r.entities {
			if e.object.ID == id {
				return e.properties, true
			}
		}
	}
	return wire.PropertiesData{}, false
}

// AgentName returns the name of a generated agent.
func (g *Grid) AgentName(id uuid.UUID) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	name, ok := g.agents[id]
	return name, ok
}

// SetDropEvery changes how often selects are dropped. Zero disables
// dropping.
func (g *Grid) SetDropEvery(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dropEvery = n
	g.selects = 0
}

// AddObject places a new object in a region and announces it to every
// session that sees the region. It returns the assigned local id.
func (g *Grid) AddObject(handle world.RegionHandle, object world.Object, properties wire.PropertiesData) (uint32, error) {
	g.mu.Lock()
	r, ok := g.regions[handle]
	if !ok {
		g.mu.Unlock()
		return 0, errors.New("simulator: no such region")
	}
	if object.ID == uuid.Nil {
		object.ID = uuid.New()
	}
	properties.ID = object.ID
	localID := r.add(entity{object: object, properties: properties})
	update := wire.ObjectUpdate{Region: handle, Objects: []wire.ObjectData{wire.ObjectDataFrom(r.entities[localID].object)}}
	watchers := g.watchersLocked(handle)
	g.mu.Unlock()

	for _, s := range watchers {
		s.send(wire.TypeObjectUpdate, update)
	}
	return localID, nil
}

// RemoveObject deletes an object and sends KillObject to every session
// that sees its region.
func (g *Grid) RemoveObject(id uuid.UUID) bool {
	g.mu.Lock()
	var kill wire.KillObject
	found := false
	for handle, r := range g.regions {
		for localID, e := range r.entities {
			if e.object.ID == id {
				delete(r.entities, localID)
				kill = wire.KillObject{Region: handle, LocalIDs: []uint32{localID}}
				found = true
				break
			}
		}
		if found {
			break
		}
	}
	var watchers []*session
	if found {
		watchers = g.watchersLocked(kill.Region)
	}
	g.mu.Unlock()

	for _, s := range watchers {
		s.send(wire.TypeKillObject, kill)
	}
	return found
}

func (g *Grid) watchersLocked(handle world.RegionHandle) []*session {
	var result []*session
	for s := range g.sessions {
		if s.sees(handle) {
			result = append(result, s)
		}
	}
	return result
}

// view returns the regions visible from handle: itself and its
// neighbours.
func (g *Grid) viewLocked(handle world.RegionHandle) map[world.RegionHandle]bool {
	result := map[world.RegionHandle]bool{handle: true}
	for other := range g.regions {
		if world.Adjacent(handle, other) {
			result[other] = true
		}
	}
	return result
}

// shouldDrop counts a select and reports whether to leave it
// unanswered.
func (g *Grid) shouldDrop() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.selects++
	return g.dropEvery > 0 && g.selects%g.dropEvery == 0
}

// lookupProperties returns properties for the local ids that exist.
func (g *Grid) lookupProperties(handle world.RegionHandle, localIDs []uint32) []wire.PropertiesData {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.regions[handle]
	if !ok {
		return nil
	}
	var result []wire.PropertiesData
	for _, localID := range localIDs {
		if e, ok := r.entities[localID]; ok {
			result = append(result, e.properties)
		}
	}
	return result
}

func (g *Grid) lookupNames(ids []uuid.UUID, groups bool) []wire.NameEntry {
	g.mu.Lock()
	defer g.mu.Unlock()
	table := g.agents
	if groups {
		table = g.groups
	}
	var result []wire.NameEntry
	for _, id := range ids {
		if name, ok := table[id]; ok {
			result = append(result, wire.NameEntry{ID: id, Name: name})
		}
	}
	return result
}
