// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package world

import (
	"fmt"
	"sort"
	"sync"
)

// RegionWidth is the edge length of a region in meters.
const RegionWidth = 256

// RegionHandle identifies a region by its global position.
type RegionHandle uint64

// HandleFromGrid returns the handle of the region at grid coordinates
// (x, y), measured in regions.
func HandleFromGrid(x, y uint32) RegionHandle {
	return RegionHandle(uint64(x*RegionWidth)<<32 | uint64(y*RegionWidth))
}

// Grid returns the region's grid coordinates in regions.
func (h RegionHandle) Grid() (x, y uint32) {
	return uint32(h>>32) / RegionWidth, uint32(h) / RegionWidth
}

func (h RegionHandle) String() string {
	x, y := h.Grid()
	return fmt.Sprintf("(%d, %d)", x, y)
}

// Adjacent reports whether a and b are distinct regions touching by an
// edge or a corner.
func Adjacent(a, b RegionHandle) bool {
	if a == b {
		return false
	}
	ax, ay := a.Grid()
	bx, by := b.Grid()
	return distance(ax, bx) <= 1 && distance(ay, by) <= 1
}

func distance(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

// Region is one connected simulator region.
type Region struct {
	Handle RegionHandle
	Name   string
	// Endpoint is the network address carrying this region's
	// traffic. Several regions may share one endpoint.
	Endpoint string
}

// RegionList tracks connected regions and the agent's current one.
type RegionList struct {
	mu         sync.RWMutex
	regions    map[RegionHandle]Region
	current    RegionHandle
	hasCurrent bool
}

// NewRegionList returns an empty RegionList with no current region.
func NewRegionList() *RegionList {
	return &RegionList{regions: make(map[RegionHandle]Region)}
}

// Add records or replaces a region.
func (l *RegionList) Add(region Region) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.regions[region.Handle] = region
}

// Remove forgets a region. Removing the current region leaves the agent
// without one until SetCurrent is called again.
func (l *RegionList) Remove(handle RegionHandle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.regions, handle)
	if l.hasCurrent && l.current == handle {
		l.hasCurrent = false
	}
}

// SetCurrent makes handle the agent's region. Returns false when the
// region has not been added.
func (l *RegionList) SetCurrent(handle RegionHandle) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.regions[handle]; !ok {
		return false
	}
	l.current = handle
	l.hasCurrent = true
	return true
}

// ClearCurrent leaves the agent without a region, as between a
// teleport starting and the destination completing the handshake.
func (l *RegionList) ClearCurrent() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hasCurrent = false
}

// Current returns the agent's region.
func (l *RegionList) Current() (Region, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.hasCurrent {
		return Region{}, false
	}
	region, ok := l.regions[l.current]
	return region, ok
}

// Find returns the region with the given handle.
func (l *RegionList) Find(handle RegionHandle) (Region, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	region, ok := l.regions[handle]
	return region, ok
}

// FindByName returns the first region with the given name.
func (l *RegionList) FindByName(name string) (Region, bool) {
	for _, region := range l.Regions() {
		if region.Name == name {
			return region, true
		}
	}
	return Region{}, false
}

// Regions returns all connected regions ordered by handle.
func (l *RegionList) Regions() []Region {
	l.mu.RLock()
	defer l.mu.RUnlock()
	result := make([]Region, 0, len(l.regions))
	for _, region := range l.regions {
		result = append(result, region)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Handle < result[j].Handle })
	return result
}

// IsNeighbor reports whether b is adjacent to a on the grid.
func (l *RegionList) IsNeighbor(a, b RegionHandle) bool {
	return Adjacent(a, b)
}
