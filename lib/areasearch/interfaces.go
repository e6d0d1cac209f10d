// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package areasearch

import (
	"github.com/google/uuid"

	"github.com/bureau-foundation/areasearch/lib/world"
)

// ObjectDirectory enumerates the objects the client knows about. It is
// the ground truth for whether an object still exists.
// *world.ObjectList implements it.
type ObjectDirectory interface {
	Count() int
	// Object returns the object at index i, or nil.
	Object(i int) *world.Object
	// FindObject returns the object with id, or nil.
	FindObject(id uuid.UUID) *world.Object
}

// RegionDirectory reports the connected regions. *world.RegionList
// implements it.
type RegionDirectory interface {
	// Current returns the agent's region; false while none is
	// established (between a teleport and the destination handshake).
	Current() (world.Region, bool)
	Regions() []world.Region
	IsNeighbor(a, b world.RegionHandle) bool
}

// PropertyTransport sends property requests. Both calls are
// fire-and-forget: replies arrive later through HandleReply.
type PropertyTransport interface {
	SendSelect(endpoint string, region world.RegionHandle, localIDs []uint32) error
	SendDeselect(endpoint string, region world.RegionHandle, localIDs []uint32) error
}

// UnknownName is what a NameResolver delivers when it gives up on an
// id. The search shows it but does not remember it, so the id is looked
// up again the next time a record needs it.
const UnknownName = "(unknown)"

// NameResolver turns agent and group ids into display names.
type NameResolver interface {
	// CachedName returns a name already known to the resolver.
	CachedName(id uuid.UUID, isGroup bool) (string, bool)
	// Resolve looks the name up asynchronously. done is called
	// exactly once, possibly on another goroutine.
	Resolve(id uuid.UUID, isGroup bool, done func(id uuid.UUID, name string))
}

// FilterInputs supplies the user's current filters. Search polls it
// once per tick.
type FilterInputs interface {
	Filters() Filters
}

// Column identifies a column of a result row.
type Column int

const (
	ColumnIcon Column = iota
	ColumnName
	ColumnDescription
	ColumnOwner
	ColumnGroup
)

func (c Column) String() string {
	switch c {
	case ColumnIcon:
		return "icon"
	case ColumnName:
		return "name"
	case ColumnDescription:
		return "description"
	case ColumnOwner:
		return "owner"
	case ColumnGroup:
		return "group"
	default:
		return "unknown"
	}
}

// Row is one visible result.
type Row struct {
	Icon        string `json:"icon"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Owner       string `json:"owner"`
	Group       string `json:"group"`
}

// Set returns a copy of the row with column replaced by text.
func (r Row) Set(column Column, text string) Row {
	switch column {
	case ColumnIcon:
		r.Icon = text
	case ColumnName:
		r.Name = text
	case ColumnDescription:
		r.Description = text
	case ColumnOwner:
		r.Owner = text
	case ColumnGroup:
		r.Group = text
	}
	return r
}

// ResultSink is the projection target for listed objects. Search never
// reads it back; Record.Listed is the source of truth for what has
// been added.
type ResultSink interface {
	AddRow(id uuid.UUID, row Row)
	DeleteRow(id uuid.UUID)
	UpdateColumn(id uuid.UUID, column Column, text string)
	Clear()
}
