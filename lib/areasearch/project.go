// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package areasearch

import (
	"github.com/google/uuid"

	"github.com/bureau-foundation/areasearch/lib/world"
)

// PlaceholderName is shown for an owner or group whose name is still
// being resolved.
const PlaceholderName = "(loading)"

// match lists a FINISHED record if it passes the filters. Listed
// records are left alone.
func (s *Search) match(record *Record, object *world.Object) {
	if record.Listed || record.State != StateFinished {
		return
	}
	row, ok := s.evaluate(record, object)
	if !ok {
		return
	}
	s.sink.AddRow(record.ID, row)
	record.Listed = true
	s.listed++
}

// evaluate builds the row for record and reports whether it passes the
// current filters. Unresolved owner and group names are requested, and
// match text filters as the empty string until they arrive.
func (s *Search) evaluate(record *Record, object *world.Object) (Row, bool) {
	if !s.filters.Types.Matches(object) {
		return Row{}, false
	}
	owner, ownerKnown := s.lookupName(record.OwnerID, false)
	group, groupKnown := s.lookupName(record.GroupID, true)
	record.NameRequested = !ownerKnown || !groupKnown

	if !s.filters.MatchText(record.Name, record.Description, owner, group) {
		return Row{}, false
	}
	row := Row{
		Icon:        iconFor(object),
		Name:        record.Name,
		Description: record.Description,
		Owner:       owner,
		Group:       group,
	}
	if !ownerKnown {
		row.Owner = PlaceholderName
	}
	if !groupKnown {
		row.Group = PlaceholderName
	}
	return row, true
}

// lookupName returns the name for id if known, starting a resolution
// otherwise. The nil id resolves to the empty string.
func (s *Search) lookupName(id uuid.UUID, isGroup bool) (string, bool) {
	if id == uuid.Nil {
		return "", true
	}
	if name, ok := s.resolved[id]; ok {
		return name, true
	}
	if name, ok := s.names.CachedName(id, isGroup); ok {
		return name, true
	}
	s.requestName(id, isGroup)
	return "", false
}

func (s *Search) requestName(id uuid.UUID, isGroup bool) {
	if _, pending := s.pendingNames[id]; pending {
		return
	}
	s.pendingNames[id] = struct{}{}
	generation := s.generation
	s.names.Resolve(id, isGroup, func(id uuid.UUID, name string) {
		deliver := func() { s.nameResolved(generation, id, name) }
		if s.post != nil {
			s.post(deliver)
			return
		}
		deliver()
	})
}

// OnNameResolved records a resolved owner or group name, fills it into
// listed rows, and re-matches unlisted records that were waiting for
// it.
func (s *Search) OnNameResolved(id uuid.UUID, name string) {
	s.nameResolved(s.generation, id, name)
}

func (s *Search) nameResolved(generation uint64, id uuid.UUID, name string) {
	if generation == s.generation {
		delete(s.pendingNames, id)
	}
	if name != UnknownName {
		s.resolved[id] = name
	}

	current, hasCurrent := s.regions.Current()
	relisted := false
	s.store.Each(func(record *Record) bool {
		if record.OwnerID != id && record.GroupID != id {
			return true
		}
		if record.Listed {
			if record.OwnerID == id {
				s.sink.UpdateColumn(record.ID, ColumnOwner, name)
			}
			if record.GroupID == id {
				s.sink.UpdateColumn(record.ID, ColumnGroup, name)
			}
			return true
		}
		if !hasCurrent || record.State != StateFinished || !record.NameRequested {
			return true
		}
		object := s.objects.FindObject(record.ID)
		if object == nil || !searchable(object, current.Handle) {
			return true
		}
		s.match(record, object)
		relisted = relisted || record.Listed
		return true
	})
	if relisted {
		s.publishStatus()
	}
}

// pruneStaleRows removes rows whose object is gone or no longer
// searchable in the current region.
func (s *Search) pruneStaleRows(current world.RegionHandle) {
	s.store.Each(func(record *Record) bool {
		if !record.Listed {
			return true
		}
		object := s.objects.FindObject(record.ID)
		if object == nil || !searchable(object, current) {
			s.unlist(record)
		}
		return true
	})
}

// reproject re-applies changed filters: rows that no longer pass are
// deleted and unlisted FINISHED records that now pass are added.
func (s *Search) reproject() {
	current, hasCurrent := s.regions.Current()
	s.store.Each(func(record *Record) bool {
		if record.State != StateFinished {
			return true
		}
		object := s.objects.FindObject(record.ID)
		if record.Listed {
			if object == nil {
				s.unlist(record)
			} else if _, ok := s.evaluate(record, object); !ok {
				s.unlist(record)
			}
			return true
		}
		if hasCurrent && object != nil && searchable(object, current.Handle) {
			s.match(record, object)
		}
		return true
	})
}

func (s *Search) unlist(record *Record) {
	if !record.Listed {
		return
	}
	s.sink.DeleteRow(record.ID)
	record.Listed = false
	s.listed--
}
