// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package areasearch

import (
	"github.com/google/uuid"

	"github.com/bureau-foundation/areasearch/lib/world"
)

// Properties is one object's entry in a property reply.
type Properties struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	GroupID     uuid.UUID
	Name        string
	Description string
	TouchName   string
	SitName     string
}

// HandleReply reconciles a property reply from region. Entries for
// records already FINISHED are ignored, so duplicate replies are
// harmless. Entries for ids the search never requested are cached as
// FINISHED without touching the pending counters.
func (s *Search) HandleReply(region world.RegionHandle, entries []Properties) {
	s.CheckRegion()
	now := s.clock.Now()
	current, hasCurrent := s.regions.Current()

	completed := 0
	for i := range entries {
		entry := &entries[i]
		if entry.ID == uuid.Nil {
			s.logger.Debug("ignoring property reply entry without an id", "region", region)
			continue
		}

		record := s.store.Get(entry.ID)
		switch {
		case record == nil:
			record = &Record{ID: entry.ID, Region: region, State: StateFinished}
			if object := s.objects.FindObject(entry.ID); object != nil {
				record.LocalID, record.Region = object.LocalID, object.Region
			}
			s.store.Insert(record)
		case record.State == StateFinished:
			continue
		case record.State == StateFailed:
			s.logger.Debug("ignoring properties for vanished object", "object", entry.ID)
			continue
		default:
			if record.State == StateSent {
				s.release(record.Region)
			}
			s.requested--
			s.store.Transition(record, StateFinished)
			s.lastReply = now
			completed++
		}

		record.OwnerID = entry.OwnerID
		record.GroupID = entry.GroupID
		record.Name = entry.Name
		record.Description = entry.Description
		record.TouchName = entry.TouchName
		record.SitName = entry.SitName

		if !hasCurrent {
			continue
		}
		object := s.objects.FindObject(entry.ID)
		if object == nil || !searchable(object, current.Handle) {
			continue
		}
		s.match(record, object)
	}

	if completed > 0 {
		s.publishStatus()
	}
}
