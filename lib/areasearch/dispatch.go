// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package areasearch

import (
	"time"

	"github.com/bureau-foundation/areasearch/lib/world"
)

// dispatch sends property requests for NEED records, region by
// region, within the per-cycle and in-flight limits.
func (s *Search) dispatch(now time.Time) {
	if s.paused {
		return
	}
	if s.watchdog(now) {
		return
	}
	if s.store.Count(StateNeed) == 0 {
		s.needsDispatch = false
		return
	}
	s.needsDispatch = false
	sent := 0
	for _, region := range s.regions.Regions() {
		sent += s.dispatchRegion(region)
	}
	if sent > 0 {
		s.publishStatus()
	}
}

// watchdog requeues every SENT record when no reply has arrived for
// the reply timeout. It reports whether it fired; the cycle then ends
// so the requeued records go out on the next tick.
func (s *Search) watchdog(now time.Time) bool {
	outstanding := s.store.Count(StateSent)
	if outstanding == 0 {
		// Nothing to wait for: keep the timer at rest so the next
		// batch gets a full timeout.
		s.lastReply = now
		return false
	}
	if now.Sub(s.lastReply) <= s.replyTimeout {
		return false
	}

	s.logger.Debug("no property replies received, requeueing outstanding requests",
		"outstanding", outstanding, "timeout", s.replyTimeout)
	s.store.Each(func(record *Record) bool {
		if record.State == StateSent {
			s.store.Transition(record, StateNeed)
		}
		return true
	})
	clear(s.inFlight)
	s.lastReply = now
	s.needsDispatch = true
	return true
}

// dispatchRegion sends up to the region's budget of NEED records and
// returns how many went out.
func (s *Search) dispatchRegion(region world.Region) int {
	inFlight := s.inFlight[region.Handle]
	if inFlight >= s.limits.MaxInFlight {
		s.logger.Debug("region request queue full, postponing",
			"region", region.Handle, "in_flight", inFlight)
		if s.hasNeed(region.Handle) {
			s.needsDispatch = true
		}
		return 0
	}
	budget := min(s.limits.MaxPerCycle, s.limits.MaxInFlight-inFlight)

	var batch []*Record
	s.store.Each(func(record *Record) bool {
		if record.State != StateNeed || record.Region != region.Handle {
			return true
		}
		if len(batch) >= budget {
			s.needsDispatch = true
			return false
		}
		object := s.objects.FindObject(record.ID)
		if object == nil {
			s.fail(record)
			return true
		}
		record.LocalID = object.LocalID
		if object.Region != region.Handle {
			// Moved across a region border; goes out with its new
			// region's batch.
			record.Region = object.Region
			return true
		}
		s.store.Transition(record, StateSent)
		s.inFlight[region.Handle]++
		batch = append(batch, record)
		return true
	})

	sent := 0
	for start := 0; start < len(batch); start += s.limits.MaxObjectsPerPacket {
		chunk := batch[start:min(start+s.limits.MaxObjectsPerPacket, len(batch))]
		localIDs := make([]uint32, len(chunk))
		for i, record := range chunk {
			localIDs[i] = record.LocalID
		}
		if err := s.transport.SendSelect(region.Endpoint, region.Handle, localIDs); err != nil {
			s.logger.Warn("sending property request failed",
				"region", region.Handle, "objects", len(chunk), "error", err)
			for _, record := range chunk {
				s.store.Transition(record, StateNeed)
				s.release(region.Handle)
			}
			s.needsDispatch = true
			continue
		}
		if err := s.transport.SendDeselect(region.Endpoint, region.Handle, localIDs); err != nil {
			s.logger.Warn("sending deselect failed",
				"region", region.Handle, "objects", len(chunk), "error", err)
		}
		sent += len(chunk)
	}
	if sent > 0 {
		s.logger.Debug("requested object properties",
			"region", region.Handle, "objects", sent, "in_flight", s.inFlight[region.Handle])
	}
	return sent
}

func (s *Search) hasNeed(region world.RegionHandle) bool {
	found := false
	s.store.Each(func(record *Record) bool {
		if record.State == StateNeed && record.Region == region {
			found = true
			return false
		}
		return true
	})
	return found
}
