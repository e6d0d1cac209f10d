// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package areasearch

import (
	"time"

	"github.com/bureau-foundation/areasearch/lib/world"
)

// scan sweeps the object directory, rate limited to one sweep per
// scan interval (refresh interval while a refresh is pending).
func (s *Search) scan(now time.Time) {
	current, ok := s.regions.Current()
	if !ok {
		return
	}
	interval := s.scanInterval
	if s.refreshPending {
		interval = s.refreshInterval
	}
	if !s.lastScan.IsZero() && now.Sub(s.lastScan) < interval {
		return
	}
	s.lastScan = now
	s.refreshPending = false

	s.paused = true
	defer func() { s.paused = false }()

	searchableCount := 0
	added := 0
	count := s.objects.Count()
	for i := 0; i < count; i++ {
		object := s.objects.Object(i)
		if object == nil || !searchable(object, current.Handle) {
			continue
		}
		searchableCount++
		if !s.filters.Types.Matches(object) {
			continue
		}

		record := s.store.Get(object.ID)
		switch {
		case record == nil:
			s.store.Insert(&Record{
				ID:      object.ID,
				LocalID: object.LocalID,
				Region:  object.Region,
				State:   StateNeed,
			})
			s.requested++
			added++
		case record.State == StateFinished:
			s.match(record, object)
		case record.State == StateFailed:
			record.LocalID, record.Region = object.LocalID, object.Region
			s.store.Transition(record, StateNeed)
			s.requested++
			added++
		case record.State == StateNeed:
			record.LocalID, record.Region = object.LocalID, object.Region
		}
	}
	s.searchable = searchableCount

	failed := s.reconcile()
	s.pruneStaleRows(current.Handle)

	if added > 0 || failed > 0 {
		s.logger.Debug("scan complete",
			"searchable", searchableCount, "queued", added, "failed", failed, "pending", s.requested)
	}
	s.publishStatus()
}

// reconcile fails every pending record whose object has left the
// directory and returns how many were failed.
func (s *Search) reconcile() int {
	failed := 0
	s.store.Each(func(record *Record) bool {
		if !record.State.pending() {
			return true
		}
		if s.objects.FindObject(record.ID) == nil {
			s.fail(record)
			failed++
		}
		return true
	})
	return failed
}

// fail moves a pending record to FAILED, releasing its counters.
func (s *Search) fail(record *Record) {
	if !record.State.pending() {
		return
	}
	if record.State == StateSent {
		s.release(record.Region)
	}
	s.requested--
	s.store.Transition(record, StateFailed)
}

// release decrements the in-flight counter of region.
func (s *Search) release(region world.RegionHandle) {
	if s.inFlight[region] > 0 {
		s.inFlight[region]--
	}
}
