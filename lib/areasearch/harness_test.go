// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package areasearch

import (
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/areasearch/lib/clock"
	"github.com/bureau-foundation/areasearch/lib/world"
)

var (
	epoch      = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	homeRegion = world.Region{Handle: world.HandleFromGrid(1000, 1000), Name: "Home", Endpoint: "home:9000"}
	eastRegion = world.Region{Handle: world.HandleFromGrid(1001, 1000), Name: "East", Endpoint: "east:9000"}
	farRegion  = world.Region{Handle: world.HandleFromGrid(2000, 2000), Name: "Far", Endpoint: "far:9000"}
)

type sentBatch struct {
	endpoint string
	region   world.RegionHandle
	localIDs []uint32
}

type fakeTransport struct {
	selects   []sentBatch
	deselects []sentBatch
	failNext  int
}

var errSendFailed = errors.New("send failed")

func (f *fakeTransport) SendSelect(endpoint string, region world.RegionHandle, localIDs []uint32) error {
	if f.failNext > 0 {
		f.failNext--
		return errSendFailed
	}
	f.selects = append(f.selects, sentBatch{endpoint, region, slices.Clone(localIDs)})
	return nil
}

func (f *fakeTransport) SendDeselect(endpoint string, region world.RegionHandle, localIDs []uint32) error {
	f.deselects = append(f.deselects, sentBatch{endpoint, region, slices.Clone(localIDs)})
	return nil
}

func (f *fakeTransport) selectedCount() int {
	total := 0
	for _, batch := range f.selects {
		total += len(batch.localIDs)
	}
	return total
}

type nameRequest struct {
	id      uuid.UUID
	isGroup bool
	done    func(uuid.UUID, string)
}

type fakeNames struct {
	cached   map[uuid.UUID]string
	requests []nameRequest
}

func (f *fakeNames) CachedName(id uuid.UUID, isGroup bool) (string, bool) {
	name, ok := f.cached[id]
	return name, ok
}

func (f *fakeNames) Resolve(id uuid.UUID, isGroup bool, done func(uuid.UUID, string)) {
	f.requests = append(f.requests, nameRequest{id, isGroup, done})
}

// complete resolves every outstanding request for id.
func (f *fakeNames) complete(id uuid.UUID, name string) int {
	f.cached[id] = name
	completed := 0
	remaining := f.requests[:0]
	for _, request := range f.requests {
		if request.id == id {
			request.done(id, name)
			completed++
			continue
		}
		remaining = append(remaining, request)
	}
	f.requests = remaining
	return completed
}

type memorySink struct {
	rows   map[uuid.UUID]Row
	adds   int
	clears int
}

func (m *memorySink) AddRow(id uuid.UUID, row Row) {
	if _, exists := m.rows[id]; exists {
		panic(fmt.Sprintf("row %s added twice", id))
	}
	m.rows[id] = row
	m.adds++
}

func (m *memorySink) DeleteRow(id uuid.UUID) { delete(m.rows, id) }

func (m *memorySink) UpdateColumn(id uuid.UUID, column Column, text string) {
	if row, ok := m.rows[id]; ok {
		m.rows[id] = row.Set(column, text)
	}
}

func (m *memorySink) Clear() {
	clear(m.rows)
	m.clears++
}

type harness struct {
	t         *testing.T
	clock     *clock.FakeClock
	objects   *world.ObjectList
	regions   *world.RegionList
	transport *fakeTransport
	names     *fakeNames
	filters   *FilterState
	sink      *memorySink
	search    *Search
	statuses  []Status
}

func newHarness(t *testing.T, limits Limits) *harness {
	t.Helper()
	h := &harness{
		t:         t,
		clock:     clock.Fake(epoch),
		objects:   world.NewObjectList(),
		regions:   world.NewRegionList(),
		transport: &fakeTransport{},
		names:     &fakeNames{cached: make(map[uuid.UUID]string)},
		filters:   NewFilterState(DefaultFilters()),
		sink:      &memorySink{rows: make(map[uuid.UUID]Row)},
	}
	h.regions.Add(homeRegion)
	h.regions.SetCurrent(homeRegion.Handle)

	search, err := New(Config{
		Objects:   h.objects,
		Regions:   h.regions,
		Transport: h.transport,
		Names:     h.names,
		Filters:   h.filters,
		Sink:      h.sink,
		Status:    func(status Status) { h.statuses = append(h.statuses, status) },
		Clock:     h.clock,
		Limits:    limits,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.search = search
	return h
}

func objectID(localID uint32) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "object-%d", localID))
}

// addObject announces a selectable root prim in region.
func (h *harness) addObject(region world.RegionHandle, localID uint32, modify ...func(*world.Object)) uuid.UUID {
	object := world.Object{
		ID:      objectID(localID),
		LocalID: localID,
		Region:  region,
		Kind:    world.KindPrim,
		Flags:   world.FlagSelectable,
	}
	for _, fn := range modify {
		fn(&object)
	}
	h.objects.Upsert(object)
	return object.ID
}

func (h *harness) start() {
	h.search.Start()
	h.search.Tick()
}

func (h *harness) tickAfter(d time.Duration) {
	h.clock.Advance(d)
	h.search.Tick()
}

func (h *harness) record(id uuid.UUID) Record {
	h.t.Helper()
	record, ok := h.search.Record(id)
	if !ok {
		h.t.Fatalf("no record for %s", id)
	}
	return record
}

func (h *harness) requireState(id uuid.UUID, want RequestState) {
	h.t.Helper()
	if got := h.record(id).State; got != want {
		h.t.Fatalf("record %s state = %s, want %s", id, got, want)
	}
}

// checkInvariants verifies the counters against the store.
func (h *harness) checkInvariants() {
	h.t.Helper()
	search := h.search
	need, sent := 0, 0
	perRegion := make(map[world.RegionHandle]int)
	listed := 0
	search.store.Each(func(record *Record) bool {
		switch record.State {
		case StateNeed:
			need++
		case StateSent:
			sent++
			perRegion[record.Region]++
		}
		if record.Listed {
			listed++
			if _, ok := h.sink.rows[record.ID]; !ok {
				h.t.Fatalf("record %s listed without a row", record.ID)
			}
		}
		return true
	})
	if search.requested != need+sent {
		h.t.Fatalf("requested = %d, want NEED+SENT = %d", search.requested, need+sent)
	}
	if listed != search.listed || listed != len(h.sink.rows) {
		h.t.Fatalf("listed = %d, counter = %d, rows = %d", listed, search.listed, len(h.sink.rows))
	}
	for region, count := range search.inFlight {
		if count != perRegion[region] {
			h.t.Fatalf("in-flight for %s = %d, SENT records = %d", region, count, perRegion[region])
		}
		if count > search.limits.MaxInFlight {
			h.t.Fatalf("in-flight for %s = %d exceeds %d", region, count, search.limits.MaxInFlight)
		}
	}
	for region, count := range perRegion {
		if search.inFlight[region] != count {
			h.t.Fatalf("SENT records for %s = %d, in-flight counter = %d", region, count, search.inFlight[region])
		}
	}
}

func properties(id uuid.UUID, name string, owner uuid.UUID) Properties {
	return Properties{ID: id, Name: name, OwnerID: owner}
}
