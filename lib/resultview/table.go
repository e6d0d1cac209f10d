// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resultview

import (
	"bytes"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/areasearch/lib/areasearch"
	"github.com/bureau-foundation/areasearch/lib/export"
)

// Entry is one row as a view sees it.
type Entry struct {
	ID      uuid.UUID
	Row     areasearch.Row
	Blocked bool
}

// Table is a concurrency-safe [areasearch.ResultSink].
type Table struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]areasearch.Row
	order   []uuid.UUID
	sorted  bool
	status  areasearch.Status
	version uint64
	blocked func(uuid.UUID) bool

	// changed holds at most one pending notification.
	changed chan struct{}
}

var _ areasearch.ResultSink = (*Table)(nil)

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		rows:    make(map[uuid.UUID]areasearch.Row),
		sorted:  true,
		changed: make(chan struct{}, 1),
	}
}

// SetBlocked installs the predicate used to mark blocked rows.
func (t *Table) SetBlocked(blocked func(uuid.UUID) bool) {
	t.mu.Lock()
	t.blocked = blocked
	t.mu.Unlock()
	t.notify()
}

// AddRow implements [areasearch.ResultSink]. Adding an id already
// present replaces its row.
func (t *Table) AddRow(id uuid.UUID, row areasearch.Row) {
	t.mu.Lock()
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = row
	t.sorted = false
	t.mu.Unlock()
	t.notify()
}

// DeleteRow implements [areasearch.ResultSink].
func (t *Table) DeleteRow(id uuid.UUID) {
	t.mu.Lock()
	if _, ok := t.rows[id]; !ok {
		t.mu.Unlock()
		return
	}
	delete(t.rows, id)
	t.order = slices.DeleteFunc(t.order, func(candidate uuid.UUID) bool { return candidate == id })
	t.mu.Unlock()
	t.notify()
}

// UpdateColumn implements [areasearch.ResultSink]. Updates for absent
// rows are ignored.
func (t *Table) UpdateColumn(id uuid.UUID, column areasearch.Column, text string) {
	t.mu.Lock()
	row, ok := t.rows[id]
	if !ok {
		t.mu.Unlock()
		return
	}
	t.rows[id] = row.Set(column, text)
	if column == areasearch.ColumnName {
		t.sorted = false
	}
	t.mu.Unlock()
	t.notify()
}

// Clear implements [areasearch.ResultSink].
func (t *Table) Clear() {
	t.mu.Lock()
	clear(t.rows)
	t.order = t.order[:0]
	t.sorted = true
	t.mu.Unlock()
	t.notify()
}

// SetStatus records the latest engine status. It is passed as the
// engine's status callback.
func (t *Table) SetStatus(status areasearch.Status) {
	t.mu.Lock()
	t.status = status
	t.mu.Unlock()
	t.notify()
}

// Status returns the latest engine status.
func (t *Table) Status() areasearch.Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Len returns the number of rows.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rows)
}

// Version increases on every change.
func (t *Table) Version() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.version
}

// Changed receives a value after one or more changes since the last
// receive.
func (t *Table) Changed() <-chan struct{} {
	return t.changed
}

// Entries returns the rows in display order.
func (t *Table) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sortLocked()
	entries := make([]Entry, len(t.order))
	for i, id := range t.order {
		entries[i] = Entry{ID: id, Row: t.rows[id]}
		if t.blocked != nil {
			entries[i].Blocked = t.blocked(id)
		}
	}
	return entries
}

// Snapshot captures the table for export.
func (t *Table) Snapshot(region string, now time.Time) export.Snapshot {
	entries := t.Entries()
	snapshot := export.Snapshot{
		Region:  region,
		TakenAt: now,
		Status:  t.Status(),
		Rows:    make([]export.Entry, len(entries)),
	}
	for i, entry := range entries {
		snapshot.Rows[i] = export.Entry{ID: entry.ID, Row: entry.Row}
	}
	return snapshot
}

func (t *Table) sortLocked() {
	if t.sorted {
		return
	}
	slices.SortFunc(t.order, func(a, b uuid.UUID) int {
		if c := compareFold(t.rows[a].Name, t.rows[b].Name); c != 0 {
			return c
		}
		return bytes.Compare(a[:], b[:])
	})
	t.sorted = true
}

func (t *Table) notify() {
	t.mu.Lock()
	t.version++
	t.mu.Unlock()
	select {
	case t.changed <- struct{}{}:
	default:
	}
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
