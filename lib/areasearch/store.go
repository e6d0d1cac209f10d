// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package areasearch

import (
	"github.com/google/uuid"
)

// Store maps object ids to records. Records are only ever removed all
// at once (Clear), so insertion order doubles as a stable iteration
// order for sweeps and dispatch.
type Store struct {
	records map[uuid.UUID]*Record
	order   []*Record
	counts  [StateFailed + 1]int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{records: make(map[uuid.UUID]*Record)}
}

// Get returns the record for id, or nil.
func (s *Store) Get(id uuid.UUID) *Record {
	return s.records[id]
}

// Insert adds a record. Inserting an id that is already present is a
// programming error and panics.
func (s *Store) Insert(record *Record) {
	if _, exists := s.records[record.ID]; exists {
		panic("areasearch: duplicate record " + record.ID.String())
	}
	s.records[record.ID] = record
	s.order = append(s.order, record)
	s.counts[record.State]++
}

// Transition moves record to state if the state machine allows it.
func (s *Store) Transition(record *Record, state RequestState) bool {
	if !legalTransition(record.State, state) {
		return false
	}
	s.counts[record.State]--
	s.counts[state]++
	record.State = state
	return true
}

// Count returns the number of records in state.
func (s *Store) Count(state RequestState) int {
	return s.counts[state]
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.order)
}

// Each calls fn for every record in insertion order until fn returns
// false. fn may transition records but must not insert.
func (s *Store) Each(fn func(*Record) bool) {
	for _, record := range s.order {
		if !fn(record) {
			return
		}
	}
}

// Clear removes every record.
func (s *Store) Clear() {
	clear(s.records)
	clear(s.order)
	s.order = s.order[:0]
	s.counts = [StateFailed + 1]int{}
}
