// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package areasearch

import (
	"strings"
	"sync"

	"github.com/bureau-foundation/areasearch/lib/world"
)

// TypeFilter selects object categories. An object is kept when it
// falls in at least one enabled category; Other covers objects that
// are neither physical, temporary, nor attached.
type TypeFilter struct {
	Physical   bool `yaml:"physical" json:"physical"`
	Temporary  bool `yaml:"temporary" json:"temporary"`
	Attachment bool `yaml:"attachment" json:"attachment"`
	Other      bool `yaml:"other" json:"other"`
}

// AllTypes enables every category.
func AllTypes() TypeFilter {
	return TypeFilter{Physical: true, Temporary: true, Attachment: true, Other: true}
}

// Matches reports whether object falls in an enabled category.
func (f TypeFilter) Matches(object *world.Object) bool {
	physical := object.IsPhysical()
	temporary := object.IsTemporary()
	attachment := object.IsAttachment()
	return (f.Physical && physical) ||
		(f.Temporary && temporary) ||
		(f.Attachment && attachment) ||
		(f.Other && !physical && !temporary && !attachment)
}

// Filters is the complete set of user filters.
type Filters struct {
	Name        string     `yaml:"name" json:"name"`
	Description string     `yaml:"description" json:"description"`
	Owner       string     `yaml:"owner" json:"owner"`
	Group       string     `yaml:"group" json:"group"`
	Types       TypeFilter `yaml:"types" json:"types"`
}

// DefaultFilters has no text filters and every type enabled.
func DefaultFilters() Filters {
	return Filters{Types: AllTypes()}
}

// MatchText reports whether every non-empty text filter is a
// case-insensitive substring of the corresponding field.
func (f Filters) MatchText(name, description, owner, group string) bool {
	return containsFold(name, f.Name) &&
		containsFold(description, f.Description) &&
		containsFold(owner, f.Owner) &&
		containsFold(group, f.Group)
}

func containsFold(text, pattern string) bool {
	if pattern == "" {
		return true
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(pattern))
}

// FilterState is a FilterInputs that user interfaces write to. Safe
// for concurrent use.
type FilterState struct {
	mu      sync.Mutex
	filters Filters
}

// NewFilterState returns a FilterState holding initial.
func NewFilterState(initial Filters) *FilterState {
	return &FilterState{filters: initial}
}

// Filters returns the current filters.
func (s *FilterState) Filters() Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

// Set replaces the filters.
func (s *FilterState) Set(filters Filters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = filters
}

// Update applies fn to the filters under the lock.
func (s *FilterState) Update(fn func(*Filters)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.filters)
}

// searchable reports whether an object in the agent's current region
// is eligible for search: a selectable root prim or attachment root
// that is neither terrain nor an avatar.
func searchable(object *world.Object, current world.RegionHandle) bool {
	if object.Region != current {
		return false
	}
	if object.IsTerrain() || object.IsAvatar() || !object.IsSelectable() {
		return false
	}
	return object.IsRoot() || (object.IsAttachment() && object.IsRootEdit())
}

// iconFor names the row icon for object's category.
func iconFor(object *world.Object) string {
	switch {
	case object.IsAttachment():
		return "attachment"
	case object.IsTemporary():
		return "temporary"
	case object.IsPhysical():
		return "physical"
	default:
		return "object"
	}
}
