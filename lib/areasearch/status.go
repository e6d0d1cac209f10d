// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package areasearch

import (
	"fmt"

	"github.com/bureau-foundation/areasearch/lib/world"
)

// Status summarises search progress.
type Status struct {
	// Listed is the number of rows in the result sink.
	Listed int `json:"listed"`
	// Pending is the number of records awaiting properties (NEED or
	// SENT).
	Pending int `json:"pending"`
	// Searchable is the number of searchable objects seen by the most
	// recent sweep, regardless of filters.
	Searchable int `json:"searchable"`
	// Known is the number of records in the store.
	Known int `json:"known"`
	// InFlight is the number of SENT records across all regions.
	InFlight int `json:"in_flight"`
	// Region is the agent's region as of the last region check. Zero
	// until the first region is seen.
	Region world.RegionHandle `json:"region"`
}

// String renders the status line shown under the result list.
func (s Status) String() string {
	return fmt.Sprintf("Listed: %d  Pending: %d  Total: %d", s.Listed, s.Pending, s.Searchable)
}
