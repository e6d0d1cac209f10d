// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package areasearch discovers the objects around the agent, fetches
// their extended properties from the region in bounded batches, and
// maintains a filtered result list as replies arrive.
//
// # Pipeline
//
// A [Search] is driven by Tick. Each tick checks for a region change,
// polls the filter inputs, sweeps the object directory (rate limited),
// and dispatches property requests:
//
//   - The sweep inserts a NEED [Record] for every newly seen object
//     that is searchable and matches the type toggles, revives FAILED
//     records whose object came back, and demotes NEED/SENT records
//     whose object disappeared to FAILED.
//   - Dispatch drains NEED records per region into ObjectSelect /
//     ObjectDeselect pairs of at most MaxObjectsPerPacket local ids,
//     bounded per cycle by MaxPerCycle and per region by MaxInFlight.
//   - HandleReply moves records to FINISHED, caches their properties,
//     and hands them to the projector, which adds a row to the
//     [ResultSink] when all non-empty text filters match.
//
// A single reply timer guards the whole pipeline: when nothing has
// been heard for ReplyTimeout while requests are outstanding, every
// SENT record returns to NEED and the in-flight counters are cleared.
//
// # Request states
//
//	NEED ──dispatch──▶ SENT ──reply──▶ FINISHED
//	 ▲  ◀──timeout───┘  │
//	 │                  │ object gone
//	 └──reappears── FAILED ◀── (from NEED too)
//
// FINISHED is terminal. A reply for an unknown id is cached as a
// FINISHED record without touching the pending counters.
//
// # Threading
//
// Search is not safe for concurrent use. [Loop] owns a Search on one
// goroutine and serialises ticks, replies, region changes, and name
// resolutions delivered from other goroutines.
package areasearch
