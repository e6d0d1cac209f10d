// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package simulator serves a generated grid of regions over the wire
// protocol. It backs the areasearch-sim binary and the integration
// tests of the region client.
//
// The grid is a square of GridSize×GridSize regions. Every region's
// contents derive from the seed through a keyed BLAKE3 hash, so two
// grids built from the same Config are identical: the same ids, local
// ids, names, owners, and flags.
//
// A session begins with UseCircuitCode. The agent starts in the centre
// region and sees it and its neighbours: each gets a RegionHandshake
// and its objects in ObjectUpdate batches, followed by an
// AgentMovementComplete. ObjectSelect is answered with ObjectProperties
// in batches of at most ReplyBatch entries; with DropEvery set, every
// DropEvery-th select goes unanswered. TeleportRequest moves the
// agent, disabling regions that leave its view.
package simulator
