// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire defines the messages exchanged between the grid client
// and a region simulator, and [Conn], a framed connection carrying
// them.
//
// The message set is a small subset of the legacy viewer protocol:
// enough for the client to learn which regions and objects exist
// (RegionHandshake, ObjectUpdate, KillObject), to move between regions
// (TeleportRequest, AgentMovementComplete, DisableSimulator), to ask
// for extended object properties (ObjectSelect, ObjectDeselect,
// ObjectProperties), and to resolve agent and group names.
//
// Every message travels in an [Envelope] whose Body holds the CBOR of
// the typed message. Envelopes are written with codec.WriteFrame, so
// large bursts are LZ4 compressed on the wire.
package wire
