// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR configuration and the frame format
// shared by the grid client and the grid simulator.
//
// Every message on a grid connection is CBOR (Core Deterministic
// Encoding, RFC 8949 §4.2) inside a length-prefixed frame. Large
// payloads, typically ObjectProperties batches and ObjectUpdate
// bursts, are LZ4 block compressed, which plays the role the legacy
// protocol's zero-coding played for bandwidth.
//
//	err := codec.WriteFrame(conn, envelope)
//	err = codec.ReadFrame(conn, &envelope)
//
// Struct tag rules: wire-only types use `cbor` tags. Types that are
// also exported as JSON or YAML use `json` tags, which fxamacker/cbor
// reads as a fallback.
package codec
