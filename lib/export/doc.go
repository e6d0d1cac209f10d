// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package export writes a snapshot of the result list to disk.
//
// The format follows the file extension: .yaml or .yml for YAML, .json
// for indented JSON, .cbor for CBOR in the codec package's
// deterministic encoding. A trailing .zst compresses the encoded bytes
// with zstd, so "results.cbor.zst" is zstd-compressed CBOR.
//
// [Read] reverses [Write].
package export
