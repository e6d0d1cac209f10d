// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session persists the interactive view's last filters so the
// next run opens where the previous one left off.
//
// A [State] is written with [Write] when the view closes and read back
// with [Restore], which ignores files older than a maximum age. Files
// are CBOR, written atomically: the data goes to a temporary file in
// the same directory, which is synced and renamed into place, so a
// reader never sees a partial state.
package session
