// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package blocklist keeps the set of objects the user has blocked from
// the result view, persisted in the state database.
package blocklist
