// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive], [RequireSend], and [RequireClosed] wrap the select
// with a time.After fallback so individual tests do not need direct
// time.After calls. [Eventually] polls a condition for work that lands
// on another goroutine. These are the only places tests use real
// wall-clock timeouts; everything else runs on clock.Fake.
//
// [SocketDir] creates a short directory in /tmp for Unix domain
// sockets, whose paths are limited to 108 bytes.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
