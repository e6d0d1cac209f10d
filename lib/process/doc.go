// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers for the
// areasearch commands. These functions centralize the raw I/O and
// process lifecycle that happen before the structured logger exists or
// after main has given up:
//
//   - Fatal error reporting to stderr when the logger may not be
//     initialized.
//   - Building the process logger from a configured level.
//   - A context cancelled by SIGINT or SIGTERM.
//   - An exclusive lock on the state directory, so two processes do
//     not share one name cache, block list, and session file.
package process
