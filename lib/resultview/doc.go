// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package resultview presents the area search result list.
//
// [Table] is the [areasearch.ResultSink] the search engine projects
// into. It is safe for concurrent use: the engine writes from its loop
// goroutine while a view reads from another. Rows are kept sorted by
// name, case-insensitively, with the object id as a tiebreaker.
//
// Two views read a Table:
//
//   - [Model] is a bubbletea program for interactive terminals:
//     scrolling, live filter editing, type toggles, refresh, tracking,
//     and blocking the selected object.
//   - [Printer] renders the table once to a writer, styled for the
//     writer's terminal profile or plain when it is not a terminal.
package resultview
