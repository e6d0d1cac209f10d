// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package namecache resolves agent and group ids to display names.
//
// Resolved names are kept in memory and written through to the state
// database, so a restart begins with every name seen in the last
// MaxAge. Lookups for the same id are coalesced into one outstanding
// request to the [Backend]; unanswered requests are retried every
// RetryInterval, and after MaxAttempts the waiting callbacks receive
// [UnknownName]. Every callback passed to [Cache.Resolve] is invoked
// exactly once.
package namecache
