// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the injectable time source used by the area
// search engine and its supporting services.
//
// Production code receives Real(). Tests receive Fake(), whose time
// only moves when Advance is called, so rate limits, reply timeouts,
// and retry sweeps can be exercised without sleeping:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	search := areasearch.New(areasearch.Config{Clock: c, ...})
//	c.Advance(31 * time.Second) // past the reply timeout
//	search.Tick()
//
// When a goroutine under test creates a ticker, call WaitForTimers
// before Advance so the registration is not raced.
package clock
