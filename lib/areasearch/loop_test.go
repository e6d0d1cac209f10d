// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package areasearch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/areasearch/lib/testutil"
)

func TestLoopSerialisesWork(t *testing.T) {
	h := newHarness(t, Limits{})
	a := h.addObject(homeRegion.Handle, 1)
	loop := NewLoop(h.search, DefaultTickInterval)

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- loop.Run(ctx) }()

	h.clock.WaitForTimers(1)
	sent := func() bool {
		var state RequestState
		if err := loop.Do(ctx, func(s *Search) {
			record, _ := s.Record(a)
			state = record.State
		}); err != nil {
			t.Fatalf("Do: %v", err)
		}
		return state == StateSent
	}
	if !sent() {
		t.Fatal("first tick did not dispatch")
	}

	loop.DeliverReply(homeRegion.Handle, []Properties{properties(a, "Chair", uuid.Nil)})
	var status Status
	if err := loop.Do(ctx, func(s *Search) { status = s.Status() }); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if status.Listed != 1 || status.Pending != 0 {
		t.Fatalf("status = %+v after reply", status)
	}

	cancel()
	if err := testutil.RequireReceive(t, result, 5*time.Second, "loop exit"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.search.Active() {
		t.Fatal("search still active after the loop exited")
	}
	if err := loop.Do(context.Background(), func(*Search) {}); !errors.Is(err, ErrLoopStopped) {
		t.Fatalf("Do after exit = %v, want ErrLoopStopped", err)
	}
}

func TestLoopTicksOnClock(t *testing.T) {
	h := newHarness(t, Limits{})
	loop := NewLoop(h.search, DefaultTickInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)
	h.clock.WaitForTimers(1)

	late := h.addObject(homeRegion.Handle, 9)
	h.clock.Advance(DefaultScanInterval)

	testutil.Eventually(t, 5*time.Second, func() bool {
		var known bool
		if err := loop.Do(ctx, func(s *Search) { _, known = s.Record(late) }); err != nil {
			t.Fatalf("Do: %v", err)
		}
		return known
	}, "ticker driving a sweep")
}

func TestLoopDeliversNameCallbacks(t *testing.T) {
	h := newHarness(t, Limits{})
	owner := uuid.New()
	a := h.addObject(homeRegion.Handle, 1)
	loop := NewLoop(h.search, DefaultTickInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)
	h.clock.WaitForTimers(1)

	loop.DeliverReply(homeRegion.Handle, []Properties{properties(a, "Chair", owner)})
	var done func(uuid.UUID, string)
	if err := loop.Do(ctx, func(*Search) {
		done = h.names.requests[0].done
	}); err != nil {
		t.Fatalf("Do: %v", err)
	}

	// Resolvers call back from their own goroutines.
	go done(owner, "Alice Resident")

	testutil.Eventually(t, 5*time.Second, func() bool {
		var owner string
		if err := loop.Do(ctx, func(*Search) { owner = h.sink.rows[a].Owner }); err != nil {
			t.Fatalf("Do: %v", err)
		}
		return owner == "Alice Resident"
	}, "owner column filled")
}

func TestLoopRefusesWorkAfterStop(t *testing.T) {
	h := newHarness(t, Limits{})
	loop := NewLoop(h.search, DefaultTickInterval)

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- loop.Run(ctx) }()
	cancel()
	testutil.RequireReceive(t, result, 5*time.Second, "loop exit")

	ran := false
	for range 100 {
		if loop.Post(func() { ran = true }) {
			t.Fatal("Post accepted work after the loop stopped")
		}
	}
	if ran {
		t.Fatal("work posted after stop ran")
	}
}

func TestLoopRunsAcceptedWorkBeforeReturning(t *testing.T) {
	h := newHarness(t, Limits{})
	loop := NewLoop(h.search, DefaultTickInterval)

	ran := false
	if !loop.Post(func() { ran = true }) {
		t.Fatal("Post refused work before Run")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := loop.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !ran {
		t.Fatal("accepted work was dropped at shutdown")
	}
}

func TestLoopNameCallbacksOverflowQueue(t *testing.T) {
	h := newHarness(t, Limits{})
	loop := NewLoop(h.search, DefaultTickInterval)

	// More callbacks than the queue holds, posted before Run consumes
	// anything.
	const callbacks = 600
	count := 0
	for range callbacks {
		h.search.post(func() { count++ })
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	var got int
	if err := loop.Do(ctx, func(*Search) { got = count }); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got != callbacks {
		t.Fatalf("ran %d callbacks, want %d", got, callbacks)
	}
}
