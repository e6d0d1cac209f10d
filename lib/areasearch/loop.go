// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package areasearch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bureau-foundation/areasearch/lib/world"
)

// DefaultTickInterval is how often Loop ticks the search. The sweep
// has its own, longer rate limit; ticking faster keeps dispatch and
// the reply watchdog responsive.
const DefaultTickInterval = 100 * time.Millisecond

// ErrLoopStopped is returned by Do after Run has returned.
var ErrLoopStopped = errors.New("areasearch: loop stopped")

// Loop owns a Search on a single goroutine. Replies, region changes,
// name resolutions, and user actions from other goroutines are queued
// and run between ticks.
type Loop struct {
	search   *Search
	interval time.Duration
	events   chan func()
	done     chan struct{}

	// postMu orders Post against shutdown: once stopped is set under
	// it, no more work enters events.
	postMu  sync.Mutex
	stopped bool

	// overflow holds name callbacks posted while events was full.
	overflowMu sync.Mutex
	overflow   []func()
}

// NewLoop wraps search. Name callbacks issued by the search are routed
// through the loop from now on.
func NewLoop(search *Search, interval time.Duration) *Loop {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	loop := &Loop{
		search:   search,
		interval: interval,
		events:   make(chan func(), 256),
		done:     make(chan struct{}),
	}
	search.post = func(fn func()) {
		// Resolvers may call back on the loop goroutine itself; never
		// block it on its own queue.
		select {
		case loop.events <- fn:
		default:
			loop.overflowMu.Lock()
			loop.overflow = append(loop.overflow, fn)
			loop.overflowMu.Unlock()
		}
	}
	return loop
}

// Run starts the search and processes ticks and queued work until ctx
// is cancelled. Work accepted by Post before Run returns has run by
// then. It stops the search before returning.
func (l *Loop) Run(ctx context.Context) error {
	ticker := l.search.clock.NewTicker(l.interval)
	defer ticker.Stop()

	l.search.Start()
	l.search.Tick()

	for {
		select {
		case <-ctx.Done():
			l.shutdown()
			return nil
		case <-ticker.C:
			l.search.Tick()
		case fn := <-l.events:
			fn()
		}
		l.runOverflow()
	}
}

// shutdown refuses further work, runs what was already accepted, and
// stops the search.
func (l *Loop) shutdown() {
	// Closing done first releases any Post blocked on a full queue, so
	// postMu can be taken.
	close(l.done)
	l.postMu.Lock()
	l.stopped = true
	l.postMu.Unlock()

	for drained := false; !drained; {
		select {
		case fn := <-l.events:
			fn()
		default:
			drained = true
		}
	}
	l.runOverflow()
	l.search.Stop()
}

func (l *Loop) runOverflow() {
	l.overflowMu.Lock()
	pending := l.overflow
	l.overflow = nil
	l.overflowMu.Unlock()
	for _, fn := range pending {
		fn()
	}
}

// Post queues fn to run on the loop goroutine. It reports false, and
// fn never runs, once the loop has stopped. It must not be called from
// the loop goroutine while the queue may be full.
func (l *Loop) Post(fn func()) bool {
	l.postMu.Lock()
	defer l.postMu.Unlock()
	if l.stopped {
		return false
	}
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.events <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop goroutine and waits for it to finish. It
// returns ErrLoopStopped without running fn once the loop has stopped.
func (l *Loop) Do(ctx context.Context, fn func(*Search)) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn(l.search)
	}) {
		return ErrLoopStopped
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DeliverReply queues a property reply.
func (l *Loop) DeliverReply(region world.RegionHandle, entries []Properties) {
	l.Post(func() { l.search.HandleReply(region, entries) })
}

// NotifyRegionChanged queues a region check.
func (l *Loop) NotifyRegionChanged() {
	l.Post(l.search.CheckRegion)
}

// Refresh queues a full refresh.
func (l *Loop) Refresh() {
	l.Post(l.search.Refresh)
}
