// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package namecache

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/areasearch/lib/clock"
	"github.com/bureau-foundation/areasearch/lib/sqlitepool"
	"github.com/bureau-foundation/areasearch/lib/testutil"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type backendCall struct {
	ids     []uuid.UUID
	isGroup bool
}

type fakeBackend struct {
	mu    sync.Mutex
	calls []backendCall
}

func (f *fakeBackend) RequestNames(ids []uuid.UUID, isGroup bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, backendCall{append([]uuid.UUID(nil), ids...), isGroup})
	return nil
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type result struct {
	id   uuid.UUID
	name string
}

func openPool(t *testing.T, path string) *sqlitepool.Pool {
	t.Helper()
	pool, err := sqlitepool.Open(sqlitepool.Config{Path: path, Schemas: []string{Schema}})
	if err != nil {
		t.Fatalf("sqlitepool.Open: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return pool
}

func openCache(t *testing.T, pool *sqlitepool.Pool, fake *clock.FakeClock) (*Cache, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{}
	cache, err := Open(context.Background(), Config{
		Pool:          pool,
		Backend:       backend,
		Clock:         fake,
		RetryInterval: 5 * time.Second,
		MaxAttempts:   3,
		MaxAge:        24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return cache, backend
}

func TestResolveCoalescesLookups(t *testing.T) {
	cache, backend := openCache(t, nil, clock.Fake(epoch))
	owner := uuid.New()
	results := make(chan result, 2)
	done := func(id uuid.UUID, name string) { results <- result{id, name} }

	cache.Resolve(owner, false, done)
	cache.Resolve(owner, false, done)
	if backend.callCount() != 1 {
		t.Fatalf("backend calls = %d, want 1", backend.callCount())
	}

	cache.Deliver(context.Background(), owner, "Alice Resident", false)
	for range 2 {
		got := testutil.RequireReceive(t, results, 5*time.Second, "name callback")
		if got.id != owner || got.name != "Alice Resident" {
			t.Fatalf("callback = %+v", got)
		}
	}
	if name, ok := cache.CachedName(owner, false); !ok || name != "Alice Resident" {
		t.Fatalf("CachedName = %q, %v", name, ok)
	}
	if cache.Pending() != 0 {
		t.Fatalf("pending = %d after delivery", cache.Pending())
	}
}

func TestResolveKnownNameIsAsynchronous(t *testing.T) {
	cache, backend := openCache(t, nil, clock.Fake(epoch))
	group := uuid.New()
	cache.Deliver(context.Background(), group, "Builders", true)

	results := make(chan result, 1)
	cache.Resolve(group, true, func(id uuid.UUID, name string) { results <- result{id, name} })
	if got := testutil.RequireReceive(t, results, 5*time.Second, "cached callback"); got.name != "Builders" {
		t.Fatalf("name = %q", got.name)
	}
	if backend.callCount() != 0 {
		t.Fatal("known name was requested from the backend")
	}
}

func TestRetryThenGiveUp(t *testing.T) {
	fake := clock.Fake(epoch)
	cache, backend := openCache(t, nil, fake)
	agent := uuid.New()
	group := uuid.New()
	results := make(chan result, 2)
	done := func(id uuid.UUID, name string) { results <- result{id, name} }
	cache.Resolve(agent, false, done)
	cache.Resolve(group, true, done)

	fake.Advance(4 * time.Second)
	cache.retry()
	if backend.callCount() != 2 {
		t.Fatalf("retried before the interval: %d calls", backend.callCount())
	}

	fake.Advance(time.Second)
	cache.retry()
	if backend.callCount() != 4 {
		t.Fatalf("backend calls = %d after first retry, want 4", backend.callCount())
	}
	if backend.calls[2].isGroup == backend.calls[3].isGroup {
		t.Fatal("agent and group retries were not sent separately")
	}

	fake.Advance(5 * time.Second)
	cache.retry()
	fake.Advance(5 * time.Second)
	cache.retry()

	for range 2 {
		got := testutil.RequireReceive(t, results, 5*time.Second, "abandoned callback")
		if got.name != UnknownName {
			t.Fatalf("name = %q, want %q", got.name, UnknownName)
		}
	}
	if backend.callCount() != 6 {
		t.Fatalf("backend calls = %d, want 6 (3 attempts each)", backend.callCount())
	}
	if cache.Pending() != 0 {
		t.Fatal("abandoned lookups still pending")
	}
	if _, ok := cache.CachedName(agent, false); ok {
		t.Fatal("unknown name was cached")
	}
}

func TestPersistenceAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "names.db")
	fake := clock.Fake(epoch)
	fresh := uuid.New()
	stale := uuid.New()

	pool := openPool(t, path)
	first, _ := openCache(t, pool, fake)
	first.Deliver(context.Background(), stale, "Old Name", false)
	fake.Advance(20 * time.Hour)
	first.Deliver(context.Background(), fresh, "New Name", true)
	fake.Advance(5 * time.Hour)

	second, _ := openCache(t, pool, fake)
	if name, ok := second.CachedName(fresh, true); !ok || name != "New Name" {
		t.Fatalf("fresh name = %q, %v", name, ok)
	}
	if _, ok := second.CachedName(stale, false); ok {
		t.Fatal("name older than MaxAge was loaded")
	}
	if second.Len() != 1 {
		t.Fatalf("loaded %d names, want 1", second.Len())
	}
}

func TestRunDrivesRetries(t *testing.T) {
	fake := clock.Fake(epoch)
	cache, backend := openCache(t, nil, fake)
	ctx, cancel := context.WithCancel(context.Background())
	exited := make(chan error, 1)
	go func() { exited <- cache.Run(ctx) }()
	fake.WaitForTimers(1)

	cache.Resolve(uuid.New(), false, func(uuid.UUID, string) {})
	fake.Advance(5 * time.Second)
	testutil.Eventually(t, 5*time.Second, func() bool { return backend.callCount() == 2 }, "retry from Run")

	cancel()
	if err := testutil.RequireReceive(t, exited, 5*time.Second, "Run exit"); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestOpenRequiresBackend(t *testing.T) {
	if _, err := Open(context.Background(), Config{}); err == nil {
		t.Fatal("Open without a backend succeeded")
	}
}
