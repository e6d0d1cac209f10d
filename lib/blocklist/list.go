// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package blocklist

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/areasearch/lib/clock"
	"github.com/bureau-foundation/areasearch/lib/sqlitepool"
)

// Schema creates the blocked table. Register it with sqlitepool.Config.
const Schema = `
CREATE TABLE IF NOT EXISTS blocked (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	blocked_at INTEGER NOT NULL
);`

// Entry is one blocked object.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	BlockedAt time.Time `json:"blocked_at"`
}

// List is the block list. Reads are served from memory; changes are
// written through. Safe for concurrent use.
type List struct {
	pool  *sqlitepool.Pool
	clock clock.Clock

	mu      sync.RWMutex
	entries map[uuid.UUID]Entry
}

// Open loads the block list from pool.
func Open(ctx context.Context, pool *sqlitepool.Pool, clk clock.Clock) (*List, error) {
	if clk == nil {
		clk = clock.Real()
	}
	list := &List{pool: pool, clock: clk, entries: make(map[uuid.UUID]Entry)}
	err := pool.Read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, "SELECT id, name, blocked_at FROM blocked", &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				id, err := uuid.Parse(stmt.ColumnText(0))
				if err != nil {
					return fmt.Errorf("malformed id %q: %w", stmt.ColumnText(0), err)
				}
				list.entries[id] = Entry{
					ID:        id,
					Name:      stmt.ColumnText(1),
					BlockedAt: time.Unix(stmt.ColumnInt64(2), 0).UTC(),
				}
				return nil
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("blocklist: loading: %w", err)
	}
	return list, nil
}

// Contains reports whether id is blocked.
func (l *List) Contains(id uuid.UUID) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.entries[id]
	return ok
}

// Toggle blocks id if it is not blocked and unblocks it otherwise. It
// returns whether id is blocked afterwards.
func (l *List) Toggle(ctx context.Context, id uuid.UUID, name string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, blocked := l.entries[id]; blocked {
		err := l.pool.Write(ctx, func(conn *sqlite.Conn) error {
			return sqlitex.Execute(conn, "DELETE FROM blocked WHERE id = ?", &sqlitex.ExecOptions{
				Args: []any{id.String()},
			})
		})
		if err != nil {
			return true, fmt.Errorf("blocklist: unblocking %s: %w", id, err)
		}
		delete(l.entries, id)
		return false, nil
	}

	entry := Entry{ID: id, Name: name, BlockedAt: l.clock.Now().UTC().Truncate(time.Second)}
	err := l.pool.Write(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, "INSERT OR REPLACE INTO blocked (id, name, blocked_at) VALUES (?, ?, ?)",
			&sqlitex.ExecOptions{Args: []any{id.String(), name, entry.BlockedAt.Unix()}})
	})
	if err != nil {
		return false, fmt.Errorf("blocklist: blocking %s: %w", id, err)
	}
	l.entries[id] = entry
	return true, nil
}

// Entries returns every blocked object, oldest first.
func (l *List) Entries() []Entry {
	l.mu.RLock()
	entries := make([]Entry, 0, len(l.entries))
	for _, entry := range l.entries {
		entries = append(entries, entry)
	}
	l.mu.RUnlock()

	slices.SortFunc(entries, func(a, b Entry) int {
		if c := a.BlockedAt.Compare(b.BlockedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return entries
}
