// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package namecache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/areasearch/lib/areasearch"
	"github.com/bureau-foundation/areasearch/lib/clock"
	"github.com/bureau-foundation/areasearch/lib/sqlitepool"
)

// Schema creates the names table. Register it with sqlitepool.Config.
const Schema = `
CREATE TABLE IF NOT EXISTS names (
	id          TEXT PRIMARY KEY,
	is_group    INTEGER NOT NULL,
	name        TEXT NOT NULL,
	resolved_at INTEGER NOT NULL
);`

// UnknownName is delivered when a name could not be resolved. It is
// never cached.
const UnknownName = areasearch.UnknownName

const (
	DefaultRetryInterval = 5 * time.Second
	DefaultMaxAttempts   = 3
	DefaultMaxAge        = 7 * 24 * time.Hour
)

// Backend sends name lookups to the grid. Replies come back through
// Cache.Deliver.
type Backend interface {
	RequestNames(ids []uuid.UUID, isGroup bool) error
}

// Config configures a Cache.
type Config struct {
	// Pool persists resolved names. Nil keeps them in memory only.
	Pool    *sqlitepool.Pool
	Backend Backend
	Clock   clock.Clock
	Logger  *slog.Logger

	RetryInterval time.Duration
	MaxAttempts   int
	MaxAge        time.Duration
}

type entry struct {
	name    string
	isGroup bool
}

type lookup struct {
	isGroup     bool
	attempts    int
	nextAttempt time.Time
	callbacks   []func(uuid.UUID, string)
}

// Cache is a NameResolver backed by a Backend. Safe for concurrent use.
type Cache struct {
	pool          *sqlitepool.Pool
	backend       Backend
	clock         clock.Clock
	logger        *slog.Logger
	retryInterval time.Duration
	maxAttempts   int
	maxAge        time.Duration

	mu      sync.Mutex
	names   map[uuid.UUID]entry
	pending map[uuid.UUID]*lookup
}

// Open creates a Cache and loads every persisted name younger than
// MaxAge. Older rows are deleted.
func Open(ctx context.Context, cfg Config) (*Cache, error) {
	if cfg.Backend == nil {
		return nil, errors.New("namecache: Backend is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}

	cache := &Cache{
		pool:          cfg.Pool,
		backend:       cfg.Backend,
		clock:         cfg.Clock,
		logger:        cfg.Logger,
		retryInterval: cfg.RetryInterval,
		maxAttempts:   cfg.MaxAttempts,
		maxAge:        cfg.MaxAge,
		names:         make(map[uuid.UUID]entry),
		pending:       make(map[uuid.UUID]*lookup),
	}
	if cache.pool != nil {
		if err := cache.load(ctx); err != nil {
			return nil, err
		}
	}
	return cache, nil
}

func (c *Cache) load(ctx context.Context) error {
	cutoff := c.clock.Now().Add(-c.maxAge).Unix()
	return c.pool.Write(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, "DELETE FROM names WHERE resolved_at < ?", &sqlitex.ExecOptions{
			Args: []any{cutoff},
		})
		if err != nil {
			return fmt.Errorf("namecache: expiring names: %w", err)
		}
		err = sqlitex.Execute(conn, "SELECT id, is_group, name FROM names", &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				id, err := uuid.Parse(stmt.ColumnText(0))
				if err != nil {
					c.logger.Warn("skipping malformed name cache row", "id", stmt.ColumnText(0))
					return nil
				}
				c.names[id] = entry{name: stmt.ColumnText(2), isGroup: stmt.ColumnInt64(1) != 0}
				return nil
			},
		})
		if err != nil {
			return fmt.Errorf("namecache: loading names: %w", err)
		}
		c.logger.Debug("name cache loaded", "names", len(c.names))
		return nil
	})
}

// Len returns the number of known names.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.names)
}

// CachedName returns a known name.
func (c *Cache) CachedName(id uuid.UUID, isGroup bool) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	known, ok := c.names[id]
	return known.name, ok
}

// Resolve looks up id and calls done exactly once with the result, on
// another goroutine if the name is already known.
func (c *Cache) Resolve(id uuid.UUID, isGroup bool, done func(uuid.UUID, string)) {
	c.mu.Lock()
	if known, ok := c.names[id]; ok {
		c.mu.Unlock()
		go done(id, known.name)
		return
	}
	if outstanding, ok := c.pending[id]; ok {
		outstanding.callbacks = append(outstanding.callbacks, done)
		c.mu.Unlock()
		return
	}
	c.pending[id] = &lookup{
		isGroup:     isGroup,
		attempts:    1,
		nextAttempt: c.clock.Now().Add(c.retryInterval),
		callbacks:   []func(uuid.UUID, string){done},
	}
	c.mu.Unlock()

	c.request([]uuid.UUID{id}, isGroup)
}

func (c *Cache) request(ids []uuid.UUID, isGroup bool) {
	if err := c.backend.RequestNames(ids, isGroup); err != nil {
		c.logger.Warn("requesting names failed", "ids", len(ids), "group", isGroup, "error", err)
	}
}

// Deliver records a resolved name, persists it, and fires the waiting
// callbacks.
func (c *Cache) Deliver(ctx context.Context, id uuid.UUID, name string, isGroup bool) {
	c.mu.Lock()
	c.names[id] = entry{name: name, isGroup: isGroup}
	var callbacks []func(uuid.UUID, string)
	if outstanding, ok := c.pending[id]; ok {
		callbacks = outstanding.callbacks
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if c.pool != nil {
		if err := c.persist(ctx, id, name, isGroup); err != nil {
			c.logger.Warn("persisting name failed", "id", id, "error", err)
		}
	}
	for _, done := range callbacks {
		done(id, name)
	}
}

func (c *Cache) persist(ctx context.Context, id uuid.UUID, name string, isGroup bool) error {
	group := 0
	if isGroup {
		group = 1
	}
	return c.pool.Write(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			"INSERT OR REPLACE INTO names (id, is_group, name, resolved_at) VALUES (?, ?, ?, ?)",
			&sqlitex.ExecOptions{Args: []any{id.String(), group, name, c.clock.Now().Unix()}})
	})
}

// Pending returns the number of outstanding lookups.
func (c *Cache) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Run retries outstanding lookups until ctx is done.
func (c *Cache) Run(ctx context.Context) error {
	ticker := c.clock.NewTicker(c.retryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.retry()
		}
	}
}

// retry re-requests due lookups and gives up on exhausted ones.
func (c *Cache) retry() {
	now := c.clock.Now()
	var agents, groups []uuid.UUID
	type abandoned struct {
		id        uuid.UUID
		callbacks []func(uuid.UUID, string)
	}
	var expired []abandoned

	c.mu.Lock()
	for id, outstanding := range c.pending {
		if now.Before(outstanding.nextAttempt) {
			continue
		}
		if outstanding.attempts >= c.maxAttempts {
			expired = append(expired, abandoned{id, outstanding.callbacks})
			delete(c.pending, id)
			continue
		}
		outstanding.attempts++
		outstanding.nextAttempt = now.Add(c.retryInterval)
		if outstanding.isGroup {
			groups = append(groups, id)
		} else {
			agents = append(agents, id)
		}
	}
	c.mu.Unlock()

	if len(agents) > 0 {
		c.request(agents, false)
	}
	if len(groups) > 0 {
		c.request(groups, true)
	}
	for _, lost := range expired {
		c.logger.Debug("giving up on name", "id", lost.id, "attempts", c.maxAttempts)
		for _, done := range lost.callbacks {
			done(lost.id, UnknownName)
		}
	}
}
