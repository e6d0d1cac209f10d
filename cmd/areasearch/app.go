// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/areasearch/lib/areasearch"
	"github.com/bureau-foundation/areasearch/lib/blocklist"
	"github.com/bureau-foundation/areasearch/lib/clock"
	"github.com/bureau-foundation/areasearch/lib/config"
	"github.com/bureau-foundation/areasearch/lib/export"
	"github.com/bureau-foundation/areasearch/lib/namecache"
	"github.com/bureau-foundation/areasearch/lib/regionclient"
	"github.com/bureau-foundation/areasearch/lib/resultview"
	"github.com/bureau-foundation/areasearch/lib/session"
	"github.com/bureau-foundation/areasearch/lib/sqlitepool"
	"github.com/bureau-foundation/areasearch/lib/wire"
	"github.com/bureau-foundation/areasearch/lib/world"
)

// settlePollInterval is how often --once checks whether the search has
// settled.
const settlePollInterval = 50 * time.Millisecond

// errCircuitClosed is returned by serve when the grid hangs up.
var errCircuitClosed = errors.New("grid closed the circuit")

// app wires one search session: the circuit to the grid, the world
// state it maintains, persistent names and blocks, and the search loop
// projecting into the result table.
type app struct {
	logger     *slog.Logger
	clock      clock.Clock
	exportPath string

	objects *world.ObjectList
	regions *world.RegionList

	namePool  *sqlitepool.Pool
	blockPool *sqlitepool.Pool
	names     *namecache.Cache
	blocked   *blocklist.List

	client  *regionclient.Client
	filters *areasearch.FilterState
	table   *resultview.Table
	loop    *areasearch.Loop
}

var _ resultview.Controller = (*app)(nil)

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, exportPath string) (_ *app, err error) {
	a := &app{
		logger:     logger,
		clock:      clock.Real(),
		exportPath: exportPath,
		objects:    world.NewObjectList(),
		regions:    world.NewRegionList(),
		filters:    areasearch.NewFilterState(cfg.Filters),
		table:      resultview.NewTable(),
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.namePool, err = sqlitepool.Open(sqlitepool.Config{
		Path:    cfg.Paths.NameCache,
		Schemas: []string{namecache.Schema},
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	a.blockPool, err = sqlitepool.Open(sqlitepool.Config{
		Path:    cfg.Paths.BlockList,
		Schemas: []string{blocklist.Schema},
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	a.blocked, err = blocklist.Open(ctx, a.blockPool, a.clock)
	if err != nil {
		return nil, err
	}
	a.table.SetBlocked(a.blocked.Contains)

	// The callbacks below run on the client's reader goroutine, which
	// starts in serve after the loop and cache exist.
	a.client, err = regionclient.Dial(ctx, regionclient.Config{
		Address:         cfg.Grid.Address,
		AgentName:       cfg.Grid.AgentName,
		Objects:         a.objects,
		Regions:         a.regions,
		Logger:          logger.With("component", "regionclient"),
		OnRegionChanged: func() { a.loop.NotifyRegionChanged() },
		OnProperties:    func(region world.RegionHandle, entries []areasearch.Properties) { a.loop.DeliverReply(region, entries) },
		OnNames:         func(names []wire.NameEntry, isGroup bool) { a.deliverNames(ctx, names, isGroup) },
	})
	if err != nil {
		return nil, err
	}

	a.names, err = namecache.Open(ctx, namecache.Config{
		Pool:          a.namePool,
		Backend:       a.client,
		Clock:         a.clock,
		Logger:        logger.With("component", "namecache"),
		RetryInterval: cfg.Names.Retry(),
		MaxAttempts:   cfg.Names.MaxAttempts,
		MaxAge:        cfg.Names.Age(),
	})
	if err != nil {
		return nil, err
	}

	search, err := areasearch.New(areasearch.Config{
		Objects:         a.objects,
		Regions:         a.regions,
		Transport:       a.client,
		Names:           a.names,
		Filters:         a.filters,
		Sink:            a.table,
		Status:          a.table.SetStatus,
		Clock:           a.clock,
		Logger:          logger.With("component", "areasearch"),
		ScanInterval:    cfg.Search.Scan(),
		RefreshInterval: cfg.Search.Refresh(),
		ReplyTimeout:    cfg.Search.Timeout(),
		Limits:          cfg.Search.Limits,
	})
	if err != nil {
		return nil, err
	}
	a.loop = areasearch.NewLoop(search, cfg.Search.Tick())
	return a, nil
}

func (a *app) deliverNames(ctx context.Context, names []wire.NameEntry, isGroup bool) {
	for _, entry := range names {
		a.names.Deliver(ctx, entry.ID, entry.Name, isGroup)
	}
}

// serve runs the circuit reader, the name cache retries, and the
// search loop until ctx is done or any of them stops.
func (a *app) serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runners := []struct {
		name string
		run  func(context.Context) error
	}{
		{"circuit", a.client.Run},
		{"name cache", a.names.Run},
		{"search loop", a.loop.Run},
	}

	errs := make(chan error, len(runners))
	var wg sync.WaitGroup
	for _, runner := range runners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := runner.run(ctx)
			if err == nil && ctx.Err() == nil {
				err = errCircuitClosed
			}
			if err != nil && ctx.Err() == nil {
				errs <- fmt.Errorf("%s: %w", runner.name, err)
			}
			cancel()
		}()
	}
	wg.Wait()
	close(errs)
	return <-errs
}

// teleport resolves target against the known regions, or as grid
// coordinates "x,y", and moves the agent there once it has arrived
// somewhere.
func (a *app) teleport(ctx context.Context, target string) error {
	if err := a.waitFor(ctx, 0, func() bool {
		_, ok := a.regions.Current()
		return ok
	}); err != nil {
		return fmt.Errorf("waiting for arrival: %w", err)
	}

	handle, err := a.resolveRegion(target)
	if err != nil {
		return err
	}
	if err := a.client.Teleport(ctx, handle); err != nil {
		return fmt.Errorf("teleporting to %s: %w", target, err)
	}
	a.logger.Info("teleported", "region", handle)
	return nil
}

func (a *app) resolveRegion(target string) (world.RegionHandle, error) {
	if region, ok := a.regions.FindByName(target); ok {
		return region.Handle, nil
	}
	xs, ys, ok := strings.Cut(target, ",")
	if !ok {
		return 0, fmt.Errorf("unknown region %q: give a neighbouring region name or grid coordinates x,y", target)
	}
	x, err := strconv.ParseUint(strings.TrimSpace(xs), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("region x coordinate %q: %w", xs, err)
	}
	y, err := strconv.ParseUint(strings.TrimSpace(ys), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("region y coordinate %q: %w", ys, err)
	}
	return world.HandleFromGrid(uint32(x), uint32(y)), nil
}

// waitSettled waits until every searchable object has its properties
// and every listed row has its names, or until timeout passes.
// Reaching the timeout is not an error; the table is printed as is.
func (a *app) waitSettled(ctx context.Context, timeout time.Duration) error {
	err := a.waitFor(ctx, timeout, a.settled)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		a.logger.Warn("search did not settle before the timeout", "timeout", timeout, "status", a.table.Status())
		return nil
	}
	return err
}

func (a *app) settled() bool {
	current, ok := a.regions.Current()
	if !ok {
		return false
	}
	status := a.table.Status()
	if status.Region != current.Handle || status.Searchable == 0 || status.Pending > 0 {
		return false
	}
	for _, entry := range a.table.Entries() {
		if entry.Row.Owner == areasearch.PlaceholderName || entry.Row.Group == areasearch.PlaceholderName {
			return false
		}
	}
	return true
}

// waitFor polls condition until it holds, ctx is done, or timeout (if
// positive) passes.
func (a *app) waitFor(ctx context.Context, timeout time.Duration, condition func() bool) error {
	var deadline <-chan time.Time
	if timeout > 0 {
		deadline = a.clock.After(timeout)
	}
	ticker := a.clock.NewTicker(settlePollInterval)
	defer ticker.Stop()
	for !condition() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return context.DeadlineExceeded
		case <-ticker.C:
		}
	}
	return nil
}

// Filters implements resultview.Controller.
func (a *app) Filters() areasearch.Filters { return a.filters.Filters() }

// SetFilters implements resultview.Controller. The loop picks the
// change up on its next tick.
func (a *app) SetFilters(filters areasearch.Filters) { a.filters.Set(filters) }

// Refresh implements resultview.Controller.
func (a *app) Refresh() { a.loop.Refresh() }

// Track implements resultview.Controller.
func (a *app) Track(id uuid.UUID) (areasearch.Target, error) {
	var target areasearch.Target
	var trackErr error
	if err := a.loop.Do(context.Background(), func(search *areasearch.Search) {
		target, trackErr = search.Track(id)
	}); err != nil {
		return areasearch.Target{}, err
	}
	return target, trackErr
}

// ToggleBlock implements resultview.Controller.
func (a *app) ToggleBlock(id uuid.UUID, name string) (bool, error) {
	return a.blocked.Toggle(context.Background(), id, name)
}

// Export implements resultview.Controller.
func (a *app) Export() (string, error) {
	path := a.exportPath
	if path == "" {
		path = defaultExportPath(a.clock.Now())
	}
	region, _ := a.regions.Current()
	if err := export.Write(path, a.table.Snapshot(region.Name, a.clock.Now())); err != nil {
		return "", err
	}
	a.logger.Info("exported results", "path", path, "rows", a.table.Len())
	return path, nil
}

// saveSession records the current filters and region for the next
// interactive run.
func (a *app) saveSession(path string) error {
	region, _ := a.regions.Current()
	return session.Write(path, session.State{
		Filters: a.filters.Filters(),
		Region:  region.Name,
		SavedAt: a.clock.Now(),
	})
}

// Close releases the circuit and both databases.
func (a *app) Close() {
	if a.client != nil {
		a.client.Close()
	}
	if a.namePool != nil {
		if err := a.namePool.Close(); err != nil {
			a.logger.Warn("closing name cache", "error", err)
		}
	}
	if a.blockPool != nil {
		if err := a.blockPool.Close(); err != nil {
			a.logger.Warn("closing block list", "error", err)
		}
	}
}
