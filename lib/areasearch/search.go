// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package areasearch

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/areasearch/lib/clock"
	"github.com/bureau-foundation/areasearch/lib/world"
)

const (
	// DefaultScanInterval is the minimum time between sweeps.
	DefaultScanInterval = time.Second
	// DefaultRefreshInterval replaces DefaultScanInterval while a
	// refresh is pending.
	DefaultRefreshInterval = 250 * time.Millisecond
	// DefaultReplyTimeout is how long outstanding requests may go
	// without any reply before they are requeued.
	DefaultReplyTimeout = 30 * time.Second
)

// Limits bound the request traffic sent to a region.
type Limits struct {
	// MaxObjectsPerPacket is the largest batch in one select or
	// deselect message.
	MaxObjectsPerPacket int `yaml:"max_objects_per_packet"`
	// MaxInFlight caps SENT records per region.
	MaxInFlight int `yaml:"max_in_flight"`
	// MaxPerCycle caps records dispatched to one region per cycle.
	MaxPerCycle int `yaml:"max_per_cycle"`
}

// DefaultLimits returns the limits regions are known to tolerate.
func DefaultLimits() Limits {
	const packet = 255
	return Limits{
		MaxObjectsPerPacket: packet,
		MaxInFlight:         packet + 128,
		MaxPerCycle:         3*packet - 3,
	}
}

// Validate checks that every limit is positive.
func (l Limits) Validate() error {
	if l.MaxObjectsPerPacket <= 0 || l.MaxInFlight <= 0 || l.MaxPerCycle <= 0 {
		return errors.New("areasearch: limits must be positive")
	}
	return nil
}

// Config wires a Search to its collaborators.
type Config struct {
	Objects   ObjectDirectory
	Regions   RegionDirectory
	Transport PropertyTransport
	Names     NameResolver
	Filters   FilterInputs
	Sink      ResultSink

	// Status, if set, receives a snapshot whenever the counters
	// change.
	Status func(Status)

	// Clock defaults to clock.Real().
	Clock clock.Clock
	// Logger defaults to a discarding logger.
	Logger *slog.Logger

	// Zero durations and limits take their defaults.
	ScanInterval    time.Duration
	RefreshInterval time.Duration
	ReplyTimeout    time.Duration
	Limits          Limits
}

// Search is the discovery and reconciliation engine. All methods must
// be called from one goroutine; see Loop.
type Search struct {
	objects   ObjectDirectory
	regions   RegionDirectory
	transport PropertyTransport
	names     NameResolver
	inputs    FilterInputs
	sink      ResultSink
	onStatus  func(Status)
	clock     clock.Clock
	logger    *slog.Logger

	scanInterval    time.Duration
	refreshInterval time.Duration
	replyTimeout    time.Duration
	limits          Limits

	// post runs name callbacks on the owning goroutine. Nil runs
	// them inline.
	post func(func())

	store    *Store
	filters  Filters
	inFlight map[world.RegionHandle]int
	// requested counts NEED and SENT records.
	requested  int
	listed     int
	searchable int

	active         bool
	paused         bool
	refreshPending bool
	needsDispatch  bool
	lastScan       time.Time
	lastReply      time.Time

	region    world.RegionHandle
	hasRegion bool

	// pendingNames deduplicates outstanding name lookups. generation
	// advances on Reset so late callbacks from before the reset do not
	// clear markers set after it.
	pendingNames map[uuid.UUID]struct{}
	generation   uint64
	// resolved holds names delivered to OnNameResolved. Names do not
	// depend on the region, so it survives Reset.
	resolved map[uuid.UUID]string
}

// New validates cfg and returns an inactive Search.
func New(cfg Config) (*Search, error) {
	if cfg.Objects == nil || cfg.Regions == nil || cfg.Transport == nil ||
		cfg.Names == nil || cfg.Filters == nil || cfg.Sink == nil {
		return nil, errors.New("areasearch: objects, regions, transport, names, filters, and sink are required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = DefaultScanInterval
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = DefaultReplyTimeout
	}
	if cfg.Limits == (Limits{}) {
		cfg.Limits = DefaultLimits()
	}
	if err := cfg.Limits.Validate(); err != nil {
		return nil, err
	}

	return &Search{
		objects:         cfg.Objects,
		regions:         cfg.Regions,
		transport:       cfg.Transport,
		names:           cfg.Names,
		inputs:          cfg.Filters,
		sink:            cfg.Sink,
		onStatus:        cfg.Status,
		clock:           cfg.Clock,
		logger:          cfg.Logger,
		scanInterval:    cfg.ScanInterval,
		refreshInterval: cfg.RefreshInterval,
		replyTimeout:    cfg.ReplyTimeout,
		limits:          cfg.Limits,
		store:           NewStore(),
		filters:         cfg.Filters.Filters(),
		inFlight:        make(map[world.RegionHandle]int),
		pendingNames:    make(map[uuid.UUID]struct{}),
		resolved:        make(map[uuid.UUID]string),
		lastReply:       cfg.Clock.Now(),
	}, nil
}

// Start activates the search and requests an immediate sweep.
func (s *Search) Start() {
	if s.active {
		return
	}
	s.active = true
	s.refreshPending = true
	s.lastReply = s.clock.Now()
	s.logger.Info("area search started")
}

// Stop deactivates the search. Cached records are kept; replies are
// still reconciled while stopped.
func (s *Search) Stop() {
	if !s.active {
		return
	}
	s.active = false
	s.logger.Info("area search stopped")
}

// Active reports whether the search is running.
func (s *Search) Active() bool { return s.active }

// Refresh discards everything and rescans on the next tick.
func (s *Search) Refresh() {
	s.Reset()
	s.refreshPending = true
}

// Reset clears the store, the counters, and the result sink.
func (s *Search) Reset() {
	s.store.Clear()
	clear(s.inFlight)
	clear(s.pendingNames)
	s.generation++
	s.requested = 0
	s.listed = 0
	s.searchable = 0
	s.needsDispatch = false
	s.lastScan = time.Time{}
	s.lastReply = s.clock.Now()
	s.sink.Clear()
	s.publishStatus()
}

// CheckRegion detects a change of the agent's region. Crossing into a
// neighbour keeps the cache and schedules a refresh; any other change
// (a teleport, or the first region seen) resets the search.
func (s *Search) CheckRegion() {
	current, ok := s.regions.Current()
	if !ok {
		return
	}
	if s.hasRegion && current.Handle == s.region {
		return
	}
	previous, hadRegion := s.region, s.hasRegion
	s.region, s.hasRegion = current.Handle, true

	if hadRegion && s.regions.IsNeighbor(previous, current.Handle) {
		s.logger.Info("crossed into neighbouring region",
			"from", previous, "to", current.Handle, "region", current.Name)
		s.refreshPending = true
		return
	}
	if hadRegion {
		s.logger.Info("region changed, clearing search",
			"from", previous, "to", current.Handle, "region", current.Name)
	}
	s.Reset()
	s.refreshPending = true
}

// Tick runs one cycle: region check, filter poll, sweep, dispatch.
func (s *Search) Tick() {
	if !s.active {
		return
	}
	now := s.clock.Now()
	s.CheckRegion()
	s.pollFilters()
	s.scan(now)
	s.dispatch(now)
}

// NeedsDispatch reports whether NEED records were left behind by a
// capped dispatch cycle.
func (s *Search) NeedsDispatch() bool { return s.needsDispatch }

// Status returns the current counters.
func (s *Search) Status() Status {
	status := Status{
		Listed:     s.listed,
		Pending:    s.requested,
		Searchable: s.searchable,
		Known:      s.store.Len(),
		InFlight:   s.store.Count(StateSent),
	}
	if s.hasRegion {
		status.Region = s.region
	}
	return status
}

// InFlight returns the number of SENT records for region.
func (s *Search) InFlight(region world.RegionHandle) int {
	return s.inFlight[region]
}

// Record returns a copy of the record for id.
func (s *Search) Record(id uuid.UUID) (Record, bool) {
	record := s.store.Get(id)
	if record == nil {
		return Record{}, false
	}
	return *record, true
}

// Records returns copies of every record in insertion order.
func (s *Search) Records() []Record {
	records := make([]Record, 0, s.store.Len())
	s.store.Each(func(record *Record) bool {
		records = append(records, *record)
		return true
	})
	return records
}

// Target describes an object the user asked to track.
type Target struct {
	ID       uuid.UUID
	Name     string
	Region   world.RegionHandle
	Position world.Vector3
}

// Track returns the live position of a listed object.
func (s *Search) Track(id uuid.UUID) (Target, error) {
	record := s.store.Get(id)
	if record == nil || !record.Listed {
		return Target{}, errors.New("areasearch: object is not listed")
	}
	object := s.objects.FindObject(id)
	if object == nil {
		return Target{}, errors.New("areasearch: object is no longer in view")
	}
	return Target{ID: id, Name: record.Name, Region: object.Region, Position: object.Position}, nil
}

func (s *Search) publishStatus() {
	if s.onStatus != nil {
		s.onStatus(s.Status())
	}
}

func (s *Search) pollFilters() {
	filters := s.inputs.Filters()
	if filters == s.filters {
		return
	}
	s.filters = filters
	s.logger.Debug("filters changed", "filters", filters)
	s.refreshPending = true
	s.reproject()
	s.publishStatus()
}
