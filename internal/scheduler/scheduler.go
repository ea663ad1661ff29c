// Package scheduler drives the periodic refresh of forecast and
// astronomical data for a single configured location.
//
// A single goroutine owns the dataset. Remote fetches run concurrently but
// resolve onto a results channel that the owning loop drains, so merges,
// expiry, current-conditions selection, and cache writes never race. Each
// fetch carries the query context it was issued under; a result whose
// context no longer matches the active one is discarded, which makes a
// location change safe while a request is in flight.
package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/overcastlab/meteod/internal/domain"
	"github.com/overcastlab/meteod/internal/observability"
)

// Fetcher retrieves raw weather documents from the remote service.
type Fetcher interface {
	FetchForecast(ctx context.Context, qc domain.QueryContext) ([]byte, error)
	FetchAstro(ctx context.Context, qc domain.QueryContext, date time.Time) ([]byte, error)
}

// Parser turns raw documents into domain values.
type Parser interface {
	ParseForecast(body []byte) ([]domain.ForecastInterval, error)
	ParseAstro(body []byte) (*domain.AstroSnapshot, error)
}

// CacheStore persists the dataset between runs.
type CacheStore interface {
	Save(ds *domain.WeatherDataset, qc domain.QueryContext, now time.Time) error
	Seed(ds *domain.WeatherDataset, qc domain.QueryContext, now time.Time) int
}

// Listener is notified when derived current conditions change.
type Listener interface {
	ConditionsUpdated(ctx context.Context, snap Snapshot) error
}

// Snapshot is the externally visible state published after each
// recomputation. It is immutable once published.
type Snapshot struct {
	LocationName string                   `json:"location_name,omitempty"`
	Latitude     string                   `json:"latitude"`
	Longitude    string                   `json:"longitude"`
	Current      *domain.ForecastInterval `json:"current,omitempty"`
	Astro        *domain.AstroSnapshot    `json:"astro,omitempty"`
	Night        bool                     `json:"night"`
	Timeslices   int                      `json:"timeslices"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

// Options carries the refresh cadences. Zero values are replaced with the
// defaults used in production.
type Options struct {
	TickInterval       time.Duration
	DataMaxAge         time.Duration
	DataRetention      time.Duration
	ConditionsInterval time.Duration
}

func (o *Options) applyDefaults() {
	if o.TickInterval <= 0 {
		o.TickInterval = 15 * time.Second
	}
	if o.DataMaxAge <= 0 {
		o.DataMaxAge = 20 * time.Minute
	}
	if o.DataRetention <= 0 {
		o.DataRetention = 48 * time.Hour
	}
	if o.ConditionsInterval <= 0 {
		o.ConditionsInterval = 5 * time.Minute
	}
}

const (
	kindForecast = "forecast"
	kindAstro    = "astro"
)

type fetchResult struct {
	kind     string
	qc       domain.QueryContext
	body     []byte
	err      error
	duration time.Duration
}

type contextUpdate struct {
	qc    domain.QueryContext
	clear bool
}

// Scheduler owns the weather dataset and refreshes it on a fixed tick.
type Scheduler struct {
	clock     clockwork.Clock
	opts      Options
	fetcher   Fetcher
	parser    Parser
	store     CacheStore
	listeners []Listener
	logger    *slog.Logger
	metrics   *observability.Metrics

	qc    domain.QueryContext
	ds    *domain.WeatherDataset
	astro *domain.AstroSnapshot

	lastForecast   time.Time
	lastAstro      time.Time
	lastConditions time.Time

	forecastInFlight bool
	astroInFlight    bool

	night    bool
	hasNight bool

	results chan fetchResult
	updates chan contextUpdate

	ready    atomic.Bool
	snapshot atomic.Pointer[Snapshot]
}

// New builds a Scheduler for the given query context. Pass a fake clock in
// tests to step through ticks deterministically.
func New(
	clock clockwork.Clock,
	opts Options,
	qc domain.QueryContext,
	fetcher Fetcher,
	parser Parser,
	store CacheStore,
	listeners []Listener,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Scheduler {
	opts.applyDefaults()
	return &Scheduler{
		clock:     clock,
		opts:      opts,
		fetcher:   fetcher,
		parser:    parser,
		store:     store,
		listeners: listeners,
		logger:    logger,
		metrics:   metrics,
		qc:        qc,
		ds:        domain.NewDataset(),
		results:   make(chan fetchResult),
		updates:   make(chan contextUpdate),
	}
}

// CheckReadiness reports whether at least one forecast merge or cache seed
// has populated the dataset.
func (s *Scheduler) CheckReadiness() bool {
	return s.ready.Load()
}

// Conditions returns the last published snapshot, or nil before the first
// recomputation.
func (s *Scheduler) Conditions() *Snapshot {
	return s.snapshot.Load()
}

// UpdateContext switches the scheduler to a new query context. All refresh
// timers are invalidated so the next tick refetches everything. With clear
// set the dataset is dropped and reseeded from the cache for the new
// location; without it the existing timeslices are kept, which suits
// changes that only affect presentation.
func (s *Scheduler) UpdateContext(ctx context.Context, qc domain.QueryContext, clear bool) error {
	select {
	case s.updates <- contextUpdate{qc: qc, clear: clear}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SeedFromCache populates the dataset from the on-disk cache before the
// loop starts. Called once from main; not safe once Run is active.
func (s *Scheduler) SeedFromCache() {
	if s.store == nil {
		return
	}
	now := s.clock.Now()
	if n := s.store.Seed(s.ds, s.qc, now); n > 0 {
		s.metrics.Timeslices.Set(float64(s.ds.Len()))
		s.ready.Store(true)
		s.logger.Info("dataset seeded from cache", "timeslices", n)
	}
}

// Run executes the refresh loop until ctx is cancelled. An immediate first
// tick precedes the periodic cadence so startup does not wait a full
// interval for data.
func (s *Scheduler) Run(ctx context.Context) error {
	s.metrics.SchedulerRunning.Set(1)
	defer s.metrics.SchedulerRunning.Set(0)

	ticker := s.clock.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()

	s.logger.Info("scheduler started",
		"tick_interval", s.opts.TickInterval,
		"data_max_age", s.opts.DataMaxAge,
		"latitude", s.qc.Latitude,
		"longitude", s.qc.Longitude)

	s.tick(ctx, s.clock.Now())

	for {
		select {
		case <-ctx.Done():
			s.drain()
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case now := <-ticker.Chan():
			s.tick(ctx, now)
		case res := <-s.results:
			s.handleResult(ctx, res)
		case upd := <-s.updates:
			s.applyUpdate(upd)
		}
	}
}

// drain waits for in-flight fetches so their goroutines do not outlive Run.
func (s *Scheduler) drain() {
	for s.forecastInFlight || s.astroInFlight {
		res := <-s.results
		switch res.kind {
		case kindForecast:
			s.forecastInFlight = false
		case kindAstro:
			s.astroInFlight = false
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	if s.needAstro(now) && !s.astroInFlight {
		s.astroInFlight = true
		s.startFetch(ctx, kindAstro, now)
	}

	if s.needForecast(now) {
		if !s.forecastInFlight {
			s.forecastInFlight = true
			s.startFetch(ctx, kindForecast, now)
		}
		// The merge recomputes conditions anyway.
		return
	}

	if s.needConditions(now) {
		s.recomputeConditions(ctx, now)
		return
	}

	// Sunrise and sunset rarely line up with a refresh, so the day/night
	// flag is re-evaluated on plain ticks too.
	if s.updateNight(now) {
		s.publish(ctx, now)
	}
}

// needAstro is true before the first astro fetch and whenever the local
// calendar day has rolled over since the last one.
func (s *Scheduler) needAstro(now time.Time) bool {
	if s.lastAstro.IsZero() {
		return true
	}
	zone := s.qc.Zone()
	y1, m1, d1 := s.lastAstro.In(zone).Date()
	y2, m2, d2 := now.In(zone).Date()
	return y1 != y2 || m1 != m2 || d1 != d2
}

func (s *Scheduler) needForecast(now time.Time) bool {
	return s.lastForecast.IsZero() || now.Sub(s.lastForecast) >= s.opts.DataMaxAge
}

// needConditions gates recomputation to one run per grid slot: enough time
// must have passed and the local minute must sit on the 5-minute grid.
func (s *Scheduler) needConditions(now time.Time) bool {
	if s.ds.Len() == 0 {
		return false
	}
	if s.lastConditions.IsZero() {
		return true
	}
	local := now.In(s.qc.Zone())
	return now.Sub(s.lastConditions) > s.opts.ConditionsInterval && local.Minute()%5 == 0
}

func (s *Scheduler) startFetch(ctx context.Context, kind string, now time.Time) {
	qc := s.qc
	go func() {
		var body []byte
		var err error
		switch kind {
		case kindForecast:
			body, err = s.fetcher.FetchForecast(ctx, qc)
		case kindAstro:
			body, err = s.fetcher.FetchAstro(ctx, qc, now.In(qc.Zone()))
		}
		res := fetchResult{kind: kind, qc: qc, body: body, err: err, duration: s.clock.Since(now)}
		select {
		case s.results <- res:
		case <-ctx.Done():
			// Run drains the channel on shutdown; push anyway so the
			// in-flight flag clears.
			s.results <- res
		}
	}()
}

func (s *Scheduler) handleResult(ctx context.Context, res fetchResult) {
	switch res.kind {
	case kindForecast:
		s.forecastInFlight = false
	case kindAstro:
		s.astroInFlight = false
	}

	if !res.qc.Equal(s.qc) {
		s.metrics.Fetches.WithLabelValues(res.kind, "discarded").Inc()
		s.logger.Debug("discarding fetch result for stale context", "kind", res.kind)
		return
	}

	s.metrics.FetchDuration.WithLabelValues(res.kind).Observe(res.duration.Seconds())

	if res.err != nil {
		s.metrics.Fetches.WithLabelValues(res.kind, "error").Inc()
		s.logger.Warn("fetch failed", "kind", res.kind, "error", res.err)
		return
	}

	now := s.clock.Now()
	switch res.kind {
	case kindForecast:
		s.mergeForecast(ctx, res.body, now)
	case kindAstro:
		s.mergeAstro(ctx, res.body, now)
	}
}

func (s *Scheduler) mergeForecast(ctx context.Context, body []byte, now time.Time) {
	intervals, err := s.parser.ParseForecast(body)
	if err != nil {
		s.metrics.Fetches.WithLabelValues(kindForecast, "error").Inc()
		s.logger.Warn("forecast document rejected", "error", err)
		return
	}
	s.metrics.Fetches.WithLabelValues(kindForecast, "success").Inc()

	merged := 0
	for _, fi := range intervals {
		if s.ds.Upsert(fi) {
			merged++
		}
	}
	expired := s.ds.Expire(now, s.opts.DataRetention)

	s.metrics.MergedTimeslices.Add(float64(len(intervals)))
	s.metrics.ExpiredTimeslices.Add(float64(expired))
	s.metrics.Timeslices.Set(float64(s.ds.Len()))

	s.lastForecast = now
	s.ready.Store(true)

	s.logger.Info("forecast merged",
		"parsed", len(intervals),
		"inserted", merged,
		"expired", expired,
		"timeslices", s.ds.Len())

	s.recomputeConditions(ctx, now)
	s.saveCache(now)
}

func (s *Scheduler) mergeAstro(ctx context.Context, body []byte, now time.Time) {
	snap, err := s.parser.ParseAstro(body)
	if err != nil {
		s.metrics.Fetches.WithLabelValues(kindAstro, "error").Inc()
		s.logger.Warn("astro document rejected", "error", err)
		return
	}
	s.metrics.Fetches.WithLabelValues(kindAstro, "success").Inc()

	s.astro = snap
	s.lastAstro = now
	s.logger.Info("astronomical data replaced",
		"sunrise", snap.Sunrise,
		"sunset", snap.Sunset,
		"moon_phase", snap.MoonPhase)

	if s.updateNight(now) {
		s.publish(ctx, now)
	}
}

// recomputeConditions reselects the interval representing "now" and
// publishes a fresh snapshot.
func (s *Scheduler) recomputeConditions(ctx context.Context, now time.Time) {
	local := now.In(s.qc.Zone())
	cur := s.ds.RefreshCurrent(local)
	s.lastConditions = now
	s.metrics.ConditionsRecomputed.Inc()

	if cur != nil {
		s.logger.Debug("current conditions selected",
			"start", cur.Start, "end", cur.End, "point", cur.Point)
	}
	s.updateNight(now)
	s.publish(ctx, now)
}

// updateNight refreshes the day/night flag and reports whether it flipped.
func (s *Scheduler) updateNight(now time.Time) bool {
	night := s.astro.IsNight(now.In(s.qc.Zone()))
	if s.hasNight && night == s.night {
		return false
	}
	transition := s.hasNight
	s.night = night
	s.hasNight = true
	if transition {
		s.metrics.DayNightTransitions.Inc()
		s.logger.Info("day/night status changed", "night", night)
	}
	return transition
}

func (s *Scheduler) publish(ctx context.Context, now time.Time) {
	snap := Snapshot{
		LocationName: s.qc.LocationName,
		Latitude:     s.qc.Latitude,
		Longitude:    s.qc.Longitude,
		Current:      s.ds.Current(),
		Astro:        s.astro,
		Night:        s.night,
		Timeslices:   s.ds.Len(),
		UpdatedAt:    now,
	}
	s.snapshot.Store(&snap)

	for _, l := range s.listeners {
		if err := l.ConditionsUpdated(ctx, snap); err != nil {
			s.logger.Warn("conditions listener failed", "error", err)
		}
	}
}

func (s *Scheduler) saveCache(now time.Time) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(s.ds, s.qc, now); err != nil {
		s.metrics.CacheEvents.WithLabelValues("write", "error").Inc()
		s.logger.Warn("cache write failed", "error", err)
		return
	}
	s.metrics.CacheEvents.WithLabelValues("write", "ok").Inc()
}

func (s *Scheduler) applyUpdate(upd contextUpdate) {
	changed := !upd.qc.Equal(s.qc)
	s.qc = upd.qc
	s.lastForecast = time.Time{}
	s.lastAstro = time.Time{}
	s.lastConditions = time.Time{}
	s.hasNight = false

	if upd.clear {
		s.ds.Clear()
		s.astro = nil
		s.snapshot.Store(nil)
		s.ready.Store(false)
		if s.store != nil {
			now := s.clock.Now()
			if n := s.store.Seed(s.ds, s.qc, now); n > 0 {
				s.ready.Store(true)
				s.logger.Info("dataset reseeded from cache", "timeslices", n)
			}
		}
		s.metrics.Timeslices.Set(float64(s.ds.Len()))
	}

	s.logger.Info("query context updated",
		"latitude", s.qc.Latitude,
		"longitude", s.qc.Longitude,
		"identity_changed", changed,
		"cleared", upd.clear)
}
