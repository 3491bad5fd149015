// Package data computes the catalog summary. Page and API reads go to the
// store every time; the last computed snapshot is kept in an atomic pointer
// for health checks and metrics.
package data

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/giygas/druginteractions-api/entities"
	"github.com/giygas/druginteractions-api/logging"
	"github.com/giygas/druginteractions-api/metrics"
)

// StatsSource is the part of the store the summary is computed from. Summary
// must read one consistent state of the database.
type StatsSource interface {
	Summary(ctx context.Context) (entities.Stats, error)
}

// StatsContainer serves the catalog summary. Stats always reads the store;
// Snapshot reuses the last result for up to maxAge.
type StatsContainer struct {
	source StatsSource
	maxAge time.Duration

	snapshot        atomic.Pointer[entities.Stats]
	lastRefreshed   atomic.Value // time.Time
	stale           atomic.Bool
	serverStartTime atomic.Value // time.Time

	// refreshMu collapses concurrent recomputations into one
	refreshMu sync.Mutex
}

// NewStatsContainer creates an empty container. A zero maxAge makes every
// Snapshot recompute.
func NewStatsContainer(source StatsSource, maxAge time.Duration) *StatsContainer {
	sc := &StatsContainer{source: source, maxAge: maxAge}
	sc.lastRefreshed.Store(time.Time{})
	sc.serverStartTime.Store(time.Time{})
	sc.stale.Store(true)
	return sc
}

// Stats reads the summary from the store and records it as the new snapshot
func (sc *StatsContainer) Stats(ctx context.Context) (entities.Stats, error) {
	return sc.Refresh(ctx)
}

// Snapshot returns the last computed summary, recomputing it when stale or
// older than maxAge
func (sc *StatsContainer) Snapshot(ctx context.Context) (entities.Stats, error) {
	if s := sc.snapshot.Load(); s != nil && !sc.expired() {
		return *s, nil
	}

	sc.refreshMu.Lock()
	defer sc.refreshMu.Unlock()

	// Another caller may have refreshed while we waited
	if s := sc.snapshot.Load(); s != nil && !sc.expired() {
		return *s, nil
	}
	return sc.refreshLocked(ctx)
}

// Refresh recomputes the summary regardless of its age
func (sc *StatsContainer) Refresh(ctx context.Context) (entities.Stats, error) {
	sc.refreshMu.Lock()
	defer sc.refreshMu.Unlock()
	return sc.refreshLocked(ctx)
}

func (sc *StatsContainer) refreshLocked(ctx context.Context) (entities.Stats, error) {
	start := time.Now()
	// Cleared before reading so a write landing mid-refresh marks it stale again
	sc.stale.Store(false)

	stats, err := sc.compute(ctx)
	if err != nil {
		sc.stale.Store(true)
		metrics.StatsRefreshErrors.Inc()
		return entities.Stats{}, err
	}

	sc.snapshot.Store(&stats)
	sc.lastRefreshed.Store(time.Now())
	metrics.StatsRefreshDuration.Observe(time.Since(start).Seconds())
	metrics.RecordCatalog(stats)

	logging.Debug("Catalog summary refreshed",
		"drugs", stats.TotalDrugs,
		"interactions", stats.TotalInteractions,
		"duration", time.Since(start),
	)
	return stats, nil
}

func (sc *StatsContainer) compute(ctx context.Context) (entities.Stats, error) {
	stats, err := sc.source.Summary(ctx)
	if err != nil {
		return entities.Stats{}, err
	}
	if stats.SeverityBreakdown == nil {
		stats.SeverityBreakdown = []entities.SeverityCount{}
	}
	return stats, nil
}

func (sc *StatsContainer) expired() bool {
	if sc.stale.Load() {
		return true
	}
	return time.Since(sc.GetLastRefreshed()) >= sc.maxAge
}

// Invalidate forces the next Snapshot call to recompute
func (sc *StatsContainer) Invalidate() {
	sc.stale.Store(true)
}

// GetLastRefreshed returns when the summary was last computed
func (sc *StatsContainer) GetLastRefreshed() time.Time {
	if t, ok := sc.lastRefreshed.Load().(time.Time); ok {
		return t
	}
	return time.Time{}
}

// SetServerStartTime records when the HTTP server started
func (sc *StatsContainer) SetServerStartTime(startTime time.Time) {
	sc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (sc *StatsContainer) GetServerStartTime() time.Time {
	if t, ok := sc.serverStartTime.Load().(time.Time); ok {
		return t
	}
	return time.Time{}
}
