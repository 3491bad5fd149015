// Package health reports whether the service can answer queries.
package health

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/giygas/druginteractions-api/interfaces"
)

// Pinger checks database connectivity
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheckerImpl implements interfaces.HealthChecker
type HealthCheckerImpl struct {
	db    Pinger
	stats interfaces.StatsProvider
	// staleAfter is how old the cached summary may get before the scheduler
	// is considered stuck
	staleAfter time.Duration
}

// NewHealthChecker creates a health checker. A zero staleAfter disables the
// summary age check.
func NewHealthChecker(db Pinger, stats interfaces.StatsProvider, staleAfter time.Duration) *HealthCheckerImpl {
	return &HealthCheckerImpl{db: db, stats: stats, staleAfter: staleAfter}
}

// HealthCheck returns the status, the data for the /health body and the
// HTTP status to answer with. An unreachable database is unhealthy (503).
// An empty catalog or a stuck summary refresh is degraded but still served.
func (h *HealthCheckerImpl) HealthCheck(ctx context.Context) (status string, data map[string]any, httpStatus int) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	data = map[string]any{}
	if startTime := h.stats.GetServerStartTime(); !startTime.IsZero() {
		data["uptime_seconds"] = math.Round(time.Since(startTime).Seconds())
	}

	if err := h.db.Ping(ctx); err != nil {
		data["database"] = "unreachable"
		data["error"] = err.Error()
		return "unhealthy", data, http.StatusServiceUnavailable
	}
	data["database"] = "ok"

	stats, err := h.stats.Snapshot(ctx)
	if err != nil {
		data["error"] = err.Error()
		return "unhealthy", data, http.StatusServiceUnavailable
	}

	data["drugs"] = stats.TotalDrugs
	data["interactions"] = stats.TotalInteractions
	if stats.LastUpdated != nil {
		data["last_update"] = stats.LastUpdated.Format(time.RFC3339)
	}

	refreshed := h.stats.GetLastRefreshed()
	statsAge := time.Since(refreshed)
	if !refreshed.IsZero() {
		data["stats_refreshed_at"] = refreshed.Format(time.RFC3339)
		data["stats_age_minutes"] = math.Round(statsAge.Minutes()*10) / 10
	}

	switch {
	case stats.TotalDrugs == 0:
		data["reason"] = "catalog is empty"
		return "degraded", data, http.StatusOK
	case h.staleAfter > 0 && statsAge > h.staleAfter:
		data["reason"] = "catalog summary is stale"
		return "degraded", data, http.StatusOK
	}
	return "healthy", data, http.StatusOK
}
