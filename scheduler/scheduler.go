// Package scheduler keeps the catalog summary and its Prometheus gauges fresh
// and warns when the periodic refresh stops making progress.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/giygas/druginteractions-api/interfaces"
	"github.com/giygas/druginteractions-api/logging"
	"github.com/go-co-op/gocron"
)

const refreshTimeout = 30 * time.Second

// Scheduler runs the periodic summary refresh and the staleness watch
type Scheduler struct {
	stats     interfaces.StatsProvider
	interval  time.Duration
	scheduler *gocron.Scheduler

	// monitorInterval and staleAfter drive the staleness watch
	monitorInterval time.Duration
	staleAfter      time.Duration

	stopOnce sync.Once
	done     chan struct{}
}

// NewScheduler creates a scheduler refreshing stats every interval. The
// summary is reported stale once it is older than three intervals.
func NewScheduler(stats interfaces.StatsProvider, interval time.Duration) *Scheduler {
	return &Scheduler{
		stats:           stats,
		interval:        interval,
		scheduler:       gocron.NewScheduler(time.Local),
		monitorInterval: interval,
		staleAfter:      3 * interval,
		done:            make(chan struct{}),
	}
}

// Start computes the first summary, then schedules the refresh job
func (s *Scheduler) Start() error {
	if err := s.refresh(); err != nil {
		logging.Error("Failed to compute initial catalog stats", "error", err)
		return fmt.Errorf("initial stats refresh failed: %w", err)
	}

	_, err := s.scheduler.Every(s.interval).WaitForSchedule().SingletonMode().Do(func() {
		if err := s.refresh(); err != nil {
			logging.Error("Failed to refresh catalog stats", "error", err)
		}
	})
	if err != nil {
		logging.Error("Failed to schedule stats refresh", "error", err)
		return fmt.Errorf("failed to schedule stats refresh: %w", err)
	}

	s.scheduler.StartAsync()
	s.startHealthMonitoring()

	logging.Info("Scheduler started", "refresh_interval", s.interval.String())
	return nil
}

// Stop stops the refresh job and the staleness watch. Safe to call twice.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.scheduler.Stop()
		close(s.done)
	})
}

func (s *Scheduler) refresh() error {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	start := time.Now()
	stats, err := s.stats.Refresh(ctx)
	if err != nil {
		return err
	}

	logging.Debug("Catalog stats refreshed",
		"duration", time.Since(start).String(),
		"drugs", stats.TotalDrugs,
		"interactions", stats.TotalInteractions,
	)
	return nil
}

// startHealthMonitoring warns when the summary has not been refreshed in a
// while, which means the job is failing or stuck
func (s *Scheduler) startHealthMonitoring() {
	go func() {
		ticker := time.NewTicker(s.monitorInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				s.checkStaleness()
			}
		}
	}()
}

// checkStaleness reports whether the summary is older than staleAfter
func (s *Scheduler) checkStaleness() bool {
	last := s.stats.GetLastRefreshed()
	if last.IsZero() || time.Since(last) <= s.staleAfter {
		return false
	}
	logging.Warn("Catalog stats have not been refreshed recently",
		"last_refreshed", last.Format(time.RFC3339),
		"threshold", s.staleAfter.String(),
	)
	return true
}
