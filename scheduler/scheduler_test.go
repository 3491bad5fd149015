package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/giygas/druginteractions-api/entities"
)

// mockStatsProvider records refresh calls
type mockStatsProvider struct {
	mu            sync.Mutex
	refreshCount  int
	shouldFail    bool
	lastRefreshed time.Time
}

func (m *mockStatsProvider) Stats(ctx context.Context) (entities.Stats, error) {
	return entities.Stats{}, nil
}

func (m *mockStatsProvider) Snapshot(ctx context.Context) (entities.Stats, error) {
	return entities.Stats{}, nil
}

func (m *mockStatsProvider) Refresh(ctx context.Context) (entities.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshCount++
	if m.shouldFail {
		return entities.Stats{}, errors.New("database is locked")
	}
	m.lastRefreshed = time.Now()
	return entities.Stats{TotalDrugs: 8, TotalInteractions: 9}, nil
}

func (m *mockStatsProvider) Invalidate() {}

func (m *mockStatsProvider) GetLastRefreshed() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRefreshed
}

func (m *mockStatsProvider) GetServerStartTime() time.Time {
	return time.Time{}
}

func (m *mockStatsProvider) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshCount
}

func TestScheduler_InitialRefresh(t *testing.T) {
	stats := &mockStatsProvider{}
	s := NewScheduler(stats, time.Hour)

	if err := s.Start(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer s.Stop()

	if stats.count() != 1 {
		t.Errorf("Expected 1 refresh after start, got %d", stats.count())
	}
	if stats.GetLastRefreshed().IsZero() {
		t.Error("Expected last refreshed time to be set")
	}
}

func TestScheduler_InitialRefreshFailure(t *testing.T) {
	stats := &mockStatsProvider{shouldFail: true}
	s := NewScheduler(stats, time.Hour)

	err := s.Start()
	if err == nil {
		t.Fatal("Expected error when the first refresh fails")
	}
	if stats.count() != 1 {
		t.Errorf("Expected 1 refresh attempt, got %d", stats.count())
	}
}

func TestScheduler_PeriodicRefresh(t *testing.T) {
	stats := &mockStatsProvider{}
	s := NewScheduler(stats, time.Second)

	if err := s.Start(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for stats.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}

	if stats.count() < 2 {
		t.Errorf("Expected at least 2 refreshes, got %d", stats.count())
	}
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	s := NewScheduler(&mockStatsProvider{}, time.Hour)
	if err := s.Start(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	s.Stop()
	s.Stop()
}

func TestScheduler_CheckStaleness(t *testing.T) {
	tests := []struct {
		name          string
		lastRefreshed time.Time
		expected      bool
	}{
		{"never refreshed", time.Time{}, false},
		{"fresh", time.Now().Add(-time.Minute), false},
		{"stale", time.Now().Add(-4 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScheduler(&mockStatsProvider{lastRefreshed: tt.lastRefreshed}, time.Hour)
			if got := s.checkStaleness(); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}
