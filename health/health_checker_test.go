package health

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/giygas/druginteractions-api/entities"
)

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.err
}

type mockStats struct {
	stats         entities.Stats
	err           error
	lastRefreshed time.Time
	startTime     time.Time
}

func (m *mockStats) Stats(ctx context.Context) (entities.Stats, error) {
	return m.stats, m.err
}

func (m *mockStats) Snapshot(ctx context.Context) (entities.Stats, error) {
	return m.stats, m.err
}

func (m *mockStats) Refresh(ctx context.Context) (entities.Stats, error) {
	return m.stats, m.err
}

func (m *mockStats) Invalidate() {}

func (m *mockStats) GetLastRefreshed() time.Time {
	return m.lastRefreshed
}

func (m *mockStats) GetServerStartTime() time.Time {
	return m.startTime
}

func TestHealthCheck(t *testing.T) {
	last := time.Now().Add(-time.Hour)
	populated := entities.Stats{TotalDrugs: 8, TotalInteractions: 9, LastUpdated: &last}

	tests := []struct {
		name           string
		pingErr        error
		stats          *mockStats
		expectedStatus string
		expectedHTTP   int
	}{
		{
			name:           "healthy",
			stats:          &mockStats{stats: populated, lastRefreshed: time.Now()},
			expectedStatus: "healthy",
			expectedHTTP:   http.StatusOK,
		},
		{
			name:           "database down",
			pingErr:        errors.New("connection refused"),
			stats:          &mockStats{stats: populated, lastRefreshed: time.Now()},
			expectedStatus: "unhealthy",
			expectedHTTP:   http.StatusServiceUnavailable,
		},
		{
			name:           "stats query fails",
			stats:          &mockStats{err: errors.New("no such table: drugs")},
			expectedStatus: "unhealthy",
			expectedHTTP:   http.StatusServiceUnavailable,
		},
		{
			name:           "empty catalog",
			stats:          &mockStats{lastRefreshed: time.Now()},
			expectedStatus: "degraded",
			expectedHTTP:   http.StatusOK,
		},
		{
			name:           "stale summary",
			stats:          &mockStats{stats: populated, lastRefreshed: time.Now().Add(-2 * time.Hour)},
			expectedStatus: "degraded",
			expectedHTTP:   http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewHealthChecker(&mockPinger{err: tt.pingErr}, tt.stats, time.Hour)
			status, data, httpStatus := checker.HealthCheck(context.Background())

			if status != tt.expectedStatus {
				t.Errorf("Expected status %s, got %s", tt.expectedStatus, status)
			}
			if httpStatus != tt.expectedHTTP {
				t.Errorf("Expected HTTP %d, got %d", tt.expectedHTTP, httpStatus)
			}
			if data == nil {
				t.Fatal("Expected data map")
			}
		})
	}
}

func TestHealthCheckData(t *testing.T) {
	last := time.Date(2025, 2, 17, 21, 54, 33, 0, time.UTC)
	stats := &mockStats{
		stats:         entities.Stats{TotalDrugs: 8, TotalInteractions: 9, LastUpdated: &last},
		lastRefreshed: time.Now(),
		startTime:     time.Now().Add(-time.Minute),
	}

	_, data, _ := NewHealthChecker(&mockPinger{}, stats, 0).HealthCheck(context.Background())

	if data["database"] != "ok" {
		t.Errorf("Expected database ok, got %v", data["database"])
	}
	if data["drugs"] != 8 {
		t.Errorf("Expected 8 drugs, got %v", data["drugs"])
	}
	if data["interactions"] != 9 {
		t.Errorf("Expected 9 interactions, got %v", data["interactions"])
	}
	if data["last_update"] != "2025-02-17T21:54:33Z" {
		t.Errorf("Expected RFC3339 last update, got %v", data["last_update"])
	}
	if uptime, ok := data["uptime_seconds"].(float64); !ok || uptime < 59 {
		t.Errorf("Expected uptime around 60s, got %v", data["uptime_seconds"])
	}
}

func TestHealthCheckZeroStaleAfterIgnoresAge(t *testing.T) {
	stats := &mockStats{
		stats:         entities.Stats{TotalDrugs: 1},
		lastRefreshed: time.Now().Add(-48 * time.Hour),
	}

	status, _, _ := NewHealthChecker(&mockPinger{}, stats, 0).HealthCheck(context.Background())
	if status != "healthy" {
		t.Errorf("Expected healthy, got %s", status)
	}
}
