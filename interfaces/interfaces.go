// Package interfaces defines the contracts between the HTTP layer, the
// background jobs and the storage, so each side can be tested in isolation.
package interfaces

import (
	"context"
	"time"

	"github.com/giygas/druginteractions-api/entities"
	"github.com/giygas/druginteractions-api/store"
)

// CatalogStore is the drug catalog
type CatalogStore interface {
	GetDrug(ctx context.Context, id string) (*entities.Drug, error)
	ListDrugs(ctx context.Context, q string) ([]entities.Drug, error)
	CountDrugs(ctx context.Context) (int, error)

	CreateDrug(ctx context.Context, drug *entities.Drug) error
	UpdateDrug(ctx context.Context, drug *entities.Drug) error
	DeleteDrug(ctx context.Context, id string) error
}

// InteractionStore is the table of pairwise interactions
type InteractionStore interface {
	GetInteraction(ctx context.Context, id uint) (*entities.DrugInteraction, error)
	ListForDrug(ctx context.Context, drugID string) ([]entities.DrugInteraction, error)
	Search(ctx context.Context, q store.InteractionQuery) ([]entities.DrugInteraction, error)
	SeverityBreakdown(ctx context.Context) (map[entities.Severity]int, error)
	CountInteractions(ctx context.Context) (int, error)
	LastUpdated(ctx context.Context) (*time.Time, error)

	CreateInteraction(ctx context.Context, interaction *entities.DrugInteraction) error
	EnsureInteraction(ctx context.Context, interaction *entities.DrugInteraction) (bool, error)
	UpdateInteraction(ctx context.Context, interaction *entities.DrugInteraction) error
	DeleteInteraction(ctx context.Context, id uint) error
}

// Store is everything the service needs from the database
type Store interface {
	CatalogStore
	InteractionStore
	Ping(ctx context.Context) error
}

// StatsProvider serves the catalog summary
type StatsProvider interface {
	// Stats reads the current summary from the store
	Stats(ctx context.Context) (entities.Stats, error)
	// Snapshot returns the last computed summary, recomputing it when stale
	Snapshot(ctx context.Context) (entities.Stats, error)
	// Refresh recomputes the summary unconditionally
	Refresh(ctx context.Context) (entities.Stats, error)
	// Invalidate marks the snapshot stale after a write
	Invalidate()
	GetLastRefreshed() time.Time
	GetServerStartTime() time.Time
}

// Scheduler runs the background jobs
type Scheduler interface {
	Start() error
	Stop()
}

// HealthChecker reports service health
type HealthChecker interface {
	// HealthCheck returns the overall status, details and the HTTP status to answer with
	HealthCheck(ctx context.Context) (status string, details map[string]any, httpStatus int)
}

// InputValidator checks user supplied request parameters
type InputValidator interface {
	ValidateSearchQuery(input string) error
	ValidateDrugID(input string) error
	ParseInteractionID(input string) (uint, error)
}
