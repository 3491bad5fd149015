package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/giygas/druginteractions-api/entities"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SearchLimit caps the number of interactions returned by Search
const SearchLimit = 50

// InteractionQuery filters Search. Both fields are optional.
type InteractionQuery struct {
	// Query is matched, ignoring case, against both drug names and active
	// ingredients, the mechanism and the consequence
	Query string
	// Severity restricts results to one exact severity value
	Severity string
}

type severityCount struct {
	Severity entities.Severity
	Count    int
}

const interactionOrder = "drug_interactions.created_at DESC, drug_interactions.id DESC"

// GetInteraction returns the interaction with its two drugs loaded, or ErrNotFound
func (s *Store) GetInteraction(ctx context.Context, id uint) (*entities.DrugInteraction, error) {
	var interaction entities.DrugInteraction
	err := s.withDrugs(s.conn(ctx)).Where("id = ?", id).Take(&interaction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get interaction %d: %w", id, err)
	}
	return &interaction, nil
}

// ListForDrug returns every interaction the drug takes part in, on either
// side, newest first
func (s *Store) ListForDrug(ctx context.Context, drugID string) ([]entities.DrugInteraction, error) {
	interactions := []entities.DrugInteraction{}
	err := s.withDrugs(s.conn(ctx)).
		Where("first_id = ? OR second_id = ?", drugID, drugID).
		Order(interactionOrder).
		Find(&interactions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions of drug %s: %w", drugID, err)
	}
	return interactions, nil
}

// Search returns at most SearchLimit interactions matching the query, newest
// first. An unknown severity matches nothing.
func (s *Store) Search(ctx context.Context, q InteractionQuery) ([]entities.DrugInteraction, error) {
	interactions := []entities.DrugInteraction{}

	query := s.withDrugs(s.conn(ctx)).Model(&entities.DrugInteraction{})

	if q.Severity != "" {
		severity, err := entities.ParseSeverity(q.Severity)
		if err != nil {
			return interactions, nil
		}
		query = query.Where("drug_interactions.severity = ?", severity)
	}

	if strings.TrimSpace(q.Query) != "" {
		query = query.
			Select("drug_interactions.*").
			Joins("JOIN drugs AS d1 ON d1.id = drug_interactions.first_id").
			Joins("JOIN drugs AS d2 ON d2.id = drug_interactions.second_id").
			Where(`d1.name_fold LIKE @p ESCAPE '\' OR d2.name_fold LIKE @p ESCAPE '\'
				OR d1.ingredient_fold LIKE @p ESCAPE '\' OR d2.ingredient_fold LIKE @p ESCAPE '\'
				OR drug_interactions.mechanism_fold LIKE @p ESCAPE '\'
				OR drug_interactions.consequence_fold LIKE @p ESCAPE '\'`,
				map[string]any{"p": entities.ContainsPattern(q.Query)},
			)
	}

	if err := query.Order(interactionOrder).Limit(SearchLimit).Find(&interactions).Error; err != nil {
		return nil, fmt.Errorf("failed to search interactions: %w", err)
	}
	return interactions, nil
}

// SeverityBreakdown counts interactions per severity. Severities without any
// interaction are absent from the map.
func (s *Store) SeverityBreakdown(ctx context.Context) (map[entities.Severity]int, error) {
	var rows []severityCount

	err := s.conn(ctx).Model(&entities.DrugInteraction{}).
		Select("severity, COUNT(*) AS count").
		Group("severity").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count interactions by severity: %w", err)
	}

	breakdown := make(map[entities.Severity]int, len(rows))
	for _, row := range rows {
		if row.Count > 0 {
			breakdown[row.Severity] = row.Count
		}
	}
	return breakdown, nil
}

// CountInteractions returns the number of recorded interactions
func (s *Store) CountInteractions(ctx context.Context) (int, error) {
	var count int64
	if err := s.conn(ctx).Model(&entities.DrugInteraction{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count interactions: %w", err)
	}
	return int(count), nil
}

// LastUpdated returns the most recent interaction modification time, nil when
// the table is empty
func (s *Store) LastUpdated(ctx context.Context) (*time.Time, error) {
	var latest entities.DrugInteraction
	err := s.conn(ctx).Select("id", "updated_at").Order("updated_at DESC").Take(&latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last update: %w", err)
	}
	return &latest.UpdatedAt, nil
}

// Summary computes the catalog summary from a single read transaction so the
// severity breakdown always adds up to the interaction total
func (s *Store) Summary(ctx context.Context) (entities.Stats, error) {
	var stats entities.Stats
	err := s.conn(ctx).Transaction(func(db *gorm.DB) error {
		tx := New(db)

		drugs, err := tx.CountDrugs(ctx)
		if err != nil {
			return err
		}
		interactions, err := tx.CountInteractions(ctx)
		if err != nil {
			return err
		}
		breakdown, err := tx.SeverityBreakdown(ctx)
		if err != nil {
			return err
		}
		lastUpdated, err := tx.LastUpdated(ctx)
		if err != nil {
			return err
		}

		stats = entities.Stats{
			TotalDrugs:        drugs,
			TotalInteractions: interactions,
			SeverityBreakdown: entities.BreakdownEntries(breakdown),
			LastUpdated:       lastUpdated,
		}
		return nil
	}, s.snapshotTxOptions()...)
	if err != nil {
		return entities.Stats{}, fmt.Errorf("failed to compute catalog summary: %w", err)
	}
	return stats, nil
}

// snapshotTxOptions asks Postgres for one snapshot across statements. SQLite
// transactions already read a single snapshot.
func (s *Store) snapshotTxOptions() []*sql.TxOptions {
	if s.db.Dialector.Name() != DriverPostgres {
		return nil
	}
	return []*sql.TxOptions{{Isolation: sql.LevelRepeatableRead, ReadOnly: true}}
}

// CreateInteraction records an interaction between two existing drugs.
// It fails with ErrDuplicatePair when the pair already has an interaction,
// whichever side each drug was given on.
func (s *Store) CreateInteraction(ctx context.Context, interaction *entities.DrugInteraction) error {
	if err := validateInteraction(interaction); err != nil {
		return err
	}
	interaction.NormalizePair()

	return s.Transaction(ctx, func(tx *Store) error {
		if err := tx.requireDrugs(interaction.FirstID, interaction.SecondID); err != nil {
			return err
		}

		taken, err := tx.pairTaken(interaction.FirstID, interaction.SecondID, 0)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: %s - %s", ErrDuplicatePair, interaction.FirstID, interaction.SecondID)
		}

		if err := tx.db.Omit(clause.Associations).Create(interaction).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: %s - %s", ErrDuplicatePair, interaction.FirstID, interaction.SecondID)
			}
			return fmt.Errorf("failed to create interaction: %w", err)
		}

		return tx.loadDrugs(interaction)
	})
}

// EnsureInteraction creates the interaction unless its pair is already
// recorded, in which case nothing changes and created is false. Bulk loaders
// use it so repeated runs are safe.
func (s *Store) EnsureInteraction(ctx context.Context, interaction *entities.DrugInteraction) (bool, error) {
	err := s.CreateInteraction(ctx, interaction)
	if errors.Is(err, ErrDuplicatePair) {
		return false, nil
	}
	return err == nil, err
}

// UpdateInteraction replaces the content of an existing interaction. Moving it
// to another pair is allowed as long as that pair is free.
func (s *Store) UpdateInteraction(ctx context.Context, interaction *entities.DrugInteraction) error {
	if err := validateInteraction(interaction); err != nil {
		return err
	}
	interaction.NormalizePair()

	return s.Transaction(ctx, func(tx *Store) error {
		var existing entities.DrugInteraction
		err := tx.db.Where("id = ?", interaction.ID).Take(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load interaction %d: %w", interaction.ID, err)
		}

		if existing.FirstID != interaction.FirstID || existing.SecondID != interaction.SecondID {
			if err := tx.requireDrugs(interaction.FirstID, interaction.SecondID); err != nil {
				return err
			}
			taken, err := tx.pairTaken(interaction.FirstID, interaction.SecondID, interaction.ID)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("%w: %s - %s", ErrDuplicatePair, interaction.FirstID, interaction.SecondID)
			}
		}

		interaction.CreatedAt = existing.CreatedAt
		interaction.UpdatedAt = time.Now()
		if err := tx.db.Omit(clause.Associations).Save(interaction).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: %s - %s", ErrDuplicatePair, interaction.FirstID, interaction.SecondID)
			}
			return fmt.Errorf("failed to update interaction %d: %w", interaction.ID, err)
		}

		return tx.loadDrugs(interaction)
	})
}

// DeleteInteraction removes one interaction
func (s *Store) DeleteInteraction(ctx context.Context, id uint) error {
	result := s.conn(ctx).Where("id = ?", id).Delete(&entities.DrugInteraction{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete interaction %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) withDrugs(db *gorm.DB) *gorm.DB {
	return db.Preload("First").Preload("Second")
}

// requireDrugs fails with ErrDrugNotFound naming the first missing id
func (s *Store) requireDrugs(ids ...string) error {
	for _, id := range ids {
		var count int64
		if err := s.db.Model(&entities.Drug{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check drug %s: %w", id, err)
		}
		if count == 0 {
			return fmt.Errorf("%w: %s", ErrDrugNotFound, id)
		}
	}
	return nil
}

// pairTaken reports whether a normalised pair is used by an interaction other than exceptID
func (s *Store) pairTaken(firstID, secondID string, exceptID uint) (bool, error) {
	query := s.db.Model(&entities.DrugInteraction{}).Where("first_id = ? AND second_id = ?", firstID, secondID)
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check interaction pair: %w", err)
	}
	return count > 0, nil
}

func (s *Store) loadDrugs(interaction *entities.DrugInteraction) error {
	var drugs []entities.Drug
	if err := s.db.Where("id IN ?", []string{interaction.FirstID, interaction.SecondID}).Find(&drugs).Error; err != nil {
		return fmt.Errorf("failed to load interaction drugs: %w", err)
	}
	for i := range drugs {
		switch drugs[i].ID {
		case interaction.FirstID:
			interaction.First = &drugs[i]
		case interaction.SecondID:
			interaction.Second = &drugs[i]
		}
	}
	return nil
}

func validateInteraction(interaction *entities.DrugInteraction) error {
	if interaction == nil {
		return required("interaction")
	}

	interaction.FirstID = strings.TrimSpace(interaction.FirstID)
	interaction.SecondID = strings.TrimSpace(interaction.SecondID)
	if interaction.FirstID == "" {
		return required("first_id")
	}
	if interaction.SecondID == "" {
		return required("second_id")
	}
	if interaction.FirstID == interaction.SecondID {
		return fmt.Errorf("%w: %s", ErrSelfInteraction, interaction.FirstID)
	}

	texts := []struct{ field, value string }{
		{"mechanism", interaction.Mechanism},
		{"consequence", interaction.Consequence},
		{"management", interaction.Management},
	}
	for _, text := range texts {
		if strings.TrimSpace(text.value) == "" {
			return required(text.field)
		}
	}

	if interaction.Severity == "" {
		interaction.Severity = entities.DefaultSeverity
	}
	if !interaction.Severity.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSeverity, interaction.Severity)
	}
	return nil
}
