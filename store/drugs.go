package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/giygas/druginteractions-api/entities"
	"gorm.io/gorm"
)

// GetDrug returns the drug with the given id, or ErrNotFound
func (s *Store) GetDrug(ctx context.Context, id string) (*entities.Drug, error) {
	var drug entities.Drug
	err := s.conn(ctx).Where("id = ?", id).Take(&drug).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get drug %s: %w", id, err)
	}
	return &drug, nil
}

// ListDrugs returns the drugs whose name, active ingredient or group contains
// q ignoring case, or every drug when q is empty. Ordered by name then id.
func (s *Store) ListDrugs(ctx context.Context, q string) ([]entities.Drug, error) {
	query := s.conn(ctx).Model(&entities.Drug{})

	if strings.TrimSpace(q) != "" {
		query = query.Where(
			`name_fold LIKE @p ESCAPE '\' OR ingredient_fold LIKE @p ESCAPE '\' OR group_fold LIKE @p ESCAPE '\'`,
			map[string]any{"p": entities.ContainsPattern(q)},
		)
	}

	drugs := []entities.Drug{}
	if err := query.Order("name ASC").Order("id ASC").Find(&drugs).Error; err != nil {
		return nil, fmt.Errorf("failed to list drugs: %w", err)
	}
	return drugs, nil
}

// CountDrugs returns the catalog size
func (s *Store) CountDrugs(ctx context.Context) (int, error) {
	var count int64
	if err := s.conn(ctx).Model(&entities.Drug{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count drugs: %w", err)
	}
	return int(count), nil
}

// CreateDrug inserts a new drug. The id is caller supplied and must be unused.
func (s *Store) CreateDrug(ctx context.Context, drug *entities.Drug) error {
	if err := validateDrug(drug); err != nil {
		return err
	}

	return s.Transaction(ctx, func(tx *Store) error {
		var count int64
		if err := tx.db.Model(&entities.Drug{}).Where("id = ?", drug.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check drug %s: %w", drug.ID, err)
		}
		if count > 0 {
			return fmt.Errorf("%w: %s", ErrDuplicateDrug, drug.ID)
		}

		if err := tx.db.Create(drug).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: %s", ErrDuplicateDrug, drug.ID)
			}
			return fmt.Errorf("failed to create drug %s: %w", drug.ID, err)
		}
		return nil
	})
}

// EnsureDrug creates the drug when its id is unknown and leaves an existing
// record untouched. It reports whether a row was inserted.
func (s *Store) EnsureDrug(ctx context.Context, drug *entities.Drug) (bool, error) {
	err := s.CreateDrug(ctx, drug)
	if errors.Is(err, ErrDuplicateDrug) {
		return false, nil
	}
	return err == nil, err
}

// UpdateDrug replaces the mutable fields of an existing drug, bumping its
// modification counter. The id and creation bookkeeping never change.
func (s *Store) UpdateDrug(ctx context.Context, drug *entities.Drug) error {
	if err := validateDrug(drug); err != nil {
		return err
	}

	return s.Transaction(ctx, func(tx *Store) error {
		var existing entities.Drug
		err := tx.db.Where("id = ?", drug.ID).Take(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load drug %s: %w", drug.ID, err)
		}

		drug.SysID = existing.SysID
		drug.CreatedBy = existing.CreatedBy
		drug.CreatedAt = existing.CreatedAt
		drug.ModCount = existing.ModCount + 1
		drug.UpdatedAt = time.Now()

		if err := tx.db.Save(drug).Error; err != nil {
			return fmt.Errorf("failed to update drug %s: %w", drug.ID, err)
		}
		return nil
	})
}

// DeleteDrug removes a drug together with every interaction it takes part in
func (s *Store) DeleteDrug(ctx context.Context, id string) error {
	return s.Transaction(ctx, func(tx *Store) error {
		if err := tx.db.Where("first_id = ? OR second_id = ?", id, id).Delete(&entities.DrugInteraction{}).Error; err != nil {
			return fmt.Errorf("failed to delete interactions of drug %s: %w", id, err)
		}

		result := tx.db.Where("id = ?", id).Delete(&entities.Drug{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete drug %s: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func validateDrug(drug *entities.Drug) error {
	if drug == nil {
		return required("drug")
	}
	drug.ID = strings.TrimSpace(drug.ID)
	if drug.ID == "" {
		return required("id")
	}
	if strings.TrimSpace(drug.Name) == "" {
		return required("name")
	}
	return nil
}
