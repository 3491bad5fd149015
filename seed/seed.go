// Package seed loads drug and interaction fixtures into the store.
// Loading is idempotent: records that already exist are left untouched.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/giygas/druginteractions-api/entities"
	"github.com/giygas/druginteractions-api/logging"
	"github.com/giygas/druginteractions-api/store"
	"gopkg.in/yaml.v3"
)

//go:embed fixtures/sample.yaml
var sampleFixture []byte

// Fixture is a set of drugs and the interactions between them
type Fixture struct {
	Drugs        []entities.Drug      `yaml:"drugs"`
	Interactions []InteractionFixture `yaml:"interactions"`
}

// InteractionFixture references its two drugs by id, in any order
type InteractionFixture struct {
	First       string            `yaml:"first"`
	Second      string            `yaml:"second"`
	Mechanism   string            `yaml:"mechanism"`
	Consequence string            `yaml:"consequence"`
	Management  string            `yaml:"management"`
	Severity    entities.Severity `yaml:"severity"`
}

// Report summarises a load
type Report struct {
	DrugsCreated        int
	DrugsSkipped        int
	InteractionsCreated int
	InteractionsSkipped int
	Warnings            []string
	Duration            time.Duration
}

func (r *Report) warn(msg string, args ...any) {
	r.Warnings = append(r.Warnings, msg)
	logging.Warn(msg, args...)
}

// Parse decodes a YAML fixture
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return &f, nil
}

// Default returns the fixture embedded in the binary
func Default() (*Fixture, error) {
	return Parse(sampleFixture)
}

// LoadFile reads and decodes a fixture from disk
func LoadFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture %s: %w", path, err)
	}
	return Parse(data)
}

// Load inserts the fixture in a single transaction. Existing drugs and
// interaction pairs are skipped. An interaction naming an unknown drug is
// reported as a warning and skipped; any other error rolls the load back.
func Load(ctx context.Context, s *store.Store, f *Fixture) (*Report, error) {
	if f == nil {
		return nil, errors.New("nil fixture")
	}

	start := time.Now()
	report := &Report{}

	err := s.Transaction(ctx, func(tx *store.Store) error {
		for i := range f.Drugs {
			drug := f.Drugs[i]
			created, err := tx.EnsureDrug(ctx, &drug)
			if err != nil {
				return fmt.Errorf("drug %s: %w", drug.ID, err)
			}
			if created {
				report.DrugsCreated++
				logging.Debug("Created drug", "id", drug.ID, "name", drug.Name)
			} else {
				report.DrugsSkipped++
			}
		}

		for _, fx := range f.Interactions {
			interaction := &entities.DrugInteraction{
				FirstID:     fx.First,
				SecondID:    fx.Second,
				Mechanism:   fx.Mechanism,
				Consequence: fx.Consequence,
				Management:  fx.Management,
				Severity:    fx.Severity,
			}

			created, err := tx.EnsureInteraction(ctx, interaction)
			if errors.Is(err, store.ErrDrugNotFound) {
				report.InteractionsSkipped++
				report.warn(fmt.Sprintf("Drug not found for interaction %s - %s", fx.First, fx.Second),
					"first", fx.First, "second", fx.Second, "error", err)
				continue
			}
			if err != nil {
				return fmt.Errorf("interaction %s - %s: %w", fx.First, fx.Second, err)
			}

			if created {
				report.InteractionsCreated++
				logging.Debug("Created interaction", "first", interaction.FirstName(), "second", interaction.SecondName())
			} else {
				report.InteractionsSkipped++
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load fixture: %w", err)
	}

	report.Duration = time.Since(start)
	logging.Info("Fixture loaded",
		"drugs_created", report.DrugsCreated,
		"drugs_skipped", report.DrugsSkipped,
		"interactions_created", report.InteractionsCreated,
		"interactions_skipped", report.InteractionsSkipped,
		"warnings", len(report.Warnings),
		"duration", report.Duration,
	)
	return report, nil
}
