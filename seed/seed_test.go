package seed

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/giygas/druginteractions-api/entities"
	"github.com/giygas/druginteractions-api/store"
	gormLogger "gorm.io/gorm/logger"
)

var dbCounter atomic.Int64

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:seed_test_%d?mode=memory&cache=shared", dbCounter.Add(1))
	s, err := store.Open(store.Options{Driver: store.DriverSQLite, DSN: dsn, LogLevel: gormLogger.Silent})
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return s
}

func TestDefaultFixture(t *testing.T) {
	f, err := Default()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(f.Drugs) != 8 {
		t.Errorf("Expected 8 drugs, got %d", len(f.Drugs))
	}
	if len(f.Interactions) != 9 {
		t.Errorf("Expected 9 interactions, got %d", len(f.Interactions))
	}

	first := f.Drugs[0]
	if first.ID != "VN-001-001" || first.Name != "Itraconazol" || first.DrugGroup != "Thuốc kháng nấm" {
		t.Errorf("Unexpected first drug: %+v", first)
	}
	if first.CreatedAt.IsZero() {
		t.Error("Expected created_at to be decoded")
	}

	for _, fx := range f.Interactions {
		if !fx.Severity.Valid() {
			t.Errorf("Fixture interaction %s - %s has invalid severity %q", fx.First, fx.Second, fx.Severity)
		}
	}
}

func TestParseInvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("drugs: [unterminated")); err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadDefaultFixture(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	f, err := Default()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	report, err := Load(ctx, s, f)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if report.DrugsCreated != 8 || report.InteractionsCreated != 9 {
		t.Errorf("Expected 8 drugs and 9 interactions created, got %+v", report)
	}
	if len(report.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", report.Warnings)
	}

	breakdown, err := s.SeverityBreakdown(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	expected := map[entities.Severity]int{
		entities.SeverityContraindicated: 2,
		entities.SeverityMajor:           4,
		entities.SeverityModerate:        2,
		entities.SeverityMinor:           1,
	}
	for sev, count := range expected {
		if breakdown[sev] != count {
			t.Errorf("Expected %d %s interactions, got %d", count, sev, breakdown[sev])
		}
	}

	drug, err := s.GetDrug(ctx, "VN-001-001")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if drug.SysID != "00124b5dc37b121065eb3fac05013175" {
		t.Errorf("Expected fixture sys_id to be kept, got %s", drug.SysID)
	}
}

func TestLoadIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f, _ := Default()

	if _, err := Load(ctx, s, f); err != nil {
		t.Fatalf("First load failed: %v", err)
	}

	report, err := Load(ctx, s, f)
	if err != nil {
		t.Fatalf("Second load failed: %v", err)
	}
	if report.DrugsCreated != 0 || report.InteractionsCreated != 0 {
		t.Errorf("Expected nothing created on reload, got %+v", report)
	}
	if report.DrugsSkipped != 8 || report.InteractionsSkipped != 9 {
		t.Errorf("Expected everything skipped on reload, got %+v", report)
	}

	total, _ := s.CountInteractions(ctx)
	if total != 9 {
		t.Errorf("Expected 9 interactions, got %d", total)
	}
}

func TestLoadSkipsInteractionWithMissingDrug(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	f := &Fixture{
		Drugs: []entities.Drug{
			{ID: "VN-001", Name: "Itraconazol"},
			{ID: "VN-002", Name: "Dabigatran"},
		},
		Interactions: []InteractionFixture{
			{First: "VN-001", Second: "VN-404", Mechanism: "m", Consequence: "c", Management: "x", Severity: entities.SeverityMajor},
			{First: "VN-002", Second: "VN-001", Mechanism: "m", Consequence: "c", Management: "x", Severity: entities.SeverityContraindicated},
			{First: "VN-001", Second: "VN-002", Mechanism: "dup", Consequence: "c", Management: "x", Severity: entities.SeverityMinor},
		},
	}

	report, err := Load(ctx, s, f)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if report.InteractionsCreated != 1 {
		t.Errorf("Expected 1 interaction created, got %d", report.InteractionsCreated)
	}
	if report.InteractionsSkipped != 2 {
		t.Errorf("Expected 2 interactions skipped, got %d", report.InteractionsSkipped)
	}
	if len(report.Warnings) != 1 {
		t.Errorf("Expected 1 warning, got %v", report.Warnings)
	}

	// The first record wins, the reversed duplicate did not overwrite it
	found, _ := s.Search(ctx, store.InteractionQuery{})
	if len(found) != 1 || found[0].Severity != entities.SeverityContraindicated {
		t.Errorf("Expected the contraindicated record to be kept, got %+v", found)
	}
}

func TestLoadRollsBackOnInvalidRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	f := &Fixture{
		Drugs: []entities.Drug{
			{ID: "VN-001", Name: "Itraconazol"},
			{ID: "VN-002", Name: "Dabigatran"},
		},
		Interactions: []InteractionFixture{
			{First: "VN-001", Second: "VN-002", Mechanism: "m", Consequence: "c", Management: "x", Severity: "fatal"},
		},
	}

	if _, err := Load(ctx, s, f); err == nil {
		t.Fatal("Expected error for invalid severity")
	}

	count, _ := s.CountDrugs(ctx)
	if count != 0 {
		t.Errorf("Expected drugs to be rolled back, got %d", count)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	content := `drugs:
  - id: VN-100
    name: Paracetamol
    active_ingredient: Acetaminophen
interactions: []
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	f, err := LoadFile(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(f.Drugs) != 1 || f.Drugs[0].ActiveIngredient != "Acetaminophen" {
		t.Errorf("Unexpected fixture: %+v", f)
	}
}

func TestLoadNilFixture(t *testing.T) {
	s := newTestStore(t)
	if _, err := Load(context.Background(), s, nil); err == nil {
		t.Error("Expected error for nil fixture")
	}
}
