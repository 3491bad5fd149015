package handlers

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/giygas/druginteractions-api/entities"
	"github.com/giygas/druginteractions-api/store"
	"github.com/giygas/druginteractions-api/validation"
)

// ============================================================================
// MOCK STORE
// ============================================================================

// mockStore is an in-memory interfaces.Store. Setting err makes every call fail.
type mockStore struct {
	mu           sync.Mutex
	drugs        map[string]entities.Drug
	interactions map[uint]entities.DrugInteraction
	nextID       uint
	err          error
	lastQuery    store.InteractionQuery
}

func (m *mockStore) GetDrug(ctx context.Context, id string) (*entities.Drug, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	drug, ok := m.drugs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &drug, nil
}

func (m *mockStore) ListDrugs(ctx context.Context, q string) ([]entities.Drug, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	drugs := []entities.Drug{}
	for _, d := range m.drugs {
		if drugMatches(d, q) {
			drugs = append(drugs, d)
		}
	}
	sort.Slice(drugs, func(i, j int) bool {
		if drugs[i].Name != drugs[j].Name {
			return drugs[i].Name < drugs[j].Name
		}
		return drugs[i].ID < drugs[j].ID
	})
	return drugs, nil
}

func (m *mockStore) CountDrugs(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.drugs), m.err
}

func (m *mockStore) CreateDrug(ctx context.Context, drug *entities.Drug) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if drug.ID == "" {
		return &store.ValidationError{Field: "id", Message: "is required"}
	}
	if drug.Name == "" {
		return &store.ValidationError{Field: "name", Message: "is required"}
	}
	if _, ok := m.drugs[drug.ID]; ok {
		return store.ErrDuplicateDrug
	}
	drug.ModCount = 1
	drug.CreatedAt = time.Now()
	drug.UpdatedAt = drug.CreatedAt
	m.drugs[drug.ID] = *drug
	return nil
}

func (m *mockStore) UpdateDrug(ctx context.Context, drug *entities.Drug) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	existing, ok := m.drugs[drug.ID]
	if !ok {
		return store.ErrNotFound
	}
	drug.ModCount = existing.ModCount + 1
	drug.CreatedAt = existing.CreatedAt
	drug.UpdatedAt = time.Now()
	m.drugs[drug.ID] = *drug
	return nil
}

func (m *mockStore) DeleteDrug(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.drugs[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.drugs, id)
	for key, i := range m.interactions {
		if involves(i, id) {
			delete(m.interactions, key)
		}
	}
	return nil
}

func (m *mockStore) GetInteraction(ctx context.Context, id uint) (*entities.DrugInteraction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	interaction, ok := m.interactions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	m.attach(&interaction)
	return &interaction, nil
}

func (m *mockStore) ListForDrug(ctx context.Context, drugID string) ([]entities.DrugInteraction, error) {
	return m.filter(func(i entities.DrugInteraction) bool { return involves(i, drugID) }, 0)
}

func (m *mockStore) Search(ctx context.Context, q store.InteractionQuery) ([]entities.DrugInteraction, error) {
	m.mu.Lock()
	m.lastQuery = q
	m.mu.Unlock()

	return m.filter(func(i entities.DrugInteraction) bool {
		if q.Severity != "" && string(i.Severity) != q.Severity {
			return false
		}
		return interactionMatches(i, q.Query)
	}, store.SearchLimit)
}

func (m *mockStore) SeverityBreakdown(ctx context.Context) (map[entities.Severity]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[entities.Severity]int{}
	for _, i := range m.interactions {
		counts[i.Severity]++
	}
	return counts, m.err
}

func (m *mockStore) CountInteractions(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.interactions), m.err
}

func (m *mockStore) LastUpdated(ctx context.Context) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var last *time.Time
	for _, i := range m.interactions {
		if last == nil || i.UpdatedAt.After(*last) {
			t := i.UpdatedAt
			last = &t
		}
	}
	return last, m.err
}

func (m *mockStore) CreateInteraction(ctx context.Context, interaction *entities.DrugInteraction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if interaction.FirstID == interaction.SecondID {
		return store.ErrSelfInteraction
	}
	if interaction.Severity == "" {
		interaction.Severity = entities.DefaultSeverity
	}
	if !interaction.Severity.Valid() {
		return store.ErrInvalidSeverity
	}
	for _, id := range []string{interaction.FirstID, interaction.SecondID} {
		if _, ok := m.drugs[id]; !ok {
			return store.ErrDrugNotFound
		}
	}
	interaction.NormalizePair()
	for _, existing := range m.interactions {
		if existing.FirstID == interaction.FirstID && existing.SecondID == interaction.SecondID {
			return store.ErrDuplicatePair
		}
	}

	m.nextID++
	interaction.ID = m.nextID
	interaction.CreatedAt = time.Now()
	interaction.UpdatedAt = interaction.CreatedAt
	m.interactions[interaction.ID] = *interaction
	m.attach(interaction)
	return nil
}

func (m *mockStore) EnsureInteraction(ctx context.Context, interaction *entities.DrugInteraction) (bool, error) {
	err := m.CreateInteraction(ctx, interaction)
	if err == store.ErrDuplicatePair {
		return false, nil
	}
	return err == nil, err
}

func (m *mockStore) UpdateInteraction(ctx context.Context, interaction *entities.DrugInteraction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	existing, ok := m.interactions[interaction.ID]
	if !ok {
		return store.ErrNotFound
	}
	interaction.NormalizePair()
	interaction.CreatedAt = existing.CreatedAt
	interaction.UpdatedAt = time.Now()
	m.interactions[interaction.ID] = *interaction
	m.attach(interaction)
	return nil
}

func (m *mockStore) DeleteInteraction(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.interactions[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.interactions, id)
	return nil
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.err
}

// attach loads both drugs, callers hold mu
func (m *mockStore) attach(i *entities.DrugInteraction) {
	if d, ok := m.drugs[i.FirstID]; ok {
		i.First = &d
	}
	if d, ok := m.drugs[i.SecondID]; ok {
		i.Second = &d
	}
}

func (m *mockStore) filter(keep func(entities.DrugInteraction) bool, limit int) ([]entities.DrugInteraction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}

	result := []entities.DrugInteraction{}
	for _, i := range m.interactions {
		m.attach(&i)
		if keep(i) {
			result = append(result, i)
		}
	}
	sort.Slice(result, func(a, b int) bool {
		return result[a].ID > result[b].ID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// MockStoreBuilder builds mockStore values fluently
type MockStoreBuilder struct {
	store *mockStore
}

func NewMockStoreBuilder() *MockStoreBuilder {
	return &MockStoreBuilder{store: &mockStore{
		drugs:        map[string]entities.Drug{},
		interactions: map[uint]entities.DrugInteraction{},
	}}
}

func (b *MockStoreBuilder) WithDrug(id, name, ingredient string) *MockStoreBuilder {
	now := time.Now()
	b.store.drugs[id] = entities.Drug{
		ID:               id,
		Name:             name,
		ActiveIngredient: ingredient,
		ModCount:         1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return b
}

func (b *MockStoreBuilder) WithInteraction(first, second string, severity entities.Severity) *MockStoreBuilder {
	b.store.nextID++
	i := entities.DrugInteraction{
		ID:          b.store.nextID,
		FirstID:     first,
		SecondID:    second,
		Mechanism:   "Ức chế CYP3A4",
		Consequence: "Tăng nồng độ thuốc trong huyết tương",
		Management:  "Theo dõi lâm sàng",
		Severity:    severity,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	i.NormalizePair()
	b.store.interactions[i.ID] = i
	return b
}

func (b *MockStoreBuilder) WithError(err error) *MockStoreBuilder {
	b.store.err = err
	return b
}

func (b *MockStoreBuilder) Build() *mockStore {
	return b.store
}

func involves(i entities.DrugInteraction, drugID string) bool {
	return i.FirstID == drugID || i.SecondID == drugID
}

// containsFolded mirrors the store's case-insensitive substring match
func containsFolded(q string, fields ...string) bool {
	folded := entities.Fold(q)
	if folded == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(entities.Fold(f), folded) {
			return true
		}
	}
	return false
}

func drugMatches(d entities.Drug, q string) bool {
	return containsFolded(q, d.Name, d.ActiveIngredient, d.DrugGroup)
}

func interactionMatches(i entities.DrugInteraction, q string) bool {
	fields := []string{i.Mechanism, i.Consequence}
	for _, d := range []*entities.Drug{i.First, i.Second} {
		if d != nil {
			fields = append(fields, d.Name, d.ActiveIngredient)
		}
	}
	return containsFolded(q, fields...)
}

// ============================================================================
// MOCK STATS AND HEALTH
// ============================================================================

type mockStats struct {
	mu          sync.Mutex
	stats       entities.Stats
	err         error
	invalidated int
	startTime   time.Time
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

func (m *mockStats) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated++
}

func (m *mockStats) invalidations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.invalidated
}

func (m *mockStats) GetLastRefreshed() time.Time {
	return time.Now()
}

func (m *mockStats) GetServerStartTime() time.Time {
	return m.startTime
}

type mockHealth struct {
	status     string
	data       map[string]any
	httpStatus int
}

func (m *mockHealth) HealthCheck(ctx context.Context) (string, map[string]any, int) {
	return m.status, m.data, m.httpStatus
}

// ============================================================================
// HELPERS
// ============================================================================

// sampleStore holds the itraconazole and dabigatran example plus a few others
func sampleStore() *mockStore {
	return NewMockStoreBuilder().
		WithDrug("VN-001-001", "Itraconazol 100mg", "Itraconazol").
		WithDrug("VN-002-001", "Dabigatran 110mg", "Dabigatran etexilat").
		WithDrug("VN-003-001", "Warfarin 5mg", "Warfarin").
		WithDrug("VN-004-001", "Aspirin 81mg", "Acid acetylsalicylic").
		WithInteraction("VN-001-001", "VN-002-001", entities.SeverityContraindicated).
		WithInteraction("VN-003-001", "VN-004-001", entities.SeverityMajor).
		Build()
}

func newTestHandler(s *mockStore, stats *mockStats) *HTTPHandlerImpl {
	if stats == nil {
		stats = &mockStats{}
	}
	health := &mockHealth{status: "healthy", data: map[string]any{"database": "ok"}, httpStatus: 200}
	return NewHTTPHandler(s, stats, validation.NewDataValidator(), health)
}
