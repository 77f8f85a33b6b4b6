package discount

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/misproductos/backend/internal/cache"
	"github.com/misproductos/backend/internal/db"
	"github.com/misproductos/backend/internal/lock"
	"github.com/misproductos/backend/internal/repo"
	"github.com/misproductos/backend/internal/tenant"
)

const (
	tenantA = "0b6f1c3e-8d0a-4c55-9a57-2f1e6b8c4d01"
	tenantB = "5a9e2d7c-1b3f-4e68-8c0d-7e4a3b2c1d02"
)

// memRules is an in-memory RuleStore keyed by tenant.
type memRules struct {
	mu        sync.Mutex
	rows      map[string][]db.DiscountRule
	listCalls int
	listErr   error
	clock     time.Time
}

func newMemRules() *memRules {
	return &memRules{rows: map[string][]db.DiscountRule{}, clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (m *memRules) tenant(ctx context.Context) (string, error) {
	tid, ok := tenant.FromContext(ctx)
	if !ok {
		return "", repo.ErrTenantMissing
	}
	return tid, nil
}

func (m *memRules) List(ctx context.Context) ([]db.DiscountRule, error) {
	tid, err := m.tenant(ctx)
	if err != nil {
		return nil, err
	}
	return m.ListForTenant(ctx, tid)
}

func (m *memRules) ListForTenant(_ context.Context, tenantID string) ([]db.DiscountRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := append([]db.DiscountRule(nil), m.rows[tenantID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Time.Before(out[j].CreatedAt.Time) })
	return out, nil
}

func (m *memRules) find(tenantID, id string) (int, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return -1, repo.ErrInvalidID
	}
	for i, row := range m.rows[tenantID] {
		if row.ID.Bytes == parsed {
			return i, nil
		}
	}
	return -1, pgx.ErrNoRows
}

func (m *memRules) Get(ctx context.Context, id string) (db.DiscountRule, error) {
	tid, err := m.tenant(ctx)
	if err != nil {
		return db.DiscountRule{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i, err := m.find(tid, id)
	if err != nil {
		return db.DiscountRule{}, err
	}
	return m.rows[tid][i], nil
}

func (m *memRules) Create(ctx context.Context, p db.CreateDiscountRuleParams) (db.DiscountRule, error) {
	tid, err := m.tenant(ctx)
	if err != nil {
		return db.DiscountRule{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = m.clock.Add(time.Minute)
	tenantUUID, err := repo.TenantUUID(tid)
	if err != nil {
		return db.DiscountRule{}, err
	}
	row := db.DiscountRule{
		ID:           pgtype.UUID{Bytes: uuid.New(), Valid: true},
		TenantID:     tenantUUID,
		Name:         p.Name,
		BadgeText:    p.BadgeText,
		Kind:         p.Kind,
		Value:        p.Value,
		BuyQuantity:  p.BuyQuantity,
		GetQuantity:  p.GetQuantity,
		ScopeType:    p.ScopeType,
		ScopeID:      p.ScopeID,
		MinQuantity:  p.MinQuantity,
		MinCartTotal: p.MinCartTotal,
		Active:       p.Active,
		CreatedAt:    pgtype.Timestamptz{Time: m.clock, Valid: true},
		UpdatedAt:    pgtype.Timestamptz{Time: m.clock, Valid: true},
	}
	m.rows[tid] = append(m.rows[tid], row)
	return row, nil
}

func (m *memRules) Update(ctx context.Context, id string, p db.UpdateDiscountRuleParams) (db.DiscountRule, error) {
	tid, err := m.tenant(ctx)
	if err != nil {
		return db.DiscountRule{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i, err := m.find(tid, id)
	if err != nil {
		return db.DiscountRule{}, err
	}
	row := m.rows[tid][i]
	row.Name, row.BadgeText, row.Kind, row.Value = p.Name, p.BadgeText, p.Kind, p.Value
	row.BuyQuantity, row.GetQuantity = p.BuyQuantity, p.GetQuantity
	row.ScopeType, row.ScopeID = p.ScopeType, p.ScopeID
	row.MinQuantity, row.MinCartTotal, row.Active = p.MinQuantity, p.MinCartTotal, p.Active
	m.rows[tid][i] = row
	return row, nil
}

func (m *memRules) Delete(ctx context.Context, id string) (bool, error) {
	tid, err := m.tenant(ctx)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i, err := m.find(tid, id)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	m.rows[tid] = append(m.rows[tid][:i], m.rows[tid][i+1:]...)
	return true, nil
}

// memSettings is an in-memory SettingsStore keyed by tenant.
type memSettings struct {
	mu    sync.Mutex
	pairs map[string]map[string]string
	reads int
}

func newMemSettings() *memSettings {
	return &memSettings{pairs: map[string]map[string]string{}}
}

func (m *memSettings) Pairs(ctx context.Context) (map[string]string, error) {
	tid, ok := tenant.FromContext(ctx)
	if !ok {
		return nil, repo.ErrTenantMissing
	}
	return m.PairsForTenant(ctx, tid)
}

func (m *memSettings) PairsForTenant(_ context.Context, tenantID string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	out := map[string]string{}
	for k, v := range m.pairs[tenantID] {
		out[k] = v
	}
	return out, nil
}

func (m *memSettings) Upsert(ctx context.Context, pairs map[string]string) error {
	tid, ok := tenant.FromContext(ctx)
	if !ok {
		return repo.ErrTenantMissing
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pairs[tid] == nil {
		m.pairs[tid] = map[string]string{}
	}
	for k, v := range pairs {
		m.pairs[tid][k] = v
	}
	return nil
}

type recordingEnqueuer struct {
	mu      sync.Mutex
	tenants []string
}

func (r *recordingEnqueuer) EnqueueWarm(_ context.Context, tenantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants = append(r.tenants, tenantID)
	return nil
}

type fixture struct {
	svc      *Service
	rules    *memRules
	settings *memSettings
	tasks    *recordingEnqueuer
	mr       *miniredis.Miniredis
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	f := fixture{
		rules:    newMemRules(),
		settings: newMemSettings(),
		tasks:    &recordingEnqueuer{},
		mr:       mr,
	}
	f.svc = &Service{
		Rules:    f.rules,
		Settings: f.settings,
		Cache:    cache.New(client, time.Minute),
		Tasks:    f.tasks,
		Lock:     lock.Locker{R: client, RetryBackoff: 5 * time.Millisecond, Wait: 50 * time.Millisecond},
	}
	return f
}

func ctxFor(tenantID string) context.Context {
	return tenant.WithTenant(context.Background(), tenantID)
}

func boolPtr(v bool) *bool { return &v }

func require400(t *testing.T, err error, field string) {
	t.Helper()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	for _, f := range verr.Fields {
		if f.Field == field {
			return
		}
	}
	t.Fatalf("expected field %q in %v", field, verr.Fields)
}
