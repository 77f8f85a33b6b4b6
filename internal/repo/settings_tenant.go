package repo

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/misproductos/backend/internal/db"
)

// SettingsQuerier defines the queries used by SettingsTenantRepo.
type SettingsQuerier interface {
	ListTenantSettings(ctx context.Context, tenantID pgtype.UUID) ([]db.TenantSetting, error)
	UpsertTenantSettings(ctx context.Context, arg db.UpsertTenantSettingsParams) error
}

// SettingsTenantRepo reads and writes the free-form tenant settings table.
type SettingsTenantRepo struct {
	Q SettingsQuerier
}

// Pairs returns every setting of the tenant in context.
func (r SettingsTenantRepo) Pairs(ctx context.Context) (map[string]string, error) {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return r.pairs(ctx, tid)
}

// PairsForTenant is Pairs for an explicit tenant.
func (r SettingsTenantRepo) PairsForTenant(ctx context.Context, tenantID string) (map[string]string, error) {
	tid, err := TenantUUID(tenantID)
	if err != nil {
		return nil, err
	}
	return r.pairs(ctx, tid)
}

// Upsert writes pairs in one statement.
func (r SettingsTenantRepo) Upsert(ctx context.Context, pairs map[string]string) error {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	vals := make([]string, len(keys))
	for i, k := range keys {
		vals[i] = pairs[k]
	}
	return r.Q.UpsertTenantSettings(ctx, db.UpsertTenantSettingsParams{TenantID: tid, Keys: keys, Vals: vals})
}

func (r SettingsTenantRepo) pairs(ctx context.Context, tid pgtype.UUID) (map[string]string, error) {
	rows, err := r.Q.ListTenantSettings(ctx, tid)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}
