package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const listTenantSettings = `-- name: ListTenantSettings :many
SELECT tenant_id, key, value, updated_at FROM tenant_settings WHERE tenant_id = $1 ORDER BY key
`

func (q *Queries) ListTenantSettings(ctx context.Context, tenantID pgtype.UUID) ([]TenantSetting, error) {
	rows, err := q.db.Query(ctx, listTenantSettings, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TenantSetting
	for rows.Next() {
		var i TenantSetting
		if err := rows.Scan(&i.TenantID, &i.Key, &i.Value, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertTenantSetting = `-- name: UpsertTenantSetting :exec
INSERT INTO tenant_settings (tenant_id, key, value)
VALUES ($1, $2, $3)
ON CONFLICT (tenant_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
`

type UpsertTenantSettingParams struct {
	TenantID pgtype.UUID `json:"tenant_id"`
	Key      string      `json:"key"`
	Value    string      `json:"value"`
}

func (q *Queries) UpsertTenantSetting(ctx context.Context, arg UpsertTenantSettingParams) error {
	_, err := q.db.Exec(ctx, upsertTenantSetting, arg.TenantID, arg.Key, arg.Value)
	return err
}

const upsertTenantSettings = `-- name: UpsertTenantSettings :exec
INSERT INTO tenant_settings (tenant_id, key, value)
SELECT $1, k, v FROM unnest($2::text[], $3::text[]) AS s(k, v)
ON CONFLICT (tenant_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
`

type UpsertTenantSettingsParams struct {
	TenantID pgtype.UUID `json:"tenant_id"`
	Keys     []string    `json:"keys"`
	Vals     []string    `json:"vals"`
}

func (q *Queries) UpsertTenantSettings(ctx context.Context, arg UpsertTenantSettingsParams) error {
	_, err := q.db.Exec(ctx, upsertTenantSettings, arg.TenantID, arg.Keys, arg.Vals)
	return err
}
