package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getTenantIDByHostname = `-- name: GetTenantIDByHostname :one
SELECT tenant_id FROM tenant_domains WHERE hostname = $1
`

func (q *Queries) GetTenantIDByHostname(ctx context.Context, hostname string) (pgtype.UUID, error) {
	row := q.db.QueryRow(ctx, getTenantIDByHostname, hostname)
	var tenantID pgtype.UUID
	err := row.Scan(&tenantID)
	return tenantID, err
}

const getTenantIDBySlug = `-- name: GetTenantIDBySlug :one
SELECT id FROM tenants WHERE slug = $1
`

func (q *Queries) GetTenantIDBySlug(ctx context.Context, slug string) (pgtype.UUID, error) {
	row := q.db.QueryRow(ctx, getTenantIDBySlug, slug)
	var id pgtype.UUID
	err := row.Scan(&id)
	return id, err
}
