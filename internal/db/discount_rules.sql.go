package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const discountRuleColumns = `id, tenant_id, name, badge_text, kind, value, buy_quantity, get_quantity, scope_type, scope_id,
       min_quantity, min_cart_total, active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDiscountRule(row rowScanner) (DiscountRule, error) {
	var i DiscountRule
	err := row.Scan(
		&i.ID,
		&i.TenantID,
		&i.Name,
		&i.BadgeText,
		&i.Kind,
		&i.Value,
		&i.BuyQuantity,
		&i.GetQuantity,
		&i.ScopeType,
		&i.ScopeID,
		&i.MinQuantity,
		&i.MinCartTotal,
		&i.Active,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listDiscountRulesByTenant = `-- name: ListDiscountRulesByTenant :many
SELECT ` + discountRuleColumns + `
FROM discount_rules
WHERE tenant_id = $1
ORDER BY created_at, id
`

func (q *Queries) ListDiscountRulesByTenant(ctx context.Context, tenantID pgtype.UUID) ([]DiscountRule, error) {
	rows, err := q.db.Query(ctx, listDiscountRulesByTenant, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DiscountRule
	for rows.Next() {
		i, err := scanDiscountRule(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getDiscountRuleByTenant = `-- name: GetDiscountRuleByTenant :one
SELECT ` + discountRuleColumns + `
FROM discount_rules
WHERE tenant_id = $1 AND id = $2
`

type GetDiscountRuleByTenantParams struct {
	TenantID pgtype.UUID `json:"tenant_id"`
	ID       pgtype.UUID `json:"id"`
}

func (q *Queries) GetDiscountRuleByTenant(ctx context.Context, arg GetDiscountRuleByTenantParams) (DiscountRule, error) {
	return scanDiscountRule(q.db.QueryRow(ctx, getDiscountRuleByTenant, arg.TenantID, arg.ID))
}

const createDiscountRule = `-- name: CreateDiscountRule :one
INSERT INTO discount_rules (tenant_id, name, badge_text, kind, value, buy_quantity, get_quantity, scope_type, scope_id,
                            min_quantity, min_cart_total, active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING ` + discountRuleColumns + `
`

type CreateDiscountRuleParams struct {
	TenantID     pgtype.UUID    `json:"tenant_id"`
	Name         string         `json:"name"`
	BadgeText    pgtype.Text    `json:"badge_text"`
	Kind         string         `json:"kind"`
	Value        pgtype.Numeric `json:"value"`
	BuyQuantity  pgtype.Int4    `json:"buy_quantity"`
	GetQuantity  pgtype.Int4    `json:"get_quantity"`
	ScopeType    string         `json:"scope_type"`
	ScopeID      pgtype.Text    `json:"scope_id"`
	MinQuantity  int32          `json:"min_quantity"`
	MinCartTotal pgtype.Numeric `json:"min_cart_total"`
	Active       bool           `json:"active"`
}

func (q *Queries) CreateDiscountRule(ctx context.Context, arg CreateDiscountRuleParams) (DiscountRule, error) {
	row := q.db.QueryRow(ctx, createDiscountRule,
		arg.TenantID,
		arg.Name,
		arg.BadgeText,
		arg.Kind,
		arg.Value,
		arg.BuyQuantity,
		arg.GetQuantity,
		arg.ScopeType,
		arg.ScopeID,
		arg.MinQuantity,
		arg.MinCartTotal,
		arg.Active,
	)
	return scanDiscountRule(row)
}

const updateDiscountRule = `-- name: UpdateDiscountRule :one
UPDATE discount_rules
SET name = $3, badge_text = $4, kind = $5, value = $6, buy_quantity = $7, get_quantity = $8, scope_type = $9,
    scope_id = $10, min_quantity = $11, min_cart_total = $12, active = $13, updated_at = now()
WHERE tenant_id = $1 AND id = $2
RETURNING ` + discountRuleColumns + `
`

type UpdateDiscountRuleParams struct {
	TenantID     pgtype.UUID    `json:"tenant_id"`
	ID           pgtype.UUID    `json:"id"`
	Name         string         `json:"name"`
	BadgeText    pgtype.Text    `json:"badge_text"`
	Kind         string         `json:"kind"`
	Value        pgtype.Numeric `json:"value"`
	BuyQuantity  pgtype.Int4    `json:"buy_quantity"`
	GetQuantity  pgtype.Int4    `json:"get_quantity"`
	ScopeType    string         `json:"scope_type"`
	ScopeID      pgtype.Text    `json:"scope_id"`
	MinQuantity  int32          `json:"min_quantity"`
	MinCartTotal pgtype.Numeric `json:"min_cart_total"`
	Active       bool           `json:"active"`
}

func (q *Queries) UpdateDiscountRule(ctx context.Context, arg UpdateDiscountRuleParams) (DiscountRule, error) {
	row := q.db.QueryRow(ctx, updateDiscountRule,
		arg.TenantID,
		arg.ID,
		arg.Name,
		arg.BadgeText,
		arg.Kind,
		arg.Value,
		arg.BuyQuantity,
		arg.GetQuantity,
		arg.ScopeType,
		arg.ScopeID,
		arg.MinQuantity,
		arg.MinCartTotal,
		arg.Active,
	)
	return scanDiscountRule(row)
}

const deleteDiscountRule = `-- name: DeleteDiscountRule :execrows
DELETE FROM discount_rules WHERE tenant_id = $1 AND id = $2
`

type DeleteDiscountRuleParams struct {
	TenantID pgtype.UUID `json:"tenant_id"`
	ID       pgtype.UUID `json:"id"`
}

func (q *Queries) DeleteDiscountRule(ctx context.Context, arg DeleteDiscountRuleParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteDiscountRule, arg.TenantID, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
