package db

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Tenant struct {
	ID        pgtype.UUID        `json:"id"`
	Name      string             `json:"name"`
	Slug      string             `json:"slug"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}

type TenantDomain struct {
	Hostname  string             `json:"hostname"`
	TenantID  pgtype.UUID        `json:"tenant_id"`
	Kind      string             `json:"kind"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}

type DiscountRule struct {
	ID           pgtype.UUID        `json:"id"`
	TenantID     pgtype.UUID        `json:"tenant_id"`
	Name         string             `json:"name"`
	BadgeText    pgtype.Text        `json:"badge_text"`
	Kind         string             `json:"kind"`
	Value        pgtype.Numeric     `json:"value"`
	BuyQuantity  pgtype.Int4        `json:"buy_quantity"`
	GetQuantity  pgtype.Int4        `json:"get_quantity"`
	ScopeType    string             `json:"scope_type"`
	ScopeID      pgtype.Text        `json:"scope_id"`
	MinQuantity  int32              `json:"min_quantity"`
	MinCartTotal pgtype.Numeric     `json:"min_cart_total"`
	Active       bool               `json:"active"`
	CreatedAt    pgtype.Timestamptz `json:"created_at"`
	UpdatedAt    pgtype.Timestamptz `json:"updated_at"`
}

type TenantSetting struct {
	TenantID  pgtype.UUID        `json:"tenant_id"`
	Key       string             `json:"key"`
	Value     string             `json:"value"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}
