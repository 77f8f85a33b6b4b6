package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

type Querier interface {
	CreateDiscountRule(ctx context.Context, arg CreateDiscountRuleParams) (DiscountRule, error)
	DeleteDiscountRule(ctx context.Context, arg DeleteDiscountRuleParams) (int64, error)
	GetDiscountRuleByTenant(ctx context.Context, arg GetDiscountRuleByTenantParams) (DiscountRule, error)
	GetTenantIDByHostname(ctx context.Context, hostname string) (pgtype.UUID, error)
	GetTenantIDBySlug(ctx context.Context, slug string) (pgtype.UUID, error)
	ListDiscountRulesByTenant(ctx context.Context, tenantID pgtype.UUID) ([]DiscountRule, error)
	ListTenantSettings(ctx context.Context, tenantID pgtype.UUID) ([]TenantSetting, error)
	UpdateDiscountRule(ctx context.Context, arg UpdateDiscountRuleParams) (DiscountRule, error)
	UpsertTenantSetting(ctx context.Context, arg UpsertTenantSettingParams) error
	UpsertTenantSettings(ctx context.Context, arg UpsertTenantSettingsParams) error
}

var _ Querier = (*Queries)(nil)
