// Package repo wraps the generated queries so every call is scoped to the
// tenant carried by the context.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/misproductos/backend/internal/db"
	"github.com/misproductos/backend/internal/tenant"
)

var (
	// ErrTenantMissing indicates the tenant identifier was not found in context.
	ErrTenantMissing = errors.New("tenant missing")
	// ErrTenantInvalid indicates the tenant identifier could not be parsed.
	ErrTenantInvalid = errors.New("tenant invalid")
	// ErrInvalidID indicates a record identifier could not be parsed.
	ErrInvalidID = errors.New("invalid id")
)

// TenantUUID parses tenantID the way the repositories do.
func TenantUUID(tenantID string) (pgtype.UUID, error) {
	tid, err := db.UUID(tenantID)
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("%w: %v", ErrTenantInvalid, err)
	}
	return tid, nil
}

func tenantUUIDFromContext(ctx context.Context) (pgtype.UUID, error) {
	tenantID, ok := tenant.FromContext(ctx)
	if !ok {
		return pgtype.UUID{}, ErrTenantMissing
	}
	return TenantUUID(tenantID)
}

func recordUUID(id string) (pgtype.UUID, error) {
	parsed, err := db.UUID(id)
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	return parsed, nil
}
