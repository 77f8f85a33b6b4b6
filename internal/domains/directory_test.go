package domains

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/misproductos/backend/internal/cache"
)

type stubQuerier struct {
	hosts     map[string]uuid.UUID
	slugs     map[string]uuid.UUID
	err       error
	hostCalls int
	slugCalls int
}

func (s *stubQuerier) GetTenantIDByHostname(_ context.Context, hostname string) (pgtype.UUID, error) {
	s.hostCalls++
	if s.err != nil {
		return pgtype.UUID{}, s.err
	}
	id, ok := s.hosts[hostname]
	if !ok {
		return pgtype.UUID{}, pgx.ErrNoRows
	}
	return pgtype.UUID{Bytes: id, Valid: true}, nil
}

func (s *stubQuerier) GetTenantIDBySlug(_ context.Context, label string) (pgtype.UUID, error) {
	s.slugCalls++
	id, ok := s.slugs[label]
	if !ok {
		return pgtype.UUID{}, pgx.ErrNoRows
	}
	return pgtype.UUID{Bytes: id, Valid: true}, nil
}

func newDirectory(t *testing.T, q Querier) (*Directory, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &Directory{Q: q, Cache: cache.New(client, time.Minute), MissTTL: 5 * time.Second}, mr
}

func TestDirectoryCachesHits(t *testing.T) {
	tenantID := uuid.New()
	q := &stubQuerier{hosts: map[string]uuid.UUID{"tienda.com": tenantID}}
	dir, _ := newDirectory(t, q)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		id, ok, err := dir.TenantIDByHost(ctx, "Tienda.com")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, tenantID.String(), id)
	}
	require.Equal(t, 1, q.hostCalls)
}

func TestDirectoryCachesMissesBriefly(t *testing.T) {
	q := &stubQuerier{}
	dir, mr := newDirectory(t, q)
	ctx := context.Background()

	_, ok, err := dir.TenantIDByHost(ctx, "nope.com")
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, _ = dir.TenantIDByHost(ctx, "nope.com")
	require.False(t, ok)
	require.Equal(t, 1, q.hostCalls)

	mr.FastForward(10 * time.Second)
	_, _, _ = dir.TenantIDByHost(ctx, "nope.com")
	require.Equal(t, 2, q.hostCalls)
}

func TestDirectorySlugValidation(t *testing.T) {
	tenantID := uuid.New()
	q := &stubQuerier{slugs: map[string]uuid.UUID{"mi-tienda": tenantID}}
	dir, _ := newDirectory(t, q)
	ctx := context.Background()

	id, ok, err := dir.TenantIDBySlug(ctx, "mi-tienda")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, tenantID.String(), id)

	_, ok, err = dir.TenantIDBySlug(ctx, "Bad_Label!")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 1, q.slugCalls)
}

func TestDirectoryPropagatesErrors(t *testing.T) {
	q := &stubQuerier{err: errors.New("connection refused")}
	dir, _ := newDirectory(t, q)
	_, _, err := dir.TenantIDByHost(context.Background(), "tienda.com")
	require.Error(t, err)
}

func TestSubdomainHelpers(t *testing.T) {
	require.Equal(t, "cafe-de-la-esquina", SubdomainLabel("Café de la Esquina"))
	require.Equal(t, "acme.misproductos.com", SubdomainHost("acme", ".misproductos.com."))
}
