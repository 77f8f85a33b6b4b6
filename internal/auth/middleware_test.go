package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"

	"github.com/misproductos/backend/internal/tenant"
)

const testTenant = "7d4f0a52-52f0-4a0b-8f3c-1f6a2b9e0c11"

func newTestVerifier(t *testing.T, now time.Time) *Verifier {
	t.Helper()
	v, err := NewVerifier(VerifierConfig{Secret: "test-secret", Issuer: "misproductos", Now: func() time.Time { return now }})
	require.NoError(t, err)
	return v
}

func adminRequest(t *testing.T, token, tenantID string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/discounts", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if tenantID != "" {
		req = req.WithContext(tenant.WithTenant(req.Context(), tenantID))
	}
	return req
}

func okHandler(t *testing.T, wantSubject string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		require.Equal(t, wantSubject, claims.Subject)
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestVerifierRoundTrip(t *testing.T) {
	now := time.Now()
	v := newTestVerifier(t, now)
	token, err := v.Issue(Claims{Subject: "user-1", TenantID: testTenant, Roles: []string{"admin", "editor"}}, time.Hour)
	require.NoError(t, err)

	claims, err := v.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, testTenant, claims.TenantID)
	require.True(t, claims.HasRole("ADMIN"))
	require.False(t, claims.HasRole("owner"))
}

func TestVerifierRejectsForeignSecretAndExpiry(t *testing.T) {
	now := time.Now()
	v := newTestVerifier(t, now)

	other, err := NewVerifier(VerifierConfig{Secret: "other", Issuer: "misproductos", Now: func() time.Time { return now }})
	require.NoError(t, err)
	forged, err := other.Issue(Claims{Subject: "x", Roles: []string{"admin"}}, time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(forged)
	require.Error(t, err)

	expired, err := v.Issue(Claims{Subject: "x"}, -time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(expired)
	require.Error(t, err)
}

func TestVerifierRejectsOtherAlgorithms(t *testing.T) {
	now := time.Now()
	v := newTestVerifier(t, now)
	tok, err := jwt.NewBuilder().Subject("x").Issuer("misproductos").Expiration(now.Add(time.Hour)).Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS512, []byte("test-secret")))
	require.NoError(t, err)
	_, err = v.Verify(string(signed))
	require.Error(t, err)
}

func TestRequireAdmin(t *testing.T) {
	now := time.Now()
	v := newTestVerifier(t, now)
	m := Middleware{Verifier: v}

	admin, err := v.Issue(Claims{Subject: "owner", TenantID: testTenant, Roles: []string{"admin"}}, time.Hour)
	require.NoError(t, err)
	viewer, err := v.Issue(Claims{Subject: "viewer", TenantID: testTenant, Roles: []string{"viewer"}}, time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		token  string
		tenant string
		status int
	}{
		{"missing token", "", testTenant, http.StatusUnauthorized},
		{"garbage token", "abc.def.ghi", testTenant, http.StatusUnauthorized},
		{"not admin", viewer, testTenant, http.StatusForbidden},
		{"other tenant", admin, "11111111-1111-1111-1111-111111111111", http.StatusForbidden},
		{"no tenant resolved", admin, "", http.StatusForbidden},
		{"admin", admin, testTenant, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			m.RequireAdmin(okHandler(t, "owner")).ServeHTTP(rr, adminRequest(t, tc.token, tc.tenant))
			require.Equal(t, tc.status, rr.Code)
		})
	}
}

func TestRequireAuthWithoutVerifier(t *testing.T) {
	rr := httptest.NewRecorder()
	Middleware{}.RequireAuth(okHandler(t, "")).ServeHTTP(rr, adminRequest(t, "x", testTenant))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
}
