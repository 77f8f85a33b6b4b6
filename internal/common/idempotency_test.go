package common

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyRejectsReplayPerScope(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	calls := 0
	idem := Idem{R: client, TTL: time.Hour, Scope: func(r *http.Request) string { return r.Header.Get("X-Scope") }}
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	send := func(scope, key string) int {
		req := httptest.NewRequest(http.MethodPost, "/rules", nil)
		req.Header.Set("X-Scope", scope)
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusCreated, send("a", "k1"))
	require.Equal(t, http.StatusConflict, send("a", "k1"))
	require.Equal(t, http.StatusCreated, send("b", "k1"))
	require.Equal(t, http.StatusCreated, send("a", ""))
	require.Equal(t, http.StatusCreated, send("a", ""))
	require.Equal(t, 4, calls)

	mr.FastForward(2 * time.Hour)
	require.Equal(t, http.StatusCreated, send("a", "k1"))
}
