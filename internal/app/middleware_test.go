package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profitpulse/profitpulse/internal/shared"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTokenAuth(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := TokenAuth("sesame")(next)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer sesame")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestTenantResolverRejectsMissingHeader(t *testing.T) {
	handler := TenantResolver(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request without tenant must not reach the handler")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), shared.ErrTenantMissing.Error())
}

func TestTenantResolverPopulatesContext(t *testing.T) {
	var gotTenant, gotActor int64
	handler := TenantResolver(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := shared.TenantFromContext(r.Context())
		require.True(t, ok)
		gotTenant = tenantID
		gotActor, _ = shared.ActorFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant-ID", "3")
	req.Header.Set("X-Staff-ID", "42")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, int64(3), gotTenant)
	assert.Equal(t, int64(42), gotActor)
}

func TestTenantResolverRejectsGarbageHeader(t *testing.T) {
	handler := TenantResolver(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request with a bad tenant header must not reach the handler")
	}))

	for _, raw := range []string{"0", "-1", "grocer"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Tenant-ID", raw)
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", raw)
	}
}
