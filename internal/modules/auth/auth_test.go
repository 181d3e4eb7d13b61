package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	svc, err := NewService([]byte("test-secret"))
	require.NoError(t, err)

	want := Identity{ID: "trainer-1", Name: "김훈련", Role: RoleAdmin}
	token, err := svc.Issue(context.Background(), want, time.Hour)
	require.NoError(t, err)

	got, err := svc.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.True(t, got.IsAdmin())
}

func TestVerifyRejectsForeignAndExpiredTokens(t *testing.T) {
	ours, err := NewService([]byte("ours"))
	require.NoError(t, err)
	theirs, err := NewService([]byte("theirs"))
	require.NoError(t, err)

	foreign, err := theirs.Issue(context.Background(), Identity{ID: "x"}, time.Hour)
	require.NoError(t, err)
	_, err = ours.Verify(context.Background(), foreign)
	assert.Error(t, err)

	expired, err := ours.Issue(context.Background(), Identity{ID: "x"}, -time.Minute)
	require.NoError(t, err)
	_, err = ours.Verify(context.Background(), expired)
	assert.Error(t, err)
}

func TestNewServiceRequiresKey(t *testing.T) {
	_, err := NewService(nil)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	svc, err := NewService([]byte("test-secret"))
	require.NoError(t, err)
	token, err := svc.Issue(context.Background(), Identity{ID: "trainer-1", Role: "trainer"}, time.Hour)
	require.NoError(t, err)

	var seen Identity
	h := Middleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "trainer-1", seen.ID)
}

func TestRequireAdmin(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := RequireAdmin(ok)

	tests := []struct {
		name string
		ctx  context.Context
		want int
	}{
		{"anonymous", context.Background(), http.StatusUnauthorized},
		{"trainer", WithIdentity(context.Background(), Identity{ID: "t", Role: "trainer"}), http.StatusForbidden},
		{"admin", WithIdentity(context.Background(), Identity{ID: "a", Role: RoleAdmin}), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(tt.ctx))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
