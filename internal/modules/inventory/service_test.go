package inventory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/supply-backend/internal/apperr"
	"github.com/georgemunganga/supply-backend/internal/modules/auth"
	"github.com/georgemunganga/supply-backend/internal/modules/catalog"
)

func seededService(t *testing.T) Service {
	t.Helper()
	ctx := context.Background()
	repo := catalog.NewMemoryRepository()
	require.NoError(t, repo.Create(ctx, &catalog.Product{ID: "food", Category: "사료", Name: "성견 사료", Stock: catalog.SimpleStock{Count: 3}}))
	require.NoError(t, repo.Create(ctx, &catalog.Product{
		ID: "harness", Category: "견옷", Name: "하네스",
		Stock: catalog.VariantStock{Groups: []catalog.OptionGroup{{
			Name:   "사이즈",
			Values: []catalog.OptionValue{{Label: "1호", Stock: 200}, {Label: "2호", Stock: 0}},
		}}},
	}))
	return NewService(repo, nil)
}

func TestLevelsListsEveryCounter(t *testing.T) {
	levels, err := seededService(t).Levels(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Len(t, levels, 3)

	low, err := seededService(t).Levels(context.Background(), Filter{Below: 5})
	require.NoError(t, err)
	require.Len(t, low, 2)
	for _, l := range low {
		assert.Less(t, l.Stock, 5)
	}

	harness, err := seededService(t).Levels(context.Background(), Filter{Category: "견옷"})
	require.NoError(t, err)
	require.Len(t, harness, 2)
	assert.Equal(t, "사이즈", harness[0].Group)
	assert.Equal(t, "1호", harness[0].Value)
}

func TestLevelsValidatesFilter(t *testing.T) {
	_, err := seededService(t).Levels(context.Background(), Filter{Below: -1})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	_, err = seededService(t).Levels(context.Background(), Filter{Category: "장난감"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestTotals(t *testing.T) {
	totals, err := seededService(t).Totals(context.Background())
	require.NoError(t, err)
	require.Len(t, totals, len(catalog.DefaultCategories))

	byCategory := map[string]CategoryTotal{}
	for _, tt := range totals {
		byCategory[tt.Category] = tt
	}
	assert.Equal(t, CategoryTotal{Category: "견옷", Products: 1, Counters: 2, Stock: 200, SoldOut: 1}, byCategory["견옷"])
	assert.Equal(t, CategoryTotal{Category: "사료", Products: 1, Counters: 1, Stock: 3}, byCategory["사료"])
	assert.Equal(t, CategoryTotal{Category: "간식"}, byCategory["간식"])
}

func TestHandlerIsAdminOnly(t *testing.T) {
	serve := func(role, path string) int {
		r := chi.NewRouter()
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{ID: "u", Role: role})))
			})
		})
		NewHandler(seededService(t)).RegisterRoutes(r)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec.Code
	}

	assert.Equal(t, http.StatusForbidden, serve("trainer", "/api/v1/inventory/levels"))
	assert.Equal(t, http.StatusOK, serve(auth.RoleAdmin, "/api/v1/inventory/levels?below=10"))
	assert.Equal(t, http.StatusBadRequest, serve(auth.RoleAdmin, "/api/v1/inventory/levels?below=few"))
	assert.Equal(t, http.StatusOK, serve(auth.RoleAdmin, "/api/v1/inventory/totals"))
}
