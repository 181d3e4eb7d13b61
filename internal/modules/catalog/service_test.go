package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/supply-backend/internal/apperr"
	"github.com/georgemunganga/supply-backend/internal/modules/auth"
)

func newTestService(enforceCap bool) (Service, Repository) {
	repo := NewMemoryRepository()
	return NewService(repo, ServiceConfig{EnforceOptionStockCap: enforceCap}, nil), repo
}

func TestCreateProductSimple(t *testing.T) {
	svc, _ := newTestService(true)
	p, err := svc.CreateProduct(context.Background(), CreateProductRequest{
		Category: " 사료 ", Name: "성견 사료", BaseStock: 40,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "사료", p.Category)
	assert.Equal(t, SimpleStock{Count: 40}, p.Stock)
	assert.Equal(t, int64(1), p.Version)
}

func TestCreateProductOptionStockCap(t *testing.T) {
	req := CreateProductRequest{
		Category:     "견옷",
		Name:         "겨울 조끼",
		BaseStock:    10,
		OptionGroups: []OptionGroup{sizeGroup(6, 6)},
	}

	strict, _ := newTestService(true)
	_, err := strict.CreateProduct(context.Background(), req)
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "baseStock", ve.Field)

	lenient, _ := newTestService(false)
	p, err := lenient.CreateProduct(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, p.HasOptions())
}

func TestUpdateProductRejectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(true)
	p, err := svc.CreateProduct(ctx, CreateProductRequest{Category: "간식", Name: "육포", BaseStock: 3})
	require.NoError(t, err)

	stored, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	stored.Stock = SimpleStock{Count: 2}
	require.NoError(t, repo.Update(ctx, stored))

	_, err = svc.UpdateProduct(ctx, p.ID, UpdateProductRequest{
		CreateProductRequest: CreateProductRequest{Category: "간식", Name: "육포", BaseStock: 9},
		Version:              p.Version,
	})
	assert.ErrorIs(t, err, ErrVersionConflict)

	// An edit without the version read would restore the unit taken above.
	_, err = svc.UpdateProduct(ctx, p.ID, UpdateProductRequest{
		CreateProductRequest: CreateProductRequest{Category: "간식", Name: "육포", BaseStock: 3},
	})
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "version", ve.Field)
	unchanged, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, SimpleStock{Count: 2}, unchanged.Stock)

	updated, err := svc.UpdateProduct(ctx, p.ID, UpdateProductRequest{
		CreateProductRequest: CreateProductRequest{Category: "간식", Name: "소고기 육포", BaseStock: 9},
		Version:              stored.Version,
	})
	require.NoError(t, err)
	assert.Equal(t, "소고기 육포", updated.Name)
	assert.Equal(t, SimpleStock{Count: 9}, updated.Stock)
}

func TestHandlerUpdateWithoutVersionIsRejected(t *testing.T) {
	svc, _ := newTestService(true)
	h := NewHandler(svc)
	p, err := svc.CreateProduct(context.Background(), CreateProductRequest{Category: "사료", Name: "사료 A", BaseStock: 5})
	require.NoError(t, err)

	rec := serveAs(h, auth.RoleAdmin, httptest.NewRequest(http.MethodPut, "/api/v1/catalog/products/"+p.ID,
		strings.NewReader(`{"category":"사료","name":"사료 A","base_stock":5}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serveAs(h, auth.RoleAdmin, httptest.NewRequest(http.MethodPut, "/api/v1/catalog/products/"+p.ID,
		strings.NewReader(`{"category":"사료","name":"사료 B","base_stock":5,"version":1}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListProductsRejectsUnknownCategory(t *testing.T) {
	svc, _ := newTestService(true)
	_, err := svc.ListProducts(context.Background(), Filter{Category: "장난감"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func serveAs(h *Handler, role string, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := auth.WithIdentity(req.Context(), auth.Identity{ID: "u1", Name: "담당자", Role: role})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	h.RegisterRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreateRequiresAdmin(t *testing.T) {
	svc, _ := newTestService(true)
	h := NewHandler(svc)
	body := `{"category":"위생용품","name":"배변봉투","base_stock":100}`

	rec := serveAs(h, "trainer", httptest.NewRequest(http.MethodPost, "/api/v1/catalog/products", strings.NewReader(body)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serveAs(h, auth.RoleAdmin, httptest.NewRequest(http.MethodPost, "/api/v1/catalog/products", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, SimpleStock{Count: 100}, created.Stock)

	rec = serveAs(h, "trainer", httptest.NewRequest(http.MethodGet, "/api/v1/catalog/products/"+created.ID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerMapsErrors(t *testing.T) {
	svc, _ := newTestService(true)
	h := NewHandler(svc)

	rec := serveAs(h, "trainer", httptest.NewRequest(http.MethodGet, "/api/v1/catalog/products/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serveAs(h, auth.RoleAdmin, httptest.NewRequest(http.MethodPost, "/api/v1/catalog/products",
		strings.NewReader(`{"category":"장난감","name":"공","base_stock":1}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"validation"`)
}
