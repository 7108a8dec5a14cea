package skus

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sessioncontext "batchledger/frontend/shared/context"
	"batchledger/frontend/shared/respond"
	"batchledger/infrastructure/errs"
	"batchledger/infrastructure/rbac"
	"batchledger/models"
)

type fakeCatalog struct {
	skus      []models.SKU
	createErr error
	deleted   []string
	lastCode  string
	caller    rbac.Caller
}

func (f *fakeCatalog) ListSKUs(context.Context) ([]models.SKU, error) { return f.skus, nil }

func (f *fakeCatalog) CreateSKU(_ context.Context, caller rbac.Caller, code, name string) (models.SKU, error) {
	f.caller = caller
	f.lastCode = code
	if f.createErr != nil {
		return models.SKU{}, f.createErr
	}
	return models.SKU{ID: "new-id", Code: code, Name: name, CreatedBy: caller.UserID, CreatedAt: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}, nil
}

func (f *fakeCatalog) DeleteSKU(_ context.Context, _ rbac.Caller, id string) error {
	if id == "missing" {
		return errs.Errorf("catalog.DeleteSKU", errs.NotFound, "sku not found")
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func withUser(r *http.Request, role string) *http.Request {
	s := models.Session{ID: "t", UserID: 1, User: models.User{ID: 1, Username: "u", Role: role}, UserRoles: []string{role}}
	return r.WithContext(sessioncontext.NewContextWithSession(r.Context(), s))
}

func TestCreateSKU(t *testing.T) {
	catalog := &fakeCatalog{}
	h := CreateSKUCommandHandler(catalog, time.UTC)

	req := withUser(httptest.NewRequest(http.MethodPost, "/app/api/skus", strings.NewReader(`{"code":" WID ","name":"Widget"}`)), rbac.RoleAdmin)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp SKUResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "WID", resp.Code)
	assert.Equal(t, "WID", catalog.lastCode)
	assert.Equal(t, []string{rbac.RoleAdmin}, catalog.caller.Roles)
	assert.Equal(t, "/app/api/skus/new-id", rec.Header().Get("Location"))
}

func TestCreateSKUValidation(t *testing.T) {
	catalog := &fakeCatalog{}
	h := CreateSKUCommandHandler(catalog, time.UTC)

	long := strings.Repeat("A", 33)
	for _, body := range []string{`{"code":"","name":"x"}`, `{"code":"A","name":"  "}`, `{"code":"` + long + `","name":"x"}`, `[]`} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodPost, "/app/api/skus", strings.NewReader(body)), rbac.RoleAdmin))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Empty(t, catalog.lastCode)
}

func TestCreateSKUMapsCatalogErrors(t *testing.T) {
	cases := map[errs.Kind]int{
		errs.Conflict:  http.StatusConflict,
		errs.Forbidden: http.StatusForbidden,
	}
	for kind, status := range cases {
		catalog := &fakeCatalog{createErr: errs.Errorf("catalog.CreateSKU", kind, "nope")}
		rec := httptest.NewRecorder()
		CreateSKUCommandHandler(catalog, time.UTC).ServeHTTP(rec,
			withUser(httptest.NewRequest(http.MethodPost, "/app/api/skus", strings.NewReader(`{"code":"WID","name":"Widget"}`)), rbac.RoleOperator))
		require.Equal(t, status, rec.Code)

		var body struct {
			Error respond.ErrorBody `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, kind.String(), body.Error.Kind)
		assert.Equal(t, "nope", body.Error.Message)
	}
}

func TestDeleteSKU(t *testing.T) {
	catalog := &fakeCatalog{}
	r := chi.NewRouter()
	r.Delete("/app/api/skus/{skuID}", DeleteSKUCommandHandler(catalog))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodDelete, "/app/api/skus/abc", nil), rbac.RoleAdmin))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"abc"}, catalog.deleted)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodDelete, "/app/api/skus/missing", nil), rbac.RoleAdmin))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListSKUsAndPage(t *testing.T) {
	catalog := &fakeCatalog{skus: []models.SKU{{ID: "1", Code: "A&B", Name: "Alpha", CreatedAt: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)}}}

	rec := httptest.NewRecorder()
	ListSKUsQueryHandler(catalog, time.UTC).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app/api/skus", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []SKUResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "A&B", list[0].Code)

	rec = httptest.NewRecorder()
	SKUsPageQueryHandler(catalog, time.UTC).ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodGet, "/app/skus", nil), rbac.RoleOperator))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "A&amp;B")
	assert.NotContains(t, rec.Body.String(), `id="sku-form"`)
}
