package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"batchledger/frontend/shared/validate"
	"batchledger/infrastructure/errs"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var env struct {
		Error ErrorBody `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return env.Error
}

func TestErrorMapsKindToStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{errs.Errorf("ledger.FindByNumber", errs.NotFound, "batch WID-000009 not found"), http.StatusNotFound, "not_found"},
		{errs.Errorf("catalog.CreateSKU", errs.Conflict, "dup"), http.StatusConflict, "conflict"},
		{errs.Errorf("catalog.CreateSKU", errs.Forbidden, "no"), http.StatusForbidden, "forbidden"},
		{errs.Errorf("ledger.Issue", errs.InvalidInput, "bad"), http.StatusBadRequest, "invalid_input"},
		{errs.Errorf("ledger.Issue", errs.Unavailable, "busy"), http.StatusServiceUnavailable, "unavailable"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		Error(rec, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
		if rec.Code != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, rec.Code)
		}
		body := decode(t, rec)
		if body.Kind != tc.kind || body.Op == "" || body.Message == "" {
			t.Fatalf("unexpected body %+v", body)
		}
	}
}

func TestErrorHidesInternalMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, httptest.NewRequest(http.MethodGet, "/", nil), errs.E("ledger.ListAll", errs.Other, errors.New("disk I/O error")))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if body := decode(t, rec); body.Message != "internal error" {
		t.Fatalf("expected internal message hidden, got %q", body.Message)
	}
}

func TestInvalidListsValidationMessages(t *testing.T) {
	rec := httptest.NewRecorder()
	Invalid(rec, &validate.Error{Messages: []string{"quantity is required"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decode(t, rec)
	if len(body.Details) != 1 || body.Details[0] != "quantity is required" {
		t.Fatalf("unexpected details %+v", body.Details)
	}
}
