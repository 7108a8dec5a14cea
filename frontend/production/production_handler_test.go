package production

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sessioncontext "batchledger/frontend/shared/context"
	"batchledger/infrastructure/errs"
	"batchledger/infrastructure/idempotency"
	"batchledger/infrastructure/ledger"
	"batchledger/models"
)

type fakeIssuer struct {
	calls int
	err   error
}

func (f *fakeIssuer) Issue(_ context.Context, in ledger.IssueInput) (ledger.Entry, error) {
	f.calls++
	if f.err != nil {
		return ledger.Entry{}, f.err
	}
	e := ledger.Entry{SKUCode: "WID", SKUName: "Widget"}
	e.ID = "b1"
	e.SKUID = in.SKUID
	e.Sequence = int64(f.calls)
	e.BatchNumber = ledger.RenderBatchNumber("WID", int64(f.calls))
	e.Quantity = in.Quantity
	e.CreatedBy = in.CreatedBy
	e.CreatedAt = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	return e, nil
}

func (f *fakeIssuer) Location() *time.Location { return time.UTC }

type fakeStats struct {
	gotRef time.Time
}

func (f *fakeStats) Summary(_ context.Context, ref time.Time) (ledger.Stats, error) {
	f.gotRef = ref
	return ledger.Stats{TotalQuantity: 25, TodayQuantity: 25, TodayBatches: 2, TotalBatches: 2}, nil
}

func (f *fakeStats) Now() time.Time { return time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC) }

func (f *fakeStats) Location() *time.Location { return time.UTC }

type fakeSKUs struct{}

func (fakeSKUs) ListSKUs(context.Context) ([]models.SKU, error) {
	return []models.SKU{{ID: "sku-1", Code: "WID", Name: "Widget <b>"}}, nil
}

func withOperator(r *http.Request) *http.Request {
	session := models.Session{
		ID:        "tok",
		UserID:    9,
		User:      models.User{ID: 9, Username: "op", Role: "operator"},
		UserRoles: []string{"operator"},
	}
	return r.WithContext(sessioncontext.NewContextWithSession(r.Context(), session))
}

func postBatch(h http.Handler, body, key string) *httptest.ResponseRecorder {
	req := withOperator(httptest.NewRequest(http.MethodPost, "/app/api/batches", strings.NewReader(body)))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateBatch(t *testing.T) {
	issuer := &fakeIssuer{}
	h := CreateBatchCommandHandler(issuer, idempotency.NewMemoryStore(time.Hour))

	rec := postBatch(h, `{"sku_id":"sku-1","quantity":10}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp BatchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.BatchNumber != "WID-000001" || resp.Quantity != 10 || resp.CreatedBy != 9 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if got := rec.Header().Get("Location"); got != "/app/api/batches/WID-000001" {
		t.Fatalf("unexpected location %q", got)
	}
}

func TestCreateBatchValidation(t *testing.T) {
	issuer := &fakeIssuer{}
	h := CreateBatchCommandHandler(issuer, idempotency.NewMemoryStore(time.Hour))

	for _, body := range []string{`{"sku_id":"sku-1","quantity":0}`, `{"sku_id":" ","quantity":3}`, `not json`, `{"sku_id":"sku-1","quantity":1.5}`} {
		rec := postBatch(h, body, "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, rec.Code)
		}
	}
	if issuer.calls != 0 {
		t.Fatalf("issuer must not be called for invalid input")
	}
}

func TestCreateBatchRequiresCaller(t *testing.T) {
	h := CreateBatchCommandHandler(&fakeIssuer{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/app/api/batches", strings.NewReader(`{"sku_id":"a","quantity":1}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestCreateBatchReplaysIdempotentRequest(t *testing.T) {
	issuer := &fakeIssuer{}
	h := CreateBatchCommandHandler(issuer, idempotency.NewMemoryStore(time.Hour))

	first := postBatch(h, `{"sku_id":"sku-1","quantity":10}`, "key-1")
	second := postBatch(h, `{"sku_id":"sku-1","quantity":10}`, "key-1")
	if first.Code != http.StatusCreated || second.Code != http.StatusCreated {
		t.Fatalf("expected 201s, got %d and %d", first.Code, second.Code)
	}
	if issuer.calls != 1 {
		t.Fatalf("expected one issue, got %d", issuer.calls)
	}
	if second.Header().Get(ReplayedHeader) != "true" {
		t.Fatalf("expected replay header")
	}
	if strings.TrimSpace(first.Body.String()) != strings.TrimSpace(second.Body.String()) {
		t.Fatalf("replayed body differs:\n%s\n%s", first.Body.String(), second.Body.String())
	}

	third := postBatch(h, `{"sku_id":"sku-1","quantity":10}`, "key-2")
	if third.Code != http.StatusCreated || issuer.calls != 2 {
		t.Fatalf("expected a new batch for a new key, got %d calls=%d", third.Code, issuer.calls)
	}
}

func TestCreateBatchInFlightKeyConflicts(t *testing.T) {
	store := idempotency.NewMemoryStore(time.Hour)
	if _, reserved, _ := store.Reserve(context.Background(), idempotency.Key(9, "busy")); !reserved {
		t.Fatalf("expected reserve")
	}
	issuer := &fakeIssuer{}
	rec := postBatch(CreateBatchCommandHandler(issuer, store), `{"sku_id":"sku-1","quantity":1}`, "busy")
	if rec.Code != http.StatusConflict || issuer.calls != 0 {
		t.Fatalf("expected 409 without issuing, got %d calls=%d", rec.Code, issuer.calls)
	}
}

func TestCreateBatchFailureReleasesKey(t *testing.T) {
	issuer := &fakeIssuer{err: errs.Errorf("ledger.Issue", errs.NotFound, "unknown sku")}
	h := CreateBatchCommandHandler(issuer, idempotency.NewMemoryStore(time.Hour))

	rec := postBatch(h, `{"sku_id":"gone","quantity":1}`, "k")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	issuer.err = nil
	rec = postBatch(h, `{"sku_id":"sku-1","quantity":1}`, "k")
	if rec.Code != http.StatusCreated || issuer.calls != 2 {
		t.Fatalf("expected retry with same key to issue, got %d calls=%d", rec.Code, issuer.calls)
	}
}

type flakyCompleteStore struct {
	*idempotency.MemoryStore
	failures int
	attempts int
}

func (s *flakyCompleteStore) Complete(ctx context.Context, key, value string) error {
	s.attempts++
	if s.attempts <= s.failures {
		return errors.New("connection reset")
	}
	return s.MemoryStore.Complete(ctx, key, value)
}

func TestCreateBatchRetriesCompleteOnce(t *testing.T) {
	issuer := &fakeIssuer{}
	store := &flakyCompleteStore{MemoryStore: idempotency.NewMemoryStore(time.Hour), failures: 1}
	h := CreateBatchCommandHandler(issuer, store)

	first := postBatch(h, `{"sku_id":"sku-1","quantity":3}`, "flaky")
	if first.Code != http.StatusCreated || store.attempts != 2 {
		t.Fatalf("expected 201 after a second complete, got %d attempts=%d", first.Code, store.attempts)
	}
	second := postBatch(h, `{"sku_id":"sku-1","quantity":3}`, "flaky")
	if second.Code != http.StatusCreated || second.Header().Get(ReplayedHeader) != "true" || issuer.calls != 1 {
		t.Fatalf("expected replay without issuing, got %d calls=%d", second.Code, issuer.calls)
	}
}

func TestCreateBatchUnrecordedKeyStaysPending(t *testing.T) {
	issuer := &fakeIssuer{}
	store := &flakyCompleteStore{MemoryStore: idempotency.NewMemoryStore(time.Hour), failures: 2}
	h := CreateBatchCommandHandler(issuer, store)

	if rec := postBatch(h, `{"sku_id":"sku-1","quantity":3}`, "lost"); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	rec := postBatch(h, `{"sku_id":"sku-1","quantity":3}`, "lost")
	if rec.Code != http.StatusConflict || issuer.calls != 1 {
		t.Fatalf("expected 409 without a second batch, got %d calls=%d", rec.Code, issuer.calls)
	}
}

func TestStatsQueryHandler(t *testing.T) {
	stats := &fakeStats{}
	h := StatsQueryHandler(stats)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app/api/stats?date=2026-10-18", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp StatsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Date != "2026-10-18" || resp.TotalQuantity != 25 || resp.BatchCount != 2 {
		t.Fatalf("unexpected stats %+v", resp)
	}
	if !stats.gotRef.Equal(time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected reference date %v", stats.gotRef)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app/api/stats?date=18/10/2026", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed date, got %d", rec.Code)
	}
}

func TestProductionPageRendersEscapedOptions(t *testing.T) {
	h := ProductionPageQueryHandler(&fakeStats{}, fakeSKUs{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, withOperator(httptest.NewRequest(http.MethodGet, "/app/production", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{`value="sku-1"`, "WID - Widget &lt;b&gt;", `id="stat-today">25<`, `data-date="2026-10-19"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected page to contain %q", want)
		}
	}
}
