package production

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	sessioncontext "batchledger/frontend/shared/context"
	"batchledger/frontend/shared/nav"
	"batchledger/frontend/shared/respond"
	"batchledger/frontend/shared/validate"
	"batchledger/infrastructure/errs"
	"batchledger/infrastructure/idempotency"
	"batchledger/infrastructure/ledger"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"
	maxIdempotencyKeyLen = 128
	maxBodyBytes         = 1 << 20
)

// ProductionPageQueryHandler renders the production tab.
func ProductionPageQueryHandler(stats StatsReader, skus SKULister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := sessioncontext.GetSessionFromContext(r.Context())
		now := stats.Now()

		summary, err := stats.Summary(r.Context(), now)
		if err != nil {
			slog.Error("load production stats failed", slog.Any("err", err))
			http.Error(w, "failed to load production stats", http.StatusInternalServerError)
			return
		}
		list, err := skus.ListSKUs(r.Context())
		if err != nil {
			slog.Error("load skus failed", slog.Any("err", err))
			http.Error(w, "failed to load skus", http.StatusInternalServerError)
			return
		}
		options := make([]SKUOption, 0, len(list))
		for _, s := range list {
			options = append(options, SKUOption{ID: s.ID, Label: s.Code + " - " + s.Name})
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := ProductionPage(nav.BuildTopNavData(session), PageData{
			Date:  ledger.DayOf(now).String(),
			Stats: summary,
			SKUs:  options,
		}).Render(r.Context(), w); err != nil {
			slog.Error("render production page failed", slog.Any("err", err))
			http.Error(w, "failed to render production page", http.StatusInternalServerError)
			return
		}
	}
}

// StatsQueryHandler returns totals for ?date=YYYY-MM-DD, or for today.
func StatsQueryHandler(stats StatsReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day := ledger.DayOf(stats.Now())
		if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
			parsed, err := ledger.ParseDay(raw)
			if err != nil {
				respond.Error(w, r, errs.E("production.Stats", errs.InvalidInput, err))
				return
			}
			day = parsed
		}

		summary, err := stats.Summary(r.Context(), day.Start(stats.Location()))
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, StatsResponse{
			Date:          day.String(),
			TotalQuantity: summary.TotalQuantity,
			TodayQuantity: summary.TodayQuantity,
			TodayBatches:  summary.TodayBatches,
			BatchCount:    summary.TotalBatches,
		})
	}
}

// CreateBatchCommandHandler issues a batch. A request repeated with the same
// Idempotency-Key replays the first response.
func CreateBatchCommandHandler(issuer BatchIssuer, store idempotency.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := sessioncontext.CallerFromContext(r.Context())
		if !ok {
			respond.Status(w, http.StatusUnauthorized, "unauthorized", "login required")
			return
		}

		var req CreateBatchRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			respond.Invalid(w, err)
			return
		}
		req.SKUID = strings.TrimSpace(req.SKUID)
		if err := validate.Struct(req); err != nil {
			respond.Invalid(w, err)
			return
		}

		clientKey := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
		if len(clientKey) > maxIdempotencyKeyLen {
			respond.Status(w, http.StatusBadRequest, errs.InvalidInput.String(), "Idempotency-Key is too long")
			return
		}

		var key string
		if clientKey != "" && store != nil {
			key = idempotency.Key(caller.UserID, clientKey)
			stored, reserved, err := store.Reserve(r.Context(), key)
			if err != nil {
				slog.Error("idempotency reserve failed", slog.Any("err", err))
				respond.Status(w, http.StatusServiceUnavailable, errs.Unavailable.String(), "idempotency store unavailable")
				return
			}
			if !reserved {
				if stored == idempotency.Pending {
					respond.Status(w, http.StatusConflict, errs.Conflict.String(), "a request with this Idempotency-Key is still in progress")
					return
				}
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.Header().Set(ReplayedHeader, "true")
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(stored))
				return
			}
		}

		entry, err := issuer.Issue(r.Context(), ledger.IssueInput{
			SKUID:     req.SKUID,
			Quantity:  req.Quantity,
			CreatedBy: caller.UserID,
		})
		if err != nil {
			if key != "" {
				if relErr := store.Release(r.Context(), key); relErr != nil {
					slog.Error("idempotency release failed", slog.Any("err", relErr))
				}
			}
			respond.Error(w, r, err)
			return
		}

		body, err := json.Marshal(NewBatchResponse(entry, issuer.Location()))
		if err != nil {
			respond.Error(w, r, errs.E("production.CreateBatch", errs.Other, err))
			return
		}
		if key != "" {
			completeKey(r.Context(), store, key, string(body), entry.BatchNumber)
		}
		slog.Info("batch issued",
			slog.String("batch_number", entry.BatchNumber),
			slog.Int64("quantity", entry.Quantity),
			slog.Int64("user_id", caller.UserID),
		)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Location", "/app/api/batches/"+entry.BatchNumber)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(append(body, '\n'))
	}
}

// completeKey stores the response for key, retrying once. The key is never
// released after a successful issue, so an unrecorded key stays pending
// until its TTL rather than allowing a second batch.
func completeKey(ctx context.Context, store idempotency.Store, key, body, batchNumber string) {
	err := store.Complete(ctx, key, body)
	if err == nil {
		return
	}
	slog.Warn("idempotency complete failed, retrying", slog.String("batch_number", batchNumber), slog.Any("err", err))
	if err := store.Complete(context.WithoutCancel(ctx), key, body); err != nil {
		slog.Error("idempotency complete failed", slog.String("batch_number", batchNumber), slog.Any("err", err))
	}
}
