// Package history serves read access to the batch ledger.
package history

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"batchledger/frontend/production"
	"batchledger/frontend/shared/respond"
	"batchledger/infrastructure/errs"
	"batchledger/infrastructure/ledger"
)

// Reader is the query side of the ledger.
type Reader interface {
	ListAll(ctx context.Context) ([]ledger.Entry, error)
	ListByDateRange(ctx context.Context, r ledger.DateRange) ([]ledger.Entry, error)
	Search(ctx context.Context, term string) ([]ledger.Entry, error)
	FindByNumber(ctx context.Context, batchNumber string) (ledger.Entry, error)
	Location() *time.Location
}

func toResponses(entries []ledger.Entry, loc *time.Location) []production.BatchResponse {
	out := make([]production.BatchResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, production.NewBatchResponse(e, loc))
	}
	return out
}

// ListBatchesQueryHandler lists records newest first. ?q searches codes,
// names and batch numbers; ?start and ?end restrict to calendar days.
// Both filters together are rejected.
func ListBatchesQueryHandler(reader Reader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "history.ListBatches"
		q := r.URL.Query()
		term := strings.TrimSpace(q.Get("q"))
		start := strings.TrimSpace(q.Get("start"))
		end := strings.TrimSpace(q.Get("end"))

		var (
			entries []ledger.Entry
			err     error
		)
		switch {
		case term != "" && (start != "" || end != ""):
			err = errs.Errorf(op, errs.InvalidInput, "search and date range cannot be combined")
		case term != "":
			entries, err = reader.Search(r.Context(), term)
		case start != "" || end != "":
			if start == "" {
				start = end
			}
			var dr ledger.DateRange
			dr, err = ledger.ParseDateRange(start, end)
			if err != nil {
				err = errs.E(op, errs.InvalidInput, err)
				break
			}
			entries, err = reader.ListByDateRange(r.Context(), dr)
		default:
			entries, err = reader.ListAll(r.Context())
		}
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, toResponses(entries, reader.Location()))
	}
}

// FindBatchQueryHandler returns one record by batch number.
func FindBatchQueryHandler(reader Reader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, err := reader.FindByNumber(r.Context(), chi.URLParam(r, "batchNumber"))
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, production.NewBatchResponse(entry, reader.Location()))
	}
}
