// Package exports serves ledger downloads: spreadsheets of a date range and
// printable batch labels.
package exports

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	sessioncontext "batchledger/frontend/shared/context"
	"batchledger/frontend/shared/respond"
	"batchledger/infrastructure/blob"
	"batchledger/infrastructure/errs"
	"batchledger/infrastructure/ledger"
	"batchledger/infrastructure/metrics"
	"batchledger/infrastructure/sqlite"
	"batchledger/models"
)

// BatchesExportHandler serves the records of ?start=&end= as a file. A
// missing start defaults to end, or to today when both are missing.
func BatchesExportHandler(source Source, db *sqlite.DB, archive blob.Store, format Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		op := "exports.Batches" + strings.ToUpper(string(format))
		dr, err := requestedRange(r, source)
		if err != nil {
			respond.Error(w, r, errs.E(op, errs.InvalidInput, err))
			return
		}
		rows, err := source.ExportRange(r.Context(), dr)
		if err != nil {
			respond.Error(w, r, err)
			return
		}

		var body []byte
		switch format {
		case FormatXLSX:
			body, err = WriteXLSX(rows)
		case FormatCSV:
			var buf bytes.Buffer
			err = WriteCSV(&buf, rows)
			body = buf.Bytes()
		default:
			err = errs.Errorf(op, errs.InvalidInput, "unsupported export format %q", format)
		}
		if err != nil {
			respond.Error(w, r, errs.E(op, errs.Other, err))
			return
		}

		filename := Filename(dr, format)
		run := &models.ExportRun{
			UserID:     sessionUserID(r),
			ExportType: "batches_" + string(format),
			RangeStart: dr.Start.String(),
			RangeEnd:   dr.End.String(),
			RowCount:   int64(len(rows)),
		}
		if archive != nil {
			key := archiveKey(source.Now(), filename)
			if err := archive.Put(r.Context(), key, format.ContentType(), body); err != nil {
				slog.Error("archive export failed", slog.String("driver", string(archive.Driver())), slog.String("key", key), slog.Any("err", err))
			} else {
				run.ArchiveKey = key
			}
		}
		if err := recordExportRun(r.Context(), db, run); err != nil {
			slog.Error("record export run failed", slog.String("type", run.ExportType), slog.Any("err", err))
		}
		metrics.ExportsServed.WithLabelValues(string(format)).Inc()

		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		if _, err := w.Write(body); err != nil {
			slog.Error("write export failed", slog.String("filename", filename), slog.Any("err", err))
		}
	}
}

// BatchLabelPDFHandler renders the label of {batchNumber}.
func BatchLabelPDFHandler(source LabelSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, err := source.FindByNumber(r.Context(), chi.URLParam(r, "batchNumber"))
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		loc := source.Location()
		pdf, err := RenderBatchLabelPDF(BatchLabel{
			BatchNumber: entry.BatchNumber,
			SKUCode:     entry.SKUCode,
			SKUName:     entry.SKUName,
			Quantity:    entry.Quantity,
			CreatedAt:   entry.CreatedAt.In(loc),
		}, source.Now())
		if err != nil {
			respond.Error(w, r, errs.E("exports.BatchLabel", errs.Other, err))
			return
		}
		metrics.ExportsServed.WithLabelValues("label_pdf").Inc()
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `inline; filename="`+entry.BatchNumber+`.pdf"`)
		_, _ = w.Write(pdf)
	}
}

type ExportRunResponse struct {
	ID         int64  `json:"id"`
	UserID     *int64 `json:"user_id"`
	ExportType string `json:"export_type"`
	RangeStart string `json:"range_start"`
	RangeEnd   string `json:"range_end"`
	RowCount   int64  `json:"row_count"`
	ArchiveKey string `json:"archive_key,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// ExportRunsQueryHandler lists recent downloads, newest first.
func ExportRunsQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 || n > 500 {
				respond.Status(w, http.StatusBadRequest, errs.InvalidInput.String(), "limit must be between 1 and 500")
				return
			}
			limit = n
		}
		runs, err := ListExportRuns(r.Context(), db, limit)
		if err != nil {
			respond.Error(w, r, errs.E("exports.ListExportRuns", errs.Other, err))
			return
		}
		out := make([]ExportRunResponse, 0, len(runs))
		for _, run := range runs {
			out = append(out, ExportRunResponse{
				ID:         run.ID,
				UserID:     run.UserID,
				ExportType: run.ExportType,
				RangeStart: run.RangeStart,
				RangeEnd:   run.RangeEnd,
				RowCount:   run.RowCount,
				ArchiveKey: run.ArchiveKey,
				CreatedAt:  run.CreatedAt.Format(time.RFC3339),
			})
		}
		respond.JSON(w, http.StatusOK, out)
	}
}

func requestedRange(r *http.Request, source Source) (ledger.DateRange, error) {
	start := strings.TrimSpace(r.URL.Query().Get("start"))
	end := strings.TrimSpace(r.URL.Query().Get("end"))
	if start == "" {
		start = end
	}
	if start == "" {
		today := ledger.DayOf(source.Now().In(source.Location()))
		return ledger.DateRange{Start: today, End: today}, nil
	}
	return ledger.ParseDateRange(start, end)
}

func archiveKey(now time.Time, filename string) string {
	return "exports/" + now.Format("2006/01/02") + "/" + uuid.NewString() + "_" + filename
}

func sessionUserID(r *http.Request) *int64 {
	session, ok := sessioncontext.GetSessionFromContext(r.Context())
	if !ok || session.UserID <= 0 {
		return nil
	}
	id := session.UserID
	return &id
}
