package exports

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"batchledger/infrastructure/sqlite"
	"batchledger/models"
)

func recordExportRun(ctx context.Context, db *sqlite.DB, run *models.ExportRun) error {
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(run).
			Column("user_id", "export_type", "range_start", "range_end", "row_count", "archive_key").
			Exec(ctx)
		return err
	})
}

// ListExportRuns returns the most recent export runs, newest first.
func ListExportRuns(ctx context.Context, db *sqlite.DB, limit int) ([]models.ExportRun, error) {
	type row struct {
		ID         int64  `bun:"id"`
		UserID     *int64 `bun:"user_id"`
		ExportType string `bun:"export_type"`
		RangeStart string `bun:"range_start"`
		RangeEnd   string `bun:"range_end"`
		RowCount   int64  `bun:"row_count"`
		ArchiveKey string `bun:"archive_key"`
		CreatedAt  string `bun:"created_at"`
	}
	rows := make([]row, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`
SELECT id, user_id, export_type, COALESCE(range_start, '') AS range_start, COALESCE(range_end, '') AS range_end,
       row_count, COALESCE(archive_key, '') AS archive_key, CAST(created_at AS TEXT) AS created_at
FROM export_runs
ORDER BY id DESC
LIMIT ?`, limit).Scan(ctx, &rows)
	})
	if err != nil {
		return nil, err
	}
	out := make([]models.ExportRun, 0, len(rows))
	for _, r := range rows {
		created, _ := time.Parse("2006-01-02 15:04:05", r.CreatedAt)
		out = append(out, models.ExportRun{
			ID:         r.ID,
			UserID:     r.UserID,
			ExportType: r.ExportType,
			RangeStart: r.RangeStart,
			RangeEnd:   r.RangeEnd,
			RowCount:   r.RowCount,
			ArchiveKey: r.ArchiveKey,
			CreatedAt:  created,
		})
	}
	return out, nil
}
