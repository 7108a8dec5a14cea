package ledger

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"batchledger/infrastructure/errs"
	"batchledger/infrastructure/sqlite"
)

// Totals are computed from the ledger on every call.

// TotalQuantity sums the quantity of every record.
func (l *Ledger) TotalQuantity(ctx context.Context) (int64, error) {
	var total int64
	err := l.db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`SELECT COALESCE(SUM(quantity), 0) FROM batches`).Scan(ctx, &total)
	})
	if err != nil {
		return 0, errs.E("ledger.TotalQuantity", errs.Other, err)
	}
	return total, nil
}

// TodayQuantity sums the quantity of records created on the calendar day of
// referenceDate, from 00:00:00 up to but excluding the next midnight in the
// reference timezone. The day is read from referenceDate's own date fields.
func (l *Ledger) TodayQuantity(ctx context.Context, referenceDate time.Time) (int64, error) {
	from, to := DayOf(referenceDate).Bounds(l.loc)
	var total int64
	err := l.db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`
SELECT COALESCE(SUM(quantity), 0)
FROM batches
WHERE created_at >= ? AND created_at < ?`, sqlite.FormatTime(from), sqlite.FormatTime(to)).Scan(ctx, &total)
	})
	if err != nil {
		return 0, errs.E("ledger.TodayQuantity", errs.Other, err)
	}
	return total, nil
}

// Summary returns all-time and same-day totals read in one transaction.
func (l *Ledger) Summary(ctx context.Context, referenceDate time.Time) (Stats, error) {
	from, to := DayOf(referenceDate).Bounds(l.loc)
	var stats Stats
	err := l.db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		type summaryRow struct {
			TotalQuantity int64 `bun:"total_quantity"`
			TotalBatches  int64 `bun:"total_batches"`
			TodayQuantity int64 `bun:"today_quantity"`
			TodayBatches  int64 `bun:"today_batches"`
		}
		row := summaryRow{}
		if err := tx.NewRaw(`
SELECT
  COALESCE(SUM(quantity), 0) AS total_quantity,
  COUNT(*) AS total_batches,
  COALESCE(SUM(CASE WHEN created_at >= ? AND created_at < ? THEN quantity ELSE 0 END), 0) AS today_quantity,
  COALESCE(SUM(CASE WHEN created_at >= ? AND created_at < ? THEN 1 ELSE 0 END), 0) AS today_batches
FROM batches`,
			sqlite.FormatTime(from), sqlite.FormatTime(to),
			sqlite.FormatTime(from), sqlite.FormatTime(to),
		).Scan(ctx, &row); err != nil {
			return err
		}
		stats = Stats{
			TotalQuantity: row.TotalQuantity,
			TotalBatches:  row.TotalBatches,
			TodayQuantity: row.TodayQuantity,
			TodayBatches:  row.TodayBatches,
		}
		return nil
	})
	if err != nil {
		return Stats{}, errs.E("ledger.Summary", errs.Other, err)
	}
	return stats, nil
}
