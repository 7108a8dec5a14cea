package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"batchledger/infrastructure/errs"
	"batchledger/infrastructure/sqlite"
)

const entrySelect = `
SELECT b.id, b.sku_id, b.sequence, b.batch_number, b.quantity, b.created_at, b.created_by,
       s.code AS sku_code, s.name AS sku_name,
       CASE WHEN s.deleted_at IS NULL THEN 0 ELSE 1 END AS sku_deleted
FROM batches b
JOIN skus s ON s.id = b.sku_id`

// Newest first; sequence breaks ties between records stamped the same microsecond.
const entryOrder = ` ORDER BY b.created_at DESC, b.sequence DESC, b.batch_number DESC`

type entryRow struct {
	ID          string `bun:"id"`
	SKUID       string `bun:"sku_id"`
	Sequence    int64  `bun:"sequence"`
	BatchNumber string `bun:"batch_number"`
	Quantity    int64  `bun:"quantity"`
	CreatedAt   string `bun:"created_at"`
	CreatedBy   int64  `bun:"created_by"`
	SKUCode     string `bun:"sku_code"`
	SKUName     string `bun:"sku_name"`
	SKUDeleted  int64  `bun:"sku_deleted"`
}

func (r entryRow) toEntry() (Entry, error) {
	created, err := sqlite.ParseTime(r.CreatedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("parse batch created_at: %w", err)
	}
	e := Entry{SKUCode: r.SKUCode, SKUName: r.SKUName, SKUDeleted: r.SKUDeleted != 0}
	e.ID = r.ID
	e.SKUID = r.SKUID
	e.Sequence = r.Sequence
	e.BatchNumber = r.BatchNumber
	e.Quantity = r.Quantity
	e.CreatedAt = created
	e.CreatedBy = r.CreatedBy
	return e, nil
}

func (l *Ledger) queryEntries(ctx context.Context, where string, args ...any) ([]Entry, error) {
	rows := make([]entryRow, 0)
	err := l.db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(entrySelect+where+entryOrder, args...).Scan(ctx, &rows)
	})
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		e, err := r.toEntry()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// ListAll returns every record, newest first.
func (l *Ledger) ListAll(ctx context.Context) ([]Entry, error) {
	entries, err := l.queryEntries(ctx, "")
	if err != nil {
		return nil, errs.E("ledger.ListAll", errs.Other, err)
	}
	return entries, nil
}

// ListByDateRange returns records created within the inclusive calendar day
// range r, evaluated in the reference timezone, newest first.
func (l *Ledger) ListByDateRange(ctx context.Context, r DateRange) ([]Entry, error) {
	const op = "ledger.ListByDateRange"
	if r.End.Before(r.Start) {
		return nil, errs.E(op, errs.InvalidInput, ErrInvertedRange)
	}
	from, to := r.Bounds(l.loc)
	entries, err := l.queryEntries(ctx, ` WHERE b.created_at >= ? AND b.created_at < ?`,
		sqlite.FormatTime(from), sqlite.FormatTime(to))
	if err != nil {
		return nil, errs.E(op, errs.Other, err)
	}
	return entries, nil
}

// Search matches term case-insensitively as a substring of the SKU code, the
// SKU name or the batch number. A blank term returns every record.
func (l *Ledger) Search(ctx context.Context, term string) ([]Entry, error) {
	const op = "ledger.Search"
	term = strings.TrimSpace(term)
	if term == "" {
		entries, err := l.queryEntries(ctx, "")
		if err != nil {
			return nil, errs.E(op, errs.Other, err)
		}
		return entries, nil
	}
	pattern := "%" + escapeLike(sqlite.Casefold(term)) + "%"
	entries, err := l.queryEntries(ctx, `
WHERE casefold(s.code) LIKE ? ESCAPE '!'
   OR casefold(s.name) LIKE ? ESCAPE '!'
   OR casefold(b.batch_number) LIKE ? ESCAPE '!'`, pattern, pattern, pattern)
	if err != nil {
		return nil, errs.E(op, errs.Other, err)
	}
	return entries, nil
}

// FindByNumber looks a record up by its batch number. Lowercase codes and
// unpadded sequences are accepted.
func (l *Ledger) FindByNumber(ctx context.Context, batchNumber string) (Entry, error) {
	const op = "ledger.FindByNumber"
	canonical, err := CanonicalBatchNumber(batchNumber)
	if err != nil {
		return Entry{}, errs.E(op, errs.InvalidInput, err)
	}
	entries, err := l.queryEntries(ctx, ` WHERE b.batch_number = ?`, canonical)
	if err != nil {
		return Entry{}, errs.E(op, errs.Other, err)
	}
	if len(entries) == 0 {
		return Entry{}, errs.Errorf(op, errs.NotFound, "batch %s not found", canonical)
	}
	return entries[0], nil
}

// ExportRange returns the rows of ListByDateRange in serializer form.
func (l *Ledger) ExportRange(ctx context.Context, r DateRange) ([]ExportRow, error) {
	entries, err := l.ListByDateRange(ctx, r)
	if err != nil {
		return nil, errs.E("ledger.ExportRange", errs.Other, err)
	}
	return ToExportRows(entries, l.loc), nil
}

// ToExportRows converts entries, stamping CreatedAt in loc.
func ToExportRows(entries []Entry, loc *time.Location) []ExportRow {
	out := make([]ExportRow, 0, len(entries))
	for _, e := range entries {
		out = append(out, ExportRow{
			BatchNumber: e.BatchNumber,
			SKUCode:     e.SKUCode,
			SKUName:     e.SKUName,
			Quantity:    e.Quantity,
			CreatedAt:   e.CreatedAt.In(loc),
		})
	}
	return out
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)
	return r.Replace(s)
}
