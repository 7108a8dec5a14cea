package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"batchledger/infrastructure/audit"
	"batchledger/infrastructure/errs"
	"batchledger/infrastructure/metrics"
	"batchledger/infrastructure/sqlite"
	"batchledger/models"
)

// errCounterMoved means another writer advanced the counter between our read
// and our conditional update.
var errCounterMoved = errors.New("sequence counter moved")

// Issue allocates the next sequence for in.SKUID and appends the batch
// record in the same write transaction.
//
// The record insert is guarded by UNIQUE(sku_id, sequence) and the counter
// advance is conditional on the value that was read, so a concurrent writer
// can never obtain the same number. A lost race, or a busy database, rolls
// the attempt back and retries from a fresh read. No number is consumed by a
// failed attempt.
func (l *Ledger) Issue(ctx context.Context, in IssueInput) (Entry, error) {
	const op = "ledger.Issue"
	entry, err := l.issue(ctx, op, in)
	if err != nil {
		metrics.AllocationFailures.WithLabelValues(errs.KindOf(err).String()).Inc()
		return Entry{}, err
	}
	metrics.BatchesIssued.Inc()
	metrics.QuantityIssued.Add(float64(entry.Quantity))
	return entry, nil
}

func (l *Ledger) issue(ctx context.Context, op string, in IssueInput) (Entry, error) {
	in.SKUID = strings.TrimSpace(in.SKUID)
	if in.Quantity <= 0 {
		return Entry{}, errs.E(op, errs.InvalidInput, errors.New("quantity must be a positive integer"))
	}
	if in.SKUID == "" {
		return Entry{}, errs.E(op, errs.InvalidInput, errors.New("sku is required"))
	}

	var lastErr error
	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Entry{}, errs.E(op, errs.Unavailable, err)
		}

		entry, err := l.tryIssue(ctx, in)
		if err == nil {
			return entry, nil
		}
		if errs.KindOf(err) != errs.Other {
			return Entry{}, err
		}
		if !retryable(err) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Entry{}, errs.E(op, errs.Unavailable, ctxErr)
			}
			return Entry{}, errs.E(op, errs.Other, err)
		}

		lastErr = err
		metrics.AllocationRetries.Inc()
		slog.Warn("batch allocation retry",
			slog.String("sku_id", in.SKUID),
			slog.Int("attempt", attempt),
			slog.Any("err", err),
		)
		if attempt < l.maxAttempts {
			if err := l.wait(ctx, attempt); err != nil {
				return Entry{}, errs.E(op, errs.Unavailable, err)
			}
		}
	}
	return Entry{}, errs.E(op, errs.Unavailable, fmt.Errorf("sequence allocation failed after %d attempts: %w", l.maxAttempts, lastErr))
}

func retryable(err error) bool {
	return errors.Is(err, errCounterMoved) || sqlite.IsUniqueViolation(err) || sqlite.IsBusy(err)
}

// wait sleeps a linearly growing, jittered delay before the next attempt.
func (l *Ledger) wait(ctx context.Context, attempt int) error {
	if l.backoff <= 0 {
		return nil
	}
	d := time.Duration(attempt) * l.backoff
	d += rand.N(l.backoff)
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type sequenceState struct {
	Counter   int64 `bun:"counter"`
	LedgerMax int64 `bun:"ledger_max"`
}

func (l *Ledger) tryIssue(ctx context.Context, in IssueInput) (Entry, error) {
	var entry Entry
	err := l.db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		type skuIdentity struct {
			Code string `bun:"code"`
			Name string `bun:"name"`
		}
		sku := skuIdentity{}
		err := tx.NewRaw(`SELECT code, name FROM skus WHERE id = ? AND deleted_at IS NULL`, in.SKUID).Scan(ctx, &sku)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errs.E("ledger.Issue", errs.NotFound, ErrUnknownSKU)
			}
			return err
		}

		// counter is -1 when the SKU has never been issued against.
		state := sequenceState{}
		if err := tx.NewRaw(`
SELECT
  COALESCE((SELECT last_sequence FROM sku_sequences WHERE sku_id = ?), -1) AS counter,
  COALESCE((SELECT MAX(sequence) FROM batches WHERE sku_id = ?), 0) AS ledger_max`,
			in.SKUID, in.SKUID).Scan(ctx, &state); err != nil {
			return err
		}

		current := max(state.Counter, 0)
		if state.LedgerMax > current {
			slog.Warn("sequence counter behind ledger; continuing from ledger maximum",
				slog.String("sku_id", in.SKUID),
				slog.Int64("counter", state.Counter),
				slog.Int64("ledger_max", state.LedgerMax),
			)
			current = state.LedgerMax
		}
		next := current + 1

		createdAt := l.now().UTC().Truncate(time.Microsecond)
		batch := models.Batch{
			ID:          uuid.NewString(),
			SKUID:       in.SKUID,
			Sequence:    next,
			BatchNumber: RenderBatchNumber(sku.Code, next),
			Quantity:    in.Quantity,
			CreatedAt:   createdAt,
			CreatedBy:   in.CreatedBy,
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO batches (id, sku_id, sequence, batch_number, quantity, created_at, created_by)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
			batch.ID, batch.SKUID, batch.Sequence, batch.BatchNumber, batch.Quantity,
			sqlite.FormatTime(batch.CreatedAt), batch.CreatedBy,
		); err != nil {
			return err
		}

		if state.Counter < 0 {
			if _, err := tx.NewInsert().Model(&models.SequenceCounter{SKUID: in.SKUID, LastSequence: next}).Exec(ctx); err != nil {
				return err
			}
		} else {
			res, err := tx.ExecContext(ctx,
				`UPDATE sku_sequences SET last_sequence = ? WHERE sku_id = ? AND last_sequence = ?`,
				next, in.SKUID, state.Counter)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n != 1 {
				return errCounterMoved
			}
		}

		if err := l.audit.Write(ctx, tx, audit.Entry{
			UserID:     in.CreatedBy,
			Action:     audit.ActionBatchCreate,
			EntityType: "batch",
			EntityID:   batch.ID,
			After: map[string]any{
				"batch_number": batch.BatchNumber,
				"sku_id":       batch.SKUID,
				"quantity":     batch.Quantity,
			},
		}); err != nil {
			return err
		}

		entry = Entry{Batch: batch, SKUCode: sku.Code, SKUName: sku.Name}
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}
