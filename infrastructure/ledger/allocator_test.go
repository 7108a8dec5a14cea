package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"batchledger/infrastructure/audit"
	"batchledger/infrastructure/errs"
	"batchledger/infrastructure/sqlite"
)

func insertRawBatch(t *testing.T, db *sqlite.DB, id, skuID string, seq int64, number string) {
	t.Helper()
	err := db.WithWriteTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO batches (id, sku_id, sequence, batch_number, quantity, created_at, created_by)
VALUES (?, ?, ?, ?, 1, ?, 1)`, id, skuID, seq, number, sqlite.FormatTime(time.Now()))
		return err
	})
	require.NoError(t, err)
}

func TestIssueAssignsSequentialNumbers(t *testing.T) {
	l, db := newTestLedger(t)
	seedSKU(t, db, "sku-wid", "WID", "Widget")
	seedSKU(t, db, "sku-gad", "gad", "Gadget")

	for i := int64(1); i <= 5; i++ {
		e := issue(t, l, "sku-wid", 10)
		assert.Equal(t, i, e.Sequence)
		assert.Equal(t, RenderBatchNumber("WID", i), e.BatchNumber)
		assert.Equal(t, "WID", e.SKUCode)
		assert.Equal(t, "Widget", e.SKUName)
		assert.Equal(t, int64(7), e.CreatedBy)
		assert.NotEmpty(t, e.ID)
	}

	e := issue(t, l, "sku-gad", 3)
	assert.Equal(t, int64(1), e.Sequence)
	assert.Equal(t, "GAD-000001", e.BatchNumber)

	assert.Equal(t, int64(5), countRows(t, db, `SELECT last_sequence FROM sku_sequences WHERE sku_id = ?`, "sku-wid"))
}

func TestIssueConcurrentCallersGetDistinctGapFreeSequences(t *testing.T) {
	l, db := newTestLedger(t, WithMaxAttempts(20))
	seedSKU(t, db, "sku-wid", "WID", "Widget")

	const n = 100
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seqs = make([]int64, 0, n)
		errc = make(chan error, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(qty int64) {
			defer wg.Done()
			e, err := l.Issue(context.Background(), IssueInput{SKUID: "sku-wid", Quantity: qty, CreatedBy: 1})
			if err != nil {
				errc <- err
				return
			}
			mu.Lock()
			seqs = append(seqs, e.Sequence)
			mu.Unlock()
		}(int64(i + 1))
	}
	wg.Wait()
	close(errc)
	for err := range errc {
		require.NoError(t, err)
	}

	require.Len(t, seqs, n)
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	for i, s := range seqs {
		assert.Equal(t, int64(i+1), s)
	}

	total, err := l.TotalQuantity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(n*(n+1)/2), total)
	assert.Equal(t, int64(n), countRows(t, db, `SELECT COUNT(DISTINCT batch_number) FROM batches`))
}

func TestIssueAcrossSeparateHandlesOnOneFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	ctx := context.Background()
	open := func() *sqlite.DB {
		db, err := sqlite.OpenDB(path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		return db
	}
	first := open()
	require.NoError(t, sqlite.ApplyEmbeddedMigrations(ctx, first))
	seedSKU(t, first, "sku-wid", "WID", "Widget")
	second := open()

	auditSvc := audit.NewService()
	ledgers := []*Ledger{
		New(first, auditSvc, WithMaxAttempts(50), WithRetryBackoff(time.Millisecond)),
		New(second, auditSvc, WithMaxAttempts(50), WithRetryBackoff(time.Millisecond)),
	}

	const n = 100
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seqs = make([]int64, 0, n)
		errc = make(chan error, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(l *Ledger) {
			defer wg.Done()
			e, err := l.Issue(ctx, IssueInput{SKUID: "sku-wid", Quantity: 1, CreatedBy: 1})
			if err != nil {
				errc <- err
				return
			}
			mu.Lock()
			seqs = append(seqs, e.Sequence)
			mu.Unlock()
		}(ledgers[i%2])
	}
	wg.Wait()
	close(errc)
	for err := range errc {
		require.NoError(t, err)
	}

	require.Len(t, seqs, n)
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	for i, s := range seqs {
		assert.Equal(t, int64(i+1), s)
	}
	assert.Equal(t, int64(n), countRows(t, second, `SELECT COUNT(DISTINCT batch_number) FROM batches`))
	assert.Equal(t, int64(n), countRows(t, first, `SELECT last_sequence FROM sku_sequences WHERE sku_id = ?`, "sku-wid"))
}

func TestIssueRejectsNonPositiveQuantity(t *testing.T) {
	l, db := newTestLedger(t)
	seedSKU(t, db, "sku-wid", "WID", "Widget")

	for _, qty := range []int64{0, -5} {
		_, err := l.Issue(context.Background(), IssueInput{SKUID: "sku-wid", Quantity: qty, CreatedBy: 1})
		require.Error(t, err)
		assert.Equal(t, errs.InvalidInput, errs.KindOf(err))
	}
	assert.Zero(t, countRows(t, db, `SELECT COUNT(*) FROM batches`))

	e := issue(t, l, "sku-wid", 1)
	assert.Equal(t, int64(1), e.Sequence)
}

func TestIssueUnknownOrDeletedSKU(t *testing.T) {
	l, db := newTestLedger(t)

	_, err := l.Issue(context.Background(), IssueInput{SKUID: "missing", Quantity: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
	assert.True(t, errors.Is(err, ErrUnknownSKU))

	seedSKU(t, db, "sku-old", "OLD", "Retired")
	issue(t, l, "sku-old", 4)
	softDeleteSKU(t, db, "sku-old")

	_, err = l.Issue(context.Background(), IssueInput{SKUID: "sku-old", Quantity: 1})
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
	assert.Equal(t, int64(1), countRows(t, db, `SELECT COUNT(*) FROM batches`))
}

func TestIssueCancelledContextConsumesNoNumber(t *testing.T) {
	l, db := newTestLedger(t)
	seedSKU(t, db, "sku-wid", "WID", "Widget")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Issue(ctx, IssueInput{SKUID: "sku-wid", Quantity: 1})
	require.Error(t, err)
	assert.Equal(t, errs.Unavailable, errs.KindOf(err))

	e := issue(t, l, "sku-wid", 1)
	assert.Equal(t, int64(1), e.Sequence)
}

func TestIssueGivesUpAfterMaxAttempts(t *testing.T) {
	l, db := newTestLedger(t, WithMaxAttempts(3))
	seedSKU(t, db, "sku-wid", "WID", "Widget")
	seedSKU(t, db, "sku-other", "OTHER", "Other")
	// Occupies the number the allocator will render for WID's first batch.
	insertRawBatch(t, db, "squatter", "sku-other", 1, "WID-000001")

	_, err := l.Issue(context.Background(), IssueInput{SKUID: "sku-wid", Quantity: 1})
	require.Error(t, err)
	assert.Equal(t, errs.Unavailable, errs.KindOf(err))
	assert.Zero(t, countRows(t, db, `SELECT COUNT(*) FROM batches WHERE sku_id = ?`, "sku-wid"))
	assert.Zero(t, countRows(t, db, `SELECT COUNT(*) FROM sku_sequences WHERE sku_id = ?`, "sku-wid"))
}

func TestIssueContinuesFromLedgerWhenCounterIsBehind(t *testing.T) {
	l, db := newTestLedger(t)
	seedSKU(t, db, "sku-wid", "WID", "Widget")
	seedSKU(t, db, "sku-gad", "GAD", "Gadget")

	insertRawBatch(t, db, "w1", "sku-wid", 1, "WID-000001")
	insertRawBatch(t, db, "w2", "sku-wid", 2, "WID-000002")
	insertRawBatch(t, db, "w3", "sku-wid", 3, "WID-000003")

	e := issue(t, l, "sku-wid", 1)
	assert.Equal(t, int64(4), e.Sequence)
	assert.Equal(t, int64(4), countRows(t, db, `SELECT last_sequence FROM sku_sequences WHERE sku_id = ?`, "sku-wid"))

	insertRawBatch(t, db, "g1", "sku-gad", 1, "GAD-000001")
	insertRawBatch(t, db, "g2", "sku-gad", 2, "GAD-000002")
	err := db.WithWriteTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO sku_sequences (sku_id, last_sequence) VALUES (?, 1)`, "sku-gad")
		return err
	})
	require.NoError(t, err)

	e = issue(t, l, "sku-gad", 1)
	assert.Equal(t, int64(3), e.Sequence)
	assert.Equal(t, "GAD-000003", e.BatchNumber)
}

func TestIssueWritesAuditRecord(t *testing.T) {
	l, db := newTestLedger(t)
	seedSKU(t, db, "sku-wid", "WID", "Widget")
	e := issue(t, l, "sku-wid", 12)

	err := db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		logs, err := audit.NewService().ForEntity(ctx, tx, "batch", e.ID)
		if err != nil {
			return err
		}
		require.Len(t, logs, 1)
		assert.Equal(t, audit.ActionBatchCreate, logs[0].Action)
		assert.Equal(t, int64(7), logs[0].UserID)
		assert.Contains(t, logs[0].AfterJSON, "WID-000001")
		return nil
	})
	require.NoError(t, err)
}

func TestIssueStampsClockTime(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 123456789, time.UTC)
	l, db := newTestLedger(t, WithClock(func() time.Time { return at }))
	seedSKU(t, db, "sku-wid", "WID", "Widget")

	e := issue(t, l, "sku-wid", 1)
	assert.True(t, e.CreatedAt.Equal(at.Truncate(time.Microsecond)))

	stored, err := l.FindByNumber(context.Background(), e.BatchNumber)
	require.NoError(t, err)
	assert.True(t, stored.CreatedAt.Equal(e.CreatedAt))
}
