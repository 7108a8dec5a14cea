package ledger

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"batchledger/infrastructure/audit"
	"batchledger/infrastructure/sqlite"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock(t time.Time) *testClock {
	return &testClock{t: t}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func openTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.OpenDB(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.ApplyEmbeddedMigrations(context.Background(), db))
	return db
}

func newTestLedger(t *testing.T, opts ...Option) (*Ledger, *sqlite.DB) {
	t.Helper()
	db := openTestDB(t)
	opts = append([]Option{WithRetryBackoff(0)}, opts...)
	return New(db, audit.NewService(), opts...), db
}

func seedSKU(t *testing.T, db *sqlite.DB, id, code, name string) {
	t.Helper()
	err := db.WithWriteTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO skus (id, code, name, created_at, created_by) VALUES (?, ?, ?, ?, 1)`,
			id, code, name, sqlite.FormatTime(time.Now()))
		return err
	})
	require.NoError(t, err)
}

func softDeleteSKU(t *testing.T, db *sqlite.DB, id string) {
	t.Helper()
	err := db.WithWriteTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE skus SET deleted_at = ? WHERE id = ?`, sqlite.FormatTime(time.Now()), id)
		return err
	})
	require.NoError(t, err)
}

func issue(t *testing.T, l *Ledger, skuID string, qty int64) Entry {
	t.Helper()
	e, err := l.Issue(context.Background(), IssueInput{SKUID: skuID, Quantity: qty, CreatedBy: 7})
	require.NoError(t, err)
	return e
}

func countRows(t *testing.T, db *sqlite.DB, query string, args ...any) int64 {
	t.Helper()
	var n int64
	err := db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(query, args...).Scan(ctx, &n)
	})
	require.NoError(t, err)
	return n
}
