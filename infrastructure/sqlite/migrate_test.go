package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/uptrace/bun"
)

func TestApplyEmbeddedMigrations(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "embedded.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	ctx := context.Background()
	if err := ApplyEmbeddedMigrations(ctx, db); err != nil {
		t.Fatalf("apply embedded migrations: %v", err)
	}
	// Second run must be a no-op.
	if err := ApplyEmbeddedMigrations(ctx, db); err != nil {
		t.Fatalf("re-apply embedded migrations: %v", err)
	}

	for _, table := range []string{"users", "sessions", "skus", "batches", "sku_sequences", "audit_logs", "export_runs"} {
		var count int64
		err = db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
			return tx.NewRaw(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(ctx, &count)
		})
		if err != nil {
			t.Fatalf("query sqlite_master: %v", err)
		}
		if count != 1 {
			t.Fatalf("expected %s table after embedded migrations, got %d", table, count)
		}
	}

	var applied int64
	if err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`SELECT COUNT(*) FROM schema_migrations`).Scan(ctx, &applied)
	}); err != nil {
		t.Fatalf("count schema_migrations: %v", err)
	}
	if applied == 0 {
		t.Fatalf("expected applied migrations to be recorded")
	}
}

func TestApplyMigrationsMissingDir(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "missing.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	if err := ApplyMigrations(context.Background(), db, filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error for missing migrations dir")
	}
}

func TestTimeFormatRoundTrip(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	in := time.Date(2026, 3, 1, 8, 30, 15, 123456000, loc)

	s := FormatTime(in)
	if s != "2026-02-28T22:30:15.123456Z" {
		t.Fatalf("unexpected format: %s", s)
	}
	out, err := ParseTime(s)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !out.Equal(in) {
		t.Fatalf("expected %v, got %v", in, out)
	}

	if FormatTime(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)) >= FormatTime(time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected lexical order to follow chronological order")
	}

	none, err := ParseNullableTime("")
	if err != nil || none != nil {
		t.Fatalf("expected nil time for empty value, got %v err=%v", none, err)
	}
}
