package blob

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"batchledger/infrastructure/config"
)

func TestFSStorePut(t *testing.T) {
	root := t.TempDir()
	store, err := NewFS(root)
	if err != nil {
		t.Fatalf("new fs store: %v", err)
	}
	ctx := context.Background()

	if err := store.Put(ctx, "exports/2026/batches_2026-10-19.csv", "text/csv", []byte("a,b\n")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(root, "exports", "2026", "batches_2026-10-19.csv"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != "a,b\n" {
		t.Fatalf("unexpected content %q", got)
	}

	if err := store.Put(ctx, "exports/2026/batches_2026-10-19.csv", "text/csv", []byte("x")); err == nil {
		t.Fatalf("expected overwrite to fail")
	}
}

func TestFSStoreRejectsEscapingKeys(t *testing.T) {
	store, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("new fs store: %v", err)
	}
	for _, key := range []string{"", "  ", "../x", "a/../../x", "/etc/passwd"} {
		if err := store.Put(context.Background(), key, "", []byte("x")); err == nil {
			t.Fatalf("expected key %q to be rejected", key)
		}
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, config.ArchiveConfig{Driver: "none"})
	if err != nil || store != nil {
		t.Fatalf("expected nil store for none, got %v %v", store, err)
	}

	store, err = Open(ctx, config.ArchiveConfig{Driver: "fs", FSRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("open fs: %v", err)
	}
	if store.Driver() != DriverFilesystem {
		t.Fatalf("unexpected driver %q", store.Driver())
	}

	if _, err := Open(ctx, config.ArchiveConfig{Driver: "s3"}); err == nil {
		t.Fatalf("expected missing bucket error")
	}
	if _, err := Open(ctx, config.ArchiveConfig{Driver: "ftp"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
