package cache

import (
	"testing"
	"time"

	"batchledger/models"
)

func TestSessionCachePurgeExpired(t *testing.T) {
	c := NewUserSessionCache()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	c.AddSession(models.Session{ID: "live", ExpiresAt: now.Add(time.Hour)})
	c.AddSession(models.Session{ID: "stale", ExpiresAt: now.Add(-time.Minute)})

	if n := c.PurgeExpired(now); n != 1 {
		t.Fatalf("expected 1 purged session, got %d", n)
	}
	if _, ok := c.FindSessionBySessionToken("stale"); ok {
		t.Fatalf("expired session still cached")
	}
	if _, ok := c.FindSessionBySessionToken("live"); !ok {
		t.Fatalf("live session missing")
	}
	c.DeleteSessionBySessionToken("live")
	if c.Len() != 0 {
		t.Fatalf("expected empty cache, got %d", c.Len())
	}
}

func TestRbacPermissions(t *testing.T) {
	c := NewRbacRolesCache()
	c.Add("operator", Resource{UserResourceCode: "BATCH_CREATE", Method: "POST", Path: "/app/api/batches"})
	c.Add("admin", Resource{UserResourceCode: "SKU_CREATE", Method: "POST", Path: "/app/api/skus"})

	op := c.Permissions([]string{"operator"}, false)
	if len(op) != 1 || op["BATCH_CREATE"] != 1 {
		t.Fatalf("unexpected operator permissions: %v", op)
	}
	all := c.Permissions(nil, true)
	if len(all) != 2 {
		t.Fatalf("expected admin to see every code, got %v", all)
	}
	names := c.RouteNamesSorted()
	if len(names) != 2 || names[0] != "BATCH_CREATE" {
		t.Fatalf("unexpected sorted names: %v", names)
	}
}
