package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User represents an authenticated app user.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int64     `bun:"id,pk,autoincrement"`
	Username     string    `bun:"username,unique,notnull"`
	PasswordHash string    `bun:"password_hash,notnull"`
	Role         string    `bun:"role,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Session is used by middleware and auth handlers.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	ID                string         `bun:"id,pk"`
	UserID            int64          `bun:"user_id,notnull"`
	User              User           `bun:"rel:belongs-to,join:user_id=id"`
	UserRoles         []string       `bun:"-"`
	ScreenPermissions map[string]int `bun:"-"`
	ExpiresAt         time.Time      `bun:"expires_at,notnull"`
	CreatedAt         time.Time      `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt         time.Time      `bun:"updated_at,notnull,default:current_timestamp"`
}

// Expired returns true when the session expiry time has passed.
func (s Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}

// SKU is a catalog entry batches are issued against.
//
// Timestamps are stored as fixed-width UTC text, so SKUs are read through
// row structs in the catalog package rather than mapped directly.
type SKU struct {
	ID        string
	Code      string
	Name      string
	CreatedAt time.Time
	CreatedBy int64
	DeletedAt *time.Time
}

// Deleted reports whether the SKU was withdrawn from the catalog.
func (s SKU) Deleted() bool {
	return s.DeletedAt != nil
}

// Batch is one immutable ledger record.
type Batch struct {
	ID          string
	SKUID       string
	Sequence    int64
	BatchNumber string
	Quantity    int64
	CreatedAt   time.Time
	CreatedBy   int64
}

// SequenceCounter holds the last sequence issued for a SKU.
type SequenceCounter struct {
	bun.BaseModel `bun:"table:sku_sequences,alias:ss"`

	SKUID        string `bun:"sku_id,pk"`
	LastSequence int64  `bun:"last_sequence,notnull"`
}

// AuditLog captures immutable change history for key operations.
type AuditLog struct {
	bun.BaseModel `bun:"table:audit_logs,alias:al"`

	ID         int64     `bun:"id,pk,autoincrement"`
	UserID     int64     `bun:"user_id,notnull"`
	Action     string    `bun:"action,notnull"`
	EntityType string    `bun:"entity_type,notnull"`
	EntityID   string    `bun:"entity_id,notnull"`
	BeforeJSON string    `bun:"before_json"`
	AfterJSON  string    `bun:"after_json"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// ExportRun records one served export download.
type ExportRun struct {
	bun.BaseModel `bun:"table:export_runs,alias:er"`

	ID         int64     `bun:"id,pk,autoincrement"`
	UserID     *int64    `bun:"user_id"`
	ExportType string    `bun:"export_type,notnull"`
	RangeStart string    `bun:"range_start"`
	RangeEnd   string    `bun:"range_end"`
	RowCount   int64     `bun:"row_count,notnull"`
	ArchiveKey string    `bun:"archive_key"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
