// Package ledger issues batch numbers and keeps the append-only record of
// issued batches, together with the aggregate and range queries over it.
//
// The only way a record enters the ledger is Issue, which allocates the next
// per-SKU sequence and appends the record in one write transaction. Records
// are never updated or deleted.
package ledger

import (
	"errors"
	"time"

	"batchledger/infrastructure/audit"
	"batchledger/infrastructure/sqlite"
	"batchledger/models"
)

const (
	DefaultMaxAttempts  = 5
	DefaultRetryBackoff = 10 * time.Millisecond
)

// ErrUnknownSKU is wrapped in a NotFound error when Issue targets a SKU that
// does not exist or was deleted.
var ErrUnknownSKU = errors.New("unknown sku")

// Ledger is safe for concurrent use.
type Ledger struct {
	db          *sqlite.DB
	audit       *audit.Service
	loc         *time.Location
	maxAttempts int
	backoff     time.Duration
	now         func() time.Time
}

type Option func(*Ledger)

// WithLocation sets the timezone whose calendar days "today" and date ranges refer to.
func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) {
		if loc != nil {
			l.loc = loc
		}
	}
}

// WithMaxAttempts bounds how often Issue retries after losing an allocation race.
func WithMaxAttempts(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.maxAttempts = n
		}
	}
}

// WithRetryBackoff sets the base delay between allocation attempts.
func WithRetryBackoff(d time.Duration) Option {
	return func(l *Ledger) {
		if d >= 0 {
			l.backoff = d
		}
	}
}

// WithClock overrides the time source used to stamp new records.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

func New(db *sqlite.DB, auditSvc *audit.Service, opts ...Option) *Ledger {
	l := &Ledger{
		db:          db,
		audit:       auditSvc,
		loc:         time.UTC,
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultRetryBackoff,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Location returns the reference timezone.
func (l *Ledger) Location() *time.Location {
	return l.loc
}

// Now returns the ledger clock in the reference timezone.
func (l *Ledger) Now() time.Time {
	return l.now().In(l.loc)
}

// IssueInput is one production submission.
type IssueInput struct {
	SKUID     string
	Quantity  int64
	CreatedBy int64
}

// Entry is a ledger record joined with the identity of its SKU.
type Entry struct {
	models.Batch
	SKUCode    string
	SKUName    string
	SKUDeleted bool
}

// Stats is the production summary shown next to the submission form.
type Stats struct {
	TotalQuantity int64
	TodayQuantity int64
	TodayBatches  int64
	TotalBatches  int64
}

// ExportRow is the flat shape handed to export serializers.
type ExportRow struct {
	BatchNumber string
	SKUCode     string
	SKUName     string
	Quantity    int64
	CreatedAt   time.Time
}
