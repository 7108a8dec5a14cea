// Package catalog owns the SKU reference table that batches are issued against.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"batchledger/infrastructure/audit"
	"batchledger/infrastructure/errs"
	"batchledger/infrastructure/rbac"
	"batchledger/infrastructure/sqlite"
	"batchledger/models"
)

const (
	MaxCodeLength = 32
	MaxNameLength = 120
)

var codePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Catalog manages SKUs. Writes require the admin capability.
type Catalog struct {
	db    *sqlite.DB
	audit *audit.Service
	authz rbac.Authorizer
	now   func() time.Time
}

type Option func(*Catalog)

// WithClock overrides the time source used for created_at and deleted_at.
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) { c.now = now }
}

func New(db *sqlite.DB, auditSvc *audit.Service, authz rbac.Authorizer, opts ...Option) *Catalog {
	c := &Catalog{
		db:    db,
		audit: auditSvc,
		authz: authz,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type skuRow struct {
	ID        string         `bun:"id"`
	Code      string         `bun:"code"`
	Name      string         `bun:"name"`
	CreatedAt string         `bun:"created_at"`
	CreatedBy int64          `bun:"created_by"`
	DeletedAt sql.NullString `bun:"deleted_at"`
}

func (r skuRow) toModel() (models.SKU, error) {
	created, err := sqlite.ParseTime(r.CreatedAt)
	if err != nil {
		return models.SKU{}, fmt.Errorf("parse sku created_at: %w", err)
	}
	deleted, err := sqlite.ParseNullableTime(r.DeletedAt.String)
	if err != nil {
		return models.SKU{}, fmt.Errorf("parse sku deleted_at: %w", err)
	}
	return models.SKU{
		ID:        r.ID,
		Code:      r.Code,
		Name:      r.Name,
		CreatedAt: created,
		CreatedBy: r.CreatedBy,
		DeletedAt: deleted,
	}, nil
}

// NormalizeCode trims surrounding whitespace. Codes keep the case they were
// entered with; comparisons are case-insensitive.
func NormalizeCode(code string) string {
	return strings.TrimSpace(code)
}

func validate(code, name string) error {
	switch {
	case code == "":
		return errors.New("sku code is required")
	case utf8.RuneCountInString(code) > MaxCodeLength:
		return fmt.Errorf("sku code must be at most %d characters", MaxCodeLength)
	case !codePattern.MatchString(code):
		return errors.New("sku code may only contain letters, digits, '.', '_' and '-'")
	case name == "":
		return errors.New("sku name is required")
	case utf8.RuneCountInString(name) > MaxNameLength:
		return fmt.Errorf("sku name must be at most %d characters", MaxNameLength)
	}
	return nil
}

// CreateSKU adds a SKU. Codes are unique case-insensitively across every SKU
// ever created, including deleted ones that still have ledger history.
func (c *Catalog) CreateSKU(ctx context.Context, caller rbac.Caller, code, name string) (models.SKU, error) {
	const op = "catalog.CreateSKU"
	if !c.authz.IsAdmin(caller) {
		return models.SKU{}, errs.E(op, errs.Forbidden, errors.New("only admins can create skus"))
	}
	code = NormalizeCode(code)
	name = strings.TrimSpace(name)
	if err := validate(code, name); err != nil {
		return models.SKU{}, errs.E(op, errs.InvalidInput, err)
	}

	sku := models.SKU{
		ID:        uuid.NewString(),
		Code:      code,
		Name:      name,
		CreatedAt: c.now().UTC().Truncate(time.Microsecond),
		CreatedBy: caller.UserID,
	}

	err := c.db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var existing int
		if err := tx.NewRaw(`SELECT COUNT(*) FROM skus WHERE code = ? COLLATE NOCASE`, code).Scan(ctx, &existing); err != nil {
			return err
		}
		if existing > 0 {
			return errs.Errorf(op, errs.Conflict, "sku code %q already exists", code)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO skus (id, code, name, created_at, created_by)
VALUES (?, ?, ?, ?, ?)`, sku.ID, sku.Code, sku.Name, sqlite.FormatTime(sku.CreatedAt), sku.CreatedBy); err != nil {
			return err
		}
		return c.audit.Write(ctx, tx, audit.Entry{
			UserID:     caller.UserID,
			Action:     audit.ActionSKUCreate,
			EntityType: "sku",
			EntityID:   sku.ID,
			After:      map[string]string{"code": sku.Code, "name": sku.Name},
		})
	})
	if err != nil {
		if errs.KindOf(err) != errs.Other {
			return models.SKU{}, err
		}
		if sqlite.IsUniqueViolation(err) {
			return models.SKU{}, errs.Errorf(op, errs.Conflict, "sku code %q already exists", code)
		}
		return models.SKU{}, errs.E(op, errs.Other, err)
	}
	return sku, nil
}

// DeleteSKU withdraws a SKU from future allocation. Ledger records are never
// touched: a SKU with records is soft-deleted so history keeps its name and
// code, a SKU without records is removed outright.
func (c *Catalog) DeleteSKU(ctx context.Context, caller rbac.Caller, id string) error {
	const op = "catalog.DeleteSKU"
	if !c.authz.IsAdmin(caller) {
		return errs.E(op, errs.Forbidden, errors.New("only admins can delete skus"))
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return errs.E(op, errs.NotFound, errors.New("sku not found"))
	}

	err := c.db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		row := skuRow{}
		err := tx.NewRaw(`
SELECT id, code, name, created_at, created_by, deleted_at
FROM skus
WHERE id = ? AND deleted_at IS NULL`, id).Scan(ctx, &row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errs.E(op, errs.NotFound, errors.New("sku not found"))
			}
			return err
		}

		var records int64
		if err := tx.NewRaw(`SELECT COUNT(*) FROM batches WHERE sku_id = ?`, id).Scan(ctx, &records); err != nil {
			return err
		}

		mode := "hard"
		if records > 0 {
			mode = "soft"
			_, err = tx.ExecContext(ctx, `UPDATE skus SET deleted_at = ? WHERE id = ?`, sqlite.FormatTime(c.now()), id)
		} else {
			_, err = tx.ExecContext(ctx, `DELETE FROM skus WHERE id = ?`, id)
		}
		if err != nil {
			return err
		}

		return c.audit.Write(ctx, tx, audit.Entry{
			UserID:     caller.UserID,
			Action:     audit.ActionSKUDelete,
			EntityType: "sku",
			EntityID:   id,
			Before:     map[string]string{"code": row.Code, "name": row.Name},
			After:      map[string]any{"mode": mode, "records": records},
		})
	})
	if err != nil {
		if errs.KindOf(err) != errs.Other {
			return err
		}
		return errs.E(op, errs.Other, err)
	}
	return nil
}

// ListSKUs returns active SKUs ordered by name, case-insensitively.
func (c *Catalog) ListSKUs(ctx context.Context) ([]models.SKU, error) {
	const op = "catalog.ListSKUs"
	rows := make([]skuRow, 0)
	err := c.db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`
SELECT id, code, name, created_at, created_by, deleted_at
FROM skus
WHERE deleted_at IS NULL
ORDER BY name COLLATE NOCASE ASC, code COLLATE NOCASE ASC`).Scan(ctx, &rows)
	})
	if err != nil {
		return nil, errs.E(op, errs.Other, err)
	}
	out := make([]models.SKU, 0, len(rows))
	for _, r := range rows {
		sku, err := r.toModel()
		if err != nil {
			return nil, errs.E(op, errs.Other, err)
		}
		out = append(out, sku)
	}
	return out, nil
}

// LoadSKU returns an active SKU by id.
func (c *Catalog) LoadSKU(ctx context.Context, id string) (models.SKU, error) {
	const op = "catalog.LoadSKU"
	row := skuRow{}
	err := c.db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`
SELECT id, code, name, created_at, created_by, deleted_at
FROM skus
WHERE id = ? AND deleted_at IS NULL`, strings.TrimSpace(id)).Scan(ctx, &row)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.SKU{}, errs.E(op, errs.NotFound, errors.New("sku not found"))
		}
		return models.SKU{}, errs.E(op, errs.Other, err)
	}
	sku, err := row.toModel()
	if err != nil {
		return models.SKU{}, errs.E(op, errs.Other, err)
	}
	return sku, nil
}
