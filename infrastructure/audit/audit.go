package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/uptrace/bun"

	"batchledger/models"
)

const (
	ActionSKUCreate   = "sku.create"
	ActionSKUDelete   = "sku.delete"
	ActionBatchCreate = "batch.create"
	ActionUserCreate  = "user.create"
)

// Entry is one audit record. Before and After are marshalled to JSON.
type Entry struct {
	UserID     int64
	Action     string
	EntityType string
	EntityID   string
	Before     any
	After      any
}

// Service writes audit records inside the caller transaction, so a record
// exists exactly when the change it describes was committed.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

func (s *Service) Write(ctx context.Context, tx bun.Tx, e Entry) error {
	beforeJSON, err := marshal(e.Before)
	if err != nil {
		return fmt.Errorf("marshal audit before: %w", err)
	}
	afterJSON, err := marshal(e.After)
	if err != nil {
		return fmt.Errorf("marshal audit after: %w", err)
	}
	log := &models.AuditLog{
		UserID:     e.UserID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		BeforeJSON: beforeJSON,
		AfterJSON:  afterJSON,
	}
	_, err = tx.NewInsert().Model(log).Exec(ctx)
	return err
}

// ForEntity returns the audit trail of one entity, oldest first.
func (s *Service) ForEntity(ctx context.Context, tx bun.Tx, entityType, entityID string) ([]models.AuditLog, error) {
	logs := make([]models.AuditLog, 0)
	err := tx.NewSelect().
		Model(&logs).
		Where("entity_type = ?", entityType).
		Where("entity_id = ?", entityID).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func marshal(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
