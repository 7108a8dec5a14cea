package production

import (
	"context"
	"time"

	"batchledger/infrastructure/ledger"
	"batchledger/models"
)

// BatchIssuer appends production submissions to the ledger.
type BatchIssuer interface {
	Issue(ctx context.Context, in ledger.IssueInput) (ledger.Entry, error)
	Location() *time.Location
}

// StatsReader reports production totals.
type StatsReader interface {
	Summary(ctx context.Context, referenceDate time.Time) (ledger.Stats, error)
	Now() time.Time
	Location() *time.Location
}

// SKULister lists the SKUs offered in the submission form.
type SKULister interface {
	ListSKUs(ctx context.Context) ([]models.SKU, error)
}

type CreateBatchRequest struct {
	SKUID    string `json:"sku_id" validate:"notblank"`
	Quantity int64  `json:"quantity" validate:"gt=0"`
}

type BatchResponse struct {
	ID          string    `json:"id"`
	BatchNumber string    `json:"batch_number"`
	Sequence    int64     `json:"sequence"`
	SKUID       string    `json:"sku_id"`
	SKUCode     string    `json:"sku_code"`
	SKUName     string    `json:"sku_name"`
	SKUDeleted  bool      `json:"sku_deleted,omitempty"`
	Quantity    int64     `json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   int64     `json:"created_by"`
}

// NewBatchResponse renders e with CreatedAt in loc.
func NewBatchResponse(e ledger.Entry, loc *time.Location) BatchResponse {
	return BatchResponse{
		ID:          e.ID,
		BatchNumber: e.BatchNumber,
		Sequence:    e.Sequence,
		SKUID:       e.SKUID,
		SKUCode:     e.SKUCode,
		SKUName:     e.SKUName,
		SKUDeleted:  e.SKUDeleted,
		Quantity:    e.Quantity,
		CreatedAt:   e.CreatedAt.In(loc),
		CreatedBy:   e.CreatedBy,
	}
}

type StatsResponse struct {
	Date          string `json:"date"`
	TotalQuantity int64  `json:"total_quantity"`
	TodayQuantity int64  `json:"today_quantity"`
	TodayBatches  int64  `json:"today_batches"`
	BatchCount    int64  `json:"batch_count"`
}

type SKUOption struct {
	ID    string
	Label string
}

type PageData struct {
	Date  string
	Stats ledger.Stats
	SKUs  []SKUOption
}
