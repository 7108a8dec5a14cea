package skus

import (
	"context"
	"time"

	"batchledger/infrastructure/rbac"
	"batchledger/models"
)

// Catalog is the SKU store behind the handlers.
type Catalog interface {
	ListSKUs(ctx context.Context) ([]models.SKU, error)
	CreateSKU(ctx context.Context, caller rbac.Caller, code, name string) (models.SKU, error)
	DeleteSKU(ctx context.Context, caller rbac.Caller, id string) error
}

type CreateSKURequest struct {
	Code string `json:"code" validate:"notblank,max=32"`
	Name string `json:"name" validate:"notblank,max=120"`
}

type SKUResponse struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy int64     `json:"created_by"`
}

func NewSKUResponse(s models.SKU, loc *time.Location) SKUResponse {
	return SKUResponse{
		ID:        s.ID,
		Code:      s.Code,
		Name:      s.Name,
		CreatedAt: s.CreatedAt.In(loc),
		CreatedBy: s.CreatedBy,
	}
}

type PageData struct {
	SKUs     []SKUResponse
	CanWrite bool
}
