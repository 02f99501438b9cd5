// Package catalog manages products and inventory lots. It is the lot provider
// for invoice allocation: the invoicing module draws available lots from here
// and hands consumed quantities back on finalization.
package catalog

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable catalog entry. Lots reference products and carry the
// batch-specific pricing; the product name on a lot is denormalised display
// data only.
type Product struct {
	ID        int64     `json:"id" db:"id"`
	TenantID  int64     `json:"tenant_id" db:"tenant_id"`
	Name      string    `json:"name" db:"name"`
	SKU       string    `json:"sku" db:"sku"`
	Category  string    `json:"category,omitempty" db:"category"`
	Unit      string    `json:"unit" db:"unit"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Lot is a specific received batch of a product with its own supplier, cost
// and available quantity.
type Lot struct {
	ID           int64           `json:"id" db:"id"`
	TenantID     int64           `json:"tenant_id" db:"tenant_id"`
	ProductID    int64           `json:"product_id" db:"product_id"`
	ProductName  string          `json:"product_name" db:"product_name"`
	Code         string          `json:"code" db:"code"`
	Supplier     string          `json:"supplier,omitempty" db:"supplier"`
	ReceivedDate time.Time       `json:"received_date" db:"received_date"`
	AvailableQty int64           `json:"available_qty" db:"available_qty"`
	UnitPrice    decimal.Decimal `json:"unit_price" db:"unit_price"`
	CostPrice    decimal.Decimal `json:"cost_price" db:"cost_price"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// CreateProductRequest creates a product.
type CreateProductRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	SKU      string `json:"sku" validate:"required,max=50"`
	Category string `json:"category,omitempty" validate:"omitempty,max=100"`
	Unit     string `json:"unit,omitempty" validate:"omitempty,max=20"`
}

// UpdateProductRequest patches a product.
type UpdateProductRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Category *string `json:"category,omitempty" validate:"omitempty,max=100"`
	Unit     *string `json:"unit,omitempty" validate:"omitempty,max=20"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// CreateLotRequest registers a received batch.
type CreateLotRequest struct {
	ProductID    int64           `json:"product_id" validate:"required,gt=0"`
	Code         string          `json:"code" validate:"required,max=50"`
	Supplier     string          `json:"supplier,omitempty" validate:"omitempty,max=200"`
	ReceivedDate time.Time       `json:"received_date" validate:"required"`
	AvailableQty int64           `json:"available_qty" validate:"gte=0"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	CostPrice    decimal.Decimal `json:"cost_price"`
}

// ListLotsRequest filters lot listings.
type ListLotsRequest struct {
	ProductID     *int64 `json:"product_id,omitempty"`
	AvailableOnly bool   `json:"available_only,omitempty"`
	Limit         int    `json:"limit" validate:"gte=0,lte=1000"`
	Offset        int    `json:"offset" validate:"gte=0"`
}

// ErrNotFound indicates a missing product or lot.
var ErrNotFound = errors.New("catalog: not found")

// ErrAlreadyExists indicates a duplicate SKU or lot code.
var ErrAlreadyExists = errors.New("catalog: already exists")

// ErrInvalidPrice indicates a negative unit or cost price.
var ErrInvalidPrice = errors.New("catalog: price must be >= 0")
