// Package returns reconciles goods coming back against finalized invoices.
// Quantity selection, clamping and classification are delegated to
// internal/billing; this package owns the return lifecycle and restocking.
package returns

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/profitpulse/profitpulse/internal/billing"
)

// Status is the return lifecycle state.
type Status string

const (
	// StatusDraft returns accumulate quantity selections.
	StatusDraft Status = "draft"
	// StatusProcessed returns are frozen; lots have been restocked.
	StatusProcessed Status = "processed"
)

// Return is the aggregate persisted per reconciliation.
type Return struct {
	ID            int64                `json:"id" db:"id"`
	TenantID      int64                `json:"tenant_id" db:"tenant_id"`
	InvoiceID     int64                `json:"invoice_id" db:"invoice_id"`
	InvoiceNumber string               `json:"invoice_number" db:"invoice_number"`
	Status        Status               `json:"status" db:"status"`
	Type          billing.ReturnType   `json:"type,omitempty" db:"type"`
	Reason        string               `json:"reason,omitempty" db:"reason"`
	Total         decimal.Decimal      `json:"total" db:"total"`
	Items         []billing.ReturnItem `json:"items" db:"-"`
	CreatedBy     int64                `json:"created_by" db:"created_by"`
	CreatedAt     time.Time            `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at" db:"updated_at"`
}

// CreateReturnRequest opens a draft return for a finalized invoice.
type CreateReturnRequest struct {
	InvoiceID int64 `json:"invoice_id" validate:"required,gt=0"`
}

// SetQuantityRequest selects how many units of one original line item come
// back. Quantity is clamped to the original, zero removes the selection.
type SetQuantityRequest struct {
	ItemIndex int   `json:"item_index" validate:"gte=0"`
	Quantity  int64 `json:"quantity"`
}

// FinalizeReturnRequest freezes the return under a reason code.
type FinalizeReturnRequest struct {
	Reason billing.ReturnReason `json:"reason" validate:"required"`
	Detail string               `json:"detail,omitempty" validate:"omitempty,max=500"`
}

// ListReturnsRequest filters return listings.
type ListReturnsRequest struct {
	InvoiceID *int64  `json:"invoice_id,omitempty"`
	Status    *Status `json:"status,omitempty"`
	Limit     int     `json:"limit" validate:"gte=0,lte=1000"`
	Offset    int     `json:"offset" validate:"gte=0"`
}

var (
	// ErrNotFound indicates a missing return.
	ErrNotFound = errors.New("returns: not found")
	// ErrInvoiceNotFinal blocks returns against draft invoices.
	ErrInvoiceNotFinal = errors.New("returns: invoice must be finalized first")
	// ErrProcessed is returned when editing an already processed return.
	ErrProcessed = errors.New("returns: document already processed")
	// ErrItemIndex is the API-edge rejection for out-of-range item indexes.
	ErrItemIndex = errors.New("returns: item index out of range")
)
