// Package invoices manages the invoice lifecycle around the billing engine:
// draft creation, lot allocation, line edits, discounts, finalization and
// payment status. All arithmetic is delegated to internal/billing; this
// package owns persistence, guards and collaborator wiring.
package invoices

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/profitpulse/profitpulse/internal/billing"
)

// Status is the document lifecycle state.
type Status string

const (
	// StatusDraft invoices are editable.
	StatusDraft Status = "draft"
	// StatusFinal invoices are frozen; lots have been consumed.
	StatusFinal Status = "final"
)

// PaymentStatus tracks settlement.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPaid    PaymentStatus = "paid"
	PaymentOverdue PaymentStatus = "overdue"
)

// Invoice is the aggregate persisted per document. Customer identity is
// snapshotted at creation so later directory edits do not rewrite history.
type Invoice struct {
	ID              int64              `json:"id" db:"id"`
	TenantID        int64              `json:"tenant_id" db:"tenant_id"`
	Number          string             `json:"number" db:"number"`
	CustomerID      int64              `json:"customer_id" db:"customer_id"`
	CustomerName    string             `json:"customer_name" db:"customer_name"`
	CustomerContact string             `json:"customer_contact,omitempty" db:"customer_contact"`
	CustomerAddress string             `json:"customer_address,omitempty" db:"customer_address"`
	Date            time.Time          `json:"date" db:"date"`
	DueDate         *time.Time         `json:"due_date,omitempty" db:"due_date"`
	PaymentTerms    string             `json:"payment_terms,omitempty" db:"payment_terms"`
	Status          Status             `json:"status" db:"status"`
	PaymentStatus   PaymentStatus      `json:"payment_status" db:"payment_status"`
	DiscountType    billing.DiscountType `json:"discount_type" db:"discount_type"`
	DiscountValue   decimal.Decimal    `json:"discount_value" db:"discount_value"`
	Subtotal        decimal.Decimal    `json:"subtotal" db:"subtotal"`
	DiscountAmount  decimal.Decimal    `json:"discount_amount" db:"discount_amount"`
	TaxTotal        decimal.Decimal    `json:"tax_total" db:"tax_total"`
	GrandTotal      decimal.Decimal    `json:"grand_total" db:"grand_total"`
	Items           []billing.LineItem `json:"items" db:"-"`
	CreatedBy       int64              `json:"created_by" db:"created_by"`
	CreatedAt       time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at" db:"updated_at"`
}

// Editable reports whether the invoice may still be modified.
func (inv *Invoice) Editable() bool {
	return inv.Status == StatusDraft && inv.PaymentStatus != PaymentPaid
}

// Discount returns the invoice-level discount specification.
func (inv *Invoice) Discount() billing.Discount {
	return billing.Discount{Type: inv.DiscountType, Value: inv.DiscountValue}
}

// CreateInvoiceRequest opens a draft for a customer.
type CreateInvoiceRequest struct {
	CustomerID   int64      `json:"customer_id" validate:"required,gt=0"`
	Date         time.Time  `json:"date" validate:"required"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	PaymentTerms string     `json:"payment_terms,omitempty" validate:"omitempty,max=100"`
}

// AllocateRequest appends line items drawn from catalog lots.
type AllocateRequest struct {
	LotCodes []string `json:"lot_codes" validate:"required,min=1,dive,required,max=50"`
}

// UpdateItemRequest edits one field of one line item. Value is the raw form
// input; the engine coerces invalid input instead of rejecting it.
type UpdateItemRequest struct {
	Field billing.Field `json:"field" validate:"required,oneof=quantity unit_price tax_rate"`
	Value string        `json:"value" validate:"required,max=50"`
}

// SetDiscountRequest replaces the invoice-level discount.
type SetDiscountRequest struct {
	Type  billing.DiscountType `json:"type" validate:"required,oneof=percentage amount"`
	Value decimal.Decimal      `json:"value"`
}

// ListInvoicesRequest filters invoice listings.
type ListInvoicesRequest struct {
	CustomerID    *int64         `json:"customer_id,omitempty"`
	Status        *Status        `json:"status,omitempty"`
	PaymentStatus *PaymentStatus `json:"payment_status,omitempty"`
	DateFrom      *time.Time     `json:"date_from,omitempty"`
	DateTo        *time.Time     `json:"date_to,omitempty"`
	Limit         int            `json:"limit" validate:"gte=0,lte=1000"`
	Offset        int            `json:"offset" validate:"gte=0"`
}

// Summary aggregates a tenant's invoice dashboard numbers.
type Summary struct {
	DraftCount   int             `json:"draft_count"`
	FinalCount   int             `json:"final_count"`
	UnpaidCount  int             `json:"unpaid_count"`
	OverdueCount int             `json:"overdue_count"`
	PaidRevenue  decimal.Decimal `json:"paid_revenue"`
	OpenRevenue  decimal.Decimal `json:"open_revenue"`
}

var (
	// ErrNotFound indicates a missing invoice.
	ErrNotFound = errors.New("invoices: not found")
	// ErrImmutable is returned when editing a finalized or paid invoice.
	ErrImmutable = errors.New("invoices: document is no longer editable")
	// ErrEmptyInvoice blocks finalizing an invoice without items.
	ErrEmptyInvoice = errors.New("invoices: at least one line item required")
	// ErrUnknownLot is the API-edge rejection for allocation requests naming
	// lots the catalog does not have. The engine itself stays permissive.
	ErrUnknownLot = errors.New("invoices: unknown lot code")
	// ErrDiscountInvalid rejects negative or out-of-range discount input.
	ErrDiscountInvalid = errors.New("invoices: discount value out of range")
	// ErrItemIndex is the API-edge rejection for out-of-range line indexes.
	ErrItemIndex = errors.New("invoices: line item index out of range")
	// ErrNotFinal blocks payment transitions on draft invoices.
	ErrNotFinal = errors.New("invoices: only final invoices can be settled")
)
