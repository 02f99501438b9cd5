// Package billing implements the invoice line-item and totals engine shared by
// the invoicing and returns modules. All operations are pure, synchronous
// computations over caller-owned slices: inputs are never mutated, derived
// amounts are always recomputed from current inputs rather than patched
// incrementally.
package billing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType selects how a Discount value is interpreted.
type DiscountType string

const (
	// DiscountPercentage applies Value as a percentage of the subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountAmount applies Value as a flat amount.
	DiscountAmount DiscountType = "amount"
)

// Discount applies once at the invoice level, not per line.
type Discount struct {
	Type  DiscountType    `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// LineItem is one row of an invoice drawing from a specific inventory lot.
// Subtotal, LineTax and LineTotal are derived from (Quantity, UnitPrice,
// TaxRate) and must never be edited directly.
type LineItem struct {
	ProductName string          `json:"product_name"`
	LotCode     string          `json:"lot_code"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	LineTax     decimal.Decimal `json:"line_tax"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// Lot is read-only reference data supplied by the catalog module.
type Lot struct {
	Code         string          `json:"code"`
	ProductName  string          `json:"product_name"`
	Supplier     string          `json:"supplier"`
	ReceivedDate time.Time       `json:"received_date"`
	AvailableQty int64           `json:"available_qty"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	CostPrice    decimal.Decimal `json:"cost_price"`
}

// Totals aggregates an invoice's computed amounts.
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxTotal       decimal.Decimal `json:"tax_total"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
}

// ReturnItem references an original line item being credited back. UnitPrice
// is frozen from the original line at selection time.
type ReturnItem struct {
	ProductName string          `json:"product_name"`
	LotCode     string          `json:"lot_code"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// ReturnType classifies a return against its original invoice.
type ReturnType string

const (
	// ReturnFull means every original item is returned at full quantity.
	ReturnFull ReturnType = "full"
	// ReturnPartial covers every other non-empty selection.
	ReturnPartial ReturnType = "partial"
)

// ReturnReason identifies why goods are being returned.
type ReturnReason string

const (
	ReasonDamaged         ReturnReason = "damaged"
	ReasonExpired         ReturnReason = "expired"
	ReasonWrongItem       ReturnReason = "wrong_item"
	ReasonCustomerRequest ReturnReason = "customer_request"
	ReasonOther           ReturnReason = "other"
)

var reasonLabels = map[ReturnReason]string{
	ReasonDamaged:         "Damaged goods",
	ReasonExpired:         "Expired product",
	ReasonWrongItem:       "Wrong item delivered",
	ReasonCustomerRequest: "Customer request",
	ReasonOther:           "Other",
}

// Label returns the human-readable label for the reason code.
func (r ReturnReason) Label() (string, bool) {
	label, ok := reasonLabels[r]
	return label, ok
}

// ReturnSummary is the finalized result of a return reconciliation, attached
// to an invoice by the returns module before persistence.
type ReturnSummary struct {
	Type   ReturnType      `json:"type"`
	Items  []ReturnItem    `json:"items"`
	Total  decimal.Decimal `json:"total"`
	Reason string          `json:"reason"`
}

// ErrEmptyReturn indicates a finalize call without any returned items.
var ErrEmptyReturn = errors.New("billing: return requires at least one item")

// ErrUnknownReason indicates an unrecognised return reason code.
var ErrUnknownReason = errors.New("billing: unknown return reason")

// RoundMoney rounds a monetary amount to two decimal places. Rounding happens
// only at display and persistence edges, never mid-computation.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

var hundred = decimal.NewFromInt(100)
