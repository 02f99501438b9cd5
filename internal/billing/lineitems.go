package billing

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Field names an editable line-item input.
type Field string

const (
	FieldQuantity  Field = "quantity"
	FieldUnitPrice Field = "unit_price"
	FieldTaxRate   Field = "tax_rate"
)

// AllocateLots turns a selection of catalog lot codes into line items appended
// after the existing ones. Each matched lot yields one item with quantity 1,
// the lot's unit price and the default tax rate. Codes without a matching lot
// are skipped silently. Allocation is additive: existing items are never
// replaced or merged, so re-allocating an already-present lot code produces a
// duplicate row.
func AllocateLots(existing []LineItem, selected []string, catalog []Lot, defaultTaxRate decimal.Decimal) []LineItem {
	byCode := make(map[string]Lot, len(catalog))
	for _, lot := range catalog {
		byCode[lot.Code] = lot
	}

	out := make([]LineItem, len(existing), len(existing)+len(selected))
	copy(out, existing)

	for _, code := range selected {
		lot, ok := byCode[code]
		if !ok {
			continue
		}
		item := LineItem{
			ProductName: lot.ProductName,
			LotCode:     lot.Code,
			Quantity:    1,
			UnitPrice:   lot.UnitPrice,
			TaxRate:     defaultTaxRate,
		}
		out = append(out, recompute(item))
	}
	return out
}

// UpdateLineItem replaces one field of the item at index and recomputes that
// item's derived amounts. Other items are untouched. Invalid input is coerced
// rather than rejected: quantity falls back to 1, unit price and tax rate fall
// back to 0. An out-of-range index leaves the slice unchanged.
func UpdateLineItem(items []LineItem, index int, field Field, raw string) []LineItem {
	if index < 0 || index >= len(items) {
		return items
	}

	out := make([]LineItem, len(items))
	copy(out, items)

	item := out[index]
	switch field {
	case FieldQuantity:
		item.Quantity = coerceQuantity(raw)
	case FieldUnitPrice:
		item.UnitPrice = coerceDecimal(raw)
	case FieldTaxRate:
		item.TaxRate = coerceDecimal(raw)
	default:
		return items
	}
	out[index] = recompute(item)
	return out
}

// RemoveLineItem drops the item at index. Remaining items keep their order
// and values; aggregate totals recompute naturally on the next ComputeTotals.
func RemoveLineItem(items []LineItem, index int) []LineItem {
	if index < 0 || index >= len(items) {
		return items
	}
	out := make([]LineItem, 0, len(items)-1)
	out = append(out, items[:index]...)
	out = append(out, items[index+1:]...)
	return out
}

// recompute derives Subtotal, LineTax and LineTotal from the item's inputs.
func recompute(item LineItem) LineItem {
	qty := decimal.NewFromInt(item.Quantity)
	item.Subtotal = qty.Mul(item.UnitPrice)
	item.LineTax = item.Subtotal.Mul(item.TaxRate.Div(hundred))
	item.LineTotal = item.Subtotal.Add(item.LineTax)
	return item
}

func coerceQuantity(raw string) int64 {
	qty, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || qty < 1 {
		return 1
	}
	return qty
}

func coerceDecimal(raw string) decimal.Decimal {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || value.IsNegative() {
		return decimal.Zero
	}
	return value
}
