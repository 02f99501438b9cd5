package billing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// SetReturnQuantity inserts, updates or removes the return entry for the
// original item at itemIndex. The requested quantity is clamped to
// [0, original quantity]; a clamped quantity of zero removes any existing
// entry. Entries match their originals by (product name, lot code), not by
// index, so reordering the original item list does not desynchronise returns.
// The unit price is frozen from the original line item.
func SetReturnQuantity(original []LineItem, returns []ReturnItem, itemIndex int, quantity int64) []ReturnItem {
	if itemIndex < 0 || itemIndex >= len(original) {
		return returns
	}
	src := original[itemIndex]

	if quantity < 0 {
		quantity = 0
	}
	if quantity > src.Quantity {
		quantity = src.Quantity
	}

	out := make([]ReturnItem, 0, len(returns)+1)
	found := false
	for _, entry := range returns {
		if entry.ProductName == src.ProductName && entry.LotCode == src.LotCode {
			found = true
			if quantity == 0 {
				continue
			}
			entry.Quantity = quantity
			entry.UnitPrice = src.UnitPrice
			entry.Subtotal = decimal.NewFromInt(quantity).Mul(src.UnitPrice)
		}
		out = append(out, entry)
	}
	if !found && quantity > 0 {
		out = append(out, ReturnItem{
			ProductName: src.ProductName,
			LotCode:     src.LotCode,
			Quantity:    quantity,
			UnitPrice:   src.UnitPrice,
			Subtotal:    decimal.NewFromInt(quantity).Mul(src.UnitPrice),
		})
	}
	return out
}

// ClassifyReturnType reports "full" only when every original item is returned
// at its full original quantity. Any other selection, including an empty one,
// is "partial".
func ClassifyReturnType(original []LineItem, returns []ReturnItem) ReturnType {
	if len(returns) == 0 || len(returns) != len(original) {
		return ReturnPartial
	}
	byKey := make(map[string]int64, len(returns))
	for _, entry := range returns {
		byKey[returnKey(entry.ProductName, entry.LotCode)] = entry.Quantity
	}
	for _, item := range original {
		if byKey[returnKey(item.ProductName, item.LotCode)] != item.Quantity {
			return ReturnPartial
		}
	}
	return ReturnFull
}

// FinalizeReturn validates the selection, classifies it against the original
// items and computes the return total. The reason is the label for the code,
// suffixed with ": detail" when free-text detail is present.
func FinalizeReturn(original []LineItem, returns []ReturnItem, reason ReturnReason, detail string) (ReturnSummary, error) {
	if len(returns) == 0 {
		return ReturnSummary{}, ErrEmptyReturn
	}
	label, ok := reason.Label()
	if !ok {
		return ReturnSummary{}, ErrUnknownReason
	}

	total := decimal.Zero
	for _, entry := range returns {
		total = total.Add(entry.Subtotal)
	}

	if detail = strings.TrimSpace(detail); detail != "" {
		label = label + ": " + detail
	}

	items := make([]ReturnItem, len(returns))
	copy(items, returns)

	return ReturnSummary{
		Type:   ClassifyReturnType(original, returns),
		Items:  items,
		Total:  total,
		Reason: label,
	}, nil
}

func returnKey(productName, lotCode string) string {
	return productName + "\x00" + lotCode
}
