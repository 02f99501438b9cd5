package billing

import "github.com/shopspring/decimal"

// ComputeTotals aggregates line items plus an invoice-level discount.
//
// Tax is computed on the pre-discount line amounts, not on the discounted
// subtotal: discount and tax are independent and there is no interaction
// term. This mirrors the established billing policy and must not be changed
// without confirming the intended tax treatment.
//
// The engine does not clamp: a discount exceeding the subtotal yields a
// negative grand total, which callers must guard against if undesired. An
// empty item list yields all-zero totals.
func ComputeTotals(items []LineItem, discount Discount) Totals {
	subtotal := decimal.Zero
	taxTotal := decimal.Zero
	for _, item := range items {
		qty := decimal.NewFromInt(item.Quantity)
		lineAmount := qty.Mul(item.UnitPrice)
		subtotal = subtotal.Add(lineAmount)
		taxTotal = taxTotal.Add(lineAmount.Mul(item.TaxRate.Div(hundred)))
	}

	discountAmount := decimal.Zero
	switch discount.Type {
	case DiscountPercentage:
		discountAmount = subtotal.Mul(discount.Value.Div(hundred))
	case DiscountAmount:
		discountAmount = discount.Value
	}

	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		TaxTotal:       taxTotal,
		GrandTotal:     subtotal.Sub(discountAmount).Add(taxTotal),
	}
}
