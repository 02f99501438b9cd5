package invoices

import (
	"encoding/csv"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var exportPrinter = message.NewPrinter(language.English)

// formatMoney renders an amount with thousands separators and two decimal
// places, matching what bookkeeping tools expect to import.
func formatMoney(f float64) string {
	return exportPrinter.Sprint(number.Decimal(f,
		number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// WriteCSV serialises invoice headers to CSV.
func WriteCSV(w io.Writer, invoices []Invoice) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"Number", "Customer", "Date", "Due Date", "Status", "Payment",
		"Subtotal", "Discount", "Tax", "Grand Total"}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, inv := range invoices {
		dueDate := ""
		if inv.DueDate != nil {
			dueDate = inv.DueDate.Format("2006-01-02")
		}
		record := []string{
			inv.Number,
			inv.CustomerName,
			inv.Date.Format("2006-01-02"),
			dueDate,
			string(inv.Status),
			string(inv.PaymentStatus),
			formatMoney(inv.Subtotal.InexactFloat64()),
			formatMoney(inv.DiscountAmount.InexactFloat64()),
			formatMoney(inv.TaxTotal.InexactFloat64()),
			formatMoney(inv.GrandTotal.InexactFloat64()),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
